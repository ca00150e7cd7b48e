// Package analysis runs the full activity pipeline: normalize, segment,
// aggregate, score, emit, and update the athlete's training load.
package analysis

import (
	"github.com/runcoach/analysis/pkg/domain/activity"
	"github.com/runcoach/analysis/pkg/domain/segment"
	"github.com/runcoach/analysis/pkg/domain/zones"
)

// Config is the full tuning surface of the pipeline. Zero values select
// the documented defaults.
type Config struct {
	// Normalization
	GapThresholdS        float64 `json:"gap_threshold_s" yaml:"gap_threshold_s"`
	MinActivityDurationS float64 `json:"min_activity_duration_s" yaml:"min_activity_duration_s"`

	// Segmentation
	PrimarySignal     activity.Metric `json:"primary_signal,omitempty" yaml:"primary_signal,omitempty"`
	WorkThreshold     float64         `json:"work_threshold,omitempty" yaml:"work_threshold,omitempty"`
	RestThreshold     float64         `json:"rest_threshold,omitempty" yaml:"rest_threshold,omitempty"`
	MinBlockDurationS float64         `json:"min_block_duration_s" yaml:"min_block_duration_s"`

	// Aggregation
	MaxSampleWeightS float64 `json:"max_sample_weight_s" yaml:"max_sample_weight_s"`

	// HRZones classifies heart-rate time. Zones embedded in the input
	// file take precedence; the default five-zone table is the fallback.
	HRZones *zones.Table `json:"-" yaml:"-"`
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		GapThresholdS:        activity.DefaultGapThresholdS,
		MinActivityDurationS: activity.DefaultMinActivityDuration,
		MinBlockDurationS:    segment.DefaultMinBlockDuration,
	}
}
