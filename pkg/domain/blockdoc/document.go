// Package blockdoc defines the canonical structured document emitted for
// one analyzed activity, and the emitter that assembles it.
package blockdoc

import (
	"github.com/runcoach/analysis/pkg/domain/activity"
	"github.com/runcoach/analysis/pkg/domain/segment"
)

// Totals carries the activity-level rollup.
type Totals struct {
	// DurationS is the wall-clock span of the activity, first sample to
	// last, including gapped time. The per-block durations sum to this
	// minus the total gap time.
	DurationS float64  `json:"duration_s" yaml:"duration_s"`
	DistanceM *float64 `json:"distance_m,omitempty" yaml:"distance_m,omitempty"`
}

// TargetSpec is the serialized form of a prescribed band.
type TargetSpec struct {
	Metric activity.Metric `json:"metric" yaml:"metric"`
	Lower  float64         `json:"lower" yaml:"lower"`
	Upper  float64         `json:"upper" yaml:"upper"`
}

// BlockEntry is one block with its summaries and optional compliance.
// compliance_pct is present iff target is present.
type BlockEntry struct {
	Phase     segment.Phase `json:"phase" yaml:"phase"`
	DurationS float64       `json:"duration_s" yaml:"duration_s"`

	AvgPower   *float64 `json:"avg_power,omitempty" yaml:"avg_power,omitempty"`
	MaxPower   *float64 `json:"max_power,omitempty" yaml:"max_power,omitempty"`
	MinPower   *float64 `json:"min_power,omitempty" yaml:"min_power,omitempty"`
	AvgHR      *float64 `json:"avg_hr,omitempty" yaml:"avg_hr,omitempty"`
	MaxHR      *float64 `json:"max_hr,omitempty" yaml:"max_hr,omitempty"`
	AvgPace    *float64 `json:"avg_pace,omitempty" yaml:"avg_pace,omitempty"`
	AvgCadence *float64 `json:"avg_cadence,omitempty" yaml:"avg_cadence,omitempty"`

	// ZoneDistribution may be empty but is always present.
	ZoneDistribution map[string]float64 `json:"zone_distribution" yaml:"zone_distribution"`

	Target        *TargetSpec `json:"target,omitempty" yaml:"target,omitempty"`
	CompliancePct *float64    `json:"compliance_pct,omitempty" yaml:"compliance_pct,omitempty"`
	PctBelow      *float64    `json:"pct_time_below,omitempty" yaml:"pct_time_below,omitempty"`
	PctAbove      *float64    `json:"pct_time_above,omitempty" yaml:"pct_time_above,omitempty"`

	HRDriftPct *float64 `json:"hr_drift_pct,omitempty" yaml:"hr_drift_pct,omitempty"`
	HRDelta5s  *float64 `json:"hr_first5s_to_last5s_delta,omitempty" yaml:"hr_first5s_to_last5s_delta,omitempty"`
}

// Document is the emitted artifact for one activity: ordered blocks plus
// activity-level totals, chronological, matching sample order.
type Document struct {
	ActivityTotals Totals          `json:"activity_totals" yaml:"activity_totals"`
	PrimarySignal  activity.Metric `json:"primary_signal" yaml:"primary_signal"`
	Blocks         []BlockEntry    `json:"blocks" yaml:"blocks"`
}
