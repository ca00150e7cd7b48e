package stats

import (
	"fmt"

	"github.com/runcoach/analysis/pkg/domain/activity"
	"github.com/runcoach/analysis/pkg/domain/segment"
)

// Target is a prescribed band for a work block.
type Target struct {
	Metric activity.Metric `json:"metric" yaml:"metric"`
	Lower  float64         `json:"lower" yaml:"lower"`
	Upper  float64         `json:"upper" yaml:"upper"`
}

// MalformedTargetError reports a target whose bounds are inverted. The
// block is still emitted, just without a compliance result.
type MalformedTargetError struct {
	Target Target
}

func (e *MalformedTargetError) Error() string {
	return fmt.Sprintf("malformed target: lower bound %.1f above upper bound %.1f", e.Target.Lower, e.Target.Upper)
}

// ComplianceResult scores a block against its target. CompliancePct is
// the fraction of the block's sample-time whose instantaneous metric
// value falls inside the band, as a percentage. This rewards sustained
// adherence: a block whose average looks compliant but oscillates
// outside the band scores low.
type ComplianceResult struct {
	Target        Target
	AchievedAvg   float64
	CompliancePct float64
	PctBelow      float64
	PctAbove      float64
}

// Scorer compares achieved values against prescribed targets.
type Scorer struct {
	MaxSampleWeightS float64
}

func NewScorer() *Scorer {
	return &Scorer{MaxSampleWeightS: DefaultMaxSampleWeight}
}

// Score computes time-in-band compliance for one block. It returns a
// MalformedTargetError when the target bounds are inverted, and nil when
// the target metric is absent for the whole block (nothing to score).
func (sc *Scorer) Score(stream *activity.Stream, blk segment.Block, target Target) (*ComplianceResult, error) {
	if target.Lower > target.Upper {
		return nil, &MalformedTargetError{Target: target}
	}
	cap := sc.MaxSampleWeightS
	if cap <= 0 {
		cap = DefaultMaxSampleWeight
	}

	var below, in, above float64
	var sum float64
	var count int
	for i := blk.StartIndex; i <= blk.EndIndex; i++ {
		v, ok := metricValue(stream.Samples[i], target.Metric)
		if !ok {
			continue
		}
		sum += v
		count++

		w := stream.DurationAfter(i)
		if w > cap {
			w = cap
		}
		if w <= 0 {
			continue
		}
		switch {
		case v < target.Lower:
			below += w
		case v > target.Upper:
			above += w
		default:
			in += w
		}
	}

	total := below + in + above
	if count == 0 || total <= 0 {
		return nil, nil
	}
	return &ComplianceResult{
		Target:        target,
		AchievedAvg:   sum / float64(count),
		CompliancePct: 100 * in / total,
		PctBelow:      100 * below / total,
		PctAbove:      100 * above / total,
	}, nil
}

func metricValue(s activity.Sample, m activity.Metric) (float64, bool) {
	var p *float64
	switch m {
	case activity.MetricPower:
		p = s.Power
	case activity.MetricPace:
		p = s.Pace
	case activity.MetricHeartRate:
		p = s.HeartRate
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}
