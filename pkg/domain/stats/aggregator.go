// Package stats computes per-block summaries, heart-rate-zone time
// distribution, and target-compliance scores.
package stats

import (
	"github.com/runcoach/analysis/pkg/domain/activity"
	"github.com/runcoach/analysis/pkg/domain/segment"
	"github.com/runcoach/analysis/pkg/domain/zones"
)

// DefaultMaxSampleWeight caps the duration attributed to a single sample
// so irregular sampling near gaps cannot over-weight one reading.
const DefaultMaxSampleWeight = 5.0

const (
	hrDriftMinDuration = 480.0 // seconds
	hrDriftMinSamples  = 20
	hrDeltaMinDuration = 30.0
	hrDeltaMinSamples  = 4
	hrDeltaWindow      = 5.0
)

// BlockStats holds the derived scalar summaries for one block. Metric
// fields are nil when the metric was absent for the whole block; the
// zone distribution is empty (not zero-filled) when heart rate is
// absent.
type BlockStats struct {
	DurationS float64

	AvgPower *float64
	MaxPower *float64
	MinPower *float64

	AvgHR *float64
	MaxHR *float64

	AvgPace    *float64
	AvgCadence *float64

	// ZoneDistribution maps zone name to fraction of attributed
	// duration; fractions sum to 1.0 within rounding tolerance.
	ZoneDistribution map[string]float64

	// HRDriftPct is the aerobic-decoupling estimate (second-half vs
	// first-half average HR), present for blocks of at least 8 minutes
	// with enough HR samples.
	HRDriftPct *float64

	// HRDelta5s is the change from the first 5 s to the last 5 s of
	// the block, present for blocks longer than 30 s.
	HRDelta5s *float64
}

// Aggregator computes BlockStats over a stream, excluding gapped time.
type Aggregator struct {
	Zones            *zones.Table
	MaxSampleWeightS float64
}

func NewAggregator(table *zones.Table) *Aggregator {
	return &Aggregator{Zones: table, MaxSampleWeightS: DefaultMaxSampleWeight}
}

// Aggregate computes the summary for one block.
func (a *Aggregator) Aggregate(stream *activity.Stream, blk segment.Block) BlockStats {
	cap := a.MaxSampleWeightS
	if cap <= 0 {
		cap = DefaultMaxSampleWeight
	}

	var st BlockStats
	var powerAcc, hrAcc, paceAcc, cadenceAcc metricAcc
	zoneWeights := make(map[string]float64)
	var zoneTotal float64

	for i := blk.StartIndex; i <= blk.EndIndex; i++ {
		s := stream.Samples[i]
		dt := stream.DurationAfter(i)
		st.DurationS += dt

		powerAcc.add(s.Power)
		hrAcc.add(s.HeartRate)
		paceAcc.add(s.Pace)
		cadenceAcc.add(s.Cadence)

		if s.HeartRate != nil && a.Zones != nil {
			w := dt
			if w > cap {
				w = cap
			}
			if w > 0 {
				if name, ok := a.Zones.Classify(*s.HeartRate); ok {
					zoneWeights[name] += w
					zoneTotal += w
				}
			}
		}
	}

	st.AvgPower, st.MaxPower, st.MinPower = powerAcc.summary()
	st.AvgHR, st.MaxHR, _ = hrAcc.summary()
	st.AvgPace, _, _ = paceAcc.summary()
	st.AvgCadence, _, _ = cadenceAcc.summary()

	st.ZoneDistribution = map[string]float64{}
	if zoneTotal > 0 {
		for name, w := range zoneWeights {
			st.ZoneDistribution[name] = w / zoneTotal
		}
	}

	st.HRDriftPct = hrDrift(stream, blk)
	st.HRDelta5s = hrDelta5s(stream, blk)
	return st
}

// metricAcc accumulates an optional metric over the samples where it is
// present. Absent samples never contribute; a metric absent for the
// whole block summarizes to nil.
type metricAcc struct {
	sum   float64
	count int
	min   float64
	max   float64
}

func (m *metricAcc) add(v *float64) {
	if v == nil {
		return
	}
	if m.count == 0 || *v < m.min {
		m.min = *v
	}
	if m.count == 0 || *v > m.max {
		m.max = *v
	}
	m.sum += *v
	m.count++
}

func (m *metricAcc) summary() (avg, max, min *float64) {
	if m.count == 0 {
		return nil, nil, nil
	}
	return activity.Float64(m.sum / float64(m.count)), activity.Float64(m.max), activity.Float64(m.min)
}

// hrDrift compares second-half to first-half average heart rate.
func hrDrift(stream *activity.Stream, blk segment.Block) *float64 {
	samples := stream.Samples
	start, end := blk.StartIndex, blk.EndIndex
	span := samples[end].Offset - samples[start].Offset
	if span < hrDriftMinDuration {
		return nil
	}

	mid := samples[start].Offset + span/2
	var sum1, sum2 float64
	var n1, n2 int
	for i := start; i <= end; i++ {
		s := samples[i]
		if s.HeartRate == nil {
			continue
		}
		if s.Offset <= mid {
			sum1 += *s.HeartRate
			n1++
		} else {
			sum2 += *s.HeartRate
			n2++
		}
	}
	if n1+n2 < hrDriftMinSamples || n1 == 0 || n2 == 0 {
		return nil
	}
	hr1 := sum1 / float64(n1)
	if hr1 <= 0 {
		return nil
	}
	hr2 := sum2 / float64(n2)
	return activity.Float64((hr2/hr1 - 1) * 100)
}

// hrDelta5s measures the HR change from the block's first 5 seconds to
// its last 5 seconds.
func hrDelta5s(stream *activity.Stream, blk segment.Block) *float64 {
	samples := stream.Samples
	start, end := blk.StartIndex, blk.EndIndex
	span := samples[end].Offset - samples[start].Offset
	if span <= hrDeltaMinDuration {
		return nil
	}

	var sumFirst, sumLast float64
	var nFirst, nLast, nHR int
	for i := start; i <= end; i++ {
		s := samples[i]
		if s.HeartRate == nil {
			continue
		}
		nHR++
		if s.Offset-samples[start].Offset <= hrDeltaWindow {
			sumFirst += *s.HeartRate
			nFirst++
		}
		if samples[end].Offset-s.Offset <= hrDeltaWindow {
			sumLast += *s.HeartRate
			nLast++
		}
	}
	if nHR < hrDeltaMinSamples || nFirst == 0 || nLast == 0 {
		return nil
	}
	return activity.Float64(sumLast/float64(nLast) - sumFirst/float64(nFirst))
}
