package activity

import "time"

// Metric identifies a per-sample measurement channel.
type Metric string

const (
	MetricPower     Metric = "power"
	MetricPace      Metric = "pace"
	MetricHeartRate Metric = "heart_rate"
)

// RawRecord is one record as produced by the external FIT decoder.
// Field presence is irregular: a missing sensor leaves the pointer nil,
// never a zero value.
type RawRecord struct {
	Timestamp time.Time
	Power     *float64 // watts
	HeartRate *float64 // bpm
	Speed     *float64 // m/s
	Cadence   *float64 // steps/min
	LapMarker bool
}

// RawActivity is the narrow input contract from the decoder.
type RawActivity struct {
	StartTime      time.Time
	Records        []RawRecord
	TotalDistanceM *float64
}

// Sample is one normalized sensor sample. Offsets are seconds from
// activity start, strictly increasing, no duplicates. Immutable once
// produced by Normalize.
type Sample struct {
	Offset    float64 // seconds from activity start
	Power     *float64
	HeartRate *float64
	Pace      *float64 // sec/km
	Cadence   *float64
	LapMarker bool
}

// Gap marks a span of missing recording between two adjacent samples.
// Gapped time is excluded from all downstream aggregation but does not
// break block contiguity.
type Gap struct {
	Start float64 // offset of the sample before the gap
	End   float64 // offset of the sample after the gap
}

// Stream is the normalized sample sequence for one activity.
type Stream struct {
	StartTime      time.Time
	Samples        []Sample
	Gaps           []Gap
	TotalDistanceM *float64
}

// DurationAfter returns the recording time in seconds between sample i
// and its successor, with gapped intervals contributing zero. The final
// sample contributes nothing.
func (s *Stream) DurationAfter(i int) float64 {
	if i < 0 || i+1 >= len(s.Samples) {
		return 0
	}
	cur := s.Samples[i].Offset
	next := s.Samples[i+1].Offset
	for _, g := range s.Gaps {
		if g.Start == cur && g.End == next {
			return 0
		}
	}
	return next - cur
}

// Span returns the wall-clock length of the stream, first sample to last,
// including gapped time.
func (s *Stream) Span() float64 {
	if len(s.Samples) < 2 {
		return 0
	}
	return s.Samples[len(s.Samples)-1].Offset - s.Samples[0].Offset
}

// GapTotal returns the summed length of all detected gaps.
func (s *Stream) GapTotal() float64 {
	var total float64
	for _, g := range s.Gaps {
		total += g.End - g.Start
	}
	return total
}

// ValidDuration returns recording time excluding gaps.
func (s *Stream) ValidDuration() float64 {
	return s.Span() - s.GapTotal()
}

// Float64 returns a pointer to v. Convenience for building optional fields.
func Float64(v float64) *float64 {
	return &v
}
