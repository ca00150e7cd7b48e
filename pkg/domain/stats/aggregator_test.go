package stats

import (
	"math"
	"testing"

	"github.com/runcoach/analysis/pkg/domain/activity"
	"github.com/runcoach/analysis/pkg/domain/segment"
	"github.com/runcoach/analysis/pkg/domain/zones"
)

func wholeStream(stream *activity.Stream) segment.Block {
	return segment.Block{
		Phase:       segment.PhaseWork,
		StartIndex:  0,
		EndIndex:    len(stream.Samples) - 1,
		SampleCount: len(stream.Samples),
	}
}

func TestAggregate_ScalarSummaries(t *testing.T) {
	stream := &activity.Stream{}
	// 60s at 200 W / 140 bpm, 60s at 300 W / 170 bpm
	for i := 0; i < 120; i++ {
		power, hr := 200.0, 140.0
		if i >= 60 {
			power, hr = 300, 170
		}
		stream.Samples = append(stream.Samples, activity.Sample{
			Offset:    float64(i),
			Power:     activity.Float64(power),
			HeartRate: activity.Float64(hr),
		})
	}

	st := NewAggregator(zones.Default()).Aggregate(stream, wholeStream(stream))

	if st.DurationS != 119 {
		t.Errorf("Expected duration 119s, got %.1f", st.DurationS)
	}
	if st.AvgPower == nil || *st.AvgPower != 250 {
		t.Errorf("Expected avg power 250, got %v", st.AvgPower)
	}
	if st.MaxPower == nil || *st.MaxPower != 300 {
		t.Errorf("Expected max power 300, got %v", st.MaxPower)
	}
	if st.MinPower == nil || *st.MinPower != 200 {
		t.Errorf("Expected min power 200, got %v", st.MinPower)
	}
	if st.AvgHR == nil || *st.AvgHR != 155 {
		t.Errorf("Expected avg HR 155, got %v", st.AvgHR)
	}
	if st.MaxHR == nil || *st.MaxHR != 170 {
		t.Errorf("Expected max HR 170, got %v", st.MaxHR)
	}
	if st.AvgPace != nil {
		t.Errorf("Expected nil avg pace with no pace samples, got %v", *st.AvgPace)
	}
}

func TestAggregate_ZoneDistributionSumsToOne(t *testing.T) {
	stream := &activity.Stream{}
	for i := 0; i < 300; i++ {
		hr := 130.0 // Z1
		switch {
		case i >= 200:
			hr = 175 // Z4
		case i >= 100:
			hr = 160 // Z3
		}
		stream.Samples = append(stream.Samples, activity.Sample{
			Offset:    float64(i),
			HeartRate: activity.Float64(hr),
		})
	}

	st := NewAggregator(zones.Default()).Aggregate(stream, wholeStream(stream))

	var sum float64
	for _, frac := range st.ZoneDistribution {
		if frac < 0 {
			t.Errorf("Negative zone fraction: %v", st.ZoneDistribution)
		}
		sum += frac
	}
	if math.Abs(sum-1.0) > 1e-3 {
		t.Errorf("Expected zone fractions to sum to 1.0, got %.6f (%v)", sum, st.ZoneDistribution)
	}
	if len(st.ZoneDistribution) != 3 {
		t.Errorf("Expected 3 occupied zones, got %v", st.ZoneDistribution)
	}
}

func TestAggregate_NoHeartRate(t *testing.T) {
	stream := &activity.Stream{}
	for i := 0; i < 120; i++ {
		stream.Samples = append(stream.Samples, activity.Sample{
			Offset: float64(i),
			Power:  activity.Float64(240),
		})
	}

	st := NewAggregator(zones.Default()).Aggregate(stream, wholeStream(stream))

	if st.AvgHR != nil {
		t.Errorf("Expected nil avg HR, got %v", *st.AvgHR)
	}
	if st.ZoneDistribution == nil {
		t.Fatal("Expected non-nil zone distribution")
	}
	if len(st.ZoneDistribution) != 0 {
		t.Errorf("Expected empty zone distribution, got %v", st.ZoneDistribution)
	}
}

func TestAggregate_ExcludesGapTime(t *testing.T) {
	stream := &activity.Stream{
		Gaps: []activity.Gap{{Start: 59, End: 119}},
	}
	for i := 0; i < 60; i++ {
		stream.Samples = append(stream.Samples, activity.Sample{Offset: float64(i), Power: activity.Float64(220)})
	}
	for i := 0; i < 60; i++ {
		stream.Samples = append(stream.Samples, activity.Sample{Offset: float64(119 + i), Power: activity.Float64(220)})
	}

	st := NewAggregator(zones.Default()).Aggregate(stream, wholeStream(stream))

	// 59s before the gap plus 59s after it; the 60s gap contributes nothing.
	if st.DurationS != 118 {
		t.Errorf("Expected duration 118s excluding the gap, got %.1f", st.DurationS)
	}
}

func TestAggregate_BlockDurationsSumToSpanMinusGaps(t *testing.T) {
	stream := &activity.Stream{
		Gaps: []activity.Gap{{Start: 99, End: 149}},
	}
	for i := 0; i < 100; i++ {
		stream.Samples = append(stream.Samples, activity.Sample{Offset: float64(i), Power: activity.Float64(300)})
	}
	for i := 0; i < 100; i++ {
		stream.Samples = append(stream.Samples, activity.Sample{Offset: float64(149 + i), Power: activity.Float64(150)})
	}

	blocks := []segment.Block{
		{Phase: segment.PhaseWork, StartIndex: 0, EndIndex: 99, SampleCount: 100},
		{Phase: segment.PhaseRest, StartIndex: 100, EndIndex: 199, SampleCount: 100},
	}

	agg := NewAggregator(zones.Default())
	var total float64
	for _, blk := range blocks {
		total += agg.Aggregate(stream, blk).DurationS
	}

	want := stream.Span() - stream.GapTotal()
	if math.Abs(total-want) > 1e-9 {
		t.Errorf("Expected block durations to sum to %.1f, got %.1f", want, total)
	}
}

func TestAggregate_HRDrift(t *testing.T) {
	stream := &activity.Stream{}
	// 10 minutes: first half at 140, second half at 147 (5% drift)
	for i := 0; i < 600; i++ {
		hr := 140.0
		if i > 300 {
			hr = 147
		}
		stream.Samples = append(stream.Samples, activity.Sample{
			Offset:    float64(i),
			HeartRate: activity.Float64(hr),
		})
	}

	st := NewAggregator(zones.Default()).Aggregate(stream, wholeStream(stream))

	if st.HRDriftPct == nil {
		t.Fatal("Expected HR drift for a 10-minute block")
	}
	if math.Abs(*st.HRDriftPct-5.0) > 0.1 {
		t.Errorf("Expected ~5%% drift, got %.2f", *st.HRDriftPct)
	}
}

func TestAggregate_HRDriftNeedsDuration(t *testing.T) {
	stream := &activity.Stream{}
	for i := 0; i < 120; i++ {
		stream.Samples = append(stream.Samples, activity.Sample{
			Offset:    float64(i),
			HeartRate: activity.Float64(150),
		})
	}

	st := NewAggregator(zones.Default()).Aggregate(stream, wholeStream(stream))

	if st.HRDriftPct != nil {
		t.Errorf("Expected no drift for a 2-minute block, got %.2f", *st.HRDriftPct)
	}
	// The 5-second delta is available for anything over 30s.
	if st.HRDelta5s == nil {
		t.Fatal("Expected HR delta for a 2-minute block")
	}
	if *st.HRDelta5s != 0 {
		t.Errorf("Expected zero delta for constant HR, got %.2f", *st.HRDelta5s)
	}
}
