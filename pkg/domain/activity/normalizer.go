package activity

import (
	"fmt"
	"log/slog"
)

const (
	DefaultGapThresholdS       = 10.0
	DefaultMinActivityDuration = 60.0
)

// NormalizerOptions controls gap detection and the minimum-activity floor.
// Zero values select the defaults.
type NormalizerOptions struct {
	GapThresholdS        float64
	MinActivityDurationS float64
}

func (o NormalizerOptions) withDefaults() NormalizerOptions {
	if o.GapThresholdS <= 0 {
		o.GapThresholdS = DefaultGapThresholdS
	}
	if o.MinActivityDurationS <= 0 {
		o.MinActivityDurationS = DefaultMinActivityDuration
	}
	return o
}

// InsufficientDataError reports an activity too short to analyze.
type InsufficientDataError struct {
	ValidDurationS float64
	MinDurationS   float64
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %.1fs of valid samples, need %.1fs", e.ValidDurationS, e.MinDurationS)
}

// Normalize converts raw decoder output into an ordered Stream.
//
// Records with non-increasing timestamps relative to the last accepted
// sample are dropped (duplicate/rewind protection near lap boundaries).
// A temporal gap exceeding the threshold is recorded as an explicit Gap
// rather than interpolated. Missing fields stay absent; speed is
// converted to pace (sec/km) when present and positive.
func Normalize(raw RawActivity, opts NormalizerOptions, logger *slog.Logger) (*Stream, error) {
	opts = opts.withDefaults()

	stream := &Stream{
		StartTime:      raw.StartTime,
		TotalDistanceM: raw.TotalDistanceM,
	}

	var dropped int
	for _, rec := range raw.Records {
		if rec.Timestamp.IsZero() {
			dropped++
			continue
		}
		if stream.StartTime.IsZero() {
			stream.StartTime = rec.Timestamp
		}
		offset := rec.Timestamp.Sub(stream.StartTime).Seconds()
		if n := len(stream.Samples); n > 0 && offset <= stream.Samples[n-1].Offset {
			dropped++
			continue
		}

		sample := Sample{
			Offset:    offset,
			Power:     rec.Power,
			HeartRate: rec.HeartRate,
			Cadence:   rec.Cadence,
			LapMarker: rec.LapMarker,
		}
		if rec.Speed != nil && *rec.Speed > 0 {
			sample.Pace = Float64(1000 / *rec.Speed)
		}

		if n := len(stream.Samples); n > 0 {
			prev := stream.Samples[n-1].Offset
			if offset-prev > opts.GapThresholdS {
				stream.Gaps = append(stream.Gaps, Gap{Start: prev, End: offset})
			}
		}
		stream.Samples = append(stream.Samples, sample)
	}

	if dropped > 0 && logger != nil {
		logger.Debug("Dropped out-of-order or invalid records", "count", dropped)
	}

	valid := stream.ValidDuration()
	if valid < opts.MinActivityDurationS {
		return nil, &InsufficientDataError{ValidDurationS: valid, MinDurationS: opts.MinActivityDurationS}
	}

	if logger != nil {
		logger.Debug("Normalized sample stream",
			"samples", len(stream.Samples),
			"gaps", len(stream.Gaps),
			"valid_duration_s", valid,
		)
	}
	return stream, nil
}
