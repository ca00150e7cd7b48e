// Package fit_decoder turns a Garmin FIT file into the raw activity
// form the analysis pipeline consumes, along with any athlete zones and
// workout targets the file embeds.
package fit_decoder

import (
	"bytes"
	"fmt"
	"time"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/runcoach/analysis/pkg/domain/activity"
	"github.com/runcoach/analysis/pkg/domain/stats"
	"github.com/runcoach/analysis/pkg/domain/zones"
)

// DecodedActivity is everything the pipeline can extract from one FIT
// file. HRZones and Targets are nil when the file does not carry them.
type DecodedActivity struct {
	Raw         activity.RawActivity
	HRZones     *zones.Table
	Targets     []stats.Target
	CompletedAt time.Time
}

// Decode reads a FIT file. Records arrive before the lap and session
// summaries, so everything is collected first and lap boundaries are
// applied to the records afterwards.
func Decode(data []byte) (*DecodedActivity, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty FIT data")
	}

	fitDec := decoder.New(bytes.NewReader(data))

	var records []activity.RawRecord
	var lapStarts []time.Time
	var hrBounds []float64
	var targets []stats.Target
	var totalDistance *float64
	var completedAt time.Time

	for fitDec.Next() {
		fitData, err := fitDec.Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to decode FIT file: %w", err)
		}

		for _, msg := range fitData.Messages {
			switch msg.Num {
			case typedef.MesgNumRecord:
				if rec, ok := parseRecord(&msg); ok {
					records = append(records, rec)
				}

			case typedef.MesgNumLap:
				lapMsg := mesgdef.NewLap(&msg)
				if !lapMsg.StartTime.IsZero() {
					lapStarts = append(lapStarts, lapMsg.StartTime.UTC())
				}

			case typedef.MesgNumSession:
				sessionMsg := mesgdef.NewSession(&msg)
				if sessionMsg.TotalDistance != 0xFFFFFFFF {
					d := float64(sessionMsg.TotalDistance) / 100
					if totalDistance == nil {
						totalDistance = &d
					} else {
						*totalDistance += d
					}
				}
				if ts := sessionMsg.Timestamp; !ts.IsZero() && ts.UTC().After(completedAt) {
					completedAt = ts.UTC()
				}

			case typedef.MesgNumHrZone:
				zoneMsg := mesgdef.NewHrZone(&msg)
				if zoneMsg.HighBpm != 0xFF {
					hrBounds = append(hrBounds, float64(zoneMsg.HighBpm))
				}

			case typedef.MesgNumWorkoutStep:
				if t, ok := parseWorkoutStep(&msg); ok {
					targets = append(targets, t)
				}
			}
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no records found in FIT file")
	}

	markLapBoundaries(records, lapStarts)

	if completedAt.IsZero() {
		completedAt = records[len(records)-1].Timestamp
	}

	out := &DecodedActivity{
		Raw: activity.RawActivity{
			Records:        records,
			TotalDistanceM: totalDistance,
		},
		Targets:     targets,
		CompletedAt: completedAt,
	}
	if len(hrBounds) > 0 {
		table, err := zones.FromUpperBounds(hrBounds)
		if err != nil {
			return nil, fmt.Errorf("invalid hr_zone bounds in FIT file: %w", err)
		}
		out.HRZones = table
	}
	return out, nil
}

// parseRecord extracts one record, skipping sentinel "invalid" values.
func parseRecord(msg *proto.Message) (activity.RawRecord, bool) {
	recordMsg := mesgdef.NewRecord(msg)

	ts := recordMsg.Timestamp
	if ts.IsZero() {
		return activity.RawRecord{}, false
	}

	rec := activity.RawRecord{Timestamp: ts.UTC()}

	if recordMsg.HeartRate != 0xFF { // 0xFF is invalid
		rec.HeartRate = activity.Float64(float64(recordMsg.HeartRate))
	}
	if recordMsg.Power != 0xFFFF { // 0xFFFF is invalid
		rec.Power = activity.Float64(float64(recordMsg.Power))
	}
	if recordMsg.Cadence != 0xFF {
		rec.Cadence = activity.Float64(float64(recordMsg.Cadence))
	}
	// Speed arrives in mm/s
	if recordMsg.Speed != 0xFFFF {
		rec.Speed = activity.Float64(float64(recordMsg.Speed) / 1000)
	}

	return rec, true
}

// markLapBoundaries flags the first record at or after each lap start.
// The first lap starts with the activity, so no marker is set for it.
func markLapBoundaries(records []activity.RawRecord, lapStarts []time.Time) {
	for _, start := range lapStarts {
		for i := range records {
			if !records[i].Timestamp.Before(start) {
				if i > 0 {
					records[i].LapMarker = true
				}
				break
			}
		}
	}
}

// parseWorkoutStep turns an active custom-power step into a target band.
// Non-power and non-custom steps carry no band the scorer can use.
func parseWorkoutStep(msg *proto.Message) (stats.Target, bool) {
	stepMsg := mesgdef.NewWorkoutStep(msg)

	if stepMsg.Intensity != typedef.IntensityActive {
		return stats.Target{}, false
	}
	if stepMsg.TargetType != typedef.WktStepTargetPower {
		return stats.Target{}, false
	}
	low := stepMsg.CustomTargetValueLow
	high := stepMsg.CustomTargetValueHigh
	if low == 0xFFFFFFFF || high == 0xFFFFFFFF || (low == 0 && high == 0) {
		return stats.Target{}, false
	}

	return stats.Target{
		Metric: activity.MetricPower,
		Lower:  scalePowerTarget(float64(low)),
		Upper:  scalePowerTarget(float64(high)),
	}, true
}

// scalePowerTarget undoes the scaling some head units apply to custom
// power values. Plausible running powers are a few hundred watts;
// values in the thousands are deciwatts, tens of thousands centiwatts.
func scalePowerTarget(v float64) float64 {
	switch {
	case v >= 10000:
		return v / 100
	case v >= 1000:
		return v / 10
	}
	return v
}
