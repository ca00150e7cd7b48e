package segment

import (
	"fmt"

	"github.com/runcoach/analysis/pkg/domain/activity"
)

// NoPrimarySignalError reports an activity with no usable effort signal:
// power, pace and heart rate are all absent from every sample. Such an
// activity cannot be segmented.
type NoPrimarySignalError struct{}

func (e *NoPrimarySignalError) Error() string {
	return "no primary signal: power, pace and heart rate all absent"
}

// ChoosePrimarySignal picks the segmentation signal for an activity:
// power if present for at least half the samples, else pace by the same
// rule, else heart rate as an effort proxy if present at all. When none
// of those hold, a sparse power or pace channel is still better than
// nothing, so whichever covers more samples wins. The choice is made
// once per activity and applies uniformly. A non-empty override forces
// the metric, provided it is present for at least one sample.
func ChoosePrimarySignal(samples []activity.Sample, override activity.Metric) (activity.Metric, error) {
	var power, pace, hr int
	for _, s := range samples {
		if s.Power != nil {
			power++
		}
		if s.Pace != nil {
			pace++
		}
		if s.HeartRate != nil {
			hr++
		}
	}

	if override != "" {
		count := map[activity.Metric]int{
			activity.MetricPower:     power,
			activity.MetricPace:      pace,
			activity.MetricHeartRate: hr,
		}[override]
		if count == 0 {
			return "", &NoPrimarySignalError{}
		}
		return override, nil
	}

	n := len(samples)
	switch {
	case n > 0 && power*2 >= n && power > 0:
		return activity.MetricPower, nil
	case n > 0 && pace*2 >= n && pace > 0:
		return activity.MetricPace, nil
	case hr > 0:
		return activity.MetricHeartRate, nil
	case power > 0 && power >= pace:
		return activity.MetricPower, nil
	case pace > 0:
		return activity.MetricPace, nil
	}
	return "", &NoPrimarySignalError{}
}

// level is the hysteresis classification of one instantaneous signal
// value: beyond the work threshold, beyond the rest threshold, or in the
// dead zone between them.
type level int

const (
	levelDead level = iota
	levelWork
	levelRest
)

// classify maps a signal value to its level. Pace inverts: lower pace
// (sec/km) means harder effort, so the work side is below the work
// threshold and the rest side above the rest threshold.
func classify(v float64, metric activity.Metric, work, rest float64) level {
	if metric == activity.MetricPace {
		switch {
		case v <= work:
			return levelWork
		case v >= rest:
			return levelRest
		}
		return levelDead
	}
	switch {
	case v >= work:
		return levelWork
	case v <= rest:
		return levelRest
	}
	return levelDead
}

func signalValue(s activity.Sample, metric activity.Metric) (float64, bool) {
	var p *float64
	switch metric {
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

// Default thresholds per metric, used when the configuration leaves them
// unset. These are deliberate policy choices: a recreational runner's
// steady-interval power sits around 250 W, threshold pace around 5:30/km,
// and hard-effort heart rate around 160 bpm.
func defaultThresholds(metric activity.Metric) (work, rest float64) {
	switch metric {
	case activity.MetricPace:
		return 330, 420 // sec/km: faster than 5:30 is work, slower than 7:00 is rest
	case activity.MetricHeartRate:
		return 160, 135
	default:
		return 250, 180 // watts
	}
}

func (c Config) thresholds(metric activity.Metric) (work, rest float64, err error) {
	work, rest = c.WorkThreshold, c.RestThreshold
	if work == 0 && rest == 0 {
		work, rest = defaultThresholds(metric)
	}
	if work == 0 || rest == 0 {
		return 0, 0, fmt.Errorf("segment: work and rest thresholds must both be set (got work=%.1f rest=%.1f)", work, rest)
	}
	if metric == activity.MetricPace {
		if work >= rest {
			return 0, 0, fmt.Errorf("segment: pace thresholds inverted: work %.1f must be below rest %.1f", work, rest)
		}
	} else if work <= rest {
		return 0, 0, fmt.Errorf("segment: work threshold %.1f must be above rest threshold %.1f", work, rest)
	}
	return work, rest, nil
}
