// Package segment partitions a normalized sample stream into contiguous,
// non-overlapping phase blocks using a threshold state machine with
// hysteresis.
package segment

import (
	"fmt"
	"log/slog"

	"github.com/runcoach/analysis/pkg/domain/activity"
)

// Phase labels one contiguous span of an activity.
type Phase string

const (
	PhaseWarmup   Phase = "warmup"
	PhaseWork     Phase = "work"
	PhaseRest     Phase = "rest"
	PhaseCooldown Phase = "cooldown"
)

// Block is one contiguous labeled span. Indices are inclusive and refer
// to the stream's sample slice. Blocks are ordered, non-overlapping, and
// their union covers every sample index.
type Block struct {
	Phase       Phase
	StartIndex  int
	EndIndex    int
	SampleCount int
}

const DefaultMinBlockDuration = 15.0

// Config carries the segmentation knobs. Zero thresholds select the
// per-metric defaults; an empty PrimarySignal selects automatically.
type Config struct {
	PrimarySignal     activity.Metric
	WorkThreshold     float64
	RestThreshold     float64
	MinBlockDurationS float64
}

// Segmenter classifies every sample into exactly one phase and produces
// the minimal set of contiguous blocks. Segmentation is deterministic:
// identical streams and config yield identical blocks.
type Segmenter struct {
	cfg Config
}

func New(cfg Config) *Segmenter {
	if cfg.MinBlockDurationS <= 0 {
		cfg.MinBlockDurationS = DefaultMinBlockDuration
	}
	return &Segmenter{cfg: cfg}
}

// Segment partitions the stream and reports the primary signal used.
func (s *Segmenter) Segment(stream *activity.Stream, logger *slog.Logger) ([]Block, activity.Metric, error) {
	samples := stream.Samples
	if len(samples) == 0 {
		return nil, "", fmt.Errorf("segment: empty sample stream")
	}

	metric, err := ChoosePrimarySignal(samples, s.cfg.PrimarySignal)
	if err != nil {
		return nil, "", err
	}
	work, rest, err := s.cfg.thresholds(metric)
	if err != nil {
		return nil, "", err
	}
	minDur := s.cfg.MinBlockDurationS

	n := len(samples)
	// Degenerate case: the whole activity is shorter than the minimum
	// block duration. One work block, nothing to detect.
	if stream.Span() < minDur {
		return []Block{{Phase: PhaseWork, StartIndex: 0, EndIndex: n - 1, SampleCount: n}}, metric, nil
	}

	var blocks []Block
	phase := PhaseWarmup
	blockStart := 0
	pendStart := -1 // first index of the current candidate-transition run
	sawWork := false

	closeBlock := func(end int, p Phase) {
		blocks = append(blocks, Block{Phase: p, StartIndex: blockStart, EndIndex: end, SampleCount: end - blockStart + 1})
	}

	for i := 0; i < n; i++ {
		smp := samples[i]

		// Lap markers force a boundary but never pick the new label;
		// the phase stays threshold-derived.
		if smp.LapMarker && i > blockStart {
			closeBlock(i-1, phase)
			blockStart = i
			if pendStart >= 0 && pendStart < blockStart {
				pendStart = blockStart
			}
		}

		v, ok := signalValue(smp, metric)
		if !ok {
			continue // missing signal: sample stays in the current block
		}

		if classify(v, metric, work, rest) != transitionTrigger(phase) {
			pendStart = -1
			continue
		}
		if pendStart < 0 {
			pendStart = i
		}
		// Commit only once the candidate phase persists; shorter
		// excursions are absorbed into the current phase.
		if smp.Offset-samples[pendStart].Offset < minDur {
			continue
		}
		if pendStart > blockStart {
			closeBlock(pendStart-1, phase)
			blockStart = pendStart
		}
		phase = nextPhase(phase)
		if phase == PhaseWork {
			sawWork = true
		}
		pendStart = -1
	}
	closeBlock(n-1, phase)

	// No sustained work segment detected: the entire activity is a
	// single work block rather than left unclassified.
	if !sawWork {
		return []Block{{Phase: PhaseWork, StartIndex: 0, EndIndex: n - 1, SampleCount: n}}, metric, nil
	}

	blocks = relabelCooldown(stream, blocks, metric, work, rest, minDur)

	if logger != nil {
		logger.Debug("Segmented activity", "blocks", len(blocks), "signal", metric)
	}
	return blocks, metric, nil
}

// relabelCooldown handles the trailing symmetric case of warmup. When the
// stream ends in rest, the trailing low-effort span is the cooldown. If
// the final block contains a sustained departure from the rest band that
// persists to the stream's end, the block splits there: rest before the
// departure, cooldown after (the athlete stopped recovering and started
// jogging out).
func relabelCooldown(stream *activity.Stream, blocks []Block, metric activity.Metric, work, rest, minDur float64) []Block {
	last := blocks[len(blocks)-1]
	if last.Phase != PhaseRest {
		return blocks
	}

	samples := stream.Samples
	lastRestIdx := -1
	for i := last.StartIndex; i <= last.EndIndex; i++ {
		v, ok := signalValue(samples[i], metric)
		if ok && classify(v, metric, work, rest) == levelRest {
			lastRestIdx = i
		}
	}

	split := lastRestIdx + 1
	if lastRestIdx >= last.StartIndex && split <= last.EndIndex &&
		samples[last.EndIndex].Offset-samples[split].Offset >= minDur {
		blocks[len(blocks)-1] = Block{
			Phase:       PhaseRest,
			StartIndex:  last.StartIndex,
			EndIndex:    split - 1,
			SampleCount: split - last.StartIndex,
		}
		return append(blocks, Block{
			Phase:       PhaseCooldown,
			StartIndex:  split,
			EndIndex:    last.EndIndex,
			SampleCount: last.EndIndex - split + 1,
		})
	}

	blocks[len(blocks)-1].Phase = PhaseCooldown
	return blocks
}

func nextPhase(p Phase) Phase {
	if p == PhaseWork {
		return PhaseRest
	}
	return PhaseWork
}

// transitionTrigger returns the signal level that, sustained long enough,
// moves the machine out of phase p. The dead zone between the thresholds
// never triggers a change.
func transitionTrigger(p Phase) level {
	if p == PhaseWork {
		return levelRest
	}
	return levelWork
}
