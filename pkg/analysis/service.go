package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/runcoach/analysis/pkg/domain/activity"
	"github.com/runcoach/analysis/pkg/domain/blockdoc"
	"github.com/runcoach/analysis/pkg/domain/segment"
	"github.com/runcoach/analysis/pkg/domain/stats"
	"github.com/runcoach/analysis/pkg/domain/trainingload"
	"github.com/runcoach/analysis/pkg/domain/zones"
	infrapubsub "github.com/runcoach/analysis/pkg/infrastructure/pubsub"
	"github.com/runcoach/analysis/pkg/observability"
)

// Request is one activity to analyze.
type Request struct {
	AthleteID string
	Raw       activity.RawActivity

	// HRZones overrides the configured zone table, typically because
	// the input file embedded the athlete's zones.
	HRZones *zones.Table

	// Targets are assigned to work blocks in order. A single target
	// applies to every work block.
	Targets []stats.Target

	// StressScore is the activity's training stress. When nil and
	// CriticalPower is set, it is derived from duration and average
	// power. When neither is available the load update is skipped.
	StressScore   *float64
	CriticalPower *float64

	CompletedAt time.Time
}

// Result is the outcome of one analysis run.
type Result struct {
	ExecutionID string
	Document    *blockdoc.Document
	Load        *trainingload.State
}

// analyzedEvent is the payload published on each successful run.
type analyzedEvent struct {
	ExecutionID string             `json:"execution_id"`
	AthleteID   string             `json:"athlete_id"`
	Document    *blockdoc.Document `json:"document"`
}

// Service runs the analysis pipeline.
type Service struct {
	cfg     Config
	tracker *trainingload.Tracker
	pub     infrapubsub.Publisher
	logger  *slog.Logger
}

func NewService(cfg Config, tracker *trainingload.Tracker, pub infrapubsub.Publisher, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, tracker: tracker, pub: pub, logger: logger}
}

// ProcessActivity runs the full pipeline for one activity: normalize,
// segment, aggregate, score targets, emit the block document, fold the
// stress into the athlete's load state, and publish the analyzed event.
func (s *Service) ProcessActivity(ctx context.Context, req Request) (*Result, error) {
	executionID := uuid.New().String()
	logger := s.logger.With("execution_id", executionID, "athlete_id", req.AthleteID)

	stream, err := activity.Normalize(req.Raw, activity.NormalizerOptions{
		GapThresholdS:        s.cfg.GapThresholdS,
		MinActivityDurationS: s.cfg.MinActivityDurationS,
	}, logger)
	if err != nil {
		observability.RecordAnalysisFailure("insufficient_data")
		return nil, fmt.Errorf("normalizing activity: %w", err)
	}

	segmenter := segment.New(segment.Config{
		PrimarySignal:     s.cfg.PrimarySignal,
		WorkThreshold:     s.cfg.WorkThreshold,
		RestThreshold:     s.cfg.RestThreshold,
		MinBlockDurationS: s.cfg.MinBlockDurationS,
	})
	blocks, signal, err := segmenter.Segment(stream, logger)
	if err != nil {
		var noSignal *segment.NoPrimarySignalError
		if errors.As(err, &noSignal) {
			observability.RecordAnalysisFailure("no_primary_signal")
		} else {
			observability.RecordAnalysisFailure("segmentation")
		}
		return nil, fmt.Errorf("segmenting activity: %w", err)
	}

	table := s.cfg.HRZones
	if req.HRZones != nil {
		table = req.HRZones
	}
	if table == nil {
		table = zones.Default()
	}

	agg := stats.NewAggregator(table)
	agg.MaxSampleWeightS = s.cfg.MaxSampleWeightS
	blockStats := make([]stats.BlockStats, len(blocks))
	for i, blk := range blocks {
		blockStats[i] = agg.Aggregate(stream, blk)
	}

	compliance := s.scoreTargets(stream, blocks, req.Targets, logger)

	doc, err := blockdoc.Emit(stream, signal, blocks, blockStats, compliance)
	if err != nil {
		return nil, fmt.Errorf("emitting block document: %w", err)
	}

	result := &Result{ExecutionID: executionID, Document: doc}

	if stress, ok := s.stressScore(req, doc); ok {
		state, err := s.tracker.FinalizeActivity(ctx, req.AthleteID, stress, req.CompletedAt)
		if err != nil {
			var ooo *trainingload.OutOfOrderUpdateError
			if errors.As(err, &ooo) {
				observability.RecordOutOfOrderRejection()
			}
			return nil, fmt.Errorf("updating training load: %w", err)
		}
		observability.RecordLoadUpdate()
		result.Load = state
	} else {
		logger.Info("No stress score available, skipping load update")
	}

	if err := s.publish(ctx, req.AthleteID, result); err != nil {
		// The analysis itself succeeded; a publish failure is not fatal.
		logger.Error("Failed to publish analyzed event", "error", err)
	}

	observability.RecordActivityAnalyzed(string(signal), len(blocks))
	logger.Info("Analyzed activity", "blocks", len(blocks), "signal", signal)
	return result, nil
}

// scoreTargets pairs targets with work blocks in order. One target
// broadcasts to every work block. Malformed targets are logged and the
// block is emitted without a compliance entry.
func (s *Service) scoreTargets(stream *activity.Stream, blocks []segment.Block, targets []stats.Target, logger *slog.Logger) []*stats.ComplianceResult {
	if len(targets) == 0 {
		return nil
	}
	scorer := stats.NewScorer()

	compliance := make([]*stats.ComplianceResult, len(blocks))
	workIdx := 0
	for i, blk := range blocks {
		if blk.Phase != segment.PhaseWork {
			continue
		}
		var target stats.Target
		switch {
		case len(targets) == 1:
			target = targets[0]
		case workIdx < len(targets):
			target = targets[workIdx]
		default:
			workIdx++
			continue
		}
		workIdx++

		res, err := scorer.Score(stream, blk, target)
		if err != nil {
			logger.Warn("Skipping target", "block", i, "error", err)
			continue
		}
		compliance[i] = res
	}
	return compliance
}

// stressScore resolves the activity's stress: explicit value first,
// otherwise derived from whole-activity average power and the athlete's
// critical power.
func (s *Service) stressScore(req Request, doc *blockdoc.Document) (float64, bool) {
	if req.StressScore != nil {
		return *req.StressScore, true
	}
	if req.CriticalPower == nil {
		return 0, false
	}

	var weighted, total float64
	for _, b := range doc.Blocks {
		if b.AvgPower == nil || b.DurationS <= 0 {
			continue
		}
		weighted += *b.AvgPower * b.DurationS
		total += b.DurationS
	}
	if total <= 0 {
		return 0, false
	}

	rss, err := trainingload.ComputeRSS(total, weighted/total, *req.CriticalPower)
	if err != nil {
		return 0, false
	}
	return rss, true
}

func (s *Service) publish(ctx context.Context, athleteID string, result *Result) error {
	payload := analyzedEvent{
		ExecutionID: result.ExecutionID,
		AthleteID:   athleteID,
		Document:    result.Document,
	}
	e, err := infrapubsub.NewCloudEvent(infrapubsub.EventSourceAnalysis, infrapubsub.EventTypeActivityAnalyzed, payload)
	if err != nil {
		return fmt.Errorf("building cloud event: %w", err)
	}
	e.SetID(result.ExecutionID)

	_, err = s.pub.PublishCloudEvent(ctx, infrapubsub.TopicActivityAnalyzed, e)
	return err
}
