// run-analyze decodes a FIT file, runs the full analysis pipeline on
// it, and prints the resulting block document (and, when a critical
// power is supplied, the updated training-load snapshot) as YAML.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runcoach/analysis/pkg/analysis"
	"github.com/runcoach/analysis/pkg/bootstrap"
	"github.com/runcoach/analysis/pkg/domain/activity"
	"github.com/runcoach/analysis/pkg/domain/fit_decoder"
	"github.com/runcoach/analysis/pkg/domain/trainingload"
	infrapubsub "github.com/runcoach/analysis/pkg/infrastructure/pubsub"
	"github.com/runcoach/analysis/pkg/infrastructure/sentry"
)

func main() {
	var (
		athleteID     = flag.String("athlete", "local", "athlete identifier")
		criticalPower = flag.Float64("cp", 0, "critical power in watts; enables stress scoring")
		signal        = flag.String("signal", "", "force primary signal: power, pace or heart_rate")
		workThresh    = flag.Float64("work", 0, "work threshold override")
		restThresh    = flag.Float64("rest", 0, "rest threshold override")
		tauATL        = flag.Float64("tau-atl", 0, "acute load time constant in days (default 7)")
		tauCTL        = flag.Float64("tau-ctl", 0, "chronic load time constant in days (default 42)")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <activity.fit>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := bootstrap.NewLogger("run-analyze")

	if err := sentry.Init(sentry.Config{
		DSN:         os.Getenv("SENTRY_DSN"),
		Environment: os.Getenv("ENVIRONMENT"),
	}, logger); err != nil {
		logger.Error("Sentry init failed", "error", err)
	}

	opts := runOptions{
		athleteID:     *athleteID,
		criticalPower: *criticalPower,
		signal:        *signal,
		workThresh:    *workThresh,
		restThresh:    *restThresh,
		tauATL:        *tauATL,
		tauCTL:        *tauCTL,
	}
	if err := run(logger, flag.Arg(0), opts); err != nil {
		logger.Error("Analysis failed", "error", err)
		sentry.CaptureException(err, map[string]interface{}{"file": flag.Arg(0)}, logger)
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

type runOptions struct {
	athleteID     string
	criticalPower float64
	signal        string
	workThresh    float64
	restThresh    float64
	tauATL        float64
	tauCTL        float64
}

func run(logger *slog.Logger, path string, opts runOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	decoded, err := fit_decoder.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	store := trainingload.NewMemoryStore()
	tracker := trainingload.NewTrackerWithTau(store, opts.tauATL, opts.tauCTL)
	pub := &infrapubsub.LogPublisher{Logger: logger}

	cfg := analysis.DefaultConfig()
	cfg.PrimarySignal = activity.Metric(opts.signal)
	cfg.WorkThreshold = opts.workThresh
	cfg.RestThreshold = opts.restThresh

	svc := analysis.NewService(cfg, tracker, pub, logger)

	req := analysis.Request{
		AthleteID:   opts.athleteID,
		Raw:         decoded.Raw,
		HRZones:     decoded.HRZones,
		Targets:     decoded.Targets,
		CompletedAt: decoded.CompletedAt,
	}
	if opts.criticalPower > 0 {
		cp := opts.criticalPower
		req.CriticalPower = &cp
	}

	ctx := context.Background()
	result, err := svc.ProcessActivity(ctx, req)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(result.Document)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	fmt.Print(string(out))

	if result.Load != nil {
		snap, err := tracker.Snapshot(ctx, opts.athleteID, result.Load.LastUpdate)
		if err != nil {
			return fmt.Errorf("reading load snapshot: %w", err)
		}
		snapOut, err := yaml.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshaling snapshot: %w", err)
		}
		fmt.Println("---")
		fmt.Print(string(snapOut))
	}
	return nil
}
