// Package bootstrap wires logging, configuration, and the shared
// dependencies every analysis service needs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"

	"github.com/runcoach/analysis/pkg/domain/trainingload"
	infrapubsub "github.com/runcoach/analysis/pkg/infrastructure/pubsub"
	storage "github.com/runcoach/analysis/pkg/storage/firestore"
)

// Config holds standard configuration for all services.
type Config struct {
	ProjectID     string
	EnablePublish bool
	UseFirestore  bool

	// Training-load time constants in days; zero selects the defaults.
	TauATLDays float64
	TauCTLDays float64
}

// Service holds initialized dependencies.
type Service struct {
	LoadStore trainingload.Store
	Tracker   *trainingload.Tracker
	Pub       infrapubsub.Publisher
	Config    *Config
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		ProjectID:     os.Getenv("GOOGLE_CLOUD_PROJECT"),
		EnablePublish: os.Getenv("ENABLE_PUBLISH") == "true",
		UseFirestore:  os.Getenv("USE_FIRESTORE") == "true",
		TauATLDays:    envFloat("TAU_ATL_DAYS"),
		TauCTLDays:    envFloat("TAU_CTL_DAYS"),
	}
}

func envFloat(key string) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0
	}
	return v
}

// GetSlogHandlerOptions returns standard handler options for GCP.
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message.
type ComponentHandler struct {
	slog.Handler
	component string
}

// WithGroup implements slog.Handler
func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

// WithAttrs implements slog.Handler
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newComp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			newComp = a.Value.String()
		}
	}
	return &ComponentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: newComp,
	}
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	comp := h.component

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			comp = a.Value.String()
			return false // stop
		}
		return true
	})

	if comp != "" {
		newMsg := fmt.Sprintf("[%s] %s", comp, r.Message)
		newRecord := slog.NewRecord(r.Time, r.Level, newMsg, r.PC)
		r.Attrs(func(a slog.Attr) bool {
			newRecord.AddAttrs(a)
			return true
		})
		r = newRecord
	}

	return h.Handler.Handle(ctx, r)
}

// NewLogger creates a configured logger instance.
func NewLogger(serviceName string) *slog.Logger {
	logLevelStr := os.Getenv("LOG_LEVEL")
	var level slog.Level
	switch strings.ToLower(logLevelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := GetSlogHandlerOptions(level)
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

// NewService initializes all standard dependencies. Without Firestore
// the load store is in-memory; without publishing the publisher logs.
func NewService(ctx context.Context, logger *slog.Logger) (*Service, error) {
	cfg := LoadConfig()

	logger.Info("Initializing service", "project_id", cfg.ProjectID)

	var loadStore trainingload.Store
	if cfg.UseFirestore {
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			logger.Error("Firestore init failed", "error", err)
			return nil, fmt.Errorf("firestore init: %w", err)
		}
		loadStore = storage.NewAthleteStateStore(storage.NewClient(fsClient))
		logger.Info("Load store: Firestore")
	} else {
		loadStore = trainingload.NewMemoryStore()
		logger.Info("Load store: in-memory")
	}

	var pubAdapter infrapubsub.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			logger.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient}
		logger.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{Logger: logger}
		logger.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	return &Service{
		LoadStore: loadStore,
		Tracker:   trainingload.NewTrackerWithTau(loadStore, cfg.TauATLDays, cfg.TauCTLDays),
		Pub:       pubAdapter,
		Config:    cfg,
	}, nil
}
