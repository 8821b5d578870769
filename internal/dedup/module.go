// Package dedup drops repeat deliveries of the same message id. Ingest and
// delivery both run at-least-once, so a message can arrive more than once;
// the module answers "have I seen this id recently" using a pair of rotating
// bloom filters rather than exact storage, trading a small false positive
// rate for bounded memory.
package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/segment-boneyard/integration-google-analytics/internal/dedup/internal/service"
	"github.com/segment-boneyard/integration-google-analytics/internal/observability"
)

// Config holds the dedup module configuration. Capacity is the expected
// number of distinct message ids per window; FPRate is the bloom filter
// false positive rate at that capacity.
type Config struct {
	Window   time.Duration `env:"DEDUP_WINDOW"   envDefault:"10m"`
	Capacity uint          `env:"DEDUP_CAPACITY" envDefault:"1000000"`
	FPRate   float64       `env:"DEDUP_FP_RATE"  envDefault:"0.0001"`
}

// DefaultConfig mirrors the env defaults: a 10 minute window sized for one
// million message ids at a 0.01% false positive rate.
func DefaultConfig() Config {
	return Config{
		Window:   10 * time.Minute,
		Capacity: 1_000_000,
		FPRate:   0.0001,
	}
}

// Module is the public face of the dedup package.
type Module struct {
	svc *service.DedupService
}

// New builds a Module. Pass nil metrics to skip drop counting; a nil logger
// falls back to slog.Default.
func New(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{
		svc: service.NewDedupService(cfg.Window, cfg.Capacity, cfg.FPRate, metrics, logger.With("module", "dedup")),
	}
}

// Start launches the filter rotation loop. It runs until ctx is cancelled.
func (m *Module) Start(ctx context.Context) {
	m.svc.Start(ctx)
}

// Stop waits for the rotation loop to exit.
func (m *Module) Stop() {
	m.svc.Stop()
}

// IsDuplicate reports whether key was seen within the window and records it
// if not. Empty keys are never duplicates; messages without an id are
// always let through.
func (m *Module) IsDuplicate(key string) bool {
	return m.svc.IsDuplicate(key)
}
