// Package service wraps the sliding filter with lifecycle management,
// metric instrumentation, and the empty-id passthrough rule.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/segment-boneyard/integration-google-analytics/internal/dedup/internal/domain"
	"github.com/segment-boneyard/integration-google-analytics/internal/observability"
)

// DedupService owns the sliding filter and its rotation goroutine.
type DedupService struct {
	filter  *domain.SlidingFilter
	metrics *observability.Metrics
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewDedupService creates a dedup service with the given filter
// parameters. metrics may be nil.
func NewDedupService(
	window time.Duration,
	capacity uint,
	fpRate float64,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *DedupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DedupService{
		filter:  domain.NewSlidingFilter(window, capacity, fpRate),
		metrics: metrics,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// IsDuplicate reports whether the message id was seen within the window.
// Messages without ids always pass through (empty key returns false).
// Detected duplicates bump the DedupDropped counter.
func (s *DedupService) IsDuplicate(key string) bool {
	if key == "" {
		return false
	}

	if !s.filter.Seen(key) {
		return false
	}

	if s.metrics != nil {
		s.metrics.DedupDropped.Add(context.Background(), 1)
	}
	s.logger.Debug("duplicate message dropped", "message_id", key)
	return true
}

// Start launches the rotation goroutine. The filter rotates every half
// window to keep the dedup window sliding; the goroutine exits when ctx is
// cancelled or Stop is called.
func (s *DedupService) Start(ctx context.Context) {
	interval := s.filter.Span() / 2
	s.logger.Info("dedup service started",
		"window", s.filter.Span(),
		"rotate_interval", interval,
	)

	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.filter.Rotate()
				s.logger.Debug("dedup filter rotated")
			case <-ctx.Done():
				s.logger.Info("dedup service stopping (context cancelled)")
				return
			case <-s.stopCh:
				s.logger.Info("dedup service stopping (stop requested)")
				return
			}
		}
	}()
}

// Stop signals the rotation goroutine to stop and waits for it to finish.
func (s *DedupService) Stop() {
	close(s.stopCh)
	<-s.doneCh
}
