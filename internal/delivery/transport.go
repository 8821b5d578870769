package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/segment-boneyard/integration-google-analytics/internal/ga"
)

// Sender delivers hit batches to the collection endpoint over HTTP.
// Hits are sent strictly in order; the first failure aborts the remainder
// of the batch so retries never reorder a transaction against its items.
type Sender struct {
	client     *http.Client
	baseURL    string
	maxRetries int
	logger     *slog.Logger
}

// NewSender creates a sender for the configured collection endpoint.
func NewSender(cfg EndpointConfig, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}

	return &Sender{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		logger:     logger.With("component", "delivery-sender"),
	}
}

// Send delivers every hit of the batch in order. It returns the HTTP
// status codes of the hits that were delivered; on error the slice covers
// only the hits that made it out before the failure.
func (s *Sender) Send(ctx context.Context, batch *ga.Batch) ([]int, error) {
	if batch.Empty() {
		return nil, nil
	}

	statusCodes := make([]int, 0, len(batch.Hits))
	for i, hit := range batch.Hits {
		code, err := s.sendHit(ctx, batch, hit)
		if err != nil {
			return statusCodes, fmt.Errorf("hit %d of %d: %w", i+1, len(batch.Hits), err)
		}
		statusCodes = append(statusCodes, code)
	}

	return statusCodes, nil
}

// sendHit delivers a single hit, retrying on server errors and network
// failures with exponential backoff and jitter.
func (s *Sender) sendHit(ctx context.Context, batch *ga.Batch, hit ga.Payload) (int, error) {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := exponentialBackoff(attempt)
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := s.buildRequest(ctx, batch, hit)
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		// Read and discard body to enable connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp.StatusCode, nil
		}

		// Client error (4xx): don't retry, return immediately
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return resp.StatusCode, fmt.Errorf("%w: status %d", ErrClientRejected, resp.StatusCode)
		}

		// Server error (5xx): retry
		lastErr = fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	return 0, lastErr
}

// buildRequest encodes one hit according to the batch's wire format: a
// form-encoded POST for the universal protocol, a querystring GET for the
// classic beacon.
func (s *Sender) buildRequest(ctx context.Context, batch *ga.Batch, hit ga.Payload) (*http.Request, error) {
	encoded := hit.Values().Encode()

	var req *http.Request
	var err error

	switch batch.Encoding {
	case ga.QueryEncoding:
		url := s.baseURL + batch.Path + "?" + encoded
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	default:
		url := s.baseURL + batch.Path
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}

	if batch.UserAgent != "" {
		req.Header.Set("User-Agent", batch.UserAgent)
	}

	return req, nil
}

// exponentialBackoff calculates the backoff duration for a given attempt.
// Uses exponential backoff with full jitter.
// Base delay is 100ms, max delay is 10s.
func exponentialBackoff(attempt int) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 10 * time.Second
	)

	delay := float64(baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	// Full jitter: random value between 0 and delay
	jitter := rand.Float64() * delay

	return time.Duration(jitter)
}
