package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

const batchPath = "/v1/messages/batch"

// httpTransport ships message batches to the gateway over HTTP.
type httpTransport struct {
	client     *http.Client
	endpoint   string
	writeKey   string
	maxRetries int
}

func newHTTPTransport(cfg Config) *httpTransport {
	return &httpTransport{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint:   cfg.Endpoint,
		writeKey:   cfg.WriteKey,
		maxRetries: cfg.MaxRetries,
	}
}

// sendBatch posts messages to the gateway's batch endpoint. Server errors
// (5xx) and transport failures are retried up to maxRetries times with
// jittered exponential backoff; client errors (4xx) fail immediately since
// resending the same payload cannot succeed.
func (t *httpTransport) sendBatch(ctx context.Context, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	body, err := json.Marshal(batchRequest{Batch: messages})
	if err != nil {
		return fmt.Errorf("analytics: failed to marshal messages: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt)):
			}
		}

		retryable, err := t.post(ctx, body)
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// post performs a single attempt. The bool result reports whether the
// failure is worth retrying.
func (t *httpTransport) post(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+batchPath, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("analytics: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Write-Key", t.writeKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("analytics: request failed: %w", err)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return false, fmt.Errorf("analytics: client error: status %d", resp.StatusCode)
	default:
		return true, fmt.Errorf("analytics: server error: status %d", resp.StatusCode)
	}
}

// exponentialBackoff returns the wait before the given retry attempt:
// 100ms doubled per attempt, capped at 10s, with full jitter applied.
func exponentialBackoff(attempt int) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 10 * time.Second
	)

	delay := math.Min(float64(baseDelay)*math.Pow(2, float64(attempt)), float64(maxDelay))
	return time.Duration(rand.Float64() * delay)
}
