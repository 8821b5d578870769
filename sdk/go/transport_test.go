package analytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestTransport spins up an httptest server backed by handler and returns
// a transport pointed at it.
func newTestTransport(t *testing.T, maxRetries int, handler http.HandlerFunc) *httpTransport {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newHTTPTransport(Config{
		Endpoint:   server.URL,
		WriteKey:   "test-write-key",
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
	})
}

func sampleBatch() []Message {
	return []Message{
		{Type: "track", MessageID: "msg-1", Event: "Order Completed", UserID: "user-1"},
	}
}

func TestSendBatch_Success(t *testing.T) {
	var gotPath, gotMethod string
	transport := newTestTransport(t, 0, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	})

	messages := []Message{
		{Type: "track", Event: "Signed Up", UserID: "user-1"},
		{Type: "page", Name: "Home", UserID: "user-1"},
	}
	if err := transport.sendBatch(context.Background(), messages); err != nil {
		t.Fatalf("sendBatch() returned error: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotPath != "/v1/messages/batch" {
		t.Errorf("path = %q, want /v1/messages/batch", gotPath)
	}
}

func TestSendBatch_BodyShape(t *testing.T) {
	var gotBody []byte
	transport := newTestTransport(t, 0, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})

	if err := transport.sendBatch(context.Background(), sampleBatch()); err != nil {
		t.Fatalf("sendBatch() returned error: %v", err)
	}

	var req batchRequest
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if len(req.Batch) != 1 {
		t.Fatalf("batch length = %d, want 1", len(req.Batch))
	}
	if got := req.Batch[0]; got.Event != "Order Completed" || got.MessageID != "msg-1" {
		t.Errorf("batch[0] = {Event:%q MessageID:%q}, want {Event:%q MessageID:%q}",
			got.Event, got.MessageID, "Order Completed", "msg-1")
	}
}

func TestSendBatch_SetsHeaders(t *testing.T) {
	var contentType, writeKey string
	transport := newTestTransport(t, 0, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		writeKey = r.Header.Get("X-Write-Key")
		w.WriteHeader(http.StatusOK)
	})

	if err := transport.sendBatch(context.Background(), sampleBatch()); err != nil {
		t.Fatalf("sendBatch() returned error: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if writeKey != "test-write-key" {
		t.Errorf("X-Write-Key = %q, want test-write-key", writeKey)
	}
}

// TestSendBatch_RetrySemantics covers the three response classes: 5xx is
// retried until a success or the retry budget runs out, and 4xx fails on
// the first attempt.
func TestSendBatch_RetrySemantics(t *testing.T) {
	tests := []struct {
		name         string
		maxRetries   int
		respond      func(attempt int32) int
		wantErr      bool
		wantRequests int32
	}{
		{
			name:       "recovers after transient 500s",
			maxRetries: 5,
			respond: func(attempt int32) int {
				if attempt < 3 {
					return http.StatusInternalServerError
				}
				return http.StatusOK
			},
			wantErr:      false,
			wantRequests: 3,
		},
		{
			name:         "gives up when retries are exhausted",
			maxRetries:   2,
			respond:      func(int32) int { return http.StatusInternalServerError },
			wantErr:      true,
			wantRequests: 3, // initial attempt plus two retries
		},
		{
			name:         "does not retry a 400",
			maxRetries:   5,
			respond:      func(int32) int { return http.StatusBadRequest },
			wantErr:      true,
			wantRequests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int32
			transport := newTestTransport(t, tt.maxRetries, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.respond(requests.Add(1)))
			})

			err := transport.sendBatch(context.Background(), sampleBatch())
			if (err != nil) != tt.wantErr {
				t.Errorf("sendBatch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := requests.Load(); got != tt.wantRequests {
				t.Errorf("request count = %d, want %d", got, tt.wantRequests)
			}
		})
	}
}

func TestSendBatch_EmptyAndNilBatches(t *testing.T) {
	var requests atomic.Int32
	transport := newTestTransport(t, 0, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	if err := transport.sendBatch(context.Background(), []Message{}); err != nil {
		t.Errorf("sendBatch(empty) returned error: %v", err)
	}
	if err := transport.sendBatch(context.Background(), nil); err != nil {
		t.Errorf("sendBatch(nil) returned error: %v", err)
	}
	if got := requests.Load(); got != 0 {
		t.Errorf("request count = %d, want 0", got)
	}
}

func TestSendBatch_ContextCancellation(t *testing.T) {
	transport := newTestTransport(t, 0, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := transport.sendBatch(ctx, sampleBatch()); err == nil {
		t.Error("sendBatch() with cancelled context returned nil error")
	}
}

func TestSendBatch_Various2xxStatusCodes(t *testing.T) {
	for _, code := range []int{200, 201, 202, 204} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			transport := newTestTransport(t, 0, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			})
			if err := transport.sendBatch(context.Background(), sampleBatch()); err != nil {
				t.Errorf("sendBatch() with status %d returned error: %v", code, err)
			}
		})
	}
}

func TestExponentialBackoff(t *testing.T) {
	const maxDelay = 10 * time.Second

	// Jitter makes exact values untestable; check the bounds instead.
	for attempt := range 10 {
		delay := exponentialBackoff(attempt)
		if delay < 0 {
			t.Errorf("attempt %d: negative delay %v", attempt, delay)
		}
		if delay > maxDelay {
			t.Errorf("attempt %d: delay %v exceeds cap %v", attempt, delay, maxDelay)
		}
	}
}

func TestNewHTTPTransport(t *testing.T) {
	transport := newHTTPTransport(Config{
		Endpoint:   "http://localhost:8080",
		WriteKey:   "my-write-key",
		Timeout:    30 * time.Second,
		MaxRetries: 5,
	})

	if transport.endpoint != "http://localhost:8080" {
		t.Errorf("endpoint = %q, want http://localhost:8080", transport.endpoint)
	}
	if transport.writeKey != "my-write-key" {
		t.Errorf("writeKey = %q, want my-write-key", transport.writeKey)
	}
	if transport.maxRetries != 5 {
		t.Errorf("maxRetries = %d, want 5", transport.maxRetries)
	}
	if transport.client.Timeout != 30*time.Second {
		t.Errorf("client.Timeout = %v, want 30s", transport.client.Timeout)
	}
}
