package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// Server is the ingestion HTTP server. It exposes the message endpoints
// plus health and metrics, with auth, rate limiting, and body limits
// applied to the message routes.
type Server struct {
	httpServer *http.Server
	config     Config
	service    *MessageService
	logger     *slog.Logger
}

// ServerOption customizes the server at construction time.
type ServerOption func(*serverOptions)

type serverOptions struct {
	metricsHandler http.Handler
	middleware     []func(http.Handler) http.Handler
	healthCheck    func(ctx context.Context) error
}

// WithMetricsHandler mounts a metrics handler at /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(o *serverOptions) {
		o.metricsHandler = h
	}
}

// WithMiddleware wraps the message routes with additional middleware
// (outermost first).
func WithMiddleware(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(o *serverOptions) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithHealthCheck adds a dependency check to the /healthz endpoint.
func WithHealthCheck(check func(ctx context.Context) error) ServerOption {
	return func(o *serverOptions) {
		o.healthCheck = check
	}
}

// NewServer creates the ingestion server.
func NewServer(cfg Config, service *MessageService, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway-server")

	var options serverOptions
	for _, opt := range opts {
		opt(&options)
	}

	s := &Server{
		config:  cfg,
		service: service,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages", s.handleIngest)
	mux.HandleFunc("POST /v1/messages/batch", s.handleIngestBatch)
	mux.HandleFunc("GET /healthz", s.handleHealth(options.healthCheck))
	if options.metricsHandler != nil {
		mux.Handle("GET /metrics", options.metricsHandler)
	}

	var handler http.Handler = mux
	handler = PerKeyRateLimit(cfg.RateLimit)(handler)
	handler = WriteKeyAuth(cfg.Auth)(handler)
	handler = BodyLimit(cfg.MaxBodyBytes)(handler)
	for i := len(options.middleware) - 1; i >= 0; i-- {
		handler = options.middleware[i](handler)
	}

	s.httpServer = &http.Server{
		Addr:           cfg.Addr,
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	return s
}

// ListenAndServe starts serving. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("gateway listening", "addr", s.config.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var msg event.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := s.service.Ingest(r.Context(), &msg)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Batch []*event.Message `json:"batch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := s.service.IngestBatch(r.Context(), req.Batch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleHealth(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				s.logger.Warn("health check failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// writeServiceError maps service errors onto HTTP statuses: validation
// failures are the caller's fault, everything else is ours.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMessageRequired),
		errors.Is(err, ErrAtLeastOneMessage),
		errors.Is(err, ErrTypeRequired),
		errors.Is(err, ErrIdentityRequired),
		errors.Is(err, ErrEventRequired),
		errors.Is(err, ErrBatchTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("ingest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
