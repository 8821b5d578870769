package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// Publisher publishes accepted messages to the transport stream.
type Publisher interface {
	PublishMessage(ctx context.Context, msg *event.Message) error
}

// Deduplicator checks whether a message id has already been seen.
type Deduplicator interface {
	IsDuplicate(key string) bool
}

// IngestResponse is the acknowledgment returned for a single message.
type IngestResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// MessageResult is the per-message outcome of a batch ingest.
type MessageResult struct {
	Index     int    `json:"index"`
	MessageID string `json:"messageId,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// BatchResponse is the acknowledgment returned for a batch ingest.
type BatchResponse struct {
	AcceptedCount int             `json:"acceptedCount"`
	RejectedCount int             `json:"rejectedCount"`
	Results       []MessageResult `json:"results"`
}

// Message statuses.
const (
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusDuplicate = "duplicate"
)

// MessageService implements the message ingestion business logic used by
// the HTTP handlers.
type MessageService struct {
	publisher    Publisher
	dedup        Deduplicator
	maxBatchSize int
	logger       *slog.Logger
}

// NewMessageService creates a new message service. dedup may be nil to
// disable duplicate suppression at the gateway.
func NewMessageService(publisher Publisher, dedup Deduplicator, maxBatchSize int, logger *slog.Logger) *MessageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageService{
		publisher:    publisher,
		dedup:        dedup,
		maxBatchSize: maxBatchSize,
		logger:       logger.With("component", "message-service"),
	}
}

// Ingest handles single message ingestion.
func (s *MessageService) Ingest(ctx context.Context, msg *event.Message) (*IngestResponse, error) {
	if msg == nil {
		return nil, ErrMessageRequired
	}
	if err := validate(msg); err != nil {
		return nil, err
	}

	s.enrich(msg)

	if s.dedup != nil && s.dedup.IsDuplicate(msg.MessageID) {
		s.logger.Debug("duplicate message dropped", "message_id", msg.MessageID)
		return &IngestResponse{MessageID: msg.MessageID, Status: StatusDuplicate}, nil
	}

	if err := s.publisher.PublishMessage(ctx, msg); err != nil {
		s.logger.Error("failed to publish message",
			"message_id", msg.MessageID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to publish message: %w", err)
	}

	s.logger.Debug("message ingested",
		"message_id", msg.MessageID,
		"type", msg.Type,
	)

	return &IngestResponse{MessageID: msg.MessageID, Status: StatusAccepted}, nil
}

// IngestBatch handles batch message ingestion. Individual failures reject
// only the failing message; the rest of the batch proceeds.
func (s *MessageService) IngestBatch(ctx context.Context, msgs []*event.Message) (*BatchResponse, error) {
	if len(msgs) == 0 {
		return nil, ErrAtLeastOneMessage
	}
	if s.maxBatchSize > 0 && len(msgs) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(msgs), s.maxBatchSize)
	}

	results := make([]MessageResult, len(msgs))
	accepted := 0
	rejected := 0

	for i, msg := range msgs {
		result := MessageResult{Index: i}

		if msg == nil {
			result.Status = StatusRejected
			result.Error = ErrMessageRequired.Error()
			rejected++
			results[i] = result
			continue
		}
		if err := validate(msg); err != nil {
			result.Status = StatusRejected
			result.Error = err.Error()
			rejected++
			results[i] = result
			continue
		}

		s.enrich(msg)
		result.MessageID = msg.MessageID

		if s.dedup != nil && s.dedup.IsDuplicate(msg.MessageID) {
			result.Status = StatusDuplicate
			results[i] = result
			continue
		}

		if err := s.publisher.PublishMessage(ctx, msg); err != nil {
			result.Status = StatusRejected
			result.Error = err.Error()
			rejected++
			s.logger.Warn("failed to publish message in batch",
				"index", i,
				"message_id", msg.MessageID,
				"error", err,
			)
		} else {
			result.Status = StatusAccepted
			accepted++
		}

		results[i] = result
	}

	s.logger.Info("batch ingestion complete",
		"total", len(msgs),
		"accepted", accepted,
		"rejected", rejected,
	)

	return &BatchResponse{
		AcceptedCount: accepted,
		RejectedCount: rejected,
		Results:       results,
	}, nil
}

// validate checks the minimal contract every message must satisfy before
// it enters the stream.
func validate(msg *event.Message) error {
	switch msg.Type {
	case event.TypeIdentify, event.TypeTrack, event.TypePage, event.TypeScreen, event.TypeGroup, event.TypeAlias:
	default:
		return ErrTypeRequired
	}
	if msg.UserID == "" && msg.AnonymousID == "" {
		return ErrIdentityRequired
	}
	if msg.Type == event.TypeTrack && msg.Event == "" {
		return ErrEventRequired
	}
	return nil
}

// enrich adds server-generated values to the message.
func (s *MessageService) enrich(msg *event.Message) {
	// UUID v7 keeps message ids time-sortable for the journal.
	if msg.MessageID == "" {
		msg.MessageID = uuid.Must(uuid.NewV7()).String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
}
