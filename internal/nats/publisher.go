package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// Publisher handles publishing inbound messages to NATS JetStream.
type Publisher struct {
	js         jetstream.JetStream
	streamName string
	logger     *slog.Logger
}

// NewPublisher creates a new message publisher.
func NewPublisher(js jetstream.JetStream, streamName string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		js:         js,
		streamName: streamName,
		logger:     logger.With("component", "publisher"),
	}
}

// PublishMessage publishes a single message to its derived NATS subject.
func (p *Publisher) PublishMessage(ctx context.Context, msg *event.Message) error {
	subject := p.deriveSubject(msg)

	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ack, err := p.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message published",
		"message_id", msg.MessageID,
		"subject", subject,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
	)

	return nil
}

// PublishMessageBatch publishes multiple messages to NATS.
// Returns the number of successfully published messages and any error.
func (p *Publisher) PublishMessageBatch(ctx context.Context, msgs []*event.Message) (int, error) {
	published := 0

	for _, msg := range msgs {
		if err := p.PublishMessage(ctx, msg); err != nil {
			p.logger.Error("failed to publish message in batch",
				"message_id", msg.MessageID,
				"error", err,
			)
			// Continue with remaining messages
			continue
		}
		published++
	}

	if published < len(msgs) {
		return published, fmt.Errorf("%w: %d of %d failed", ErrPartialPublish, len(msgs)-published, len(msgs))
	}

	return published, nil
}

// PublishRecord publishes an already-encoded record (a delivered hit record)
// to the given subject.
func (p *Publisher) PublishRecord(ctx context.Context, subject string, data []byte) error {
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish record: %w", err)
	}
	return nil
}

// deriveSubject derives the NATS subject from the message.
// Format: messages.{type}.{sanitized event name} for track calls,
// messages.{type} for everything else.
func (p *Publisher) deriveSubject(msg *event.Message) string {
	kind := string(msg.Type)
	if kind == "" {
		kind = "unknown"
	}

	if msg.Type == event.TypeTrack && msg.Event != "" {
		return fmt.Sprintf("messages.%s.%s", kind, SanitizeSubjectName(msg.Event))
	}
	return "messages." + kind
}

// SanitizeSubjectName makes an event name safe for use as a NATS subject
// token: lowercase, with whitespace and subject-delimiter characters
// replaced by underscores.
func SanitizeSubjectName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// DeriveSubjectForTest exposes subject derivation for testing.
func (p *Publisher) DeriveSubjectForTest(msg *event.Message) string {
	return p.deriveSubject(msg)
}
