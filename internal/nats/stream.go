package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamManager provisions the connector's JetStream streams: the main
// stream carrying inbound messages and delivered hit records, and the
// dead-letter stream capturing messages that exhausted their retries.
type StreamManager struct {
	js     jetstream.JetStream
	config StreamConfig
	logger *slog.Logger
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(js jetstream.JetStream, cfg StreamConfig, logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		js:     js,
		config: cfg,
		logger: logger.With("component", "stream-manager"),
	}
}

// EnsureStream creates the main message stream, or updates it in place if
// it already exists with different settings.
func (m *StreamManager) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	storage := jetstream.FileStorage
	if strings.ToLower(m.config.Storage) == "memory" {
		storage = jetstream.MemoryStorage
	}

	stream, err := m.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        m.config.Name,
		Subjects:    m.config.Subjects,
		Storage:     storage,
		MaxAge:      m.config.MaxAge,
		MaxBytes:    m.config.MaxBytes,
		Replicas:    m.config.Replicas,
		Retention:   jetstream.LimitsPolicy,
		Discard:     jetstream.DiscardOld,
		AllowDirect: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream %s: %w", m.config.Name, err)
	}

	m.logger.Info("stream ready",
		"name", m.config.Name,
		"subjects", m.config.Subjects,
		"storage", m.config.Storage,
		"max_age", m.config.MaxAge,
		"max_bytes", m.config.MaxBytes,
	)

	return stream, nil
}

// EnsureConsumers provisions the durable consumers on the stream. Every
// service runs it at startup; whichever starts first wins and the others'
// calls are idempotent updates.
func (m *StreamManager) EnsureConsumers(ctx context.Context, stream jetstream.Stream, configs []ConsumerConfig) error {
	for _, cfg := range configs {
		_, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
			Durable:       cfg.Name,
			FilterSubject: cfg.FilterSubject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       cfg.AckWait,
			MaxAckPending: cfg.MaxAckPending,
			MaxDeliver:    cfg.MaxDeliver,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to ensure consumer %s: %w", cfg.Name, err)
		}
		m.logger.Info("consumer ready",
			"name", cfg.Name,
			"filter", cfg.FilterSubject,
			"max_deliver", cfg.MaxDeliver,
		)
	}
	return nil
}

// EnsureDLQStream creates or updates the dead-letter stream. The DLQ module
// republishes messages to "dlq.>" subjects after they exceed MaxDeliver on
// the main stream; the DLQ stream retains them for inspection and replay.
func (m *StreamManager) EnsureDLQStream(ctx context.Context) (jetstream.Stream, error) {
	stream, err := m.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        m.config.DLQStreamName,
		Subjects:    []string{"dlq.>"},
		Storage:     jetstream.FileStorage,
		MaxAge:      m.config.DLQMaxAge,
		Retention:   jetstream.LimitsPolicy,
		Discard:     jetstream.DiscardOld,
		AllowDirect: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ stream %s: %w", m.config.DLQStreamName, err)
	}

	m.logger.Info("DLQ stream ready",
		"name", m.config.DLQStreamName,
		"max_age", m.config.DLQMaxAge,
	)

	return stream, nil
}
