package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
	"github.com/segment-boneyard/integration-google-analytics/internal/ga"
	"github.com/segment-boneyard/integration-google-analytics/internal/observability"
)

// HitSender delivers a mapped hit batch to the collection endpoint.
type HitSender interface {
	Send(ctx context.Context, batch *ga.Batch) ([]int, error)
}

// RecordPublisher publishes delivered hit records for the archive sink.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, subject string, data []byte) error
}

// DeliveryJournal records terminal delivery outcomes.
type DeliveryJournal interface {
	RecordDelivered(ctx context.Context, entry *JournalEntry) error
	RecordFailed(ctx context.Context, entry *JournalEntry) error
}

// Deduplicator reports whether a message id was already processed.
type Deduplicator interface {
	IsDuplicate(key string) bool
}

// Consumer consumes inbound messages from NATS JetStream, maps each one to
// a hit batch, and delivers the batch to the collection endpoint.
type Consumer struct {
	js         jetstream.JetStream
	mapper     *ga.Mapper
	sender     HitSender
	journal    DeliveryJournal
	records    RecordPublisher
	dedup      Deduplicator
	config     ConsumerConfig
	logger     *slog.Logger
	metrics    *observability.Metrics
	streamName string

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewConsumer creates a new delivery consumer. The journal, record
// publisher, deduplicator, and metrics are optional; a nil value disables
// that concern.
func NewConsumer(
	js jetstream.JetStream,
	mapper *ga.Mapper,
	sender HitSender,
	journal DeliveryJournal,
	records RecordPublisher,
	dedup Deduplicator,
	cfg ConsumerConfig,
	streamName string,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		js:         js,
		mapper:     mapper,
		sender:     sender,
		journal:    journal,
		records:    records,
		dedup:      dedup,
		config:     cfg,
		logger:     logger.With("component", "delivery-consumer"),
		metrics:    metrics,
		streamName: streamName,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start starts consuming messages from NATS.
func (c *Consumer) Start(ctx context.Context) error {
	stream, err := c.js.Stream(ctx, c.streamName)
	if err != nil {
		return fmt.Errorf("failed to get stream: %w", err)
	}

	consumer, err := stream.Consumer(ctx, c.config.Name)
	if err != nil {
		return fmt.Errorf("failed to get consumer: %w", err)
	}

	c.logger.Info("starting delivery consumer",
		"consumer", c.config.Name,
		"stream", c.streamName,
		"fetch_batch_size", c.config.FetchBatchSize,
	)

	go func() {
		defer close(c.doneCh)

		fetchSize := c.config.FetchBatchSize
		if fetchSize < 1 {
			fetchSize = 100
		}
		maxWait := c.config.FetchMaxWait
		if maxWait <= 0 {
			maxWait = 5 * time.Second
		}

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("context cancelled, stopping consumer")
				return
			case <-c.stopCh:
				c.logger.Info("stop signal received, stopping consumer")
				return
			default:
				msgs, err := consumer.Fetch(fetchSize, jetstream.FetchMaxWait(maxWait))
				if err != nil {
					if !errors.Is(err, context.DeadlineExceeded) {
						c.logger.Error("failed to fetch messages", "error", err)
					}
					continue
				}

				for msg := range msgs.Messages() {
					c.processMessage(ctx, msg)
				}

				if err := msgs.Error(); err != nil {
					c.logger.Error("messages iteration error", "error", err)
				}
			}
		}
	}()

	return nil
}

// processMessage handles one NATS message end to end and settles its ack
// state. Poison messages (decode failures) are terminated so they are never
// redelivered; delivery failures are NAKed for redelivery.
func (c *Consumer) processMessage(ctx context.Context, natsMsg jetstream.Msg) {
	start := time.Now()

	msg, err := event.Decode(natsMsg.Data())
	if err != nil {
		// Poison message: terminate to prevent infinite redelivery
		c.logger.Error("poison message: decode failure, terminating",
			"error", err,
			"subject", natsMsg.Subject(),
		)
		if termErr := natsMsg.Term(); termErr != nil {
			c.logger.Error("failed to terminate poison message", "error", termErr)
		}
		return
	}

	if c.metrics != nil {
		c.metrics.NATSMessagesProcessed.Add(ctx, 1)
	}

	if c.dedup != nil && msg.MessageID != "" && c.dedup.IsDuplicate(msg.MessageID) {
		c.logger.Debug("duplicate message, skipping",
			"message_id", msg.MessageID,
		)
		if c.metrics != nil {
			c.metrics.DedupDropped.Add(ctx, 1)
		}
		c.ack(natsMsg)
		return
	}

	if err := c.deliver(ctx, msg); err != nil {
		c.logger.Error("failed to deliver message",
			"message_id", msg.MessageID,
			"type", msg.Type,
			"error", err,
		)
		if errors.Is(err, ga.ErrMissingTrackingID) || errors.Is(err, ErrClientRejected) {
			// Permanent failures: redelivery cannot succeed
			if termErr := natsMsg.Term(); termErr != nil {
				c.logger.Error("failed to terminate message", "error", termErr)
			}
			return
		}
		if nakErr := natsMsg.Nak(); nakErr != nil {
			c.logger.Error("failed to NAK message", "error", nakErr)
		}
		return
	}

	c.ack(natsMsg)
	if c.metrics != nil {
		c.metrics.NATSAckLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	}
}

// deliver maps the message, sends the resulting hits, and records the
// outcome in the journal and the hit record stream.
func (c *Consumer) deliver(ctx context.Context, msg *event.Message) error {
	start := time.Now()

	batch, err := c.mapper.Map(msg)
	if err != nil {
		if c.metrics != nil {
			c.metrics.MappingErrors.Add(ctx, 1)
		}
		return fmt.Errorf("failed to map message: %w", err)
	}

	if batch.Empty() {
		c.logger.Debug("message mapped to no hits",
			"message_id", msg.MessageID,
			"type", msg.Type,
		)
		if c.metrics != nil {
			c.metrics.MessagesNoOp.Add(ctx, 1)
		}
		return nil
	}

	if c.metrics != nil {
		c.metrics.HitsMapped.Add(ctx, int64(len(batch.Hits)))
	}

	statusCodes, err := c.sender.Send(ctx, batch)
	if err != nil {
		if c.metrics != nil {
			c.metrics.DeliveryFailures.Add(ctx, 1)
		}
		c.journalFailed(ctx, msg, len(batch.Hits), statusCodes, err)
		return err
	}

	deliveredAt := time.Now().UTC()

	if c.metrics != nil {
		c.metrics.HitsDelivered.Add(ctx, int64(len(statusCodes)))
		c.metrics.DeliveryLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	}

	c.logger.Info("delivered message",
		"message_id", msg.MessageID,
		"type", msg.Type,
		"hits", len(batch.Hits),
	)

	c.journalDelivered(ctx, msg, batch, statusCodes, deliveredAt)
	c.publishRecords(ctx, msg, batch, statusCodes, deliveredAt)

	return nil
}

// journalDelivered writes the success row. Journal failures are logged,
// never fatal: the hits already went out.
func (c *Consumer) journalDelivered(ctx context.Context, msg *event.Message, batch *ga.Batch, statusCodes []int, deliveredAt time.Time) {
	if c.journal == nil {
		return
	}

	lastCode := 0
	if len(statusCodes) > 0 {
		lastCode = statusCodes[len(statusCodes)-1]
	}

	entry := &JournalEntry{
		MessageID:   msg.MessageID,
		MessageType: string(msg.Type),
		Event:       msg.Event,
		HitCount:    len(batch.Hits),
		StatusCode:  lastCode,
		DeliveredAt: deliveredAt,
	}
	if err := c.journal.RecordDelivered(ctx, entry); err != nil {
		c.logger.Error("failed to journal delivery", "message_id", msg.MessageID, "error", err)
		return
	}
	if c.metrics != nil {
		c.metrics.JournalWrites.Add(ctx, 1)
	}
}

// journalFailed writes the failure row for a message that exhausted
// delivery attempts.
func (c *Consumer) journalFailed(ctx context.Context, msg *event.Message, hitCount int, statusCodes []int, sendErr error) {
	if c.journal == nil {
		return
	}

	lastCode := 0
	if len(statusCodes) > 0 {
		lastCode = statusCodes[len(statusCodes)-1]
	}

	entry := &JournalEntry{
		MessageID:   msg.MessageID,
		MessageType: string(msg.Type),
		Event:       msg.Event,
		HitCount:    hitCount,
		StatusCode:  lastCode,
		LastError:   sendErr.Error(),
	}
	if err := c.journal.RecordFailed(ctx, entry); err != nil {
		c.logger.Error("failed to journal failure", "message_id", msg.MessageID, "error", err)
		return
	}
	if c.metrics != nil {
		c.metrics.JournalWrites.Add(ctx, 1)
	}
}

// publishRecords emits one hit record per delivered hit for the archive
// sink. Publish failures are logged, never fatal.
func (c *Consumer) publishRecords(ctx context.Context, msg *event.Message, batch *ga.Batch, statusCodes []int, deliveredAt time.Time) {
	if c.records == nil {
		return
	}

	trackingID := ga.ResolveTrackingID(msg, c.mapper.Settings())
	subject := RecordSubject(string(msg.Type))

	for i, hit := range batch.Hits {
		code := 0
		if i < len(statusCodes) {
			code = statusCodes[i]
		}

		rec := newHitRecord(msg.MessageID, string(msg.Type), msg.Event, trackingID, batch, hit, code, deliveredAt)
		data, err := rec.Encode()
		if err != nil {
			c.logger.Error("failed to encode hit record", "message_id", msg.MessageID, "error", err)
			continue
		}

		if err := c.records.PublishRecord(ctx, subject, data); err != nil {
			c.logger.Error("failed to publish hit record",
				"message_id", msg.MessageID,
				"subject", subject,
				"error", err,
			)
		}
	}
}

func (c *Consumer) ack(msg jetstream.Msg) {
	if err := msg.Ack(); err != nil {
		c.logger.Error("failed to ACK message", "error", err)
	}
}

// Stop stops the consumer gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("stopping delivery consumer")
	close(c.stopCh)

	select {
	case <-c.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}
