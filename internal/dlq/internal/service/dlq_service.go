// Package service implements the dead-letter capture service. It watches
// the JetStream MaxDeliver advisories for the connector's consumers and
// moves messages that could not be delivered to Google Analytics (or
// archived) onto the DLQ stream, where they wait for inspection and replay.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/segment-boneyard/integration-google-analytics/internal/observability"
)

// advisorySubject is the server-side advisory for a consumer that gave up
// on a message: $JS.EVENT.ADVISORY.CONSUMER.MAX_DELIVERIES.<stream>.<consumer>
func advisorySubject(streamName, consumerName string) string {
	return fmt.Sprintf("$JS.EVENT.ADVISORY.CONSUMER.MAX_DELIVERIES.%s.%s", streamName, consumerName)
}

// maxDeliverAdvisory is the JSON body of a MaxDeliver advisory event.
type maxDeliverAdvisory struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Stream     string `json:"stream"`
	Consumer   string `json:"consumer"`
	StreamSeq  uint64 `json:"stream_seq"`
	Deliveries uint64 `json:"deliveries"`
}

// DLQService captures undeliverable messages onto the DLQ stream.
type DLQService struct {
	js            jetstream.JetStream
	nc            *nats.Conn
	metrics       *observability.Metrics
	logger        *slog.Logger
	streamName    string
	consumerNames []string
	subs          []*nats.Subscription
}

// NewDLQService creates the capture service. The raw NATS connection is
// needed because advisories arrive over core NATS, not JetStream. metrics
// may be nil.
func NewDLQService(
	js jetstream.JetStream,
	nc *nats.Conn,
	streamName string,
	consumerNames []string,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *DLQService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DLQService{
		js:            js,
		nc:            nc,
		metrics:       metrics,
		logger:        logger.With("component", "dlq-service"),
		streamName:    streamName,
		consumerNames: consumerNames,
	}
}

// Start subscribes to the MaxDeliver advisory subject of every monitored
// consumer. Capture runs on the NATS callback goroutine until Stop.
func (s *DLQService) Start(ctx context.Context) error {
	for _, consumerName := range s.consumerNames {
		subject := advisorySubject(s.streamName, consumerName)

		sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
			s.onAdvisory(ctx, msg.Data)
		})
		if err != nil {
			s.Stop()
			return fmt.Errorf("failed to subscribe to advisory %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)

		s.logger.Info("watching consumer for exhausted deliveries",
			"subject", subject,
			"consumer", consumerName,
		)
	}

	s.logger.Info("DLQ capture started",
		"stream", s.streamName,
		"consumers", s.consumerNames,
	)

	return nil
}

// onAdvisory parses one advisory and moves the referenced message to the
// DLQ stream. Failures are logged, never retried: the advisory is gone
// once consumed, and a capture miss only means the message ages out of the
// main stream instead.
func (s *DLQService) onAdvisory(ctx context.Context, data []byte) {
	var advisory maxDeliverAdvisory
	if err := json.Unmarshal(data, &advisory); err != nil {
		s.logger.Error("failed to parse MaxDeliver advisory",
			"error", err,
			"data", string(data),
		)
		return
	}

	s.logger.Warn("message exhausted its deliveries",
		"stream", advisory.Stream,
		"consumer", advisory.Consumer,
		"stream_seq", advisory.StreamSeq,
		"deliveries", advisory.Deliveries,
	)

	raw, err := s.fetchOriginal(ctx, advisory.StreamSeq)
	if err != nil {
		s.logger.Error("failed to fetch undeliverable message",
			"stream", s.streamName,
			"stream_seq", advisory.StreamSeq,
			"error", err,
		)
		return
	}

	if err := s.republish(ctx, raw, advisory); err != nil {
		s.logger.Error("failed to move message to DLQ",
			"stream_seq", advisory.StreamSeq,
			"error", err,
		)
		return
	}

	if s.metrics != nil {
		s.metrics.DLQDepth.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("consumer", advisory.Consumer),
				attribute.String("original_subject", raw.Subject),
			),
		)
	}

	s.logger.Warn("message moved to DLQ",
		"original_subject", raw.Subject,
		"stream_seq", advisory.StreamSeq,
		"consumer", advisory.Consumer,
		"deliveries", advisory.Deliveries,
	)
}

// fetchOriginal reads the referenced message back out of the main stream
// by sequence number.
func (s *DLQService) fetchOriginal(ctx context.Context, seq uint64) (*jetstream.RawStreamMsg, error) {
	stream, err := s.js.Stream(ctx, s.streamName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}
	return stream.GetMsg(ctx, seq)
}

// republish copies the message onto the DLQ stream under "dlq.<original
// subject>", with provenance headers so a replay tool can route it back.
func (s *DLQService) republish(ctx context.Context, raw *jetstream.RawStreamMsg, advisory maxDeliverAdvisory) error {
	headers := nats.Header{}
	for k, v := range raw.Header {
		headers[k] = v
	}
	headers.Set("X-DLQ-Original-Subject", raw.Subject)
	headers.Set("X-DLQ-Original-Stream", advisory.Stream)
	headers.Set("X-DLQ-Original-Consumer", advisory.Consumer)
	headers.Set("X-DLQ-Original-Sequence", strconv.FormatUint(advisory.StreamSeq, 10))
	headers.Set("X-DLQ-Deliveries", strconv.FormatUint(advisory.Deliveries, 10))

	_, err := s.js.PublishMsg(ctx, &nats.Msg{
		Subject: "dlq." + raw.Subject,
		Data:    raw.Data,
		Header:  headers,
	})
	return err
}

// Stop unsubscribes from all advisory subscriptions.
func (s *DLQService) Stop() {
	for _, sub := range s.subs {
		if sub.IsValid() {
			if err := sub.Unsubscribe(); err != nil {
				s.logger.Error("failed to unsubscribe from advisory",
					"subject", sub.Subject,
					"error", err,
				)
			}
		}
	}
	s.subs = nil
	s.logger.Info("DLQ capture stopped")
}

// GetDLQCount returns the number of messages currently held on the DLQ
// stream.
func (s *DLQService) GetDLQCount(ctx context.Context, dlqStreamName string) (int64, error) {
	stream, err := s.js.Stream(ctx, dlqStreamName)
	if err != nil {
		return 0, fmt.Errorf("failed to get DLQ stream: %w", err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get DLQ stream info: %w", err)
	}

	return int64(info.State.Msgs), nil
}
