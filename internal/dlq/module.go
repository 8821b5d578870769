// Package dlq captures messages that exhausted their delivery attempts.
//
// When the delivery worker or archive sink fails to acknowledge a message
// MaxDeliver times, the NATS server emits an advisory. This module listens
// for those advisories, fetches the original message from the main stream,
// and republishes it to a dedicated DLQ stream where it is retained for
// investigation and replay.
package dlq

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/segment-boneyard/integration-google-analytics/internal/dlq/internal/service"
	"github.com/segment-boneyard/integration-google-analytics/internal/observability"
)

// Config holds configuration for the DLQ module.
type Config struct {
	// AlertThreshold is the number of DLQ messages at which an alert should be raised
	AlertThreshold int64 `env:"DLQ_ALERT_THRESHOLD" envDefault:"100"`

	// DLQStreamName is the name of the DLQ stream to query for counts
	DLQStreamName string `env:"NATS_STREAM_DLQ_STREAM_NAME" envDefault:"GA_CONNECTOR_DLQ"`
}

// Module is the dead-letter queue facade.
type Module struct {
	service       *service.DLQService
	config        Config
	dlqStreamName string
}

// New creates the DLQ module. The raw connection carries the advisory
// subscriptions (core NATS); the JetStream context fetches originals and
// publishes to the DLQ stream. consumerNames lists the durable consumers
// to monitor. metrics may be nil.
func New(
	js jetstream.JetStream,
	nc *nats.Conn,
	streamName string,
	consumerNames []string,
	cfg Config,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Module {
	if logger == nil {
		logger = slog.Default()
	}

	return &Module{
		service:       service.NewDLQService(js, nc, streamName, consumerNames, metrics, logger),
		config:        cfg,
		dlqStreamName: cfg.DLQStreamName,
	}
}

// Start begins listening for MaxDeliver advisory events.
func (m *Module) Start(ctx context.Context) error {
	return m.service.Start(ctx)
}

// Stop unsubscribes from all advisory subscriptions and shuts down the service.
func (m *Module) Stop() {
	m.service.Stop()
}

// GetDLQCount returns the number of messages currently in the DLQ stream.
func (m *Module) GetDLQCount(ctx context.Context) (int64, error) {
	return m.service.GetDLQCount(ctx, m.dlqStreamName)
}

// AlertThreshold returns the configured alert threshold.
func (m *Module) AlertThreshold() int64 {
	return m.config.AlertThreshold
}
