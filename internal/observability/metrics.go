package observability

import (
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments used across the connector services.
// Instruments are created once at startup and shared with middleware,
// handlers, and service components.
type Metrics struct {
	// HTTP metrics
	HTTPRequestDuration otelmetric.Float64Histogram
	HTTPRequestTotal    otelmetric.Int64Counter
	HTTPRequestErrors   otelmetric.Int64Counter

	// NATS metrics
	NATSMessagesProcessed otelmetric.Int64Counter
	NATSBatchSize         otelmetric.Int64Histogram
	NATSAckLatency        otelmetric.Float64Histogram

	// Mapping metrics
	HitsMapped    otelmetric.Int64Counter
	MessagesNoOp  otelmetric.Int64Counter
	MappingErrors otelmetric.Int64Counter

	// Delivery metrics
	HitsDelivered    otelmetric.Int64Counter
	DeliveryFailures otelmetric.Int64Counter
	DeliveryLatency  otelmetric.Float64Histogram

	// Journal metrics
	JournalWrites otelmetric.Int64Counter

	// S3 / archive metrics
	S3FilesWritten otelmetric.Int64Counter
	S3FileSize     otelmetric.Int64Histogram

	// Deduplication metrics
	DedupDropped otelmetric.Int64Counter

	// Dead-letter queue metrics
	DLQDepth otelmetric.Int64UpDownCounter
}

// NewMetrics creates all metric instruments from the given Meter.
// Each instrument is created with a descriptive name, unit, and description
// following OpenTelemetry semantic conventions.
func NewMetrics(meter otelmetric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.request.duration",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestTotal, err = meter.Int64Counter(
		"http.request.total",
		otelmetric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestErrors, err = meter.Int64Counter(
		"http.request.errors",
		otelmetric.WithDescription("HTTP request errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, err
	}

	// NATS metrics
	m.NATSMessagesProcessed, err = meter.Int64Counter(
		"nats.messages.processed",
		otelmetric.WithDescription("NATS messages processed"),
	)
	if err != nil {
		return nil, err
	}

	m.NATSBatchSize, err = meter.Int64Histogram(
		"nats.batch.size",
		otelmetric.WithDescription("NATS batch sizes"),
	)
	if err != nil {
		return nil, err
	}

	m.NATSAckLatency, err = meter.Float64Histogram(
		"nats.ack.latency",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("NATS ACK latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	// Mapping metrics
	m.HitsMapped, err = meter.Int64Counter(
		"hits.mapped",
		otelmetric.WithDescription("Protocol hits produced by the mapper"),
	)
	if err != nil {
		return nil, err
	}

	m.MessagesNoOp, err = meter.Int64Counter(
		"messages.noop",
		otelmetric.WithDescription("Messages that mapped to no hits (unsupported method)"),
	)
	if err != nil {
		return nil, err
	}

	m.MappingErrors, err = meter.Int64Counter(
		"mapping.errors",
		otelmetric.WithDescription("Messages that failed to map"),
	)
	if err != nil {
		return nil, err
	}

	// Delivery metrics
	m.HitsDelivered, err = meter.Int64Counter(
		"hits.delivered",
		otelmetric.WithDescription("Hits accepted by the collection endpoint"),
	)
	if err != nil {
		return nil, err
	}

	m.DeliveryFailures, err = meter.Int64Counter(
		"delivery.failures",
		otelmetric.WithDescription("Messages that exhausted delivery attempts"),
	)
	if err != nil {
		return nil, err
	}

	m.DeliveryLatency, err = meter.Float64Histogram(
		"delivery.latency",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("End-to-end batch delivery latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	// Journal metrics
	m.JournalWrites, err = meter.Int64Counter(
		"journal.writes",
		otelmetric.WithDescription("Delivery journal rows written"),
	)
	if err != nil {
		return nil, err
	}

	// S3 / archive metrics
	m.S3FilesWritten, err = meter.Int64Counter(
		"s3.files.written",
		otelmetric.WithDescription("S3 files written"),
	)
	if err != nil {
		return nil, err
	}

	m.S3FileSize, err = meter.Int64Histogram(
		"s3.file.size",
		otelmetric.WithUnit("By"),
		otelmetric.WithDescription("S3 file sizes in bytes"),
	)
	if err != nil {
		return nil, err
	}

	// Deduplication metrics
	m.DedupDropped, err = meter.Int64Counter(
		"dedup.dropped",
		otelmetric.WithDescription("Duplicate messages dropped"),
	)
	if err != nil {
		return nil, err
	}

	// Dead-letter queue metrics
	m.DLQDepth, err = meter.Int64UpDownCounter(
		"dlq.depth",
		otelmetric.WithDescription("Dead-letter queue message depth"),
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
