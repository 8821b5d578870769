// Package delivery consumes inbound messages from NATS JetStream, maps them
// to Google Analytics hit batches, and delivers them to the collection
// endpoint. Delivered hits are journaled locally and republished as hit
// records for the archive sink.
package delivery

import (
	"time"
)

// Config holds the complete delivery worker configuration.
type Config struct {
	// Endpoint configuration for the collection API
	Endpoint EndpointConfig `envPrefix:"ENDPOINT_"`

	// Settings configuration for the destination
	Settings SettingsConfig `envPrefix:"SETTINGS_"`

	// Consumer configuration
	Consumer ConsumerConfig `envPrefix:"CONSUMER_"`

	// Journal configuration
	Journal JournalConfig `envPrefix:"JOURNAL_"`
}

// EndpointConfig holds collection endpoint settings.
type EndpointConfig struct {
	// BaseURL is the collection API base URL
	BaseURL string `env:"BASE_URL" envDefault:"https://www.google-analytics.com"`

	// RequestTimeout is the HTTP request timeout per hit
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	// MaxRetries is the maximum number of retries per hit (on 5xx and
	// network errors; 4xx responses are never retried)
	MaxRetries int `env:"MAX_RETRIES" envDefault:"3"`
}

// SettingsConfig holds the destination settings source. Exactly one of
// JSON or Path must be set.
type SettingsConfig struct {
	// JSON is the destination settings as an inline JSON document
	JSON string `env:"JSON"`

	// Path is a file containing the destination settings JSON
	Path string `env:"PATH"`
}

// ConsumerConfig holds JetStream consumer settings.
type ConsumerConfig struct {
	// Name is the durable consumer name
	Name string `env:"NAME" envDefault:"delivery-worker"`

	// FetchBatchSize is the number of messages to fetch per pull
	FetchBatchSize int `env:"FETCH_BATCH_SIZE" envDefault:"100"`

	// FetchMaxWait is the maximum time to wait for a fetch to fill
	FetchMaxWait time.Duration `env:"FETCH_MAX_WAIT" envDefault:"5s"`
}

// JournalConfig holds the local delivery journal settings.
type JournalConfig struct {
	// Path is the SQLite database file path
	Path string `env:"PATH" envDefault:"ga-deliveries.db"`

	// RetentionDuration is how long delivered records are kept
	RetentionDuration time.Duration `env:"RETENTION_DURATION" envDefault:"168h"`

	// CleanupInterval is how often old records are pruned
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
}
