package analytics

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Defaults applied by withDefaults when the corresponding field is zero.
const (
	DefaultBatchSize     = 50
	DefaultFlushInterval = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultTimeout       = 10 * time.Second
)

// Config holds the client configuration. WriteKey and Endpoint are
// required; everything else has a sensible default.
type Config struct {
	// WriteKey authenticates the producer with the gateway.
	WriteKey string

	// Endpoint is the gateway base URL, e.g. "http://localhost:8080".
	Endpoint string

	// BatchSize caps how many messages are sent per request.
	BatchSize int

	// FlushInterval bounds how long a message waits before being sent,
	// even when the batch is not full.
	FlushInterval time.Duration

	// MaxRetries limits retry attempts on server errors.
	MaxRetries int

	// Timeout applies to each HTTP request.
	Timeout time.Duration
}

func (c *Config) validate() error {
	if c.WriteKey == "" {
		return errors.New("analytics: WriteKey is required")
	}
	if c.Endpoint == "" {
		return errors.New("analytics: Endpoint is required")
	}
	if _, err := url.Parse(c.Endpoint); err != nil {
		return errors.New("analytics: Endpoint must be a valid URL")
	}
	if c.BatchSize < 0 {
		return errors.New("analytics: BatchSize must be non-negative")
	}
	if c.FlushInterval < 0 {
		return errors.New("analytics: FlushInterval must be non-negative")
	}
	if c.MaxRetries < 0 {
		return errors.New("analytics: MaxRetries must be non-negative")
	}
	if c.Timeout < 0 {
		return errors.New("analytics: Timeout must be non-negative")
	}
	return nil
}

// withDefaults fills zero-valued optional fields and normalizes the
// endpoint. The receiver is not modified.
func (c Config) withDefaults() Config {
	cfg := c
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")

	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg
}
