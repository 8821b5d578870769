// Package gateway provides the HTTP gateway for message ingestion.
package gateway

import (
	"time"
)

// Config holds HTTP gateway configuration.
type Config struct {
	// Addr is the address to listen on (e.g., ":8080")
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// MaxHeaderBytes is the maximum size of request headers
	MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" envDefault:"1048576"` // 1MB

	// MaxBodyBytes is the maximum size of a request body
	MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" envDefault:"524288"` // 512KB

	// MaxBatchSize is the maximum number of messages per batch request
	MaxBatchSize int `env:"HTTP_MAX_BATCH_SIZE" envDefault:"100"`

	// Auth configuration
	Auth AuthConfig `envPrefix:"AUTH_"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`

	// ShutdownTimeout for graceful shutdown
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// AuthConfig holds write-key authentication configuration. Producers send
// their write key in the X-Write-Key header (or HTTP basic auth username,
// matching how analytics SDKs usually authenticate).
type AuthConfig struct {
	// Enabled indicates whether write-key authentication is enforced
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// WriteKeys is the list of accepted write keys
	WriteKeys []string `env:"WRITE_KEYS" envDefault:""`
}

// RateLimitConfig holds per-write-key rate limiting configuration.
type RateLimitConfig struct {
	// Enabled indicates whether rate limiting is enabled
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// PerKeyRPS is the number of requests allowed per second per write key
	PerKeyRPS float64 `env:"PER_KEY_RPS" envDefault:"1000"`

	// PerKeyBurst is the maximum burst size per write key
	PerKeyBurst int `env:"PER_KEY_BURST" envDefault:"2000"`
}
