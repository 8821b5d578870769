// Command delivery-worker consumes inbound messages from NATS, maps them to
// Google Analytics hits, and delivers them to the collection endpoint.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/segment-boneyard/integration-google-analytics/internal/dedup"
	"github.com/segment-boneyard/integration-google-analytics/internal/delivery"
	"github.com/segment-boneyard/integration-google-analytics/internal/dlq"
	"github.com/segment-boneyard/integration-google-analytics/internal/ga"
	"github.com/segment-boneyard/integration-google-analytics/internal/nats"
	"github.com/segment-boneyard/integration-google-analytics/internal/observability"
)

// Config holds all delivery worker configuration.
type Config struct {
	// LogLevel is the log level (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFormat is the log format (json, text)
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// NATS configuration
	NATS nats.Config `envPrefix:""`

	// Delivery configuration
	Delivery delivery.Config `envPrefix:""`

	// Dedup configuration
	Dedup dedup.Config `envPrefix:""`

	// DLQ configuration
	DLQ dlq.Config `envPrefix:""`
}

func main() {
	// Load configuration from environment
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting delivery worker",
		"log_level", cfg.LogLevel,
		"nats_url", cfg.NATS.URL,
		"endpoint", cfg.Delivery.Endpoint.BaseURL,
		"consumer", cfg.Delivery.Consumer.Name,
	)

	// Load destination settings and build the mapper
	settings, err := delivery.LoadSettings(cfg.Delivery.Settings)
	if err != nil {
		logger.Error("failed to load settings", "error", err)
		os.Exit(1)
	}
	mapper, err := ga.New(settings)
	if err != nil {
		logger.Error("failed to create mapper", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Setup metrics
	obs, err := observability.New("ga-delivery-worker")
	if err != nil {
		logger.Error("failed to setup observability", "error", err)
		os.Exit(1)
	}
	metrics, err := observability.NewMetrics(obs.Meter())
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	natsClient, err := nats.NewClient(ctx, cfg.NATS, logger)
	if err != nil {
		logger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()

	// Setup streams and consumers
	streamMgr := nats.NewStreamManager(natsClient.JetStream(), cfg.NATS.Stream, logger)
	stream, err := streamMgr.EnsureStream(ctx)
	if err != nil {
		logger.Error("failed to ensure stream", "error", err)
		os.Exit(1)
	}
	if err := streamMgr.EnsureConsumers(ctx, stream, nats.DefaultConsumerConfigs()); err != nil {
		logger.Error("failed to ensure consumers", "error", err)
		os.Exit(1)
	}
	if _, err := streamMgr.EnsureDLQStream(ctx); err != nil {
		logger.Error("failed to ensure DLQ stream", "error", err)
		os.Exit(1)
	}

	// Open the delivery journal
	journal, err := delivery.OpenJournal(ctx, cfg.Delivery.Journal, logger)
	if err != nil {
		logger.Error("failed to open journal", "error", err)
		os.Exit(1)
	}
	defer journal.Close()
	journal.StartCleanup(ctx, cfg.Delivery.Journal)

	// Start duplicate suppression
	dedupModule := dedup.New(cfg.Dedup, metrics, logger)
	dedupModule.Start(ctx)
	defer dedupModule.Stop()

	// Start the DLQ advisory listener
	consumerNames := make([]string, 0, 2)
	for _, c := range nats.DefaultConsumerConfigs() {
		consumerNames = append(consumerNames, c.Name)
	}
	dlqModule := dlq.New(
		natsClient.JetStream(),
		natsClient.Conn(),
		cfg.NATS.Stream.Name,
		consumerNames,
		cfg.DLQ,
		metrics,
		logger,
	)
	if err := dlqModule.Start(ctx); err != nil {
		logger.Error("failed to start DLQ listener", "error", err)
		os.Exit(1)
	}
	defer dlqModule.Stop()
	go watchDLQDepth(ctx, dlqModule, logger)

	// Create the sender and hit record publisher
	sender := delivery.NewSender(cfg.Delivery.Endpoint, logger)
	records := nats.NewPublisher(natsClient.JetStream(), cfg.NATS.Stream.Name, logger)

	// Create and start the consumer
	consumer := delivery.NewConsumer(
		natsClient.JetStream(),
		mapper,
		sender,
		journal,
		records,
		dedupModule,
		cfg.Delivery.Consumer,
		cfg.NATS.Stream.Name,
		logger,
		metrics,
	)

	if err := consumer.Start(ctx); err != nil {
		logger.Error("failed to start consumer", "error", err)
		os.Exit(1)
	}

	logger.Info("delivery worker started")

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	// Graceful shutdown
	logger.Info("initiating graceful shutdown")
	cancel()

	if err := consumer.Stop(context.Background()); err != nil {
		logger.Error("consumer stop error", "error", err)
	}

	if err := natsClient.Drain(); err != nil {
		logger.Error("NATS drain error", "error", err)
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		logger.Error("observability shutdown error", "error", err)
	}

	logger.Info("delivery worker stopped")
}

// watchDLQDepth periodically checks the DLQ stream depth and raises a log
// alert once it crosses the configured threshold.
func watchDLQDepth(ctx context.Context, m *dlq.Module, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := m.GetDLQCount(ctx)
			if err != nil {
				logger.Warn("failed to check DLQ depth", "error", err)
				continue
			}
			if count >= m.AlertThreshold() {
				logger.Error("DLQ depth above alert threshold",
					"count", count,
					"threshold", m.AlertThreshold(),
				)
			}
		}
	}
}

// setupLogger creates a logger based on configuration.
func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
