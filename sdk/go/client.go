package analytics

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Client is the main SDK client for sending messages to the gateway.
type Client struct {
	config    Config
	batcher   *batcher
	library   Library
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
	closeOnce sync.Once
}

// New creates a new analytics client with the given configuration.
// The client starts a background goroutine for periodic flushing.
// Call Close() when done to flush remaining messages and stop the goroutine.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()

	transport := newHTTPTransport(cfg)
	batcher := newBatcher(cfg.BatchSize, transport)

	// Create cancellation context for flush loop
	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan struct{})

	// Start background flush loop
	go batcher.flushLoop(ctx, cfg.FlushInterval, doneCh)

	return &Client{
		config:   cfg,
		batcher:  batcher,
		library:  sdkLibrary(),
		cancelFn: cancel,
		doneCh:   doneCh,
	}, nil
}

// Enqueue queues a message for asynchronous batch sending.
// It sets the message id, timestamp, and library context automatically.
// This method is non-blocking and safe for concurrent use.
func (c *Client) Enqueue(msg Message) {
	// Generate unique message id for deduplication
	msg.MessageID = uuid.New().String()

	// Set timestamp if not provided
	if msg.Timestamp == "" {
		msg.Timestamp = now()
	}

	// Stamp the producing library
	if msg.Context == nil {
		msg.Context = &Context{}
	}
	msg.Context.Library = c.library

	if c.batcher.add(msg) {
		// Batch is full, trigger async flush
		go func() {
			_ = c.batcher.flush(context.Background())
		}()
	}
}

// Track queues a track message for the given user and event.
func (c *Client) Track(userID, event string, properties map[string]any) {
	c.Enqueue(Message{
		Type:       "track",
		UserID:     userID,
		Event:      event,
		Properties: properties,
	})
}

// Page queues a page message for the given user.
func (c *Client) Page(userID, name string, properties map[string]any) {
	c.Enqueue(Message{
		Type:       "page",
		UserID:     userID,
		Name:       name,
		Properties: properties,
	})
}

// Screen queues a screen message for the given user.
func (c *Client) Screen(userID, name string, properties map[string]any) {
	c.Enqueue(Message{
		Type:       "screen",
		UserID:     userID,
		Name:       name,
		Properties: properties,
	})
}

// Identify queues an identify message carrying the given traits.
func (c *Client) Identify(userID string, traits map[string]any) {
	c.Enqueue(Message{
		Type:   "identify",
		UserID: userID,
		Traits: traits,
	})
}

// Flush synchronously sends all queued messages to the gateway.
// Returns an error if the send fails after all retries.
func (c *Client) Flush() error {
	return c.batcher.flush(context.Background())
}

// Close flushes any remaining messages and shuts down the client.
// It stops the background flush goroutine and waits for it to complete.
// Close is safe to call multiple times; subsequent calls are no-ops.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		// Stop the flush loop
		c.cancelFn()

		// Wait for flush loop to exit
		<-c.doneCh

		// Final flush of any remaining messages
		err = c.Flush()
	})
	return err
}
