package analytics

import (
	"context"
	"sync"
	"time"
)

// batcher buffers messages until either the batch fills up or the flush
// interval elapses, whichever comes first.
type batcher struct {
	mu        sync.Mutex
	pending   []Message
	batchSize int
	transport *httpTransport
}

func newBatcher(batchSize int, transport *httpTransport) *batcher {
	return &batcher{
		pending:   make([]Message, 0, batchSize),
		batchSize: batchSize,
		transport: transport,
	}
}

// add buffers msg and reports whether the batch has reached capacity.
func (b *batcher) add(msg Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, msg)
	return len(b.pending) >= b.batchSize
}

// drain swaps out the buffer under the lock so a flush never blocks
// concurrent adds while the HTTP request is in flight.
func (b *batcher) drain() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = make([]Message, 0, b.batchSize)
	return out
}

// flush sends everything buffered so far. An empty buffer is a no-op.
func (b *batcher) flush(ctx context.Context) error {
	messages := b.drain()
	if len(messages) == 0 {
		return nil
	}
	return b.transport.sendBatch(ctx, messages)
}

// flushLoop flushes on every interval tick until ctx is cancelled, then
// closes done. Flush errors are dropped here; whatever failed to send was
// already drained and the next producer call will queue fresh messages.
func (b *batcher) flushLoop(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = b.flush(ctx)
		}
	}
}
