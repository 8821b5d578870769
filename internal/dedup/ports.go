// Package dedup provides server-side message deduplication using a sliding
// window bloom filter. Messages with duplicate message ids are silently
// dropped while non-duplicate messages pass through unchanged.
package dedup

import "context"

// Deduplicator checks whether a message id has been seen
// within the configured time window. Implementations must be safe for
// concurrent use.
type Deduplicator interface {
	// IsDuplicate returns true if the given key was already seen within
	// the sliding window. An empty key always returns false (messages
	// without ids are never treated as duplicates).
	IsDuplicate(key string) bool

	// Start begins the background bloom filter rotation goroutine.
	// The goroutine stops when ctx is cancelled or Stop is called.
	Start(ctx context.Context)

	// Stop signals the rotation goroutine to stop and waits for it
	// to finish.
	Stop()
}
