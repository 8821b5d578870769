// Package domain holds the sliding-window filter behind message
// deduplication.
package domain

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
)

// SlidingFilter remembers message ids for a bounded window using a pair of
// bloom filters. New ids land in the active filter; lookups consult both
// the active and the aged filter. Rotating every half window ages the
// active filter out and drops the oldest one, so an id stays visible for
// at least one full window and at most one and a half.
type SlidingFilter struct {
	mu       sync.RWMutex
	active   *bloom.BloomFilter
	aged     *bloom.BloomFilter
	span     time.Duration
	capacity uint
	fpRate   float64
}

// NewSlidingFilter creates a filter covering the given window span, sized
// for the expected number of message ids per window at the given false
// positive rate.
func NewSlidingFilter(span time.Duration, capacity uint, fpRate float64) *SlidingFilter {
	return &SlidingFilter{
		active:   bloom.NewWithEstimates(capacity, fpRate),
		aged:     bloom.NewWithEstimates(capacity, fpRate),
		span:     span,
		capacity: capacity,
		fpRate:   fpRate,
	}
}

// Seen reports whether the id was recorded within the window, recording it
// if not. Safe for concurrent use.
func (f *SlidingFilter) Seen(id string) bool {
	data := []byte(id)

	f.mu.RLock()
	hit := f.active.Test(data) || f.aged.Test(data)
	f.mu.RUnlock()
	if hit {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// Re-test under the write lock: another goroutine may have recorded
	// the same id between the read unlock and here.
	if f.active.Test(data) || f.aged.Test(data) {
		return true
	}
	f.active.Add(data)
	return false
}

// Rotate ages the active filter and discards the previously aged one.
// Callers run it every span/2 to keep the window sliding.
func (f *SlidingFilter) Rotate() {
	f.mu.Lock()
	f.aged = f.active
	f.active = bloom.NewWithEstimates(f.capacity, f.fpRate)
	f.mu.Unlock()
}

// Span returns the configured window duration.
func (f *SlidingFilter) Span() time.Duration {
	return f.span
}
