package alerting

import (
	"sync"
	"time"
)

// errorBufferCapacity bounds the diagnostic error FIFO.
const errorBufferCapacity = 50

// ErrorEntry is one recorded operational error.
type ErrorEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
}

// errorBuffer is a bounded FIFO of recent errors; the oldest entry is
// evicted on overflow.
type errorBuffer struct {
	mu      sync.RWMutex
	entries []ErrorEntry
}

func newErrorBuffer() *errorBuffer {
	return &errorBuffer{}
}

func (b *errorBuffer) append(e ErrorEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, e)
	if len(b.entries) > errorBufferCapacity {
		b.entries = b.entries[len(b.entries)-errorBufferCapacity:]
	}
}

// recent returns the most recent limit entries, oldest first within that
// window. A non-positive limit returns everything retained.
func (b *errorBuffer) recent(limit int) []ErrorEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.entries)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]ErrorEntry, n)
	copy(out, b.entries[len(b.entries)-n:])
	return out
}

func (b *errorBuffer) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
