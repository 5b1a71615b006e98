// Package dedupe tracks which notification keys have already been emitted so
// that a milestone is announced at most once per guest.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 50000

// Deduper records seen keys to ensure at-most-once delivery.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key so it can be recorded again. Used when a
	// notification was claimed but could not be queued, or when a guest's
	// history is cleared.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper keeps keys in a map plus an insertion-ordered list.
// Bounded mode (maxSize > 0) evicts the oldest key once full; unbounded mode
// keeps every key.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushBack(key)
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.seen[key]
	if !ok {
		return
	}
	d.order.Remove(el)
	delete(d.seen, key)
	d.size.Add(-1)
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Front()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(string))
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
