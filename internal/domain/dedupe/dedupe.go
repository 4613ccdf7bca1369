// Package dedupe tracks submission idempotency keys.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records submission keys so a replayed submission is merged once.
type Deduper interface {
	// SeenAndRecord atomically checks whether the key was seen and records it
	// if not. Returns true when the key was already present.
	SeenAndRecord(ctx context.Context, leaderboardID, submissionID string) bool

	// Unrecord forgets a key so a failed submission can be retried.
	Unrecord(ctx context.Context, leaderboardID, submissionID string)

	// Forget drops every key recorded for a leaderboard (reset, delete).
	Forget(ctx context.Context, leaderboardID string)

	Size() int64
}

type key struct {
	leaderboard string
	submission  string
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[key]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[key]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, leaderboardID, submissionID string) bool {
	k := key{leaderboardID, submissionID}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[k]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[k] = d.order.PushBack(k)
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, leaderboardID, submissionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remove(key{leaderboardID, submissionID})
}

func (d *inMemoryDeduper) Forget(_ context.Context, leaderboardID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := range d.seen {
		if k.leaderboard == leaderboardID {
			d.remove(k)
		}
	}
}

// remove must be called with d.mu held.
func (d *inMemoryDeduper) remove(k key) {
	el, ok := d.seen[k]
	if !ok {
		return
	}
	d.order.Remove(el)
	delete(d.seen, k)
	d.size.Add(-1)
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.remove(front.Value.(key))
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
