// Package queue buffers domain events between the engine and the publishers.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Event is the payload flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event. Returns false when the queue is full or closed;
	// the event is dropped in that case.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns the receive side. It is closed after Close once drained.
	Dequeue() <-chan Event

	Len() int
	Cap() int
	Dropped() int64

	// Close stops accepting events. Consumers drain what is already queued.
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int
	dropped  atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool { //nolint:gocritic // hugeParam: events travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop("closed")
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		q.drop("context_cancelled")
		return false
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.events))
		return true
	default:
		q.drop("queue_full")
		return false
	}
}

func (q *InMemoryQueue) drop(reason string) {
	q.dropped.Add(1)
	metrics.RecordQueueDrop()
	metrics.RecordErrorByComponent("queue", reason)
}

func (q *InMemoryQueue) Dequeue() <-chan Event { return q.events }

func (q *InMemoryQueue) Len() int { return len(q.events) }

func (q *InMemoryQueue) Cap() int { return q.capacity }

func (q *InMemoryQueue) Dropped() int64 { return q.dropped.Load() }

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

var _ Queue = (*InMemoryQueue)(nil)
