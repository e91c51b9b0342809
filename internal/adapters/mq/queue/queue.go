// Package queue carries session snapshots from the command path to the
// persister without blocking on storage.
package queue

import (
	"context"
	"sync"

	"github.com/okian/rummy/pkg/metrics"
)

const defaultCapacity = 64

// Job is one persistence request. A job either writes Blob as the latest
// version of GameID or, with Clear set, removes it.
type Job struct {
	GameID  string
	Version uint64
	Blob    []byte
	Clear   bool

	ack chan struct{}
}

// Barrier returns a job that carries no data and a channel that is closed
// once the consumer reaches it. Every job enqueued before the barrier has
// been handled by then.
func Barrier() (Job, <-chan struct{}) {
	ack := make(chan struct{})
	return Job{ack: ack}, ack
}

// IsBarrier reports whether j only marks a position in the queue.
func (j Job) IsBarrier() bool {
	return j.GameID == "" && j.ack != nil
}

// Ack signals a waiting barrier. Consumers call it once per job.
func (j Job) Ack() {
	if j.ack != nil {
		close(j.ack)
	}
}

// Queue is a bounded FIFO of jobs.
type Queue interface {
	// Enqueue adds j without waiting. It fails with ErrFull or ErrClosed.
	Enqueue(ctx context.Context, j Job) error
	// EnqueueWait adds j, waiting for room until ctx is done.
	EnqueueWait(ctx context.Context, j Job) error
	// Dequeue returns a channel of jobs in enqueue order. It is closed once
	// the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job
	// Len returns the number of pending jobs.
	Len(ctx context.Context) int
	// Close stops accepting jobs.
	Close() error
	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu        sync.RWMutex
	closed    bool
	closing   chan struct{}
	closeOnce sync.Once
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		closing:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdatePersistQueueCapacity(q.capacity)
	metrics.UpdatePersistQueueSize(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- j:
		metrics.UpdatePersistQueueSize(len(q.jobs))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFull
	}
}

// EnqueueWait implements Queue.
func (q *InMemoryQueue) EnqueueWait(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- j:
		metrics.UpdatePersistQueueSize(len(q.jobs))
		return nil
	case <-q.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.UpdatePersistQueueSize(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len implements Queue.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	n := len(q.jobs)
	metrics.UpdatePersistQueueSize(n)
	return n
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close implements Queue. Pending jobs are still delivered.
func (q *InMemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		// wake blocked EnqueueWait callers before taking the write lock
		close(q.closing)
		q.mu.Lock()
		defer q.mu.Unlock()
		close(q.jobs)
		q.closed = true
	})
	return nil
}

// IsClosed implements Queue.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
