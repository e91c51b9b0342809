// Package worker drains persistence jobs into the session store.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rummy/internal/adapters/mq/queue"
	"github.com/okian/rummy/pkg/logger"
	"github.com/okian/rummy/pkg/metrics"
)

const defaultStoreTimeout = 5 * time.Second

// Store is the part of the session store the persister writes to.
type Store interface {
	Save(ctx context.Context, gameID string, blob []byte) error
	Clear(ctx context.Context, gameID string) error
	SetCurrent(ctx context.Context, gameID string) error
}

// Queue defines how the persister receives jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error
}

// Persister is the single consumer of the persistence queue. Jobs are
// applied strictly in order. A failed job is logged, counted and reported
// to the error handler; it is not retried. A versioned job older than the
// last one written for its game is skipped, and only the newest snapshot
// moves the resume pointer.
type Persister struct {
	queue   Queue
	store   Store
	name    string
	timeout time.Duration
	onError func(ctx context.Context, job queue.Job, err error)

	// owned by the Run goroutine
	written map[string]uint64
	current uint64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewPersister creates a persister with configuration options.
func NewPersister(q Queue, store Store, opts ...Option) *Persister {
	p := &Persister{
		queue:    q,
		store:    store,
		name:     "persister",
		timeout:  defaultStoreTimeout,
		written:  make(map[string]uint64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("persister"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.name != "persister" {
		p.logger = p.logger.Named(p.name)
	}
	return p
}

// Run implements Worker.
func (p *Persister) Run(ctx context.Context) {
	defer close(p.done)

	jobs := p.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := p.process(ctx, job); err != nil {
				p.logger.Error(ctx, "persisting session failed",
					logger.String("game_id", job.GameID),
					logger.Any("version", job.Version),
					logger.Bool("clear", job.Clear),
					logger.Error(err),
				)
				if p.onError != nil {
					p.onError(ctx, job, err)
				}
			}
			job.Ack()
		}
	}
}

// Done is closed when Run has returned.
func (p *Persister) Done() <-chan struct{} {
	return p.done
}

// Shutdown implements Worker. Jobs still queued are left unprocessed; callers
// that need them written flush first.
func (p *Persister) Shutdown(ctx context.Context) error {
	close(p.shutdown)

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (p *Persister) process(ctx context.Context, job queue.Job) error {
	if job.IsBarrier() {
		return nil
	}
	if job.Version != 0 && job.Version <= p.written[job.GameID] {
		p.logger.Debug(ctx, "stale job skipped",
			logger.String("game_id", job.GameID),
			logger.Any("version", job.Version),
		)
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordPersistLatency(float64(time.Since(start).Milliseconds()))
	}()

	storeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if job.Clear {
		if err := p.store.Clear(storeCtx, job.GameID); err != nil {
			metrics.RecordPersistError("clear")
			return fmt.Errorf("clear %s: %w", job.GameID, err)
		}
		p.mark(job)
		p.logger.Debug(ctx, "session cleared", logger.String("game_id", job.GameID))
		return nil
	}

	if err := p.store.Save(storeCtx, job.GameID, job.Blob); err != nil {
		metrics.RecordPersistError("save")
		return fmt.Errorf("save %s v%d: %w", job.GameID, job.Version, err)
	}
	p.mark(job)
	if job.Version != 0 && job.Version < p.current {
		metrics.RecordPersistWrite()
		return nil
	}
	if err := p.store.SetCurrent(storeCtx, job.GameID); err != nil {
		metrics.RecordPersistError("set_current")
		return fmt.Errorf("set current %s: %w", job.GameID, err)
	}
	if job.Version > p.current {
		p.current = job.Version
	}
	metrics.RecordPersistWrite()
	p.logger.Debug(ctx, "session saved",
		logger.String("game_id", job.GameID),
		logger.Any("version", job.Version),
		logger.Int("bytes", len(job.Blob)),
	)
	return nil
}

func (p *Persister) mark(job queue.Job) {
	if job.Version > p.written[job.GameID] {
		p.written[job.GameID] = job.Version
	}
}

var _ Worker = (*Persister)(nil)
