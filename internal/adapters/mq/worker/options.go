package worker

import (
	"context"
	"time"

	"github.com/okian/rummy/internal/adapters/mq/queue"
	"github.com/okian/rummy/pkg/logger"
)

// Option applies a configuration option to the Persister.
type Option func(*Persister)

// WithName sets the persister name for identification and logging.
func WithName(name string) Option {
	return func(p *Persister) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets a custom logger for the persister.
func WithLogger(logger logger.Logger) Option {
	return func(p *Persister) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTimeout bounds each store call.
func WithTimeout(d time.Duration) Option {
	return func(p *Persister) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithErrorHandler registers a callback for failed jobs.
func WithErrorHandler(fn func(ctx context.Context, job queue.Job, err error)) Option {
	return func(p *Persister) {
		p.onError = fn
	}
}
