package service

import (
	"time"

	"github.com/okian/rummy/internal/adapters/repository"
	"github.com/okian/rummy/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the durable store. The caller keeps ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPlayerLimits sets the table size bounds.
func WithPlayerLimits(minPlayers, maxPlayers int) Option {
	return func(s *Service) {
		if minPlayers > 0 {
			s.minPlayers = minPlayers
		}
		if maxPlayers > 0 {
			s.maxPlayers = maxPlayers
		}
	}
}

// WithQueueSize sets the number of snapshot writes that may be pending.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPersistTimeout bounds each store call and each wait for queue room.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// WithDefaultConfig names the rule set selected in a fresh catalogue.
func WithDefaultConfig(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.defaultConfigID = id
		}
	}
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the generator for game and player ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
