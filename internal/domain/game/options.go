package game

import (
	"time"

	"github.com/google/uuid"
)

// Default seat limits.
const (
	DefaultMinPlayers = 2
	DefaultMaxPlayers = 9
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithMinPlayers sets the smallest roster a new game accepts.
func WithMinPlayers(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.minPlayers = n
		}
	}
}

// WithMaxPlayers sets the number of active seats at the table.
// A value <= 0 removes the limit.
func WithMaxPlayers(n int) Option {
	return func(c *Controller) {
		c.maxPlayers = n
	}
}

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator replaces the generator used for game and player ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func defaultID() string {
	return uuid.NewString()
}
