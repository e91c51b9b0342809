// Package config defines process configuration and how it is loaded.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// DBPath is the SQLite file holding sessions, presets and saved players.
	// ":memory:" keeps everything in process.
	DBPath string `koanf:"db_path"`

	// MinPlayers and MaxPlayers bound the table size.
	MinPlayers int `koanf:"min_players"`
	MaxPlayers int `koanf:"max_players"`

	// PersistQueueSize bounds the number of pending snapshot writes.
	PersistQueueSize int `koanf:"persist_queue_size"`

	// PersistTimeoutMS bounds each store call and each wait for queue room.
	PersistTimeoutMS int `koanf:"persist_timeout_ms"`

	// MetricsFile, when set, receives a Prometheus textfile export on exit.
	MetricsFile string `koanf:"metrics_file"`

	// DefaultConfigID names the rule set used when none is chosen.
	DefaultConfigID string `koanf:"default_config_id"`
}

// New creates a Config with defaults. The context is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		DBPath:           "rummy.db",
		MinPlayers:       2,
		MaxPlayers:       9,
		PersistQueueSize: 64,
		PersistTimeoutMS: 5000,
		DefaultConfigID:  "standard",
	}
}

// PersistTimeout returns PersistTimeoutMS as a duration.
func (c *Config) PersistTimeout() time.Duration {
	return time.Duration(c.PersistTimeoutMS) * time.Millisecond
}
