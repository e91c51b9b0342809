package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvFile names the variable holding an optional YAML config path.
const EnvFile = "RUMMY_CONFIG"

const envPrefix = "RUMMY_"

// Load builds a Config by layering defaults, the file named by RUMMY_CONFIG,
// and env vars.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, os.Getenv(EnvFile))
}

// LoadFrom is Load with an explicit file path. Order of precedence
// (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if path is set
//  3. env (prefix RUMMY_)
func LoadFrom(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// RUMMY_DB_PATH -> db_path; underscores are kept to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.MinPlayers < 2:
		return fmt.Errorf("%w: min_players must be at least 2, got %d", ErrInvalidConfig, c.MinPlayers)
	case c.MaxPlayers < c.MinPlayers:
		return fmt.Errorf("%w: max_players (%d) is below min_players (%d)", ErrInvalidConfig, c.MaxPlayers, c.MinPlayers)
	case c.PersistQueueSize <= 0:
		return fmt.Errorf("%w: persist_queue_size must be positive", ErrInvalidConfig)
	case c.PersistTimeoutMS <= 0:
		return fmt.Errorf("%w: persist_timeout_ms must be positive", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case strings.TrimSpace(c.DefaultConfigID) == "":
		return fmt.Errorf("%w: default_config_id must not be empty", ErrInvalidConfig)
	}
	return nil
}
