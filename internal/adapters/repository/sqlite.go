package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/rummy/internal/adapters/repository/migrations"
	"github.com/okian/rummy/internal/domain/catalogue"
	model "github.com/okian/rummy/internal/domain/model"
)

const (
	keyCurrentGame    = "current_game"
	keySelectedConfig = "selected_config"
)

// SQLiteStore keeps sessions, the catalogue and the roster in one SQLite file.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	now         func() time.Time

	closeOnce sync.Once
}

// Open opens (creating if needed) the database at path and applies the
// embedded migrations. ":memory:" gives a private in-memory database.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	s := &SQLiteStore{
		busyTimeout: 5 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d", path, s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection: sqlite serialises writers, and :memory: is per connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s.db = db
	return s, nil
}

// Migrate applies every pending up migration to db.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	// m.Close would also close db, so only the source is released.
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Save implements SessionStore.
func (s *SQLiteStore) Save(ctx context.Context, gameID string, blob []byte) error {
	if gameID == "" {
		return fmt.Errorf("save session: game id is required")
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO sessions(game_id, body, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(game_id) DO UPDATE SET
	 body=excluded.body,
	 updated_at=excluded.updated_at;
	`, gameID, blob, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save session %s: %w", gameID, err)
	}
	return nil
}

// Load implements SessionStore.
func (s *SQLiteStore) Load(ctx context.Context, gameID string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM sessions WHERE game_id = ?`, gameID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load session %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", gameID, err)
	}
	return blob, nil
}

// Clear implements SessionStore. The resume pointer is dropped too when it
// names gameID.
func (s *SQLiteStore) Clear(ctx context.Context, gameID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE game_id = ?`, gameID); err != nil {
			return fmt.Errorf("clear session %s: %w", gameID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ? AND value = ?`, keyCurrentGame, gameID); err != nil {
			return fmt.Errorf("clear session %s: %w", gameID, err)
		}
		return nil
	})
}

// Current implements SessionStore.
func (s *SQLiteStore) Current(ctx context.Context) (string, error) {
	id, err := s.setting(ctx, keyCurrentGame)
	if err != nil {
		return "", fmt.Errorf("current game: %w", err)
	}
	return id, nil
}

// SetCurrent implements SessionStore.
func (s *SQLiteStore) SetCurrent(ctx context.Context, gameID string) error {
	if err := s.putSetting(ctx, s.db, keyCurrentGame, gameID); err != nil {
		return fmt.Errorf("set current game: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) setting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *SQLiteStore) putSetting(ctx context.Context, db execer, key, value string) error {
	if value == "" {
		_, err := db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
		return err
	}
	_, err := db.ExecContext(ctx, `
	INSERT INTO settings(key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value=excluded.value;
	`, key, value)
	return err
}

// LoadCatalogue implements CatalogueStore.
func (s *SQLiteStore) LoadCatalogue(ctx context.Context) (catalogue.Catalogue, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, name, first_drop_penalty, middle_drop_penalty, full_count_penalty, max_score, is_default
	FROM configs ORDER BY position`)
	if err != nil {
		return catalogue.Catalogue{}, fmt.Errorf("load catalogue: %w", err)
	}
	defer rows.Close()

	var c catalogue.Catalogue
	for rows.Next() {
		var cfg model.Configuration
		if err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.FirstDropPenalty, &cfg.MiddleDropPenalty, &cfg.FullCountPenalty, &cfg.MaxScore, &cfg.IsDefault); err != nil {
			return catalogue.Catalogue{}, fmt.Errorf("load catalogue: %w", err)
		}
		c.Configs = append(c.Configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return catalogue.Catalogue{}, fmt.Errorf("load catalogue: %w", err)
	}
	if len(c.Configs) == 0 {
		return catalogue.Catalogue{}, fmt.Errorf("load catalogue: %w", ErrNotFound)
	}

	selected, err := s.setting(ctx, keySelectedConfig)
	switch {
	case errors.Is(err, ErrNotFound):
		selected = catalogue.StandardID
	case err != nil:
		return catalogue.Catalogue{}, fmt.Errorf("load catalogue: %w", err)
	}
	c.SelectedID = selected
	return c, nil
}

// SaveCatalogue implements CatalogueStore.
func (s *SQLiteStore) SaveCatalogue(ctx context.Context, c catalogue.Catalogue) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM configs`); err != nil {
			return err
		}
		for i, cfg := range c.Configs {
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO configs(id, position, name, first_drop_penalty, middle_drop_penalty, full_count_penalty, max_score, is_default)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				cfg.ID, i, cfg.Name, cfg.FirstDropPenalty, cfg.MiddleDropPenalty, cfg.FullCountPenalty, cfg.MaxScore, cfg.IsDefault,
			); err != nil {
				return err
			}
		}
		return s.putSetting(ctx, tx, keySelectedConfig, c.SelectedID)
	})
	if err != nil {
		return fmt.Errorf("save catalogue: %w", err)
	}
	return nil
}

// LoadRoster implements RosterStore.
func (s *SQLiteStore) LoadRoster(ctx context.Context) ([]model.SavedPlayer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, games_played, last_used FROM saved_players ORDER BY last_used DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	defer rows.Close()
	var out []model.SavedPlayer
	for rows.Next() {
		var p model.SavedPlayer
		if err := rows.Scan(&p.ID, &p.Name, &p.GamesPlayed, &p.LastUsed); err != nil {
			return nil, fmt.Errorf("load roster: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return out, nil
}

// SaveRoster implements RosterStore.
func (s *SQLiteStore) SaveRoster(ctx context.Context, players []model.SavedPlayer) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM saved_players`); err != nil {
			return err
		}
		for _, p := range players {
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO saved_players(id, name, games_played, last_used) VALUES (?, ?, ?, ?)`,
				p.ID, p.Name, p.GamesPlayed, p.LastUsed,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
