package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/rummy/internal/domain/catalogue"
	model "github.com/okian/rummy/internal/domain/model"
)

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string][]byte
	current   string
	catalogue *catalogue.Catalogue
	roster    []model.SavedPlayer
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (s *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Save implements SessionStore.
func (s *MemoryStore) Save(ctx context.Context, gameID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if gameID == "" {
		return fmt.Errorf("save session: game id is required")
	}
	s.sessions[gameID] = append([]byte(nil), blob...)
	return nil
}

// Load implements SessionStore.
func (s *MemoryStore) Load(ctx context.Context, gameID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	blob, ok := s.sessions[gameID]
	if !ok {
		return nil, fmt.Errorf("load session %s: %w", gameID, ErrNotFound)
	}
	return append([]byte(nil), blob...), nil
}

// Clear implements SessionStore.
func (s *MemoryStore) Clear(ctx context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	delete(s.sessions, gameID)
	if s.current == gameID {
		s.current = ""
	}
	return nil
}

// Current implements SessionStore.
func (s *MemoryStore) Current(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return "", err
	}
	if s.current == "" {
		return "", fmt.Errorf("current game: %w", ErrNotFound)
	}
	return s.current, nil
}

// SetCurrent implements SessionStore.
func (s *MemoryStore) SetCurrent(ctx context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.current = gameID
	return nil
}

// LoadCatalogue implements CatalogueStore.
func (s *MemoryStore) LoadCatalogue(ctx context.Context) (catalogue.Catalogue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return catalogue.Catalogue{}, err
	}
	if s.catalogue == nil {
		return catalogue.Catalogue{}, fmt.Errorf("load catalogue: %w", ErrNotFound)
	}
	return s.catalogue.Clone(), nil
}

// SaveCatalogue implements CatalogueStore.
func (s *MemoryStore) SaveCatalogue(ctx context.Context, c catalogue.Catalogue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	clone := c.Clone()
	s.catalogue = &clone
	return nil
}

// LoadRoster implements RosterStore.
func (s *MemoryStore) LoadRoster(ctx context.Context) ([]model.SavedPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return append([]model.SavedPlayer(nil), s.roster...), nil
}

// SaveRoster implements RosterStore.
func (s *MemoryStore) SaveRoster(ctx context.Context, players []model.SavedPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.roster = append([]model.SavedPlayer(nil), players...)
	return nil
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
