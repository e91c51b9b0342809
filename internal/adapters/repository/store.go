// Package repository defines the persistence contracts for sessions, the
// rule set catalogue and the saved-player roster, with SQLite and in-memory
// implementations.
package repository

import (
	"context"

	"github.com/okian/rummy/internal/domain/catalogue"
	model "github.com/okian/rummy/internal/domain/model"
)

// SessionStore is a durable blob store keyed by game id. Blobs are the JSON
// session document; the store does not interpret them.
type SessionStore interface {
	// Save writes blob for gameID, replacing any earlier version.
	Save(ctx context.Context, gameID string, blob []byte) error
	// Load returns the blob for gameID or ErrNotFound.
	Load(ctx context.Context, gameID string) ([]byte, error)
	// Clear removes gameID. Clearing an absent game is not an error.
	Clear(ctx context.Context, gameID string) error

	// Current returns the id of the game to resume, or ErrNotFound.
	Current(ctx context.Context) (string, error)
	// SetCurrent records the game to resume. An empty id forgets it.
	SetCurrent(ctx context.Context, gameID string) error
}

// CatalogueStore persists the rule set catalogue.
type CatalogueStore interface {
	// LoadCatalogue returns the stored catalogue or ErrNotFound if none was saved.
	LoadCatalogue(ctx context.Context) (catalogue.Catalogue, error)
	// SaveCatalogue replaces the stored catalogue.
	SaveCatalogue(ctx context.Context, c catalogue.Catalogue) error
}

// RosterStore persists saved players.
type RosterStore interface {
	// LoadRoster returns every saved player; an empty roster is not an error.
	LoadRoster(ctx context.Context) ([]model.SavedPlayer, error)
	// SaveRoster replaces the stored roster.
	SaveRoster(ctx context.Context, players []model.SavedPlayer) error
}

// Store is the full persistence surface used by the service.
type Store interface {
	SessionStore
	CatalogueStore
	RosterStore
	Close() error
}
