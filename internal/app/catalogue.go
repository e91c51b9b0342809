package service

import (
	"context"
	"fmt"

	"github.com/okian/rummy/internal/domain/catalogue"
	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/roster"
	"github.com/okian/rummy/pkg/logger"
)

// Catalogue returns a copy of the rule set catalogue.
func (s *Service) Catalogue() catalogue.Catalogue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogue.Clone()
}

// AddConfig stores a new rule set.
func (s *Service) AddConfig(ctx context.Context, cfg model.Configuration) (model.Configuration, error) {
	var added model.Configuration
	err := s.editCatalogue(ctx, "config_add", func(c *catalogue.Catalogue) error {
		var err error
		added, err = c.Add(cfg)
		return err
	})
	return added, err
}

// UpdateConfig replaces a rule set. Running games keep their own copy.
func (s *Service) UpdateConfig(ctx context.Context, cfg model.Configuration) error {
	return s.editCatalogue(ctx, "config_update", func(c *catalogue.Catalogue) error {
		return c.Update(cfg)
	})
}

// DeleteConfig removes a user rule set.
func (s *Service) DeleteConfig(ctx context.Context, id string) error {
	return s.editCatalogue(ctx, "config_delete", func(c *catalogue.Catalogue) error {
		return c.Delete(id)
	})
}

// SelectConfig makes id the rule set used by new games.
func (s *Service) SelectConfig(ctx context.Context, id string) error {
	return s.editCatalogue(ctx, "config_select", func(c *catalogue.Catalogue) error {
		return c.Select(id)
	})
}

// ImportConfigs merges a YAML preset file into the catalogue and returns the
// number of rule sets written.
func (s *Service) ImportConfigs(ctx context.Context, data []byte) (int, error) {
	var written int
	err := s.editCatalogue(ctx, "config_import", func(c *catalogue.Catalogue) error {
		configs, err := catalogue.ParseYAML(data)
		if err != nil {
			return err
		}
		written, err = c.Merge(configs)
		return err
	})
	return written, err
}

// ExportConfigs renders the catalogue as a YAML preset file.
func (s *Service) ExportConfigs(withDefaults bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return catalogue.MarshalYAML(s.catalogue, withDefaults)
}

// editCatalogue applies fn to a copy of the catalogue and keeps the result
// only once the store has it.
func (s *Service) editCatalogue(ctx context.Context, command string, fn func(*catalogue.Catalogue) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}

	next := s.catalogue.Clone()
	if err := fn(&next); err != nil {
		s.reject(ctx, command, s.session.GameID, err)
		return err
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.store.SaveCatalogue(storeCtx, next); err != nil {
		return fmt.Errorf("save catalogue: %w", err)
	}
	s.catalogue = next
	s.logger.Info(ctx, "catalogue updated",
		logger.String("command", command),
		logger.String("selected", next.SelectedID),
		logger.Int("configs", len(next.Configs)),
	)
	return nil
}

// SavedPlayers lists the roster, most recently used first.
func (s *Service) SavedPlayers() []model.SavedPlayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roster == nil {
		return nil
	}
	return s.roster.List()
}

// LookupSavedPlayer finds a saved player by name.
func (s *Service) LookupSavedPlayer(name string) (model.SavedPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roster == nil {
		return model.SavedPlayer{}, ErrNotStarted
	}
	return s.roster.Lookup(name)
}

// AddSavedPlayer saves a new player name.
func (s *Service) AddSavedPlayer(ctx context.Context, name string) (model.SavedPlayer, error) {
	var added model.SavedPlayer
	err := s.editRoster(ctx, "roster_add", func(r *roster.Roster) error {
		var err error
		added, err = r.Add(name, "", s.now().UnixMilli())
		return err
	})
	return added, err
}

// RenameSavedPlayer changes a saved player's name. Games already started keep
// the old name.
func (s *Service) RenameSavedPlayer(ctx context.Context, id, name string) error {
	return s.editRoster(ctx, "roster_rename", func(r *roster.Roster) error {
		return r.Rename(id, name)
	})
}

// DeleteSavedPlayer forgets a saved player.
func (s *Service) DeleteSavedPlayer(ctx context.Context, id string) error {
	return s.editRoster(ctx, "roster_delete", func(r *roster.Roster) error {
		return r.Delete(id)
	})
}

func (s *Service) editRoster(ctx context.Context, command string, fn func(*roster.Roster) error) error {
	s.rosterMu.Lock()
	defer s.rosterMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}

	next := roster.New(s.roster.Players)
	if err := fn(next); err != nil {
		s.reject(ctx, command, s.session.GameID, err)
		return err
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.store.SaveRoster(storeCtx, next.Players); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	s.roster = next
	s.rosterDirty = false
	s.logger.Info(ctx, "roster updated",
		logger.String("command", command),
		logger.Int("saved_players", len(next.Players)),
	)
	return nil
}
