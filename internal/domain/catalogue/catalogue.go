// Package catalogue keeps the named rule sets a game can be started with and
// remembers which one is selected.
package catalogue

import (
	"strings"

	"github.com/google/uuid"
	model "github.com/okian/rummy/internal/domain/model"
)

// StandardID is the rule set selected when nothing else is.
const StandardID = "standard"

// Catalogue is the list of rule sets plus the current selection.
type Catalogue struct {
	Configs    []model.Configuration `json:"configs" yaml:"configs"`
	SelectedID string                `json:"selectedConfigId" yaml:"selected_config_id"`
}

// Defaults returns the built-in presets with the standard rules selected.
func Defaults() Catalogue {
	return Catalogue{
		Configs: []model.Configuration{
			{ID: StandardID, Name: "Standard Rules", FirstDropPenalty: 20, MiddleDropPenalty: 40, FullCountPenalty: 80, MaxScore: 250, IsDefault: true},
			{ID: "quick", Name: "Quick Game", FirstDropPenalty: 15, MiddleDropPenalty: 30, FullCountPenalty: 60, MaxScore: 150},
			{ID: "high-stakes", Name: "High Stakes", FirstDropPenalty: 25, MiddleDropPenalty: 50, FullCountPenalty: 100, MaxScore: 500},
		},
		SelectedID: StandardID,
	}
}

// Clone returns an independent copy.
func (c Catalogue) Clone() Catalogue {
	c.Configs = append([]model.Configuration(nil), c.Configs...)
	return c
}

func (c *Catalogue) index(id string) int {
	for i, cfg := range c.Configs {
		if cfg.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the rule set with id.
func (c *Catalogue) Get(id string) (model.Configuration, error) {
	i := c.index(id)
	if i < 0 {
		return model.Configuration{}, model.NotFoundf("unknown configuration").With("config", id)
	}
	return c.Configs[i], nil
}

// Selected returns the currently selected rule set, falling back to the
// standard rules when the selection is dangling.
func (c *Catalogue) Selected() (model.Configuration, error) {
	if cfg, err := c.Get(c.SelectedID); err == nil {
		return cfg, nil
	}
	return c.Get(StandardID)
}

// Add stores a new user rule set. An empty id is generated.
func (c *Catalogue) Add(cfg model.Configuration) (model.Configuration, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.ID = strings.TrimSpace(cfg.ID)
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.IsDefault = false
	if err := cfg.Validate(); err != nil {
		return model.Configuration{}, err
	}
	if c.index(cfg.ID) >= 0 {
		return model.Configuration{}, model.Validationf("configuration id already in use").With("config", cfg.ID)
	}
	c.Configs = append(c.Configs, cfg)
	return cfg, nil
}

// Update replaces the rule set with the same id. The default flag cannot be
// changed. Games already started keep the copy they were started with.
func (c *Catalogue) Update(cfg model.Configuration) error {
	i := c.index(cfg.ID)
	if i < 0 {
		return model.NotFoundf("unknown configuration").With("config", cfg.ID)
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.IsDefault = c.Configs[i].IsDefault
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Configs[i] = cfg
	return nil
}

// Delete removes a user rule set. Deleting the selection re-selects the
// standard rules.
func (c *Catalogue) Delete(id string) error {
	i := c.index(id)
	if i < 0 {
		return model.NotFoundf("unknown configuration").With("config", id)
	}
	if c.Configs[i].IsDefault {
		return model.Eligibilityf("default configurations cannot be deleted").With("config", id)
	}
	c.Configs = append(c.Configs[:i], c.Configs[i+1:]...)
	if c.SelectedID == id {
		c.SelectedID = StandardID
	}
	return nil
}

// Select makes id the current selection.
func (c *Catalogue) Select(id string) error {
	if c.index(id) < 0 {
		return model.NotFoundf("unknown configuration").With("config", id)
	}
	c.SelectedID = id
	return nil
}

// Merge adds or updates every rule set in configs. Default presets in the
// catalogue are left as they are. It returns the number of rule sets
// written and stops at the first invalid one, leaving c unchanged.
func (c *Catalogue) Merge(configs []model.Configuration) (int, error) {
	next := c.Clone()
	written := 0
	for _, cfg := range configs {
		i := next.index(cfg.ID)
		switch {
		case i >= 0 && next.Configs[i].IsDefault:
			continue
		case i >= 0:
			if err := next.Update(cfg); err != nil {
				return 0, err
			}
		default:
			if _, err := next.Add(cfg); err != nil {
				return 0, err
			}
		}
		written++
	}
	*c = next
	return written, nil
}
