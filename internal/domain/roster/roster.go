// Package roster manages the saved players offered when a new game is set up.
package roster

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/okian/rummy/internal/domain/eligibility"
	model "github.com/okian/rummy/internal/domain/model"
)

// maxSuggestDistance bounds how far a misspelt name may be from a suggestion.
const maxSuggestDistance = 3

// Roster is the set of saved players.
type Roster struct {
	Players []model.SavedPlayer `json:"savedPlayers"`
}

// New builds a roster from stored entries.
func New(players []model.SavedPlayer) *Roster {
	return &Roster{Players: append([]model.SavedPlayer(nil), players...)}
}

func (r *Roster) index(id string) int {
	for i, p := range r.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Roster) nameTaken(name, except string) bool {
	for _, p := range r.Players {
		if p.ID != except && eligibility.SameName(p.Name, name) {
			return true
		}
	}
	return false
}

// Get returns the saved player with id.
func (r *Roster) Get(id string) (model.SavedPlayer, error) {
	i := r.index(id)
	if i < 0 {
		return model.SavedPlayer{}, model.NotFoundf("unknown saved player").With("player", id)
	}
	return r.Players[i], nil
}

// Add saves a new player. An empty id is generated.
func (r *Roster) Add(name string, id string, now int64) (model.SavedPlayer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.SavedPlayer{}, model.Validationf("player name is required")
	}
	if r.nameTaken(name, "") {
		return model.SavedPlayer{}, model.Validationf("a saved player with this name exists").With("name", name)
	}
	if id == "" {
		id = uuid.NewString()
	}
	if r.index(id) >= 0 {
		return model.SavedPlayer{}, model.Validationf("saved player id already in use").With("player", id)
	}
	p := model.SavedPlayer{ID: id, Name: name, LastUsed: now}
	r.Players = append(r.Players, p)
	return p, nil
}

// Rename changes a saved player's name.
func (r *Roster) Rename(id, name string) error {
	i := r.index(id)
	if i < 0 {
		return model.NotFoundf("unknown saved player").With("player", id)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Validationf("player name is required")
	}
	if r.nameTaken(name, id) {
		return model.Validationf("a saved player with this name exists").With("name", name)
	}
	r.Players[i].Name = name
	return nil
}

// Delete forgets a saved player.
func (r *Roster) Delete(id string) error {
	i := r.index(id)
	if i < 0 {
		return model.NotFoundf("unknown saved player").With("player", id)
	}
	r.Players = append(r.Players[:i], r.Players[i+1:]...)
	return nil
}

// Touch records that the player was seated in a game at now.
func (r *Roster) Touch(id string, now int64) error {
	i := r.index(id)
	if i < 0 {
		return model.NotFoundf("unknown saved player").With("player", id)
	}
	r.Players[i].LastUsed = now
	r.Players[i].GamesPlayed++
	return nil
}

// List returns saved players, most recently used first.
func (r *Roster) List() []model.SavedPlayer {
	out := append([]model.SavedPlayer(nil), r.Players...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastUsed != out[j].LastUsed {
			return out[i].LastUsed > out[j].LastUsed
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Lookup finds a saved player by name ignoring case. A miss carries the
// closest saved name, if any is near, in the "suggestion" field.
func (r *Roster) Lookup(name string) (model.SavedPlayer, error) {
	want := eligibility.Fold(name)
	best, bestDist := "", maxSuggestDistance+1
	for _, p := range r.Players {
		folded := eligibility.Fold(p.Name)
		if folded == want {
			return p, nil
		}
		if d := levenshtein.ComputeDistance(want, folded); d < bestDist {
			best, bestDist = p.Name, d
		}
	}
	err := model.NotFoundf("no saved player named %q", strings.TrimSpace(name))
	if best != "" {
		err = err.With("suggestion", best)
	}
	return model.SavedPlayer{}, err
}
