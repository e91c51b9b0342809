// Package eligibility holds the predicates that gate roster changes during a
// game. They are evaluated against the registry before any mutation.
package eligibility

import (
	"strconv"
	"strings"

	model "github.com/okian/rummy/internal/domain/model"
	"golang.org/x/text/cases"
)

// Fold normalises a player name for case-insensitive comparison. Casers are
// stateful, so one is built per call.
func Fold(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// SameName reports whether two names match ignoring case and surrounding space.
func SameName(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Compulsory returns the ids of players in play whose total is within one
// first-drop penalty of elimination.
func Compulsory(players []model.Player, cfg model.Configuration) []string {
	threshold := cfg.CompulsoryThreshold()
	var ids []string
	for _, p := range players {
		if p.Playing() && p.TotalScore >= threshold {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// IsAnyPlayerCompulsory reports whether any player in play is compulsory.
func IsAnyPlayerCompulsory(players []model.Player, cfg model.Configuration) bool {
	return len(Compulsory(players, cfg)) > 0
}

// CheckReEnter explains why p may not re-enter, or returns nil.
func CheckReEnter(p model.Player, players []model.Player, rounds []model.Round, cfg model.Configuration) error {
	if ids := Compulsory(players, cfg); len(ids) > 0 {
		return model.Eligibilityf("a player is compulsory").
			With("player", p.ID).
			With("compulsory", strings.Join(ids, ","))
	}
	if !p.IsActive {
		return model.Eligibilityf("player was removed from the game").With("player", p.ID)
	}
	if !p.IsEliminated {
		return model.Eligibilityf("player is not eliminated").With("player", p.ID)
	}
	if p.EliminatedAt != nil {
		for _, r := range rounds {
			if r.RoundNumber > *p.EliminatedAt {
				return model.Eligibilityf("re-entry window closed").
					With("player", p.ID).
					With("eliminated_at", strconv.Itoa(*p.EliminatedAt))
			}
		}
	}
	return nil
}

// CanReEnter reports whether p may re-enter.
func CanReEnter(p model.Player, players []model.Player, rounds []model.Round, cfg model.Configuration) bool {
	return CheckReEnter(p, players, rounds, cfg) == nil
}

// CheckAddPlayer explains why a player called name may not be added, or
// returns nil. maxPlayers <= 0 disables the seat limit.
func CheckAddPlayer(players []model.Player, cfg model.Configuration, maxPlayers int, name string) error {
	if ids := Compulsory(players, cfg); len(ids) > 0 {
		return model.Eligibilityf("a player is compulsory").With("compulsory", strings.Join(ids, ","))
	}
	active := 0
	for _, p := range players {
		if !p.IsActive {
			continue
		}
		active++
		if SameName(p.Name, name) {
			return model.Eligibilityf("name already in use").With("name", p.Name)
		}
	}
	if maxPlayers > 0 && active >= maxPlayers {
		return model.Eligibilityf("table is full").With("max_players", strconv.Itoa(maxPlayers))
	}
	return nil
}

// CanAddPlayer reports whether a player called name may be added.
func CanAddPlayer(players []model.Player, cfg model.Configuration, maxPlayers int, name string) bool {
	return CheckAddPlayer(players, cfg, maxPlayers, name) == nil
}
