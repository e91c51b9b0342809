// Package types contains command payloads and read views shared by the
// controller, the service and the CLI.
package types

import (
	model "github.com/okian/rummy/internal/domain/model"
)

// ScoreEntry is one player's input for a round. A nil Score with a NORMAL (or
// empty) action means the score is missing.
type ScoreEntry struct {
	PlayerID string           `json:"playerId"`
	Action   model.ActionType `json:"actionType,omitempty"`
	Score    *int             `json:"score,omitempty"`
}

// Points is a convenience constructor for a NORMAL entry.
func Points(playerID string, score int) ScoreEntry {
	return ScoreEntry{PlayerID: playerID, Action: model.ActionNormal, Score: &score}
}

// Drop is a convenience constructor for a penalty action entry.
func Drop(playerID string, action model.ActionType) ScoreEntry {
	return ScoreEntry{PlayerID: playerID, Action: action}
}

// Resolve turns the entry into a concrete score using cfg's penalties.
func (e ScoreEntry) Resolve(cfg model.Configuration) (int, model.ActionType, error) {
	action := e.Action
	if action == "" {
		action = model.ActionNormal
	}
	if !action.Valid() {
		return 0, "", model.Validationf("unknown action %q", string(action)).With("player", e.PlayerID)
	}
	if penalty, ok := cfg.Penalty(action); ok {
		return penalty, action, nil
	}
	if e.Score == nil {
		return 0, "", model.Validationf("missing score").With("player", e.PlayerID)
	}
	if *e.Score < 0 {
		return 0, "", model.Validationf("score must be non-negative, got %d", *e.Score).With("player", e.PlayerID)
	}
	return *e.Score, action, nil
}

// NewPlayer describes a player to seat, either fresh (empty ID) or taken from
// the saved roster (ID set).
type NewPlayer struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Status labels a standing row.
type Status string

// Standing statuses.
const (
	StatusPlaying    Status = "playing"
	StatusEliminated Status = "eliminated"
	StatusRemoved    Status = "removed"
)

// Standing is one row of the scoreboard.
type Standing struct {
	Rank         int    `json:"rank"`
	PlayerID     string `json:"playerId"`
	Name         string `json:"name"`
	TotalScore   int    `json:"totalScore"`
	GamesPlayed  int    `json:"gamesPlayed"`
	ReEntryCount int    `json:"reEntryCount"`
	EliminatedAt *int   `json:"eliminatedAt,omitempty"`
	Status       Status `json:"status"`
}

// StatusOf derives the standing status of p.
func StatusOf(p model.Player) Status {
	switch {
	case !p.IsActive:
		return StatusRemoved
	case p.IsEliminated:
		return StatusEliminated
	default:
		return StatusPlaying
	}
}
