// Package model contains the game records shared by every layer: rule
// configurations, players, rounds and the session that ties them together.
//
// Field names and JSON tags mirror the persisted session document, so a
// Session marshals to the same tree the store keeps.
package model

import "strings"

// ActionType classifies how a player's round score was produced.
type ActionType string

// Round actions.
const (
	ActionNormal     ActionType = "NORMAL"
	ActionFirstDrop  ActionType = "FIRST_DROP"
	ActionMiddleDrop ActionType = "MIDDLE_DROP"
	ActionFullCount  ActionType = "FULL_COUNT"
)

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	switch a {
	case ActionNormal, ActionFirstDrop, ActionMiddleDrop, ActionFullCount:
		return true
	}
	return false
}

// Configuration is a named rule set. MaxScore is the elimination threshold.
type Configuration struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	FirstDropPenalty  int    `json:"firstDropPenalty" yaml:"first_drop_penalty"`
	MiddleDropPenalty int    `json:"middleDropPenalty" yaml:"middle_drop_penalty"`
	FullCountPenalty  int    `json:"fullCountPenalty" yaml:"full_count_penalty"`
	MaxScore          int    `json:"maxScore" yaml:"max_score"`
	IsDefault         bool   `json:"isDefault,omitempty" yaml:"is_default,omitempty"`
}

// Validate checks that the rule set is usable: a name and strictly positive
// penalties and threshold.
func (c Configuration) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Validationf("configuration name is required").With("config", c.ID)
	}
	fields := []struct {
		name  string
		value int
	}{
		{"firstDropPenalty", c.FirstDropPenalty},
		{"middleDropPenalty", c.MiddleDropPenalty},
		{"fullCountPenalty", c.FullCountPenalty},
		{"maxScore", c.MaxScore},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return Validationf("%s must be a positive integer, got %d", f.name, f.value).With("config", c.ID)
		}
	}
	return nil
}

// CompulsoryThreshold is the score at or above which a player may no longer
// take the minimum drop.
func (c Configuration) CompulsoryThreshold() int {
	return c.MaxScore - c.FirstDropPenalty
}

// Penalty resolves a drop or full-count action to its configured score.
// NORMAL has no fixed penalty and reports false.
func (c Configuration) Penalty(a ActionType) (int, bool) {
	switch a {
	case ActionFirstDrop:
		return c.FirstDropPenalty, true
	case ActionMiddleDrop:
		return c.MiddleDropPenalty, true
	case ActionFullCount:
		return c.FullCountPenalty, true
	}
	return 0, false
}

// Player is one registry entry. IsActive=false means removed from the game,
// which is distinct from being eliminated.
type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TotalScore   int    `json:"totalScore"`
	IsActive     bool   `json:"isActive"`
	IsEliminated bool   `json:"isEliminated"`
	GamesPlayed  int    `json:"gamesPlayed"`
	EliminatedAt *int   `json:"eliminatedAt,omitempty"`
	ReEntryCount int    `json:"reEntryCount"`
	// JoinedAfterRound is the ledger's latest round number when the player was
	// inserted mid-game; zero for the starting roster.
	JoinedAfterRound int `json:"joinedAfterRound,omitempty"`
}

// Playing reports whether the player must receive a score in the next round.
func (p Player) Playing() bool {
	return p.IsActive && !p.IsEliminated
}

// RoundAction records how one player's score in a round was entered.
type RoundAction struct {
	PlayerID   string     `json:"playerId"`
	ActionType ActionType `json:"actionType"`
	Score      int        `json:"score"`
	Timestamp  int64      `json:"timestamp"`
}

// Round is one ledger entry. The key set of Scores is the set of players
// present in the round.
type Round struct {
	RoundNumber int            `json:"roundNumber"`
	Scores      map[string]int `json:"scores"`
	Timestamp   int64          `json:"timestamp"`
	Actions     []RoundAction  `json:"actions"`
}

// ReEntry records a granted re-entry so that replays restore the player after
// AfterRound has been processed.
type ReEntry struct {
	PlayerID   string `json:"playerId"`
	AfterRound int    `json:"afterRound"`
	Score      int    `json:"score"`
}

// Session is the whole state of one game.
type Session struct {
	GameID       string        `json:"gameId"`
	IsActive     bool          `json:"isActive"`
	StartedAt    int64         `json:"startedAt,omitempty"`
	CurrentRound int           `json:"currentRound"`
	Players      []Player      `json:"players"`
	Rounds       []Round       `json:"rounds"`
	Config       Configuration `json:"config"`
	IsPaused     bool          `json:"isPaused"`
	ReEntries    []ReEntry     `json:"reEntries,omitempty"`
}

// State is the controller state derived from the session flags.
type State string

// Session states.
const (
	StateNotStarted State = "not_started"
	StateActive     State = "active"
	StatePaused     State = "paused"
	StateEnded      State = "ended"
)

// State derives the lifecycle state from the session flags.
func (s *Session) State() State {
	switch {
	case s.GameID == "":
		return StateNotStarted
	case !s.IsActive:
		return StateEnded
	case s.IsPaused:
		return StatePaused
	default:
		return StateActive
	}
}

// Player returns the registry entry with id, or false.
func (s *Session) Player(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Round returns the ledger entry with the given number, or false.
func (s *Session) Round(number int) (Round, bool) {
	for _, r := range s.Rounds {
		if r.RoundNumber == number {
			return r, true
		}
	}
	return Round{}, false
}

// PlayingIDs returns the ids of active, non-eliminated players in roster order.
func (s *Session) PlayingIDs() []string {
	ids := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Playing() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// SavedPlayer is a roster entry kept across games.
type SavedPlayer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	GamesPlayed int    `json:"gamesPlayed"`
	LastUsed    int64  `json:"lastUsed"`
}
