package simulate

import "time"

// Defaults for a simulated game.
const (
	DefaultPlayers     = 4
	DefaultRounds      = 50
	DefaultReEntryRate = 0.3
	DefaultEditRate    = 0.1
)

// Config holds the parameters of one simulated game.
type Config struct {
	Seed        uint64  // Seed for the random source; equal seeds replay equal games
	Players     int     // Number of seated players
	Rounds      int     // Upper bound on rounds played
	ConfigID    string  // Rule set id; empty uses the selected one
	ReEntryRate float64 // Chance that a knocked-out player re-enters
	EditRate    float64 // Chance per round that an earlier round is corrected
}

// Stats holds simulation statistics.
type Stats struct {
	GameID         string        `json:"gameId"`
	RoundsPlayed   int           `json:"roundsPlayed"`
	Edits          int           `json:"edits"`
	Eliminations   int           `json:"eliminations"`
	ReEntries      int           `json:"reEntries"`
	Rejected       int           `json:"rejectedReEntries"`
	Winner         string        `json:"winner,omitempty"`
	FinalStandings int           `json:"players"`
	StartTime      time.Time     `json:"startTime"`
	EndTime        time.Time     `json:"endTime"`
	Duration       time.Duration `json:"duration"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Players <= 0 {
		out.Players = DefaultPlayers
	}
	if out.Rounds <= 0 {
		out.Rounds = DefaultRounds
	}
	if out.ReEntryRate < 0 {
		out.ReEntryRate = 0
	}
	if out.EditRate < 0 {
		out.EditRate = 0
	}
	return out
}
