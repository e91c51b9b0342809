// Package scoring rebuilds the player registry from the round ledger.
//
// Recompute is a full replay: every derived field (totals, rounds elapsed,
// elimination) is reset and re-derived by walking the ledger in round order.
// Derived state is never patched incrementally.
package scoring

import (
	"sort"

	model "github.com/okian/rummy/internal/domain/model"
)

// Observer is called after each round of a replay with the registry as it
// stands at that point. The slice must not be retained.
type Observer func(round model.Round, players []model.Player)

// Option applies a configuration option to a replay.
type Option func(*replay)

// WithReEntries supplies granted re-entries. After the round named by
// AfterRound is processed, the player is restored with the recorded score if
// they are eliminated at that point.
func WithReEntries(log []model.ReEntry) Option {
	return func(r *replay) {
		for _, e := range log {
			r.reEntries[e.AfterRound] = append(r.reEntries[e.AfterRound], e)
		}
	}
}

// WithObserver registers a per-round callback.
func WithObserver(fn Observer) Option {
	return func(r *replay) {
		if fn != nil {
			r.observers = append(r.observers, fn)
		}
	}
}

type replay struct {
	reEntries map[int][]model.ReEntry
	observers []Observer
}

// Recompute derives a fresh registry from rounds and cfg. Identity, IsActive,
// ReEntryCount and JoinedAfterRound are carried over from players; everything
// else is recomputed. Inputs are not modified.
func Recompute(rounds []model.Round, players []model.Player, cfg model.Configuration, opts ...Option) []model.Player {
	r := &replay{reEntries: make(map[int][]model.ReEntry)}
	for _, opt := range opts {
		opt(r)
	}

	out := model.ClonePlayers(players)
	index := make(map[string]int, len(out))
	for i := range out {
		out[i].TotalScore = 0
		out[i].GamesPlayed = 0
		out[i].IsEliminated = false
		out[i].EliminatedAt = nil
		index[out[i].ID] = i
	}

	for _, round := range SortRounds(rounds) {
		for i := range out {
			p := &out[i]
			p.TotalScore += round.Scores[p.ID]
			// rounds elapsed since the game started, present or not
			p.GamesPlayed++
			if p.TotalScore >= cfg.MaxScore && !p.IsEliminated {
				at := round.RoundNumber
				p.IsEliminated = true
				p.EliminatedAt = &at
			}
		}

		for _, e := range r.reEntries[round.RoundNumber] {
			i, ok := index[e.PlayerID]
			// an edit may have undone the elimination the re-entry answered
			if !ok || !out[i].IsEliminated {
				continue
			}
			out[i].IsEliminated = false
			out[i].EliminatedAt = nil
			out[i].TotalScore = e.Score
		}

		for _, fn := range r.observers {
			fn(round, out)
		}
	}

	return out
}

// SortRounds returns a copy of rounds ordered by ascending round number.
// The copy shares score maps with the input.
func SortRounds(rounds []model.Round) []model.Round {
	sorted := make([]model.Round, len(rounds))
	copy(sorted, rounds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RoundNumber < sorted[j].RoundNumber
	})
	return sorted
}

// Handicap is the starting score for a player joining or returning mid-game:
// the highest total among active, non-eliminated players, or zero.
func Handicap(players []model.Player) int {
	highest := 0
	for _, p := range players {
		if p.Playing() && p.TotalScore > highest {
			highest = p.TotalScore
		}
	}
	return highest
}

// Eliminated returns the ids that are eliminated in after but were not in before.
func Eliminated(before, after []model.Player) []string {
	was := make(map[string]bool, len(before))
	for _, p := range before {
		was[p.ID] = p.IsEliminated
	}
	var ids []string
	for _, p := range after {
		if p.IsEliminated && !was[p.ID] {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
