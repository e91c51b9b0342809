package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/rummy/internal/domain/game"
	model "github.com/okian/rummy/internal/domain/model"
)

// ErrMismatch reports a live registry that disagrees with a fresh replay.
var ErrMismatch = errors.New("registry does not match replay")

// Verify replays the ledger of s from scratch and checks that every player's
// registry entry matches. Players with neither re-entries nor a mid-game join
// must also total exactly the sum of their recorded scores.
func Verify(s model.Session) error {
	replay := game.Recompute(s)
	if len(replay.Players) != len(s.Players) {
		return fmt.Errorf("%w: %d players live, %d replayed", ErrMismatch, len(s.Players), len(replay.Players))
	}

	for i, live := range s.Players {
		want := replay.Players[i]
		if err := samePlayer(live, want); err != nil {
			return err
		}
		if live.ReEntryCount > 0 || live.JoinedAfterRound > 0 {
			continue
		}
		sum := 0
		for _, r := range s.Rounds {
			sum += r.Scores[live.ID]
		}
		if sum != live.TotalScore {
			return fmt.Errorf("%w: %s totals %d but rounds sum to %d", ErrMismatch, live.ID, live.TotalScore, sum)
		}
		if eliminated := sum >= s.Config.MaxScore; eliminated != live.IsEliminated {
			return fmt.Errorf("%w: %s eliminated=%t at total %d", ErrMismatch, live.ID, live.IsEliminated, sum)
		}
	}
	return nil
}

func samePlayer(live, want model.Player) error {
	switch {
	case live.ID != want.ID:
		return fmt.Errorf("%w: player order differs (%s vs %s)", ErrMismatch, live.ID, want.ID)
	case live.TotalScore != want.TotalScore:
		return fmt.Errorf("%w: %s total %d, replay %d", ErrMismatch, live.ID, live.TotalScore, want.TotalScore)
	case live.IsEliminated != want.IsEliminated:
		return fmt.Errorf("%w: %s eliminated %t, replay %t", ErrMismatch, live.ID, live.IsEliminated, want.IsEliminated)
	case deref(live.EliminatedAt) != deref(want.EliminatedAt):
		return fmt.Errorf("%w: %s eliminated at %d, replay %d", ErrMismatch, live.ID, deref(live.EliminatedAt), deref(want.EliminatedAt))
	}
	return nil
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
