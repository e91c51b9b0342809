// Package simulate plays seeded random games through the service and checks
// that the live registry matches a fresh replay of the final ledger.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"time"

	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/types"
	"github.com/okian/rummy/pkg/logger"
)

// Engine is the part of the service a simulation drives.
type Engine interface {
	StartNewGame(ctx context.Context, players []types.NewPlayer, configID string) (model.Session, error)
	SubmitRound(ctx context.Context, entries []types.ScoreEntry) (model.Session, error)
	EditRound(ctx context.Context, n int, scores map[string]int) (model.Session, error)
	ReEnter(ctx context.Context, id string) (model.Session, error)
	EndGame(ctx context.Context) (model.Session, error)
}

// Run plays one game and verifies it. The game ends when at most one player
// is left or the round limit is reached.
func Run(ctx context.Context, engine Engine, config Config) (Stats, error) {
	cfg := config.withDefaults()
	stats := Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulate")

	log.Info(ctx, "starting simulated game",
		logger.Any("seed", cfg.Seed),
		logger.Int("players", cfg.Players),
		logger.Int("rounds", cfg.Rounds),
		logger.String("config", cfg.ConfigID),
	)

	players := make([]types.NewPlayer, cfg.Players)
	for i := range players {
		players[i] = types.NewPlayer{Name: fmt.Sprintf("Player %d", i+1)}
	}
	s, err := engine.StartNewGame(ctx, players, cfg.ConfigID)
	if err != nil {
		return stats, fmt.Errorf("start game: %w", err)
	}
	stats.GameID = s.GameID

	gen := newGenerator(cfg.Seed)
	for stats.RoundsPlayed < cfg.Rounds && len(s.PlayingIDs()) > 1 {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		before := s
		s, err = engine.SubmitRound(ctx, gen.hand(s.PlayingIDs(), s.Config))
		if err != nil {
			return stats, fmt.Errorf("round %d: %w", before.CurrentRound+1, err)
		}
		stats.RoundsPlayed++

		if s.CurrentRound > 1 && gen.chance(cfg.EditRate) {
			r, _ := s.Round(1 + gen.pick(s.CurrentRound-1))
			next, err := engine.EditRound(ctx, r.RoundNumber, gen.rescore(r, s.Config))
			if err != nil {
				return stats, fmt.Errorf("edit round %d: %w", r.RoundNumber, err)
			}
			s = next
			stats.Edits++
		}

		for _, p := range s.Players {
			if !p.IsEliminated || p.EliminatedAt == nil || *p.EliminatedAt != s.CurrentRound {
				continue
			}
			stats.Eliminations++
			if !gen.chance(cfg.ReEntryRate) {
				continue
			}
			next, err := engine.ReEnter(ctx, p.ID)
			switch {
			case err == nil:
				s = next
				stats.ReEntries++
			case errors.Is(err, model.ErrEligibility):
				stats.Rejected++
				log.Debug(ctx, "re-entry refused", logger.String("player", p.ID), logger.Error(err))
			default:
				return stats, fmt.Errorf("re-enter %s: %w", p.ID, err)
			}
		}
	}

	s, err = engine.EndGame(ctx)
	if err != nil {
		return stats, fmt.Errorf("end game: %w", err)
	}
	if err := Verify(s); err != nil {
		return stats, err
	}

	if ids := s.PlayingIDs(); len(ids) == 1 {
		stats.Winner = ids[0]
	}
	stats.FinalStandings = len(s.Players)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "simulated game verified",
		logger.String("game_id", stats.GameID),
		logger.Int("rounds", stats.RoundsPlayed),
		logger.Int("edits", stats.Edits),
		logger.Int("eliminations", stats.Eliminations),
		logger.Int("reentries", stats.ReEntries),
		logger.Int("rejected", stats.Rejected),
		logger.String("winner", stats.Winner),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}
