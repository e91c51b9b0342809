package simulate

import (
	"math/rand/v2"
	"sort"

	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/types"
)

// Hand outcome weights out of outcomeSpan.
const (
	outcomeSpan       = 10
	outcomeFirstDrop  = 2
	outcomeMiddleDrop = 4
	outcomeFullCount  = 5
)

// generator draws hands from a seeded source so a seed always yields the same game.
type generator struct {
	rnd *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// chance reports true with probability p.
func (g *generator) chance(p float64) bool {
	return g.rnd.Float64() < p
}

// pick returns a random index below n.
func (g *generator) pick(n int) int {
	return g.rnd.IntN(n)
}

// hand draws one round: a single winner scoring zero and, for everybody else,
// a drop, a full count or a counted hand between 1 and the full count penalty.
func (g *generator) hand(ids []string, cfg model.Configuration) []types.ScoreEntry {
	winner := g.pick(len(ids))
	entries := make([]types.ScoreEntry, len(ids))
	for i, id := range ids {
		if i == winner {
			entries[i] = types.Points(id, 0)
			continue
		}
		switch n := g.pick(outcomeSpan); {
		case n < outcomeFirstDrop:
			entries[i] = types.Drop(id, model.ActionFirstDrop)
		case n < outcomeMiddleDrop:
			entries[i] = types.Drop(id, model.ActionMiddleDrop)
		case n < outcomeFullCount:
			entries[i] = types.Drop(id, model.ActionFullCount)
		default:
			entries[i] = types.Points(id, g.count(cfg))
		}
	}
	return entries
}

// rescore draws replacement scores for a recorded round.
func (g *generator) rescore(r model.Round, cfg model.Configuration) map[string]int {
	ids := make([]string, 0, len(r.Scores))
	for id := range r.Scores {
		ids = append(ids, id)
	}
	// map order is random; sort for a reproducible draw
	sort.Strings(ids)
	winner := g.pick(len(ids))
	out := make(map[string]int, len(ids))
	for i, id := range ids {
		if i == winner {
			out[id] = 0
			continue
		}
		out[id] = g.count(cfg)
	}
	return out
}

func (g *generator) count(cfg model.Configuration) int {
	if cfg.FullCountPenalty <= 1 {
		return 1
	}
	return 1 + g.rnd.IntN(cfg.FullCountPenalty)
}
