package game

import (
	"sort"

	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/types"
)

// Standings ranks the registry by ascending total; the lowest penalty leads.
// Ties are broken by name, then id.
func Standings(s model.Session) []types.Standing {
	players := model.ClonePlayers(s.Players)
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore < b.TotalScore
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	out := make([]types.Standing, len(players))
	for i, p := range players {
		out[i] = types.Standing{
			Rank:         i + 1,
			PlayerID:     p.ID,
			Name:         p.Name,
			TotalScore:   p.TotalScore,
			GamesPlayed:  p.GamesPlayed,
			ReEntryCount: p.ReEntryCount,
			EliminatedAt: p.EliminatedAt,
			Status:       types.StatusOf(p),
		}
	}
	return out
}
