// Package ledger validates and applies changes to a session's round history.
//
// Functions here mutate the session they are given. Callers pass a clone and
// discard it on error, which keeps command application all-or-nothing.
package ledger

import (
	"sort"
	"strconv"
	"strings"

	model "github.com/okian/rummy/internal/domain/model"
)

// AppendRound records scores as round currentRound+1. The key set must equal
// the players currently in play. actions may be nil, in which case NORMAL
// actions are synthesised in roster order.
func AppendRound(s *model.Session, scores map[string]int, actions []model.RoundAction, now int64) (model.Round, error) {
	playing := s.PlayingIDs()
	if len(playing) == 0 {
		return model.Round{}, model.Statef("no players left in play")
	}
	if err := sameKeys(scores, playing); err != nil {
		return model.Round{}, err
	}
	if err := checkScores(scores, nil); err != nil {
		return model.Round{}, err
	}

	number := s.CurrentRound + 1
	if _, exists := s.Round(number); exists {
		return model.Round{}, model.Validationf("round %d already recorded", number)
	}
	if actions == nil {
		actions = NormalActions(playing, scores, now)
	}

	r := model.Round{
		RoundNumber: number,
		Scores:      copyScores(scores),
		Timestamp:   now,
		Actions:     actions,
	}
	s.Rounds = append(s.Rounds, r)
	s.CurrentRound = number
	return r, nil
}

// EditRound replaces the scores of round n. The participant set may not
// change. Actions are rewritten as NORMAL entries.
func EditRound(s *model.Session, n int, scores map[string]int, now int64) error {
	idx := -1
	for i, r := range s.Rounds {
		if r.RoundNumber == n {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.NotFoundf("round %d does not exist", n).With("round", strconv.Itoa(n))
	}

	original := s.Rounds[idx]
	if err := sameKeys(scores, sortedKeys(original.Scores)); err != nil {
		return err.With("round", strconv.Itoa(n))
	}
	if err := checkScores(scores, backfilled(s.Players, n)); err != nil {
		return err.With("round", strconv.Itoa(n))
	}

	s.Rounds[idx] = model.Round{
		RoundNumber: n,
		Scores:      copyScores(scores),
		Timestamp:   now,
		Actions:     NormalActions(rosterOrder(s.Players, scores), scores, now),
	}
	return nil
}

// Backfill inserts id into every recorded round: zero everywhere except the
// earliest round, which receives start.
func Backfill(s *model.Session, id string, start int) {
	if len(s.Rounds) == 0 {
		return
	}
	first := 0
	for i, r := range s.Rounds {
		if r.RoundNumber < s.Rounds[first].RoundNumber {
			first = i
		}
	}
	for i := range s.Rounds {
		if s.Rounds[i].Scores == nil {
			s.Rounds[i].Scores = make(map[string]int)
		}
		s.Rounds[i].Scores[id] = 0
	}
	s.Rounds[first].Scores[id] = start
}

// NormalActions builds one NORMAL action per id, in the order given.
func NormalActions(ids []string, scores map[string]int, now int64) []model.RoundAction {
	out := make([]model.RoundAction, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.RoundAction{
			PlayerID:   id,
			ActionType: model.ActionNormal,
			Score:      scores[id],
			Timestamp:  now,
		})
	}
	return out
}

// Zeros counts zero scores, skipping ids in ignore.
func Zeros(scores map[string]int, ignore map[string]bool) int {
	n := 0
	for id, v := range scores {
		if v == 0 && !ignore[id] {
			n++
		}
	}
	return n
}

func checkScores(scores map[string]int, ignore map[string]bool) *model.Error {
	for _, id := range sortedKeys(scores) {
		if scores[id] < 0 {
			return model.Validationf("score must be non-negative, got %d", scores[id]).With("player", id)
		}
	}
	if z := Zeros(scores, ignore); z > 1 {
		return model.Validationf("only one player may score zero in a round, got %d", z)
	}
	return nil
}

func sameKeys(scores map[string]int, want []string) *model.Error {
	expected := make(map[string]bool, len(want))
	for _, id := range want {
		expected[id] = true
	}
	var missing, extra []string
	for _, id := range want {
		if _, ok := scores[id]; !ok {
			missing = append(missing, id)
		}
	}
	for _, id := range sortedKeys(scores) {
		if !expected[id] {
			extra = append(extra, id)
		}
	}
	switch {
	case len(missing) > 0:
		return model.Validationf("missing scores").With("players", strings.Join(missing, ","))
	case len(extra) > 0:
		return model.Validationf("unexpected players in round").With("players", strings.Join(extra, ","))
	}
	return nil
}

// backfilled lists players whose entries in round n were synthesised when
// they joined after it.
func backfilled(players []model.Player, n int) map[string]bool {
	out := make(map[string]bool)
	for _, p := range players {
		if p.JoinedAfterRound >= n {
			out[p.ID] = true
		}
	}
	return out
}

func rosterOrder(players []model.Player, scores map[string]int) []string {
	ids := make([]string, 0, len(scores))
	seen := make(map[string]bool, len(scores))
	for _, p := range players {
		if _, ok := scores[p.ID]; ok {
			ids = append(ids, p.ID)
			seen[p.ID] = true
		}
	}
	for _, id := range sortedKeys(scores) {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func copyScores(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
