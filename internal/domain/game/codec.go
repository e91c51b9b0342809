package game

import (
	"encoding/json"
	"strconv"

	model "github.com/okian/rummy/internal/domain/model"
)

// Marshal encodes s as the persisted JSON document.
func Marshal(s model.Session) ([]byte, error) {
	if s.Rounds == nil {
		s.Rounds = []model.Round{}
	}
	return json.Marshal(s)
}

// Unmarshal decodes a persisted or exported session, checks that it is
// structurally sound and rebuilds the registry from its ledger. Derived
// fields in the document are not trusted.
func Unmarshal(data []byte) (model.Session, error) {
	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Session{}, model.Validationf("malformed session document: %v", err)
	}
	if err := check(&s); err != nil {
		return model.Session{}, err
	}
	if s.Rounds == nil {
		s.Rounds = []model.Round{}
	}
	recompute(&s)
	return s, nil
}

func check(s *model.Session) error {
	if s.GameID == "" {
		return model.Validationf("session has no game id")
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}

	known := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		if p.ID == "" {
			return model.Validationf("player without id")
		}
		if known[p.ID] {
			return model.Validationf("player listed twice").With("player", p.ID)
		}
		known[p.ID] = true
		if p.ReEntryCount < 0 {
			return model.Validationf("negative re-entry count").With("player", p.ID)
		}
	}

	numbers := make(map[int]bool, len(s.Rounds))
	highest := 0
	for _, r := range s.Rounds {
		round := strconv.Itoa(r.RoundNumber)
		if r.RoundNumber < 1 {
			return model.Validationf("round numbers start at 1").With("round", round)
		}
		if numbers[r.RoundNumber] {
			return model.Validationf("round number reused").With("round", round)
		}
		numbers[r.RoundNumber] = true
		if r.RoundNumber > highest {
			highest = r.RoundNumber
		}
		for id, v := range r.Scores {
			if !known[id] {
				return model.Validationf("round scores an unknown player").With("round", round).With("player", id)
			}
			if v < 0 {
				return model.Validationf("negative score").With("round", round).With("player", id)
			}
		}
	}
	if s.CurrentRound < highest {
		return model.Validationf("current round %d is behind the ledger", s.CurrentRound).With("round", strconv.Itoa(highest))
	}

	for _, e := range s.ReEntries {
		if !known[e.PlayerID] {
			return model.Validationf("re-entry for an unknown player").With("player", e.PlayerID)
		}
	}
	return nil
}
