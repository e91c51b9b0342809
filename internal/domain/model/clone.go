package model

// Clone returns a deep copy of the session. Command handlers mutate the copy
// and hand it back only when every step succeeded.
func (s *Session) Clone() Session {
	out := *s
	out.Players = ClonePlayers(s.Players)
	out.Rounds = CloneRounds(s.Rounds)
	if s.ReEntries != nil {
		out.ReEntries = append([]ReEntry(nil), s.ReEntries...)
	}
	return out
}

// ClonePlayers deep-copies a registry.
func ClonePlayers(players []Player) []Player {
	if players == nil {
		return nil
	}
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = p
		if p.EliminatedAt != nil {
			at := *p.EliminatedAt
			out[i].EliminatedAt = &at
		}
	}
	return out
}

// CloneRounds deep-copies a ledger.
func CloneRounds(rounds []Round) []Round {
	if rounds == nil {
		return nil
	}
	out := make([]Round, len(rounds))
	for i, r := range rounds {
		out[i] = r.Clone()
	}
	return out
}

// Clone deep-copies a single round.
func (r Round) Clone() Round {
	out := r
	if r.Scores != nil {
		out.Scores = make(map[string]int, len(r.Scores))
		for id, v := range r.Scores {
			out.Scores[id] = v
		}
	}
	if r.Actions != nil {
		out.Actions = append([]RoundAction(nil), r.Actions...)
	}
	return out
}
