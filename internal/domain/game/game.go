// Package game applies session commands.
//
// Every command is a function of the current Session and a payload that
// returns either the next Session or a typed *model.Error. The input session
// is never modified: handlers work on a deep clone and discard it on failure,
// so a rejected command has no effect. After any ledger change the registry is
// rebuilt by a full replay.
package game

import (
	"strings"
	"time"

	"github.com/okian/rummy/internal/domain/eligibility"
	"github.com/okian/rummy/internal/domain/ledger"
	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/scoring"
	"github.com/okian/rummy/internal/domain/types"
)

// Controller holds the table rules shared by all commands. It carries no
// session state and is safe for concurrent use.
type Controller struct {
	minPlayers int
	maxPlayers int
	now        func() time.Time
	newID      func() string
}

// New creates a Controller with configuration options.
func New(opts ...Option) *Controller {
	c := &Controller{
		minPlayers: DefaultMinPlayers,
		maxPlayers: DefaultMaxPlayers,
		now:        time.Now,
		newID:      defaultID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxPlayers returns the configured seat limit.
func (c *Controller) MaxPlayers() int { return c.maxPlayers }

func (c *Controller) stamp() int64 {
	return c.now().UnixMilli()
}

// StartNewGame seats players under cfg with an empty ledger.
func (c *Controller) StartNewGame(players []types.NewPlayer, cfg model.Configuration) (model.Session, error) {
	if err := cfg.Validate(); err != nil {
		return model.Session{}, err
	}
	if len(players) < c.minPlayers {
		return model.Session{}, model.Validationf("at least %d players are required, got %d", c.minPlayers, len(players))
	}
	if c.maxPlayers > 0 && len(players) > c.maxPlayers {
		return model.Session{}, model.Validationf("at most %d players may be seated, got %d", c.maxPlayers, len(players))
	}

	seated := make([]model.Player, 0, len(players))
	for _, np := range players {
		name := strings.TrimSpace(np.Name)
		if name == "" {
			return model.Session{}, model.Validationf("player name is required")
		}
		id := np.ID
		if id == "" {
			id = c.newID()
		}
		for _, p := range seated {
			if p.ID == id {
				return model.Session{}, model.Validationf("player listed twice").With("player", id)
			}
			if eligibility.SameName(p.Name, name) {
				return model.Session{}, model.Validationf("duplicate player name").With("name", name)
			}
		}
		seated = append(seated, model.Player{ID: id, Name: name, IsActive: true})
	}

	return model.Session{
		GameID:    c.newID(),
		IsActive:  true,
		StartedAt: c.stamp(),
		Players:   seated,
		Rounds:    []model.Round{},
		Config:    cfg,
	}, nil
}

// SubmitRound records the next round from per-player entries. Drop and full
// count entries resolve to the configured penalties.
func (c *Controller) SubmitRound(s model.Session, entries []types.ScoreEntry) (model.Session, error) {
	if err := requireState(&s, "submit a round", model.StateActive); err != nil {
		return s, err
	}

	now := c.stamp()
	scores := make(map[string]int, len(entries))
	resolved := make(map[string]model.RoundAction, len(entries))
	for _, e := range entries {
		if _, dup := scores[e.PlayerID]; dup {
			return s, model.Validationf("player scored twice").With("player", e.PlayerID)
		}
		score, action, err := e.Resolve(s.Config)
		if err != nil {
			return s, err
		}
		scores[e.PlayerID] = score
		resolved[e.PlayerID] = model.RoundAction{PlayerID: e.PlayerID, ActionType: action, Score: score, Timestamp: now}
	}

	next := s.Clone()
	actions := make([]model.RoundAction, 0, len(resolved))
	for _, id := range next.PlayingIDs() {
		if a, ok := resolved[id]; ok {
			actions = append(actions, a)
		}
	}
	if _, err := ledger.AppendRound(&next, scores, actions, now); err != nil {
		return s, err
	}
	recompute(&next)
	return next, nil
}

// EditRound corrects the scores of a recorded round and replays the ledger.
func (c *Controller) EditRound(s model.Session, n int, scores map[string]int) (model.Session, error) {
	if err := requireState(&s, "edit a round", model.StateActive, model.StatePaused); err != nil {
		return s, err
	}
	next := s.Clone()
	if err := ledger.EditRound(&next, n, scores, c.stamp()); err != nil {
		return s, err
	}
	recompute(&next)
	return next, nil
}

// RemovePlayer takes a player out of the game. Their rounds stay in the
// ledger. Removing a removed player is a no-op.
func (c *Controller) RemovePlayer(s model.Session, id string) (model.Session, error) {
	if err := requireState(&s, "remove a player", model.StateActive, model.StatePaused); err != nil {
		return s, err
	}
	next := s.Clone()
	i := indexOf(next.Players, id)
	if i < 0 {
		return s, model.NotFoundf("unknown player").With("player", id)
	}
	next.Players[i].IsActive = false
	return next, nil
}

// ReEnter brings an eliminated player back at the field's current worst
// standing. Only allowed before another round is recorded.
func (c *Controller) ReEnter(s model.Session, id string) (model.Session, error) {
	if err := requireState(&s, "re-enter a player", model.StateActive, model.StatePaused); err != nil {
		return s, err
	}
	next := s.Clone()
	i := indexOf(next.Players, id)
	if i < 0 {
		return s, model.NotFoundf("unknown player").With("player", id)
	}
	if err := eligibility.CheckReEnter(next.Players[i], next.Players, next.Rounds, next.Config); err != nil {
		return s, err
	}

	start := scoring.Handicap(next.Players)
	p := &next.Players[i]
	p.IsEliminated = false
	p.IsActive = true
	p.EliminatedAt = nil
	p.TotalScore = start
	p.ReEntryCount++
	next.ReEntries = append(next.ReEntries, model.ReEntry{PlayerID: id, AfterRound: next.CurrentRound, Score: start})
	recompute(&next)
	return next, nil
}

// AddPlayer seats a new or saved player mid-game. The newcomer starts at the
// field's current worst standing; with a non-empty ledger that handicap is
// written into the earliest round so replays keep it.
func (c *Controller) AddPlayer(s model.Session, np types.NewPlayer) (model.Session, model.Player, error) {
	if err := requireState(&s, "add a player", model.StateActive, model.StatePaused); err != nil {
		return s, model.Player{}, err
	}
	name := strings.TrimSpace(np.Name)
	if name == "" {
		return s, model.Player{}, model.Validationf("player name is required")
	}
	if err := eligibility.CheckAddPlayer(s.Players, s.Config, c.maxPlayers, name); err != nil {
		return s, model.Player{}, err
	}
	id := np.ID
	if id == "" {
		id = c.newID()
	}
	if indexOf(s.Players, id) >= 0 {
		return s, model.Player{}, model.Eligibilityf("player already in this game").With("player", id)
	}

	next := s.Clone()
	start := scoring.Handicap(next.Players)
	p := model.Player{ID: id, Name: name, IsActive: true, JoinedAfterRound: next.CurrentRound}
	next.Players = append(next.Players, p)

	if len(next.Rounds) == 0 {
		next.Players[len(next.Players)-1].TotalScore = start
	} else {
		ledger.Backfill(&next, id, start)
		recompute(&next)
	}
	added, _ := next.Player(id)
	return next, added, nil
}

// Pause suspends round entry.
func (c *Controller) Pause(s model.Session) (model.Session, error) {
	if err := requireState(&s, "pause", model.StateActive); err != nil {
		return s, err
	}
	next := s.Clone()
	next.IsPaused = true
	return next, nil
}

// Resume re-opens round entry.
func (c *Controller) Resume(s model.Session) (model.Session, error) {
	if err := requireState(&s, "resume", model.StatePaused); err != nil {
		return s, err
	}
	next := s.Clone()
	next.IsPaused = false
	return next, nil
}

// EndGame freezes the ledger.
func (c *Controller) EndGame(s model.Session) (model.Session, error) {
	if err := requireState(&s, "end the game", model.StateActive, model.StatePaused); err != nil {
		return s, err
	}
	next := s.Clone()
	next.IsActive = false
	next.IsPaused = false
	return next, nil
}

// Recompute rebuilds the registry of s from its ledger and re-entry log.
func Recompute(s model.Session) model.Session {
	next := s.Clone()
	recompute(&next)
	return next
}

func recompute(s *model.Session) {
	s.Rounds = scoring.SortRounds(s.Rounds)
	s.Players = scoring.Recompute(s.Rounds, s.Players, s.Config, scoring.WithReEntries(s.ReEntries))
}

func requireState(s *model.Session, action string, allowed ...model.State) error {
	state := s.State()
	for _, a := range allowed {
		if state == a {
			return nil
		}
	}
	return model.Statef("cannot %s while game is %s", action, state).With("state", string(state))
}

func indexOf(players []model.Player, id string) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
