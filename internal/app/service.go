// Package service owns the authoritative game session and applies commands to
// it one at a time. Each accepted command is followed by an asynchronous
// snapshot write through the persistence queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/rummy/internal/adapters/mq/queue"
	"github.com/okian/rummy/internal/adapters/mq/worker"
	"github.com/okian/rummy/internal/adapters/repository"
	"github.com/okian/rummy/internal/domain/catalogue"
	"github.com/okian/rummy/internal/domain/eligibility"
	"github.com/okian/rummy/internal/domain/game"
	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/roster"
	"github.com/okian/rummy/internal/domain/scoring"
	"github.com/okian/rummy/internal/domain/types"
	"github.com/okian/rummy/pkg/logger"
	"github.com/okian/rummy/pkg/metrics"
)

// Service is the single owner of the current session, the configuration
// catalogue and the saved roster.
type Service struct {
	mu sync.Mutex
	// rosterMu orders roster writes; take it before mu.
	rosterMu sync.Mutex

	// Core components
	store     repository.Store
	ctrl      *game.Controller
	queue     *queue.InMemoryQueue
	persister *worker.Persister
	cancel    context.CancelFunc

	// Owned state
	session     model.Session
	version     uint64
	catalogue   catalogue.Catalogue
	roster      *roster.Roster
	rosterDirty bool
	// newest job per game that did not fit in the queue
	dropped map[string]queue.Job
	// game the store points at but that could not be restored
	unreadable string

	// Configuration
	minPlayers      int
	maxPlayers      int
	queueSize       int
	persistTimeout  time.Duration
	defaultConfigID string
	now             func() time.Time
	newID           func() string

	started bool

	errMu       sync.Mutex
	persistErrs []error

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		minPlayers:      game.DefaultMinPlayers,
		maxPlayers:      game.DefaultMaxPlayers,
		queueSize:       64,
		persistTimeout:  5 * time.Second,
		defaultConfigID: catalogue.StandardID,
		now:             time.Now,
		dropped:         make(map[string]queue.Job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the catalogue and roster and starts the persister.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	ctrlOpts := []game.Option{
		game.WithMinPlayers(s.minPlayers),
		game.WithMaxPlayers(s.maxPlayers),
		game.WithClock(s.now),
	}
	if s.newID != nil {
		ctrlOpts = append(ctrlOpts, game.WithIDGenerator(s.newID))
	}
	s.ctrl = game.New(ctrlOpts...)

	if err := s.loadCatalogue(ctx); err != nil {
		return err
	}
	saved, err := s.store.LoadRoster(ctx)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	s.roster = roster.New(saved)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.persister = worker.NewPersister(s.queue, s.store,
		worker.WithTimeout(s.persistTimeout),
		worker.WithErrorHandler(s.recordPersistError),
	)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.persister.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("queue_size", s.queueSize),
		logger.Duration("persist_timeout", s.persistTimeout),
		logger.Int("configs", len(s.catalogue.Configs)),
		logger.Int("saved_players", len(s.roster.Players)),
	)
	return nil
}

func (s *Service) loadCatalogue(ctx context.Context) error {
	c, err := s.store.LoadCatalogue(ctx)
	switch {
	case err == nil:
		s.catalogue = c
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("load catalogue: %w", err)
	}

	c = catalogue.Defaults()
	if selErr := c.Select(s.defaultConfigID); selErr != nil {
		s.logger.Warn(ctx, "default config not in catalogue, using standard",
			logger.String("config", s.defaultConfigID))
	}
	if err := s.store.SaveCatalogue(ctx, c); err != nil {
		return fmt.Errorf("seed catalogue: %w", err)
	}
	s.catalogue = c
	return nil
}

// Stop flushes pending writes and stops the persister. The store is left open.
func (s *Service) Stop(ctx context.Context) error {
	s.saveRoster(ctx)
	flushErr := s.Flush(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping service")
	if err := s.persister.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "persister did not stop", logger.Error(err))
	}
	s.cancel()
	_ = s.queue.Close()
	s.started = false
	s.logger.Info(ctx, "service stopped")
	return flushErr
}

// Flush waits until every snapshot enqueued so far has been handled, queues
// again the snapshots that found the queue full, and reports the writes that
// failed since the previous Flush.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	q := s.queue
	s.mu.Unlock()

	if err := drain(ctx, q); err != nil {
		return err
	}
	resent, err := s.resend(ctx, q)
	if err != nil {
		return err
	}
	if resent {
		if err := drain(ctx, q); err != nil {
			return err
		}
	}

	s.errMu.Lock()
	errs := s.persistErrs
	s.persistErrs = nil
	s.errMu.Unlock()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrPersist, errors.Join(errs...))
	}
	return nil
}

func drain(ctx context.Context, q *queue.InMemoryQueue) error {
	barrier, ack := queue.Barrier()
	if err := q.EnqueueWait(ctx, barrier); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush: %w", ctx.Err())
	}
}

// resend queues the dropped jobs oldest first. Jobs it could not queue are
// kept for the next Flush.
func (s *Service) resend(ctx context.Context, q *queue.InMemoryQueue) (bool, error) {
	s.mu.Lock()
	jobs := make([]queue.Job, 0, len(s.dropped))
	for _, job := range s.dropped {
		jobs = append(jobs, job)
	}
	s.dropped = make(map[string]queue.Job)
	s.mu.Unlock()
	if len(jobs) == 0 {
		return false, nil
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Version < jobs[j].Version })
	for i, job := range jobs {
		if err := q.EnqueueWait(ctx, job); err != nil {
			s.mu.Lock()
			for _, left := range jobs[i:] {
				if newer, ok := s.dropped[left.GameID]; !ok || newer.Version < left.Version {
					s.dropped[left.GameID] = left
				}
			}
			s.mu.Unlock()
			return true, fmt.Errorf("flush: %w", err)
		}
	}
	s.logger.Info(ctx, "dropped snapshots queued again", logger.Int("jobs", len(jobs)))
	return true, nil
}

func (s *Service) recordPersistError(_ context.Context, job queue.Job, err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.persistErrs = append(s.persistErrs, fmt.Errorf("game %s v%d: %w", job.GameID, job.Version, err))
}

// Restore makes the store's current game the live session.
func (s *Service) Restore(ctx context.Context) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return model.Session{}, ErrNotStarted
	}

	id, err := s.store.Current(ctx)
	if err != nil {
		return model.Session{}, fmt.Errorf("restore: %w", err)
	}
	blob, err := s.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.unreadable = id
		}
		return model.Session{}, fmt.Errorf("restore %s: %w", id, err)
	}
	restored, err := game.Unmarshal(blob)
	if err != nil {
		s.unreadable = id
		return model.Session{}, fmt.Errorf("restore %s: %w", id, err)
	}
	s.unreadable = ""
	s.session = restored
	s.observe(restored)
	s.logger.Debug(ctx, "session restored",
		logger.String("game_id", id),
		logger.Int("round", restored.CurrentRound),
	)
	return restored.Clone(), nil
}

// Session returns a copy of the live session.
func (s *Service) Session() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// Standings returns the scoreboard of the live session.
func (s *Service) Standings() []types.Standing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return game.Standings(s.session)
}

// FindPlayer resolves a player of the live session by id or by name. A name
// shared by a removed seat and a newer one resolves to the active seat.
func (s *Service) FindPlayer(ref string) (model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.session.Player(ref); ok {
		return p, nil
	}
	var match model.Player
	found := false
	for _, p := range s.session.Players {
		if !eligibility.SameName(p.Name, ref) {
			continue
		}
		if p.IsActive {
			return p, nil
		}
		if !found {
			match, found = p, true
		}
	}
	if found {
		return match, nil
	}
	return model.Player{}, model.NotFoundf("no player %q in this game", ref)
}

// StartNewGame seats players under the given rule set, or the selected one
// when configID is empty. Names matching saved players take their ids; every
// seated player is recorded in the roster.
func (s *Service) StartNewGame(ctx context.Context, players []types.NewPlayer, configID string) (model.Session, error) {
	return s.apply(ctx, "start", func(model.Session) (model.Session, error) {
		cfg, err := s.config(configID)
		if err != nil {
			return model.Session{}, err
		}
		seats := make([]types.NewPlayer, len(players))
		for i, np := range players {
			seats[i] = s.fromRoster(model.Session{}, np)
		}
		next, err := s.ctrl.StartNewGame(seats, cfg)
		if err != nil {
			return model.Session{}, err
		}
		s.remember(ctx, next.Players...)
		return next, nil
	})
}

// SubmitRound records the next round.
func (s *Service) SubmitRound(ctx context.Context, entries []types.ScoreEntry) (model.Session, error) {
	return s.apply(ctx, "submit_round", func(cur model.Session) (model.Session, error) {
		next, err := s.ctrl.SubmitRound(cur, entries)
		if err == nil {
			metrics.RecordRoundRecorded()
		}
		return next, err
	})
}

// EditRound corrects a recorded round.
func (s *Service) EditRound(ctx context.Context, n int, scores map[string]int) (model.Session, error) {
	return s.apply(ctx, "edit_round", func(cur model.Session) (model.Session, error) {
		next, err := s.ctrl.EditRound(cur, n, scores)
		if err == nil {
			metrics.RecordRoundEdited()
		}
		return next, err
	})
}

// RemovePlayer takes a player out of the game.
func (s *Service) RemovePlayer(ctx context.Context, id string) (model.Session, error) {
	return s.apply(ctx, "remove_player", func(cur model.Session) (model.Session, error) {
		return s.ctrl.RemovePlayer(cur, id)
	})
}

// ReEnter brings an eliminated player back.
func (s *Service) ReEnter(ctx context.Context, id string) (model.Session, error) {
	return s.apply(ctx, "reenter", func(cur model.Session) (model.Session, error) {
		next, err := s.ctrl.ReEnter(cur, id)
		if err == nil {
			metrics.RecordReEntry()
		}
		return next, err
	})
}

// AddPlayer seats a player mid-game. New names are saved to the roster.
func (s *Service) AddPlayer(ctx context.Context, np types.NewPlayer) (model.Session, model.Player, error) {
	var added model.Player
	next, err := s.apply(ctx, "add_player", func(cur model.Session) (model.Session, error) {
		next, p, err := s.ctrl.AddPlayer(cur, s.fromRoster(cur, np))
		if err != nil {
			return next, err
		}
		added = p
		metrics.RecordPlayerAdded()
		s.remember(ctx, p)
		return next, nil
	})
	return next, added, err
}

// Pause suspends round entry.
func (s *Service) Pause(ctx context.Context) (model.Session, error) {
	return s.apply(ctx, "pause", s.ctrl.Pause)
}

// Resume re-opens round entry.
func (s *Service) Resume(ctx context.Context) (model.Session, error) {
	return s.apply(ctx, "resume", s.ctrl.Resume)
}

// EndGame freezes the ledger.
func (s *Service) EndGame(ctx context.Context) (model.Session, error) {
	return s.apply(ctx, "end", s.ctrl.EndGame)
}

// Import replaces the live session with a serialized one.
func (s *Service) Import(ctx context.Context, blob []byte) (model.Session, error) {
	return s.apply(ctx, "import", func(model.Session) (model.Session, error) {
		return game.Unmarshal(blob)
	})
}

// Export serializes the live session.
func (s *Service) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.GameID == "" {
		return nil, model.NotFoundf("no game to export")
	}
	return game.Marshal(s.session)
}

// Discard drops the live session and removes it from the store. With no live
// session it removes the stored game that failed to restore, if any. It
// returns the discarded game id.
func (s *Service) Discard(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return "", ErrNotStarted
	}
	id := s.session.GameID
	if id == "" {
		id = s.unreadable
	}
	if id == "" {
		err := model.NotFoundf("no game to discard")
		s.reject(ctx, "discard", id, err)
		return "", err
	}
	s.session = model.Session{}
	s.unreadable = ""
	s.observe(s.session)
	metrics.RecordCommand("discard")
	s.version++
	s.enqueue(ctx, queue.Job{GameID: id, Version: s.version, Clear: true})
	s.logger.Info(ctx, "game discarded", logger.String("game_id", id))
	return id, nil
}

// apply runs a command handler under the lock and swaps the result in on
// success. A rejected command leaves the live session untouched. Roster
// changes are written once the lock is released.
func (s *Service) apply(ctx context.Context, command string, fn func(model.Session) (model.Session, error)) (model.Session, error) {
	out, err := s.commit(ctx, command, fn)
	s.saveRoster(ctx)
	return out, err
}

func (s *Service) commit(ctx context.Context, command string, fn func(model.Session) (model.Session, error)) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return model.Session{}, ErrNotStarted
	}

	before := s.session
	start := time.Now()
	next, err := fn(before)
	if err != nil {
		s.reject(ctx, command, before.GameID, err)
		return before.Clone(), err
	}
	metrics.RecordRecomputeLatency(float64(time.Since(start).Microseconds()) / 1000)

	if eliminated := scoring.Eliminated(before.Players, next.Players); len(eliminated) > 0 && before.GameID == next.GameID {
		metrics.RecordEliminations(len(eliminated))
		s.logger.Info(ctx, "players eliminated",
			logger.String("game_id", next.GameID),
			logger.Any("players", eliminated),
			logger.Int("round", next.CurrentRound),
		)
	}
	s.session = next
	s.observe(next)
	metrics.RecordCommand(command)
	s.logger.Info(ctx, "command applied",
		logger.String("game_id", next.GameID),
		logger.String("command", command),
		logger.Int("round", next.CurrentRound),
		logger.String("state", string(next.State())),
	)

	blob, err := game.Marshal(next)
	if err != nil {
		s.logger.Error(ctx, "encoding snapshot failed", logger.String("game_id", next.GameID), logger.Error(err))
		return next.Clone(), nil
	}
	s.version++
	s.enqueue(ctx, queue.Job{GameID: next.GameID, Version: s.version, Blob: blob})
	return next.Clone(), nil
}

// enqueue hands a job to the persister without waiting. Caller holds mu.
// A job that finds the queue full is kept and queued again by the next
// Flush; any other failure is reported by it. In-memory state stays
// authoritative.
func (s *Service) enqueue(ctx context.Context, job queue.Job) {
	err := s.queue.Enqueue(context.WithoutCancel(ctx), job)
	if err == nil {
		delete(s.dropped, job.GameID)
		return
	}
	metrics.RecordPersistError("enqueue")
	if errors.Is(err, queue.ErrFull) {
		s.dropped[job.GameID] = job
		s.logger.Warn(ctx, "persistence queue full, snapshot deferred",
			logger.String("game_id", job.GameID),
			logger.Any("version", job.Version),
		)
		return
	}
	s.logger.Error(ctx, "queueing snapshot failed",
		logger.String("game_id", job.GameID),
		logger.Any("version", job.Version),
		logger.Error(err),
	)
	s.recordPersistError(ctx, job, err)
}

func (s *Service) reject(ctx context.Context, command, gameID string, err error) {
	kind := string(model.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	metrics.RecordCommandRejected(command, kind)
	s.logger.Warn(ctx, "command rejected",
		logger.String("game_id", gameID),
		logger.String("command", command),
		logger.String("kind", kind),
		logger.String("reason", err.Error()),
	)
}

func (s *Service) observe(sess model.Session) {
	metrics.UpdateActivePlayers(len(sess.PlayingIDs()))
	metrics.UpdateCurrentRound(sess.CurrentRound)
}

func (s *Service) config(id string) (model.Configuration, error) {
	if id == "" {
		return s.catalogue.Selected()
	}
	return s.catalogue.Get(id)
}

// fromRoster gives an unidentified newcomer the id and spelling of the saved
// player with the same name. A saved id already seated in cur, such as a
// removed player coming back, is left for a fresh id.
func (s *Service) fromRoster(cur model.Session, np types.NewPlayer) types.NewPlayer {
	if np.ID != "" {
		return np
	}
	saved, err := s.roster.Lookup(np.Name)
	if err != nil {
		return np
	}
	np.Name = saved.Name
	if _, seated := cur.Player(saved.ID); !seated {
		np.ID = saved.ID
	}
	return np
}

// remember records seated players in the in-memory roster. Caller holds mu;
// the write happens in saveRoster. Roster upkeep never fails a game command.
func (s *Service) remember(ctx context.Context, players ...model.Player) {
	now := s.now().UnixMilli()
	next := roster.New(s.roster.Players)
	for _, p := range players {
		if _, err := next.Get(p.ID); err != nil {
			if _, err := next.Add(p.Name, p.ID, now); err != nil {
				s.logger.Debug(ctx, "player not saved to roster",
					logger.String("player", p.ID), logger.Error(err))
				continue
			}
		}
		_ = next.Touch(p.ID, now)
	}
	s.roster = next
	s.rosterDirty = true
}

// saveRoster writes the roster if a command changed it. The store call runs
// without mu; a failed write leaves the roster marked for the next attempt.
func (s *Service) saveRoster(ctx context.Context) {
	s.rosterMu.Lock()
	defer s.rosterMu.Unlock()

	s.mu.Lock()
	if !s.rosterDirty || s.roster == nil {
		s.mu.Unlock()
		return
	}
	players := append([]model.SavedPlayer(nil), s.roster.Players...)
	s.rosterDirty = false
	s.mu.Unlock()

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()
	if err := s.store.SaveRoster(storeCtx, players); err != nil {
		metrics.RecordPersistError("roster")
		s.logger.Error(ctx, "saving roster failed", logger.Error(err))
		s.mu.Lock()
		s.rosterDirty = true
		s.mu.Unlock()
	}
}
