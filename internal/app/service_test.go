package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	service "github.com/okian/rummy/internal/app"
	"github.com/okian/rummy/internal/adapters/repository"
	"github.com/okian/rummy/internal/domain/game"
	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/types"
	"github.com/okian/rummy/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newService(store repository.Store, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithStore(store),
		service.WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }),
		service.WithIDGenerator(sequence("id")),
		service.WithPersistTimeout(time.Second),
	}
	svc := service.New(append(base, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func seat(names ...string) []types.NewPlayer {
	out := make([]types.NewPlayer, len(names))
	for i, n := range names {
		out[i] = types.NewPlayer{Name: n}
	}
	return out
}

// failingStore refuses session writes.
type failingStore struct {
	*repository.MemoryStore
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestServiceNotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Then commands are refused", func() {
			_, err := svc.SubmitRound(context.Background(), nil)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Discard(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then flushing is a no-op", func() {
			So(svc.Flush(context.Background()), ShouldBeNil)
		})
	})
}

func TestServiceGame(t *testing.T) {
	Convey("Given a started service over an in-memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := newService(store, service.WithDefaultConfig("quick"))
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Then the catalogue is seeded and stored", func() {
			c, err := store.LoadCatalogue(ctx)
			So(err, ShouldBeNil)
			So(c.SelectedID, ShouldEqual, "quick")
			So(len(c.Configs), ShouldEqual, 3)
		})

		Convey("When a game is started without naming a rule set", func() {
			s, err := svc.StartNewGame(ctx, seat("Asha", "Ben", "Cy"), "")
			So(err, ShouldBeNil)

			Convey("Then the selected rule set is used", func() {
				So(s.GameID, ShouldEqual, "id-4")
				So(s.Config.ID, ShouldEqual, "quick")
				So(s.State(), ShouldEqual, model.StateActive)
			})

			Convey("Then every seated player is saved to the roster", func() {
				saved := svc.SavedPlayers()
				So(len(saved), ShouldEqual, 3)
				for _, p := range saved {
					So(p.GamesPlayed, ShouldEqual, 1)
				}
				stored, err := store.LoadRoster(ctx)
				So(err, ShouldBeNil)
				So(len(stored), ShouldEqual, 3)
			})

			Convey("And a round is submitted and flushed", func() {
				s, err = svc.SubmitRound(ctx, []types.ScoreEntry{
					types.Points("id-1", 0),
					types.Drop("id-2", model.ActionFirstDrop),
					types.Drop("id-3", model.ActionFullCount),
				})
				So(err, ShouldBeNil)
				So(svc.Flush(ctx), ShouldBeNil)

				Convey("Then the totals use the game's penalties", func() {
					So(s.CurrentRound, ShouldEqual, 1)
					standings := svc.Standings()
					So(standings[0].Name, ShouldEqual, "Asha")
					So(standings[1].TotalScore, ShouldEqual, 15)
					So(standings[2].TotalScore, ShouldEqual, 60)
				})

				Convey("Then the store holds the latest snapshot as the current game", func() {
					current, err := store.Current(ctx)
					So(err, ShouldBeNil)
					So(current, ShouldEqual, "id-4")
					blob, err := store.Load(ctx, current)
					So(err, ShouldBeNil)
					stored, err := game.Unmarshal(blob)
					So(err, ShouldBeNil)
					So(stored, ShouldResemble, svc.Session())
				})

				Convey("Then a fresh service restores it", func() {
					other := newService(store)
					defer func() { _ = other.Stop(ctx) }()
					restored, err := other.Restore(ctx)
					So(err, ShouldBeNil)
					So(restored, ShouldResemble, svc.Session())
				})

				Convey("Then a rejected round changes nothing", func() {
					before := svc.Session()
					_, err := svc.SubmitRound(ctx, []types.ScoreEntry{
						types.Points("id-1", 0),
						types.Points("id-2", 0),
						types.Points("id-3", 10),
					})
					So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
					So(svc.Session(), ShouldResemble, before)
				})

				Convey("Then an edit replays the ledger", func() {
					s, err := svc.EditRound(ctx, 1, map[string]int{"id-1": 5, "id-2": 0, "id-3": 10})
					So(err, ShouldBeNil)
					p, _ := s.Player("id-1")
					So(p.TotalScore, ShouldEqual, 5)
				})
			})

			Convey("And a removed player is added back by name", func() {
				_, err := svc.RemovePlayer(ctx, "id-3")
				So(err, ShouldBeNil)
				_, added, err := svc.AddPlayer(ctx, types.NewPlayer{Name: "Cy"})

				Convey("Then they take a new seat under a fresh id", func() {
					So(err, ShouldBeNil)
					So(added.Name, ShouldEqual, "Cy")
					So(added.ID, ShouldNotEqual, "id-3")
					So(added.IsActive, ShouldBeTrue)
				})

				Convey("Then the name resolves to the new seat", func() {
					found, err := svc.FindPlayer("cy")
					So(err, ShouldBeNil)
					So(found.ID, ShouldEqual, added.ID)
					old, err := svc.FindPlayer("id-3")
					So(err, ShouldBeNil)
					So(old.IsActive, ShouldBeFalse)
				})
			})

			Convey("And an active player's name is added again", func() {
				_, _, err := svc.AddPlayer(ctx, types.NewPlayer{Name: "asha"})

				Convey("Then the add is refused", func() {
					So(errors.Is(err, model.ErrEligibility), ShouldBeTrue)
				})
			})

			Convey("And a new name joins mid-game", func() {
				_, added, err := svc.AddPlayer(ctx, types.NewPlayer{Name: "Dee"})
				So(err, ShouldBeNil)

				Convey("Then the newcomer is seated and remembered", func() {
					So(added.Name, ShouldEqual, "Dee")
					found, err := svc.FindPlayer("dee")
					So(err, ShouldBeNil)
					So(found.ID, ShouldEqual, added.ID)
					saved, err := svc.LookupSavedPlayer("DEE")
					So(err, ShouldBeNil)
					So(saved.ID, ShouldEqual, added.ID)
				})
			})

			Convey("And the game is paused", func() {
				_, err := svc.Pause(ctx)
				So(err, ShouldBeNil)

				Convey("Then rounds are refused until it resumes", func() {
					_, err := svc.SubmitRound(ctx, nil)
					So(errors.Is(err, model.ErrInvalidState), ShouldBeTrue)
					s, err := svc.Resume(ctx)
					So(err, ShouldBeNil)
					So(s.State(), ShouldEqual, model.StateActive)
				})
			})

			Convey("And the game is ended then discarded", func() {
				_, err := svc.EndGame(ctx)
				So(err, ShouldBeNil)
				id, err := svc.Discard(ctx)
				So(err, ShouldBeNil)
				So(id, ShouldEqual, "id-4")
				So(svc.Flush(ctx), ShouldBeNil)

				Convey("Then nothing is left to resume", func() {
					_, err := store.Current(ctx)
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
					_, err = store.Load(ctx, "id-4")
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
					live := svc.Session()
					So(live.State(), ShouldEqual, model.StateNotStarted)
				})

				Convey("Then a second discard is refused", func() {
					_, err := svc.Discard(ctx)
					So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("And the session is exported and imported elsewhere", func() {
				blob, err := svc.Export()
				So(err, ShouldBeNil)
				other := newService(repository.NewMemoryStore())
				defer func() { _ = other.Stop(ctx) }()
				imported, err := other.Import(ctx, blob)

				Convey("Then both services hold the same game", func() {
					So(err, ShouldBeNil)
					So(imported, ShouldResemble, svc.Session())
				})
			})
		})

		Convey("When a game is started with an unknown rule set", func() {
			_, err := svc.StartNewGame(ctx, seat("Asha", "Ben"), "nope")

			Convey("Then it is refused and no game exists", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				So(svc.Session().GameID, ShouldBeEmpty)
				_, err := svc.Export()
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When nothing was ever saved", func() {
			_, err := svc.Restore(ctx)

			Convey("Then restore reports not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestServiceReturningPlayer(t *testing.T) {
	Convey("Given a roster from an earlier game", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := newService(store)
		defer func() { _ = svc.Stop(ctx) }()
		first, err := svc.StartNewGame(ctx, seat("Asha", "Ben"), "")
		So(err, ShouldBeNil)
		asha := first.Players[0].ID

		Convey("When a second game seats the same name", func() {
			second, err := svc.StartNewGame(ctx, seat("ASHA", "Ben"), "standard")
			So(err, ShouldBeNil)

			Convey("Then the saved id and spelling are reused", func() {
				So(second.Players[0].ID, ShouldEqual, asha)
				So(second.Players[0].Name, ShouldEqual, "Asha")
				So(second.GameID, ShouldNotEqual, first.GameID)
				saved, err := svc.LookupSavedPlayer("asha")
				So(err, ShouldBeNil)
				So(saved.GamesPlayed, ShouldEqual, 2)
			})
		})
	})
}

func TestServicePersistFailure(t *testing.T) {
	Convey("Given a store that cannot save sessions", t, func() {
		ctx := context.Background()
		svc := newService(failingStore{repository.NewMemoryStore()})
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a game is started", func() {
			s, err := svc.StartNewGame(ctx, seat("Asha", "Ben"), "")

			Convey("Then the command succeeds in memory", func() {
				So(err, ShouldBeNil)
				So(svc.Session().GameID, ShouldEqual, s.GameID)
			})

			Convey("Then the failure is reported by the next flush only", func() {
				err := svc.Flush(ctx)
				So(errors.Is(err, service.ErrPersist), ShouldBeTrue)
				So(svc.Flush(ctx), ShouldBeNil)
			})
		})
	})
}

func TestServiceCatalogue(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := newService(store)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a rule set is added and selected", func() {
			cfg, err := svc.AddConfig(ctx, model.Configuration{ID: "club", Name: "Club", FirstDropPenalty: 10, MiddleDropPenalty: 30, FullCountPenalty: 60, MaxScore: 201})
			So(err, ShouldBeNil)
			So(svc.SelectConfig(ctx, cfg.ID), ShouldBeNil)

			Convey("Then new games use it and the store has it", func() {
				s, err := svc.StartNewGame(ctx, seat("Asha", "Ben"), "")
				So(err, ShouldBeNil)
				So(s.Config.MaxScore, ShouldEqual, 201)
				stored, err := store.LoadCatalogue(ctx)
				So(err, ShouldBeNil)
				So(stored.SelectedID, ShouldEqual, "club")
			})

			Convey("Then it can be updated and deleted", func() {
				cfg.MaxScore = 301
				So(svc.UpdateConfig(ctx, cfg), ShouldBeNil)
				c := svc.Catalogue()
				got, err := c.Get("club")
				So(err, ShouldBeNil)
				So(got.MaxScore, ShouldEqual, 301)

				So(svc.DeleteConfig(ctx, "club"), ShouldBeNil)
				So(svc.Catalogue().SelectedID, ShouldEqual, "standard")
			})
		})

		Convey("When the default rule set is deleted", func() {
			err := svc.DeleteConfig(ctx, "standard")

			Convey("Then it is refused", func() {
				So(errors.Is(err, model.ErrEligibility), ShouldBeTrue)
				So(len(svc.Catalogue().Configs), ShouldEqual, 3)
			})
		})

		Convey("When presets are imported and exported", func() {
			n, err := svc.ImportConfigs(ctx, []byte(`
presets:
  - id: pub
    name: Pub Rules
    first_drop_penalty: 10
    middle_drop_penalty: 20
    full_count_penalty: 40
    max_score: 120
`))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			out, err := svc.ExportConfigs(false)
			So(err, ShouldBeNil)

			Convey("Then only user presets are exported", func() {
				So(string(out), ShouldContainSubstring, "Pub Rules")
				So(string(out), ShouldNotContainSubstring, "Standard Rules")
			})
		})

		Convey("When the roster is edited directly", func() {
			p, err := svc.AddSavedPlayer(ctx, "Asha")
			So(err, ShouldBeNil)
			So(svc.RenameSavedPlayer(ctx, p.ID, "Asha K"), ShouldBeNil)
			_, err = svc.AddSavedPlayer(ctx, "asha k")

			Convey("Then duplicate names are refused and deletes persist", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				So(svc.DeleteSavedPlayer(ctx, p.ID), ShouldBeNil)
				stored, err := store.LoadRoster(ctx)
				So(err, ShouldBeNil)
				So(stored, ShouldBeEmpty)
			})
		})
	})
}

// gatedStore holds session writes until the gate opens.
type gatedStore struct {
	*repository.MemoryStore
	gate chan struct{}
}

func (g gatedStore) Save(ctx context.Context, gameID string, blob []byte) error {
	select {
	case <-g.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.MemoryStore.Save(ctx, gameID, blob)
}

func TestServiceQueueFull(t *testing.T) {
	Convey("Given a one-slot queue and a store that is not writing yet", t, func() {
		ctx := context.Background()
		store := gatedStore{MemoryStore: repository.NewMemoryStore(), gate: make(chan struct{})}
		svc := newService(store, service.WithQueueSize(1))
		defer func() { _ = svc.Stop(ctx) }()

		s, err := svc.StartNewGame(ctx, seat("Asha", "Ben"), "")
		So(err, ShouldBeNil)

		Convey("When more commands arrive than the queue holds", func() {
			for i := 0; i < 3; i++ {
				_, err := svc.SubmitRound(ctx, []types.ScoreEntry{
					types.Points(s.Players[0].ID, 0),
					types.Points(s.Players[1].ID, 10),
				})
				So(err, ShouldBeNil)
			}
			close(store.gate)

			Convey("Then a flush writes the latest snapshot without errors", func() {
				So(svc.Flush(ctx), ShouldBeNil)
				current, err := store.Current(ctx)
				So(err, ShouldBeNil)
				So(current, ShouldEqual, s.GameID)
				blob, err := store.Load(ctx, current)
				So(err, ShouldBeNil)
				stored, err := game.Unmarshal(blob)
				So(err, ShouldBeNil)
				So(stored.CurrentRound, ShouldEqual, 3)
				So(stored, ShouldResemble, svc.Session())
			})
		})
	})
}

func TestServiceUnreadableGame(t *testing.T) {
	Convey("Given a store whose current game cannot be decoded", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		So(store.Save(ctx, "broken", []byte("{")), ShouldBeNil)
		So(store.SetCurrent(ctx, "broken"), ShouldBeNil)
		svc := newService(store)
		defer func() { _ = svc.Stop(ctx) }()

		_, err := svc.Restore(ctx)
		So(err, ShouldNotBeNil)
		So(errors.Is(err, repository.ErrNotFound), ShouldBeFalse)

		Convey("When it is discarded", func() {
			id, err := svc.Discard(ctx)
			So(err, ShouldBeNil)
			So(svc.Flush(ctx), ShouldBeNil)

			Convey("Then the stored game is gone", func() {
				So(id, ShouldEqual, "broken")
				_, err := store.Current(ctx)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = store.Load(ctx, "broken")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a new game is started instead", func() {
			s, err := svc.StartNewGame(ctx, seat("Asha", "Ben"), "")
			So(err, ShouldBeNil)
			So(svc.Flush(ctx), ShouldBeNil)

			Convey("Then it becomes the game to resume", func() {
				current, err := store.Current(ctx)
				So(err, ShouldBeNil)
				So(current, ShouldEqual, s.GameID)
			})
		})
	})
}
