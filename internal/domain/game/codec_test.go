package game_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/rummy/internal/domain/game"
	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMarshalRoundTrip(t *testing.T) {
	Convey("Given a game with an eliminated and re-entered player", t, func() {
		c := controller()
		s := throughRound4(c)
		s, err := c.ReEnter(s, "P3")
		So(err, ShouldBeNil)

		Convey("When it is exported and imported", func() {
			data, err := game.Marshal(s)
			So(err, ShouldBeNil)
			back, err := game.Unmarshal(data)

			Convey("Then the session is reproduced", func() {
				So(err, ShouldBeNil)
				So(back, ShouldResemble, s)
			})
		})

		Convey("When the document carries tampered totals", func() {
			var tree map[string]any
			data, _ := game.Marshal(s)
			So(json.Unmarshal(data, &tree), ShouldBeNil)
			tree["players"].([]any)[0].(map[string]any)["totalScore"] = 999
			data, _ = json.Marshal(tree)

			back, err := game.Unmarshal(data)

			Convey("Then totals are rebuilt from the ledger", func() {
				So(err, ShouldBeNil)
				So(player(back, "P1").TotalScore, ShouldEqual, 0)
			})
		})
	})
}

func TestUnmarshalRejects(t *testing.T) {
	Convey("Given malformed documents", t, func() {
		base := func() model.Session {
			return model.Session{
				GameID:       "g1",
				IsActive:     true,
				CurrentRound: 1,
				Players:      []model.Player{{ID: "a", Name: "A", IsActive: true}, {ID: "b", Name: "B", IsActive: true}},
				Rounds:       []model.Round{{RoundNumber: 1, Scores: map[string]int{"a": 0, "b": 10}}},
				Config:       standard(),
			}
		}
		decode := func(s model.Session) error {
			data, err := json.Marshal(s)
			So(err, ShouldBeNil)
			_, err = game.Unmarshal(data)
			return err
		}

		So(decode(base()), ShouldBeNil)

		Convey("Then garbage is rejected", func() {
			_, err := game.Unmarshal([]byte("{nope"))
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then a reused round number is rejected", func() {
			s := base()
			s.Rounds = append(s.Rounds, model.Round{RoundNumber: 1, Scores: map[string]int{"a": 5, "b": 0}})
			So(errors.Is(decode(s), model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then an unknown player in a round is rejected", func() {
			s := base()
			s.Rounds[0].Scores["z"] = 3
			So(errors.Is(decode(s), model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then duplicate players are rejected", func() {
			s := base()
			s.Players = append(s.Players, model.Player{ID: "a", Name: "Again"})
			So(errors.Is(decode(s), model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then a current round behind the ledger is rejected", func() {
			s := base()
			s.CurrentRound = 0
			So(errors.Is(decode(s), model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then a missing game id is rejected", func() {
			s := base()
			s.GameID = ""
			So(errors.Is(decode(s), model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestStandings(t *testing.T) {
	Convey("Given a game after two rounds with one removal", t, func() {
		c := controller()
		s, err := c.StartNewGame([]types.NewPlayer{
			{ID: "c", Name: "Chen"}, {ID: "a", Name: "Asha"}, {ID: "b", Name: "Ben"},
		}, standard())
		So(err, ShouldBeNil)
		s, err = c.SubmitRound(s, []types.ScoreEntry{types.Points("c", 40), types.Points("a", 40), types.Points("b", 0)})
		So(err, ShouldBeNil)
		s, err = c.RemovePlayer(s, "b")
		So(err, ShouldBeNil)

		rows := game.Standings(s)

		Convey("Then rows are ordered by total then name", func() {
			So(len(rows), ShouldEqual, 3)
			So(rows[0].PlayerID, ShouldEqual, "b")
			So(rows[0].Status, ShouldEqual, types.StatusRemoved)
			So(rows[1].Name, ShouldEqual, "Asha")
			So(rows[2].Name, ShouldEqual, "Chen")
			So(rows[2].Rank, ShouldEqual, 3)
			So(rows[1].Status, ShouldEqual, types.StatusPlaying)
		})
	})
}
