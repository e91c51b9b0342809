package eligibility_test

import (
	"errors"
	"testing"

	eligibility "github.com/okian/rummy/internal/domain/eligibility"
	model "github.com/okian/rummy/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func cfg() model.Configuration {
	return model.Configuration{FirstDropPenalty: 20, MiddleDropPenalty: 40, FullCountPenalty: 80, MaxScore: 250}
}

func TestCompulsory(t *testing.T) {
	Convey("Given P1 at 235 against a threshold of 230", t, func() {
		players := []model.Player{
			{ID: "P1", Name: "P1", IsActive: true, TotalScore: 235},
			{ID: "P2", Name: "P2", IsActive: true, TotalScore: 100},
		}

		Convey("Then P1 is compulsory", func() {
			So(eligibility.IsAnyPlayerCompulsory(players, cfg()), ShouldBeTrue)
			So(eligibility.Compulsory(players, cfg()), ShouldResemble, []string{"P1"})
		})

		Convey("Then eliminated or removed players do not count", func() {
			players[0].IsEliminated = true
			So(eligibility.IsAnyPlayerCompulsory(players, cfg()), ShouldBeFalse)
			players[0].IsEliminated = false
			players[0].IsActive = false
			So(eligibility.IsAnyPlayerCompulsory(players, cfg()), ShouldBeFalse)
		})

		Convey("Then the threshold is inclusive", func() {
			players[0].TotalScore = 230
			So(eligibility.IsAnyPlayerCompulsory(players, cfg()), ShouldBeTrue)
			players[0].TotalScore = 229
			So(eligibility.IsAnyPlayerCompulsory(players, cfg()), ShouldBeFalse)
		})
	})
}

func TestReEnter(t *testing.T) {
	Convey("Given P3 eliminated at round 4", t, func() {
		at := 4
		p3 := model.Player{ID: "P3", Name: "P3", IsActive: true, IsEliminated: true, EliminatedAt: &at, TotalScore: 320}
		players := []model.Player{
			{ID: "P1", IsActive: true, TotalScore: 0},
			{ID: "P2", IsActive: true, TotalScore: 100},
			p3,
		}
		rounds := []model.Round{{RoundNumber: 1}, {RoundNumber: 2}, {RoundNumber: 3}, {RoundNumber: 4}}

		Convey("When no later round exists", func() {
			Convey("Then re-entry is allowed", func() {
				So(eligibility.CanReEnter(p3, players, rounds, cfg()), ShouldBeTrue)
			})
		})

		Convey("When round 5 has been recorded", func() {
			rounds = append(rounds, model.Round{RoundNumber: 5})
			err := eligibility.CheckReEnter(p3, players, rounds, cfg())

			Convey("Then the window is closed", func() {
				So(errors.Is(err, model.ErrEligibility), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "window closed")
			})
		})

		Convey("When another player is compulsory", func() {
			players[1].TotalScore = 235
			err := eligibility.CheckReEnter(p3, players, rounds, cfg())

			Convey("Then re-entry is blocked", func() {
				So(errors.Is(err, model.ErrEligibility), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "compulsory=P2")
			})
		})

		Convey("When the player is not eliminated", func() {
			err := eligibility.CheckReEnter(players[0], players, rounds, cfg())

			Convey("Then re-entry is refused", func() {
				So(errors.Is(err, model.ErrEligibility), ShouldBeTrue)
			})
		})

		Convey("When the player was removed", func() {
			p3.IsActive = false
			So(eligibility.CanReEnter(p3, players, rounds, cfg()), ShouldBeFalse)
		})
	})
}

func TestAddPlayer(t *testing.T) {
	Convey("Given two seated players", t, func() {
		players := []model.Player{
			{ID: "a", Name: "Asha", IsActive: true, TotalScore: 40},
			{ID: "b", Name: "Ben", IsActive: true, TotalScore: 80},
		}

		Convey("Then a new name may join", func() {
			So(eligibility.CheckAddPlayer(players, cfg(), 9, "Chen"), ShouldBeNil)
		})

		Convey("Then a case-insensitive duplicate is refused", func() {
			err := eligibility.CheckAddPlayer(players, cfg(), 9, "  asha ")
			So(errors.Is(err, model.ErrEligibility), ShouldBeTrue)
		})

		Convey("Then a removed player's name may be reused", func() {
			players[0].IsActive = false
			So(eligibility.CanAddPlayer(players, cfg(), 9, "Asha"), ShouldBeTrue)
		})

		Convey("Then a full table is refused", func() {
			So(eligibility.CanAddPlayer(players, cfg(), 2, "Chen"), ShouldBeFalse)
		})

		Convey("Then a compulsory player blocks additions", func() {
			players[1].TotalScore = 235
			err := eligibility.CheckAddPlayer(players, cfg(), 9, "Chen")
			So(errors.Is(err, model.ErrEligibility), ShouldBeTrue)
		})
	})
}

func TestSameName(t *testing.T) {
	Convey("SameName folds case", t, func() {
		So(eligibility.SameName("STRASSE", "strasse"), ShouldBeTrue)
		So(eligibility.SameName("Ren", "Rin"), ShouldBeFalse)
	})
}
