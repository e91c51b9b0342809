package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/okian/rummy/internal/domain/catalogue"
	"github.com/okian/rummy/internal/domain/eligibility"
	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/types"
	"github.com/okian/rummy/internal/simulate"
)

// GameView is the JSON shape of a game with its scoreboard.
type GameView struct {
	Session    model.Session    `json:"session"`
	Standings  []types.Standing `json:"standings"`
	Compulsory []string         `json:"compulsory,omitempty"`
}

func newGameView(s model.Session, standings []types.Standing) GameView {
	return GameView{Session: s, Standings: standings, Compulsory: eligibility.Compulsory(s.Players, s.Config)}
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderGame(w io.Writer, v GameView) error {
	s := v.Session
	if s.GameID == "" {
		_, err := fmt.Fprintln(w, "No game in progress.")
		return err
	}
	fmt.Fprintf(w, "Game %s: %s (max %d), round %d, %s\n", s.GameID, s.Config.Name, s.Config.MaxScore, s.CurrentRound, s.State())

	tw := table(w)
	fmt.Fprintln(tw, "RANK\tPLAYER\tTOTAL\tSTATUS")
	for _, st := range v.Standings {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", st.Rank, st.Name, st.TotalScore, statusText(st))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(v.Compulsory) > 0 {
		names := make([]string, 0, len(v.Compulsory))
		for _, id := range v.Compulsory {
			if p, ok := s.Player(id); ok {
				names = append(names, p.Name)
			}
		}
		fmt.Fprintf(w, "Compulsory play: %s\n", strings.Join(names, ", "))
	}
	return nil
}

func statusText(st types.Standing) string {
	text := string(st.Status)
	if st.Status == types.StatusEliminated && st.EliminatedAt != nil {
		text += "@" + strconv.Itoa(*st.EliminatedAt)
	}
	if st.ReEntryCount > 0 {
		text += fmt.Sprintf(" (re-entered x%d)", st.ReEntryCount)
	}
	return text
}

func renderHistory(w io.Writer, s model.Session) error {
	if len(s.Rounds) == 0 {
		_, err := fmt.Fprintln(w, "No rounds recorded.")
		return err
	}

	tw := table(w)
	header := []string{"ROUND"}
	for _, p := range s.Players {
		header = append(header, p.Name)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range s.Rounds {
		row := []string{strconv.Itoa(r.RoundNumber)}
		for _, p := range s.Players {
			if v, ok := r.Scores[p.ID]; ok {
				row = append(row, strconv.Itoa(v))
			} else {
				row = append(row, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	totals := []string{"TOTAL"}
	for _, p := range s.Players {
		totals = append(totals, strconv.Itoa(p.TotalScore))
	}
	fmt.Fprintln(tw, strings.Join(totals, "\t"))
	return tw.Flush()
}

func renderConfigs(w io.Writer, c catalogue.Catalogue) error {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tFIRST\tMIDDLE\tFULL\tMAX\tDEFAULT")
	for _, cfg := range c.Configs {
		def := "no"
		if cfg.IsDefault {
			def = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			cfg.ID, cfg.Name, cfg.FirstDropPenalty, cfg.MiddleDropPenalty, cfg.FullCountPenalty, cfg.MaxScore, def)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Selected: %s\n", c.SelectedID)
	return err
}

func renderRoster(w io.Writer, players []model.SavedPlayer) error {
	if len(players) == 0 {
		_, err := fmt.Fprintln(w, "No saved players.")
		return err
	}
	tw := table(w)
	fmt.Fprintln(tw, "NAME\tGAMES\tLAST PLAYED")
	for _, p := range players {
		last := "never"
		if p.LastUsed > 0 {
			last = time.UnixMilli(p.LastUsed).UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Name, p.GamesPlayed, last)
	}
	return tw.Flush()
}

func renderSimulation(w io.Writer, stats simulate.Stats) error {
	winner := stats.Winner
	if winner == "" {
		winner = "none"
	}
	tw := table(w)
	fmt.Fprintf(tw, "Game\t%s\n", stats.GameID)
	fmt.Fprintf(tw, "Rounds\t%d\n", stats.RoundsPlayed)
	fmt.Fprintf(tw, "Edits\t%d\n", stats.Edits)
	fmt.Fprintf(tw, "Eliminations\t%d\n", stats.Eliminations)
	fmt.Fprintf(tw, "Re-entries\t%d (%d refused)\n", stats.ReEntries, stats.Rejected)
	fmt.Fprintf(tw, "Winner\t%s\n", winner)
	fmt.Fprintln(tw, "Replay\tverified")
	return tw.Flush()
}
