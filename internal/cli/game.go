package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/scoring"
	"github.com/okian/rummy/internal/domain/types"
)

// NewOptions holds flags for the new command.
type NewOptions struct {
	*RootOptions
	ConfigID string
	Players  []string
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:         "new [PLAYER...]",
		Short:       "Start a new game",
		Annotations: noResume(),
		Long: `Start a new game with the given players.

Players can be listed as arguments or with repeated --player flags. Names that
match saved players reuse them; new names are saved for next time.

Examples:
  rummy new Asha Ben Cy
  rummy new --config quick --player Asha --player Ben`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := append(append([]string(nil), opts.Players...), args...)
			seats := make([]types.NewPlayer, len(names))
			for i, n := range names {
				seats[i] = types.NewPlayer{Name: n}
			}
			s, err := opts.svc.StartNewGame(cmd.Context(), seats, opts.ConfigID)
			if err != nil {
				return err
			}
			return opts.showGame(cmd, s)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigID, "config", "", "rule set id (default: selected)")
	cmd.Flags().StringArrayVarP(&opts.Players, "player", "p", nil, "player name (repeatable)")
	return cmd
}

// NewRoundCommand creates the round command group.
func NewRoundCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "round",
		Short: "Record or correct rounds",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "submit PLAYER=SCORE...",
		Short: "Record the next round",
		Long: `Record the next round. Every player still in the game needs an entry.

A score is a number, or first, middle or full for the rule set's penalties.

Examples:
  rummy round submit Asha=0 Ben=first Cy=full
  rummy round submit Asha=12 Ben=0 Cy=middle`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := parseEntries(opts.svc, args)
			if err != nil {
				return err
			}
			before := opts.svc.Session()
			s, err := opts.svc.SubmitRound(cmd.Context(), entries)
			if err != nil {
				return err
			}
			opts.reportEliminations(cmd, before, s)
			return opts.showGame(cmd, s)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit ROUND PLAYER=SCORE...",
		Short: "Correct the scores of a recorded round",
		Long: `Replace the scores of a recorded round and replay the game from it.

The players listed must be exactly the players scored in that round.

Example:
  rummy round edit 2 Asha=5 Ben=0 Cy=40`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("round must be a number, got %q", args[0]))
			}
			scores, err := parseScores(opts.svc, args[1:])
			if err != nil {
				return err
			}
			s, err := opts.svc.EditRound(cmd.Context(), n, scores)
			if err != nil {
				return err
			}
			return opts.showGame(cmd, s)
		},
	})

	return cmd
}

// NewPlayerCommand creates the player command group.
func NewPlayerCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Change who is playing",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "remove PLAYER",
		Short: "Take a player out of the game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.svc.FindPlayer(args[0])
			if err != nil {
				return err
			}
			s, err := opts.svc.RemovePlayer(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			return opts.showGame(cmd, s)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reenter PLAYER",
		Short: "Bring a player eliminated this round back in",
		Long: `Bring back a player eliminated in the latest round. They restart at the
highest total still in play. Not allowed once another round is recorded or
while anyone is on compulsory play.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.svc.FindPlayer(args[0])
			if err != nil {
				return err
			}
			s, err := opts.svc.ReEnter(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			return opts.showGame(cmd, s)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Seat a new or saved player mid-game",
		Long: `Seat a player in the running game. They start at the highest total still
in play.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.svc.AddPlayer(cmd.Context(), types.NewPlayer{Name: args[0]})
			if err != nil {
				return err
			}
			return opts.showGame(cmd, s)
		},
	})

	return cmd
}

// NewLifecycleCommands creates pause, resume, end and discard.
func NewLifecycleCommands(opts *RootOptions) []*cobra.Command {
	simple := func(use, short string, fn func(cmd *cobra.Command) (model.Session, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := fn(cmd)
				if err != nil {
					return err
				}
				return opts.showGame(cmd, s)
			},
		}
	}

	discard := &cobra.Command{
		Use:         "discard",
		Short:       "Throw away the current game",
		Annotations: noResume(),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := opts.svc.Discard(cmd.Context())
			if err != nil {
				return err
			}
			return opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(
				map[string]string{"discarded": id},
				func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Discarded game %s.\n", id)
					return err
				})
		},
	}

	return []*cobra.Command{
		simple("pause", "Pause round entry", func(cmd *cobra.Command) (model.Session, error) {
			return opts.svc.Pause(cmd.Context())
		}),
		simple("resume", "Resume round entry", func(cmd *cobra.Command) (model.Session, error) {
			return opts.svc.Resume(cmd.Context())
		}),
		simple("end", "End the game and freeze the ledger", func(cmd *cobra.Command) (model.Session, error) {
			return opts.svc.EndGame(cmd.Context())
		}),
		discard,
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the scoreboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.showGame(cmd, opts.svc.Session())
		},
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show every recorded round",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := opts.svc.Session()
			rounds := s.Rounds
			if rounds == nil {
				rounds = []model.Round{}
			}
			return opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(rounds, func(w io.Writer) error {
				return renderHistory(w, s)
			})
		},
	}
}

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the current game as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := opts.svc.Export()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err := cmd.OutOrStdout().Write(append(blob, '\n'))
				return err
			}
			if err := os.WriteFile(args[0], blob, 0o600); err != nil {
				return WrapExitError(ExitCommandError, "failed to write export", err)
			}
			return opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(
				map[string]string{"file": args[0]},
				func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Exported game to %s.\n", args[0])
					return err
				})
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:         "import FILE",
		Short:       "Replace the current game with an exported one",
		Annotations: noResume(),
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read import", err)
			}
			s, err := opts.svc.Import(cmd.Context(), blob)
			if err != nil {
				return err
			}
			return opts.showGame(cmd, s)
		},
	}
}

func (o *RootOptions) showGame(cmd *cobra.Command, s model.Session) error {
	v := newGameView(s, o.svc.Standings())
	return o.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(v, func(w io.Writer) error {
		return renderGame(w, v)
	})
}

func (o *RootOptions) reportEliminations(cmd *cobra.Command, before, after model.Session) {
	f := o.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	for _, id := range scoring.Eliminated(before.Players, after.Players) {
		if p, ok := after.Player(id); ok {
			f.VerboseLog("%s is out with %d", p.Name, p.TotalScore)
		}
	}
}
