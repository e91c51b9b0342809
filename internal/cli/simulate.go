package cli

import (
	"io"

	"github.com/spf13/cobra"

	service "github.com/okian/rummy/internal/app"
	"github.com/okian/rummy/internal/adapters/repository"
	"github.com/okian/rummy/internal/simulate"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	simulate.Config
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:         "simulate",
		Short:       "Play a random game and verify its replay",
		Annotations: noResume(),
		Long: `Play a seeded random game in memory, then check that replaying the final
ledger from scratch reproduces every total and elimination. The current game
and the database are not touched.

Examples:
  rummy simulate --seed 7
  rummy simulate --seed 7 --players 6 --rounds 100 --config quick`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := service.New(append([]service.Option{
				service.WithStore(repository.NewMemoryStore()),
				service.WithPlayerLimits(opts.cfg.MinPlayers, opts.cfg.MaxPlayers),
			}, opts.services...)...)
			if err := svc.Start(ctx); err != nil {
				return WrapExitError(ExitCommandError, "failed to start simulation", err)
			}
			defer func() { _ = svc.Stop(ctx) }()

			stats, err := simulate.Run(ctx, svc, opts.Config)
			if err != nil {
				return WrapExitError(ExitRejected, "simulation failed", err)
			}
			return opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(stats, func(w io.Writer) error {
				return renderSimulation(w, stats)
			})
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&opts.Players, "players", simulate.DefaultPlayers, "number of players")
	cmd.Flags().IntVar(&opts.Rounds, "rounds", simulate.DefaultRounds, "maximum rounds")
	cmd.Flags().StringVar(&opts.ConfigID, "config", "", "rule set id")
	cmd.Flags().Float64Var(&opts.ReEntryRate, "reentry-rate", simulate.DefaultReEntryRate, "chance a knocked-out player re-enters")
	cmd.Flags().Float64Var(&opts.EditRate, "edit-rate", simulate.DefaultEditRate, "chance per round of correcting an earlier round")
	return cmd
}
