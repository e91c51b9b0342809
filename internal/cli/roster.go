package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewRosterCommand creates the roster command group.
func NewRosterCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "roster",
		Short:       "Manage saved players",
		Annotations: noResume(),
	}

	list := func(cmd *cobra.Command) error {
		players := opts.svc.SavedPlayers()
		return opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(players, func(w io.Writer) error {
			return renderRoster(w, players)
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved players, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return list(cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Save a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.svc.AddSavedPlayer(cmd.Context(), args[0]); err != nil {
				return err
			}
			return list(cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename PLAYER NAME",
		Short: "Rename a saved player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := savedPlayerID(opts.svc, args[0])
			if err != nil {
				return err
			}
			if err := opts.svc.RenameSavedPlayer(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			return list(cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete PLAYER",
		Short: "Forget a saved player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := savedPlayerID(opts.svc, args[0])
			if err != nil {
				return err
			}
			if err := opts.svc.DeleteSavedPlayer(cmd.Context(), id); err != nil {
				return err
			}
			return list(cmd)
		},
	})

	return cmd
}
