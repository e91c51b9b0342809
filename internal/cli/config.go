package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	model "github.com/okian/rummy/internal/domain/model"
)

// ConfigOptions holds flags shared by config add and config update.
type ConfigOptions struct {
	*RootOptions
	ID     string
	Name   string
	First  int
	Middle int
	Full   int
	Max    int
}

func (o *ConfigOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Name, "name", "", "display name")
	cmd.Flags().IntVar(&o.First, "first", 0, "first drop penalty")
	cmd.Flags().IntVar(&o.Middle, "middle", 0, "middle drop penalty")
	cmd.Flags().IntVar(&o.Full, "full", 0, "full count penalty")
	cmd.Flags().IntVar(&o.Max, "max", 0, "elimination score")
}

// apply copies the flags the user set onto cfg.
func (o *ConfigOptions) apply(cmd *cobra.Command, cfg model.Configuration) model.Configuration {
	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Name = o.Name
	}
	if flags.Changed("first") {
		cfg.FirstDropPenalty = o.First
	}
	if flags.Changed("middle") {
		cfg.MiddleDropPenalty = o.Middle
	}
	if flags.Changed("full") {
		cfg.FullCountPenalty = o.Full
	}
	if flags.Changed("max") {
		cfg.MaxScore = o.Max
	}
	return cfg
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Manage rule sets",
		Annotations: noResume(),
	}

	listCatalogue := func(cmd *cobra.Command) error {
		c := rootOpts.svc.Catalogue()
		return rootOpts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(c, func(w io.Writer) error {
			return renderConfigs(w, c)
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List rule sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCatalogue(cmd)
		},
	})

	addOpts := &ConfigOptions{RootOptions: rootOpts}
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a rule set",
		Long: `Add a rule set. Every penalty and the elimination score must be positive.

Example:
  rummy config add --id club --name "Club Night" --first 10 --middle 30 --full 60 --max 201`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := addOpts.apply(cmd, model.Configuration{ID: addOpts.ID})
			if _, err := rootOpts.svc.AddConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			return listCatalogue(cmd)
		},
	}
	add.Flags().StringVar(&addOpts.ID, "id", "", "rule set id (generated when empty)")
	addOpts.bind(add)
	cmd.AddCommand(add)

	updateOpts := &ConfigOptions{RootOptions: rootOpts}
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change a rule set",
		Long:  `Change a rule set. Only the flags given are changed. Running games keep their rules.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := rootOpts.svc.Catalogue()
			cfg, err := c.Get(args[0])
			if err != nil {
				return err
			}
			if err := rootOpts.svc.UpdateConfig(cmd.Context(), updateOpts.apply(cmd, cfg)); err != nil {
				return err
			}
			return listCatalogue(cmd)
		},
	}
	updateOpts.bind(update)
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a rule set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.svc.DeleteConfig(cmd.Context(), args[0]); err != nil {
				return err
			}
			return listCatalogue(cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select ID",
		Short: "Use a rule set for new games",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.svc.SelectConfig(cmd.Context(), args[0]); err != nil {
				return err
			}
			return listCatalogue(cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Merge rule sets from a YAML preset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read presets", err)
			}
			n, err := rootOpts.svc.ImportConfigs(cmd.Context(), data)
			if err != nil {
				return err
			}
			rootOpts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr()).VerboseLog("imported %d rule sets", n)
			return listCatalogue(cmd)
		},
	})

	var withDefaults bool
	export := &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write user rule sets as a YAML preset file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := rootOpts.svc.ExportConfigs(withDefaults)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to encode presets", err)
			}
			if len(args) == 0 {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(args[0], data, 0o600); err != nil {
				return WrapExitError(ExitCommandError, "failed to write presets", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported presets to %s.\n", args[0])
			return err
		},
	}
	export.Flags().BoolVar(&withDefaults, "with-defaults", false, "include built-in rule sets")
	cmd.AddCommand(export)

	return cmd
}
