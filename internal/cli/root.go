// Package cli implements the rummy command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/rummy/internal/app"
	"github.com/okian/rummy/internal/adapters/repository"
	"github.com/okian/rummy/internal/config"
	"github.com/okian/rummy/pkg/logger"
	"github.com/okian/rummy/pkg/metrics"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	DBPath     string

	// services is appended to the options every command builds its service with.
	services []service.Option

	cfg   *config.Config
	store *repository.SQLiteStore
	svc   *service.Service
}

// annotationNoResume marks commands that still run when the stored game
// cannot be resumed. Subcommands inherit it.
const annotationNoResume = "rummy/no-resume"

// defaultStopTimeout bounds the final flush when no config was loaded.
const defaultStopTimeout = 5 * time.Second

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rummy CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rummy",
		Short: "Score keeper for elimination rummy",
		Long: `Keep the score ledger of a rummy elimination game.

Rounds are recorded as per-player penalty points. A player whose running
total reaches the rule set's maximum is eliminated; the game resumes from the
local database on every invocation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.open(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config-file", "", "YAML config file (default $"+config.EnvFile+")")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path (overrides db_path)")

	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewRoundCommand(opts))
	cmd.AddCommand(NewPlayerCommand(opts))
	cmd.AddCommand(NewLifecycleCommands(opts)...)
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewRosterCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))

	return cmd
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return run(ctx, &RootOptions{}, args, stdout, stderr)
}

func run(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if closeErr := opts.close(ctx); closeErr != nil && err == nil {
		err = WrapExitError(ExitCommandError, "saving game failed", closeErr)
	}
	if err == nil {
		return ExitSuccess
	}

	f := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
	_ = f.Fail(err)
	return GetExitCode(err)
}

// open loads configuration, opens the database and resumes the current game.
func (o *RootOptions) open(cmd *cobra.Command) error {
	ctx := cmd.Context()

	var (
		cfg *config.Config
		err error
	)
	if o.ConfigFile != "" {
		cfg, err = config.LoadFrom(ctx, o.ConfigFile)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	o.cfg = cfg

	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithFormat(cfg.LogFormat), logger.WithSource(o.Verbose)); err != nil {
		return WrapExitError(ExitCommandError, "failed to init logger", err)
	}
	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}

	store, err := repository.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	o.store = store

	svc := service.New(append([]service.Option{
		service.WithStore(store),
		service.WithPlayerLimits(cfg.MinPlayers, cfg.MaxPlayers),
		service.WithQueueSize(cfg.PersistQueueSize),
		service.WithPersistTimeout(cfg.PersistTimeout()),
		service.WithDefaultConfig(cfg.DefaultConfigID),
	}, o.services...)...)
	if err := svc.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start", err)
	}
	o.svc = svc

	if _, err := svc.Restore(ctx); err != nil && !errors.Is(err, repository.ErrNotFound) {
		if !runsWithoutGame(cmd) {
			return WrapExitError(ExitCommandError, "failed to resume game (run discard or new)", err)
		}
		logger.Get().Warn(ctx, "stored game could not be resumed",
			logger.String("command", cmd.CommandPath()),
			logger.Error(err),
		)
	}
	return nil
}

func runsWithoutGame(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationNoResume]; ok {
			return true
		}
	}
	return false
}

func noResume() map[string]string {
	return map[string]string{annotationNoResume: "true"}
}

// close flushes pending writes, exports metrics and closes the database.
// The flush outlives cancellation of ctx so an interrupted command still
// saves what it applied.
func (o *RootOptions) close(ctx context.Context) error {
	var errs []error
	if o.svc != nil {
		timeout := defaultStopTimeout
		if o.cfg != nil {
			timeout = o.cfg.PersistTimeout()
		}
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		errs = append(errs, o.svc.Stop(stopCtx))
		cancel()
		o.svc = nil
	}
	if o.cfg != nil && o.cfg.MetricsFile != "" {
		errs = append(errs, metrics.WriteTextfile(o.cfg.MetricsFile))
	}
	if o.store != nil {
		errs = append(errs, o.store.Close())
		o.store = nil
	}
	return errors.Join(errs...)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
