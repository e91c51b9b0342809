package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	service "github.com/okian/rummy/internal/app"
	"github.com/okian/rummy/internal/config"
)

// harness runs CLI invocations against one database with deterministic ids
// and a fixed clock.
type harness struct {
	t        *testing.T
	db       string
	services []service.Option
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(config.EnvFile, "")
	n := 0
	return &harness{
		t:  t,
		db: filepath.Join(t.TempDir(), "rummy.db"),
		services: []service.Option{
			service.WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }),
			service.WithIDGenerator(func() string {
				n++
				return fmt.Sprintf("id-%d", n)
			}),
		},
	}
}

// run executes one invocation and returns stdout, stderr and the exit code.
func (h *harness) run(args ...string) (string, string, int) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	opts := &RootOptions{services: h.services}
	code := run(context.Background(), opts, append([]string{"--db", h.db}, args...), &out, &errOut)
	return out.String(), errOut.String(), code
}

// mustRun fails the test unless the invocation succeeds.
func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, code := h.run(args...)
	require.Equal(h.t, ExitSuccess, code, "args %v\nstderr: %s", args, errOut)
	return out
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "rummy", cmd.Use)
	assert.Contains(t, cmd.Long, "eliminated")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"new"}, {"round", "submit"}, {"round", "edit"},
		{"player", "remove"}, {"player", "reenter"}, {"player", "add"},
		{"pause"}, {"resume"}, {"end"}, {"discard"},
		{"show"}, {"history"}, {"export"}, {"import"},
		{"config", "list"}, {"config", "add"}, {"config", "update"}, {"config", "delete"},
		{"config", "select"}, {"config", "import"}, {"config", "export"},
		{"roster", "list"}, {"roster", "add"}, {"roster", "rename"}, {"roster", "delete"},
		{"simulate"},
	}

	for _, path := range commands {
		t.Run(fmt.Sprint(path), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	db := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, db)
	assert.Equal(t, "", db.DefValue)
}

func TestNewCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	newCmd, _, err := cmd.Find([]string{"new"})
	require.NoError(t, err)

	player := newCmd.Flags().Lookup("player")
	require.NotNil(t, player)
	assert.Equal(t, "p", player.Shorthand)
	assert.NotNil(t, newCmd.Flags().Lookup("config"))
}

func TestSimulateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sim, _, err := cmd.Find([]string{"simulate"})
	require.NoError(t, err)

	for _, name := range []string{"seed", "players", "rounds", "config", "reentry-rate", "edit-rate"} {
		assert.NotNil(t, sim.Flags().Lookup(name), name)
	}
	assert.Equal(t, "50", sim.Flags().Lookup("rounds").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	h := newHarness(t)
	out, errOut, code := h.run("--format", "xml", "show")

	assert.Equal(t, ExitCommandError, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, `invalid format "xml"`)
}

func TestCloseAfterInterrupt(t *testing.T) {
	h := newHarness(t)
	h.mustRun("new", "Asha", "Ben")

	ctx, cancel := context.WithCancel(context.Background())
	opts := &RootOptions{services: h.services}
	cmd := newRootCommand(opts)
	cmd.SetArgs([]string{"--db", h.db, "round", "submit", "Asha=0", "Ben=30"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.ExecuteContext(ctx))
	cancel()

	require.NoError(t, opts.close(ctx))
	assert.Contains(t, h.mustRun("show"), "round 1, active")
}
