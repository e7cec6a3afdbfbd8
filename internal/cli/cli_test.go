package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goflags "github.com/jessevdk/go-flags"
	"github.com/okian/gridcast/internal/config"
	"github.com/okian/gridcast/internal/domain/replay"
	"github.com/okian/gridcast/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quiet keeps command logs off the test output.
var quiet = []string{"--log-level", "error"}

// generateRace writes a small race into a temp dir and returns the dir.
func generateRace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var out bytes.Buffer
	args := append(append([]string{}, quiet...), "generate", "--dir", dir, "--drivers", "4", "--laps", "3", "--missing-fraction", "0")
	require.NoError(t, run("test", args, &out))
	assert.Contains(t, out.String(), "race written to "+dir)
	return dir
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run("test", append(append([]string{}, quiet...), args...), &out))
	return out.String()
}

func TestVersionFlag(t *testing.T) {
	var out bytes.Buffer
	err := run("0.1.0-test", []string{"--version"}, &out)

	assert.NoError(t, err)
	assert.Equal(t, "gridcast 0.1.0-test", strings.TrimSpace(out.String()))
}

func TestSubcommandsRecognized(t *testing.T) {
	cases := [][]string{
		{"windows", "--interval", "2.5", "-o", "-", "--format", "yaml"},
		{"replay", "-k", "500", "--min-pause-ms", "0"},
		{"serve", "--addr", ":0", "--max-sessions", "3"},
		{"narrate", "--max-windows", "2", "--state", "s.json", "--reset"},
		{"generate", "--seed", "7", "--drivers", "5", "--missing-fraction", "0.5"},
		{"--data-dir", "race", "--load-workers", "2", "windows"},
	}
	for _, args := range cases {
		parser, _, _ := buildParser("test", &bytes.Buffer{})
		var ran goflags.Commander
		parser.CommandHandler = func(cmd goflags.Commander, _ []string) error {
			ran = cmd
			return nil
		}
		_, err := parser.ParseArgs(args)
		assert.NoError(t, err, "args %v", args)
		assert.NotNil(t, ran, "args %v", args)
	}
}

func TestFlagsReachCommands(t *testing.T) {
	parser, globals, cmds := buildParser("test", &bytes.Buffer{})
	parser.CommandHandler = func(goflags.Commander, []string) error { return nil }

	_, err := parser.ParseArgs([]string{"--data-dir", "race", "narrate", "--max-windows", "0", "--interval", "10"})
	require.NoError(t, err)

	assert.Equal(t, "race", globals.DataDir)
	require.NotNil(t, cmds.Narrate.MaxWindows)
	assert.Equal(t, 0, *cmds.Narrate.MaxWindows)
	assert.Equal(t, 10.0, cmds.Narrate.Interval)
	assert.Same(t, globals, cmds.Narrate.globals)
}

func TestUnknownSubcommand(t *testing.T) {
	err := run("test", []string{"rewind"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestWindowsCommand(t *testing.T) {
	dir := generateRace(t)

	t.Run("writes the document to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "windows.json")
		out := runCLI(t, "--data-dir", dir, "windows", "--interval", "10", "-o", path)
		assert.Contains(t, out, "windows written to "+path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var doc map[string][]map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.NotEmpty(t, doc)
		for _, events := range doc {
			for _, e := range events {
				assert.Contains(t, e, "event_description")
			}
		}
	})

	t.Run("writes YAML to stdout", func(t *testing.T) {
		out := runCLI(t, "--data-dir", dir, "windows", "-o", "-", "--format", "yaml")
		assert.Contains(t, out, "event_type:")
	})

	t.Run("rejects a bad interval", func(t *testing.T) {
		err := run("test", append(append([]string{}, quiet...), "--data-dir", dir, "windows", "--interval=-1"), &bytes.Buffer{})
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("fails on a missing input file", func(t *testing.T) {
		empty := t.TempDir()
		err := run("test", append(append([]string{}, quiet...), "--data-dir", empty, "windows", "-o", "-"), &bytes.Buffer{})
		assert.Error(t, err)
	})
}

// instantSleeper skips every pause.
type instantSleeper struct{ pauses []time.Duration }

func (s *instantSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.pauses = append(s.pauses, d)
	return ctx.Err()
}

func TestReplayCommand(t *testing.T) {
	dir := generateRace(t)
	var out bytes.Buffer
	cmd := &ReplayCommand{
		Acceleration: 100,
		command:      command{globals: &GlobalFlags{DataDir: dir, LogLevel: "error"}, out: &out},
	}
	sl := &instantSleeper{}

	require.NoError(t, cmd.run(context.Background(), replay.WithSleeper(sl)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	assert.Len(t, sl.pauses, len(lines)-1)
	assert.Contains(t, lines[0], " at 2024-09-22 ")
	for _, p := range sl.pauses {
		assert.GreaterOrEqual(t, p, 100*time.Millisecond)
	}
}

// cancellingSleeper interrupts the replay at the first pause.
type cancellingSleeper struct{ cancel context.CancelFunc }

func (s cancellingSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	s.cancel()
	return ctx.Err()
}

func TestReplayCommandInterrupted(t *testing.T) {
	dir := generateRace(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out bytes.Buffer
	cmd := &ReplayCommand{
		command: command{globals: &GlobalFlags{DataDir: dir, LogLevel: "error"}, out: &out},
	}

	assert.NoError(t, cmd.run(ctx, replay.WithSleeper(cancellingSleeper{cancel: cancel})))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestNarrateCommand(t *testing.T) {
	dir := generateRace(t)
	state := filepath.Join(t.TempDir(), "state.json")

	out := runCLI(t, "--data-dir", dir, "narrate", "--state", state, "--max-windows", "2")
	assert.Contains(t, out, "2 windows narrated")

	readState := func() map[string][]string {
		data, err := os.ReadFile(state)
		require.NoError(t, err)
		var s map[string][]string
		require.NoError(t, json.Unmarshal(data, &s))
		return s
	}
	assert.Len(t, readState()["commentator_response"], 2)

	// a second run continues from the saved state
	runCLI(t, "--data-dir", dir, "narrate", "--state", state, "--max-windows", "1")
	assert.Len(t, readState()["commentator_response"], 3)

	runCLI(t, "--data-dir", dir, "narrate", "--state", state, "--max-windows", "1", "--reset")
	assert.Len(t, readState()["commentator_response"], 1)
}

func TestGenerateCommand(t *testing.T) {
	dir := generateRace(t)
	for _, name := range []string{"drivers.json", "positions.json", "laps.json", "pit_stops.json", "overtakes.json"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	err := run("test", append(append([]string{}, quiet...), "generate", "--dir", t.TempDir(), "--drivers", "1"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	dir := generateRace(t)
	cmd := &ServeCommand{MaxWindows: 1, command: command{globals: &GlobalFlags{DataDir: dir, LogLevel: "error"}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg, err := cmd.setup(ctx, cmd.overrides)
	require.NoError(t, err)
	svc, err := startService(ctx, cfg)
	require.NoError(t, err)
	defer svc.Stop()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, svc, cfg) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(url) //nolint:noctx // test request
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, svc.Timeline().Len(), body["events"])

	windows, err := http.Get("http://" + ln.Addr().String() + "/windows?interval=1s") //nolint:noctx // test request
	require.NoError(t, err)
	defer windows.Body.Close()
	assert.Equal(t, http.StatusBadRequest, windows.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gridcast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSetupValidatesAfterFlags(t *testing.T) {
	dir := generateRace(t)
	badInterval := writeConfigFile(t, "interval_seconds: 0\n")
	badAcceleration := writeConfigFile(t, "acceleration: 0\n")

	t.Run("--interval corrects the file's interval", func(t *testing.T) {
		out := runCLI(t, "--config", badInterval, "--data-dir", dir, "windows", "--interval", "10", "-o", "-")
		assert.Contains(t, out, "event_description")
	})

	t.Run("-k corrects the file's acceleration", func(t *testing.T) {
		var out bytes.Buffer
		cmd := &ReplayCommand{
			Acceleration: 5000,
			command:      command{globals: &GlobalFlags{Config: badAcceleration, DataDir: dir, LogLevel: "error"}, out: &out},
		}
		require.NoError(t, cmd.run(context.Background(), replay.WithSleeper(&instantSleeper{})))
		assert.NotEmpty(t, out.String())
	})

	t.Run("an uncorrected value is still rejected", func(t *testing.T) {
		err := run("test", append(append([]string{}, quiet...), "--config", badInterval, "--data-dir", dir, "windows", "-o", "-"), &bytes.Buffer{})
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestSetupConfiguresMetrics(t *testing.T) {
	path := writeConfigFile(t, `
metrics:
  namespace: pitwall
  prefix: cli
  refresh_seconds: 2
  labels:
    circuit: spa
`)
	cmd := &WindowsCommand{command: command{globals: &GlobalFlags{Config: path, LogLevel: "error"}}}
	_, err := cmd.setup(context.Background())
	require.NoError(t, err)
	defer metrics.Configure()

	assert.True(t, metrics.Enabled())
	assert.Equal(t, 2*time.Second, metrics.RefreshInterval())

	metrics.UpdateTimelineSize(3)
	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
	for _, mf := range families {
		assert.True(t, strings.HasPrefix(mf.GetName(), "pitwall_timeline_cli_"), mf.GetName())
		for _, m := range mf.GetMetric() {
			require.NotEmpty(t, m.GetLabel())
		}
	}
}
