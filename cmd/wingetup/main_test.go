package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/wingetup/pkg/config"
	"github.com/modoterra/wingetup/pkg/core"
	"github.com/modoterra/wingetup/pkg/queue"
	"github.com/modoterra/wingetup/pkg/runlog"
)

// TestHelperProcess stands in for the package manager when a test config
// points the command at the test binary.
//
// Arguments after "--": <lines> <exit code>
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	args = args[1:]

	n, _ := strconv.Atoi(args[0])
	code, _ := strconv.Atoi(args[1])
	for i := 0; i < n; i++ {
		fmt.Fprintf(os.Stdout, "upgrading package %d\n", i)
	}
	os.Exit(code)
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	configPath = ""
	logLines = 10
	logFollow = false
	configInitForce = false

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeConfig stores a config in a temp dir whose log file also lives there.
func writeConfig(t *testing.T, mutate func(*config.Config)) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.LogFile = filepath.Join(dir, "wingetup.log")
	cfg.PollInterval = 10 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, config.Save(cfg, path))
	return path, cfg
}

func helperCommand(args ...string) []string {
	return append([]string{os.Args[0], "-test.run=TestHelperProcess", "--"}, args...)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "wingetup dev"), out)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)

	out, _, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Generated "+path)

	_, err = os.Stat(path)
	require.NoError(t, err)

	out, _, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "winget")
	assert.Contains(t, out, "poll_interval")
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)

	_, _, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)

	_, _, err = execute(t, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "--config", path, "config", "init", "--force")
	require.NoError(t, err)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("log_level: chatty\n"), 0o644))

	_, _, err := execute(t, "--config", path, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLogCommandPrintsLastEntries(t *testing.T) {
	path, cfg := writeConfig(t, nil)

	f := runlog.Open(cfg.LogFile)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	for i := 0; i < 4; i++ {
		require.NoError(t, f.Append(base.Add(time.Duration(i)*time.Minute), fmt.Sprintf("entry %d", i)))
	}

	out, _, err := execute(t, "--config", path, "log", "-n", "2")
	require.NoError(t, err)
	assert.NotContains(t, out, "entry 1")
	assert.Contains(t, out, "entry 2")
	assert.Contains(t, out, "entry 3")
}

func TestLogCommandWithoutFile(t *testing.T) {
	path, _ := writeConfig(t, nil)

	out, _, err := execute(t, "--config", path, "log")
	require.NoError(t, err)
	assert.Equal(t, "no log entries\n", out)
}

func TestProbeCommand(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")

	path, _ := writeConfig(t, func(c *config.Config) {
		c.Probe = helperCommand("0", "0")
	})
	out, _, err := execute(t, "--config", path, "probe")
	require.NoError(t, err)
	assert.Contains(t, out, "installed")

	path, _ = writeConfig(t, func(c *config.Config) {
		c.Probe = []string{"wingetup-no-such-binary"}
	})
	_, _, err = execute(t, "--config", path, "probe")
	require.Error(t, err)
}

func TestRunStreamsOutputAndSucceeds(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")

	path, cfg := writeConfig(t, func(c *config.Config) {
		c.Command = helperCommand("3", "0")
		c.Probe = helperCommand("0", "0")
	})

	out, stderr, err := execute(t, "--config", path, "run")
	require.NoError(t, err)
	assert.Equal(t, "upgrading package 0\nupgrading package 1\nupgrading package 2\n", out)
	assert.Contains(t, stderr, "Apps updated successfully!")

	entries, err := runlog.ReadEntries(cfg.LogFile)
	require.NoError(t, err)
	var finished bool
	for _, e := range entries {
		if strings.HasPrefix(e.Message, "upgrade finished") {
			finished = true
			assert.Contains(t, e.Message, "exit_code=0")
		}
	}
	assert.True(t, finished, "no completion entry in %s", cfg.LogFile)
}

func TestRunPropagatesExitCode(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")

	path, _ := writeConfig(t, func(c *config.Config) {
		c.Command = helperCommand("1", "3")
		c.Probe = helperCommand("0", "0")
	})

	_, stderr, err := execute(t, "--config", path, "run")
	var exitErr *exitError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 3, exitErr.code)
	assert.Contains(t, stderr, "Process finished with code: 3")
}

func TestRunWithoutPackageManager(t *testing.T) {
	path, _ := writeConfig(t, func(c *config.Config) {
		c.Command = []string{"wingetup-no-such-binary", "upgrade"}
		c.Probe = []string{"wingetup-no-such-binary", "--version"}
	})

	_, stderr, err := execute(t, "--config", path, "run")
	var exitErr *exitError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 1, exitErr.code)
	assert.Contains(t, stderr, "was not found on the system")
	assert.Contains(t, stderr, "An error occurred during the update")
}

func TestRootWithoutTerminalDoesNotRun(t *testing.T) {
	orig := stdoutIsTerminal
	stdoutIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdoutIsTerminal = orig })

	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	path, cfg := writeConfig(t, func(c *config.Config) {
		c.Command = helperCommand("1", "0")
		c.Probe = helperCommand("0", "0")
	})

	out, _, err := execute(t, "--config", path)
	require.ErrorIs(t, err, errNoTerminal)
	assert.Contains(t, err.Error(), "wingetup run")
	assert.Empty(t, out)

	_, err = os.Stat(cfg.LogFile)
	assert.True(t, os.IsNotExist(err), "no run should have been logged")
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name     string
		terminal core.Event
		want     int
	}{
		{"none", nil, 0},
		{"success", core.Completed{ExitCode: 0}, 0},
		{"nonzero", core.Completed{ExitCode: 7}, 7},
		{"signal", core.Completed{ExitCode: -1}, 1},
		{"failed", core.Failed{Message: "x"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &terminalRecorder{sink: queue.New[core.Event]()}
			if tt.terminal != nil {
				rec.Push(tt.terminal)
			}
			assert.Equal(t, tt.want, rec.exitCode())
		})
	}
}
