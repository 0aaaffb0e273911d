package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/modoterra/wingetup/internal/buildinfo"
	"github.com/modoterra/wingetup/pkg/config"
	"github.com/modoterra/wingetup/pkg/console"
	"github.com/modoterra/wingetup/pkg/core"
	"github.com/modoterra/wingetup/pkg/pump"
	"github.com/modoterra/wingetup/pkg/queue"
	"github.com/modoterra/wingetup/pkg/runlog"
	"github.com/modoterra/wingetup/pkg/runner"
	tuimodel "github.com/modoterra/wingetup/pkg/tui/model"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// exitError carries the child's exit status out of a headless run.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

var rootCmd = &cobra.Command{
	Use:           "wingetup",
	Short:         "Upgrade every installed app with winget",
	Long:          "wingetup runs 'winget upgrade --all', streams its output and reports how it went.",
	RunE:          runTUI,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to wingetup.yaml (default: next to the executable)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// env is the process-wide state resolved once at startup.
type env struct {
	cfg    *config.Config
	log    *runlog.File
	logger *slog.Logger
}

func setup() (*env, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w", path, errors.Join(errs...))
	}
	cfg.Resolve(config.ExecutableDir())

	file := runlog.Open(cfg.LogFile)
	return &env{
		cfg:    cfg,
		log:    file,
		logger: runlog.NewLogger(file, runlog.ParseLevel(cfg.LogLevel)),
	}, nil
}

// acquireLock keeps two instances from upgrading at the same time.
func acquireLock() (func(), error) {
	lock := flock.New(filepath.Join(os.TempDir(), "wingetup.lock"))

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire process lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another wingetup instance is already running")
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to release process lock: %v\n", err)
		}
	}, nil
}

// --- Root: TUI ---

// stdoutIsTerminal reports whether the TUI can take over the screen.
var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var errNoTerminal = errors.New("no terminal attached; use 'wingetup run' to upgrade without the TUI")

func runTUI(cmd *cobra.Command, _ []string) error {
	if !stdoutIsTerminal() {
		return errNoTerminal
	}

	e, err := setup()
	if err != nil {
		return err
	}
	unlock, err := acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	r, err := runner.New(e.cfg, e.logger)
	if err != nil {
		return err
	}

	app := tuimodel.New(e.cfg, r, e.logger)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}

// --- Run (headless) ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the upgrade without the TUI, streaming output to stdout",
	Long:  "run starts the upgrade immediately and streams its output. Use it from scripts and scheduled tasks.",
	Args:  cobra.NoArgs,
	RunE:  runHeadless,
}

// terminalRecorder forwards events and remembers the run's terminal event.
type terminalRecorder struct {
	sink core.Sink

	mu       sync.Mutex
	terminal core.Event
}

func (t *terminalRecorder) Push(e core.Event) {
	if core.IsTerminal(e) {
		t.mu.Lock()
		t.terminal = e
		t.mu.Unlock()
	}
	t.sink.Push(e)
}

func (t *terminalRecorder) exitCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := t.terminal.(type) {
	case core.Completed:
		// Killed by a signal.
		if e.ExitCode < 0 {
			return 1
		}
		return e.ExitCode
	case nil:
		return 0
	default:
		return 1
	}
}

func runHeadless(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	unlock, err := acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	r, err := runner.New(e.cfg, e.logger)
	if err != nil {
		return err
	}

	surface := console.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Not fatal: the run reports the same problem when it fails to spawn.
	if err := r.Probe(context.Background()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), console.FormatNotice(core.Notice{
			Severity: core.SeverityError,
			Title:    "Error",
			Body:     "The '" + r.Binary() + "' command was not found on the system.",
		}))
	}

	q := queue.New[core.Event]()
	rec := &terminalRecorder{sink: q}
	p := pump.New(q, e.logger)

	id := core.NewRunID()
	e.logger.Info("starting update run", "run_id", string(id))
	go r.Run(context.Background(), id, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-surface.Done()
		cancel()
	}()
	p.Run(ctx, e.cfg.PollInterval, surface)

	if code := rec.exitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// --- Probe ---

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check whether the package manager is available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		r, err := runner.New(e.cfg, e.logger)
		if err != nil {
			return err
		}
		if err := r.Probe(context.Background()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: installed ✓\n", r.Binary())
		return nil
	},
}

// --- Log ---

var (
	logLines  int
	logFollow bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print recent entries from the update log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		entries, err := runlog.ReadEntries(e.log.Path())
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if len(entries) == 0 && !logFollow {
			fmt.Fprintln(out, "no log entries")
			return nil
		}
		for _, entry := range runlog.Last(entries, logLines) {
			fmt.Fprint(out, entry.String())
		}

		if !logFollow {
			return nil
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runlog.Follow(ctx, e.log.Path(), out)
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLines, "lines", "n", 10, "number of entries to print (0 for all)")
	logCmd.Flags().BoolVarP(&logFollow, "follow", "f", false, "keep printing new entries")
}

// --- Config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create wingetup.yaml",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		data, err := e.cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wingetup %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	},
}
