// Package runner executes the package manager's upgrade command and turns its
// output into a stream of events.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/text/encoding"

	"github.com/modoterra/wingetup/pkg/config"
	"github.com/modoterra/wingetup/pkg/core"
)

// ErrUnavailable means the package manager binary is missing or its probe failed.
var ErrUnavailable = errors.New("package manager unavailable")

// Runner starts upgrade runs. A Runner holds no per-run state; the caller
// guarantees that at most one Run is in flight.
type Runner struct {
	command []string
	probe   []string
	enc     encoding.Encoding
	logger  *slog.Logger
	cfg     *config.Config
}

// New creates a runner for the commands in cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	if len(cfg.Command) == 0 || len(cfg.Probe) == 0 {
		return nil, fmt.Errorf("runner: empty command")
	}
	enc, err := cfg.Encoding()
	if err != nil {
		return nil, err
	}
	return &Runner{
		command: cfg.Command,
		probe:   cfg.Probe,
		enc:     enc,
		logger:  logger,
		cfg:     cfg,
	}, nil
}

// Binary returns the display name of the package manager.
func (r *Runner) Binary() string {
	return filepath.Base(r.command[0])
}

// CommandLine returns the upgrade command as one string.
func (r *Runner) CommandLine() string {
	return r.cfg.CommandLine()
}

// Probe checks once that the package manager can be started and answers its
// version query. The probe's output is discarded.
func (r *Runner) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	path, err := exec.LookPath(r.probe[0])
	if err != nil {
		r.logger.Info("package manager check: not found", "binary", r.probe[0], "err", err)
		return fmt.Errorf("%w: %s not found", ErrUnavailable, r.probe[0])
	}

	cmd := exec.CommandContext(ctx, path, r.probe[1:]...)
	cmd.SysProcAttr = sysProcAttr()
	if err := cmd.Run(); err != nil {
		r.logger.Info("package manager check: not found or failing", "binary", path, "err", err)
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, r.probe[0], err)
	}

	r.logger.Info("package manager check: installed", "binary", path)
	return nil
}

// Run executes one upgrade and pushes its events to sink: one LogLine per
// output line, then exactly one Completed or Failed. Run blocks until the
// child has exited and must not be called from the interactive loop.
func (r *Runner) Run(ctx context.Context, id core.RunID, sink core.Sink) {
	logger := r.logger.With("run_id", string(id))
	logger.Info("running upgrade", "command", r.CommandLine())

	fail := func(msg string, err error) {
		logger.Error(msg, "err", err)
		sink.Push(core.Failed{RunID: id, Message: fmt.Sprintf("%s: %v", msg, err)})
	}

	path, err := exec.LookPath(r.command[0])
	if err != nil {
		fail(r.Binary()+" not found during update", err)
		return
	}

	// Both streams share one pipe so their lines interleave in emission order.
	pr, pw, err := os.Pipe()
	if err != nil {
		fail("create output pipe", err)
		return
	}

	cmd := exec.CommandContext(ctx, path, r.command[1:]...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		fail("start "+r.Binary(), err)
		return
	}
	pw.Close()

	logger.Debug("process started", "pid", cmd.Process.Pid)

	readErr := scanLines(pr, r.enc, func(line string) {
		sink.Push(core.LogLine{RunID: id, Text: line})
	})
	pr.Close()

	if readErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		fail("read "+r.Binary()+" output", readErr)
		return
	}

	waitErr := cmd.Wait()
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		fail("wait for "+r.Binary(), waitErr)
		return
	}

	code := cmd.ProcessState.ExitCode()
	logger.Info("upgrade finished", "exit_code", code)
	sink.Push(core.Completed{RunID: id, ExitCode: code})
}
