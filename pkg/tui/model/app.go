package model

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/modoterra/wingetup/pkg/config"
	"github.com/modoterra/wingetup/pkg/core"
	"github.com/modoterra/wingetup/pkg/pump"
	"github.com/modoterra/wingetup/pkg/queue"
)

// Runner is what the app needs from the process runner.
type Runner interface {
	Probe(ctx context.Context) error
	Run(ctx context.Context, id core.RunID, sink core.Sink)
	Binary() string
	CommandLine() string
}

// Phase is the lifecycle stage of the app.
type Phase int

const (
	PhaseProbing Phase = iota
	PhaseIdle
	PhaseRunning
)

// App is the root Bubble Tea model.
type App struct {
	cfg    *config.Config
	runner Runner
	queue  *queue.Queue[core.Event]
	pump   *pump.Pump
	logger *slog.Logger

	// State
	phase          Phase
	triggerEnabled bool
	runID          core.RunID
	status         string
	output         []string
	outputDirty    bool
	modal          *core.Notice

	// UI
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap
	width    int
	height   int
}

// New creates the app model. The trigger stays disabled until the probe reports.
func New(cfg *config.Config, r Runner, logger *slog.Logger) App {
	q := queue.New[core.Event]()

	sp := spinner.New(spinner.WithSpinner(spinner.Line), spinner.WithStyle(spinnerStyle))
	vp := viewport.New(80, 10)
	vp.MouseWheelEnabled = true

	return App{
		cfg:      cfg,
		runner:   r,
		queue:    q,
		pump:     pump.New(q, logger),
		logger:   logger,
		phase:    PhaseProbing,
		status:   "Checking for " + r.Binary() + "...",
		spinner:  sp,
		viewport: vp,
		help:     help.New(),
		keys:     defaultKeyMap(),
	}
}

// pumpTickMsg drives the event pump.
type pumpTickMsg time.Time

// probeResultMsg carries the outcome of the startup availability probe.
type probeResultMsg struct{ err error }

// runDoneMsg is returned once the runner goroutine has returned.
type runDoneMsg struct{ id core.RunID }

// Init starts the probe and the pump.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		probeCmd(a.runner, a.cfg.ProbeTimeout),
		pumpTick(a.cfg.PollInterval),
		tea.SetWindowTitle(a.cfg.Title),
	)
}

func probeCmd(r Runner, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return probeResultMsg{err: r.Probe(ctx)}
	}
}

func pumpTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return pumpTickMsg(t)
	})
}

// runCmd executes one run on a goroutine owned by the Bubble Tea runtime.
// All of its results travel through the queue.
func runCmd(r Runner, sink core.Sink, id core.RunID) tea.Cmd {
	return func() tea.Msg {
		r.Run(context.Background(), id, sink)
		return runDoneMsg{id: id}
	}
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case pumpTickMsg:
		a.drain()
		return a, pumpTick(a.cfg.PollInterval)

	case probeResultMsg:
		a.applyProbe(msg.err)
		return a, nil

	case runDoneMsg:
		a.logger.Debug("runner returned", "run_id", string(msg.id))
		return a, nil

	case spinner.TickMsg:
		if a.phase != PhaseRunning {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		if a.modal != nil {
			return a, nil
		}
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	// A modal blocks everything but dismissal.
	if a.modal != nil {
		if matches(msg, a.keys.Dismiss) {
			a.modal = nil
		}
		return a, nil
	}

	switch {
	case matches(msg, a.keys.Quit):
		return a, tea.Quit
	case matches(msg, a.keys.Start):
		if !a.TriggerEnabled() {
			return a, nil
		}
		return a, a.startRun()
	case matches(msg, a.keys.Scroll):
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) applyProbe(err error) {
	a.phase = PhaseIdle
	// The trigger is usable whether or not the probe passed; a retry will
	// fail the same way at spawn time and report it.
	a.triggerEnabled = true
	if err != nil {
		a.status = "The '" + a.runner.Binary() + "' command was not found on the system."
		a.modal = &core.Notice{
			Severity: core.SeverityError,
			Title:    "Error",
			Body:     a.status,
		}
		return
	}
	a.status = "Runs '" + a.runner.CommandLine() + "'.\nPress enter to start."
}

func (a *App) startRun() tea.Cmd {
	a.queue.Reset()
	a.output = nil
	a.outputDirty = false
	a.viewport.SetContent("")
	a.viewport.GotoTop()
	a.status = ""
	a.triggerEnabled = false
	a.phase = PhaseRunning
	a.runID = core.NewRunID()

	a.logger.Info("starting update run", "run_id", string(a.runID))
	return tea.Batch(a.spinner.Tick, runCmd(a.runner, a.queue, a.runID))
}

func (a *App) drain() {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("unexpected error refreshing output", "panic", r)
		}
	}()

	a.pump.Drain(a)
	if a.outputDirty {
		a.viewport.SetContent(a.renderOutput())
		a.viewport.GotoBottom()
		a.outputDirty = false
	}
}

func (a *App) resize() {
	a.help.Width = a.width
	a.viewport.Width = max(a.width-4, 10)
	a.viewport.Height = max(a.height-chromeHeight, 3)
	a.viewport.SetContent(a.renderOutput())
	a.viewport.GotoBottom()
}

// AppendOutput adds one output line. The viewport is refreshed once per drain.
func (a *App) AppendOutput(line string) {
	a.output = append(a.output, line)
	a.outputDirty = true
}

// StopActivity stops the activity indicator.
func (a *App) StopActivity() {
	a.phase = PhaseIdle
}

// Notify opens a blocking modal.
func (a *App) Notify(n core.Notice) {
	a.modal = &n
	a.status = "Last run: " + n.Title
}

// EnableTrigger makes the trigger usable again.
func (a *App) EnableTrigger() {
	a.triggerEnabled = true
}

// TriggerEnabled reports whether a run can be started right now.
func (a App) TriggerEnabled() bool {
	return a.triggerEnabled && a.phase != PhaseRunning
}

// Output returns the lines captured for the current run.
func (a App) Output() []string { return a.output }

// Modal returns the open notice, if any.
func (a App) Modal() (core.Notice, bool) {
	if a.modal == nil {
		return core.Notice{}, false
	}
	return *a.modal, true
}

// Status returns the status region text.
func (a App) Status() string { return a.status }

// Phase returns the current lifecycle stage.
func (a App) Phase() Phase { return a.phase }
