package core

import (
	"fmt"

	"github.com/google/uuid"
)

// RunID identifies one upgrade run, from trigger activation to its terminal event.
type RunID string

// NewRunID returns a fresh random run identifier.
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

// Short returns the first block of the id, for display.
func (id RunID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// Event is a message produced by the process runner and consumed by the event pump.
// The set of implementations is closed: LogLine, Completed and Failed.
type Event interface {
	Run() RunID
	event()
}

// LogLine is one line of child-process output, without its line terminator.
type LogLine struct {
	RunID RunID
	Text  string
}

// Completed reports that the child process exited with ExitCode.
type Completed struct {
	RunID    RunID
	ExitCode int
}

// Failed reports that the child could not be started or its output could not be read.
type Failed struct {
	RunID   RunID
	Message string
}

func (e LogLine) Run() RunID   { return e.RunID }
func (e Completed) Run() RunID { return e.RunID }
func (e Failed) Run() RunID    { return e.RunID }

func (LogLine) event()   {}
func (Completed) event() {}
func (Failed) event()    {}

func (e LogLine) String() string   { return e.Text }
func (e Completed) String() string { return fmt.Sprintf("completed (exit code %d)", e.ExitCode) }
func (e Failed) String() string    { return "failed: " + e.Message }

// IsTerminal reports whether e ends a run.
func IsTerminal(e Event) bool {
	switch e.(type) {
	case Completed, Failed:
		return true
	default:
		return false
	}
}
