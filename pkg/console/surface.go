// Package console is the line-oriented surface used when no terminal UI runs.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/modoterra/wingetup/pkg/core"
)

var (
	infoStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// Surface prints output lines to out and notices to errOut.
type Surface struct {
	out    io.Writer
	errOut io.Writer

	mu     sync.Mutex
	notice *core.Notice
	done   chan struct{}
	once   sync.Once
}

// New creates a console surface.
func New(out, errOut io.Writer) *Surface {
	return &Surface{out: out, errOut: errOut, done: make(chan struct{})}
}

func (s *Surface) AppendOutput(line string) {
	fmt.Fprintln(s.out, line)
}

// StopActivity is a no-op; there is no activity indicator on a plain console.
func (s *Surface) StopActivity() {}

func (s *Surface) Notify(n core.Notice) {
	s.mu.Lock()
	s.notice = &n
	s.mu.Unlock()
	fmt.Fprintln(s.errOut, FormatNotice(n))
}

// EnableTrigger marks the run as over.
func (s *Surface) EnableTrigger() {
	s.once.Do(func() { close(s.done) })
}

// Done is closed once a terminal event has been applied.
func (s *Surface) Done() <-chan struct{} { return s.done }

// Notice returns the last notice shown, if any.
func (s *Surface) Notice() (core.Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return core.Notice{}, false
	}
	return *s.notice, true
}

// FormatNotice renders n as "Title: body" with a severity colour on the title.
func FormatNotice(n core.Notice) string {
	style := infoStyle
	switch n.Severity {
	case core.SeverityWarning:
		style = warningStyle
	case core.SeverityError:
		style = errorStyle
	}
	return style.Render(n.Title+":") + " " + n.Body
}
