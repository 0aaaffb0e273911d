package model

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/modoterra/wingetup/pkg/core"
)

// chromeHeight is every row of the layout except the output viewport.
const chromeHeight = 13

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	outputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("42"))

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("#D35400")).
			Padding(0, 2).
			MarginTop(1)

	buttonDisabledStyle = buttonStyle.
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("238"))

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			Padding(1, 3)

	severityColor = map[core.Severity]lipgloss.Color{
		core.SeverityInfo:    lipgloss.Color("42"),
		core.SeverityWarning: lipgloss.Color("214"),
		core.SeverityError:   lipgloss.Color("196"),
	}

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View renders the TUI.
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "loading..."
	}

	if a.modal != nil {
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, a.renderModal(*a.modal))
	}

	inner := max(a.width-4, 10)

	sections := []string{
		titleStyle.Render(a.cfg.Title),
		labelStyle.Render("Status:"),
		paneStyle.Width(inner).Height(2).Render(a.status),
		labelStyle.Render("Progress: ") + a.renderActivity(),
		labelStyle.Render("Output:"),
		outputStyle.Render(a.viewport.View()),
		a.renderTrigger(),
		helpStyle.Render(a.help.View(a.keys)),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a App) renderActivity() string {
	switch a.phase {
	case PhaseRunning:
		return a.spinner.View() + " " + dimStyle.Render("running "+a.runID.Short())
	case PhaseProbing:
		return dimStyle.Render("checking...")
	default:
		return dimStyle.Render("idle")
	}
}

func (a App) renderTrigger() string {
	if a.TriggerEnabled() {
		return buttonStyle.Render("Update all")
	}
	return buttonDisabledStyle.Render("Update all")
}

func (a App) renderModal(n core.Notice) string {
	color := severityColor[n.Severity]
	title := lipgloss.NewStyle().Bold(true).Foreground(color).Render(n.Title)
	body := n.Body
	footer := helpStyle.Render("enter: ok")
	return modalStyle.BorderForeground(color).Render(title + "\n\n" + body + "\n\n" + footer)
}

func (a App) renderOutput() string {
	if len(a.output) == 0 {
		return ""
	}
	w := a.viewport.Width
	var b strings.Builder
	for i, line := range a.output {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(truncate(visible(line), w))
	}
	return b.String()
}

// visible returns what a terminal would show for a line that redraws itself
// with carriage returns, as progress bars do.
func visible(line string) string {
	if i := strings.LastIndexByte(line, '\r'); i >= 0 {
		return line[i+1:]
	}
	return line
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
