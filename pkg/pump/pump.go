// Package pump applies queued runner events to a presentation surface.
package pump

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modoterra/wingetup/pkg/core"
)

// Surface is the state a pump mutates. Implementations are only ever called
// from the goroutine that calls Drain.
type Surface interface {
	AppendOutput(line string)
	StopActivity()
	Notify(n core.Notice)
	EnableTrigger()
}

// Pump drains a Source and applies each event to a Surface in order.
type Pump struct {
	source core.Source
	logger *slog.Logger
}

// New creates a pump over source.
func New(source core.Source, logger *slog.Logger) *Pump {
	return &Pump{source: source, logger: logger}
}

// Drain applies every event pending right now and returns how many there were.
// It never blocks and never panics: a failure applying one event is logged and
// the remaining events are still applied.
func (p *Pump) Drain(s Surface) int {
	events := p.source.Drain()
	for _, e := range events {
		p.apply(s, e)
	}
	return len(events)
}

// Run drains on every tick until ctx is done. It is the loop used by surfaces
// that have no event loop of their own.
func (p *Pump) Run(ctx context.Context, interval time.Duration, s Surface) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Drain(s)
			return
		case <-ticker.C:
			p.Drain(s)
		}
	}
}

func (p *Pump) apply(s Surface, e core.Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("unexpected error applying event", "event", fmt.Sprintf("%T", e), "panic", fmt.Sprint(r))
		}
	}()

	switch ev := e.(type) {
	case core.LogLine:
		s.AppendOutput(ev.Text)
	case core.Completed, core.Failed:
		// The trigger comes back even if the surface fails to show the outcome.
		defer s.EnableTrigger()
		s.StopActivity()
		n, _ := NoticeFor(ev)
		s.Notify(n)
	default:
		p.logger.Warn("unknown event", "event", fmt.Sprintf("%T", e))
	}
}

// NoticeFor maps a terminal event to the notification shown for it.
func NoticeFor(e core.Event) (core.Notice, bool) {
	switch ev := e.(type) {
	case core.Completed:
		if ev.ExitCode == 0 {
			return core.Notice{
				Severity: core.SeverityInfo,
				Title:    "Done",
				Body:     "Apps updated successfully!",
			}, true
		}
		return core.Notice{
			Severity: core.SeverityWarning,
			Title:    "Update finished",
			Body:     fmt.Sprintf("Process finished with code: %d\nCheck the output pane for details.", ev.ExitCode),
		}, true
	case core.Failed:
		return core.Notice{
			Severity: core.SeverityError,
			Title:    "Update error",
			Body:     "An error occurred during the update:\n" + ev.Message,
		}, true
	default:
		return core.Notice{}, false
	}
}
