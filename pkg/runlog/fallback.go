package runlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// Fallback receives entries that could not be appended to the log file.
type Fallback interface {
	Report(ts time.Time, msg string, err error)
}

// FallbackFunc adapts a function to Fallback.
type FallbackFunc func(ts time.Time, msg string, err error)

func (fn FallbackFunc) Report(ts time.Time, msg string, err error) { fn(ts, msg, err) }

// DefaultFallback sends to the systemd journal when one is listening and to
// stderr otherwise.
func DefaultFallback() Fallback {
	if journal.Enabled() {
		return journalFallback{}
	}
	return NewWriterFallback(os.Stderr)
}

type journalFallback struct{}

func (journalFallback) Report(ts time.Time, msg string, err error) {
	sendErr := journal.Send(msg, journal.PriWarning, map[string]string{
		"SYSLOG_IDENTIFIER":  "wingetup",
		"WINGETUP_LOG_ERROR": err.Error(),
		"WINGETUP_LOG_TIME":  ts.Format(TimeLayout),
	})
	if sendErr != nil {
		NewWriterFallback(os.Stderr).Report(ts, msg, err)
	}
}

// WriterFallback prints failed entries to a writer.
type WriterFallback struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterFallback returns a fallback that writes to w.
func NewWriterFallback(w io.Writer) *WriterFallback {
	return &WriterFallback{w: w}
}

func (f *WriterFallback) Report(ts time.Time, msg string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.w, "log write error (%s): %v\n%s\n", ts.Format(TimeLayout), err, msg)
}
