// Package runlog appends timestamped entries to the updater's plain-text log file.
//
// Each entry is written with a single append of the complete text:
//
//	\n========== 2006-01-02 15:04:05 ==========\n<message>\n
//
// Appends are serialised in-process by a mutex and across processes by an
// advisory lock on "<log file>.lock". A failed append never surfaces to the
// caller; it is handed to a Fallback instead.
package runlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// TimeLayout is the timestamp format used in entry headers.
const TimeLayout = "2006-01-02 15:04:05"

const rule = "=========="

// File is an append-only log file.
type File struct {
	path     string
	mu       sync.Mutex
	lock     *flock.Flock
	fallback Fallback
	now      func() time.Time
}

// Option configures a File.
type Option func(*File)

// WithFallback sets where failed appends are reported.
func WithFallback(fb Fallback) Option {
	return func(f *File) { f.fallback = fb }
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(f *File) { f.now = now }
}

// Open returns a File for path. Nothing is created until the first append.
func Open(path string, opts ...Option) *File {
	f := &File{
		path:     path,
		lock:     flock.New(path + ".lock"),
		fallback: DefaultFallback(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the log file location.
func (f *File) Path() string { return f.path }

// Write appends msg stamped with the current time. Failures go to the fallback.
func (f *File) Write(msg string) {
	f.WriteAt(f.now(), msg)
}

// WriteAt appends msg stamped with ts. Failures go to the fallback.
func (f *File) WriteAt(ts time.Time, msg string) {
	if err := f.Append(ts, msg); err != nil {
		f.fallback.Report(ts, msg, err)
	}
}

// Append writes one entry and returns any error.
func (f *File) Append(ts time.Time, msg string) error {
	entry := FormatEntry(ts, msg)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", f.lock.Path(), err)
	}
	defer f.lock.Unlock()

	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	if _, err := fh.WriteString(entry); err != nil {
		fh.Close()
		return fmt.Errorf("append log: %w", err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close log: %w", err)
	}
	return nil
}

// FormatEntry renders one log entry.
func FormatEntry(ts time.Time, msg string) string {
	var b strings.Builder
	b.Grow(len(msg) + 48)
	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString(" ")
	b.WriteString(ts.Format(TimeLayout))
	b.WriteString(" ")
	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(msg)
	b.WriteString("\n")
	return b.String()
}
