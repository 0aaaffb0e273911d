package runlog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Entry is one parsed log-file entry.
type Entry struct {
	Time    time.Time
	Message string
}

// String renders e back into its on-disk form.
func (e Entry) String() string {
	return FormatEntry(e.Time, e.Message)
}

// ReadEntries parses every entry in the log file at path.
func ReadEntries(path string) ([]Entry, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	return ParseEntries(fh)
}

// ParseEntries splits r into entries. Text before the first header is ignored.
func ParseEntries(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		cur     *Entry
		lines   []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		if n := len(lines); n > 0 && lines[n-1] == "" {
			lines = lines[:n-1]
		}
		cur.Message = strings.Join(lines, "\n")
		entries = append(entries, *cur)
		lines = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if ts, ok := parseHeader(line); ok {
			flush()
			cur = &Entry{Time: ts}
			continue
		}
		if cur != nil {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("read log: %w", err)
	}
	flush()
	return entries, nil
}

func parseHeader(line string) (time.Time, bool) {
	if !strings.HasPrefix(line, rule+" ") || !strings.HasSuffix(line, " "+rule) {
		return time.Time{}, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(line, rule+" "), " "+rule)
	ts, err := time.ParseInLocation(TimeLayout, inner, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Last returns at most n trailing entries.
func Last(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}

// Follow copies text appended to the log at path into w until ctx is done.
// It starts at the current end of the file and restarts from the top if the
// file shrinks.
func Follow(ctx context.Context, path string, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so a file created after we start is still seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	var offset int64
	if info, err := os.Stat(path); err == nil {
		offset = info.Size()
	}

	name := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			offset, err = copyFrom(path, offset, w)
			if err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}

func copyFrom(path string, offset int64, w io.Writer) (int64, error) {
	fh, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return offset, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := fh.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek %s: %w", path, err)
	}
	n, err := io.Copy(w, fh)
	if err != nil {
		return offset + n, fmt.Errorf("copy %s: %w", path, err)
	}
	return offset + n, nil
}
