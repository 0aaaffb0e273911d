package runlog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntries(t *testing.T) {
	text := "garbage before\n" +
		FormatEntry(fixedTime, "one") +
		FormatEntry(fixedTime.Add(time.Second), "two\nlines") +
		FormatEntry(fixedTime.Add(2*time.Second), "")

	entries, err := ParseEntries(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "one", entries[0].Message)
	assert.True(t, fixedTime.Equal(entries[0].Time))
	assert.Equal(t, "two\nlines", entries[1].Message)
	assert.Equal(t, "", entries[2].Message)
	assert.Equal(t, FormatEntry(fixedTime, "one"), entries[0].String())
}

func TestLast(t *testing.T) {
	entries := []Entry{{Message: "a"}, {Message: "b"}, {Message: "c"}}
	assert.Equal(t, entries[1:], Last(entries, 2))
	assert.Equal(t, entries, Last(entries, 0))
	assert.Equal(t, entries, Last(entries, 10))
}

func TestReadEntriesMissingFile(t *testing.T) {
	_, err := ReadEntries(filepath.Join(t.TempDir(), "none.log"))
	assert.Error(t, err)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFollowStreamsNewEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wingetup.log")
	f := Open(path)
	f.Write("before follow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- Follow(ctx, path, out) }()

	// Give the watcher time to register before appending.
	time.Sleep(100 * time.Millisecond)
	f.Write("after follow")

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "after follow")
	}, 5*time.Second, 20*time.Millisecond)
	assert.NotContains(t, out.String(), "before follow")

	cancel()
	require.NoError(t, <-done)
}

func TestCopyFromRestartsAfterTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wingetup.log")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o644))

	var buf bytes.Buffer
	off, err := copyFrom(path, 100, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(5), off)
	assert.Equal(t, "short", buf.String())
}
