package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/wingetup/pkg/core"
)

func TestDrainEmpty(t *testing.T) {
	q := New[int]()
	assert.Nil(t, q.Drain())
	assert.Equal(t, 0, q.Len())
}

func TestFIFO(t *testing.T) {
	q := New[string]()
	q.Push("a")
	q.Push("b")
	q.Push("c")
	require.Equal(t, 3, q.Len())
	assert.Equal(t, []string{"a", "b", "c"}, q.Drain())
	assert.Nil(t, q.Drain())
}

func TestReset(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Reset()
	assert.Equal(t, 0, q.Len())
}

func TestSatisfiesEventInterfaces(t *testing.T) {
	q := New[core.Event]()
	var sink core.Sink = q
	var src core.Source = q
	sink.Push(core.LogLine{Text: "x"})
	sink.Push(core.Completed{ExitCode: 0})
	got := src.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, core.LogLine{Text: "x"}, got[0])
}

// Producers push while a consumer drains concurrently. Every value must
// arrive exactly once and each producer's values must stay in order.
func TestConcurrentPushDrainKeepsOrder(t *testing.T) {
	const (
		producers = 4
		perProd   = 5000
	)
	type item struct{ prod, seq int }

	q := New[item]()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				q.Push(item{p, i})
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	next := make([]int, producers)
	total := 0
	deadline := time.After(10 * time.Second)
	for total < producers*perProd {
		for _, it := range q.Drain() {
			require.Equal(t, next[it.prod], it.seq, "producer %d out of order", it.prod)
			next[it.prod]++
			total++
		}
		select {
		case <-deadline:
			t.Fatalf("timed out with %d of %d items", total, producers*perProd)
		default:
		}
	}

	<-done
	assert.Nil(t, q.Drain())
	for p := 0; p < producers; p++ {
		assert.Equal(t, perProd, next[p])
	}
}
