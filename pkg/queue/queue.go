// Package queue provides an unbounded FIFO shared between one producer
// goroutine and one consumer loop.
package queue

import "sync"

// Queue is an unbounded FIFO. Push and Drain never block on each other
// beyond the mutex hand-off, so a slow consumer never stalls the producer.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends v to the tail.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

// Drain removes and returns everything currently queued, oldest first.
// It returns nil when the queue is empty.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Reset discards pending items.
func (q *Queue[T]) Reset() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}
