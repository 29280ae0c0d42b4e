// Package queue holds the sync outbox: an ordered list of jobs waiting for the
// backend. Jobs leave only when they succeed, so the list is edited in place
// rather than popped.
package queue

import (
	"slices"
	"sync"
)

// Queue is a mutex-guarded ordered list.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends items at the tail.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot copies the items in queue order.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

// RemoveFunc drops every item matching del and reports how many went.
func (q *Queue[T]) RemoveFunc(del func(T) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = slices.DeleteFunc(q.items, del)
	return n - len(q.items)
}

// UpdateFunc applies fn to the first item matching match, keeping its position.
// It reports whether an item matched.
func (q *Queue[T]) UpdateFunc(match func(T) bool, fn func(*T)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := slices.IndexFunc(q.items, match)
	if i < 0 {
		return false
	}
	fn(&q.items[i])
	return true
}
