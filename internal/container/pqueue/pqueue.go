// Package pqueue implements an array-backed binary max-heap.
//
// The heap is 1-indexed: slot 0 of the backing slice is a placeholder and
// the root lives at slot 1. Ordering comes from a priority function given
// at construction; larger values are served first. Ties are broken by heap
// mechanics and are not stable.
//
//   - Peek    → O(1)
//   - Insert  → O(log N)
//   - Remove  → O(log N)
//   - Find    → O(N) linear scan; the slots are unsorted below the root.
//
// Sifting finishes before every method returns, so no caller ever sees a
// partially rebalanced heap. The queue does no locking.
package pqueue

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/snehjoshi/bakery/internal/container"
)

// Queue is a max-heap of T values.
type Queue[T any] struct {
	slots    []T
	priority func(T) int
}

// New returns an empty queue ordered by priority.
func New[T any](priority func(T) int) *Queue[T] {
	return &Queue[T]{slots: make([]T, 1, 16), priority: priority}
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int { return len(q.slots) - 1 }

// IsEmpty reports whether the queue holds no values.
func (q *Queue[T]) IsEmpty() bool { return q.Len() == 0 }

// Insert adds v and restores the heap property.
func (q *Queue[T]) Insert(v T) {
	q.slots = append(q.slots, v)
	q.siftUp(q.Len())
}

// Peek returns the highest-priority value without removing it.
func (q *Queue[T]) Peek() (T, error) {
	if q.IsEmpty() {
		var zero T
		return zero, fmt.Errorf("%w: peek on empty queue", container.ErrEmpty)
	}
	return q.slots[1], nil
}

// Remove extracts and returns the highest-priority value.
func (q *Queue[T]) Remove() (T, error) {
	if q.IsEmpty() {
		var zero T
		return zero, fmt.Errorf("%w: remove on empty queue", container.ErrEmpty)
	}
	n := q.Len()
	top := q.slots[1]
	q.slots[1] = q.slots[n]

	var zero T
	q.slots[n] = zero // allow GC
	q.slots = q.slots[:n]

	if q.Len() > 1 {
		q.siftDown(1)
	}
	return top, nil
}

// Find returns the first value, in slot order, for which match is true.
func (q *Queue[T]) Find(match func(T) bool) (T, bool) {
	for _, v := range q.slots[1:] {
		if match(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// FindAll returns every value for which match is true, in slot order.
func (q *Queue[T]) FindAll(match func(T) bool) []T {
	var out []T
	for _, v := range q.slots[1:] {
		if match(v) {
			out = append(out, v)
		}
	}
	return out
}

// Values returns a copy of the live slots in heap order; index 0 of the
// result is the root.
func (q *Queue[T]) Values() []T {
	return slices.Clone(q.slots[1:])
}

// Sorted returns a copy of the queued values by descending priority.
// The heap itself is left untouched.
func (q *Queue[T]) Sorted() []T {
	out := q.Values()
	slices.SortFunc(out, func(a, b T) int {
		return cmp.Compare(q.priority(b), q.priority(a))
	})
	return out
}

// Clear drops every queued value.
func (q *Queue[T]) Clear() {
	clear(q.slots)
	q.slots = q.slots[:1]
}
