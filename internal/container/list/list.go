// Package list implements a generic doubly linked list with independent
// position cursors.
//
// The list is the ordered container behind per-customer order history and
// behind every hash table bucket. It does no locking: a caller sharing a list
// between goroutines must serialise access itself.
//
// Traversal goes through a Cursor obtained from List.Cursor:
//
//	for c := l.Cursor(); !c.OffEnd(); c.Advance() {
//	    v, _ := c.Get()
//	    ...
//	}
//
// Several cursors may walk the same list at once. Removing through a cursor
// unpositions that cursor; any other cursor resting on the removed node
// reports OffEnd from then on.
package list

import (
	"fmt"
	"strings"

	"github.com/snehjoshi/bakery/internal/container"
)

type node[T any] struct {
	value T
	prev  *node[T]
	next  *node[T]
	owner *List[T] // nil once the node is unlinked
}

// List is a doubly linked list of T values.
// The zero value is not usable; construct with New or NewComparable.
type List[T any] struct {
	first  *node[T]
	last   *node[T]
	length int
	eq     func(a, b T) bool
}

// New returns an empty list that compares values with eq.
// A nil eq falls back to interface equality, which panics on
// non-comparable dynamic types.
func New[T any](eq func(a, b T) bool) *List[T] {
	if eq == nil {
		eq = func(a, b T) bool { return any(a) == any(b) }
	}
	return &List[T]{eq: eq}
}

// NewComparable returns an empty list using == for value equality.
func NewComparable[T comparable]() *List[T] {
	return &List[T]{eq: func(a, b T) bool { return a == b }}
}

// NewFrom returns a list holding values in order.
func NewFrom[T any](eq func(a, b T) bool, values []T) *List[T] {
	l := New(eq)
	for _, v := range values {
		l.AddLast(v)
	}
	return l
}

// Clone returns a new list with the same values in the same order.
// Values are copied shallowly.
func (l *List[T]) Clone() *List[T] {
	out := &List[T]{eq: l.eq}
	for n := l.first; n != nil; n = n.next {
		out.AddLast(n.value)
	}
	return out
}

// ─── Accessors ────────────────────────────────────────────────────────────────

// Len returns the number of elements.
func (l *List[T]) Len() int { return l.length }

// IsEmpty reports whether the list has no elements.
func (l *List[T]) IsEmpty() bool { return l.length == 0 }

// First returns the first value.
func (l *List[T]) First() (T, error) {
	if l.first == nil {
		var zero T
		return zero, fmt.Errorf("%w: first of empty list", container.ErrEmpty)
	}
	return l.first.value, nil
}

// Last returns the last value.
func (l *List[T]) Last() (T, error) {
	if l.last == nil {
		var zero T
		return zero, fmt.Errorf("%w: last of empty list", container.ErrEmpty)
	}
	return l.last.value, nil
}

// Index returns the position of the first value equal to v, or -1.
func (l *List[T]) Index(v T) int {
	i := 0
	for n := l.first; n != nil; n = n.next {
		if l.eq(n.value, v) {
			return i
		}
		i++
	}
	return -1
}

// Contains reports whether a value equal to v is present.
func (l *List[T]) Contains(v T) bool { return l.Index(v) != -1 }

// Values returns a snapshot slice of the list in order.
func (l *List[T]) Values() []T {
	out := make([]T, 0, l.length)
	for n := l.first; n != nil; n = n.next {
		out = append(out, n.value)
	}
	return out
}

// Equal reports whether other has the same length and pairwise equal
// values in the same order, using this list's equality.
func (l *List[T]) Equal(other *List[T]) bool {
	if l == other {
		return true
	}
	if other == nil || l.length != other.length {
		return false
	}
	for a, b := l.first, other.first; a != nil; a, b = a.next, b.next {
		if !l.eq(a.value, b.value) {
			return false
		}
	}
	return true
}

// ─── Mutators ─────────────────────────────────────────────────────────────────

// AddFirst inserts v at the front.
func (l *List[T]) AddFirst(v T) {
	n := &node[T]{value: v, owner: l}
	if l.first == nil {
		l.first, l.last = n, n
	} else {
		n.next = l.first
		l.first.prev = n
		l.first = n
	}
	l.length++
}

// AddLast appends v at the back.
func (l *List[T]) AddLast(v T) {
	n := &node[T]{value: v, owner: l}
	if l.last == nil {
		l.first, l.last = n, n
	} else {
		n.prev = l.last
		l.last.next = n
		l.last = n
	}
	l.length++
}

// RemoveFirst removes and returns the first value.
func (l *List[T]) RemoveFirst() (T, error) {
	if l.first == nil {
		var zero T
		return zero, fmt.Errorf("%w: removeFirst on empty list", container.ErrEmpty)
	}
	n := l.first
	l.unlink(n)
	return n.value, nil
}

// RemoveLast removes and returns the last value.
func (l *List[T]) RemoveLast() (T, error) {
	if l.last == nil {
		var zero T
		return zero, fmt.Errorf("%w: removeLast on empty list", container.ErrEmpty)
	}
	n := l.last
	l.unlink(n)
	return n.value, nil
}

// Clear removes every element. Outstanding cursors go off-end.
func (l *List[T]) Clear() {
	for n := l.first; n != nil; {
		next := n.next
		n.prev, n.next, n.owner = nil, nil, nil
		n = next
	}
	l.first, l.last, l.length = nil, nil, 0
}

// Spin rotates the list n times, each step moving the last element to the
// front. n is reduced modulo Len.
func (l *List[T]) Spin(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: spin by %d", container.ErrNegative, n)
	}
	if l.length < 2 {
		return nil
	}
	for i := 0; i < n%l.length; i++ {
		tail := l.last
		l.last = tail.prev
		l.last.next = nil
		tail.prev = nil
		tail.next = l.first
		l.first.prev = tail
		l.first = tail
	}
	return nil
}

// Alternate returns a new list interleaving this list with other, starting
// with this list. Leftover elements of the longer list are appended in order.
func (l *List[T]) Alternate(other *List[T]) *List[T] {
	out := &List[T]{eq: l.eq}
	a := l.first
	var b *node[T]
	if other != nil {
		b = other.first
	}
	for a != nil || b != nil {
		if a != nil {
			out.AddLast(a.value)
			a = a.next
		}
		if b != nil {
			out.AddLast(b.value)
			b = b.next
		}
	}
	return out
}

// unlink detaches n and keeps first/last consistent. A single-element list
// collapses both ends to nil together.
func (l *List[T]) unlink(n *node[T]) {
	if n.prev == nil {
		l.first = n.next
	} else {
		n.prev.next = n.next
	}
	if n.next == nil {
		l.last = n.prev
	} else {
		n.next.prev = n.prev
	}
	n.prev, n.next, n.owner = nil, nil, nil
	l.length--
}

// insertAfter links v directly after n.
func (l *List[T]) insertAfter(n *node[T], v T) {
	if n == l.last {
		l.AddLast(v)
		return
	}
	nn := &node[T]{value: v, prev: n, next: n.next, owner: l}
	n.next.prev = nn
	n.next = nn
	l.length++
}

// ─── Formatting ───────────────────────────────────────────────────────────────

// String returns the values separated by single spaces.
func (l *List[T]) String() string {
	var sb strings.Builder
	for n := l.first; n != nil; n = n.next {
		if n != l.first {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, n.value)
	}
	return sb.String()
}

// NumberedString returns one "i. value" line per element, 1-based.
func (l *List[T]) NumberedString() string {
	if l.length == 0 {
		return "(empty)\n"
	}
	var sb strings.Builder
	i := 1
	for n := l.first; n != nil; n = n.next {
		fmt.Fprintf(&sb, "%d. %v\n", i, n.value)
		i++
	}
	return sb.String()
}
