package list

import (
	"fmt"

	"github.com/snehjoshi/bakery/internal/container"
)

// Cursor is a position within a List. It is independent of other cursors on
// the same list.
type Cursor[T any] struct {
	list *List[T]
	node *node[T]
}

// Cursor returns a cursor positioned at the first element. On an empty list
// the cursor is immediately off-end.
func (l *List[T]) Cursor() *Cursor[T] {
	return &Cursor[T]{list: l, node: l.first}
}

// OffEnd reports whether the cursor is not resting on a live element.
func (c *Cursor[T]) OffEnd() bool {
	return c.node == nil || c.node.owner != c.list
}

// Index returns the cursor's 0-based position, or -1 when off-end. It is
// counted from the node, so inserts and removals ahead of the cursor by
// other cursors are reflected. O(n).
func (c *Cursor[T]) Index() int {
	if c.OffEnd() {
		return -1
	}
	i := 0
	for n := c.node.prev; n != nil; n = n.prev {
		i++
	}
	return i
}

// Get returns the value under the cursor.
func (c *Cursor[T]) Get() (T, error) {
	if c.OffEnd() {
		var zero T
		return zero, fmt.Errorf("%w: get", container.ErrCursor)
	}
	return c.node.value, nil
}

// Advance moves the cursor one element towards the back. Advancing past the
// last element leaves the cursor off-end.
func (c *Cursor[T]) Advance() error {
	if c.OffEnd() {
		return fmt.Errorf("%w: advance", container.ErrCursor)
	}
	c.node = c.node.next
	return nil
}

// Reverse moves the cursor one element towards the front. Reversing past the
// first element leaves the cursor off-end.
func (c *Cursor[T]) Reverse() error {
	if c.OffEnd() {
		return fmt.Errorf("%w: reverse", container.ErrCursor)
	}
	c.node = c.node.prev
	return nil
}

// Remove unlinks the element under the cursor. The cursor is unpositioned
// afterwards; obtain a fresh one from List.Cursor to keep traversing.
func (c *Cursor[T]) Remove() error {
	if c.OffEnd() {
		return fmt.Errorf("%w: remove", container.ErrCursor)
	}
	c.list.unlink(c.node)
	c.node = nil
	return nil
}

// InsertAfter links v directly after the element under the cursor. The
// cursor does not move.
func (c *Cursor[T]) InsertAfter(v T) error {
	if c.OffEnd() {
		return fmt.Errorf("%w: insert", container.ErrCursor)
	}
	c.list.insertAfter(c.node, v)
	return nil
}

// Seek repositions the cursor at the 0-based index i.
func (c *Cursor[T]) Seek(i int) error {
	if i < 0 || i >= c.list.length {
		return fmt.Errorf("%w: seek %d in list of %d", container.ErrIndex, i, c.list.length)
	}
	n := c.list.first
	for k := 0; k < i; k++ {
		n = n.next
	}
	c.node = n
	return nil
}
