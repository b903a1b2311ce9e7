// Package bst implements an unbalanced binary search tree ordered by a
// comparison function supplied at construction.
//
// Values comparing equal to a node are routed to its right subtree, so
// duplicate keys are kept rather than overwritten. Height depends on
// insertion order; there is no rebalancing.
//
// Because the ordering is a constructor argument, one generic type serves
// several indices over the same records, e.g. products by name and by price.
package bst

import (
	"fmt"

	"github.com/snehjoshi/bakery/internal/container"
	"github.com/snehjoshi/bakery/internal/container/list"
)

type node[T any] struct {
	value T
	left  *node[T]
	right *node[T]
}

// Tree is a binary search tree of T values.
type Tree[T any] struct {
	root *node[T]
	size int
	cmp  func(a, b T) int
}

// New returns an empty tree ordered by cmp, which returns a negative number
// when a < b, zero when equal and a positive number when a > b.
func New[T any](cmp func(a, b T) int) *Tree[T] {
	return &Tree[T]{cmp: cmp}
}

// Clone returns a tree with the same ordering and shape, rebuilt by
// pre-order insertion.
func (t *Tree[T]) Clone() *Tree[T] {
	out := New(t.cmp)
	for _, v := range t.PreOrder() {
		out.Insert(v)
	}
	return out
}

// Len returns the number of stored values.
func (t *Tree[T]) Len() int { return t.size }

// IsEmpty reports whether the tree holds no values.
func (t *Tree[T]) IsEmpty() bool { return t.root == nil }

// Height returns the number of edges on the longest root-to-leaf path.
// An empty tree has height -1.
func (t *Tree[T]) Height() int { return height(t.root) }

func height[T any](n *node[T]) int {
	if n == nil {
		return -1
	}
	return max(height(n.left), height(n.right)) + 1
}

// ─── Lookup ───────────────────────────────────────────────────────────────────

// Search returns the first stored value comparing equal to probe along the
// insertion routing path.
func (t *Tree[T]) Search(probe T) (T, bool) {
	n := t.root
	for n != nil {
		c := t.cmp(probe, n.value)
		switch {
		case c == 0:
			return n.value, true
		case c < 0:
			n = n.left
		default:
			n = n.right
		}
	}
	var zero T
	return zero, false
}

// FindMin returns the smallest value.
func (t *Tree[T]) FindMin() (T, error) {
	if t.root == nil {
		var zero T
		return zero, fmt.Errorf("%w: findMin on empty tree", container.ErrEmpty)
	}
	return minNode(t.root).value, nil
}

// FindMax returns the largest value.
func (t *Tree[T]) FindMax() (T, error) {
	if t.root == nil {
		var zero T
		return zero, fmt.Errorf("%w: findMax on empty tree", container.ErrEmpty)
	}
	n := t.root
	for n.right != nil {
		n = n.right
	}
	return n.value, nil
}

func minNode[T any](n *node[T]) *node[T] {
	for n.left != nil {
		n = n.left
	}
	return n
}

// LowestCommonAncestor returns the deepest stored value whose subtree holds
// both a and b. It reports false if either is absent.
func (t *Tree[T]) LowestCommonAncestor(a, b T) (T, bool) {
	var zero T
	if _, ok := t.Search(a); !ok {
		return zero, false
	}
	if _, ok := t.Search(b); !ok {
		return zero, false
	}
	n := t.root
	for n != nil {
		ca, cb := t.cmp(a, n.value), t.cmp(b, n.value)
		switch {
		case ca < 0 && cb < 0:
			n = n.left
		case ca > 0 && cb > 0:
			n = n.right
		default:
			return n.value, true
		}
	}
	return zero, false
}

// ─── Mutation ─────────────────────────────────────────────────────────────────

// Insert adds v. Equal keys go to the right subtree.
func (t *Tree[T]) Insert(v T) {
	t.root = t.insert(t.root, v)
	t.size++
}

func (t *Tree[T]) insert(n *node[T], v T) *node[T] {
	if n == nil {
		return &node[T]{value: v}
	}
	if t.cmp(v, n.value) < 0 {
		n.left = t.insert(n.left, v)
	} else {
		n.right = t.insert(n.right, v)
	}
	return n
}

// Remove deletes the first value comparing equal to probe and reports
// whether one was found. A node with two children takes the value of its
// in-order successor, which is then removed from the right subtree.
func (t *Tree[T]) Remove(probe T) bool {
	var removed bool
	t.root = t.remove(t.root, probe, &removed)
	if removed {
		t.size--
	}
	return removed
}

func (t *Tree[T]) remove(n *node[T], probe T, removed *bool) *node[T] {
	if n == nil {
		return nil
	}
	c := t.cmp(probe, n.value)
	switch {
	case c < 0:
		n.left = t.remove(n.left, probe, removed)
		return n
	case c > 0:
		n.right = t.remove(n.right, probe, removed)
		return n
	}
	*removed = true
	switch {
	case n.left == nil:
		return n.right
	case n.right == nil:
		return n.left
	}
	succ := minNode(n.right)
	n.value = succ.value
	// Detach the successor node itself, not whichever duplicate of its key
	// a search would hit first.
	n.right = removeMin(n.right)
	return n
}

func removeMin[T any](n *node[T]) *node[T] {
	if n.left == nil {
		return n.right
	}
	n.left = removeMin(n.left)
	return n
}

// ─── Traversals ───────────────────────────────────────────────────────────────

// InOrder returns every value in non-decreasing order.
func (t *Tree[T]) InOrder() []T {
	out := make([]T, 0, t.size)
	var walk func(*node[T])
	walk = func(n *node[T]) {
		if n == nil {
			return
		}
		walk(n.left)
		out = append(out, n.value)
		walk(n.right)
	}
	walk(t.root)
	return out
}

// PreOrder returns every value, node before children.
func (t *Tree[T]) PreOrder() []T {
	out := make([]T, 0, t.size)
	var walk func(*node[T])
	walk = func(n *node[T]) {
		if n == nil {
			return
		}
		out = append(out, n.value)
		walk(n.left)
		walk(n.right)
	}
	walk(t.root)
	return out
}

// PostOrder returns every value, children before node.
func (t *Tree[T]) PostOrder() []T {
	out := make([]T, 0, t.size)
	var walk func(*node[T])
	walk = func(n *node[T]) {
		if n == nil {
			return
		}
		walk(n.left)
		walk(n.right)
		out = append(out, n.value)
	}
	walk(t.root)
	return out
}

// LevelOrder returns every value breadth first, left to right.
func (t *Tree[T]) LevelOrder() []T {
	out := make([]T, 0, t.size)
	if t.root == nil {
		return out
	}
	q := list.New[*node[T]](nil)
	q.AddLast(t.root)
	for !q.IsEmpty() {
		n, _ := q.RemoveFirst()
		out = append(out, n.value)
		if n.left != nil {
			q.AddLast(n.left)
		}
		if n.right != nil {
			q.AddLast(n.right)
		}
	}
	return out
}

// String returns the level-order values in brackets.
func (t *Tree[T]) String() string {
	return fmt.Sprint(t.LevelOrder())
}
