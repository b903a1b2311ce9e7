// Package hashtable implements a fixed-size open hash table with separate
// chaining. Each bucket is a list.List.
//
// Values carry their own hash and equality contract (Hashable). Probing with
// a partially populated value returns the fully populated stored value, which
// is the lookup pattern used for login: build a key holding only the identity
// field, Get it, then inspect the stored record.
//
// The table never rehashes. LoadFactor is reported but does not trigger
// resizing, so chain length bounds the worst-case lookup.
package hashtable

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/snehjoshi/bakery/internal/container"
	"github.com/snehjoshi/bakery/internal/container/list"
)

// Hashable is the contract a value must satisfy to live in a Table.
// Equal values must return equal hash codes; the table does not check this.
type Hashable[T any] interface {
	HashCode() uint32
	Equal(other T) bool
}

// Table is a hash table of T values.
type Table[T Hashable[T]] struct {
	buckets []*list.List[T]
	count   int
}

// New returns an empty table with bucketCount buckets.
func New[T Hashable[T]](bucketCount int) (*Table[T], error) {
	if bucketCount <= 0 {
		return nil, fmt.Errorf("%w: bucket count must be > 0, got %d", container.ErrConfig, bucketCount)
	}
	eq := func(a, b T) bool { return a.Equal(b) }
	t := &Table[T]{buckets: make([]*list.List[T], bucketCount)}
	for i := range t.buckets {
		t.buckets[i] = list.New(eq)
	}
	return t, nil
}

// NewFrom returns a table with bucketCount buckets holding values.
func NewFrom[T Hashable[T]](values []T, bucketCount int) (*Table[T], error) {
	t, err := New[T](bucketCount)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := t.Add(v); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// hash maps v to its bucket index.
func (t *Table[T]) hash(v T) int {
	code := v.HashCode() & 0x7fffffff
	return int(code % uint32(len(t.buckets)))
}

// Add appends v to its bucket. Duplicates are not rejected.
func (t *Table[T]) Add(v T) error {
	if isNil(v) {
		return fmt.Errorf("%w: add", container.ErrNullKey)
	}
	t.buckets[t.hash(v)].AddLast(v)
	t.count++
	return nil
}

// Get returns the stored value equal to probe.
func (t *Table[T]) Get(probe T) (T, bool, error) {
	var zero T
	if isNil(probe) {
		return zero, false, fmt.Errorf("%w: get", container.ErrNullKey)
	}
	b := t.buckets[t.hash(probe)]
	for c := b.Cursor(); !c.OffEnd(); _ = c.Advance() {
		v, _ := c.Get()
		if v.Equal(probe) {
			return v, true, nil
		}
	}
	return zero, false, nil
}

// Find returns the bucket index holding a value equal to probe, or -1.
func (t *Table[T]) Find(probe T) (int, error) {
	if isNil(probe) {
		return -1, fmt.Errorf("%w: find", container.ErrNullKey)
	}
	i := t.hash(probe)
	if t.buckets[i].Index(probe) != -1 {
		return i, nil
	}
	return -1, nil
}

// Contains reports whether a value equal to probe is stored.
func (t *Table[T]) Contains(probe T) (bool, error) {
	i, err := t.Find(probe)
	if err != nil {
		return false, err
	}
	return i != -1, nil
}

// Delete removes the first stored value equal to probe and reports whether
// one was removed.
func (t *Table[T]) Delete(probe T) (bool, error) {
	if isNil(probe) {
		return false, fmt.Errorf("%w: delete", container.ErrNullKey)
	}
	b := t.buckets[t.hash(probe)]
	for c := b.Cursor(); !c.OffEnd(); _ = c.Advance() {
		v, _ := c.Get()
		if v.Equal(probe) {
			_ = c.Remove()
			t.count--
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of stored values.
func (t *Table[T]) Len() int { return t.count }

// Buckets returns the fixed bucket count.
func (t *Table[T]) Buckets() int { return len(t.buckets) }

// CountBucket returns the chain length of bucket i.
func (t *Table[T]) CountBucket(i int) (int, error) {
	if i < 0 || i >= len(t.buckets) {
		return 0, fmt.Errorf("%w: bucket %d of %d", container.ErrIndex, i, len(t.buckets))
	}
	return t.buckets[i].Len(), nil
}

// LoadFactor returns Len divided by the bucket count.
func (t *Table[T]) LoadFactor() float64 {
	return float64(t.count) / float64(len(t.buckets))
}

// Clear empties every bucket.
func (t *Table[T]) Clear() {
	for _, b := range t.buckets {
		b.Clear()
	}
	t.count = 0
}

// Values returns every stored value, bucket by bucket.
func (t *Table[T]) Values() []T {
	out := make([]T, 0, t.count)
	for _, b := range t.buckets {
		out = append(out, b.Values()...)
	}
	return out
}

// BucketString returns the values of bucket i separated by spaces.
func (t *Table[T]) BucketString(i int) (string, error) {
	if i < 0 || i >= len(t.buckets) {
		return "", fmt.Errorf("%w: bucket %d of %d", container.ErrIndex, i, len(t.buckets))
	}
	return t.buckets[i].String(), nil
}

// RowString returns one line per bucket showing its first value, or "empty".
func (t *Table[T]) RowString() string {
	var sb strings.Builder
	for i, b := range t.buckets {
		fmt.Fprintf(&sb, "Bucket %d: ", i)
		if first, err := b.First(); err == nil {
			fmt.Fprintf(&sb, "%v\n", first)
		} else {
			sb.WriteString("empty\n")
		}
	}
	return sb.String()
}

// String returns every non-empty bucket on its own line.
func (t *Table[T]) String() string {
	rows := make([]string, 0, len(t.buckets))
	for _, b := range t.buckets {
		if !b.IsEmpty() {
			rows = append(rows, b.String())
		}
	}
	return strings.Join(rows, "\n")
}

// isNil reports whether v is a nil pointer, interface, map, slice, func or chan.
func isNil[T any](v T) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
