// Package container holds the error taxonomy shared by the hand-rolled
// collections under internal/container.
//
// Every collection wraps one of these sentinels with context, so callers
// branch with errors.Is regardless of which collection failed:
//
//	if errors.Is(err, container.ErrEmpty) { ... }
//
// Soft misses (search, get, find) are never errors: they return (zero, false).
package container

import "errors"

var (
	// ErrEmpty is returned when an operation needs at least one element.
	ErrEmpty = errors.New("container: collection is empty")

	// ErrCursor is returned when a cursor operation runs while the cursor is off-end.
	ErrCursor = errors.New("container: cursor is off end")

	// ErrNullKey is returned when a hash table is probed with a nil value.
	ErrNullKey = errors.New("container: nil key")

	// ErrConfig is returned when a collection is constructed with invalid parameters.
	ErrConfig = errors.New("container: invalid configuration")

	// ErrIndex is returned when an index argument is out of range.
	ErrIndex = errors.New("container: index out of range")

	// ErrNegative is returned when a count argument must be non-negative.
	ErrNegative = errors.New("container: negative count")
)
