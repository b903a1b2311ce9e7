// Package storage defines the snapshot abstraction used to persist the
// bakery between restarts.
//
// The service never touches files directly: it hands a Snapshot of plain
// records to a Store and rebuilds its containers from the Snapshot a Store
// returns. Every method must be safe for concurrent use.
package storage

import (
	"errors"
	"time"

	"github.com/snehjoshi/bakery/internal/catalog"
	"github.com/snehjoshi/bakery/internal/order"
	"github.com/snehjoshi/bakery/internal/user"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("storage: no snapshot")

// ErrCorrupted is returned when a stored record cannot be decoded.
var ErrCorrupted = errors.New("storage: record corrupted")

// Snapshot is the complete persistent state of a bakery.
type Snapshot struct {
	SavedAt   time.Time
	Products  []catalog.Product
	Orders    []order.Order
	Customers []user.User
	Employees []user.User
}

// Empty reports whether the snapshot holds no records at all.
func (s Snapshot) Empty() bool {
	return len(s.Products) == 0 && len(s.Orders) == 0 && len(s.Customers) == 0 && len(s.Employees) == 0
}

// Store persists snapshots.
//
// Implementations:
//   - local.Store: single-file bbolt database
type Store interface {
	// Save replaces the stored state with snap atomically.
	Save(snap Snapshot) error

	// Load returns the last saved snapshot, or ErrNotFound.
	Load() (Snapshot, error)

	// Close releases the underlying file.
	Close() error
}
