// Package local is the single-node, disk-backed implementation of
// storage.Store.
package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/snehjoshi/bakery/internal/catalog"
	"github.com/snehjoshi/bakery/internal/order"
	"github.com/snehjoshi/bakery/internal/storage"
	"github.com/snehjoshi/bakery/internal/user"
)

// bucket names inside bbolt
var (
	bucketMeta      = []byte("meta")
	bucketProducts  = []byte("products")
	bucketOrders    = []byte("orders")
	bucketCustomers = []byte("customers")
	bucketEmployees = []byte("employees")

	keySavedAt = []byte("saved_at")
)

var recordBuckets = [][]byte{bucketProducts, bucketOrders, bucketCustomers, bucketEmployees}

// Store keeps one bucket per record kind in a single bbolt file. Records
// are JSON values keyed by product id, order id or account email.
type Store struct {
	db *bbolt.DB

	closeOnce sync.Once
	closeErr  error
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) the database at path. timeout bounds the wait for
// the file lock held by another process; zero waits forever.
func Open(path string, timeout time.Duration) (*Store, error) {
	db, err := bbolt.Open(path, 0o640, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("local: open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range append([][]byte{bucketMeta}, recordBuckets...) {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("local: init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Save replaces every stored record with those in snap in one transaction.
func (s *Store) Save(snap storage.Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range recordBuckets {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		for _, p := range snap.Products {
			if err := put(tx, bucketProducts, p.ID, p); err != nil {
				return err
			}
		}
		for _, o := range snap.Orders {
			if err := put(tx, bucketOrders, o.ID, o); err != nil {
				return err
			}
		}
		for _, u := range snap.Customers {
			if err := put(tx, bucketCustomers, u.Email, u); err != nil {
				return err
			}
		}
		for _, u := range snap.Employees {
			if err := put(tx, bucketEmployees, u.Email, u); err != nil {
				return err
			}
		}
		stamp, err := snap.SavedAt.MarshalText()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keySavedAt, stamp)
	})
}

// Load reads back the last saved snapshot. Records come back in key order.
func (s *Store) Load() (storage.Snapshot, error) {
	var snap storage.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		stamp := tx.Bucket(bucketMeta).Get(keySavedAt)
		if stamp == nil {
			return storage.ErrNotFound
		}
		if err := snap.SavedAt.UnmarshalText(stamp); err != nil {
			return fmt.Errorf("%w: saved_at: %v", storage.ErrCorrupted, err)
		}

		var err error
		if snap.Products, err = all[catalog.Product](tx, bucketProducts); err != nil {
			return err
		}
		if snap.Orders, err = all[order.Order](tx, bucketOrders); err != nil {
			return err
		}
		if snap.Customers, err = all[user.User](tx, bucketCustomers); err != nil {
			return err
		}
		snap.Employees, err = all[user.User](tx, bucketEmployees)
		return err
	})
	if err != nil {
		return storage.Snapshot{}, err
	}
	return snap, nil
}

// Close closes the underlying bbolt database. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.db.Close() })
	return s.closeErr
}

// ---- serialisation helpers -------------------------------------------------

func put(tx *bbolt.Tx, bucket []byte, key string, v any) error {
	if key == "" {
		return fmt.Errorf("local: empty key in %s", bucket)
	}
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("local: marshal %s/%s: %w", bucket, key, err)
	}
	return tx.Bucket(bucket).Put([]byte(key), val)
}

func all[T any](tx *bbolt.Tx, bucket []byte) ([]T, error) {
	var out []T
	err := tx.Bucket(bucket).ForEach(func(k, v []byte) error {
		var rec T
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("%w: %s/%s: %v", storage.ErrCorrupted, bucket, k, err)
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}
