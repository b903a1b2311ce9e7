package local_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"

	"github.com/snehjoshi/bakery/internal/catalog"
	"github.com/snehjoshi/bakery/internal/order"
	"github.com/snehjoshi/bakery/internal/storage"
	"github.com/snehjoshi/bakery/internal/storage/local"
	"github.com/snehjoshi/bakery/internal/user"
)

// ─── helpers ─────────────────────────────────────────────────────────────────

var now = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

func openStore(t *testing.T, path string) *local.Store {
	t.Helper()
	s, err := local.Open(path, time.Second)
	if err != nil {
		t.Fatalf("local.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSnapshot() storage.Snapshot {
	shippedAt := now.Add(time.Hour)
	return storage.Snapshot{
		SavedAt: now,
		Products: []catalog.Product{
			{ID: "P1000", Name: "Brioche", Category: "Bread", Price: decimal.RequireFromString("3.20"), Stock: 20, Calories: 810},
			{ID: "P1001", Name: "Custard Bun", Category: "Buns", Price: decimal.RequireFromString("2.50"), Stock: 30, Calories: 280},
		},
		Orders: []order.Order{
			{
				ID: "O1000", CustomerEmail: "ann@x.com", Speed: order.Rush, ShippingAddress: "1 Elm St", CreatedAt: now,
				Items: []order.Item{{ProductID: "P1000", ProductName: "Brioche", Quantity: 2, UnitPrice: decimal.RequireFromString("3.20")}},
			},
			{
				ID: "O1001", CustomerEmail: "ann@x.com", Speed: order.Standard, ShippingAddress: "1 Elm St", CreatedAt: now,
				Items:   []order.Item{{ProductID: "P1001", ProductName: "Custard Bun", Quantity: 1, UnitPrice: decimal.RequireFromString("2.50")}},
				Shipped: true, ShippedAt: &shippedAt,
			},
		},
		Customers: []user.User{{
			Kind: user.KindCustomer, Email: "ann@x.com", PasswordHash: "h1",
			Customer: &user.CustomerProfile{Contact: user.Contact{Address: "1 Elm St", City: "Springfield"}},
		}},
		Employees: []user.User{{
			Kind: user.KindEmployee, Email: "cy@bakery.com", PasswordHash: "h2",
			Employee: &user.EmployeeProfile{Manager: true},
		}},
	}
}

// ─── Save / Load ─────────────────────────────────────────────────────────────

func TestLoad_EmptyReturnsNotFound(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "bakery.db"))
	if _, err := s.Load(); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "bakery.db"))
	want := sampleSnapshot()
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.SavedAt.Equal(now) {
		t.Errorf("SavedAt = %v, want %v", got.SavedAt, now)
	}
	if len(got.Products) != 2 || got.Products[0].ID != "P1000" || !got.Products[0].Price.Equal(want.Products[0].Price) {
		t.Fatalf("Products = %+v", got.Products)
	}
	if len(got.Orders) != 2 || got.Orders[0].Speed != order.Rush {
		t.Fatalf("Orders = %+v", got.Orders)
	}
	if !got.Orders[1].Shipped || got.Orders[1].ShippedAt == nil || !got.Orders[1].ShippedAt.Equal(*want.Orders[1].ShippedAt) {
		t.Fatalf("shipped order = %+v", got.Orders[1])
	}
	if len(got.Customers) != 1 || got.Customers[0].Customer == nil || got.Customers[0].Customer.City != "Springfield" {
		t.Fatalf("Customers = %+v", got.Customers)
	}
	if len(got.Employees) != 1 || got.Employees[0].Employee == nil || !got.Employees[0].Employee.Manager {
		t.Fatalf("Employees = %+v", got.Employees)
	}
}

func TestSave_ReplacesPreviousState(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "bakery.db"))
	if err := s.Save(sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	smaller := sampleSnapshot()
	smaller.Products = smaller.Products[:1]
	smaller.Orders = nil
	if err := s.Save(smaller); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Products) != 1 || len(got.Orders) != 0 {
		t.Fatalf("stale records survived: %d products, %d orders", len(got.Products), len(got.Orders))
	}
}

func TestSave_EmptyKeyFails(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "bakery.db"))
	snap := sampleSnapshot()
	snap.Products[0].ID = ""
	if err := s.Save(snap); err == nil {
		t.Fatal("expected error for a product without an id")
	}
	// The failed transaction must not have replaced anything.
	if _, err := s.Load(); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound after a rolled-back Save, got %v", err)
	}
}

// ─── Durability ──────────────────────────────────────────────────────────────

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bakery.db")
	s, err := local.Open(path, time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Save(sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := openStore(t, path).Load()
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if len(got.Products) != 2 || len(got.Customers) != 1 {
		t.Fatalf("reopened snapshot = %+v", got)
	}
}

func TestLoad_CorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bakery.db")
	s, err := local.Open(path, time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Save(sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_ = s.Close()

	db, err := bbolt.Open(path, 0o640, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("bbolt.Open: %v", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte("orders")).Put([]byte("O1000"), []byte("{not json"))
	}); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	_ = db.Close()

	if _, err := openStore(t, path).Load(); !errors.Is(err, storage.ErrCorrupted) {
		t.Fatalf("want ErrCorrupted, got %v", err)
	}
}

func TestClose_IsIdempotent(t *testing.T) {
	s, err := local.Open(filepath.Join(t.TempDir(), "bakery.db"), time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSnapshot_Empty(t *testing.T) {
	if !(storage.Snapshot{}).Empty() {
		t.Fatal("zero snapshot must be empty")
	}
	if sampleSnapshot().Empty() {
		t.Fatal("sample snapshot must not be empty")
	}
}
