package bakery

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/snehjoshi/bakery/internal/auth"
	"github.com/snehjoshi/bakery/internal/catalog"
	"github.com/snehjoshi/bakery/internal/container/list"
	"github.com/snehjoshi/bakery/internal/ident"
	"github.com/snehjoshi/bakery/internal/order"
	"github.com/snehjoshi/bakery/internal/storage"
	"github.com/snehjoshi/bakery/internal/user"
)

// Snapshot copies every persistent record out of the service. Guests are
// not included; their orders are.
func (s *Service) Snapshot() storage.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := storage.Snapshot{SavedAt: s.now().UTC()}
	for _, p := range s.catalog.AllByName() {
		snap.Products = append(snap.Products, *copyProduct(p))
	}
	s.ledger.Range(func(_ string, o *order.Order) bool {
		snap.Orders = append(snap.Orders, *copyOrder(o))
		return true
	})
	for _, u := range s.dir.Customers() {
		snap.Customers = append(snap.Customers, plainUser(u))
	}
	for _, u := range s.dir.Employees() {
		snap.Employees = append(snap.Employees, plainUser(u))
	}
	return snap
}

// plainUser keeps the credential hash, unlike copyUser.
func plainUser(u *user.User) user.User {
	c := *copyUser(u)
	c.PasswordHash = u.PasswordHash
	return c
}

// Restore replaces every container with ones rebuilt from snap. Unshipped
// orders re-enter the queue and their customer's unshipped list; shipped
// orders go to the shipped list. On error the service is left unchanged.
func (s *Service) Restore(snap storage.Snapshot) error {
	cat := catalog.New()
	for _, rec := range snap.Products {
		p, err := catalog.RestoreProduct(rec)
		if err != nil {
			return fmt.Errorf("bakery: restore: %w", err)
		}
		if err := cat.Add(p); err != nil {
			return fmt.Errorf("bakery: restore product %s: %w", p.ID, err)
		}
	}

	dir, err := auth.New(s.dirOpts)
	if err != nil {
		return fmt.Errorf("bakery: restore: %w", err)
	}
	for _, recs := range [][]user.User{snap.Customers, snap.Employees} {
		for _, rec := range recs {
			u, err := user.Restore(rec)
			if err != nil {
				return fmt.Errorf("bakery: restore: %w", err)
			}
			if err := dir.Put(u); err != nil {
				return fmt.Errorf("bakery: restore: %w", err)
			}
		}
	}

	orders := make([]*order.Order, 0, len(snap.Orders))
	for _, rec := range snap.Orders {
		o, err := order.Restore(rec)
		if err != nil {
			return fmt.Errorf("bakery: restore: %w", err)
		}
		orders = append(orders, o)
	}
	// Unshipped lists are rebuilt in placement order.
	slices.SortStableFunc(orders, func(a, b *order.Order) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})

	queue := order.NewQueue()
	ledger := newLedger()
	shippedLog := list.New((*order.Order).Equal)
	var shipped []*order.Order
	for _, o := range orders {
		ledger.Store(o.ID, o)
		cust, _ := dir.LookupCustomer(o.CustomerEmail)
		if o.Shipped {
			shipped = append(shipped, o)
			continue
		}
		queue.Insert(o)
		if cust != nil {
			cust.Customer.AddUnshipped(o)
		}
	}
	// Shipped lists keep shipment order.
	slices.SortStableFunc(shipped, func(a, b *order.Order) int { return a.ShippedAt.Compare(*b.ShippedAt) })
	for _, o := range shipped {
		shippedLog.AddLast(o)
		if cust, ok := dir.LookupCustomer(o.CustomerEmail); ok {
			cust.Customer.AddShipped(o)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog, s.dir, s.queue, s.ledger, s.shippedLog = cat, dir, queue, ledger, shippedLog
	s.guests = make(map[string]*user.User)
	for _, p := range snap.Products {
		observe(s.productIDs, p.ID)
	}
	for _, o := range snap.Orders {
		observe(s.orderIDs, o.ID)
	}
	s.recordTables()
	s.log.Info("state restored",
		"products", cat.Len(),
		"orders", len(orders),
		"pending", queue.Len(),
		"customers", len(snap.Customers),
		"employees", len(snap.Employees),
	)
	return nil
}

func observe(g ident.Generator, id string) {
	if o, ok := g.(ident.Observer); ok {
		o.Observe(id)
	}
}

func compareIDs(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

// defaultProducts is the starter menu of an empty bakery.
var defaultProducts = []catalog.ProductInput{
	{
		Name:        "Chocolate Croissant",
		Category:    "Pastry",
		Price:       decimal.RequireFromString("2.20"),
		Stock:       50,
		Description: "A flaky, buttery croissant filled with chocolate",
		Allergens:   []string{"gluten", "milk", "eggs"},
		Calories:    330,
	},
	{
		Name:        "Custard Bun",
		Category:    "Pastry",
		Price:       decimal.RequireFromString("2.50"),
		Stock:       30,
		Description: "Soft brioche filled with sweet custard",
		Allergens:   []string{"gluten", "milk", "eggs"},
		Calories:    280,
	},
	{
		Name:        "Brioche",
		Category:    "Pastry",
		Price:       decimal.RequireFromString("3.20"),
		Stock:       20,
		Description: "Soft, buttery bread",
		Allergens:   []string{"gluten", "milk", "eggs"},
		Calories:    810,
	},
}

// Seed lists the starter menu when the catalogue is empty. It reports how
// many products were added.
func (s *Service) Seed() (int, error) {
	s.mu.Lock()
	empty := s.catalog.Len() == 0
	s.mu.Unlock()
	if !empty {
		return 0, nil
	}
	for i, in := range defaultProducts {
		if _, err := s.AddProduct(in); err != nil {
			return i, fmt.Errorf("bakery: seed: %w", err)
		}
	}
	return len(defaultProducts), nil
}
