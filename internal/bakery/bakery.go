// Package bakery is the application context of the bakery.
//
// Every transport (HTTP handlers, the fulfilment WebSocket feed) talks to
// the Service, never directly to the catalogue, the order queue or the
// account directory. The Service owns those containers and serialises every
// mutation behind one mutex; the containers themselves are unlocked.
//
// Data flow:
//
//	PlaceOrder → catalog stock check → order.New → queue.Insert
//	           → customer.AddUnshipped → ledger.Store
//	ShipNext   → queue.Remove → order.MarkShipped → customer.MoveToShipped
package bakery

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zhangyunhao116/skipmap"

	"github.com/snehjoshi/bakery/internal/auth"
	"github.com/snehjoshi/bakery/internal/catalog"
	"github.com/snehjoshi/bakery/internal/config"
	"github.com/snehjoshi/bakery/internal/container/list"
	"github.com/snehjoshi/bakery/internal/ident"
	"github.com/snehjoshi/bakery/internal/metrics"
	"github.com/snehjoshi/bakery/internal/order"
	"github.com/snehjoshi/bakery/internal/user"
)

// ─── Error sentinels ──────────────────────────────────────────────────────────

var (
	// ErrUnknownCustomer is returned when an order names a customer that is
	// neither registered nor a live guest.
	ErrUnknownCustomer = errors.New("bakery: unknown customer")

	// ErrNotFound is returned when an order id is not in the ledger.
	ErrNotFound = errors.New("bakery: order not found")
)

// ─── Option / functional options ─────────────────────────────────────────────

// Option is a functional option for the Service.
type Option func(*Service)

// WithMetrics attaches a metrics.Registry so that orders, shipments, logins
// and table sizes are recorded.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Service) { s.metrics = reg }
}

// ShipObserver is told about every shipped order after the service lock is
// released. Shipped must not block.
type ShipObserver interface {
	Shipped(o *order.Order)
}

// WithShipObserver adds obs to the observers notified by ShipNext.
func WithShipObserver(obs ShipObserver) Option {
	return func(s *Service) { s.observers = append(s.observers, obs) }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// ─── Service ──────────────────────────────────────────────────────────────────

// Service wires the catalogue, the fulfilment queue, the account directory
// and the all-orders ledger into the single façade used by every transport.
//
// All methods are safe for concurrent use. Records handed out are copies;
// mutating them does not affect the service.
type Service struct {
	cfg *config.Config

	mu         sync.Mutex
	catalog    *catalog.Catalog
	queue      *order.Queue
	dir        *auth.Directory
	dirOpts    auth.Options
	guests     map[string]*user.User // live guest accounts by email
	shippedLog *list.List[*order.Order]

	// ledger holds every order ever placed, keyed by id in issue order.
	ledger *skipmap.FuncMap[string, *order.Order]

	orderIDs   ident.Generator
	productIDs ident.Generator

	now       func() time.Time
	metrics   *metrics.Registry
	log       *slog.Logger
	observers []ShipObserver
}

// New returns an empty Service configured by cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:        cfg,
		catalog:    catalog.New(),
		queue:      order.NewQueue(),
		guests:     make(map[string]*user.User),
		shippedLog: list.New((*order.Order).Equal),
		ledger:     newLedger(),
		now:        time.Now,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	s.orderIDs, err = ident.New(string(cfg.IDs.Strategy), cfg.IDs.OrderPrefix, cfg.IDs.OrderStart)
	if err != nil {
		return nil, fmt.Errorf("bakery: order ids: %w", err)
	}
	s.productIDs, err = ident.New(string(cfg.IDs.Strategy), cfg.IDs.ProductPrefix, cfg.IDs.ProductStart)
	if err != nil {
		return nil, fmt.Errorf("bakery: product ids: %w", err)
	}

	s.dirOpts = auth.Options{
		CustomerBuckets: cfg.Tables.CustomerBuckets,
		EmployeeBuckets: cfg.Tables.EmployeeBuckets,
		BcryptCost:      cfg.Auth.BcryptCost,
		Guests:          ident.NewULID("", s.now),
	}
	if s.dir, err = auth.New(s.dirOpts); err != nil {
		return nil, fmt.Errorf("bakery: %w", err)
	}
	return s, nil
}

// newLedger orders ids by length, then lexically, so "O999" sorts before
// "O1000" and ULIDs sort by time.
func newLedger() *skipmap.FuncMap[string, *order.Order] {
	return skipmap.NewFunc[string, *order.Order](func(a, b string) bool {
		return compareIDs(a, b) < 0
	})
}

// Stats is a lightweight snapshot of service-wide state.
type Stats struct {
	Products  int        `json:"products"`
	Pending   int        `json:"pending"`
	Orders    int        `json:"orders"`
	Shipped   int        `json:"shipped"`
	Guests    int        `json:"guests"`
	Directory auth.Stats `json:"directory"`
}

// Stats returns counts across every container.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Products:  s.catalog.Len(),
		Pending:   s.queue.Len(),
		Orders:    s.ledger.Len(),
		Shipped:   s.shippedLog.Len(),
		Guests:    len(s.guests),
		Directory: s.dir.Stats(),
	}
}

// recordTables pushes the current container sizes to metrics. Caller holds mu.
func (s *Service) recordTables() {
	if s.metrics == nil {
		return
	}
	st := s.dir.Stats()
	s.metrics.SetAccounts("customers", st.Customers, st.CustomerLoadFactor)
	s.metrics.SetAccounts("employees", st.Employees, st.EmployeeLoadFactor)
	s.metrics.SetProducts(s.catalog.Len())
	s.metrics.SetQueueDepth(s.queue.Len())
}

// ─── copies ───────────────────────────────────────────────────────────────────

func copyOrder(o *order.Order) *order.Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]order.Item(nil), o.Items...)
	if o.ShippedAt != nil {
		t := *o.ShippedAt
		c.ShippedAt = &t
	}
	return &c
}

func copyOrders(in []*order.Order) []*order.Order {
	out := make([]*order.Order, len(in))
	for i, o := range in {
		out[i] = copyOrder(o)
	}
	return out
}

func copyProduct(p *catalog.Product) *catalog.Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Allergens = append([]string(nil), p.Allergens...)
	return &c
}

func copyProducts(in []*catalog.Product) []*catalog.Product {
	out := make([]*catalog.Product, len(in))
	for i, p := range in {
		out[i] = copyProduct(p)
	}
	return out
}

// copyUser drops the order lists and the credential hash.
func copyUser(u *user.User) *user.User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	if u.Customer != nil {
		cp := *u.Customer
		cp.Unshipped, cp.Shipped = nil, nil
		c.Customer = &cp
	}
	if u.Employee != nil {
		ep := *u.Employee
		c.Employee = &ep
	}
	return &c
}
