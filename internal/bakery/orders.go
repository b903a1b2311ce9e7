package bakery

import (
	"fmt"
	"strings"

	"github.com/snehjoshi/bakery/internal/catalog"
	"github.com/snehjoshi/bakery/internal/order"
	"github.com/snehjoshi/bakery/internal/user"
	"github.com/snehjoshi/bakery/internal/validate"
)

// ─── Request types ────────────────────────────────────────────────────────────

// LineRequest asks for Quantity units of the product called Name.
type LineRequest struct {
	Name     string `json:"name" validate:"notblank"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

// OrderRequest carries everything needed to place one order. An empty
// Address falls back to the customer's mailing address.
type OrderRequest struct {
	Email   string        `json:"email" validate:"notblank"`
	Lines   []LineRequest `json:"lines" validate:"min=1,dive"`
	Speed   order.Speed   `json:"speed"`
	Address string        `json:"address"`
}

// ─── Placement ────────────────────────────────────────────────────────────────

// PlaceOrder resolves every line against the catalogue, checks and
// decrements stock, and enqueues the new order. Nothing changes unless the
// whole order succeeds.
func (s *Service) PlaceOrder(req OrderRequest) (*order.Order, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cust := s.customer(req.Email)
	if cust == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCustomer, validate.Email(req.Email))
	}

	products := make([]*catalog.Product, len(req.Lines))
	items := make([]order.Item, len(req.Lines))
	wanted := make(map[*catalog.Product]int, len(req.Lines))
	for i, line := range req.Lines {
		p, ok := s.catalog.FindByName(line.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", catalog.ErrNotFound, validate.Text(line.Name))
		}
		wanted[p] += line.Quantity
		if wanted[p] > p.Stock {
			return nil, fmt.Errorf("%w: %s has %d, %d requested", catalog.ErrInsufficientStock, p.Name, p.Stock, wanted[p])
		}
		products[i] = p
		items[i] = order.Item{ProductID: p.ID, ProductName: p.Name, Quantity: line.Quantity, UnitPrice: p.Price}
	}

	address := req.Address
	if strings.TrimSpace(address) == "" {
		address = cust.Customer.MailingAddress()
	}

	now := s.now()
	o, err := order.New(s.orderIDs, order.Input{
		CustomerEmail:   cust.Email,
		Items:           items,
		Speed:           req.Speed,
		ShippingAddress: address,
	}, now)
	if err != nil {
		return nil, err
	}
	for i, line := range req.Lines {
		// Cannot fail: stock was checked above under the same lock.
		_ = products[i].DecrementStock(line.Quantity, now)
	}

	s.queue.Insert(o)
	cust.Customer.AddUnshipped(o)
	s.ledger.Store(o.ID, o)

	s.metrics.OrderPlaced(o.Speed.String(), s.queue.Len())
	s.log.Info("order placed",
		"order_id", o.ID,
		"customer", o.CustomerEmail,
		"speed", o.Speed.String(),
		"total", o.Total.StringFixed(2),
		"priority", o.Priority,
	)
	return copyOrder(o), nil
}

// customer returns the registered or guest account for email. Caller holds mu.
// Guest emails resolve only to live guest sessions.
func (s *Service) customer(email string) *user.User {
	if user.IsGuestEmail(email) {
		return s.guests[validate.Email(email)]
	}
	if u, ok := s.dir.LookupCustomer(email); ok {
		return u
	}
	return s.guests[validate.Email(email)]
}

// ─── Fulfilment ───────────────────────────────────────────────────────────────

// NextOrder returns the highest-priority unshipped order without removing it.
// It returns container.ErrEmpty when nothing is waiting.
func (s *Service) NextOrder() (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.queue.Peek()
	if err != nil {
		return nil, err
	}
	return copyOrder(o), nil
}

// ShipNext removes the highest-priority order from the queue, marks it
// shipped and moves it to its customer's shipped list. It returns
// container.ErrEmpty when nothing is waiting.
func (s *Service) ShipNext() (*order.Order, error) {
	o, err := s.shipNext()
	if err != nil {
		return nil, err
	}
	for _, obs := range s.observers {
		obs.Shipped(copyOrder(o))
	}
	return o, nil
}

func (s *Service) shipNext() (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.queue.Remove()
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := o.MarkShipped(now); err != nil {
		// Already-shipped orders never re-enter the queue; log and carry on.
		s.log.Warn("shipped order was still queued", "order_id", o.ID, "err", err)
	}
	if cust := s.customer(o.CustomerEmail); cust != nil {
		if !cust.Customer.MoveToShipped(o, now) {
			cust.Customer.AddShipped(o)
		}
	}
	s.shippedLog.AddLast(o)

	s.metrics.OrderShipped(o.Speed.String(), now.Sub(o.CreatedAt), s.queue.Len())
	s.log.Info("order shipped",
		"order_id", o.ID,
		"customer", o.CustomerEmail,
		"speed", o.Speed.String(),
		"pending", s.queue.Len(),
	)
	return copyOrder(o), nil
}

// Pending returns the number of unshipped orders.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// QueueSorted returns every unshipped order, highest priority first. The
// queue itself is not drained.
func (s *Service) QueueSorted() []*order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrders(s.queue.AllSortedDescending())
}

// QueuedByID searches the fulfilment queue for id.
func (s *Service) QueuedByID(id string) (*order.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.queue.SearchByID(strings.TrimSpace(id))
	return copyOrder(o), ok
}

// OrdersByCustomer returns the queued orders of email in heap slot order.
func (s *Service) OrdersByCustomer(email string) []*order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrders(s.queue.SearchByCustomer(email))
}

// RecentlyShipped returns up to n shipped orders, most recent first.
// n <= 0 returns all of them.
func (s *Service) RecentlyShipped(n int) []*order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.shippedLog.Values()
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	out := make([]*order.Order, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, copyOrder(all[i]))
	}
	return out
}

// ─── Ledger ───────────────────────────────────────────────────────────────────

// OrderByID looks id up in the all-orders ledger, shipped or not.
func (s *Service) OrderByID(id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ledger.Load(strings.TrimSpace(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyOrder(o), nil
}

// AllOrders returns every order ever placed, in id order.
func (s *Service) AllOrders() []*order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*order.Order, 0, s.ledger.Len())
	s.ledger.Range(func(_ string, o *order.Order) bool {
		out = append(out, copyOrder(o))
		return true
	})
	return out
}

// CustomerOrders returns the unshipped and shipped lists of a registered or
// guest customer, each in list order.
func (s *Service) CustomerOrders(email string) (unshipped, shipped []*order.Order, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cust := s.customer(email)
	if cust == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownCustomer, validate.Email(email))
	}
	return copyOrders(cust.Customer.Unshipped.Values()), copyOrders(cust.Customer.Shipped.Values()), nil
}
