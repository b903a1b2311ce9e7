// Package order defines the order record and the fulfilment queue that
// ranks unshipped orders.
package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/snehjoshi/bakery/internal/ident"
	"github.com/snehjoshi/bakery/internal/validate"
)

var (
	// ErrAlreadyShipped is returned by MarkShipped on a shipped order.
	ErrAlreadyShipped = errors.New("order: already shipped")

	// ErrUnknownSpeed is returned when parsing an unrecognised shipping speed.
	ErrUnknownSpeed = errors.New("order: unknown shipping speed")
)

// tierWeight keeps a faster tier ahead of any slower one: epoch days stay
// far below one million for any realistic date.
const tierWeight = 1_000_000

// Speed is a shipping speed tier.
type Speed int

const (
	Standard Speed = iota + 1
	Rush
	Overnight
)

type speedInfo struct {
	name string
	cost decimal.Decimal
	days int
}

var speeds = map[Speed]speedInfo{
	Standard:  {"STANDARD", decimal.RequireFromString("5.99"), 5},
	Rush:      {"RUSH", decimal.RequireFromString("15.99"), 2},
	Overnight: {"OVERNIGHT", decimal.RequireFromString("29.99"), 1},
}

// ParseSpeed maps a case-insensitive speed name to its Speed.
func ParseSpeed(s string) (Speed, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for sp, info := range speeds {
		if info.name == name {
			return sp, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSpeed, s)
}

// Valid reports whether s is a known tier.
func (s Speed) Valid() bool {
	_, ok := speeds[s]
	return ok
}

// Tier returns the priority tier: 1 for STANDARD up to 3 for OVERNIGHT.
func (s Speed) Tier() int { return int(s) }

// Cost returns the flat shipping charge.
func (s Speed) Cost() decimal.Decimal { return speeds[s].cost }

// Days returns the estimated delivery time in days.
func (s Speed) Days() int { return speeds[s].days }

func (s Speed) String() string {
	if info, ok := speeds[s]; ok {
		return info.name
	}
	return fmt.Sprintf("Speed(%d)", int(s))
}

// MarshalText encodes the speed by name.
func (s Speed) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSpeed, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a speed name.
func (s *Speed) UnmarshalText(b []byte) error {
	sp, err := ParseSpeed(string(b))
	if err != nil {
		return err
	}
	*s = sp
	return nil
}

// Item is one order line. UnitPrice is captured when the order is placed.
type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name" validate:"notblank"`
	Quantity    int             `json:"quantity" validate:"gte=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Subtotal is Quantity × UnitPrice.
func (it Item) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Input carries the caller-supplied fields of a new order.
type Input struct {
	CustomerEmail   string `json:"customer_email" validate:"notblank"`
	Items           []Item `json:"items" validate:"min=1,dive"`
	Speed           Speed  `json:"speed"`
	ShippingAddress string `json:"shipping_address" validate:"notblank"`
}

// Order is a placed order. Priority is derived from Speed and CreatedAt and
// never changes afterwards.
type Order struct {
	ID              string          `json:"id"`
	CustomerEmail   string          `json:"customer_email"`
	Items           []Item          `json:"items"`
	Speed           Speed           `json:"speed"`
	ShippingAddress string          `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	Total           decimal.Decimal `json:"total"`
	Shipped         bool            `json:"shipped"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	Priority        int             `json:"priority"`
}

// New validates in and builds an order with an id from ids.
func New(ids ident.Generator, in Input, now time.Time) (*Order, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if !in.Speed.Valid() {
		return nil, validate.Field("speed", "oneof", "STANDARD RUSH OVERNIGHT")
	}

	o := &Order{
		ID:              ids.NextID(),
		CustomerEmail:   validate.Email(in.CustomerEmail),
		Items:           append([]Item(nil), in.Items...),
		Speed:           in.Speed,
		ShippingAddress: validate.Line(in.ShippingAddress),
		CreatedAt:       now,
	}
	o.price()
	o.Priority = Priority(o.Speed, o.CreatedAt)
	return o, nil
}

// Restore rebuilds a stored order, recomputing its derived fields.
func Restore(o Order) (*Order, error) {
	if o.ID == "" {
		return nil, validate.Field("id", "required", "")
	}
	if err := validate.Struct(Input{
		CustomerEmail:   o.CustomerEmail,
		Items:           o.Items,
		Speed:           o.Speed,
		ShippingAddress: o.ShippingAddress,
	}); err != nil {
		return nil, fmt.Errorf("order %s: %w", o.ID, err)
	}
	if !o.Speed.Valid() {
		return nil, fmt.Errorf("order %s: %w", o.ID, validate.Field("speed", "oneof", "STANDARD RUSH OVERNIGHT"))
	}
	for _, it := range o.Items {
		if it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("order %s: %w", o.ID, validate.Field("unit_price", "gte", "0"))
		}
	}
	out := o
	out.Items = append([]Item(nil), o.Items...)
	out.price()
	out.Priority = Priority(out.Speed, out.CreatedAt)
	if out.Shipped && out.ShippedAt == nil {
		t := out.CreatedAt
		out.ShippedAt = &t
	}
	return &out, nil
}

func (o *Order) price() {
	sub := decimal.Zero
	for _, it := range o.Items {
		sub = sub.Add(it.Subtotal())
	}
	o.Subtotal = sub
	o.ShippingCost = o.Speed.Cost()
	o.Total = sub.Add(o.ShippingCost)
}

// Priority returns tier*1_000_000 minus the UTC epoch day of created.
// Within a tier an older order ranks higher.
func Priority(s Speed, created time.Time) int {
	return s.Tier()*tierWeight - int(epochDay(created))
}

func epochDay(t time.Time) int64 {
	secs := t.UTC().Unix()
	day := secs / 86400
	if secs%86400 < 0 {
		day--
	}
	return day
}

// MarkShipped records shipment at now.
func (o *Order) MarkShipped(now time.Time) error {
	if o.Shipped {
		return fmt.Errorf("%w: %s", ErrAlreadyShipped, o.ID)
	}
	o.Shipped = true
	o.ShippedAt = &now
	return nil
}

// EstimatedDelivery returns the ship time, or now for a pending order, plus
// the speed's delivery days.
func (o *Order) EstimatedDelivery(now time.Time) time.Time {
	base := now
	if o.ShippedAt != nil {
		base = *o.ShippedAt
	}
	return base.AddDate(0, 0, o.Speed.Days())
}

// Equal compares orders by id.
func (o *Order) Equal(other *Order) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.ID == other.ID
}

// Status returns "Shipped" or "Pending".
func (o *Order) Status() string {
	if o.Shipped {
		return "Shipped"
	}
	return "Pending"
}

func (o *Order) String() string {
	return fmt.Sprintf("Order #%s | Customer: %s | Total: $%s | Status: %s",
		o.ID, o.CustomerEmail, o.Total.StringFixed(2), o.Status())
}
