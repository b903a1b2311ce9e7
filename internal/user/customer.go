package user

import (
	"strings"
	"time"

	"github.com/snehjoshi/bakery/internal/container/list"
	"github.com/snehjoshi/bakery/internal/order"
	"github.com/snehjoshi/bakery/internal/validate"
)

// Contact is a customer's postal and phone details.
type Contact struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

// CustomerProfile is the customer side of the variant. Unshipped and
// Shipped keep the customer's orders in placement and shipment order.
type CustomerProfile struct {
	Contact
	Guest     bool                     `json:"guest,omitempty"`
	Unshipped *list.List[*order.Order] `json:"-"`
	Shipped   *list.List[*order.Order] `json:"-"`
}

func newProfile(c Contact) *CustomerProfile {
	return &CustomerProfile{
		Contact: Contact{
			Address: validate.Line(c.Address),
			Phone:   validate.Line(c.Phone),
			City:    validate.Line(c.City),
			State:   validate.Line(c.State),
			Zip:     validate.Line(c.Zip),
		},
		Unshipped: newOrderList(),
		Shipped:   newOrderList(),
	}
}

func newOrderList() *list.List[*order.Order] {
	return list.New((*order.Order).Equal)
}

// ensureLists allocates the order lists of a profile decoded from storage.
func (p *CustomerProfile) ensureLists() {
	if p.Unshipped == nil {
		p.Unshipped = newOrderList()
	}
	if p.Shipped == nil {
		p.Shipped = newOrderList()
	}
}

// MailingAddress joins the contact fields into a single shipping line.
// It is empty when no street address is on file.
func (p *CustomerProfile) MailingAddress() string {
	if strings.TrimSpace(p.Address) == "" {
		return ""
	}
	parts := []string{p.Address}
	if p.City != "" {
		parts = append(parts, p.City)
	}
	if tail := strings.TrimSpace(p.State + " " + p.Zip); tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// AddUnshipped appends o to the unshipped list. A nil order is ignored.
func (p *CustomerProfile) AddUnshipped(o *order.Order) {
	if o == nil {
		return
	}
	p.ensureLists()
	p.Unshipped.AddLast(o)
}

// AddShipped appends o to the shipped list. A nil order is ignored.
func (p *CustomerProfile) AddShipped(o *order.Order) {
	if o == nil {
		return
	}
	p.ensureLists()
	p.Shipped.AddLast(o)
}

// MoveToShipped finds o in the unshipped list, unlinks it, marks it shipped
// at now if it is not already, and appends it to the shipped list. It
// reports false when o is not in the unshipped list.
func (p *CustomerProfile) MoveToShipped(o *order.Order, now time.Time) bool {
	if o == nil {
		return false
	}
	p.ensureLists()
	for c := p.Unshipped.Cursor(); !c.OffEnd(); _ = c.Advance() {
		cur, _ := c.Get()
		if !cur.Equal(o) {
			continue
		}
		_ = c.Remove()
		if !o.Shipped {
			_ = o.MarkShipped(now)
		}
		p.Shipped.AddLast(o)
		return true
	}
	return false
}
