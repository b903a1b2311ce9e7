// Package catalog holds the product catalogue behind two binary search trees
// over the same records: one ordered by case-insensitive name, one by price.
//
// Every mutation goes to both trees. Catalog does no locking.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/snehjoshi/bakery/internal/container/bst"
	"github.com/snehjoshi/bakery/internal/validate"
)

var (
	// ErrNotFound is returned when no product has the requested name.
	ErrNotFound = errors.New("catalog: product not found")

	// ErrDuplicateName is returned by Add when the name is already listed.
	ErrDuplicateName = errors.New("catalog: product name already exists")

	// ErrInsufficientStock is returned when an order asks for more than is left.
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
)

// Catalog indexes products by name and by price.
type Catalog struct {
	byName  *bst.Tree[*Product]
	byPrice *bst.Tree[*Product]
}

// New returns an empty catalogue.
func New() *Catalog {
	return &Catalog{
		byName:  bst.New(byName),
		byPrice: bst.New(byPrice),
	}
}

// Len returns the number of listed products.
func (c *Catalog) Len() int { return c.byName.Len() }

// Add lists p in both indices.
func (c *Catalog) Add(p *Product) error {
	if _, ok := c.byName.Search(p); ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}
	c.byName.Insert(p)
	c.byPrice.Insert(p)
	return nil
}

// FindByName returns the product whose name matches case-insensitively.
func (c *Catalog) FindByName(name string) (*Product, bool) {
	return c.byName.Search(probe(name))
}

// FindByExactPrice returns the first product in price order listed at
// exactly price.
func (c *Catalog) FindByExactPrice(price decimal.Decimal) (*Product, bool) {
	for _, p := range c.byPrice.InOrder() {
		switch p.Price.Cmp(price) {
		case 0:
			return p, true
		case 1:
			return nil, false
		}
	}
	return nil, false
}

// ProductsInPriceRange returns products priced within [lo, hi], cheapest first.
func (c *Catalog) ProductsInPriceRange(lo, hi decimal.Decimal) []*Product {
	var out []*Product
	for _, p := range c.byPrice.InOrder() {
		if p.Price.GreaterThan(hi) {
			break
		}
		if !p.Price.LessThan(lo) {
			out = append(out, p)
		}
	}
	return out
}

// Remove delists the named product and returns it.
func (c *Catalog) Remove(name string) (*Product, bool) {
	p, ok := c.FindByName(name)
	if !ok {
		return nil, false
	}
	c.byName.Remove(p)
	c.byPrice.Remove(p)
	return p, true
}

// UpdateInput lists the fields an update may change. Nil fields are kept.
type UpdateInput struct {
	Price       *decimal.Decimal `json:"price,omitempty"`
	Description *string          `json:"description,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
}

// Update applies in to the named product. The product is taken out of both
// indices, changed and reinserted, so the price index stays ordered. On a
// validation error the product is relisted unchanged.
func (c *Catalog) Update(name string, in UpdateInput, now time.Time) (*Product, error) {
	p, ok := c.Remove(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	before := *p
	err := p.apply(in, now)
	if err != nil {
		*p = before
	}
	c.byName.Insert(p)
	c.byPrice.Insert(p)
	return p, err
}

func (p *Product) apply(in UpdateInput, now time.Time) error {
	if in.Price != nil {
		if err := p.SetPrice(*in.Price, now); err != nil {
			return err
		}
	}
	if in.Stock != nil {
		if err := p.SetStock(*in.Stock, now); err != nil {
			return err
		}
	}
	if in.Description != nil && *in.Description != "" {
		p.Description = validate.Text(*in.Description)
		p.UpdatedAt = now
	}
	return nil
}

// AllByName returns every product in name order.
func (c *Catalog) AllByName() []*Product { return c.byName.InOrder() }

// AllByPrice returns every product cheapest first. Equal prices are ordered
// by name.
func (c *Catalog) AllByPrice() []*Product { return c.byPrice.InOrder() }

// Cheapest returns the lowest priced product.
func (c *Catalog) Cheapest() (*Product, error) { return c.byPrice.FindMin() }

// Priciest returns the highest priced product.
func (c *Catalog) Priciest() (*Product, error) { return c.byPrice.FindMax() }
