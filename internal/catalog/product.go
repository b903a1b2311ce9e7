package catalog

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/snehjoshi/bakery/internal/ident"
	"github.com/snehjoshi/bakery/internal/validate"
)

var minPrice = decimal.RequireFromString("0.01")

// Product is one catalogue entry. Name is the case-insensitive primary key;
// Price is a non-unique secondary key.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Allergens   []string        `json:"allergens"`
	Calories    int             `json:"calories"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductInput carries the caller-supplied fields of a new product.
type ProductInput struct {
	Name        string          `json:"name" validate:"notblank"`
	Category    string          `json:"category" validate:"notblank"`
	Price       decimal.Decimal `json:"price" validate:"gte=0.01"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Description string          `json:"description"`
	Allergens   []string        `json:"allergens"`
	Calories    int             `json:"calories" validate:"gte=1"`
}

// NewProduct validates in and builds a product with an id from ids.
// Free text is sanitised and allergens are normalised.
func NewProduct(ids ident.Generator, in ProductInput, now time.Time) (*Product, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	return &Product{
		ID:          ids.NextID(),
		Name:        validate.Text(in.Name),
		Category:    validate.Text(in.Category),
		Price:       in.Price,
		Stock:       in.Stock,
		Description: validate.Text(in.Description),
		Allergens:   normaliseAllergens(in.Allergens),
		Calories:    in.Calories,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// RestoreProduct rebuilds a stored product, re-checking its fields.
func RestoreProduct(p Product) (*Product, error) {
	if p.ID == "" {
		return nil, validate.Field("id", "required", "")
	}
	if err := validate.Struct(ProductInput{
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		Stock:     p.Stock,
		Allergens: p.Allergens,
		Calories:  p.Calories,
	}); err != nil {
		return nil, fmt.Errorf("product %s: %w", p.ID, err)
	}
	out := p
	out.Allergens = normaliseAllergens(p.Allergens)
	return &out, nil
}

func normaliseAllergens(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.ToLower(validate.Text(a)); a != "" {
			out = append(out, a)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// probe returns a key holding only the name, for name-index lookups.
func probe(name string) *Product {
	return &Product{Name: strings.TrimSpace(name)}
}

// SetPrice changes the price. A product held by a Catalog must be changed
// through Catalog.Update so the price index stays ordered.
func (p *Product) SetPrice(price decimal.Decimal, now time.Time) error {
	if price.LessThan(minPrice) {
		return validate.Field("price", "gte", minPrice.String())
	}
	p.Price = price
	p.UpdatedAt = now
	return nil
}

// SetStock replaces the stock count.
func (p *Product) SetStock(stock int, now time.Time) error {
	if stock < 0 {
		return validate.Field("stock", "gte", "0")
	}
	p.Stock = stock
	p.UpdatedAt = now
	return nil
}

// DecrementStock removes qty units from stock.
func (p *Product) DecrementStock(qty int, now time.Time) error {
	if qty < 1 {
		return validate.Field("quantity", "gte", "1")
	}
	if qty > p.Stock {
		return fmt.Errorf("%w: %s has %d, want %d", ErrInsufficientStock, p.Name, p.Stock, qty)
	}
	p.Stock -= qty
	p.UpdatedAt = now
	return nil
}

func (p *Product) String() string {
	return fmt.Sprintf("%s | %s | $%s | %d in stock", p.Name, p.Category, p.Price.StringFixed(2), p.Stock)
}

func byName(a, b *Product) int {
	return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
}

func byPrice(a, b *Product) int {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c
	}
	return byName(a, b)
}
