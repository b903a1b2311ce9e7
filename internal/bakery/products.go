package bakery

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/snehjoshi/bakery/internal/catalog"
	"github.com/snehjoshi/bakery/internal/validate"
)

// Sort orders accepted by Products.
const (
	SortByName  = "name"
	SortByPrice = "price"
)

// AddProduct validates in, assigns an id and lists the product.
func (s *Service) AddProduct(in catalog.ProductInput) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check the name first so a duplicate does not consume an id.
	if _, ok := s.catalog.FindByName(in.Name); ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrDuplicateName, validate.Text(in.Name))
	}
	p, err := catalog.NewProduct(s.productIDs, in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Add(p); err != nil {
		return nil, err
	}
	s.metrics.SetProducts(s.catalog.Len())
	s.log.Info("product added", "product_id", p.ID, "name", p.Name, "price", p.Price.StringFixed(2))
	return copyProduct(p), nil
}

// UpdateProduct changes the price, stock or description of the named product.
func (s *Service) UpdateProduct(name string, in catalog.UpdateInput) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.catalog.Update(name, in, s.now())
	if err != nil {
		return nil, err
	}
	s.log.Info("product updated", "product_id", p.ID, "name", p.Name)
	return copyProduct(p), nil
}

// RemoveProduct delists the named product. Orders already placed keep their
// copied line items.
func (s *Service) RemoveProduct(name string) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.catalog.Remove(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrNotFound, name)
	}
	s.metrics.SetProducts(s.catalog.Len())
	s.log.Info("product removed", "product_id", p.ID, "name", p.Name)
	return copyProduct(p), nil
}

// FindProduct looks a product up by case-insensitive name.
func (s *Service) FindProduct(name string) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.catalog.FindByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrNotFound, name)
	}
	return copyProduct(p), nil
}

// FindProductByPrice returns the first product, in name order, priced at
// exactly price.
func (s *Service) FindProductByPrice(price decimal.Decimal) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.catalog.FindByExactPrice(price)
	if !ok {
		return nil, fmt.Errorf("%w: price %s", catalog.ErrNotFound, price.StringFixed(2))
	}
	return copyProduct(p), nil
}

// ProductsInPriceRange returns the products priced within [lo, hi],
// cheapest first.
func (s *Service) ProductsInPriceRange(lo, hi decimal.Decimal) []*catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProducts(s.catalog.ProductsInPriceRange(lo, hi))
}

// Products lists the catalogue in name or price order. An empty sortBy
// means by name.
func (s *Service) Products(sortBy string) ([]*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch sortBy {
	case SortByName, "":
		return copyProducts(s.catalog.AllByName()), nil
	case SortByPrice:
		return copyProducts(s.catalog.AllByPrice()), nil
	default:
		return nil, validate.Field("sort", "oneof", SortByName+" "+SortByPrice)
	}
}

// Suggest returns the closest product names to query, best first, using
// the configured limit and similarity floor.
func (s *Service) Suggest(query string) []catalog.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Suggest(query, s.cfg.Catalog.SuggestLimit, s.cfg.Catalog.SuggestMinSimilarity)
}

// IsNotFound reports whether err means a product or order is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) || errors.Is(err, ErrNotFound)
}
