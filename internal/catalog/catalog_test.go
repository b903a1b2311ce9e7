package catalog_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/snehjoshi/bakery/internal/catalog"
	"github.com/snehjoshi/bakery/internal/ident"
	"github.com/snehjoshi/bakery/internal/validate"
)

// ─── helpers ─────────────────────────────────────────────────────────────────

var now = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	ids *ident.Sequence
	cat *catalog.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ids, err := ident.NewSequence("P", 1000)
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	return &fixture{ids: ids, cat: catalog.New()}
}

func (f *fixture) add(t *testing.T, name, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(f.ids, catalog.ProductInput{
		Name:     name,
		Category: "Pastry",
		Price:    dec(price),
		Stock:    stock,
		Calories: 300,
	}, now)
	if err != nil {
		t.Fatalf("NewProduct(%s): %v", name, err)
	}
	if err := f.cat.Add(p); err != nil {
		t.Fatalf("Add(%s): %v", name, err)
	}
	return p
}

func names(ps []*catalog.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ─── Product ─────────────────────────────────────────────────────────────────

func TestNewProduct_Sanitises(t *testing.T) {
	ids, _ := ident.NewSequence("P", 1000)
	p, err := catalog.NewProduct(ids, catalog.ProductInput{
		Name:        "  Custard Bun ",
		Category:    "Buns",
		Price:       dec("2.50"),
		Stock:       30,
		Description: "Soft, sweet\nbun",
		Allergens:   []string{" Eggs", "milk", "EGGS", ""},
		Calories:    280,
	}, now)
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	if p.ID != "P1000" || p.Name != "Custard Bun" || p.Description != "Soft sweet bun" {
		t.Fatalf("product = %+v", p)
	}
	if !equalStrings(p.Allergens, []string{"eggs", "milk"}) {
		t.Fatalf("Allergens = %v", p.Allergens)
	}
	if p.String() != "Custard Bun | Buns | $2.50 | 30 in stock" {
		t.Fatalf("String = %q", p.String())
	}
}

func TestNewProduct_Invalid(t *testing.T) {
	ids, _ := ident.NewSequence("P", 1000)
	base := catalog.ProductInput{Name: "Scone", Category: "Pastry", Price: dec("1.00"), Stock: 1, Calories: 200}
	tests := []struct {
		name   string
		mutate func(*catalog.ProductInput)
	}{
		{"blank name", func(in *catalog.ProductInput) { in.Name = "  " }},
		{"blank category", func(in *catalog.ProductInput) { in.Category = "" }},
		{"price below a cent", func(in *catalog.ProductInput) { in.Price = dec("0.009") }},
		{"negative stock", func(in *catalog.ProductInput) { in.Stock = -1 }},
		{"zero calories", func(in *catalog.ProductInput) { in.Calories = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			if _, err := catalog.NewProduct(ids, in, now); !errors.Is(err, validate.ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestDecrementStock(t *testing.T) {
	f := newFixture(t)
	p := f.add(t, "Brioche", "3.20", 2)
	if err := p.DecrementStock(2, now); err != nil || p.Stock != 0 {
		t.Fatalf("DecrementStock = %v, stock %d", err, p.Stock)
	}
	if err := p.DecrementStock(1, now); !errors.Is(err, catalog.ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}
}

// ─── Dual index ──────────────────────────────────────────────────────────────

func TestDualIndexConsistency(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Custard Bun", "2.50", 30)
	added := f.add(t, "Brioche", "3.20", 20)
	f.add(t, "Chocolate Croissant Pastry", "2.20", 50)

	byName, ok := f.cat.FindByName("brioche")
	if !ok {
		t.Fatal("FindByName miss")
	}
	byPrice, ok := f.cat.FindByExactPrice(added.Price)
	if !ok {
		t.Fatal("FindByExactPrice miss")
	}
	if byName.Name != byPrice.Name || !byName.Price.Equal(byPrice.Price) {
		t.Fatalf("indices disagree: %v vs %v", byName, byPrice)
	}
}

func TestAllByNameAndPrice(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Custard Bun", "2.50", 30)
	f.add(t, "brioche", "3.20", 20)
	f.add(t, "Apple Tart", "2.50", 5)

	if got := names(f.cat.AllByName()); !equalStrings(got, []string{"Apple Tart", "brioche", "Custard Bun"}) {
		t.Errorf("AllByName = %v", got)
	}
	if got := names(f.cat.AllByPrice()); !equalStrings(got, []string{"Apple Tart", "Custard Bun", "brioche"}) {
		t.Errorf("AllByPrice = %v", got)
	}
	if p, _ := f.cat.Cheapest(); p.Name != "Apple Tart" {
		t.Errorf("Cheapest = %v", p)
	}
	if p, _ := f.cat.Priciest(); p.Name != "brioche" {
		t.Errorf("Priciest = %v", p)
	}
}

func TestAdd_DuplicateName(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Scone", "1.00", 1)
	dup, _ := catalog.NewProduct(f.ids, catalog.ProductInput{Name: "SCONE", Category: "x", Price: dec("9"), Calories: 1}, now)
	if err := f.cat.Add(dup); !errors.Is(err, catalog.ErrDuplicateName) {
		t.Fatalf("want ErrDuplicateName, got %v", err)
	}
	if f.cat.Len() != 1 {
		t.Fatalf("Len = %d", f.cat.Len())
	}
}

func TestFindByExactPrice_Miss(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Scone", "1.00", 1)
	f.add(t, "Tart", "3.00", 1)
	if _, ok := f.cat.FindByExactPrice(dec("2.00")); ok {
		t.Fatal("FindByExactPrice must miss")
	}
	if p, ok := f.cat.FindByExactPrice(dec("3")); !ok || p.Name != "Tart" {
		t.Fatalf("3 and 3.00 are the same price, got %v, %v", p, ok)
	}
}

func TestProductsInPriceRange(t *testing.T) {
	f := newFixture(t)
	for name, price := range map[string]string{"A": "1.00", "B": "2.00", "C": "3.00", "D": "4.00"} {
		f.add(t, name, price, 1)
	}
	if got := names(f.cat.ProductsInPriceRange(dec("2"), dec("3.00"))); !equalStrings(got, []string{"B", "C"}) {
		t.Fatalf("range = %v", got)
	}
}

// ─── Remove / Update ─────────────────────────────────────────────────────────

func TestRemove_FromBothIndices(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Scone", "2.00", 1)
	f.add(t, "Tart", "2.00", 1)

	if _, ok := f.cat.Remove("scone"); !ok {
		t.Fatal("Remove miss")
	}
	if _, ok := f.cat.FindByName("Scone"); ok {
		t.Fatal("name index still holds Scone")
	}
	// Same price: the price index must have dropped exactly Scone.
	if got := names(f.cat.AllByPrice()); !equalStrings(got, []string{"Tart"}) {
		t.Fatalf("AllByPrice = %v", got)
	}
	if _, ok := f.cat.Remove("scone"); ok {
		t.Fatal("second Remove must miss")
	}
}

func TestUpdate_ReordersPriceIndex(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Scone", "1.00", 1)
	f.add(t, "Tart", "2.00", 1)

	price, stock, desc := dec("5.00"), 9, "Now, with jam"
	p, err := f.cat.Update("scone", catalog.UpdateInput{Price: &price, Stock: &stock, Description: &desc}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.Stock != 9 || p.Description != "Now with jam" || !p.UpdatedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("updated product = %+v", p)
	}
	if got := names(f.cat.AllByPrice()); !equalStrings(got, []string{"Tart", "Scone"}) {
		t.Fatalf("AllByPrice = %v", got)
	}
	if f.cat.Len() != 2 {
		t.Fatalf("Len = %d", f.cat.Len())
	}
}

func TestUpdate_InvalidLeavesProductUnchanged(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Scone", "1.00", 4)

	price, stock := dec("3.00"), -1
	if _, err := f.cat.Update("Scone", catalog.UpdateInput{Price: &price, Stock: &stock}, now); !errors.Is(err, validate.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
	p, ok := f.cat.FindByExactPrice(dec("1.00"))
	if !ok || p.Stock != 4 {
		t.Fatalf("product must be relisted unchanged, got %v, %v", p, ok)
	}
	if _, err := f.cat.Update("Nope", catalog.UpdateInput{}, now); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// ─── Suggest ─────────────────────────────────────────────────────────────────

func TestSuggest(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Custard Bun", "2.50", 1)
	f.add(t, "Brioche", "3.20", 1)
	f.add(t, "Brownie", "2.00", 1)

	got := f.cat.Suggest("brioch", 2, catalog.DefaultMinSimilarity)
	if len(got) == 0 || got[0].Name != "Brioche" {
		t.Fatalf("Suggest = %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Fatalf("suggestions not best first: %v", got)
		}
	}
	if got := f.cat.Suggest("zzzzzzzz", 3, catalog.DefaultMinSimilarity); len(got) != 0 {
		t.Fatalf("Suggest unrelated = %v", got)
	}
	if got := f.cat.Suggest("", 3, 0); got != nil {
		t.Fatalf("Suggest empty query = %v", got)
	}
}
