package product

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is the authoritative catalog record used for pricing. Client input
// never carries a price; it is always read from here.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Catalog resolves authoritative product records.
type Catalog interface {
	// FindByIDs returns the products matching any of ids. Unknown ids are
	// silently absent from the result.
	FindByIDs(ctx context.Context, ids []string) ([]Product, error)
}
