// Package pricing turns cart line items and authoritative product records into
// a price breakdown. It performs no I/O.
package pricing

import (
	"math"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/product"
)

// ErrAmountOverflow is returned by Breakdown.MinorUnits when the total does not
// fit in an int64 amount of minor units.
var ErrAmountOverflow = errors.New("amount does not fit in minor units")

var (
	zero     = decimal.Zero
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// LineItem is one cart entry as supplied by the client. It deliberately has no
// price field: prices only come from product.Product.
type LineItem struct {
	ProductID string
	Quantity  int
}

// Policy holds the regional pricing constants.
type Policy struct {
	// TaxRate is applied to the subtotal, e.g. 0.18 for 18%.
	TaxRate decimal.Decimal
	// FreeShippingThreshold is the subtotal that must be exceeded (strictly)
	// for shipping to be free.
	FreeShippingThreshold decimal.Decimal
	// ShippingFee is charged when the subtotal does not exceed the threshold.
	ShippingFee decimal.Decimal
}

// DefaultPolicy returns 18% tax and a flat 200 shipping fee waived above 1000.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.18"),
		FreeShippingThreshold: decimal.NewFromInt(1000),
		ShippingFee:           decimal.NewFromInt(200),
	}
}

// Validate rejects policies that could produce negative amounts.
func (p Policy) Validate() error {
	if p.TaxRate.IsNegative() {
		return errors.Errorf("tax rate must not be negative, got %s", p.TaxRate)
	}
	if p.FreeShippingThreshold.IsNegative() {
		return errors.Errorf("free shipping threshold must not be negative, got %s", p.FreeShippingThreshold)
	}
	if p.ShippingFee.IsNegative() {
		return errors.Errorf("shipping fee must not be negative, got %s", p.ShippingFee)
	}
	return nil
}

// Breakdown is the computed price of a cart.
type Breakdown struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	// Total is floored to a whole currency unit and never negative.
	Total decimal.Decimal
}

// Compute prices items against products. Every product contributes its price
// times the quantity of the line item with the same id; a product with no
// matching line item contributes nothing. Callers are expected to have
// verified that every line item has a product.
//
// total = floor(max(0, subtotal + tax + shipping - discount))
func (p Policy) Compute(items []LineItem, products []product.Product, discount decimal.Decimal) Breakdown {
	qty := make(map[string]int, len(items))
	for _, item := range items {
		if _, ok := qty[item.ProductID]; !ok {
			qty[item.ProductID] = item.Quantity
		}
	}

	subtotal := zero
	for _, prod := range products {
		q, ok := qty[prod.ID]
		if !ok {
			continue
		}
		subtotal = subtotal.Add(prod.Price.Mul(decimal.NewFromInt(int64(q))))
	}

	tax := subtotal.Mul(p.TaxRate)

	shipping := p.ShippingFee
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = zero
	}

	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = zero
	}

	return Breakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    total.Floor(),
	}
}

// MinorUnits converts Total into the processor's smallest currency unit for a
// currency with the given number of decimal places (2 for INR, USD).
func (b Breakdown) MinorUnits(places int32) (int64, error) {
	shifted := b.Total.Shift(places)
	if shifted.GreaterThan(maxMinor) {
		return 0, ErrAmountOverflow
	}
	return shifted.IntPart(), nil
}
