package checkout

import (
	"context"
	"strconv"

	"github.com/xenking/kart-checkout/internal/domain/apperr"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

// Validation failures produced by the checkout pipeline.
var (
	ErrEmptyItems      = apperr.Validation("please send items")
	ErrMissingShipping = apperr.Validation("please send shipping info")
	ErrInvalidCoupon   = apperr.Validation("invalid coupon code")
	ErrUnknownProducts = apperr.Validation("one or more products are invalid or unavailable")
	ErrBuyerNotFound   = apperr.Authentication("please login first")
	ErrAmountTooLarge  = apperr.Validation("order total is too large to charge")
)

// MaxQuantity caps the quantity of one product in a cart, after duplicate
// line items are merged.
const MaxQuantity = 10_000

// InvalidQuantityError indicates a line item with a non-positive quantity or
// a product whose total quantity exceeds MaxQuantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	if e.Quantity > MaxQuantity {
		return "quantity must not exceed " + strconv.Itoa(MaxQuantity) + " for product " + e.ProductID
	}
	return "quantity must be greater than 0 for product " + e.ProductID
}

// Unwrap exposes the validation kind.
func (e *InvalidQuantityError) Unwrap() error {
	return apperr.Validation(e.Error())
}

// Destination is the shipping address. It is passed to the processor as is.
type Destination struct {
	AddressLine string
	PostalCode  string
	City        string
	State       string
	Country     string
}

// Request is the input of Service.Authorize.
type Request struct {
	BuyerID    string
	Items      []pricing.LineItem
	Shipping   *Destination
	CouponCode string
}

// Authorization is the result of a successful checkout authorization.
type Authorization struct {
	// ClientSecret lets the client confirm the payment with the processor.
	ClientSecret string
	IntentID     string
	Breakdown    pricing.Breakdown
	CouponCode   string
}

// ShippingAddress is the processor-facing shipping block.
type ShippingAddress struct {
	Name       string
	Line1      string
	PostalCode string
	City       string
	State      string
	Country    string
}

// PaymentRequest is what the orchestrator asks the processor to authorize.
type PaymentRequest struct {
	// AmountMinor is the total in the currency's minor unit.
	AmountMinor int64
	Currency    string
	Description string
	// IdempotencyKey is unique per checkout so transport retries inside the
	// processor client cannot create a second authorization.
	IdempotencyKey string
	Shipping       ShippingAddress
}

// PaymentIntent is the processor's handle for an authorization.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// PaymentProcessor creates payment authorizations.
type PaymentProcessor interface {
	Authorize(ctx context.Context, req PaymentRequest) (*PaymentIntent, error)
}
