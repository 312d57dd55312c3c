package coupon

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/apperr"
)

var (
	// ErrNotFound is returned when no coupon matches an id or code.
	ErrNotFound = apperr.NotFound("coupon not found")
	// ErrDuplicateCode is returned when a code collides, ignoring case, with an
	// existing coupon.
	ErrDuplicateCode = apperr.Validation("coupon code already exists")
	// ErrCodeRequired is returned when a coupon is created without a code.
	ErrCodeRequired = apperr.Validation("coupon code is required")
	// ErrInvalidAmount is returned for a missing, zero, or negative amount.
	ErrInvalidAmount = apperr.Validation("coupon amount must be greater than 0")
	// ErrNothingToUpdate is returned when an update names no fields.
	ErrNothingToUpdate = apperr.Validation("please provide fields to update")
)

// Coupon is a flat-amount discount code.
type Coupon struct {
	ID        string
	Code      string
	Amount    decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists coupons.
//
// FindByCode and FindByCodeFold intentionally differ: checkout and discount
// preview match codes exactly, while creation rejects codes that collide
// ignoring case.
type Repository interface {
	// FindByCode returns the coupon whose code equals code exactly.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// FindByCodeFold returns a coupon whose code equals code ignoring case.
	FindByCodeFold(ctx context.Context, code string) (*Coupon, error)
	FindByID(ctx context.Context, id string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	// Update stores c. prevCode is the code c had before the update, so
	// decorators keyed by code can drop the old entry without a lookup.
	Update(ctx context.Context, c *Coupon, prevCode string) error
	// Delete removes the coupon and returns it as it was.
	Delete(ctx context.Context, id string) (*Coupon, error)
}
