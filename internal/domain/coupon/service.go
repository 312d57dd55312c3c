package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/apperr"
)

// CreateParams holds the input for creating a coupon.
type CreateParams struct {
	Code   string
	Amount decimal.Decimal
}

// UpdateParams holds a partial update. Nil fields are left unchanged.
type UpdateParams struct {
	Code   *string
	Amount *decimal.Decimal
}

// Service implements coupon management and the exact-match discount lookup.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

// NewService creates a Service backed by the given Repository.
func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// FindDiscount returns the coupon whose code matches exactly. Lookups are
// case-sensitive even though creation rejects case-insensitive collisions.
func (s *Service) FindDiscount(ctx context.Context, code string) (*Coupon, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, lookupError(err, "find coupon by code")
	}
	return c, nil
}

// Create validates and stores a new coupon, rejecting codes that already
// exist under a case-insensitive comparison.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Coupon, error) {
	c, err := s.build(p)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, c.Code, ""); err != nil {
		return nil, err
	}
	return s.store(ctx, c)
}

// CreateNew stores a coupon whose code the caller already knows to be
// unused, skipping the case-insensitive lookup. The storage unique index
// still rejects a collision with ErrDuplicateCode.
func (s *Service) CreateNew(ctx context.Context, p CreateParams) (*Coupon, error) {
	c, err := s.build(p)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, c)
}

func (s *Service) build(p CreateParams) (*Coupon, error) {
	code := strings.TrimSpace(p.Code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	now := s.now().UTC()
	return &Coupon{
		ID:        s.newID(),
		Code:      code,
		Amount:    p.Amount,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Service) store(ctx context.Context, c *Coupon) (*Coupon, error) {
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return nil, ErrDuplicateCode
		}
		return nil, apperr.Upstream(errors.Wrap(err, "create coupon"))
	}
	return c, nil
}

// Get returns a coupon by id.
func (s *Service) Get(ctx context.Context, id string) (*Coupon, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "find coupon by id")
	}
	return c, nil
}

// List returns all coupons.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Upstream(errors.Wrap(err, "list coupons"))
	}
	return coupons, nil
}

// Update applies a partial update to the coupon with the given id.
func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (*Coupon, error) {
	if p.Code == nil && p.Amount == nil {
		return nil, ErrNothingToUpdate
	}

	var code string
	if p.Code != nil {
		code = strings.TrimSpace(*p.Code)
		if code == "" {
			return nil, ErrCodeRequired
		}
	}
	if p.Amount != nil && !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "find coupon by id")
	}

	if code != "" && !strings.EqualFold(code, c.Code) {
		if err := s.ensureCodeFree(ctx, code, c.ID); err != nil {
			return nil, err
		}
	}

	updated := *c
	if code != "" {
		updated.Code = code
	}
	if p.Amount != nil {
		updated.Amount = *p.Amount
	}
	updated.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, &updated, c.Code); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, ErrDuplicateCode):
			return nil, ErrDuplicateCode
		}
		return nil, apperr.Upstream(errors.Wrap(err, "update coupon"))
	}
	return &updated, nil
}

// Delete removes the coupon with the given id and returns it.
func (s *Service) Delete(ctx context.Context, id string) (*Coupon, error) {
	c, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, lookupError(err, "delete coupon")
	}
	return c, nil
}

// ensureCodeFree fails with ErrDuplicateCode when another coupon (other than
// selfID) already uses code ignoring case.
func (s *Service) ensureCodeFree(ctx context.Context, code, selfID string) error {
	existing, err := s.repo.FindByCodeFold(ctx, code)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return apperr.Upstream(errors.Wrap(err, "check coupon code"))
	case existing.ID != selfID:
		return ErrDuplicateCode
	}
	return nil
}

func lookupError(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return apperr.Upstream(errors.Wrap(err, msg))
}
