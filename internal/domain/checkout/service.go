package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-checkout/internal/domain/apperr"
	"github.com/xenking/kart-checkout/internal/domain/buyer"
	"github.com/xenking/kart-checkout/internal/domain/coupon"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
	"github.com/xenking/kart-checkout/internal/domain/product"
)

// Coupons resolves a coupon by exact code.
type Coupons interface {
	FindDiscount(ctx context.Context, code string) (*coupon.Coupon, error)
}

// Config holds the non-dependency settings of the Service.
type Config struct {
	Policy      pricing.Policy
	Currency    string
	Description string
	// CurrencyPlaces is the number of minor-unit digits of Currency.
	CurrencyPlaces int32
}

// Service orchestrates a checkout: validate input, resolve the buyer, coupon
// and products, price the cart and request a payment authorization. It holds
// no state between calls.
type Service struct {
	buyers    buyer.Directory
	coupons   Coupons
	catalog   product.Catalog
	processor PaymentProcessor
	cfg       Config
	newKey    func() string
}

// NewService creates a checkout Service.
func NewService(
	cfg Config,
	buyers buyer.Directory,
	coupons Coupons,
	catalog product.Catalog,
	processor PaymentProcessor,
) *Service {
	return &Service{
		buyers:    buyers,
		coupons:   coupons,
		catalog:   catalog,
		processor: processor,
		cfg:       cfg,
		newKey:    uuid.NewString,
	}
}

// Authorize runs the checkout pipeline. Every gate short-circuits the rest;
// the payment authorization is the only side effect and is never retried.
func (s *Service) Authorize(ctx context.Context, req Request) (*Authorization, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.Shipping == nil {
		return nil, ErrMissingShipping
	}
	items, ids, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}

	b, c, err := s.resolve(ctx, req.BuyerID, req.CouponCode)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBuyerNotFound
	}
	if req.CouponCode != "" && c == nil {
		return nil, ErrInvalidCoupon
	}

	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream(errors.Wrap(err, "find products"))
	}
	if len(products) != len(ids) {
		return nil, ErrUnknownProducts
	}

	discount := decimal.Zero
	if c != nil {
		discount = c.Amount
	}
	breakdown := s.cfg.Policy.Compute(items, products, discount)
	amount, err := breakdown.MinorUnits(s.cfg.CurrencyPlaces)
	if err != nil {
		return nil, ErrAmountTooLarge
	}

	intent, err := s.processor.Authorize(ctx, PaymentRequest{
		AmountMinor:    amount,
		Currency:       s.cfg.Currency,
		Description:    s.cfg.Description,
		IdempotencyKey: s.newKey(),
		Shipping: ShippingAddress{
			Name:       b.Name,
			Line1:      req.Shipping.AddressLine,
			PostalCode: req.Shipping.PostalCode,
			City:       req.Shipping.City,
			State:      req.Shipping.State,
			Country:    req.Shipping.Country,
		},
	})
	if err != nil {
		return nil, apperr.Upstream(err)
	}

	zctx.From(ctx).Info("Payment authorized",
		zap.String("buyer_id", b.ID),
		zap.String("intent_id", intent.ID),
		zap.String("total", breakdown.Total.String()),
		zap.String("currency", s.cfg.Currency),
		zap.Bool("coupon", c != nil),
	)

	auth := &Authorization{
		ClientSecret: intent.ClientSecret,
		IntentID:     intent.ID,
		Breakdown:    breakdown,
	}
	if c != nil {
		auth.CouponCode = c.Code
	}
	return auth, nil
}

// resolve looks up the buyer and, when a code is given, the coupon
// concurrently. Absence is reported as a nil result; only collaborator
// failures are returned as errors, after both lookups have finished.
func (s *Service) resolve(ctx context.Context, buyerID, code string) (*buyer.Buyer, *coupon.Coupon, error) {
	var (
		b *buyer.Buyer
		c *coupon.Coupon
		g errgroup.Group
	)

	g.Go(func() error {
		found, err := s.buyers.FindByID(ctx, buyerID)
		switch {
		case errors.Is(err, buyer.ErrNotFound):
			return nil
		case err != nil:
			return errors.Wrap(err, "find buyer")
		}
		b = found
		return nil
	})

	if code != "" {
		g.Go(func() error {
			found, err := s.coupons.FindDiscount(ctx, code)
			switch {
			case errors.Is(err, coupon.ErrNotFound):
				return nil
			case err != nil:
				return errors.Wrap(err, "find coupon")
			}
			c = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, apperr.Upstream(err)
	}
	return b, c, nil
}

// mergeItems validates quantities and folds line items that reference the
// same product into one, summing quantities. Every quantity and every sum is
// bounded by MaxQuantity, so the sum cannot overflow. It returns the merged
// items and the distinct product ids in first-seen order.
func mergeItems(items []pricing.LineItem) ([]pricing.LineItem, []string, error) {
	index := make(map[string]int, len(items))
	merged := make([]pricing.LineItem, 0, len(items))
	ids := make([]string, 0, len(items))

	for _, item := range items {
		if item.Quantity <= 0 || item.Quantity > MaxQuantity {
			return nil, nil, &InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if i, ok := index[item.ProductID]; ok {
			sum := merged[i].Quantity + item.Quantity
			if sum > MaxQuantity {
				return nil, nil, &InvalidQuantityError{ProductID: item.ProductID, Quantity: sum}
			}
			merged[i].Quantity = sum
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
		ids = append(ids, item.ProductID)
	}
	return merged, ids, nil
}
