package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/coupon"
)

const couponKeyPrefix = "coupon:code:"

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository wraps a coupon.Repository and caches exact-code lookups.
// Writes invalidate every code they touch. Store failures never fail a
// request; they are logged and the wrapped repository answers instead.
type CouponRepository struct {
	next  coupon.Repository
	store Store
	ttl   time.Duration
}

// NewCouponRepository returns a caching decorator over next.
func NewCouponRepository(next coupon.Repository, store Store, ttl time.Duration) *CouponRepository {
	return &CouponRepository{next: next, store: store, ttl: ttl}
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	key := couponKey(code)
	lg := zctx.From(ctx)

	data, err := r.store.Get(ctx, key)
	switch {
	case err == nil:
		c, decErr := decodeCoupon(data)
		if decErr == nil {
			return c, nil
		}
		lg.Warn("Discarding malformed cached coupon", zap.String("key", key), zap.Error(decErr))
	case !errors.Is(err, ErrMiss):
		lg.Warn("Coupon cache read failed", zap.String("key", key), zap.Error(err))
	}

	c, err := r.next.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := r.store.Set(ctx, key, encodeCoupon(c), r.ttl); err != nil {
		lg.Warn("Coupon cache write failed", zap.String("key", key), zap.Error(err))
	}
	return c, nil
}

// FindByCodeFold is not cached; the key space is exact codes only.
func (r *CouponRepository) FindByCodeFold(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.next.FindByCodeFold(ctx, code)
}

func (r *CouponRepository) FindByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.next.FindByID(ctx, id)
}

func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	return r.next.List(ctx)
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	if err := r.next.Create(ctx, c); err != nil {
		return err
	}
	r.invalidate(ctx, c.Code)
	return nil
}

// Update drops both the previous and the new code from the cache.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon, prevCode string) error {
	codes := []string{c.Code}
	if prevCode != "" && prevCode != c.Code {
		codes = append(codes, prevCode)
	}
	if err := r.next.Update(ctx, c, prevCode); err != nil {
		return err
	}
	r.invalidate(ctx, codes...)
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) (*coupon.Coupon, error) {
	c, err := r.next.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, c.Code)
	return c, nil
}

func (r *CouponRepository) invalidate(ctx context.Context, codes ...string) {
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = couponKey(code)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		zctx.From(ctx).Warn("Coupon cache invalidation failed",
			zap.Strings("keys", keys),
			zap.Error(err),
		)
	}
}

func couponKey(code string) string {
	return couponKeyPrefix + code
}

func encodeCoupon(c *coupon.Coupon) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("amount")
	e.Str(c.Amount.String())
	e.FieldStart("created_at")
	e.Str(c.CreatedAt.Format(time.RFC3339Nano))
	e.FieldStart("updated_at")
	e.Str(c.UpdatedAt.Format(time.RFC3339Nano))
	e.ObjEnd()
	return e.Bytes()
}

func decodeCoupon(data []byte) (*coupon.Coupon, error) {
	var c coupon.Coupon
	d := jx.DecodeBytes(data)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			v, err := d.Str()
			c.ID = v
			return err
		case "code":
			v, err := d.Str()
			c.Code = v
			return err
		case "amount":
			v, err := d.Str()
			if err != nil {
				return err
			}
			c.Amount, err = decimal.NewFromString(v)
			return err
		case "created_at":
			return decodeTime(d, &c.CreatedAt)
		case "updated_at":
			return decodeTime(d, &c.UpdatedAt)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode coupon")
	}
	if c.ID == "" || c.Code == "" {
		return nil, errors.New("decode coupon: missing id or code")
	}
	return &c, nil
}

func decodeTime(d *jx.Decoder, dst *time.Time) error {
	v, err := d.Str()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return err
	}
	*dst = t
	return nil
}
