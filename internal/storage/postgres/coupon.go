package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/coupon"
)

const (
	couponColumns = `id::text, code, amount, created_at, updated_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	getCouponByCodeFoldSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE UPPER(code) = UPPER($1) LIMIT 1`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at, code`

	createCouponSQL = `INSERT INTO coupons (id, code, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	updateCouponSQL = `UPDATE coupons SET code = $2, amount = $3, updated_at = $4 WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1 RETURNING ` + couponColumns
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its exact code.
// Returns coupon.ErrNotFound when no coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.findOne(ctx, getCouponByCodeSQL, code)
}

// FindByCodeFold looks up a coupon by code ignoring case.
// Returns coupon.ErrNotFound when no coupon matches.
func (r *CouponRepository) FindByCodeFold(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.findOne(ctx, getCouponByCodeFoldSQL, code)
}

// FindByID returns coupon.ErrNotFound for unknown or malformed ids.
func (r *CouponRepository) FindByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, coupon.ErrNotFound
	}
	return r.findOne(ctx, getCouponByIDSQL, id)
}

// List returns all coupons ordered by creation time.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("scanning coupons: %w", err)
	}
	return coupons, nil
}

// Create inserts a coupon. A case-insensitive code collision caught by the
// unique index is reported as coupon.ErrDuplicateCode.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, createCouponSQL, c.ID, c.Code, c.Amount, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creating coupon %q: %w", c.Code, coupon.ErrDuplicateCode)
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update overwrites code and amount of an existing coupon.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon, _ string) error {
	if _, err := uuid.Parse(c.ID); err != nil {
		return coupon.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, updateCouponSQL, c.ID, c.Code, c.Amount, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("updating coupon %q: %w", c.ID, coupon.ErrDuplicateCode)
		}
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes a coupon and returns the deleted row.
func (r *CouponRepository) Delete(ctx context.Context, id string) (*coupon.Coupon, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, coupon.ErrNotFound
	}
	return r.findOne(ctx, deleteCouponSQL, id)
}

func (r *CouponRepository) findOne(ctx context.Context, sql string, arg string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("querying coupon %q: %w", arg, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("querying coupon %q: %w", arg, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Amount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
