package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/buyer"
)

const (
	getBuyerByIDSQL = `SELECT id, name FROM buyers WHERE id = $1`

	upsertBuyerSQL = `INSERT INTO buyers (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`
)

var _ buyer.Directory = (*BuyerRepository)(nil)

// BuyerRepository implements buyer.Directory backed by PostgreSQL.
type BuyerRepository struct {
	pool *pgxpool.Pool
}

// NewBuyerRepository returns a BuyerRepository that uses the given pool.
func NewBuyerRepository(pool *pgxpool.Pool) *BuyerRepository {
	return &BuyerRepository{pool: pool}
}

// FindByID returns buyer.ErrNotFound when no buyer has the given id.
func (r *BuyerRepository) FindByID(ctx context.Context, id string) (*buyer.Buyer, error) {
	var b buyer.Buyer
	err := r.pool.QueryRow(ctx, getBuyerByIDSQL, id).Scan(&b.ID, &b.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, buyer.ErrNotFound
		}
		return nil, fmt.Errorf("finding buyer %q: %w", id, err)
	}
	return &b, nil
}

// Upsert inserts or renames a buyer. Used by seeding.
func (r *BuyerRepository) Upsert(ctx context.Context, b buyer.Buyer) error {
	if _, err := r.pool.Exec(ctx, upsertBuyerSQL, b.ID, b.Name); err != nil {
		return fmt.Errorf("upserting buyer %q: %w", b.ID, err)
	}
	return nil
}
