package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/buyer"
	"github.com/xenking/kart-checkout/internal/domain/coupon"
	"github.com/xenking/kart-checkout/internal/domain/product"
	"github.com/xenking/kart-checkout/internal/storage/postgres"
)

type catalog struct {
	Products []product.Product
	Buyers   []buyer.Buyer
	Coupons  []coupon.CreateParams
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}

	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile string) error {
	lg.Info("Reading catalog file", zap.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	cat, err := decodeCatalog(data)
	if err != nil {
		return errors.Wrap(err, "parse catalog")
	}

	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	for _, p := range cat.Products {
		if err := products.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		lg.Info("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
	}

	buyers := postgres.NewBuyerRepository(pool)
	for _, b := range cat.Buyers {
		if err := buyers.Upsert(ctx, b); err != nil {
			return errors.Wrapf(err, "upsert buyer %s", b.ID)
		}
		lg.Info("Upserted buyer", zap.String("id", b.ID))
	}

	coupons := coupon.NewService(postgres.NewCouponRepository(pool))
	for _, p := range cat.Coupons {
		c, err := coupons.Create(ctx, p)
		switch {
		case errors.Is(err, coupon.ErrDuplicateCode):
			lg.Info("Coupon already exists", zap.String("code", p.Code))
		case err != nil:
			return errors.Wrapf(err, "create coupon %s", p.Code)
		default:
			lg.Info("Created coupon", zap.String("code", c.Code), zap.String("amount", c.Amount.String()))
		}
	}

	return nil
}

func decodeCatalog(data []byte) (*catalog, error) {
	var cat catalog
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				var p product.Product
				if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					switch string(key) {
					case "id":
						return decodeString(d, &p.ID)
					case "name":
						return decodeString(d, &p.Name)
					case "price":
						return decodeDecimal(d, &p.Price)
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				if p.ID == "" || !p.Price.IsPositive() {
					return errors.Errorf("product %q: id and positive price required", p.ID)
				}
				cat.Products = append(cat.Products, p)
				return nil
			})
		case "buyers":
			return d.Arr(func(d *jx.Decoder) error {
				var b buyer.Buyer
				if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					switch string(key) {
					case "id":
						return decodeString(d, &b.ID)
					case "name":
						return decodeString(d, &b.Name)
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				if b.ID == "" {
					return errors.New("buyer id required")
				}
				cat.Buyers = append(cat.Buyers, b)
				return nil
			})
		case "coupons":
			return d.Arr(func(d *jx.Decoder) error {
				var p coupon.CreateParams
				if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					switch string(key) {
					case "code":
						return decodeString(d, &p.Code)
					case "amount":
						return decodeDecimal(d, &p.Amount)
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				cat.Coupons = append(cat.Coupons, p)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func decodeString(d *jx.Decoder, dst *string) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

// decodeDecimal accepts both "12.50" and 12.50.
func decodeDecimal(d *jx.Decoder, dst *decimal.Decimal) error {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		raw = n.String()
	default:
		return errors.Errorf("expected decimal, got %s", d.Next())
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return errors.Wrap(err, "parse decimal")
	}
	*dst = v
	return nil
}
