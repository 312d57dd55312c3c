package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/coupon"
	"github.com/xenking/kart-checkout/internal/ingest"
	"github.com/xenking/kart-checkout/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		capacity    uint
		fpr         float64
		debug       bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing coupon files")
	flag.StringVar(&pattern, "pattern", "*.gz", "glob of gzip-compressed CODE,AMOUNT files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "expected-codes", 1_000_000, "expected number of distinct codes, sizes the bloom filter")
	flag.Float64Var(&fpr, "false-positive-rate", 0.001, "bloom filter false positive rate")
	flag.BoolVar(&debug, "debug", false, "log skipped duplicates")
	flag.Parse()

	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	lg, err := cfg.Build()
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

	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		lg.Fatal("Bad file pattern", zap.Error(err))
	}
	if len(files) == 0 {
		lg.Fatal("No input files", zap.String("dir", dataDir), zap.String("pattern", pattern))
	}

	if err := run(ctx, lg, databaseURL, files, ingest.WithCapacity(capacity), ingest.WithFalsePositiveRate(fpr)); err != nil {
		lg.Fatal("Coupon ingest failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, files []string, opts ...ingest.Option) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	lg.Info("Importing coupons", zap.Strings("files", files))

	svc := coupon.NewService(postgres.NewCouponRepository(pool))
	stats, err := ingest.New(svc, lg, opts...).ImportFiles(ctx, files)
	lg.Info("Import finished",
		zap.Int("read", stats.Read),
		zap.Int("inserted", stats.Inserted),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("invalid", stats.Invalid),
	)
	if err != nil {
		return errors.Wrap(err, "import")
	}
	return nil
}
