// Package ingest bulk-loads coupons from gzip-compressed CODE,AMOUNT files.
//
// Existing codes are loaded into a bloom filter first. Codes the filter has
// never seen are inserted directly; possible collisions go through the
// case-insensitive duplicate check of the coupon service.
package ingest

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-checkout/internal/domain/coupon"
)

const (
	defaultCapacity = 1_000_000
	defaultFPR      = 0.001
	progressEvery   = 100_000
)

// Coupons is the subset of the coupon service the importer writes through.
type Coupons interface {
	List(ctx context.Context) ([]coupon.Coupon, error)
	Create(ctx context.Context, p coupon.CreateParams) (*coupon.Coupon, error)
	CreateNew(ctx context.Context, p coupon.CreateParams) (*coupon.Coupon, error)
}

// Record is one parsed input line.
type Record struct {
	File   string
	Line   int
	Code   string
	Amount decimal.Decimal
}

// Stats summarizes an import run.
type Stats struct {
	Read       int
	Inserted   int
	Duplicates int
	Invalid    int
}

// Importer loads coupon files.
type Importer struct {
	coupons  Coupons
	lg       *zap.Logger
	capacity uint
	fpr      float64
}

// Option configures an Importer.
type Option func(*Importer)

// WithCapacity sets the expected number of distinct codes the bloom filter is
// sized for.
func WithCapacity(n uint) Option {
	return func(i *Importer) {
		if n > 0 {
			i.capacity = n
		}
	}
}

// WithFalsePositiveRate sets the bloom filter false positive rate.
func WithFalsePositiveRate(p float64) Option {
	return func(i *Importer) {
		if p > 0 && p < 1 {
			i.fpr = p
		}
	}
}

// New creates an Importer writing through coupons.
func New(coupons Coupons, lg *zap.Logger, opts ...Option) *Importer {
	i := &Importer{
		coupons:  coupons,
		lg:       lg,
		capacity: defaultCapacity,
		fpr:      defaultFPR,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// ImportFiles opens each path and imports its contents.
func (i *Importer) ImportFiles(ctx context.Context, paths []string) (Stats, error) {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, FileSource(p))
	}
	return i.Import(ctx, sources...)
}

// Source names an input and opens its gzip-compressed stream.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource reads a file from disk.
func FileSource(path string) Source {
	return Source{
		Name: path,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// Import parses all sources concurrently and writes their coupons in a single
// goroutine, so the bloom filter needs no locking and a code repeated across
// files is written once.
func (i *Importer) Import(ctx context.Context, sources ...Source) (Stats, error) {
	filter, err := i.loadExisting(ctx)
	if err != nil {
		return Stats{}, err
	}

	records := make(chan Record, 1024)
	invalid := make(chan int, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	parsers, pctx := errgroup.WithContext(gctx)
	for _, src := range sources {
		parsers.Go(func() error {
			n, err := i.parseSource(pctx, src, records)
			invalid <- n
			return err
		})
	}
	g.Go(func() error {
		defer close(records)
		return parsers.Wait()
	})

	var stats Stats
	g.Go(func() error {
		for rec := range records {
			stats.Read++
			if err := i.write(gctx, filter, rec, &stats); err != nil {
				return err
			}
			if stats.Read%progressEvery == 0 {
				i.lg.Info("Import progress",
					zap.Int("read", stats.Read),
					zap.Int("inserted", stats.Inserted),
					zap.Int("duplicates", stats.Duplicates),
				)
			}
		}
		return nil
	})

	err = g.Wait()
	close(invalid)
	for n := range invalid {
		stats.Invalid += n
	}
	return stats, err
}

func (i *Importer) loadExisting(ctx context.Context) (*bloom.BloomFilter, error) {
	existing, err := i.coupons.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list existing coupons")
	}

	capacity := i.capacity
	if n := uint(len(existing)) * 2; n > capacity {
		capacity = n
	}
	filter := bloom.NewWithEstimates(capacity, i.fpr)
	for _, c := range existing {
		filter.AddString(foldKey(c.Code))
	}
	i.lg.Info("Loaded existing codes",
		zap.Int("count", len(existing)),
		zap.Uint("filter_bits", filter.Cap()),
		zap.Uint("filter_hashes", filter.K()),
	)
	return filter, nil
}

func (i *Importer) write(ctx context.Context, filter *bloom.BloomFilter, rec Record, stats *Stats) error {
	key := foldKey(rec.Code)
	params := coupon.CreateParams{Code: rec.Code, Amount: rec.Amount}

	var err error
	if filter.TestString(key) {
		_, err = i.coupons.Create(ctx, params)
	} else {
		_, err = i.coupons.CreateNew(ctx, params)
	}
	switch {
	case err == nil:
		filter.AddString(key)
		stats.Inserted++
		return nil
	case errors.Is(err, coupon.ErrDuplicateCode):
		filter.AddString(key)
		stats.Duplicates++
		i.lg.Debug("Skipping duplicate code",
			zap.String("code", rec.Code),
			zap.String("file", rec.File),
			zap.Int("line", rec.Line),
		)
		return nil
	default:
		return errors.Wrapf(err, "%s:%d: create coupon %q", rec.File, rec.Line, rec.Code)
	}
}

func (i *Importer) parseSource(ctx context.Context, src Source, out chan<- Record) (int, error) {
	rc, err := src.Open()
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", src.Name)
	}
	defer func() { _ = rc.Close() }()

	gz, err := pgzip.NewReader(rc)
	if err != nil {
		return 0, errors.Wrapf(err, "gzip reader %s", src.Name)
	}
	defer func() { _ = gz.Close() }()

	var invalid int
	scanner := bufio.NewScanner(gz)
	line := 0
	for scanner.Scan() {
		line++
		code, amount, ok, err := ParseLine(scanner.Text())
		if err != nil {
			invalid++
			i.lg.Warn("Skipping invalid line",
				zap.String("file", src.Name),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- Record{File: src.Name, Line: line, Code: code, Amount: amount}:
		case <-ctx.Done():
			return invalid, ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return invalid, errors.Wrapf(err, "scan %s", src.Name)
	}
	return invalid, nil
}

// ParseLine parses a CODE,AMOUNT line. Blank lines and lines starting with
// '#' report ok=false with no error.
func ParseLine(s string) (code string, amount decimal.Decimal, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") {
		return "", decimal.Zero, false, nil
	}

	rawCode, rawAmount, found := strings.Cut(s, ",")
	if !found {
		return "", decimal.Zero, false, errors.Errorf("expected CODE,AMOUNT, got %q", s)
	}
	code = strings.TrimSpace(rawCode)
	if code == "" {
		return "", decimal.Zero, false, coupon.ErrCodeRequired
	}
	amount, err = decimal.NewFromString(strings.TrimSpace(rawAmount))
	if err != nil {
		return "", decimal.Zero, false, errors.Wrapf(err, "parse amount for %q", code)
	}
	if !amount.IsPositive() {
		return "", decimal.Zero, false, coupon.ErrInvalidAmount
	}
	return code, amount, true, nil
}

func foldKey(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
