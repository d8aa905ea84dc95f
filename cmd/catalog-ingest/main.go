// Command catalog-ingest bulk-imports gzipped JSONL catalog dumps. ISBNs
// already present in the database are skipped via a bloom filter prepass;
// the same filter dedupes ISBNs across input files.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookrack/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// bookRecord is one JSONL line of a catalog dump.
type bookRecord struct {
	Title       string
	Author      string
	Description string
	Price       decimal.Decimal
	Image       string
	ISBN        string
	Pages       int
	PublishedAt string
	Stock       int
	Featured    bool
	Category    string
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz catalog dumps")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	categories, err := loadCategories(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "load categories")
	}

	slog.Info("prepass: loading known ISBNs into bloom filter")

	seen, err := buildISBNFilter(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "build isbn filter")
	}

	slog.Info("ingesting catalog dumps", slog.Int("files", len(files)))

	ing := &ingester{
		pool:       pool,
		categories: categories,
		seen:       seen,
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(ing.ingestFile(ctx, f))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest totals",
		slog.Uint64("inserted", ing.inserted),
		slog.Uint64("skipped", ing.skipped),
	)
	return nil
}

// loadCategories maps category slugs to IDs for resolving dump records.
func loadCategories(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	rows, err := pool.Query(ctx, "SELECT slug, id FROM categories")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make(map[string]string)
	for rows.Next() {
		var slug, id string
		if err := rows.Scan(&slug, &id); err != nil {
			return nil, err
		}
		categories[slug] = id
	}
	return categories, rows.Err()
}

// buildISBNFilter streams every stored ISBN into a bloom filter. False
// positives only cause a redundant insert attempt, which the unique index
// turns into a no-op.
func buildISBNFilter(ctx context.Context, pool *pgxpool.Pool) (*bloom.BloomFilter, error) {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	rows, err := pool.Query(ctx, "SELECT isbn FROM books WHERE isbn <> ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var count uint64
	for rows.Next() {
		var isbn string
		if err := rows.Scan(&isbn); err != nil {
			return nil, err
		}
		filter.AddString(isbn)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slog.Info("prepass complete", slog.Uint64("known_isbns", count))
	return filter, nil
}

// ingester shares the dedupe filter and counters across file workers.
type ingester struct {
	pool       *pgxpool.Pool
	categories map[string]string

	mu       sync.Mutex
	seen     *bloom.BloomFilter
	inserted uint64
	skipped  uint64
}

// markISBN records an ISBN, reporting whether it was already present.
func (ing *ingester) markISBN(isbn string) bool {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if ing.seen.TestString(isbn) {
		return true
	}
	ing.seen.AddString(isbn)
	return false
}

func (ing *ingester) addCounts(inserted, skipped uint64) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	ing.inserted += inserted
	ing.skipped += skipped
}

func (ing *ingester) ingestFile(ctx context.Context, path string) func() error {
	return func() error {
		var inserted, skipped, lines uint64

		err := streamGzLines(ctx, path, func(line []byte) error {
			lines++
			if lines%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("lines", lines),
				)
			}

			rec, err := decodeRecord(line)
			if err != nil {
				return errors.Wrapf(err, "line %d", lines)
			}
			if rec.ISBN != "" && ing.markISBN(rec.ISBN) {
				skipped++
				return nil
			}

			ok, err := ing.insert(ctx, rec)
			if err != nil {
				return errors.Wrapf(err, "line %d", lines)
			}
			if ok {
				inserted++
			} else {
				skipped++
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "ingest %s", path)
		}

		slog.Info("file complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("inserted", inserted),
			slog.Uint64("skipped", skipped),
		)
		ing.addCounts(inserted, skipped)
		return nil
	}
}

const insertBookSQL = `INSERT INTO books
	(id, title, author, description, price, image, isbn, pages, published_at, stock, featured, category_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (isbn) WHERE isbn <> '' DO NOTHING`

func (ing *ingester) insert(ctx context.Context, rec bookRecord) (bool, error) {
	categoryID, ok := ing.categories[rec.Category]
	if !ok {
		return false, errors.Errorf("unknown category %q for isbn %q", rec.Category, rec.ISBN)
	}

	var publishedAt *time.Time
	if rec.PublishedAt != "" {
		t, err := time.Parse(time.DateOnly, rec.PublishedAt)
		if err != nil {
			return false, errors.Wrapf(err, "published date for isbn %q", rec.ISBN)
		}
		publishedAt = &t
	}

	tag, err := ing.pool.Exec(ctx, insertBookSQL,
		uuid.New().String(), rec.Title, rec.Author, rec.Description, rec.Price,
		rec.Image, rec.ISBN, rec.Pages, publishedAt, rec.Stock, rec.Featured, categoryID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// decodeRecord parses one JSONL line.
func decodeRecord(line []byte) (bookRecord, error) {
	var rec bookRecord
	d := jx.DecodeBytes(line)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "title":
			rec.Title, err = d.Str()
		case "author":
			rec.Author, err = d.Str()
		case "description":
			rec.Description, err = d.Str()
		case "price":
			var num jx.Num
			if num, err = d.Num(); err == nil {
				rec.Price, err = decimal.NewFromString(num.String())
			}
		case "image":
			rec.Image, err = d.Str()
		case "isbn":
			rec.ISBN, err = d.Str()
		case "pages":
			rec.Pages, err = d.Int()
		case "publishedAt":
			rec.PublishedAt, err = d.Str()
		case "stock":
			rec.Stock, err = d.Int()
		case "featured":
			rec.Featured, err = d.Bool()
		case "category":
			rec.Category, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return bookRecord{}, err
	}

	switch {
	case rec.Title == "":
		return bookRecord{}, errors.New("title is required")
	case rec.Author == "":
		return bookRecord{}, errors.New("author is required")
	case rec.Category == "":
		return bookRecord{}, errors.New("category is required")
	case rec.Price.IsNegative():
		return bookRecord{}, errors.New("price must be non-negative")
	}
	return rec, nil
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
