// Command seed-db populates the database with the storefront categories, a
// set of sample books, an admin user, and an admin API key.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/bookrack/internal/handler"
	"github.com/xenking/bookrack/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		adminEmail   string
		adminPass    string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminEmail, "admin-email", "admin@bookrack.local", "admin user email")
	flag.StringVar(&adminPass, "admin-password", "", "admin user password (or BOOKRACK_SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or BOOKRACK_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or BOOKRACK_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPass == "" {
		adminPass = os.Getenv("BOOKRACK_SEED_ADMIN_PASSWORD")
	}
	if adminPass == "" {
		slog.Error("admin password is required: set --admin-password or BOOKRACK_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("BOOKRACK_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or BOOKRACK_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("BOOKRACK_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, adminEmail, adminPass, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, adminEmail, adminPass, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedAdminUser(ctx, pool, adminEmail, adminPass); err != nil {
		return errors.Wrap(err, "seed admin user")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

type seedCategory struct {
	name        string
	slug        string
	description string
}

var seedCategories = []seedCategory{
	{"Fiction", "fiction", "Novels, short stories, and literary works"},
	{"Non-Fiction", "non-fiction", "Biographies, history, and factual content"},
	{"Religious", "religious", "Spiritual and religious texts"},
	{"Self-Help", "self-help", "Personal development and growth"},
	{"Kids", "kids", "Children's books and young adult"},
	{"Academic", "academic", "Textbooks and scholarly works"},
}

type seedBook struct {
	title        string
	author       string
	description  string
	price        string
	isbn         string
	pages        int
	publishedAt  string
	stock        int
	featured     bool
	categorySlug string
}

var seedBooks = []seedBook{
	{
		title:        "The Great Gatsby",
		author:       "F. Scott Fitzgerald",
		description:  "A classic American novel set in the Jazz Age, following the mysterious Jay Gatsby and his obsession with the beautiful Daisy Buchanan.",
		price:        "1299.00",
		isbn:         "9780743273565",
		pages:        180,
		publishedAt:  "1925-04-10",
		stock:        50,
		featured:     true,
		categorySlug: "fiction",
	},
	{
		title:        "To Kill a Mockingbird",
		author:       "Harper Lee",
		description:  "A gripping tale of racial injustice and childhood innocence in the American South.",
		price:        "1499.00",
		isbn:         "9780061120084",
		pages:        281,
		publishedAt:  "1960-07-11",
		stock:        30,
		featured:     true,
		categorySlug: "fiction",
	},
	{
		title:        "1984",
		author:       "George Orwell",
		description:  "A dystopian social science fiction novel about totalitarian control and surveillance.",
		price:        "1399.00",
		isbn:         "9780451524935",
		pages:        328,
		publishedAt:  "1949-06-08",
		stock:        25,
		featured:     true,
		categorySlug: "fiction",
	},
	{
		title:        "Pride and Prejudice",
		author:       "Jane Austen",
		description:  "A romantic novel that critiques the British landed gentry of the early 19th century.",
		price:        "1199.00",
		isbn:         "9780141439518",
		pages:        432,
		publishedAt:  "1813-01-28",
		stock:        40,
		featured:     true,
		categorySlug: "fiction",
	},
	{
		title:        "Atomic Habits",
		author:       "James Clear",
		description:  "An easy and proven way to build good habits and break bad ones.",
		price:        "1699.00",
		isbn:         "9780735211292",
		pages:        320,
		publishedAt:  "2018-10-16",
		stock:        35,
		featured:     false,
		categorySlug: "self-help",
	},
	{
		title:        "The Holy Quran",
		author:       "Various Translators",
		description:  "The central religious text of Islam, believed by Muslims to be a revelation from God.",
		price:        "1999.00",
		isbn:         "9780199535958",
		pages:        604,
		publishedAt:  "0610-01-01",
		stock:        100,
		featured:     false,
		categorySlug: "religious",
	},
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	categoryIDs := make(map[string]string, len(seedCategories))

	for _, c := range seedCategories {
		id := uuid.New().String()
		err := pool.QueryRow(ctx,
			`INSERT INTO categories (id, name, slug, description) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			id, c.name, c.slug, c.description,
		).Scan(&id)
		if err != nil {
			return errors.Wrapf(err, "category %s", c.slug)
		}
		categoryIDs[c.slug] = id
	}
	slog.Info("seeded categories", slog.Int("count", len(seedCategories)))

	for _, b := range seedBooks {
		price, err := decimal.NewFromString(b.price)
		if err != nil {
			return errors.Wrapf(err, "price for %s", b.isbn)
		}
		published, err := time.Parse(time.DateOnly, b.publishedAt)
		if err != nil {
			return errors.Wrapf(err, "published date for %s", b.isbn)
		}

		_, err = pool.Exec(ctx,
			`INSERT INTO books
			 (id, title, author, description, price, isbn, pages, published_at, stock, featured, category_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (isbn) WHERE isbn <> '' DO NOTHING`,
			uuid.New().String(), b.title, b.author, b.description, price,
			b.isbn, b.pages, published, b.stock, b.featured, categoryIDs[b.categorySlug],
		)
		if err != nil {
			return errors.Wrapf(err, "book %s", b.isbn)
		}
	}
	slog.Info("seeded books", slog.Int("count", len(seedBooks)))
	return nil
}

func seedAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4, 'ADMIN')
		 ON CONFLICT (email) DO NOTHING`,
		uuid.New().String(), "Admin User", email, string(hash),
	)
	if err != nil {
		return errors.Wrap(err, "insert admin user")
	}

	slog.Info("seeded admin user", slog.String("email", email))
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	hash := handler.HashAPIKey([]byte(pepper), apiKey)

	_, err := pool.Exec(ctx,
		`INSERT INTO api_keys (id, key_hash, name, scopes, active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 ON CONFLICT (key_hash) DO NOTHING`,
		uuid.New().String(), hash, "admin", []string{"admin"},
	)
	if err != nil {
		return errors.Wrap(err, "insert api key")
	}

	slog.Info("seeded api key", slog.String("name", "admin"))
	return nil
}
