// Package book defines the catalog entities and query contract.
package book

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested book does not exist.
	ErrNotFound = errors.New("book not found")
	// ErrCategoryNotFound is returned when a requested category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryInUse is returned when deleting a category that still has books.
	ErrCategoryInUse = errors.New("category has books and cannot be deleted")
	// ErrBookInUse is returned when deleting a book referenced by order lines.
	ErrBookInUse = errors.New("book appears in orders and cannot be deleted")
	// ErrDuplicateSlug is returned when a category name slugifies to a slug
	// already taken by another category.
	ErrDuplicateSlug = errors.New("a category with this name already exists")
)

// Book is a purchasable catalog entry.
type Book struct {
	ID          string
	Title       string
	Author      string
	Description string
	Price       decimal.Decimal
	Image       string
	ISBN        string
	Pages       int
	PublishedAt *time.Time
	Stock       int
	Featured    bool
	CategoryID  string

	// Denormalized from the category join for display.
	CategoryName string
	CategorySlug string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the invariants for catalog writes.
func (b *Book) Validate() error {
	switch {
	case strings.TrimSpace(b.Title) == "":
		return errors.New("title is required")
	case strings.TrimSpace(b.Author) == "":
		return errors.New("author is required")
	case b.Price.IsNegative():
		return errors.New("price must be non-negative")
	case b.Stock < 0:
		return errors.New("stock must be non-negative")
	case b.CategoryID == "":
		return errors.New("category is required")
	}
	return nil
}

// Category is a named grouping of books, addressed by a unique slug.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	BookCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Slugify derives a URL slug from a category name: lowercase, runs of
// non-alphanumeric characters collapsed to single hyphens, no leading or
// trailing hyphen.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	prevHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			prevHyphen = false
		} else if !prevHyphen {
			b.WriteByte('-')
			prevHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Bestseller is a book ranked by real order volume.
type Bestseller struct {
	Book
	TotalSold  int
	OrderCount int
}

// Repository defines read operations for the catalog.
type Repository interface {
	Search(ctx context.Context, q Query) (Page, error)
	GetByID(ctx context.Context, id string) (*Book, error)
	GetByIDs(ctx context.Context, ids []string) ([]Book, error)
	Featured(ctx context.Context, limit int) ([]Book, error)
	Bestsellers(ctx context.Context, limit int) ([]Bestseller, error)
}

// AdminRepository defines the back-office catalog writes.
type AdminRepository interface {
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, b *Book) error
	// Delete removes a book. It returns ErrBookInUse while any order line
	// still references the book; order history keeps its snapshots.
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines category reads and back-office writes.
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id string) (*Category, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	// Delete removes a category. It returns ErrCategoryInUse while any book
	// still references the category.
	Delete(ctx context.Context, id string) error
}
