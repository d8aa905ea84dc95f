package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookrack/internal/domain/book"
)

const categoryColumns = `c.id, c.name, c.slug, c.description,
	(SELECT count(*) FROM books b WHERE b.category_id = c.id),
	c.created_at, c.updated_at`

var _ book.CategoryRepository = (*CategoryRepository)(nil)

// CategoryRepository implements book.CategoryRepository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns all categories with their book counts, name-alphabetical.
func (r *CategoryRepository) List(ctx context.Context) ([]book.Category, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+categoryColumns+" FROM categories c ORDER BY c.name")
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

// GetByID returns a single category by its identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*book.Category, error) {
	return r.getOne(ctx, "c.id", id)
}

// GetBySlug returns a single category by its slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*book.Category, error) {
	return r.getOne(ctx, "c.slug", slug)
}

func (r *CategoryRepository) getOne(ctx context.Context, column, value string) (*book.Category, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+categoryColumns+" FROM categories c WHERE "+column+" = $1", value)
	if err != nil {
		return nil, fmt.Errorf("getting category %q: %w", value, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("getting category %q: %w", value, err)
	}
	return &c, nil
}

// Create persists a new category. A slug collision with an existing category
// is reported as book.ErrDuplicateSlug.
func (r *CategoryRepository) Create(ctx context.Context, c *book.Category) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO categories (id, name, slug, description) VALUES ($1, $2, $3, $4)",
		c.ID, c.Name, c.Slug, c.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return book.ErrDuplicateSlug
		}
		return fmt.Errorf("creating category %q: %w", c.ID, err)
	}
	return nil
}

// Update rewrites a category's name, slug, and description.
func (r *CategoryRepository) Update(ctx context.Context, c *book.Category) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE categories SET name = $2, slug = $3, description = $4, updated_at = now() WHERE id = $1",
		c.ID, c.Name, c.Slug, c.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return book.ErrDuplicateSlug
		}
		return fmt.Errorf("updating category %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrCategoryNotFound
	}
	return nil
}

// Delete removes a category, refusing while books still reference it.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	// Check and delete must be one statement: a book insert may land between
	// a prior SELECT and the DELETE.
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM categories c WHERE c.id = $1
		 AND NOT EXISTS (SELECT 1 FROM books b WHERE b.category_id = c.id)`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return book.ErrCategoryInUse
		}
		return fmt.Errorf("deleting category %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish "not found" from "still has books".
		var exists bool
		if err := r.pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("deleting category %q: %w", id, err)
		}
		if exists {
			return book.ErrCategoryInUse
		}
		return book.ErrCategoryNotFound
	}
	return nil
}

func scanCategory(row pgx.CollectableRow) (book.Category, error) {
	var c book.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.BookCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
