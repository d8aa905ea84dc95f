package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookrack/internal/domain/book"
)

const bookColumns = `b.id, b.title, b.author, b.description, b.price, b.image, b.isbn,
	b.pages, b.published_at, b.stock, b.featured, b.category_id, c.name, c.slug,
	b.created_at, b.updated_at`

const bookFrom = ` FROM books b JOIN categories c ON c.id = b.category_id`

var (
	_ book.Repository      = (*BookRepository)(nil)
	_ book.AdminRepository = (*BookRepository)(nil)
)

// BookRepository implements the catalog read and admin write contracts
// backed by PostgreSQL.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository returns a BookRepository that uses the given pool.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

// sortClauses maps every valid sort key to a stable ORDER BY. The secondary
// b.id keeps pagination deterministic across equal primary keys.
var sortClauses = map[book.SortKey]string{
	book.SortNewest:    "b.created_at DESC, b.id",
	book.SortOldest:    "b.created_at ASC, b.id",
	book.SortPriceAsc:  "b.price ASC, b.id",
	book.SortPriceDesc: "b.price DESC, b.id",
	book.SortTitle:     "b.title ASC, b.id",
	book.SortAuthor:    "b.author ASC, b.id",
}

// Search runs the catalog query: every filter is an independent predicate
// combined with AND, and the page slice is returned together with the total
// match count.
func (r *BookRepository) Search(ctx context.Context, q book.Query) (book.Page, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Search != "" {
		p := arg("%" + q.Search + "%")
		where = append(where, fmt.Sprintf("(b.title ILIKE %s OR b.author ILIKE %s)", p, p))
	}
	if len(q.Categories) > 0 {
		where = append(where, fmt.Sprintf("c.slug = ANY(%s)", arg(q.Categories)))
	}
	if q.Price.Min != nil {
		where = append(where, fmt.Sprintf("b.price >= %s", arg(*q.Price.Min)))
	}
	if q.Price.Max != nil {
		where = append(where, fmt.Sprintf("b.price <= %s", arg(*q.Price.Max)))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	countSQL := "SELECT count(*)" + bookFrom + cond

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return book.Page{}, fmt.Errorf("counting books: %w", err)
	}

	listSQL := "SELECT " + bookColumns + bookFrom + cond +
		" ORDER BY " + sortClauses[q.Sort] +
		fmt.Sprintf(" LIMIT %s OFFSET %s", arg(q.PageSize), arg(q.Offset()))

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return book.Page{}, fmt.Errorf("searching books: %w", err)
	}
	books, err := pgx.CollectRows(rows, scanBook)
	if err != nil {
		return book.Page{}, fmt.Errorf("searching books: %w", err)
	}

	return book.Page{
		Books:    books,
		Total:    total,
		Number:   q.Page,
		PageSize: q.PageSize,
	}, nil
}

// GetByID returns a single book by its identifier.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*book.Book, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+bookColumns+bookFrom+" WHERE b.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("getting book %q: %w", id, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanBook)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrNotFound
		}
		return nil, fmt.Errorf("getting book %q: %w", id, err)
	}
	return &b, nil
}

// GetByIDs returns books matching any of the given IDs.
func (r *BookRepository) GetByIDs(ctx context.Context, ids []string) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+bookColumns+bookFrom+" WHERE b.id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("getting books by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanBook)
}

// Featured returns up to limit featured books, newest first.
func (r *BookRepository) Featured(ctx context.Context, limit int) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+bookColumns+bookFrom+" WHERE b.featured ORDER BY b.created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("listing featured books: %w", err)
	}
	return pgx.CollectRows(rows, scanBook)
}

const bestsellersSQL = `SELECT ` + bookColumns + `,
	COALESCE(s.total_sold, 0), COALESCE(s.order_count, 0)` + bookFrom + `
	JOIN (
		SELECT book_id, SUM(quantity) AS total_sold, COUNT(DISTINCT order_id) AS order_count
		FROM order_items GROUP BY book_id
	) s ON s.book_id = b.id
	ORDER BY s.total_sold DESC, b.id
	LIMIT $1`

// Bestsellers ranks books by total quantity sold across all orders.
func (r *BookRepository) Bestsellers(ctx context.Context, limit int) ([]book.Bestseller, error) {
	rows, err := r.pool.Query(ctx, bestsellersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing bestsellers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (book.Bestseller, error) {
		var bs book.Bestseller
		err := row.Scan(
			&bs.ID, &bs.Title, &bs.Author, &bs.Description, &bs.Price, &bs.Image, &bs.ISBN,
			&bs.Pages, &bs.PublishedAt, &bs.Stock, &bs.Featured, &bs.CategoryID,
			&bs.CategoryName, &bs.CategorySlug, &bs.CreatedAt, &bs.UpdatedAt,
			&bs.TotalSold, &bs.OrderCount,
		)
		return bs, err
	})
}

const createBookSQL = `INSERT INTO books
	(id, title, author, description, price, image, isbn, pages, published_at, stock, featured, category_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// Create persists a new catalog entry.
func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	_, err := r.pool.Exec(ctx, createBookSQL,
		b.ID, b.Title, b.Author, b.Description, b.Price, b.Image, b.ISBN,
		b.Pages, b.PublishedAt, b.Stock, b.Featured, b.CategoryID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return book.ErrCategoryNotFound
		}
		return fmt.Errorf("creating book %q: %w", b.ID, err)
	}
	return nil
}

const updateBookSQL = `UPDATE books SET
	title = $2, author = $3, description = $4, price = $5, image = $6, isbn = $7,
	pages = $8, published_at = $9, stock = $10, featured = $11, category_id = $12,
	updated_at = now()
	WHERE id = $1`

// Update rewrites an existing catalog entry.
func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	tag, err := r.pool.Exec(ctx, updateBookSQL,
		b.ID, b.Title, b.Author, b.Description, b.Price, b.Image, b.ISBN,
		b.Pages, b.PublishedAt, b.Stock, b.Featured, b.CategoryID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return book.ErrCategoryNotFound
		}
		return fmt.Errorf("updating book %q: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}
	return nil
}

// Delete removes a catalog entry. Books referenced by order lines are
// protected by the order_items foreign key.
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM books WHERE id = $1", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return book.ErrBookInUse
		}
		return fmt.Errorf("deleting book %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}
	return nil
}

func scanBook(row pgx.CollectableRow) (book.Book, error) {
	var b book.Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Description, &b.Price, &b.Image, &b.ISBN,
		&b.Pages, &b.PublishedAt, &b.Stock, &b.Featured, &b.CategoryID,
		&b.CategoryName, &b.CategorySlug, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// isForeignKeyViolation reports whether err is a postgres foreign key
// violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// isUniqueViolation reports whether err is a postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
