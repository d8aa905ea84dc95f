package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookrack/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository persists per-session carts. Only book references and
// quantities are stored; titles and prices are re-joined against the live
// catalog on load so stale snapshots never reach the shopper.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

const loadCartSQL = `SELECT ci.book_id, b.title, b.author, b.price, b.image, ci.quantity
	FROM cart_items ci JOIN books b ON b.id = ci.book_id
	WHERE ci.session_id = $1
	ORDER BY ci.position`

// Load rebuilds the session's cart in its original insertion order. A
// session with no rows yields an empty cart, not an error.
func (r *CartRepository) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, loadCartSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading cart for %q: %w", sessionID, err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var item cart.Item
		err := row.Scan(&item.BookID, &item.Title, &item.Author, &item.UnitPrice,
			&item.Image, &item.Quantity)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("loading cart for %q: %w", sessionID, err)
	}

	c := cart.New()
	for _, item := range items {
		qty := item.Quantity
		c.Add(item)
		c.UpdateQuantity(item.BookID, qty)
	}
	return c, nil
}

// Save replaces the session's stored cart with the given one.
func (r *CartRepository) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning cart save: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, "DELETE FROM cart_items WHERE session_id = $1", sessionID); err != nil {
		return fmt.Errorf("clearing cart for %q: %w", sessionID, err)
	}

	for i, item := range c.Items() {
		_, err := tx.Exec(ctx,
			"INSERT INTO cart_items (session_id, book_id, quantity, position) VALUES ($1, $2, $3, $4)",
			sessionID, item.BookID, item.Quantity, i)
		if err != nil {
			return fmt.Errorf("saving cart line %q: %w", item.BookID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing cart for %q: %w", sessionID, err)
	}
	return nil
}

// Clear drops every stored line for the session.
func (r *CartRepository) Clear(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM cart_items WHERE session_id = $1", sessionID); err != nil {
		return fmt.Errorf("clearing cart for %q: %w", sessionID, err)
	}
	return nil
}
