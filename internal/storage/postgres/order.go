package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookrack/internal/domain/order"
)

const orderColumns = `o.id, o.session_id, o.user_id, o.subtotal, o.shipping, o.tax, o.total, o.status,
	o.payment_ref, o.ship_name, o.ship_email, o.ship_address, o.ship_city,
	o.ship_postal, o.ship_country, o.created_at, o.updated_at,
	COALESCE(u.name, ''), COALESCE(u.email, '')`

const orderFrom = ` FROM orders o LEFT JOIN users u ON u.id = o.user_id`

const orderItemColumns = `i.id, i.order_id, i.book_id, i.quantity, i.unit_price,
	b.title, b.author, b.image`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const createOrderSQL = `INSERT INTO orders
	(id, session_id, user_id, subtotal, shipping, tax, total, status, payment_ref,
	 ship_name, ship_email, ship_address, ship_city, ship_postal, ship_country)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

const createOrderItemSQL = `INSERT INTO order_items
	(id, order_id, book_id, quantity, unit_price)
	VALUES ($1, $2, $3, $4, $5)`

// Stock is decremented with a guard in the WHERE clause; zero rows affected
// means the book is gone or understocked and the transaction rolls back.
const decrementStockSQL = `UPDATE books SET stock = stock - $2, updated_at = now()
	WHERE id = $1 AND stock >= $2`

// Create writes the order, its items, and the stock decrements in one
// transaction. Either everything lands or nothing does.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var userID *string
	if o.UserID != "" {
		userID = &o.UserID
	}

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.SessionID, userID, o.Subtotal, o.Shipping, o.Tax, o.Total, o.Status, o.PaymentRef,
		o.ShippingInfo.Name, o.ShippingInfo.Email, o.ShippingInfo.Address,
		o.ShippingInfo.City, o.ShippingInfo.PostalCode, o.ShippingInfo.Country,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		if _, err := tx.Exec(ctx, createOrderItemSQL,
			item.ID, o.ID, item.BookID, item.Quantity, item.UnitPrice); err != nil {
			return fmt.Errorf("creating order item for book %q: %w", item.BookID, err)
		}

		tag, err := tx.Exec(ctx, decrementStockSQL, item.BookID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for book %q: %w", item.BookID, err)
		}
		if tag.RowsAffected() == 0 {
			return &order.InsufficientStockError{
				BookID:    item.BookID,
				Requested: item.Quantity,
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its items and user details.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+orderColumns+orderFrom+" WHERE o.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	if err := r.loadItems(ctx, map[string]*order.Order{o.ID: &o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns a page of orders newest first, optionally filtered by status,
// plus the total match count.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*)"+orderFrom+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	listSQL := fmt.Sprintf("SELECT %s%s%s ORDER BY o.created_at DESC, o.id LIMIT $%d OFFSET $%d",
		orderColumns, orderFrom, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}

	byID := make(map[string]*order.Order, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}
	if err := r.loadItems(ctx, byID); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateStatus sets the order's status and returns the refreshed record.
// Any of the five statuses may replace any other.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE orders SET status = $2, updated_at = now() WHERE id = $1", id, status)
	if err != nil {
		return nil, fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, order.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// loadItems fetches the line items for all given orders in one query.
func (r *OrderRepository) loadItems(ctx context.Context, byID map[string]*order.Order) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+orderItemColumns+
			" FROM order_items i JOIN books b ON b.id = i.book_id WHERE i.order_id = ANY($1) ORDER BY i.id",
		ids)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var item order.Item
		err := row.Scan(&item.ID, &item.OrderID, &item.BookID, &item.Quantity,
			&item.UnitPrice, &item.Title, &item.Author, &item.Image)
		return item, err
	})
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}

	for _, item := range items {
		o := byID[item.OrderID]
		o.Items = append(o.Items, item)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		userID *string
	)
	err := row.Scan(
		&o.ID, &o.SessionID, &userID, &o.Subtotal, &o.Shipping, &o.Tax, &o.Total, &o.Status,
		&o.PaymentRef, &o.ShippingInfo.Name, &o.ShippingInfo.Email,
		&o.ShippingInfo.Address, &o.ShippingInfo.City, &o.ShippingInfo.PostalCode,
		&o.ShippingInfo.Country, &o.CreatedAt, &o.UpdatedAt, &o.UserName, &o.UserEmail,
	)
	if userID != nil {
		o.UserID = *userID
	}
	return o, err
}
