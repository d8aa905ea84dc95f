package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookrack/internal/domain/order"
	"github.com/xenking/bookrack/internal/domain/stats"
)

var _ stats.Repository = (*StatsRepository)(nil)

// StatsRepository computes back-office reporting aggregates straight from
// the transactional tables. No materialized views are involved.
type StatsRepository struct {
	pool   *pgxpool.Pool
	orders *OrderRepository
}

// NewStatsRepository returns a StatsRepository that uses the given pool.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool, orders: NewOrderRepository(pool)}
}

// Totals counts the four dashboard entities. The counts run concurrently,
// each on its own pooled connection.
func (r *StatsRepository) Totals(ctx context.Context) (stats.Totals, error) {
	var t stats.Totals
	g, ctx := errgroup.WithContext(ctx)

	count := func(table string, dst *int) func() error {
		return func() error {
			if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(dst); err != nil {
				return fmt.Errorf("counting %s: %w", table, err)
			}
			return nil
		}
	}
	g.Go(count("books", &t.Books))
	g.Go(count("categories", &t.Categories))
	g.Go(count("orders", &t.Orders))
	g.Go(count("users", &t.Users))

	if err := g.Wait(); err != nil {
		return stats.Totals{}, err
	}
	return t, nil
}

// RecentOrders returns up to limit orders created since the given time,
// newest first, with their line items.
func (r *StatsRepository) RecentOrders(ctx context.Context, since time.Time, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+orderColumns+orderFrom+
			" WHERE o.created_at >= $1 ORDER BY o.created_at DESC, o.id LIMIT $2",
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing recent orders: %w", err)
	}

	byID := make(map[string]*order.Order, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}
	if err := r.orders.loadItems(ctx, byID); err != nil {
		return nil, err
	}
	return orders, nil
}

// StatusDistribution returns the order count per status, busiest first.
func (r *StatsRepository) StatusDistribution(ctx context.Context) ([]stats.StatusCount, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT status, count(*) FROM orders GROUP BY status ORDER BY count(*) DESC, status")
	if err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.StatusCount, error) {
		var sc stats.StatusCount
		err := row.Scan(&sc.Status, &sc.Count)
		return sc, err
	})
}

const topBooksSQL = `SELECT b.id, b.title, b.author, b.price, b.image,
	SUM(i.quantity), COUNT(DISTINCT i.order_id)
	FROM order_items i JOIN books b ON b.id = i.book_id
	GROUP BY b.id, b.title, b.author, b.price, b.image
	ORDER BY SUM(i.quantity) DESC, b.id
	LIMIT $1`

// TopBooks ranks books by total quantity sold.
func (r *StatsRepository) TopBooks(ctx context.Context, limit int) ([]stats.TopBook, error) {
	rows, err := r.pool.Query(ctx, topBooksSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing top books: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.TopBook, error) {
		var tb stats.TopBook
		err := row.Scan(&tb.BookID, &tb.Title, &tb.Author, &tb.Price, &tb.Image,
			&tb.TotalSold, &tb.OrderCount)
		return tb, err
	})
}

const monthlyRevenueSQL = `SELECT to_char(created_at, 'YYYY-MM') AS month, SUM(total)
	FROM orders
	WHERE created_at >= $1 AND status <> 'CANCELLED'
	GROUP BY month
	ORDER BY month`

// MonthlyRevenue sums non-cancelled order totals per calendar month.
func (r *StatsRepository) MonthlyRevenue(ctx context.Context, since time.Time) ([]stats.MonthRevenue, error) {
	rows, err := r.pool.Query(ctx, monthlyRevenueSQL, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating monthly revenue: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.MonthRevenue, error) {
		var mr stats.MonthRevenue
		err := row.Scan(&mr.Month, &mr.Revenue)
		return mr, err
	})
}
