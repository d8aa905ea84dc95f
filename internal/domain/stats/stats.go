// Package stats defines the back-office reporting contract: store-wide
// counters and the order analytics panel.
package stats

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bookrack/internal/domain/order"
)

// Totals are the store-wide entity counts for the admin dashboard.
type Totals struct {
	Books      int
	Categories int
	Orders     int
	Users      int
}

// StatusCount is one bucket of the order status distribution.
type StatusCount struct {
	Status order.Status
	Count  int
}

// TopBook is a catalog entry ranked by summed order quantity.
type TopBook struct {
	BookID     string
	Title      string
	Author     string
	Price      decimal.Decimal
	Image      string
	TotalSold  int
	OrderCount int
}

// MonthRevenue is one month's revenue, keyed YYYY-MM. Cancelled orders are
// excluded.
type MonthRevenue struct {
	Month   string
	Revenue decimal.Decimal
}

// Analytics is the full admin analytics panel.
type Analytics struct {
	Totals         Totals
	RecentOrders   []order.Order
	StatusCounts   []StatusCount
	TopBooks       []TopBook
	MonthlyRevenue []MonthRevenue
}

// Repository computes reporting aggregates from the persistent store.
type Repository interface {
	Totals(ctx context.Context) (Totals, error)
	// RecentOrders returns up to limit orders created since the given time,
	// newest first.
	RecentOrders(ctx context.Context, since time.Time, limit int) ([]order.Order, error)
	StatusDistribution(ctx context.Context) ([]StatusCount, error)
	TopBooks(ctx context.Context, limit int) ([]TopBook, error)
	// MonthlyRevenue aggregates non-cancelled order totals by calendar
	// month since the given time.
	MonthlyRevenue(ctx context.Context, since time.Time) ([]MonthRevenue, error)
}
