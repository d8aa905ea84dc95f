// Package order holds the immutable order projection and its checkout
// service.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// ErrInvalidStatus is returned for status strings outside the enum.
var ErrInvalidStatus = errors.New("invalid order status")

// ParseStatus validates a raw status string. Any of the five statuses may be
// assigned from any other; only unknown values are rejected.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(s), nil
	default:
		return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
	}
}

// Order is an immutable snapshot of a purchase. Prices and totals are fixed
// at creation time; only Status changes afterwards, via the administrative
// update.
type Order struct {
	ID string
	// SessionID ties the order to the shopping session that placed it; the
	// public lookup only serves an order back to that session.
	SessionID string
	UserID    string

	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Status     Status
	PaymentRef string

	ShippingInfo ShippingInfo
	Items        []Item

	CreatedAt time.Time
	UpdatedAt time.Time

	// Denormalized from the user join for the back-office views.
	UserName  string
	UserEmail string
}

// Item is one order line. UnitPrice is the book's catalog price captured at
// checkout; it never changes even if the book is later repriced.
type Item struct {
	ID        string
	OrderID   string
	BookID    string
	Quantity  int
	UnitPrice decimal.Decimal

	// Denormalized from the book join for display.
	Title  string
	Author string
	Image  string
}

// ShippingInfo is the delivery address collected at checkout.
type ShippingInfo struct {
	Name       string
	Email      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

// Validate checks the required shipping fields.
func (s ShippingInfo) Validate() error {
	switch {
	case s.Name == "":
		return errors.New("shipping name is required")
	case s.Email == "":
		return errors.New("shipping email is required")
	case s.Address == "":
		return errors.New("shipping address is required")
	case s.City == "":
		return errors.New("shipping city is required")
	}
	return nil
}

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ListFilter narrows the back-office order listing.
type ListFilter struct {
	// Status filters to a single status when non-empty.
	Status Status
	// UserID filters to one customer's orders when non-empty.
	UserID string
	// Page is 1-based; PageSize bounds the slice.
	Page     int
	PageSize int
}

// Repository defines persistence for orders. Create must write the order and
// all its items as a unit and decrement book stock, failing the whole write
// when any line exceeds available stock.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
}
