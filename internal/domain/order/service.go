package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/bookrack/internal/domain/book"
	"github.com/xenking/bookrack/internal/domain/cart"
	"github.com/xenking/bookrack/internal/domain/payment"
	"github.com/xenking/bookrack/internal/domain/pricing"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart = errors.New("cart is empty")
)

// BookNotFoundError indicates a cart line references a book that no longer
// exists in the catalog.
type BookNotFoundError struct {
	BookID string
}

func (e *BookNotFoundError) Error() string {
	return "book " + e.BookID + " not found"
}

// InsufficientStockError indicates a cart line exceeds the book's available
// stock.
type InsufficientStockError struct {
	BookID    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return errors.Errorf("book %s: requested %d, only %d in stock",
		e.BookID, e.Requested, e.Available).Error()
}

// CheckoutRequest is the input to Checkout. The cart is passed explicitly by
// the owning session; the service never reaches for ambient cart state.
type CheckoutRequest struct {
	SessionID    string
	UserID       string
	Cart         *cart.Cart
	Shipping     ShippingInfo
	PaymentToken string
}

// Service projects a cart into a persisted order. It re-reads current
// catalog prices at checkout time so the order carries a frozen snapshot,
// not the prices the shopper saw when adding items.
type Service struct {
	books     book.Repository
	orders    Repository
	carts     cart.Repository
	processor payment.Processor
	pricing   pricing.Config
}

// NewService creates a checkout Service with the required dependencies.
func NewService(
	books book.Repository,
	orders Repository,
	carts cart.Repository,
	processor payment.Processor,
	pricingCfg pricing.Config,
) *Service {
	return &Service{
		books:     books,
		orders:    orders,
		carts:     carts,
		processor: processor,
		pricing:   pricingCfg,
	}
}

// Checkout validates the cart, snapshots current book prices, charges the
// processor, and persists the order atomically. On success the persisted
// cart is cleared; on any failure the cart is left untouched and no partial
// order exists.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if req.Cart == nil || req.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if err := req.Shipping.Validate(); err != nil {
		return nil, err
	}

	lines := req.Cart.Items()
	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.BookID
	}

	// Batch fetch current catalog records in a single query.
	fetched, err := s.books.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get books")
	}
	byID := make(map[string]book.Book, len(fetched))
	for _, b := range fetched {
		byID[b.ID] = b
	}

	// Snapshot current prices and verify stock up front. The repository
	// re-checks stock inside the write transaction; this check exists to
	// fail before charging the processor.
	items := make([]Item, len(lines))
	subtotal := decimal.Zero
	for i, line := range lines {
		b, ok := byID[line.BookID]
		if !ok {
			return nil, &BookNotFoundError{BookID: line.BookID}
		}
		if line.Quantity > b.Stock {
			return nil, &InsufficientStockError{
				BookID:    b.ID,
				Requested: line.Quantity,
				Available: b.Stock,
			}
		}

		items[i] = Item{
			ID:        uuid.New().String(),
			BookID:    b.ID,
			Quantity:  line.Quantity,
			UnitPrice: b.Price,
			Title:     b.Title,
			Author:    b.Author,
			Image:     b.Image,
		}
		subtotal = subtotal.Add(b.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	quote := s.pricing.Quote(subtotal)

	ref, err := s.processor.Charge(ctx, quote.GrandTotal, req.PaymentToken)
	if err != nil {
		return nil, errors.Wrap(err, "charge payment")
	}

	o := &Order{
		ID:           uuid.New().String(),
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		Subtotal:     quote.Subtotal,
		Shipping:     quote.Shipping,
		Tax:          quote.Tax,
		Total:        quote.GrandTotal,
		Status:       StatusPending,
		PaymentRef:   ref,
		ShippingInfo: req.Shipping,
		Items:        items,
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// The order is durable from here on. Cart cleanup is best effort: a
	// stale persisted cart is recoverable, a lost order is not.
	req.Cart.Clear()
	if req.SessionID != "" && s.carts != nil {
		if err := s.carts.Clear(ctx, req.SessionID); err != nil {
			zctx.From(ctx).Warn("clearing persisted cart after checkout",
				zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}

	return o, nil
}
