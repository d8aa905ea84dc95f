// Package cart holds the shopper's in-progress selection of books.
//
// A Cart is a plain value owned by the calling session. Derived figures
// (ItemCount, Subtotal) are always recomputed from the item sequence and
// never stored, so they cannot drift from the items that produced them.
package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Item is a single cart line. UnitPrice is the catalog price the shopper saw
// when the item was added; the checkout projection re-reads current prices,
// so this field is display-only.
type Item struct {
	BookID    string
	Title     string
	Author    string
	UnitPrice decimal.Decimal
	Image     string
	Quantity  int
}

// Cart is an ordered sequence of items. Insertion order is display order and
// book IDs are unique within the sequence. The zero value is an empty cart.
type Cart struct {
	items []Item
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add merges the item into the cart. If an item with the same book ID is
// already present its quantity is incremented by one; otherwise the item is
// appended with quantity 1. Add never fails.
func (c *Cart) Add(item Item) {
	for i := range c.items {
		if c.items[i].BookID == item.BookID {
			c.items[i].Quantity++
			return
		}
	}
	item.Quantity = 1
	c.items = append(c.items, item)
}

// UpdateQuantity sets the quantity for the given book ID. A quantity of zero
// or less removes the item. Unknown IDs are a no-op.
func (c *Cart) UpdateQuantity(bookID string, quantity int) {
	if quantity <= 0 {
		c.Remove(bookID)
		return
	}
	for i := range c.items {
		if c.items[i].BookID == bookID {
			c.items[i].Quantity = quantity
			return
		}
	}
}

// Remove deletes the item with the given book ID, preserving the order of
// the remaining items. Unknown IDs are a no-op.
func (c *Cart) Remove(bookID string) {
	for i := range c.items {
		if c.items[i].BookID == bookID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart. Clearing an already-empty cart is a no-op.
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the item sequence in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct lines in the cart.
func (c *Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// ItemCount returns the sum of quantities across all lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// Subtotal returns the sum of unit price times quantity across all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// Repository persists a shopper's cart between sessions. Implementations
// store only book references and quantities; line details are re-joined
// against the live catalog on load.
type Repository interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Clear(ctx context.Context, sessionID string) error
}
