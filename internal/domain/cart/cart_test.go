package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem(id string, price string) Item {
	return Item{
		BookID:    id,
		Title:     "Book " + id,
		Author:    "Author " + id,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestAdd_NewItem(t *testing.T) {
	c := New()
	c.Add(newTestItem("b1", "1690"))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.ItemCount())
	assert.True(t, decimal.RequireFromString("1690").Equal(c.Subtotal()))
}

func TestAdd_SameItemTwiceEqualsQuantityTwo(t *testing.T) {
	a := New()
	a.Add(newTestItem("b1", "1690"))
	a.Add(newTestItem("b1", "1690"))

	b := New()
	b.Add(newTestItem("b1", "1690"))
	b.UpdateQuantity("b1", 2)

	assert.Equal(t, a.ItemCount(), b.ItemCount())
	assert.True(t, a.Subtotal().Equal(b.Subtotal()))
	assert.Equal(t, a.Items(), b.Items())
}

func TestAdd_IgnoresIncomingQuantity(t *testing.T) {
	c := New()
	item := newTestItem("b1", "100")
	item.Quantity = 99
	c.Add(item)

	assert.Equal(t, 1, c.ItemCount())
}

func TestUpdateQuantity(t *testing.T) {
	t.Run("sets quantity", func(t *testing.T) {
		c := New()
		c.Add(newTestItem("b1", "100"))
		c.UpdateQuantity("b1", 5)

		assert.Equal(t, 5, c.ItemCount())
		assert.True(t, decimal.RequireFromString("500").Equal(c.Subtotal()))
	})

	t.Run("zero removes the item", func(t *testing.T) {
		c := New()
		c.Add(newTestItem("b1", "100"))
		c.UpdateQuantity("b1", 0)

		assert.True(t, c.IsEmpty())
		for _, item := range c.Items() {
			assert.NotEqual(t, "b1", item.BookID)
		}
	})

	t.Run("negative removes the item", func(t *testing.T) {
		c := New()
		c.Add(newTestItem("b1", "100"))
		c.UpdateQuantity("b1", -3)

		assert.True(t, c.IsEmpty())
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		c := New()
		c.Add(newTestItem("b1", "100"))
		c.UpdateQuantity("missing", 7)

		assert.Equal(t, 1, c.ItemCount())
	})
}

func TestRemove(t *testing.T) {
	c := New()
	c.Add(newTestItem("b1", "100"))
	c.Add(newTestItem("b2", "200"))
	c.Add(newTestItem("b3", "300"))

	c.Remove("b2")

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b1", items[0].BookID)
	assert.Equal(t, "b3", items[1].BookID)

	// Removing again is a no-op.
	c.Remove("b2")
	assert.Equal(t, 2, c.Len())
}

func TestClear_Idempotent(t *testing.T) {
	c := New()
	c.Clear()
	assert.Equal(t, 0, c.ItemCount())
	assert.True(t, decimal.Zero.Equal(c.Subtotal()))

	c.Add(newTestItem("b1", "100"))
	c.Clear()
	assert.Equal(t, 0, c.ItemCount())
	assert.True(t, decimal.Zero.Equal(c.Subtotal()))
}

func TestDerivedTotals_NeverDrift(t *testing.T) {
	c := New()

	type op struct {
		kind string
		id   string
		qty  int
	}
	ops := []op{
		{kind: "add", id: "b1"},
		{kind: "add", id: "b2"},
		{kind: "add", id: "b1"},
		{kind: "update", id: "b2", qty: 4},
		{kind: "remove", id: "b1"},
		{kind: "add", id: "b3"},
		{kind: "update", id: "b3", qty: -1},
		{kind: "add", id: "b1"},
	}

	prices := map[string]string{"b1": "1690", "b2": "1950", "b3": "250.50"}

	for _, o := range ops {
		switch o.kind {
		case "add":
			c.Add(newTestItem(o.id, prices[o.id]))
		case "update":
			c.UpdateQuantity(o.id, o.qty)
		case "remove":
			c.Remove(o.id)
		}

		// Recompute expectations directly from the item sequence.
		wantCount := 0
		wantTotal := decimal.Zero
		for _, item := range c.Items() {
			wantCount += item.Quantity
			wantTotal = wantTotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		assert.Equal(t, wantCount, c.ItemCount())
		assert.True(t, wantTotal.Equal(c.Subtotal()),
			"subtotal %s != %s after %s %s", c.Subtotal(), wantTotal, o.kind, o.id)
	}
}

func TestItems_ReturnsCopy(t *testing.T) {
	c := New()
	c.Add(newTestItem("b1", "100"))

	items := c.Items()
	items[0].Quantity = 42

	assert.Equal(t, 1, c.ItemCount())
}
