package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuote_FreeShippingAboveThreshold(t *testing.T) {
	cfg := DefaultConfig()

	q := cfg.Quote(dec("6000"))

	assert.True(t, decimal.Zero.Equal(q.Shipping), "shipping = %s", q.Shipping)
	assert.True(t, dec("480").Equal(q.Tax), "tax = %s", q.Tax)
	assert.True(t, dec("6480").Equal(q.GrandTotal), "grand total = %s", q.GrandTotal)
}

func TestQuote_FlatFeeBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()

	q := cfg.Quote(dec("3000"))

	assert.True(t, dec("500").Equal(q.Shipping), "shipping = %s", q.Shipping)
	assert.True(t, dec("240").Equal(q.Tax), "tax = %s", q.Tax)
	assert.True(t, dec("3740").Equal(q.GrandTotal), "grand total = %s", q.GrandTotal)
}

func TestQuote_ThresholdIsStrict(t *testing.T) {
	cfg := DefaultConfig()

	// Exactly at the threshold still pays shipping.
	q := cfg.Quote(dec("5000"))
	assert.True(t, dec("500").Equal(q.Shipping))

	q = cfg.Quote(dec("5000.01"))
	assert.True(t, decimal.Zero.Equal(q.Shipping))
}

func TestQuote_TaxIgnoresShipping(t *testing.T) {
	cfg := DefaultConfig()

	for _, subtotal := range []string{"100", "3000", "5000", "6000", "123456.78"} {
		q := cfg.Quote(dec(subtotal))
		want := dec(subtotal).Mul(dec("0.08")).Round(2)
		assert.True(t, want.Equal(q.Tax), "subtotal %s: tax %s != %s", subtotal, q.Tax, want)
	}
}

func TestQuote_EmptyCartIsAllZero(t *testing.T) {
	cfg := DefaultConfig()

	q := cfg.Quote(decimal.Zero)

	assert.True(t, decimal.Zero.Equal(q.Subtotal))
	assert.True(t, decimal.Zero.Equal(q.Shipping))
	assert.True(t, decimal.Zero.Equal(q.Tax))
	assert.True(t, decimal.Zero.Equal(q.GrandTotal))
}

func TestQuote_Deterministic(t *testing.T) {
	cfg := DefaultConfig()

	a := cfg.Quote(dec("3640"))
	b := cfg.Quote(dec("3640"))

	assert.True(t, a.GrandTotal.Equal(b.GrandTotal))
	assert.True(t, a.Subtotal.Add(a.Shipping).Add(a.Tax).Equal(a.GrandTotal))
}

func TestParseConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg, err := ParseConfig("5000", "500", "0.08")
		require.NoError(t, err)
		assert.True(t, dec("5000").Equal(cfg.FreeShippingThreshold))
		assert.True(t, dec("500").Equal(cfg.StandardShippingFee))
		assert.True(t, dec("0.08").Equal(cfg.TaxRate))
	})

	t.Run("malformed decimal", func(t *testing.T) {
		_, err := ParseConfig("abc", "500", "0.08")
		require.Error(t, err)
	})

	t.Run("negative fee", func(t *testing.T) {
		_, err := ParseConfig("5000", "-1", "0.08")
		require.Error(t, err)
	})

	t.Run("rate out of range", func(t *testing.T) {
		_, err := ParseConfig("5000", "500", "1.5")
		require.Error(t, err)
	})
}
