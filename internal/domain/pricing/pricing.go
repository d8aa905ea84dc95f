// Package pricing converts a cart subtotal into a checkout-ready breakdown
// of shipping, tax, and grand total.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the pricing rule constants. The original storefront defined
// these inline at several call sites with conflicting values; they are
// centralized here and loaded from application configuration.
type Config struct {
	// FreeShippingThreshold is the subtotal above which (strictly) shipping
	// is free.
	FreeShippingThreshold decimal.Decimal
	// StandardShippingFee is the flat fee charged below the threshold.
	StandardShippingFee decimal.Decimal
	// TaxRate is applied to the subtotal only; shipping is not taxed.
	TaxRate decimal.Decimal
}

// DefaultConfig returns the storefront defaults: free shipping over 5000,
// a flat 500 fee otherwise, and an 8% tax rate.
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.NewFromInt(5000),
		StandardShippingFee:   decimal.NewFromInt(500),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

// ParseConfig builds a Config from decimal strings, validating that the
// threshold and fee are non-negative and the rate is within [0, 1).
func ParseConfig(threshold, fee, rate string) (Config, error) {
	t, err := decimal.NewFromString(threshold)
	if err != nil {
		return Config{}, errors.Wrap(err, "free shipping threshold")
	}
	f, err := decimal.NewFromString(fee)
	if err != nil {
		return Config{}, errors.Wrap(err, "standard shipping fee")
	}
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return Config{}, errors.Wrap(err, "tax rate")
	}

	if t.IsNegative() || f.IsNegative() {
		return Config{}, errors.New("shipping threshold and fee must be non-negative")
	}
	if r.IsNegative() || r.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Config{}, errors.Errorf("tax rate %s out of range [0, 1)", r)
	}

	return Config{
		FreeShippingThreshold: t,
		StandardShippingFee:   f,
		TaxRate:               r,
	}, nil
}

// Quote is the deterministic pricing breakdown for a cart subtotal.
type Quote struct {
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
}

// Quote computes the breakdown for the given subtotal. A non-positive
// subtotal (empty cart) yields an all-zero quote; rejecting empty-cart
// checkout is the caller's concern. Tax is rounded to 2 decimal places.
func (c Config) Quote(subtotal decimal.Decimal) Quote {
	if !subtotal.IsPositive() {
		return Quote{
			Subtotal:   decimal.Zero,
			Shipping:   decimal.Zero,
			Tax:        decimal.Zero,
			GrandTotal: decimal.Zero,
		}
	}

	shipping := c.StandardShippingFee
	if subtotal.GreaterThan(c.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(c.TaxRate).Round(2)

	return Quote{
		Subtotal:   subtotal,
		Shipping:   shipping,
		Tax:        tax,
		GrandTotal: subtotal.Add(shipping).Add(tax),
	}
}
