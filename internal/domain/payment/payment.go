// Package payment defines the boundary to the payment processor. Real
// gateway integration is out of scope; the shipped implementation simulates
// an always-available processor.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrDeclined is returned when the processor refuses the charge.
var ErrDeclined = errors.New("payment declined")

// Processor charges the shopper for an order total and returns an opaque
// payment reference on success.
type Processor interface {
	Charge(ctx context.Context, amount decimal.Decimal, token string) (string, error)
}

// Simulator is a stand-in processor. It approves every charge with a
// non-positive decline rule: an empty token or a non-positive amount is
// declined, everything else succeeds with a synthetic reference.
type Simulator struct{}

// NewSimulator returns a simulated processor.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Charge implements Processor.
func (s *Simulator) Charge(_ context.Context, amount decimal.Decimal, token string) (string, error) {
	if token == "" || !amount.IsPositive() {
		return "", ErrDeclined
	}
	return "sim_" + uuid.New().String(), nil
}
