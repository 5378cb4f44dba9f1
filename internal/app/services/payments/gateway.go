package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawmate/pawmate/internal/app/domain/payment"
)

// ErrDeclined is returned by a gateway that refused a charge.
var ErrDeclined = errors.New("card declined")

// Charge is a request to move money from a stored method.
type Charge struct {
	BookingID   string
	Method      payment.Method
	AmountCents int64
	Currency    string
}

// Gateway charges payment methods.
type Gateway interface {
	Charge(ctx context.Context, c Charge) (reference string, err error)
}

// LedgerGateway settles charges locally and returns a ledger reference.
// It declines expired cards and non-positive amounts.
type LedgerGateway struct {
	now func() time.Time
}

// NewLedgerGateway returns the bundled gateway.
func NewLedgerGateway() *LedgerGateway {
	return &LedgerGateway{now: time.Now}
}

func (g *LedgerGateway) Charge(ctx context.Context, c Charge) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.AmountCents <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", ErrDeclined)
	}
	if c.Method.Expired(g.now().UTC()) {
		return "", fmt.Errorf("%w: card expired %02d/%d", ErrDeclined, c.Method.ExpMonth, c.Method.ExpYear)
	}
	return "ch_" + uuid.NewString(), nil
}
