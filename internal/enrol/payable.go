package enrol

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoPayable indicates no fee is configured for the purchase context.
var ErrNoPayable = errors.New("enrol: no payable configured for context")

// Payable is the server-side answer to "what does this context cost".
// Amount is in minor currency units and already includes the surcharge.
type Payable struct {
	Amount      int64
	Currency    string
	CourseID    int64
	Name        string
	Description string
}

// Resolver computes the authoritative amount and currency for a purchase
// context. Client-supplied amounts are never consulted.
type Resolver interface {
	Resolve(ctx context.Context, component, paymentArea string, itemID int64) (Payable, error)
}

// PGResolver resolves payables from the course_fees table.
type PGResolver struct {
	Pool         *pgxpool.Pool
	SurchargeBps int64
}

// Resolve looks up the fee row for the context and applies the surcharge.
func (r PGResolver) Resolve(ctx context.Context, component, paymentArea string, itemID int64) (Payable, error) {
	if r.Pool == nil {
		return Payable{}, errors.New("enrol: resolver pool not configured")
	}
	var p Payable
	err := r.Pool.QueryRow(ctx, `SELECT amount, currency, course_id, name, description
FROM course_fees WHERE component = $1 AND payment_area = $2 AND item_id = $3`,
		strings.TrimSpace(component), strings.TrimSpace(paymentArea), itemID,
	).Scan(&p.Amount, &p.Currency, &p.CourseID, &p.Name, &p.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payable{}, ErrNoPayable
	}
	if err != nil {
		return Payable{}, err
	}
	p.Amount = ApplySurcharge(p.Amount, r.SurchargeBps)
	return p, nil
}

// ApplySurcharge adds the configured surcharge in basis points to a
// minor-unit amount, rounding half up. Integer arithmetic throughout.
func ApplySurcharge(amount, bps int64) int64 {
	if bps <= 0 || amount <= 0 {
		return amount
	}
	return amount + (amount*bps+5000)/10000
}
