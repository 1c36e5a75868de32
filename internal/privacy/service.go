package privacy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no payment data exists for the given key.
var ErrNotFound = errors.New("privacy: no payment data found")

// PaymentExport is the user-facing shape of a persisted payment row.
type PaymentExport struct {
	ID          uuid.UUID `json:"id"`
	Component   string    `json:"component"`
	PaymentArea string    `json:"paymentArea"`
	ItemID      int64     `json:"itemId"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	OrderID     string    `json:"orderId"`
	PaymentID   string    `json:"paymentId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Service answers the host's privacy requests. Payment rows are append-only;
// erasure deletes them outright, nothing is ever redacted in place.
type Service struct {
	Pool *pgxpool.Pool
}

// ExportForUser returns every payment row recorded for the user.
func (s *Service) ExportForUser(ctx context.Context, userID string) ([]PaymentExport, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, component, payment_area, item_id, amount, currency, gateway_order_id, gateway_payment_id, created_at
FROM payments WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentExport
	for rows.Next() {
		var p PaymentExport
		if err := rows.Scan(&p.ID, &p.Component, &p.PaymentArea, &p.ItemID, &p.Amount, &p.Currency, &p.OrderID, &p.PaymentID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// EraseForUser deletes all payment rows belonging to the user and returns
// how many were removed.
func (s *Service) EraseForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM payments WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ErasePayment deletes a single payment row by its local identifier. The
// row must belong to userID; a foreign row reports ErrNotFound rather than
// leaking its existence.
func (s *Service) ErasePayment(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM payments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
