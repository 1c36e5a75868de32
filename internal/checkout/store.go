package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the payment store dependency is not configured.
var ErrStoreUnavailable = errors.New("checkout: store unavailable")

// ErrDuplicateCapture indicates a payment record already exists for the
// order/payment pair. The unique constraint is the idempotency guard of
// record: concurrent or replayed callbacks land here.
var ErrDuplicateCapture = errors.New("checkout: capture already recorded")

// PaymentRecord is the row persisted for a successful capture. Append-only:
// privacy erasure deletes rows, nothing ever updates them.
type PaymentRecord struct {
	UserID      string
	Component   string
	PaymentArea string
	ItemID      int64
	Amount      int64
	Currency    string
	OrderID     string
	PaymentID   string
	Signature   string
}

// DeliveryFunc grants the entitlement inside the same transaction that
// records the payment.
type DeliveryFunc func(ctx context.Context, tx pgx.Tx, localPaymentID uuid.UUID) error

// Store persists capture outcomes.
type Store interface {
	RecordCapture(ctx context.Context, rec PaymentRecord, deliver DeliveryFunc) (uuid.UUID, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// RecordCapture inserts the payment row and runs delivery in one
// transaction. A unique violation on (gateway_order_id, gateway_payment_id)
// reports ErrDuplicateCapture; any failure rolls back both the record and
// the delivery.
func (s *pgStore) RecordCapture(ctx context.Context, rec PaymentRecord, deliver DeliveryFunc) (uuid.UUID, error) {
	if s == nil || s.pool == nil {
		return uuid.Nil, ErrStoreUnavailable
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return uuid.Nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id uuid.UUID
	err = tx.QueryRow(ctx, `INSERT INTO payments
(user_id, component, payment_area, item_id, amount, currency, gateway_order_id, gateway_payment_id, gateway_signature)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		rec.UserID, rec.Component, rec.PaymentArea, rec.ItemID,
		rec.Amount, rec.Currency, rec.OrderID, rec.PaymentID, rec.Signature,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, ErrDuplicateCapture
		}
		return uuid.Nil, err
	}

	if deliver != nil {
		if err := deliver(ctx, tx, id); err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}
