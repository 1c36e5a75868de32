package enrol

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Delivery names the entitlement granted after a successful capture.
type Delivery struct {
	PaymentID uuid.UUID
	UserID    string
	CourseID  int64
	Component string
	ItemID    int64
}

// Deliverer grants the purchased entitlement. Delivery runs inside the same
// transaction that records the payment, so a failed grant rolls both back.
type Deliverer interface {
	Deliver(ctx context.Context, tx pgx.Tx, d Delivery) error
}

// PGDeliverer records enrolments in the local enrolments table.
type PGDeliverer struct{}

// Deliver inserts the enrolment row. Re-delivery for a user already enrolled
// in the course is a no-op rather than an error.
func (PGDeliverer) Deliver(ctx context.Context, tx pgx.Tx, d Delivery) error {
	if tx == nil {
		return errors.New("enrol: delivery requires a transaction")
	}
	if strings.TrimSpace(d.UserID) == "" {
		return errors.New("enrol: user id is required")
	}
	if d.CourseID <= 0 {
		return errors.New("enrol: course id is required")
	}
	_, err := tx.Exec(ctx, `INSERT INTO enrolments (payment_id, user_id, course_id, component, item_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, course_id) DO NOTHING`,
		d.PaymentID, d.UserID, d.CourseID, d.Component, d.ItemID)
	return err
}
