package checkout

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/classworks/backend-paygw/internal/common"
	"github.com/classworks/backend-paygw/internal/enrol"
	"github.com/classworks/backend-paygw/internal/events"
	"github.com/classworks/backend-paygw/internal/gateway"
	"github.com/classworks/backend-paygw/internal/obs"
)

// Capture outcomes used for logging and metrics labels.
const (
	outcomeCaptured       = "captured"
	outcomeBadSignature   = "signature_invalid"
	outcomeOrderFetch     = "order_fetch_failed"
	outcomeOrderNotPaid   = "order_not_paid"
	outcomePaymentFetch   = "payment_fetch_failed"
	outcomeNotCaptured    = "payment_not_captured"
	outcomeAmountMismatch = "amount_mismatch"
	outcomeForeignOrder   = "foreign_order"
	outcomeDuplicate      = "duplicate"
	outcomeConfigMissing  = "config_missing"
	outcomeInternal       = "internal_error"
)

// Service orchestrates the order-creation and capture-and-verify flows.
type Service struct {
	Gateway   gateway.API
	Accounts  AccountResolver
	Payables  enrol.Resolver
	Deliverer enrol.Deliverer
	Store     Store
	Events    *events.Bus
	Logger    zerolog.Logger

	CheckoutName  string
	CheckoutImage string
}

// CheckoutConfig resolves the payable for the context, creates a gateway
// order, and returns the payload the checkout widget needs to launch.
func (s *Service) CheckoutConfig(ctx context.Context, pc PaymentContext, userID string, payer PayerInfo) (CheckoutConfig, error) {
	var zero CheckoutConfig
	if s == nil || s.Gateway == nil || s.Accounts == nil || s.Payables == nil {
		return zero, common.NewAppError("PAYMENT_NOT_CONFIGURED", "checkout unavailable", http.StatusInternalServerError, nil)
	}
	if err := pc.Validate(); err != nil {
		return zero, common.NewAppError("VALIDATION_ERROR", err.Error(), http.StatusBadRequest, err)
	}

	account, err := s.Accounts.Resolve(ctx, pc)
	if err != nil {
		return zero, common.NewAppError("CONFIGURATION_ERROR", MsgNotConfigured, http.StatusInternalServerError, err)
	}
	payable, err := s.Payables.Resolve(ctx, pc.Component, pc.PaymentArea, pc.ItemID)
	if errors.Is(err, enrol.ErrNoPayable) {
		return zero, common.NewAppError("ITEM_NOT_PAYABLE", "nothing payable for this item", http.StatusNotFound, err)
	}
	if err != nil {
		return zero, common.NewAppError("INTERNAL_ERROR", MsgInternalError, http.StatusInternalServerError, err)
	}

	notes := map[string]string{
		"course_id":    strconv.FormatInt(payable.CourseID, 10),
		"user_id":      userID,
		"component":    pc.Component,
		"payment_area": pc.PaymentArea,
		"item_id":      strconv.FormatInt(pc.ItemID, 10),
	}
	order, err := s.Gateway.CreateOrder(ctx, gateway.CreateOrderParams{
		Amount:   payable.Amount,
		Currency: payable.Currency,
		Receipt:  pc.Receipt(),
		Notes:    notes,
	})
	if err != nil {
		s.Logger.Error().Err(err).
			Str("component", pc.Component).
			Str("payment_area", pc.PaymentArea).
			Int64("item_id", pc.ItemID).
			Msg("create gateway order")
		if obs.OrderCreateTotal != nil {
			obs.OrderCreateTotal.WithLabelValues("error").Inc()
		}
		return zero, common.NewAppError("GATEWAY_ERROR", "unable to start checkout", http.StatusBadGateway, err)
	}
	if obs.OrderCreateTotal != nil {
		obs.OrderCreateTotal.WithLabelValues("success").Inc()
	}

	name := payable.Name
	if name == "" {
		name = s.CheckoutName
	}
	return CheckoutConfig{
		Key:         account.KeyID,
		OrderID:     order.ID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        name,
		Description: payable.Description,
		Image:       s.CheckoutImage,
		Prefill: PayerPrefill{
			Name:    payer.Name,
			Email:   payer.Email,
			Contact: payer.Contact,
		},
		Notes: notes,
	}, nil
}

// Capture runs the security-critical decision procedure for a checkout
// callback. Order of checks matters: the signature gate rejects forged
// callbacks before any remote fetch, and nothing is persisted until the
// gateway confirms the order paid and the payment captured.
func (s *Service) Capture(ctx context.Context, pc PaymentContext, cb CallbackPayload) CaptureResult {
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "CheckoutService.Capture")
	defer span.End()

	outcome := outcomeInternal
	defer func() {
		span.SetAttributes(
			attribute.String("capture.outcome", outcome),
			attribute.String("capture.order_id", cb.OrderID),
		)
		if obs.CaptureTotal != nil {
			obs.CaptureTotal.WithLabelValues(outcome).Inc()
		}
	}()

	if s == nil || s.Gateway == nil || s.Accounts == nil || s.Payables == nil || s.Store == nil || s.Deliverer == nil {
		return failure(MsgInternalError)
	}

	log := s.Logger.With().
		Str("order_id", cb.OrderID).
		Str("payment_id", cb.PaymentID).
		Str("component", pc.Component).
		Str("payment_area", pc.PaymentArea).
		Int64("item_id", pc.ItemID).
		Logger()

	account, err := s.Accounts.Resolve(ctx, pc)
	if err != nil {
		outcome = outcomeConfigMissing
		log.Error().Err(err).Msg("no gateway account for capture context")
		return failure(MsgNotConfigured)
	}
	payable, err := s.Payables.Resolve(ctx, pc.Component, pc.PaymentArea, pc.ItemID)
	if err != nil {
		outcome = outcomeConfigMissing
		log.Error().Err(err).Msg("no payable for capture context")
		return failure(MsgNotConfigured)
	}

	if !gateway.VerifySignature(cb.OrderID, cb.PaymentID, cb.Signature, account.KeySecret) {
		outcome = outcomeBadSignature
		log.Warn().Msg("callback signature mismatch")
		return failure(MsgCannotFetchOrder)
	}

	order, err := s.Gateway.GetOrder(ctx, cb.OrderID)
	if err != nil {
		outcome = outcomeOrderFetch
		log.Error().Err(err).Msg("fetch order from gateway")
		return failure(MsgNotCleared)
	}
	if order.Status != gateway.OrderStatusPaid {
		outcome = outcomeOrderNotPaid
		log.Info().Str("order_status", order.Status).Msg("order not yet paid")
		return failure(MsgNotCleared)
	}
	if order.Amount != payable.Amount || !strings.EqualFold(order.Currency, payable.Currency) {
		outcome = outcomeAmountMismatch
		log.Warn().
			Int64("order_amount", order.Amount).
			Int64("expected_amount", payable.Amount).
			Str("order_currency", order.Currency).
			Str("expected_currency", payable.Currency).
			Msg("order amount does not match payable")
		return failure(MsgNotCleared)
	}
	userID := strings.TrimSpace(order.Notes["user_id"])
	if userID == "" {
		outcome = outcomeForeignOrder
		log.Warn().Msg("order carries no user note; not created by this service")
		return failure(MsgNotCleared)
	}

	payment, err := s.Gateway.GetPayment(ctx, cb.PaymentID)
	if err != nil {
		outcome = outcomePaymentFetch
		log.Error().Err(err).Msg("fetch payment from gateway")
		return failure(MsgNotCleared)
	}
	if payment.Status != gateway.PaymentStatusCaptured {
		outcome = outcomeNotCaptured
		log.Info().Str("payment_status", payment.Status).Msg("payment not captured")
		return failure(MsgNotCleared)
	}
	if payment.OrderID != "" && payment.OrderID != order.ID {
		outcome = outcomeForeignOrder
		log.Warn().Str("payment_order_id", payment.OrderID).Msg("payment belongs to a different order")
		return failure(MsgNotCleared)
	}
	if payment.Amount != payable.Amount || !strings.EqualFold(payment.Currency, payable.Currency) {
		outcome = outcomeAmountMismatch
		log.Warn().
			Int64("payment_amount", payment.Amount).
			Int64("expected_amount", payable.Amount).
			Str("payment_currency", payment.Currency).
			Str("expected_currency", payable.Currency).
			Msg("payment amount does not match payable")
		return failure(MsgNotCleared)
	}

	courseID := parseCourseID(order.Notes["course_id"], payable.CourseID)
	rec := PaymentRecord{
		UserID:      userID,
		Component:   pc.Component,
		PaymentArea: pc.PaymentArea,
		ItemID:      pc.ItemID,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		OrderID:     cb.OrderID,
		PaymentID:   cb.PaymentID,
		Signature:   cb.Signature,
	}
	localID, err := s.Store.RecordCapture(ctx, rec, func(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
		return s.Deliverer.Deliver(ctx, tx, enrol.Delivery{
			PaymentID: id,
			UserID:    userID,
			CourseID:  courseID,
			Component: pc.Component,
			ItemID:    pc.ItemID,
		})
	})
	if errors.Is(err, ErrDuplicateCapture) {
		outcome = outcomeDuplicate
		log.Info().Msg("duplicate capture callback ignored")
		return failure(MsgAlreadyProcessed)
	}
	if err != nil {
		outcome = outcomeInternal
		log.Error().Err(err).Msg("record capture")
		if s.Events != nil {
			if _, emitErr := s.Events.Emit(ctx, events.TopicPaymentFailed, cb.OrderID, map[string]any{
				"orderId":   cb.OrderID,
				"paymentId": cb.PaymentID,
				"userId":    userID,
				"reason":    "persistence",
			}); emitErr != nil {
				log.Error().Err(emitErr).Str("topic", events.TopicPaymentFailed).Msg("emit domain event")
			}
		}
		return failure(MsgInternalError)
	}

	if s.Events != nil {
		payload := map[string]any{
			"localPaymentId": localID.String(),
			"orderId":        cb.OrderID,
			"paymentId":      cb.PaymentID,
			"userId":         userID,
			"amount":         payment.Amount,
			"currency":       payment.Currency,
			"component":      pc.Component,
			"paymentArea":    pc.PaymentArea,
			"itemId":         pc.ItemID,
			"courseId":       courseID,
		}
		// The capture is already committed; a lost event must not fail the
		// callback, but it must be visible to operators.
		if _, emitErr := s.Events.Emit(ctx, events.TopicPaymentCaptured, cb.OrderID, payload); emitErr != nil {
			log.Error().Err(emitErr).Str("topic", events.TopicPaymentCaptured).Msg("emit domain event")
		}
		if _, emitErr := s.Events.Emit(ctx, events.TopicEnrolmentDelivered, cb.OrderID, map[string]any{
			"localPaymentId": localID.String(),
			"userId":         userID,
			"courseId":       courseID,
		}); emitErr != nil {
			log.Error().Err(emitErr).Str("topic", events.TopicEnrolmentDelivered).Msg("emit domain event")
		}
	}

	outcome = outcomeCaptured
	if obs.EnrolmentsDeliveredTotal != nil {
		obs.EnrolmentsDeliveredTotal.Inc()
	}
	log.Info().Str("local_payment_id", localID.String()).Msg("payment captured and enrolment delivered")
	return CaptureResult{Success: true, Message: ""}
}

func parseCourseID(note string, fallback int64) int64 {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
