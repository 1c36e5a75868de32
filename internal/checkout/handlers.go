package checkout

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/classworks/backend-paygw/internal/common"
)

// Handler exposes the two remote-callable checkout operations.
type Handler struct {
	Svc       *Service
	Validate  *validator.Validate
	Replay    *redis.Client
	ReplayTTL time.Duration
	Logger    zerolog.Logger
}

type configRequest struct {
	Component   string `json:"component" validate:"required,max=100"`
	PaymentArea string `json:"paymentArea" validate:"required,max=50"`
	ItemID      int64  `json:"itemId" validate:"required,gt=0"`
	Fullname    string `json:"fullname" validate:"omitempty,max=255"`
	Email       string `json:"email" validate:"omitempty,email"`
	Contact     string `json:"contact" validate:"omitempty,max=20"`
}

type completeRequest struct {
	Component   string `json:"component" validate:"required,max=100"`
	PaymentArea string `json:"paymentArea" validate:"required,max=50"`
	ItemID      int64  `json:"itemId" validate:"required,gt=0"`
	OrderID     string `json:"orderId" validate:"required,max=64"`
	PaymentID   string `json:"paymentId" validate:"required,max=64"`
	Signature   string `json:"signature" validate:"required,hexadecimal,len=64"`
}

// Config returns the checkout widget configuration for a purchase context.
// Requires an authenticated host session.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "checkout handler unavailable", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "login required", nil)
		return
	}
	var req configRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid body", nil)
		return
	}
	if err := h.validate(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, err.Error(), nil)
		return
	}

	pc := PaymentContext{
		Component:   strings.TrimSpace(req.Component),
		PaymentArea: strings.TrimSpace(req.PaymentArea),
		ItemID:      req.ItemID,
	}
	payer := PayerInfo{Name: req.Fullname, Email: req.Email, Contact: req.Contact}
	cfg, err := h.Svc.CheckoutConfig(r.Context(), pc, userID, payer)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			status := appErr.HTTPStatus
			if status == 0 {
				status = http.StatusInternalServerError
			}
			common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, MsgInternalError, nil)
		return
	}
	common.JSON(w, http.StatusOK, cfg)
}

// Complete processes the checkout widget's callback. No host session is
// required: the callback arrives from the gateway redirect flow and trust
// rests entirely on the signature check inside Capture.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "checkout handler unavailable", nil)
		return
	}
	var req completeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid body", nil)
		return
	}
	if err := h.validate(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, err.Error(), nil)
		return
	}

	ctx := r.Context()
	replayKey := ""
	if h.Replay != nil && h.ReplayTTL > 0 {
		replayKey = "capture:" + common.ReplayKey(req.OrderID, req.PaymentID)
		ok, err := h.Replay.SetNX(ctx, replayKey, "1", h.ReplayTTL).Result()
		if err != nil {
			h.Logger.Error().Err(err).Msg("capture replay guard unavailable")
			common.JSON(w, http.StatusOK, failure(MsgInternalError))
			return
		}
		if !ok {
			common.JSON(w, http.StatusOK, failure(MsgAlreadyProcessed))
			return
		}
	}

	pc := PaymentContext{
		Component:   strings.TrimSpace(req.Component),
		PaymentArea: strings.TrimSpace(req.PaymentArea),
		ItemID:      req.ItemID,
	}
	result := h.Svc.Capture(ctx, pc, CallbackPayload{
		OrderID:   strings.TrimSpace(req.OrderID),
		PaymentID: strings.TrimSpace(req.PaymentID),
		Signature: strings.TrimSpace(req.Signature),
	})

	// Release the guard on failed attempts so the user can retry the whole
	// checkout; confirmed duplicates keep the key until it expires.
	if !result.Success && result.Message != MsgAlreadyProcessed && replayKey != "" {
		if err := h.Replay.Del(ctx, replayKey).Err(); err != nil {
			h.Logger.Error().Err(err).Str("key", replayKey).Msg("release capture replay key")
		}
	}

	common.JSON(w, http.StatusOK, result)
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}
