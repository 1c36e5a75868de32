package privacy

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/classworks/backend-paygw/internal/common"
)

// Handler exposes the host privacy API glue over HTTP. Every operation is
// scoped to the authenticated subject: a user can export or erase only their
// own payment rows, regardless of the ids in the path.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

// subject resolves the authenticated user id and writes the error response
// itself when the request is unauthenticated or addresses another user.
func (h *Handler) subject(w http.ResponseWriter, r *http.Request, pathUserID string) (string, bool) {
	subject, ok := common.UserID(r.Context())
	if !ok || strings.TrimSpace(subject) == "" {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "login required", nil)
		return "", false
	}
	if pathUserID != "" && subject != pathUserID {
		common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "cannot access another user's payment data", nil)
		return "", false
	}
	return subject, true
}

// Export returns all payment data held for a user.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "user id is required", nil)
		return
	}
	if _, ok := h.subject(w, r, userID); !ok {
		return
	}
	records, err := h.Svc.ExportForUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error().Err(err).Str("user_id", userID).Msg("export payment data")
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
		return
	}
	if records == nil {
		records = []PaymentExport{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"payments": records})
}

// EraseUser deletes all payment data held for a user.
func (h *Handler) EraseUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "user id is required", nil)
		return
	}
	if _, ok := h.subject(w, r, userID); !ok {
		return
	}
	deleted, err := h.Svc.EraseForUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error().Err(err).Str("user_id", userID).Msg("erase payment data for user")
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
		return
	}
	h.Logger.Info().Str("user_id", userID).Int64("deleted", deleted).Msg("erased payment data")
	common.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// ErasePayment deletes one payment row by its local id. Ownership is
// enforced in the delete itself, so a row belonging to someone else is
// indistinguishable from a missing one.
func (h *Handler) ErasePayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payment id", nil)
		return
	}
	subject, ok := h.subject(w, r, "")
	if !ok {
		return
	}
	if err := h.Svc.ErasePayment(r.Context(), id, subject); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "payment not found", nil)
			return
		}
		h.Logger.Error().Err(err).Str("payment_id", id.String()).Msg("erase payment")
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"deleted": 1})
}
