package privacy_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/classworks/backend-paygw/internal/common"
	"github.com/classworks/backend-paygw/internal/privacy"
)

func newPrivacyHandler() *privacy.Handler {
	return &privacy.Handler{Svc: &privacy.Service{}, Logger: zerolog.Nop()}
}

// request builds a chi-routed request so URLParam resolves, optionally
// carrying an authenticated subject in the context.
func request(t *testing.T, method, target, paramKey, paramValue, subject string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(paramKey, paramValue)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if subject != "" {
		ctx = common.WithUserID(ctx, subject)
	}
	return req.WithContext(ctx)
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Error.Code
}

func TestExportRejectsAnotherUsersData(t *testing.T) {
	h := newPrivacyHandler()
	rr := httptest.NewRecorder()
	h.Export(rr, request(t, http.MethodGet, "/privacy/users/42/export", "userID", "42", "7"))
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, common.CodeForbidden, errorCode(t, rr.Body.Bytes()))
}

func TestExportRequiresAuthentication(t *testing.T) {
	h := newPrivacyHandler()
	rr := httptest.NewRecorder()
	h.Export(rr, request(t, http.MethodGet, "/privacy/users/42/export", "userID", "42", ""))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, common.CodeUnauthorized, errorCode(t, rr.Body.Bytes()))
}

func TestEraseUserRejectsAnotherUsersData(t *testing.T) {
	h := newPrivacyHandler()
	rr := httptest.NewRecorder()
	h.EraseUser(rr, request(t, http.MethodDelete, "/privacy/users/42", "userID", "42", "7"))
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, common.CodeForbidden, errorCode(t, rr.Body.Bytes()))
}

func TestEraseUserRequiresUserID(t *testing.T) {
	h := newPrivacyHandler()
	rr := httptest.NewRecorder()
	h.EraseUser(rr, request(t, http.MethodDelete, "/privacy/users/%20", "userID", "  ", "7"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestErasePaymentRequiresAuthentication(t *testing.T) {
	h := newPrivacyHandler()
	rr := httptest.NewRecorder()
	h.ErasePayment(rr, request(t, http.MethodDelete, "/privacy/payments/2b1f8a2e-9c43-4c36-9f0b-1df6f8cb4711", "paymentID", "2b1f8a2e-9c43-4c36-9f0b-1df6f8cb4711", ""))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestErasePaymentRejectsMalformedID(t *testing.T) {
	h := newPrivacyHandler()
	rr := httptest.NewRecorder()
	h.ErasePayment(rr, request(t, http.MethodDelete, "/privacy/payments/not-a-uuid", "paymentID", "not-a-uuid", "7"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
