package checkout_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	validator "github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/classworks/backend-paygw/internal/checkout"
	"github.com/classworks/backend-paygw/internal/common"
	"github.com/classworks/backend-paygw/internal/gateway"
)

func newHandlerFixture(t *testing.T) (*checkout.Handler, *fixture, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture()
	h := &checkout.Handler{
		Svc:       f.svc,
		Validate:  validator.New(),
		Replay:    client,
		ReplayTTL: time.Minute,
		Logger:    zerolog.Nop(),
	}
	return h, f, mr
}

func completeBody(signature string) []byte {
	body, _ := json.Marshal(map[string]any{
		"component":   "enrol_fee",
		"paymentArea": "fee",
		"itemId":      7,
		"orderId":     "order_1",
		"paymentId":   "pay_1",
		"signature":   signature,
	})
	return body
}

func postComplete(h *checkout.Handler, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/complete", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Complete(rr, req)
	return rr
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) checkout.CaptureResult {
	t.Helper()
	var result checkout.CaptureResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	return result
}

func TestCompleteSuccess(t *testing.T) {
	h, f, _ := newHandlerFixture(t)

	rr := postComplete(h, completeBody(gateway.Sign("order_1", "pay_1", testSecret)))

	require.Equal(t, http.StatusOK, rr.Code)
	result := decodeResult(t, rr)
	require.True(t, result.Success)
	require.Len(t, f.store.records, 1)
}

func TestCompleteReplayGuardBlocksSecondAttempt(t *testing.T) {
	h, f, _ := newHandlerFixture(t)
	body := completeBody(gateway.Sign("order_1", "pay_1", testSecret))

	first := postComplete(h, body)
	second := postComplete(h, body)

	require.True(t, decodeResult(t, first).Success)
	require.Equal(t, checkout.MsgAlreadyProcessed, decodeResult(t, second).Message)
	// the second attempt never reached the gateway
	require.Equal(t, 1, f.gw.orderCalls)
	require.Len(t, f.store.records, 1)
}

func TestCompleteReleasesGuardOnFailure(t *testing.T) {
	h, _, mr := newHandlerFixture(t)
	badSig := gateway.Sign("order_1", "pay_1", "wrong-secret")

	rr := postComplete(h, completeBody(badSig))

	require.Equal(t, checkout.MsgCannotFetchOrder, decodeResult(t, rr).Message)
	key := "capture:" + common.ReplayKey("order_1", "pay_1")
	require.False(t, mr.Exists(key), "failed attempt must release the replay key")
}

func TestCompleteValidationError(t *testing.T) {
	h, _, _ := newHandlerFixture(t)

	body, _ := json.Marshal(map[string]any{
		"component":   "enrol_fee",
		"paymentArea": "fee",
		"itemId":      7,
		"orderId":     "order_1",
		"paymentId":   "pay_1",
		"signature":   "not-hex",
	})
	rr := postComplete(h, body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestConfigRequiresAuthentication(t *testing.T) {
	h, _, _ := newHandlerFixture(t)

	body, _ := json.Marshal(map[string]any{
		"component":   "enrol_fee",
		"paymentArea": "fee",
		"itemId":      7,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/config", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Config(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestConfigReturnsWidgetPayload(t *testing.T) {
	h, _, _ := newHandlerFixture(t)

	body, _ := json.Marshal(map[string]any{
		"component":   "enrol_fee",
		"paymentArea": "fee",
		"itemId":      7,
		"fullname":    "Ada Lovelace",
		"email":       "ada@example.com",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/config", bytes.NewReader(body))
	req = req.WithContext(common.WithUserID(req.Context(), "42"))
	rr := httptest.NewRecorder()
	h.Config(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var cfg checkout.CheckoutConfig
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	require.Equal(t, "rzp_test_key", cfg.Key)
	require.Equal(t, "order_new", cfg.OrderID)
	require.Equal(t, int64(15000), cfg.Amount)
}
