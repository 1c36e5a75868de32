package common_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classworks/backend-paygw/internal/common"
)

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"orderId":"order_1"}`))
	var body struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, common.DecodeJSON(req, &body))
	require.Equal(t, "order_1", body.OrderID)
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}{"b":2}`))
	var body map[string]any
	require.Error(t, common.DecodeJSON(req, &body))
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
	var body map[string]any
	require.Error(t, common.DecodeJSON(req, &body))
}

func TestReplayKeyStable(t *testing.T) {
	require.Equal(t, common.Sha256Hex("order_1:pay_1"), common.ReplayKey("order_1", "pay_1"))
	require.NotEqual(t, common.ReplayKey("order_1", "pay_1"), common.ReplayKey("order_1", "pay_2"))
	require.Len(t, common.ReplayKey("order_1", "pay_1"), 64)
}
