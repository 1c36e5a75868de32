package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Order statuses reported by the gateway.
const (
	OrderStatusCreated   = "created"
	OrderStatusAttempted = "attempted"
	OrderStatusPaid      = "paid"
)

// Payment statuses reported by the gateway.
const (
	PaymentStatusCreated    = "created"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusRefunded   = "refunded"
	PaymentStatusFailed     = "failed"
)

// Order is the gateway-side resource representing an intended payment.
type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

// Payment is the gateway-side record of an individual payment attempt.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
}

// CreateOrderParams carries the inputs for opening a gateway order.
// Amount is in minor currency units; the gateway ledger never sees floats.
type CreateOrderParams struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// API is the subset of gateway operations the capture workflow depends on.
type API interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	GetPayment(ctx context.Context, paymentID string) (Payment, error)
}

// Client issues authenticated REST calls against the payment gateway.
type Client struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      *http.Client
}

// maxOrderAmount is the gateway's documented per-order ceiling in minor units.
const maxOrderAmount = int64(1) << 40

// CreateOrder creates a remote order resource and returns it.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (Order, error) {
	if params.Amount <= 0 || params.Amount > maxOrderAmount {
		return Order{}, &Error{Reason: ReasonMalformed, Op: "create order", Err: fmt.Errorf("amount %d out of range", params.Amount)}
	}
	if strings.TrimSpace(params.Currency) == "" {
		return Order{}, &Error{Reason: ReasonMalformed, Op: "create order", Err: errors.New("currency is required")}
	}
	body := map[string]any{
		"amount":   params.Amount,
		"currency": params.Currency,
		"receipt":  params.Receipt,
	}
	if len(params.Notes) > 0 {
		body["notes"] = params.Notes
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order, "create order"); err != nil {
		return Order{}, err
	}
	return order, nil
}

// GetOrder fetches the authoritative state of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return Order{}, &Error{Reason: ReasonMalformed, Op: "get order", Err: errors.New("order id is required")}
	}
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(id), nil, &order, "get order"); err != nil {
		return Order{}, err
	}
	return order, nil
}

// GetPayment fetches the authoritative state of a payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (Payment, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return Payment{}, &Error{Reason: ReasonMalformed, Op: "get payment", Err: errors.New("payment id is required")}
	}
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, &payment, "get payment"); err != nil {
		return Payment{}, err
	}
	return payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any, op string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Reason: ReasonMalformed, Op: op, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, reader)
	if err != nil {
		return &Error{Reason: ReasonMalformed, Op: op, Err: err}
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		reason := ReasonRemote
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			reason = ReasonTimeout
		}
		return &Error{Reason: reason, Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Reason: ReasonRemote, Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Error{Reason: ReasonAuth, Status: resp.StatusCode, Op: op}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest && looksLikeMissingResource(payload):
		return &Error{Reason: ReasonNotFound, Status: resp.StatusCode, Op: op}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &Error{Reason: ReasonRemote, Status: resp.StatusCode, Op: op, Err: fmt.Errorf("%s", firstLine(payload))}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return &Error{Reason: ReasonMalformed, Status: resp.StatusCode, Op: op, Err: err}
	}
	return nil
}

// looksLikeMissingResource inspects the gateway error envelope, which reports
// unknown ids as BAD_REQUEST_ERROR rather than a 404.
func looksLikeMissingResource(payload []byte) bool {
	var envelope struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return false
	}
	desc := strings.ToLower(envelope.Error.Description)
	return strings.Contains(desc, "does not exist") || strings.Contains(desc, "not found")
}

func firstLine(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
