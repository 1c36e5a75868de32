package checkout

import (
	"fmt"
	"strings"
)

// PaymentContext identifies what is being purchased within the host LMS.
// It is supplied by the caller on every request and never persisted alone.
type PaymentContext struct {
	Component   string
	PaymentArea string
	ItemID      int64
}

// Receipt derives the gateway receipt reference for the context.
func (pc PaymentContext) Receipt() string {
	return fmt.Sprintf("%s-%s-%d", pc.Component, pc.PaymentArea, pc.ItemID)
}

// Validate checks the context fields are present and sane.
func (pc PaymentContext) Validate() error {
	if strings.TrimSpace(pc.Component) == "" {
		return fmt.Errorf("component is required")
	}
	if strings.TrimSpace(pc.PaymentArea) == "" {
		return fmt.Errorf("payment area is required")
	}
	if pc.ItemID <= 0 {
		return fmt.Errorf("item id is required")
	}
	return nil
}

// CallbackPayload carries the three values the checkout widget posts back
// after the user completes payment. Untrusted until the signature verifies.
type CallbackPayload struct {
	OrderID   string
	PaymentID string
	Signature string
}

// PayerInfo prefills the checkout widget. Cosmetic only; nothing here is
// trusted for amount or identity decisions.
type PayerInfo struct {
	Name    string
	Email   string
	Contact string
}

// CheckoutConfig is the payload the client-side checkout widget needs to
// launch. The gateway secret is never part of it.
type CheckoutConfig struct {
	Key         string            `json:"key"`
	OrderID     string            `json:"orderId"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Image       string            `json:"image,omitempty"`
	Prefill     PayerPrefill      `json:"prefill"`
	Notes       map[string]string `json:"notes"`
}

// PayerPrefill mirrors the widget's prefill block.
type PayerPrefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// CaptureResult is returned to the widget after a capture attempt. Message
// is empty on success and one of the fixed user-facing strings on failure.
type CaptureResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Fixed user-facing failure messages. Internal diagnostic detail stays in
// logs; only these strings cross the response boundary.
const (
	MsgCannotFetchOrder = "cannot fetch order details"
	MsgNotCleared       = "payment not cleared"
	MsgAlreadyProcessed = "payment already processed"
	MsgInternalError    = "internal error"
	MsgNotConfigured    = "payment gateway is not configured"
)

func failure(message string) CaptureResult {
	return CaptureResult{Success: false, Message: message}
}
