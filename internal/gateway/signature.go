package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign computes the checkout callback signature for an order/payment pair:
// hex-encoded HMAC-SHA256 over "orderID|paymentID" keyed with the account secret.
func Sign(orderID, paymentID, secret string) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID))
	mac.Write([]byte("|"))
	mac.Write([]byte(paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether the supplied callback signature matches the
// expected one. Comparison is constant time. Malformed or empty input yields
// false, never an error: the signature is untrusted by definition.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	provided := strings.TrimSpace(signature)
	if orderID == "" || paymentID == "" || provided == "" {
		return false
	}
	expected := Sign(orderID, paymentID, secret)
	if expected == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(provided)))
}
