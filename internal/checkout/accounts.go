package checkout

import (
	"context"
	"errors"
	"strings"
)

// ErrNoAccount indicates no gateway account is configured for the context.
var ErrNoAccount = errors.New("checkout: no gateway account for context")

// Account holds the per-context gateway credentials. KeyID is public and
// shipped to the widget; KeySecret never leaves the server or the logs.
type Account struct {
	KeyID     string
	KeySecret string
}

// AccountResolver looks up gateway credentials for a purchase context.
type AccountResolver interface {
	Resolve(ctx context.Context, pc PaymentContext) (Account, error)
}

// StaticAccounts serves a single account for every context, the common
// single-tenant deployment shape.
type StaticAccounts struct {
	Account Account
}

// Resolve returns the configured account or ErrNoAccount when credentials are absent.
func (s StaticAccounts) Resolve(_ context.Context, _ PaymentContext) (Account, error) {
	if strings.TrimSpace(s.Account.KeyID) == "" || strings.TrimSpace(s.Account.KeySecret) == "" {
		return Account{}, ErrNoAccount
	}
	return s.Account, nil
}
