// Package payment talks to the payment provider.  Two gateways exist:
// a sandbox that simulates intents locally and a Stripe client used
// in production.
package payment

import (
	"context"
	"errors"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// Currency is the only currency bookings are charged in.
const Currency = "eur"

// ErrUnavailable is returned while the provider circuit is open.
var ErrUnavailable = errors.New("payment provider unavailable")

// Intent is what the client needs to complete a payment.
type Intent struct {
	ID           string `json:"id"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
	Sandbox      bool   `json:"sandbox"`
}

// Gateway creates, verifies and refunds payments.
type Gateway interface {
	CreateIntent(ctx context.Context, b model.Booking) (Intent, error)
	Verify(ctx context.Context, intentID string) (bool, error)
	Refund(ctx context.Context, transactionID string) (bool, error)
}

// Config selects and configures a gateway.
type Config struct {
	Sandbox         bool
	StripeSecretKey string
	StripeAPIURL    string
}

// New returns the sandbox gateway when cfg.Sandbox is set, otherwise
// a Stripe client.
func New(cfg Config) Gateway {
	if cfg.Sandbox {
		return NewSandbox()
	}
	return NewStripe(cfg.StripeSecretKey, cfg.StripeAPIURL, nil)
}
