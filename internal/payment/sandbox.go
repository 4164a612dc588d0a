package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/atypikhouse/internal/model"
)

const (
	sandboxIntentPrefix = "sandbox_pi_"
	sandboxSecretPrefix = "sandbox_seti_"
)

// Sandbox simulates a provider.  Every intent id it issues verifies,
// and refunds always succeed.
type Sandbox struct{}

func NewSandbox() *Sandbox { return &Sandbox{} }

func (Sandbox) CreateIntent(_ context.Context, b model.Booking) (Intent, error) {
	return Intent{
		ID:           sandboxIntentPrefix + uuid.NewString(),
		AmountCents:  b.TotalPriceCents,
		Currency:     Currency,
		Status:       "requires_payment_method",
		ClientSecret: sandboxSecretPrefix + uuid.NewString(),
		Sandbox:      true,
	}, nil
}

// Verify accepts any id carrying the sandbox prefix.
func (Sandbox) Verify(_ context.Context, intentID string) (bool, error) {
	return strings.HasPrefix(intentID, sandboxIntentPrefix), nil
}

func (Sandbox) Refund(context.Context, string) (bool, error) { return true, nil }
