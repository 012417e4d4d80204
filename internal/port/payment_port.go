package port

import (
	"context"

	"github.com/nikolayk812/billingflow/internal/domain"
)

type CheckoutSession struct {
	PaymentID   string
	CheckoutURL string
}

type PaymentGateway interface {
	CreatePayment(ctx context.Context, order domain.Order) (CheckoutSession, error)

	// PaymentOutcome looks up the provider-side payment state and returns
	// the normalized outcome together with the raw provider state.
	PaymentOutcome(ctx context.Context, paymentID string) (domain.PaymentOutcome, string, error)
}
