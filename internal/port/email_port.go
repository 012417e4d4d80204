package port

import (
	"context"

	"github.com/nikolayk812/billingflow/internal/domain"
)

// EmailSender performs exactly one send attempt and has no memory of past
// sends; idempotency is the caller's job via the order's sent-at gates.
type EmailSender interface {
	Send(ctx context.Context, order domain.Order, kind domain.NotificationKind) (providerMessageID string, err error)
}
