package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/billingflow/internal/domain"
)

type OrderRepository interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (domain.Order, error)

	// ListOpenOrders returns all orders not yet in a terminal status,
	// oldest first. The reminder pass scans this set.
	ListOpenOrders(ctx context.Context) ([]domain.Order, error)

	InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error)

	// ClaimNotification atomically sets the sent-at gate for the kind if it
	// is still null. Returns false when the gate was already set or the
	// order is not in a claimable status. Exactly one of any number of
	// concurrent claims succeeds.
	ClaimNotification(ctx context.Context, orderID uuid.UUID, kind domain.NotificationKind) (bool, error)

	// ReleaseNotification clears a gate after a failed dispatch so the next
	// pass re-evaluates due-ness. Only the holder of a successful claim may
	// call it.
	ReleaseNotification(ctx context.Context, orderID uuid.UUID, kind domain.NotificationKind) error

	// UpdateStatus compare-and-swaps the status. Returns false when the
	// order no longer has the expected current status.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (bool, error)

	// SettleTerminal moves the order to a terminal status only if it is not
	// already terminal, making duplicate confirmations a no-op.
	SettleTerminal(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (bool, error)

	SetPaymentID(ctx context.Context, orderID uuid.UUID, paymentID string) error
}
