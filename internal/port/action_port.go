package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/billingflow/internal/domain"
)

// ActionRepository is append-only: no update, no delete.
type ActionRepository interface {
	InsertAction(ctx context.Context, action domain.OrderAction) (uuid.UUID, error)
	ListActions(ctx context.Context, orderID uuid.UUID) ([]domain.OrderAction, error)
}
