package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/billingflow/internal/domain"
)

// EventSink accepts analytics events. Pure sink: nothing flows back into
// order logic.
type EventSink interface {
	Publish(ctx context.Context, event domain.Event) error
}

type EventRepository interface {
	InsertEvent(ctx context.Context, event domain.Event) (uuid.UUID, error)
}
