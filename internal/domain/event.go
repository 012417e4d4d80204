package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is an analytics record. Write-only from the billing core's
// perspective, it never feeds back into order state.
type Event struct {
	ID        uuid.UUID
	SessionID string
	EventType string
	SectionID *string
	Metadata  []byte

	CreatedAt time.Time
}
