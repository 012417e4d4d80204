package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/billingflow/internal/domain"
	"github.com/nikolayk812/billingflow/internal/port"
)

type eventRepository struct {
	db DBTX
}

func NewEvent(db DBTX) (port.EventRepository, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}

	return &eventRepository{db: db}, nil
}

func (r *eventRepository) InsertEvent(ctx context.Context, event domain.Event) (uuid.UUID, error) {
	if event.SessionID == "" {
		return uuid.Nil, errors.New("sessionID is empty")
	}

	if event.EventType == "" {
		return uuid.Nil, errors.New("eventType is empty")
	}

	eventID := event.ID
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	// ON CONFLICT DO NOTHING: client retries with the same event id must
	// not duplicate the row.
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, session_id, event_type, section_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		eventID, event.SessionID, event.EventType, event.SectionID,
		emptyJSONIfNil(event.Metadata), createdAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("db.Exec: %w", err)
	}

	return eventID, nil
}
