// Package sink routes analytics events to a two-tier destination: a remote
// collector when one is configured, the local events table otherwise. The
// tier is chosen up front by a capability check, not by catching a remote
// failure after the fact.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikolayk812/billingflow/internal/domain"
	"github.com/nikolayk812/billingflow/internal/port"
	log "github.com/sirupsen/logrus"
)

// Capable is a sink that can tell whether it is actually able to accept
// events before any are published to it.
type Capable interface {
	port.EventSink
	Configured() bool
}

// Choose returns primary if it is configured, otherwise fallback.
func Choose(primary Capable, fallback port.EventSink) (port.EventSink, error) {
	if fallback == nil {
		return nil, errors.New("fallback sink is nil")
	}

	if primary != nil && primary.Configured() {
		log.Info("analytics: using remote sink")
		return primary, nil
	}

	log.Info("analytics: remote sink not configured, using local store")
	return fallback, nil
}

// StoreSink persists events into the local events table.
type StoreSink struct {
	repo port.EventRepository
}

func NewStoreSink(repo port.EventRepository) (*StoreSink, error) {
	if repo == nil {
		return nil, errors.New("repo is nil")
	}

	return &StoreSink{repo: repo}, nil
}

func (s *StoreSink) Publish(ctx context.Context, event domain.Event) error {
	if _, err := s.repo.InsertEvent(ctx, event); err != nil {
		return fmt.Errorf("repo.InsertEvent: %w", err)
	}

	return nil
}
