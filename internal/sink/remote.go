package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/billingflow/internal/domain"
)

// RemoteSink ships events to an external analytics collector. An empty
// endpoint is the explicit unconfigured variant; Choose never selects it.
type RemoteSink struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

type RemoteOption func(*RemoteSink)

func WithHTTPClient(httpClient *http.Client) RemoteOption {
	return func(s *RemoteSink) { s.httpClient = httpClient }
}

func NewRemoteSink(endpoint, apiKey string, opts ...RemoteOption) *RemoteSink {
	s := &RemoteSink{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   endpoint,
		apiKey:     apiKey,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RemoteSink) Configured() bool {
	return s.endpoint != ""
}

type eventPayload struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	EventType string          `json:"event_type"`
	SectionID *string         `json:"section_id,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *RemoteSink) Publish(ctx context.Context, event domain.Event) error {
	if !s.Configured() {
		return fmt.Errorf("remote sink not configured: %w", domain.ErrProviderUnavailable)
	}

	eventID := event.ID
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	body, err := json.Marshal(eventPayload{
		ID:        eventID.String(),
		SessionID: event.SessionID,
		EventType: event.EventType,
		SectionID: event.SectionID,
		Metadata:  event.Metadata,
		CreatedAt: createdAt,
	})
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("collector unreachable: %w", domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("collector rejected [%d]: %w", resp.StatusCode, domain.ErrProviderRejected)
	}

	return nil
}
