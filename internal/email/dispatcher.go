package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/billingflow/internal/domain"
	"github.com/nikolayk812/billingflow/internal/port"
	log "github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.postmarkapp.com"

// Dispatcher performs a single send attempt through a Postmark-style
// transactional email API. It keeps no record of past sends; callers gate
// on the order's sent-at timestamps.
//
// In noop mode every send is acknowledged without delivery. The mode is
// explicit and every acknowledged send is logged, so automated flows keep
// moving in development without silently swallowing mail in production.
type Dispatcher struct {
	httpClient  *http.Client
	serverToken string
	from        string
	baseURL     string
	noop        bool
	renderer    *Renderer
}

type Option func(*Dispatcher)

func WithBaseURL(baseURL string) Option {
	return func(d *Dispatcher) { d.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(d *Dispatcher) { d.httpClient = httpClient }
}

// WithNoop switches the dispatcher to acknowledged no-op sends.
func WithNoop() Option {
	return func(d *Dispatcher) { d.noop = true }
}

func NewDispatcher(serverToken, from string, renderer *Renderer, opts ...Option) (port.EmailSender, error) {
	if renderer == nil {
		return nil, errors.New("renderer is nil")
	}

	d := &Dispatcher{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		serverToken: serverToken,
		from:        from,
		baseURL:     defaultBaseURL,
		renderer:    renderer,
	}

	for _, opt := range opts {
		opt(d)
	}

	if !d.noop && d.serverToken == "" {
		return nil, fmt.Errorf("email provider not configured: %w", domain.ErrProviderUnavailable)
	}

	if d.noop {
		log.Warn("email dispatcher running in noop mode, no mail will be delivered")
	}

	return d, nil
}

type sendRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
}

type sendResponse struct {
	MessageID string `json:"MessageID"`
	Message   string `json:"Message"`
}

func (d *Dispatcher) Send(ctx context.Context, order domain.Order, kind domain.NotificationKind) (string, error) {
	if order.CustomerEmail == "" {
		return "", fmt.Errorf("order[%s] has no customer email: %w", order.ID, domain.ErrInvalidState)
	}

	subject, body, err := d.renderer.Render(order, kind)
	if err != nil {
		return "", fmt.Errorf("renderer.Render: %w", err)
	}

	if d.noop {
		messageID := "noop-" + uuid.NewString()
		log.WithFields(log.Fields{
			"order_id":   order.ID,
			"kind":       kind,
			"message_id": messageID,
		}).Info("noop mode, email acknowledged without delivery")
		return messageID, nil
	}

	reqBody, err := json.Marshal(sendRequest{
		From:     d.from,
		To:       order.CustomerEmail,
		Subject:  subject,
		TextBody: body,
	})
	if err != nil {
		return "", fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/email", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", d.serverToken)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider unreachable: %w", domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("io.ReadAll: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var out sendResponse
		message := string(respBody)
		if err := json.Unmarshal(respBody, &out); err == nil && out.Message != "" {
			message = out.Message
		}
		return "", fmt.Errorf("send rejected [%d] %s: %w", resp.StatusCode, message, domain.ErrProviderRejected)
	}

	var out sendResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("json.Unmarshal: %w", err)
	}

	return out.MessageID, nil
}
