package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nikolayk812/billingflow/internal/domain"
	"github.com/nikolayk812/billingflow/internal/port"
)

const defaultBaseURL = "https://api.mollie.com"

// descriptionPrefix is the provider-facing convention: every payment
// description starts with the order reference.
const descriptionPrefix = "Order "

// Client talks to a Mollie-style v2 payments API. An empty API key is the
// explicit unconfigured variant: every call fails with
// domain.ErrProviderUnavailable instead of reaching the network.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	redirectURL string
	webhookURL  string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(apiKey, redirectURL, webhookURL string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		redirectURL: redirectURL,
		webhookURL:  webhookURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type createPaymentRequest struct {
	Amount      amount            `json:"amount"`
	Description string            `json:"description"`
	RedirectURL string            `json:"redirectUrl"`
	WebhookURL  string            `json:"webhookUrl"`
	Metadata    map[string]string `json:"metadata"`
}

type paymentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  struct {
		Checkout struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
	Detail string `json:"detail"`
}

func (c *Client) CreatePayment(ctx context.Context, order domain.Order) (port.CheckoutSession, error) {
	var s port.CheckoutSession

	if !c.Configured() {
		return s, fmt.Errorf("gateway not configured: %w", domain.ErrProviderUnavailable)
	}

	reqBody := createPaymentRequest{
		Amount: amount{
			Currency: order.Amount.Currency.String(),
			Value:    order.Amount.Amount.StringFixed(2),
		},
		Description: descriptionPrefix + order.ID.String(),
		RedirectURL: c.redirectURL,
		WebhookURL:  c.webhookURL,
		Metadata:    map[string]string{"order_id": order.ID.String()},
	}

	resp, err := c.do(ctx, http.MethodPost, "/v2/payments", reqBody)
	if err != nil {
		return s, err
	}

	return port.CheckoutSession{
		PaymentID:   resp.ID,
		CheckoutURL: resp.Links.Checkout.Href,
	}, nil
}

func (c *Client) PaymentOutcome(ctx context.Context, paymentID string) (domain.PaymentOutcome, string, error) {
	if !c.Configured() {
		return "", "", fmt.Errorf("gateway not configured: %w", domain.ErrProviderUnavailable)
	}

	if paymentID == "" {
		return "", "", fmt.Errorf("paymentID is empty")
	}

	resp, err := c.do(ctx, http.MethodGet, "/v2/payments/"+paymentID, nil)
	if err != nil {
		return "", "", err
	}

	return Classify(resp.Status), resp.Status, nil
}

// Classify normalizes a provider payment state into one of three outcomes.
// Canceled and expired count as failed; open, pending and authorized stay
// pending.
func Classify(providerState string) domain.PaymentOutcome {
	switch providerState {
	case "paid":
		return domain.PaymentOutcomePaid
	case "failed", "canceled", "expired":
		return domain.PaymentOutcomeFailed
	default:
		return domain.PaymentOutcomePending
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (paymentResponse, error) {
	var out paymentResponse

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return out, fmt.Errorf("json.Marshal: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return out, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("provider unreachable: %w", domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("io.ReadAll: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return out, fmt.Errorf("payment %w", domain.ErrNotFound)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		detail := providerDetail(respBody)
		return out, fmt.Errorf("provider rejected [%d] %s: %w", resp.StatusCode, detail, domain.ErrProviderRejected)
	}

	if err := json.Unmarshal(respBody, &out); err != nil {
		return out, fmt.Errorf("json.Unmarshal: %w", err)
	}

	return out, nil
}

func providerDetail(body []byte) string {
	var resp paymentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return string(body)
	}
	if resp.Detail == "" {
		return string(body)
	}
	return resp.Detail
}
