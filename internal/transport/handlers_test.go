package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/billingflow/internal/domain"
	"github.com/nikolayk812/billingflow/internal/port"
	"github.com/nikolayk812/billingflow/internal/service"
	"github.com/nikolayk812/billingflow/internal/transport"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

// fakeBilling answers from canned state and records what it was asked.
type fakeBilling struct {
	order domain.Order

	createErr error
	getErr    error
	sendErr   error

	sentKind  domain.NotificationKind
	sentActor string

	webhookPaymentID string

	writeOffActor string
}

func (f *fakeBilling) CreateOrder(_ context.Context, params service.CreateOrderParams) (domain.Order, error) {
	if f.createErr != nil {
		return domain.Order{}, f.createErr
	}

	order := f.order
	order.CustomerName = params.CustomerName
	order.CustomerEmail = params.CustomerEmail
	order.Amount = params.Amount
	return order, nil
}

func (f *fakeBilling) GetOrder(context.Context, uuid.UUID) (domain.Order, error) {
	if f.getErr != nil {
		return domain.Order{}, f.getErr
	}
	return f.order, nil
}

func (f *fakeBilling) ListOrderActions(context.Context, uuid.UUID) ([]domain.OrderAction, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	return []domain.OrderAction{
		{
			ID:          uuid.New(),
			OrderID:     f.order.ID,
			Type:        domain.ActionOrderCreated,
			Description: "order created",
			Actor:       domain.ActorSystem,
			CreatedAt:   time.Now().UTC(),
		},
	}, nil
}

func (f *fakeBilling) StartPayment(context.Context, uuid.UUID) (port.CheckoutSession, error) {
	return port.CheckoutSession{
		PaymentID:   "tr_12345",
		CheckoutURL: "https://pay.example.com/tr_12345",
	}, nil
}

func (f *fakeBilling) HandlePaymentWebhook(_ context.Context, paymentID string) error {
	f.webhookPaymentID = paymentID
	return nil
}

func (f *fakeBilling) SendNotification(_ context.Context, _ uuid.UUID, kind domain.NotificationKind, actor string) error {
	if f.sendErr != nil {
		return f.sendErr
	}

	f.sentKind = kind
	f.sentActor = actor
	return nil
}

func (f *fakeBilling) WriteOff(_ context.Context, _ uuid.UUID, actor string) error {
	f.writeOffActor = actor
	return nil
}

func (f *fakeBilling) RunReminderPass(context.Context) error { return nil }

type fakeSink struct {
	events []domain.Event
	err    error
}

func (s *fakeSink) Publish(_ context.Context, event domain.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func fakeOrder() domain.Order {
	return domain.Order{
		ID:            uuid.New(),
		CustomerName:  "Jane Smith",
		CustomerEmail: "jane@example.com",
		Amount: domain.Money{
			Amount:   decimal.RequireFromString("49.90"),
			Currency: currency.EUR,
		},
		Status:    domain.OrderStatusConfirmed,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func newRouter(t *testing.T, svc service.BillingService, sink port.EventSink) http.Handler {
	t.Helper()

	handler, err := transport.NewHandler(svc, sink)
	require.NoError(t, err)

	return handler.Router()
}

func TestCreateOrder(t *testing.T) {
	billing := &fakeBilling{order: fakeOrder()}
	router := newRouter(t, billing, &fakeSink{})

	body := `{"customer_name": "Jane Smith", "customer_email": "jane@example.com", "amount": "49.90", "currency": "EUR"}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "jane@example.com", resp["customer_email"])
	assert.Equal(t, "EUR", resp["currency"])
	assert.Equal(t, "confirmed", resp["status"])
}

func TestCreateOrder_BadRequests(t *testing.T) {
	router := newRouter(t, &fakeBilling{order: fakeOrder()}, &fakeSink{})

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{{{`},
		{name: "unknown currency", body: `{"customer_name": "a", "customer_email": "b", "amount": "1", "currency": "BITCOIN"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "not found: 404", err: domain.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "invalid state: 400", err: domain.ErrInvalidState, wantStatus: http.StatusBadRequest},
		{name: "provider rejected: 502", err: domain.ErrProviderRejected, wantStatus: http.StatusBadGateway},
		{name: "provider unavailable: 503", err: domain.ErrProviderUnavailable, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(t, &fakeBilling{getErr: tt.err}, &fakeSink{})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetOrder_InvalidID(t *testing.T) {
	router := newRouter(t, &fakeBilling{order: fakeOrder()}, &fakeSink{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListActions(t *testing.T) {
	billing := &fakeBilling{order: fakeOrder()}
	router := newRouter(t, billing, &fakeSink{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+billing.order.ID.String()+"/actions", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp, 1)
	assert.Equal(t, "order_created", resp[0]["type"])
}

func TestStartPayment(t *testing.T) {
	billing := &fakeBilling{order: fakeOrder()}
	router := newRouter(t, billing, &fakeSink{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+billing.order.ID.String()+"/payment", nil))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "tr_12345", resp["payment_id"])
	assert.Equal(t, "https://pay.example.com/tr_12345", resp["checkout_url"])
}

func TestPaymentWebhook(t *testing.T) {
	billing := &fakeBilling{order: fakeOrder()}
	router := newRouter(t, billing, &fakeSink{})

	form := url.Values{"id": {"tr_12345"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tr_12345", billing.webhookPaymentID)
}

func TestPaymentWebhook_MissingID(t *testing.T) {
	router := newRouter(t, &fakeBilling{order: fakeOrder()}, &fakeSink{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendNotification(t *testing.T) {
	billing := &fakeBilling{order: fakeOrder()}
	router := newRouter(t, billing, &fakeSink{})

	body := `{"orderId": "` + billing.order.ID.String() + `", "emailType": "invoice"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body))
	req.Header.Set("X-Actor", "alice")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, domain.NotificationInvoice, billing.sentKind)
	assert.Equal(t, "alice", billing.sentActor)
}

func TestSendNotification_DefaultActor(t *testing.T) {
	billing := &fakeBilling{order: fakeOrder()}
	router := newRouter(t, billing, &fakeSink{})

	body := `{"orderId": "` + billing.order.ID.String() + `", "emailType": "reminder_1"}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body)))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "admin", billing.sentActor)
}

func TestSendNotification_UnknownKind(t *testing.T) {
	router := newRouter(t, &fakeBilling{order: fakeOrder()}, &fakeSink{})

	body := `{"orderId": "` + uuid.NewString() + `", "emailType": "newsletter"}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteOff(t *testing.T) {
	billing := &fakeBilling{order: fakeOrder()}
	router := newRouter(t, billing, &fakeSink{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+billing.order.ID.String()+"/write-off", nil)
	req.Header.Set("X-Actor", "bob")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "bob", billing.writeOffActor)
}

func TestTrackEvent(t *testing.T) {
	sink := &fakeSink{}
	router := newRouter(t, &fakeBilling{order: fakeOrder()}, sink)

	body := `{"session_id": "s-1", "event_type": "section_opened", "section_id": "pricing"}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "s-1", sink.events[0].SessionID)
	assert.Equal(t, "section_opened", sink.events[0].EventType)
}

func TestTrackEvent_MissingFields(t *testing.T) {
	router := newRouter(t, &fakeBilling{order: fakeOrder()}, &fakeSink{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"session_id": "s-1"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newRouter(t, &fakeBilling{order: fakeOrder()}, &fakeSink{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
