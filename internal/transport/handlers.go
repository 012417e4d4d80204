package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nikolayk812/billingflow/internal/domain"
	"github.com/nikolayk812/billingflow/internal/port"
	"github.com/nikolayk812/billingflow/internal/service"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/currency"
)

type Handler struct {
	svc  service.BillingService
	sink port.EventSink
}

func NewHandler(svc service.BillingService, sink port.EventSink) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("svc is nil")
	}

	if sink == nil {
		return nil, errors.New("sink is nil")
	}

	return &Handler{svc: svc, sink: sink}, nil
}

func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	s := r.PathPrefix("/api/v1").Subrouter()
	s.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	s.HandleFunc("/orders/{id}/actions", h.listActions).Methods(http.MethodGet)
	s.HandleFunc("/orders/{id}/payment", h.startPayment).Methods(http.MethodPost)
	s.HandleFunc("/orders/{id}/write-off", h.writeOff).Methods(http.MethodPost)
	s.HandleFunc("/payments/webhook", h.paymentWebhook).Methods(http.MethodPost)
	s.HandleFunc("/notifications", h.sendNotification).Methods(http.MethodPost)
	s.HandleFunc("/events", h.trackEvent).Methods(http.MethodPost)

	return logMiddleware(r)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type createOrderRequest struct {
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

type orderResponse struct {
	ID            uuid.UUID       `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	PaymentID     *string         `json:"payment_id,omitempty"`

	ConfirmationSentAt    *time.Time `json:"confirmation_sent_at,omitempty"`
	InvoiceSentAt         *time.Time `json:"invoice_sent_at,omitempty"`
	Reminder1SentAt       *time.Time `json:"reminder_1_sent_at,omitempty"`
	Reminder2SentAt       *time.Time `json:"reminder_2_sent_at,omitempty"`
	PaymentReceivedSentAt *time.Time `json:"payment_received_sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func mapOrder(o domain.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Amount:        o.Amount.Amount,
		Currency:      o.Amount.Currency.String(),
		Status:        string(o.Status),
		PaymentID:     o.PaymentID,

		ConfirmationSentAt:    o.ConfirmationSentAt,
		InvoiceSentAt:         o.InvoiceSentAt,
		Reminder1SentAt:       o.Reminder1SentAt,
		Reminder2SentAt:       o.Reminder2SentAt,
		PaymentReceivedSentAt: o.PaymentReceivedSentAt,

		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	currencyUnit, err := currency.ParseISO(req.Currency)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid currency")
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderParams{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Amount:        domain.Money{Amount: req.Amount, Currency: currencyUnit},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapOrder(order))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrder(order))
}

type actionResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Actor       string          `json:"actor"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (h *Handler) listActions(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromRequest(w, r)
	if !ok {
		return
	}

	actions, err := h.svc.ListOrderActions(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	result := make([]actionResponse, 0, len(actions))
	for _, a := range actions {
		result = append(result, actionResponse{
			ID:          a.ID,
			OrderID:     a.OrderID,
			Type:        string(a.Type),
			Description: a.Description,
			Actor:       a.Actor,
			Metadata:    a.Metadata,
			CreatedAt:   a.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, result)
}

type paymentResponse struct {
	PaymentID   string `json:"payment_id"`
	CheckoutURL string `json:"checkout_url"`
}

func (h *Handler) startPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromRequest(w, r)
	if !ok {
		return
	}

	session, err := h.svc.StartPayment(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, paymentResponse{
		PaymentID:   session.PaymentID,
		CheckoutURL: session.CheckoutURL,
	})
}

func (h *Handler) writeOff(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.svc.WriteOff(r.Context(), orderID, actorFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// paymentWebhook receives the provider's form-encoded callback carrying
// only the payment id; the actual state is fetched back from the provider.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid form body")
		return
	}

	paymentID := r.FormValue("id")
	if paymentID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.HandlePaymentWebhook(r.Context(), paymentID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type sendNotificationRequest struct {
	OrderID   string `json:"orderId"`
	EmailType string `json:"emailType"`
}

func (h *Handler) sendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	kind, err := domain.ToNotificationKind(req.EmailType)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SendNotification(r.Context(), orderID, kind, actorFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type trackEventRequest struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	EventType string          `json:"event_type"`
	SectionID *string         `json:"section_id"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h *Handler) trackEvent(w http.ResponseWriter, r *http.Request) {
	var req trackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SessionID == "" || req.EventType == "" {
		writeErrorMessage(w, http.StatusBadRequest, "session_id and event_type are required")
		return
	}

	var eventID uuid.UUID
	if req.ID != "" {
		var err error
		eventID, err = uuid.Parse(req.ID)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid event id")
			return
		}
	}

	event := domain.Event{
		ID:        eventID,
		SessionID: req.SessionID,
		EventType: req.EventType,
		SectionID: req.SectionID,
		Metadata:  req.Metadata,
		CreatedAt: req.CreatedAt,
	}

	if err := h.sink.Publish(r.Context(), event); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func orderIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)

	orderID, err := uuid.Parse(vars["id"])
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid order id")
		return uuid.Nil, false
	}

	return orderID, true
}

func actorFromRequest(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "admin"
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrProviderRejected):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("write response body")
	}
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
