package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/billingflow/internal/domain"
	"github.com/nikolayk812/billingflow/internal/port"
	"github.com/nikolayk812/billingflow/internal/repository"
	"github.com/nikolayk812/billingflow/internal/scheduler"
	log "github.com/sirupsen/logrus"
)

type CreateOrderParams struct {
	CustomerName  string
	CustomerEmail string
	Amount        domain.Money
}

type BillingService interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	ListOrderActions(ctx context.Context, orderID uuid.UUID) ([]domain.OrderAction, error)

	StartPayment(ctx context.Context, orderID uuid.UUID) (port.CheckoutSession, error)
	HandlePaymentWebhook(ctx context.Context, paymentID string) error

	// SendNotification performs the gated send for one order/kind pair:
	// claim the sent-at gate, dispatch, audit. A second call for the same
	// pair is a no-op.
	SendNotification(ctx context.Context, orderID uuid.UUID, kind domain.NotificationKind, actor string) error

	WriteOff(ctx context.Context, orderID uuid.UUID, actor string) error

	// RunReminderPass scans open orders once and dispatches whatever the
	// scheduler reports due. Safe to run concurrently with itself and with
	// webhook reconciliation.
	RunReminderPass(ctx context.Context) error
}

type billingService struct {
	pool    *pgxpool.Pool
	orders  port.OrderRepository
	actions port.ActionRepository
	gateway port.PaymentGateway
	sender  port.EmailSender
	sched   *scheduler.Scheduler

	now func() time.Time
}

type Option func(*billingService)

// WithNowFunc overrides the clock, tests use it to move through the
// reminder timeline.
func WithNowFunc(now func() time.Time) Option {
	return func(s *billingService) { s.now = now }
}

func New(pool *pgxpool.Pool, gateway port.PaymentGateway, sender port.EmailSender, sched *scheduler.Scheduler, opts ...Option) (BillingService, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if gateway == nil {
		return nil, errors.New("gateway is nil")
	}
	if sender == nil {
		return nil, errors.New("sender is nil")
	}
	if sched == nil {
		return nil, errors.New("scheduler is nil")
	}

	orders, err := repository.NewOrder(pool)
	if err != nil {
		return nil, fmt.Errorf("repository.NewOrder: %w", err)
	}

	actions, err := repository.NewAction(pool)
	if err != nil {
		return nil, fmt.Errorf("repository.NewAction: %w", err)
	}

	s := &billingService{
		pool:    pool,
		orders:  orders,
		actions: actions,
		gateway: gateway,
		sender:  sender,
		sched:   sched,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *billingService) CreateOrder(ctx context.Context, params CreateOrderParams) (domain.Order, error) {
	var o domain.Order

	if params.CustomerEmail == "" {
		return o, fmt.Errorf("customer email is empty: %w", domain.ErrInvalidState)
	}

	if params.CustomerName == "" {
		return o, fmt.Errorf("customer name is empty: %w", domain.ErrInvalidState)
	}

	if !params.Amount.Amount.IsPositive() {
		return o, fmt.Errorf("amount is not positive: %w", domain.ErrInvalidState)
	}

	order := domain.Order{
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		Amount:        params.Amount,
		Status:        domain.OrderStatusNew,
	}

	// order row and its creation audit entry land together or not at all
	orderID, err := repository.WithTx(ctx, s.pool, func(tx repository.DBTX) (uuid.UUID, error) {
		ordersTx, err := repository.NewOrder(tx)
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository.NewOrder: %w", err)
		}

		id, err := ordersTx.InsertOrder(ctx, order)
		if err != nil {
			return uuid.Nil, fmt.Errorf("orders.InsertOrder: %w", err)
		}

		actionsTx, err := repository.NewAction(tx)
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository.NewAction: %w", err)
		}

		_, err = actionsTx.InsertAction(ctx, domain.OrderAction{
			OrderID:     id,
			Type:        domain.ActionOrderCreated,
			Description: fmt.Sprintf("order created for %s", order.CustomerEmail),
			Actor:       domain.ActorSystem,
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("actions.InsertAction: %w", err)
		}

		return id, nil
	})
	if err != nil {
		return o, fmt.Errorf("repository.WithTx: %w", err)
	}

	// Best-effort immediate confirmation. On failure the gate stays unset
	// and the next reminder pass retries.
	if err := s.SendNotification(ctx, orderID, domain.NotificationConfirmation, domain.ActorSystem); err != nil {
		log.WithError(err).WithField("order_id", orderID).Warn("confirmation email failed, scheduler will retry")
	}

	created, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return o, fmt.Errorf("orders.GetOrder: %w", err)
	}

	return created, nil
}

func (s *billingService) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return order, fmt.Errorf("orders.GetOrder: %w", err)
	}

	return order, nil
}

func (s *billingService) ListOrderActions(ctx context.Context, orderID uuid.UUID) ([]domain.OrderAction, error) {
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, fmt.Errorf("orders.GetOrder: %w", err)
	}

	actions, err := s.actions.ListActions(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("actions.ListActions: %w", err)
	}

	return actions, nil
}

func (s *billingService) StartPayment(ctx context.Context, orderID uuid.UUID) (port.CheckoutSession, error) {
	var session port.CheckoutSession

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return session, fmt.Errorf("orders.GetOrder: %w", err)
	}

	if order.Status.Terminal() {
		return session, fmt.Errorf("order[%s] is %s: %w", orderID, order.Status, domain.ErrInvalidState)
	}

	session, err = s.gateway.CreatePayment(ctx, order)
	if err != nil {
		return session, fmt.Errorf("gateway.CreatePayment: %w", err)
	}

	if err := s.orders.SetPaymentID(ctx, orderID, session.PaymentID); err != nil {
		return session, fmt.Errorf("orders.SetPaymentID: %w", err)
	}

	s.audit(ctx, orderID, domain.ActionPaymentCreated,
		fmt.Sprintf("payment %s created", session.PaymentID),
		domain.ActorSystem,
		map[string]string{"payment_id": session.PaymentID, "checkout_url": session.CheckoutURL})

	return session, nil
}

func (s *billingService) HandlePaymentWebhook(ctx context.Context, paymentID string) error {
	order, err := s.orders.GetOrderByPaymentID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("orders.GetOrderByPaymentID: %w", err)
	}

	outcome, providerState, err := s.gateway.PaymentOutcome(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("gateway.PaymentOutcome: %w", err)
	}

	logger := log.WithFields(log.Fields{
		"order_id":       order.ID,
		"payment_id":     paymentID,
		"provider_state": providerState,
	})

	switch outcome {
	case domain.PaymentOutcomePaid:
		settled, err := s.orders.SettleTerminal(ctx, order.ID, domain.OrderStatusPaid)
		if err != nil {
			return fmt.Errorf("orders.SettleTerminal: %w", err)
		}

		if settled {
			s.audit(ctx, order.ID, domain.ActionPaymentConfirmed,
				"payment confirmed by provider",
				domain.ActorSystem,
				map[string]string{"payment_id": paymentID, "provider_state": providerState})
		} else {
			logger.Info("duplicate payment confirmation, order already settled")
		}

		if !settled && order.Status == domain.OrderStatusWrittenOff {
			logger.Warn("payment confirmed for a written-off order, no receipt sent")
			return nil
		}

		// the receipt gate makes redeliveries no-ops
		if err := s.SendNotification(ctx, order.ID, domain.NotificationPaymentReceived, domain.ActorSystem); err != nil {
			return fmt.Errorf("SendNotification: %w", err)
		}

	case domain.PaymentOutcomeFailed:
		logger.Warn("payment failed, left for manual handling")

	case domain.PaymentOutcomePending:
		logger.Info("payment still pending")
	}

	return nil
}

func (s *billingService) SendNotification(ctx context.Context, orderID uuid.UUID, kind domain.NotificationKind, actor string) error {
	if actor == "" {
		return errors.New("actor is empty")
	}

	if _, err := domain.ToNotificationKind(string(kind)); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrInvalidState)
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("orders.GetOrder: %w", err)
	}

	if kind == domain.NotificationPaymentReceived {
		if order.Status != domain.OrderStatusPaid {
			return fmt.Errorf("order[%s] is %s, receipt requires paid: %w", orderID, order.Status, domain.ErrInvalidState)
		}
	} else if order.Status.Terminal() {
		return fmt.Errorf("order[%s] is %s: %w", orderID, order.Status, domain.ErrInvalidState)
	}

	claimed, err := s.orders.ClaimNotification(ctx, orderID, kind)
	if err != nil {
		return fmt.Errorf("orders.ClaimNotification: %w", err)
	}

	if !claimed {
		log.WithFields(log.Fields{"order_id": orderID, "kind": kind}).Info("notification already sent, skipping")
		return nil
	}

	messageID, err := s.sender.Send(ctx, order, kind)
	if err != nil {
		// release the claim so the next pass re-evaluates due-ness
		if releaseErr := s.orders.ReleaseNotification(ctx, orderID, kind); releaseErr != nil {
			err = errors.Join(err, fmt.Errorf("orders.ReleaseNotification: %w", releaseErr))
		}

		log.WithFields(log.Fields{"order_id": orderID, "kind": kind}).
			WithError(err).Error("email send failed")

		return fmt.Errorf("sender.Send: %w", err)
	}

	s.audit(ctx, orderID, domain.ActionEmailSent,
		fmt.Sprintf("%s email sent to %s", kind, order.CustomerEmail),
		actor,
		map[string]string{"kind": string(kind), "message_id": messageID})

	if next, ok := kind.StatusAfterSend(); ok && domain.CanTransition(order.Status, next) {
		swapped, err := s.orders.UpdateStatus(ctx, orderID, order.Status, next)
		if err != nil {
			return fmt.Errorf("orders.UpdateStatus: %w", err)
		}

		if swapped {
			s.audit(ctx, orderID, domain.ActionStatusChanged,
				fmt.Sprintf("status changed from %s to %s", order.Status, next),
				actor,
				map[string]string{"from": string(order.Status), "to": string(next)})
		}
	}

	return nil
}

func (s *billingService) WriteOff(ctx context.Context, orderID uuid.UUID, actor string) error {
	if actor == "" {
		return errors.New("actor is empty")
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("orders.GetOrder: %w", err)
	}

	settled, err := s.orders.SettleTerminal(ctx, orderID, domain.OrderStatusWrittenOff)
	if err != nil {
		return fmt.Errorf("orders.SettleTerminal: %w", err)
	}

	if !settled {
		return fmt.Errorf("order[%s] is already %s: %w", orderID, order.Status, domain.ErrInvalidState)
	}

	s.audit(ctx, orderID, domain.ActionStatusChanged,
		fmt.Sprintf("order written off from %s", order.Status),
		actor,
		map[string]string{"from": string(order.Status), "to": string(domain.OrderStatusWrittenOff)})

	return nil
}

func (s *billingService) RunReminderPass(ctx context.Context) error {
	open, err := s.orders.ListOpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("orders.ListOpenOrders: %w", err)
	}

	now := s.now()

	var failed int
	for _, order := range open {
		kind, ok := s.sched.DueAction(order, now)
		if !ok {
			continue
		}

		if err := s.SendNotification(ctx, order.ID, kind, domain.ActorSystem); err != nil {
			// logged inside SendNotification with order and kind context,
			// the gate is released so the next tick retries
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d scheduled notifications failed", failed)
	}

	return nil
}

// audit appends an entry; failures are logged, never fail the operation
// that already happened.
func (s *billingService) audit(ctx context.Context, orderID uuid.UUID, actionType domain.ActionType, description, actor string, metadata map[string]string) {
	var metadataJSON []byte
	if metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			log.WithError(err).WithField("order_id", orderID).Error("audit metadata marshal failed")
		}
	}

	_, err := s.actions.InsertAction(ctx, domain.OrderAction{
		OrderID:     orderID,
		Type:        actionType,
		Description: description,
		Actor:       actor,
		Metadata:    metadataJSON,
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"order_id":    orderID,
			"action_type": actionType,
		}).Error("audit append failed")
	}
}
