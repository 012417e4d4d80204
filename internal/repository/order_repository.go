package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nikolayk812/billingflow/internal/domain"
	"github.com/nikolayk812/billingflow/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	ErrNotFound = fmt.Errorf("order %w", domain.ErrNotFound)
)

const orderColumns = `id, customer_name, customer_email, amount::text, currency, status, payment_id,
	confirmation_sent_at, invoice_sent_at, reminder_1_sent_at, reminder_2_sent_at, payment_received_sent_at,
	created_at, updated_at`

type orderRepository struct {
	db DBTX
}

func NewOrder(db DBTX) (port.OrderRepository, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}

	return &orderRepository{db: db}, nil
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var o domain.Order

	if orderID == uuid.Nil {
		return o, fmt.Errorf("orderID is empty")
	}

	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, ErrNotFound
		}
		return o, fmt.Errorf("scanOrder: %w", err)
	}

	return o, nil
}

func (r *orderRepository) GetOrderByPaymentID(ctx context.Context, paymentID string) (domain.Order, error) {
	var o domain.Order

	if paymentID == "" {
		return o, fmt.Errorf("paymentID is empty")
	}

	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_id = $1`, paymentID)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, ErrNotFound
		}
		return o, fmt.Errorf("scanOrder: %w", err)
	}

	return o, nil
}

func (r *orderRepository) ListOpenOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status NOT IN ('paid', 'written_off') ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanOrder: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error) {
	if order.CustomerEmail == "" {
		return uuid.Nil, errors.New("customer email is empty")
	}

	if order.CustomerName == "" {
		return uuid.Nil, errors.New("customer name is empty")
	}

	status := order.Status
	if status == "" {
		status = domain.OrderStatusNew
	}

	var orderID uuid.UUID

	err := r.db.QueryRow(ctx,
		`INSERT INTO orders (customer_name, customer_email, amount, currency, status)
		 VALUES ($1, $2, $3::numeric, $4, $5)
		 RETURNING id`,
		order.CustomerName, order.CustomerEmail,
		order.Amount.Amount.String(), order.Amount.Currency.String(), string(status),
	).Scan(&orderID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("db.QueryRow: %w", err)
	}

	return orderID, nil
}

func (r *orderRepository) ClaimNotification(ctx context.Context, orderID uuid.UUID, kind domain.NotificationKind) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}

	col, err := notificationColumn(kind)
	if err != nil {
		return false, err
	}

	// payment_received only goes out for paid orders; the scheduled kinds
	// only while the order is still open.
	guard := `status NOT IN ('paid', 'written_off')`
	if kind == domain.NotificationPaymentReceived {
		guard = `status = 'paid'`
	}

	query := fmt.Sprintf(
		`UPDATE orders SET %[1]s = now(), updated_at = now() WHERE id = $1 AND %[1]s IS NULL AND %[2]s`,
		col, guard)

	cmdTag, err := r.db.Exec(ctx, query, orderID)
	if err != nil {
		return false, fmt.Errorf("db.Exec: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *orderRepository) ReleaseNotification(ctx context.Context, orderID uuid.UUID, kind domain.NotificationKind) error {
	if orderID == uuid.Nil {
		return fmt.Errorf("orderID is empty")
	}

	col, err := notificationColumn(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE orders SET %s = NULL, updated_at = now() WHERE id = $1`, col)

	cmdTag, err := r.db.Exec(ctx, query, orderID)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}

	if from == "" || to == "" {
		return false, errors.New("status is empty")
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		orderID, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("db.Exec: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *orderRepository) SettleTerminal(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}

	if !to.Terminal() {
		return false, fmt.Errorf("status[%s] is not terminal: %w", to, domain.ErrInvalidState)
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now()
		 WHERE id = $1 AND status NOT IN ('paid', 'written_off')`,
		orderID, string(to))
	if err != nil {
		return false, fmt.Errorf("db.Exec: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *orderRepository) SetPaymentID(ctx context.Context, orderID uuid.UUID, paymentID string) error {
	if orderID == uuid.Nil {
		return fmt.Errorf("orderID is empty")
	}

	if paymentID == "" {
		return fmt.Errorf("paymentID is empty")
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET payment_id = $2, updated_at = now() WHERE id = $1`,
		orderID, paymentID)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// notificationColumn maps a kind to its sent-at column. The returned name
// is interpolated into SQL, which is safe because the switch is exhaustive
// over the enum.
func notificationColumn(kind domain.NotificationKind) (string, error) {
	switch kind {
	case domain.NotificationConfirmation:
		return "confirmation_sent_at", nil
	case domain.NotificationInvoice:
		return "invoice_sent_at", nil
	case domain.NotificationReminder1:
		return "reminder_1_sent_at", nil
	case domain.NotificationReminder2:
		return "reminder_2_sent_at", nil
	case domain.NotificationPaymentReceived:
		return "payment_received_sent_at", nil
	}

	return "", fmt.Errorf("notification kind[%s]: %w", kind, domain.ErrInvalidState)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (domain.Order, error) {
	var (
		o           domain.Order
		amountStr   string
		currencyStr string
		statusStr   string
	)

	err := row.Scan(
		&o.ID, &o.CustomerName, &o.CustomerEmail, &amountStr, &currencyStr, &statusStr, &o.PaymentID,
		&o.ConfirmationSentAt, &o.InvoiceSentAt, &o.Reminder1SentAt, &o.Reminder2SentAt, &o.PaymentReceivedSentAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return o, fmt.Errorf("amount[%s] is not valid: %w", amountStr, err)
	}

	parsedCurrency, err := currency.ParseISO(currencyStr)
	if err != nil {
		return o, fmt.Errorf("currency[%s] is not valid: %w", currencyStr, err)
	}

	status, err := domain.ToOrderStatus(statusStr)
	if err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", statusStr, err)
	}

	o.Amount = domain.Money{Amount: amount, Currency: parsedCurrency}
	o.Status = status

	return o, nil
}
