package domain

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID            uuid.UUID
	CustomerName  string
	CustomerEmail string
	Amount        Money
	Status        OrderStatus

	// PaymentID is the provider-side payment reference,
	// nil until a payment attempt exists.
	PaymentID *string

	ConfirmationSentAt    *time.Time
	InvoiceSentAt         *time.Time
	Reminder1SentAt       *time.Time
	Reminder2SentAt       *time.Time
	PaymentReceivedSentAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SentAt returns the idempotency gate for the given notification kind.
// A non-nil value means that email has already gone out.
func (o Order) SentAt(kind NotificationKind) *time.Time {
	switch kind {
	case NotificationConfirmation:
		return o.ConfirmationSentAt
	case NotificationInvoice:
		return o.InvoiceSentAt
	case NotificationReminder1:
		return o.Reminder1SentAt
	case NotificationReminder2:
		return o.Reminder2SentAt
	case NotificationPaymentReceived:
		return o.PaymentReceivedSentAt
	}
	return nil
}
