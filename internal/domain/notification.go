package domain

import "errors"

// NotificationKind is one of the five automated billing emails.
type NotificationKind string

// remember to add new kinds to the validNotificationKinds map
const (
	NotificationConfirmation    NotificationKind = "confirmation"
	NotificationInvoice         NotificationKind = "invoice"
	NotificationReminder1       NotificationKind = "reminder_1"
	NotificationReminder2       NotificationKind = "reminder_2"
	NotificationPaymentReceived NotificationKind = "payment_received"
)

var validNotificationKinds = map[NotificationKind]struct{}{
	NotificationConfirmation:    {},
	NotificationInvoice:         {},
	NotificationReminder1:       {},
	NotificationReminder2:       {},
	NotificationPaymentReceived: {},
}

// billingSequence orders the scheduled kinds: a later kind is never due
// before all earlier ones have been sent. payment_received sits outside
// the sequence, it is driven by reconciliation, not by the scheduler.
var billingSequence = []NotificationKind{
	NotificationConfirmation,
	NotificationInvoice,
	NotificationReminder1,
	NotificationReminder2,
}

func ToNotificationKind(s string) (NotificationKind, error) {
	kind := NotificationKind(s)
	if _, ok := validNotificationKinds[kind]; ok {
		return kind, nil
	}

	return "", errors.New("invalid notification kind")
}

func NotificationKinds() []NotificationKind {
	result := make([]NotificationKind, 0, len(validNotificationKinds))
	for kind := range validNotificationKinds {
		result = append(result, kind)
	}
	return result
}

// Predecessors returns the kinds that must have been sent before k may go
// out, in sequence order. Empty for confirmation and payment_received.
func (k NotificationKind) Predecessors() []NotificationKind {
	for i, kind := range billingSequence {
		if kind == k {
			return billingSequence[:i]
		}
	}
	return nil
}

// StatusAfterSend returns the status an order advances to once the kind
// has been sent, or false for kinds that do not move the flow forward
// (payment_received: the webhook reconciliation already set paid).
func (k NotificationKind) StatusAfterSend() (OrderStatus, bool) {
	switch k {
	case NotificationConfirmation:
		return OrderStatusConfirmed, true
	case NotificationInvoice:
		return OrderStatusInvoiceSent, true
	case NotificationReminder1:
		return OrderStatusReminder1Sent, true
	case NotificationReminder2:
		return OrderStatusReminder2Sent, true
	}
	return "", false
}
