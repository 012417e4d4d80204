package domain

import "errors"

type OrderStatus string

// remember to add new statuses to the validOrderStatuses map
const (
	OrderStatusNew           OrderStatus = "new"
	OrderStatusConfirmed     OrderStatus = "confirmed"
	OrderStatusInvoiceSent   OrderStatus = "invoice_sent"
	OrderStatusReminder1Sent OrderStatus = "reminder_1_sent"
	OrderStatusReminder2Sent OrderStatus = "reminder_2_sent"
	OrderStatusPaid          OrderStatus = "paid"
	OrderStatusWrittenOff    OrderStatus = "written_off"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusNew:           {},
	OrderStatusConfirmed:     {},
	OrderStatusInvoiceSent:   {},
	OrderStatusReminder1Sent: {},
	OrderStatusReminder2Sent: {},
	OrderStatusPaid:          {},
	OrderStatusWrittenOff:    {},
}

// forwardSequence is the canonical billing flow. Terminal statuses are
// reachable from any of these but are not part of the sequence.
var forwardSequence = []OrderStatus{
	OrderStatusNew,
	OrderStatusConfirmed,
	OrderStatusInvoiceSent,
	OrderStatusReminder1Sent,
	OrderStatusReminder2Sent,
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}

	return "", errors.New("invalid order status")
}

func OrderStatuses() []OrderStatus {
	result := make([]OrderStatus, 0, len(validOrderStatuses))
	for status := range validOrderStatuses {
		result = append(result, status)
	}
	return result
}

// Terminal reports whether no further transitions are legal from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusWrittenOff
}

// CanTransition reports whether from -> to is a legal status change:
// either a jump from a non-terminal status to a terminal one, or a single
// step forward in the canonical sequence. Skipping forward steps is
// deliberately rejected, admin tooling relies on that to prevent status
// corruption.
func CanTransition(from, to OrderStatus) bool {
	if from.Terminal() {
		return false
	}

	if to.Terminal() {
		return true
	}

	next, ok := NextStatus(from)
	return ok && next == to
}

// NextStatus returns the immediate successor of from in the forward
// sequence, or false if from is the last step or terminal.
func NextStatus(from OrderStatus) (OrderStatus, bool) {
	for i, s := range forwardSequence {
		if s == from && i+1 < len(forwardSequence) {
			return forwardSequence[i+1], true
		}
	}
	return "", false
}
