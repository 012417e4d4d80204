package scheduler

import (
	"fmt"
	"time"

	"github.com/nikolayk812/billingflow/internal/domain"
)

// Offsets are the delays, measured from order creation, after which each
// scheduled notification becomes due. Values come from configuration, the
// accelerated test profile shrinks them to seconds.
type Offsets struct {
	Confirmation time.Duration
	Invoice      time.Duration
	Reminder1    time.Duration
	Reminder2    time.Duration
}

// scheduledKinds in dispatch order. payment_received is not scheduled, it
// is driven by payment reconciliation.
var scheduledKinds = []domain.NotificationKind{
	domain.NotificationConfirmation,
	domain.NotificationInvoice,
	domain.NotificationReminder1,
	domain.NotificationReminder2,
}

// Scheduler decides due-ness only; the trigger loop lives in Runner.
type Scheduler struct {
	offsets Offsets
}

func New(offsets Offsets) *Scheduler {
	return &Scheduler{offsets: offsets}
}

func (s *Scheduler) offset(kind domain.NotificationKind) (time.Duration, error) {
	switch kind {
	case domain.NotificationConfirmation:
		return s.offsets.Confirmation, nil
	case domain.NotificationInvoice:
		return s.offsets.Invoice, nil
	case domain.NotificationReminder1:
		return s.offsets.Reminder1, nil
	case domain.NotificationReminder2:
		return s.offsets.Reminder2, nil
	}

	return 0, fmt.Errorf("kind[%s] is not scheduled: %w", kind, domain.ErrInvalidState)
}

// DueAction returns the notification kind due for the order at now, if
// any. A kind is due iff the order is not terminal, its own gate is still
// unset, every earlier kind in the sequence has been sent, and its offset
// from creation has elapsed. At most one kind is returned per evaluation;
// the next pass picks up the following one.
func (s *Scheduler) DueAction(order domain.Order, now time.Time) (domain.NotificationKind, bool) {
	if order.Status.Terminal() {
		return "", false
	}

	for _, kind := range scheduledKinds {
		if order.SentAt(kind) != nil {
			continue
		}

		for _, predecessor := range kind.Predecessors() {
			if order.SentAt(predecessor) == nil {
				// an earlier kind is still unsent, nothing later may go out
				return "", false
			}
		}

		offset, err := s.offset(kind)
		if err != nil {
			return "", false
		}

		if now.Sub(order.CreatedAt) >= offset {
			return kind, true
		}

		return "", false
	}

	return "", false
}
