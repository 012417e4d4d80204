package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActorSystem marks audit entries written by automation rather than an
// identified admin.
const ActorSystem = "system"

type ActionType string

// remember to add new types to the validActionTypes map
const (
	ActionEmailSent        ActionType = "email_sent"
	ActionStatusChanged    ActionType = "status_changed"
	ActionPaymentCreated   ActionType = "payment_created"
	ActionPaymentConfirmed ActionType = "payment_confirmed"
	ActionOrderCreated     ActionType = "order_created"
)

var validActionTypes = map[ActionType]struct{}{
	ActionEmailSent:        {},
	ActionStatusChanged:    {},
	ActionPaymentCreated:   {},
	ActionPaymentConfirmed: {},
	ActionOrderCreated:     {},
}

func ToActionType(s string) (ActionType, error) {
	t := ActionType(s)
	if _, ok := validActionTypes[t]; ok {
		return t, nil
	}

	return "", ErrInvalidState
}

// OrderAction is one immutable audit entry. Ordering by CreatedAt is the
// authoritative history of an order.
type OrderAction struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Type        ActionType
	Description string
	Actor       string
	Metadata    []byte

	CreatedAt time.Time
}
