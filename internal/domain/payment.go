package domain

// PaymentOutcome is the normalized interpretation of a provider payment
// state. Only Paid changes order state; Failed and Pending are surfaced
// for manual handling.
type PaymentOutcome string

const (
	PaymentOutcomePaid    PaymentOutcome = "paid"
	PaymentOutcomeFailed  PaymentOutcome = "failed"
	PaymentOutcomePending PaymentOutcome = "pending"
)
