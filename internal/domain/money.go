package domain

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// String renders the amount with two decimal places, the convention
// payment providers expect for minor-unit currencies.
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency.String()
}
