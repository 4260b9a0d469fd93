package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditCard represents a credit card. UsedAmount is the owed balance,
// not the available credit.
type CreditCard struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Name        string          `json:"name"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	UsedAmount  decimal.Decimal `json:"used_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Available returns the remaining credit, which can be negative when the
// card is over its limit.
func (c CreditCard) Available() decimal.Decimal {
	return c.CreditLimit.Sub(c.UsedAmount)
}
