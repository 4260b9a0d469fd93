package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types. Anything else is stored as given.
const (
	AccountTypeWallet  = "Wallet"
	AccountTypeSavings = "Savings"
	AccountTypeCurrent = "Current"
)

// BankAccount is a balance-bearing bank or wallet account.
// Balance may go negative; no overdraft guard is applied.
type BankAccount struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Name        string          `json:"name"`
	AccountType string          `json:"account_type"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
