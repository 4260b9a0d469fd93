package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan represents a loan repaid in monthly instalments (EMI).
type Loan struct {
	ID                  int64           `json:"id"`
	UserID              int64           `json:"user_id"`
	LenderName          string          `json:"lender_name"`
	EMIAmount           decimal.Decimal `json:"emi_amount"`
	Outstanding         decimal.Decimal `json:"outstanding"`
	AutoDebit           bool            `json:"auto_debit"`
	EMIDate             int             `json:"emi_date"` // day of month, 1-31
	LinkedBankAccountID *int64          `json:"linked_bank_account_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// AutoDebitNote is the note written on expenses materialized for the loan.
func (l Loan) AutoDebitNote() string {
	return "Auto-Debit for Loan: " + l.LenderName
}
