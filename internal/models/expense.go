package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod says how an expense was paid.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentBank       PaymentMethod = "bank"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentDebitCard, PaymentCreditCard, PaymentBank:
		return true
	}
	return false
}

// Recurrence values. Monthly rows are templates for the scheduler.
const (
	RecurrenceOneTime = "one-time"
	RecurrenceMonthly = "monthly"
)

// Expense sources. AI-derived drafts use tags with the "ai-" prefix.
const (
	SourceManual        = "manual"
	SourceAutoRecurring = "auto-recurring"
	SourceAutoDebit     = "auto-debit"
	SourceAIPrefix      = "ai-"
)

// ValidSource reports whether s is a known source tag.
func ValidSource(s string) bool {
	switch s {
	case SourceManual, SourceAutoRecurring, SourceAutoDebit:
		return true
	}
	return strings.HasPrefix(s, SourceAIPrefix) && len(s) > len(SourceAIPrefix)
}

// Expense is one financial event. Its routing fields decide which
// instruments it moves.
type Expense struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Category        string          `json:"category"`
	Merchant        string          `json:"merchant,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Source          string          `json:"source"`
	Confidence      *float64        `json:"confidence,omitempty"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	AccountID       *int64          `json:"account_id,omitempty"`
	CreditCardID    *int64          `json:"credit_card_id,omitempty"`
	ToBankAccountID *int64          `json:"to_bank_account_id,omitempty"`
	LoanID          *int64          `json:"loan_id,omitempty"`
	Recurrence      string          `json:"recurrence"`
	PeriodTag       string          `json:"period_tag"`
	Date            time.Time       `json:"date"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsTemplate reports whether the scheduler treats e as a monthly template.
func (e *Expense) IsTemplate() bool {
	return e.Recurrence == RecurrenceMonthly
}

// ExpenseDraft is the input for creating an expense. Date accepts
// YYYY-MM-DD or RFC 3339.
type ExpenseDraft struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Category        string          `json:"category"`
	Merchant        string          `json:"merchant"`
	Notes           string          `json:"notes"`
	Source          string          `json:"source"`
	Confidence      *float64        `json:"confidence"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	AccountID       *int64          `json:"account_id"`
	CreditCardID    *int64          `json:"credit_card_id"`
	ToBankAccountID *int64          `json:"to_bank_account_id"`
	LoanID          *int64          `json:"loan_id"`
	Recurrence      string          `json:"recurrence"`
	PeriodTag       string          `json:"period_tag"`
	Date            string          `json:"date"`
}

// ExpensePatch holds the fields an update changes. Nil pointers and unset
// NullableIDs keep the stored value.
type ExpensePatch struct {
	Amount          *decimal.Decimal `json:"amount"`
	Currency        *string          `json:"currency"`
	Category        *string          `json:"category"`
	Merchant        *string          `json:"merchant"`
	Notes           *string          `json:"notes"`
	Source          *string          `json:"source"`
	Confidence      *float64         `json:"confidence"`
	PaymentMethod   *PaymentMethod   `json:"payment_method"`
	AccountID       NullableID       `json:"account_id"`
	CreditCardID    NullableID       `json:"credit_card_id"`
	ToBankAccountID NullableID       `json:"to_bank_account_id"`
	LoanID          NullableID       `json:"loan_id"`
	Recurrence      *string          `json:"recurrence"`
	PeriodTag       *string          `json:"period_tag"`
	Date            *string          `json:"date"`
}
