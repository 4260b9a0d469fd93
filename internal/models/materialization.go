package models

import "time"

// Materialization source kinds.
const (
	SourceKindRecurringExpense = "recurring-expense"
	SourceKindLoanAutoDebit    = "loan-auto-debit"
)

// Materialization records that a template or loan produced its instance for
// a billing period. (UserID, SourceKind, SourceID, Period) is unique.
type Materialization struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	SourceKind string    `json:"source_kind"`
	SourceID   int64     `json:"source_id"`
	Period     string    `json:"period"` // YYYY-MM
	ExpenseID  *int64    `json:"expense_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PeriodOf returns the billing period containing t.
func PeriodOf(t time.Time) string {
	return t.Format("2006-01")
}
