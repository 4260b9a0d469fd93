package ledger

import (
	"strings"
	"time"

	"github.com/Dan9191/expense-ledger/internal/models"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseDate parses YYYY-MM-DD or RFC 3339 and returns the calendar date at
// UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ValidationError{Field: "date", Reason: "is required"}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civilDate(t), nil
		}
	}
	return time.Time{}, &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD or RFC 3339"}
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// newExpense validates a draft and builds the row to insert.
func (e *Engine) newExpense(userID int64, d models.ExpenseDraft) (*models.Expense, error) {
	if userID <= 0 {
		return nil, &ValidationError{Field: "user_id", Reason: "must be positive"}
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return nil, err
	}
	exp := &models.Expense{
		UserID:          userID,
		Amount:          d.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(d.Currency)),
		Category:        strings.TrimSpace(d.Category),
		Merchant:        strings.TrimSpace(d.Merchant),
		Notes:           strings.TrimSpace(d.Notes),
		Source:          d.Source,
		Confidence:      d.Confidence,
		PaymentMethod:   d.PaymentMethod,
		AccountID:       d.AccountID,
		CreditCardID:    d.CreditCardID,
		ToBankAccountID: d.ToBankAccountID,
		LoanID:          d.LoanID,
		Recurrence:      d.Recurrence,
		PeriodTag:       strings.TrimSpace(d.PeriodTag),
		Date:            date,
	}
	if exp.Currency == "" {
		exp.Currency = e.defaultCurrency
	}
	if exp.Source == "" {
		exp.Source = models.SourceManual
	}
	if exp.Recurrence == "" {
		exp.Recurrence = models.RecurrenceOneTime
	}
	if exp.PeriodTag == "" {
		exp.PeriodTag = models.PeriodOf(date)
	}
	dropIgnoredRouting(exp)
	if err := validateExpense(exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// validatePatch checks the fields a patch sets before any transaction starts.
func validatePatch(p models.ExpensePatch) error {
	if p.Amount != nil && !p.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if p.Date != nil {
		if _, err := ParseDate(*p.Date); err != nil {
			return err
		}
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return &ValidationError{Field: "category", Reason: "is required"}
	}
	if p.Currency != nil && strings.TrimSpace(*p.Currency) == "" {
		return &ValidationError{Field: "currency", Reason: "is required"}
	}
	if p.PaymentMethod != nil && !p.PaymentMethod.Valid() {
		return &ValidationError{Field: "payment_method", Reason: "unknown payment method " + string(*p.PaymentMethod)}
	}
	if p.Source != nil && !models.ValidSource(*p.Source) {
		return &ValidationError{Field: "source", Reason: "unknown source " + *p.Source}
	}
	if p.Recurrence != nil && !validRecurrence(*p.Recurrence) {
		return &ValidationError{Field: "recurrence", Reason: "unknown recurrence " + *p.Recurrence}
	}
	if p.Confidence != nil && (*p.Confidence < 0 || *p.Confidence > 1) {
		return &ValidationError{Field: "confidence", Reason: "must be between 0 and 1"}
	}
	return nil
}

// merge applies a validated patch to a copy of existing.
func merge(existing *models.Expense, p models.ExpensePatch) (*models.Expense, error) {
	out := *existing
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.Currency != nil {
		out.Currency = strings.ToUpper(strings.TrimSpace(*p.Currency))
	}
	if p.Category != nil {
		out.Category = strings.TrimSpace(*p.Category)
	}
	if p.Merchant != nil {
		out.Merchant = strings.TrimSpace(*p.Merchant)
	}
	if p.Notes != nil {
		out.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Source != nil {
		out.Source = *p.Source
	}
	if p.Confidence != nil {
		out.Confidence = p.Confidence
	}
	if p.PaymentMethod != nil {
		out.PaymentMethod = *p.PaymentMethod
	}
	out.AccountID = p.AccountID.Apply(existing.AccountID)
	out.CreditCardID = p.CreditCardID.Apply(existing.CreditCardID)
	out.ToBankAccountID = p.ToBankAccountID.Apply(existing.ToBankAccountID)
	out.LoanID = p.LoanID.Apply(existing.LoanID)
	if out.PaymentMethod != existing.PaymentMethod {
		// Only the source account carries over to a new payment method.
		// Cards, transfer targets and loans must be named again.
		if !p.CreditCardID.Set {
			out.CreditCardID = nil
		}
		if !p.ToBankAccountID.Set {
			out.ToBankAccountID = nil
		}
		if !p.LoanID.Set {
			out.LoanID = nil
		}
	}
	dropIgnoredRouting(&out)
	if p.Recurrence != nil {
		out.Recurrence = *p.Recurrence
	}
	if p.Date != nil {
		date, err := ParseDate(*p.Date)
		if err != nil {
			return nil, err
		}
		out.Date = date
		// A period tag that followed the old date follows the new one.
		if p.PeriodTag == nil && existing.PeriodTag == models.PeriodOf(existing.Date) {
			out.PeriodTag = models.PeriodOf(date)
		}
	}
	if p.PeriodTag != nil {
		out.PeriodTag = strings.TrimSpace(*p.PeriodTag)
		if out.PeriodTag == "" {
			out.PeriodTag = models.PeriodOf(out.Date)
		}
	}
	if err := validateExpense(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// dropIgnoredRouting clears the routing fields e's payment method never
// reads, so they cannot resurface after a later method change.
func dropIgnoredRouting(e *models.Expense) {
	switch e.PaymentMethod {
	case models.PaymentCash, models.PaymentDebitCard:
		e.CreditCardID, e.ToBankAccountID, e.LoanID = nil, nil, nil
	case models.PaymentCreditCard:
		e.AccountID, e.ToBankAccountID, e.LoanID = nil, nil, nil
	}
}

func validateExpense(e *models.Expense) error {
	switch {
	case !e.Amount.IsPositive():
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	case e.Currency == "":
		return &ValidationError{Field: "currency", Reason: "is required"}
	case e.Category == "":
		return &ValidationError{Field: "category", Reason: "is required"}
	case e.PaymentMethod == "":
		return &ValidationError{Field: "payment_method", Reason: "is required"}
	case !e.PaymentMethod.Valid():
		return &ValidationError{Field: "payment_method", Reason: "unknown payment method " + string(e.PaymentMethod)}
	case !models.ValidSource(e.Source):
		return &ValidationError{Field: "source", Reason: "unknown source " + e.Source}
	case !validRecurrence(e.Recurrence):
		return &ValidationError{Field: "recurrence", Reason: "unknown recurrence " + e.Recurrence}
	case e.Confidence != nil && (*e.Confidence < 0 || *e.Confidence > 1):
		return &ValidationError{Field: "confidence", Reason: "must be between 0 and 1"}
	case e.Date.IsZero():
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	for field, id := range map[string]*int64{
		"account_id":         e.AccountID,
		"credit_card_id":     e.CreditCardID,
		"to_bank_account_id": e.ToBankAccountID,
		"loan_id":            e.LoanID,
	} {
		if id != nil && *id <= 0 {
			return &ValidationError{Field: field, Reason: "must be positive"}
		}
	}
	return nil
}

func validRecurrence(r string) bool {
	return r == models.RecurrenceOneTime || r == models.RecurrenceMonthly
}

