package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/expense-ledger/internal/ledger"
	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/Dan9191/expense-ledger/internal/repository"
	"github.com/sirupsen/logrus"
)

// RunRecurringExpenses materializes this month's instance of every monthly
// template due today. Templates are processed one at a time and a failing
// template does not stop the others.
func (s *Scheduler) RunRecurringExpenses(ctx context.Context, now time.Time) (RunReport, error) {
	today := s.today(now)
	report := RunReport{Job: JobRecurringExpenses, Period: models.PeriodOf(today)}

	templates, err := s.repo.ListMonthlyTemplates(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load templates: %w", err)
	}

	for i := range templates {
		tpl := &templates[i]
		if !templateDue(tpl, today) {
			continue
		}
		report.Due++

		exp, err := s.materializeTemplate(ctx, tpl, today, report.Period)
		switch {
		case errors.Is(err, errAlreadyMaterialized):
			report.Skipped++
		case err != nil:
			f := Failure{SourceID: tpl.ID, UserID: tpl.UserID, Rule: ledger.Compute(tpl).Rule, Err: err}
			report.Failures = append(report.Failures, f)
			s.log.WithFields(logrus.Fields{
				"template_id": tpl.ID,
				"user_id":     tpl.UserID,
				"effect":      ledger.Compute(tpl).String(),
			}).Errorf("Failed to materialize recurring expense: %v", err)
		default:
			report.Materialized = append(report.Materialized, exp.ID)
			s.log.WithFields(logrus.Fields{
				"template_id": tpl.ID,
				"expense_id":  exp.ID,
				"user_id":     tpl.UserID,
			}).Info("Recurring expense materialized")
		}
	}
	return s.finish(report), nil
}

var errAlreadyMaterialized = errors.New("already materialized for period")

// templateDue reports whether tpl bills today. Templates dated after today
// have not started yet; the claim row keeps a template dated today from
// being charged twice.
func templateDue(tpl *models.Expense, today time.Time) bool {
	if !tpl.IsTemplate() || tpl.Date.Format(time.DateOnly) > today.Format(time.DateOnly) {
		return false
	}
	return dueOn(tpl.Date.Day(), today)
}

func (s *Scheduler) materializeTemplate(ctx context.Context, tpl *models.Expense, today time.Time, period string) (*models.Expense, error) {
	done, err := s.repo.MaterializationExists(ctx, tpl.UserID, models.SourceKindRecurringExpense, tpl.ID, period)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, errAlreadyMaterialized
	}

	draft := models.ExpenseDraft{
		Amount:          tpl.Amount,
		Currency:        tpl.Currency,
		Category:        tpl.Category,
		Merchant:        tpl.Merchant,
		Notes:           tpl.Notes,
		Source:          models.SourceAutoRecurring,
		PaymentMethod:   tpl.PaymentMethod,
		AccountID:       tpl.AccountID,
		CreditCardID:    tpl.CreditCardID,
		ToBankAccountID: tpl.ToBankAccountID,
		LoanID:          tpl.LoanID,
		Recurrence:      models.RecurrenceOneTime,
		PeriodTag:       period,
		Date:            today.Format("2006-01-02"),
	}
	exp, err := s.engine.CreateExpenseWith(ctx, tpl.UserID, draft, claim(models.SourceKindRecurringExpense, tpl.ID, period))
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, errAlreadyMaterialized
	}
	return exp, err
}
