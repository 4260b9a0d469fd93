package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/expense-ledger/internal/ledger"
	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/Dan9191/expense-ledger/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LoanCategory is the category of auto-debit expenses.
const LoanCategory = "Loan EMI"

// RunLoanAutoDebits debits the linked account of every auto-debit loan
// whose EMI falls today. The expense carries the loan reference, so the
// outstanding decrement is part of its ledger effect and is reversed if the
// expense is edited or deleted.
func (s *Scheduler) RunLoanAutoDebits(ctx context.Context, now time.Time) (RunReport, error) {
	today := s.today(now)
	report := RunReport{Job: JobLoanAutoDebits, Period: models.PeriodOf(today)}

	loans, err := s.repo.ListAutoDebitLoans(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load loans: %w", err)
	}

	for i := range loans {
		loan := &loans[i]
		if !dueOn(loan.EMIDate, today) {
			continue
		}
		report.Due++

		exp, err := s.debitLoan(ctx, loan, today, report.Period)
		switch {
		case errors.Is(err, errAlreadyMaterialized):
			report.Skipped++
		case err != nil:
			report.Failures = append(report.Failures, Failure{SourceID: loan.ID, UserID: loan.UserID, Rule: ledger.RuleLoanRepayment, Err: err})
			s.log.WithFields(logrus.Fields{
				"loan_id":    loan.ID,
				"user_id":    loan.UserID,
				"account_id": loan.LinkedBankAccountID,
				"emi":        loan.EMIAmount.String(),
			}).Errorf("Failed to auto-debit loan: %v", err)
		default:
			report.Materialized = append(report.Materialized, exp.ID)
			s.log.WithFields(logrus.Fields{
				"loan_id":    loan.ID,
				"expense_id": exp.ID,
				"user_id":    loan.UserID,
				"amount":     exp.Amount.String(),
			}).Info("Loan auto-debit materialized")
			if s.notifier != nil {
				if err := s.notifier.SendAutoDebitNotice(*loan, exp); err != nil {
					s.log.Errorf("Failed to send auto-debit notice for loan %d: %v", loan.ID, err)
				}
			}
		}
	}
	return s.finish(report), nil
}

func (s *Scheduler) debitLoan(ctx context.Context, loan *models.Loan, today time.Time, period string) (*models.Expense, error) {
	done, err := s.repo.MaterializationExists(ctx, loan.UserID, models.SourceKindLoanAutoDebit, loan.ID, period)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, errAlreadyMaterialized
	}

	// The final instalment only clears what is left.
	amount := decimal.Min(loan.EMIAmount, loan.Outstanding)
	draft := models.ExpenseDraft{
		Amount:        amount,
		Category:      LoanCategory,
		Merchant:      loan.LenderName,
		Notes:         loan.AutoDebitNote(),
		Source:        models.SourceAutoDebit,
		PaymentMethod: models.PaymentBank,
		AccountID:     loan.LinkedBankAccountID,
		LoanID:        &loan.ID,
		Recurrence:    models.RecurrenceOneTime,
		PeriodTag:     period,
		Date:          today.Format("2006-01-02"),
	}
	exp, err := s.engine.CreateExpenseWith(ctx, loan.UserID, draft, claim(models.SourceKindLoanAutoDebit, loan.ID, period))
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, errAlreadyMaterialized
	}
	return exp, err
}
