package service

import (
	"context"

	"github.com/Dan9191/expense-ledger/internal/models"
)

// Summary totals the authenticated user's expenses in filter's range, overall
// and by category and payment method.
func (s *Service) Summary(ctx context.Context, filter models.ExpenseFilter) (*models.ExpenseSummary, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	summary := &models.ExpenseSummary{From: filter.From, To: filter.To}
	summary.Count, summary.Total, err = s.repo.SumExpenses(ctx, uid, filter)
	if err != nil {
		return nil, err
	}
	if summary.ByCategory, err = s.repo.GroupExpenses(ctx, uid, filter, "category"); err != nil {
		return nil, err
	}
	if summary.ByPaymentMethod, err = s.repo.GroupExpenses(ctx, uid, filter, "payment_method"); err != nil {
		return nil, err
	}

	s.log.Debugf("Summary for user %d: %d expenses, total %s", uid, summary.Count, summary.Total)
	return summary, nil
}
