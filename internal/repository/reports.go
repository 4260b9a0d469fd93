package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/shopspring/decimal"
)

var groupColumns = map[string]string{
	"category":       "category",
	"payment_method": "payment_method",
}

// Amounts are summed in Go. SUM over SQLite's text amounts would run in
// floating point.

// SumExpenses returns the count and total of a user's expenses matching filter
func (c conn) SumExpenses(ctx context.Context, userID int64, filter models.ExpenseFilter) (int, decimal.Decimal, error) {
	where, args := expenseWhere(userID, filter)
	rows, err := c.query(ctx, `SELECT amount FROM expenses WHERE `+where, args...)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	defer rows.Close()

	count, total := 0, decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return 0, decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		count++
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return count, total, nil
}

// GroupExpenses totals a user's expenses matching filter by a column,
// either "category" or "payment_method". Groups are ordered by key.
func (c conn) GroupExpenses(ctx context.Context, userID int64, filter models.ExpenseFilter, by string) ([]models.GroupTotal, error) {
	column, ok := groupColumns[by]
	if !ok {
		return nil, fmt.Errorf("cannot group expenses by %q", by)
	}
	where, args := expenseWhere(userID, filter)
	query := `SELECT ` + column + `, amount FROM expenses WHERE ` + where + ` ORDER BY ` + column
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group expenses: %w", err)
	}
	defer rows.Close()

	var groups []models.GroupTotal
	for rows.Next() {
		var key string
		var amount decimal.Decimal
		if err := rows.Scan(&key, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		if n := len(groups); n == 0 || groups[n-1].Key != key {
			groups = append(groups, models.GroupTotal{Key: key, Total: decimal.Zero})
		}
		g := &groups[len(groups)-1]
		g.Count++
		g.Total = g.Total.Add(amount)
	}
	return groups, rows.Err()
}
