package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/expense-ledger/internal/models"
)

const expenseColumns = `id, user_id, amount, currency, category, merchant, notes, source, confidence,
	payment_method, account_id, credit_card_id, to_bank_account_id, loan_id,
	recurrence, period_tag, date, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (*models.Expense, error) {
	e := &models.Expense{}
	var method string
	err := s.Scan(&e.ID, &e.UserID, &e.Amount, &e.Currency, &e.Category, &e.Merchant, &e.Notes,
		&e.Source, &e.Confidence, &method, &e.AccountID, &e.CreditCardID, &e.ToBankAccountID,
		&e.LoanID, &e.Recurrence, &e.PeriodTag, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.PaymentMethod = models.PaymentMethod(method)
	e.Date = e.Date.UTC()
	return e, nil
}

// InsertExpense stores a new expense and fills in its ID and timestamps
func (c conn) InsertExpense(ctx context.Context, e *models.Expense) error {
	ts := now()
	query := `
		INSERT INTO expenses (user_id, amount, currency, category, merchant, notes, source, confidence,
			payment_method, account_id, credit_card_id, to_bank_account_id, loan_id,
			recurrence, period_tag, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	err := c.queryRow(ctx, query, e.UserID, e.Amount, e.Currency, e.Category, e.Merchant, e.Notes,
		e.Source, e.Confidence, string(e.PaymentMethod), e.AccountID, e.CreditCardID, e.ToBankAccountID,
		e.LoanID, e.Recurrence, e.PeriodTag, e.Date, ts, ts).Scan(&e.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to insert expense: %w", ErrInstrumentNotFound)
		}
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	e.CreatedAt, e.UpdatedAt = ts, ts
	return nil
}

// GetExpense retrieves an expense owned by userID
func (c conn) GetExpense(ctx context.Context, id, userID int64) (*models.Expense, error) {
	return c.getExpense(ctx, id, userID, "")
}

// GetExpenseForUpdate retrieves an expense and locks its row until the
// transaction ends.
func (t *Tx) GetExpenseForUpdate(ctx context.Context, id, userID int64) (*models.Expense, error) {
	return t.getExpense(ctx, id, userID, t.d.forUpdate())
}

func (c conn) getExpense(ctx context.Context, id, userID int64, suffix string) (*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ? AND user_id = ?` + suffix
	e, err := scanExpense(c.queryRow(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// UpdateExpense overwrites every mutable column of an expense
func (c conn) UpdateExpense(ctx context.Context, e *models.Expense) error {
	ts := now()
	query := `
		UPDATE expenses SET amount = ?, currency = ?, category = ?, merchant = ?, notes = ?, source = ?,
			confidence = ?, payment_method = ?, account_id = ?, credit_card_id = ?, to_bank_account_id = ?,
			loan_id = ?, recurrence = ?, period_tag = ?, date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`
	res, err := c.exec(ctx, query, e.Amount, e.Currency, e.Category, e.Merchant, e.Notes, e.Source,
		e.Confidence, string(e.PaymentMethod), e.AccountID, e.CreditCardID, e.ToBankAccountID,
		e.LoanID, e.Recurrence, e.PeriodTag, e.Date, ts, e.ID, e.UserID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to update expense: %w", ErrInstrumentNotFound)
		}
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if err := expectOneRow(res, fmt.Sprintf("expense %d", e.ID)); err != nil {
		return err
	}
	e.UpdatedAt = ts
	return nil
}

// DeleteExpense removes an expense row
func (c conn) DeleteExpense(ctx context.Context, id, userID int64) error {
	res, err := c.exec(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("expense %d", id))
}

// ListExpenses returns a user's expenses matching filter, newest first
func (c conn) ListExpenses(ctx context.Context, userID int64, filter models.ExpenseFilter) ([]models.Expense, error) {
	where, args := expenseWhere(userID, filter)
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where + ` ORDER BY date DESC, id DESC`
	return c.listExpenses(ctx, query, args...)
}

// ListMonthlyTemplates returns every expense with monthly recurrence across all users
func (c conn) ListMonthlyTemplates(ctx context.Context) ([]models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE recurrence = ? ORDER BY id`
	return c.listExpenses(ctx, query, models.RecurrenceMonthly)
}

func (c conn) listExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func expenseWhere(userID int64, filter models.ExpenseFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}
	if !filter.From.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.To.UTC())
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.PaymentMethod != "" {
		clauses = append(clauses, "payment_method = ?")
		args = append(args, string(filter.PaymentMethod))
	}
	return strings.Join(clauses, " AND "), args
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
