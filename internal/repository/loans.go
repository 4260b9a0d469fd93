package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/expense-ledger/internal/models"
)

const loanColumns = `id, user_id, lender_name, emi_amount, outstanding, auto_debit, emi_date,
	linked_bank_account_id, created_at, updated_at`

func scanLoan(s scanner) (*models.Loan, error) {
	l := &models.Loan{}
	err := s.Scan(&l.ID, &l.UserID, &l.LenderName, &l.EMIAmount, &l.Outstanding, &l.AutoDebit,
		&l.EMIDate, &l.LinkedBankAccountID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// CreateLoan creates a new loan in the database
func (r *Repository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	ts := now()
	query := `
		INSERT INTO loans (user_id, lender_name, emi_amount, outstanding, auto_debit, emi_date,
			linked_bank_account_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	err := r.queryRow(ctx, query, loan.UserID, loan.LenderName, loan.EMIAmount, loan.Outstanding,
		loan.AutoDebit, loan.EMIDate, loan.LinkedBankAccountID, ts, ts).Scan(&loan.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to create loan: %w", ErrInstrumentNotFound)
		}
		return fmt.Errorf("failed to create loan: %w", err)
	}
	loan.CreatedAt, loan.UpdatedAt = ts, ts
	return nil
}

// GetLoan retrieves a loan owned by userID
func (c conn) GetLoan(ctx context.Context, id, userID int64) (*models.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = ? AND user_id = ?`
	l, err := scanLoan(c.queryRow(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find loan: %w", err)
	}
	return l, nil
}

// ListAutoDebitLoans returns loans with auto-debit on, a positive
// outstanding and a linked bank account, across all users. Outstanding is
// compared in Go since SQLite stores it as text.
func (c conn) ListAutoDebitLoans(ctx context.Context) ([]models.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans
		WHERE auto_debit = ? AND linked_bank_account_id IS NOT NULL
		ORDER BY id`
	rows, err := c.query(ctx, query, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-debit loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		if l.Outstanding.IsPositive() {
			loans = append(loans, *l)
		}
	}
	return loans, rows.Err()
}

// ListLoans returns all loans of a user
func (c conn) ListLoans(ctx context.Context, userID int64) ([]models.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = ? ORDER BY id`
	rows, err := c.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}
