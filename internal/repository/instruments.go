package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// instrumentColumns maps an instrument kind to its table and balance column.
var instrumentColumns = map[models.InstrumentKind]struct{ table, column string }{
	models.InstrumentBankAccount: {"bank_accounts", "balance"},
	models.InstrumentCreditCard:  {"credit_cards", "used_amount"},
	models.InstrumentLoan:        {"loans", "outstanding"},
}

// LockInstrument verifies the instrument exists for userID and, on
// Postgres, holds its row lock until the transaction ends.
func (t *Tx) LockInstrument(ctx context.Context, userID int64, ref models.InstrumentRef) error {
	col, ok := instrumentColumns[ref.Kind]
	if !ok {
		return fmt.Errorf("unknown instrument kind %q", ref.Kind)
	}
	query := `SELECT id FROM ` + col.table + ` WHERE id = ? AND user_id = ?` + t.d.forUpdate()
	var id int64
	err := t.queryRow(ctx, query, ref.ID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", ref, ErrInstrumentNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", ref, err)
	}
	return nil
}

// AdjustInstrument adds delta to the instrument's balance column. The sum is
// computed with decimal arithmetic, never by the database, so SQLite's
// floating point cannot creep into balances. The caller must hold the row
// lock from LockInstrument.
func (t *Tx) AdjustInstrument(ctx context.Context, userID int64, ref models.InstrumentRef, delta decimal.Decimal) error {
	col, ok := instrumentColumns[ref.Kind]
	if !ok {
		return fmt.Errorf("unknown instrument kind %q", ref.Kind)
	}

	var current decimal.Decimal
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ? AND user_id = ?`, col.column, col.table) + t.d.forUpdate()
	err := t.queryRow(ctx, query, ref.ID, userID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", ref, ErrInstrumentNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ref, err)
	}

	update := fmt.Sprintf(`UPDATE %s SET %s = ?, updated_at = ? WHERE id = ? AND user_id = ?`, col.table, col.column)
	res, err := t.exec(ctx, update, current.Add(delta), now(), ref.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust %s: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", ref, ErrInstrumentNotFound)
	}
	return nil
}

// CreateAccount creates a new bank account in the database
func (r *Repository) CreateAccount(ctx context.Context, account *models.BankAccount) error {
	ts := now()
	query := `
		INSERT INTO bank_accounts (user_id, name, account_type, balance, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	err := r.queryRow(ctx, query, account.UserID, account.Name, account.AccountType, account.Balance,
		account.Currency, ts, ts).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	account.CreatedAt, account.UpdatedAt = ts, ts
	return nil
}

// GetAccount retrieves a bank account owned by userID
func (c conn) GetAccount(ctx context.Context, id, userID int64) (*models.BankAccount, error) {
	a := &models.BankAccount{}
	query := `
		SELECT id, user_id, name, account_type, balance, currency, created_at, updated_at
		FROM bank_accounts
		WHERE id = ? AND user_id = ?`
	err := c.queryRow(ctx, query, id, userID).
		Scan(&a.ID, &a.UserID, &a.Name, &a.AccountType, &a.Balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return a, nil
}

// ListAccounts returns all bank accounts of a user
func (r *Repository) ListAccounts(ctx context.Context, userID int64) ([]models.BankAccount, error) {
	query := `
		SELECT id, user_id, name, account_type, balance, currency, created_at, updated_at
		FROM bank_accounts
		WHERE user_id = ?
		ORDER BY id`
	rows, err := r.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.BankAccount
	for rows.Next() {
		var a models.BankAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.AccountType, &a.Balance, &a.Currency,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// CreateCreditCard creates a new credit card in the database
func (r *Repository) CreateCreditCard(ctx context.Context, card *models.CreditCard) error {
	ts := now()
	query := `
		INSERT INTO credit_cards (user_id, name, credit_limit, used_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`
	err := r.queryRow(ctx, query, card.UserID, card.Name, card.CreditLimit, card.UsedAmount, ts, ts).
		Scan(&card.ID)
	if err != nil {
		return fmt.Errorf("failed to create credit card: %w", err)
	}
	card.CreatedAt, card.UpdatedAt = ts, ts
	return nil
}

// GetCreditCard retrieves a credit card owned by userID
func (c conn) GetCreditCard(ctx context.Context, id, userID int64) (*models.CreditCard, error) {
	card := &models.CreditCard{}
	query := `
		SELECT id, user_id, name, credit_limit, used_amount, created_at, updated_at
		FROM credit_cards
		WHERE id = ? AND user_id = ?`
	err := c.queryRow(ctx, query, id, userID).
		Scan(&card.ID, &card.UserID, &card.Name, &card.CreditLimit, &card.UsedAmount, &card.CreatedAt, &card.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("credit card %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit card: %w", err)
	}
	return card, nil
}

// ListCreditCards returns all credit cards of a user
func (r *Repository) ListCreditCards(ctx context.Context, userID int64) ([]models.CreditCard, error) {
	query := `
		SELECT id, user_id, name, credit_limit, used_amount, created_at, updated_at
		FROM credit_cards
		WHERE user_id = ?
		ORDER BY id`
	rows, err := r.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []models.CreditCard
	for rows.Next() {
		var c models.CreditCard
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreditLimit, &c.UsedAmount,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credit card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}
