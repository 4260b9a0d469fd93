package repository

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS bank_accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		account_type TEXT NOT NULL,
		balance NUMERIC NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credit_cards (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		credit_limit NUMERIC NOT NULL DEFAULT 0,
		used_amount NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		lender_name TEXT NOT NULL,
		emi_amount NUMERIC NOT NULL CHECK (emi_amount > 0),
		outstanding NUMERIC NOT NULL,
		auto_debit BOOLEAN NOT NULL DEFAULT FALSE,
		emi_date SMALLINT NOT NULL CHECK (emi_date BETWEEN 1 AND 31),
		linked_bank_account_id BIGINT REFERENCES bank_accounts(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		amount NUMERIC NOT NULL CHECK (amount > 0),
		currency TEXT NOT NULL,
		category TEXT NOT NULL,
		merchant TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		confidence DOUBLE PRECISION,
		payment_method TEXT NOT NULL,
		account_id BIGINT REFERENCES bank_accounts(id),
		credit_card_id BIGINT REFERENCES credit_cards(id),
		to_bank_account_id BIGINT REFERENCES bank_accounts(id),
		loan_id BIGINT REFERENCES loans(id),
		recurrence TEXT NOT NULL,
		period_tag TEXT NOT NULL,
		date DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_recurrence ON expenses(recurrence)`,
	`CREATE TABLE IF NOT EXISTS materializations (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		source_kind TEXT NOT NULL,
		source_id BIGINT NOT NULL,
		period TEXT NOT NULL,
		expense_id BIGINT REFERENCES expenses(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, source_kind, source_id, period)
	)`,
}

// SQLite has no exact decimal type; money is stored as decimal text and
// only ever added up in Go.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS bank_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		account_type TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credit_cards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		credit_limit TEXT NOT NULL DEFAULT '0',
		used_amount TEXT NOT NULL DEFAULT '0',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		lender_name TEXT NOT NULL,
		emi_amount TEXT NOT NULL CHECK (CAST(emi_amount AS REAL) > 0),
		outstanding TEXT NOT NULL,
		auto_debit BOOLEAN NOT NULL DEFAULT 0,
		emi_date INTEGER NOT NULL CHECK (emi_date BETWEEN 1 AND 31),
		linked_bank_account_id INTEGER REFERENCES bank_accounts(id),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		amount TEXT NOT NULL CHECK (CAST(amount AS REAL) > 0),
		currency TEXT NOT NULL,
		category TEXT NOT NULL,
		merchant TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		confidence REAL,
		payment_method TEXT NOT NULL,
		account_id INTEGER REFERENCES bank_accounts(id),
		credit_card_id INTEGER REFERENCES credit_cards(id),
		to_bank_account_id INTEGER REFERENCES bank_accounts(id),
		loan_id INTEGER REFERENCES loans(id),
		recurrence TEXT NOT NULL,
		period_tag TEXT NOT NULL,
		date DATE NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_recurrence ON expenses(recurrence)`,
	`CREATE TABLE IF NOT EXISTS materializations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		source_kind TEXT NOT NULL,
		source_id INTEGER NOT NULL,
		period TEXT NOT NULL,
		expense_id INTEGER REFERENCES expenses(id) ON DELETE SET NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (user_id, source_kind, source_id, period)
	)`,
}

// Migrate creates the schema if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if r.d.driver == DriverPostgres {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
