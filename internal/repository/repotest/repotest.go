// Package repotest opens throwaway SQLite repositories for tests.
package repotest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/Dan9191/expense-ledger/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// New returns a migrated repository backed by a SQLite file in t.TempDir.
func New(t testing.TB) *repository.Repository {
	t.Helper()
	ctx := context.Background()

	db, err := repository.Open(ctx, repository.DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { db.Close() })

	repo, err := repository.NewRepository(db, repository.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(ctx), "failed to migrate test database")
	return repo
}

// Account creates a bank account with the given opening balance.
func Account(t testing.TB, repo *repository.Repository, userID int64, balance string) *models.BankAccount {
	t.Helper()
	a := &models.BankAccount{
		UserID:      userID,
		Name:        "Test account",
		AccountType: models.AccountTypeSavings,
		Balance:     decimal.RequireFromString(balance),
		Currency:    "USD",
	}
	require.NoError(t, repo.CreateAccount(context.Background(), a))
	return a
}

// Card creates a credit card with the given used amount.
func Card(t testing.TB, repo *repository.Repository, userID int64, used string) *models.CreditCard {
	t.Helper()
	c := &models.CreditCard{
		UserID:      userID,
		Name:        "Test card",
		CreditLimit: decimal.NewFromInt(5000),
		UsedAmount:  decimal.RequireFromString(used),
	}
	require.NoError(t, repo.CreateCreditCard(context.Background(), c))
	return c
}

// Balance reloads a bank account's balance.
func Balance(t testing.TB, repo *repository.Repository, a *models.BankAccount) decimal.Decimal {
	t.Helper()
	got, err := repo.GetAccount(context.Background(), a.ID, a.UserID)
	require.NoError(t, err)
	return got.Balance
}

// Used reloads a credit card's used amount.
func Used(t testing.TB, repo *repository.Repository, c *models.CreditCard) decimal.Decimal {
	t.Helper()
	got, err := repo.GetCreditCard(context.Background(), c.ID, c.UserID)
	require.NoError(t, err)
	return got.UsedAmount
}

// Outstanding reloads a loan's outstanding amount.
func Outstanding(t testing.TB, repo *repository.Repository, l *models.Loan) decimal.Decimal {
	t.Helper()
	got, err := repo.GetLoan(context.Background(), l.ID, l.UserID)
	require.NoError(t, err)
	return got.Outstanding
}
