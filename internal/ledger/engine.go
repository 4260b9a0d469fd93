// Package ledger keeps expense records and the instrument balances they
// imply consistent. Every write runs in one database transaction that locks
// the touched instruments, writes the record and applies its effect; an
// update reverses the stored effect before applying the new one.
package ledger

import (
	"context"
	"errors"

	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/Dan9191/expense-ledger/internal/repository"
	"github.com/sirupsen/logrus"
)

// AfterCreate runs inside the creating transaction once the expense row and
// its effect are written. Returning an error rolls everything back.
type AfterCreate func(ctx context.Context, tx *repository.Tx, exp *models.Expense) error

// Engine is the only writer of expenses and instrument balances.
type Engine struct {
	repo            *repository.Repository
	log             *logrus.Logger
	defaultCurrency string
	onWarning       func(IntegrityWarning)
}

// Option configures an Engine
type Option func(*Engine)

// WithDefaultCurrency sets the currency used when a draft has none.
func WithDefaultCurrency(currency string) Option {
	return func(e *Engine) { e.defaultCurrency = currency }
}

// WithWarningHook registers fn to receive integrity warnings after commit.
func WithWarningHook(fn func(IntegrityWarning)) Option {
	return func(e *Engine) { e.onWarning = fn }
}

// NewEngine initializes a new ledger engine
func NewEngine(repo *repository.Repository, log *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{repo: repo, log: log, defaultCurrency: "USD"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateExpense validates draft, stores it and applies its effect atomically.
func (e *Engine) CreateExpense(ctx context.Context, userID int64, draft models.ExpenseDraft) (*models.Expense, error) {
	return e.CreateExpenseWith(ctx, userID, draft, nil)
}

// CreateExpenseWith is CreateExpense with a hook run in the same transaction.
func (e *Engine) CreateExpenseWith(ctx context.Context, userID int64, draft models.ExpenseDraft, after AfterCreate) (*models.Expense, error) {
	exp, err := e.newExpense(userID, draft)
	if err != nil {
		return nil, err
	}
	eff := Compute(exp)

	err = e.repo.WithinTx(ctx, func(tx *repository.Tx) error {
		if err := lock(ctx, tx, userID, eff); err != nil {
			return err
		}
		if err := tx.InsertExpense(ctx, exp); err != nil {
			return err
		}
		if err := apply(ctx, tx, userID, eff); err != nil {
			return err
		}
		if after != nil {
			return after(ctx, tx, exp)
		}
		return nil
	})
	if err != nil {
		entry := e.log.WithFields(logrus.Fields{
			"user_id": userID,
			"effect":  eff.String(),
		})
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent run already claimed this instance.
			entry.Debugf("Expense not created: %v", err)
		} else {
			entry.Errorf("Failed to create expense: %v", err)
		}
		return nil, persistenceError("create", err)
	}

	e.warnIfUnrecognized("create", exp, eff)
	e.log.WithFields(logrus.Fields{
		"expense_id": exp.ID,
		"user_id":    userID,
		"effect":     eff.String(),
	}).Info("Expense created")
	return exp, nil
}

// UpdateExpense reverses the stored expense's effect, writes the patched
// record and applies the new effect, all in one transaction.
func (e *Engine) UpdateExpense(ctx context.Context, id, userID int64, patch models.ExpensePatch) (*models.Expense, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var updated *models.Expense
	var before, after Effect
	err := e.repo.WithinTx(ctx, func(tx *repository.Tx) error {
		existing, err := loadForUpdate(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		merged, err := merge(existing, patch)
		if err != nil {
			return err
		}
		before, after = Compute(existing), Compute(merged)

		if err := lock(ctx, tx, userID, before, after); err != nil {
			return err
		}
		if err := apply(ctx, tx, userID, before.Negate()); err != nil {
			return err
		}
		if err := tx.UpdateExpense(ctx, merged); err != nil {
			return err
		}
		if err := apply(ctx, tx, userID, after); err != nil {
			return err
		}
		updated = merged
		return nil
	})
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"expense_id": id,
			"user_id":    userID,
			"reversed":   before.String(),
			"applied":    after.String(),
		}).Errorf("Failed to update expense: %v", err)
		return nil, persistenceError("update", err)
	}

	e.warnIfUnrecognized("update", updated, after)
	e.log.WithFields(logrus.Fields{
		"expense_id": id,
		"user_id":    userID,
		"reversed":   before.String(),
		"applied":    after.String(),
	}).Info("Expense updated")
	return updated, nil
}

// DeleteExpense reverses the expense's effect and removes it atomically.
func (e *Engine) DeleteExpense(ctx context.Context, id, userID int64) error {
	var reversed Effect
	err := e.repo.WithinTx(ctx, func(tx *repository.Tx) error {
		existing, err := loadForUpdate(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		reversed = Compute(existing).Negate()
		if err := lock(ctx, tx, userID, reversed); err != nil {
			return err
		}
		if err := apply(ctx, tx, userID, reversed); err != nil {
			return err
		}
		return tx.DeleteExpense(ctx, id, userID)
	})
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"expense_id": id,
			"user_id":    userID,
		}).Errorf("Failed to delete expense: %v", err)
		return persistenceError("delete", err)
	}

	e.log.WithFields(logrus.Fields{
		"expense_id": id,
		"user_id":    userID,
		"reversed":   reversed.String(),
	}).Info("Expense deleted")
	return nil
}

func loadForUpdate(ctx context.Context, tx *repository.Tx, id, userID int64) (*models.Expense, error) {
	existing, err := tx.GetExpenseForUpdate(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	return existing, err
}

// lock takes row locks on every instrument of the given effects in a fixed
// order, failing if any instrument is missing.
func lock(ctx context.Context, tx *repository.Tx, userID int64, effects ...Effect) error {
	for _, ref := range lockOrder(effects...) {
		if err := tx.LockInstrument(ctx, userID, ref); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, tx *repository.Tx, userID int64, eff Effect) error {
	for _, d := range eff.Deltas {
		if err := tx.AdjustInstrument(ctx, userID, d.Ref, d.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) warnIfUnrecognized(op string, exp *models.Expense, eff Effect) {
	if eff.Recognized() {
		return
	}
	w := IntegrityWarning{
		Op:            op,
		ExpenseID:     exp.ID,
		UserID:        exp.UserID,
		PaymentMethod: exp.PaymentMethod,
		Reason:        eff.Reason,
	}
	e.log.WithFields(logrus.Fields{
		"expense_id":         exp.ID,
		"user_id":            exp.UserID,
		"payment_method":     exp.PaymentMethod,
		"account_id":         exp.AccountID,
		"credit_card_id":     exp.CreditCardID,
		"to_bank_account_id": exp.ToBankAccountID,
		"loan_id":            exp.LoanID,
	}).Warnf("Integrity warning: %s", w.Error())
	if e.onWarning != nil {
		e.onWarning(w)
	}
}
