package ledger

import (
	"errors"
	"fmt"

	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/Dan9191/expense-ledger/internal/repository"
)

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("expense not found")

// ValidationError reports malformed input. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an expense that does not exist or belongs to
// another user. Nothing was written.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("expense %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError reports a transaction that did not commit. The record
// change and its balance deltas were rolled back together.
type PersistenceError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *PersistenceError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("%s expense: %v (retryable)", e.Op, e.Err)
	}
	return fmt.Sprintf("%s expense: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IntegrityWarning describes an expense whose routing matched no effect
// rule. The expense is stored with zero balance effect.
type IntegrityWarning struct {
	Op            string
	ExpenseID     int64
	UserID        int64
	PaymentMethod models.PaymentMethod
	Reason        string
}

func (w IntegrityWarning) Error() string {
	return fmt.Sprintf("expense %d (%s) has no balance effect: %s", w.ExpenseID, w.PaymentMethod, w.Reason)
}

// persistenceError wraps a transaction failure unless it already carries a
// ledger error type.
func persistenceError(op string, err error) error {
	var ve *ValidationError
	var nf *NotFoundError
	var pe *PersistenceError
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err, Retryable: repository.IsRetryable(err)}
}
