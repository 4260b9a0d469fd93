package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/expense-ledger/internal/config"
	"github.com/Dan9191/expense-ledger/internal/ledger"
	"github.com/Dan9191/expense-ledger/internal/middleware"
	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/Dan9191/expense-ledger/internal/repository"
	"github.com/sirupsen/logrus"
)

// ErrUnauthenticated is returned when the context carries no user.
var ErrUnauthenticated = errors.New("unauthenticated")

// Service handles business logic
type Service struct {
	repo   *repository.Repository
	engine *ledger.Engine
	log    *logrus.Logger
	config *config.Config
}

// NewService initializes a new service
func NewService(repo *repository.Repository, engine *ledger.Engine, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{repo: repo, engine: engine, log: log, config: cfg}
}

func userID(ctx context.Context) (int64, error) {
	id, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return id, nil
}

// CreateExpense records an expense for the authenticated user
func (s *Service) CreateExpense(ctx context.Context, draft models.ExpenseDraft) (*models.Expense, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.CreateExpense(ctx, uid, draft)
}

// UpdateExpense patches an expense of the authenticated user
func (s *Service) UpdateExpense(ctx context.Context, id int64, patch models.ExpensePatch) (*models.Expense, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.UpdateExpense(ctx, id, uid, patch)
}

// DeleteExpense removes an expense of the authenticated user
func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.engine.DeleteExpense(ctx, id, uid)
}

// GetExpense returns one expense of the authenticated user
func (s *Service) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	exp, err := s.repo.GetExpense(ctx, id, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &ledger.NotFoundError{ID: id}
	}
	return exp, err
}

// ListExpenses returns the authenticated user's expenses matching filter
func (s *Service) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	expenses, err := s.repo.ListExpenses(ctx, uid, filter)
	if err != nil {
		return nil, err
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	return expenses, nil
}

func validateFilter(f models.ExpenseFilter) error {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return &ledger.ValidationError{Field: "to", Reason: "is before from"}
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.Valid() {
		return &ledger.ValidationError{Field: "payment_method", Reason: fmt.Sprintf("unknown method %q", f.PaymentMethod)}
	}
	return nil
}
