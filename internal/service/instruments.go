package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/expense-ledger/internal/ledger"
	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/Dan9191/expense-ledger/internal/repository"
)

// CreateAccount opens a bank account for the authenticated user
func (s *Service) CreateAccount(ctx context.Context, account *models.BankAccount) (*models.BankAccount, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}

	account.Name = strings.TrimSpace(account.Name)
	if account.Name == "" {
		return nil, &ledger.ValidationError{Field: "name", Reason: "is required"}
	}
	if account.AccountType == "" {
		account.AccountType = models.AccountTypeSavings
	}
	account.Currency = strings.ToUpper(strings.TrimSpace(account.Currency))
	if account.Currency == "" {
		account.Currency = s.config.DefaultCurrency
	}
	if len(account.Currency) != 3 {
		return nil, &ledger.ValidationError{Field: "currency", Reason: "must be a 3-letter code"}
	}
	account.ID = 0
	account.UserID = uid

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Infof("Account created for user %d: %s (%s)", uid, account.Name, account.Currency)
	return account, nil
}

// GetAccount returns a bank account of the authenticated user
func (s *Service) GetAccount(ctx context.Context, id int64) (*models.BankAccount, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetAccount(ctx, id, uid)
}

// ListAccounts returns the authenticated user's bank accounts
func (s *Service) ListAccounts(ctx context.Context) ([]models.BankAccount, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.repo.ListAccounts(ctx, uid)
	if accounts == nil && err == nil {
		accounts = []models.BankAccount{}
	}
	return accounts, err
}

// CreateCreditCard opens a credit card for the authenticated user
func (s *Service) CreateCreditCard(ctx context.Context, card *models.CreditCard) (*models.CreditCard, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}

	card.Name = strings.TrimSpace(card.Name)
	if card.Name == "" {
		return nil, &ledger.ValidationError{Field: "name", Reason: "is required"}
	}
	if card.CreditLimit.IsNegative() {
		return nil, &ledger.ValidationError{Field: "credit_limit", Reason: "must not be negative"}
	}
	card.ID = 0
	card.UserID = uid

	if err := s.repo.CreateCreditCard(ctx, card); err != nil {
		return nil, err
	}

	s.log.Infof("Credit card created for user %d: %s", uid, card.Name)
	return card, nil
}

// GetCreditCard returns a credit card of the authenticated user
func (s *Service) GetCreditCard(ctx context.Context, id int64) (*models.CreditCard, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetCreditCard(ctx, id, uid)
}

// ListCreditCards returns the authenticated user's credit cards
func (s *Service) ListCreditCards(ctx context.Context) ([]models.CreditCard, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := s.repo.ListCreditCards(ctx, uid)
	if cards == nil && err == nil {
		cards = []models.CreditCard{}
	}
	return cards, err
}

// CreateLoan registers a loan for the authenticated user. An auto-debit
// loan needs a linked account the user owns.
func (s *Service) CreateLoan(ctx context.Context, loan *models.Loan) (*models.Loan, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}

	loan.LenderName = strings.TrimSpace(loan.LenderName)
	switch {
	case loan.LenderName == "":
		return nil, &ledger.ValidationError{Field: "lender_name", Reason: "is required"}
	case !loan.EMIAmount.IsPositive():
		return nil, &ledger.ValidationError{Field: "emi_amount", Reason: "must be positive"}
	case loan.Outstanding.IsNegative():
		return nil, &ledger.ValidationError{Field: "outstanding", Reason: "must not be negative"}
	case loan.EMIDate < 1 || loan.EMIDate > 31:
		return nil, &ledger.ValidationError{Field: "emi_date", Reason: "must be a day of month between 1 and 31"}
	case loan.AutoDebit && loan.LinkedBankAccountID == nil:
		return nil, &ledger.ValidationError{Field: "linked_bank_account_id", Reason: "is required for auto-debit"}
	}
	if loan.LinkedBankAccountID != nil {
		if _, err := s.repo.GetAccount(ctx, *loan.LinkedBankAccountID, uid); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("linked %w", repository.ErrInstrumentNotFound)
			}
			return nil, err
		}
	}
	loan.ID = 0
	loan.UserID = uid

	if err := s.repo.CreateLoan(ctx, loan); err != nil {
		return nil, err
	}

	s.log.Infof("Loan created for user %d: %s, EMI %s on day %d", uid, loan.LenderName, loan.EMIAmount, loan.EMIDate)
	return loan, nil
}

// GetLoan returns a loan of the authenticated user
func (s *Service) GetLoan(ctx context.Context, id int64) (*models.Loan, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetLoan(ctx, id, uid)
}

// ListLoans returns the authenticated user's loans
func (s *Service) ListLoans(ctx context.Context) ([]models.Loan, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	loans, err := s.repo.ListLoans(ctx, uid)
	if loans == nil && err == nil {
		loans = []models.Loan{}
	}
	return loans, err
}
