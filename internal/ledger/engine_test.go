package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Dan9191/expense-ledger/internal/ledger"
	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/Dan9191/expense-ledger/internal/repository"
	"github.com/Dan9191/expense-ledger/internal/repository/repotest"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const userID int64 = 1

type EngineTestSuite struct {
	suite.Suite
	repo     *repository.Repository
	engine   *ledger.Engine
	logs     *logtest.Hook
	warnings []ledger.IntegrityWarning
	ctx      context.Context
}

func (suite *EngineTestSuite) SetupTest() {
	suite.repo = repotest.New(suite.T())
	logger, hook := logtest.NewNullLogger()
	suite.logs = hook
	suite.warnings = nil
	suite.engine = ledger.NewEngine(suite.repo, logger,
		ledger.WithDefaultCurrency("USD"),
		ledger.WithWarningHook(func(w ledger.IntegrityWarning) { suite.warnings = append(suite.warnings, w) }),
	)
	suite.ctx = context.Background()
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (suite *EngineTestSuite) assertBalance(want string, a *models.BankAccount) {
	got := repotest.Balance(suite.T(), suite.repo, a)
	assert.Truef(suite.T(), dec(want).Equal(got), "account %d balance: want %s got %s", a.ID, want, got)
}

func (suite *EngineTestSuite) assertUsed(want string, c *models.CreditCard) {
	got := repotest.Used(suite.T(), suite.repo, c)
	assert.Truef(suite.T(), dec(want).Equal(got), "card %d used: want %s got %s", c.ID, want, got)
}

func (suite *EngineTestSuite) create(d models.ExpenseDraft) *models.Expense {
	if d.Category == "" {
		d.Category = "food"
	}
	if d.Date == "" {
		d.Date = "2026-10-15"
	}
	exp, err := suite.engine.CreateExpense(suite.ctx, userID, d)
	require.NoError(suite.T(), err)
	return exp
}

func (suite *EngineTestSuite) TestCashExpenseDebitsWallet() {
	w1 := repotest.Account(suite.T(), suite.repo, userID, "200")

	exp := suite.create(models.ExpenseDraft{Amount: dec("50"), PaymentMethod: models.PaymentCash, AccountID: &w1.ID})

	suite.assertBalance("150", w1)
	assert.Equal(suite.T(), models.SourceManual, exp.Source)
	assert.Equal(suite.T(), models.RecurrenceOneTime, exp.Recurrence)
	assert.Equal(suite.T(), "USD", exp.Currency)
	assert.Equal(suite.T(), "2026-10", exp.PeriodTag)
}

func (suite *EngineTestSuite) TestCreditCardExpenseRaisesUsedAmount() {
	c1 := repotest.Card(suite.T(), suite.repo, userID, "0")

	suite.create(models.ExpenseDraft{Amount: dec("200"), PaymentMethod: models.PaymentCreditCard, CreditCardID: &c1.ID})

	suite.assertUsed("200", c1)
}

func (suite *EngineTestSuite) TestUpdateAmountReversesThenReapplies() {
	w1 := repotest.Account(suite.T(), suite.repo, userID, "200")
	exp := suite.create(models.ExpenseDraft{Amount: dec("50"), PaymentMethod: models.PaymentCash, AccountID: &w1.ID})

	updated, err := suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{Amount: ptr(dec("80"))})
	require.NoError(suite.T(), err)

	suite.assertBalance("120", w1)
	assert.True(suite.T(), dec("80").Equal(updated.Amount))
	assert.Equal(suite.T(), "food", updated.Category)
}

func (suite *EngineTestSuite) TestDeleteRestoresCard() {
	c1 := repotest.Card(suite.T(), suite.repo, userID, "0")
	exp := suite.create(models.ExpenseDraft{Amount: dec("200"), PaymentMethod: models.PaymentCreditCard, CreditCardID: &c1.ID})

	require.NoError(suite.T(), suite.engine.DeleteExpense(suite.ctx, exp.ID, userID))

	suite.assertUsed("0", c1)
	_, err := suite.repo.GetExpense(suite.ctx, exp.ID, userID)
	assert.ErrorIs(suite.T(), err, repository.ErrNotFound)
}

func (suite *EngineTestSuite) TestBankTransferMovesMoney() {
	a1 := repotest.Account(suite.T(), suite.repo, userID, "500")
	a2 := repotest.Account(suite.T(), suite.repo, userID, "0")

	suite.create(models.ExpenseDraft{Amount: dec("100"), PaymentMethod: models.PaymentBank, AccountID: &a1.ID, ToBankAccountID: &a2.ID})

	suite.assertBalance("400", a1)
	suite.assertBalance("100", a2)
}

func (suite *EngineTestSuite) TestCardPayoffReducesBoth() {
	a1 := repotest.Account(suite.T(), suite.repo, userID, "1000")
	c1 := repotest.Card(suite.T(), suite.repo, userID, "300")

	suite.create(models.ExpenseDraft{Amount: dec("300"), PaymentMethod: models.PaymentBank, AccountID: &a1.ID, CreditCardID: &c1.ID})

	suite.assertBalance("700", a1)
	suite.assertUsed("0", c1)
}

func (suite *EngineTestSuite) TestRoutingSwitchLeavesNoStaleEffect() {
	a := repotest.Account(suite.T(), suite.repo, userID, "1000")
	c := repotest.Card(suite.T(), suite.repo, userID, "0")
	exp := suite.create(models.ExpenseDraft{Amount: dec("100"), PaymentMethod: models.PaymentCash, AccountID: &a.ID})
	suite.assertBalance("900", a)

	method := models.PaymentCreditCard
	_, err := suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{
		PaymentMethod: &method,
		CreditCardID:  models.SetID(c.ID),
		Amount:        ptr(dec("100")),
	})
	require.NoError(suite.T(), err)

	suite.assertBalance("1000", a)
	suite.assertUsed("100", c)
}

func (suite *EngineTestSuite) TestEmptyPatchLeavesBalancesUnchanged() {
	a1 := repotest.Account(suite.T(), suite.repo, userID, "500")
	a2 := repotest.Account(suite.T(), suite.repo, userID, "20")
	exp := suite.create(models.ExpenseDraft{Amount: dec("75"), PaymentMethod: models.PaymentBank, AccountID: &a1.ID, ToBankAccountID: &a2.ID})

	_, err := suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{})
	require.NoError(suite.T(), err)

	suite.assertBalance("425", a1)
	suite.assertBalance("95", a2)
}

func (suite *EngineTestSuite) TestCreateUpdateDeleteNetsToZero() {
	a1 := repotest.Account(suite.T(), suite.repo, userID, "500")
	a2 := repotest.Account(suite.T(), suite.repo, userID, "40")
	c1 := repotest.Card(suite.T(), suite.repo, userID, "60")

	exp := suite.create(models.ExpenseDraft{Amount: dec("30"), PaymentMethod: models.PaymentDebitCard, AccountID: &a1.ID})

	bank := models.PaymentBank
	_, err := suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{
		PaymentMethod:   &bank,
		AccountID:       models.SetID(a2.ID),
		ToBankAccountID: models.SetID(a1.ID),
		Amount:          ptr(dec("12")),
	})
	require.NoError(suite.T(), err)
	suite.assertBalance("512", a1)
	suite.assertBalance("28", a2)

	_, err = suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{
		ToBankAccountID: models.ClearID(),
		CreditCardID:    models.SetID(c1.ID),
	})
	require.NoError(suite.T(), err)
	suite.assertBalance("500", a1)
	suite.assertBalance("28", a2)
	suite.assertUsed("48", c1)

	require.NoError(suite.T(), suite.engine.DeleteExpense(suite.ctx, exp.ID, userID))
	suite.assertBalance("500", a1)
	suite.assertBalance("40", a2)
	suite.assertUsed("60", c1)
}

func (suite *EngineTestSuite) TestLoanRepaymentIsReversible() {
	a := repotest.Account(suite.T(), suite.repo, userID, "1000")
	loan := &models.Loan{UserID: userID, LenderName: "HomeBank", EMIAmount: dec("250"), Outstanding: dec("5000"), EMIDate: 5, LinkedBankAccountID: &a.ID}
	require.NoError(suite.T(), suite.repo.CreateLoan(suite.ctx, loan))

	exp := suite.create(models.ExpenseDraft{Amount: dec("250"), PaymentMethod: models.PaymentBank, AccountID: &a.ID, LoanID: &loan.ID})
	suite.assertBalance("750", a)
	assert.True(suite.T(), dec("4750").Equal(repotest.Outstanding(suite.T(), suite.repo, loan)))

	require.NoError(suite.T(), suite.engine.DeleteExpense(suite.ctx, exp.ID, userID))
	suite.assertBalance("1000", a)
	assert.True(suite.T(), dec("5000").Equal(repotest.Outstanding(suite.T(), suite.repo, loan)))
}

func (suite *EngineTestSuite) TestMissingInstrumentRollsBackCreate() {
	missing := int64(404)
	_, err := suite.engine.CreateExpense(suite.ctx, userID, models.ExpenseDraft{
		Amount: dec("10"), Category: "food", Date: "2026-10-15", PaymentMethod: models.PaymentCash, AccountID: &missing,
	})

	var pe *ledger.PersistenceError
	require.ErrorAs(suite.T(), err, &pe)
	assert.ErrorIs(suite.T(), err, repository.ErrInstrumentNotFound)
	assert.False(suite.T(), pe.Retryable)

	list, err := suite.repo.ListExpenses(suite.ctx, userID, models.ExpenseFilter{})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)
}

func (suite *EngineTestSuite) TestFailedUpdateKeepsRecordAndBalances() {
	a := repotest.Account(suite.T(), suite.repo, userID, "200")
	exp := suite.create(models.ExpenseDraft{Amount: dec("50"), PaymentMethod: models.PaymentCash, AccountID: &a.ID})

	_, err := suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{
		Amount:    ptr(dec("90")),
		AccountID: models.SetID(999),
	})
	assert.ErrorIs(suite.T(), err, repository.ErrInstrumentNotFound)

	suite.assertBalance("150", a)
	stored, err := suite.repo.GetExpense(suite.ctx, exp.ID, userID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), dec("50").Equal(stored.Amount))
	assert.Equal(suite.T(), a.ID, *stored.AccountID)
}

func (suite *EngineTestSuite) TestInstrumentOfAnotherUserIsRejected() {
	other := repotest.Account(suite.T(), suite.repo, 2, "100")
	_, err := suite.engine.CreateExpense(suite.ctx, userID, models.ExpenseDraft{
		Amount: dec("10"), Category: "food", Date: "2026-10-15", PaymentMethod: models.PaymentCash, AccountID: &other.ID,
	})
	assert.ErrorIs(suite.T(), err, repository.ErrInstrumentNotFound)
	suite.assertBalance("100", other)
}

func (suite *EngineTestSuite) TestUpdateAndDeleteMissingExpense() {
	_, err := suite.engine.UpdateExpense(suite.ctx, 12345, userID, models.ExpensePatch{})
	var nf *ledger.NotFoundError
	require.ErrorAs(suite.T(), err, &nf)
	assert.Equal(suite.T(), int64(12345), nf.ID)
	assert.ErrorIs(suite.T(), err, ledger.ErrNotFound)

	err = suite.engine.DeleteExpense(suite.ctx, 12345, userID)
	assert.ErrorIs(suite.T(), err, ledger.ErrNotFound)
}

func (suite *EngineTestSuite) TestExpenseOfAnotherUserIsNotFound() {
	a := repotest.Account(suite.T(), suite.repo, userID, "200")
	exp := suite.create(models.ExpenseDraft{Amount: dec("50"), PaymentMethod: models.PaymentCash, AccountID: &a.ID})

	err := suite.engine.DeleteExpense(suite.ctx, exp.ID, 2)
	assert.ErrorIs(suite.T(), err, ledger.ErrNotFound)
	suite.assertBalance("150", a)
}

func (suite *EngineTestSuite) TestValidation() {
	tests := []struct {
		name  string
		draft models.ExpenseDraft
		field string
	}{
		{"missing amount", models.ExpenseDraft{Category: "food", Date: "2026-10-15", PaymentMethod: models.PaymentCash}, "amount"},
		{"negative amount", models.ExpenseDraft{Amount: dec("-5"), Category: "food", Date: "2026-10-15", PaymentMethod: models.PaymentCash}, "amount"},
		{"missing category", models.ExpenseDraft{Amount: dec("5"), Date: "2026-10-15", PaymentMethod: models.PaymentCash}, "category"},
		{"bad date", models.ExpenseDraft{Amount: dec("5"), Category: "food", Date: "15/10/2026", PaymentMethod: models.PaymentCash}, "date"},
		{"missing date", models.ExpenseDraft{Amount: dec("5"), Category: "food", PaymentMethod: models.PaymentCash}, "date"},
		{"unknown method", models.ExpenseDraft{Amount: dec("5"), Category: "food", Date: "2026-10-15", PaymentMethod: "barter"}, "payment_method"},
		{"unknown source", models.ExpenseDraft{Amount: dec("5"), Category: "food", Date: "2026-10-15", PaymentMethod: models.PaymentCash, Source: "import"}, "source"},
		{"unknown recurrence", models.ExpenseDraft{Amount: dec("5"), Category: "food", Date: "2026-10-15", PaymentMethod: models.PaymentCash, Recurrence: "hourly"}, "recurrence"},
		{"confidence out of range", models.ExpenseDraft{Amount: dec("5"), Category: "food", Date: "2026-10-15", PaymentMethod: models.PaymentCash, Confidence: ptr(1.5)}, "confidence"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.engine.CreateExpense(suite.ctx, userID, tt.draft)
			var ve *ledger.ValidationError
			require.ErrorAs(suite.T(), err, &ve)
			assert.Equal(suite.T(), tt.field, ve.Field)
		})
	}

	_, err := suite.engine.UpdateExpense(suite.ctx, 1, userID, models.ExpensePatch{Amount: ptr(dec("0"))})
	var ve *ledger.ValidationError
	assert.ErrorAs(suite.T(), err, &ve)
}

func (suite *EngineTestSuite) TestAIDerivedSourceIsAccepted() {
	a := repotest.Account(suite.T(), suite.repo, userID, "100")
	exp := suite.create(models.ExpenseDraft{Amount: dec("10"), PaymentMethod: models.PaymentCash, AccountID: &a.ID, Source: "ai-parsed", Confidence: ptr(0.92)})
	assert.Equal(suite.T(), "ai-parsed", exp.Source)
	suite.assertBalance("90", a)
}

func (suite *EngineTestSuite) TestUnrecognizedRoutingPersistsWithWarning() {
	exp := suite.create(models.ExpenseDraft{Amount: dec("10"), PaymentMethod: models.PaymentCash})

	stored, err := suite.repo.GetExpense(suite.ctx, exp.ID, userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), exp.ID, stored.ID)

	require.Len(suite.T(), suite.warnings, 1)
	assert.Equal(suite.T(), exp.ID, suite.warnings[0].ExpenseID)
	assert.Equal(suite.T(), models.PaymentCash, suite.warnings[0].PaymentMethod)

	var warned bool
	for _, entry := range suite.logs.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(suite.T(), warned, "expected a warn-level log entry")

	// Deleting it is a no-op on balances and must not fail.
	require.NoError(suite.T(), suite.engine.DeleteExpense(suite.ctx, exp.ID, userID))
}

func (suite *EngineTestSuite) TestDatePatchMovesPeriodTag() {
	a := repotest.Account(suite.T(), suite.repo, userID, "100")
	exp := suite.create(models.ExpenseDraft{Amount: dec("10"), PaymentMethod: models.PaymentCash, AccountID: &a.ID})

	updated, err := suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{Date: ptr("2026-11-02")})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "2026-11", updated.PeriodTag)

	tagged := suite.create(models.ExpenseDraft{Amount: dec("10"), PaymentMethod: models.PaymentCash, AccountID: &a.ID, PeriodTag: "trip-2026"})
	updated, err = suite.engine.UpdateExpense(suite.ctx, tagged.ID, userID, models.ExpensePatch{Date: ptr("2026-11-02")})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "trip-2026", updated.PeriodTag)
}

func (suite *EngineTestSuite) TestAfterCreateErrorRollsBack() {
	a := repotest.Account(suite.T(), suite.repo, userID, "100")
	boom := errors.New("boom")

	_, err := suite.engine.CreateExpenseWith(suite.ctx, userID, models.ExpenseDraft{
		Amount: dec("10"), Category: "food", Date: "2026-10-15", PaymentMethod: models.PaymentCash, AccountID: &a.ID,
	}, func(ctx context.Context, tx *repository.Tx, exp *models.Expense) error {
		return boom
	})
	assert.ErrorIs(suite.T(), err, boom)
	suite.assertBalance("100", a)
}

func (suite *EngineTestSuite) TestCentAmountsStayExact() {
	a := repotest.Account(suite.T(), suite.repo, userID, "1")
	for i := 0; i < 3; i++ {
		suite.create(models.ExpenseDraft{Amount: dec("0.1"), PaymentMethod: models.PaymentCash, AccountID: &a.ID})
	}
	assert.Equal(suite.T(), "0.7", repotest.Balance(suite.T(), suite.repo, a).String())

	c := repotest.Card(suite.T(), suite.repo, userID, "0.1")
	exp := suite.create(models.ExpenseDraft{Amount: dec("0.2"), PaymentMethod: models.PaymentCreditCard, CreditCardID: &c.ID})
	_, err := suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{Amount: ptr(dec("0.3"))})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "0.4", repotest.Used(suite.T(), suite.repo, c).String())

	require.NoError(suite.T(), suite.engine.DeleteExpense(suite.ctx, exp.ID, userID))
	assert.Equal(suite.T(), "0.1", repotest.Used(suite.T(), suite.repo, c).String())

	stored, err := suite.repo.ListExpenses(suite.ctx, userID, models.ExpenseFilter{})
	require.NoError(suite.T(), err)
	for _, e := range stored {
		assert.Equal(suite.T(), "0.1", e.Amount.String())
	}
}

func (suite *EngineTestSuite) TestIgnoredRoutingIsNotStored() {
	a := repotest.Account(suite.T(), suite.repo, userID, "100")
	c := repotest.Card(suite.T(), suite.repo, userID, "0")

	exp := suite.create(models.ExpenseDraft{Amount: dec("10"), PaymentMethod: models.PaymentCash, AccountID: &a.ID, CreditCardID: &c.ID})
	assert.Nil(suite.T(), exp.CreditCardID)
	stored, err := suite.repo.GetExpense(suite.ctx, exp.ID, userID)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), stored.CreditCardID)
	assert.Equal(suite.T(), a.ID, *stored.AccountID)
}

func (suite *EngineTestSuite) TestMethodChangeDropsOldCard() {
	a := repotest.Account(suite.T(), suite.repo, userID, "1000")
	c := repotest.Card(suite.T(), suite.repo, userID, "0")
	exp := suite.create(models.ExpenseDraft{Amount: dec("100"), PaymentMethod: models.PaymentCreditCard, CreditCardID: &c.ID})
	suite.assertUsed("100", c)

	cash := models.PaymentCash
	updated, err := suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{PaymentMethod: &cash, AccountID: models.SetID(a.ID)})
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), updated.CreditCardID)
	suite.assertUsed("0", c)
	suite.assertBalance("900", a)

	// Switching on to bank is an external payment, not a payoff of the old card.
	bank := models.PaymentBank
	updated, err = suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{PaymentMethod: &bank})
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), updated.CreditCardID)
	assert.Equal(suite.T(), a.ID, *updated.AccountID)
	suite.assertUsed("0", c)
	suite.assertBalance("900", a)

	// A card named in the same patch is kept.
	debit := models.PaymentDebitCard
	_, err = suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{PaymentMethod: &debit})
	require.NoError(suite.T(), err)
	_, err = suite.engine.UpdateExpense(suite.ctx, exp.ID, userID, models.ExpensePatch{PaymentMethod: &bank, CreditCardID: models.SetID(c.ID)})
	require.NoError(suite.T(), err)
	suite.assertUsed("-100", c)
	suite.assertBalance("900", a)
}

func (suite *EngineTestSuite) TestDuplicateClaimIsNotLoggedAsError() {
	a := repotest.Account(suite.T(), suite.repo, userID, "100")

	_, err := suite.engine.CreateExpenseWith(suite.ctx, userID, models.ExpenseDraft{
		Amount: dec("10"), Category: "food", Date: "2026-10-15", PaymentMethod: models.PaymentCash, AccountID: &a.ID,
	}, func(ctx context.Context, tx *repository.Tx, exp *models.Expense) error {
		return fmt.Errorf("claim: %w", repository.ErrDuplicate)
	})
	assert.ErrorIs(suite.T(), err, repository.ErrDuplicate)
	suite.assertBalance("100", a)
	for _, entry := range suite.logs.AllEntries() {
		assert.NotEqual(suite.T(), logrus.ErrorLevel, entry.Level, entry.Message)
	}
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
