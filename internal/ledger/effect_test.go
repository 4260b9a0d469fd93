package ledger

import (
	"testing"

	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(v int64) *int64 { return &v }

func TestCompute(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	acct := func(v int64) models.InstrumentRef { return models.InstrumentRef{Kind: models.InstrumentBankAccount, ID: v} }
	card := func(v int64) models.InstrumentRef { return models.InstrumentRef{Kind: models.InstrumentCreditCard, ID: v} }
	loan := func(v int64) models.InstrumentRef { return models.InstrumentRef{Kind: models.InstrumentLoan, ID: v} }

	tests := []struct {
		name    string
		expense models.Expense
		rule    Rule
		deltas  map[models.InstrumentRef]int64
	}{
		{
			name:    "cash debits account",
			expense: models.Expense{PaymentMethod: models.PaymentCash, AccountID: id(1)},
			rule:    RuleAccountDebit,
			deltas:  map[models.InstrumentRef]int64{acct(1): -100},
		},
		{
			name:    "debit card debits account",
			expense: models.Expense{PaymentMethod: models.PaymentDebitCard, AccountID: id(1)},
			rule:    RuleAccountDebit,
			deltas:  map[models.InstrumentRef]int64{acct(1): -100},
		},
		{
			name:    "cash ignores stale card",
			expense: models.Expense{PaymentMethod: models.PaymentCash, AccountID: id(1), CreditCardID: id(9)},
			rule:    RuleAccountDebit,
			deltas:  map[models.InstrumentRef]int64{acct(1): -100},
		},
		{
			name:    "credit card charge",
			expense: models.Expense{PaymentMethod: models.PaymentCreditCard, CreditCardID: id(3)},
			rule:    RuleCardCharge,
			deltas:  map[models.InstrumentRef]int64{card(3): 100},
		},
		{
			name:    "credit card ignores stale account",
			expense: models.Expense{PaymentMethod: models.PaymentCreditCard, AccountID: id(1), CreditCardID: id(3)},
			rule:    RuleCardCharge,
			deltas:  map[models.InstrumentRef]int64{card(3): 100},
		},
		{
			name:    "bank transfer",
			expense: models.Expense{PaymentMethod: models.PaymentBank, AccountID: id(1), ToBankAccountID: id(2)},
			rule:    RuleTransfer,
			deltas:  map[models.InstrumentRef]int64{acct(1): -100, acct(2): 100},
		},
		{
			name:    "card payoff",
			expense: models.Expense{PaymentMethod: models.PaymentBank, AccountID: id(1), CreditCardID: id(3)},
			rule:    RuleCardPayoff,
			deltas:  map[models.InstrumentRef]int64{acct(1): -100, card(3): -100},
		},
		{
			name:    "loan repayment",
			expense: models.Expense{PaymentMethod: models.PaymentBank, AccountID: id(1), LoanID: id(4)},
			rule:    RuleLoanRepayment,
			deltas:  map[models.InstrumentRef]int64{acct(1): -100, loan(4): -100},
		},
		{
			name:    "external bank payment",
			expense: models.Expense{PaymentMethod: models.PaymentBank, AccountID: id(1)},
			rule:    RuleExternalPayment,
			deltas:  map[models.InstrumentRef]int64{acct(1): -100},
		},
		{
			name:    "cash without account",
			expense: models.Expense{PaymentMethod: models.PaymentCash},
			rule:    RuleUnrecognized,
		},
		{
			name:    "credit card without card",
			expense: models.Expense{PaymentMethod: models.PaymentCreditCard, AccountID: id(1)},
			rule:    RuleUnrecognized,
		},
		{
			name:    "bank without source account",
			expense: models.Expense{PaymentMethod: models.PaymentBank, ToBankAccountID: id(2)},
			rule:    RuleUnrecognized,
		},
		{
			name:    "bank with two destinations",
			expense: models.Expense{PaymentMethod: models.PaymentBank, AccountID: id(1), ToBankAccountID: id(2), CreditCardID: id(3)},
			rule:    RuleUnrecognized,
		},
		{
			name:    "unknown method",
			expense: models.Expense{PaymentMethod: "barter", AccountID: id(1)},
			rule:    RuleUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.expense.Amount = hundred
			eff := Compute(&tt.expense)
			assert.Equal(t, tt.rule, eff.Rule)
			require.Len(t, eff.Deltas, len(tt.deltas))
			for _, d := range eff.Deltas {
				want, ok := tt.deltas[d.Ref]
				require.True(t, ok, "unexpected delta on %s", d.Ref)
				assert.True(t, decimal.NewFromInt(want).Equal(d.Amount), "%s: want %d got %s", d.Ref, want, d.Amount)
			}
			if tt.rule == RuleUnrecognized {
				assert.False(t, eff.Recognized())
				assert.NotEmpty(t, eff.Reason)
			}
		})
	}
}

func TestTransferIsSymmetric(t *testing.T) {
	e := models.Expense{Amount: decimal.RequireFromString("123.45"), PaymentMethod: models.PaymentBank, AccountID: id(1), ToBankAccountID: id(2)}
	sum := decimal.Zero
	for _, d := range Compute(&e).Deltas {
		sum = sum.Add(d.Amount)
	}
	assert.True(t, sum.IsZero(), "transfer created or destroyed %s", sum)
}

func TestNegateCancelsEffect(t *testing.T) {
	e := models.Expense{Amount: decimal.NewFromInt(70), PaymentMethod: models.PaymentBank, AccountID: id(1), CreditCardID: id(2)}
	eff := Compute(&e)
	neg := eff.Negate()
	require.Len(t, neg.Deltas, len(eff.Deltas))
	for i := range eff.Deltas {
		assert.Equal(t, eff.Deltas[i].Ref, neg.Deltas[i].Ref)
		assert.True(t, eff.Deltas[i].Amount.Add(neg.Deltas[i].Amount).IsZero())
	}
}

func TestLockOrderIsSortedAndDistinct(t *testing.T) {
	a := Compute(&models.Expense{Amount: decimal.NewFromInt(1), PaymentMethod: models.PaymentBank, AccountID: id(5), CreditCardID: id(2)})
	b := Compute(&models.Expense{Amount: decimal.NewFromInt(1), PaymentMethod: models.PaymentBank, AccountID: id(1), ToBankAccountID: id(5)})

	refs := lockOrder(a, b)
	assert.Equal(t, []models.InstrumentRef{
		{Kind: models.InstrumentBankAccount, ID: 1},
		{Kind: models.InstrumentBankAccount, ID: 5},
		{Kind: models.InstrumentCreditCard, ID: 2},
	}, refs)
}

func TestEffectString(t *testing.T) {
	eff := Compute(&models.Expense{Amount: decimal.NewFromInt(50), PaymentMethod: models.PaymentBank, AccountID: id(1), ToBankAccountID: id(2)})
	assert.Equal(t, "transfer[bank_account:1-50 bank_account:2+50]", eff.String())
}
