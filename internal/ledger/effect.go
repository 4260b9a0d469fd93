package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Rule names the routing combination an expense matched.
type Rule string

const (
	RuleAccountDebit    Rule = "account-debit"
	RuleCardCharge      Rule = "card-charge"
	RuleTransfer        Rule = "transfer"
	RuleCardPayoff      Rule = "card-payoff"
	RuleLoanRepayment   Rule = "loan-repayment"
	RuleExternalPayment Rule = "external-payment"
	RuleUnrecognized    Rule = "unrecognized"
)

// Delta is a signed change to one instrument's balance field: balance for
// bank accounts, used amount for credit cards, outstanding for loans.
type Delta struct {
	Ref    models.InstrumentRef
	Amount decimal.Decimal
}

// Effect is the set of deltas an expense implies.
type Effect struct {
	Rule   Rule
	Deltas []Delta
	// Reason explains an unrecognized routing.
	Reason string
}

// Recognized reports whether the expense matched an effect rule.
func (e Effect) Recognized() bool {
	return e.Rule != RuleUnrecognized
}

// Negate returns the effect that undoes e.
func (e Effect) Negate() Effect {
	out := Effect{Rule: e.Rule, Reason: e.Reason, Deltas: make([]Delta, len(e.Deltas))}
	for i, d := range e.Deltas {
		out.Deltas[i] = Delta{Ref: d.Ref, Amount: d.Amount.Neg()}
	}
	return out
}

// Refs returns the distinct instruments e touches.
func (e Effect) Refs() []models.InstrumentRef {
	refs := make([]models.InstrumentRef, 0, len(e.Deltas))
	for _, d := range e.Deltas {
		refs = append(refs, d.Ref)
	}
	return refs
}

func (e Effect) String() string {
	parts := make([]string, len(e.Deltas))
	for i, d := range e.Deltas {
		sign := ""
		if d.Amount.IsPositive() {
			sign = "+"
		}
		parts[i] = fmt.Sprintf("%s%s%s", d.Ref, sign, d.Amount.String())
	}
	return fmt.Sprintf("%s[%s]", e.Rule, strings.Join(parts, " "))
}

// Compute returns the effect of an expense. It is the only place that maps
// routing fields to balance changes; reversal applies its negation.
func Compute(e *models.Expense) Effect {
	amount := e.Amount
	account := ref(models.InstrumentBankAccount, e.AccountID)
	card := ref(models.InstrumentCreditCard, e.CreditCardID)
	toAccount := ref(models.InstrumentBankAccount, e.ToBankAccountID)
	loan := ref(models.InstrumentLoan, e.LoanID)

	switch e.PaymentMethod {
	case models.PaymentCash, models.PaymentDebitCard:
		if account == nil {
			return unrecognized("%s payment without account", e.PaymentMethod)
		}
		return effect(RuleAccountDebit, Delta{*account, amount.Neg()})

	case models.PaymentCreditCard:
		if card == nil {
			return unrecognized("credit card payment without card")
		}
		return effect(RuleCardCharge, Delta{*card, amount})

	case models.PaymentBank:
		if account == nil {
			return unrecognized("bank payment without source account")
		}
		switch {
		case toAccount != nil && card == nil && loan == nil:
			return effect(RuleTransfer, Delta{*account, amount.Neg()}, Delta{*toAccount, amount})
		case card != nil && toAccount == nil && loan == nil:
			return effect(RuleCardPayoff, Delta{*account, amount.Neg()}, Delta{*card, amount.Neg()})
		case loan != nil && toAccount == nil && card == nil:
			return effect(RuleLoanRepayment, Delta{*account, amount.Neg()}, Delta{*loan, amount.Neg()})
		case toAccount == nil && card == nil && loan == nil:
			return effect(RuleExternalPayment, Delta{*account, amount.Neg()})
		}
		return unrecognized("bank payment with more than one destination")
	}
	return unrecognized("unknown payment method %q", e.PaymentMethod)
}

func ref(kind models.InstrumentKind, id *int64) *models.InstrumentRef {
	if id == nil {
		return nil
	}
	return &models.InstrumentRef{Kind: kind, ID: *id}
}

func effect(rule Rule, deltas ...Delta) Effect {
	return Effect{Rule: rule, Deltas: deltas}
}

func unrecognized(format string, args ...any) Effect {
	return Effect{Rule: RuleUnrecognized, Reason: fmt.Sprintf(format, args...)}
}

// lockOrder returns the distinct refs of all effects sorted so every
// transaction acquires instrument locks in the same order.
func lockOrder(effects ...Effect) []models.InstrumentRef {
	seen := make(map[models.InstrumentRef]bool)
	var refs []models.InstrumentRef
	for _, e := range effects {
		for _, r := range e.Refs() {
			if !seen[r] {
				seen[r] = true
				refs = append(refs, r)
			}
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	return refs
}
