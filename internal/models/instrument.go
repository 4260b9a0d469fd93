package models

import "fmt"

// InstrumentKind names a balance-bearing entity the ledger mutates.
type InstrumentKind string

const (
	InstrumentBankAccount InstrumentKind = "bank_account"
	InstrumentCreditCard  InstrumentKind = "credit_card"
	InstrumentLoan        InstrumentKind = "loan"
)

// InstrumentRef identifies one instrument row.
type InstrumentRef struct {
	Kind InstrumentKind `json:"kind"`
	ID   int64          `json:"id"`
}

func (r InstrumentRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Less orders refs by kind then id. Locks are taken in this order.
func (r InstrumentRef) Less(o InstrumentRef) bool {
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.ID < o.ID
}
