package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseFilter narrows expense listings and reports. Zero values match all.
type ExpenseFilter struct {
	From          time.Time
	To            time.Time // inclusive
	Category      string
	PaymentMethod PaymentMethod
}

// GroupTotal is the sum of expenses sharing a key
type GroupTotal struct {
	Key   string          `json:"key"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// ExpenseSummary aggregates expenses over a date range
type ExpenseSummary struct {
	From            time.Time       `json:"from"`
	To              time.Time       `json:"to"`
	Count           int             `json:"count"`
	Total           decimal.Decimal `json:"total"`
	ByCategory      []GroupTotal    `json:"by_category"`
	ByPaymentMethod []GroupTotal    `json:"by_payment_method"`
}
