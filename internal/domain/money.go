package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary amount in minor units (cents).
// All arithmetic is integer-only; float conversion happens solely at the
// display boundary.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney creates a Money value in minor units
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns a zero amount in the given currency
func Zero(currency string) Money {
	return Money{Amount: 0, Currency: currency}
}

// SameCurrency checks whether two amounts share a currency
func (m Money) SameCurrency(other Money) bool {
	return m.Currency == other.Currency
}

// Add returns m + other, rejecting mixed currencies
func (m Money) Add(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub returns m - other, rejecting mixed currencies
func (m Money) Sub(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// MulQty returns m multiplied by a line quantity
func (m Money) MulQty(qty int) Money {
	return Money{Amount: m.Amount * int64(qty), Currency: m.Currency}
}

// IsZero checks if the amount is zero
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// IsNegative checks if the amount is below zero
func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// IsPositive checks if the amount is above zero
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// LessThan compares amounts; currencies must already match
func (m Money) LessThan(other Money) bool {
	return m.Amount < other.Amount
}

// Display renders the amount as a decimal string, e.g. "49.70"
func (m Money) Display() string {
	return decimal.New(m.Amount, -2).StringFixed(2)
}

// String returns the amount with its currency, e.g. "49.70 USD"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Display(), m.Currency)
}

// FeeSchedule describes the processing fee applied at checkout:
// a percentage of the subtotal (in basis points) plus a fixed amount
// in minor units. Both components are additive.
type FeeSchedule struct {
	PercentBps int64 `json:"percent_bps"`
	FixedFee   int64 `json:"fixed_fee"`
}

// Fee computes the total processing fee for a subtotal.
// The percentage component rounds half-up to the nearest minor unit.
func (f FeeSchedule) Fee(subtotal Money) Money {
	if subtotal.Amount <= 0 {
		return Zero(subtotal.Currency)
	}
	return Money{
		Amount:   f.percentOf(subtotal.Amount) + f.FixedFee,
		Currency: subtotal.Currency,
	}
}

// PercentFee computes only the percentage component, used for refund
// fee disclosure
func (f FeeSchedule) PercentFee(amount Money) Money {
	if amount.Amount <= 0 {
		return Zero(amount.Currency)
	}
	return Money{Amount: f.percentOf(amount.Amount), Currency: amount.Currency}
}

// Fixed returns the fixed component in the given currency
func (f FeeSchedule) Fixed(currency string) Money {
	return Money{Amount: f.FixedFee, Currency: currency}
}

func (f FeeSchedule) percentOf(amount int64) int64 {
	return (amount*f.PercentBps + 5000) / 10000
}
