// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals. Transaction amounts are always positive and
// carry their direction in the transaction type; goal balances are signed.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is an exact, signed monetary amount in a single implicit currency.
type Money struct {
	value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney builds an amount from a decimal value.
func NewMoney(d decimal.Decimal) Money { return Money{value: d} }

// MoneyFromInt builds a whole-unit amount.
func MoneyFromInt(units int64) Money { return Money{value: decimal.NewFromInt(units)} }

// MustMoney parses s and panics on error. Meant for tests and constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return Money{value: d}
}

// ParseAmount converts a user supplied decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected: direction is expressed by the transaction type, never the amount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Zero, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	m := Money{value: d}
	if err := m.Validate(); err != nil {
		return Zero, err
	}
	return m, nil
}

// Validate reports ErrInvalidAmount unless the amount is strictly positive.
func (m Money) Validate() error {
	if !m.value.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal          { return m.value }
func (m Money) Add(n Money) Money                 { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money                 { return Money{value: m.value.Sub(n.value)} }
func (m Money) Neg() Money                        { return Money{value: m.value.Neg()} }
func (m Money) Equal(n Money) bool                { return m.value.Equal(n.value) }
func (m Money) IsZero() bool                      { return m.value.IsZero() }
func (m Money) IsPositive() bool                  { return m.value.IsPositive() }
func (m Money) IsNegative() bool                  { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool             { return m.value.LessThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool   { return m.value.GreaterThanOrEqual(n.value) }
func (m Money) Cmp(n Money) int                   { return m.value.Cmp(n.value) }

// String returns the canonical decimal representation, used for persistence.
func (m Money) String() string { return m.value.String() }

// Display returns the amount with two fractional digits for messages.
func (m Money) Display() string { return m.value.StringFixed(2) }

// Percent returns m*100/of rounded half-up to four decimal places, or zero
// when of is zero.
func (m Money) Percent(of Money) decimal.Decimal {
	if of.value.IsZero() {
		return decimal.Zero
	}
	return m.value.Mul(hundred).DivRound(of.value, 4)
}

// Sum adds all amounts; an empty list sums to zero.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON renders the amount as a JSON string to keep every digit.
func (m Money) MarshalJSON() ([]byte, error) { return m.value.MarshalJSON() }

// UnmarshalJSON accepts both quoted and bare numbers.
func (m *Money) UnmarshalJSON(b []byte) error { return m.value.UnmarshalJSON(b) }
