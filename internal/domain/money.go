package domain

import (
	"github.com/shopspring/decimal"
)

// Decimal places used when reporting amounts and weights
const (
	CurrencyPlaces = 2
	WeightPlaces   = 3
)

// Money is an amount in the single implicit currency unit.
// Optional amounts are modelled as *Money where nil means "not set".
type Money float64

// NewMoney returns an amount rounded to currency precision
func NewMoney(amount float64) Money {
	return Money(amount).Round()
}

// MoneyPtr returns a pointer to a rounded amount, for optional fields
func MoneyPtr(amount float64) *Money {
	m := NewMoney(amount)
	return &m
}

// Decimal returns the amount as a decimal
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(m))
}

// Round rounds half away from zero to currency precision
func (m Money) Round() Money {
	return moneyFromDecimal(m.Decimal())
}

// Float64 returns the raw amount
func (m Money) Float64() float64 {
	return float64(m)
}

// Add returns m + other
func (m Money) Add(other Money) Money {
	return moneyFromDecimal(m.Decimal().Add(other.Decimal()))
}

// Mul returns m * factor
func (m Money) Mul(factor float64) Money {
	return moneyFromDecimal(m.Decimal().Mul(decimal.NewFromFloat(factor)))
}

// MulInt returns m * n
func (m Money) MulInt(n int) Money {
	return moneyFromDecimal(m.Decimal().Mul(decimal.NewFromInt(int64(n))))
}

// IsNegative reports whether the amount is below zero
func (m Money) IsNegative() bool {
	return m < 0
}

// String formats the amount with two decimals
func (m Money) String() string {
	return m.Decimal().StringFixed(CurrencyPlaces)
}

// ValueOr returns the optional amount, or fallback when unset
func ValueOr(m *Money, fallback Money) Money {
	if m == nil {
		return fallback
	}
	return *m
}

// RoundWeight rounds a weight in kg to three decimals
func RoundWeight(kg float64) float64 {
	return decimal.NewFromFloat(kg).Round(WeightPlaces).InexactFloat64()
}

func moneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(CurrencyPlaces).InexactFloat64())
}

func nonNegative(m Money) Money {
	if m < 0 {
		return 0
	}
	return m
}
