// Package money is the currency-aware amount type used by every fare computation.
package money

import (
	"fmt"
	"strings"
)

// Money is an amount in minor units (cents) of a single currency.
type Money struct {
	Currency string
	Cents    int64
}

// Of returns an amount of cents in the given currency.
func Of(currency string, cents int64) Money {
	return Money{Currency: strings.ToUpper(currency), Cents: cents}
}

// FromDecimal converts a decimal amount such as 2.75 to minor units, rounding half away from zero.
func FromDecimal(currency string, amount float64) Money {
	c := amount * 100
	if c < 0 {
		return Of(currency, int64(c-0.5))
	}
	return Of(currency, int64(c+0.5))
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money { return Of(currency, 0) }

func (m Money) mustMatch(o Money) {
	if m.Currency != o.Currency {
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", m.Currency, o.Currency))
	}
}

func (m Money) Plus(o Money) Money {
	m.mustMatch(o)
	return Money{Currency: m.Currency, Cents: m.Cents + o.Cents}
}

func (m Money) Minus(o Money) Money {
	m.mustMatch(o)
	return Money{Currency: m.Currency, Cents: m.Cents - o.Cents}
}

// Compare returns -1, 0 or +1.
func (m Money) Compare(o Money) int {
	m.mustMatch(o)
	switch {
	case m.Cents < o.Cents:
		return -1
	case m.Cents > o.Cents:
		return 1
	}
	return 0
}

func (m Money) LessThan(o Money) bool    { return m.Compare(o) < 0 }
func (m Money) GreaterThan(o Money) bool { return m.Compare(o) > 0 }

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }

// Half returns half of the amount rounded half up to the minor unit.
func (m Money) Half() Money {
	return Money{Currency: m.Currency, Cents: (m.Cents + 1) / 2}
}

// RoundDownTo truncates the amount to a multiple of step minor units (e.g. 5 for nickels).
func (m Money) RoundDownTo(step int64) Money {
	if step <= 1 {
		return m
	}
	return Money{Currency: m.Currency, Cents: m.Cents - m.Cents%step}
}

// Max returns the larger amount; on equality a is returned.
func Max(a, b Money) Money {
	if b.GreaterThan(a) {
		return b
	}
	return a
}

// Sum adds amounts; an empty list yields zero in the given currency.
func Sum(currency string, ms ...Money) Money {
	total := Zero(currency)
	for _, m := range ms {
		total = total.Plus(m)
	}
	return total
}

// String formats like "USD 2.75".
func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s %s%d.%02d", m.Currency, sign, c/100, c%100)
}
