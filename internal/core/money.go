// Package core defines the domain records and value types shared by every
// other package: transactions, recurring definitions, budgets, splits,
// groups and the money/date primitives they are built from.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in cents. All arithmetic happens on cents; floating
// point only appears at ratio boundaries (split attribution, percentages)
// where the result is rounded back to cents.
type Money struct {
	Cents int64
}

// ParseMoney converts a decimal string ("12.34" or "12,34") to Money with
// half-up rounding on the third decimal place. Zero is allowed; negative
// amounts are not.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return Money{}, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return Money{Cents: iv*100 + fracCents}, nil
}

// FromDollars converts a float amount to Money with half-up rounding.
func FromDollars(v float64) Money {
	return Money{Cents: int64(math.Round(v * 100))}
}

// Dollars returns the amount as a float64 for display and JSON output.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount as a plain decimal ("12.34"), the form the CSV
// store persists.
func (m Money) String() string {
	neg := ""
	c := m.Cents
	if c < 0 {
		neg = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", neg, c/100, c%100)
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// Share returns the given ratio of the amount, rounded half-up to cents.
func (m Money) Share(ratio float64) Money {
	return Money{Cents: int64(math.Round(float64(m.Cents) * ratio))}
}

// Div splits the amount into n equal shares, rounded half-up to cents.
// The shares may not sum exactly to the original amount; consumers
// tolerate the residue.
func (m Money) Div(n int) Money {
	if n == 0 {
		return Money{}
	}
	return Money{Cents: int64(math.Round(float64(m.Cents) / float64(n)))}
}

// IsZero reports whether the amount is zero cents.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// MarshalJSON emits the amount as a JSON number in dollars.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		m.Cents = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ErrInvalidAmount
	}
	*m = FromDollars(v)
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
