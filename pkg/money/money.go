// Package money converts between CUT decimal amounts and the int64 minor
// units (1 CUT = 100) the ledger stores.
package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places a CUT amount carries.
const Scale = 2

var (
	ErrPrecision = errors.New("amount has more than 2 decimal places")
	ErrOverflow  = errors.New("amount out of range")
)

var hundred = decimal.NewFromInt(100)

// Parse reads a decimal string such as "1200.50" into minor units.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts d to minor units. Sub-cent precision is rejected
// rather than rounded.
func FromDecimal(d decimal.Decimal) (int64, error) {
	minor := d.Mul(hundred)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, ErrPrecision
	}
	if !minor.BigInt().IsInt64() {
		return 0, ErrOverflow
	}
	return minor.IntPart(), nil
}

// ToDecimal returns minor as a CUT decimal value.
func ToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -Scale)
}

// Format renders minor units with exactly two decimals.
func Format(minor int64) string {
	return ToDecimal(minor).StringFixed(Scale)
}

// ApplyRate multiplies minor by rate and rounds half away from zero to the
// nearest minor unit. Used for fee percentages and exchange rates.
func ApplyRate(minor int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(minor).Mul(rate).Round(0).IntPart()
}

// Add returns a+b, or ErrOverflow when the sum does not fit in int64.
func Add(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrOverflow
	}
	return a + b, nil
}
