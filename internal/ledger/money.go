package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseBaht converts a decimal baht string ("1234.50") into satang. Amounts
// with sub-satang precision are rejected rather than silently rounded so
// caller input can never introduce drift.
func ParseBaht(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("ledger: parse amount %q: %w", s, err)
	}
	satang := d.Mul(hundred)
	if !satang.IsInteger() {
		return 0, fmt.Errorf("ledger: amount %q has sub-satang precision", s)
	}
	return Money(satang.IntPart()), nil
}

// FromDecimalBaht rounds a computed baht amount half-up to whole satang.
// Used where derived figures (VAT, depreciation, discounts) must land on the
// minor-unit grid exactly once.
func FromDecimalBaht(d decimal.Decimal) Money {
	return Money(d.Mul(hundred).Round(0).IntPart())
}

// DecimalBaht returns the amount as decimal baht.
func (m Money) DecimalBaht() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Baht renders the amount as a plain two-decimal baht string.
func (m Money) Baht() string {
	return m.DecimalBaht().StringFixed(2)
}
