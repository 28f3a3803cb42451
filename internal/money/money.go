// Package money holds currency amounts as integer cents.
//
// Every amount the allocation engine and the ledger accumulate is a Cents
// value. Floats only appear at the edges of the system and are
// converted with shopspring/decimal so that rounding happens exactly once.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Cents is an amount in minor units (1/100 of the currency unit).
type Cents int64

// FromFloat rounds f half away from zero to the nearest cent.
// It reports false when f is NaN or infinite.
func FromFloat(f float64) (Cents, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return FromDecimal(decimal.NewFromFloat(f)), true
}

// FromDecimal rounds d to the nearest cent.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Round(2).Shift(2).IntPart())
}

// Decimal returns c as a decimal with two fractional digits.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float64 converts c for display or wire formats that carry plain numbers.
func (c Cents) Float64() float64 {
	return c.Decimal().InexactFloat64()
}

// String renders c as "$10.00" or "-$3.50".
func (c Cents) String() string {
	if c < 0 {
		return "-$" + (-c).Decimal().StringFixed(2)
	}
	return "$" + c.Decimal().StringFixed(2)
}

// Sum adds up amounts.
func Sum(amounts ...Cents) Cents {
	var total Cents
	for _, a := range amounts {
		total += a
	}
	return total
}

// Split divides total into n shares that add back up to total exactly.
// Every share gets the floored base amount and the first leftover shares,
// in order, get one extra cent. Split returns nil when n <= 0.
func Split(total Cents, n int) []Cents {
	if n <= 0 {
		return nil
	}
	if total < 0 {
		shares := Split(-total, n)
		for i := range shares {
			shares[i] = -shares[i]
		}
		return shares
	}
	shares := make([]Cents, n)
	base := total / Cents(n)
	leftover := int(total - base*Cents(n))
	for i := range shares {
		shares[i] = base
		if i < leftover {
			shares[i]++
		}
	}
	return shares
}

// Percent returns part as a percentage of whole, rounded to 2 decimals.
// A zero whole yields 0.
func Percent(part, whole Cents) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).
		Round(2).
		InexactFloat64()
}
