// Package ledger implements the derived-ledger reconciliation core shared by
// expenses, invoices and manufacturing: monetary aggregates, status
// derivation and sequenced identifiers.
package ledger

import "github.com/shopspring/decimal"

// Round2 rounds a monetary value to 2 decimal places. All persisted and
// displayed amounts are rounded at the point of computation so stored totals
// and derived remainders never drift.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// mul multiplies two monetary values without intermediate float error.
func mul(a, b float64) decimal.Decimal {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b))
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

func round2d(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
