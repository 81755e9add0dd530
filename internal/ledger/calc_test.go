package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

func TestComputeLineWithPercentageDiscountAndVAT(t *testing.T) {
	lt, err := ComputeLine(LineInput{
		Quantity:    2,
		UnitPrice:   100,
		DiscountPct: 10,
	}, 15)
	require.NoError(t, err)

	require.InDelta(t, 200.0, lt.Gross, 0.001)
	require.InDelta(t, 20.0, lt.Discount, 0.001)
	require.InDelta(t, 180.0, lt.Net, 0.001)
	require.InDelta(t, 90.0, lt.UnitNet, 0.001)
	require.InDelta(t, 27.0, lt.VAT, 0.001)
	require.InDelta(t, 207.0, lt.Total, 0.001)
}

func TestComputeLineDiscountClamping(t *testing.T) {
	over, err := ComputeLine(LineInput{Quantity: 1, UnitPrice: 50, DiscountPct: 150}, 0)
	require.NoError(t, err)
	require.InDelta(t, 50.0, over.Discount, 0.001)
	require.InDelta(t, 0.0, over.Net, 0.001)

	negative, err := ComputeLine(LineInput{Quantity: 1, UnitPrice: 50, DiscountPct: -20}, 0)
	require.NoError(t, err)
	require.InDelta(t, 0.0, negative.Discount, 0.001)

	fixed, err := ComputeLine(LineInput{Quantity: 2, UnitPrice: 30, DiscountAmount: 500}, 0)
	require.NoError(t, err)
	require.InDelta(t, 60.0, fixed.Discount, 0.001)
	require.InDelta(t, 0.0, fixed.Net, 0.001)
	require.GreaterOrEqual(t, fixed.Net, 0.0)
}

func TestComputeLineTaxExempt(t *testing.T) {
	lt, err := ComputeLine(LineInput{Quantity: 1, UnitPrice: 100, TaxExempt: true}, 15)
	require.NoError(t, err)
	require.InDelta(t, 0.0, lt.VAT, 0.001)
	require.InDelta(t, 100.0, lt.Total, 0.001)
}

func TestComputeLineRejectsBadInput(t *testing.T) {
	_, err := ComputeLine(LineInput{Quantity: 0, UnitPrice: 10}, 15)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = ComputeLine(LineInput{Quantity: 1, UnitPrice: -5}, 15)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestComputeTotalsAggregates(t *testing.T) {
	totals, perLine, err := ComputeTotals([]LineInput{
		{Quantity: 2, UnitPrice: 100, DiscountPct: 10},
		{Quantity: 1, UnitPrice: 40, TaxExempt: true},
	}, 15)
	require.NoError(t, err)
	require.Len(t, perLine, 2)

	require.InDelta(t, 240.0, totals.Subtotal, 0.001)
	require.InDelta(t, 20.0, totals.Discount, 0.001)
	require.InDelta(t, 27.0, totals.VAT, 0.001)
	require.InDelta(t, 247.0, totals.GrandTotal, 0.001)
}

func TestComputeTotalsRequiresLines(t *testing.T) {
	_, _, err := ComputeTotals(nil, 15)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRound2IsStable(t *testing.T) {
	// Rounding at computation time keeps stored and derived values aligned.
	require.Equal(t, 0.30, Round2(0.1+0.2))
	require.Equal(t, 10.56, Round2(10.555))
	require.Equal(t, Round2(Round2(123.4567)), Round2(123.4567))
}
