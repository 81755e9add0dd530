package manufacturing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

func TestComputeRecipeCost(t *testing.T) {
	lines := []RecipeLine{
		{MaterialID: 1, Quantity: 2, CostPerUnit: 10},
		{MaterialID: 2, Quantity: 1, CostPerUnit: 5},
	}

	cost, err := ComputeRecipeCost(lines, 20, 10, 5)
	require.NoError(t, err)
	require.InDelta(t, 25, cost.TotalMaterialCost, 0.001)
	require.InDelta(t, 55, cost.TotalCost, 0.001)
	require.InDelta(t, 11.00, cost.CostPerUnit, 0.001)
	require.InDelta(t, 20, cost.Lines[0].TotalCost, 0.001)
	require.InDelta(t, 5, cost.Lines[1].TotalCost, 0.001)
}

func TestComputeRecipeCostRejectsBadInput(t *testing.T) {
	lines := []RecipeLine{{MaterialID: 1, Quantity: 1, CostPerUnit: 10}}

	tests := []struct {
		name     string
		lines    []RecipeLine
		labor    float64
		overhead float64
		output   float64
	}{
		{"zero output quantity", lines, 0, 0, 0},
		{"negative output quantity", lines, 0, 0, -1},
		{"negative labor", lines, -1, 0, 5},
		{"negative overhead", lines, 0, -1, 5},
		{"no lines", nil, 0, 0, 5},
		{"zero line quantity", []RecipeLine{{MaterialID: 1, Quantity: 0, CostPerUnit: 10}}, 0, 0, 5},
		{"negative line cost", []RecipeLine{{MaterialID: 1, Quantity: 1, CostPerUnit: -2}}, 0, 0, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeRecipeCost(tc.lines, tc.labor, tc.overhead, tc.output)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestComputeRecipeCostRoundsPerUnit(t *testing.T) {
	lines := []RecipeLine{{MaterialID: 1, Quantity: 1, CostPerUnit: 10}}

	cost, err := ComputeRecipeCost(lines, 0, 0, 3)
	require.NoError(t, err)
	require.InDelta(t, 3.33, cost.CostPerUnit, 0.001)
}

func TestDeriveOrderStatus(t *testing.T) {
	tests := []struct {
		planned  float64
		produced float64
		want     OrderStatus
	}{
		{100, 0, OrderPending},
		{100, 40, OrderPartial},
		{100, 100, OrderCompleted},
		{0, 0, OrderPending},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, DeriveOrderStatus(tc.planned, tc.produced))
	}
}
