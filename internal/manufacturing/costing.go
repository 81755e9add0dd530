package manufacturing

import (
	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// RecipeCost is the costing breakdown for one recipe.
type RecipeCost struct {
	Lines             []RecipeLine
	TotalMaterialCost float64
	TotalCost         float64
	CostPerUnit       float64
}

// ComputeRecipeCost prices a recipe from its snapshotted lines. The output
// quantity must be positive; the guard lives here so a zero quantity never
// reaches the division.
func ComputeRecipeCost(lines []RecipeLine, laborCost, overheadCost, outputQuantity float64) (*RecipeCost, error) {
	if outputQuantity <= 0 {
		return nil, shared.Invalid("outputQuantity", "must be greater than zero")
	}
	if laborCost < 0 {
		return nil, shared.Invalid("laborCost", "must not be negative")
	}
	if overheadCost < 0 {
		return nil, shared.Invalid("overheadCost", "must not be negative")
	}
	if len(lines) == 0 {
		return nil, shared.Invalid("lines", "at least one material line is required")
	}

	cost := RecipeCost{Lines: make([]RecipeLine, 0, len(lines))}
	var materials float64
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, shared.Invalid("quantity", "must be greater than zero")
		}
		if line.CostPerUnit < 0 {
			return nil, shared.Invalid("costPerUnit", "must not be negative")
		}
		line.TotalCost = ledger.Round2(line.Quantity * line.CostPerUnit)
		materials += line.TotalCost
		cost.Lines = append(cost.Lines, line)
	}

	cost.TotalMaterialCost = ledger.Round2(materials)
	cost.TotalCost = ledger.Round2(cost.TotalMaterialCost + laborCost + overheadCost)
	cost.CostPerUnit = ledger.Round2(cost.TotalCost / outputQuantity)
	return &cost, nil
}
