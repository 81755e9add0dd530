// Package manufacturing manages raw materials, recipes with bill-of-materials
// costing, and production orders with their run ledger.
package manufacturing

import (
	"time"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
)

// OrderNumberPrefix is the sequenced identifier prefix for production orders.
const OrderNumberPrefix = "MO"

// OrderStatus tracks production progress on an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPartial   OrderStatus = "PARTIAL"
	OrderCompleted OrderStatus = "COMPLETED"
)

// DeriveOrderStatus maps produced-vs-planned quantities onto an order status.
func DeriveOrderStatus(planned, produced float64) OrderStatus {
	switch ledger.DeriveStatus(planned, produced) {
	case ledger.StatusPaid:
		return OrderCompleted
	case ledger.StatusPartial:
		return OrderPartial
	default:
		return OrderPending
	}
}

// RawMaterial is a purchasable input with its current unit cost. Recipes copy
// the cost at save time, so later price changes never rewrite history.
type RawMaterial struct {
	ID          int64
	Name        string
	Unit        string
	CostPerUnit float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecipeLine is one bill-of-materials row with the cost snapshotted when the
// recipe was saved.
type RecipeLine struct {
	ID           int64
	RecipeID     int64
	MaterialID   int64
	MaterialName string
	Quantity     float64
	CostPerUnit  float64
	TotalCost    float64
}

// Recipe describes how to produce a batch of output and what it costs.
type Recipe struct {
	ID                int64
	Name              string
	OutputQuantity    float64
	OutputUnit        string
	LaborCost         float64
	OverheadCost      float64
	TotalMaterialCost float64
	TotalCost         float64
	CostPerUnit       float64
	Notes             string
	Lines             []RecipeLine
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProductionOrder is a ledger parent: planned quantity is the total and the
// produced quantity accumulates from production runs.
type ProductionOrder struct {
	ID         int64
	Number     string
	RecipeID   int64
	RecipeName string
	Planned    float64
	Produced   float64
	UnitCost   float64
	DueAt      time.Time
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Status derives the order status from quantities.
func (o ProductionOrder) Status() OrderStatus {
	return DeriveOrderStatus(o.Planned, o.Produced)
}

// Remaining returns the quantity still to produce.
func (o ProductionOrder) Remaining() float64 {
	return ledger.Remaining(o.Planned, o.Produced)
}

// TotalCost values the order at the recipe's snapshotted cost per unit.
func (o ProductionOrder) TotalCost() float64 {
	return ledger.Round2(o.Planned * o.UnitCost)
}

// ProductionRun is an immutable ledger entry recording produced output.
type ProductionRun struct {
	ID        int64
	OrderID   int64
	Quantity  float64
	RunAt     time.Time
	Note      string
	CreatedAt time.Time
}

// CreateMaterialInput carries form input for a raw material.
type CreateMaterialInput struct {
	Name        string
	Unit        string
	CostPerUnit float64
}

// RecipeLineInput references a material and the quantity consumed per batch.
// CostPerUnit is optional; when zero the material's current cost is
// snapshotted instead.
type RecipeLineInput struct {
	MaterialID  int64
	Quantity    float64
	CostPerUnit float64
}

// CreateRecipeInput carries form input for a recipe.
type CreateRecipeInput struct {
	Name           string
	OutputQuantity float64
	OutputUnit     string
	LaborCost      float64
	OverheadCost   float64
	Notes          string
	Lines          []RecipeLineInput
}

// CreateOrderInput carries form input for a production order.
type CreateOrderInput struct {
	RecipeID int64
	Planned  float64
	DueAt    time.Time
	Notes    string
}

// RecordRunInput carries form input for a production run.
type RecordRunInput struct {
	OrderID  int64
	Quantity float64
	RunAt    time.Time
	Note     string
}

// RunResult pairs the created run with the refreshed parent order.
type RunResult struct {
	Run   ProductionRun
	Order ProductionOrder
}

// ListOrdersRequest filters order listings.
type ListOrdersRequest struct {
	Status   OrderStatus
	RecipeID int64
	Limit    int
	Offset   int
}
