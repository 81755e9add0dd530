package manufacturing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// ErrOverproduced is returned by repositories when a run would push the
// produced quantity past the planned quantity.
var ErrOverproduced = errors.New("manufacturing: run exceeds remaining quantity")

// RepositoryPort defines data access for the manufacturing domain.
type RepositoryPort interface {
	CreateMaterial(ctx context.Context, m RawMaterial) (*RawMaterial, error)
	GetMaterial(ctx context.Context, id int64) (*RawMaterial, error)
	ListMaterials(ctx context.Context) ([]RawMaterial, error)
	UpdateMaterialCost(ctx context.Context, id int64, costPerUnit float64) (*RawMaterial, error)
	DeleteMaterial(ctx context.Context, id int64) error

	CreateRecipe(ctx context.Context, r Recipe) (*Recipe, error)
	GetRecipe(ctx context.Context, id int64) (*Recipe, error)
	ListRecipes(ctx context.Context) ([]Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) error

	CreateOrder(ctx context.Context, o ProductionOrder) (*ProductionOrder, error)
	GetOrder(ctx context.Context, id int64) (*ProductionOrder, error)
	ListOrders(ctx context.Context, req ListOrdersRequest) ([]ProductionOrder, error)
	DeleteOrder(ctx context.Context, id int64) error
	RecordRun(ctx context.Context, orderID int64, run ProductionRun) (*ProductionRun, *ProductionOrder, error)
	DeleteRun(ctx context.Context, runID int64) (*ProductionOrder, error)
	ListRuns(ctx context.Context, orderID int64) ([]ProductionRun, error)
}

// NumberSource reserves sequenced identifiers.
type NumberSource interface {
	Next(ctx context.Context, prefix string, year int) (string, error)
}

// Service handles manufacturing business logic.
type Service struct {
	repo    RepositoryPort
	numbers NumberSource
}

// NewService builds a Service.
func NewService(repo RepositoryPort, numbers NumberSource) *Service {
	return &Service{repo: repo, numbers: numbers}
}

// CreateMaterial validates and persists a raw material.
func (s *Service) CreateMaterial(ctx context.Context, input CreateMaterialInput) (*RawMaterial, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, shared.Invalid("name", "required")
	}
	if input.CostPerUnit < 0 {
		return nil, shared.Invalid("costPerUnit", "must not be negative")
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "unit"
	}
	return s.repo.CreateMaterial(ctx, RawMaterial{
		Name:        strings.TrimSpace(input.Name),
		Unit:        unit,
		CostPerUnit: ledger.Round2(input.CostPerUnit),
	})
}

// ListMaterials returns all raw materials.
func (s *Service) ListMaterials(ctx context.Context) ([]RawMaterial, error) {
	return s.repo.ListMaterials(ctx)
}

// UpdateMaterialCost changes a material's current cost. Existing recipe lines
// keep their snapshot.
func (s *Service) UpdateMaterialCost(ctx context.Context, id int64, costPerUnit float64) (*RawMaterial, error) {
	if costPerUnit < 0 {
		return nil, shared.Invalid("costPerUnit", "must not be negative")
	}
	return s.repo.UpdateMaterialCost(ctx, id, ledger.Round2(costPerUnit))
}

// DeleteMaterial removes a raw material.
func (s *Service) DeleteMaterial(ctx context.Context, id int64) error {
	return s.repo.DeleteMaterial(ctx, id)
}

// CreateRecipe snapshots material costs into bill-of-materials lines and
// persists the recipe with its computed costing.
func (s *Service) CreateRecipe(ctx context.Context, input CreateRecipeInput) (*Recipe, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, shared.Invalid("name", "required")
	}
	if len(input.Lines) == 0 {
		return nil, shared.Invalid("lines", "at least one material line is required")
	}

	lines := make([]RecipeLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		if in.MaterialID == 0 {
			return nil, shared.Invalid("materialId", "required")
		}
		material, err := s.repo.GetMaterial(ctx, in.MaterialID)
		if err != nil {
			return nil, err
		}
		cost := in.CostPerUnit
		if cost == 0 {
			cost = material.CostPerUnit
		}
		lines = append(lines, RecipeLine{
			MaterialID:   material.ID,
			MaterialName: material.Name,
			Quantity:     in.Quantity,
			CostPerUnit:  cost,
		})
	}

	costing, err := ComputeRecipeCost(lines, input.LaborCost, input.OverheadCost, input.OutputQuantity)
	if err != nil {
		return nil, err
	}

	return s.repo.CreateRecipe(ctx, Recipe{
		Name:              strings.TrimSpace(input.Name),
		OutputQuantity:    input.OutputQuantity,
		OutputUnit:        strings.TrimSpace(input.OutputUnit),
		LaborCost:         ledger.Round2(input.LaborCost),
		OverheadCost:      ledger.Round2(input.OverheadCost),
		TotalMaterialCost: costing.TotalMaterialCost,
		TotalCost:         costing.TotalCost,
		CostPerUnit:       costing.CostPerUnit,
		Notes:             input.Notes,
		Lines:             costing.Lines,
	})
}

// GetRecipe returns one recipe with its lines.
func (s *Service) GetRecipe(ctx context.Context, id int64) (*Recipe, error) {
	return s.repo.GetRecipe(ctx, id)
}

// ListRecipes returns all recipes.
func (s *Service) ListRecipes(ctx context.Context) ([]Recipe, error) {
	return s.repo.ListRecipes(ctx)
}

// DeleteRecipe removes a recipe and its lines.
func (s *Service) DeleteRecipe(ctx context.Context, id int64) error {
	return s.repo.DeleteRecipe(ctx, id)
}

// CreateOrder opens a production order against a recipe, valuing it at the
// recipe's snapshotted cost per unit.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*ProductionOrder, error) {
	if input.RecipeID == 0 {
		return nil, shared.Invalid("recipeId", "required")
	}
	if input.Planned <= 0 {
		return nil, shared.Invalid("planned", "must be greater than zero")
	}

	recipe, err := s.repo.GetRecipe(ctx, input.RecipeID)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, OrderNumberPrefix, time.Now().Year())
	if err != nil {
		return nil, err
	}

	return s.repo.CreateOrder(ctx, ProductionOrder{
		Number:     number,
		RecipeID:   recipe.ID,
		RecipeName: recipe.Name,
		Planned:    input.Planned,
		UnitCost:   recipe.CostPerUnit,
		DueAt:      input.DueAt,
		Notes:      input.Notes,
	})
}

// GetOrder returns one production order.
func (s *Service) GetOrder(ctx context.Context, id int64) (*ProductionOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns orders matching the filter.
func (s *Service) ListOrders(ctx context.Context, req ListOrdersRequest) ([]ProductionOrder, error) {
	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 100
	}
	return s.repo.ListOrders(ctx, req)
}

// DeleteOrder removes an order and its runs.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	return s.repo.DeleteOrder(ctx, id)
}

// RecordRun records produced output against an order. The run and the parent
// quantity update share one transaction in the repository.
func (s *Service) RecordRun(ctx context.Context, input RecordRunInput) (*RunResult, error) {
	if input.OrderID == 0 {
		return nil, shared.Invalid("orderId", "required")
	}
	if input.Quantity <= 0 {
		return nil, shared.Invalid("quantity", "must be greater than zero")
	}

	order, err := s.repo.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if input.Quantity > order.Remaining() {
		return nil, shared.Invalid("quantity", "exceeds remaining quantity")
	}

	runAt := input.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}
	run, updated, err := s.repo.RecordRun(ctx, input.OrderID, ProductionRun{
		OrderID:  input.OrderID,
		Quantity: input.Quantity,
		RunAt:    runAt,
		Note:     input.Note,
	})
	if err != nil {
		if errors.Is(err, ErrOverproduced) {
			return nil, shared.Invalid("quantity", "exceeds remaining quantity")
		}
		return nil, err
	}
	return &RunResult{Run: *run, Order: *updated}, nil
}

// DeleteRun removes a run and reverses its effect on the order.
func (s *Service) DeleteRun(ctx context.Context, runID int64) (*ProductionOrder, error) {
	if runID == 0 {
		return nil, shared.Invalid("runId", "required")
	}
	return s.repo.DeleteRun(ctx, runID)
}

// ListRuns returns the run ledger for an order.
func (s *Service) ListRuns(ctx context.Context, orderID int64) ([]ProductionRun, error) {
	return s.repo.ListRuns(ctx, orderID)
}
