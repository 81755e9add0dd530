package manufacturing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

type memoryRepo struct {
	materials map[int64]*RawMaterial
	recipes   map[int64]*Recipe
	orders    map[int64]*ProductionOrder
	runs      map[int64]*ProductionRun
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		materials: make(map[int64]*RawMaterial),
		recipes:   make(map[int64]*Recipe),
		orders:    make(map[int64]*ProductionOrder),
		runs:      make(map[int64]*ProductionRun),
	}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) CreateMaterial(_ context.Context, mat RawMaterial) (*RawMaterial, error) {
	mat.ID = m.id()
	m.materials[mat.ID] = &mat
	copied := mat
	return &copied, nil
}

func (m *memoryRepo) GetMaterial(_ context.Context, id int64) (*RawMaterial, error) {
	mat, ok := m.materials[id]
	if !ok {
		return nil, shared.NotFound("material", id)
	}
	copied := *mat
	return &copied, nil
}

func (m *memoryRepo) ListMaterials(_ context.Context) ([]RawMaterial, error) {
	var out []RawMaterial
	for _, mat := range m.materials {
		out = append(out, *mat)
	}
	return out, nil
}

func (m *memoryRepo) UpdateMaterialCost(_ context.Context, id int64, costPerUnit float64) (*RawMaterial, error) {
	mat, ok := m.materials[id]
	if !ok {
		return nil, shared.NotFound("material", id)
	}
	mat.CostPerUnit = costPerUnit
	copied := *mat
	return &copied, nil
}

func (m *memoryRepo) DeleteMaterial(_ context.Context, id int64) error {
	if _, ok := m.materials[id]; !ok {
		return shared.NotFound("material", id)
	}
	delete(m.materials, id)
	return nil
}

func (m *memoryRepo) CreateRecipe(_ context.Context, r Recipe) (*Recipe, error) {
	r.ID = m.id()
	for i := range r.Lines {
		r.Lines[i].ID = m.id()
		r.Lines[i].RecipeID = r.ID
	}
	m.recipes[r.ID] = &r
	copied := r
	return &copied, nil
}

func (m *memoryRepo) GetRecipe(_ context.Context, id int64) (*Recipe, error) {
	r, ok := m.recipes[id]
	if !ok {
		return nil, shared.NotFound("recipe", id)
	}
	copied := *r
	return &copied, nil
}

func (m *memoryRepo) ListRecipes(_ context.Context) ([]Recipe, error) {
	var out []Recipe
	for _, r := range m.recipes {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memoryRepo) DeleteRecipe(_ context.Context, id int64) error {
	if _, ok := m.recipes[id]; !ok {
		return shared.NotFound("recipe", id)
	}
	delete(m.recipes, id)
	return nil
}

func (m *memoryRepo) CreateOrder(_ context.Context, o ProductionOrder) (*ProductionOrder, error) {
	o.ID = m.id()
	m.orders[o.ID] = &o
	copied := o
	return &copied, nil
}

func (m *memoryRepo) GetOrder(_ context.Context, id int64) (*ProductionOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, shared.NotFound("production order", id)
	}
	copied := *o
	return &copied, nil
}

func (m *memoryRepo) ListOrders(_ context.Context, req ListOrdersRequest) ([]ProductionOrder, error) {
	var out []ProductionOrder
	for _, o := range m.orders {
		if req.Status != "" && o.Status() != req.Status {
			continue
		}
		if req.RecipeID != 0 && o.RecipeID != req.RecipeID {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *memoryRepo) DeleteOrder(_ context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return shared.NotFound("production order", id)
	}
	delete(m.orders, id)
	return nil
}

func (m *memoryRepo) RecordRun(_ context.Context, orderID int64, run ProductionRun) (*ProductionRun, *ProductionOrder, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil, shared.NotFound("production order", orderID)
	}
	next := ledger.Round2(o.Produced + run.Quantity)
	if next > o.Planned {
		return nil, nil, ErrOverproduced
	}
	run.ID = m.id()
	m.runs[run.ID] = &run
	o.Produced = next
	created := run
	order := *o
	return &created, &order, nil
}

func (m *memoryRepo) DeleteRun(_ context.Context, runID int64) (*ProductionOrder, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, shared.NotFound("production run", runID)
	}
	delete(m.runs, runID)
	o := m.orders[run.OrderID]
	o.Produced = ledger.Round2(o.Produced - run.Quantity)
	if o.Produced < 0 {
		o.Produced = 0
	}
	copied := *o
	return &copied, nil
}

func (m *memoryRepo) ListRuns(_ context.Context, orderID int64) ([]ProductionRun, error) {
	var out []ProductionRun
	for _, run := range m.runs {
		if run.OrderID == orderID {
			out = append(out, *run)
		}
	}
	return out, nil
}

type fakeNumbers struct {
	count int
}

func (f *fakeNumbers) Next(_ context.Context, prefix string, year int) (string, error) {
	f.count++
	return fmt.Sprintf("%s-%d-%03d", prefix, year, f.count), nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, &fakeNumbers{}), repo
}

func seedRecipe(t *testing.T, svc *Service) *Recipe {
	t.Helper()
	ctx := context.Background()

	flour, err := svc.CreateMaterial(ctx, CreateMaterialInput{Name: "flour", Unit: "kg", CostPerUnit: 10})
	require.NoError(t, err)
	yeast, err := svc.CreateMaterial(ctx, CreateMaterialInput{Name: "yeast", Unit: "kg", CostPerUnit: 5})
	require.NoError(t, err)

	recipe, err := svc.CreateRecipe(ctx, CreateRecipeInput{
		Name:           "bread",
		OutputQuantity: 5,
		OutputUnit:     "loaf",
		LaborCost:      20,
		OverheadCost:   10,
		Lines: []RecipeLineInput{
			{MaterialID: flour.ID, Quantity: 2},
			{MaterialID: yeast.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	return recipe
}

func TestCreateRecipeSnapshotsMaterialCosts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	recipe := seedRecipe(t, svc)
	require.InDelta(t, 25, recipe.TotalMaterialCost, 0.001)
	require.InDelta(t, 55, recipe.TotalCost, 0.001)
	require.InDelta(t, 11.00, recipe.CostPerUnit, 0.001)

	// Raising the material price must not rewrite the saved recipe.
	_, err := svc.UpdateMaterialCost(ctx, recipe.Lines[0].MaterialID, 99)
	require.NoError(t, err)

	got, err := svc.GetRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	require.InDelta(t, 10, got.Lines[0].CostPerUnit, 0.001)
	require.InDelta(t, 11.00, got.CostPerUnit, 0.001)
}

func TestCreateRecipeRejectsZeroOutput(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mat, err := svc.CreateMaterial(ctx, CreateMaterialInput{Name: "sugar", CostPerUnit: 3})
	require.NoError(t, err)

	_, err = svc.CreateRecipe(ctx, CreateRecipeInput{
		Name:           "syrup",
		OutputQuantity: 0,
		Lines:          []RecipeLineInput{{MaterialID: mat.ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRecipeUnknownMaterial(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateRecipe(context.Background(), CreateRecipeInput{
		Name:           "ghost",
		OutputQuantity: 1,
		Lines:          []RecipeLineInput{{MaterialID: 42, Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateOrderValuesAtRecipeCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	recipe := seedRecipe(t, svc)
	order, err := svc.CreateOrder(ctx, CreateOrderInput{RecipeID: recipe.ID, Planned: 10})
	require.NoError(t, err)

	require.Equal(t, fmt.Sprintf("MO-%d-001", time.Now().Year()), order.Number)
	require.Equal(t, OrderPending, order.Status())
	require.InDelta(t, 11.00, order.UnitCost, 0.001)
	require.InDelta(t, 110, order.TotalCost(), 0.001)
}

func TestRunLifecycleDerivesStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	recipe := seedRecipe(t, svc)
	order, err := svc.CreateOrder(ctx, CreateOrderInput{RecipeID: recipe.ID, Planned: 100})
	require.NoError(t, err)

	res, err := svc.RecordRun(ctx, RecordRunInput{OrderID: order.ID, Quantity: 40})
	require.NoError(t, err)
	require.Equal(t, OrderPartial, res.Order.Status())
	require.InDelta(t, 60, res.Order.Remaining(), 0.001)

	res, err = svc.RecordRun(ctx, RecordRunInput{OrderID: order.ID, Quantity: 60})
	require.NoError(t, err)
	require.Equal(t, OrderCompleted, res.Order.Status())
	require.Zero(t, res.Order.Remaining())

	_, err = svc.RecordRun(ctx, RecordRunInput{OrderID: order.ID, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteRunReversesQuantity(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	recipe := seedRecipe(t, svc)
	order, err := svc.CreateOrder(ctx, CreateOrderInput{RecipeID: recipe.ID, Planned: 50})
	require.NoError(t, err)

	res, err := svc.RecordRun(ctx, RecordRunInput{OrderID: order.ID, Quantity: 50})
	require.NoError(t, err)
	require.Equal(t, OrderCompleted, res.Order.Status())

	updated, err := svc.DeleteRun(ctx, res.Run.ID)
	require.NoError(t, err)
	require.Zero(t, updated.Produced)
	require.Equal(t, OrderPending, updated.Status())
}

func TestRecordRunValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.RecordRun(ctx, RecordRunInput{OrderID: 0, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordRun(ctx, RecordRunInput{OrderID: 1, Quantity: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordRun(ctx, RecordRunInput{OrderID: 99, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
