package manufacturing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-bms/atlas-bms/internal/platform/db"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for manufacturing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateMaterial inserts a raw material.
func (r *Repository) CreateMaterial(ctx context.Context, m RawMaterial) (*RawMaterial, error) {
	const query = `
		INSERT INTO raw_materials (name, unit, cost_per_unit, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, m.Name, m.Unit, m.CostPerUnit).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, shared.Remote("create material", err)
	}
	return &m, nil
}

// GetMaterial retrieves a raw material by ID.
func (r *Repository) GetMaterial(ctx context.Context, id int64) (*RawMaterial, error) {
	const query = `SELECT id, name, unit, cost_per_unit, created_at, updated_at FROM raw_materials WHERE id = $1`

	var m RawMaterial
	var cost pgtype.Float8
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&m.ID, &m.Name, &m.Unit, &cost, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("material", id)
	}
	if err != nil {
		return nil, shared.Remote("get material", err)
	}
	m.CostPerUnit = cost.Float64
	return &m, nil
}

// ListMaterials returns all raw materials ordered by name.
func (r *Repository) ListMaterials(ctx context.Context) ([]RawMaterial, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, unit, cost_per_unit, created_at, updated_at FROM raw_materials ORDER BY name`)
	if err != nil {
		return nil, shared.Remote("list materials", err)
	}
	defer rows.Close()

	var materials []RawMaterial
	for rows.Next() {
		var m RawMaterial
		var cost pgtype.Float8
		if err := rows.Scan(&m.ID, &m.Name, &m.Unit, &cost, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.CostPerUnit = cost.Float64
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// UpdateMaterialCost changes the current unit cost of a material.
func (r *Repository) UpdateMaterialCost(ctx context.Context, id int64, costPerUnit float64) (*RawMaterial, error) {
	const query = `
		UPDATE raw_materials SET cost_per_unit = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, unit, cost_per_unit, created_at, updated_at`

	var m RawMaterial
	err := r.pool.QueryRow(ctx, query, id, costPerUnit).
		Scan(&m.ID, &m.Name, &m.Unit, &m.CostPerUnit, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("material", id)
	}
	if err != nil {
		return nil, shared.Remote("update material cost", err)
	}
	return &m, nil
}

// DeleteMaterial removes a raw material. Materials referenced by recipe lines
// stay deletable; the lines keep their snapshot.
func (r *Repository) DeleteMaterial(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM raw_materials WHERE id = $1`, id)
	if err != nil {
		return shared.Remote("delete material", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFound("material", id)
	}
	return nil
}

// CreateRecipe inserts a recipe and its lines in one transaction.
func (r *Repository) CreateRecipe(ctx context.Context, recipe Recipe) (*Recipe, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const recipeQuery = `
			INSERT INTO recipes (name, output_quantity, output_unit, labor_cost, overhead_cost,
				total_material_cost, total_cost, cost_per_unit, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			RETURNING id, created_at, updated_at`

		err := tx.QueryRow(ctx, recipeQuery,
			recipe.Name, recipe.OutputQuantity, recipe.OutputUnit, recipe.LaborCost, recipe.OverheadCost,
			recipe.TotalMaterialCost, recipe.TotalCost, recipe.CostPerUnit, recipe.Notes,
		).Scan(&recipe.ID, &recipe.CreatedAt, &recipe.UpdatedAt)
		if err != nil {
			return shared.Remote("insert recipe", err)
		}

		const lineQuery = `
			INSERT INTO recipe_lines (recipe_id, material_id, material_name, quantity, cost_per_unit, total_cost)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`

		for i := range recipe.Lines {
			line := &recipe.Lines[i]
			line.RecipeID = recipe.ID
			err := tx.QueryRow(ctx, lineQuery,
				recipe.ID, line.MaterialID, line.MaterialName, line.Quantity, line.CostPerUnit, line.TotalCost,
			).Scan(&line.ID)
			if err != nil {
				return shared.Remote("insert recipe line", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

const recipeColumns = `id, name, output_quantity, output_unit, labor_cost, overhead_cost,
	total_material_cost, total_cost, cost_per_unit, notes, created_at, updated_at`

func scanRecipe(row pgx.Row) (*Recipe, error) {
	var rec Recipe
	var outputUnit, notes pgtype.Text
	var labor, overhead, materials, total, perUnit pgtype.Float8

	err := row.Scan(
		&rec.ID, &rec.Name, &rec.OutputQuantity, &outputUnit, &labor, &overhead,
		&materials, &total, &perUnit, &notes, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.OutputUnit = outputUnit.String
	rec.Notes = notes.String
	rec.LaborCost = labor.Float64
	rec.OverheadCost = overhead.Float64
	rec.TotalMaterialCost = materials.Float64
	rec.TotalCost = total.Float64
	rec.CostPerUnit = perUnit.Float64
	return &rec, nil
}

// GetRecipe retrieves a recipe with its lines.
func (r *Repository) GetRecipe(ctx context.Context, id int64) (*Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`
	rec, err := scanRecipe(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("recipe", id)
	}
	if err != nil {
		return nil, shared.Remote("get recipe", err)
	}

	lines, err := r.recipeLines(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Lines = lines
	return rec, nil
}

func (r *Repository) recipeLines(ctx context.Context, recipeID int64) ([]RecipeLine, error) {
	const query = `
		SELECT id, recipe_id, material_id, material_name, quantity, cost_per_unit, total_cost
		FROM recipe_lines
		WHERE recipe_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, recipeID)
	if err != nil {
		return nil, shared.Remote("list recipe lines", err)
	}
	defer rows.Close()

	var lines []RecipeLine
	for rows.Next() {
		var line RecipeLine
		err := rows.Scan(&line.ID, &line.RecipeID, &line.MaterialID, &line.MaterialName,
			&line.Quantity, &line.CostPerUnit, &line.TotalCost)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListRecipes returns all recipes without their lines.
func (r *Repository) ListRecipes(ctx context.Context) ([]Recipe, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recipeColumns+` FROM recipes ORDER BY name`)
	if err != nil {
		return nil, shared.Remote("list recipes", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, *rec)
	}
	return recipes, rows.Err()
}

// DeleteRecipe removes a recipe and its lines.
func (r *Repository) DeleteRecipe(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM recipe_lines WHERE recipe_id = $1`, id); err != nil {
			return shared.Remote("delete recipe lines", err)
		}
		result, err := tx.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
		if err != nil {
			return shared.Remote("delete recipe", err)
		}
		if result.RowsAffected() == 0 {
			return shared.NotFound("recipe", id)
		}
		return nil
	})
}

const orderColumns = `id, number, recipe_id, recipe_name, planned, produced, unit_cost,
	due_at, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (*ProductionOrder, error) {
	var o ProductionOrder
	var number, notes pgtype.Text
	var produced, unitCost pgtype.Float8
	var dueAt pgtype.Timestamptz

	err := row.Scan(
		&o.ID, &number, &o.RecipeID, &o.RecipeName, &o.Planned, &produced, &unitCost,
		&dueAt, &notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Number = number.String
	if o.Number == "" {
		o.Number = fmt.Sprintf("%s-%06d", OrderNumberPrefix, o.ID)
	}
	o.Produced = produced.Float64
	o.UnitCost = unitCost.Float64
	o.DueAt = dueAt.Time
	o.Notes = notes.String
	return &o, nil
}

// CreateOrder inserts a production order.
func (r *Repository) CreateOrder(ctx context.Context, o ProductionOrder) (*ProductionOrder, error) {
	const query = `
		INSERT INTO production_orders (number, recipe_id, recipe_name, planned, produced, unit_cost, due_at, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		o.Number, o.RecipeID, o.RecipeName, o.Planned, o.UnitCost, o.DueAt, o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, shared.Remote("create production order", err)
	}
	return &o, nil
}

// GetOrder retrieves a production order by ID.
func (r *Repository) GetOrder(ctx context.Context, id int64) (*ProductionOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders WHERE id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("production order", id)
	}
	if err != nil {
		return nil, shared.Remote("get production order", err)
	}
	return o, nil
}

// orderStatusSQL mirrors DeriveOrderStatus for list filtering.
const orderStatusSQL = `CASE
	WHEN planned > 0 AND produced >= planned THEN 'COMPLETED'
	WHEN produced > 0 THEN 'PARTIAL'
	ELSE 'PENDING'
END`

// ListOrders returns production orders with optional filtering.
func (r *Repository) ListOrders(ctx context.Context, req ListOrdersRequest) ([]ProductionOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders WHERE 1=1`
	args := []any{}
	argNum := 1

	if req.Status != "" {
		query += fmt.Sprintf(" AND %s = $%d", orderStatusSQL, argNum)
		args = append(args, string(req.Status))
		argNum++
	}
	if req.RecipeID != 0 {
		query += fmt.Sprintf(" AND recipe_id = $%d", argNum)
		args = append(args, req.RecipeID)
		argNum++
	}

	query += " ORDER BY created_at DESC, id DESC"
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Remote("list production orders", err)
	}
	defer rows.Close()

	var orders []ProductionOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// DeleteOrder removes an order and its runs.
func (r *Repository) DeleteOrder(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM production_runs WHERE order_id = $1`, id); err != nil {
			return shared.Remote("delete production runs", err)
		}
		result, err := tx.Exec(ctx, `DELETE FROM production_orders WHERE id = $1`, id)
		if err != nil {
			return shared.Remote("delete production order", err)
		}
		if result.RowsAffected() == 0 {
			return shared.NotFound("production order", id)
		}
		return nil
	})
}

// RecordRun inserts the run and increments the order's produced quantity in
// one transaction, conditional on staying within the planned quantity.
func (r *Repository) RecordRun(ctx context.Context, orderID int64, run ProductionRun) (*ProductionRun, *ProductionOrder, error) {
	var created ProductionRun
	var updated *ProductionOrder

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insertQuery = `
			INSERT INTO production_runs (order_id, quantity, run_at, note, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			RETURNING id, created_at`

		created = run
		if err := tx.QueryRow(ctx, insertQuery,
			orderID, run.Quantity, run.RunAt, run.Note,
		).Scan(&created.ID, &created.CreatedAt); err != nil {
			return shared.Remote("insert production run", err)
		}

		updateQuery := `
			UPDATE production_orders
			SET produced = round((produced + $2)::numeric, 2), updated_at = NOW()
			WHERE id = $1 AND round((produced + $2)::numeric, 2) <= planned
			RETURNING ` + orderColumns

		o, err := scanOrder(tx.QueryRow(ctx, updateQuery, orderID, run.Quantity))
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := tx.QueryRow(ctx, `SELECT true FROM production_orders WHERE id = $1`, orderID).Scan(&exists); checkErr != nil {
				return shared.NotFound("production order", orderID)
			}
			return ErrOverproduced
		}
		if err != nil {
			return shared.Remote("update order quantity", err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &created, updated, nil
}

// DeleteRun removes a run and reverses the produced increment.
func (r *Repository) DeleteRun(ctx context.Context, runID int64) (*ProductionOrder, error) {
	var updated *ProductionOrder
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var orderID int64
		var quantity float64
		err := tx.QueryRow(ctx,
			`SELECT order_id, quantity FROM production_runs WHERE id = $1 FOR UPDATE`,
			runID,
		).Scan(&orderID, &quantity)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.NotFound("production run", runID)
		}
		if err != nil {
			return shared.Remote("get production run", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM production_runs WHERE id = $1`, runID); err != nil {
			return shared.Remote("delete production run", err)
		}

		updateQuery := `
			UPDATE production_orders
			SET produced = GREATEST(round((produced - $2)::numeric, 2), 0), updated_at = NOW()
			WHERE id = $1
			RETURNING ` + orderColumns

		o, err := scanOrder(tx.QueryRow(ctx, updateQuery, orderID, quantity))
		if err != nil {
			return shared.Remote("reverse order quantity", err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListRuns returns runs for an order in chronological order.
func (r *Repository) ListRuns(ctx context.Context, orderID int64) ([]ProductionRun, error) {
	const query = `
		SELECT id, order_id, quantity, run_at, note, created_at
		FROM production_runs
		WHERE order_id = $1
		ORDER BY run_at`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, shared.Remote("list production runs", err)
	}
	defer rows.Close()

	var runs []ProductionRun
	for rows.Next() {
		var run ProductionRun
		var note pgtype.Text
		if err := rows.Scan(&run.ID, &run.OrderID, &run.Quantity, &run.RunAt, &note, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Note = note.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
