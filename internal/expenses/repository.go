package expenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/platform/db"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for expenses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const expenseColumns = `id, number, category, vendor, description, incurred_at,
	total, paid, override, notes, created_at, updated_at`

// effectiveStatusSQL mirrors ledger.EffectiveStatus for list filtering.
const effectiveStatusSQL = `CASE
	WHEN total > 0 AND paid >= total THEN 'PAID'
	WHEN paid > 0 THEN 'PARTIAL'
	WHEN override IN ('APPROVED','REJECTED') THEN override
	ELSE 'PENDING'
END`

// scanExpense normalizes one storage row: nullable text defaults to empty,
// amounts to zero, unknown overrides are discarded and a missing number is
// synthesized from the row id.
func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	var number, vendor, override, notes pgtype.Text
	var total, paid pgtype.Float8

	err := row.Scan(
		&e.ID, &number, &e.Category, &vendor, &e.Description, &e.IncurredAt,
		&total, &paid, &override, &notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Number = number.String
	if e.Number == "" {
		e.Number = fmt.Sprintf("%s-%06d", NumberPrefix, e.ID)
	}
	e.Vendor = vendor.String
	e.Notes = notes.String
	e.Total = total.Float64
	e.Paid = paid.Float64
	switch ledger.Status(override.String) {
	case ledger.StatusApproved, ledger.StatusRejected:
		e.Override = ledger.Status(override.String)
	}
	return &e, nil
}

// CreateExpense inserts an expense.
func (r *Repository) CreateExpense(ctx context.Context, e Expense) (*Expense, error) {
	const query = `
		INSERT INTO expenses (number, category, vendor, description, incurred_at, total, paid, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		e.Number, e.Category, e.Vendor, e.Description, e.IncurredAt, e.Total, e.Notes,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if ledger.IsUniqueViolation(err) {
			return nil, shared.Invalid("number", "already exists")
		}
		return nil, shared.Remote("create expense", err)
	}
	return &e, nil
}

// GetExpense retrieves an expense by ID.
func (r *Repository) GetExpense(ctx context.Context, id int64) (*Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`
	e, err := scanExpense(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("expense", id)
	}
	if err != nil {
		return nil, shared.Remote("get expense", err)
	}
	return e, nil
}

// ListExpenses returns expenses with optional filtering. Status filters run
// against the derived status, not a stored column.
func (r *Repository) ListExpenses(ctx context.Context, req ListExpensesRequest) ([]Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE 1=1`
	args := []any{}
	argNum := 1

	if req.Status != "" {
		query += fmt.Sprintf(" AND %s = $%d", effectiveStatusSQL, argNum)
		args = append(args, string(req.Status))
		argNum++
	}
	if req.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argNum)
		args = append(args, req.Category)
		argNum++
	}
	if !req.FromDate.IsZero() {
		query += fmt.Sprintf(" AND incurred_at >= $%d", argNum)
		args = append(args, req.FromDate)
		argNum++
	}
	if !req.ToDate.IsZero() {
		query += fmt.Sprintf(" AND incurred_at <= $%d", argNum)
		args = append(args, req.ToDate)
		argNum++
	}

	query += " ORDER BY incurred_at DESC, id DESC"
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
		return nil, shared.Remote("list expenses", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// DeleteExpense removes an expense and its payments.
func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM expense_payments WHERE expense_id = $1`, id); err != nil {
			return shared.Remote("delete expense payments", err)
		}
		result, err := tx.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
		if err != nil {
			return shared.Remote("delete expense", err)
		}
		if result.RowsAffected() == 0 {
			return shared.NotFound("expense", id)
		}
		return nil
	})
}

// SetOverride stores an explicit approve/reject decision.
func (r *Repository) SetOverride(ctx context.Context, id int64, override ledger.Status) (*Expense, error) {
	query := `UPDATE expenses SET override = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + expenseColumns
	e, err := scanExpense(r.pool.QueryRow(ctx, query, id, string(override)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("expense", id)
	}
	if err != nil {
		return nil, shared.Remote("set expense override", err)
	}
	return e, nil
}

// RecordPayment inserts the entry and increments the parent balance in one
// transaction, conditional on staying within total.
func (r *Repository) RecordPayment(ctx context.Context, expenseID int64, p Payment) (*Payment, *Expense, error) {
	var payment Payment
	var updated *Expense

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insertQuery = `
			INSERT INTO expense_payments (expense_id, amount, paid_at, method, reference, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			RETURNING id, created_at`

		payment = p
		if err := tx.QueryRow(ctx, insertQuery,
			expenseID, p.Amount, p.PaidAt, p.Method, p.Reference, p.Note,
		).Scan(&payment.ID, &payment.CreatedAt); err != nil {
			return shared.Remote("insert expense payment", err)
		}

		updateQuery := `
			UPDATE expenses
			SET paid = round((paid + $2)::numeric, 2), updated_at = NOW()
			WHERE id = $1 AND round((paid + $2)::numeric, 2) <= total
			RETURNING ` + expenseColumns

		e, err := scanExpense(tx.QueryRow(ctx, updateQuery, expenseID, p.Amount))
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := tx.QueryRow(ctx, `SELECT true FROM expenses WHERE id = $1`, expenseID).Scan(&exists); checkErr != nil {
				return shared.NotFound("expense", expenseID)
			}
			return ErrOverpaid
		}
		if err != nil {
			return shared.Remote("update expense balance", err)
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &payment, updated, nil
}

// DeletePayment removes a payment and reverses the parent increment.
func (r *Repository) DeletePayment(ctx context.Context, paymentID int64) (*Expense, error) {
	var updated *Expense
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var expenseID int64
		var amount float64
		err := tx.QueryRow(ctx,
			`SELECT expense_id, amount FROM expense_payments WHERE id = $1 FOR UPDATE`,
			paymentID,
		).Scan(&expenseID, &amount)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.NotFound("payment", paymentID)
		}
		if err != nil {
			return shared.Remote("get expense payment", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM expense_payments WHERE id = $1`, paymentID); err != nil {
			return shared.Remote("delete expense payment", err)
		}

		updateQuery := `
			UPDATE expenses
			SET paid = GREATEST(round((paid - $2)::numeric, 2), 0), updated_at = NOW()
			WHERE id = $1
			RETURNING ` + expenseColumns

		e, err := scanExpense(tx.QueryRow(ctx, updateQuery, expenseID, amount))
		if err != nil {
			return shared.Remote("reverse expense balance", err)
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListPayments returns payments for an expense in chronological order.
func (r *Repository) ListPayments(ctx context.Context, expenseID int64) ([]Payment, error) {
	const query = `
		SELECT id, expense_id, amount, paid_at, method, reference, note, created_at
		FROM expense_payments
		WHERE expense_id = $1
		ORDER BY paid_at`

	rows, err := r.pool.Query(ctx, query, expenseID)
	if err != nil {
		return nil, shared.Remote("list expense payments", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		var method, reference, note pgtype.Text
		err := rows.Scan(&p.ID, &p.ExpenseID, &p.Amount, &p.PaidAt, &method, &reference, &note, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		p.Method = method.String
		p.Reference = reference.String
		p.Note = note.String
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, color, created_at FROM expense_categories ORDER BY name`)
	if err != nil {
		return nil, shared.Remote("list categories", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		var color pgtype.Text
		if err := rows.Scan(&c.ID, &c.Name, &color, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Color = color.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a category; duplicate names surface as validation
// errors.
func (r *Repository) CreateCategory(ctx context.Context, name, color string) (*Category, error) {
	var c Category
	c.Name = name
	c.Color = color
	err := r.pool.QueryRow(ctx,
		`INSERT INTO expense_categories (name, color, created_at) VALUES ($1, $2, NOW()) RETURNING id, created_at`,
		name, color,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if ledger.IsUniqueViolation(err) {
			return nil, shared.Invalid("name", "category already exists")
		}
		return nil, shared.Remote("create category", err)
	}
	return &c, nil
}
