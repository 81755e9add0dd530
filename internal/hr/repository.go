package hr

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for HR.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const employeeColumns = `id, name, email, phone, position, salary, hired_at, active, pin_hash, created_at, updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	var email, phone, position, pinHash pgtype.Text
	var salary pgtype.Float8

	err := row.Scan(
		&e.ID, &e.Name, &email, &phone, &position, &salary, &e.HiredAt, &e.Active, &pinHash,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Email = email.String
	e.Phone = phone.String
	e.Position = position.String
	e.Salary = salary.Float64
	e.PINHash = pinHash.String
	return &e, nil
}

// CreateEmployee inserts an employee.
func (r *Repository) CreateEmployee(ctx context.Context, e Employee) (*Employee, error) {
	const query = `
		INSERT INTO employees (name, email, phone, position, salary, hired_at, active, pin_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		e.Name, e.Email, e.Phone, e.Position, e.Salary, e.HiredAt, e.Active, e.PINHash,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if ledger.IsUniqueViolation(err) {
			return nil, shared.Invalid("email", "already in use")
		}
		return nil, shared.Remote("create employee", err)
	}
	return &e, nil
}

// GetEmployee retrieves an employee by ID.
func (r *Repository) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	e, err := scanEmployee(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("employee", id)
	}
	if err != nil {
		return nil, shared.Remote("get employee", err)
	}
	return e, nil
}

// ListEmployees returns employees ordered by name.
func (r *Repository) ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, shared.Remote("list employees", err)
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

// UpdateEmployee replaces the profile fields of an employee.
func (r *Repository) UpdateEmployee(ctx context.Context, id int64, input UpdateEmployeeInput) (*Employee, error) {
	query := `
		UPDATE employees
		SET name = $2, email = $3, phone = $4, position = $5, salary = $6, active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + employeeColumns

	e, err := scanEmployee(r.pool.QueryRow(ctx, query,
		id, input.Name, input.Email, input.Phone, input.Position, input.Salary, input.Active,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("employee", id)
	}
	if err != nil {
		return nil, shared.Remote("update employee", err)
	}
	return e, nil
}

// DeleteEmployee removes an employee.
func (r *Repository) DeleteEmployee(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return shared.Remote("delete employee", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFound("employee", id)
	}
	return nil
}

const leaveColumns = `id, number, employee_id, type, start_date, end_date, days, reason, state, created_at, updated_at`

func scanLeave(row pgx.Row) (*LeaveRequest, error) {
	var l LeaveRequest
	var number, leaveType, reason, state pgtype.Text

	err := row.Scan(
		&l.ID, &number, &l.EmployeeID, &leaveType, &l.StartDate, &l.EndDate, &l.Days,
		&reason, &state, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Number = number.String
	if l.Number == "" {
		l.Number = fmt.Sprintf("%s-%06d", LeaveNumberPrefix, l.ID)
	}
	l.Type = leaveType.String
	l.Reason = reason.String
	l.State = shared.NormalizeApprovalState(state.String)
	return &l, nil
}

// CreateLeave inserts a leave request.
func (r *Repository) CreateLeave(ctx context.Context, l LeaveRequest) (*LeaveRequest, error) {
	const query = `
		INSERT INTO leave_requests (number, employee_id, type, start_date, end_date, days, reason, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		l.Number, l.EmployeeID, l.Type, l.StartDate, l.EndDate, l.Days, l.Reason, string(l.State),
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, shared.Remote("create leave request", err)
	}
	return &l, nil
}

// GetLeave retrieves a leave request by ID.
func (r *Repository) GetLeave(ctx context.Context, id int64) (*LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE id = $1`
	l, err := scanLeave(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("leave request", id)
	}
	if err != nil {
		return nil, shared.Remote("get leave request", err)
	}
	return l, nil
}

// ListLeaves returns leave requests, newest first. A zero employeeID lists
// everything.
func (r *Repository) ListLeaves(ctx context.Context, employeeID int64) ([]LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests`
	args := []any{}
	if employeeID != 0 {
		query += ` WHERE employee_id = $1`
		args = append(args, employeeID)
	}
	query += ` ORDER BY start_date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Remote("list leave requests", err)
	}
	defer rows.Close()

	var leaves []LeaveRequest
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, *l)
	}
	return leaves, rows.Err()
}

// SetLeaveState stores a workflow transition.
func (r *Repository) SetLeaveState(ctx context.Context, id int64, state shared.ApprovalState) (*LeaveRequest, error) {
	query := `UPDATE leave_requests SET state = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + leaveColumns
	l, err := scanLeave(r.pool.QueryRow(ctx, query, id, string(state)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("leave request", id)
	}
	if err != nil {
		return nil, shared.Remote("set leave state", err)
	}
	return l, nil
}

// DeleteLeave removes a leave request.
func (r *Repository) DeleteLeave(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM leave_requests WHERE id = $1`, id)
	if err != nil {
		return shared.Remote("delete leave request", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFound("leave request", id)
	}
	return nil
}

const requestColumns = `id, number, employee_id, type, subject, details, amount, state, created_at, updated_at`

func scanRequest(row pgx.Row) (*EmployeeRequest, error) {
	var req EmployeeRequest
	var number, reqType, subject, details, state pgtype.Text
	var amount pgtype.Float8

	err := row.Scan(
		&req.ID, &number, &req.EmployeeID, &reqType, &subject, &details, &amount,
		&state, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Number = number.String
	if req.Number == "" {
		req.Number = fmt.Sprintf("%s-%06d", RequestNumberPrefix, req.ID)
	}
	req.Type = reqType.String
	req.Subject = subject.String
	req.Details = details.String
	req.Amount = amount.Float64
	req.State = shared.NormalizeApprovalState(state.String)
	return &req, nil
}

// CreateRequest inserts an employee request.
func (r *Repository) CreateRequest(ctx context.Context, req EmployeeRequest) (*EmployeeRequest, error) {
	const query = `
		INSERT INTO employee_requests (number, employee_id, type, subject, details, amount, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		req.Number, req.EmployeeID, req.Type, req.Subject, req.Details, req.Amount, string(req.State),
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, shared.Remote("create employee request", err)
	}
	return &req, nil
}

// GetRequest retrieves an employee request by ID.
func (r *Repository) GetRequest(ctx context.Context, id int64) (*EmployeeRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM employee_requests WHERE id = $1`
	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("employee request", id)
	}
	if err != nil {
		return nil, shared.Remote("get employee request", err)
	}
	return req, nil
}

// ListRequests returns employee requests, newest first.
func (r *Repository) ListRequests(ctx context.Context, employeeID int64) ([]EmployeeRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM employee_requests`
	args := []any{}
	if employeeID != 0 {
		query += ` WHERE employee_id = $1`
		args = append(args, employeeID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Remote("list employee requests", err)
	}
	defer rows.Close()

	var requests []EmployeeRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// SetRequestState stores a workflow transition.
func (r *Repository) SetRequestState(ctx context.Context, id int64, state shared.ApprovalState) (*EmployeeRequest, error) {
	query := `UPDATE employee_requests SET state = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + requestColumns
	req, err := scanRequest(r.pool.QueryRow(ctx, query, id, string(state)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("employee request", id)
	}
	if err != nil {
		return nil, shared.Remote("set request state", err)
	}
	return req, nil
}

// DeleteRequest removes an employee request.
func (r *Repository) DeleteRequest(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM employee_requests WHERE id = $1`, id)
	if err != nil {
		return shared.Remote("delete employee request", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFound("employee request", id)
	}
	return nil
}
