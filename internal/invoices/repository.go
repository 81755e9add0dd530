package invoices

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

// Repository provides PostgreSQL backed persistence for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, number, customer_name, customer_email, issue_date, due_at,
	subtotal, discount, tax_amount, total, paid, status, notes, created_at, updated_at`

// scanInvoice normalizes one storage row into a fully-typed record. Nullable
// text defaults to empty, numeric nils to zero, unknown statuses to Pending
// and a missing number is synthesized from the row id.
func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var number, email, notes, status pgtype.Text
	var subtotal, discount, taxAmount, total, paid pgtype.Float8

	err := row.Scan(
		&inv.ID, &number, &inv.CustomerName, &email, &inv.IssueDate, &inv.DueAt,
		&subtotal, &discount, &taxAmount, &total, &paid, &status, &notes,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Number = number.String
	if inv.Number == "" {
		inv.Number = fmt.Sprintf("%s-%06d", NumberPrefix, inv.ID)
	}
	inv.CustomerEmail = email.String
	inv.Notes = notes.String
	inv.Subtotal = subtotal.Float64
	inv.Discount = discount.Float64
	inv.TaxAmount = taxAmount.Float64
	inv.Total = total.Float64
	inv.Paid = paid.Float64
	inv.Status = ledger.NormalizeStatus(status.String)
	return &inv, nil
}

// CreateInvoice inserts an invoice and its lines in one transaction.
func (r *Repository) CreateInvoice(ctx context.Context, rec InvoiceRecord) (*Invoice, error) {
	var inv Invoice
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
			INSERT INTO invoices (
				number, customer_name, customer_email, issue_date, due_at,
				subtotal, discount, tax_amount, total, paid, status, notes,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 'PENDING', $10, NOW(), NOW())
			RETURNING id, created_at, updated_at`

		err := tx.QueryRow(ctx, query,
			rec.Number, rec.CustomerName, rec.CustomerEmail, rec.IssueDate, rec.DueAt,
			rec.Totals.Subtotal, rec.Totals.Discount, rec.Totals.VAT, rec.Totals.GrandTotal,
			rec.Notes,
		).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			if ledger.IsUniqueViolation(err) {
				return shared.Invalid("number", "already exists")
			}
			return shared.Remote("create invoice", err)
		}

		const lineQuery = `
			INSERT INTO invoice_lines (
				invoice_id, description, quantity, unit_price, discount_pct,
				discount_amount, tax_exempt, subtotal, discount, tax_amount, total, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`
		for i, line := range rec.Lines {
			lt := rec.LineTotals[i]
			if _, err := tx.Exec(ctx, lineQuery,
				inv.ID, line.Description, line.Quantity, line.UnitPrice,
				line.DiscountPct, line.DiscountAmount, line.TaxExempt,
				lt.Gross, lt.Discount, lt.VAT, lt.Total,
			); err != nil {
				return shared.Remote("create invoice line", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv.Number = rec.Number
	inv.CustomerName = rec.CustomerName
	inv.CustomerEmail = rec.CustomerEmail
	inv.IssueDate = rec.IssueDate
	inv.DueAt = rec.DueAt
	inv.Subtotal = rec.Totals.Subtotal
	inv.Discount = rec.Totals.Discount
	inv.TaxAmount = rec.Totals.VAT
	inv.Total = rec.Totals.GrandTotal
	inv.Status = ledger.StatusPending
	inv.Notes = rec.Notes
	return &inv, nil
}

// GetInvoice retrieves an invoice by ID.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("invoice", id)
	}
	if err != nil {
		return nil, shared.Remote("get invoice", err)
	}
	return inv, nil
}

// GetInvoiceWithDetails retrieves an invoice with lines and payments.
func (r *Repository) GetInvoiceWithDetails(ctx context.Context, id int64) (*InvoiceWithDetails, error) {
	inv, err := r.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := r.listLines(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := r.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceWithDetails{Invoice: *inv, Lines: lines, Payments: payments}, nil
}

// ListInvoices returns invoices with optional filtering.
func (r *Repository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := []any{}
	argNum := 1

	if req.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(req.Status))
		argNum++
	}
	if req.CustomerName != "" {
		query += fmt.Sprintf(" AND customer_name ILIKE $%d", argNum)
		args = append(args, "%"+req.CustomerName+"%")
		argNum++
	}
	if !req.FromDate.IsZero() {
		query += fmt.Sprintf(" AND issue_date >= $%d", argNum)
		args = append(args, req.FromDate)
		argNum++
	}
	if !req.ToDate.IsZero() {
		query += fmt.Sprintf(" AND issue_date <= $%d", argNum)
		args = append(args, req.ToDate)
		argNum++
	}

	query += " ORDER BY created_at DESC"
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
		return nil, shared.Remote("list invoices", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func (r *Repository) listLines(ctx context.Context, invoiceID int64) ([]Line, error) {
	const query = `
		SELECT id, invoice_id, description, quantity, unit_price, discount_pct,
			discount_amount, tax_exempt, subtotal, discount, tax_amount, total
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, shared.Remote("list invoice lines", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var line Line
		var description pgtype.Text
		err := rows.Scan(
			&line.ID, &line.InvoiceID, &description, &line.Quantity, &line.UnitPrice,
			&line.DiscountPct, &line.DiscountAmount, &line.TaxExempt,
			&line.Subtotal, &line.Discount, &line.TaxAmount, &line.Total,
		)
		if err != nil {
			return nil, err
		}
		line.Description = description.String
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// DeleteInvoice removes an invoice, its lines and payments.
func (r *Repository) DeleteInvoice(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_payments WHERE invoice_id = $1`, id); err != nil {
			return shared.Remote("delete invoice payments", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, id); err != nil {
			return shared.Remote("delete invoice lines", err)
		}
		result, err := tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
		if err != nil {
			return shared.Remote("delete invoice", err)
		}
		if result.RowsAffected() == 0 {
			return shared.NotFound("invoice", id)
		}
		return nil
	})
}

// RecordPayment inserts the payment entry and increments the parent balance
// in one transaction. The parent update is conditional on the new paid amount
// staying within total, so concurrent submissions cannot overshoot and no
// client-computed running total is ever written back.
func (r *Repository) RecordPayment(ctx context.Context, invoiceID int64, p Payment) (*Payment, *Invoice, error) {
	var payment Payment
	var updated *Invoice

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insertQuery = `
			INSERT INTO invoice_payments (number, invoice_id, amount, paid_at, method, reference, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			RETURNING id, created_at`

		payment = p
		if err := tx.QueryRow(ctx, insertQuery,
			p.Number, invoiceID, p.Amount, p.PaidAt, p.Method, p.Reference, p.Note,
		).Scan(&payment.ID, &payment.CreatedAt); err != nil {
			return shared.Remote("insert payment", err)
		}

		const updateQuery = `
			UPDATE invoices
			SET paid = round((paid + $2)::numeric, 2),
				status = CASE
					WHEN paid + $2 >= total AND total > 0 THEN 'PAID'
					WHEN paid + $2 > 0 THEN 'PARTIAL'
					ELSE 'PENDING'
				END,
				updated_at = NOW()
			WHERE id = $1 AND round((paid + $2)::numeric, 2) <= total
			RETURNING ` + invoiceColumns

		inv, err := scanInvoice(tx.QueryRow(ctx, updateQuery, invoiceID, p.Amount))
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := tx.QueryRow(ctx, `SELECT true FROM invoices WHERE id = $1`, invoiceID).Scan(&exists); checkErr != nil {
				return shared.NotFound("invoice", invoiceID)
			}
			return ErrOverpaid
		}
		if err != nil {
			return shared.Remote("update invoice balance", err)
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &payment, updated, nil
}

// DeletePayment removes a payment and reverses the parent increment in the
// same transaction.
func (r *Repository) DeletePayment(ctx context.Context, paymentID int64) (*Invoice, error) {
	var updated *Invoice
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var invoiceID int64
		var amount float64
		err := tx.QueryRow(ctx,
			`SELECT invoice_id, amount FROM invoice_payments WHERE id = $1 FOR UPDATE`,
			paymentID,
		).Scan(&invoiceID, &amount)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.NotFound("payment", paymentID)
		}
		if err != nil {
			return shared.Remote("get payment", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM invoice_payments WHERE id = $1`, paymentID); err != nil {
			return shared.Remote("delete payment", err)
		}

		const updateQuery = `
			UPDATE invoices
			SET paid = GREATEST(round((paid - $2)::numeric, 2), 0),
				status = CASE
					WHEN paid - $2 >= total AND total > 0 THEN 'PAID'
					WHEN paid - $2 > 0 THEN 'PARTIAL'
					ELSE 'PENDING'
				END,
				updated_at = NOW()
			WHERE id = $1
			RETURNING ` + invoiceColumns

		inv, err := scanInvoice(tx.QueryRow(ctx, updateQuery, invoiceID, amount))
		if err != nil {
			return shared.Remote("reverse invoice balance", err)
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListPayments returns payments for an invoice in chronological order.
func (r *Repository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	const query = `
		SELECT id, number, invoice_id, amount, paid_at, method, reference, note, created_at
		FROM invoice_payments
		WHERE invoice_id = $1
		ORDER BY paid_at`

	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, shared.Remote("list payments", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		var method, reference, note pgtype.Text
		err := rows.Scan(&p.ID, &p.Number, &p.InvoiceID, &p.Amount, &p.PaidAt, &method, &reference, &note, &p.CreatedAt)
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
