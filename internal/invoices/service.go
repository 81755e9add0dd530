package invoices

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// NumberPrefix is the sequenced identifier prefix for invoices.
const NumberPrefix = "INV"

// ErrOverpaid is returned by repositories when a payment would push the paid
// amount past the invoice total.
var ErrOverpaid = errors.New("invoices: payment exceeds remaining balance")

// RepositoryPort defines data access for invoices.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, rec InvoiceRecord) (*Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	GetInvoiceWithDetails(ctx context.Context, id int64) (*InvoiceWithDetails, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error)
	DeleteInvoice(ctx context.Context, id int64) error
	RecordPayment(ctx context.Context, invoiceID int64, p Payment) (*Payment, *Invoice, error)
	DeletePayment(ctx context.Context, paymentID int64) (*Invoice, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
}

// NumberSource reserves sequenced identifiers.
type NumberSource interface {
	Next(ctx context.Context, prefix string, year int) (string, error)
}

// IdempotencyChecker guards against double-submitted payments.
type IdempotencyChecker interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service handles invoice business logic.
type Service struct {
	repo        RepositoryPort
	numbers     NumberSource
	idempotency IdempotencyChecker
	taxRatePct  float64
}

// NewService builds a Service. A taxRatePct of zero falls back to the
// configured default rate.
func NewService(repo RepositoryPort, numbers NumberSource, idempotency IdempotencyChecker, taxRatePct float64) *Service {
	if taxRatePct <= 0 {
		taxRatePct = ledger.DefaultTaxRatePct
	}
	return &Service{repo: repo, numbers: numbers, idempotency: idempotency, taxRatePct: taxRatePct}
}

// CreateInvoice validates the input, computes all monetary aggregates
// server-side and persists the invoice with its lines.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*InvoiceWithDetails, error) {
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, shared.Invalid("customerName", "required")
	}
	issue := input.IssueDate
	if issue.IsZero() {
		issue = time.Now()
	}
	due := input.DueDate
	if due.IsZero() {
		due = issue.AddDate(0, 1, 0)
	}
	if due.Before(issue) {
		return nil, shared.Invalid("dueDate", "must not precede the issue date")
	}

	totals, lineTotals, err := ledger.ComputeTotals(input.Lines, s.taxRatePct)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, NumberPrefix, issue.Year())
	if err != nil {
		return nil, err
	}

	inv, err := s.repo.CreateInvoice(ctx, InvoiceRecord{
		Number:        number,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		IssueDate:     issue,
		DueAt:         due,
		Totals:        totals,
		Notes:         input.Notes,
		Lines:         input.Lines,
		LineTotals:    lineTotals,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetInvoiceWithDetails(ctx, inv.ID)
}

// GetInvoice returns one invoice with lines and payments.
func (s *Service) GetInvoice(ctx context.Context, id int64) (*InvoiceWithDetails, error) {
	return s.repo.GetInvoiceWithDetails(ctx, id)
}

// ListInvoices returns invoices matching the filter.
func (s *Service) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 100
	}
	return s.repo.ListInvoices(ctx, req)
}

// DeleteInvoice removes an invoice after explicit confirmation upstream.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	return s.repo.DeleteInvoice(ctx, id)
}

// RecordPayment validates and records a payment entry, updating the parent
// balance and status in the same transaction. Validation happens before any
// write; a failed write leaves the invoice untouched.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*PaymentResult, error) {
	if input.InvoiceID == 0 {
		return nil, shared.Invalid("invoiceId", "required")
	}
	if input.Amount <= 0 {
		return nil, shared.Invalid("amount", "must be greater than zero")
	}
	if strings.TrimSpace(input.Method) == "" {
		return nil, shared.Invalid("method", "required")
	}

	inv, err := s.repo.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		return nil, err
	}
	amount := ledger.Round2(input.Amount)
	if remaining := inv.Remaining(); amount > remaining {
		return nil, shared.Invalid("amount", "exceeds remaining balance")
	}

	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "invoices"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, shared.Invalid("idempotencyKey", "payment already recorded")
			}
			return nil, err
		}
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	number, err := s.numbers.Next(ctx, "PAY", paidAt.Year())
	if err != nil {
		return nil, err
	}

	payment, updated, err := s.repo.RecordPayment(ctx, input.InvoiceID, Payment{
		Number:    number,
		InvoiceID: input.InvoiceID,
		Amount:    amount,
		PaidAt:    paidAt,
		Method:    strings.TrimSpace(input.Method),
		Reference: strings.TrimSpace(input.Reference),
		Note:      input.Note,
	})
	if err != nil {
		if input.IdempotencyKey != "" && s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		if errors.Is(err, ErrOverpaid) {
			return nil, shared.Invalid("amount", "exceeds remaining balance")
		}
		return nil, err
	}
	return &PaymentResult{Payment: *payment, Invoice: *updated}, nil
}

// DeletePayment removes a payment entry and reverses its effect on the
// parent balance within one transaction.
func (s *Service) DeletePayment(ctx context.Context, paymentID int64) (*Invoice, error) {
	if paymentID == 0 {
		return nil, shared.Invalid("paymentId", "required")
	}
	return s.repo.DeletePayment(ctx, paymentID)
}

// ListPayments returns the payment ledger for an invoice.
func (s *Service) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, invoiceID)
}
