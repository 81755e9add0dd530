// Package invoices manages customer invoices, their typed line items and the
// payment ledger entries recorded against them.
package invoices

import (
	"time"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
)

// Invoice is a ledger parent: its paid amount and status move only through
// payment entries.
type Invoice struct {
	ID            int64
	Number        string
	CustomerName  string
	CustomerEmail string
	IssueDate     time.Time
	DueAt         time.Time
	Subtotal      float64
	Discount      float64
	TaxAmount     float64
	Total         float64
	Paid          float64
	Status        ledger.Status
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Remaining returns the open balance.
func (i Invoice) Remaining() float64 {
	return ledger.Remaining(i.Total, i.Paid)
}

// Line is a stored line item with its money breakdown snapshotted at
// computation time.
type Line struct {
	ID             int64
	InvoiceID      int64
	Description    string
	Quantity       float64
	UnitPrice      float64
	DiscountPct    float64
	DiscountAmount float64
	TaxExempt      bool
	Subtotal       float64
	Discount       float64
	TaxAmount      float64
	Total          float64
}

// Payment is an immutable ledger entry against one invoice. There is no edit
// path: create and delete only.
type Payment struct {
	ID        int64
	Number    string
	InvoiceID int64
	Amount    float64
	PaidAt    time.Time
	Method    string
	Reference string
	Note      string
	CreatedAt time.Time
}

// InvoiceWithDetails bundles an invoice with its lines and payments.
type InvoiceWithDetails struct {
	Invoice
	Lines    []Line
	Payments []Payment
}

// CreateInvoiceInput carries validated form input for a new invoice.
type CreateInvoiceInput struct {
	CustomerName  string
	CustomerEmail string
	IssueDate     time.Time
	DueDate       time.Time
	Notes         string
	Lines         []ledger.LineInput
}

// InvoiceRecord is the fully-computed payload handed to the repository.
type InvoiceRecord struct {
	Number        string
	CustomerName  string
	CustomerEmail string
	IssueDate     time.Time
	DueAt         time.Time
	Totals        ledger.Totals
	Notes         string
	Lines         []ledger.LineInput
	LineTotals    []ledger.LineTotals
}

// RecordPaymentInput carries form input for a payment against an invoice.
type RecordPaymentInput struct {
	InvoiceID      int64
	Amount         float64
	PaidAt         time.Time
	Method         string
	Reference      string
	Note           string
	IdempotencyKey string
}

// PaymentResult pairs the created entry with the refreshed parent.
type PaymentResult struct {
	Payment Payment
	Invoice Invoice
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	Status       ledger.Status
	CustomerName string
	FromDate     time.Time
	ToDate       time.Time
	Limit        int
	Offset       int
}
