// Package expenses manages company expenses, their payment ledger and the
// expense category catalogue.
package expenses

import (
	"time"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
)

// Expense is a ledger parent. The stored approval override only matters
// while nothing has been paid; after that the amounts decide the status.
type Expense struct {
	ID          int64
	Number      string
	Category    string
	Vendor      string
	Description string
	IncurredAt  time.Time
	Total       float64
	Paid        float64
	Override    ledger.Status
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Status resolves the effective status from amounts and override.
func (e Expense) Status() ledger.Status {
	return ledger.EffectiveStatus(e.Total, e.Paid, e.Override)
}

// Remaining returns the open balance.
func (e Expense) Remaining() float64 {
	return ledger.Remaining(e.Total, e.Paid)
}

// Payment is an immutable ledger entry against one expense.
type Payment struct {
	ID        int64
	ExpenseID int64
	Amount    float64
	PaidAt    time.Time
	Method    string
	Reference string
	Note      string
	CreatedAt time.Time
}

// Category is an expense category with its display color. Categories are
// rows, not a mutable in-process map, so every instance sees the same set.
type Category struct {
	ID        int64
	Name      string
	Color     string
	CreatedAt time.Time
}

// CreateExpenseInput carries validated form input for a new expense.
type CreateExpenseInput struct {
	Category    string
	Vendor      string
	Description string
	IncurredAt  time.Time
	Total       float64
	Notes       string
}

// RecordPaymentInput carries form input for a payment against an expense.
type RecordPaymentInput struct {
	ExpenseID      int64
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
	Expense Expense
}

// ListExpensesRequest filters expense listings.
type ListExpensesRequest struct {
	Status   ledger.Status
	Category string
	FromDate time.Time
	ToDate   time.Time
	Limit    int
	Offset   int
}
