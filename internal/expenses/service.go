package expenses

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// NumberPrefix is the sequenced identifier prefix for expenses.
const NumberPrefix = "EXP"

// approvalModule names this domain in the approval log.
const approvalModule = "expenses"

// ErrOverpaid is returned by repositories when a payment would push the paid
// amount past the expense total.
var ErrOverpaid = errors.New("expenses: payment exceeds remaining balance")

// RepositoryPort defines data access for expenses.
type RepositoryPort interface {
	CreateExpense(ctx context.Context, e Expense) (*Expense, error)
	GetExpense(ctx context.Context, id int64) (*Expense, error)
	ListExpenses(ctx context.Context, req ListExpensesRequest) ([]Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	SetOverride(ctx context.Context, id int64, override ledger.Status) (*Expense, error)
	RecordPayment(ctx context.Context, expenseID int64, p Payment) (*Payment, *Expense, error)
	DeletePayment(ctx context.Context, paymentID int64) (*Expense, error)
	ListPayments(ctx context.Context, expenseID int64) ([]Payment, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name, color string) (*Category, error)
}

// NumberSource reserves sequenced identifiers.
type NumberSource interface {
	Next(ctx context.Context, prefix string, year int) (string, error)
}

// ApprovalSink records approve/reject actions.
type ApprovalSink interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// IdempotencyChecker guards against double-submitted payments.
type IdempotencyChecker interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service handles expense business logic.
type Service struct {
	repo        RepositoryPort
	numbers     NumberSource
	approvals   ApprovalSink
	idempotency IdempotencyChecker
	categories  *CategoryCache
}

// NewService builds a Service.
func NewService(repo RepositoryPort, numbers NumberSource, approvals ApprovalSink, idempotency IdempotencyChecker, categories *CategoryCache) *Service {
	return &Service{repo: repo, numbers: numbers, approvals: approvals, idempotency: idempotency, categories: categories}
}

// CreateExpense validates and persists a new expense.
func (s *Service) CreateExpense(ctx context.Context, input CreateExpenseInput) (*Expense, error) {
	if strings.TrimSpace(input.Category) == "" {
		return nil, shared.Invalid("category", "required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, shared.Invalid("description", "required")
	}
	if input.Total <= 0 {
		return nil, shared.Invalid("total", "must be greater than zero")
	}

	incurred := input.IncurredAt
	if incurred.IsZero() {
		incurred = time.Now()
	}
	number, err := s.numbers.Next(ctx, NumberPrefix, incurred.Year())
	if err != nil {
		return nil, err
	}

	return s.repo.CreateExpense(ctx, Expense{
		Number:      number,
		Category:    strings.TrimSpace(input.Category),
		Vendor:      strings.TrimSpace(input.Vendor),
		Description: strings.TrimSpace(input.Description),
		IncurredAt:  incurred,
		Total:       ledger.Round2(input.Total),
		Notes:       input.Notes,
	})
}

// GetExpense returns one expense.
func (s *Service) GetExpense(ctx context.Context, id int64) (*Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

// ListExpenses returns expenses matching the filter.
func (s *Service) ListExpenses(ctx context.Context, req ListExpensesRequest) ([]Expense, error) {
	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 100
	}
	return s.repo.ListExpenses(ctx, req)
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	return s.repo.DeleteExpense(ctx, id)
}

// Approve marks a pending expense approved. The override loses effect the
// moment a payment is recorded.
func (s *Service) Approve(ctx context.Context, id, actorID int64, note string) (*Expense, error) {
	return s.setOverride(ctx, id, actorID, note, ledger.StatusApproved, shared.ActionApprove)
}

// Reject marks a pending expense rejected.
func (s *Service) Reject(ctx context.Context, id, actorID int64, note string) (*Expense, error) {
	return s.setOverride(ctx, id, actorID, note, ledger.StatusRejected, shared.ActionReject)
}

func (s *Service) setOverride(ctx context.Context, id, actorID int64, note string, status ledger.Status, action shared.ApprovalAction) (*Expense, error) {
	exp, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp.Status() != ledger.StatusPending {
		return nil, shared.Invalid("status", "only pending expenses can be approved or rejected")
	}

	updated, err := s.repo.SetOverride(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  approvalModule,
			RefID:   id,
			ActorID: actorID,
			Action:  action,
			Note:    note,
		})
	}
	return updated, nil
}

// RecordPayment validates and records a payment entry against an expense.
// Rejected expenses accept no payments.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*PaymentResult, error) {
	if input.ExpenseID == 0 {
		return nil, shared.Invalid("expenseId", "required")
	}
	if input.Amount <= 0 {
		return nil, shared.Invalid("amount", "must be greater than zero")
	}
	if strings.TrimSpace(input.Method) == "" {
		return nil, shared.Invalid("method", "required")
	}

	exp, err := s.repo.GetExpense(ctx, input.ExpenseID)
	if err != nil {
		return nil, err
	}
	if exp.Status() == ledger.StatusRejected {
		return nil, shared.Invalid("status", "expense is rejected")
	}
	amount := ledger.Round2(input.Amount)
	if amount > exp.Remaining() {
		return nil, shared.Invalid("amount", "exceeds remaining balance")
	}

	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, approvalModule); err != nil {
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
	payment, updated, err := s.repo.RecordPayment(ctx, input.ExpenseID, Payment{
		ExpenseID: input.ExpenseID,
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
	return &PaymentResult{Payment: *payment, Expense: *updated}, nil
}

// DeletePayment removes a payment and reverses its effect on the parent.
func (s *Service) DeletePayment(ctx context.Context, paymentID int64) (*Expense, error) {
	if paymentID == 0 {
		return nil, shared.Invalid("paymentId", "required")
	}
	return s.repo.DeletePayment(ctx, paymentID)
}

// ListPayments returns the payment ledger for an expense.
func (s *Service) ListPayments(ctx context.Context, expenseID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, expenseID)
}

// ListCategories returns categories, served from cache when warm.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	if s.categories == nil {
		return s.repo.ListCategories(ctx)
	}
	return s.categories.Fetch(ctx, func(ctx context.Context) ([]Category, error) {
		return s.repo.ListCategories(ctx)
	})
}

// CreateCategory adds a category and invalidates the cache.
func (s *Service) CreateCategory(ctx context.Context, name, color string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Invalid("name", "required")
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = "#9ca3af"
	}
	cat, err := s.repo.CreateCategory(ctx, name, color)
	if err != nil {
		return nil, err
	}
	if s.categories != nil {
		_ = s.categories.Invalidate(ctx)
	}
	return cat, nil
}
