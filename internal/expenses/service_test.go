package expenses

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
	expenses   map[int64]*Expense
	payments   map[int64]*Payment
	categories map[int64]*Category
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		expenses:   make(map[int64]*Expense),
		payments:   make(map[int64]*Payment),
		categories: make(map[int64]*Category),
	}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) CreateExpense(_ context.Context, e Expense) (*Expense, error) {
	e.ID = m.id()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.expenses[e.ID] = &e
	copied := e
	return &copied, nil
}

func (m *memoryRepo) GetExpense(_ context.Context, id int64) (*Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return nil, shared.NotFound("expense", id)
	}
	copied := *e
	return &copied, nil
}

func (m *memoryRepo) ListExpenses(_ context.Context, req ListExpensesRequest) ([]Expense, error) {
	var out []Expense
	for _, e := range m.expenses {
		if req.Status != "" && e.Status() != req.Status {
			continue
		}
		if req.Category != "" && e.Category != req.Category {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memoryRepo) DeleteExpense(_ context.Context, id int64) error {
	if _, ok := m.expenses[id]; !ok {
		return shared.NotFound("expense", id)
	}
	delete(m.expenses, id)
	return nil
}

func (m *memoryRepo) SetOverride(_ context.Context, id int64, override ledger.Status) (*Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return nil, shared.NotFound("expense", id)
	}
	e.Override = override
	copied := *e
	return &copied, nil
}

func (m *memoryRepo) RecordPayment(_ context.Context, expenseID int64, p Payment) (*Payment, *Expense, error) {
	e, ok := m.expenses[expenseID]
	if !ok {
		return nil, nil, shared.NotFound("expense", expenseID)
	}
	newPaid := ledger.Round2(e.Paid + p.Amount)
	if newPaid > e.Total {
		return nil, nil, ErrOverpaid
	}
	p.ID = m.id()
	p.CreatedAt = time.Now()
	m.payments[p.ID] = &p
	e.Paid = newPaid
	payment := p
	expense := *e
	return &payment, &expense, nil
}

func (m *memoryRepo) DeletePayment(_ context.Context, paymentID int64) (*Expense, error) {
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, shared.NotFound("payment", paymentID)
	}
	delete(m.payments, paymentID)
	e := m.expenses[p.ExpenseID]
	e.Paid = ledger.Round2(e.Paid - p.Amount)
	if e.Paid < 0 {
		e.Paid = 0
	}
	copied := *e
	return &copied, nil
}

func (m *memoryRepo) ListPayments(_ context.Context, expenseID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.ExpenseID == expenseID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListCategories(_ context.Context) ([]Category, error) {
	var out []Category
	for _, c := range m.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memoryRepo) CreateCategory(_ context.Context, name, color string) (*Category, error) {
	for _, c := range m.categories {
		if c.Name == name {
			return nil, shared.Invalid("name", "category already exists")
		}
	}
	c := &Category{ID: m.id(), Name: name, Color: color, CreatedAt: time.Now()}
	m.categories[c.ID] = c
	copied := *c
	return &copied, nil
}

type fakeNumbers struct {
	counts map[string]int
}

func (f *fakeNumbers) Next(_ context.Context, prefix string, year int) (string, error) {
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	key := fmt.Sprintf("%s-%d", prefix, year)
	f.counts[key]++
	return fmt.Sprintf("%s-%d-%03d", prefix, year, f.counts[key]), nil
}

type recordedApprovals struct {
	logs []shared.ApprovalLog
}

func (r *recordedApprovals) Record(_ context.Context, log shared.ApprovalLog) error {
	r.logs = append(r.logs, log)
	return nil
}

type fakeIdempotency struct {
	seen map[string]bool
}

func (f *fakeIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	f.seen[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(_ context.Context, key string) error {
	delete(f.seen, key)
	return nil
}

func newTestService() (*Service, *memoryRepo, *recordedApprovals) {
	repo := newMemoryRepo()
	approvals := &recordedApprovals{}
	svc := NewService(repo, &fakeNumbers{}, approvals, &fakeIdempotency{}, nil)
	return svc, repo, approvals
}

func createExpense(t *testing.T, svc *Service, total float64) *Expense {
	t.Helper()
	exp, err := svc.CreateExpense(context.Background(), CreateExpenseInput{
		Category:    "utilities",
		Vendor:      "City Power",
		Description: "electricity bill",
		IncurredAt:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Total:       total,
	})
	require.NoError(t, err)
	return exp
}

func TestCreateExpenseValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateExpense(ctx, CreateExpenseInput{Description: "x", Total: 10})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateExpense(ctx, CreateExpenseInput{Category: "misc", Total: 10})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateExpense(ctx, CreateExpenseInput{Category: "misc", Description: "x", Total: 0})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateExpenseAssignsSequencedNumber(t *testing.T) {
	svc, _, _ := newTestService()

	first := createExpense(t, svc, 100)
	second := createExpense(t, svc, 50)

	require.Equal(t, "EXP-2025-001", first.Number)
	require.Equal(t, "EXP-2025-002", second.Number)
	require.Equal(t, ledger.StatusPending, first.Status())
}

func TestApproveRejectOnlyWhilePending(t *testing.T) {
	svc, _, approvals := newTestService()
	ctx := context.Background()

	exp := createExpense(t, svc, 100)

	approved, err := svc.Approve(ctx, exp.ID, 7, "looks fine")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusApproved, approved.Status())
	require.Len(t, approvals.logs, 1)
	require.Equal(t, shared.ActionApprove, approvals.logs[0].Action)
	require.Equal(t, exp.ID, approvals.logs[0].RefID)

	// Already approved, no second decision allowed.
	_, err = svc.Reject(ctx, exp.ID, 7, "")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRejectedExpenseAcceptsNoPayments(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	exp := createExpense(t, svc, 100)
	_, err := svc.Reject(ctx, exp.ID, 1, "duplicate claim")
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, RecordPaymentInput{ExpenseID: exp.ID, Amount: 10, Method: "cash"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPaymentLifecycleDerivesStatus(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	exp := createExpense(t, svc, 100)

	res, err := svc.RecordPayment(ctx, RecordPaymentInput{ExpenseID: exp.ID, Amount: 40, Method: "bank"})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPartial, res.Expense.Status())
	require.InDelta(t, 60, res.Expense.Remaining(), 0.001)

	res, err = svc.RecordPayment(ctx, RecordPaymentInput{ExpenseID: exp.ID, Amount: 60, Method: "bank"})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPaid, res.Expense.Status())
	require.Zero(t, res.Expense.Remaining())

	_, err = svc.RecordPayment(ctx, RecordPaymentInput{ExpenseID: exp.ID, Amount: 1, Method: "bank"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPaymentOverridesApproval(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	exp := createExpense(t, svc, 100)
	_, err := svc.Approve(ctx, exp.ID, 1, "")
	require.NoError(t, err)

	res, err := svc.RecordPayment(ctx, RecordPaymentInput{ExpenseID: exp.ID, Amount: 30, Method: "cash"})
	require.NoError(t, err)
	// Derived status wins over the stored override once money moves.
	require.Equal(t, ledger.StatusPartial, res.Expense.Status())
}

func TestRecordPaymentIdempotencyKey(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	exp := createExpense(t, svc, 100)

	input := RecordPaymentInput{ExpenseID: exp.ID, Amount: 25, Method: "cash", IdempotencyKey: "pay-1"}
	_, err := svc.RecordPayment(ctx, input)
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, input)
	require.ErrorIs(t, err, shared.ErrValidation)

	got, err := svc.GetExpense(ctx, exp.ID)
	require.NoError(t, err)
	require.InDelta(t, 25, got.Paid, 0.001)
}

func TestDeletePaymentReversesBalance(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	exp := createExpense(t, svc, 100)
	res, err := svc.RecordPayment(ctx, RecordPaymentInput{ExpenseID: exp.ID, Amount: 100, Method: "bank"})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPaid, res.Expense.Status())

	updated, err := svc.DeletePayment(ctx, res.Payment.ID)
	require.NoError(t, err)
	require.Zero(t, updated.Paid)
	require.Equal(t, ledger.StatusPending, updated.Status())
}

func TestListExpensesFiltersByDerivedStatus(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	open := createExpense(t, svc, 100)
	paid := createExpense(t, svc, 50)
	_, err := svc.RecordPayment(ctx, RecordPaymentInput{ExpenseID: paid.ID, Amount: 50, Method: "cash"})
	require.NoError(t, err)

	pending, err := svc.ListExpenses(ctx, ListExpensesRequest{Status: ledger.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, open.ID, pending[0].ID)

	settled, err := svc.ListExpenses(ctx, ListExpensesRequest{Status: ledger.StatusPaid})
	require.NoError(t, err)
	require.Len(t, settled, 1)
	require.Equal(t, paid.ID, settled[0].ID)
}

func TestCreateCategoryDefaultsColor(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, "travel", "")
	require.NoError(t, err)
	require.Equal(t, "#9ca3af", cat.Color)

	_, err = svc.CreateCategory(ctx, "travel", "#ff0000")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateCategory(ctx, "  ", "")
	require.ErrorIs(t, err, shared.ErrValidation)
}
