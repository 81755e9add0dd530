package hr

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

type memoryRepo struct {
	employees map[int64]*Employee
	leaves    map[int64]*LeaveRequest
	requests  map[int64]*EmployeeRequest
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		employees: make(map[int64]*Employee),
		leaves:    make(map[int64]*LeaveRequest),
		requests:  make(map[int64]*EmployeeRequest),
	}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) CreateEmployee(_ context.Context, e Employee) (*Employee, error) {
	e.ID = m.id()
	m.employees[e.ID] = &e
	copied := e
	return &copied, nil
}

func (m *memoryRepo) GetEmployee(_ context.Context, id int64) (*Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, shared.NotFound("employee", id)
	}
	copied := *e
	return &copied, nil
}

func (m *memoryRepo) ListEmployees(_ context.Context, activeOnly bool) ([]Employee, error) {
	var out []Employee
	for _, e := range m.employees {
		if activeOnly && !e.Active {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memoryRepo) UpdateEmployee(_ context.Context, id int64, input UpdateEmployeeInput) (*Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, shared.NotFound("employee", id)
	}
	e.Name = input.Name
	e.Email = input.Email
	e.Phone = input.Phone
	e.Position = input.Position
	e.Salary = input.Salary
	e.Active = input.Active
	copied := *e
	return &copied, nil
}

func (m *memoryRepo) DeleteEmployee(_ context.Context, id int64) error {
	if _, ok := m.employees[id]; !ok {
		return shared.NotFound("employee", id)
	}
	delete(m.employees, id)
	return nil
}

func (m *memoryRepo) CreateLeave(_ context.Context, l LeaveRequest) (*LeaveRequest, error) {
	l.ID = m.id()
	m.leaves[l.ID] = &l
	copied := l
	return &copied, nil
}

func (m *memoryRepo) GetLeave(_ context.Context, id int64) (*LeaveRequest, error) {
	l, ok := m.leaves[id]
	if !ok {
		return nil, shared.NotFound("leave request", id)
	}
	copied := *l
	return &copied, nil
}

func (m *memoryRepo) ListLeaves(_ context.Context, employeeID int64) ([]LeaveRequest, error) {
	var out []LeaveRequest
	for _, l := range m.leaves {
		if employeeID != 0 && l.EmployeeID != employeeID {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (m *memoryRepo) SetLeaveState(_ context.Context, id int64, state shared.ApprovalState) (*LeaveRequest, error) {
	l, ok := m.leaves[id]
	if !ok {
		return nil, shared.NotFound("leave request", id)
	}
	l.State = state
	copied := *l
	return &copied, nil
}

func (m *memoryRepo) DeleteLeave(_ context.Context, id int64) error {
	if _, ok := m.leaves[id]; !ok {
		return shared.NotFound("leave request", id)
	}
	delete(m.leaves, id)
	return nil
}

func (m *memoryRepo) CreateRequest(_ context.Context, r EmployeeRequest) (*EmployeeRequest, error) {
	r.ID = m.id()
	m.requests[r.ID] = &r
	copied := r
	return &copied, nil
}

func (m *memoryRepo) GetRequest(_ context.Context, id int64) (*EmployeeRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, shared.NotFound("employee request", id)
	}
	copied := *r
	return &copied, nil
}

func (m *memoryRepo) ListRequests(_ context.Context, employeeID int64) ([]EmployeeRequest, error) {
	var out []EmployeeRequest
	for _, r := range m.requests {
		if employeeID != 0 && r.EmployeeID != employeeID {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *memoryRepo) SetRequestState(_ context.Context, id int64, state shared.ApprovalState) (*EmployeeRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, shared.NotFound("employee request", id)
	}
	r.State = state
	copied := *r
	return &copied, nil
}

func (m *memoryRepo) DeleteRequest(_ context.Context, id int64) error {
	if _, ok := m.requests[id]; !ok {
		return shared.NotFound("employee request", id)
	}
	delete(m.requests, id)
	return nil
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

func newTestService() (*Service, *recordedApprovals) {
	approvals := &recordedApprovals{}
	return NewService(newMemoryRepo(), &fakeNumbers{}, approvals), approvals
}

func seedEmployee(t *testing.T, svc *Service, pin string) *Employee {
	t.Helper()
	emp, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{
		Name:     "Sami Haddad",
		Email:    "sami@example.com",
		Position: "operator",
		Salary:   4200,
		PIN:      pin,
	})
	require.NoError(t, err)
	return emp
}

func TestLeaveDays(t *testing.T) {
	tests := []struct {
		start string
		end   string
		want  int
	}{
		{"2024-01-01", "2024-01-03", 3},
		{"2024-01-01", "2024-01-01", 1},
		{"2024-02-27", "2024-03-02", 5},
	}

	for _, tc := range tests {
		start, err := time.Parse("2006-01-02", tc.start)
		require.NoError(t, err)
		end, err := time.Parse("2006-01-02", tc.end)
		require.NoError(t, err)

		days, err := LeaveDays(start, end)
		require.NoError(t, err)
		require.Equal(t, tc.want, days)
	}
}

func TestLeaveDaysRejectsReversedRange(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := LeaveDays(start, end)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateLeaveCountsInclusiveDays(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	emp := seedEmployee(t, svc, "")

	leave, err := svc.CreateLeave(ctx, CreateLeaveInput{
		EmployeeID: emp.ID,
		Type:       "annual",
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, 3, leave.Days)
	require.Equal(t, "LV-2024-001", leave.Number)
	require.Equal(t, shared.ApprovalPending, leave.State)
}

func TestCreateLeaveUnknownEmployee(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateLeave(context.Background(), CreateLeaveInput{
		EmployeeID: 99,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLeaveWorkflow(t *testing.T) {
	svc, approvals := newTestService()
	ctx := context.Background()
	emp := seedEmployee(t, svc, "")

	leave, err := svc.CreateLeave(ctx, CreateLeaveInput{
		EmployeeID: emp.ID,
		StartDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	decision := DecisionInput{ActorID: 1}

	// Completing before approval is out of order.
	_, err = svc.CompleteLeave(ctx, leave.ID, decision)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	approved, err := svc.ApproveLeave(ctx, leave.ID, decision)
	require.NoError(t, err)
	require.Equal(t, shared.ApprovalApproved, approved.State)

	// Approved leaves cannot be rejected afterwards.
	_, err = svc.RejectLeave(ctx, leave.ID, decision)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	completed, err := svc.CompleteLeave(ctx, leave.ID, decision)
	require.NoError(t, err)
	require.Equal(t, shared.ApprovalCompleted, completed.State)

	_, err = svc.ApproveLeave(ctx, leave.ID, decision)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	require.Len(t, approvals.logs, 2)
	require.Equal(t, shared.ActionApprove, approvals.logs[0].Action)
	require.Equal(t, shared.ActionComplete, approvals.logs[1].Action)
}

func TestRejectedLeaveIsTerminal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	emp := seedEmployee(t, svc, "")

	leave, err := svc.CreateLeave(ctx, CreateLeaveInput{
		EmployeeID: emp.ID,
		StartDate:  time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	rejected, err := svc.RejectLeave(ctx, leave.ID, DecisionInput{ActorID: 1})
	require.NoError(t, err)
	require.Equal(t, shared.ApprovalRejected, rejected.State)

	_, err = svc.ApproveLeave(ctx, leave.ID, DecisionInput{ActorID: 1})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestEmployeeRequestWorkflow(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	emp := seedEmployee(t, svc, "")

	req, err := svc.CreateRequest(ctx, CreateRequestInput{
		EmployeeID: emp.ID,
		Type:       "advance",
		Subject:    "salary advance",
		Amount:     500,
	})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("REQ-%d-001", time.Now().Year()), req.Number)
	require.Equal(t, shared.ApprovalPending, req.State)

	approved, err := svc.ApproveRequest(ctx, req.ID, DecisionInput{ActorID: 2})
	require.NoError(t, err)
	require.Equal(t, shared.ApprovalApproved, approved.State)

	completed, err := svc.CompleteRequest(ctx, req.ID, DecisionInput{ActorID: 2})
	require.NoError(t, err)
	require.Equal(t, shared.ApprovalCompleted, completed.State)
}

func TestCreateRequestValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	emp := seedEmployee(t, svc, "")

	_, err := svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: emp.ID, Subject: "x"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: emp.ID, Type: "advance"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: emp.ID, Type: "advance", Subject: "x", Amount: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPINVerification(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	emp := seedEmployee(t, svc, "4912")

	require.NoError(t, svc.VerifyPIN(ctx, emp.ID, "4912"))
	require.ErrorIs(t, svc.VerifyPIN(ctx, emp.ID, "0000"), shared.ErrValidation)

	noPIN := seedEmployee(t, svc, "")
	require.ErrorIs(t, svc.VerifyPIN(ctx, noPIN.ID, "1234"), shared.ErrValidation)
}

func TestCreateEmployeeRejectsShortPIN(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Name: "x", PIN: "12"})
	require.ErrorIs(t, err, shared.ErrValidation)
}
