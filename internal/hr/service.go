package hr

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// Approval log module names.
const (
	leaveModule   = "hr.leaves"
	requestModule = "hr.requests"
)

// RepositoryPort defines data access for the HR domain.
type RepositoryPort interface {
	CreateEmployee(ctx context.Context, e Employee) (*Employee, error)
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error)
	UpdateEmployee(ctx context.Context, id int64, input UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error

	CreateLeave(ctx context.Context, l LeaveRequest) (*LeaveRequest, error)
	GetLeave(ctx context.Context, id int64) (*LeaveRequest, error)
	ListLeaves(ctx context.Context, employeeID int64) ([]LeaveRequest, error)
	SetLeaveState(ctx context.Context, id int64, state shared.ApprovalState) (*LeaveRequest, error)
	DeleteLeave(ctx context.Context, id int64) error

	CreateRequest(ctx context.Context, r EmployeeRequest) (*EmployeeRequest, error)
	GetRequest(ctx context.Context, id int64) (*EmployeeRequest, error)
	ListRequests(ctx context.Context, employeeID int64) ([]EmployeeRequest, error)
	SetRequestState(ctx context.Context, id int64, state shared.ApprovalState) (*EmployeeRequest, error)
	DeleteRequest(ctx context.Context, id int64) error
}

// NumberSource reserves sequenced identifiers.
type NumberSource interface {
	Next(ctx context.Context, prefix string, year int) (string, error)
}

// ApprovalSink records workflow actions.
type ApprovalSink interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// Service handles HR business logic.
type Service struct {
	repo      RepositoryPort
	numbers   NumberSource
	approvals ApprovalSink
}

// NewService builds a Service.
func NewService(repo RepositoryPort, numbers NumberSource, approvals ApprovalSink) *Service {
	return &Service{repo: repo, numbers: numbers, approvals: approvals}
}

// CreateEmployee validates input, hashes the portal PIN and persists the
// profile.
func (s *Service) CreateEmployee(ctx context.Context, input CreateEmployeeInput) (*Employee, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, shared.Invalid("name", "required")
	}
	if input.Salary < 0 {
		return nil, shared.Invalid("salary", "must not be negative")
	}

	var pinHash string
	if input.PIN != "" {
		if len(input.PIN) < 4 {
			return nil, shared.Invalid("pin", "must be at least 4 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.PIN), bcrypt.DefaultCost)
		if err != nil {
			return nil, shared.Remote("hash pin", err)
		}
		pinHash = string(hash)
	}

	hired := input.HiredAt
	if hired.IsZero() {
		hired = time.Now()
	}
	return s.repo.CreateEmployee(ctx, Employee{
		Name:     strings.TrimSpace(input.Name),
		Email:    strings.TrimSpace(input.Email),
		Phone:    strings.TrimSpace(input.Phone),
		Position: strings.TrimSpace(input.Position),
		Salary:   ledger.Round2(input.Salary),
		HiredAt:  hired,
		Active:   true,
		PINHash:  pinHash,
	})
}

// VerifyPIN checks a portal PIN against the stored hash.
func (s *Service) VerifyPIN(ctx context.Context, employeeID int64, pin string) error {
	emp, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if emp.PINHash == "" {
		return shared.Invalid("pin", "no portal access configured")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(emp.PINHash), []byte(pin)); err != nil {
		return shared.Invalid("pin", "incorrect")
	}
	return nil
}

// GetEmployee returns one employee.
func (s *Service) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

// ListEmployees returns employees, optionally active only.
func (s *Service) ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error) {
	return s.repo.ListEmployees(ctx, activeOnly)
}

// UpdateEmployee replaces the profile fields of an employee.
func (s *Service) UpdateEmployee(ctx context.Context, id int64, input UpdateEmployeeInput) (*Employee, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, shared.Invalid("name", "required")
	}
	if input.Salary < 0 {
		return nil, shared.Invalid("salary", "must not be negative")
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Salary = ledger.Round2(input.Salary)
	return s.repo.UpdateEmployee(ctx, id, input)
}

// DeleteEmployee removes an employee.
func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	return s.repo.DeleteEmployee(ctx, id)
}

// CreateLeave validates dates, counts inclusive days and persists a pending
// leave request.
func (s *Service) CreateLeave(ctx context.Context, input CreateLeaveInput) (*LeaveRequest, error) {
	if input.EmployeeID == 0 {
		return nil, shared.Invalid("employeeId", "required")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return nil, shared.Invalid("startDate", "start and end dates are required")
	}
	days, err := LeaveDays(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetEmployee(ctx, input.EmployeeID); err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, LeaveNumberPrefix, input.StartDate.Year())
	if err != nil {
		return nil, err
	}
	return s.repo.CreateLeave(ctx, LeaveRequest{
		Number:     number,
		EmployeeID: input.EmployeeID,
		Type:       strings.TrimSpace(input.Type),
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		Days:       days,
		Reason:     input.Reason,
		State:      shared.ApprovalPending,
	})
}

// GetLeave returns one leave request.
func (s *Service) GetLeave(ctx context.Context, id int64) (*LeaveRequest, error) {
	return s.repo.GetLeave(ctx, id)
}

// ListLeaves returns leave requests, optionally for one employee.
func (s *Service) ListLeaves(ctx context.Context, employeeID int64) ([]LeaveRequest, error) {
	return s.repo.ListLeaves(ctx, employeeID)
}

// ApproveLeave moves a pending leave to approved.
func (s *Service) ApproveLeave(ctx context.Context, id int64, decision DecisionInput) (*LeaveRequest, error) {
	return s.moveLeave(ctx, id, decision, shared.ApprovalApproved, shared.ActionApprove)
}

// RejectLeave moves a pending leave to rejected.
func (s *Service) RejectLeave(ctx context.Context, id int64, decision DecisionInput) (*LeaveRequest, error) {
	return s.moveLeave(ctx, id, decision, shared.ApprovalRejected, shared.ActionReject)
}

// CompleteLeave closes an approved leave once taken.
func (s *Service) CompleteLeave(ctx context.Context, id int64, decision DecisionInput) (*LeaveRequest, error) {
	return s.moveLeave(ctx, id, decision, shared.ApprovalCompleted, shared.ActionComplete)
}

func (s *Service) moveLeave(ctx context.Context, id int64, decision DecisionInput, to shared.ApprovalState, action shared.ApprovalAction) (*LeaveRequest, error) {
	leave, err := s.repo.GetLeave(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := shared.Transition(leave.State, to)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.SetLeaveState(ctx, id, next)
	if err != nil {
		return nil, err
	}
	s.record(ctx, leaveModule, id, decision, action)
	return updated, nil
}

// DeleteLeave removes a leave request.
func (s *Service) DeleteLeave(ctx context.Context, id int64) error {
	return s.repo.DeleteLeave(ctx, id)
}

// CreateRequest persists a pending employee request.
func (s *Service) CreateRequest(ctx context.Context, input CreateRequestInput) (*EmployeeRequest, error) {
	if input.EmployeeID == 0 {
		return nil, shared.Invalid("employeeId", "required")
	}
	if strings.TrimSpace(input.Type) == "" {
		return nil, shared.Invalid("type", "required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, shared.Invalid("subject", "required")
	}
	if input.Amount < 0 {
		return nil, shared.Invalid("amount", "must not be negative")
	}
	if _, err := s.repo.GetEmployee(ctx, input.EmployeeID); err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, RequestNumberPrefix, time.Now().Year())
	if err != nil {
		return nil, err
	}
	return s.repo.CreateRequest(ctx, EmployeeRequest{
		Number:     number,
		EmployeeID: input.EmployeeID,
		Type:       strings.TrimSpace(input.Type),
		Subject:    strings.TrimSpace(input.Subject),
		Details:    input.Details,
		Amount:     ledger.Round2(input.Amount),
		State:      shared.ApprovalPending,
	})
}

// GetRequest returns one employee request.
func (s *Service) GetRequest(ctx context.Context, id int64) (*EmployeeRequest, error) {
	return s.repo.GetRequest(ctx, id)
}

// ListRequests returns employee requests, optionally for one employee.
func (s *Service) ListRequests(ctx context.Context, employeeID int64) ([]EmployeeRequest, error) {
	return s.repo.ListRequests(ctx, employeeID)
}

// ApproveRequest moves a pending request to approved.
func (s *Service) ApproveRequest(ctx context.Context, id int64, decision DecisionInput) (*EmployeeRequest, error) {
	return s.moveRequest(ctx, id, decision, shared.ApprovalApproved, shared.ActionApprove)
}

// RejectRequest moves a pending request to rejected.
func (s *Service) RejectRequest(ctx context.Context, id int64, decision DecisionInput) (*EmployeeRequest, error) {
	return s.moveRequest(ctx, id, decision, shared.ApprovalRejected, shared.ActionReject)
}

// CompleteRequest closes an approved request once fulfilled.
func (s *Service) CompleteRequest(ctx context.Context, id int64, decision DecisionInput) (*EmployeeRequest, error) {
	return s.moveRequest(ctx, id, decision, shared.ApprovalCompleted, shared.ActionComplete)
}

func (s *Service) moveRequest(ctx context.Context, id int64, decision DecisionInput, to shared.ApprovalState, action shared.ApprovalAction) (*EmployeeRequest, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := shared.Transition(req.State, to)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.SetRequestState(ctx, id, next)
	if err != nil {
		return nil, err
	}
	s.record(ctx, requestModule, id, decision, action)
	return updated, nil
}

// DeleteRequest removes an employee request.
func (s *Service) DeleteRequest(ctx context.Context, id int64) error {
	return s.repo.DeleteRequest(ctx, id)
}

func (s *Service) record(ctx context.Context, module string, refID int64, decision DecisionInput, action shared.ApprovalAction) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  module,
		RefID:   refID,
		ActorID: decision.ActorID,
		Action:  action,
		Note:    decision.Note,
	})
}
