// Package hr manages employees, leave requests and employee requests with an
// approval workflow.
package hr

import (
	"time"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// Sequenced identifier prefixes.
const (
	LeaveNumberPrefix   = "LV"
	RequestNumberPrefix = "REQ"
)

// Employee is a staff profile. PINHash holds the bcrypt hash of the portal
// PIN and never leaves the server.
type Employee struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Position  string
	Salary    float64
	HiredAt   time.Time
	Active    bool
	PINHash   string `json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LeaveRequest is a span of days off driven by the approval workflow. Days
// counts both endpoints.
type LeaveRequest struct {
	ID         int64
	Number     string
	EmployeeID int64
	Type       string
	StartDate  time.Time
	EndDate    time.Time
	Days       int
	Reason     string
	State      shared.ApprovalState
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EmployeeRequest is a typed ask (advance, equipment, document) that moves
// through the same approval workflow, optionally carrying an amount.
type EmployeeRequest struct {
	ID         int64
	Number     string
	EmployeeID int64
	Type       string
	Subject    string
	Details    string
	Amount     float64
	State      shared.ApprovalState
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LeaveDays counts calendar days between start and end, both inclusive.
// start after end is invalid.
func LeaveDays(start, end time.Time) (int, error) {
	start = start.Truncate(24 * time.Hour)
	end = end.Truncate(24 * time.Hour)
	if end.Before(start) {
		return 0, shared.Invalid("endDate", "must not be before startDate")
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}

// CreateEmployeeInput carries form input for a new employee.
type CreateEmployeeInput struct {
	Name     string
	Email    string
	Phone    string
	Position string
	Salary   float64
	HiredAt  time.Time
	PIN      string
}

// UpdateEmployeeInput carries a full-field replace for an employee profile.
type UpdateEmployeeInput struct {
	Name     string
	Email    string
	Phone    string
	Position string
	Salary   float64
	Active   bool
}

// CreateLeaveInput carries form input for a leave request.
type CreateLeaveInput struct {
	EmployeeID int64
	Type       string
	StartDate  time.Time
	EndDate    time.Time
	Reason     string
}

// CreateRequestInput carries form input for an employee request.
type CreateRequestInput struct {
	EmployeeID int64
	Type       string
	Subject    string
	Details    string
	Amount     float64
}

// DecisionInput identifies the actor behind an approval action.
type DecisionInput struct {
	ActorID int64
	Note    string
}
