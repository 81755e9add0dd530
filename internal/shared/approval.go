package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApprovalState enumerates workflow states for approval-driven entities
// (leave requests, employee requests). Transitions are restricted:
// pending -> approved -> completed, pending -> rejected. Rejected and
// completed are terminal.
type ApprovalState string

const (
	ApprovalPending   ApprovalState = "PENDING"
	ApprovalApproved  ApprovalState = "APPROVED"
	ApprovalRejected  ApprovalState = "REJECTED"
	ApprovalCompleted ApprovalState = "COMPLETED"
)

var approvalTransitions = map[ApprovalState][]ApprovalState{
	ApprovalPending:  {ApprovalApproved, ApprovalRejected},
	ApprovalApproved: {ApprovalCompleted},
}

// CanTransition reports whether moving to next is allowed.
func (s ApprovalState) CanTransition(next ApprovalState) bool {
	for _, allowed := range approvalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates a state change, returning ErrInvalidTransition for
// anything outside the workflow.
func Transition(from, to ApprovalState) (ApprovalState, error) {
	if !from.CanTransition(to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// NormalizeApprovalState coerces a raw stored value, defaulting unknown input
// to the lowest-privilege state.
func NormalizeApprovalState(raw string) ApprovalState {
	switch ApprovalState(raw) {
	case ApprovalApproved, ApprovalRejected, ApprovalCompleted:
		return ApprovalState(raw)
	default:
		return ApprovalPending
	}
}

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	ActionSubmit   ApprovalAction = "SUBMIT"
	ActionApprove  ApprovalAction = "APPROVE"
	ActionReject   ApprovalAction = "REJECT"
	ActionComplete ApprovalAction = "COMPLETE"
)

// ApprovalLog is one append-only approval record.
type ApprovalLog struct {
	ID      int64
	Module  string
	RefID   int64
	ActorID int64
	Action  ApprovalAction
	Note    string
	At      time.Time
}

// ApprovalRecorder persists approval history.
type ApprovalRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewApprovalRecorder constructs ApprovalRecorder.
func NewApprovalRecorder(pool *pgxpool.Pool, logger *slog.Logger) *ApprovalRecorder {
	return &ApprovalRecorder{pool: pool, logger: logger}
}

// Record writes an approval entry.
func (r *ApprovalRecorder) Record(ctx context.Context, log ApprovalLog) error {
	if r == nil {
		return errors.New("approval recorder not initialised")
	}
	if log.Module == "" {
		return errors.New("approval module required")
	}
	if log.RefID == 0 {
		return errors.New("approval ref id required")
	}
	if log.ActorID == 0 {
		return errors.New("approval actor required")
	}
	if log.Action == "" {
		return errors.New("approval action required")
	}
	at := log.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO approvals (module, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, $6)`, log.Module, log.RefID, log.ActorID, string(log.Action), log.Note, at)
	if err != nil {
		r.logger.Error("record approval", slog.Any("error", err))
		return Remote("record approval", err)
	}
	return nil
}

// List returns approvals for module/ref in chronological order.
func (r *ApprovalRecorder) List(ctx context.Context, module string, refID int64) ([]ApprovalLog, error) {
	if r == nil {
		return nil, errors.New("approval recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, module, ref_id, actor_id, action, note, at
FROM approvals WHERE module=$1 AND ref_id=$2 ORDER BY at ASC`, module, refID)
	if err != nil {
		return nil, Remote("list approvals", err)
	}
	defer rows.Close()
	var logs []ApprovalLog
	for rows.Next() {
		var l ApprovalLog
		var action string
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &l.ActorID, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = ApprovalAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
