package hr

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-bms/atlas-bms/internal/platform/httpx"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler manages HR endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers HR routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/employees", h.listEmployees)
	r.Post("/employees", h.createEmployee)
	r.Get("/employees/{id}", h.getEmployee)
	r.Put("/employees/{id}", h.updateEmployee)
	r.Delete("/employees/{id}", h.deleteEmployee)
	r.Post("/employees/{id}/verify-pin", h.verifyPIN)

	r.Get("/leaves", h.listLeaves)
	r.Post("/leaves", h.createLeave)
	r.Get("/leaves/{id}", h.getLeave)
	r.Delete("/leaves/{id}", h.deleteLeave)
	r.Post("/leaves/{id}/approve", h.approveLeave)
	r.Post("/leaves/{id}/reject", h.rejectLeave)
	r.Post("/leaves/{id}/complete", h.completeLeave)

	r.Get("/requests", h.listRequests)
	r.Post("/requests", h.createRequest)
	r.Get("/requests/{id}", h.getRequest)
	r.Delete("/requests/{id}", h.deleteRequest)
	r.Post("/requests/{id}/approve", h.approveRequest)
	r.Post("/requests/{id}/reject", h.rejectRequest)
	r.Post("/requests/{id}/complete", h.completeRequest)
}

type createEmployeeRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"omitempty,email"`
	Phone    string  `json:"phone"`
	Position string  `json:"position"`
	Salary   float64 `json:"salary" validate:"gte=0"`
	HiredAt  string  `json:"hiredAt"`
	PIN      string  `json:"pin"`
}

type updateEmployeeRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"omitempty,email"`
	Phone    string  `json:"phone"`
	Position string  `json:"position"`
	Salary   float64 `json:"salary" validate:"gte=0"`
	Active   bool    `json:"active"`
}

type verifyPINRequest struct {
	PIN string `json:"pin" validate:"required"`
}

type createLeaveRequest struct {
	EmployeeID int64  `json:"employeeId" validate:"required,gt=0"`
	Type       string `json:"type"`
	StartDate  string `json:"startDate" validate:"required"`
	EndDate    string `json:"endDate" validate:"required"`
	Reason     string `json:"reason"`
}

type createEmployeeRequestRequest struct {
	EmployeeID int64   `json:"employeeId" validate:"required,gt=0"`
	Type       string  `json:"type" validate:"required"`
	Subject    string  `json:"subject" validate:"required"`
	Details    string  `json:"details"`
	Amount     float64 `json:"amount" validate:"gte=0"`
}

type decisionRequest struct {
	ActorID int64  `json:"actorId" validate:"required,gt=0"`
	Note    string `json:"note"`
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	hiredAt, err := parseDate(req.HiredAt)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("hiredAt", "expected YYYY-MM-DD"))
		return
	}
	emp, err := h.service.CreateEmployee(r.Context(), CreateEmployeeInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Position: req.Position,
		Salary:   req.Salary,
		HiredAt:  hiredAt,
		PIN:      req.PIN,
	})
	if err != nil {
		h.logger.Error("create employee", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, emp)
}

func (h *Handler) getEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	emp, err := h.service.GetEmployee(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, emp)
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	employees, err := h.service.ListEmployees(r.Context(), activeOnly)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, employees)
}

func (h *Handler) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	emp, err := h.service.UpdateEmployee(r.Context(), id, UpdateEmployeeInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Position: req.Position,
		Salary:   req.Salary,
		Active:   req.Active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, emp)
}

func (h *Handler) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteEmployee(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) verifyPIN(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req verifyPINRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.VerifyPIN(r.Context(), id, req.PIN); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) createLeave(w http.ResponseWriter, r *http.Request) {
	var req createLeaveRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("startDate", "expected YYYY-MM-DD"))
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("endDate", "expected YYYY-MM-DD"))
		return
	}
	leave, err := h.service.CreateLeave(r.Context(), CreateLeaveInput{
		EmployeeID: req.EmployeeID,
		Type:       req.Type,
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
	})
	if err != nil {
		h.logger.Error("create leave", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, leave)
}

func (h *Handler) getLeave(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	leave, err := h.service.GetLeave(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, leave)
}

func (h *Handler) listLeaves(w http.ResponseWriter, r *http.Request) {
	employeeID, _ := strconv.ParseInt(r.URL.Query().Get("employeeId"), 10, 64)
	leaves, err := h.service.ListLeaves(r.Context(), employeeID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, leaves)
}

func (h *Handler) deleteLeave(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteLeave(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approveLeave(w http.ResponseWriter, r *http.Request) {
	h.decideLeave(w, r, h.service.ApproveLeave)
}

func (h *Handler) rejectLeave(w http.ResponseWriter, r *http.Request) {
	h.decideLeave(w, r, h.service.RejectLeave)
}

func (h *Handler) completeLeave(w http.ResponseWriter, r *http.Request) {
	h.decideLeave(w, r, h.service.CompleteLeave)
}

type leaveDecision func(ctx context.Context, id int64, decision DecisionInput) (*LeaveRequest, error)

func (h *Handler) decideLeave(w http.ResponseWriter, r *http.Request, fn leaveDecision) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	leave, err := fn(r.Context(), id, DecisionInput{ActorID: req.ActorID, Note: req.Note})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, leave)
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequestRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateRequest(r.Context(), CreateRequestInput{
		EmployeeID: req.EmployeeID,
		Type:       req.Type,
		Subject:    req.Subject,
		Details:    req.Details,
		Amount:     req.Amount,
	})
	if err != nil {
		h.logger.Error("create employee request", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	employeeID, _ := strconv.ParseInt(r.URL.Query().Get("employeeId"), 10, 64)
	requests, err := h.service.ListRequests(r.Context(), employeeID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, requests)
}

func (h *Handler) deleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRequest(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRequest(w, r, h.service.ApproveRequest)
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRequest(w, r, h.service.RejectRequest)
}

func (h *Handler) completeRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRequest(w, r, h.service.CompleteRequest)
}

type requestDecision func(ctx context.Context, id int64, decision DecisionInput) (*EmployeeRequest, error)

func (h *Handler) decideRequest(w http.ResponseWriter, r *http.Request, fn requestDecision) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := fn(r.Context(), id, DecisionInput{ActorID: req.ActorID, Note: req.Note})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "path parameter "+name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
