package expenses

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/platform/httpx"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler manages expense endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.createCategory)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Get("/{id}/payments", h.listPayments)
	r.Post("/{id}/payments", h.recordPayment)
	r.Delete("/payments/{paymentID}", h.deletePayment)
}

type createExpenseRequest struct {
	Category    string  `json:"category" validate:"required"`
	Vendor      string  `json:"vendor"`
	Description string  `json:"description" validate:"required"`
	IncurredAt  string  `json:"incurredAt"`
	Total       float64 `json:"total" validate:"gt=0"`
	Notes       string  `json:"notes"`
}

type expensePaymentRequest struct {
	Amount         float64 `json:"amount" validate:"gt=0"`
	PaidAt         string  `json:"paidAt"`
	Method         string  `json:"method" validate:"required"`
	Reference      string  `json:"reference"`
	Note           string  `json:"note"`
	IdempotencyKey string  `json:"idempotencyKey"`
}

type decisionRequest struct {
	ActorID int64  `json:"actorId" validate:"required,gt=0"`
	Note    string `json:"note"`
}

type categoryRequest struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color"`
}

// expenseView augments the stored record with derived fields for clients.
type expenseView struct {
	Expense
	Status    ledger.Status `json:"status"`
	Remaining float64       `json:"remaining"`
}

func viewOf(e Expense) expenseView {
	return expenseView{Expense: e, Status: e.Status(), Remaining: e.Remaining()}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	incurred, err := parseDate(req.IncurredAt)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("incurredAt", "expected YYYY-MM-DD"))
		return
	}

	exp, err := h.service.CreateExpense(r.Context(), CreateExpenseInput{
		Category:    req.Category,
		Vendor:      req.Vendor,
		Description: req.Description,
		IncurredAt:  incurred,
		Total:       req.Total,
		Notes:       req.Notes,
	})
	if err != nil {
		h.logger.Error("create expense", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, viewOf(*exp))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	expenses, err := h.service.ListExpenses(r.Context(), ListExpensesRequest{
		Status:   ledger.Status(r.URL.Query().Get("status")),
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.logger.Error("list expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, viewOf(e))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	exp, err := h.service.GetExpense(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(*exp))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteExpense(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, actorID int64, note string) (*Expense, error)) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	exp, err := fn(r.Context(), id, req.ActorID, req.Note)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(*exp))
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req expensePaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	paidAt, err := parseDate(req.PaidAt)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("paidAt", "expected YYYY-MM-DD"))
		return
	}

	result, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		ExpenseID:      id,
		Amount:         req.Amount,
		PaidAt:         paidAt,
		Method:         req.Method,
		Reference:      req.Reference,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.logger.Error("record expense payment", slog.Any("error", err), slog.Int64("expense_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"payment": result.Payment,
		"expense": viewOf(result.Expense),
	})
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "paymentID")
	if !ok {
		return
	}
	updated, err := h.service.DeletePayment(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(*updated))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cat, err := h.service.CreateCategory(r.Context(), req.Name, req.Color)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cat)
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
