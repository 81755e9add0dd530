package invoices

import (
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

// Handler manages invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/payments", h.listPayments)
	r.Post("/{id}/payments", h.recordPayment)
	r.Delete("/payments/{paymentID}", h.deletePayment)
}

type lineRequest struct {
	Description    string  `json:"description" validate:"required"`
	Quantity       float64 `json:"quantity" validate:"gt=0"`
	UnitPrice      float64 `json:"unitPrice" validate:"gte=0"`
	DiscountPct    float64 `json:"discountPct"`
	DiscountAmount float64 `json:"discountAmount"`
	TaxExempt      bool    `json:"taxExempt"`
}

type createInvoiceRequest struct {
	CustomerName  string        `json:"customerName" validate:"required"`
	CustomerEmail string        `json:"customerEmail" validate:"omitempty,email"`
	IssueDate     string        `json:"issueDate"`
	DueDate       string        `json:"dueDate"`
	Notes         string        `json:"notes"`
	Lines         []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type recordPaymentRequest struct {
	Amount         float64 `json:"amount" validate:"gt=0"`
	PaidAt         string  `json:"paidAt"`
	Method         string  `json:"method" validate:"required"`
	Reference      string  `json:"reference"`
	Note           string  `json:"note"`
	IdempotencyKey string  `json:"idempotencyKey"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	issue, err := parseDate(req.IssueDate)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("issueDate", "expected YYYY-MM-DD"))
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("dueDate", "expected YYYY-MM-DD"))
		return
	}

	lines := make([]ledger.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, ledger.LineInput{
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountPct:    l.DiscountPct,
			DiscountAmount: l.DiscountAmount,
			TaxExempt:      l.TaxExempt,
		})
	}

	inv, err := h.service.CreateInvoice(r.Context(), CreateInvoiceInput{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		IssueDate:     issue,
		DueDate:       due,
		Notes:         req.Notes,
		Lines:         lines,
	})
	if err != nil {
		h.logger.Error("create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	invoices, err := h.service.ListInvoices(r.Context(), ListInvoicesRequest{
		Status:       ledger.Status(r.URL.Query().Get("status")),
		CustomerName: r.URL.Query().Get("customer"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req recordPaymentRequest
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
		InvoiceID:      id,
		Amount:         req.Amount,
		PaidAt:         paidAt,
		Method:         req.Method,
		Reference:      req.Reference,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err), slog.Int64("invoice_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
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
	httpx.JSON(w, http.StatusOK, updated)
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
