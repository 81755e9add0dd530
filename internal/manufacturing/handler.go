package manufacturing

import (
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

// Handler manages manufacturing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers manufacturing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/materials", h.listMaterials)
	r.Post("/materials", h.createMaterial)
	r.Put("/materials/{id}/cost", h.updateMaterialCost)
	r.Delete("/materials/{id}", h.deleteMaterial)

	r.Get("/recipes", h.listRecipes)
	r.Post("/recipes", h.createRecipe)
	r.Get("/recipes/{id}", h.getRecipe)
	r.Delete("/recipes/{id}", h.deleteRecipe)

	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Get("/orders/{id}/runs", h.listRuns)
	r.Post("/orders/{id}/runs", h.recordRun)
	r.Delete("/runs/{runID}", h.deleteRun)
}

type materialRequest struct {
	Name        string  `json:"name" validate:"required"`
	Unit        string  `json:"unit"`
	CostPerUnit float64 `json:"costPerUnit" validate:"gte=0"`
}

type materialCostRequest struct {
	CostPerUnit float64 `json:"costPerUnit" validate:"gte=0"`
}

type recipeLineRequest struct {
	MaterialID  int64   `json:"materialId" validate:"required,gt=0"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	CostPerUnit float64 `json:"costPerUnit" validate:"gte=0"`
}

type createRecipeRequest struct {
	Name           string              `json:"name" validate:"required"`
	OutputQuantity float64             `json:"outputQuantity" validate:"gt=0"`
	OutputUnit     string              `json:"outputUnit"`
	LaborCost      float64             `json:"laborCost" validate:"gte=0"`
	OverheadCost   float64             `json:"overheadCost" validate:"gte=0"`
	Notes          string              `json:"notes"`
	Lines          []recipeLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type createOrderRequest struct {
	RecipeID int64   `json:"recipeId" validate:"required,gt=0"`
	Planned  float64 `json:"planned" validate:"gt=0"`
	DueAt    string  `json:"dueAt"`
	Notes    string  `json:"notes"`
}

type recordRunRequest struct {
	Quantity float64 `json:"quantity" validate:"gt=0"`
	RunAt    string  `json:"runAt"`
	Note     string  `json:"note"`
}

// orderView augments the stored order with derived fields for clients.
type orderView struct {
	ProductionOrder
	Status    OrderStatus `json:"status"`
	Remaining float64     `json:"remaining"`
	TotalCost float64     `json:"totalCost"`
}

func orderViewOf(o ProductionOrder) orderView {
	return orderView{ProductionOrder: o, Status: o.Status(), Remaining: o.Remaining(), TotalCost: o.TotalCost()}
}

func (h *Handler) createMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if !h.decode(w, r, &req) {
		return
	}
	material, err := h.service.CreateMaterial(r.Context(), CreateMaterialInput{
		Name:        req.Name,
		Unit:        req.Unit,
		CostPerUnit: req.CostPerUnit,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, material)
}

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.service.ListMaterials(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, materials)
}

func (h *Handler) updateMaterialCost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req materialCostRequest
	if !h.decode(w, r, &req) {
		return
	}
	material, err := h.service.UpdateMaterialCost(r.Context(), id, req.CostPerUnit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, material)
}

func (h *Handler) deleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteMaterial(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createRecipe(w http.ResponseWriter, r *http.Request) {
	var req createRecipeRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines := make([]RecipeLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, RecipeLineInput{
			MaterialID:  line.MaterialID,
			Quantity:    line.Quantity,
			CostPerUnit: line.CostPerUnit,
		})
	}
	recipe, err := h.service.CreateRecipe(r.Context(), CreateRecipeInput{
		Name:           req.Name,
		OutputQuantity: req.OutputQuantity,
		OutputUnit:     req.OutputUnit,
		LaborCost:      req.LaborCost,
		OverheadCost:   req.OverheadCost,
		Notes:          req.Notes,
		Lines:          lines,
	})
	if err != nil {
		h.logger.Error("create recipe", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, recipe)
}

func (h *Handler) getRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	recipe, err := h.service.GetRecipe(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, recipe)
}

func (h *Handler) listRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.service.ListRecipes(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, recipes)
}

func (h *Handler) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRecipe(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	dueAt, err := parseDate(req.DueAt)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("dueAt", "expected YYYY-MM-DD"))
		return
	}
	order, err := h.service.CreateOrder(r.Context(), CreateOrderInput{
		RecipeID: req.RecipeID,
		Planned:  req.Planned,
		DueAt:    dueAt,
		Notes:    req.Notes,
	})
	if err != nil {
		h.logger.Error("create production order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, orderViewOf(*order))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderViewOf(*order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	recipeID, _ := strconv.ParseInt(r.URL.Query().Get("recipeId"), 10, 64)

	orders, err := h.service.ListOrders(r.Context(), ListOrdersRequest{
		Status:   OrderStatus(r.URL.Query().Get("status")),
		RecipeID: recipeID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderViewOf(o))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordRun(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req recordRunRequest
	if !h.decode(w, r, &req) {
		return
	}
	runAt, err := parseDate(req.RunAt)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("runAt", "expected YYYY-MM-DD"))
		return
	}
	result, err := h.service.RecordRun(r.Context(), RecordRunInput{
		OrderID:  id,
		Quantity: req.Quantity,
		RunAt:    runAt,
		Note:     req.Note,
	})
	if err != nil {
		h.logger.Error("record production run", slog.Any("error", err), slog.Int64("order_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"run":   result.Run,
		"order": orderViewOf(result.Order),
	})
}

func (h *Handler) deleteRun(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "runID")
	if !ok {
		return
	}
	updated, err := h.service.DeleteRun(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderViewOf(*updated))
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	runs, err := h.service.ListRuns(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, runs)
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
