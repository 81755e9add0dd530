package export

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-bms/atlas-bms/internal/platform/httpx"
)

// Handler serves export downloads.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{entity}", h.download)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	format := Format(r.URL.Query().Get("format"))

	file, err := h.service.Build(r.Context(), entity, format)
	if err != nil {
		h.logger.Error("build export", slog.Any("error", err), slog.String("entity", entity))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}
