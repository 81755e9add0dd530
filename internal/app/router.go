package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atlas-bms/atlas-bms/internal/backup"
	"github.com/atlas-bms/atlas-bms/internal/expenses"
	"github.com/atlas-bms/atlas-bms/internal/export"
	"github.com/atlas-bms/atlas-bms/internal/hr"
	"github.com/atlas-bms/atlas-bms/internal/invoices"
	"github.com/atlas-bms/atlas-bms/internal/manufacturing"
	"github.com/atlas-bms/atlas-bms/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	ExpensesHandler      *expenses.Handler
	InvoicesHandler      *invoices.Handler
	ManufacturingHandler *manufacturing.Handler
	HRHandler            *hr.Handler
	ExportHandler        *export.Handler
	BackupHandler        *backup.Handler
	JobHandler           *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		if params.ExpensesHandler != nil {
			api.Route("/expenses", params.ExpensesHandler.MountRoutes)
		}
		if params.InvoicesHandler != nil {
			api.Route("/invoices", params.InvoicesHandler.MountRoutes)
		}
		if params.ManufacturingHandler != nil {
			api.Route("/manufacturing", params.ManufacturingHandler.MountRoutes)
		}
		if params.HRHandler != nil {
			api.Route("/hr", params.HRHandler.MountRoutes)
		}
		if params.ExportHandler != nil {
			api.Route("/exports", params.ExportHandler.MountRoutes)
		}
		if params.BackupHandler != nil {
			api.Route("/backups", params.BackupHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
