package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-bms/atlas-bms/internal/app"
	"github.com/atlas-bms/atlas-bms/internal/backup"
	"github.com/atlas-bms/atlas-bms/internal/expenses"
	"github.com/atlas-bms/atlas-bms/internal/export"
	"github.com/atlas-bms/atlas-bms/internal/hr"
	"github.com/atlas-bms/atlas-bms/internal/invoices"
	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/manufacturing"
	"github.com/atlas-bms/atlas-bms/internal/platform/cache"
	"github.com/atlas-bms/atlas-bms/internal/platform/db"
	"github.com/atlas-bms/atlas-bms/internal/shared"
	"github.com/atlas-bms/atlas-bms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Category caching degrades to direct reads without Redis.
		logger.Warn("redis unavailable", slog.Any("error", err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	numbers := ledger.NewSequenceAllocator(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	expensesRepo := expenses.NewRepository(pool)
	categoryCache := expenses.NewCategoryCache(redisClient, cfg.CategoryCacheTTL)
	expensesService := expenses.NewService(expensesRepo, numbers, approvalRecorder, idempotencyStore, categoryCache)
	expensesHandler := expenses.NewHandler(logger, expensesService)

	invoicesRepo := invoices.NewRepository(pool)
	invoicesService := invoices.NewService(invoicesRepo, numbers, idempotencyStore, cfg.TaxRatePct)
	invoicesHandler := invoices.NewHandler(logger, invoicesService)

	manufacturingRepo := manufacturing.NewRepository(pool)
	manufacturingService := manufacturing.NewService(manufacturingRepo, numbers)
	manufacturingHandler := manufacturing.NewHandler(logger, manufacturingService)

	hrRepo := hr.NewRepository(pool)
	hrService := hr.NewService(hrRepo, numbers, approvalRecorder)
	hrHandler := hr.NewHandler(logger, hrService)

	exportService := export.NewService(export.Sources{
		Expenses: func(ctx context.Context) ([]expenses.Expense, error) {
			return expensesService.ListExpenses(ctx, expenses.ListExpensesRequest{Limit: 500})
		},
		Invoices: func(ctx context.Context) ([]invoices.Invoice, error) {
			return invoicesService.ListInvoices(ctx, invoices.ListInvoicesRequest{Limit: 500})
		},
		Orders: func(ctx context.Context) ([]manufacturing.ProductionOrder, error) {
			return manufacturingService.ListOrders(ctx, manufacturing.ListOrdersRequest{Limit: 500})
		},
		Employees: func(ctx context.Context) ([]hr.Employee, error) {
			return hrService.ListEmployees(ctx, false)
		},
		Leaves: func(ctx context.Context) ([]hr.LeaveRequest, error) {
			return hrService.ListLeaves(ctx, 0)
		},
	})
	exportHandler := export.NewHandler(logger, exportService)

	backupService := backup.NewService(cfg.BackupDir, logger, []backup.Source{
		{Name: "expenses", Fetch: func(ctx context.Context) (any, error) {
			return expensesService.ListExpenses(ctx, expenses.ListExpensesRequest{Limit: 500})
		}},
		{Name: "invoices", Fetch: func(ctx context.Context) (any, error) {
			return invoicesService.ListInvoices(ctx, invoices.ListInvoicesRequest{Limit: 500})
		}},
		{Name: "orders", Fetch: func(ctx context.Context) (any, error) {
			return manufacturingService.ListOrders(ctx, manufacturing.ListOrdersRequest{Limit: 500})
		}},
		{Name: "recipes", Fetch: func(ctx context.Context) (any, error) {
			return manufacturingService.ListRecipes(ctx)
		}},
		{Name: "materials", Fetch: func(ctx context.Context) (any, error) {
			return manufacturingService.ListMaterials(ctx)
		}},
		{Name: "employees", Fetch: func(ctx context.Context) (any, error) {
			return hrService.ListEmployees(ctx, false)
		}},
		{Name: "leaves", Fetch: func(ctx context.Context) (any, error) {
			return hrService.ListLeaves(ctx, 0)
		}},
		{Name: "requests", Fetch: func(ctx context.Context) (any, error) {
			return hrService.ListRequests(ctx, 0)
		}},
	})
	backupHandler := backup.NewHandler(logger, backupService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		ExpensesHandler:      expensesHandler,
		InvoicesHandler:      invoicesHandler,
		ManufacturingHandler: manufacturingHandler,
		HRHandler:            hrHandler,
		ExportHandler:        exportHandler,
		BackupHandler:        backupHandler,
		JobHandler:           jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
