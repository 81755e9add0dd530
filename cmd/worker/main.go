package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/atlas-bms/atlas-bms/internal/app"
	"github.com/atlas-bms/atlas-bms/internal/backup"
	"github.com/atlas-bms/atlas-bms/internal/expenses"
	"github.com/atlas-bms/atlas-bms/internal/hr"
	"github.com/atlas-bms/atlas-bms/internal/invoices"
	"github.com/atlas-bms/atlas-bms/internal/ledger"
	"github.com/atlas-bms/atlas-bms/internal/manufacturing"
	"github.com/atlas-bms/atlas-bms/internal/platform/db"
	"github.com/atlas-bms/atlas-bms/internal/shared"
	"github.com/atlas-bms/atlas-bms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	numbers := ledger.NewSequenceAllocator(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	expensesService := expenses.NewService(expenses.NewRepository(pool), numbers, approvalRecorder, idempotencyStore, nil)
	invoicesService := invoices.NewService(invoices.NewRepository(pool), numbers, idempotencyStore, cfg.TaxRatePct)
	manufacturingService := manufacturing.NewService(manufacturing.NewRepository(pool), numbers)
	hrService := hr.NewService(hr.NewRepository(pool), numbers, approvalRecorder)

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
		{Name: "employees", Fetch: func(ctx context.Context) (any, error) {
			return hrService.ListEmployees(ctx, false)
		}},
		{Name: "leaves", Fetch: func(ctx context.Context) (any, error) {
			return hrService.ListLeaves(ctx, 0)
		}},
	})

	backupTask, err := jobs.NewBackupTask(jobs.BackupPayload{Reason: "scheduled"})
	if err != nil {
		logger.Error("build backup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeBackup, Handler: jobs.BackupHandler(backupService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.BackupCron, Task: backupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
