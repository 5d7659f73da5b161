package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/siamledger/siamledger/internal/app"
	"github.com/siamledger/siamledger/internal/assets"
	"github.com/siamledger/siamledger/internal/ledger"
	"github.com/siamledger/siamledger/internal/platform/db"
	"github.com/siamledger/siamledger/internal/shared"
	"github.com/siamledger/siamledger/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.RedisAddr == "" {
		logger.Error("REDIS_ADDR is required for the worker")
		os.Exit(1)
	}

	// The worker only sees posted state, so it needs the shared Postgres
	// store. The in-memory store lives inside the API process and is not
	// reachable from here.
	if cfg.PGDSN == "" {
		logger.Error("PG_DSN is required for the worker")
		os.Exit(1)
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	audit := shared.NewAuditLogger(logger)
	gl := ledger.NewService(ledger.DefaultChart(), ledger.NewPGStore(pool), audit)
	register := assets.NewService(gl, assets.DefaultAccounts())

	depreciationTask, err := jobs.NewDepreciationTask(jobs.DepreciationPayload{})
	if err != nil {
		logger.Error("build depreciation task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeLedgerIntegrity, Handler: jobs.LedgerIntegrityHandler(gl, logger)},
			{Type: jobs.TaskTypeDepreciationRun, Handler: jobs.DepreciationHandler(register, logger, nil)},
		},
		Cron: []jobs.CronRegistration{
			// Nightly books check, monthly depreciation on the 1st.
			{Spec: "0 1 * * *", Task: jobs.NewLedgerIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 1 * *", Task: depreciationTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
