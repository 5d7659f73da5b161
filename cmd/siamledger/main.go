package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siamledger/siamledger/internal/ap"
	aphttp "github.com/siamledger/siamledger/internal/ap/http"
	"github.com/siamledger/siamledger/internal/app"
	"github.com/siamledger/siamledger/internal/ar"
	arhttp "github.com/siamledger/siamledger/internal/ar/http"
	"github.com/siamledger/siamledger/internal/assets"
	assethttp "github.com/siamledger/siamledger/internal/assets/http"
	"github.com/siamledger/siamledger/internal/banking"
	bankinghttp "github.com/siamledger/siamledger/internal/banking/http"
	"github.com/siamledger/siamledger/internal/budget"
	budgethttp "github.com/siamledger/siamledger/internal/budget/http"
	"github.com/siamledger/siamledger/internal/ledger"
	ledgerhttp "github.com/siamledger/siamledger/internal/ledger/http"
	"github.com/siamledger/siamledger/internal/platform/cache"
	"github.com/siamledger/siamledger/internal/platform/db"
	"github.com/siamledger/siamledger/internal/shared"
	"github.com/siamledger/siamledger/internal/tax"
	taxhttp "github.com/siamledger/siamledger/internal/tax/http"
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

	var store ledger.Store = ledger.NewMemoryStore()
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		store = ledger.NewPGStore(pool)
	}

	var reports *cache.ReportCache
	if cfg.RedisAddr != "" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, report caching disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			reports = cache.NewReportCache(redisClient, logger)
		}
	}

	audit := shared.NewAuditLogger(logger)
	gl := ledger.NewService(ledger.DefaultChart(), store, audit)

	sales := ar.NewService(gl, ar.DefaultAccounts())
	purchases := ap.NewService(gl, ap.DefaultAccounts())
	cash := banking.NewService(gl, banking.Accounts{
		Cash:   cfg.CashAccount,
		Contra: cfg.ContraAccount,
	})
	register := assets.NewService(gl, assets.DefaultAccounts())
	taxes := tax.NewService(sales, purchases)
	budgets := budget.NewService(gl)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		LedgerHandler:  ledgerhttp.NewHandler(logger, gl, reports, cfg.CompanyName),
		ARHandler:      arhttp.NewHandler(logger, sales),
		APHandler:      aphttp.NewHandler(logger, purchases),
		BankingHandler: bankinghttp.NewHandler(logger, cash),
		AssetHandler:   assethttp.NewHandler(logger, register),
		TaxHandler:     taxhttp.NewHandler(logger, taxes, reports),
		BudgetHandler:  budgethttp.NewHandler(logger, budgets),
		Sales:          sales,
		Purchases:      purchases,
		Banking:        cash,
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
