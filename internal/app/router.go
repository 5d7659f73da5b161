package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/siamledger/siamledger/internal/ap"
	aphttp "github.com/siamledger/siamledger/internal/ap/http"
	"github.com/siamledger/siamledger/internal/ar"
	arhttp "github.com/siamledger/siamledger/internal/ar/http"
	assethttp "github.com/siamledger/siamledger/internal/assets/http"
	"github.com/siamledger/siamledger/internal/banking"
	bankinghttp "github.com/siamledger/siamledger/internal/banking/http"
	budgethttp "github.com/siamledger/siamledger/internal/budget/http"
	"github.com/siamledger/siamledger/internal/ledger"
	ledgerhttp "github.com/siamledger/siamledger/internal/ledger/http"
	"github.com/siamledger/siamledger/internal/platform/httpx"
	taxhttp "github.com/siamledger/siamledger/internal/tax/http"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	LedgerHandler  *ledgerhttp.Handler
	ARHandler      *arhttp.Handler
	APHandler      *aphttp.Handler
	BankingHandler *bankinghttp.Handler
	AssetHandler   *assethttp.Handler
	TaxHandler     *taxhttp.Handler
	BudgetHandler  *budgethttp.Handler

	Sales     *ar.Service
	Purchases *ap.Service
	Banking   *banking.Service
}

// NewRouter constructs the chi.Router.
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
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		handleStats(w, r, params)
	})

	r.Route("/api", func(api chi.Router) {
		params.LedgerHandler.MountRoutes(api)
		params.ARHandler.MountRoutes(api)
		params.APHandler.MountRoutes(api)
		params.BankingHandler.MountRoutes(api)
		params.AssetHandler.MountRoutes(api)
		params.TaxHandler.MountRoutes(api)
		params.BudgetHandler.MountRoutes(api)
	})

	return r
}

// handleStats serves the dashboard headline figures.
func handleStats(w http.ResponseWriter, r *http.Request, params RouterParams) {
	ctx := r.Context()

	var totalSales, totalPurchases, outstandingAR, outstandingAP ledger.Money
	if params.Sales != nil {
		for _, inv := range params.Sales.Invoices(ctx) {
			if inv.Status == ar.StatusDraft {
				continue
			}
			totalSales += inv.Total
		}
		for _, row := range params.Sales.Outstanding(ctx) {
			outstandingAR += row.Outstanding
		}
	}
	if params.Purchases != nil {
		for _, inv := range params.Purchases.Invoices(ctx) {
			totalPurchases += inv.Total
		}
		for _, row := range params.Purchases.Outstanding(ctx) {
			outstandingAP += row.Outstanding
		}
	}

	stats := map[string]string{
		"total_sales":     totalSales.Baht(),
		"total_purchases": totalPurchases.Baht(),
		"outstanding_ar":  outstandingAR.Baht(),
		"outstanding_ap":  outstandingAP.Baht(),
		"cash_balance":    "0.00",
	}
	if params.Banking != nil {
		balance, err := params.Banking.Balance(ctx)
		if err != nil {
			params.Logger.Error("stats cash balance", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		stats["cash_balance"] = balance.Baht()
	}
	httpx.JSON(w, http.StatusOK, stats)
}
