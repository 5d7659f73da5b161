// Package budgethttp exposes budget control over JSON.
package budgethttp

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/siamledger/siamledger/internal/budget"
	"github.com/siamledger/siamledger/internal/ledger"
	"github.com/siamledger/siamledger/internal/platform/httpx"
)

// Handler serves the budget endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *budget.Service
	validate *validator.Validate
}

// NewHandler constructs the budget HTTP handler.
func NewHandler(logger *slog.Logger, service *budget.Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers budget endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/budgets", func(br chi.Router) {
		br.Get("/", h.listBudgets)
		br.Post("/", h.createBudget)
		br.Get("/{id}", h.getBudget)
		br.Post("/{id}/actuals", h.recordActual)
		br.Post("/{id}/capture", h.captureActuals)
		br.Get("/{id}/variance", h.varianceReport)
	})
}

type createRequest struct {
	FiscalYear  int      `json:"fiscal_year" validate:"required,min=2000"`
	AccountCode string   `json:"account_code" validate:"required"`
	Department  string   `json:"department"`
	Monthly     []string `json:"monthly" validate:"required,len=12"`
}

type budgetResponse struct {
	ID          string   `json:"budget_id"`
	FiscalYear  int      `json:"fiscal_year"`
	AccountCode string   `json:"account_code"`
	Department  string   `json:"department,omitempty"`
	Monthly     []string `json:"monthly"`
	Actual      []string `json:"actual"`
}

func toBudgetResponse(a budget.Allocation) budgetResponse {
	out := budgetResponse{
		ID:          a.ID,
		FiscalYear:  a.FiscalYear,
		AccountCode: a.AccountCode,
		Department:  a.Department,
	}
	for i := 0; i < 12; i++ {
		out.Monthly = append(out.Monthly, a.Monthly[i].Baht())
		out.Actual = append(out.Actual, a.Actual[i].Baht())
	}
	return out
}

func (h *Handler) createBudget(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	monthly := make([]ledger.Money, 0, len(req.Monthly))
	for _, raw := range req.Monthly {
		amount, err := ledger.ParseBaht(raw)
		if err != nil {
			httpx.BadRequest(w, err)
			return
		}
		monthly = append(monthly, amount)
	}
	a, err := h.service.Create(r.Context(), budget.CreateInput{
		FiscalYear:  req.FiscalYear,
		AccountCode: req.AccountCode,
		Department:  req.Department,
		Monthly:     monthly,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toBudgetResponse(a))
}

func (h *Handler) listBudgets(w http.ResponseWriter, r *http.Request) {
	list := h.service.Budgets(r.Context())
	out := make([]budgetResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toBudgetResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getBudget(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Budget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBudgetResponse(a))
}

type actualRequest struct {
	Month  int    `json:"month" validate:"required,min=1,max=12"`
	Amount string `json:"amount" validate:"required"`
}

func (h *Handler) recordActual(w http.ResponseWriter, r *http.Request) {
	var req actualRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	amount, err := ledger.ParseBaht(req.Amount)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	a, err := h.service.RecordActual(r.Context(), chi.URLParam(r, "id"), time.Month(req.Month), amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBudgetResponse(a))
}

func (h *Handler) captureActuals(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.CaptureActuals(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBudgetResponse(a))
}

type varianceRow struct {
	Month    string `json:"month"`
	Budget   string `json:"budget"`
	Actual   string `json:"actual"`
	Variance string `json:"variance"`
}

type varianceResponse struct {
	BudgetID      string        `json:"budget_id"`
	FiscalYear    int           `json:"fiscal_year"`
	AccountCode   string        `json:"account_code"`
	Department    string        `json:"department,omitempty"`
	Months        []varianceRow `json:"monthly_variances"`
	TotalBudget   string        `json:"total_budget"`
	TotalActual   string        `json:"total_actual"`
	TotalVariance string        `json:"total_variance"`
}

func (h *Handler) varianceReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Variances(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := varianceResponse{
		BudgetID:      report.BudgetID,
		FiscalYear:    report.FiscalYear,
		AccountCode:   report.AccountCode,
		Department:    report.Department,
		TotalBudget:   report.TotalBudget.Baht(),
		TotalActual:   report.TotalActual.Baht(),
		TotalVariance: report.TotalVariance.Baht(),
	}
	for _, m := range report.Months {
		out.Months = append(out.Months, varianceRow{
			Month:    fmt.Sprintf("%04d-%02d", report.FiscalYear, int(m.Month)),
			Budget:   m.Budget.Baht(),
			Actual:   m.Actual.Baht(),
			Variance: m.Variance.Baht(),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}
