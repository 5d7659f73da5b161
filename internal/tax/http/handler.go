// Package taxhttp exposes VAT reporting over JSON.
package taxhttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/siamledger/siamledger/internal/platform/cache"
	"github.com/siamledger/siamledger/internal/platform/httpx"
	"github.com/siamledger/siamledger/internal/tax"
)

const vatCacheTTL = time.Minute

// Handler serves the tax endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *tax.Service
	validate *validator.Validate
	reports  *cache.ReportCache
	now      func() time.Time
}

// NewHandler constructs the tax HTTP handler. reports may be nil.
func NewHandler(logger *slog.Logger, service *tax.Service, reports *cache.ReportCache) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		reports:  reports,
		now:      time.Now,
	}
}

// MountRoutes registers tax endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/tax", func(tr chi.Router) {
		tr.Get("/report", h.vatReport)
		tr.Post("/report", h.generateReport)
		tr.Post("/report/{number}/submit", h.submitReport)
		tr.Get("/reports", h.listReports)
	})
}

func (h *Handler) period(r *http.Request) (int, time.Month, error) {
	now := h.now()
	year, month := now.Year(), now.Month()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, err
		}
		year = parsed
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, err
		}
		if parsed < 1 || parsed > 12 {
			return 0, 0, fmt.Errorf("month %d out of range", parsed)
		}
		month = time.Month(parsed)
	}
	return year, month, nil
}

type summaryResponse struct {
	Period     string `json:"period"`
	OutputBase string `json:"sales_base"`
	OutputVAT  string `json:"sales_vat"`
	InputBase  string `json:"purchase_base"`
	InputVAT   string `json:"purchase_vat"`
	NetVAT     string `json:"net_vat"`
	VATPayable string `json:"vat_payable"`
	Refundable string `json:"refundable"`
}

func toSummaryResponse(s tax.Summary) summaryResponse {
	out := summaryResponse{
		Period:     fmt.Sprintf("%04d-%02d", s.Year, int(s.Month)),
		OutputBase: s.OutputBase.Baht(),
		OutputVAT:  s.OutputVAT.Baht(),
		InputBase:  s.InputBase.Baht(),
		InputVAT:   s.InputVAT.Baht(),
		NetVAT:     s.Net.Baht(),
		VATPayable: "0.00",
		Refundable: "0.00",
	}
	if s.Net > 0 {
		out.VATPayable = s.Net.Baht()
	}
	if s.Net < 0 {
		out.Refundable = (-s.Net).Baht()
	}
	return out
}

func (h *Handler) vatReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.period(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	key := fmt.Sprintf("reports:vat:%04d-%02d", year, int(month))
	body, err := h.reports.GetOrCompute(r.Context(), key, vatCacheTTL, func(ctx context.Context) (any, error) {
		summary, err := h.service.ComputeVAT(ctx, year, month)
		if err != nil {
			return nil, err
		}
		return toSummaryResponse(summary), nil
	})
	if err != nil {
		h.logger.Error("vat report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

type reportResponse struct {
	Number      string          `json:"report_no"`
	Status      string          `json:"status"`
	Summary     summaryResponse `json:"summary"`
	SubmittedAt string          `json:"submitted_at,omitempty"`
}

func toReportResponse(r tax.Report) reportResponse {
	out := reportResponse{
		Number:  r.Number,
		Status:  string(r.Status),
		Summary: toSummaryResponse(r.Summary),
	}
	if !r.SubmittedAt.IsZero() {
		out.SubmittedAt = r.SubmittedAt.Format(time.RFC3339)
	}
	return out
}

func (h *Handler) generateReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.period(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	report, err := h.service.GenerateReport(r.Context(), year, month)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toReportResponse(report))
}

func (h *Handler) submitReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SubmitReport(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReportResponse(report))
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	reports := h.service.Reports(r.Context())
	out := make([]reportResponse, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toReportResponse(rep))
	}
	httpx.JSON(w, http.StatusOK, out)
}
