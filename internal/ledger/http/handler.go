// Package ledgerhttp exposes the posting engine over JSON.
package ledgerhttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/siamledger/siamledger/internal/ledger"
	"github.com/siamledger/siamledger/internal/ledger/reports"
	"github.com/siamledger/siamledger/internal/platform/cache"
	"github.com/siamledger/siamledger/internal/platform/httpx"
)

const tbCacheKey = "reports:trial-balance"
const tbGroupedCacheKey = "reports:trial-balance:grouped"
const tbCacheTTL = time.Minute

// Handler serves the general ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *ledger.Service
	validate *validator.Validate
	reports  *cache.ReportCache
	company  string
}

// NewHandler constructs the ledger HTTP handler. reports may be nil.
func NewHandler(logger *slog.Logger, service *ledger.Service, reports *cache.ReportCache, company string) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		reports:  reports,
		company:  company,
	}
}

type accountRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
}

type accountResponse struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{Code: a.Code, Name: a.Name, Type: string(a.Type), Active: a.Active}
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	acc, err := h.service.Chart().Register(req.Code, req.Name, ledger.AccountType(req.Type))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.service.Chart().List()
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	code := routeParam(r, "code")
	acc, err := h.service.DeactivateAccount(r.Context(), code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(acc))
}

type lineRequest struct {
	AccountCode string `json:"account_code" validate:"required"`
	Side        string `json:"side" validate:"required,oneof=DEBIT CREDIT"`
	Amount      string `json:"amount" validate:"required"`
	Memo        string `json:"memo"`
}

type voucherRequest struct {
	Date        string        `json:"date"`
	Description string        `json:"description" validate:"required"`
	Lines       []lineRequest `json:"lines" validate:"dive"`
}

type voucherResponse struct {
	ID          string         `json:"id"`
	Number      int64          `json:"number,omitempty"`
	Date        string         `json:"date"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Lines       []lineResponse `json:"lines"`
}

type lineResponse struct {
	AccountCode string `json:"account_code"`
	Side        string `json:"side"`
	Amount      string `json:"amount"`
	Memo        string `json:"memo,omitempty"`
}

func toVoucherResponse(v ledger.Voucher) voucherResponse {
	out := voucherResponse{
		ID:          v.ID.String(),
		Number:      v.Number,
		Date:        v.Date.Format("2006-01-02"),
		Description: v.Description,
		Status:      string(v.Status),
	}
	for _, line := range v.Lines {
		out.Lines = append(out.Lines, lineResponse{
			AccountCode: line.AccountCode,
			Side:        string(line.Side),
			Amount:      line.Amount.Baht(),
			Memo:        line.Memo,
		})
	}
	return out
}

func (h *Handler) parseLines(reqs []lineRequest) ([]ledger.LineInput, error) {
	lines := make([]ledger.LineInput, 0, len(reqs))
	for _, lr := range reqs {
		amount, err := ledger.ParseBaht(lr.Amount)
		if err != nil {
			return nil, err
		}
		lines = append(lines, ledger.LineInput{
			AccountCode: lr.AccountCode,
			Side:        ledger.Side(lr.Side),
			Amount:      amount,
			Memo:        lr.Memo,
		})
	}
	return lines, nil
}

func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	lines, err := h.parseLines(req.Lines)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	var date time.Time
	if req.Date != "" {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.BadRequest(w, err)
			return
		}
	}
	voucher, err := h.service.CreateDraft(r.Context(), ledger.DraftInput{
		Date:        date,
		Description: req.Description,
		Lines:       lines,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toVoucherResponse(voucher))
}

type entriesRequest struct {
	VoucherID string        `json:"voucher_id" validate:"required,uuid"`
	Lines     []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) appendEntries(w http.ResponseWriter, r *http.Request) {
	var req entriesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	lines, err := h.parseLines(req.Lines)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	voucher, err := h.service.AppendLines(r.Context(), uuid.MustParse(req.VoucherID), lines)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toVoucherResponse(voucher))
}

type voucherActionRequest struct {
	VoucherID string `json:"voucher_id" validate:"required,uuid"`
	Reason    string `json:"reason"`
}

func (h *Handler) postVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherActionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	voucher, err := h.service.Post(r.Context(), uuid.MustParse(req.VoucherID), actorFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.reports.Invalidate(r.Context(), tbCacheKey, tbGroupedCacheKey)
	httpx.JSON(w, http.StatusOK, toVoucherResponse(voucher))
}

func (h *Handler) voidVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherActionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	voucher, err := h.service.Void(r.Context(), uuid.MustParse(req.VoucherID), req.Reason, actorFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.reports.Invalidate(r.Context(), tbCacheKey, tbGroupedCacheKey)
	httpx.JSON(w, http.StatusOK, toVoucherResponse(voucher))
}

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.service.Vouchers(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]voucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, toVoucherResponse(v))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type trialBalanceRow struct {
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Net         string `json:"net"`
}

type trialBalanceResponse struct {
	AsOf        string            `json:"as_of,omitempty"`
	Rows        []trialBalanceRow `json:"rows"`
	TotalDebit  string            `json:"total_debit"`
	TotalCredit string            `json:"total_credit"`
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	key := tbCacheKey
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.BadRequest(w, err)
			return
		}
		asOf = parsed
		key = tbCacheKey + ":" + raw
	}

	body, err := h.reports.GetOrCompute(r.Context(), key, tbCacheTTL, func(ctx context.Context) (any, error) {
		report, err := h.service.TrialBalance(ctx, asOf)
		if err != nil {
			return nil, err
		}
		out := trialBalanceResponse{
			TotalDebit:  report.TotalDebit.Baht(),
			TotalCredit: report.TotalCredit.Baht(),
		}
		if !report.AsOf.IsZero() {
			out.AsOf = report.AsOf.Format("2006-01-02")
		}
		for _, row := range report.Rows {
			out.Rows = append(out.Rows, trialBalanceRow{
				AccountCode: row.Account.Code,
				AccountName: row.Account.Name,
				Debit:       row.Debit.Baht(),
				Credit:      row.Credit.Baht(),
				Net:         row.Net.Baht(),
			})
		}
		return out, nil
	})
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

type groupedRow struct {
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Net         string `json:"net"`
}

type groupedSection struct {
	Key    string       `json:"key"`
	Rows   []groupedRow `json:"rows"`
	Debit  string       `json:"debit"`
	Credit string       `json:"credit"`
	Net    string       `json:"net"`
}

type groupedTrialBalanceResponse struct {
	Company     string           `json:"company"`
	AsOf        string           `json:"as_of,omitempty"`
	Groups      []groupedSection `json:"groups"`
	TotalDebit  string           `json:"total_debit"`
	TotalCredit string           `json:"total_credit"`
}

// trialBalanceGrouped renders the presentation form of the trial balance,
// with accounts bucketed by class and baht-formatted totals.
func (h *Handler) trialBalanceGrouped(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	key := tbGroupedCacheKey
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.BadRequest(w, err)
			return
		}
		asOf = parsed
		key = tbGroupedCacheKey + ":" + raw
	}

	body, err := h.reports.GetOrCompute(r.Context(), key, tbCacheTTL, func(ctx context.Context) (any, error) {
		report, err := h.service.TrialBalance(ctx, asOf)
		if err != nil {
			return nil, err
		}
		var asOfLabel string
		if !report.AsOf.IsZero() {
			asOfLabel = report.AsOf.Format("2006-01-02")
		}
		vm := reports.NewTrialBalanceViewModel(h.company, asOfLabel, reports.BuildTrialBalance(report.Rows))
		out := groupedTrialBalanceResponse{
			Company:     vm.CompanyName,
			AsOf:        vm.AsOf,
			TotalDebit:  vm.TotalDebit,
			TotalCredit: vm.TotalCredit,
		}
		for _, grp := range vm.Report.Groups {
			section := groupedSection{
				Key:    grp.Key,
				Debit:  reports.FormatBaht(grp.Debit),
				Credit: reports.FormatBaht(grp.Credit),
				Net:    reports.FormatBaht(grp.Net),
			}
			for _, row := range grp.Rows {
				section.Rows = append(section.Rows, groupedRow{
					AccountCode: row.Code,
					AccountName: row.Name,
					Debit:       reports.FormatBaht(row.Debit),
					Credit:      reports.FormatBaht(row.Credit),
					Net:         reports.FormatBaht(row.Net),
				})
			}
			out.Groups = append(out.Groups, section)
		}
		return out, nil
	})
	if err != nil {
		h.logger.Error("grouped trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
