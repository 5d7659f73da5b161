// Package assethttp exposes the fixed asset register over JSON.
package assethttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/siamledger/siamledger/internal/assets"
	"github.com/siamledger/siamledger/internal/ledger"
	"github.com/siamledger/siamledger/internal/platform/httpx"
)

// Handler serves the fixed asset endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *assets.Service
	validate *validator.Validate
}

// NewHandler constructs the assets HTTP handler.
func NewHandler(logger *slog.Logger, service *assets.Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers asset endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/assets", func(asr chi.Router) {
		asr.Get("/", h.listAssets)
		asr.Post("/", h.registerAsset)
		asr.Get("/{id}", h.getAsset)
		asr.Post("/{id}/dispose", h.disposeAsset)
		asr.Post("/depreciation/run", h.runDepreciation)
		asr.Get("/reconcile", h.reconcile)
	})
}

type registerRequest struct {
	Name         string `json:"name" validate:"required"`
	Department   string `json:"department"`
	PurchaseDate string `json:"purchase_date"`
	Cost         string `json:"cost" validate:"required"`
	SalvageValue string `json:"salvage_value"`
	Method       string `json:"method" validate:"omitempty,oneof=STRAIGHT_LINE DECLINING_BALANCE"`
	LifeYears    int    `json:"life_years" validate:"required,min=1"`
}

type assetResponse struct {
	ID           string `json:"asset_id"`
	Name         string `json:"asset_name"`
	Department   string `json:"department,omitempty"`
	PurchaseDate string `json:"purchase_date"`
	Cost         string `json:"cost"`
	Method       string `json:"method"`
	LifeYears    int    `json:"life_years"`
	Status       string `json:"status"`
	Accumulated  string `json:"accumulated_depreciation"`
	BookValue    string `json:"book_value"`
}

func toAssetResponse(a assets.Asset) assetResponse {
	return assetResponse{
		ID:           a.ID,
		Name:         a.Name,
		Department:   a.Department,
		PurchaseDate: a.PurchaseDate.Format("2006-01-02"),
		Cost:         a.Cost.Baht(),
		Method:       string(a.Method),
		LifeYears:    a.LifeYears,
		Status:       string(a.Status),
		Accumulated:  a.Accumulated.Baht(),
		BookValue:    a.BookValue().Baht(),
	}
}

func (h *Handler) registerAsset(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	cost, err := ledger.ParseBaht(req.Cost)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	var salvage ledger.Money
	if req.SalvageValue != "" {
		if salvage, err = ledger.ParseBaht(req.SalvageValue); err != nil {
			httpx.BadRequest(w, err)
			return
		}
	}
	var purchase time.Time
	if req.PurchaseDate != "" {
		if purchase, err = time.Parse("2006-01-02", req.PurchaseDate); err != nil {
			httpx.BadRequest(w, err)
			return
		}
	}
	asset, err := h.service.Register(r.Context(), assets.RegisterInput{
		Name:         req.Name,
		Department:   req.Department,
		PurchaseDate: purchase,
		Cost:         cost,
		SalvageValue: salvage,
		Method:       assets.DepreciationMethod(req.Method),
		LifeYears:    req.LifeYears,
	}, actorFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAssetResponse(asset))
}

func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) {
	list := h.service.Assets(r.Context())
	out := make([]assetResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAssetResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.service.Asset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAssetResponse(asset))
}

func (h *Handler) disposeAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.service.Dispose(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAssetResponse(asset))
}

type runRequest struct {
	Year  int `json:"year" validate:"required,min=2000"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

func (h *Handler) runDepreciation(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	run, err := h.service.RunDepreciation(r.Context(), assets.Period{
		Year:  req.Year,
		Month: time.Month(req.Month),
	}, actorFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"period": run.Period.String(),
		"total":  run.Total.Baht(),
		"assets": run.Assets,
	})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reconcile(r.Context()); err != nil {
		h.logger.Error("assets reconcile", slog.Any("error", err))
		httpx.Problem(w, http.StatusConflict, "Reconciliation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reconciled"})
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "api"
}
