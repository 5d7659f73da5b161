// Package bankinghttp exposes the cash subledger over JSON.
package bankinghttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/siamledger/siamledger/internal/banking"
	"github.com/siamledger/siamledger/internal/ledger"
	"github.com/siamledger/siamledger/internal/platform/httpx"
)

// Handler serves the banking endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *banking.Service
	validate *validator.Validate
}

// NewHandler constructs the banking HTTP handler.
func NewHandler(logger *slog.Logger, service *banking.Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers banking endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/banking", func(br chi.Router) {
		br.Get("/balance", h.balance)
		br.Post("/deposit", h.deposit)
		br.Post("/withdraw", h.withdraw)
		br.Get("/cheques", h.listCheques)
		br.Get("/cheques/outstanding", h.outstandingCheques)
		br.Post("/cheques/receive", h.receiveCheque)
		br.Post("/cheques/issue", h.issueCheque)
		br.Post("/cheques/{number}/deposit", h.depositCheque)
		br.Post("/cheques/{number}/clear", h.clearCheque)
		br.Post("/cheques/{number}/return", h.returnCheque)
	})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.Balance(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"balance": balance.Baht()})
}

type movementRequest struct {
	Amount string `json:"amount" validate:"required"`
	Memo   string `json:"memo"`
}

type movementOp func(ctx context.Context, amount ledger.Money, memo, actor string) (ledger.Voucher, error)

func (h *Handler) move(w http.ResponseWriter, r *http.Request, op movementOp) {
	var req movementRequest
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
	if _, err := op(r.Context(), amount, req.Memo, actorFrom(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	balance, err := h.service.Balance(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"balance": balance.Baht()})
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.service.Deposit)
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.service.Withdraw)
}

type chequeRequest struct {
	Number string `json:"number" validate:"required"`
	Bank   string `json:"bank"`
	Party  string `json:"party"`
	Amount string `json:"amount" validate:"required"`
	Date   string `json:"date"`
}

type chequeResponse struct {
	Number    string `json:"number"`
	Bank      string `json:"bank,omitempty"`
	Direction string `json:"direction"`
	Party     string `json:"party,omitempty"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

func toChequeResponse(c banking.Cheque) chequeResponse {
	return chequeResponse{
		Number:    c.Number,
		Bank:      c.Bank,
		Direction: string(c.Direction),
		Party:     c.Party,
		Amount:    c.Amount.Baht(),
		Date:      c.Date.Format("2006-01-02"),
		Status:    string(c.Status),
	}
}

type chequeOp func(ctx context.Context, in banking.ChequeInput) (banking.Cheque, error)

func (h *Handler) registerCheque(w http.ResponseWriter, r *http.Request, op chequeOp) {
	var req chequeRequest
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
	var date time.Time
	if req.Date != "" {
		if date, err = time.Parse("2006-01-02", req.Date); err != nil {
			httpx.BadRequest(w, err)
			return
		}
	}
	cheque, err := op(r.Context(), banking.ChequeInput{
		Number: req.Number,
		Bank:   req.Bank,
		Party:  req.Party,
		Amount: amount,
		Date:   date,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toChequeResponse(cheque))
}

func (h *Handler) receiveCheque(w http.ResponseWriter, r *http.Request) {
	h.registerCheque(w, r, h.service.ReceiveCheque)
}

func (h *Handler) issueCheque(w http.ResponseWriter, r *http.Request) {
	h.registerCheque(w, r, h.service.IssueCheque)
}

type chequeTransition func(ctx context.Context, number, actor string) (banking.Cheque, error)

func (h *Handler) transitionCheque(w http.ResponseWriter, r *http.Request, op chequeTransition) {
	cheque, err := op(r.Context(), chi.URLParam(r, "number"), actorFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toChequeResponse(cheque))
}

func (h *Handler) depositCheque(w http.ResponseWriter, r *http.Request) {
	h.transitionCheque(w, r, h.service.DepositCheque)
}

func (h *Handler) clearCheque(w http.ResponseWriter, r *http.Request) {
	h.transitionCheque(w, r, h.service.ClearCheque)
}

func (h *Handler) returnCheque(w http.ResponseWriter, r *http.Request) {
	h.transitionCheque(w, r, h.service.ReturnCheque)
}

func (h *Handler) listCheques(w http.ResponseWriter, r *http.Request) {
	h.respondCheques(w, h.service.Cheques(r.Context()))
}

func (h *Handler) outstandingCheques(w http.ResponseWriter, r *http.Request) {
	h.respondCheques(w, h.service.OutstandingCheques(r.Context()))
}

func (h *Handler) respondCheques(w http.ResponseWriter, cheques []banking.Cheque) {
	out := make([]chequeResponse, 0, len(cheques))
	for _, c := range cheques {
		out = append(out, toChequeResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "api"
}
