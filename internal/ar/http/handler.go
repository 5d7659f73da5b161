// Package arhttp exposes the receivables subledger over JSON.
package arhttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/siamledger/siamledger/internal/ar"
	"github.com/siamledger/siamledger/internal/ledger"
	"github.com/siamledger/siamledger/internal/platform/httpx"
)

// Handler serves the sales and receivables endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *ar.Service
	validate *validator.Validate
}

// NewHandler constructs the receivables HTTP handler.
func NewHandler(logger *slog.Logger, service *ar.Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sales and receivables endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/sales", func(sr chi.Router) {
		sr.Get("/customers", h.listCustomers)
		sr.Post("/customers", h.createCustomer)
		sr.Get("/invoices", h.listInvoices)
		sr.Post("/invoices", h.createInvoice)
		sr.Post("/invoices/{number}/issue", h.issueInvoice)
	})
	r.Route("/ar", func(rr chi.Router) {
		rr.Get("/outstanding", h.outstanding)
		rr.Post("/payment", h.recordPayment)
		rr.Get("/aging", h.aging)
		rr.Get("/reconcile", h.reconcile)
	})
}

type customerRequest struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	TaxID       string `json:"tax_id"`
	CreditLimit string `json:"credit_limit"`
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	var limit ledger.Money
	if req.CreditLimit != "" {
		parsed, err := ledger.ParseBaht(req.CreditLimit)
		if err != nil {
			httpx.BadRequest(w, err)
			return
		}
		limit = parsed
	}
	customer, err := h.service.CreateCustomer(r.Context(), ar.CustomerInput{
		ID:          req.ID,
		Name:        req.Name,
		Address:     req.Address,
		Phone:       req.Phone,
		TaxID:       req.TaxID,
		CreditLimit: limit,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": customer.ID, "name": customer.Name})
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers := h.service.Customers(r.Context())
	type row struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]row, 0, len(customers))
	for _, c := range customers {
		out = append(out, row{ID: c.ID, Name: c.Name})
	}
	httpx.JSON(w, http.StatusOK, out)
}

// ItemRequest is the wire form of an invoice line. Quantities and rates are
// decimal strings so satang precision survives the trip.
type ItemRequest struct {
	Name      string `json:"name" validate:"required"`
	Quantity  string `json:"quantity" validate:"required"`
	UnitPrice string `json:"unit_price" validate:"required"`
	Discount  string `json:"discount"`
	VATRate   string `json:"vat_rate"`
}

// ParseItems converts wire items to domain items.
func ParseItems(reqs []ItemRequest, defaultVATRate string) ([]ar.InvoiceItem, error) {
	items := make([]ar.InvoiceItem, 0, len(reqs))
	for _, req := range reqs {
		quantity, err := decimal.NewFromString(req.Quantity)
		if err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(req.UnitPrice)
		if err != nil {
			return nil, err
		}
		discount := decimal.Zero
		if req.Discount != "" {
			if discount, err = decimal.NewFromString(req.Discount); err != nil {
				return nil, err
			}
		}
		rate := req.VATRate
		if rate == "" {
			rate = defaultVATRate
		}
		vatRate, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, err
		}
		items = append(items, ar.InvoiceItem{
			Name:        req.Name,
			Quantity:    quantity,
			UnitPrice:   price,
			DiscountPct: discount,
			VATRate:     vatRate,
		})
	}
	return items, nil
}

type invoiceRequest struct {
	CustomerID  string        `json:"customer_id" validate:"required"`
	InvoiceDate string        `json:"invoice_date"`
	DueDate     string        `json:"due_date"`
	Items       []ItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes       string        `json:"notes"`
}

type invoiceResponse struct {
	Number      string `json:"invoice_no"`
	CustomerID  string `json:"customer_id"`
	InvoiceDate string `json:"invoice_date"`
	DueDate     string `json:"due_date"`
	Status      string `json:"status"`
	Subtotal    string `json:"subtotal"`
	VAT         string `json:"vat"`
	Total       string `json:"total"`
	Outstanding string `json:"outstanding"`
}

func toInvoiceResponse(inv ar.Invoice) invoiceResponse {
	return invoiceResponse{
		Number:      inv.Number,
		CustomerID:  inv.CustomerID,
		InvoiceDate: inv.InvoiceDate.Format("2006-01-02"),
		DueDate:     inv.DueDate.Format("2006-01-02"),
		Status:      string(inv.Status),
		Subtotal:    inv.Subtotal.Baht(),
		VAT:         inv.VAT.Baht(),
		Total:       inv.Total.Baht(),
		Outstanding: inv.Outstanding().Baht(),
	}
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	items, err := ParseItems(req.Items, "7")
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	invoiceDate, dueDate, err := parseDates(req.InvoiceDate, req.DueDate)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	invoice, err := h.service.CreateInvoice(r.Context(), ar.InvoiceInput{
		CustomerID:  req.CustomerID,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		Items:       items,
		Notes:       req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toInvoiceResponse(invoice))
}

func (h *Handler) issueInvoice(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	invoice, err := h.service.IssueInvoice(r.Context(), number, actorFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(invoice))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices := h.service.Invoices(r.Context())
	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type paymentRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Amount     string `json:"amount" validate:"required"`
	Method     string `json:"method" validate:"omitempty,oneof=CASH CHEQUE BANK_TRANSFER CREDIT_CARD"`
	Reference  string `json:"reference"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
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
	method := ar.PaymentMethod(req.Method)
	if method == "" {
		method = ar.MethodCash
	}
	payment, err := h.service.RecordPayment(r.Context(), ar.PaymentInput{
		CustomerID: req.CustomerID,
		Amount:     amount,
		Method:     method,
		Reference:  req.Reference,
	}, actorFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	type allocation struct {
		InvoiceNumber string `json:"invoice_no"`
		Amount        string `json:"amount"`
	}
	allocations := make([]allocation, 0, len(payment.Allocations))
	for _, a := range payment.Allocations {
		allocations = append(allocations, allocation{InvoiceNumber: a.InvoiceNumber, Amount: a.Amount.Baht()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"payment_id":  payment.ID.String(),
		"amount":      payment.Amount.Baht(),
		"allocations": allocations,
	})
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	rows := h.service.Outstanding(r.Context())
	type row struct {
		CustomerID   string `json:"customer_id"`
		CustomerName string `json:"customer_name"`
		Outstanding  string `json:"outstanding"`
	}
	out := make([]row, 0, len(rows))
	for _, o := range rows {
		out = append(out, row{CustomerID: o.CustomerID, CustomerName: o.CustomerName, Outstanding: o.Outstanding.Baht()})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.BadRequest(w, err)
			return
		}
		asOf = parsed
	}
	bucket := h.service.Aging(r.Context(), asOf)
	httpx.JSON(w, http.StatusOK, map[string]string{
		"current": bucket.Current.Baht(),
		"1_30":    bucket.Bucket30.Baht(),
		"31_60":   bucket.Bucket60.Baht(),
		"61_90":   bucket.Bucket90.Baht(),
		"90_plus": bucket.Bucket120.Baht(),
	})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reconcile(r.Context()); err != nil {
		h.logger.Error("ar reconcile", slog.Any("error", err))
		httpx.Problem(w, http.StatusConflict, "Reconciliation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reconciled"})
}

func parseDates(invoiceDate, dueDate string) (time.Time, time.Time, error) {
	var inv, due time.Time
	var err error
	if invoiceDate != "" {
		if inv, err = time.Parse("2006-01-02", invoiceDate); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if dueDate != "" {
		if due, err = time.Parse("2006-01-02", dueDate); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return inv, due, nil
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "api"
}
