// Package aphttp exposes the payables subledger over JSON.
package aphttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/siamledger/siamledger/internal/ap"
	"github.com/siamledger/siamledger/internal/ar"
	arhttp "github.com/siamledger/siamledger/internal/ar/http"
	"github.com/siamledger/siamledger/internal/ledger"
	"github.com/siamledger/siamledger/internal/platform/httpx"
)

// Handler serves the purchasing and payables endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *ap.Service
	validate *validator.Validate
}

// NewHandler constructs the payables HTTP handler.
func NewHandler(logger *slog.Logger, service *ap.Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchasing endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/purchases", func(pr chi.Router) {
		pr.Get("/suppliers", h.listSuppliers)
		pr.Post("/suppliers", h.createSupplier)
		pr.Get("/orders", h.listOrders)
		pr.Post("/orders", h.createOrder)
		pr.Post("/orders/{number}/place", h.placeOrder)
		pr.Post("/orders/{number}/cancel", h.cancelOrder)
		pr.Get("/invoices", h.listInvoices)
		pr.Post("/invoices", h.receiveInvoice)
		pr.Post("/payment", h.paySupplier)
		pr.Get("/outstanding", h.outstanding)
		pr.Get("/reconcile", h.reconcile)
	})
}

type supplierRequest struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	TaxID   string `json:"tax_id"`
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), ap.SupplierInput{
		ID:      req.ID,
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		TaxID:   req.TaxID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": supplier.ID, "name": supplier.Name})
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers := h.service.Suppliers(r.Context())
	type row struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]row, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, row{ID: s.ID, Name: s.Name})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type orderRequest struct {
	SupplierID       string               `json:"supplier_id" validate:"required"`
	OrderDate        string               `json:"order_date"`
	ExpectedDelivery string               `json:"expected_delivery"`
	Items            []arhttp.ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type orderResponse struct {
	Number     string `json:"po_no"`
	SupplierID string `json:"supplier_id"`
	OrderDate  string `json:"order_date"`
	Status     string `json:"status"`
	Total      string `json:"total"`
}

func toOrderResponse(po ap.PurchaseOrder) orderResponse {
	return orderResponse{
		Number:     po.Number,
		SupplierID: po.SupplierID,
		OrderDate:  po.OrderDate.Format("2006-01-02"),
		Status:     string(po.Status),
		Total:      po.Total.Baht(),
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	items, err := arhttp.ParseItems(req.Items, "7")
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	var orderDate, delivery time.Time
	if req.OrderDate != "" {
		if orderDate, err = time.Parse("2006-01-02", req.OrderDate); err != nil {
			httpx.BadRequest(w, err)
			return
		}
	}
	if req.ExpectedDelivery != "" {
		if delivery, err = time.Parse("2006-01-02", req.ExpectedDelivery); err != nil {
			httpx.BadRequest(w, err)
			return
		}
	}
	po, err := h.service.CreateOrder(r.Context(), ap.OrderInput{
		SupplierID:       req.SupplierID,
		OrderDate:        orderDate,
		ExpectedDelivery: delivery,
		Items:            items,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOrderResponse(po))
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.service.PlaceOrder(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(po))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.service.CancelOrder(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(po))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.service.Orders(r.Context())
	out := make([]orderResponse, 0, len(orders))
	for _, po := range orders {
		out = append(out, toOrderResponse(po))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type purchaseInvoiceRequest struct {
	SupplierID  string               `json:"supplier_id" validate:"required"`
	OrderNumber string               `json:"po_no"`
	InvoiceDate string               `json:"invoice_date"`
	DueDate     string               `json:"due_date"`
	Items       []arhttp.ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type purchaseInvoiceResponse struct {
	Number      string `json:"invoice_no"`
	SupplierID  string `json:"supplier_id"`
	OrderNumber string `json:"po_no,omitempty"`
	InvoiceDate string `json:"invoice_date"`
	Status      string `json:"status"`
	Subtotal    string `json:"subtotal"`
	VAT         string `json:"vat"`
	Total       string `json:"total"`
	Outstanding string `json:"outstanding"`
}

func toPurchaseInvoiceResponse(inv ap.Invoice) purchaseInvoiceResponse {
	return purchaseInvoiceResponse{
		Number:      inv.Number,
		SupplierID:  inv.SupplierID,
		OrderNumber: inv.OrderNumber,
		InvoiceDate: inv.InvoiceDate.Format("2006-01-02"),
		Status:      string(inv.Status),
		Subtotal:    inv.Subtotal.Baht(),
		VAT:         inv.VAT.Baht(),
		Total:       inv.Total.Baht(),
		Outstanding: inv.Outstanding().Baht(),
	}
}

func (h *Handler) receiveInvoice(w http.ResponseWriter, r *http.Request) {
	var req purchaseInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	items, err := arhttp.ParseItems(req.Items, "7")
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	var invoiceDate, dueDate time.Time
	if req.InvoiceDate != "" {
		if invoiceDate, err = time.Parse("2006-01-02", req.InvoiceDate); err != nil {
			httpx.BadRequest(w, err)
			return
		}
	}
	if req.DueDate != "" {
		if dueDate, err = time.Parse("2006-01-02", req.DueDate); err != nil {
			httpx.BadRequest(w, err)
			return
		}
	}
	invoice, err := h.service.ReceiveInvoice(r.Context(), ap.InvoiceInput{
		SupplierID:  req.SupplierID,
		OrderNumber: req.OrderNumber,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		Items:       items,
	}, actorFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPurchaseInvoiceResponse(invoice))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices := h.service.Invoices(r.Context())
	out := make([]purchaseInvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toPurchaseInvoiceResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type paymentRequest struct {
	SupplierID string `json:"supplier_id" validate:"required"`
	Amount     string `json:"amount" validate:"required"`
	Method     string `json:"method" validate:"omitempty,oneof=CASH CHEQUE BANK_TRANSFER CREDIT_CARD"`
	Reference  string `json:"reference"`
}

func (h *Handler) paySupplier(w http.ResponseWriter, r *http.Request) {
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
		method = ar.MethodBankTransfer
	}
	payment, err := h.service.PaySupplier(r.Context(), ap.PaymentInput{
		SupplierID: req.SupplierID,
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
		SupplierID   string `json:"supplier_id"`
		SupplierName string `json:"supplier_name"`
		Outstanding  string `json:"outstanding"`
	}
	out := make([]row, 0, len(rows))
	for _, o := range rows {
		out = append(out, row{SupplierID: o.SupplierID, SupplierName: o.SupplierName, Outstanding: o.Outstanding.Baht()})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reconcile(r.Context()); err != nil {
		h.logger.Error("ap reconcile", slog.Any("error", err))
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
