package ap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siamledger/siamledger/internal/ar"
	"github.com/siamledger/siamledger/internal/ledger"
)

var (
	ErrSupplierNotFound = errors.New("ap: supplier not found")
	ErrDuplicateID      = errors.New("ap: supplier id already exists")
	ErrOrderNotFound    = errors.New("ap: purchase order not found")
	ErrInvoiceNotFound  = errors.New("ap: purchase invoice not found")
	ErrInvalidStatus    = errors.New("ap: invalid status for operation")
	ErrNoItems          = errors.New("ap: document requires at least one item")
	ErrReconciliation   = errors.New("ap: subledger diverges from general ledger")
)

// OverpaymentError rejects supplier payments exceeding outstanding payables.
// Same policy as receivables: reject, never clamp.
type OverpaymentError struct {
	SupplierID  string
	Outstanding ledger.Money
	Attempted   ledger.Money
}

func (e OverpaymentError) Error() string {
	return fmt.Sprintf("ap: payment %s exceeds outstanding %s for supplier %s",
		e.Attempted.Baht(), e.Outstanding.Baht(), e.SupplierID)
}

// LedgerPort is the slice of the posting engine the payables subledger needs.
type LedgerPort interface {
	PostNew(ctx context.Context, in ledger.DraftInput, actor string) (ledger.Voucher, error)
	AccountBalance(ctx context.Context, code string, asOf time.Time) (ledger.Money, error)
}

// Accounts names the control accounts AP posts against. Input VAT is
// debited against the same Tax Payable account output VAT credits, so the
// account's net balance is the net VAT position.
type Accounts struct {
	Payable   string
	Inventory string
	VATInput  string
	Cash      string
}

// DefaultAccounts returns the stock chart codes.
func DefaultAccounts() Accounts {
	return Accounts{Payable: "2000", Inventory: "1200", VATInput: "2100", Cash: "1000"}
}

// Service owns the payables subledger: suppliers, purchase orders, purchase
// invoices, and supplier payments.
type Service struct {
	gl       LedgerPort
	accounts Accounts

	mu          sync.Mutex
	suppliers   map[string]*Supplier
	orders      map[string]*PurchaseOrder
	invoices    map[string]*Invoice
	payments    []Payment
	nextOrder   int64
	nextInvoice int64
	now         func() time.Time
}

// NewService builds the payables service.
func NewService(gl LedgerPort, accounts Accounts) *Service {
	return &Service{
		gl:          gl,
		accounts:    accounts,
		suppliers:   make(map[string]*Supplier),
		orders:      make(map[string]*PurchaseOrder),
		invoices:    make(map[string]*Invoice),
		nextOrder:   1,
		nextInvoice: 1,
		now:         time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SupplierInput carries master data for a new supplier.
type SupplierInput struct {
	ID          string
	Name        string
	Address     string
	Phone       string
	TaxID       string
	CreditLimit ledger.Money
}

// CreateSupplier registers a supplier master record.
func (s *Service) CreateSupplier(ctx context.Context, in SupplierInput) (Supplier, error) {
	if in.ID == "" || in.Name == "" {
		return Supplier{}, errors.New("ap: supplier id and name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.suppliers[in.ID]; exists {
		return Supplier{}, fmt.Errorf("%w: %s", ErrDuplicateID, in.ID)
	}
	now := s.now()
	sup := &Supplier{
		ID:          in.ID,
		Name:        in.Name,
		Address:     in.Address,
		Phone:       in.Phone,
		TaxID:       in.TaxID,
		CreditLimit: in.CreditLimit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.suppliers[in.ID] = sup
	return *sup, nil
}

// Suppliers lists all suppliers ordered by id.
func (s *Service) Suppliers(ctx context.Context) []Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, *sup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OrderInput opens a draft purchase order.
type OrderInput struct {
	SupplierID       string
	OrderDate        time.Time
	ExpectedDelivery time.Time
	Items            []Item
}

// CreateOrder opens a draft purchase order for a known supplier.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[in.SupplierID]; !ok {
		return PurchaseOrder{}, fmt.Errorf("%w: %s", ErrSupplierNotFound, in.SupplierID)
	}
	now := s.now()
	orderDate := in.OrderDate
	if orderDate.IsZero() {
		orderDate = now
	}
	po := &PurchaseOrder{
		Number:           fmt.Sprintf("PO%06d", s.nextOrder),
		SupplierID:       in.SupplierID,
		OrderDate:        orderDate,
		ExpectedDelivery: in.ExpectedDelivery,
		Items:            append([]Item(nil), in.Items...),
		Status:           OrderStatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.nextOrder++
	po.Total = grossTotal(po.Items)
	s.orders[po.Number] = po
	return *po, nil
}

// PlaceOrder finalises a draft order. No ledger effect yet.
func (s *Service) PlaceOrder(ctx context.Context, number string) (PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.orders[number]
	if !ok {
		return PurchaseOrder{}, fmt.Errorf("%w: %s", ErrOrderNotFound, number)
	}
	if po.Status != OrderStatusDraft {
		return PurchaseOrder{}, fmt.Errorf("%w: order %s is %s", ErrInvalidStatus, number, po.Status)
	}
	if len(po.Items) == 0 {
		return PurchaseOrder{}, ErrNoItems
	}
	po.Total = grossTotal(po.Items)
	po.Status = OrderStatusOrdered
	po.UpdatedAt = s.now()
	return *po, nil
}

// CancelOrder cancels a draft or ordered purchase order.
func (s *Service) CancelOrder(ctx context.Context, number string) (PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.orders[number]
	if !ok {
		return PurchaseOrder{}, fmt.Errorf("%w: %s", ErrOrderNotFound, number)
	}
	if po.Status == OrderStatusReceived || po.Status == OrderStatusCancelled {
		return PurchaseOrder{}, fmt.Errorf("%w: order %s is %s", ErrInvalidStatus, number, po.Status)
	}
	po.Status = OrderStatusCancelled
	po.UpdatedAt = s.now()
	return *po, nil
}

// Orders lists purchase orders ordered by number.
func (s *Service) Orders(ctx context.Context) []PurchaseOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PurchaseOrder, 0, len(s.orders))
	for _, po := range s.orders {
		out = append(out, *po)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// InvoiceInput records an incoming purchase invoice.
type InvoiceInput struct {
	SupplierID  string
	OrderNumber string
	InvoiceDate time.Time
	DueDate     time.Time
	Items       []Item
}

// ReceiveInvoice records a purchase invoice and posts the recognising
// voucher: debit Inventory for the subtotal, debit Tax Payable for the
// deductible input VAT, credit Accounts Payable for the gross total. When
// the invoice references an order, the order flips to Received.
func (s *Service) ReceiveInvoice(ctx context.Context, in InvoiceInput, actor string) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[in.SupplierID]; !ok {
		return Invoice{}, fmt.Errorf("%w: %s", ErrSupplierNotFound, in.SupplierID)
	}
	if len(in.Items) == 0 {
		return Invoice{}, ErrNoItems
	}
	if in.OrderNumber != "" {
		po, ok := s.orders[in.OrderNumber]
		if !ok {
			return Invoice{}, fmt.Errorf("%w: %s", ErrOrderNotFound, in.OrderNumber)
		}
		if po.Status != OrderStatusOrdered {
			return Invoice{}, fmt.Errorf("%w: order %s is %s", ErrInvalidStatus, in.OrderNumber, po.Status)
		}
	}

	now := s.now()
	invoiceDate := in.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = now
	}
	dueDate := in.DueDate
	if dueDate.IsZero() {
		dueDate = invoiceDate.AddDate(0, 0, 30)
	}
	inv := &Invoice{
		Number:      fmt.Sprintf("PINV%06d", s.nextInvoice),
		SupplierID:  in.SupplierID,
		OrderNumber: in.OrderNumber,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		Items:       append([]Item(nil), in.Items...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextInvoice++
	var subtotal, vat ledger.Money
	for _, item := range inv.Items {
		subtotal += item.Amount()
		vat += item.VATAmount()
	}
	inv.Subtotal = subtotal
	inv.VAT = vat
	inv.Total = subtotal + vat

	lines := []ledger.LineInput{
		{AccountCode: s.accounts.Inventory, Side: ledger.SideDebit, Amount: inv.Subtotal, Memo: inv.Number},
	}
	if inv.VAT > 0 {
		lines = append(lines, ledger.LineInput{
			AccountCode: s.accounts.VATInput, Side: ledger.SideDebit, Amount: inv.VAT, Memo: inv.Number,
		})
	}
	lines = append(lines, ledger.LineInput{
		AccountCode: s.accounts.Payable, Side: ledger.SideCredit, Amount: inv.Total, Memo: inv.Number,
	})
	voucher, err := s.gl.PostNew(ctx, ledger.DraftInput{
		Date:        inv.InvoiceDate,
		Description: fmt.Sprintf("Purchase invoice %s", inv.Number),
		Lines:       lines,
	}, actor)
	if err != nil {
		return Invoice{}, err
	}
	inv.VoucherID = voucher.ID
	inv.Status = StatusReceived
	if in.OrderNumber != "" {
		po := s.orders[in.OrderNumber]
		po.Status = OrderStatusReceived
		po.UpdatedAt = now
	}
	s.invoices[inv.Number] = inv
	return *inv, nil
}

// Invoices lists purchase invoices ordered by number.
func (s *Service) Invoices(ctx context.Context) []Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// PaymentInput records a supplier payment.
type PaymentInput struct {
	SupplierID string
	Amount     ledger.Money
	Method     ar.PaymentMethod
	Date       time.Time
	Reference  string
}

// PaySupplier settles the supplier's open invoices oldest first, posting
// debit Accounts Payable, credit Cash. Overpayments are rejected before any
// state changes.
func (s *Service) PaySupplier(ctx context.Context, in PaymentInput, actor string) (Payment, error) {
	if in.Amount <= 0 {
		return Payment{}, errors.New("ap: payment amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[in.SupplierID]; !ok {
		return Payment{}, fmt.Errorf("%w: %s", ErrSupplierNotFound, in.SupplierID)
	}

	open := s.openInvoicesLocked(in.SupplierID)
	var outstanding ledger.Money
	for _, inv := range open {
		outstanding += inv.Outstanding()
	}
	if in.Amount > outstanding {
		return Payment{}, OverpaymentError{
			SupplierID:  in.SupplierID,
			Outstanding: outstanding,
			Attempted:   in.Amount,
		}
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	voucher, err := s.gl.PostNew(ctx, ledger.DraftInput{
		Date:        date,
		Description: fmt.Sprintf("Supplier payment %s", in.SupplierID),
		Lines: []ledger.LineInput{
			{AccountCode: s.accounts.Payable, Side: ledger.SideDebit, Amount: in.Amount, Memo: in.Reference},
			{AccountCode: s.accounts.Cash, Side: ledger.SideCredit, Amount: in.Amount, Memo: in.Reference},
		},
	}, actor)
	if err != nil {
		return Payment{}, err
	}

	payment := Payment{
		ID:         uuid.New(),
		SupplierID: in.SupplierID,
		Date:       date,
		Amount:     in.Amount,
		Method:     in.Method,
		Reference:  in.Reference,
		VoucherID:  voucher.ID,
		CreatedAt:  s.now(),
	}
	remaining := in.Amount
	for _, inv := range open {
		if remaining == 0 {
			break
		}
		applied := inv.Outstanding()
		if applied > remaining {
			applied = remaining
		}
		inv.PaidAmount += applied
		remaining -= applied
		if inv.Outstanding() == 0 {
			inv.Status = StatusPaid
		} else {
			inv.Status = StatusPartiallyPaid
		}
		inv.UpdatedAt = s.now()
		payment.Allocations = append(payment.Allocations, Allocation{
			InvoiceNumber: inv.Number,
			Amount:        applied,
		})
	}
	s.payments = append(s.payments, payment)
	return payment, nil
}

// SupplierOutstanding aggregates unpaid payables per supplier.
type SupplierOutstanding struct {
	SupplierID   string
	SupplierName string
	Outstanding  ledger.Money
}

// Outstanding returns unpaid payables per supplier.
func (s *Service) Outstanding(ctx context.Context) []SupplierOutstanding {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[string]ledger.Money)
	for _, inv := range s.invoices {
		totals[inv.SupplierID] += inv.Outstanding()
	}
	out := make([]SupplierOutstanding, 0, len(totals))
	for id, amount := range totals {
		name := ""
		if sup, ok := s.suppliers[id]; ok {
			name = sup.Name
		}
		out = append(out, SupplierOutstanding{SupplierID: id, SupplierName: name, Outstanding: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SupplierID < out[j].SupplierID })
	return out
}

// Reconcile asserts the subledger total equals the AP control account.
func (s *Service) Reconcile(ctx context.Context) error {
	var total ledger.Money
	for _, row := range s.Outstanding(ctx) {
		total += row.Outstanding
	}
	control, err := s.gl.AccountBalance(ctx, s.accounts.Payable, time.Time{})
	if err != nil {
		return err
	}
	if total != control {
		return fmt.Errorf("%w: subledger %s, control account %s",
			ErrReconciliation, total.Baht(), control.Baht())
	}
	return nil
}

// VATTotals sums the taxable base and input VAT of invoices received inside
// [from, to]. Used by the tax report.
func (s *Service) VATTotals(ctx context.Context, from, to time.Time) (base, vat ledger.Money, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.InvoiceDate.Before(from) || inv.InvoiceDate.After(to) {
			continue
		}
		base += inv.Subtotal
		vat += inv.VAT
	}
	return base, vat, nil
}

func (s *Service) openInvoicesLocked(supplierID string) []*Invoice {
	var open []*Invoice
	for _, inv := range s.invoices {
		if inv.SupplierID != supplierID {
			continue
		}
		if inv.Status != StatusReceived && inv.Status != StatusPartiallyPaid {
			continue
		}
		open = append(open, inv)
	}
	sort.Slice(open, func(i, j int) bool {
		if open[i].InvoiceDate.Equal(open[j].InvoiceDate) {
			return open[i].Number < open[j].Number
		}
		return open[i].InvoiceDate.Before(open[j].InvoiceDate)
	})
	return open
}

func grossTotal(items []Item) ledger.Money {
	var total ledger.Money
	for _, item := range items {
		total += item.Amount() + item.VATAmount()
	}
	return total
}
