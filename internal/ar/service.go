package ar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siamledger/siamledger/internal/ledger"
)

var (
	ErrCustomerNotFound = errors.New("ar: customer not found")
	ErrDuplicateID      = errors.New("ar: customer id already exists")
	ErrInvoiceNotFound  = errors.New("ar: invoice not found")
	ErrInvalidStatus    = errors.New("ar: invalid status for operation")
	ErrNoItems          = errors.New("ar: invoice requires at least one item")
	ErrReconciliation   = errors.New("ar: subledger diverges from general ledger")
)

// OverpaymentError rejects a payment exceeding the customer's outstanding
// balance. Overpayments are rejected outright rather than clamped or held as
// customer credit.
type OverpaymentError struct {
	CustomerID  string
	Outstanding ledger.Money
	Attempted   ledger.Money
}

func (e OverpaymentError) Error() string {
	return fmt.Sprintf("ar: payment %s exceeds outstanding %s for customer %s",
		e.Attempted.Baht(), e.Outstanding.Baht(), e.CustomerID)
}

// LedgerPort is the slice of the posting engine the receivables subledger
// needs. Every balance-affecting operation goes through it.
type LedgerPort interface {
	PostNew(ctx context.Context, in ledger.DraftInput, actor string) (ledger.Voucher, error)
	AccountBalance(ctx context.Context, code string, asOf time.Time) (ledger.Money, error)
}

// Accounts names the control accounts AR posts against.
type Accounts struct {
	Receivable string
	Revenue    string
	VATOutput  string
	Cash       string
}

// DefaultAccounts returns the stock chart codes.
func DefaultAccounts() Accounts {
	return Accounts{Receivable: "1100", Revenue: "4000", VATOutput: "2100", Cash: "1000"}
}

// Service owns the receivables subledger: customers, sales invoices, and
// payments. It never touches account balances directly. Recognition and
// settlement are vouchers routed through the posting engine, so Outstanding
// stays reconcilable with the AR control account.
type Service struct {
	gl       LedgerPort
	accounts Accounts

	mu         sync.Mutex
	customers  map[string]*Customer
	invoices   map[string]*Invoice
	payments   []Payment
	nextNumber int64
	now        func() time.Time
}

// NewService builds the receivables service.
func NewService(gl LedgerPort, accounts Accounts) *Service {
	return &Service{
		gl:         gl,
		accounts:   accounts,
		customers:  make(map[string]*Customer),
		invoices:   make(map[string]*Invoice),
		nextNumber: 1,
		now:        time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CustomerInput carries master data for a new customer.
type CustomerInput struct {
	ID          string
	Name        string
	Address     string
	Phone       string
	TaxID       string
	CreditLimit ledger.Money
}

// CreateCustomer registers a customer master record.
func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (Customer, error) {
	if in.ID == "" || in.Name == "" {
		return Customer{}, errors.New("ar: customer id and name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.customers[in.ID]; exists {
		return Customer{}, fmt.Errorf("%w: %s", ErrDuplicateID, in.ID)
	}
	now := s.now()
	c := &Customer{
		ID:          in.ID,
		Name:        in.Name,
		Address:     in.Address,
		Phone:       in.Phone,
		TaxID:       in.TaxID,
		CreditLimit: in.CreditLimit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.customers[in.ID] = c
	return *c, nil
}

// Customers lists all customers ordered by id.
func (s *Service) Customers(ctx context.Context) []Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InvoiceInput opens a draft sales invoice.
type InvoiceInput struct {
	CustomerID  string
	InvoiceDate time.Time
	DueDate     time.Time
	Items       []InvoiceItem
	Notes       string
}

// CreateInvoice opens a draft invoice for a known customer.
func (s *Service) CreateInvoice(ctx context.Context, in InvoiceInput) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[in.CustomerID]; !ok {
		return Invoice{}, fmt.Errorf("%w: %s", ErrCustomerNotFound, in.CustomerID)
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
		Number:      fmt.Sprintf("INV%06d", s.nextNumber),
		CustomerID:  in.CustomerID,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		Items:       append([]InvoiceItem(nil), in.Items...),
		Status:      StatusDraft,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextNumber++
	recalc(inv)
	s.invoices[inv.Number] = inv
	return *inv, nil
}

// AddItem appends a line to a draft invoice.
func (s *Service) AddItem(ctx context.Context, number string, item InvoiceItem) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[number]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: %s", ErrInvoiceNotFound, number)
	}
	if inv.Status != StatusDraft {
		return Invoice{}, fmt.Errorf("%w: invoice %s is %s", ErrInvalidStatus, number, inv.Status)
	}
	inv.Items = append(inv.Items, item)
	recalc(inv)
	inv.UpdatedAt = s.now()
	return *inv, nil
}

// IssueInvoice finalises a draft and posts the recognising voucher:
// debit Accounts Receivable for the gross total, credit Revenue for the
// subtotal, credit VAT Output for the tax.
func (s *Service) IssueInvoice(ctx context.Context, number, actor string) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[number]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: %s", ErrInvoiceNotFound, number)
	}
	if inv.Status != StatusDraft {
		return Invoice{}, fmt.Errorf("%w: invoice %s is %s", ErrInvalidStatus, number, inv.Status)
	}
	if len(inv.Items) == 0 {
		return Invoice{}, ErrNoItems
	}
	recalc(inv)

	lines := []ledger.LineInput{
		{AccountCode: s.accounts.Receivable, Side: ledger.SideDebit, Amount: inv.Total, Memo: inv.Number},
		{AccountCode: s.accounts.Revenue, Side: ledger.SideCredit, Amount: inv.Subtotal, Memo: inv.Number},
	}
	if inv.VAT > 0 {
		lines = append(lines, ledger.LineInput{
			AccountCode: s.accounts.VATOutput, Side: ledger.SideCredit, Amount: inv.VAT, Memo: inv.Number,
		})
	}
	voucher, err := s.gl.PostNew(ctx, ledger.DraftInput{
		Date:        inv.InvoiceDate,
		Description: fmt.Sprintf("Sales invoice %s", inv.Number),
		Lines:       lines,
	}, actor)
	if err != nil {
		return Invoice{}, err
	}
	inv.VoucherID = voucher.ID
	inv.Status = StatusIssued
	inv.UpdatedAt = s.now()
	return *inv, nil
}

// Invoice returns one invoice by number.
func (s *Service) Invoice(ctx context.Context, number string) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[number]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: %s", ErrInvoiceNotFound, number)
	}
	return *inv, nil
}

// Invoices lists invoices ordered by number.
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

// PaymentInput records a customer payment.
type PaymentInput struct {
	CustomerID string
	Amount     ledger.Money
	Method     PaymentMethod
	Date       time.Time
	Reference  string
}

// RecordPayment settles the customer's open invoices oldest first. A
// payment exceeding the outstanding balance is rejected with
// OverpaymentError before any state changes. Settlement itself is a voucher
// (debit Cash, credit Accounts Receivable) so the control account moves in
// lockstep with the subledger.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput, actor string) (Payment, error) {
	if in.Amount <= 0 {
		return Payment{}, errors.New("ar: payment amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[in.CustomerID]; !ok {
		return Payment{}, fmt.Errorf("%w: %s", ErrCustomerNotFound, in.CustomerID)
	}

	open := s.openInvoicesLocked(in.CustomerID)
	var outstanding ledger.Money
	for _, inv := range open {
		outstanding += inv.Outstanding()
	}
	if in.Amount > outstanding {
		return Payment{}, OverpaymentError{
			CustomerID:  in.CustomerID,
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
		Description: fmt.Sprintf("Customer payment %s", in.CustomerID),
		Lines: []ledger.LineInput{
			{AccountCode: s.accounts.Cash, Side: ledger.SideDebit, Amount: in.Amount, Memo: in.Reference},
			{AccountCode: s.accounts.Receivable, Side: ledger.SideCredit, Amount: in.Amount, Memo: in.Reference},
		},
	}, actor)
	if err != nil {
		return Payment{}, err
	}

	payment := Payment{
		ID:         uuid.New(),
		CustomerID: in.CustomerID,
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

// Payments lists recorded payments in order.
func (s *Service) Payments(ctx context.Context) []Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Payment(nil), s.payments...)
}

// CustomerOutstanding aggregates the unpaid remainder per customer.
type CustomerOutstanding struct {
	CustomerID   string
	CustomerName string
	Outstanding  ledger.Money
}

// Outstanding returns, per customer, issued totals minus allocated payments.
func (s *Service) Outstanding(ctx context.Context) []CustomerOutstanding {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[string]ledger.Money)
	for _, inv := range s.invoices {
		if inv.Status == StatusDraft {
			continue
		}
		totals[inv.CustomerID] += inv.Outstanding()
	}
	out := make([]CustomerOutstanding, 0, len(totals))
	for id, amount := range totals {
		name := ""
		if c, ok := s.customers[id]; ok {
			name = c.Name
		}
		out = append(out, CustomerOutstanding{CustomerID: id, CustomerName: name, Outstanding: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

// Aging buckets outstanding invoices by days overdue at asOf.
func (s *Service) Aging(ctx context.Context, asOf time.Time) AgingBucket {
	if asOf.IsZero() {
		asOf = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var bucket AgingBucket
	for _, inv := range s.invoices {
		if inv.Status == StatusDraft || inv.Status == StatusPaid {
			continue
		}
		days := int(asOf.Sub(inv.DueDate).Hours() / 24)
		amount := inv.Outstanding()
		switch {
		case days <= 0:
			bucket.Current += amount
		case days <= 30:
			bucket.Bucket30 += amount
		case days <= 60:
			bucket.Bucket60 += amount
		case days <= 90:
			bucket.Bucket90 += amount
		default:
			bucket.Bucket120 += amount
		}
	}
	return bucket
}

// Reconcile asserts the subledger total equals the AR control account
// balance derived from posted lines. A mismatch means a posting escaped the
// subledger (or vice versa) and is reported, never papered over.
func (s *Service) Reconcile(ctx context.Context) error {
	var total ledger.Money
	for _, row := range s.Outstanding(ctx) {
		total += row.Outstanding
	}
	control, err := s.gl.AccountBalance(ctx, s.accounts.Receivable, time.Time{})
	if err != nil {
		return err
	}
	if total != control {
		return fmt.Errorf("%w: subledger %s, control account %s",
			ErrReconciliation, total.Baht(), control.Baht())
	}
	return nil
}

// VATTotals sums the taxable base and output VAT of invoices issued inside
// [from, to]. Used by the tax report.
func (s *Service) VATTotals(ctx context.Context, from, to time.Time) (base, vat ledger.Money, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.Status == StatusDraft {
			continue
		}
		if inv.InvoiceDate.Before(from) || inv.InvoiceDate.After(to) {
			continue
		}
		base += inv.Subtotal
		vat += inv.VAT
	}
	return base, vat, nil
}

// openInvoicesLocked returns the customer's unpaid issued invoices oldest
// first, for FIFO allocation. Caller holds s.mu.
func (s *Service) openInvoicesLocked(customerID string) []*Invoice {
	var open []*Invoice
	for _, inv := range s.invoices {
		if inv.CustomerID != customerID {
			continue
		}
		if inv.Status != StatusIssued && inv.Status != StatusPartiallyPaid {
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

func recalc(inv *Invoice) {
	var subtotal, vat ledger.Money
	for _, item := range inv.Items {
		subtotal += item.Amount()
		vat += item.VATAmount()
	}
	inv.Subtotal = subtotal
	inv.VAT = vat
	inv.Total = subtotal + vat
}
