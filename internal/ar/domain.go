package ar

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/siamledger/siamledger/internal/ledger"
)

// InvoiceStatus enumerates sales invoice lifecycle values.
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "DRAFT"
	StatusIssued        InvoiceStatus = "ISSUED"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusPaid          InvoiceStatus = "PAID"
)

// PaymentMethod enumerates accepted settlement channels.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCheque       PaymentMethod = "CHEQUE"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
)

// Customer is a receivables master record.
type Customer struct {
	ID          string
	Name        string
	Address     string
	Phone       string
	TaxID       string
	CreditLimit ledger.Money
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InvoiceItem is one line of a sales invoice. Quantity, discount, and VAT
// rate stay decimal; the derived amounts land on the satang grid exactly
// once per line.
type InvoiceItem struct {
	Name        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	VATRate     decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// Amount returns the line amount before VAT, in satang.
func (it InvoiceItem) Amount() ledger.Money {
	subtotal := it.Quantity.Mul(it.UnitPrice)
	discount := subtotal.Mul(it.DiscountPct.Div(oneHundred))
	return ledger.FromDecimalBaht(subtotal.Sub(discount))
}

// VATAmount returns the line VAT, in satang.
func (it InvoiceItem) VATAmount() ledger.Money {
	net := it.Amount().DecimalBaht()
	return ledger.FromDecimalBaht(net.Mul(it.VATRate.Div(oneHundred)))
}

// Invoice is a sales/tax invoice. Issuing it posts the recognising voucher;
// after that the document is settled only through payments.
type Invoice struct {
	Number      string
	CustomerID  string
	InvoiceDate time.Time
	DueDate     time.Time
	Items       []InvoiceItem
	Status      InvoiceStatus
	Subtotal    ledger.Money
	VAT         ledger.Money
	Total       ledger.Money
	PaidAmount  ledger.Money
	VoucherID   uuid.UUID
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Outstanding returns the unpaid remainder.
func (inv Invoice) Outstanding() ledger.Money {
	return inv.Total - inv.PaidAmount
}

// Payment settles one or more invoices of a single customer.
type Payment struct {
	ID          uuid.UUID
	CustomerID  string
	Date        time.Time
	Amount      ledger.Money
	Method      PaymentMethod
	Reference   string
	VoucherID   uuid.UUID
	Allocations []Allocation
	CreatedAt   time.Time
}

// Allocation records how much of a payment settled which invoice.
type Allocation struct {
	InvoiceNumber string
	Amount        ledger.Money
}

// AgingBucket summarises outstanding receivables by days overdue.
type AgingBucket struct {
	Current   ledger.Money
	Bucket30  ledger.Money
	Bucket60  ledger.Money
	Bucket90  ledger.Money
	Bucket120 ledger.Money
}
