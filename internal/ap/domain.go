package ap

import (
	"time"

	"github.com/google/uuid"

	"github.com/siamledger/siamledger/internal/ar"
	"github.com/siamledger/siamledger/internal/ledger"
)

// OrderStatus enumerates purchase order lifecycle values.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusOrdered   OrderStatus = "ORDERED"
	OrderStatusReceived  OrderStatus = "RECEIVED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// InvoiceStatus enumerates purchase invoice lifecycle values.
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "DRAFT"
	StatusReceived      InvoiceStatus = "RECEIVED"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusPaid          InvoiceStatus = "PAID"
)

// Supplier is a payables master record.
type Supplier struct {
	ID          string
	Name        string
	Address     string
	Phone       string
	TaxID       string
	CreditLimit ledger.Money
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item reuses the sales line shape: purchases price goods the same way.
type Item = ar.InvoiceItem

// PurchaseOrder tracks goods on order. Orders carry no ledger effect until
// the matching invoice is received.
type PurchaseOrder struct {
	Number           string
	SupplierID       string
	OrderDate        time.Time
	ExpectedDelivery time.Time
	Items            []Item
	Status           OrderStatus
	Total            ledger.Money
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Invoice is a purchase invoice. Receiving it posts the recognising voucher;
// settlement happens through supplier payments.
type Invoice struct {
	Number      string
	SupplierID  string
	OrderNumber string
	InvoiceDate time.Time
	DueDate     time.Time
	Items       []Item
	Status      InvoiceStatus
	Subtotal    ledger.Money
	VAT         ledger.Money
	Total       ledger.Money
	PaidAmount  ledger.Money
	VoucherID   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Outstanding returns the unpaid remainder.
func (inv Invoice) Outstanding() ledger.Money {
	return inv.Total - inv.PaidAmount
}

// Payment settles supplier invoices oldest first.
type Payment struct {
	ID          uuid.UUID
	SupplierID  string
	Date        time.Time
	Amount      ledger.Money
	Method      ar.PaymentMethod
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
