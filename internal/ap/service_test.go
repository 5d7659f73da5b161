package ap

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/siamledger/siamledger/internal/ar"
	"github.com/siamledger/siamledger/internal/ledger"
)

func newFixture(t *testing.T) (*Service, *ledger.Service) {
	t.Helper()
	gl := ledger.NewService(ledger.DefaultChart(), ledger.NewMemoryStore(), nil)
	svc := NewService(gl, DefaultAccounts())
	svc.WithNow(func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) })
	return svc, gl
}

func mustSupplier(t *testing.T, svc *Service, id, name string) {
	t.Helper()
	_, err := svc.CreateSupplier(context.Background(), SupplierInput{ID: id, Name: name})
	require.NoError(t, err)
}

func itemBaht(amount string) Item {
	return Item{
		Name:      "widgets",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.RequireFromString(amount),
		VATRate:   decimal.Zero,
	}
}

func receiveInvoice(t *testing.T, svc *Service, supplierID string, items ...Item) Invoice {
	t.Helper()
	inv, err := svc.ReceiveInvoice(context.Background(), InvoiceInput{
		SupplierID: supplierID,
		Items:      items,
	}, "tester")
	require.NoError(t, err)
	return inv
}

func TestReceiveInvoicePostsRecognisingVoucher(t *testing.T) {
	ctx := context.Background()
	svc, gl := newFixture(t)
	mustSupplier(t, svc, "S001", "Bangkok Wholesale")

	item := Item{
		Name:      "stock",
		Quantity:  decimal.NewFromInt(10),
		UnitPrice: decimal.RequireFromString("100.00"),
		VATRate:   decimal.RequireFromString("7"),
	}
	inv := receiveInvoice(t, svc, "S001", item)

	require.Equal(t, StatusReceived, inv.Status)
	require.Equal(t, ledger.Money(100000), inv.Subtotal)
	require.Equal(t, ledger.Money(7000), inv.VAT)
	require.Equal(t, ledger.Money(107000), inv.Total)

	apBalance, err := gl.AccountBalance(ctx, "2000", time.Time{})
	require.NoError(t, err)
	require.Equal(t, ledger.Money(107000), apBalance)

	inventory, err := gl.AccountBalance(ctx, "1200", time.Time{})
	require.NoError(t, err)
	require.Equal(t, ledger.Money(100000), inventory)

	// Input VAT debits the liability account, pulling the net VAT position
	// down by the deductible amount.
	vat, err := gl.AccountBalance(ctx, "2100", time.Time{})
	require.NoError(t, err)
	require.Equal(t, ledger.Money(-7000), vat)

	tb, err := gl.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)
	require.Equal(t, tb.TotalDebit, tb.TotalCredit)
}

func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustSupplier(t, svc, "S001", "Bangkok Wholesale")

	po, err := svc.CreateOrder(ctx, OrderInput{
		SupplierID: "S001",
		Items:      []Item{itemBaht("500.00")},
	})
	require.NoError(t, err)
	require.Equal(t, OrderStatusDraft, po.Status)
	require.Equal(t, ledger.Money(50000), po.Total)

	placed, err := svc.PlaceOrder(ctx, po.Number)
	require.NoError(t, err)
	require.Equal(t, OrderStatusOrdered, placed.Status)

	// Placing twice is rejected.
	_, err = svc.PlaceOrder(ctx, po.Number)
	require.ErrorIs(t, err, ErrInvalidStatus)

	inv, err := svc.ReceiveInvoice(ctx, InvoiceInput{
		SupplierID:  "S001",
		OrderNumber: po.Number,
		Items:       []Item{itemBaht("500.00")},
	}, "tester")
	require.NoError(t, err)
	require.Equal(t, po.Number, inv.OrderNumber)
	require.Equal(t, OrderStatusReceived, svc.Orders(ctx)[0].Status)

	// Received orders can no longer be cancelled.
	_, err = svc.CancelOrder(ctx, po.Number)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustSupplier(t, svc, "S001", "Bangkok Wholesale")

	po, err := svc.CreateOrder(ctx, OrderInput{SupplierID: "S001", Items: []Item{itemBaht("10.00")}})
	require.NoError(t, err)
	cancelled, err := svc.CancelOrder(ctx, po.Number)
	require.NoError(t, err)
	require.Equal(t, OrderStatusCancelled, cancelled.Status)

	_, err = svc.ReceiveInvoice(ctx, InvoiceInput{
		SupplierID:  "S001",
		OrderNumber: po.Number,
		Items:       []Item{itemBaht("10.00")},
	}, "tester")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestPaySupplierSettlesFIFOAndRejectsOverpayment(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustSupplier(t, svc, "S001", "Bangkok Wholesale")

	first, err := svc.ReceiveInvoice(ctx, InvoiceInput{
		SupplierID:  "S001",
		InvoiceDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Items:       []Item{itemBaht("300.00")},
	}, "tester")
	require.NoError(t, err)
	second, err := svc.ReceiveInvoice(ctx, InvoiceInput{
		SupplierID:  "S001",
		InvoiceDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Items:       []Item{itemBaht("200.00")},
	}, "tester")
	require.NoError(t, err)

	payment, err := svc.PaySupplier(ctx, PaymentInput{
		SupplierID: "S001",
		Amount:     40000,
		Method:     ar.MethodBankTransfer,
	}, "tester")
	require.NoError(t, err)
	require.Len(t, payment.Allocations, 2)
	require.Equal(t, first.Number, payment.Allocations[0].InvoiceNumber)
	require.Equal(t, ledger.Money(30000), payment.Allocations[0].Amount)
	require.Equal(t, second.Number, payment.Allocations[1].InvoiceNumber)
	require.Equal(t, ledger.Money(10000), payment.Allocations[1].Amount)

	invoices := svc.Invoices(ctx)
	require.Equal(t, StatusPaid, invoices[0].Status)
	require.Equal(t, StatusPartiallyPaid, invoices[1].Status)

	_, err = svc.PaySupplier(ctx, PaymentInput{
		SupplierID: "S001",
		Amount:     10001,
		Method:     ar.MethodCash,
	}, "tester")
	var overpaid OverpaymentError
	require.ErrorAs(t, err, &overpaid)
	require.Equal(t, ledger.Money(10000), overpaid.Outstanding)
	require.Equal(t, ledger.Money(10001), overpaid.Attempted)
}

func TestOutstandingMatchesControlAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustSupplier(t, svc, "S001", "Bangkok Wholesale")
	mustSupplier(t, svc, "S002", "Chiang Mai Paper")

	receiveInvoice(t, svc, "S001", itemBaht("1500.00"))
	receiveInvoice(t, svc, "S002", itemBaht("250.50"))
	_, err := svc.PaySupplier(ctx, PaymentInput{
		SupplierID: "S001",
		Amount:     50000,
		Method:     ar.MethodCash,
	}, "tester")
	require.NoError(t, err)

	require.NoError(t, svc.Reconcile(ctx))
}

func TestVATTotalsFiltersPeriod(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustSupplier(t, svc, "S001", "Bangkok Wholesale")

	taxed := Item{
		Name:      "goods",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.RequireFromString("100.00"),
		VATRate:   decimal.RequireFromString("7"),
	}
	_, err := svc.ReceiveInvoice(ctx, InvoiceInput{
		SupplierID:  "S001",
		InvoiceDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Items:       []Item{taxed},
	}, "tester")
	require.NoError(t, err)
	_, err = svc.ReceiveInvoice(ctx, InvoiceInput{
		SupplierID:  "S001",
		InvoiceDate: time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC),
		Items:       []Item{taxed},
	}, "tester")
	require.NoError(t, err)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)
	base, vat, err := svc.VATTotals(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, ledger.Money(10000), base)
	require.Equal(t, ledger.Money(700), vat)
}

func TestEmptyInvoiceRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustSupplier(t, svc, "S001", "Bangkok Wholesale")
	_, err := svc.ReceiveInvoice(ctx, InvoiceInput{SupplierID: "S001"}, "tester")
	require.ErrorIs(t, err, ErrNoItems)
}
