package ar

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/siamledger/siamledger/internal/ledger"
)

func newFixture(t *testing.T) (*Service, *ledger.Service) {
	t.Helper()
	gl := ledger.NewService(ledger.DefaultChart(), ledger.NewMemoryStore(), nil)
	svc := NewService(gl, DefaultAccounts())
	svc.WithNow(func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) })
	return svc, gl
}

func mustCustomer(t *testing.T, svc *Service, id, name string) {
	t.Helper()
	_, err := svc.CreateCustomer(context.Background(), CustomerInput{ID: id, Name: name})
	require.NoError(t, err)
}

func itemBaht(amount string) InvoiceItem {
	return InvoiceItem{
		Name:      "service fee",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.RequireFromString(amount),
		VATRate:   decimal.Zero,
	}
}

func issueInvoice(t *testing.T, svc *Service, customerID string, items ...InvoiceItem) Invoice {
	t.Helper()
	ctx := context.Background()
	inv, err := svc.CreateInvoice(ctx, InvoiceInput{CustomerID: customerID, Items: items})
	require.NoError(t, err)
	issued, err := svc.IssueInvoice(ctx, inv.Number, "tester")
	require.NoError(t, err)
	return issued
}

func TestIssueInvoicePostsRecognisingVoucher(t *testing.T) {
	ctx := context.Background()
	svc, gl := newFixture(t)
	mustCustomer(t, svc, "C001", "Somchai Trading")

	item := InvoiceItem{
		Name:      "consulting",
		Quantity:  decimal.NewFromInt(2),
		UnitPrice: decimal.RequireFromString("500.00"),
		VATRate:   decimal.RequireFromString("7"),
	}
	issued := issueInvoice(t, svc, "C001", item)

	require.Equal(t, StatusIssued, issued.Status)
	require.Equal(t, ledger.Money(100000), issued.Subtotal)
	require.Equal(t, ledger.Money(7000), issued.VAT)
	require.Equal(t, ledger.Money(107000), issued.Total)
	require.NotEqual(t, issued.VoucherID.String(), "00000000-0000-0000-0000-000000000000")

	arBalance, err := gl.AccountBalance(ctx, "1100", time.Time{})
	require.NoError(t, err)
	require.Equal(t, ledger.Money(107000), arBalance)

	vatBalance, err := gl.AccountBalance(ctx, "2100", time.Time{})
	require.NoError(t, err)
	require.Equal(t, ledger.Money(7000), vatBalance)

	tb, err := gl.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)
	require.Equal(t, tb.TotalDebit, tb.TotalCredit)
}

func TestPaymentSettlesInvoiceAndRejectsOverpayment(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustCustomer(t, svc, "C001", "Somchai Trading")
	issueInvoice(t, svc, "C001", itemBaht("1000.00"))

	_, err := svc.RecordPayment(ctx, PaymentInput{
		CustomerID: "C001",
		Amount:     100000,
		Method:     MethodBankTransfer,
	}, "tester")
	require.NoError(t, err)

	rows := svc.Outstanding(ctx)
	require.Len(t, rows, 1)
	require.Equal(t, ledger.Money(0), rows[0].Outstanding)

	inv := svc.Invoices(ctx)[0]
	require.Equal(t, StatusPaid, inv.Status)

	// One more satang is an overpayment and must be rejected, not clamped.
	_, err = svc.RecordPayment(ctx, PaymentInput{
		CustomerID: "C001",
		Amount:     1,
		Method:     MethodCash,
	}, "tester")
	var overpaid OverpaymentError
	require.ErrorAs(t, err, &overpaid)
	require.Equal(t, ledger.Money(0), overpaid.Outstanding)
	require.Equal(t, ledger.Money(1), overpaid.Attempted)
}

func TestPaymentAllocatesFIFO(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustCustomer(t, svc, "C001", "Somchai Trading")

	first, err := svc.CreateInvoice(ctx, InvoiceInput{
		CustomerID:  "C001",
		InvoiceDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Items:       []InvoiceItem{itemBaht("300.00")},
	})
	require.NoError(t, err)
	_, err = svc.IssueInvoice(ctx, first.Number, "tester")
	require.NoError(t, err)

	second, err := svc.CreateInvoice(ctx, InvoiceInput{
		CustomerID:  "C001",
		InvoiceDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Items:       []InvoiceItem{itemBaht("200.00")},
	})
	require.NoError(t, err)
	_, err = svc.IssueInvoice(ctx, second.Number, "tester")
	require.NoError(t, err)

	payment, err := svc.RecordPayment(ctx, PaymentInput{
		CustomerID: "C001",
		Amount:     40000,
		Method:     MethodCash,
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
}

func TestOutstandingMatchesControlAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustCustomer(t, svc, "C001", "Somchai Trading")
	mustCustomer(t, svc, "C002", "Lotus Supplies")

	issueInvoice(t, svc, "C001", itemBaht("1500.00"))
	issueInvoice(t, svc, "C002", itemBaht("250.50"))
	_, err := svc.RecordPayment(ctx, PaymentInput{CustomerID: "C001", Amount: 50000, Method: MethodCash}, "tester")
	require.NoError(t, err)

	require.NoError(t, svc.Reconcile(ctx))
}

func TestDraftInvoicesStayOutOfOutstanding(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustCustomer(t, svc, "C001", "Somchai Trading")

	_, err := svc.CreateInvoice(ctx, InvoiceInput{CustomerID: "C001", Items: []InvoiceItem{itemBaht("99.00")}})
	require.NoError(t, err)

	require.Empty(t, svc.Outstanding(ctx))
	require.NoError(t, svc.Reconcile(ctx))
}

func TestIssuedInvoiceIsImmutable(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustCustomer(t, svc, "C001", "Somchai Trading")
	issued := issueInvoice(t, svc, "C001", itemBaht("10.00"))

	_, err := svc.AddItem(ctx, issued.Number, itemBaht("1.00"))
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.IssueInvoice(ctx, issued.Number, "tester")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestIssueEmptyInvoiceFails(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustCustomer(t, svc, "C001", "Somchai Trading")
	inv, err := svc.CreateInvoice(ctx, InvoiceInput{CustomerID: "C001"})
	require.NoError(t, err)
	_, err = svc.IssueInvoice(ctx, inv.Number, "tester")
	require.ErrorIs(t, err, ErrNoItems)
}

func TestAgingBuckets(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustCustomer(t, svc, "C001", "Somchai Trading")

	mk := func(due time.Time, amount string) {
		inv, err := svc.CreateInvoice(ctx, InvoiceInput{
			CustomerID:  "C001",
			InvoiceDate: due.AddDate(0, 0, -30),
			DueDate:     due,
			Items:       []InvoiceItem{itemBaht(amount)},
		})
		require.NoError(t, err)
		_, err = svc.IssueInvoice(ctx, inv.Number, "tester")
		require.NoError(t, err)
	}
	asOf := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	mk(asOf.AddDate(0, 0, 10), "100.00")  // not due yet
	mk(asOf.AddDate(0, 0, -10), "200.00") // 10 days overdue
	mk(asOf.AddDate(0, 0, -45), "300.00") // 45 days overdue
	mk(asOf.AddDate(0, 0, -200), "400.00")

	bucket := svc.Aging(ctx, asOf)
	require.Equal(t, ledger.Money(10000), bucket.Current)
	require.Equal(t, ledger.Money(20000), bucket.Bucket30)
	require.Equal(t, ledger.Money(30000), bucket.Bucket60)
	require.Equal(t, ledger.Money(0), bucket.Bucket90)
	require.Equal(t, ledger.Money(40000), bucket.Bucket120)
}

func TestVATTotalsFiltersPeriod(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	mustCustomer(t, svc, "C001", "Somchai Trading")

	taxed := InvoiceItem{
		Name:      "goods",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.RequireFromString("100.00"),
		VATRate:   decimal.RequireFromString("7"),
	}
	inv, err := svc.CreateInvoice(ctx, InvoiceInput{
		CustomerID:  "C001",
		InvoiceDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Items:       []InvoiceItem{taxed},
	})
	require.NoError(t, err)
	_, err = svc.IssueInvoice(ctx, inv.Number, "tester")
	require.NoError(t, err)

	outside, err := svc.CreateInvoice(ctx, InvoiceInput{
		CustomerID:  "C001",
		InvoiceDate: time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC),
		Items:       []InvoiceItem{taxed},
	})
	require.NoError(t, err)
	_, err = svc.IssueInvoice(ctx, outside.Number, "tester")
	require.NoError(t, err)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)
	base, vat, err := svc.VATTotals(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, ledger.Money(10000), base)
	require.Equal(t, ledger.Money(700), vat)
}
