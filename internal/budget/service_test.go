package budget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/siamledger/siamledger/internal/ledger"
)

func newFixture(t *testing.T) (*Service, *ledger.Service) {
	t.Helper()
	gl := ledger.NewService(ledger.DefaultChart(), ledger.NewMemoryStore(), nil)
	svc := NewService(gl)
	svc.WithNow(func() time.Time { return time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC) })
	return svc, gl
}

func evenMonthly(amount ledger.Money) []ledger.Money {
	out := make([]ledger.Money, 12)
	for i := range out {
		out[i] = amount
	}
	return out
}

func postExpense(t *testing.T, gl *ledger.Service, date time.Time, amount ledger.Money) {
	t.Helper()
	_, err := gl.PostNew(context.Background(), ledger.DraftInput{
		Date:        date,
		Description: "Office supplies",
		Lines: []ledger.LineInput{
			{AccountCode: "5100", Side: ledger.SideDebit, Amount: amount},
			{AccountCode: "1000", Side: ledger.SideCredit, Amount: amount},
		},
	}, "tester")
	require.NoError(t, err)
}

func TestCreateAssignsNumberAndValidates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)

	a, err := svc.Create(ctx, CreateInput{
		FiscalYear:  2024,
		AccountCode: "5100",
		Department:  "Sales",
		Monthly:     evenMonthly(100000),
	})
	require.NoError(t, err)
	require.Equal(t, "BDG000001", a.ID)
	require.Equal(t, ledger.Money(100000), a.Monthly[0])

	b, err := svc.Create(ctx, CreateInput{FiscalYear: 2024, AccountCode: "5000", Monthly: evenMonthly(50000)})
	require.NoError(t, err)
	require.Equal(t, "BDG000002", b.ID)

	_, err = svc.Create(ctx, CreateInput{FiscalYear: 2024, AccountCode: "5100", Monthly: make([]ledger.Money, 6)})
	require.Error(t, err)
	_, err = svc.Create(ctx, CreateInput{AccountCode: "5100", Monthly: evenMonthly(0)})
	require.Error(t, err)
}

func TestRecordActualReplacesFigure(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)

	a, err := svc.Create(ctx, CreateInput{FiscalYear: 2024, AccountCode: "5100", Monthly: evenMonthly(100000)})
	require.NoError(t, err)

	updated, err := svc.RecordActual(ctx, a.ID, time.March, 40000)
	require.NoError(t, err)
	require.Equal(t, ledger.Money(40000), updated.Actual[2])

	updated, err = svc.RecordActual(ctx, a.ID, time.March, 70000)
	require.NoError(t, err)
	require.Equal(t, ledger.Money(70000), updated.Actual[2])
	require.Equal(t, ledger.Money(30000), updated.Variance(time.March))

	_, err = svc.RecordActual(ctx, a.ID, time.Month(13), 100)
	require.ErrorIs(t, err, ErrMonthOutOfRange)
	_, err = svc.RecordActual(ctx, "BDG999999", time.March, 100)
	require.ErrorIs(t, err, ErrBudgetNotFound)
}

func TestCaptureActualsFromLedger(t *testing.T) {
	ctx := context.Background()
	svc, gl := newFixture(t)

	postExpense(t, gl, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 30000)
	postExpense(t, gl, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), 20000)
	postExpense(t, gl, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 90000)
	// Prior-year spending must not bleed into the fiscal year.
	postExpense(t, gl, time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC), 55500)

	a, err := svc.Create(ctx, CreateInput{FiscalYear: 2024, AccountCode: "5100", Monthly: evenMonthly(100000)})
	require.NoError(t, err)

	captured, err := svc.CaptureActuals(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.Money(50000), captured.Actual[0])
	require.Equal(t, ledger.Money(0), captured.Actual[1])
	require.Equal(t, ledger.Money(90000), captured.Actual[2])
	require.Equal(t, ledger.Money(0), captured.Actual[11])

	_, err = svc.CaptureActuals(ctx, "BDG999999")
	require.ErrorIs(t, err, ErrBudgetNotFound)
}

func TestVarianceReportTotals(t *testing.T) {
	ctx := context.Background()
	svc, gl := newFixture(t)

	postExpense(t, gl, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), 120000)

	a, err := svc.Create(ctx, CreateInput{
		FiscalYear:  2024,
		AccountCode: "5100",
		Department:  "Admin",
		Monthly:     evenMonthly(100000),
	})
	require.NoError(t, err)
	_, err = svc.CaptureActuals(ctx, a.ID)
	require.NoError(t, err)

	report, err := svc.Variances(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "Admin", report.Department)
	require.Len(t, report.Months, 12)
	require.Equal(t, time.February, report.Months[1].Month)
	require.Equal(t, ledger.Money(-20000), report.Months[1].Variance)
	require.Equal(t, ledger.Money(1200000), report.TotalBudget)
	require.Equal(t, ledger.Money(120000), report.TotalActual)
	require.Equal(t, ledger.Money(1080000), report.TotalVariance)

	_, err = svc.Variances(ctx, "BDG999999")
	require.ErrorIs(t, err, ErrBudgetNotFound)
}

func TestBudgetsListing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)

	_, err := svc.Create(ctx, CreateInput{FiscalYear: 2024, AccountCode: "5100", Monthly: evenMonthly(10)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{FiscalYear: 2025, AccountCode: "5000", Monthly: evenMonthly(20)})
	require.NoError(t, err)

	list := svc.Budgets(ctx)
	require.Len(t, list, 2)
	require.Equal(t, "BDG000001", list[0].ID)
	require.Equal(t, "BDG000002", list[1].ID)

	got, err := svc.Budget(ctx, "BDG000002")
	require.NoError(t, err)
	require.Equal(t, 2025, got.FiscalYear)
}
