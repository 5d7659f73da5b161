package assets

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
	svc := NewService(gl, DefaultAccounts())
	svc.WithNow(func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) })
	return svc, gl
}

func registerAsset(t *testing.T, svc *Service, in RegisterInput) Asset {
	t.Helper()
	a, err := svc.Register(context.Background(), in, "tester")
	require.NoError(t, err)
	return a
}

func TestRegisterPostsAcquisition(t *testing.T) {
	ctx := context.Background()
	svc, gl := newFixture(t)

	a := registerAsset(t, svc, RegisterInput{
		Name:         "Delivery truck",
		PurchaseDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Cost:         12000000, // 120,000.00 baht
		LifeYears:    5,
	})
	require.Equal(t, "FA0001", a.ID)
	require.Equal(t, StatusActive, a.Status)
	require.Equal(t, MethodStraightLine, a.Method)
	require.Len(t, a.Schedule, 60)

	fixed, err := gl.AccountBalance(ctx, "1500", time.Time{})
	require.NoError(t, err)
	require.Equal(t, ledger.Money(12000000), fixed)

	tb, err := gl.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)
	require.Equal(t, tb.TotalDebit, tb.TotalCredit)
}

func TestStraightLineScheduleSumsToBase(t *testing.T) {
	svc, _ := newFixture(t)
	// 1000.00 baht over 3 years does not divide evenly.
	a := registerAsset(t, svc, RegisterInput{
		Name:         "Laptop",
		PurchaseDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Cost:         100000,
		LifeYears:    3,
	})
	require.Len(t, a.Schedule, 36)
	var total ledger.Money
	for _, e := range a.Schedule {
		total += e.Amount
	}
	require.Equal(t, ledger.Money(100000), total)
	// Final period absorbs the remainder, never overshoots.
	require.Equal(t, Period{Year: 2026, Month: time.December}, a.Schedule[35].Period)
}

func TestDecliningBalanceSchedule(t *testing.T) {
	svc, _ := newFixture(t)
	a := registerAsset(t, svc, RegisterInput{
		Name:         "Machine",
		PurchaseDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Cost:         1000000, // 10,000.00 baht
		Method:       MethodDecliningBalance,
		LifeYears:    5,
	})
	var total ledger.Money
	annual := make(map[int]ledger.Money)
	for _, e := range a.Schedule {
		total += e.Amount
		annual[e.Period.Year] += e.Amount
	}
	require.Equal(t, ledger.Money(1000000), total)
	require.Equal(t, ledger.Money(400000), annual[2024])
	require.Equal(t, ledger.Money(240000), annual[2025])
	require.Equal(t, ledger.Money(144000), annual[2026])
	// Each year charges less than the one before.
	require.Greater(t, annual[2024], annual[2025])
	require.Greater(t, annual[2025], annual[2026])
}

func TestRunDepreciationPostsOnceAndReconciles(t *testing.T) {
	ctx := context.Background()
	svc, gl := newFixture(t)
	registerAsset(t, svc, RegisterInput{
		Name:         "Truck",
		PurchaseDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Cost:         12000000,
		LifeYears:    5,
	})

	period := Period{Year: 2024, Month: time.January}
	run, err := svc.RunDepreciation(ctx, period, "tester")
	require.NoError(t, err)
	require.Equal(t, ledger.Money(200000), run.Total)
	require.Equal(t, 1, run.Assets)

	// Repeating the run posts nothing.
	again, err := svc.RunDepreciation(ctx, period, "tester")
	require.NoError(t, err)
	require.Equal(t, ledger.Money(0), again.Total)

	expense, err := gl.AccountBalance(ctx, "5200", time.Time{})
	require.NoError(t, err)
	require.Equal(t, ledger.Money(200000), expense)

	a, err := svc.Asset(ctx, "FA0001")
	require.NoError(t, err)
	require.Equal(t, ledger.Money(200000), a.Accumulated)
	require.Equal(t, ledger.Money(11800000), a.BookValue())

	require.NoError(t, svc.Reconcile(ctx))

	tb, err := gl.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)
	require.Equal(t, tb.TotalDebit, tb.TotalCredit)
}

func TestDisposeStopsSchedule(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	a := registerAsset(t, svc, RegisterInput{
		Name:         "Printer",
		PurchaseDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Cost:         600000,
		LifeYears:    5,
	})

	disposed, err := svc.Dispose(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDisposed, disposed.Status)

	run, err := svc.RunDepreciation(ctx, Period{Year: 2024, Month: time.January}, "tester")
	require.NoError(t, err)
	require.Equal(t, ledger.Money(0), run.Total)

	_, err = svc.Dispose(ctx, a.ID)
	require.ErrorIs(t, err, ErrAssetDisposed)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)

	_, err := svc.Register(ctx, RegisterInput{Name: "x", Cost: 0, LifeYears: 5}, "tester")
	require.Error(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "x", Cost: 100, SalvageValue: 100, LifeYears: 5}, "tester")
	require.Error(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "x", Cost: 100, LifeYears: 0}, "tester")
	require.Error(t, err)
}
