// Package budget tracks spending allocations per account and department and
// compares them against actual ledger activity.
package budget

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/siamledger/siamledger/internal/ledger"
)

var (
	ErrBudgetNotFound  = errors.New("budget: budget not found")
	ErrMonthOutOfRange = errors.New("budget: month out of range")
)

// LedgerPort is the slice of the posting engine the budget module reads.
// Budgets never post; actuals are derived from balances.
type LedgerPort interface {
	AccountBalance(ctx context.Context, code string, asOf time.Time) (ledger.Money, error)
}

// Allocation is one fiscal-year budget for an account and department.
// Monthly and Actual are indexed January to December.
type Allocation struct {
	ID          string
	FiscalYear  int
	AccountCode string
	Department  string
	Monthly     [12]ledger.Money
	Actual      [12]ledger.Money
	CreatedAt   time.Time
}

// Variance returns budget minus actual for the given month. Positive means
// under budget.
func (a Allocation) Variance(month time.Month) ledger.Money {
	return a.Monthly[month-1] - a.Actual[month-1]
}

// MonthlyVariance is one row of the variance report.
type MonthlyVariance struct {
	Month    time.Month
	Budget   ledger.Money
	Actual   ledger.Money
	Variance ledger.Money
}

// VarianceReport compares a full fiscal year of budget against actuals.
type VarianceReport struct {
	BudgetID      string
	FiscalYear    int
	AccountCode   string
	Department    string
	Months        []MonthlyVariance
	TotalBudget   ledger.Money
	TotalActual   ledger.Money
	TotalVariance ledger.Money
}

// Service owns the budget allocations. Actuals can be recorded by hand or
// captured from posted ledger activity on the budgeted account.
type Service struct {
	gl LedgerPort

	mu      sync.Mutex
	budgets map[string]*Allocation
	nextID  int
	now     func() time.Time
}

// NewService builds the budget service.
func NewService(gl LedgerPort) *Service {
	return &Service{
		gl:      gl,
		budgets: make(map[string]*Allocation),
		nextID:  1,
		now:     time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput carries a new allocation. Monthly must hold exactly twelve
// amounts, January first.
type CreateInput struct {
	FiscalYear  int
	AccountCode string
	Department  string
	Monthly     []ledger.Money
}

// Create registers a budget allocation and assigns its BDG number.
func (s *Service) Create(ctx context.Context, in CreateInput) (Allocation, error) {
	if in.FiscalYear < 1 {
		return Allocation{}, errors.New("budget: fiscal year required")
	}
	if in.AccountCode == "" {
		return Allocation{}, errors.New("budget: account code required")
	}
	if len(in.Monthly) != 12 {
		return Allocation{}, fmt.Errorf("budget: want 12 monthly amounts, got %d", len(in.Monthly))
	}
	for _, m := range in.Monthly {
		if m < 0 {
			return Allocation{}, errors.New("budget: monthly amount must not be negative")
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &Allocation{
		ID:          fmt.Sprintf("BDG%06d", s.nextID),
		FiscalYear:  in.FiscalYear,
		AccountCode: in.AccountCode,
		Department:  in.Department,
		CreatedAt:   s.now(),
	}
	copy(a.Monthly[:], in.Monthly)
	s.nextID++
	s.budgets[a.ID] = a
	return *a, nil
}

// RecordActual sets the spending captured for one month. The figure replaces
// the previous one rather than accumulating.
func (s *Service) RecordActual(ctx context.Context, id string, month time.Month, amount ledger.Money) (Allocation, error) {
	if month < time.January || month > time.December {
		return Allocation{}, fmt.Errorf("%w: %d", ErrMonthOutOfRange, month)
	}
	if amount < 0 {
		return Allocation{}, errors.New("budget: actual amount must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.budgets[id]
	if !ok {
		return Allocation{}, fmt.Errorf("%w: %s", ErrBudgetNotFound, id)
	}
	a.Actual[month-1] = amount
	return *a, nil
}

// CaptureActuals fills every month's actual from posted ledger activity on
// the budgeted account: a month's spending is the balance at month end minus
// the balance at the previous month end.
func (s *Service) CaptureActuals(ctx context.Context, id string) (Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.budgets[id]
	if !ok {
		return Allocation{}, fmt.Errorf("%w: %s", ErrBudgetNotFound, id)
	}
	prev, err := s.gl.AccountBalance(ctx, a.AccountCode, monthEnd(a.FiscalYear-1, time.December))
	if err != nil {
		return Allocation{}, err
	}
	for m := time.January; m <= time.December; m++ {
		end, err := s.gl.AccountBalance(ctx, a.AccountCode, monthEnd(a.FiscalYear, m))
		if err != nil {
			return Allocation{}, err
		}
		a.Actual[m-1] = end - prev
		prev = end
	}
	return *a, nil
}

func monthEnd(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Variances builds the monthly variance report for one allocation.
func (s *Service) Variances(ctx context.Context, id string) (VarianceReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.budgets[id]
	if !ok {
		return VarianceReport{}, fmt.Errorf("%w: %s", ErrBudgetNotFound, id)
	}
	report := VarianceReport{
		BudgetID:    a.ID,
		FiscalYear:  a.FiscalYear,
		AccountCode: a.AccountCode,
		Department:  a.Department,
	}
	for m := time.January; m <= time.December; m++ {
		row := MonthlyVariance{Month: m, Budget: a.Monthly[m-1], Actual: a.Actual[m-1]}
		row.Variance = row.Budget - row.Actual
		report.Months = append(report.Months, row)
		report.TotalBudget += row.Budget
		report.TotalActual += row.Actual
	}
	report.TotalVariance = report.TotalBudget - report.TotalActual
	return report, nil
}

// Budget returns one allocation.
func (s *Service) Budget(ctx context.Context, id string) (Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.budgets[id]
	if !ok {
		return Allocation{}, fmt.Errorf("%w: %s", ErrBudgetNotFound, id)
	}
	return *a, nil
}

// Budgets lists allocations ordered by id.
func (s *Service) Budgets(ctx context.Context) []Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Allocation, 0, len(s.budgets))
	for _, a := range s.budgets {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
