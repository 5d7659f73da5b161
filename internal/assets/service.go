package assets

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
	ErrAssetNotFound  = errors.New("assets: asset not found")
	ErrAssetDisposed  = errors.New("assets: asset already disposed")
	ErrReconciliation = errors.New("assets: register diverges from general ledger")
)

// LedgerPort is the slice of the posting engine the asset register needs.
type LedgerPort interface {
	PostNew(ctx context.Context, in ledger.DraftInput, actor string) (ledger.Voucher, error)
	AccountBalance(ctx context.Context, code string, asOf time.Time) (ledger.Money, error)
}

// Accounts names the accounts asset postings touch.
type Accounts struct {
	FixedAssets  string
	Accumulated  string
	Depreciation string
	Cash         string
}

// DefaultAccounts returns the stock chart codes.
func DefaultAccounts() Accounts {
	return Accounts{FixedAssets: "1500", Accumulated: "1510", Depreciation: "5200", Cash: "1000"}
}

// Service is the fixed asset register.
type Service struct {
	gl       LedgerPort
	accounts Accounts

	mu     sync.Mutex
	assets map[string]*Asset
	nextID int64
	now    func() time.Time
}

// NewService builds the asset register.
func NewService(gl LedgerPort, accounts Accounts) *Service {
	return &Service{
		gl:       gl,
		accounts: accounts,
		assets:   make(map[string]*Asset),
		nextID:   1,
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RegisterInput carries the master data for a new asset.
type RegisterInput struct {
	Name         string
	Department   string
	PurchaseDate time.Time
	Cost         ledger.Money
	SalvageValue ledger.Money
	Method       DepreciationMethod
	LifeYears    int
}

// Register records the asset and posts the acquisition voucher: debit Fixed
// Assets, credit Cash.
func (s *Service) Register(ctx context.Context, in RegisterInput, actor string) (Asset, error) {
	if in.Name == "" {
		return Asset{}, errors.New("assets: name required")
	}
	if in.Cost <= 0 {
		return Asset{}, errors.New("assets: cost must be positive")
	}
	if in.SalvageValue < 0 || in.SalvageValue >= in.Cost {
		return Asset{}, errors.New("assets: salvage value must be below cost")
	}
	if in.LifeYears <= 0 {
		return Asset{}, errors.New("assets: useful life must be positive")
	}
	if in.Method == "" {
		in.Method = MethodStraightLine
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	purchase := in.PurchaseDate
	if purchase.IsZero() {
		purchase = now
	}
	asset := &Asset{
		ID:           fmt.Sprintf("FA%04d", s.nextID),
		Name:         in.Name,
		Department:   in.Department,
		PurchaseDate: purchase,
		Cost:         in.Cost,
		SalvageValue: in.SalvageValue,
		Method:       in.Method,
		LifeYears:    in.LifeYears,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.nextID++
	asset.Schedule = asset.buildSchedule()

	voucher, err := s.gl.PostNew(ctx, ledger.DraftInput{
		Date:        purchase,
		Description: fmt.Sprintf("Asset acquisition %s %s", asset.ID, asset.Name),
		Lines: []ledger.LineInput{
			{AccountCode: s.accounts.FixedAssets, Side: ledger.SideDebit, Amount: asset.Cost, Memo: asset.ID},
			{AccountCode: s.accounts.Cash, Side: ledger.SideCredit, Amount: asset.Cost, Memo: asset.ID},
		},
	}, actor)
	if err != nil {
		return Asset{}, err
	}
	asset.VoucherID = voucher.ID
	s.assets[asset.ID] = asset
	return *asset, nil
}

// Asset returns one register record.
func (s *Service) Asset(ctx context.Context, id string) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return *a, nil
}

// Assets lists the register ordered by id.
func (s *Service) Assets(ctx context.Context) []Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DepreciationRun reports what a period run posted.
type DepreciationRun struct {
	Period Period
	Total  ledger.Money
	Assets int
}

// RunDepreciation posts the period's scheduled depreciation for all active
// assets in one voucher: debit Depreciation Expense, credit Accumulated
// Depreciation. Already-posted entries are skipped, so the run is safe to
// repeat.
func (s *Service) RunDepreciation(ctx context.Context, period Period, actor string) (DepreciationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type due struct {
		asset *Asset
		entry *ScheduleEntry
	}
	var dues []due
	var total ledger.Money
	ids := make([]string, 0, len(s.assets))
	for id := range s.assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		a := s.assets[id]
		if a.Status != StatusActive {
			continue
		}
		for i := range a.Schedule {
			e := &a.Schedule[i]
			if e.Posted || e.Period != period || e.Amount == 0 {
				continue
			}
			dues = append(dues, due{asset: a, entry: e})
			total += e.Amount
		}
	}
	run := DepreciationRun{Period: period, Total: total, Assets: len(dues)}
	if total == 0 {
		return run, nil
	}

	_, err := s.gl.PostNew(ctx, ledger.DraftInput{
		Date:        time.Date(period.Year, period.Month, 1, 0, 0, 0, 0, time.UTC),
		Description: fmt.Sprintf("Depreciation %s", period),
		Lines: []ledger.LineInput{
			{AccountCode: s.accounts.Depreciation, Side: ledger.SideDebit, Amount: total, Memo: period.String()},
			{AccountCode: s.accounts.Accumulated, Side: ledger.SideCredit, Amount: total, Memo: period.String()},
		},
	}, actor)
	if err != nil {
		return DepreciationRun{}, err
	}
	now := s.now()
	for _, d := range dues {
		d.entry.Posted = true
		d.asset.Accumulated += d.entry.Amount
		d.asset.UpdatedAt = now
	}
	return run, nil
}

// Dispose retires an asset and stops its schedule. Unposted entries stay
// unposted.
func (s *Service) Dispose(ctx context.Context, id string) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	if a.Status == StatusDisposed {
		return Asset{}, fmt.Errorf("%w: %s", ErrAssetDisposed, id)
	}
	a.Status = StatusDisposed
	a.UpdatedAt = s.now()
	return *a, nil
}

// Reconcile asserts the register's accumulated depreciation equals the
// ledger's. Accumulated Depreciation is a contra asset, so its derived
// balance is the negated credit total.
func (s *Service) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	var total ledger.Money
	for _, a := range s.assets {
		total += a.Accumulated
	}
	s.mu.Unlock()

	balance, err := s.gl.AccountBalance(ctx, s.accounts.Accumulated, time.Time{})
	if err != nil {
		return err
	}
	if total != -balance {
		return fmt.Errorf("%w: register %s, ledger %s",
			ErrReconciliation, total.Baht(), (-balance).Baht())
	}
	return nil
}
