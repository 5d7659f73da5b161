package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ChartOfAccounts is the registry of account codes. It owns its accounts
// outright; callers hold a handle, never the underlying map.
type ChartOfAccounts struct {
	mu       sync.RWMutex
	accounts map[string]Account
	now      func() time.Time
}

// NewChart returns an empty chart of accounts.
func NewChart() *ChartOfAccounts {
	return &ChartOfAccounts{
		accounts: make(map[string]Account),
		now:      time.Now,
	}
}

// DefaultChart returns a chart seeded with the standard small-business
// accounts the application ships with.
func DefaultChart() *ChartOfAccounts {
	c := NewChart()
	defaults := []struct {
		code string
		name string
		typ  AccountType
	}{
		{"1000", "Cash", AccountTypeAsset},
		{"1100", "Accounts Receivable", AccountTypeAsset},
		{"1200", "Inventory", AccountTypeAsset},
		{"1500", "Fixed Assets", AccountTypeAsset},
		{"1510", "Accumulated Depreciation", AccountTypeAsset},
		{"2000", "Accounts Payable", AccountTypeLiability},
		{"2100", "Tax Payable", AccountTypeLiability},
		{"3000", "Owner Equity", AccountTypeEquity},
		{"4000", "Sales Revenue", AccountTypeRevenue},
		{"4100", "Service Revenue", AccountTypeRevenue},
		{"5000", "Cost of Goods Sold", AccountTypeExpense},
		{"5100", "Operating Expenses", AccountTypeExpense},
		{"5200", "Depreciation Expense", AccountTypeExpense},
	}
	for _, d := range defaults {
		if _, err := c.Register(d.code, d.name, d.typ); err != nil {
			panic(fmt.Sprintf("ledger: default chart: %v", err))
		}
	}
	return c
}

// WithNow overrides the clock for testing.
func (c *ChartOfAccounts) WithNow(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Register adds a new account. The normal balance side is derived from the
// account type, not chosen by the caller.
func (c *ChartOfAccounts) Register(code, name string, typ AccountType) (Account, error) {
	if code == "" {
		return Account{}, fmt.Errorf("ledger: account code required")
	}
	if !typ.Valid() {
		return Account{}, fmt.Errorf("ledger: unknown account type %q", typ)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.accounts[code]; exists {
		return Account{}, fmt.Errorf("%w: %s", ErrDuplicateAccount, code)
	}
	now := c.now()
	acc := Account{
		Code:      code,
		Name:      name,
		Type:      typ,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.accounts[code] = acc
	return acc, nil
}

// Resolve looks up an account by code.
func (c *ChartOfAccounts) Resolve(code string) (Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	acc, ok := c.accounts[code]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, code)
	}
	return acc, nil
}

// Rename updates the display name. Names are the only mutable attribute of
// a registered account.
func (c *ChartOfAccounts) Rename(code, name string) (Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc, ok := c.accounts[code]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, code)
	}
	acc.Name = name
	acc.UpdatedAt = c.now()
	c.accounts[code] = acc
	return acc, nil
}

// deactivate flips the active flag. Reference checks against posted lines
// belong to the posting service, which is why this stays unexported.
func (c *ChartOfAccounts) deactivate(code string) (Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc, ok := c.accounts[code]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, code)
	}
	acc.Active = false
	acc.UpdatedAt = c.now()
	c.accounts[code] = acc
	return acc, nil
}

// List returns all accounts ordered by code.
func (c *ChartOfAccounts) List() []Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Account, 0, len(c.accounts))
	for _, acc := range c.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
