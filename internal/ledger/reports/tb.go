package reports

import (
	"sort"
	"strings"

	"github.com/siamledger/siamledger/internal/ledger"
)

// TrialBalanceRow is one account inside a trial balance group.
type TrialBalanceRow struct {
	Code   string
	Name   string
	Debit  ledger.Money
	Credit ledger.Money
	Net    ledger.Money
}

// TrialBalanceGroup aggregates rows sharing a code prefix for presentation.
type TrialBalanceGroup struct {
	Key    string
	Rows   []TrialBalanceRow
	Debit  ledger.Money
	Credit ledger.Money
	Net    ledger.Money
}

// TrialBalance is the grouped structure rendered by the API and reports.
type TrialBalance struct {
	Groups      []TrialBalanceGroup
	TotalDebit  ledger.Money
	TotalCredit ledger.Money
}

// groupKey buckets account codes by class. Dotted codes group under the
// segment before the dot; plain numeric codes group under the leading digit,
// so "1000" Cash and "1100" Accounts Receivable land in the same asset group.
func groupKey(code string) string {
	if idx := strings.Index(code, "."); idx > 0 {
		return code[:idx]
	}
	if code != "" && code[0] >= '0' && code[0] <= '9' {
		return code[:1]
	}
	if len(code) >= 2 {
		return code[:2]
	}
	return code
}

// BuildTrialBalance converts calculator output into grouped report data.
func BuildTrialBalance(totals []ledger.AccountTotals) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, t := range totals {
		key := groupKey(t.Account.Code)
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		row := TrialBalanceRow{
			Code:   t.Account.Code,
			Name:   t.Account.Name,
			Debit:  t.Debit,
			Credit: t.Credit,
			Net:    t.Net,
		}
		grp.Rows = append(grp.Rows, row)
		grp.Debit += row.Debit
		grp.Credit += row.Credit
		grp.Net += row.Net
	}

	sort.Strings(keys)
	result := TrialBalance{}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Rows, func(i, j int) bool {
			return grp.Rows[i].Code < grp.Rows[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit += grp.Debit
		result.TotalCredit += grp.Credit
	}
	return result
}
