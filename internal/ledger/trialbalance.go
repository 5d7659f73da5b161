package ledger

import (
	"context"
	"sort"
	"time"
)

// AccountTotals aggregates posted activity for one account. Net is signed by
// the account's normal side: a debit-normal account with more credits than
// debits reports a negative net, and vice versa.
type AccountTotals struct {
	Account Account
	Debit   Money
	Credit  Money
	Net     Money
}

// TrialBalanceReport is the per-account aggregation of the posted ledger.
// TotalDebit must equal TotalCredit for every valid ledger state; that
// equality is the primary correctness oracle for the whole system.
type TrialBalanceReport struct {
	AsOf        time.Time
	Rows        []AccountTotals
	TotalDebit  Money
	TotalCredit Money
}

// TrialBalance aggregates all posted vouchers dated on or before asOf.
// A zero asOf means "everything". If the global balance invariant does not
// hold the calculator returns TrialBalanceIntegrityError instead of skewed
// figures; that error indicates a posting engine defect.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalanceReport, error) {
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return TrialBalanceReport{}, err
	}

	totals := make(map[string]*AccountTotals)
	for _, v := range snapshot {
		if !asOf.IsZero() && v.Date.After(asOf) {
			continue
		}
		for _, line := range v.Lines {
			t, ok := totals[line.AccountCode]
			if !ok {
				acc, err := s.chart.Resolve(line.AccountCode)
				if err != nil {
					return TrialBalanceReport{}, err
				}
				t = &AccountTotals{Account: acc}
				totals[line.AccountCode] = t
			}
			if line.Side == SideDebit {
				t.Debit += line.Amount
			} else {
				t.Credit += line.Amount
			}
		}
	}

	report := TrialBalanceReport{AsOf: asOf}
	for _, t := range totals {
		if t.Account.NormalSide() == SideDebit {
			t.Net = t.Debit - t.Credit
		} else {
			t.Net = t.Credit - t.Debit
		}
		report.Rows = append(report.Rows, *t)
		report.TotalDebit += t.Debit
		report.TotalCredit += t.Credit
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].Account.Code < report.Rows[j].Account.Code
	})

	if report.TotalDebit != report.TotalCredit {
		return TrialBalanceReport{}, TrialBalanceIntegrityError{
			TotalDebit:  report.TotalDebit,
			TotalCredit: report.TotalCredit,
		}
	}
	return report, nil
}
