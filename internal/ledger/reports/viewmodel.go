package reports

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/siamledger/siamledger/internal/ledger"
)

var thaiPrinter = message.NewPrinter(language.Thai)

// FormatBaht renders a satang amount as a grouped baht string, e.g.
// "฿1,234.50". Display only; arithmetic stays in minor units.
func FormatBaht(m ledger.Money) string {
	return thaiPrinter.Sprintf("฿%.2f", float64(m)/100)
}

// TrialBalanceViewModel holds the rendered trial balance plus display
// strings ready for JSON or template output.
type TrialBalanceViewModel struct {
	CompanyName string
	AsOf        string
	Report      TrialBalance
	TotalDebit  string
	TotalCredit string
}

// NewTrialBalanceViewModel decorates a report with formatted totals.
func NewTrialBalanceViewModel(company, asOf string, tb TrialBalance) TrialBalanceViewModel {
	return TrialBalanceViewModel{
		CompanyName: company,
		AsOf:        asOf,
		Report:      tb,
		TotalDebit:  FormatBaht(tb.TotalDebit),
		TotalCredit: FormatBaht(tb.TotalCredit),
	}
}
