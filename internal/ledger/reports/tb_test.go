package reports

import (
	"testing"

	"github.com/siamledger/siamledger/internal/ledger"
)

func acct(code, name string, typ ledger.AccountType) ledger.Account {
	return ledger.Account{Code: code, Name: name, Type: typ, Active: true}
}

func TestBuildTrialBalance(t *testing.T) {
	totals := []ledger.AccountTotals{
		{Account: acct("1000", "Cash", ledger.AccountTypeAsset), Debit: 20000, Credit: 15000, Net: 5000},
		{Account: acct("1100", "Accounts Receivable", ledger.AccountTypeAsset), Debit: 10000, Credit: 5000, Net: 5000},
		{Account: acct("2000", "Accounts Payable", ledger.AccountTypeLiability), Debit: 1000, Credit: 11000, Net: 10000},
	}

	tb := BuildTrialBalance(totals)
	if len(tb.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(tb.Groups))
	}
	if tb.Groups[0].Key != "1" {
		t.Fatalf("unexpected first group key %q", tb.Groups[0].Key)
	}
	if len(tb.Groups[0].Rows) != 2 {
		t.Fatalf("expected 2 rows in asset group, got %d", len(tb.Groups[0].Rows))
	}
	if tb.Groups[1].Key != "2" {
		t.Fatalf("unexpected second group key %q", tb.Groups[1].Key)
	}
	if tb.TotalDebit != 31000 {
		t.Fatalf("unexpected total debit: %v", tb.TotalDebit)
	}
	if tb.TotalCredit != 31000 {
		t.Fatalf("unexpected total credit: %v", tb.TotalCredit)
	}
}

func TestBuildTrialBalanceDottedCodes(t *testing.T) {
	tb := BuildTrialBalance([]ledger.AccountTotals{
		{Account: acct("1000.1", "Petty Cash", ledger.AccountTypeAsset), Debit: 100, Net: 100},
		{Account: acct("1000.2", "Till Float", ledger.AccountTypeAsset), Debit: 200, Net: 200},
	})
	if len(tb.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(tb.Groups))
	}
	if tb.Groups[0].Key != "1000" {
		t.Fatalf("unexpected group key %q", tb.Groups[0].Key)
	}
}

func TestFormatBaht(t *testing.T) {
	got := FormatBaht(123456789)
	if got != "฿1,234,567.89" {
		t.Fatalf("unexpected formatting: %q", got)
	}
}

func TestNewTrialBalanceViewModel(t *testing.T) {
	tb := BuildTrialBalance([]ledger.AccountTotals{
		{Account: acct("1000", "Cash", ledger.AccountTypeAsset), Debit: 100, Credit: 0, Net: 100},
		{Account: acct("4000", "Sales", ledger.AccountTypeRevenue), Debit: 0, Credit: 100, Net: 100},
	})
	vm := NewTrialBalanceViewModel("Siam Ledger Co.", "2024-06-30", tb)
	if vm.TotalDebit != vm.TotalCredit {
		t.Fatalf("viewmodel totals differ: %q vs %q", vm.TotalDebit, vm.TotalCredit)
	}
	if vm.TotalDebit != "฿1.00" {
		t.Fatalf("unexpected debit total: %q", vm.TotalDebit)
	}
}
