package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Money is a monetary amount expressed in satang, the minor unit of the
// Thai baht. All ledger arithmetic happens at this integer granularity.
type Money int64

// Side enumerates the two columns of a ledger line.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// NormalSide returns the side on which accounts of this type carry their
// balance. Asset and expense accounts are debit-normal, the rest
// credit-normal. This drives sign conventions when rendering balances.
func (t AccountType) NormalSide() Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. Accounts are immutable after
// registration except for name edits and deactivation.
type Account struct {
	Code      string
	Name      string
	Type      AccountType
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalSide returns the account's normal balance side.
func (a Account) NormalSide() Side {
	return a.Type.NormalSide()
}

// VoucherStatus enumerates voucher lifecycle values.
type VoucherStatus string

const (
	VoucherStatusDraft  VoucherStatus = "DRAFT"
	VoucherStatusPosted VoucherStatus = "POSTED"
	VoucherStatusVoid   VoucherStatus = "VOID"
)

// VoucherLine is one debit or credit against an account. Lines never exist
// outside a voucher.
type VoucherLine struct {
	AccountCode string
	Side        Side
	Amount      Money
	Memo        string
}

// Voucher groups the lines of one business transaction. Lines must net to
// zero before the voucher can be posted, and are immutable afterwards.
type Voucher struct {
	ID          uuid.UUID
	Number      int64
	Date        time.Time
	Description string
	Status      VoucherStatus
	Lines       []VoucherLine
	PostedAt    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Totals returns the voucher's debit and credit sums.
func (v Voucher) Totals() (debit, credit Money) {
	for _, line := range v.Lines {
		switch line.Side {
		case SideDebit:
			debit += line.Amount
		case SideCredit:
			credit += line.Amount
		}
	}
	return debit, credit
}

// clone deep-copies the voucher so callers can never alias posted state.
func (v Voucher) clone() Voucher {
	out := v
	out.Lines = make([]VoucherLine, len(v.Lines))
	copy(out.Lines, v.Lines)
	return out
}
