package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateAccount indicates the account code is already registered.
	ErrDuplicateAccount = errors.New("ledger: account code already registered")
	// ErrUnknownAccount indicates the account code is not in the chart.
	ErrUnknownAccount = errors.New("ledger: account not found")
	// ErrAccountReferenced blocks deactivation of accounts cited by posted lines.
	ErrAccountReferenced = errors.New("ledger: account referenced by posted entries")
	// ErrVoucherNotFound indicates a missing voucher.
	ErrVoucherNotFound = errors.New("ledger: voucher not found")
	// ErrAlreadyPosted indicates the voucher left Draft state already.
	ErrAlreadyPosted = errors.New("ledger: voucher already posted")
	// ErrAlreadyVoided indicates the voucher was voided before.
	ErrAlreadyVoided = errors.New("ledger: voucher already voided")
	// ErrNotPosted indicates a void attempt on a voucher that is not posted.
	ErrNotPosted = errors.New("ledger: only posted vouchers can be voided")
)

// InvalidLineError reports the first line-level violation found during
// validation. Index is zero-based.
type InvalidLineError struct {
	Index  int
	Reason string
}

func (e InvalidLineError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("ledger: invalid voucher: %s", e.Reason)
	}
	return fmt.Sprintf("ledger: line %d invalid: %s", e.Index, e.Reason)
}

// UnbalancedVoucherError reports a debit/credit mismatch. Diff is debits
// minus credits in satang.
type UnbalancedVoucherError struct {
	Diff Money
}

func (e UnbalancedVoucherError) Error() string {
	return fmt.Sprintf("ledger: voucher unbalanced by %s (debits minus credits)", e.Diff.Baht())
}

// TrialBalanceIntegrityError signals the global balance invariant broke.
// It indicates a posting engine defect, never a user input problem, and
// must not be downgraded or swallowed.
type TrialBalanceIntegrityError struct {
	TotalDebit  Money
	TotalCredit Money
}

func (e TrialBalanceIntegrityError) Error() string {
	return fmt.Sprintf("ledger: trial balance integrity violation: debits %s != credits %s",
		e.TotalDebit.Baht(), e.TotalCredit.Baht())
}
