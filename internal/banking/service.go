package banking

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
	ErrInsufficientFunds = errors.New("banking: insufficient funds")
	ErrChequeNotFound    = errors.New("banking: cheque not found")
	ErrDuplicateCheque   = errors.New("banking: cheque number already registered")
	ErrInvalidCheque     = errors.New("banking: invalid cheque status for operation")
)

// LedgerPort is the slice of the posting engine the cash subledger needs.
type LedgerPort interface {
	PostNew(ctx context.Context, in ledger.DraftInput, actor string) (ledger.Voucher, error)
	AccountBalance(ctx context.Context, code string, asOf time.Time) (ledger.Money, error)
}

// Accounts names the accounts cash movements post against. Contra is the
// default counterparty account for plain deposits and withdrawals.
type Accounts struct {
	Cash   string
	Contra string
}

// DefaultAccounts returns the stock chart codes.
func DefaultAccounts() Accounts {
	return Accounts{Cash: "1000", Contra: "3000"}
}

// Service is the cash subledger. The cash balance is never counted here: it
// is always derived from posted cash-account lines, so the subledger cannot
// drift from the general ledger.
type Service struct {
	gl       LedgerPort
	accounts Accounts

	mu      sync.Mutex
	cheques map[string]*Cheque
	now     func() time.Time
}

// NewService builds the cash service.
func NewService(gl LedgerPort, accounts Accounts) *Service {
	return &Service{
		gl:       gl,
		accounts: accounts,
		cheques:  make(map[string]*Cheque),
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Balance returns the cash position derived from the ledger.
func (s *Service) Balance(ctx context.Context) (ledger.Money, error) {
	return s.gl.AccountBalance(ctx, s.accounts.Cash, time.Time{})
}

// Deposit posts a cash deposit voucher: debit Cash, credit the contra
// account.
func (s *Service) Deposit(ctx context.Context, amount ledger.Money, memo, actor string) (ledger.Voucher, error) {
	if amount <= 0 {
		return ledger.Voucher{}, errors.New("banking: deposit amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gl.PostNew(ctx, ledger.DraftInput{
		Date:        s.now(),
		Description: describe("Cash deposit", memo),
		Lines: []ledger.LineInput{
			{AccountCode: s.accounts.Cash, Side: ledger.SideDebit, Amount: amount, Memo: memo},
			{AccountCode: s.accounts.Contra, Side: ledger.SideCredit, Amount: amount, Memo: memo},
		},
	}, actor)
}

// Withdraw posts the mirror voucher. It fails with ErrInsufficientFunds
// when the amount exceeds the derived balance. The funds check and the post
// run under the service mutex so concurrent withdrawals cannot all validate
// against the same stale balance.
func (s *Service) Withdraw(ctx context.Context, amount ledger.Money, memo, actor string) (ledger.Voucher, error) {
	if amount <= 0 {
		return ledger.Voucher{}, errors.New("banking: withdrawal amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, err := s.gl.AccountBalance(ctx, s.accounts.Cash, time.Time{})
	if err != nil {
		return ledger.Voucher{}, err
	}
	if amount > balance {
		return ledger.Voucher{}, fmt.Errorf("%w: balance %s, requested %s",
			ErrInsufficientFunds, balance.Baht(), amount.Baht())
	}
	return s.gl.PostNew(ctx, ledger.DraftInput{
		Date:        s.now(),
		Description: describe("Cash withdrawal", memo),
		Lines: []ledger.LineInput{
			{AccountCode: s.accounts.Contra, Side: ledger.SideDebit, Amount: amount, Memo: memo},
			{AccountCode: s.accounts.Cash, Side: ledger.SideCredit, Amount: amount, Memo: memo},
		},
	}, actor)
}

// ChequeInput registers a cheque in the register.
type ChequeInput struct {
	Number string
	Bank   string
	Party  string
	Amount ledger.Money
	Date   time.Time
}

// ReceiveCheque records a customer cheque in hand. No ledger effect until
// the cheque is deposited.
func (s *Service) ReceiveCheque(ctx context.Context, in ChequeInput) (Cheque, error) {
	return s.registerCheque(in, DirectionReceived, ChequeInHand)
}

// IssueCheque records a cheque written to a party. The cash leaves the
// ledger when the cheque clears.
func (s *Service) IssueCheque(ctx context.Context, in ChequeInput) (Cheque, error) {
	return s.registerCheque(in, DirectionIssued, ChequeIssued)
}

func (s *Service) registerCheque(in ChequeInput, dir ChequeDirection, status ChequeStatus) (Cheque, error) {
	if in.Number == "" {
		return Cheque{}, errors.New("banking: cheque number required")
	}
	if in.Amount <= 0 {
		return Cheque{}, errors.New("banking: cheque amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cheques[in.Number]; exists {
		return Cheque{}, fmt.Errorf("%w: %s", ErrDuplicateCheque, in.Number)
	}
	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	c := &Cheque{
		Number:    in.Number,
		Bank:      in.Bank,
		Direction: dir,
		Party:     in.Party,
		Amount:    in.Amount,
		Date:      date,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.cheques[in.Number] = c
	return *c, nil
}

// DepositCheque banks a received cheque and posts the cash recognition
// voucher.
func (s *Service) DepositCheque(ctx context.Context, number, actor string) (Cheque, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cheques[number]
	if !ok {
		return Cheque{}, fmt.Errorf("%w: %s", ErrChequeNotFound, number)
	}
	if c.Direction != DirectionReceived || c.Status != ChequeInHand {
		return Cheque{}, fmt.Errorf("%w: cheque %s is %s", ErrInvalidCheque, number, c.Status)
	}
	voucher, err := s.gl.PostNew(ctx, ledger.DraftInput{
		Date:        s.now(),
		Description: fmt.Sprintf("Cheque %s deposited", number),
		Lines: []ledger.LineInput{
			{AccountCode: s.accounts.Cash, Side: ledger.SideDebit, Amount: c.Amount, Memo: number},
			{AccountCode: s.accounts.Contra, Side: ledger.SideCredit, Amount: c.Amount, Memo: number},
		},
	}, actor)
	if err != nil {
		return Cheque{}, err
	}
	c.Status = ChequeDeposited
	c.VoucherID = voucher.ID
	c.UpdatedAt = s.now()
	return *c, nil
}

// ClearCheque settles a cheque. A deposited received cheque simply flips to
// Cleared; an issued cheque posts the withdrawal at clearing time.
func (s *Service) ClearCheque(ctx context.Context, number, actor string) (Cheque, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cheques[number]
	if !ok {
		return Cheque{}, fmt.Errorf("%w: %s", ErrChequeNotFound, number)
	}
	switch {
	case c.Direction == DirectionReceived && c.Status == ChequeDeposited:
		c.Status = ChequeCleared
	case c.Direction == DirectionIssued && c.Status == ChequeIssued:
		balance, err := s.gl.AccountBalance(ctx, s.accounts.Cash, time.Time{})
		if err != nil {
			return Cheque{}, err
		}
		if c.Amount > balance {
			return Cheque{}, fmt.Errorf("%w: balance %s, cheque %s",
				ErrInsufficientFunds, balance.Baht(), c.Amount.Baht())
		}
		voucher, err := s.gl.PostNew(ctx, ledger.DraftInput{
			Date:        s.now(),
			Description: fmt.Sprintf("Cheque %s cleared", number),
			Lines: []ledger.LineInput{
				{AccountCode: s.accounts.Contra, Side: ledger.SideDebit, Amount: c.Amount, Memo: number},
				{AccountCode: s.accounts.Cash, Side: ledger.SideCredit, Amount: c.Amount, Memo: number},
			},
		}, actor)
		if err != nil {
			return Cheque{}, err
		}
		c.VoucherID = voucher.ID
		c.Status = ChequeCleared
	default:
		return Cheque{}, fmt.Errorf("%w: cheque %s is %s", ErrInvalidCheque, number, c.Status)
	}
	c.UpdatedAt = s.now()
	return *c, nil
}

// ReturnCheque bounces a cheque. A deposited received cheque posts the
// reversing voucher so the recognised cash is backed out.
func (s *Service) ReturnCheque(ctx context.Context, number, actor string) (Cheque, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cheques[number]
	if !ok {
		return Cheque{}, fmt.Errorf("%w: %s", ErrChequeNotFound, number)
	}
	switch {
	case c.Direction == DirectionReceived && c.Status == ChequeInHand:
		c.Status = ChequeReturned
	case c.Direction == DirectionReceived && c.Status == ChequeDeposited:
		if _, err := s.gl.PostNew(ctx, ledger.DraftInput{
			Date:        s.now(),
			Description: fmt.Sprintf("Cheque %s returned", number),
			Lines: []ledger.LineInput{
				{AccountCode: s.accounts.Contra, Side: ledger.SideDebit, Amount: c.Amount, Memo: number},
				{AccountCode: s.accounts.Cash, Side: ledger.SideCredit, Amount: c.Amount, Memo: number},
			},
		}, actor); err != nil {
			return Cheque{}, err
		}
		c.Status = ChequeReturned
	case c.Direction == DirectionIssued && c.Status == ChequeIssued:
		c.Status = ChequeReturned
	default:
		return Cheque{}, fmt.Errorf("%w: cheque %s is %s", ErrInvalidCheque, number, c.Status)
	}
	c.UpdatedAt = s.now()
	return *c, nil
}

// OutstandingCheques lists cheques not yet in a terminal state, ordered by
// number.
func (s *Service) OutstandingCheques(ctx context.Context) []Cheque {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Cheque
	for _, c := range s.cheques {
		if c.Status == ChequeCleared || c.Status == ChequeReturned {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Cheques lists the full register ordered by number.
func (s *Service) Cheques(ctx context.Context) []Cheque {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Cheque, 0, len(s.cheques))
	for _, c := range s.cheques {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func describe(what, memo string) string {
	if memo == "" {
		return what
	}
	return what + ": " + memo
}
