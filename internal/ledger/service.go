package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siamledger/siamledger/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LineInput describes one line of a posting request.
type LineInput struct {
	AccountCode string
	Side        Side
	Amount      Money
	Memo        string
}

// DraftInput groups the fields required to open a voucher draft.
type DraftInput struct {
	Date        time.Time
	Description string
	Lines       []LineInput
}

// Service is the posting engine: the only writer of posted ledger state.
// Post and Void run under a per-instance mutex so concurrent submissions can
// never interleave partial writes or validate against a torn snapshot.
type Service struct {
	chart *ChartOfAccounts
	store Store
	audit AuditPort

	mu         sync.Mutex
	drafts     map[uuid.UUID]*Voucher
	nextNumber int64
	now        func() time.Time
}

// NewService constructs the posting engine.
func NewService(chart *ChartOfAccounts, store Store, audit AuditPort) *Service {
	return &Service{
		chart:  chart,
		store:  store,
		audit:  audit,
		drafts: make(map[uuid.UUID]*Voucher),
		now:    time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Chart exposes the chart of accounts handle.
func (s *Service) Chart() *ChartOfAccounts {
	return s.chart
}

// CreateDraft constructs a voucher in Draft state. Drafts may be incomplete,
// so no balance check happens here.
func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (Voucher, error) {
	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	v := &Voucher{
		ID:          uuid.New(),
		Date:        date,
		Description: in.Description,
		Status:      VoucherStatusDraft,
		Lines:       toLines(in.Lines),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.mu.Lock()
	s.drafts[v.ID] = v
	s.mu.Unlock()
	return v.clone(), nil
}

// AppendLines adds lines to an existing draft. Posted vouchers are immutable.
func (s *Service) AppendLines(ctx context.Context, id uuid.UUID, lines []LineInput) (Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[id]
	if !ok {
		if _, err := s.store.Get(ctx, id); err == nil {
			return Voucher{}, fmt.Errorf("%w: %s", ErrAlreadyPosted, id)
		}
		return Voucher{}, fmt.Errorf("%w: %s", ErrVoucherNotFound, id)
	}
	draft.Lines = append(draft.Lines, toLines(lines)...)
	draft.UpdatedAt = s.now()
	return draft.clone(), nil
}

// Validate checks a voucher against the double-entry invariants: every
// account resolves and is active, every amount is strictly positive, and
// debits equal credits exactly at satang granularity. It never mutates
// ledger state.
func (s *Service) Validate(v Voucher) error {
	if len(v.Lines) == 0 {
		return InvalidLineError{Index: -1, Reason: "empty line set"}
	}
	var debit, credit Money
	for idx, line := range v.Lines {
		acc, err := s.chart.Resolve(line.AccountCode)
		if err != nil {
			return fmt.Errorf("%w (line %d)", err, idx)
		}
		if !acc.Active {
			return InvalidLineError{Index: idx, Reason: fmt.Sprintf("account %s is inactive", line.AccountCode)}
		}
		if line.Amount <= 0 {
			return InvalidLineError{Index: idx, Reason: "amount must be positive"}
		}
		switch line.Side {
		case SideDebit:
			debit += line.Amount
		case SideCredit:
			credit += line.Amount
		default:
			return InvalidLineError{Index: idx, Reason: fmt.Sprintf("unknown side %q", line.Side)}
		}
	}
	if debit != credit {
		return UnbalancedVoucherError{Diff: debit - credit}
	}
	return nil
}

// Post revalidates a draft and appends its lines to the ledger atomically.
// On success the voucher is Posted and its lines are immutable facts visible
// to all subsequent reads.
func (s *Service) Post(ctx context.Context, id uuid.UUID, actor string) (Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[id]
	if !ok {
		stored, err := s.store.Get(ctx, id)
		if err != nil {
			return Voucher{}, fmt.Errorf("%w: %s", ErrVoucherNotFound, id)
		}
		if stored.Status == VoucherStatusVoid {
			return Voucher{}, fmt.Errorf("%w: %s", ErrAlreadyVoided, id)
		}
		return Voucher{}, fmt.Errorf("%w: %s", ErrAlreadyPosted, id)
	}
	if err := s.Validate(*draft); err != nil {
		return Voucher{}, err
	}

	number, err := s.claimNumber(ctx)
	if err != nil {
		return Voucher{}, err
	}
	now := s.now()
	posted := draft.clone()
	posted.Number = number
	posted.Status = VoucherStatusPosted
	posted.PostedAt = now
	posted.UpdatedAt = now
	if err := s.store.Append(ctx, posted); err != nil {
		return Voucher{}, err
	}
	delete(s.drafts, id)

	s.record(ctx, actor, "voucher.post", posted.ID, map[string]any{
		"number": posted.Number,
		"lines":  len(posted.Lines),
	})
	return posted, nil
}

// Void offsets a posted voucher by posting its exact debit/credit-swapped
// mirror, then marks the original Voided. History is never deleted. Voiding
// twice fails with ErrAlreadyVoided; voiding a draft fails with ErrNotPosted.
func (s *Service) Void(ctx context.Context, id uuid.UUID, reversingDescription, actor string) (Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, isDraft := s.drafts[id]; isDraft {
		return Voucher{}, fmt.Errorf("%w: %s is a draft", ErrNotPosted, id)
	}
	original, err := s.store.Get(ctx, id)
	if err != nil {
		return Voucher{}, fmt.Errorf("%w: %s", ErrVoucherNotFound, id)
	}
	switch original.Status {
	case VoucherStatusVoid:
		return Voucher{}, fmt.Errorf("%w: %s", ErrAlreadyVoided, id)
	case VoucherStatusPosted:
	default:
		return Voucher{}, fmt.Errorf("%w: %s", ErrNotPosted, id)
	}

	number, err := s.claimNumber(ctx)
	if err != nil {
		return Voucher{}, err
	}
	now := s.now()
	reversal := Voucher{
		ID:          uuid.New(),
		Number:      number,
		Date:        now,
		Description: defaultReversalDescription(reversingDescription, original.Number),
		Status:      VoucherStatusPosted,
		Lines:       mirrorLines(original.Lines),
		PostedAt:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Validate(reversal); err != nil {
		return Voucher{}, err
	}
	if err := s.store.Append(ctx, reversal); err != nil {
		return Voucher{}, err
	}
	if err := s.store.UpdateStatus(ctx, original.ID, VoucherStatusVoid); err != nil {
		return Voucher{}, err
	}

	s.record(ctx, actor, "voucher.void", original.ID, map[string]any{
		"reversal_id":     reversal.ID.String(),
		"reversal_number": reversal.Number,
	})
	return reversal, nil
}

// PostNew opens a draft and posts it in one step. Subledgers use this to
// express their recognising entries as ordinary vouchers.
func (s *Service) PostNew(ctx context.Context, in DraftInput, actor string) (Voucher, error) {
	draft, err := s.CreateDraft(ctx, in)
	if err != nil {
		return Voucher{}, err
	}
	return s.Post(ctx, draft.ID, actor)
}

// Voucher returns a draft or posted voucher by id.
func (s *Service) Voucher(ctx context.Context, id uuid.UUID) (Voucher, error) {
	s.mu.Lock()
	if draft, ok := s.drafts[id]; ok {
		v := draft.clone()
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()
	return s.store.Get(ctx, id)
}

// Vouchers returns a consistent snapshot of the posted ledger, reversals and
// voided vouchers included.
func (s *Service) Vouchers(ctx context.Context) ([]Voucher, error) {
	return s.store.Snapshot(ctx)
}

// AccountBalance derives the balance of one account from posted lines only,
// signed by the account's normal side.
func (s *Service) AccountBalance(ctx context.Context, code string, asOf time.Time) (Money, error) {
	acc, err := s.chart.Resolve(code)
	if err != nil {
		return 0, err
	}
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	var debit, credit Money
	for _, v := range snapshot {
		if !asOf.IsZero() && v.Date.After(asOf) {
			continue
		}
		for _, line := range v.Lines {
			if line.AccountCode != code {
				continue
			}
			if line.Side == SideDebit {
				debit += line.Amount
			} else {
				credit += line.Amount
			}
		}
	}
	if acc.NormalSide() == SideDebit {
		return debit - credit, nil
	}
	return credit - debit, nil
}

// IsAccountReferenced reports whether any posted line cites the code.
func (s *Service) IsAccountReferenced(ctx context.Context, code string) (bool, error) {
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	for _, v := range snapshot {
		for _, line := range v.Lines {
			if line.AccountCode == code {
				return true, nil
			}
		}
	}
	return false, nil
}

// DeactivateAccount retires an account that no posted entry references.
func (s *Service) DeactivateAccount(ctx context.Context, code string) (Account, error) {
	referenced, err := s.IsAccountReferenced(ctx, code)
	if err != nil {
		return Account{}, err
	}
	if referenced {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountReferenced, code)
	}
	return s.chart.deactivate(code)
}

// claimNumber hands out the next voucher number, seeding the sequence from
// the store on first use so numbering survives process restarts.
func (s *Service) claimNumber(ctx context.Context) (int64, error) {
	if s.nextNumber == 0 {
		snapshot, err := s.store.Snapshot(ctx)
		if err != nil {
			return 0, err
		}
		s.nextNumber = int64(len(snapshot)) + 1
	}
	n := s.nextNumber
	s.nextNumber++
	return n, nil
}

func (s *Service) record(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if actor == "" {
		actor = "system"
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "voucher",
		EntityID: id.String(),
		Meta:     meta,
		At:       s.now(),
	})
}

func toLines(in []LineInput) []VoucherLine {
	out := make([]VoucherLine, 0, len(in))
	for _, l := range in {
		out = append(out, VoucherLine{
			AccountCode: l.AccountCode,
			Side:        l.Side,
			Amount:      l.Amount,
			Memo:        l.Memo,
		})
	}
	return out
}

func mirrorLines(lines []VoucherLine) []VoucherLine {
	out := make([]VoucherLine, 0, len(lines))
	for _, line := range lines {
		side := SideDebit
		if line.Side == SideDebit {
			side = SideCredit
		}
		out = append(out, VoucherLine{
			AccountCode: line.AccountCode,
			Side:        side,
			Amount:      line.Amount,
			Memo:        line.Memo,
		})
	}
	return out
}

func defaultReversalDescription(desc string, number int64) string {
	if desc != "" {
		return desc
	}
	return fmt.Sprintf("Reversal of voucher %d", number)
}
