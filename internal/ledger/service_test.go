package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(DefaultChart(), NewMemoryStore(), nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) })
	return svc
}

func draftLines(debitCode string, creditCode string, amount Money) []LineInput {
	return []LineInput{
		{AccountCode: debitCode, Side: SideDebit, Amount: amount},
		{AccountCode: creditCode, Side: SideCredit, Amount: amount},
	}
}

func TestPostBalancedVoucher(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	draft, err := svc.CreateDraft(ctx, DraftInput{
		Description: "cash sale",
		Lines:       draftLines("1000", "4000", 100000),
	})
	require.NoError(t, err)
	require.Equal(t, VoucherStatusDraft, draft.Status)

	posted, err := svc.Post(ctx, draft.ID, "tester")
	require.NoError(t, err)
	require.Equal(t, VoucherStatusPosted, posted.Status)
	require.Equal(t, int64(1), posted.Number)

	tb, err := svc.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)
	require.Equal(t, tb.TotalDebit, tb.TotalCredit)
	require.Len(t, tb.Rows, 2)
	require.Equal(t, "1000", tb.Rows[0].Account.Code)
	require.Equal(t, Money(100000), tb.Rows[0].Debit)
	require.Equal(t, Money(100000), tb.Rows[0].Net)
	require.Equal(t, "4000", tb.Rows[1].Account.Code)
	require.Equal(t, Money(100000), tb.Rows[1].Credit)
	require.Equal(t, Money(100000), tb.Rows[1].Net)
}

func TestPostUnbalancedVoucherLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	draft, err := svc.CreateDraft(ctx, DraftInput{
		Description: "unbalanced",
		Lines: []LineInput{
			{AccountCode: "1000", Side: SideDebit, Amount: 10000},
			{AccountCode: "4000", Side: SideCredit, Amount: 9000},
		},
	})
	require.NoError(t, err)

	_, err = svc.Post(ctx, draft.ID, "tester")
	var unbalanced UnbalancedVoucherError
	require.ErrorAs(t, err, &unbalanced)
	require.Equal(t, Money(1000), unbalanced.Diff)

	vouchers, err := svc.Vouchers(ctx)
	require.NoError(t, err)
	require.Empty(t, vouchers)

	// Draft survives a failed post and can be fixed up.
	fixed, err := svc.AppendLines(ctx, draft.ID, []LineInput{
		{AccountCode: "4100", Side: SideCredit, Amount: 1000},
	})
	require.NoError(t, err)
	require.Len(t, fixed.Lines, 3)
	_, err = svc.Post(ctx, draft.ID, "tester")
	require.NoError(t, err)
}

func TestValidateRejectsBadLines(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	cases := []struct {
		name  string
		lines []LineInput
	}{
		{"empty line set", nil},
		{"unknown account", draftLines("9999", "4000", 1000)},
		{"zero amount", []LineInput{
			{AccountCode: "1000", Side: SideDebit, Amount: 0},
			{AccountCode: "4000", Side: SideCredit, Amount: 0},
		}},
		{"negative amount", []LineInput{
			{AccountCode: "1000", Side: SideDebit, Amount: -500},
			{AccountCode: "4000", Side: SideCredit, Amount: -500},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft, err := svc.CreateDraft(ctx, DraftInput{Lines: tc.lines})
			require.NoError(t, err)
			_, err = svc.Post(ctx, draft.ID, "tester")
			require.Error(t, err)

			vouchers, err := svc.Vouchers(ctx)
			require.NoError(t, err)
			require.Empty(t, vouchers, "failed validation must not mutate the ledger")
		})
	}
}

func TestPostTwiceFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	draft, err := svc.CreateDraft(ctx, DraftInput{Lines: draftLines("1000", "4000", 5000)})
	require.NoError(t, err)
	_, err = svc.Post(ctx, draft.ID, "tester")
	require.NoError(t, err)

	_, err = svc.Post(ctx, draft.ID, "tester")
	require.ErrorIs(t, err, ErrAlreadyPosted)
}

func TestVoidMirrorsAndMarksOriginal(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	draft, err := svc.CreateDraft(ctx, DraftInput{Lines: draftLines("1000", "4000", 250000)})
	require.NoError(t, err)
	posted, err := svc.Post(ctx, draft.ID, "tester")
	require.NoError(t, err)

	reversal, err := svc.Void(ctx, posted.ID, "", "tester")
	require.NoError(t, err)
	require.Equal(t, VoucherStatusPosted, reversal.Status)
	require.Len(t, reversal.Lines, 2)
	require.Equal(t, SideCredit, reversal.Lines[0].Side)
	require.Equal(t, "1000", reversal.Lines[0].AccountCode)
	require.Equal(t, SideDebit, reversal.Lines[1].Side)

	original, err := svc.Voucher(ctx, posted.ID)
	require.NoError(t, err)
	require.Equal(t, VoucherStatusVoid, original.Status)

	// History is offset, never deleted: both vouchers remain in the log and
	// the account nets to zero.
	vouchers, err := svc.Vouchers(ctx)
	require.NoError(t, err)
	require.Len(t, vouchers, 2)

	balance, err := svc.AccountBalance(ctx, "1000", time.Time{})
	require.NoError(t, err)
	require.Equal(t, Money(0), balance)
}

func TestVoidTwiceFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	draft, err := svc.CreateDraft(ctx, DraftInput{Lines: draftLines("1000", "4000", 7700)})
	require.NoError(t, err)
	posted, err := svc.Post(ctx, draft.ID, "tester")
	require.NoError(t, err)

	_, err = svc.Void(ctx, posted.ID, "", "tester")
	require.NoError(t, err)
	_, err = svc.Void(ctx, posted.ID, "", "tester")
	require.ErrorIs(t, err, ErrAlreadyVoided)
}

func TestVoidDraftFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	draft, err := svc.CreateDraft(ctx, DraftInput{Lines: draftLines("1000", "4000", 100)})
	require.NoError(t, err)
	_, err = svc.Void(ctx, draft.ID, "", "tester")
	require.ErrorIs(t, err, ErrNotPosted)
}

func TestVoidUnknownVoucherFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Void(ctx, uuid.New(), "", "tester")
	require.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestTrialBalanceBalancedAcrossSequence(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var posted []Voucher
	amounts := []Money{100000, 2599, 700, 4312500}
	for _, amount := range amounts {
		draft, err := svc.CreateDraft(ctx, DraftInput{Lines: draftLines("1000", "4000", amount)})
		require.NoError(t, err)
		v, err := svc.Post(ctx, draft.ID, "tester")
		require.NoError(t, err)
		posted = append(posted, v)

		tb, err := svc.TrialBalance(ctx, time.Time{})
		require.NoError(t, err)
		require.Equal(t, tb.TotalDebit, tb.TotalCredit)
	}

	_, err := svc.Void(ctx, posted[1].ID, "entered twice", "tester")
	require.NoError(t, err)
	tb, err := svc.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)
	require.Equal(t, tb.TotalDebit, tb.TotalCredit)
}

func TestTrialBalanceAsOfFiltersByDate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	early, err := svc.CreateDraft(ctx, DraftInput{
		Date:  time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Lines: draftLines("1000", "4000", 1000),
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, early.ID, "tester")
	require.NoError(t, err)

	late, err := svc.CreateDraft(ctx, DraftInput{
		Date:  time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC),
		Lines: draftLines("1000", "4000", 500),
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, late.ID, "tester")
	require.NoError(t, err)

	tb, err := svc.TrialBalance(ctx, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, Money(1000), tb.TotalDebit)
	require.Equal(t, Money(1000), tb.TotalCredit)
}

func TestTrialBalanceIntegrityErrorOnCorruptedStore(t *testing.T) {
	ctx := context.Background()
	chart := DefaultChart()
	store := NewMemoryStore()
	svc := NewService(chart, store, nil)

	// Bypass the posting engine to simulate a store-level defect.
	require.NoError(t, store.Append(ctx, Voucher{
		ID:     uuid.New(),
		Number: 1,
		Status: VoucherStatusPosted,
		Lines: []VoucherLine{
			{AccountCode: "1000", Side: SideDebit, Amount: 999},
		},
	}))

	_, err := svc.TrialBalance(ctx, time.Time{})
	var integrity TrialBalanceIntegrityError
	require.ErrorAs(t, err, &integrity)
	require.Equal(t, Money(999), integrity.TotalDebit)
	require.Equal(t, Money(0), integrity.TotalCredit)
}

func TestDeactivateReferencedAccountBlocked(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	draft, err := svc.CreateDraft(ctx, DraftInput{Lines: draftLines("1000", "4000", 100)})
	require.NoError(t, err)
	_, err = svc.Post(ctx, draft.ID, "tester")
	require.NoError(t, err)

	_, err = svc.DeactivateAccount(ctx, "1000")
	require.ErrorIs(t, err, ErrAccountReferenced)

	// Unreferenced accounts may be retired, and retired accounts reject
	// new postings.
	_, err = svc.DeactivateAccount(ctx, "5100")
	require.NoError(t, err)
	draft2, err := svc.CreateDraft(ctx, DraftInput{Lines: draftLines("5100", "1000", 100)})
	require.NoError(t, err)
	_, err = svc.Post(ctx, draft2.ID, "tester")
	var invalid InvalidLineError
	require.ErrorAs(t, err, &invalid)
}

func TestConcurrentPostsAllLandOrFailCleanly(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	const n = 16
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			draft, err := svc.CreateDraft(ctx, DraftInput{Lines: draftLines("1000", "4000", 100)})
			if err != nil {
				done <- err
				return
			}
			_, err = svc.Post(ctx, draft.ID, "tester")
			done <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-done)
	}

	tb, err := svc.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)
	require.Equal(t, Money(n*100), tb.TotalDebit)
	require.Equal(t, tb.TotalDebit, tb.TotalCredit)
}

func TestErrorsUnwrap(t *testing.T) {
	require.True(t, errors.Is(ErrAlreadyVoided, ErrAlreadyVoided))
	err := UnbalancedVoucherError{Diff: 10}
	require.Contains(t, err.Error(), "0.10")
}
