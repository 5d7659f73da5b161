package tax

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
	ErrReportNotFound   = errors.New("tax: report not found")
	ErrAlreadySubmitted = errors.New("tax: report already submitted")
)

// ReportStatus enumerates the filing lifecycle.
type ReportStatus string

const (
	StatusDraft     ReportStatus = "DRAFT"
	StatusSubmitted ReportStatus = "SUBMITTED"
)

// VATSource yields taxable base and VAT for documents dated in [from, to].
// The receivables service provides output VAT, the payables service input
// VAT.
type VATSource interface {
	VATTotals(ctx context.Context, from, to time.Time) (base, vat ledger.Money, err error)
}

// Summary is the monthly VAT position. Net is output minus input: positive
// means payable to the Revenue Department, negative means refundable or
// carried forward.
type Summary struct {
	Year       int
	Month      time.Month
	OutputBase ledger.Money
	OutputVAT  ledger.Money
	InputBase  ledger.Money
	InputVAT   ledger.Money
	Net        ledger.Money
}

// Report is a filed (or to-be-filed) monthly VAT return.
type Report struct {
	Number      string
	Summary     Summary
	Status      ReportStatus
	CreatedAt   time.Time
	SubmittedAt time.Time
}

// Service computes and records monthly VAT reports.
type Service struct {
	output VATSource
	input  VATSource

	mu      sync.Mutex
	reports map[string]*Report
	now     func() time.Time
}

// NewService builds the tax service from the two subledger sources.
func NewService(output, input VATSource) *Service {
	return &Service{
		output:  output,
		input:   input,
		reports: make(map[string]*Report),
		now:     time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ReportNumber names the monthly return, e.g. TAX202406.
func ReportNumber(year int, month time.Month) string {
	return fmt.Sprintf("TAX%04d%02d", year, int(month))
}

// ComputeVAT derives the month's VAT position from the subledgers. It never
// mutates state, so it is safe to call at any time.
func (s *Service) ComputeVAT(ctx context.Context, year int, month time.Month) (Summary, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	outBase, outVAT, err := s.output.VATTotals(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	inBase, inVAT, err := s.input.VATTotals(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Year:       year,
		Month:      month,
		OutputBase: outBase,
		OutputVAT:  outVAT,
		InputBase:  inBase,
		InputVAT:   inVAT,
		Net:        outVAT - inVAT,
	}, nil
}

// GenerateReport computes the month and records it as a draft return. A
// draft for the same month is recomputed in place; a submitted return is
// immutable.
func (s *Service) GenerateReport(ctx context.Context, year int, month time.Month) (Report, error) {
	summary, err := s.ComputeVAT(ctx, year, month)
	if err != nil {
		return Report{}, err
	}
	number := ReportNumber(year, month)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.reports[number]; ok {
		if existing.Status == StatusSubmitted {
			return Report{}, fmt.Errorf("%w: %s", ErrAlreadySubmitted, number)
		}
		existing.Summary = summary
		return *existing, nil
	}
	r := &Report{
		Number:    number,
		Summary:   summary,
		Status:    StatusDraft,
		CreatedAt: s.now(),
	}
	s.reports[number] = r
	return *r, nil
}

// SubmitReport files a draft return.
func (s *Service) SubmitReport(ctx context.Context, number string) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[number]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, number)
	}
	if r.Status == StatusSubmitted {
		return Report{}, fmt.Errorf("%w: %s", ErrAlreadySubmitted, number)
	}
	r.Status = StatusSubmitted
	r.SubmittedAt = s.now()
	return *r, nil
}

// Report returns one recorded return.
func (s *Service) Report(ctx context.Context, number string) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[number]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, number)
	}
	return *r, nil
}

// Reports lists recorded returns ordered by number.
func (s *Service) Reports(ctx context.Context) []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
