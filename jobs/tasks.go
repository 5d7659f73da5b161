package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/siamledger/siamledger/internal/assets"
	"github.com/siamledger/siamledger/internal/ledger"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLedgerIntegrity runs the trial balance oracle over the books.
	TaskTypeLedgerIntegrity = "ledger:integrity"
	// TaskTypeDepreciationRun posts the month's scheduled depreciation.
	TaskTypeDepreciationRun = "assets:depreciation"
)

// NewLedgerIntegrityTask constructs the integrity scan task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLedgerIntegrity, nil)
}

// DepreciationPayload selects the period to depreciate. A zero payload means
// the previous calendar month.
type DepreciationPayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewDepreciationTask constructs a depreciation run task.
func NewDepreciationTask(payload DepreciationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDepreciationRun, data), nil
}

// LedgerIntegrityHandler returns the handler for TaskTypeLedgerIntegrity.
// The trial balance either balances or returns an integrity error; the
// latter means the posting engine wrote a torn voucher and is logged at
// error level for the operator.
func LedgerIntegrityHandler(gl *ledger.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		report, err := gl.TrialBalance(ctx, time.Time{})
		if err != nil {
			logger.Error("ledger integrity scan failed",
				slog.String("job", TaskTypeLedgerIntegrity),
				slog.Any("error", err))
			return err
		}
		logger.Info("ledger integrity scan passed",
			slog.String("job", TaskTypeLedgerIntegrity),
			slog.String("total_debit", report.TotalDebit.Baht()),
			slog.String("total_credit", report.TotalCredit.Baht()),
			slog.Int("accounts", len(report.Rows)))
		return nil
	}
}

// DepreciationHandler returns the handler for TaskTypeDepreciationRun.
// The run is idempotent, so retries after a partial failure are safe.
func DepreciationHandler(register *assets.Service, logger *slog.Logger, now func() time.Time) asynq.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DepreciationPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		period := assets.Period{Year: payload.Year, Month: time.Month(payload.Month)}
		if payload.Year == 0 || payload.Month == 0 {
			prev := now().UTC().AddDate(0, -1, 0)
			period = assets.Period{Year: prev.Year(), Month: prev.Month()}
		}
		run, err := register.RunDepreciation(ctx, period, "jobs")
		if err != nil {
			logger.Error("depreciation run failed",
				slog.String("job", TaskTypeDepreciationRun),
				slog.String("period", period.String()),
				slog.Any("error", err))
			return err
		}
		logger.Info("depreciation run posted",
			slog.String("job", TaskTypeDepreciationRun),
			slog.String("period", run.Period.String()),
			slog.String("total", run.Total.Baht()),
			slog.Int("assets", run.Assets))
		return nil
	}
}
