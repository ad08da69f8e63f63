package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/AarushDarne/shelftrack-webapp/internal/loans"
	"github.com/AarushDarne/shelftrack-webapp/internal/notify"
	"github.com/AarushDarne/shelftrack-webapp/internal/overdue"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

const (
	overdueSweepBatch = 500
	overdueNoticeTTL  = 24 * time.Hour
)

type overdueLoanReader interface {
	ListOverdue(ctx context.Context, branchID uuid.UUID, now time.Time, after loans.Cursor, limit int) ([]models.CheckoutRecord, error)
	CountOverdue(ctx context.Context, branchID uuid.UUID, now time.Time) (int, error)
}

// noticeDeduper remembers which loans were already notified today.
type noticeDeduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

type overdueGauge interface {
	SetOverdueLoans(n int)
}

type OverdueSweepJobParams struct {
	Logger     *logger.Logger
	Loans      overdueLoanReader
	Calculator *overdue.Calculator
	Notifier   notify.Notifier
	Deduper    noticeDeduper
	Gauge      overdueGauge
	BatchSize  int
	Clock      func() time.Time
}

// NewOverdueSweepJob builds the job that publishes one overdue notice per
// loan per day and exports the overdue count.
func NewOverdueSweepJob(params OverdueSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loans == nil {
		return nil, fmt.Errorf("loan repository required")
	}
	if params.Calculator == nil {
		return nil, fmt.Errorf("overdue calculator required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = overdueSweepBatch
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &overdueSweepJob{
		logg:     params.Logger,
		loans:    params.Loans,
		calc:     params.Calculator,
		notifier: notifier,
		dedupe:   params.Deduper,
		gauge:    params.Gauge,
		batch:    batch,
		now:      clock,
	}, nil
}

type overdueSweepJob struct {
	logg     *logger.Logger
	loans    overdueLoanReader
	calc     *overdue.Calculator
	notifier notify.Notifier
	dedupe   noticeDeduper
	gauge    overdueGauge
	batch    int
	now      func() time.Time
}

func (j *overdueSweepJob) Name() string { return "overdue-sweep" }

// Run walks every overdue loan in keyset pages so a backlog larger than one
// batch is still notified in a single cycle.
func (j *overdueSweepJob) Run(ctx context.Context) error {
	now := j.now()
	var (
		errs   error
		tally  sweepTally
		cursor loans.Cursor
		day    = now.Format(time.DateOnly)
	)
	if j.gauge != nil {
		count, err := j.loans.CountOverdue(ctx, uuid.Nil, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("count overdue loans: %w", err))
		} else {
			j.gauge.SetOverdueLoans(count)
		}
	}

	for {
		page, err := j.loans.ListOverdue(ctx, uuid.Nil, now, cursor, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list overdue loans: %w", err))
		}
		errs = multierr.Append(errs, j.notifyPage(ctx, page, day, &tally))
		if len(page) < j.batch {
			break
		}
		cursor = loans.After(page[len(page)-1])
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"overdue":  tally.seen,
		"notified": tally.sent,
		"skipped":  tally.skipped,
		"failed":   len(multierr.Errors(errs)),
	}), "overdue sweep finished")
	return errs
}

type sweepTally struct {
	seen, sent, skipped int
}

func (j *overdueSweepJob) notifyPage(ctx context.Context, page []models.CheckoutRecord, day string, tally *sweepTally) error {
	var errs error
	byLoanID := make(map[uuid.UUID]models.CheckoutRecord, len(page))
	for _, rec := range page {
		byLoanID[rec.ID] = rec
	}
	tally.seen += len(page)
	for _, a := range j.calc.AssessAll(page) {
		first, err := j.firstToday(ctx, a.LoanID, day)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !first {
			tally.skipped++
			continue
		}
		rec := byLoanID[a.LoanID]
		if err := j.notifier.Overdue(ctx, notify.OverdueNotice{
			LoanID:      a.LoanID,
			CopyID:      a.CopyID,
			BorrowerID:  a.BorrowerID,
			BranchID:    rec.BranchID,
			DueAt:       a.DueAt,
			DaysOverdue: a.DaysOverdue,
			Fine:        a.Fine,
		}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("notify loan %s: %w", a.LoanID, err))
			continue
		}
		tally.sent++
	}
	return errs
}

func (j *overdueSweepJob) firstToday(ctx context.Context, loanID uuid.UUID, day string) (bool, error) {
	if j.dedupe == nil {
		return true, nil
	}
	key := j.dedupe.IdempotencyKey("overdue-notice", loanID.String()+":"+day)
	ok, err := j.dedupe.SetNX(ctx, key, "1", overdueNoticeTTL)
	if err != nil {
		return false, fmt.Errorf("dedupe loan %s: %w", loanID, err)
	}
	return ok, nil
}
