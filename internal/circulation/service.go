// Package circulation applies checkout, return, reservation and maintenance
// transitions to copies. Mutations on a title run one at a time inside that
// title's critical section; reads go straight to the component snapshots.
package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/AarushDarne/shelftrack-webapp/internal/access"
	"github.com/AarushDarne/shelftrack-webapp/internal/activity"
	"github.com/AarushDarne/shelftrack-webapp/internal/inventory"
	"github.com/AarushDarne/shelftrack-webapp/internal/journal"
	"github.com/AarushDarne/shelftrack-webapp/internal/loans"
	"github.com/AarushDarne/shelftrack-webapp/internal/notify"
	"github.com/AarushDarne/shelftrack-webapp/internal/overdue"
	"github.com/AarushDarne/shelftrack-webapp/internal/reservations"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/metrics"
)

const defaultLoanPeriod = 14 * 24 * time.Hour

// Service is the circulation engine boundary.
type Service interface {
	Checkout(ctx context.Context, copyID, borrowerID, actorID uuid.UUID) (models.CheckoutRecord, error)
	Return(ctx context.Context, copyID, actorID uuid.UUID) (models.CheckoutRecord, error)
	Reserve(ctx context.Context, titleID, userID, actorID uuid.UUID) (ReserveResult, error)
	CancelReservation(ctx context.Context, titleID, userID, actorID uuid.UUID) error
	MarkMaintenance(ctx context.Context, copyID, actorID uuid.UUID) (models.Copy, error)
	ClearMaintenance(ctx context.Context, copyID, actorID uuid.UUID) (models.Copy, error)

	AddTitle(ctx context.Context, actorID uuid.UUID, input AddTitleInput) (TitleView, error)
	UpdateTitle(ctx context.Context, actorID, titleID uuid.UUID, input UpdateTitleInput) (models.Title, error)
	AddCopy(ctx context.Context, actorID, titleID uuid.UUID, input AddCopyInput) (models.Copy, error)

	ListTitles(ctx context.Context, branchID uuid.UUID) []TitleView
	GetTitle(ctx context.Context, titleID uuid.UUID) (TitleView, error)
	ListCopies(ctx context.Context, titleID uuid.UUID) ([]models.Copy, error)
	ListReservations(ctx context.Context, titleID uuid.UUID) ([]models.Reservation, error)
	GetOverdue(ctx context.Context, copyID uuid.UUID) (overdue.Assessment, error)
	ListOverdue(ctx context.Context, branchID uuid.UUID) []overdue.Assessment
	GetLoan(ctx context.Context, loanID uuid.UUID) (overdue.Assessment, error)
	Borrower(ctx context.Context, userID uuid.UUID) (BorrowerView, error)
	RecentActivity(ctx context.Context, branchID uuid.UUID, limit int) ([]models.ActivityEntry, error)
	Dashboard(ctx context.Context, branchID uuid.UUID) (DashboardStats, error)

	Hydrate(snapshot Snapshot) error
}

// Directory resolves users and branches for the engine.
type Directory interface {
	Resolve(userID uuid.UUID) (models.User, error)
	Branch(branchID uuid.UUID) (models.Branch, error)
	CountUsers(branchID uuid.UUID) int
}

// ReserveResult carries the reservation entry and, for an immediate hold,
// the copy set aside for the user.
type ReserveResult struct {
	Entry models.Reservation
	Copy  *models.Copy
}

// Held reports whether a copy was reserved right away.
func (r ReserveResult) Held() bool {
	return r.Copy != nil
}

// ServiceParams wire the circulation engine.
type ServiceParams struct {
	Directory    Directory
	Ledger       *inventory.Ledger
	Reservations *reservations.Registry
	Loans        *loans.Book
	Activity     *activity.Log
	Journal      journal.Recorder
	Notifier     notify.Notifier
	Metrics      *metrics.CirculationMetrics
	Logger       *logger.Logger
	Clock        func() time.Time
	LoanPeriod   time.Duration
	FinePerDay   decimal.Decimal
}

type service struct {
	dir          Directory
	ledger       *inventory.Ledger
	reservations *reservations.Registry
	loans        *loans.Book
	activity     *activity.Log
	journal      journal.Recorder
	notifier     notify.Notifier
	metrics      *metrics.CirculationMetrics
	logg         *logger.Logger
	now          func() time.Time
	loanPeriod   time.Duration
	calc         *overdue.Calculator
	locks        *titleLocks
}

// NewService validates params and builds the circulation engine.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Directory == nil:
		return nil, fmt.Errorf("directory required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case params.Reservations == nil:
		return nil, fmt.Errorf("reservation registry required")
	case params.Loans == nil:
		return nil, fmt.Errorf("loan book required")
	case params.Activity == nil:
		return nil, fmt.Errorf("activity log required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.FinePerDay.IsNegative():
		return nil, fmt.Errorf("fine per day must not be negative")
	}
	rec := params.Journal
	if rec == nil {
		rec = journal.Discard{}
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	period := params.LoanPeriod
	if period <= 0 {
		period = defaultLoanPeriod
	}
	return &service{
		dir:          params.Directory,
		ledger:       params.Ledger,
		reservations: params.Reservations,
		loans:        params.Loans,
		activity:     params.Activity,
		journal:      rec,
		notifier:     notifier,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          clock,
		loanPeriod:   period,
		calc:         overdue.NewCalculator(params.FinePerDay, clock),
		locks:        newTitleLocks(),
	}, nil
}

// op collects everything one accepted mutation touched.
type op struct {
	cs    journal.Changeset
	holds []notify.HoldReadyNotice
}

func (o *op) copies(c ...models.Copy) {
	o.cs.Copies = append(o.cs.Copies, c...)
}

// rollback holds the undo steps of an operation that mutates memory before
// it knows it will succeed.
type rollback []func() error

func (r *rollback) push(fn func() error) {
	*r = append(*r, fn)
}

// run undoes the steps newest first and returns cause, joined with any step
// that could not be undone.
func (r rollback) run(cause error) error {
	err := cause
	for i := len(r) - 1; i >= 0; i-- {
		err = multierr.Append(err, r[i]())
	}
	return err
}

// commit appends the operation's activity entry and hands the changeset to
// the journal. Callers hold the title lock.
func (s *service) commit(o *op, entry models.ActivityEntry) {
	o.cs.Activity = append(o.cs.Activity, entry)
	s.activity.Append(entry)
	s.journal.Record(o.cs)
}

// dispatch delivers notices gathered by an accepted mutation. It runs after
// the title lock is released and never fails the operation.
func (s *service) dispatch(ctx context.Context, o *op) {
	for _, notice := range o.holds {
		if err := s.notifier.HoldReady(ctx, notice); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"copy_id": notice.CopyID.String(),
				"user_id": notice.UserID.String(),
				"error":   err.Error(),
			}), "hold notice not delivered")
		}
	}
}

// finish records metrics and the accept/reject log line for a mutation.
func (s *service) finish(ctx context.Context, action enums.Action, started time.Time, fields map[string]any, err error) {
	s.metrics.ObserveTransition(action.String(), err == nil, time.Since(started))
	ctx = s.logg.WithFields(ctx, fields)
	ctx = s.logg.WithField(ctx, "action", action.String())
	if err != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"error_code": string(pkgerrors.CodeOf(err)),
			"error":      err.Error(),
		})
		s.logg.Warn(ctx, "circulation request rejected")
		return
	}
	s.logg.Info(ctx, "circulation request accepted")
}

func (s *service) authorize(actorID uuid.UUID, action enums.Action) (models.User, error) {
	actor, err := s.dir.Resolve(actorID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return models.User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown actor").
				WithDetails(map[string]any{"actor_id": actorID.String()})
		}
		return models.User{}, err
	}
	if err := access.Authorize(actor.Role, action); err != nil {
		return models.User{}, err
	}
	return actor, nil
}

// release moves a copy leaving checked_out, reserved or maintenance to the
// head of the title's queue, or back on the shelf when nobody is waiting.
func (s *service) release(o *op, c models.Copy, at time.Time) (models.Copy, error) {
	hold, ok := s.reservations.PromoteHead(c.TitleID, c.ID)
	if !ok {
		return s.ledger.ApplyTransition(c, inventory.Transition{Status: enums.CopyStatusAvailable}, at)
	}
	holder := hold.UserID
	next, err := s.ledger.ApplyTransition(c, inventory.Transition{
		Status:   enums.CopyStatusReserved,
		HolderID: &holder,
	}, at)
	if err != nil {
		s.reservations.Requeue(c.TitleID, holder)
		return models.Copy{}, err
	}
	o.cs.Reservations = append(o.cs.Reservations, hold)
	o.holds = append(o.holds, notify.HoldReadyNotice{
		TitleID:  c.TitleID,
		CopyID:   c.ID,
		UserID:   holder,
		BranchID: c.BranchID,
		HeldAt:   at,
	})
	return next, nil
}

// lockCopy resolves a copy's title, takes the title lock and returns the copy
// as committed once the lock is held.
func (s *service) lockCopy(copyID uuid.UUID) (models.Copy, func(), error) {
	c, err := s.ledger.GetCopy(copyID)
	if err != nil {
		return models.Copy{}, nil, err
	}
	unlock := s.locks.lock(c.TitleID)
	c, err = s.ledger.GetCopy(copyID)
	if err != nil {
		unlock()
		return models.Copy{}, nil, err
	}
	return c, unlock, nil
}

func newActivity(kind enums.ActivityType, actor models.User, resourceID, branchID uuid.UUID, at time.Time, description string) models.ActivityEntry {
	return models.ActivityEntry{
		ID:          uuid.New(),
		Type:        kind,
		ActorID:     actor.ID,
		ResourceID:  resourceID,
		BranchID:    branchID,
		Description: description,
		OccurredAt:  at,
	}
}
