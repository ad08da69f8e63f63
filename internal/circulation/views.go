package circulation

import (
	"context"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/internal/overdue"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

const (
	dashboardCategories = 5
	dashboardActivity   = 10
	maxActivityLimit    = 200
)

func (s *service) ListTitles(_ context.Context, branchID uuid.UUID) []TitleView {
	titles := s.ledger.Titles(branchID)
	out := make([]TitleView, 0, len(titles))
	for _, t := range titles {
		counts, err := s.ledger.Counts(t.ID)
		if err != nil {
			continue
		}
		out = append(out, TitleView{Title: t, Counts: counts, Waiting: s.reservations.WaitingLen(t.ID)})
	}
	return out
}

func (s *service) GetTitle(_ context.Context, titleID uuid.UUID) (TitleView, error) {
	title, err := s.ledger.GetTitle(titleID)
	if err != nil {
		return TitleView{}, err
	}
	counts, err := s.ledger.Counts(titleID)
	if err != nil {
		return TitleView{}, err
	}
	return TitleView{Title: title, Counts: counts, Waiting: s.reservations.WaitingLen(titleID)}, nil
}

func (s *service) ListCopies(_ context.Context, titleID uuid.UUID) ([]models.Copy, error) {
	return s.ledger.CopiesByTitle(titleID)
}

// ListReservations returns holds followed by the waiting queue in order.
func (s *service) ListReservations(_ context.Context, titleID uuid.UUID) ([]models.Reservation, error) {
	if _, err := s.ledger.GetTitle(titleID); err != nil {
		return nil, err
	}
	return s.reservations.Snapshot(titleID), nil
}

func (s *service) GetOverdue(_ context.Context, copyID uuid.UUID) (overdue.Assessment, error) {
	if _, err := s.ledger.GetCopy(copyID); err != nil {
		return overdue.Assessment{}, err
	}
	loan, ok := s.loans.Open(copyID)
	if !ok {
		return overdue.Assessment{}, pkgerrors.New(pkgerrors.CodeNotCheckedOut, "copy is not checked out").
			WithDetails(map[string]any{"copy_id": copyID.String()})
	}
	return s.calc.Assess(loan), nil
}

// ListOverdue returns every overdue open loan of a branch, earliest due first.
func (s *service) ListOverdue(_ context.Context, branchID uuid.UUID) []overdue.Assessment {
	return s.calc.AssessAll(s.loans.ListOverdue(branchID, s.now()))
}

func (s *service) GetLoan(_ context.Context, loanID uuid.UUID) (overdue.Assessment, error) {
	loan, ok := s.loans.Get(loanID)
	if !ok {
		return overdue.Assessment{}, pkgerrors.New(pkgerrors.CodeNotFound, "loan is not open").
			WithDetails(map[string]any{"loan_id": loanID.String()})
	}
	return s.calc.Assess(loan), nil
}

func (s *service) Borrower(_ context.Context, userID uuid.UUID) (BorrowerView, error) {
	user, err := s.dir.Resolve(userID)
	if err != nil {
		return BorrowerView{}, err
	}
	view := BorrowerView{
		User:               user,
		OpenLoans:          []overdue.Assessment{},
		ActiveReservations: s.reservations.CountForUser(userID),
	}
	for _, loan := range s.loans.ListOpen(uuid.Nil) {
		if loan.BorrowerID == userID {
			view.OpenLoans = append(view.OpenLoans, s.calc.Assess(loan))
		}
	}
	return view, nil
}

func (s *service) RecentActivity(ctx context.Context, branchID uuid.UUID, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		return []models.ActivityEntry{}, nil
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	return s.activity.QueryRecent(ctx, branchID, limit)
}

// Dashboard projects ledger, loans and activity into branch totals.
// uuid.Nil summarises every branch.
func (s *service) Dashboard(ctx context.Context, branchID uuid.UUID) (DashboardStats, error) {
	overdueLoans := s.ListOverdue(ctx, branchID)
	recent, err := s.RecentActivity(ctx, branchID, dashboardActivity)
	if err != nil {
		return DashboardStats{}, err
	}
	return DashboardStats{
		BranchID:         branchID,
		GeneratedAt:      s.now(),
		TotalTitles:      len(s.ledger.Titles(branchID)),
		Copies:           s.ledger.Summary(branchID),
		OverdueLoans:     len(overdueLoans),
		OutstandingFines: overdue.TotalFines(overdueLoans),
		TotalUsers:       s.dir.CountUsers(branchID),
		TopCategories:    s.ledger.TopCategories(branchID, dashboardCategories),
		RecentActivity:   recent,
	}, nil
}
