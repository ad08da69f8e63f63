package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AarushDarne/shelftrack-webapp/internal/circulation"
	"github.com/AarushDarne/shelftrack-webapp/internal/inventory"
	"github.com/AarushDarne/shelftrack-webapp/internal/overdue"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
)

type titleResponse struct {
	ID               uuid.UUID              `json:"id"`
	BranchID         uuid.UUID              `json:"branch_id"`
	Title            string                 `json:"title"`
	Author           string                 `json:"author"`
	ISBN             string                 `json:"isbn,omitempty"`
	Publisher        string                 `json:"publisher,omitempty"`
	PublicationYear  int                    `json:"publication_year,omitempty"`
	Category         string                 `json:"category,omitempty"`
	Description      string                 `json:"description,omitempty"`
	LocationTemplate string                 `json:"location_template,omitempty"`
	Copies           inventory.StatusCounts `json:"copies"`
	Waiting          int                    `json:"waiting"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

func titleResponseFromView(v circulation.TitleView) titleResponse {
	out := titleResponseFromModel(v.Title)
	out.Copies = v.Counts
	out.Waiting = v.Waiting
	return out
}

func titleResponseFromModel(t models.Title) titleResponse {
	return titleResponse{
		ID:               t.ID,
		BranchID:         t.BranchID,
		Title:            t.Title,
		Author:           t.Author,
		ISBN:             t.ISBN,
		Publisher:        t.Publisher,
		PublicationYear:  t.PublicationYear,
		Category:         t.Category,
		Description:      t.Description,
		LocationTemplate: t.LocationTemplate,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

type copyResponse struct {
	ID            uuid.UUID           `json:"id"`
	TitleID       uuid.UUID           `json:"title_id"`
	BranchID      uuid.UUID           `json:"branch_id"`
	Condition     enums.CopyCondition `json:"condition"`
	ShelfLocation string              `json:"shelf_location"`
	Status        enums.CopyStatus    `json:"status"`
	Version       int64               `json:"version"`
	HolderID      *uuid.UUID          `json:"holder_id,omitempty"`
	LoanID        *uuid.UUID          `json:"loan_id,omitempty"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func copyResponseFromModel(c models.Copy) copyResponse {
	return copyResponse{
		ID:            c.ID,
		TitleID:       c.TitleID,
		BranchID:      c.BranchID,
		Condition:     c.Condition,
		ShelfLocation: c.ShelfLocation,
		Status:        c.Status,
		Version:       c.Version,
		HolderID:      c.HolderID,
		LoanID:        c.LoanID,
		UpdatedAt:     c.UpdatedAt,
	}
}

type loanResponse struct {
	ID           uuid.UUID  `json:"id"`
	CopyID       uuid.UUID  `json:"copy_id"`
	TitleID      uuid.UUID  `json:"title_id"`
	BorrowerID   uuid.UUID  `json:"borrower_id"`
	BranchID     uuid.UUID  `json:"branch_id"`
	CheckedOutAt time.Time  `json:"checked_out_at"`
	DueAt        time.Time  `json:"due_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
}

func loanResponseFromModel(l models.CheckoutRecord) loanResponse {
	return loanResponse{
		ID:           l.ID,
		CopyID:       l.CopyID,
		TitleID:      l.TitleID,
		BorrowerID:   l.BorrowerID,
		BranchID:     l.BranchID,
		CheckedOutAt: l.CheckedOutAt,
		DueAt:        l.DueAt,
		ReturnedAt:   l.ReturnedAt,
	}
}

type reservationResponse struct {
	ID          uuid.UUID  `json:"id"`
	TitleID     uuid.UUID  `json:"title_id"`
	UserID      uuid.UUID  `json:"user_id"`
	RequestedAt time.Time  `json:"requested_at"`
	Position    int        `json:"position"`
	CopyID      *uuid.UUID `json:"copy_id,omitempty"`
}

// reservationResponses numbers waiting entries from 1 in queue order;
// holds carry position 0.
func reservationResponses(entries []models.Reservation) []reservationResponse {
	out := make([]reservationResponse, 0, len(entries))
	position := 0
	for _, e := range entries {
		r := reservationResponse{
			ID:          e.ID,
			TitleID:     e.TitleID,
			UserID:      e.UserID,
			RequestedAt: e.RequestedAt,
			CopyID:      e.CopyID,
		}
		if !e.IsHolding() {
			position++
			r.Position = position
		}
		out = append(out, r)
	}
	return out
}

type reserveResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Held        bool                `json:"held"`
	Copy        *copyResponse       `json:"copy,omitempty"`
}

type overdueResponse struct {
	LoanID      uuid.UUID       `json:"loan_id"`
	CopyID      uuid.UUID       `json:"copy_id"`
	BorrowerID  uuid.UUID       `json:"borrower_id"`
	DueAt       time.Time       `json:"due_at"`
	Overdue     bool            `json:"overdue"`
	DaysOverdue int             `json:"days_overdue"`
	Fine        decimal.Decimal `json:"fine"`
}

func overdueResponseFromAssessment(a overdue.Assessment) overdueResponse {
	return overdueResponse(a)
}

type borrowerResponse struct {
	User               userResponse      `json:"user"`
	OpenLoans          []overdueResponse `json:"open_loans"`
	ActiveReservations int               `json:"active_reservations"`
}

func borrowerResponseFromView(v circulation.BorrowerView) borrowerResponse {
	return borrowerResponse{
		User:               userResponseFromModel(v.User),
		OpenLoans:          mapSlice(v.OpenLoans, overdueResponseFromAssessment),
		ActiveReservations: v.ActiveReservations,
	}
}

type activityResponse struct {
	ID          uuid.UUID          `json:"id"`
	Type        enums.ActivityType `json:"type"`
	ActorID     uuid.UUID          `json:"actor_id"`
	ResourceID  uuid.UUID          `json:"resource_id"`
	BranchID    uuid.UUID          `json:"branch_id"`
	Description string             `json:"description"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func activityResponses(entries []models.ActivityEntry) []activityResponse {
	out := make([]activityResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityResponse{
			ID:          e.ID,
			Type:        e.Type,
			ActorID:     e.ActorID,
			ResourceID:  e.ResourceID,
			BranchID:    e.BranchID,
			Description: e.Description,
			OccurredAt:  e.OccurredAt,
		})
	}
	return out
}

type dashboardResponse struct {
	BranchID         uuid.UUID                 `json:"branch_id"`
	GeneratedAt      time.Time                 `json:"generated_at"`
	TotalTitles      int                       `json:"total_titles"`
	Copies           inventory.StatusCounts    `json:"copies"`
	OverdueLoans     int                       `json:"overdue_loans"`
	OutstandingFines decimal.Decimal           `json:"outstanding_fines"`
	TotalUsers       int                       `json:"total_users"`
	TopCategories    []inventory.CategoryCount `json:"top_categories"`
	RecentActivity   []activityResponse        `json:"recent_activity"`
}

func dashboardResponseFromStats(s circulation.DashboardStats) dashboardResponse {
	categories := s.TopCategories
	if categories == nil {
		categories = []inventory.CategoryCount{}
	}
	return dashboardResponse{
		BranchID:         s.BranchID,
		GeneratedAt:      s.GeneratedAt,
		TotalTitles:      s.TotalTitles,
		Copies:           s.Copies,
		OverdueLoans:     s.OverdueLoans,
		OutstandingFines: s.OutstandingFines,
		TotalUsers:       s.TotalUsers,
		TopCategories:    categories,
		RecentActivity:   activityResponses(s.RecentActivity),
	}
}

type userResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      enums.Role `json:"role"`
	BranchID  uuid.UUID  `json:"branch_id"`
	CreatedAt time.Time  `json:"created_at"`
}

func userResponseFromModel(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		BranchID:  u.BranchID,
		CreatedAt: u.CreatedAt,
	}
}

type branchResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address,omitempty"`
	City    string    `json:"city,omitempty"`
	State   string    `json:"state,omitempty"`
	Zip     string    `json:"zip,omitempty"`
	Phone   *string   `json:"phone,omitempty"`
	Email   *string   `json:"email,omitempty"`
}

func branchResponseFromModel(b models.Branch) branchResponse {
	return branchResponse{
		ID:      b.ID,
		Name:    b.Name,
		Address: b.Address,
		City:    b.City,
		State:   b.State,
		Zip:     b.Zip,
		Phone:   b.Phone,
		Email:   b.Email,
	}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
