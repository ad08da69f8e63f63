package circulation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AarushDarne/shelftrack-webapp/internal/inventory"
	"github.com/AarushDarne/shelftrack-webapp/internal/overdue"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
)

// AddTitleInput catalogues a title and optionally its first copies.
// BranchID defaults to the actor's branch.
type AddTitleInput struct {
	BranchID         uuid.UUID           `json:"branch_id"`
	Title            string              `json:"title" validate:"required,max=255"`
	Author           string              `json:"author" validate:"required,max=255"`
	ISBN             string              `json:"isbn" validate:"omitempty,max=32"`
	Publisher        string              `json:"publisher" validate:"omitempty,max=255"`
	PublicationYear  int                 `json:"publication_year" validate:"omitempty,gte=0,lte=9999"`
	Category         string              `json:"category" validate:"omitempty,max=100"`
	Description      string              `json:"description" validate:"omitempty,max=4000"`
	LocationTemplate string              `json:"location_template" validate:"omitempty,max=100"`
	Copies           int                 `json:"copies" validate:"gte=0,lte=500"`
	Condition        enums.CopyCondition `json:"condition" validate:"omitempty,oneof=new good fair poor"`
}

// UpdateTitleInput edits catalog fields; nil fields are left unchanged.
type UpdateTitleInput struct {
	Title            *string `json:"title" validate:"omitempty,min=1,max=255"`
	Author           *string `json:"author" validate:"omitempty,min=1,max=255"`
	ISBN             *string `json:"isbn" validate:"omitempty,max=32"`
	Publisher        *string `json:"publisher" validate:"omitempty,max=255"`
	PublicationYear  *int    `json:"publication_year" validate:"omitempty,gte=0,lte=9999"`
	Category         *string `json:"category" validate:"omitempty,max=100"`
	Description      *string `json:"description" validate:"omitempty,max=4000"`
	LocationTemplate *string `json:"location_template" validate:"omitempty,max=100"`
}

// AddCopyInput registers one more copy of a title.
type AddCopyInput struct {
	Condition     enums.CopyCondition `json:"condition" validate:"omitempty,oneof=new good fair poor"`
	ShelfLocation string              `json:"shelf_location" validate:"omitempty,max=100"`
}

// TitleView is a title with its copy tallies and queue length.
type TitleView struct {
	Title   models.Title
	Counts  inventory.StatusCounts
	Waiting int
}

// DashboardStats is the read-only summary shown on a branch dashboard.
type DashboardStats struct {
	BranchID         uuid.UUID
	GeneratedAt      time.Time
	TotalTitles      int
	Copies           inventory.StatusCounts
	OverdueLoans     int
	OutstandingFines decimal.Decimal
	TotalUsers       int
	TopCategories    []inventory.CategoryCount
	RecentActivity   []models.ActivityEntry
}

// Snapshot is the persisted engine state used to hydrate memory at startup.
type Snapshot struct {
	Titles       []models.Title
	Copies       []models.Copy
	Loans        []models.CheckoutRecord
	Reservations []models.Reservation
	Activity     []models.ActivityEntry
}

// BorrowerView is a user's current standing: open loans with their fines
// and the number of reservations they hold or wait on.
type BorrowerView struct {
	User               models.User
	OpenLoans          []overdue.Assessment
	ActiveReservations int
}
