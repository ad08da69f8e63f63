package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
)

// CheckoutRecord is one loan of a copy. It is immutable once ReturnedAt is set.
type CheckoutRecord struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CopyID       uuid.UUID  `gorm:"column:copy_id;type:uuid;not null;index"`
	TitleID      uuid.UUID  `gorm:"column:title_id;type:uuid;not null"`
	BorrowerID   uuid.UUID  `gorm:"column:borrower_id;type:uuid;not null;index"`
	BranchID     uuid.UUID  `gorm:"column:branch_id;type:uuid;not null"`
	CheckedOutAt time.Time  `gorm:"column:checked_out_at;not null"`
	DueAt        time.Time  `gorm:"column:due_at;not null;index"`
	ReturnedAt   *time.Time `gorm:"column:returned_at"`
}

// IsOpen reports whether the loan has not been returned.
func (r CheckoutRecord) IsOpen() bool {
	return r.ReturnedAt == nil
}

// StatusAt derives the loan status at the given instant.
func (r CheckoutRecord) StatusAt(now time.Time) enums.LoanStatus {
	switch {
	case r.ReturnedAt != nil:
		return enums.LoanStatusReturned
	case now.After(r.DueAt):
		return enums.LoanStatusOverdue
	default:
		return enums.LoanStatusActive
	}
}
