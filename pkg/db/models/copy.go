package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
)

// Copy is one lendable physical unit of a Title.
// HolderID is set only while reserved; LoanID only while checked out.
type Copy struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TitleID       uuid.UUID           `gorm:"column:title_id;type:uuid;not null;index"`
	BranchID      uuid.UUID           `gorm:"column:branch_id;type:uuid;not null;index"`
	Shelf         int                 `gorm:"column:shelf_order;not null"`
	Condition     enums.CopyCondition `gorm:"column:condition;type:text;not null"`
	ShelfLocation string              `gorm:"column:shelf_location;not null"`
	Status        enums.CopyStatus    `gorm:"column:status;type:text;not null"`
	Version       int64               `gorm:"column:version;not null"`
	HolderID      *uuid.UUID          `gorm:"column:holder_id;type:uuid"`
	LoanID        *uuid.UUID          `gorm:"column:loan_id;type:uuid"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// HeldFor reports whether the copy is reserved for the given user.
func (c Copy) HeldFor(userID uuid.UUID) bool {
	return c.Status == enums.CopyStatusReserved && c.HolderID != nil && *c.HolderID == userID
}
