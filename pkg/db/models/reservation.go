package models

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is a queued or fulfilled-to-hold claim on a title.
// CopyID is set once a copy has been assigned to the entry.
type Reservation struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TitleID     uuid.UUID  `gorm:"column:title_id;type:uuid;not null;uniqueIndex:ux_reservations_title_user"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_reservations_title_user"`
	RequestedAt time.Time  `gorm:"column:requested_at;not null"`
	Seq         int64      `gorm:"column:seq;not null"`
	CopyID      *uuid.UUID `gorm:"column:copy_id;type:uuid"`
}

// IsHolding reports whether a copy has been assigned to the entry.
func (r Reservation) IsHolding() bool {
	return r.CopyID != nil
}
