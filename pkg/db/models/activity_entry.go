package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
)

// ActivityEntry is an append-only audit row for an accepted mutation.
type ActivityEntry struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Type        enums.ActivityType `gorm:"column:type;type:text;not null"`
	ActorID     uuid.UUID          `gorm:"column:actor_id;type:uuid;not null"`
	ResourceID  uuid.UUID          `gorm:"column:resource_id;type:uuid;not null"`
	BranchID    uuid.UUID          `gorm:"column:branch_id;type:uuid;not null;index"`
	Description string             `gorm:"column:description;not null"`
	OccurredAt  time.Time          `gorm:"column:occurred_at;not null;index"`
}
