package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
)

// User is a staff member or teacher known to the circulation engine.
type User struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	Email     string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Role      enums.Role `gorm:"column:role;type:text;not null"`
	BranchID  uuid.UUID  `gorm:"column:branch_id;type:uuid;not null;index"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
