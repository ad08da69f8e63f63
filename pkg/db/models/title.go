package models

import (
	"time"

	"github.com/google/uuid"
)

// Title is a catalog entry, independent of the physical copies that carry it.
type Title struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BranchID         uuid.UUID `gorm:"column:branch_id;type:uuid;not null;index"`
	Title            string    `gorm:"column:title;not null"`
	Author           string    `gorm:"column:author;not null"`
	ISBN             string    `gorm:"column:isbn;not null"`
	Publisher        string    `gorm:"column:publisher;not null"`
	PublicationYear  int       `gorm:"column:publication_year;not null"`
	Category         string    `gorm:"column:category;not null"`
	Description      string    `gorm:"column:description;not null"`
	LocationTemplate string    `gorm:"column:location_template;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
