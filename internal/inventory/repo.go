package inventory

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

// Repository persists titles and copies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertTitles(ctx context.Context, titles []models.Title) error
	UpsertCopies(ctx context.Context, copies []models.Copy) error
	ListTitles(ctx context.Context) ([]models.Title, error)
	ListCopies(ctx context.Context) ([]models.Copy, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) UpsertTitles(ctx context.Context, titles []models.Title) error {
	if len(titles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&titles).Error
}

// UpsertCopies writes the final state of each copy. Rows arrive from the
// engine in commit order, so a later version always overwrites an earlier one.
func (r *repository) UpsertCopies(ctx context.Context, copies []models.Copy) error {
	if len(copies) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&copies).Error
}

func (r *repository) ListTitles(ctx context.Context) ([]models.Title, error) {
	var titles []models.Title
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&titles).Error; err != nil {
		return nil, err
	}
	return titles, nil
}

func (r *repository) ListCopies(ctx context.Context) ([]models.Copy, error) {
	var copies []models.Copy
	if err := r.db.WithContext(ctx).
		Order("title_id ASC").
		Order("shelf_order ASC").
		Find(&copies).Error; err != nil {
		return nil, err
	}
	return copies, nil
}
