package reservations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

// Repository persists reservation rows. Fulfilled and cancelled entries are deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, entries []models.Reservation) error
	Delete(ctx context.Context, ids []uuid.UUID) error
	List(ctx context.Context) ([]models.Reservation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservations repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, entries []models.Reservation) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"copy_id", "requested_at", "seq"}),
		}).
		Create(&entries).Error
}

func (r *repository) Delete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Reservation{}).Error
}

func (r *repository) List(ctx context.Context) ([]models.Reservation, error) {
	var entries []models.Reservation
	if err := r.db.WithContext(ctx).
		Order("requested_at ASC").
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
