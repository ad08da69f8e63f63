package activity

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

var activityColumns = []string{
	"id", "type", "actor_id", "resource_id", "branch_id", "description", "occurred_at",
}

var onConflictDoNothing = clause.OnConflict{
	Columns:   []clause.Column{{Name: "id"}},
	DoNothing: true,
}

// Repository persists and pages through activity rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, entries []models.ActivityEntry) error
	ListBefore(ctx context.Context, branchID uuid.UUID, before time.Time, limit int) ([]models.ActivityEntry, error)
	ListLatest(ctx context.Context, limit int) ([]models.ActivityEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an activity repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Insert appends entries; replays of an already stored id are ignored.
func (r *repository) Insert(ctx context.Context, entries []models.ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(onConflictDoNothing).Create(&entries).Error
}

func (r *repository) ListBefore(ctx context.Context, branchID uuid.UUID, before time.Time, limit int) ([]models.ActivityEntry, error) {
	query := sq.Select(activityColumns...).
		From("activity_entries").
		Where(sq.Lt{"occurred_at": before}).
		OrderBy("occurred_at DESC").
		Limit(uint64(limit))
	if branchID != uuid.Nil {
		query = query.Where(sq.Eq{"branch_id": branchID})
	}
	return r.run(ctx, query)
}

func (r *repository) ListLatest(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	query := sq.Select(activityColumns...).
		From("activity_entries").
		OrderBy("occurred_at DESC").
		Limit(uint64(limit))
	return r.run(ctx, query)
}

func (r *repository) run(ctx context.Context, query sq.SelectBuilder) ([]models.ActivityEntry, error) {
	stmt, args, err := query.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	var entries []models.ActivityEntry
	if err := r.db.WithContext(ctx).Raw(stmt, args...).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
