package loans

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

var loanColumns = []string{
	"id", "copy_id", "title_id", "borrower_id", "branch_id", "checked_out_at", "due_at", "returned_at",
}

// Repository persists checkout records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, records []models.CheckoutRecord) error
	ListOpen(ctx context.Context) ([]models.CheckoutRecord, error)
	ListOverdue(ctx context.Context, branchID uuid.UUID, now time.Time, after Cursor, limit int) ([]models.CheckoutRecord, error)
	CountOverdue(ctx context.Context, branchID uuid.UUID, now time.Time) (int, error)
	ListByBorrower(ctx context.Context, borrowerID uuid.UUID, limit int) ([]models.CheckoutRecord, error)
}

// Cursor is a keyset position in the (due_at, id) order. The zero value
// starts from the beginning.
type Cursor struct {
	DueAt time.Time
	ID    uuid.UUID
}

// After returns the cursor positioned at rec.
func After(rec models.CheckoutRecord) Cursor {
	return Cursor{DueAt: rec.DueAt, ID: rec.ID}
}

func (c Cursor) IsZero() bool {
	return c.DueAt.IsZero() && c.ID == uuid.Nil
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a loans repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert writes loans in commit order; the latest row for an id wins.
func (r *repository) Upsert(ctx context.Context, records []models.CheckoutRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"due_at", "returned_at"}),
		}).
		Create(&records).Error
}

func (r *repository) ListOpen(ctx context.Context) ([]models.CheckoutRecord, error) {
	var records []models.CheckoutRecord
	if err := r.db.WithContext(ctx).
		Where("returned_at IS NULL").
		Order("due_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListOverdue returns open loans due before now in (due_at, id) order,
// starting strictly after the cursor. uuid.Nil covers every branch; limit
// <= 0 means no limit.
func (r *repository) ListOverdue(ctx context.Context, branchID uuid.UUID, now time.Time, after Cursor, limit int) ([]models.CheckoutRecord, error) {
	query := overdueWhere(sq.Select(loanColumns...).From("checkout_records"), branchID, now).
		OrderBy("due_at ASC", "id ASC")
	if !after.IsZero() {
		query = query.Where(sq.Or{
			sq.Gt{"due_at": after.DueAt},
			sq.And{sq.Eq{"due_at": after.DueAt}, sq.Gt{"id": after.ID}},
		})
	}
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return r.run(ctx, query)
}

func (r *repository) CountOverdue(ctx context.Context, branchID uuid.UUID, now time.Time) (int, error) {
	stmt, args, err := overdueWhere(sq.Select("COUNT(*)").From("checkout_records"), branchID, now).
		PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.db.WithContext(ctx).Raw(stmt, args...).Scan(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func overdueWhere(query sq.SelectBuilder, branchID uuid.UUID, now time.Time) sq.SelectBuilder {
	query = query.Where(sq.Eq{"returned_at": nil}).Where(sq.Lt{"due_at": now})
	if branchID != uuid.Nil {
		query = query.Where(sq.Eq{"branch_id": branchID})
	}
	return query
}

// ListByBorrower returns a borrower's loans, most recent first.
func (r *repository) ListByBorrower(ctx context.Context, borrowerID uuid.UUID, limit int) ([]models.CheckoutRecord, error) {
	query := sq.Select(loanColumns...).
		From("checkout_records").
		Where(sq.Eq{"borrower_id": borrowerID}).
		OrderBy("checked_out_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return r.run(ctx, query)
}

func (r *repository) run(ctx context.Context, query sq.SelectBuilder) ([]models.CheckoutRecord, error) {
	stmt, args, err := query.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	var records []models.CheckoutRecord
	if err := r.db.WithContext(ctx).Raw(stmt, args...).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
