package loans

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.CheckoutRecord{}))
	return conn
}

func TestRepositoryOpenAndOverdue(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	branch := uuid.New()

	overdue := openLoan(uuid.New(), branch, t0.Add(-72*time.Hour))
	current := openLoan(uuid.New(), branch, t0.Add(72*time.Hour))
	otherBranch := openLoan(uuid.New(), uuid.New(), t0.Add(-24*time.Hour))
	returnedLate := openLoan(uuid.New(), branch, t0.Add(-96*time.Hour))
	require.NoError(t, repo.Upsert(ctx, []models.CheckoutRecord{overdue, current, otherBranch, returnedLate}))

	returnedAt := t0.Add(-time.Hour)
	returnedLate.ReturnedAt = &returnedAt
	require.NoError(t, repo.Upsert(ctx, []models.CheckoutRecord{returnedLate}))

	open, err := repo.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 3)

	got, err := repo.ListOverdue(ctx, branch, t0, Cursor{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)

	all, err := repo.ListOverdue(ctx, uuid.Nil, t0, Cursor{}, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, overdue.ID, all[0].ID)
	assert.Equal(t, otherBranch.ID, all[1].ID)
}

func TestRepositoryOverduePagesByCursor(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	branch := uuid.New()

	due := t0.Add(-48 * time.Hour)
	var records []models.CheckoutRecord
	for i := 0; i < 3; i++ {
		records = append(records, openLoan(uuid.New(), branch, due))
	}
	records = append(records, openLoan(uuid.New(), branch, t0.Add(-24*time.Hour)))
	records = append(records, openLoan(uuid.New(), branch, t0.Add(24*time.Hour)))
	require.NoError(t, repo.Upsert(ctx, records))

	count, err := repo.CountOverdue(ctx, branch, t0)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	seen := map[uuid.UUID]bool{}
	var cursor Cursor
	pages := 0
	for {
		page, err := repo.ListOverdue(ctx, branch, t0, cursor, 2)
		require.NoError(t, err)
		pages++
		for _, rec := range page {
			assert.False(t, seen[rec.ID], "loan %s returned twice", rec.ID)
			seen[rec.ID] = true
		}
		if len(page) < 2 {
			break
		}
		cursor = After(page[len(page)-1])
	}
	assert.Len(t, seen, 4, "loans sharing a due date are not skipped")
	assert.Equal(t, 3, pages)

	none, err := repo.CountOverdue(ctx, uuid.New(), t0)
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestRepositoryListByBorrower(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	borrower := uuid.New()

	first := openLoan(uuid.New(), uuid.New(), t0)
	first.BorrowerID = borrower
	second := openLoan(uuid.New(), uuid.New(), t0.Add(24*time.Hour))
	second.BorrowerID = borrower
	require.NoError(t, repo.Upsert(ctx, []models.CheckoutRecord{first, second, openLoan(uuid.New(), uuid.New(), t0)}))

	got, err := repo.ListByBorrower(ctx, borrower, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
}
