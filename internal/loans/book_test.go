package loans

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

var t0 = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func openLoan(copyID, branchID uuid.UUID, due time.Time) models.CheckoutRecord {
	return models.CheckoutRecord{
		ID:           uuid.New(),
		CopyID:       copyID,
		TitleID:      uuid.New(),
		BorrowerID:   uuid.New(),
		BranchID:     branchID,
		CheckedOutAt: due.Add(-14 * 24 * time.Hour),
		DueAt:        due,
	}
}

func TestBookRejectsSecondOpenLoanOnCopy(t *testing.T) {
	book := NewBook()
	copyID := uuid.New()

	require.NoError(t, book.Add(openLoan(copyID, uuid.New(), t0)))
	err := book.Add(openLoan(copyID, uuid.New(), t0))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 1, book.Len())
}

func TestBookCloseRemovesLoan(t *testing.T) {
	book := NewBook()
	rec := openLoan(uuid.New(), uuid.New(), t0)
	require.NoError(t, book.Add(rec))

	got, ok := book.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec.CopyID, got.CopyID)

	closed, err := book.Close(rec.ID, t0.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, closed.ReturnedAt)
	assert.False(t, closed.IsOpen())

	_, ok = book.Open(rec.CopyID)
	assert.False(t, ok)

	_, err = book.Close(rec.ID, t0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotCheckedOut))

	require.NoError(t, book.Add(openLoan(rec.CopyID, rec.BranchID, t0)), "copy can be lent again once returned")
}

func TestBookListsOpenAndOverdueByDue(t *testing.T) {
	book := NewBook()
	branch := uuid.New()
	late := openLoan(uuid.New(), branch, t0.Add(-72*time.Hour))
	later := openLoan(uuid.New(), branch, t0.Add(-time.Hour))
	current := openLoan(uuid.New(), branch, t0.Add(48*time.Hour))
	elsewhere := openLoan(uuid.New(), uuid.New(), t0.Add(-24*time.Hour))
	for _, rec := range []models.CheckoutRecord{current, later, elsewhere, late} {
		require.NoError(t, book.Add(rec))
	}

	open := book.ListOpen(branch)
	require.Len(t, open, 3)
	assert.Equal(t, []uuid.UUID{late.ID, later.ID, current.ID}, []uuid.UUID{open[0].ID, open[1].ID, open[2].ID})

	overdue := book.ListOverdue(branch, t0)
	require.Len(t, overdue, 2)
	assert.Equal(t, late.ID, overdue[0].ID)

	assert.Len(t, book.ListOverdue(uuid.Nil, t0), 3)
}

func TestBookLoadSkipsClosedAndRejectsDuplicates(t *testing.T) {
	book := NewBook()
	copyID := uuid.New()
	closed := openLoan(copyID, uuid.New(), t0)
	returned := t0
	closed.ReturnedAt = &returned

	require.NoError(t, book.Load([]models.CheckoutRecord{closed, openLoan(copyID, uuid.New(), t0)}))
	assert.Equal(t, 1, book.Len())

	err := book.Load([]models.CheckoutRecord{openLoan(copyID, uuid.New(), t0), openLoan(copyID, uuid.New(), t0)})
	assert.Error(t, err)
}
