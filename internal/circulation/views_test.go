package circulation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

func TestBorrowerView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, copies := f.addTitle(t, 2)
	waitlisted, _ := f.addTitle(t, 0)

	_, err := f.svc.Checkout(ctx, copies[0].ID, f.alice.ID, f.staff.ID)
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, copies[1].ID, f.bob.ID, f.staff.ID)
	require.NoError(t, err)
	_, err = f.svc.Reserve(ctx, waitlisted.ID, f.alice.ID, f.alice.ID)
	require.NoError(t, err)

	f.clock.Advance(15 * 24 * time.Hour)
	view, err := f.svc.Borrower(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, view.User.ID)
	require.Len(t, view.OpenLoans, 1)
	assert.Equal(t, copies[0].ID, view.OpenLoans[0].CopyID)
	assert.True(t, view.OpenLoans[0].Overdue)
	assert.Equal(t, 1, view.ActiveReservations)

	idle, err := f.svc.Borrower(ctx, f.carol.ID)
	require.NoError(t, err)
	assert.Empty(t, idle.OpenLoans)
	assert.Zero(t, idle.ActiveReservations)

	_, err = f.svc.Borrower(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestGetLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, copies := f.addTitle(t, 1)

	loan, err := f.svc.Checkout(ctx, copies[0].ID, f.alice.ID, f.staff.ID)
	require.NoError(t, err)

	got, err := f.svc.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, got.LoanID)
	assert.False(t, got.Overdue)

	_, err = f.svc.Return(ctx, copies[0].ID, f.staff.ID)
	require.NoError(t, err)
	_, err = f.svc.GetLoan(ctx, loan.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "returned loans leave the book")
}

func TestListOverdueSkipsLoansStillDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, copies := f.addTitle(t, 2)

	_, err := f.svc.Checkout(ctx, copies[0].ID, f.alice.ID, f.staff.ID)
	require.NoError(t, err)
	f.clock.Advance(10 * 24 * time.Hour)
	_, err = f.svc.Checkout(ctx, copies[1].ID, f.bob.ID, f.staff.ID)
	require.NoError(t, err)
	f.clock.Advance(5 * 24 * time.Hour)

	overdue := f.svc.ListOverdue(ctx, f.branch.ID)
	require.Len(t, overdue, 1)
	assert.Equal(t, f.alice.ID, overdue[0].BorrowerID)
	assert.Empty(t, f.svc.ListOverdue(ctx, uuid.New()))
}
