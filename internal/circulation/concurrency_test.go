package circulation

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

func TestConcurrentCheckoutsOfLastCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		title, copies := f.addTitle(t, 1)
		before := f.activityCount()

		var (
			wg        sync.WaitGroup
			successes int32
			start     = make(chan struct{})
			errs      = make([]error, 2)
		)
		for i, borrower := range []models.User{f.alice, f.bob} {
			wg.Add(1)
			go func(i int, borrower models.User) {
				defer wg.Done()
				<-start
				if _, err := f.svc.Checkout(ctx, copies[0].ID, borrower.ID, f.staff.ID); err != nil {
					errs[i] = err
					return
				}
				atomic.AddInt32(&successes, 1)
			}(i, borrower)
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), successes, "round %d", round)
		for _, err := range errs {
			if err == nil {
				continue
			}
			code := pkgerrors.CodeOf(err)
			assert.True(t, code == pkgerrors.CodeNotAvailable || code == pkgerrors.CodeConflict, "unexpected %v", err)
		}
		assert.Equal(t, before+1, f.activityCount())
		f.assertConsistent(t, title.ID)
	}
}

func TestConcurrentMixedTrafficKeepsInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	titles := make([]models.Title, 3)
	copiesByTitle := make(map[uuid.UUID][]models.Copy)
	for i := range titles {
		title, copies := f.addTitle(t, 2)
		titles[i] = title
		copiesByTitle[title.ID] = copies
	}
	users := []models.User{f.alice, f.bob, f.carol, f.teacher}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				title := titles[rng.Intn(len(titles))]
				copies := copiesByTitle[title.ID]
				c := copies[rng.Intn(len(copies))]
				user := users[rng.Intn(len(users))]
				switch rng.Intn(6) {
				case 0:
					_, _ = f.svc.Checkout(ctx, c.ID, user.ID, f.staff.ID)
				case 1:
					_, _ = f.svc.Return(ctx, c.ID, f.staff.ID)
				case 2:
					_, _ = f.svc.Reserve(ctx, title.ID, user.ID, user.ID)
				case 3:
					_ = f.svc.CancelReservation(ctx, title.ID, user.ID, user.ID)
				case 4:
					_, _ = f.svc.MarkMaintenance(ctx, c.ID, f.staff.ID)
				case 5:
					_, _ = f.svc.ClearMaintenance(ctx, c.ID, f.staff.ID)
				}
				_ = f.svc.ListOverdue(ctx, f.branch.ID)
				_, _ = f.svc.ListCopies(ctx, title.ID)
			}
		}(int64(w))
	}
	wg.Wait()

	checkedOut := 0
	for _, title := range titles {
		f.assertConsistent(t, title.ID)
		counts, err := f.ledger.Counts(title.ID)
		require.NoError(t, err)
		checkedOut += counts.CheckedOut

		copies, err := f.ledger.CopiesByTitle(title.ID)
		require.NoError(t, err)
		free := 0
		for _, c := range copies {
			if c.Status == enums.CopyStatusAvailable {
				free++
			}
		}
		if free > 0 {
			assert.Zero(t, f.reservations.WaitingLen(title.ID), "nobody waits while a copy is free")
		}
	}
	assert.Equal(t, checkedOut, f.loans.Len())
}
