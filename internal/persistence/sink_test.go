package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AarushDarne/shelftrack-webapp/internal/activity"
	"github.com/AarushDarne/shelftrack-webapp/internal/circulation"
	"github.com/AarushDarne/shelftrack-webapp/internal/identity"
	"github.com/AarushDarne/shelftrack-webapp/internal/inventory"
	"github.com/AarushDarne/shelftrack-webapp/internal/journal"
	"github.com/AarushDarne/shelftrack-webapp/internal/loans"
	"github.com/AarushDarne/shelftrack-webapp/internal/reservations"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

type collector struct {
	mu   sync.Mutex
	sets []journal.Changeset
}

func (c *collector) Record(cs journal.Changeset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = append(c.sets, cs)
}

func (c *collector) drain() []journal.Changeset {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.sets
	c.sets = nil
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Title{},
		&models.Copy{},
		&models.CheckoutRecord{},
		&models.Reservation{},
		&models.ActivityEntry{},
	))
	return conn
}

type engine struct {
	directory *identity.Registry
	users     identity.Service
	svc       circulation.Service
}

func newEngine(t *testing.T, rec journal.Recorder, clock func() time.Time) engine {
	t.Helper()
	dir := identity.NewRegistry()
	log := activity.NewLog(50, nil)
	users, err := identity.NewService(identity.ServiceParams{
		Registry: dir,
		Activity: log,
		Journal:  rec,
		Logger:   logger.Nop(),
		Clock:    clock,
	})
	require.NoError(t, err)
	svc, err := circulation.NewService(circulation.ServiceParams{
		Directory:    dir,
		Ledger:       inventory.NewLedger(),
		Reservations: reservations.NewRegistry(0),
		Loans:        loans.NewBook(),
		Activity:     log,
		Journal:      rec,
		Logger:       logger.Nop(),
		Clock:        clock,
		FinePerDay:   decimal.RequireFromString("0.10"),
	})
	require.NoError(t, err)
	return engine{directory: dir, users: users, svc: svc}
}

func TestSinkRoundTripHydratesEquivalentEngine(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repos := NewRepositories(conn)
	sink, err := NewGormSink(db.NewFromConn(conn), repos)
	require.NoError(t, err)

	now := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	rec := &collector{}
	live := newEngine(t, rec, clock)

	// The first admin is bootstrapped straight into the registry and journal.
	branch := models.Branch{ID: uuid.New(), Name: "Roosevelt Middle", CreatedAt: now, UpdatedAt: now}
	admin := models.User{ID: uuid.New(), Name: "Root", Email: "root@school.test", Role: enums.RoleAdmin, BranchID: branch.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, live.directory.AddBranch(branch, nil))
	require.NoError(t, live.directory.AddUser(admin, nil))
	rec.Record(journal.Changeset{Branches: []models.Branch{branch}, Users: []models.User{admin}})

	alice, err := live.users.RegisterUser(ctx, admin.ID, identity.RegisterUserInput{Name: "Alice", Email: "alice@school.test", Role: enums.RoleTeacher, BranchID: branch.ID})
	require.NoError(t, err)
	bob, err := live.users.RegisterUser(ctx, admin.ID, identity.RegisterUserInput{Name: "Bob", Email: "bob@school.test", Role: enums.RoleTeacher, BranchID: branch.ID})
	require.NoError(t, err)
	carol, err := live.users.RegisterUser(ctx, admin.ID, identity.RegisterUserInput{Name: "Carol", Email: "carol@school.test", Role: enums.RoleTeacher, BranchID: branch.ID})
	require.NoError(t, err)

	view, err := live.svc.AddTitle(ctx, admin.ID, circulation.AddTitleInput{Title: "Hatchet", Author: "Gary Paulsen", Copies: 2})
	require.NoError(t, err)
	titleID := view.Title.ID
	copies, err := live.svc.ListCopies(ctx, titleID)
	require.NoError(t, err)

	_, err = live.svc.Checkout(ctx, copies[0].ID, alice.ID, admin.ID)
	require.NoError(t, err)
	_, err = live.svc.Reserve(ctx, titleID, bob.ID, bob.ID)
	require.NoError(t, err)
	_, err = live.svc.Reserve(ctx, titleID, carol.ID, carol.ID)
	require.NoError(t, err)
	require.NoError(t, live.svc.CancelReservation(ctx, titleID, bob.ID, bob.ID))

	require.NoError(t, sink.Persist(ctx, rec.drain()))

	loader := NewLoader(repos, 100)
	directory, err := loader.LoadDirectory(ctx)
	require.NoError(t, err)
	assert.Len(t, directory.Branches, 1)
	assert.Len(t, directory.Users, 4)
	snapshot, err := loader.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Loans, 1)
	require.Len(t, snapshot.Reservations, 1)
	assert.Equal(t, carol.ID, snapshot.Reservations[0].UserID)
	assert.True(t, snapshot.Reservations[0].IsHolding())
	assert.Len(t, snapshot.Activity, 8)

	restored := newEngine(t, journal.Discard{}, clock)
	restored.directory.Load(directory.Branches, directory.Users)
	require.NoError(t, restored.svc.Hydrate(snapshot))

	liveCopies, err := live.svc.ListCopies(ctx, titleID)
	require.NoError(t, err)
	restoredCopies, err := restored.svc.ListCopies(ctx, titleID)
	require.NoError(t, err)
	require.Len(t, restoredCopies, len(liveCopies))
	for i := range liveCopies {
		assert.Equal(t, liveCopies[i].ID, restoredCopies[i].ID)
		assert.Equal(t, liveCopies[i].Status, restoredCopies[i].Status)
		assert.Equal(t, liveCopies[i].Version, restoredCopies[i].Version)
	}

	_, err = restored.svc.Return(ctx, copies[0].ID, admin.ID)
	require.NoError(t, err)
}

func TestSinkReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repos := NewRepositories(conn)
	sink, err := NewGormSink(db.NewFromConn(conn), repos)
	require.NoError(t, err)

	branch := models.Branch{ID: uuid.New(), Name: "Central"}
	entry := models.ActivityEntry{ID: uuid.New(), Type: enums.ActivityTypeAddBranch, BranchID: branch.ID, OccurredAt: time.Now().UTC()}
	batch := []journal.Changeset{{Branches: []models.Branch{branch}, Activity: []models.ActivityEntry{entry}}}

	require.NoError(t, sink.Persist(ctx, batch))
	require.NoError(t, sink.Persist(ctx, batch))

	latest, err := repos.Activity.ListLatest(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, latest, 1)
}

type failingTx struct{}

func (failingTx) WithTx(context.Context, func(tx *gorm.DB) error) error {
	return errors.New("connection reset")
}

func TestSinkSurfacesTransactionErrors(t *testing.T) {
	sink, err := NewGormSink(failingTx{}, Repositories{})
	require.NoError(t, err)
	err = sink.Persist(context.Background(), []journal.Changeset{{}})
	assert.ErrorContains(t, err, "connection reset")

	assert.NoError(t, sink.Persist(context.Background(), nil))

	_, err = NewGormSink(nil, Repositories{})
	assert.Error(t, err)
}
