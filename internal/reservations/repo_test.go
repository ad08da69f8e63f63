package reservations

import (
	"context"
	"fmt"
	"testing"

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
	require.NoError(t, conn.AutoMigrate(&models.Reservation{}))
	return conn
}

func TestRepositoryUpsertDeleteList(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	title := uuid.New()

	first := models.Reservation{ID: uuid.New(), TitleID: title, UserID: uuid.New(), RequestedAt: t0, Seq: 1}
	second := models.Reservation{ID: uuid.New(), TitleID: title, UserID: uuid.New(), RequestedAt: t0, Seq: 2}
	require.NoError(t, repo.Upsert(ctx, []models.Reservation{second, first}))

	copyID := uuid.New()
	first.CopyID = &copyID
	require.NoError(t, repo.Upsert(ctx, []models.Reservation{first}))

	dup := models.Reservation{ID: uuid.New(), TitleID: title, UserID: first.UserID, RequestedAt: t0, Seq: 3}
	assert.Error(t, repo.Upsert(ctx, []models.Reservation{dup}), "title/user pair is unique")

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	require.NotNil(t, list[0].CopyID)
	assert.Equal(t, copyID, *list[0].CopyID)

	require.NoError(t, repo.Delete(ctx, []uuid.UUID{first.ID}))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}
