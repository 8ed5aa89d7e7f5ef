package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/boardsync/internal/models"
	"github.com/iudanet/boardsync/internal/server/storage"
)

func TestBoardStorage_CreateObject(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	obj := testRect("rect-1", 100, 200)
	obj.Version = 42 // версию игнорируем, storage всегда начинает с 1

	err := s.CreateObject(ctx, obj)
	require.NoError(t, err)

	retrieved, err := s.GetObject(ctx, "rect-1")
	require.NoError(t, err)
	assert.Equal(t, "rect-1", retrieved.ID)
	assert.Equal(t, models.ObjectTypeRectangle, retrieved.Type)
	assert.Equal(t, 100.0, retrieved.X)
	assert.Equal(t, 200.0, retrieved.Y)
	assert.Equal(t, int64(1), retrieved.Version)
	assert.Empty(t, retrieved.LockedBy)
	assert.Nil(t, retrieved.LockedAt)
}

func TestBoardStorage_CreateObject_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.CreateObject(ctx, testRect("dup-1", 0, 0)))

	err := s.CreateObject(ctx, testRect("dup-1", 50, 50))
	assert.ErrorIs(t, err, storage.ErrObjectAlreadyExists)
}

func TestBoardStorage_GetObject_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	obj, err := s.GetObject(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	assert.Nil(t, obj)
}

func TestBoardStorage_ListObjects_CreationOrder(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	ids := []string{"c-1", "a-2", "b-3"}
	for i, id := range ids {
		require.NoError(t, s.CreateObject(ctx, testRect(id, float64(i*100), 0)))
	}

	objects, err := s.ListObjects(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 3)

	// Порядок вставки, а не лексикографический
	for i, id := range ids {
		assert.Equal(t, id, objects[i].ID)
	}
}

func TestBoardStorage_ListObjects_Empty(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	objects, err := s.ListObjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestBoardStorage_UpdateObject(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.CreateObject(ctx, testRect("upd-1", 100, 100)))

	next := testRect("upd-1", 350, 175)
	next.Color = "#00ff00"
	next.ModifiedBy = "user-2"

	updated, err := s.UpdateObject(ctx, storage.ObjectWrite{Next: next, BaseVersion: 1})
	require.NoError(t, err)
	assert.Equal(t, 350.0, updated.X)
	assert.Equal(t, "#00ff00", updated.Color)
	assert.Equal(t, "user-2", updated.ModifiedBy)
	assert.Equal(t, int64(2), updated.Version)

	// Повторная запись поверх новой версии
	next2 := updated.Clone()
	next2.Rotation = 90
	updated2, err := s.UpdateObject(ctx, storage.ObjectWrite{Next: next2, BaseVersion: updated.Version})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated2.Version)
	assert.Equal(t, 90.0, updated2.Rotation)
}

func TestBoardStorage_UpdateObject_VersionConflict(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.CreateObject(ctx, testRect("conf-1", 100, 100)))

	// Конкурирующая запись подняла версию до 2
	winner := testRect("conf-1", 500, 500)
	_, err := s.UpdateObject(ctx, storage.ObjectWrite{Next: winner, BaseVersion: 1})
	require.NoError(t, err)

	// Устаревшая база → конфликт с актуальным состоянием внутри ошибки
	stale := testRect("conf-1", 111, 111)
	updated, err := s.UpdateObject(ctx, storage.ObjectWrite{Next: stale, BaseVersion: 1})
	require.Error(t, err)
	assert.Nil(t, updated)

	var conflict *storage.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "conf-1", conflict.ID)
	require.NotNil(t, conflict.Current)
	assert.Equal(t, int64(2), conflict.Current.Version)
	assert.Equal(t, 500.0, conflict.Current.X)

	// Проигравшая запись не оставила следов
	current, err := s.GetObject(ctx, "conf-1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, current.X)
}

func TestBoardStorage_UpdateObject_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.UpdateObject(ctx, storage.ObjectWrite{Next: testRect("ghost", 0, 0), BaseVersion: 1})
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestBoardStorage_UpdateObject_PersistsLock(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.CreateObject(ctx, testRect("lock-1", 100, 100)))

	lockedAt := time.Now().UTC().Truncate(time.Second)
	next := testRect("lock-1", 100, 100)
	next.LockedBy = "user-7"
	next.LockedAt = &lockedAt

	updated, err := s.UpdateObject(ctx, storage.ObjectWrite{Next: next, BaseVersion: 1})
	require.NoError(t, err)
	assert.Equal(t, "user-7", updated.LockedBy)
	require.NotNil(t, updated.LockedAt)
	assert.WithinDuration(t, lockedAt, *updated.LockedAt, time.Second)

	// Снятие блокировки обнуляет обе колонки
	released := updated.Clone()
	released.ClearLock()
	updated2, err := s.UpdateObject(ctx, storage.ObjectWrite{Next: released, BaseVersion: updated.Version})
	require.NoError(t, err)
	assert.Empty(t, updated2.LockedBy)
	assert.Nil(t, updated2.LockedAt)
}

func TestBoardStorage_BatchUpdateObjects(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.CreateObject(ctx, testRect("b-1", 100, 100)))
	require.NoError(t, s.CreateObject(ctx, testRect("b-2", 200, 200)))

	writes := []storage.ObjectWrite{
		{Next: testRect("b-1", 150, 150), BaseVersion: 1},
		{Next: testRect("b-2", 250, 250), BaseVersion: 1},
	}

	err := s.BatchUpdateObjects(ctx, writes)
	require.NoError(t, err)

	for _, id := range []string{"b-1", "b-2"} {
		obj, err := s.GetObject(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(2), obj.Version)
	}
}

func TestBoardStorage_BatchUpdateObjects_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.CreateObject(ctx, testRect("ba-1", 100, 100)))
	require.NoError(t, s.CreateObject(ctx, testRect("ba-2", 200, 200)))

	writes := []storage.ObjectWrite{
		{Next: testRect("ba-1", 150, 150), BaseVersion: 1},
		{Next: testRect("ba-2", 250, 250), BaseVersion: 99}, // устаревшая база
	}

	err := s.BatchUpdateObjects(ctx, writes)
	require.Error(t, err)

	var conflict *storage.VersionConflictError
	assert.True(t, errors.As(err, &conflict))

	// Первая запись тоже откатилась
	obj, err := s.GetObject(ctx, "ba-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, obj.X)
	assert.Equal(t, int64(1), obj.Version)
}

func TestBoardStorage_DeleteObject(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.CreateObject(ctx, testRect("del-1", 100, 100)))

	err := s.DeleteObject(ctx, "del-1")
	require.NoError(t, err)

	_, err = s.GetObject(ctx, "del-1")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	// Повторное удаление
	err = s.DeleteObject(ctx, "del-1")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

// Helper functions

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	storage, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = storage.Close()
	}

	return storage, cleanup
}

func createTestUser(t *testing.T, ctx context.Context, s *Storage) string {
	userID := uuid.New().String()
	user := &models.User{
		ID:          userID,
		Username:    "testuser_" + userID[:8],
		AuthKeyHash: "hash",
		PublicSalt:  "salt",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	err := s.CreateUser(ctx, user)
	require.NoError(t, err)

	return userID
}

func testRect(id string, x, y float64) *models.CanvasObject {
	now := time.Now().UTC()
	return &models.CanvasObject{
		ID:         id,
		Type:       models.ObjectTypeRectangle,
		X:          x,
		Y:          y,
		Width:      100,
		Height:     100,
		Color:      "#ff0000",
		CreatedBy:  "user-1",
		ModifiedBy: "user-1",
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
