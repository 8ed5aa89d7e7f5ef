package selection

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/boardsync/internal/client/engine"
	"github.com/iudanet/boardsync/internal/client/lock"
	"github.com/iudanet/boardsync/internal/client/store/memstore"
	"github.com/iudanet/boardsync/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setup полная связка: memstore -> engine -> lock -> selection
func setup(t *testing.T) (*engine.Engine, *lock.Manager, *Manager) {
	t.Helper()

	s := memstore.New()
	e := engine.New(s, "user-1", testLogger())
	e.Start()
	t.Cleanup(e.Stop)

	locks := lock.NewManager(s, e, testLogger())
	return e, locks, NewManager(locks, e, "user-1", testLogger())
}

func createRect(t *testing.T, e *engine.Engine, x, y float64, color string) string {
	t.Helper()

	id, err := e.CreateOptimistic(context.Background(), &models.CanvasObject{
		Type:   models.ObjectTypeRectangle,
		X:      x,
		Y:      y,
		Width:  100,
		Height: 100,
		Color:  color,
	})
	require.NoError(t, err)
	return id
}

func lockedBy(t *testing.T, e *engine.Engine, id string) string {
	t.Helper()

	obj, ok := e.Get(id)
	require.True(t, ok)
	return obj.LockedBy
}

// foreignLock захватывает lock от имени другого пользователя
func foreignLock(t *testing.T, e *engine.Engine, locks *lock.Manager, id, userID string) {
	t.Helper()

	acquired, _, err := locks.Acquire(context.Background(), id, userID)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestClick_ReplacesSelectionAndMovesLease(t *testing.T) {
	e, _, m := setup(t)
	ctx := context.Background()
	a := createRect(t, e, 100, 100, "#ff0000")
	b := createRect(t, e, 300, 100, "#00ff00")

	ok, _, err := m.Click(ctx, a)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{a}, m.Selected())
	assert.Equal(t, "user-1", lockedBy(t, e, a))

	// Клик по другому объекту переносит выделение и lease
	ok, _, err = m.Click(ctx, b)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{b}, m.Selected())
	assert.Empty(t, lockedBy(t, e, a))
	assert.Equal(t, "user-1", lockedBy(t, e, b))
}

func TestClick_BlockedByForeignLockReportsHolder(t *testing.T) {
	e, locks, m := setup(t)
	ctx := context.Background()
	a := createRect(t, e, 100, 100, "#ff0000")
	foreignLock(t, e, locks, a, "user-2")

	ok, holder, err := m.Click(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "user-2", holder)
	assert.Empty(t, m.Selected())
	// Чужой lease не тронут
	assert.Equal(t, "user-2", lockedBy(t, e, a))
}

func TestShiftClick_TogglesWithoutTouchingOthers(t *testing.T) {
	e, _, m := setup(t)
	ctx := context.Background()
	a := createRect(t, e, 100, 100, "#ff0000")
	b := createRect(t, e, 300, 100, "#00ff00")

	_, _, err := m.Click(ctx, a)
	require.NoError(t, err)

	ok, _, err := m.ShiftClick(ctx, b)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{a, b}, m.Selected())

	// Повторный shift-click снимает выделение и lease
	ok, _, err = m.ShiftClick(ctx, b)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{a}, m.Selected())
	assert.Empty(t, lockedBy(t, e, b))
	assert.Equal(t, "user-1", lockedBy(t, e, a))
}

func TestSelectLasso_CenterContainment(t *testing.T) {
	e, _, m := setup(t)
	ctx := context.Background()
	inside := createRect(t, e, 100, 100, "#ff0000")  // центр (150,150)
	edge := createRect(t, e, 350, 100, "#00ff00")    // центр (400,150) вне
	outside := createRect(t, e, 900, 900, "#0000ff") // центр (950,950)

	square := []Point{{X: 50, Y: 50}, {X: 300, Y: 50}, {X: 300, Y: 300}, {X: 50, Y: 300}}

	result, err := m.SelectLasso(ctx, square, ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, []string{inside}, result.Selected)
	assert.False(t, m.IsSelected(edge))
	assert.False(t, m.IsSelected(outside))
}

func TestSelectLasso_AddAndRemoveModifiers(t *testing.T) {
	e, _, m := setup(t)
	ctx := context.Background()
	a := createRect(t, e, 100, 100, "#ff0000")
	b := createRect(t, e, 900, 900, "#00ff00")

	_, _, err := m.Click(ctx, b)
	require.NoError(t, err)

	around := func(x, y float64) []Point {
		return []Point{{X: x - 200, Y: y - 200}, {X: x + 200, Y: y - 200}, {X: x + 200, Y: y + 200}, {X: x - 200, Y: y + 200}}
	}

	// Add не снимает прежнее выделение
	result, err := m.SelectLasso(ctx, around(150, 150), ModeAdd)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, result.Selected)

	// Remove убирает только пойманное лассо
	result, err = m.SelectLasso(ctx, around(950, 950), ModeRemove)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, result.Selected)
	assert.Empty(t, lockedBy(t, e, b))
}

func TestSelectLasso_DegeneratePolygon(t *testing.T) {
	_, _, m := setup(t)

	_, err := m.SelectLasso(context.Background(), []Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, ModeReplace)
	assert.Error(t, err)
}

func TestSelectWand_ToleranceMatching(t *testing.T) {
	e, _, m := setup(t)
	ctx := context.Background()
	exact := createRect(t, e, 100, 100, "#ff0000")
	near := createRect(t, e, 300, 100, "#fe0005") // расстояние ~5.1
	far := createRect(t, e, 500, 100, "#00ff00")

	result, err := m.SelectWand(ctx, "#ff0000", 10, ModeReplace)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{exact, near}, result.Selected)
	assert.False(t, m.IsSelected(far))

	// Нулевая толерантность: только точное совпадение
	result, err = m.SelectWand(ctx, "#ff0000", 0, ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, []string{exact}, result.Selected)
}

func TestSelectWand_InvalidTarget(t *testing.T) {
	_, _, m := setup(t)

	_, err := m.SelectWand(context.Background(), "red", 10, ModeReplace)
	assert.Error(t, err)

	_, err = m.SelectWand(context.Background(), "#ff0000", -1, ModeReplace)
	assert.Error(t, err)
}

func TestSelectAll_SkipsForeignLockedAndReportsHolders(t *testing.T) {
	e, locks, m := setup(t)
	ctx := context.Background()
	a := createRect(t, e, 100, 100, "#ff0000")
	b := createRect(t, e, 300, 100, "#00ff00")
	c := createRect(t, e, 500, 100, "#0000ff")
	foreignLock(t, e, locks, b, "user-2")

	result, err := m.SelectAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, c}, result.Selected)
	assert.Equal(t, map[string]string{b: "user-2"}, result.Blocked)
}

func TestSelectInverse(t *testing.T) {
	e, _, m := setup(t)
	ctx := context.Background()
	a := createRect(t, e, 100, 100, "#ff0000")
	b := createRect(t, e, 300, 100, "#00ff00")
	c := createRect(t, e, 500, 100, "#0000ff")

	_, _, err := m.Click(ctx, a)
	require.NoError(t, err)

	result, err := m.SelectInverse(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b, c}, result.Selected)
	assert.Empty(t, lockedBy(t, e, a))
}

func TestSelectByType(t *testing.T) {
	e, _, m := setup(t)
	ctx := context.Background()
	rect1 := createRect(t, e, 100, 100, "#ff0000")
	rect2 := createRect(t, e, 300, 100, "#00ff00")

	circleID, err := e.CreateOptimistic(ctx, &models.CanvasObject{
		Type:   models.ObjectTypeCircle,
		X:      700,
		Y:      700,
		Radius: 100,
		Color:  "#0000ff",
	})
	require.NoError(t, err)

	result, err := m.SelectByType(ctx, models.ObjectTypeRectangle, ModeReplace)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rect1, rect2}, result.Selected)
	assert.False(t, m.IsSelected(circleID))
}

func TestSelectByIDs_UnknownIDsSkipped(t *testing.T) {
	e, _, m := setup(t)
	a := createRect(t, e, 100, 100, "#ff0000")

	result, err := m.SelectByIDs(context.Background(), []string{a, "ghost"}, ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, result.Selected)
	assert.Empty(t, result.Blocked)
}

func TestSelectNextPrev_Cyclic(t *testing.T) {
	e, _, m := setup(t)
	ctx := context.Background()
	a := createRect(t, e, 100, 100, "#ff0000")
	b := createRect(t, e, 300, 100, "#00ff00")
	c := createRect(t, e, 500, 100, "#0000ff")

	// Без выделения Next начинает с первого
	ok, _, err := m.SelectNext(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{a}, m.Selected())

	_, _, err = m.SelectNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b}, m.Selected())

	_, _, err = m.SelectNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c}, m.Selected())

	// Циклический переход через край
	_, _, err = m.SelectNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, m.Selected())

	_, _, err = m.SelectPrev(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c}, m.Selected())
}

func TestSetTool_CreationClearsAndUnlocks(t *testing.T) {
	e, _, m := setup(t)
	ctx := context.Background()
	a := createRect(t, e, 100, 100, "#ff0000")

	_, _, err := m.Click(ctx, a)
	require.NoError(t, err)

	require.NoError(t, m.SetTool(ctx, ToolCreateCircle))
	assert.Empty(t, m.Selected())
	assert.Empty(t, lockedBy(t, e, a))
	assert.Equal(t, ToolCreateCircle, m.Tool())

	// Возврат к инструменту выделения ничего не выделяет сам
	require.NoError(t, m.SetTool(ctx, ToolSelect))
	assert.Empty(t, m.Selected())
}

func TestReplace_IntersectionKeepsLease(t *testing.T) {
	e, _, m := setup(t)
	ctx := context.Background()
	a := createRect(t, e, 100, 100, "#ff0000")
	b := createRect(t, e, 300, 100, "#00ff00")

	_, _, err := m.Click(ctx, a)
	require.NoError(t, err)
	versionBefore, _ := e.Get(a)

	// a попадает и в новое выделение: его lease не перезахватывается
	result, err := m.SelectByIDs(ctx, []string{a, b}, ModeReplace)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, result.Selected)

	after, _ := e.Get(a)
	assert.Equal(t, versionBefore.Version, after.Version)
}
