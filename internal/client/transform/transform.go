// Package transform реализует жесты перемещения, изменения размера и
// поворота поверх движка синхронизации. Геометрия всегда считается от
// снимка, сделанного в начале жеста: дельты не накапливают ошибку
// округления между кадрами.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/iudanet/boardsync/internal/models"
)

// Параметры снаппинга
const (
	// GridSize шаг сетки при включенном snap-to-grid
	GridSize = 25.0
	// GuideThreshold дистанция прилипания к smart guide
	GuideThreshold = 5.0
)

// State поверхность движка, нужная контроллеру жестов
type State interface {
	Objects() []*models.CanvasObject
	Get(id string) (*models.CanvasObject, bool)
	UpdateOptimistic(id string, update models.ObjectUpdate)
	UpdateLocalOnly(id string, update models.ObjectUpdate)
	ScheduleGroupUpdate(updates map[string]models.ObjectUpdate)
	CancelThrottled(ids ...string)
	BatchUpdateOptimistic(ctx context.Context, updates map[string]models.ObjectUpdate) error
	Flush(ctx context.Context, ids ...string) error
}

// Locker захват lease перед началом жеста (реализуется lock.Manager)
type Locker interface {
	Acquire(ctx context.Context, objectID, userID string) (acquired bool, holder string, err error)
}

// Handle ручка изменения размера
type Handle string

const (
	HandleNW Handle = "nw"
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
)

// GuideAxis ось smart guide
type GuideAxis string

const (
	GuideVertical   GuideAxis = "vertical"
	GuideHorizontal GuideAxis = "horizontal"
)

// Guide активная линия выравнивания для отрисовки
type Guide struct {
	Axis     GuideAxis
	Position float64 // координата линии на перпендикулярной оси
}

// ErrLockRequired жест по объекту без действующего собственного lease
type ErrLockRequired struct {
	ObjectID string
	Holder   string // пусто, если lock взять не удалось по иной причине
}

func (e ErrLockRequired) Error() string {
	if e.Holder != "" {
		return fmt.Sprintf("object %s is locked by %s", e.ObjectID, e.Holder)
	}
	return fmt.Sprintf("object %s is not locked for editing", e.ObjectID)
}

// startGeometry снимок геометрии объекта в момент начала жеста
type startGeometry struct {
	x, y, w, h float64 // bounds
	rotation   float64
	objType    models.ObjectType
}

type dragState struct {
	starts map[string]startGeometry
	ids    []string
	group  bool
}

type resizeState struct {
	id         string
	handle     Handle
	start      startGeometry
	aspectLock bool
}

type rotateState struct {
	id    string
	start float64
}

// Controller контроллер жестов; одновременно активен не более
// одного жеста каждого вида
type Controller struct {
	state  State
	locks  Locker
	logger *slog.Logger
	userID string

	drag   *dragState
	resize *resizeState
	rotate *rotateState
	guides []Guide

	snapToGrid bool
	mu         sync.Mutex
}

// NewController создает контроллер жестов для пользователя userID
func NewController(state State, locks Locker, userID string, logger *slog.Logger) *Controller {
	return &Controller{
		state:  state,
		locks:  locks,
		logger: logger,
		userID: userID,
	}
}

// SetSnapToGrid включает привязку одиночного drag к сетке.
// Сетка имеет приоритет над smart guides.
func (c *Controller) SetSnapToGrid(enabled bool) {
	c.mu.Lock()
	c.snapToGrid = enabled
	c.mu.Unlock()
}

// ActiveGuides возвращает действующие линии выравнивания для отрисовки
func (c *Controller) ActiveGuides() []Guide {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Guide(nil), c.guides...)
}

// BeginDrag начинает перемещение объектов ids. Каждый участник должен
// быть под собственным lease (acquire здесь же продлевает его); отказ
// любого участника отменяет весь жест.
func (c *Controller) BeginDrag(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return fmt.Errorf("drag requires at least one object")
	}

	starts := make(map[string]startGeometry, len(ids))
	for _, id := range ids {
		if err := c.ensureLock(ctx, id); err != nil {
			return err
		}
		obj, ok := c.state.Get(id)
		if !ok {
			return fmt.Errorf("drag target %s not found", id)
		}
		starts[id] = snapshotGeometry(obj)
	}

	c.mu.Lock()
	c.drag = &dragState{
		ids:    append([]string(nil), ids...),
		starts: starts,
		group:  len(ids) > 1,
	}
	c.guides = nil
	c.mu.Unlock()

	c.logger.Debug("drag started", "objects", len(ids))
	return nil
}

// Drag применяет накопленную дельту курсора от начала жеста.
// Одиночный drag снапится к сетке или smart guides и уходит throttled
// одиночной записью; групповой применяет общую дельту к собственному
// старту каждого объекта и уходит одной throttled batch-записью.
func (c *Controller) Drag(dx, dy float64) {
	c.mu.Lock()
	drag := c.drag
	snapToGrid := c.snapToGrid
	c.mu.Unlock()

	if drag == nil {
		return
	}

	if !drag.group {
		c.dragSingle(drag, dx, dy, snapToGrid)
		return
	}

	// Smart guides в групповом drag выключены: N объектов дергали бы
	// друг друга за направляющие
	c.mu.Lock()
	c.guides = nil
	c.mu.Unlock()

	updates := make(map[string]models.ObjectUpdate, len(drag.ids))
	for _, id := range drag.ids {
		start := drag.starts[id]
		x, y := c.objectPosition(start, start.x+dx, start.y+dy)
		update := models.ObjectUpdate{X: models.Float64Ptr(x), Y: models.Float64Ptr(y)}
		c.state.UpdateLocalOnly(id, update)
		updates[id] = update
	}
	c.state.ScheduleGroupUpdate(updates)
}

// EndDrag завершает перемещение: невыстрелившие throttled-записи
// отменяются, финальные позиции фиксируются немедленно одной
// транзакцией. Lease остаётся у пользователя (объекты всё ещё выделены).
func (c *Controller) EndDrag(ctx context.Context) error {
	c.mu.Lock()
	drag := c.drag
	c.drag = nil
	c.guides = nil
	c.mu.Unlock()

	if drag == nil {
		return nil
	}

	c.state.CancelThrottled(drag.ids...)

	final := make(map[string]models.ObjectUpdate, len(drag.ids))
	for _, id := range drag.ids {
		obj, ok := c.state.Get(id)
		if !ok {
			continue
		}
		final[id] = models.ObjectUpdate{
			X: models.Float64Ptr(obj.X),
			Y: models.Float64Ptr(obj.Y),
		}
	}
	if len(final) == 0 {
		return nil
	}

	if err := c.state.BatchUpdateOptimistic(ctx, final); err != nil {
		return fmt.Errorf("commit drag: %w", err)
	}
	return nil
}

// BeginResize начинает изменение размера от ручки handle.
// Геометрия каждого шага считается от bounds, снятых здесь.
func (c *Controller) BeginResize(ctx context.Context, id string, handle Handle, aspectLock bool) error {
	if err := c.ensureLock(ctx, id); err != nil {
		return err
	}
	obj, ok := c.state.Get(id)
	if !ok {
		return fmt.Errorf("resize target %s not found", id)
	}

	c.mu.Lock()
	c.resize = &resizeState{
		id:         id,
		handle:     handle,
		start:      snapshotGeometry(obj),
		aspectLock: aspectLock,
	}
	c.mu.Unlock()
	return nil
}

// Resize применяет дельту курсора к исходным bounds и отправляет
// throttled geometry-запись
func (c *Controller) Resize(dx, dy float64) {
	c.mu.Lock()
	rs := c.resize
	c.mu.Unlock()

	if rs == nil {
		return
	}

	update := resizeUpdate(rs.start, rs.handle, dx, dy, rs.aspectLock)
	c.state.UpdateOptimistic(rs.id, update)
}

// EndResize фиксирует финальную геометрию немедленно
func (c *Controller) EndResize(ctx context.Context) error {
	c.mu.Lock()
	rs := c.resize
	c.resize = nil
	c.mu.Unlock()

	if rs == nil {
		return nil
	}

	c.state.CancelThrottled(rs.id)

	obj, ok := c.state.Get(rs.id)
	if !ok {
		return nil
	}

	final := models.ObjectUpdate{
		X: models.Float64Ptr(obj.X),
		Y: models.Float64Ptr(obj.Y),
	}
	if obj.Type == models.ObjectTypeCircle {
		final.Radius = models.Float64Ptr(obj.Radius)
	} else {
		final.Width = models.Float64Ptr(obj.Width)
		final.Height = models.Float64Ptr(obj.Height)
	}

	if err := c.state.BatchUpdateOptimistic(ctx, map[string]models.ObjectUpdate{rs.id: final}); err != nil {
		return fmt.Errorf("commit resize: %w", err)
	}
	return nil
}

// BeginRotate начинает жест поворота
func (c *Controller) BeginRotate(ctx context.Context, id string) error {
	if err := c.ensureLock(ctx, id); err != nil {
		return err
	}
	obj, ok := c.state.Get(id)
	if !ok {
		return fmt.Errorf("rotate target %s not found", id)
	}

	c.mu.Lock()
	c.rotate = &rotateState{id: id, start: obj.Rotation}
	c.mu.Unlock()
	return nil
}

// Rotate применяет накопленный угол от начала жеста, throttled
func (c *Controller) Rotate(deltaDeg float64) {
	c.mu.Lock()
	rot := c.rotate
	c.mu.Unlock()

	if rot == nil {
		return
	}

	angle := models.NormalizeRotation(rot.start + deltaDeg)
	c.state.UpdateOptimistic(rot.id, models.ObjectUpdate{Rotation: models.Float64Ptr(angle)})
}

// EndRotate дожидается отправки финального угла
func (c *Controller) EndRotate(ctx context.Context) error {
	c.mu.Lock()
	rot := c.rotate
	c.rotate = nil
	c.mu.Unlock()

	if rot == nil {
		return nil
	}

	if err := c.state.Flush(ctx, rot.id); err != nil {
		return fmt.Errorf("commit rotation: %w", err)
	}
	return nil
}

// RotateBy мгновенный поворот на delta градусов без жеста (кнопки +90/-90)
func (c *Controller) RotateBy(ctx context.Context, id string, deltaDeg float64) error {
	if err := c.ensureLock(ctx, id); err != nil {
		return err
	}
	obj, ok := c.state.Get(id)
	if !ok {
		return fmt.Errorf("rotate target %s not found", id)
	}

	angle := models.NormalizeRotation(obj.Rotation + deltaDeg)
	update := map[string]models.ObjectUpdate{id: {Rotation: models.Float64Ptr(angle)}}
	if err := c.state.BatchUpdateOptimistic(ctx, update); err != nil {
		return fmt.Errorf("rotate by: %w", err)
	}
	return nil
}

// ResetRotation мгновенно сбрасывает поворот в 0
func (c *Controller) ResetRotation(ctx context.Context, id string) error {
	if err := c.ensureLock(ctx, id); err != nil {
		return err
	}

	update := map[string]models.ObjectUpdate{id: {Rotation: models.Float64Ptr(0)}}
	if err := c.state.BatchUpdateOptimistic(ctx, update); err != nil {
		return fmt.Errorf("reset rotation: %w", err)
	}
	return nil
}

// dragSingle одиночное перемещение со снаппингом
func (c *Controller) dragSingle(drag *dragState, dx, dy float64, snapToGrid bool) {
	id := drag.ids[0]
	start := drag.starts[id]

	// Кандидатные bounds до снаппинга
	bx := start.x + dx
	by := start.y + dy

	var guides []Guide
	if snapToGrid {
		bx = math.Round(bx/GridSize) * GridSize
		by = math.Round(by/GridSize) * GridSize
	} else {
		bx, by, guides = c.snapToGuides(id, bx, by, start.w, start.h)
	}

	c.mu.Lock()
	c.guides = guides
	c.mu.Unlock()

	x, y := c.objectPosition(start, bx, by)
	c.state.UpdateOptimistic(id, models.ObjectUpdate{
		X: models.Float64Ptr(x),
		Y: models.Float64Ptr(y),
	})
}

// snapToGuides прижимает bounds к краям и центрам других объектов.
// Возвращает скорректированные bounds-координаты и активные guides.
func (c *Controller) snapToGuides(selfID string, bx, by, w, h float64) (float64, float64, []Guide) {
	// Кандидаты: левый/центр/правый край по X, верх/середина/низ по Y
	offsetsX := []float64{0, w / 2, w}
	offsetsY := []float64{0, h / 2, h}

	bestDX := math.Inf(1)
	bestDY := math.Inf(1)
	var snapX, snapY float64
	var guideX, guideY Guide
	var haveX, haveY bool

	for _, other := range c.state.Objects() {
		if other.ID == selfID {
			continue
		}
		ox, oy, ow, oh := other.Bounds()
		linesX := []float64{ox, ox + ow/2, ox + ow}
		linesY := []float64{oy, oy + oh/2, oy + oh}

		for _, off := range offsetsX {
			for _, line := range linesX {
				if d := math.Abs(bx+off-line); d <= GuideThreshold && d < bestDX {
					bestDX = d
					snapX = line - off
					guideX = Guide{Axis: GuideVertical, Position: line}
					haveX = true
				}
			}
		}
		for _, off := range offsetsY {
			for _, line := range linesY {
				if d := math.Abs(by+off-line); d <= GuideThreshold && d < bestDY {
					bestDY = d
					snapY = line - off
					guideY = Guide{Axis: GuideHorizontal, Position: line}
					haveY = true
				}
			}
		}
	}

	var guides []Guide
	if haveX {
		bx = snapX
		guides = append(guides, guideX)
	}
	if haveY {
		by = snapY
		guides = append(guides, guideY)
	}
	return bx, by, guides
}

// objectPosition переводит bounds-координату в позицию объекта
// (для круга x,y — центр)
func (c *Controller) objectPosition(start startGeometry, bx, by float64) (float64, float64) {
	if start.objType == models.ObjectTypeCircle {
		return bx + start.w/2, by + start.h/2
	}
	return bx, by
}

// ensureLock продлевает или берет lease перед жестом
func (c *Controller) ensureLock(ctx context.Context, id string) error {
	acquired, holder, err := c.locks.Acquire(ctx, id, c.userID)
	if err != nil {
		return fmt.Errorf("lock for gesture: %w", err)
	}
	if !acquired {
		return ErrLockRequired{ObjectID: id, Holder: holder}
	}
	return nil
}

// snapshotGeometry снимает стартовую геометрию объекта
func snapshotGeometry(obj *models.CanvasObject) startGeometry {
	x, y, w, h := obj.Bounds()
	return startGeometry{x: x, y: y, w: w, h: h, rotation: obj.Rotation, objType: obj.Type}
}

// resizeUpdate вычисляет обновление геометрии из исходных bounds,
// ручки и дельты курсора. Противоположный ручке край остается на месте,
// в том числе после min/max-обрезки размеров.
func resizeUpdate(start startGeometry, handle Handle, dx, dy float64, aspectLock bool) models.ObjectUpdate {
	left := start.x
	top := start.y
	right := start.x + start.w
	bottom := start.y + start.h

	moveLeft := handle == HandleNW || handle == HandleW || handle == HandleSW
	moveRight := handle == HandleNE || handle == HandleE || handle == HandleSE
	moveTop := handle == HandleNW || handle == HandleN || handle == HandleNE
	moveBottom := handle == HandleSW || handle == HandleS || handle == HandleSE

	if moveLeft {
		left += dx
	}
	if moveRight {
		right += dx
	}
	if moveTop {
		top += dy
	}
	if moveBottom {
		bottom += dy
	}

	w := right - left
	h := bottom - top

	if aspectLock && start.w > 0 && start.h > 0 {
		// Средний масштаб по осям сохраняет пропорции без рывка
		scale := (w/start.w + h/start.h) / 2
		w = start.w * scale
		h = start.h * scale
	}

	w = models.ClampSize(w)
	h = models.ClampSize(h)

	// Якорь: противоположный ручке край фиксирован
	if moveLeft {
		left = right - w
	} else {
		right = left + w
	}
	if moveTop {
		top = bottom - h
	} else {
		bottom = top + h
	}

	if start.objType == models.ObjectTypeCircle {
		// Радиус от большей стороны рамки, центр — центр рамки
		radius := math.Max(right-left, bottom-top) / 2
		return models.ObjectUpdate{
			X:      models.Float64Ptr((left + right) / 2),
			Y:      models.Float64Ptr((top + bottom) / 2),
			Radius: models.Float64Ptr(radius),
		}
	}

	// Текст меняет только рамку, содержимое не масштабируется
	return models.ObjectUpdate{
		X:      models.Float64Ptr(left),
		Y:      models.Float64Ptr(top),
		Width:  models.Float64Ptr(right - left),
		Height: models.Float64Ptr(bottom - top),
	}
}
