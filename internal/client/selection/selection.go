// Package selection реализует локальное упорядоченное выделение объектов,
// связанное с lease-протоколом: выделение объекта захватывает его lock,
// снятие выделения — освобождает. Само выделение никогда не реплицируется.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/boardsync/internal/models"
	"github.com/iudanet/boardsync/internal/validation"
)

// Locker связка с lock manager-ом (реализуется lock.Manager)
type Locker interface {
	Acquire(ctx context.Context, objectID, userID string) (acquired bool, holder string, err error)
	Release(ctx context.Context, objectID, userID string) (bool, error)
}

// View read-only доступ к рабочему состоянию движка
type View interface {
	Objects() []*models.CanvasObject
	Get(id string) (*models.CanvasObject, bool)
}

// Mode определяет, как кандидаты сочетаются с текущим выделением
type Mode int

const (
	// ModeReplace кандидаты замещают выделение
	ModeReplace Mode = iota
	// ModeAdd кандидаты добавляются к выделению
	ModeAdd
	// ModeRemove кандидаты убираются из выделения
	ModeRemove
)

// Tool активный инструмент панели
type Tool string

const (
	ToolSelect       Tool = "select"
	ToolCreateRect   Tool = "create_rectangle"
	ToolCreateCircle Tool = "create_circle"
	ToolCreateText   Tool = "create_text"
)

// IsCreation true для инструментов создания объектов
func (t Tool) IsCreation() bool {
	return t == ToolCreateRect || t == ToolCreateCircle || t == ToolCreateText
}

// Point вершина lasso-полигона в координатах холста
type Point struct {
	X float64
	Y float64
}

// Result итог группового выделения: что вошло и кто не пустил
type Result struct {
	// Blocked объекты, чей lock держит другой пользователь: id -> holder
	Blocked  map[string]string
	Selected []string
}

// Manager упорядоченное выделение с lock-сопровождением
type Manager struct {
	locks  Locker
	view   View
	logger *slog.Logger
	userID string
	tool   Tool

	selected []string
	byID     map[string]struct{}
	mu       sync.Mutex
}

// NewManager создает selection manager для пользователя userID
func NewManager(locks Locker, view View, userID string, logger *slog.Logger) *Manager {
	return &Manager{
		locks:  locks,
		view:   view,
		logger: logger,
		userID: userID,
		tool:   ToolSelect,
		byID:   make(map[string]struct{}),
	}
}

// Selected возвращает id выделенных объектов в порядке выделения
func (m *Manager) Selected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.selected...)
}

// IsSelected true, если объект выделен
func (m *Manager) IsSelected(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	return ok
}

// Count количество выделенных объектов
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.selected)
}

// Click выделение кликом: прежнее выделение снимается и освобождается,
// объект захватывается. При чужом lock объект остается невыделенным,
// возвращается держатель.
func (m *Manager) Click(ctx context.Context, id string) (bool, string, error) {
	if err := m.Clear(ctx); err != nil {
		return false, "", err
	}
	return m.selectOne(ctx, id)
}

// ShiftClick переключает выделение объекта, не трогая остальные
func (m *Manager) ShiftClick(ctx context.Context, id string) (bool, string, error) {
	if m.IsSelected(id) {
		if err := m.deselectOne(ctx, id); err != nil {
			return false, "", err
		}
		return false, "", nil
	}
	return m.selectOne(ctx, id)
}

// SelectLasso выделяет объекты, чьи центры лежат внутри полигона.
// Полигон замыкается неявно (последняя вершина соединяется с первой).
func (m *Manager) SelectLasso(ctx context.Context, polygon []Point, mode Mode) (*Result, error) {
	if len(polygon) < 3 {
		return nil, fmt.Errorf("lasso polygon needs at least 3 points, got %d", len(polygon))
	}

	var candidates []string
	for _, obj := range m.view.Objects() {
		cx, cy := obj.Center()
		if pointInPolygon(Point{X: cx, Y: cy}, polygon) {
			candidates = append(candidates, obj.ID)
		}
	}

	return m.applyMode(ctx, candidates, mode)
}

// SelectWand magic-wand: выделяет объекты, чей цвет в RGB-пространстве
// отстоит от target не дальше tolerance
func (m *Manager) SelectWand(ctx context.Context, target string, tolerance float64, mode Mode) (*Result, error) {
	if err := validation.ValidateColor(target); err != nil {
		return nil, fmt.Errorf("wand target: %w", err)
	}
	if tolerance < 0 {
		return nil, fmt.Errorf("wand tolerance must be non-negative, got %v", tolerance)
	}

	var candidates []string
	for _, obj := range m.view.Objects() {
		distance, err := validation.ColorDistance(target, obj.Color)
		if err != nil {
			// Объект с невалидным цветом просто не участвует
			m.logger.Debug("wand skipped object with invalid color",
				"object_id", obj.ID, "color", obj.Color)
			continue
		}
		if distance <= tolerance {
			candidates = append(candidates, obj.ID)
		}
	}

	return m.applyMode(ctx, candidates, mode)
}

// SelectAll выделяет все объекты доски
func (m *Manager) SelectAll(ctx context.Context) (*Result, error) {
	objects := m.view.Objects()
	candidates := make([]string, 0, len(objects))
	for _, obj := range objects {
		candidates = append(candidates, obj.ID)
	}
	return m.applyMode(ctx, candidates, ModeReplace)
}

// SelectInverse выделяет все невыделенные объекты, снимая текущие
func (m *Manager) SelectInverse(ctx context.Context) (*Result, error) {
	var candidates []string
	for _, obj := range m.view.Objects() {
		if !m.IsSelected(obj.ID) {
			candidates = append(candidates, obj.ID)
		}
	}
	return m.applyMode(ctx, candidates, ModeReplace)
}

// SelectByType выделяет все объекты заданного типа
func (m *Manager) SelectByType(ctx context.Context, objType models.ObjectType, mode Mode) (*Result, error) {
	var candidates []string
	for _, obj := range m.view.Objects() {
		if obj.Type == objType {
			candidates = append(candidates, obj.ID)
		}
	}
	return m.applyMode(ctx, candidates, mode)
}

// SelectByIDs выделяет явно перечисленные объекты; неизвестные id
// молча пропускаются
func (m *Manager) SelectByIDs(ctx context.Context, ids []string, mode Mode) (*Result, error) {
	var candidates []string
	for _, id := range ids {
		if _, ok := m.view.Get(id); ok {
			candidates = append(candidates, id)
		}
	}
	return m.applyMode(ctx, candidates, mode)
}

// SelectNext циклически выделяет следующий объект в порядке создания
// относительно последнего выделенного
func (m *Manager) SelectNext(ctx context.Context) (bool, string, error) {
	return m.selectAdjacent(ctx, 1)
}

// SelectPrev циклически выделяет предыдущий объект
func (m *Manager) SelectPrev(ctx context.Context) (bool, string, error) {
	return m.selectAdjacent(ctx, -1)
}

// SetTool меняет активный инструмент. Переход на инструмент создания
// снимает и разлочивает выделение: новый объект не должен наследовать
// чужие lease.
func (m *Manager) SetTool(ctx context.Context, tool Tool) error {
	m.mu.Lock()
	m.tool = tool
	m.mu.Unlock()

	if tool.IsCreation() {
		return m.Clear(ctx)
	}
	return nil
}

// Tool возвращает активный инструмент
func (m *Manager) Tool() Tool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tool
}

// Clear снимает выделение со всех объектов, освобождая их lease.
// Ошибки release по отдельным объектам логируются и не прерывают очистку.
func (m *Manager) Clear(ctx context.Context) error {
	for _, id := range m.Selected() {
		if err := m.deselectOne(ctx, id); err != nil {
			m.logger.Warn("failed to release deselected object",
				"object_id", id, "error", err)
		}
	}
	return nil
}

// selectOne захватывает lock и добавляет объект в выделение
func (m *Manager) selectOne(ctx context.Context, id string) (bool, string, error) {
	if m.IsSelected(id) {
		return true, "", nil
	}

	acquired, holder, err := m.locks.Acquire(ctx, id, m.userID)
	if err != nil {
		return false, "", fmt.Errorf("select %s: %w", id, err)
	}
	if !acquired {
		m.logger.Debug("selection refused, object locked",
			"object_id", id, "holder", holder)
		return false, holder, nil
	}

	m.mu.Lock()
	if _, exists := m.byID[id]; !exists {
		m.selected = append(m.selected, id)
		m.byID[id] = struct{}{}
	}
	m.mu.Unlock()
	return true, "", nil
}

// deselectOne убирает объект из выделения и освобождает его lease
func (m *Manager) deselectOne(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, exists := m.byID[id]; !exists {
		m.mu.Unlock()
		return nil
	}
	delete(m.byID, id)
	for i, sid := range m.selected {
		if sid == id {
			m.selected = append(m.selected[:i], m.selected[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	if _, err := m.locks.Release(ctx, id, m.userID); err != nil {
		return fmt.Errorf("deselect %s: %w", id, err)
	}
	return nil
}

// applyMode сводит кандидатов с текущим выделением по mode
func (m *Manager) applyMode(ctx context.Context, candidates []string, mode Mode) (*Result, error) {
	result := &Result{Blocked: make(map[string]string)}

	if mode == ModeRemove {
		for _, id := range candidates {
			if err := m.deselectOne(ctx, id); err != nil {
				return nil, err
			}
		}
		result.Selected = m.Selected()
		return result, nil
	}

	if mode == ModeReplace {
		wanted := make(map[string]struct{}, len(candidates))
		for _, id := range candidates {
			wanted[id] = struct{}{}
		}
		// Снимаем только то, что не попадает в новое выделение:
		// пересечение сохраняет уже захваченные lease
		for _, id := range m.Selected() {
			if _, keep := wanted[id]; !keep {
				if err := m.deselectOne(ctx, id); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, id := range candidates {
		ok, holder, err := m.selectOne(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.Blocked[id] = holder
		}
	}

	result.Selected = m.Selected()
	return result, nil
}

// selectAdjacent циклический переход по порядку создания
func (m *Manager) selectAdjacent(ctx context.Context, step int) (bool, string, error) {
	objects := m.view.Objects()
	if len(objects) == 0 {
		return false, "", nil
	}

	// Якорь — последний выделенный объект; без выделения идем с края
	anchor := -1
	m.mu.Lock()
	if len(m.selected) > 0 {
		last := m.selected[len(m.selected)-1]
		for i, obj := range objects {
			if obj.ID == last {
				anchor = i
				break
			}
		}
	}
	m.mu.Unlock()

	var index int
	switch {
	case anchor >= 0:
		index = (anchor + step + len(objects)) % len(objects)
	case step > 0:
		index = 0
	default:
		index = len(objects) - 1
	}

	if err := m.Clear(ctx); err != nil {
		return false, "", err
	}
	return m.selectOne(ctx, objects[index].ID)
}

// pointInPolygon ray casting: четность пересечений луча вправо
func pointInPolygon(p Point, polygon []Point) bool {
	inside := false
	n := len(polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := polygon[i], polygon[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}
