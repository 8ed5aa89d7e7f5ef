package models

import "time"

// ObjectType тип объекта на холсте
type ObjectType string

const (
	ObjectTypeRectangle ObjectType = "rectangle" // прямоугольник (x,y = левый верхний угол)
	ObjectTypeCircle    ObjectType = "circle"    // круг (x,y = центр)
	ObjectTypeText      ObjectType = "text"      // текстовый блок (x,y = левый верхний угол)
)

// Valid сообщает, известен ли тип объекта
func (t ObjectType) Valid() bool {
	switch t {
	case ObjectTypeRectangle, ObjectTypeCircle, ObjectTypeText:
		return true
	}
	return false
}

// Геометрические границы холста и объектов.
// Применяются в каждой точке мутации (silent clamp, не ошибка).
const (
	// CanvasExtent размер холста по обеим осям: координаты лежат в [0..5000]
	CanvasExtent = 5000.0
	// MinObjectSize минимальный линейный размер объекта
	MinObjectSize = 50.0
	// MaxObjectSize максимальный линейный размер объекта
	MaxObjectSize = 1000.0
)

// Параметры lock lease
const (
	// LockLeaseDuration время жизни lease на редактирование объекта.
	// Сравнение идёт по локальным часам клиента против lockedAt из store,
	// поэтому точность ограничена рассинхронизацией часов клиентов.
	LockLeaseDuration = 30 * time.Second
	// LockSweepInterval интервал фонового сборщика просроченных lease
	LockSweepInterval = 5 * time.Second
)

// CanvasObject представляет один объект на общем холсте.
// Авторитетная копия живёт в remote store; version монотонно растёт
// при каждом принятом store-ом обновлении.
type CanvasObject struct {
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LockedAt   *time.Time `json:"locked_at,omitempty"` // nil тогда и только тогда, когда LockedBy == ""
	ID         string     `json:"id"`                  // UUID, выделяется store boundary до создания, неизменяемый
	Type       ObjectType `json:"type"`
	Color      string     `json:"color"` // #rrggbb
	Text       string     `json:"text,omitempty"` // содержимое для ObjectTypeText
	CreatedBy  string     `json:"created_by"`
	ModifiedBy string     `json:"modified_by"`
	LockedBy   string     `json:"locked_by,omitempty"` // user id держателя lease, "" = не заблокирован
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width,omitempty"`  // rectangle/text
	Height     float64    `json:"height,omitempty"` // rectangle/text
	Radius     float64    `json:"radius,omitempty"` // circle
	Rotation   float64    `json:"rotation"`         // градусы, нормализовано в [0,360)
	Version    int64      `json:"version"`          // начинается с 1, строго растёт
}

// Clone создает глубокую копию объекта
func (o *CanvasObject) Clone() *CanvasObject {
	clone := *o
	if o.LockedAt != nil {
		lockedAt := *o.LockedAt
		clone.LockedAt = &lockedAt
	}
	return &clone
}

// IsLocked возвращает true, если на объекте установлен lease (возможно просроченный)
func (o *CanvasObject) IsLocked() bool {
	return o.LockedBy != "" && o.LockedAt != nil
}

// IsLockExpired возвращает true, если lease установлен и просрочен на момент now
func (o *CanvasObject) IsLockExpired(now time.Time) bool {
	if !o.IsLocked() {
		return false
	}
	return now.Sub(*o.LockedAt) > LockLeaseDuration
}

// LockHeldBy возвращает true, если userID держит действующий (непросроченный)
// lease на объект на момент now
func (o *CanvasObject) LockHeldBy(userID string, now time.Time) bool {
	return o.IsLocked() && o.LockedBy == userID && !o.IsLockExpired(now)
}

// SetLock устанавливает оба поля lease
func (o *CanvasObject) SetLock(userID string, at time.Time) {
	o.LockedBy = userID
	o.LockedAt = &at
}

// ClearLock очищает оба поля lease
func (o *CanvasObject) ClearLock() {
	o.LockedBy = ""
	o.LockedAt = nil
}

// Bounds возвращает axis-aligned рамку объекта (x,y = левый верхний угол)
func (o *CanvasObject) Bounds() (x, y, w, h float64) {
	switch o.Type {
	case ObjectTypeCircle:
		return o.X - o.Radius, o.Y - o.Radius, 2 * o.Radius, 2 * o.Radius
	default:
		return o.X, o.Y, o.Width, o.Height
	}
}

// Center возвращает центральную точку объекта
func (o *CanvasObject) Center() (cx, cy float64) {
	switch o.Type {
	case ObjectTypeCircle:
		return o.X, o.Y
	default:
		return o.X + o.Width/2, o.Y + o.Height/2
	}
}

// ClampSize обрезает линейный размер в диапазон [MinObjectSize, MaxObjectSize]
func ClampSize(v float64) float64 {
	if v < MinObjectSize {
		return MinObjectSize
	}
	if v > MaxObjectSize {
		return MaxObjectSize
	}
	return v
}

// NormalizeRotation приводит угол к диапазону [0,360)
func NormalizeRotation(deg float64) float64 {
	deg = deg - 360*float64(int(deg/360))
	if deg < 0 {
		deg += 360
	}
	return deg
}

// ClampToCanvas обрезает геометрию объекта так, чтобы он целиком лежал
// в пределах холста, а размеры — в допустимой полосе.
// Радиус круга ограничен половиной MaxObjectSize (диаметр = линейный размер).
func (o *CanvasObject) ClampToCanvas() {
	switch o.Type {
	case ObjectTypeCircle:
		o.Radius = ClampSize(2*o.Radius) / 2
		o.X = clampRange(o.X, o.Radius, CanvasExtent-o.Radius)
		o.Y = clampRange(o.Y, o.Radius, CanvasExtent-o.Radius)
	default:
		o.Width = ClampSize(o.Width)
		o.Height = ClampSize(o.Height)
		o.X = clampRange(o.X, 0, CanvasExtent-o.Width)
		o.Y = clampRange(o.Y, 0, CanvasExtent-o.Height)
	}
	o.Rotation = NormalizeRotation(o.Rotation)
}

func clampRange(v, lo, hi float64) float64 {
	if hi < lo {
		// объект шире холста быть не может (MaxObjectSize < CanvasExtent),
		// но на всякий случай сводим к нижней границе
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
