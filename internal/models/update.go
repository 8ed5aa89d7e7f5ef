package models

// ObjectUpdate частичное обновление объекта: заполненные (non-nil) поля
// заменяют соответствующие поля объекта. Используется и как payload для
// throttled-записей, где поздние обновления перекрывают ранние по каждому полю.
type ObjectUpdate struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Radius   *float64 `json:"radius,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	Color    *string  `json:"color,omitempty"`
	Text     *string  `json:"text,omitempty"`
}

// Merge накладывает later поверх u: поле из later выигрывает, если задано.
// Возвращает новый ObjectUpdate, аргументы не мутируются.
func (u ObjectUpdate) Merge(later ObjectUpdate) ObjectUpdate {
	merged := u
	if later.X != nil {
		merged.X = later.X
	}
	if later.Y != nil {
		merged.Y = later.Y
	}
	if later.Width != nil {
		merged.Width = later.Width
	}
	if later.Height != nil {
		merged.Height = later.Height
	}
	if later.Radius != nil {
		merged.Radius = later.Radius
	}
	if later.Rotation != nil {
		merged.Rotation = later.Rotation
	}
	if later.Color != nil {
		merged.Color = later.Color
	}
	if later.Text != nil {
		merged.Text = later.Text
	}
	return merged
}

// IsEmpty возвращает true, если ни одно поле не задано
func (u ObjectUpdate) IsEmpty() bool {
	return u.X == nil && u.Y == nil &&
		u.Width == nil && u.Height == nil &&
		u.Radius == nil && u.Rotation == nil &&
		u.Color == nil && u.Text == nil
}

// ApplyTo применяет заданные поля к объекту и обрезает геометрию
// к границам холста. Version и ModifiedBy не трогает — это
// ответственность точки записи.
func (u ObjectUpdate) ApplyTo(o *CanvasObject) {
	if u.X != nil {
		o.X = *u.X
	}
	if u.Y != nil {
		o.Y = *u.Y
	}
	if u.Width != nil {
		o.Width = *u.Width
	}
	if u.Height != nil {
		o.Height = *u.Height
	}
	if u.Radius != nil {
		o.Radius = *u.Radius
	}
	if u.Rotation != nil {
		o.Rotation = *u.Rotation
	}
	if u.Color != nil {
		o.Color = *u.Color
	}
	if u.Text != nil {
		o.Text = *u.Text
	}
	o.ClampToCanvas()
}

// Float64Ptr хелпер для построения частичных обновлений
func Float64Ptr(v float64) *float64 { return &v }

// StringPtr хелпер для построения частичных обновлений
func StringPtr(v string) *string { return &v }
