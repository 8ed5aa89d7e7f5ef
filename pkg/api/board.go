package api

import "time"

// Object представляет объект холста в wire-формате board-протокола.
// Отражает models.CanvasObject; конвертация в internal/models/convert.go.
type Object struct {
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
	ID         string     `json:"id"`
	Type       string     `json:"type"` // rectangle | circle | text
	Color      string     `json:"color"`
	Text       string     `json:"text,omitempty"`
	CreatedBy  string     `json:"created_by"`
	ModifiedBy string     `json:"modified_by"`
	LockedBy   string     `json:"locked_by,omitempty"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width,omitempty"`
	Height     float64    `json:"height,omitempty"`
	Radius     float64    `json:"radius,omitempty"`
	Rotation   float64    `json:"rotation"`
	Version    int64      `json:"version"`
}

// Операции board-протокола (client -> server)
const (
	BoardOpCreate      = "create"
	BoardOpUpdate      = "update"
	BoardOpBatchUpdate = "batch_update"
	BoardOpDelete      = "delete"
)

// Коды ошибок board-протокола
const (
	BoardErrNotFound        = "not_found"
	BoardErrVersionConflict = "version_conflict"
	BoardErrInvalid         = "invalid"
	BoardErrInternal        = "internal"
)

// BoardObjectWrite одна compare-and-swap запись объекта: сервер применяет
// Next только если текущая версия объекта равна BaseVersion.
type BoardObjectWrite struct {
	Next        *Object `json:"next"`
	ObjectID    string  `json:"object_id"`
	BaseVersion int64   `json:"base_version"`
}

// BoardRequest представляет один mutation-фрейм от клиента.
// RequestID генерируется клиентом и возвращается в ответе для корреляции.
type BoardRequest struct {
	Object    *Object            `json:"object,omitempty"` // для create
	Write     *BoardObjectWrite  `json:"write,omitempty"`  // для update
	RequestID string             `json:"request_id"`
	Op        string             `json:"op"`
	ObjectID  string             `json:"object_id,omitempty"` // для delete
	Batch     []BoardObjectWrite `json:"batch,omitempty"`     // для batch_update, all-or-nothing
}

// BoardResponse представляет ответ сервера на mutation-фрейм.
// При version_conflict в Current возвращается актуальное состояние объекта,
// чтобы клиент мог перезапустить свою транзакцию без отдельного чтения.
type BoardResponse struct {
	Object    *Object `json:"object,omitempty"`  // результат успешной записи
	Current   *Object `json:"current,omitempty"` // актуальное состояние при конфликте
	RequestID string  `json:"request_id"`
	Code      string  `json:"code,omitempty"` // один из BoardErr* при OK == false
	Error     string  `json:"error,omitempty"`
	OK        bool    `json:"ok"`
}

// Виды server -> client сообщений
const (
	BoardMessageSnapshot = "snapshot"
	BoardMessageResponse = "response"
)

// BoardServerMessage envelope для сообщений сервера: либо полный снапшот
// доски (рассылается всем подписчикам после каждой зафиксированной мутации
// и один раз сразу после подключения), либо ответ на конкретный запрос.
type BoardServerMessage struct {
	Response *BoardResponse `json:"response,omitempty"`
	Kind     string         `json:"kind"`
	Objects  []Object       `json:"objects,omitempty"` // для snapshot
}
