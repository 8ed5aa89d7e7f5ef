package session

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/boardsync/internal/models"
)

// ErrSessionNotFound возвращается когда локальная сессия отсутствует
// (пользователь не залогинен на этом устройстве)
var ErrSessionNotFound = errors.New("session not found")

// Session локальная сессия пользователя на этом устройстве.
// Токены хранятся в файле с правами 0600, сервер хранит только их хеши.
type Session struct {
	Username     string    `json:"username"`
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	PublicSalt   string    `json:"public_salt"` // base64, нужен для повторной деривации auth key
	ExpiresAt    time.Time `json:"expires_at"`  // момент истечения access token
}

//go:generate moq -out session_mock.go . Storage

// Storage локальное хранилище клиента: сессия, идентификатор устройства
// и кеш последнего снапшота доски для быстрого первого рендера
type Storage interface {
	// SaveSession сохраняет сессию (перезаписывает существующую)
	SaveSession(ctx context.Context, sess *Session) error

	// GetSession возвращает сохраненную сессию
	// Возвращает ErrSessionNotFound если сессии нет
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession удаляет сессию (logout)
	DeleteSession(ctx context.Context) error

	// IsAuthenticated проверяет наличие сессии с неистекшим access token
	IsAuthenticated(ctx context.Context) (bool, error)

	// NodeID возвращает стабильный идентификатор этого устройства,
	// генерирует и сохраняет новый при первом вызове
	NodeID(ctx context.Context) (string, error)

	// SaveSnapshot кеширует последний полученный снапшот доски
	SaveSnapshot(ctx context.Context, objects []*models.CanvasObject) error

	// GetSnapshot возвращает кешированный снапшот, nil если кеша нет
	GetSnapshot(ctx context.Context) ([]*models.CanvasObject, error)
}
