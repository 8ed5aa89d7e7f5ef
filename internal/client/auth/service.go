package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/boardsync/internal/client/api"
	"github.com/iudanet/boardsync/internal/client/session"
	"github.com/iudanet/boardsync/internal/crypto"
	"github.com/iudanet/boardsync/internal/validation"
	pkgapi "github.com/iudanet/boardsync/pkg/api"
)

// Service предоставляет функции авторизации.
// Auth key деривируется на клиенте из master password (Argon2id),
// на сервер уходит только SHA256 хеш от него
type Service struct {
	apiClient *api.Client
	sessions  session.Storage
}

// NewService создает новый сервис авторизации
func NewService(apiClient *api.Client, sessions session.Storage) *Service {
	return &Service{
		apiClient: apiClient,
		sessions:  sessions,
	}
}

// RegisterResult содержит результат регистрации
type RegisterResult struct {
	UserID     string // UUID пользователя
	Username   string
	PublicSalt string // public salt (base64)
}

// Register регистрирует нового пользователя.
// Сессию не создает: после регистрации нужен отдельный Login
func (s *Service) Register(ctx context.Context, username, displayName, masterPassword string) (*RegisterResult, error) {
	// Валидация входных данных
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return nil, fmt.Errorf("invalid display name: %w", err)
	}
	if err := validation.ValidatePassword(masterPassword); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	// 1. Генерируем публичную соль
	publicSaltBase64, err := crypto.GenerateSaltBase64()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	// 2. Деривируем auth key из master password
	authKey, err := crypto.DeriveAuthKeyFromBase64Salt(masterPassword, username, publicSaltBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auth key: %w", err)
	}

	// 3. Хешируем auth_key для отправки на сервер
	authKeyHash, err := crypto.HashAuthKey(authKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	// 4. Отправляем запрос на регистрацию
	req := pkgapi.RegisterRequest{
		Username:    username,
		DisplayName: displayName,
		AuthKeyHash: authKeyHash,
		PublicSalt:  publicSaltBase64,
	}

	resp, err := s.apiClient.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	return &RegisterResult{
		UserID:     resp.UserID,
		Username:   username,
		PublicSalt: publicSaltBase64,
	}, nil
}

// Login выполняет аутентификацию и сохраняет сессию локально
func (s *Service) Login(ctx context.Context, username, masterPassword string) (*session.Session, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(masterPassword); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	// 1. Получаем public_salt с сервера
	saltResp, err := s.apiClient.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get salt: %w", err)
	}

	// 2. Деривируем auth key из master password
	authKey, err := crypto.DeriveAuthKeyFromBase64Salt(masterPassword, username, saltResp.PublicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auth key: %w", err)
	}

	// 3. Хешируем auth_key
	authKeyHash, err := crypto.HashAuthKey(authKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	// 4. Отправляем запрос на логин
	req := pkgapi.LoginRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
	}

	resp, err := s.apiClient.Login(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	// 5. Сохраняем сессию
	sess := &session.Session{
		Username:     username,
		UserID:       resp.UserID,
		DisplayName:  resp.DisplayName,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		PublicSalt:   saltResp.PublicSalt,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}

	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return sess, nil
}

// Refresh обменивает сохраненный refresh token на новую пару токенов
// и обновляет сессию. Старый refresh token на сервере отзывается
func (s *Service) Refresh(ctx context.Context) (*session.Session, error) {
	sess, err := s.sessions.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	resp, err := s.apiClient.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	sess.AccessToken = resp.AccessToken
	sess.RefreshToken = resp.RefreshToken
	sess.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)

	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return sess, nil
}

// AccessToken возвращает действующий access token,
// при необходимости прозрачно обновляя его через refresh token
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	sess, err := s.sessions.GetSession(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}

	// Небольшой запас, чтобы токен не истек между проверкой и запросом
	if time.Now().Add(30 * time.Second).Before(sess.ExpiresAt) {
		return sess.AccessToken, nil
	}

	refreshed, err := s.Refresh(ctx)
	if err != nil {
		return "", err
	}

	return refreshed.AccessToken, nil
}

// Session возвращает текущую локальную сессию
func (s *Service) Session(ctx context.Context) (*session.Session, error) {
	return s.sessions.GetSession(ctx)
}

// IsAuthenticated проверяет наличие сессии с неистекшим access token
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	return s.sessions.IsAuthenticated(ctx)
}

// Logout выполняет выход из системы
// Удаляет локальную сессию и опционально уведомляет сервер
func (s *Service) Logout(ctx context.Context) error {
	// 1. Пытаемся получить текущий access token для отправки серверу
	sess, err := s.sessions.GetSession(ctx)
	if err != nil {
		// Если сессии нет, просто логируем и продолжаем
		slog.Debug("no session found during logout", "error", err)
	} else {
		// 2. Пытаемся уведомить сервер о logout (best effort)
		if logoutErr := s.apiClient.Logout(ctx, sess.AccessToken); logoutErr != nil {
			// Не прерываем процесс, если сервер недоступен
			slog.Warn("failed to logout on server", "error", logoutErr)
		}
	}

	// 3. Всегда удаляем локальную сессию, даже если сервер недоступен
	if err := s.sessions.DeleteSession(ctx); err != nil {
		return fmt.Errorf("failed to delete local session: %w", err)
	}

	return nil
}
