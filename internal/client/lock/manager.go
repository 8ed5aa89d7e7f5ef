// Package lock реализует per-object editing lease поверх атомарных
// транзакций remote store. Взаимное исключение обеспечивает только
// транзакция read-check-write: клиент никогда не считает локальное
// чтение все еще действительным к моменту записи.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/boardsync/internal/client/store"
	"github.com/iudanet/boardsync/internal/models"
)

// ObjectLister дает менеджеру read-only доступ к текущему набору
// объектов (реализуется state container-ом движка)
type ObjectLister interface {
	Objects() []*models.CanvasObject
}

// errLockHeld внутренний сигнал отмены транзакции: действующий чужой lease
type errLockHeld struct {
	holder string
}

func (e errLockHeld) Error() string {
	return fmt.Sprintf("object locked by %s", e.holder)
}

// errNotHolder внутренний сигнал отмены: lease принадлежит другому пользователю
var errNotHolder = errors.New("lock held by another user")

// Manager управляет acquire/release/sweep жизненным циклом lease
type Manager struct {
	store  store.ObjectStore
	view   ObjectLister
	logger *slog.Logger
	now    func() time.Time
}

// NewManager создает lock manager
func NewManager(objectStore store.ObjectStore, view ObjectLister, logger *slog.Logger) *Manager {
	return &Manager{
		store:  objectStore,
		view:   view,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock подменяет источник времени. Используется в тестах lease-логики.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Acquire пытается захватить lease на объект атомарной транзакцией.
// Выигрывает, если объект не заблокирован, заблокирован самим userID
// или чужой lease просрочен. При действующем чужом lease возвращает
// (false, holder, nil) без мутации. store.ErrObjectNotFound пробрасывается.
func (m *Manager) Acquire(ctx context.Context, objectID, userID string) (acquired bool, holder string, err error) {
	_, err = m.store.Update(ctx, objectID, func(current *models.CanvasObject) (*models.CanvasObject, error) {
		now := m.now()
		if current.IsLocked() && current.LockedBy != userID && !current.IsLockExpired(now) {
			return nil, errLockHeld{holder: current.LockedBy}
		}
		current.SetLock(userID, now)
		return current, nil
	})

	var held errLockHeld
	if errors.As(err, &held) {
		m.logger.Debug("lock acquire refused", "object_id", objectID, "holder", held.holder)
		return false, held.holder, nil
	}
	if err != nil {
		return false, "", fmt.Errorf("acquire lock on %s: %w", objectID, err)
	}

	m.logger.Debug("lock acquired", "object_id", objectID, "user_id", userID)
	return true, "", nil
}

// Release снимает lease, если его держит userID. Отсутствующий объект
// считается уже освобожденным (true, nil). Чужой lease не снимается
// никогда — возвращается (false, nil).
func (m *Manager) Release(ctx context.Context, objectID, userID string) (bool, error) {
	_, err := m.store.Update(ctx, objectID, func(current *models.CanvasObject) (*models.CanvasObject, error) {
		if current.LockedBy != userID {
			return nil, errNotHolder
		}
		current.ClearLock()
		return current, nil
	})

	switch {
	case errors.Is(err, store.ErrObjectNotFound):
		// Удаление терминально, lock неявно аннулирован
		return true, nil
	case errors.Is(err, errNotHolder):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("release lock on %s: %w", objectID, err)
	}

	m.logger.Debug("lock released", "object_id", objectID, "user_id", userID)
	return true, nil
}

// SweepExpired снимает просроченные чужие lease от имени их держателей.
// Ошибки по отдельным объектам логируются и не прерывают проход.
// Возвращает количество снятых lease.
func (m *Manager) SweepExpired(ctx context.Context, excludeUserID string) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	reclaimed := 0
	for _, obj := range m.view.Objects() {
		if !obj.IsLocked() || obj.LockedBy == excludeUserID || !obj.IsLockExpired(m.now()) {
			continue
		}

		ok, err := m.sweepOne(ctx, obj.ID, obj.LockedBy)
		if err != nil {
			m.logger.Warn("failed to sweep expired lock",
				"object_id", obj.ID,
				"holder", obj.LockedBy,
				"error", err)
			continue
		}
		if ok {
			reclaimed++
		}
	}

	if reclaimed > 0 {
		m.logger.Info("reclaimed expired locks", "count", reclaimed)
	}
	return reclaimed, nil
}

// sweepOne снимает один lease, перепроверяя держателя и просроченность
// внутри транзакции: снапшот мог устареть, а держатель — продлить lease
func (m *Manager) sweepOne(ctx context.Context, objectID, holder string) (bool, error) {
	_, err := m.store.Update(ctx, objectID, func(current *models.CanvasObject) (*models.CanvasObject, error) {
		if current.LockedBy != holder || !current.IsLockExpired(m.now()) {
			return nil, errNotHolder
		}
		current.ClearLock()
		return current, nil
	})

	switch {
	case errors.Is(err, store.ErrObjectNotFound):
		return false, nil
	case errors.Is(err, errNotHolder):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// RunSweeper запускает фоновый проход каждые models.LockSweepInterval
// до отмены контекста. Вызывается после установления соединения.
func (m *Manager) RunSweeper(ctx context.Context, excludeUserID string) {
	ticker := time.NewTicker(models.LockSweepInterval)
	defer ticker.Stop()

	m.logger.Info("lock sweeper started", "interval", models.LockSweepInterval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("lock sweeper stopped")
			return
		case <-ticker.C:
			if _, err := m.SweepExpired(ctx, excludeUserID); err != nil {
				m.logger.Warn("lock sweep failed", "error", err)
			}
		}
	}
}
