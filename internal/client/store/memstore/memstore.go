// Package memstore реализует ObjectStore в памяти процесса.
// Служит авторитетным store для локального режима клиента и
// симулированным remote в тестах движка синхронизации.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/boardsync/internal/client/store"
	"github.com/iudanet/boardsync/internal/models"
)

// Store представляет in-memory object store с fan-out снапшотов.
// Подписчики вызываются синхронно после каждой зафиксированной мутации;
// это сохраняет детерминизм однопоточной событийной модели клиента.
type Store struct {
	objects     map[string]*models.CanvasObject
	subscribers map[int]store.SnapshotFunc
	order       []string // порядок создания, определяет порядок снапшота
	mu          sync.Mutex
	nextSubID   int
	closed      bool
}

// New создает пустой in-memory store
func New() *Store {
	return &Store{
		objects:     make(map[string]*models.CanvasObject),
		subscribers: make(map[int]store.SnapshotFunc),
	}
}

var _ store.ObjectStore = (*Store)(nil)

// AllocateID выделяет UUID будущего объекта
func (s *Store) AllocateID() string {
	return uuid.New().String()
}

// Create создает объект. Version принудительно 1, lock очищен.
func (s *Store) Create(ctx context.Context, obj *models.CanvasObject) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return store.ErrStoreClosed
	}

	if _, exists := s.objects[obj.ID]; exists {
		s.mu.Unlock()
		return store.ErrObjectExists
	}

	stored := obj.Clone()
	stored.Version = 1
	stored.ClearLock()
	stored.ClampToCanvas()
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.objects[stored.ID] = stored
	s.order = append(s.order, stored.ID)

	subscribers, snapshot := s.fanoutLocked()
	s.mu.Unlock()

	notify(subscribers, snapshot)
	return nil
}

// Update выполняет атомарную read-modify-write транзакцию
func (s *Store) Update(ctx context.Context, id string, fn store.UpdateFunc) (*models.CanvasObject, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, store.ErrStoreClosed
	}

	committed, err := s.applyLocked(id, fn)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	subscribers, snapshot := s.fanoutLocked()
	s.mu.Unlock()

	notify(subscribers, snapshot)
	return committed.Clone(), nil
}

// BatchUpdate выполняет all-or-nothing транзакцию над несколькими объектами
func (s *Store) BatchUpdate(ctx context.Context, updates map[string]store.UpdateFunc) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return store.ErrStoreClosed
	}

	// Сначала вычисляем все следующие состояния, ничего не фиксируя
	staged := make(map[string]*models.CanvasObject, len(updates))
	for id, fn := range updates {
		current, exists := s.objects[id]
		if !exists {
			s.mu.Unlock()
			return store.ErrObjectNotFound
		}

		next, err := fn(current.Clone())
		if err != nil {
			s.mu.Unlock()
			return err
		}

		next.ID = current.ID
		next.Version = current.Version + 1
		next.UpdatedAt = time.Now()
		next.ClampToCanvas()
		staged[id] = next
	}

	for id, next := range staged {
		s.objects[id] = next
	}

	subscribers, snapshot := s.fanoutLocked()
	s.mu.Unlock()

	notify(subscribers, snapshot)
	return nil
}

// Delete удаляет объект без tombstone
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return store.ErrStoreClosed
	}

	if _, exists := s.objects[id]; !exists {
		s.mu.Unlock()
		return store.ErrObjectNotFound
	}

	delete(s.objects, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	subscribers, snapshot := s.fanoutLocked()
	s.mu.Unlock()

	notify(subscribers, snapshot)
	return nil
}

// Subscribe регистрирует получателя снапшотов; первый снапшот
// доставляется синхронно до возврата
func (s *Store) Subscribe(fn store.SnapshotFunc) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	fn(snapshot)

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Close закрывает store; дальнейшие мутации возвращают ErrStoreClosed
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.subscribers = make(map[int]store.SnapshotFunc)
	s.mu.Unlock()
}

// applyLocked выполняет одну транзакцию; s.mu должен быть взят
func (s *Store) applyLocked(id string, fn store.UpdateFunc) (*models.CanvasObject, error) {
	current, exists := s.objects[id]
	if !exists {
		return nil, store.ErrObjectNotFound
	}

	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}

	// id неизменяем, версию назначает store
	next.ID = current.ID
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now()
	next.ClampToCanvas()

	s.objects[id] = next
	return next, nil
}

// snapshotLocked строит копию текущего набора в порядке создания
func (s *Store) snapshotLocked() []*models.CanvasObject {
	snapshot := make([]*models.CanvasObject, 0, len(s.order))
	for _, id := range s.order {
		if obj, ok := s.objects[id]; ok {
			snapshot = append(snapshot, obj.Clone())
		}
	}
	return snapshot
}

func (s *Store) fanoutLocked() ([]store.SnapshotFunc, []*models.CanvasObject) {
	subscribers := make([]store.SnapshotFunc, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	return subscribers, s.snapshotLocked()
}

// notify вызывается без удержания s.mu, чтобы подписчик мог
// синхронно начать новую транзакцию из callback-а
func notify(subscribers []store.SnapshotFunc, snapshot []*models.CanvasObject) {
	for _, fn := range subscribers {
		fn(snapshot)
	}
}
