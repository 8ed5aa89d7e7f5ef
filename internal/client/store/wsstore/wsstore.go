// Package wsstore реализует ObjectStore поверх websocket-соединения с
// board-сервером. Update — это CAS-цикл: клиент шлет ожидаемую версию,
// при конфликте сервер возвращает актуальный объект и транзакционная
// функция перезапускается на нем. Разрыв соединения лечится
// переподключением с экспоненциальным backoff и повторной подпиской.
package wsstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iudanet/boardsync/internal/client/store"
	"github.com/iudanet/boardsync/internal/models"
	"github.com/iudanet/boardsync/pkg/api"
)

// maxCASAttempts предел перезапусков транзакции при version conflict
const maxCASAttempts = 5

// requestTimeout ожидание ответа сервера на один mutation-фрейм
const requestTimeout = 10 * time.Second

// Store websocket-клиент board-протокола
type Store struct {
	url    string
	token  string
	logger *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex // сериализация исходящих фреймов

	pending map[string]*pendingRequest

	subscribers  map[int]store.SnapshotFunc
	lastSnapshot []*models.CanvasObject
	haveSnapshot bool
	nextSubID    int

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// New подключается к board-серверу и запускает цикл чтения.
// token — JWT access token, уходит в заголовке Authorization.
func New(ctx context.Context, url, token string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		url:         url,
		token:       token,
		logger:      logger,
		pending:     make(map[string]*pendingRequest),
		subscribers: make(map[int]store.SnapshotFunc),
		done:        make(chan struct{}),
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to board server: %w", err)
	}
	s.conn = conn

	go s.readLoop(conn)
	return s, nil
}

var _ store.ObjectStore = (*Store)(nil)

// AllocateID выделяет UUID будущего объекта
func (s *Store) AllocateID() string {
	return uuid.New().String()
}

// Create создает объект на сервере
func (s *Store) Create(ctx context.Context, obj *models.CanvasObject) error {
	wire := models.ObjectToAPI(obj)
	resp, err := s.roundTrip(ctx, &api.BoardRequest{
		Op:     api.BoardOpCreate,
		Object: &wire,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return responseError("create", resp)
	}
	return nil
}

// Update CAS-цикл: транзакционная функция выполняется на последнем
// известном состоянии, запись уходит с его версией; при конфликте
// сервер присылает актуальный объект и цикл повторяется
func (s *Store) Update(ctx context.Context, id string, fn store.UpdateFunc) (*models.CanvasObject, error) {
	current, err := s.snapshotObject(id)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		next, err := fn(current.Clone())
		if err != nil {
			return nil, err
		}
		next.ID = current.ID
		wire := models.ObjectToAPI(next)

		resp, err := s.roundTrip(ctx, &api.BoardRequest{
			Op: api.BoardOpUpdate,
			Write: &api.BoardObjectWrite{
				ObjectID:    id,
				BaseVersion: current.Version,
				Next:        &wire,
			},
		})
		if err != nil {
			return nil, err
		}

		if resp.OK {
			if resp.Object == nil {
				return nil, fmt.Errorf("update %s: ok response without object", id)
			}
			return models.ObjectFromAPI(*resp.Object), nil
		}

		switch resp.Code {
		case api.BoardErrNotFound:
			return nil, store.ErrObjectNotFound
		case api.BoardErrVersionConflict:
			if resp.Current == nil {
				return nil, fmt.Errorf("update %s: conflict response without current state", id)
			}
			s.logger.Debug("version conflict, retrying transaction",
				"object_id", id, "attempt", attempt+1)
			current = models.ObjectFromAPI(*resp.Current)
		default:
			return nil, responseError("update", resp)
		}
	}

	return nil, fmt.Errorf("update %s: %w after %d attempts", id, store.ErrVersionConflict, maxCASAttempts)
}

// BatchUpdate all-or-nothing запись нескольких объектов одним фреймом.
// При конфликте любого участника сервер откатывает весь batch; клиент
// перечитывает актуальные состояния и повторяет.
func (s *Store) BatchUpdate(ctx context.Context, updates map[string]store.UpdateFunc) error {
	currents := make(map[string]*models.CanvasObject, len(updates))
	for id := range updates {
		obj, err := s.snapshotObject(id)
		if err != nil {
			return err
		}
		currents[id] = obj
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		writes := make([]api.BoardObjectWrite, 0, len(updates))
		for id, fn := range updates {
			current := currents[id]
			next, err := fn(current.Clone())
			if err != nil {
				return err
			}
			next.ID = current.ID
			wire := models.ObjectToAPI(next)
			writes = append(writes, api.BoardObjectWrite{
				ObjectID:    id,
				BaseVersion: current.Version,
				Next:        &wire,
			})
		}

		resp, err := s.roundTrip(ctx, &api.BoardRequest{
			Op:    api.BoardOpBatchUpdate,
			Batch: writes,
		})
		if err != nil {
			return err
		}

		if resp.OK {
			return nil
		}

		switch resp.Code {
		case api.BoardErrNotFound:
			return store.ErrObjectNotFound
		case api.BoardErrVersionConflict:
			// Конфликтующий объект приходит в Current, остальные
			// перечитываются из последнего снапшота
			if resp.Current != nil {
				refreshed := models.ObjectFromAPI(*resp.Current)
				currents[refreshed.ID] = refreshed
			}
			for id := range updates {
				if obj, err := s.snapshotObject(id); err == nil {
					if obj.Version > currents[id].Version {
						currents[id] = obj
					}
				}
			}
		default:
			return responseError("batch update", resp)
		}
	}

	return fmt.Errorf("batch update: %w after %d attempts", store.ErrVersionConflict, maxCASAttempts)
}

// Delete удаляет объект на сервере
func (s *Store) Delete(ctx context.Context, id string) error {
	resp, err := s.roundTrip(ctx, &api.BoardRequest{
		Op:       api.BoardOpDelete,
		ObjectID: id,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		if resp.Code == api.BoardErrNotFound {
			return store.ErrObjectNotFound
		}
		return responseError("delete", resp)
	}
	return nil
}

// Subscribe регистрирует получателя снапшотов. Последний известный
// снапшот доставляется сразу, если уже был получен от сервера.
func (s *Store) Subscribe(fn store.SnapshotFunc) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	deliver := s.haveSnapshot
	snapshot := s.lastSnapshot
	s.mu.Unlock()

	if deliver {
		fn(cloneSnapshot(snapshot))
	}

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Close разрывает соединение и отклоняет все ожидающие запросы
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	conn := s.conn
	s.failPendingLocked(store.ErrStoreClosed)
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// dial подключается с экспоненциальным backoff
func (s *Store) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	var conn *websocket.Conn
	operation := func() error {
		c, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
		if err != nil {
			s.logger.Warn("board server dial failed", "url", s.url, "error", err)
			return err
		}
		conn = c
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	s.logger.Info("connected to board server", "url", s.url)
	return conn, nil
}

// readLoop читает фреймы сервера до разрыва, затем переподключается
func (s *Store) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(conn, err)
			return
		}

		var msg api.BoardServerMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("malformed server frame", "error", err)
			continue
		}

		switch msg.Kind {
		case api.BoardMessageSnapshot:
			s.applySnapshot(msg.Objects)
		case api.BoardMessageResponse:
			s.resolveResponse(msg.Response)
		default:
			s.logger.Warn("unknown server frame kind", "kind", msg.Kind)
		}
	}
}

// handleDisconnect переподключение после разрыва. Запросы, ждавшие
// ответа по старому соединению, завершаются ошибкой: их исход неизвестен,
// решение о повторе принимает вызывающий.
func (s *Store) handleDisconnect(old *websocket.Conn, cause error) {
	_ = old.Close()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.failPendingLocked(fmt.Errorf("connection lost: %w", cause))
	s.mu.Unlock()

	s.logger.Warn("board connection lost, reconnecting", "error", cause)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, err := s.dial(ctx)
	if err != nil {
		s.logger.Error("reconnect abandoned", "error", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	// Сервер шлет полный снапшот сразу после подключения, отдельная
	// resubscribe-команда не нужна
	go s.readLoop(conn)
}

// roundTrip отправляет фрейм и ждет коррелированный ответ
func (s *Store) roundTrip(ctx context.Context, req *api.BoardRequest) (*api.BoardResponse, error) {
	req.RequestID = uuid.New().String()

	respCh := make(chan *api.BoardResponse, 1)
	errCh := make(chan error, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, store.ErrStoreClosed
	}
	s.pending[req.RequestID] = &pendingRequest{resp: respCh, err: errCh}
	conn := s.conn
	s.mu.Unlock()

	s.writeMu.Lock()
	err := conn.WriteJSON(req)
	s.writeMu.Unlock()
	if err != nil {
		s.removePending(req.RequestID)
		return nil, fmt.Errorf("send %s frame: %w", req.Op, err)
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		return resp, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		s.removePending(req.RequestID)
		return nil, ctx.Err()
	case <-timer.C:
		s.removePending(req.RequestID)
		return nil, fmt.Errorf("%s frame: no response within %s", req.Op, requestTimeout)
	}
}

// applySnapshot кеширует снапшот и рассылает его подписчикам
func (s *Store) applySnapshot(objects []api.Object) {
	snapshot := models.ObjectsFromAPI(objects)

	s.mu.Lock()
	s.lastSnapshot = snapshot
	s.haveSnapshot = true
	subscribers := make([]store.SnapshotFunc, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(cloneSnapshot(snapshot))
	}
}

// resolveResponse доставляет ответ ожидающему запросу
func (s *Store) resolveResponse(resp *api.BoardResponse) {
	if resp == nil {
		return
	}

	s.mu.Lock()
	p, ok := s.pending[resp.RequestID]
	delete(s.pending, resp.RequestID)
	s.mu.Unlock()

	if !ok {
		// Ответ на запрос, который уже отвалился по таймауту
		s.logger.Debug("orphan response", "request_id", resp.RequestID)
		return
	}
	p.resp <- resp
}

// snapshotObject берет объект из последнего снапшота
func (s *Store) snapshotObject(id string) (*models.CanvasObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}
	for _, obj := range s.lastSnapshot {
		if obj.ID == id {
			return obj.Clone(), nil
		}
	}
	return nil, store.ErrObjectNotFound
}

func (s *Store) removePending(requestID string) {
	s.mu.Lock()
	delete(s.pending, requestID)
	s.mu.Unlock()
}

// failPendingLocked отклоняет все ожидающие запросы; s.mu должен быть взят
func (s *Store) failPendingLocked(err error) {
	for id, p := range s.pending {
		p.err <- err
		delete(s.pending, id)
	}
}

type pendingRequest struct {
	resp chan *api.BoardResponse
	err  chan error
}

func cloneSnapshot(snapshot []*models.CanvasObject) []*models.CanvasObject {
	out := make([]*models.CanvasObject, len(snapshot))
	for i, obj := range snapshot {
		out[i] = obj.Clone()
	}
	return out
}

func responseError(op string, resp *api.BoardResponse) error {
	return fmt.Errorf("%s rejected: %s (%s)", op, resp.Error, resp.Code)
}
