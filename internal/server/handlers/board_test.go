package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/boardsync/internal/models"
	"github.com/iudanet/boardsync/internal/server/hub"
	"github.com/iudanet/boardsync/internal/server/storage"
	"github.com/iudanet/boardsync/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// mockBoardStorage is an in-memory BoardStorage for handler tests
type mockBoardStorage struct {
	objects map[string]*models.CanvasObject
	order   []string
	mu      sync.Mutex
}

func newMockBoardStorage() *mockBoardStorage {
	return &mockBoardStorage{objects: make(map[string]*models.CanvasObject)}
}

func (m *mockBoardStorage) CreateObject(ctx context.Context, obj *models.CanvasObject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[obj.ID]; exists {
		return storage.ErrObjectAlreadyExists
	}
	stored := obj.Clone()
	stored.Version = 1
	m.objects[obj.ID] = stored
	m.order = append(m.order, obj.ID)
	return nil
}

func (m *mockBoardStorage) GetObject(ctx context.Context, id string) (*models.CanvasObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return obj.Clone(), nil
}

func (m *mockBoardStorage) ListObjects(ctx context.Context) ([]*models.CanvasObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.CanvasObject, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.objects[id].Clone())
	}
	return result, nil
}

func (m *mockBoardStorage) applyLocked(write storage.ObjectWrite) (*models.CanvasObject, error) {
	current, ok := m.objects[write.Next.ID]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	if current.Version != write.BaseVersion {
		return nil, &storage.VersionConflictError{ID: write.Next.ID, Current: current.Clone()}
	}
	updated := write.Next.Clone()
	updated.Version = current.Version + 1
	m.objects[updated.ID] = updated
	return updated.Clone(), nil
}

func (m *mockBoardStorage) UpdateObject(ctx context.Context, write storage.ObjectWrite) (*models.CanvasObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(write)
}

func (m *mockBoardStorage) BatchUpdateObjects(ctx context.Context, writes []storage.ObjectWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Сначала валидируем все версии, потом применяем
	for _, w := range writes {
		current, ok := m.objects[w.Next.ID]
		if !ok {
			return storage.ErrObjectNotFound
		}
		if current.Version != w.BaseVersion {
			return &storage.VersionConflictError{ID: w.Next.ID, Current: current.Clone()}
		}
	}
	for _, w := range writes {
		if _, err := m.applyLocked(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockBoardStorage) DeleteObject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[id]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// authStub подкладывает user_id в контекст вместо полного JWT middleware
func authStub(userID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func setupBoardTest(t *testing.T) (*mockBoardStorage, *websocket.Conn) {
	t.Helper()

	boardStorage := newMockBoardStorage()
	handler := NewBoardHandler(setupTestLogger(), boardStorage, hub.New(setupTestLogger()))

	srv := httptest.NewServer(authStub("user-1", http.HandlerFunc(handler.ServeWS)))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return boardStorage, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) api.BoardServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg api.BoardServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readResponse пропускает снапшоты до ответа на запрос
func readResponse(t *testing.T, conn *websocket.Conn) *api.BoardResponse {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg.Kind == api.BoardMessageResponse {
			return msg.Response
		}
	}
	t.Fatal("no response received")
	return nil
}

// readSnapshot пропускает ответы до снапшота
func readSnapshot(t *testing.T, conn *websocket.Conn) []api.Object {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg.Kind == api.BoardMessageSnapshot {
			return msg.Objects
		}
	}
	t.Fatal("no snapshot received")
	return nil
}

func wireRect(id string, x float64) *api.Object {
	return &api.Object{
		ID:     id,
		Type:   "rectangle",
		Color:  "#ff0000",
		X:      x,
		Y:      100,
		Width:  100,
		Height: 100,
	}
}

func TestBoardHandler_InitialSnapshot(t *testing.T) {
	boardStorage := newMockBoardStorage()
	obj := models.ObjectFromAPI(*wireRect("pre-existing", 50))
	require.NoError(t, boardStorage.CreateObject(context.Background(), obj))

	handler := NewBoardHandler(setupTestLogger(), boardStorage, hub.New(setupTestLogger()))
	srv := httptest.NewServer(authStub("user-1", http.HandlerFunc(handler.ServeWS)))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Снапшот приходит сразу после подключения, без запроса
	snapshot := readSnapshot(t, conn)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "pre-existing", snapshot[0].ID)
	assert.Equal(t, int64(1), snapshot[0].Version)
}

func TestBoardHandler_CreateObject(t *testing.T) {
	_, conn := setupBoardTest(t)
	readSnapshot(t, conn) // стартовый снапшот

	req := api.BoardRequest{
		RequestID: "req-1",
		Op:        api.BoardOpCreate,
		Object:    wireRect("rect-1", 100),
	}
	require.NoError(t, conn.WriteJSON(req))

	resp := readResponse(t, conn)
	assert.True(t, resp.OK)
	assert.Equal(t, "req-1", resp.RequestID)
	require.NotNil(t, resp.Object)
	assert.Equal(t, int64(1), resp.Object.Version)
	assert.Equal(t, "user-1", resp.Object.CreatedBy, "авторство назначает сервер")

	// После фиксации приходит снапшот с объектом
	snapshot := readSnapshot(t, conn)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "rect-1", snapshot[0].ID)
}

func TestBoardHandler_CreateObject_Invalid(t *testing.T) {
	_, conn := setupBoardTest(t)
	readSnapshot(t, conn)

	tests := []struct {
		mutate func(o *api.Object)
		name   string
	}{
		{name: "missing id", mutate: func(o *api.Object) { o.ID = "" }},
		{name: "unknown type", mutate: func(o *api.Object) { o.Type = "triangle" }},
		{name: "bad color", mutate: func(o *api.Object) { o.Color = "red" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := wireRect("obj-x", 100)
			tt.mutate(obj)
			req := api.BoardRequest{RequestID: "req-bad", Op: api.BoardOpCreate, Object: obj}
			require.NoError(t, conn.WriteJSON(req))

			resp := readResponse(t, conn)
			assert.False(t, resp.OK)
			assert.Equal(t, api.BoardErrInvalid, resp.Code)
		})
	}
}

func TestBoardHandler_UpdateObject_CAS(t *testing.T) {
	boardStorage, conn := setupBoardTest(t)
	readSnapshot(t, conn)

	obj := models.ObjectFromAPI(*wireRect("rect-1", 100))
	require.NoError(t, boardStorage.CreateObject(context.Background(), obj))

	next := wireRect("rect-1", 250)
	req := api.BoardRequest{
		RequestID: "req-upd",
		Op:        api.BoardOpUpdate,
		Write:     &api.BoardObjectWrite{ObjectID: "rect-1", Next: next, BaseVersion: 1},
	}
	require.NoError(t, conn.WriteJSON(req))

	resp := readResponse(t, conn)
	assert.True(t, resp.OK)
	require.NotNil(t, resp.Object)
	assert.Equal(t, int64(2), resp.Object.Version)
	assert.Equal(t, 250.0, resp.Object.X)
}

func TestBoardHandler_UpdateObject_VersionConflictCarriesCurrent(t *testing.T) {
	boardStorage, conn := setupBoardTest(t)
	readSnapshot(t, conn)

	ctx := context.Background()
	obj := models.ObjectFromAPI(*wireRect("rect-1", 100))
	require.NoError(t, boardStorage.CreateObject(ctx, obj))

	// Конкурирующая запись поднимает версию до 2
	winner := models.ObjectFromAPI(*wireRect("rect-1", 500))
	_, err := boardStorage.UpdateObject(ctx, storage.ObjectWrite{Next: winner, BaseVersion: 1})
	require.NoError(t, err)

	stale := wireRect("rect-1", 111)
	req := api.BoardRequest{
		RequestID: "req-stale",
		Op:        api.BoardOpUpdate,
		Write:     &api.BoardObjectWrite{ObjectID: "rect-1", Next: stale, BaseVersion: 1},
	}
	require.NoError(t, conn.WriteJSON(req))

	resp := readResponse(t, conn)
	assert.False(t, resp.OK)
	assert.Equal(t, api.BoardErrVersionConflict, resp.Code)
	require.NotNil(t, resp.Current)
	assert.Equal(t, int64(2), resp.Current.Version)
	assert.Equal(t, 500.0, resp.Current.X)
}

func TestBoardHandler_UpdateObject_NotFound(t *testing.T) {
	_, conn := setupBoardTest(t)
	readSnapshot(t, conn)

	req := api.BoardRequest{
		RequestID: "req-missing",
		Op:        api.BoardOpUpdate,
		Write:     &api.BoardObjectWrite{ObjectID: "ghost", Next: wireRect("ghost", 100), BaseVersion: 1},
	}
	require.NoError(t, conn.WriteJSON(req))

	resp := readResponse(t, conn)
	assert.False(t, resp.OK)
	assert.Equal(t, api.BoardErrNotFound, resp.Code)
}

func TestBoardHandler_BatchUpdate_AllOrNothing(t *testing.T) {
	boardStorage, conn := setupBoardTest(t)
	readSnapshot(t, conn)

	ctx := context.Background()
	require.NoError(t, boardStorage.CreateObject(ctx, models.ObjectFromAPI(*wireRect("b-1", 100))))
	require.NoError(t, boardStorage.CreateObject(ctx, models.ObjectFromAPI(*wireRect("b-2", 200))))

	req := api.BoardRequest{
		RequestID: "req-batch",
		Op:        api.BoardOpBatchUpdate,
		Batch: []api.BoardObjectWrite{
			{ObjectID: "b-1", Next: wireRect("b-1", 150), BaseVersion: 1},
			{ObjectID: "b-2", Next: wireRect("b-2", 250), BaseVersion: 99},
		},
	}
	require.NoError(t, conn.WriteJSON(req))

	resp := readResponse(t, conn)
	assert.False(t, resp.OK)
	assert.Equal(t, api.BoardErrVersionConflict, resp.Code)

	// Первая запись не применилась
	obj, err := boardStorage.GetObject(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, obj.X)
	assert.Equal(t, int64(1), obj.Version)
}

func TestBoardHandler_Delete(t *testing.T) {
	boardStorage, conn := setupBoardTest(t)
	readSnapshot(t, conn)

	ctx := context.Background()
	require.NoError(t, boardStorage.CreateObject(ctx, models.ObjectFromAPI(*wireRect("del-1", 100))))

	req := api.BoardRequest{RequestID: "req-del", Op: api.BoardOpDelete, ObjectID: "del-1"}
	require.NoError(t, conn.WriteJSON(req))

	resp := readResponse(t, conn)
	assert.True(t, resp.OK)

	snapshot := readSnapshot(t, conn)
	assert.Empty(t, snapshot)

	// Повторное удаление — not_found
	require.NoError(t, conn.WriteJSON(api.BoardRequest{RequestID: "req-del-2", Op: api.BoardOpDelete, ObjectID: "del-1"}))
	resp = readResponse(t, conn)
	assert.False(t, resp.OK)
	assert.Equal(t, api.BoardErrNotFound, resp.Code)
}

func TestBoardHandler_UnknownOp(t *testing.T) {
	_, conn := setupBoardTest(t)
	readSnapshot(t, conn)

	require.NoError(t, conn.WriteJSON(api.BoardRequest{RequestID: "req-x", Op: "explode"}))

	resp := readResponse(t, conn)
	assert.False(t, resp.OK)
	assert.Equal(t, api.BoardErrInvalid, resp.Code)
}

func TestBoardHandler_MutationBroadcastsToOtherClients(t *testing.T) {
	boardStorage := newMockBoardStorage()
	h := hub.New(setupTestLogger())
	handler := NewBoardHandler(setupTestLogger(), boardStorage, h)

	srv := httptest.NewServer(authStub("user-1", http.HandlerFunc(handler.ServeWS)))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn1.Close()
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn2.Close()

	readSnapshot(t, conn1)
	readSnapshot(t, conn2)

	req := api.BoardRequest{RequestID: "req-1", Op: api.BoardOpCreate, Object: wireRect("shared", 100)}
	require.NoError(t, conn1.WriteJSON(req))

	// Второй клиент видит мутацию первого через hub
	snapshot := readSnapshot(t, conn2)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "shared", snapshot[0].ID)
}

func TestBoardHandler_RejectsUnauthenticated(t *testing.T) {
	handler := NewBoardHandler(setupTestLogger(), newMockBoardStorage(), hub.New(setupTestLogger()))

	// Без auth middleware user_id в контексте нет
	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
