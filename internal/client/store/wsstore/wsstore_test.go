package wsstore

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/boardsync/internal/client/store"
	"github.com/iudanet/boardsync/internal/models"
	"github.com/iudanet/boardsync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// boardServer скриптуемый websocket-сервер board-протокола для тестов
type boardServer struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu      sync.Mutex
	objects map[string]*models.CanvasObject
	order   []string
	// onUpdate перехватывает update-фреймы до стандартной обработки;
	// возвращает ответ или nil для обычного CAS-пути
	onUpdate func(req *api.BoardRequest) *api.BoardResponse
	headers  []http.Header
}

func newBoardServer(t *testing.T) *boardServer {
	return &boardServer{
		t:       t,
		objects: make(map[string]*models.CanvasObject),
	}
}

func (b *boardServer) seed(objects ...*models.CanvasObject) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, obj := range objects {
		b.objects[obj.ID] = obj.Clone()
		b.order = append(b.order, obj.ID)
	}
}

func (b *boardServer) handler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.headers = append(b.headers, r.Header.Clone())
	b.mu.Unlock()

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	b.sendSnapshot(conn)

	for {
		var req api.BoardRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		resp := b.handle(&req)
		if err := conn.WriteJSON(api.BoardServerMessage{
			Kind:     api.BoardMessageResponse,
			Response: resp,
		}); err != nil {
			return
		}
		if resp.OK {
			b.sendSnapshot(conn)
		}
	}
}

func (b *boardServer) sendSnapshot(conn *websocket.Conn) {
	b.mu.Lock()
	snapshot := make([]*models.CanvasObject, 0, len(b.order))
	for _, id := range b.order {
		if obj, ok := b.objects[id]; ok {
			snapshot = append(snapshot, obj.Clone())
		}
	}
	b.mu.Unlock()

	_ = conn.WriteJSON(api.BoardServerMessage{
		Kind:    api.BoardMessageSnapshot,
		Objects: models.ObjectsToAPI(snapshot),
	})
}

func (b *boardServer) handle(req *api.BoardRequest) *api.BoardResponse {
	b.mu.Lock()
	defer b.mu.Unlock()

	resp := &api.BoardResponse{RequestID: req.RequestID}

	switch req.Op {
	case api.BoardOpCreate:
		obj := models.ObjectFromAPI(*req.Object)
		obj.Version = 1
		b.objects[obj.ID] = obj
		b.order = append(b.order, obj.ID)
		resp.OK = true
	case api.BoardOpUpdate:
		if b.onUpdate != nil {
			if custom := b.onUpdate(req); custom != nil {
				custom.RequestID = req.RequestID
				return custom
			}
		}
		current, ok := b.objects[req.Write.ObjectID]
		if !ok {
			resp.Code = api.BoardErrNotFound
			return resp
		}
		if current.Version != req.Write.BaseVersion {
			wire := models.ObjectToAPI(current)
			resp.Code = api.BoardErrVersionConflict
			resp.Current = &wire
			return resp
		}
		next := models.ObjectFromAPI(*req.Write.Next)
		next.Version = current.Version + 1
		b.objects[next.ID] = next
		wire := models.ObjectToAPI(next)
		resp.OK = true
		resp.Object = &wire
	case api.BoardOpBatchUpdate:
		for _, write := range req.Batch {
			current, ok := b.objects[write.ObjectID]
			if !ok {
				resp.Code = api.BoardErrNotFound
				return resp
			}
			if current.Version != write.BaseVersion {
				wire := models.ObjectToAPI(current)
				resp.Code = api.BoardErrVersionConflict
				resp.Current = &wire
				return resp
			}
		}
		for _, write := range req.Batch {
			next := models.ObjectFromAPI(*write.Next)
			next.Version = b.objects[write.ObjectID].Version + 1
			b.objects[next.ID] = next
		}
		resp.OK = true
	case api.BoardOpDelete:
		if _, ok := b.objects[req.ObjectID]; !ok {
			resp.Code = api.BoardErrNotFound
			return resp
		}
		delete(b.objects, req.ObjectID)
		resp.OK = true
	}
	return resp
}

func setup(t *testing.T, b *boardServer) *Store {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(b.handler))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	s, err := New(context.Background(), url, "test-token", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func rect(id string, x float64, version int64) *models.CanvasObject {
	return &models.CanvasObject{
		ID:      id,
		Type:    models.ObjectTypeRectangle,
		X:       x,
		Y:       100,
		Width:   100,
		Height:  100,
		Color:   "#aabbcc",
		Version: version,
	}
}

// waitSnapshot ждет снапшот, удовлетворяющий предикату
func waitSnapshot(t *testing.T, s *Store, pred func([]*models.CanvasObject) bool) {
	t.Helper()

	got := make(chan struct{}, 1)
	unsub := s.Subscribe(func(snapshot []*models.CanvasObject) {
		if pred(snapshot) {
			select {
			case got <- struct{}{}:
			default:
			}
		}
	})
	defer unsub()

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("expected snapshot never arrived")
	}
}

func TestSubscribe_InitialSnapshotOnConnect(t *testing.T) {
	b := newBoardServer(t)
	b.seed(rect("obj-1", 100, 1))
	s := setup(t, b)

	waitSnapshot(t, s, func(snapshot []*models.CanvasObject) bool {
		return len(snapshot) == 1 && snapshot[0].ID == "obj-1"
	})
}

func TestDial_SendsBearerToken(t *testing.T) {
	b := newBoardServer(t)
	s := setup(t, b)
	defer s.Close()

	waitSnapshot(t, s, func([]*models.CanvasObject) bool { return true })

	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.headers)
	assert.Equal(t, "Bearer test-token", b.headers[0].Get("Authorization"))
}

func TestCreate_ObjectAppearsInSnapshot(t *testing.T) {
	b := newBoardServer(t)
	s := setup(t, b)

	require.NoError(t, s.Create(context.Background(), rect("new-obj", 200, 0)))

	waitSnapshot(t, s, func(snapshot []*models.CanvasObject) bool {
		return len(snapshot) == 1 && snapshot[0].ID == "new-obj" && snapshot[0].Version == 1
	})
}

func TestUpdate_HappyPath(t *testing.T) {
	b := newBoardServer(t)
	b.seed(rect("obj-1", 100, 1))
	s := setup(t, b)
	waitSnapshot(t, s, func(snapshot []*models.CanvasObject) bool { return len(snapshot) == 1 })

	updated, err := s.Update(context.Background(), "obj-1", func(cur *models.CanvasObject) (*models.CanvasObject, error) {
		cur.X = 300
		return cur, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 300.0, updated.X)
	assert.Equal(t, int64(2), updated.Version)
}

func TestUpdate_CASRetryRerunsTransactionOnCurrent(t *testing.T) {
	b := newBoardServer(t)
	b.seed(rect("obj-1", 100, 1))

	// Первая попытка отвергается: сервер делает вид, что объект уже
	// на версии 7 с другим X
	var rejected bool
	b.onUpdate = func(req *api.BoardRequest) *api.BoardResponse {
		if rejected {
			return nil
		}
		rejected = true
		wire := models.ObjectToAPI(rect("obj-1", 250, 7))
		return &api.BoardResponse{Code: api.BoardErrVersionConflict, Current: &wire}
	}
	b.mu.Lock()
	b.objects["obj-1"] = rect("obj-1", 250, 7)
	b.mu.Unlock()

	s := setup(t, b)
	waitSnapshot(t, s, func(snapshot []*models.CanvasObject) bool { return len(snapshot) == 1 })

	var runs int
	var seenX []float64
	updated, err := s.Update(context.Background(), "obj-1", func(cur *models.CanvasObject) (*models.CanvasObject, error) {
		runs++
		seenX = append(seenX, cur.X)
		cur.X += 10
		return cur, nil
	})
	require.NoError(t, err)

	// Транзакция перезапущена на присланном сервером состоянии
	assert.Equal(t, 2, runs)
	assert.Equal(t, 250.0, seenX[len(seenX)-1])
	assert.Equal(t, 260.0, updated.X)
	assert.Equal(t, int64(8), updated.Version)
}

func TestUpdate_NotFoundWithoutRoundTrip(t *testing.T) {
	b := newBoardServer(t)
	s := setup(t, b)
	waitSnapshot(t, s, func([]*models.CanvasObject) bool { return true })

	_, err := s.Update(context.Background(), "ghost", func(cur *models.CanvasObject) (*models.CanvasObject, error) {
		return cur, nil
	})
	assert.ErrorIs(t, err, store.ErrObjectNotFound)
}

func TestBatchUpdate_AllOrNothing(t *testing.T) {
	b := newBoardServer(t)
	b.seed(rect("a", 100, 1), rect("b", 300, 1))
	s := setup(t, b)
	waitSnapshot(t, s, func(snapshot []*models.CanvasObject) bool { return len(snapshot) == 2 })

	move := func(dx float64) store.UpdateFunc {
		return func(cur *models.CanvasObject) (*models.CanvasObject, error) {
			cur.X += dx
			return cur, nil
		}
	}
	err := s.BatchUpdate(context.Background(), map[string]store.UpdateFunc{
		"a": move(50),
		"b": move(50),
	})
	require.NoError(t, err)

	waitSnapshot(t, s, func(snapshot []*models.CanvasObject) bool {
		byID := make(map[string]*models.CanvasObject, len(snapshot))
		for _, obj := range snapshot {
			byID[obj.ID] = obj
		}
		return byID["a"] != nil && byID["a"].X == 150 && byID["b"] != nil && byID["b"].X == 350
	})
}

func TestDelete_MissingMapsToNotFound(t *testing.T) {
	b := newBoardServer(t)
	s := setup(t, b)
	waitSnapshot(t, s, func([]*models.CanvasObject) bool { return true })

	assert.ErrorIs(t, s.Delete(context.Background(), "ghost"), store.ErrObjectNotFound)
}

func TestClose_RejectsFurtherRequests(t *testing.T) {
	b := newBoardServer(t)
	s := setup(t, b)
	require.NoError(t, s.Close())

	err := s.Create(context.Background(), rect("x", 100, 0))
	assert.ErrorIs(t, err, store.ErrStoreClosed)
}
