package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/iudanet/boardsync/internal/models"
	"github.com/iudanet/boardsync/internal/server/hub"
	"github.com/iudanet/boardsync/internal/server/storage"
	"github.com/iudanet/boardsync/internal/validation"
	"github.com/iudanet/boardsync/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// UserIDKey ключ для хранения user_id в контексте
	UserIDKey contextKey = "user_id"
	// UsernameKey ключ для хранения username в контексте
	UsernameKey contextKey = "username"
)

// GetUserID извлекает user_id из контекста запроса
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUsername извлекает username из контекста запроса
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// BoardHandler обслуживает websocket-подключения к доске: поток снапшотов
// и mutation-фреймы create/update/batch_update/delete
type BoardHandler struct {
	logger  *slog.Logger
	storage storage.BoardStorage
	hub     *hub.Hub

	upgrader websocket.Upgrader
}

// NewBoardHandler создает новый board handler
func NewBoardHandler(logger *slog.Logger, boardStorage storage.BoardStorage, h *hub.Hub) *BoardHandler {
	return &BoardHandler{
		logger:  logger,
		storage: boardStorage,
		hub:     h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Доска открыта любому авторизованному клиенту, CORS решает reverse proxy
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS обрабатывает GET /api/v1/board/ws
// Апгрейдит соединение, сразу шлет полный снапшот и далее держит
// двунаправленный поток: запросы клиента и рассылки hub-а
func (h *BoardHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отправил HTTP-ошибку клиенту
		h.logger.WarnContext(ctx, "websocket upgrade failed", slog.Any("error", err))
		return
	}

	h.logger.InfoContext(ctx, "board client connected", slog.String("user_id", userID))

	subID, snapshots := h.hub.Subscribe()
	send := make(chan api.BoardServerMessage, 16)
	done := make(chan struct{})

	// Единственный писатель в соединение
	go func() {
		defer conn.Close()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					h.logger.Debug("board write failed", "user_id", userID, "error", err)
					return
				}
			case objects, ok := <-snapshots:
				if !ok {
					return
				}
				msg := api.BoardServerMessage{Kind: api.BoardMessageSnapshot, Objects: objects}
				if err := conn.WriteJSON(msg); err != nil {
					h.logger.Debug("board write failed", "user_id", userID, "error", err)
					return
				}
			case <-done:
				return
			}
		}
	}()

	defer func() {
		close(done)
		h.hub.Unsubscribe(subID)
		conn.Close()
		h.logger.InfoContext(ctx, "board client disconnected", slog.String("user_id", userID))
	}()

	// Стартовый снапшот: клиент строит начальное состояние без отдельного запроса
	objects, err := h.snapshot(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build initial snapshot", slog.Any("error", err))
		return
	}
	send <- api.BoardServerMessage{Kind: api.BoardMessageSnapshot, Objects: objects}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("board read failed", "user_id", userID, "error", err)
			}
			return
		}

		var req api.BoardRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.logger.WarnContext(ctx, "malformed board request", slog.Any("error", err))
			continue
		}

		resp, mutated := h.handleRequest(ctx, userID, &req)

		select {
		case send <- api.BoardServerMessage{Kind: api.BoardMessageResponse, Response: &resp}:
		case <-done:
			return
		}

		if mutated {
			if objects, err := h.snapshot(ctx); err != nil {
				h.logger.ErrorContext(ctx, "failed to build snapshot", slog.Any("error", err))
			} else {
				h.hub.Broadcast(objects)
			}
		}
	}
}

// handleRequest выполняет один mutation-фрейм.
// Второй результат сообщает, изменилось ли состояние доски.
func (h *BoardHandler) handleRequest(ctx context.Context, userID string, req *api.BoardRequest) (api.BoardResponse, bool) {
	switch req.Op {
	case api.BoardOpCreate:
		return h.handleCreate(ctx, userID, req)
	case api.BoardOpUpdate:
		return h.handleUpdate(ctx, userID, req)
	case api.BoardOpBatchUpdate:
		return h.handleBatchUpdate(ctx, userID, req)
	case api.BoardOpDelete:
		return h.handleDelete(ctx, req)
	default:
		return errorResponse(req.RequestID, api.BoardErrInvalid, "unknown op: "+req.Op), false
	}
}

func (h *BoardHandler) handleCreate(ctx context.Context, userID string, req *api.BoardRequest) (api.BoardResponse, bool) {
	if req.Object == nil {
		return errorResponse(req.RequestID, api.BoardErrInvalid, "object is required"), false
	}

	obj := models.ObjectFromAPI(*req.Object)
	if obj.ID == "" {
		return errorResponse(req.RequestID, api.BoardErrInvalid, "object id is required"), false
	}
	if !obj.Type.Valid() {
		return errorResponse(req.RequestID, api.BoardErrInvalid, "unknown object type: "+string(obj.Type)), false
	}
	if err := validation.ValidateColor(obj.Color); err != nil {
		return errorResponse(req.RequestID, api.BoardErrInvalid, err.Error()), false
	}

	// Авторство определяет сервер, а не клиентский payload
	obj.CreatedBy = userID
	obj.ModifiedBy = userID
	obj.ClampToCanvas()

	if err := h.storage.CreateObject(ctx, obj); err != nil {
		if errors.Is(err, storage.ErrObjectAlreadyExists) {
			return errorResponse(req.RequestID, api.BoardErrInvalid, "object already exists"), false
		}
		h.logger.ErrorContext(ctx, "failed to create object", slog.Any("error", err))
		return errorResponse(req.RequestID, api.BoardErrInternal, "internal error"), false
	}

	created, err := h.storage.GetObject(ctx, obj.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read created object", slog.Any("error", err))
		return errorResponse(req.RequestID, api.BoardErrInternal, "internal error"), true
	}

	wire := models.ObjectToAPI(created)
	return api.BoardResponse{RequestID: req.RequestID, OK: true, Object: &wire}, true
}

func (h *BoardHandler) handleUpdate(ctx context.Context, userID string, req *api.BoardRequest) (api.BoardResponse, bool) {
	if req.Write == nil || req.Write.Next == nil {
		return errorResponse(req.RequestID, api.BoardErrInvalid, "write is required"), false
	}

	next := models.ObjectFromAPI(*req.Write.Next)
	next.ModifiedBy = userID
	next.ClampToCanvas()

	updated, err := h.storage.UpdateObject(ctx, storage.ObjectWrite{
		Next:        next,
		BaseVersion: req.Write.BaseVersion,
	})
	if err != nil {
		return h.writeErrorResponse(ctx, req.RequestID, err), false
	}

	wire := models.ObjectToAPI(updated)
	return api.BoardResponse{RequestID: req.RequestID, OK: true, Object: &wire}, true
}

func (h *BoardHandler) handleBatchUpdate(ctx context.Context, userID string, req *api.BoardRequest) (api.BoardResponse, bool) {
	if len(req.Batch) == 0 {
		return errorResponse(req.RequestID, api.BoardErrInvalid, "batch is empty"), false
	}

	writes := make([]storage.ObjectWrite, 0, len(req.Batch))
	for _, w := range req.Batch {
		if w.Next == nil {
			return errorResponse(req.RequestID, api.BoardErrInvalid, "batch write without next"), false
		}
		next := models.ObjectFromAPI(*w.Next)
		next.ModifiedBy = userID
		next.ClampToCanvas()
		writes = append(writes, storage.ObjectWrite{Next: next, BaseVersion: w.BaseVersion})
	}

	if err := h.storage.BatchUpdateObjects(ctx, writes); err != nil {
		return h.writeErrorResponse(ctx, req.RequestID, err), false
	}

	return api.BoardResponse{RequestID: req.RequestID, OK: true}, true
}

func (h *BoardHandler) handleDelete(ctx context.Context, req *api.BoardRequest) (api.BoardResponse, bool) {
	if req.ObjectID == "" {
		return errorResponse(req.RequestID, api.BoardErrInvalid, "object_id is required"), false
	}

	if err := h.storage.DeleteObject(ctx, req.ObjectID); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return errorResponse(req.RequestID, api.BoardErrNotFound, "object not found"), false
		}
		h.logger.ErrorContext(ctx, "failed to delete object", slog.Any("error", err))
		return errorResponse(req.RequestID, api.BoardErrInternal, "internal error"), false
	}

	return api.BoardResponse{RequestID: req.RequestID, OK: true}, true
}

// writeErrorResponse мапит ошибки storage в коды board-протокола.
// При version conflict в ответ кладется актуальное состояние объекта.
func (h *BoardHandler) writeErrorResponse(ctx context.Context, requestID string, err error) api.BoardResponse {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return errorResponse(requestID, api.BoardErrNotFound, "object not found")
	}

	var conflict *storage.VersionConflictError
	if errors.As(err, &conflict) {
		resp := errorResponse(requestID, api.BoardErrVersionConflict, conflict.Error())
		if conflict.Current != nil {
			wire := models.ObjectToAPI(conflict.Current)
			resp.Current = &wire
		}
		return resp
	}

	h.logger.ErrorContext(ctx, "board write failed", slog.Any("error", err))
	return errorResponse(requestID, api.BoardErrInternal, "internal error")
}

func (h *BoardHandler) snapshot(ctx context.Context) ([]api.Object, error) {
	objects, err := h.storage.ListObjects(ctx)
	if err != nil {
		return nil, err
	}
	return models.ObjectsToAPI(objects), nil
}

func errorResponse(requestID, code, message string) api.BoardResponse {
	return api.BoardResponse{
		RequestID: requestID,
		OK:        false,
		Code:      code,
		Error:     message,
	}
}
