package hub

import (
	"log/slog"
	"sync"

	"github.com/iudanet/boardsync/pkg/api"
)

// Hub рассылает полный снапшот доски всем подписанным соединениям.
// Снапшоты коалесцируются: если подписчик не успел прочитать предыдущий,
// он получит только самый свежий (промежуточные состояния неинтересны).
type Hub struct {
	logger *slog.Logger
	subs   map[int]chan []api.Object
	nextID int
	mu     sync.Mutex
}

// New создает новый hub
func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[int]chan []api.Object),
	}
}

// Subscribe регистрирует нового подписчика и возвращает его id и канал.
// Канал закрывается только в Unsubscribe.
func (h *Hub) Subscribe() (int, <-chan []api.Object) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	// Буфер 1: хранит последний непрочитанный снапшот
	ch := make(chan []api.Object, 1)
	h.subs[id] = ch

	h.logger.Debug("hub subscriber added", "id", id, "total", len(h.subs))
	return id, ch
}

// Unsubscribe снимает подписку и закрывает канал подписчика
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(ch)

	h.logger.Debug("hub subscriber removed", "id", id, "total", len(h.subs))
}

// Broadcast доставляет снапшот всем подписчикам не блокируясь:
// при заполненном буфере устаревший снапшот вытесняется свежим
func (h *Hub) Broadcast(objects []api.Object) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- objects:
		default:
			// Вытесняем непрочитанный снапшот
			select {
			case <-ch:
			default:
			}
			ch <- objects
		}
	}
}

// Subscribers возвращает текущее количество подписчиков
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
