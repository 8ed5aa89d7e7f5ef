// Package throttle реализует debounced-coalescing очередь записей:
// всплеск мутаций одного ключа сворачивается в одну исходящую запись
// на окно, с явными flush и cancel как первоклассными операциями.
package throttle

import (
	"context"
	"sync"
	"time"
)

// Окна коалессации по умолчанию
const (
	// PositionWindow окно для обновлений позиции при drag
	PositionWindow = 100 * time.Millisecond
	// GeometryWindow окно для resize/rotate и batch-записей
	GeometryWindow = 300 * time.Millisecond
)

// MergeFunc сворачивает накопленный payload со следующим.
// Для models.ObjectUpdate это Merge: позднее поле выигрывает.
type MergeFunc[V any] func(pending, next V) V

// SendFunc отправляет свернутый payload в remote store.
// Ошибка не ретраится: она отдается обработчику ошибок и flush-ожидателям.
type SendFunc[K comparable, V any] func(ctx context.Context, key K, payload V) error

// ErrorFunc уведомляет владельца о проваленной отправке (для отката)
type ErrorFunc[K comparable, V any] func(key K, payload V, err error)

// Coalescer гарантирует не более одной in-flight записи на ключ.
// Schedule сливает payload в накопленный и взводит один таймер на ключ;
// по срабатыванию уходит ровно одна запись с последним свернутым payload.
type Coalescer[K comparable, V any] struct {
	entries map[K]*entry[V]
	merge   MergeFunc[V]
	send    SendFunc[K, V]
	onError ErrorFunc[K, V]
	window  time.Duration
	mu      sync.Mutex
	closed  bool
}

// cycle одна отправка: done закрывается после записи err
type cycle struct {
	done chan struct{}
	err  error
}

// entry состояние одного ключа.
// Жизненный цикл: pending (таймер взведен) -> in-flight (отправка) ->
// снова pending, если за время отправки накопился новый payload.
type entry[V any] struct {
	timer      *time.Timer
	inflight   *cycle // nil, когда отправка не идет
	payload    V
	hasPending bool
}

// NewCoalescer создает coalescer с заданным окном
func NewCoalescer[K comparable, V any](window time.Duration, merge MergeFunc[V], send SendFunc[K, V]) *Coalescer[K, V] {
	return &Coalescer[K, V]{
		entries: make(map[K]*entry[V]),
		merge:   merge,
		send:    send,
		window:  window,
	}
}

// OnSendError устанавливает обработчик проваленных отправок.
// Вызывается вне внутреннего mutex-а.
func (c *Coalescer[K, V]) OnSendError(fn ErrorFunc[K, V]) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// Schedule сливает payload в накопленный для key и взводит таймер,
// если он еще не взведен. Если по ключу идет отправка, новый payload
// копится и уйдет следующим окном после ее завершения.
func (c *Coalescer[K, V]) Schedule(key K, payload V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	e, exists := c.entries[key]
	if !exists {
		e = &entry[V]{}
		c.entries[key] = e
	}

	if e.hasPending {
		e.payload = c.merge(e.payload, payload)
	} else {
		e.payload = payload
		e.hasPending = true
	}

	if e.inflight == nil && e.timer == nil {
		e.timer = time.AfterFunc(c.window, func() { c.fire(key) })
	}
}

// Cancel отбрасывает невыстреливший payload ключа, ничего не отправляя.
// Уже идущую отправку не прерывает.
func (c *Coalescer[K, V]) Cancel(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		return
	}

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.hasPending = false
	var zero V
	e.payload = zero

	if e.inflight == nil {
		delete(c.entries, key)
	}
}

// Flush немедленно отправляет накопленные payload-ы ключей и ждет
// завершения как их, так и уже идущих отправок. Возвращает первую
// ошибку отправки (или ctx.Err при отмене ожидания).
func (c *Coalescer[K, V]) Flush(ctx context.Context, keys ...K) error {
	waits := make([]*cycle, 0, len(keys))

	c.mu.Lock()
	for _, key := range keys {
		e, exists := c.entries[key]
		if !exists {
			continue
		}

		if e.hasPending && e.inflight == nil {
			if e.timer != nil {
				e.timer.Stop()
				e.timer = nil
			}
			c.startSendLocked(key, e)
		}

		if e.inflight != nil {
			waits = append(waits, e.inflight)
		}
	}
	c.mu.Unlock()

	var firstErr error
	for _, cy := range waits {
		select {
		case <-cy.done:
			if cy.err != nil && firstErr == nil {
				firstErr = cy.err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return firstErr
}

// Pending возвращает true, если для key есть невыстреливший payload
// или идет отправка
func (c *Coalescer[K, V]) Pending(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	return exists && (e.hasPending || e.inflight != nil)
}

// Close останавливает все таймеры и отбрасывает накопленные payload-ы.
// Идущие отправки довершаются.
func (c *Coalescer[K, V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for key, e := range c.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		e.hasPending = false
		if e.inflight == nil {
			delete(c.entries, key)
		}
	}
}

// fire срабатывание таймера ключа
func (c *Coalescer[K, V]) fire(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists || !e.hasPending || e.inflight != nil {
		return
	}
	e.timer = nil
	c.startSendLocked(key, e)
}

// startSendLocked переводит ключ из pending в in-flight и запускает
// отправку. c.mu должен быть взят.
func (c *Coalescer[K, V]) startSendLocked(key K, e *entry[V]) {
	payload := e.payload
	var zero V
	e.payload = zero
	e.hasPending = false

	cy := &cycle{done: make(chan struct{})}
	e.inflight = cy

	go func() {
		err := c.send(context.Background(), key, payload)

		c.mu.Lock()
		cy.err = err
		e.inflight = nil
		onError := c.onError

		// За время отправки мог накопиться новый payload — взводим
		// следующее окно, иначе ключ очищается
		if e.hasPending && !c.closed {
			e.timer = time.AfterFunc(c.window, func() { c.fire(key) })
		} else if !e.hasPending {
			delete(c.entries, key)
		}
		c.mu.Unlock()

		close(cy.done)

		if err != nil && onError != nil {
			onError(key, payload, err)
		}
	}()
}
