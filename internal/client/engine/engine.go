// Package engine реализует optimistic sync: локальные мутации применяются
// немедленно, уходят в remote store через throttled coalescer, а каждый
// snapshot-пуш подписки становится новым last-known-good. Remote всегда
// источник истины; локальное состояние — временное предсказание.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/boardsync/internal/client/store"
	"github.com/iudanet/boardsync/internal/client/throttle"
	"github.com/iudanet/boardsync/internal/models"
)

// NoticeKind классифицирует user-visible сигналы движка
type NoticeKind string

const (
	// NoticeWriteFailed запись провалилась, локальное состояние откачено
	NoticeWriteFailed NoticeKind = "write_failed"
	// NoticeCreateFailed создание провалилось, объект убран локально
	NoticeCreateFailed NoticeKind = "create_failed"
	// NoticeDeleteFailed удаление провалилось, объект восстановлен локально
	NoticeDeleteFailed NoticeKind = "delete_failed"
	// NoticeBatchFailed batch-запись провалилась, все состояние откачено
	NoticeBatchFailed NoticeKind = "batch_failed"
	// NoticeNotFound объект удален конкурентно
	NoticeNotFound NoticeKind = "not_found"
)

// Notice одно user-visible событие об ошибке записи.
// Низкоуровневые ошибки store не поднимаются выше движка сырыми —
// они конвертируются в откат плюс Notice.
type Notice struct {
	Err      error
	Kind     NoticeKind
	ObjectID string
	Message  string
}

// batchKey единственный ключ batch-коалессера: групповой жест один на клиента
const batchKey = "group"

// intent один запланированный локальный intent: payload плюс номер
// последнего слитого в него локального изменения объекта. По номеру
// движок отличает подтверждение именно этого intent-а от более нового,
// слившегося, пока запись была в полете.
type intent struct {
	update models.ObjectUpdate
	seq    uint64
}

// Engine движок оптимистичной синхронизации. Владеет рабочим состоянием
// (local prediction) и неизменяемым last-known-good снапшотом от remote;
// откат — это подмена рабочего значения подтвержденным, не deep-copy.
type Engine struct {
	store  store.ObjectStore
	logger *slog.Logger
	userID string

	// позиционные обновления (drag) и геометрия/поворот коалессируются
	// отдельными окнами; жесты по одному объекту взаимоисключающие,
	// так что single-flight на ключ сохраняется per жест
	posCoalescer *throttle.Coalescer[string, intent]
	geoCoalescer *throttle.Coalescer[string, intent]
	// групповой drag коалессируется целиком: payload — map id->intent
	batchCoalescer *throttle.Coalescer[string, map[string]intent]

	confirmed      map[string]*models.CanvasObject // last-known-good
	working        map[string]*models.CanvasObject // local prediction
	order          []string                        // порядок создания
	pending        map[string]models.ObjectUpdate  // неподтвержденный локальный intent
	intentSeq      map[string]uint64               // номер последнего intent-а per объект, только растет
	changeHandlers map[int]func()
	noticeHandlers map[int]func(Notice)

	unsubscribe func() // под mu
	mu          sync.Mutex
	nextHandler int
	revision    int64 // локальный счетчик изменений для перерисовки UI
	started     bool
}

// New создает движок для пользователя userID поверх store
func New(objectStore store.ObjectStore, userID string, logger *slog.Logger) *Engine {
	e := &Engine{
		store:          objectStore,
		logger:         logger,
		userID:         userID,
		confirmed:      make(map[string]*models.CanvasObject),
		working:        make(map[string]*models.CanvasObject),
		pending:        make(map[string]models.ObjectUpdate),
		intentSeq:      make(map[string]uint64),
		changeHandlers: make(map[int]func()),
		noticeHandlers: make(map[int]func(Notice)),
	}

	e.posCoalescer = throttle.NewCoalescer(throttle.PositionWindow, mergeIntent, e.sendUpdate)
	e.posCoalescer.OnSendError(e.onUpdateSendError)

	e.geoCoalescer = throttle.NewCoalescer(throttle.GeometryWindow, mergeIntent, e.sendUpdate)
	e.geoCoalescer.OnSendError(e.onUpdateSendError)

	e.batchCoalescer = throttle.NewCoalescer(throttle.GeometryWindow, mergeBatch, e.sendBatch)
	e.batchCoalescer.OnSendError(e.onBatchSendError)

	return e
}

// Start подписывает движок на снапшоты remote store.
// Первый снапшот применяется до возврата.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	unsubscribe := e.store.Subscribe(e.applySnapshot)

	e.mu.Lock()
	e.unsubscribe = unsubscribe
	e.mu.Unlock()

	e.logger.Info("sync engine started", "user_id", e.userID)
}

// Stop снимает подписку и отбрасывает невыстрелившие throttled-записи
func (e *Engine) Stop() {
	e.mu.Lock()
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	e.posCoalescer.Close()
	e.geoCoalescer.Close()
	e.batchCoalescer.Close()
	e.logger.Info("sync engine stopped")
}

// UserID возвращает идентификатор локального пользователя
func (e *Engine) UserID() string { return e.userID }

// Objects возвращает рабочий набор объектов в порядке создания
func (e *Engine) Objects() []*models.CanvasObject {
	e.mu.Lock()
	defer e.mu.Unlock()

	objects := make([]*models.CanvasObject, 0, len(e.order))
	for _, id := range e.order {
		if obj, ok := e.working[id]; ok {
			objects = append(objects, obj.Clone())
		}
	}
	return objects
}

// Get возвращает рабочую копию объекта
func (e *Engine) Get(id string) (*models.CanvasObject, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	obj, ok := e.working[id]
	if !ok {
		return nil, false
	}
	return obj.Clone(), true
}

// LastKnownGood возвращает последнее подтвержденное remote-ом состояние
func (e *Engine) LastKnownGood(id string) (*models.CanvasObject, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	obj, ok := e.confirmed[id]
	if !ok {
		return nil, false
	}
	return obj.Clone(), true
}

// Revision локальный счетчик изменений: растет при каждом изменении
// рабочего состояния, в том числе неподтвержденном
func (e *Engine) Revision() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// OnChange регистрирует обработчик изменения рабочего состояния.
// Возвращает функцию отписки.
func (e *Engine) OnChange(fn func()) func() {
	e.mu.Lock()
	id := e.nextHandler
	e.nextHandler++
	e.changeHandlers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.changeHandlers, id)
		e.mu.Unlock()
	}
}

// OnNotice регистрирует обработчик user-visible сигналов об ошибках
func (e *Engine) OnNotice(fn func(Notice)) func() {
	e.mu.Lock()
	id := e.nextHandler
	e.nextHandler++
	e.noticeHandlers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.noticeHandlers, id)
		e.mu.Unlock()
	}
}

// CreateOptimistic создает объект: id выделяется заранее, объект сразу
// появляется локально, затем уходит create в store. При ошибке объект
// убирается локально и поднимается Notice.
func (e *Engine) CreateOptimistic(ctx context.Context, obj *models.CanvasObject) (string, error) {
	if obj.ID == "" {
		obj.ID = e.store.AllocateID()
	}
	obj.CreatedBy = e.userID
	obj.ModifiedBy = e.userID
	obj.Version = 1
	obj.ClearLock()
	obj.CreatedAt = time.Now()
	obj.UpdatedAt = obj.CreatedAt
	obj.ClampToCanvas()

	e.mu.Lock()
	e.working[obj.ID] = obj.Clone()
	e.order = append(e.order, obj.ID)
	e.revision++
	e.mu.Unlock()
	e.notifyChange()

	if err := e.store.Create(ctx, obj); err != nil {
		e.mu.Lock()
		delete(e.working, obj.ID)
		e.removeFromOrderLocked(obj.ID)
		e.revision++
		e.mu.Unlock()
		e.notifyChange()

		e.emit(Notice{
			Kind:     NoticeCreateFailed,
			ObjectID: obj.ID,
			Err:      err,
			Message:  "failed to create object",
		})
		return "", fmt.Errorf("create object: %w", err)
	}

	return obj.ID, nil
}

// UpdateOptimistic применяет частичное обновление локально и планирует
// throttled-запись. Откат при ошибке отправки делает обработчик коалессера.
func (e *Engine) UpdateOptimistic(id string, update models.ObjectUpdate) {
	if update.IsEmpty() {
		return
	}
	seq, ok := e.applyLocal(id, update, true)
	if !ok {
		return
	}

	w := intent{update: update, seq: seq}
	if isPositionOnly(update) {
		e.posCoalescer.Schedule(id, w)
	} else {
		e.geoCoalescer.Schedule(id, w)
	}
}

// UpdateLocalOnly применяет мутацию без remote-отправки: используется,
// когда групповой жест позже зафиксирует один консолидированный batch,
// вместо N избыточных per-object записей за один жест
func (e *Engine) UpdateLocalOnly(id string, update models.ObjectUpdate) {
	e.applyLocal(id, update, true)
}

// ScheduleGroupUpdate планирует throttled batch-запись группового жеста.
// Каждый участник несет номер своего последнего локального изменения:
// вызывающий уже применил обновления через UpdateLocalOnly.
func (e *Engine) ScheduleGroupUpdate(updates map[string]models.ObjectUpdate) {
	e.mu.Lock()
	batch := make(map[string]intent, len(updates))
	for id, u := range updates {
		batch[id] = intent{update: u, seq: e.intentSeq[id]}
	}
	e.mu.Unlock()

	e.batchCoalescer.Schedule(batchKey, batch)
}

// CancelThrottled отбрасывает невыстрелившие throttled-записи объектов
// и групповую: жесты вызывают это перед авторитетной финальной записью,
// чтобы устаревшая запись не легла поверх финальной
func (e *Engine) CancelThrottled(ids ...string) {
	for _, id := range ids {
		e.posCoalescer.Cancel(id)
		e.geoCoalescer.Cancel(id)
	}
	e.batchCoalescer.Cancel(batchKey)
}

// BatchUpdateOptimistic применяет все обновления локально, дожидается
// (flush) отставших per-object записей затронутых id и фиксирует одну
// транзакционную batch-запись. При ошибке откатывается все рабочее
// состояние: batch — атомарный пользовательский intent.
func (e *Engine) BatchUpdateOptimistic(ctx context.Context, updates map[string]models.ObjectUpdate) error {
	ids := make([]string, 0, len(updates))
	seqs := make(map[string]uint64, len(updates))
	for id, update := range updates {
		ids = append(ids, id)
		if seq, ok := e.applyLocal(id, update, true); ok {
			seqs[id] = seq
		}
	}

	// Строгий порядок: сперва дождаться одиночных записей, иначе
	// отставшая throttled-запись может переупорядочиться после batch
	if err := e.posCoalescer.Flush(ctx, ids...); err != nil {
		e.rollbackAll(NoticeBatchFailed, err)
		return fmt.Errorf("flush before batch: %w", err)
	}
	if err := e.geoCoalescer.Flush(ctx, ids...); err != nil {
		e.rollbackAll(NoticeBatchFailed, err)
		return fmt.Errorf("flush before batch: %w", err)
	}
	// Невыстрелившая групповая запись отбрасывается, а уже ушедшая в
	// store довершается до фиксации: Cancel не прерывает in-flight
	// отправку, и без ожидания она легла бы поверх финальной
	e.batchCoalescer.Cancel(batchKey)
	if err := e.batchCoalescer.Flush(ctx, batchKey); err != nil {
		e.rollbackAll(NoticeBatchFailed, err)
		return fmt.Errorf("flush before batch: %w", err)
	}

	fns := make(map[string]store.UpdateFunc, len(updates))
	for id, update := range updates {
		fns[id] = e.applyFunc(update)
	}

	if err := e.store.BatchUpdate(ctx, fns); err != nil {
		e.rollbackAll(NoticeBatchFailed, err)
		return fmt.Errorf("batch update: %w", err)
	}

	for id, seq := range seqs {
		e.confirmPending(id, seq)
	}
	return nil
}

// DeleteOptimistic убирает объект локально и удаляет его в store.
// Конкурентно удаленный объект считается успешно удаленным.
// При иной ошибке локальная копия восстанавливается.
func (e *Engine) DeleteOptimistic(ctx context.Context, id string) error {
	e.mu.Lock()
	cached, exists := e.working[id]
	if !exists {
		e.mu.Unlock()
		return nil
	}
	cached = cached.Clone()
	position := e.orderIndexLocked(id)
	delete(e.working, id)
	e.removeFromOrderLocked(id)
	delete(e.pending, id)
	e.revision++
	e.mu.Unlock()
	e.notifyChange()

	e.CancelThrottled(id)

	err := e.store.Delete(ctx, id)
	if err != nil && !errors.Is(err, store.ErrObjectNotFound) {
		e.mu.Lock()
		e.working[id] = cached
		e.insertOrderLocked(id, position)
		e.revision++
		e.mu.Unlock()
		e.notifyChange()

		e.emit(Notice{
			Kind:     NoticeDeleteFailed,
			ObjectID: id,
			Err:      err,
			Message:  "failed to delete object",
		})
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}

// Flush дожидается завершения всех throttled-записей указанных объектов
func (e *Engine) Flush(ctx context.Context, ids ...string) error {
	if err := e.posCoalescer.Flush(ctx, ids...); err != nil {
		return err
	}
	return e.geoCoalescer.Flush(ctx, ids...)
}

// applySnapshot обрабатывает пуш подписки: снапшот целиком замещает
// last-known-good; рабочие значения объектов без pending intent-а
// отбрасываются в пользу remote
func (e *Engine) applySnapshot(objects []*models.CanvasObject) {
	e.mu.Lock()

	e.confirmed = make(map[string]*models.CanvasObject, len(objects))
	order := make([]string, 0, len(objects))
	nextWorking := make(map[string]*models.CanvasObject, len(objects))

	for _, obj := range objects {
		e.confirmed[obj.ID] = obj.Clone()
		order = append(order, obj.ID)

		if _, isPending := e.pending[obj.ID]; isPending {
			if local, ok := e.working[obj.ID]; ok {
				nextWorking[obj.ID] = local
				continue
			}
		}
		nextWorking[obj.ID] = obj.Clone()
	}

	// pending на объекты, исчезнувшие из снапшота, аннулируются:
	// удаление терминально
	for id := range e.pending {
		if _, exists := e.confirmed[id]; !exists {
			delete(e.pending, id)
		}
	}

	e.working = nextWorking
	e.order = order
	e.revision++
	e.mu.Unlock()

	e.notifyChange()
}

// applyLocal применяет update к рабочей копии; markPending записывает
// intent, защищающий значение от затирания снапшотами до подтверждения.
// Возвращает номер записанного intent-а.
func (e *Engine) applyLocal(id string, update models.ObjectUpdate, markPending bool) (uint64, bool) {
	e.mu.Lock()
	obj, exists := e.working[id]
	if !exists {
		e.mu.Unlock()
		return 0, false
	}

	next := obj.Clone()
	update.ApplyTo(next)
	next.ModifiedBy = e.userID
	e.working[id] = next

	var seq uint64
	if markPending {
		e.pending[id] = e.pending[id].Merge(update)
		e.intentSeq[id]++
		seq = e.intentSeq[id]
	}
	e.revision++
	e.mu.Unlock()

	e.notifyChange()
	return seq, true
}

// applyFunc строит транзакционную функцию store из частичного обновления
func (e *Engine) applyFunc(update models.ObjectUpdate) store.UpdateFunc {
	return func(current *models.CanvasObject) (*models.CanvasObject, error) {
		update.ApplyTo(current)
		current.ModifiedBy = e.userID
		return current, nil
	}
}

// sendUpdate отправка одной коалессированной записи
func (e *Engine) sendUpdate(ctx context.Context, id string, w intent) error {
	_, err := e.store.Update(ctx, id, e.applyFunc(w.update))
	if err != nil {
		return err
	}

	e.confirmPending(id, w.seq)
	return nil
}

// sendBatch отправка коалессированной групповой записи
func (e *Engine) sendBatch(ctx context.Context, _ string, updates map[string]intent) error {
	fns := make(map[string]store.UpdateFunc, len(updates))
	for id, w := range updates {
		fns[id] = e.applyFunc(w.update)
	}

	if err := e.store.BatchUpdate(ctx, fns); err != nil {
		return err
	}

	for id, w := range updates {
		e.confirmPending(id, w.seq)
	}
	return nil
}

// onUpdateSendError провал throttled-записи: откат объекта к
// last-known-good плюс Notice. Без автоматического ретрая.
func (e *Engine) onUpdateSendError(id string, _ intent, err error) {
	kind := NoticeWriteFailed
	if errors.Is(err, store.ErrObjectNotFound) {
		kind = NoticeNotFound
	}

	e.logger.Warn("throttled write failed, rolling back",
		"object_id", id, "error", err)
	e.rollbackObject(id)
	e.emit(Notice{
		Kind:     kind,
		ObjectID: id,
		Err:      err,
		Message:  "failed to save changes",
	})
}

// onBatchSendError провал throttled batch-записи: полный откат
func (e *Engine) onBatchSendError(_ string, _ map[string]intent, err error) {
	e.logger.Warn("throttled batch write failed, rolling back", "error", err)
	e.rollbackAll(NoticeBatchFailed, err)
}

// rollbackObject возвращает объект к последнему подтвержденному состоянию
func (e *Engine) rollbackObject(id string) {
	e.mu.Lock()
	if confirmed, ok := e.confirmed[id]; ok {
		e.working[id] = confirmed.Clone()
	} else {
		delete(e.working, id)
		e.removeFromOrderLocked(id)
	}
	delete(e.pending, id)
	e.revision++
	e.mu.Unlock()

	e.notifyChange()
}

// rollbackAll возвращает все рабочее состояние к last-known-good
func (e *Engine) rollbackAll(kind NoticeKind, err error) {
	e.mu.Lock()
	e.working = make(map[string]*models.CanvasObject, len(e.confirmed))
	order := make([]string, 0, len(e.confirmed))
	for _, id := range e.order {
		if confirmed, ok := e.confirmed[id]; ok {
			e.working[id] = confirmed.Clone()
			order = append(order, id)
		}
	}
	e.order = order
	e.pending = make(map[string]models.ObjectUpdate)
	e.revision++
	e.mu.Unlock()

	e.notifyChange()
	e.emit(Notice{Kind: kind, Err: err, Message: "failed to save changes"})
}

// confirmPending снимает intent объекта, если после отправленного не
// появилось более нового локального изменения: иначе pending живет до
// подтверждения последнего запланированного intent-а
func (e *Engine) confirmPending(id string, seq uint64) {
	e.mu.Lock()
	if e.intentSeq[id] == seq {
		delete(e.pending, id)
	}
	e.mu.Unlock()
}

// notifyChange вызывает обработчики вне mutex-а: обработчик может
// синхронно читать состояние движка
func (e *Engine) notifyChange() {
	e.mu.Lock()
	handlers := make([]func(), 0, len(e.changeHandlers))
	for _, fn := range e.changeHandlers {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

func (e *Engine) emit(notice Notice) {
	e.mu.Lock()
	handlers := make([]func(Notice), 0, len(e.noticeHandlers))
	for _, fn := range e.noticeHandlers {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()

	for _, fn := range handlers {
		fn(notice)
	}
}

func (e *Engine) orderIndexLocked(id string) int {
	for i, oid := range e.order {
		if oid == id {
			return i
		}
	}
	return len(e.order)
}

func (e *Engine) removeFromOrderLocked(id string) {
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}

func (e *Engine) insertOrderLocked(id string, position int) {
	if position >= len(e.order) {
		e.order = append(e.order, id)
		return
	}
	e.order = append(e.order[:position], append([]string{id}, e.order[position:]...)...)
}

// mergeIntent сливает накопленный intent со следующим; номер только растет
func mergeIntent(pending, next intent) intent {
	merged := intent{update: pending.update.Merge(next.update), seq: pending.seq}
	if next.seq > merged.seq {
		merged.seq = next.seq
	}
	return merged
}

// mergeBatch сливает накопленную групповую запись со следующей пообъектно
func mergeBatch(pending, next map[string]intent) map[string]intent {
	merged := make(map[string]intent, len(pending)+len(next))
	for id, w := range pending {
		merged[id] = w
	}
	for id, w := range next {
		merged[id] = mergeIntent(merged[id], w)
	}
	return merged
}

// isPositionOnly true, если update затрагивает только координаты
func isPositionOnly(update models.ObjectUpdate) bool {
	return (update.X != nil || update.Y != nil) &&
		update.Width == nil && update.Height == nil &&
		update.Radius == nil && update.Rotation == nil &&
		update.Color == nil && update.Text == nil
}
