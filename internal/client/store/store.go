// Package store определяет границу remote object store: авторитетного
// хранилища объектов холста. Клиентский движок не предполагает
// read-your-writes от собственного кеша — доверяет только результату
// транзакции и последующим snapshot-пушам подписки.
package store

import (
	"context"

	"github.com/iudanet/boardsync/internal/models"
)

//go:generate moq -out store_mock.go . ObjectStore

// UpdateFunc вычисляет следующее состояние объекта из текущего.
// Вызывается store-ом внутри транзакции; может быть вызвана повторно,
// если транспорт реализует транзакцию через compare-and-swap и проиграл
// гонку. Не должна иметь побочных эффектов.
type UpdateFunc func(current *models.CanvasObject) (*models.CanvasObject, error)

// SnapshotFunc получает полный актуальный набор объектов доски.
// Вызывается один раз сразу после подписки и далее на каждое
// зафиксированное store-ом изменение.
type SnapshotFunc func(objects []*models.CanvasObject)

// ObjectStore описывает авторитетное хранилище объектов холста.
//
// Гарантии:
//   - Update и BatchUpdate атомарны (read-modify-write в один круг);
//   - store сам назначает Version (current.Version + 1) и UpdatedAt
//     принятому обновлению, что бы ни вернула UpdateFunc;
//   - после каждой зафиксированной мутации подписчики получают полный
//     снапшот в порядке создания объектов.
type ObjectStore interface {
	// AllocateID выделяет ключ будущего объекта до его создания.
	// Идентичность объекта не меняется между локальным применением
	// и подтверждением store-ом.
	AllocateID() string

	// Create создает объект. Version принудительно становится 1,
	// lock-поля очищаются. Возвращает ErrObjectExists при коллизии id.
	Create(ctx context.Context, obj *models.CanvasObject) error

	// Update выполняет атомарную транзакцию над объектом и возвращает
	// зафиксированное состояние. ErrObjectNotFound, если объект
	// удален конкурентно. Ошибка из fn отменяет транзакцию и
	// возвращается как есть.
	Update(ctx context.Context, id string, fn UpdateFunc) (*models.CanvasObject, error)

	// BatchUpdate выполняет одну all-or-nothing транзакцию над
	// несколькими объектами. Любая ошибка откатывает все изменения.
	BatchUpdate(ctx context.Context, updates map[string]UpdateFunc) error

	// Delete удаляет объект без tombstone. Удаление отсутствующего
	// объекта возвращает ErrObjectNotFound.
	Delete(ctx context.Context, id string) error

	// Subscribe регистрирует получателя снапшотов. Возвращенная
	// функция снимает подписку.
	Subscribe(fn SnapshotFunc) (unsubscribe func())
}
