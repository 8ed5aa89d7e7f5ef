package store

import "errors"

// Common object store errors
var (
	// ErrObjectNotFound объект не существует (удален конкурентно или не создавался)
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectExists объект с таким id уже существует
	ErrObjectExists = errors.New("object already exists")

	// ErrVersionConflict CAS-транзакция исчерпала повторы из-за конкурентных записей
	ErrVersionConflict = errors.New("object version conflict")

	// ErrStoreClosed store закрыт или соединение потеряно без восстановления
	ErrStoreClosed = errors.New("object store is closed")
)
