package storage

import (
	"errors"
	"fmt"

	"github.com/iudanet/boardsync/internal/models"
)

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrTokenNotFound indicates that refresh token was not found
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrObjectNotFound indicates that board object was not found
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectAlreadyExists indicates that board object with this id already exists
	ErrObjectAlreadyExists = errors.New("object already exists")
)

// VersionConflictError отказ compare-and-swap записи: версия объекта в
// storage ушла вперед относительно base-версии клиента. Current несет
// актуальное состояние, чтобы клиент мог перезапустить транзакцию.
type VersionConflictError struct {
	Current *models.CanvasObject
	ID      string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on object %s", e.ID)
}
