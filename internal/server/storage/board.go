package storage

import (
	"context"

	"github.com/iudanet/boardsync/internal/models"
)

// ObjectWrite одна compare-and-swap запись: Next применяется, только
// если текущая версия объекта равна BaseVersion
type ObjectWrite struct {
	Next        *models.CanvasObject
	BaseVersion int64
}

// BoardStorage defines interface for board object persistence
type BoardStorage interface {
	// CreateObject creates a new board object with version 1
	// Returns ErrObjectAlreadyExists if object id is taken
	CreateObject(ctx context.Context, obj *models.CanvasObject) error

	// GetObject retrieves a single object by id
	// Returns ErrObjectNotFound if object doesn't exist
	GetObject(ctx context.Context, id string) (*models.CanvasObject, error)

	// ListObjects retrieves all board objects in creation order
	// Returns empty slice if board is empty
	ListObjects(ctx context.Context) ([]*models.CanvasObject, error)

	// UpdateObject applies a version-checked write and bumps the version.
	// Returns ErrObjectNotFound if object doesn't exist and
	// *VersionConflictError (with the current state) if the base version
	// is stale.
	UpdateObject(ctx context.Context, write ObjectWrite) (*models.CanvasObject, error)

	// BatchUpdateObjects applies all writes in one transaction.
	// Any stale base version aborts the whole batch with
	// *VersionConflictError; nothing is committed partially.
	BatchUpdateObjects(ctx context.Context, writes []ObjectWrite) error

	// DeleteObject removes object by id, no tombstone
	// Returns ErrObjectNotFound if object doesn't exist
	DeleteObject(ctx context.Context, id string) error
}
