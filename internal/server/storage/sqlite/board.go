package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/boardsync/internal/models"
	"github.com/iudanet/boardsync/internal/server/storage"
)

const objectColumns = `
	id, type, color, text, created_by, modified_by, locked_by, locked_at,
	x, y, width, height, radius, rotation, version, created_at, updated_at
`

// CreateObject creates a new board object with version 1
func (s *Storage) CreateObject(ctx context.Context, obj *models.CanvasObject) error {
	query := `
		INSERT INTO board_objects (` + objectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		obj.ID,
		string(obj.Type),
		obj.Color,
		obj.Text,
		obj.CreatedBy,
		obj.ModifiedBy,
		obj.LockedBy,
		obj.LockedAt,
		obj.X,
		obj.Y,
		obj.Width,
		obj.Height,
		obj.Radius,
		obj.Rotation,
		1, // версию назначает storage
		now,
		now,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrObjectAlreadyExists
		}
		return fmt.Errorf("failed to insert object: %w", err)
	}

	return nil
}

// GetObject retrieves a single object by id
func (s *Storage) GetObject(ctx context.Context, id string) (*models.CanvasObject, error) {
	query := `SELECT ` + objectColumns + ` FROM board_objects WHERE id = ?`
	return scanObject(s.db.QueryRowContext(ctx, query, id))
}

// ListObjects retrieves all board objects in creation order
func (s *Storage) ListObjects(ctx context.Context) ([]*models.CanvasObject, error) {
	query := `SELECT ` + objectColumns + ` FROM board_objects ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	objects := []*models.CanvasObject{}
	for rows.Next() {
		obj, err := scanObjectRow(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return objects, nil
}

// UpdateObject applies a version-checked write and bumps the version
func (s *Storage) UpdateObject(ctx context.Context, write storage.ObjectWrite) (*models.CanvasObject, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	updated, err := applyWriteTx(ctx, tx, write)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update tx: %w", err)
	}

	return updated, nil
}

// BatchUpdateObjects applies all writes in one all-or-nothing transaction
func (s *Storage) BatchUpdateObjects(ctx context.Context, writes []storage.ObjectWrite) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, write := range writes {
		if _, err := applyWriteTx(ctx, tx, write); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}

	return nil
}

// DeleteObject removes object by id, no tombstone
func (s *Storage) DeleteObject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM board_objects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrObjectNotFound
	}

	return nil
}

// applyWriteTx одна CAS-запись внутри транзакции: UPDATE срабатывает
// только при совпадении версии; иначе по текущему состоянию различаем
// not-found и version conflict
func applyWriteTx(ctx context.Context, tx *sql.Tx, write storage.ObjectWrite) (*models.CanvasObject, error) {
	next := write.Next
	query := `
		UPDATE board_objects
		SET type = ?, color = ?, text = ?, modified_by = ?, locked_by = ?,
			locked_at = ?, x = ?, y = ?, width = ?, height = ?, radius = ?,
			rotation = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := tx.ExecContext(ctx, query,
		string(next.Type),
		next.Color,
		next.Text,
		next.ModifiedBy,
		next.LockedBy,
		next.LockedAt,
		next.X,
		next.Y,
		next.Width,
		next.Height,
		next.Radius,
		next.Rotation,
		time.Now().UTC(),
		next.ID,
		write.BaseVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update object: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		current, err := scanObject(tx.QueryRowContext(ctx,
			`SELECT `+objectColumns+` FROM board_objects WHERE id = ?`, next.ID))
		if err != nil {
			return nil, err
		}
		return nil, &storage.VersionConflictError{ID: next.ID, Current: current}
	}

	return scanObject(tx.QueryRowContext(ctx,
		`SELECT `+objectColumns+` FROM board_objects WHERE id = ?`, next.ID))
}

// rowScanner объединяет sql.Row и sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row *sql.Row) (*models.CanvasObject, error) {
	obj, err := scanInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, err
	}
	return obj, nil
}

func scanObjectRow(rows *sql.Rows) (*models.CanvasObject, error) {
	obj, err := scanInto(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan object: %w", err)
	}
	return obj, nil
}

func scanInto(row rowScanner) (*models.CanvasObject, error) {
	obj := &models.CanvasObject{}
	var objType string
	var lockedAt sql.NullTime

	err := row.Scan(
		&obj.ID,
		&objType,
		&obj.Color,
		&obj.Text,
		&obj.CreatedBy,
		&obj.ModifiedBy,
		&obj.LockedBy,
		&lockedAt,
		&obj.X,
		&obj.Y,
		&obj.Width,
		&obj.Height,
		&obj.Radius,
		&obj.Rotation,
		&obj.Version,
		&obj.CreatedAt,
		&obj.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	obj.Type = models.ObjectType(objType)
	if lockedAt.Valid {
		t := lockedAt.Time
		obj.LockedAt = &t
	}
	return obj, nil
}
