package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/boardsync/internal/models"
	"github.com/iudanet/boardsync/internal/server/storage"
)

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, display_name, auth_key_hash, public_salt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.DisplayName,
		user.AuthKeyHash,
		user.PublicSalt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Проверяем на duplicate username
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, display_name, auth_key_hash, public_salt, created_at, updated_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, username, display_name, auth_key_hash, public_salt, created_at, updated_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// UpdateUser updates user information
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET username = ?, display_name = ?, auth_key_hash = ?, public_salt = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		user.Username,
		user.DisplayName,
		user.AuthKeyHash,
		user.PublicSalt,
		user.UpdatedAt,
		user.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (s *Storage) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.AuthKeyHash,
		&user.PublicSalt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
