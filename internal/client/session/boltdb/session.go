package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/boardsync/internal/client/session"
)

var sessionKey = []byte("current")

// SaveSession сохраняет сессию, перезаписывая существующую
func (s *Storage) SaveSession(ctx context.Context, sess *session.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if err := bucket.Put(sessionKey, data); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		return nil
	})
}

// GetSession возвращает сохраненную сессию
func (s *Storage) GetSession(ctx context.Context) (*session.Session, error) {
	var sess *session.Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		data := bucket.Get(sessionKey)
		if data == nil {
			return session.ErrSessionNotFound
		}

		sess = &session.Session{}
		if err := json.Unmarshal(data, sess); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return sess, nil
}

// DeleteSession удаляет сессию (logout)
func (s *Storage) DeleteSession(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		if bucket.Get(sessionKey) == nil {
			return session.ErrSessionNotFound
		}

		if err := bucket.Delete(sessionKey); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		return nil
	})
}

// IsAuthenticated проверяет наличие сессии с неистекшим access token
func (s *Storage) IsAuthenticated(ctx context.Context) (bool, error) {
	sess, err := s.GetSession(ctx)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return false, nil
		}
		return false, err
	}

	if time.Now().After(sess.ExpiresAt) {
		return false, nil
	}

	return true, nil
}
