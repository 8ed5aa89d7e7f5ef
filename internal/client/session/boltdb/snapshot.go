package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/boardsync/internal/models"
)

var snapshotKey = []byte("board")

// SaveSnapshot кеширует последний снапшот доски.
// Кеш нужен только для быстрого первого рендера, сервер всегда источник истины
func (s *Storage) SaveSnapshot(ctx context.Context, objects []*models.CanvasObject) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshot)
		if bucket == nil {
			return fmt.Errorf("snapshot bucket not found")
		}

		data, err := json.Marshal(objects)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}

		if err := bucket.Put(snapshotKey, data); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}

		return nil
	})
}

// GetSnapshot возвращает кешированный снапшот, nil если кеша еще нет
func (s *Storage) GetSnapshot(ctx context.Context) ([]*models.CanvasObject, error) {
	var objects []*models.CanvasObject

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshot)
		if bucket == nil {
			return fmt.Errorf("snapshot bucket not found")
		}

		data := bucket.Get(snapshotKey)
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, &objects); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return objects, nil
}
