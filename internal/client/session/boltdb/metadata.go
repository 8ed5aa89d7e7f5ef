package boltdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const keyNodeID = "node_id"

// NodeID возвращает стабильный идентификатор этого устройства.
// При первом вызове генерирует UUID и сохраняет его, дальше всегда
// возвращает то же значение независимо от login/logout
func (s *Storage) NodeID(ctx context.Context) (string, error) {
	var nodeID string

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if data := bucket.Get([]byte(keyNodeID)); data != nil {
			nodeID = string(data)
			return nil
		}

		nodeID = uuid.New().String()
		if err := bucket.Put([]byte(keyNodeID), []byte(nodeID)); err != nil {
			return fmt.Errorf("failed to save node id: %w", err)
		}

		return nil
	})

	if err != nil {
		return "", err
	}

	return nodeID, nil
}
