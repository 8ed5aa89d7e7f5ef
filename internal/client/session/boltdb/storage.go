package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketSession  = []byte("session")
	bucketMetadata = []byte("metadata")
	bucketSnapshot = []byte("snapshot")
)

// Storage клиентское хранилище поверх BoltDB.
// Файл открывается с правами 0600, шифрование не используется
type Storage struct {
	db *bbolt.DB
}

// New открывает BoltDB файл по dbPath и создает buckets
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSession, bucketMetadata, bucketSnapshot} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
