package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/sliceops/sliceops/internal/client/storage"
)

var tokenKey = []byte("current")

// SaveToken stores the bearer token record, overwriting any previous one
func (s *Storage) SaveToken(ctx context.Context, record *storage.TokenRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketToken)
		if bucket == nil {
			return fmt.Errorf("token bucket not found")
		}

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal token record: %w", err)
		}

		if err := bucket.Put(tokenKey, data); err != nil {
			return fmt.Errorf("failed to save token record: %w", err)
		}

		return nil
	})
}

// GetToken retrieves the stored token record
func (s *Storage) GetToken(ctx context.Context) (*storage.TokenRecord, error) {
	var record *storage.TokenRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketToken)
		if bucket == nil {
			return fmt.Errorf("token bucket not found")
		}

		data := bucket.Get(tokenKey)
		if data == nil {
			return storage.ErrTokenNotFound
		}

		record = &storage.TokenRecord{}
		if err := json.Unmarshal(data, record); err != nil {
			return fmt.Errorf("failed to unmarshal token record: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return record, nil
}

// DeleteToken removes the stored token record. Idempotent: deleting a
// missing record is not an error.
func (s *Storage) DeleteToken(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketToken)
		if bucket == nil {
			return fmt.Errorf("token bucket not found")
		}

		if err := bucket.Delete(tokenKey); err != nil {
			return fmt.Errorf("failed to delete token record: %w", err)
		}

		return nil
	})
}
