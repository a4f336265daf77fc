package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	bolt "go.etcd.io/bbolt"
)

const storeBucket = "store"

// BoltDB implements the engine's Store interface using a BoltDB backend. It
// is a passive durable map: plain serializable values under fixed keys, with
// no mutation logic of its own.
type BoltDB struct {
	db     *bolt.DB
	logger *slog.Logger
}

// NewBoltDB creates a new BoltDB instance with the specified file path. The
// database file is created with 0600 permissions if it doesn't exist.
func NewBoltDB(path string, logger *slog.Logger) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(storeBucket))
		return err
	})

	return BoltDB{
		db:     db,
		logger: logger.With(slog.String("module", "boltdb")),
	}, err
}

// Close releases the underlying database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}

// Save marshals value as JSON and writes it under key. The write is flushed
// to disk before Save returns.
func (b BoltDB) Save(_ context.Context, key string, value any) error {
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(storeBucket)).Put([]byte(key), v)
	})
}

// Load reads the value stored under key into dest. A missing entry reports
// ok=false. A corrupt entry is treated as absent: the caller gets ok=false
// and a warning is logged, never an error.
func (b BoltDB) Load(_ context.Context, key string, dest any) (bool, error) {
	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(storeBucket)).Get([]byte(key)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		b.logger.Warn("Discarding corrupt store entry",
			slog.String("key", key),
			slog.String("err", err.Error()))
		return false, nil
	}
	return true, nil
}

// Delete removes the entry under key. Deleting a missing key is a no-op.
func (b BoltDB) Delete(_ context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(storeBucket)).Delete([]byte(key))
	})
}
