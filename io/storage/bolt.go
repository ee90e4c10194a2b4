package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/datarhei/settings/log"

	"go.etcd.io/bbolt"
)

// BoltConfig is the config for a bolt backend.
type BoltConfig struct {
	Path    string        // Path to the database file
	Bucket  string        // Name of the bucket, defaults to "settings"
	Timeout time.Duration // Timeout for acquiring the file lock
	Logger  log.Logger
}

type boltStorage struct {
	db     *bbolt.DB
	bucket []byte
	logger log.Logger
}

// BoltAdapter is an Adapter backed by a bolt database file. It has to be
// closed after use in order to release the file lock.
type BoltAdapter interface {
	Adapter
	Close() error
}

func NewBolt(config BoltConfig) (BoltAdapter, error) {
	s := &boltStorage{
		bucket: []byte(config.Bucket),
		logger: config.Logger,
	}

	if s.logger == nil {
		s.logger = log.New("")
	}

	if len(config.Path) == 0 {
		return nil, fmt.Errorf("no database path provided")
	}

	if len(s.bucket) == 0 {
		s.bucket = []byte("settings")
	}

	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	db, err := bbolt.Open(config.Path, 0600, &bbolt.Options{
		Timeout: config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: failed to create bucket: %w", err)
	}

	s.db = db
	s.logger = s.logger.WithFields(log.Fields{
		"type":   "bolt",
		"path":   config.Path,
		"bucket": string(s.bucket),
	})

	return s, nil
}

func (s *boltStorage) Type() string {
	return "bolt"
}

func (s *boltStorage) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return ErrNotExist
		}

		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotExist
		}

		// The value is only valid during the transaction
		data = bytes.Clone(v)

		return nil
	})

	return data, err
}

func (s *boltStorage) Write(ctx context.Context, key string, data []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}

		return b.Put([]byte(key), data)
	})
	if err != nil {
		return err
	}

	s.logger.Debug().WithField("key", key).Log("Stored")

	return nil
}

func (s *boltStorage) Remove(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}

		return b.Delete([]byte(key))
	})
}

func (s *boltStorage) Close() error {
	return s.db.Close()
}
