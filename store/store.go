// Package store serializes the settings document to a storage backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/encoding/json"
	"github.com/datarhei/settings/io/storage"
	"github.com/datarhei/settings/log"
)

const (
	// DocumentKey is the key under which the settings document is stored.
	DocumentKey = "hotelSettings"

	// BackupsKey is the key under which the list of backups is stored.
	BackupsKey = "settingsBackups"
)

// Store is a store for the settings document.
type Store interface {
	// Load returns the stored document. If nothing has been stored yet or the
	// stored data is corrupt, an empty document is returned. Only errors of
	// the backend are returned.
	Load(ctx context.Context) (document.Document, error)

	// Save stores the document as a whole. No validation happens here.
	Save(ctx context.Context, doc document.Document) error

	// Clear removes the stored document.
	Clear(ctx context.Context) error

	// Storage returns the backend of this store.
	Storage() storage.Adapter
}

// PersistenceError is returned if the backend fails to read or write.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s '%s': %s", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type Config struct {
	Storage storage.Adapter
	Key     string // Defaults to DocumentKey
	Logger  log.Logger
}

type jsonStore struct {
	storage storage.Adapter
	key     string
	logger  log.Logger
}

// NewJSON returns a Store that writes the document as JSON.
func NewJSON(config Config) (Store, error) {
	s := &jsonStore{
		storage: config.Storage,
		key:     config.Key,
		logger:  config.Logger,
	}

	if s.storage == nil {
		return nil, fmt.Errorf("no valid storage provided")
	}

	if len(s.key) == 0 {
		s.key = DocumentKey
	}

	if s.logger == nil {
		s.logger = log.New("")
	}

	s.logger = s.logger.WithFields(log.Fields{
		"key":     s.key,
		"storage": s.storage.Type(),
	})

	return s, nil
}

func (s *jsonStore) Storage() storage.Adapter {
	return s.storage
}

func (s *jsonStore) Load(ctx context.Context) (document.Document, error) {
	doc := document.New()

	jsondata, err := s.storage.Read(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return doc, nil
		}

		return doc, &PersistenceError{Op: "read", Key: s.key, Err: err}
	}

	if len(jsondata) == 0 {
		return doc, nil
	}

	raw := map[string]document.Data{}

	if err := json.Unmarshal(jsondata, &raw); err != nil {
		s.logger.Warn().WithError(json.FormatError(jsondata, err)).Log("Stored settings are corrupt, using empty settings")
		return doc, nil
	}

	for name, data := range raw {
		section, err := document.ParseSection(name)
		if err != nil {
			s.logger.Warn().WithField("section", name).Log("Ignoring unknown section")
			continue
		}

		if data == nil {
			data = document.Data{}
		}

		doc[section] = data
	}

	return doc, nil
}

func (s *jsonStore) Save(ctx context.Context, doc document.Document) error {
	if doc == nil {
		doc = document.New()
	}

	jsondata, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := s.storage.Write(ctx, s.key, jsondata); err != nil {
		return &PersistenceError{Op: "write", Key: s.key, Err: err}
	}

	s.logger.Debug().WithField("sections", len(doc)).Log("Stored settings")

	return nil
}

func (s *jsonStore) Clear(ctx context.Context) error {
	if err := s.storage.Remove(ctx, s.key); err != nil {
		return &PersistenceError{Op: "remove", Key: s.key, Err: err}
	}

	return nil
}
