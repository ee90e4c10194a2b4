// Package backup keeps named snapshots of the settings document.
package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/encoding/json"
	"github.com/datarhei/settings/io/storage"
	"github.com/datarhei/settings/log"
	"github.com/datarhei/settings/store"

	"github.com/google/uuid"
)

const (
	DefaultLimit   = 10
	DefaultVersion = "1.0.0"
)

// Snapshot is a copy of the settings document at a point in time.
type Snapshot struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Settings  document.Document `json:"settings"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	s.Settings = s.Settings.Clone()

	return s
}

// NotFoundError is returned if there's no snapshot with the requested name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("backup '%s' not found", e.Name)
}

type Config struct {
	Storage storage.Adapter
	Limit   int    // Max. number of kept snapshots, 10 by default
	Version string // Version written into new snapshots
	Logger  log.Logger
	Now     func() time.Time
}

// Manager stores a list of snapshots, most recent first.
type Manager struct {
	storage storage.Adapter
	limit   int
	version string
	logger  log.Logger
	now     func() time.Time

	lock sync.Mutex
}

func New(config Config) (*Manager, error) {
	m := &Manager{
		storage: config.Storage,
		limit:   config.Limit,
		version: config.Version,
		logger:  config.Logger,
		now:     config.Now,
	}

	if m.storage == nil {
		return nil, fmt.Errorf("no valid storage provided")
	}

	if m.limit <= 0 {
		m.limit = DefaultLimit
	}

	if len(m.version) == 0 {
		m.version = DefaultVersion
	}

	if m.logger == nil {
		m.logger = log.New("")
	}

	if m.now == nil {
		m.now = time.Now
	}

	return m, nil
}

// Create stores a snapshot of the settings under the given name. Without a
// name, one is generated from the current time. An existing snapshot with
// the same name is replaced. The oldest snapshots are dropped if the limit
// is exceeded.
func (m *Manager) Create(ctx context.Context, name string, settings document.Document) (Snapshot, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.now().UTC()

	if len(name) == 0 {
		name = "backup-" + now.Format(time.RFC3339Nano)
	}

	snapshot := Snapshot{
		ID:        uuid.New().String(),
		Name:      name,
		Settings:  settings.Clone(),
		Timestamp: now,
		Version:   m.version,
	}

	if snapshot.Settings == nil {
		snapshot.Settings = document.New()
	}

	list, err := m.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snapshots := make([]Snapshot, 0, len(list)+1)
	snapshots = append(snapshots, snapshot)

	for _, s := range list {
		if s.Name == name {
			m.logger.Debug().WithField("name", name).Log("Replacing backup")
			continue
		}

		snapshots = append(snapshots, s)
	}

	if len(snapshots) > m.limit {
		for _, s := range snapshots[m.limit:] {
			m.logger.Debug().WithField("name", s.Name).Log("Evicting backup")
		}

		snapshots = snapshots[:m.limit]
	}

	if err := m.save(ctx, snapshots); err != nil {
		return Snapshot{}, err
	}

	m.logger.Info().WithFields(log.Fields{
		"name":     name,
		"sections": len(snapshot.Settings),
	}).Log("Created backup")

	return snapshot.Clone(), nil
}

// List returns all snapshots, most recent first.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.load(ctx)
}

// Get returns the snapshot with the given name or a *NotFoundError.
func (m *Manager) Get(ctx context.Context, name string) (Snapshot, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	list, err := m.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	for _, s := range list {
		if s.Name == name {
			return s, nil
		}
	}

	return Snapshot{}, &NotFoundError{Name: name}
}

// Remove deletes the snapshot with the given name or returns a *NotFoundError.
func (m *Manager) Remove(ctx context.Context, name string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	list, err := m.load(ctx)
	if err != nil {
		return err
	}

	for i, s := range list {
		if s.Name != name {
			continue
		}

		list = append(list[:i], list[i+1:]...)

		return m.save(ctx, list)
	}

	return &NotFoundError{Name: name}
}

// Clear deletes all snapshots.
func (m *Manager) Clear(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.storage.Remove(ctx, store.BackupsKey); err != nil {
		return &store.PersistenceError{Op: "remove", Key: store.BackupsKey, Err: err}
	}

	return nil
}

// Limit returns the max. number of kept snapshots.
func (m *Manager) Limit() int {
	return m.limit
}

func (m *Manager) load(ctx context.Context) ([]Snapshot, error) {
	list := []Snapshot{}

	jsondata, err := m.storage.Read(ctx, store.BackupsKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return list, nil
		}

		return nil, &store.PersistenceError{Op: "read", Key: store.BackupsKey, Err: err}
	}

	if len(jsondata) == 0 {
		return list, nil
	}

	if err := json.Unmarshal(jsondata, &list); err != nil {
		m.logger.Warn().WithError(json.FormatError(jsondata, err)).Log("Stored backups are corrupt, ignoring them")
		return []Snapshot{}, nil
	}

	for i := range list {
		if list[i].Settings == nil {
			list[i].Settings = document.New()
		}
	}

	return list, nil
}

func (m *Manager) save(ctx context.Context, list []Snapshot) error {
	jsondata, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode backups: %w", err)
	}

	if err := m.storage.Write(ctx, store.BackupsKey, jsondata); err != nil {
		return &store.PersistenceError{Op: "write", Key: store.BackupsKey, Err: err}
	}

	return nil
}
