// Package engine synchronizes the hotel settings between the working copy
// that is edited, the cache and the persistence backend. It validates every
// change, keeps an undo history, saves edits debounced and publishes the
// lifecycle events.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datarhei/settings/backup"
	"github.com/datarhei/settings/cache"
	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/event"
	"github.com/datarhei/settings/history"
	"github.com/datarhei/settings/log"
	"github.com/datarhei/settings/retry"
	"github.com/datarhei/settings/store"
	"github.com/datarhei/settings/validate"
)

const (
	DefaultAutoSaveDelay = 3 * time.Second
	DefaultVersion       = "1.0.0"
	DefaultLabel         = "Unknown Hotel"
)

// Engine is the settings engine.
type Engine interface {
	// LoadAll returns the settings document. It is read from the cache or,
	// on a miss, from the store.
	LoadAll(ctx context.Context) (document.Document, error)

	// LoadSection returns the data of a section. An unconfigured section
	// is returned as empty data.
	LoadSection(ctx context.Context, section document.Section) (document.Data, error)

	// UpdateSection applies a validated edit to the working copy. With autosave
	// enabled, the working copy is saved after a quiet period.
	UpdateSection(section document.Section, data document.Data, options ...UpdateOption) (validate.Result, error)

	// SaveSection validates and stores the data of one section. An invalid
	// result is returned without an error. The error is only set if the
	// store failed after all retries.
	SaveSection(ctx context.Context, section document.Section, data document.Data) (validate.Result, error)

	// SaveAll validates and stores the whole document.
	SaveAll(ctx context.Context, doc document.Document) (validate.Result, error)

	// Flush cancels a pending autosave and stores the working copy now.
	Flush(ctx context.Context) error

	// Reset removes the stored document and clears the cache, the history
	// and all section states.
	Reset(ctx context.Context) error

	ExportAll(ctx context.Context) (Export, error)
	ExportFilename(t time.Time) string
	ImportAll(ctx context.Context, payload Export) (validate.Result, error)

	// Undo reverts the working copy to the state before the last edit.
	Undo() (document.Document, bool)
	Redo() (document.Document, bool)
	CanUndo() bool
	CanRedo() bool

	CreateBackup(ctx context.Context, name string) (backup.Snapshot, error)
	ListBackups(ctx context.Context) ([]backup.Snapshot, error)
	RestoreBackup(ctx context.Context, name string) (validate.Result, error)

	// Subscribe registers a callback for all events.
	Subscribe(fn func(event.Event)) event.CancelFunc

	// Events returns a channel for all events.
	Events(size int) (<-chan event.Event, event.CancelFunc)

	State(section document.Section) SectionState
	Errors(section document.Section) map[string]string
	HasUnsavedChanges() bool
	LastSaved() time.Time
	SetAutoSave(enable bool)
	AutoSave() bool

	// Document returns a copy of the working copy.
	Document() document.Document

	// ValidateField returns the message for the value at the field path
	// of a section in the working copy, or an empty string.
	ValidateField(section document.Section, path string, value interface{}) string

	// Schema returns the JSON schema of a section.
	Schema(section document.Section) ([]byte, error)

	Stats() Stats

	// Close stops a pending autosave without saving.
	Close()
}

type Config struct {
	Store     store.Store
	Validator validate.Validator // Defaults to validate.Must()
	Logger    log.Logger

	CacheTTL       time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration

	AutoSave      bool
	AutoSaveDelay time.Duration

	HistoryLimit int
	BackupLimit  int

	Version string // Version of exports and backups
	Label   string // Label of an export if the hotel has no name

	Now func() time.Time
}

// Stats are the counters of an engine.
type Stats struct {
	Saves          uint64
	SaveFailures   uint64
	Retries        uint64
	CacheHits      uint64
	CacheMisses    uint64
	CacheEntries   int
	BackupsCreated uint64
	HistoryDepth   int
	Subscribers    int
	Unsaved        bool
}

type engine struct {
	store     store.Store
	validator validate.Validator
	cache     cache.Cacher
	retry     *retry.Executor
	bus       *event.Bus
	history   *history.History
	backups   *backup.Manager
	logger    log.Logger
	now       func() time.Time
	version   string
	label     string

	// mu guards the working copy, the section states and the autosave timer
	mu         sync.Mutex
	working    document.Document
	states     map[document.Section]SectionState
	errors     map[document.Section]map[string]string
	lastSaved  time.Time
	autosave   bool
	delay      time.Duration
	timer      *time.Timer
	generation uint64
	closed     bool

	// saveMu allows only one write to the store at a time
	saveMu sync.Mutex

	saves          atomic.Uint64
	saveFailures   atomic.Uint64
	backupsCreated atomic.Uint64
}

func New(config Config) (Engine, error) {
	e := &engine{
		store:     config.Store,
		validator: config.Validator,
		logger:    config.Logger,
		now:       config.Now,
		version:   config.Version,
		label:     config.Label,
		autosave:  config.AutoSave,
		delay:     config.AutoSaveDelay,
		working:   document.New(),
		states:    map[document.Section]SectionState{},
		errors:    map[document.Section]map[string]string{},
	}

	if e.store == nil {
		return nil, fmt.Errorf("no store provided")
	}

	if e.logger == nil {
		e.logger = log.New("")
	}

	if e.validator == nil {
		v, err := validate.New()
		if err != nil {
			return nil, fmt.Errorf("validator: %w", err)
		}
		e.validator = v
	}

	if e.now == nil {
		e.now = time.Now
	}

	if len(e.version) == 0 {
		e.version = DefaultVersion
	}

	if len(e.label) == 0 {
		e.label = DefaultLabel
	}

	if e.delay <= 0 {
		e.delay = DefaultAutoSaveDelay
	}

	e.cache = cache.New(cache.Config{
		TTL:    config.CacheTTL,
		Logger: e.logger.WithComponent("Cache"),
	})

	e.retry = retry.New(retry.Config{
		Attempts:  config.RetryAttempts,
		BaseDelay: config.RetryBaseDelay,
		Logger:    e.logger.WithComponent("Retry"),
	})

	e.bus = event.NewBus(e.logger.WithComponent("Events"))
	e.history = history.New(config.HistoryLimit)

	backups, err := backup.New(backup.Config{
		Storage: e.store.Storage(),
		Limit:   config.BackupLimit,
		Version: e.version,
		Logger:  e.logger.WithComponent("Backup"),
		Now:     e.now,
	})
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}

	e.backups = backups

	return e, nil
}

func (e *engine) LoadAll(ctx context.Context) (document.Document, error) {
	if v, ok := e.cache.Get(cache.DocumentKey); ok {
		return v.(document.Document), nil
	}

	doc, err := retry.Value(ctx, e.retry, e.store.Load)
	if err != nil {
		return nil, err
	}

	e.cache.Put(cache.DocumentKey, doc)

	e.mu.Lock()
	for _, section := range doc.Sections() {
		e.applyLoadedLocked(section, doc[section])
	}
	e.mu.Unlock()

	e.logger.Debug().WithField("sections", len(doc)).Log("Loaded settings")

	e.bus.Publish(event.SettingsLoaded, doc.Clone())

	return doc, nil
}

func (e *engine) LoadSection(ctx context.Context, section document.Section) (document.Data, error) {
	if !section.IsValid() {
		return nil, fmt.Errorf("%w: %s", validate.ErrUnknownSection, section)
	}

	if v, ok := e.cache.Get(section.String()); ok {
		return v.(document.Data), nil
	}

	doc, err := retry.Value(ctx, e.retry, e.store.Load)
	if err != nil {
		return nil, err
	}

	data, ok := doc[section]
	if !ok {
		data = document.Data{}
	} else {
		e.mu.Lock()
		e.applyLoadedLocked(section, data)
		e.mu.Unlock()
	}

	e.cache.Put(section.String(), data)

	e.bus.Publish(event.SectionLoaded, event.SectionPayload{
		Section: section,
		Data:    data.Clone(),
	})

	return data, nil
}

// applyLoadedLocked takes over stored data into the working copy unless the
// section has local edits.
func (e *engine) applyLoadedLocked(section document.Section, data document.Data) {
	switch e.states[section] {
	case StateDirty, StateSaving, StateErrored:
		return
	}

	e.working[section] = data.Clone()
	e.states[section] = StateClean
}

// UpdateOption modifies the behavior of UpdateSection.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	skipHistory bool
}

// SkipHistory applies an edit without recording it in the history.
func SkipHistory() UpdateOption {
	return func(o *updateOptions) {
		o.skipHistory = true
	}
}

func (e *engine) UpdateSection(section document.Section, data document.Data, options ...UpdateOption) (validate.Result, error) {
	opts := updateOptions{}
	for _, o := range options {
		o(&opts)
	}

	data, err := document.Normalize(data)
	if err != nil {
		return validate.Result{}, err
	}

	result, err := e.validator.Validate(section, data)
	if err != nil {
		return validate.Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !result.Valid {
		e.errors[section] = copyErrors(result.Errors)
		return result, nil
	}

	if !opts.skipHistory && e.history.Len() == 0 {
		e.history.Push(e.working)
	}

	e.working[section] = data
	e.states[section] = StateDirty
	delete(e.errors, section)

	if !opts.skipHistory {
		e.history.Push(e.working)
	}

	if e.autosave {
		e.scheduleLocked()
	}

	return result, nil
}

func (e *engine) Undo() (document.Document, bool) {
	doc, ok := e.history.Undo()
	if !ok {
		return nil, false
	}

	return e.revert(doc), true
}

func (e *engine) Redo() (document.Document, bool) {
	doc, ok := e.history.Redo()
	if !ok {
		return nil, false
	}

	return e.revert(doc), true
}

// revert replaces the working copy with a document from the history and
// marks every changed section as dirty.
func (e *engine) revert(doc document.Document) document.Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, section := range document.Sections() {
		current, hasCurrent := e.working[section]
		next, hasNext := doc[section]

		if hasCurrent == hasNext && current.Equal(next) {
			continue
		}

		e.states[section] = StateDirty
		delete(e.errors, section)
	}

	e.working = doc

	if e.autosave {
		e.scheduleLocked()
	}

	return doc.Clone()
}

func (e *engine) CanUndo() bool {
	return e.history.CanUndo()
}

func (e *engine) CanRedo() bool {
	return e.history.CanRedo()
}

func (e *engine) Subscribe(fn func(event.Event)) event.CancelFunc {
	return e.bus.Subscribe(fn)
}

func (e *engine) Events(size int) (<-chan event.Event, event.CancelFunc) {
	return e.bus.Events(size)
}

func (e *engine) Document() document.Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.working.Clone()
}

func (e *engine) ValidateField(section document.Section, path string, value interface{}) string {
	e.mu.Lock()
	data := e.working[section].Clone()
	e.mu.Unlock()

	return e.validator.ValidateField(section, data, path, value)
}

func (e *engine) Schema(section document.Section) ([]byte, error) {
	return e.validator.Schema(section)
}

func (e *engine) Stats() Stats {
	c := e.cache.Stats()
	r := e.retry.Stats()

	return Stats{
		Saves:          e.saves.Load(),
		SaveFailures:   e.saveFailures.Load(),
		Retries:        r.Retries,
		CacheHits:      c.Hits,
		CacheMisses:    c.Misses,
		CacheEntries:   c.Entries,
		BackupsCreated: e.backupsCreated.Load(),
		HistoryDepth:   e.history.Len(),
		Subscribers:    e.bus.Len(),
		Unsaved:        e.HasUnsavedChanges(),
	}
}

func (e *engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	e.closed = true
}

func copyErrors(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}

	return c
}
