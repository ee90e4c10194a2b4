package engine

import (
	"time"

	"github.com/datarhei/settings/document"
)

// SectionState tells whether a section of the working copy matches the
// stored settings.
type SectionState string

const (
	StateClean   SectionState = "clean"   // Matches the last stored value
	StateDirty   SectionState = "dirty"   // Edited, not yet stored
	StateSaving  SectionState = "saving"  // A write is in flight
	StateErrored SectionState = "errored" // Validation or storing failed, the edit is kept
)

func (s SectionState) String() string {
	return string(s)
}

func (e *engine) State(section document.Section) SectionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.states[section]
	if !ok {
		return StateClean
	}

	return state
}

// Errors returns the field errors of the last failed validation of
// a section.
func (e *engine) Errors(section document.Section) map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return copyErrors(e.errors[section])
}

func (e *engine) HasUnsavedChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, state := range e.states {
		if state != StateClean {
			return true
		}
	}

	return false
}

func (e *engine) LastSaved() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastSaved
}

// SetAutoSave enables or disables the autosave. Disabling cancels
// a pending autosave.
func (e *engine) SetAutoSave(enable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.autosave = enable

	if !enable {
		e.cancelLocked()
	}
}

func (e *engine) AutoSave() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.autosave
}

// markSavedLocked sets the sections of the stored document to clean if
// they didn't change in the meantime.
func (e *engine) markSavedLocked(saved document.Document) {
	for section, data := range saved {
		current, ok := e.working[section]
		if ok && !current.Equal(data) {
			e.states[section] = StateDirty
			continue
		}

		e.states[section] = StateClean
		delete(e.errors, section)
	}

	e.lastSaved = e.now()
}
