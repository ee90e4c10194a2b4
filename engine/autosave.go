package engine

import (
	"context"
	"time"

	"github.com/datarhei/settings/document"
)

// scheduleLocked arms the autosave timer. A pending timer is replaced.
func (e *engine) scheduleLocked() {
	if e.closed {
		return
	}

	e.cancelLocked()

	generation := e.generation

	e.timer = time.AfterFunc(e.delay, func() {
		e.fire(generation)
	})
}

// cancelLocked stops a pending autosave. A timer that already fired but
// didn't start saving will see the new generation and do nothing.
func (e *engine) cancelLocked() {
	e.generation++

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *engine) fire(generation uint64) {
	e.mu.Lock()
	if e.closed || generation != e.generation {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.mu.Unlock()

	e.logger.Debug().Log("Autosaving settings")

	if err := e.flush(context.Background()); err != nil {
		e.logger.Error().WithError(err).Log("Autosave failed")
	}
}

func (e *engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	e.cancelLocked()
	e.mu.Unlock()

	return e.flush(ctx)
}

// flush stores the dirty and errored sections of the working copy. Stored
// sections without local edits are kept.
func (e *engine) flush(ctx context.Context) error {
	e.mu.Lock()
	edits := document.Document{}
	removed := []document.Section{}

	for section, state := range e.states {
		if state != StateDirty && state != StateErrored {
			continue
		}

		data, ok := e.working[section]
		if !ok {
			removed = append(removed, section)
			continue
		}

		edits[section] = data.Clone()
	}
	e.mu.Unlock()

	if len(edits) == 0 && len(removed) == 0 {
		return nil
	}

	result, err := e.validator.ValidateDocument(edits)
	if err != nil {
		return err
	}

	if !result.Valid {
		e.mu.Lock()
		e.recordErrorsLocked(result)
		e.mu.Unlock()

		return result.Err()
	}

	return e.merge(ctx, edits, removed)
}
