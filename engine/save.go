package engine

import (
	"context"
	"strings"
	"time"

	"github.com/datarhei/settings/cache"
	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/event"
	"github.com/datarhei/settings/log"
	"github.com/datarhei/settings/validate"
)

func (e *engine) SaveSection(ctx context.Context, section document.Section, data document.Data) (validate.Result, error) {
	data, err := document.Normalize(data)
	if err != nil {
		return validate.Result{}, err
	}

	result, err := e.validator.Validate(section, data)
	if err != nil {
		return validate.Result{}, err
	}

	e.mu.Lock()
	if !result.Valid {
		e.working[section] = data.Clone()
		e.states[section] = StateErrored
		e.errors[section] = copyErrors(result.Errors)
		e.mu.Unlock()

		return result, nil
	}

	e.working[section] = data.Clone()
	e.states[section] = StateSaving
	e.mu.Unlock()

	var stored document.Document

	e.saveMu.Lock()
	err = e.retry.Do(ctx, func(ctx context.Context) error {
		doc, err := e.store.Load(ctx)
		if err != nil {
			return err
		}

		doc[section] = data

		if err := e.store.Save(ctx, doc); err != nil {
			return err
		}

		stored = doc

		return nil
	})
	e.saveMu.Unlock()

	if err != nil {
		e.saveFailures.Add(1)

		e.mu.Lock()
		e.states[section] = StateErrored
		e.mu.Unlock()

		return result, err
	}

	e.saves.Add(1)

	e.mu.Lock()
	e.markSavedLocked(document.Document{section: data})
	e.mu.Unlock()

	e.cache.Put(section.String(), data)
	e.cache.Put(cache.DocumentKey, stored)

	e.logger.Info().WithField("section", section).Log("Saved section")

	e.bus.Publish(event.SectionUpdated, event.SectionPayload{
		Section: section,
		Data:    data.Clone(),
	})
	e.bus.Publish(event.SettingsChanged, stored.Clone())

	return result, nil
}

func (e *engine) SaveAll(ctx context.Context, doc document.Document) (validate.Result, error) {
	doc, err := document.NormalizeDocument(doc)
	if err != nil {
		return validate.Result{}, err
	}

	result, err := e.validator.ValidateDocument(doc)
	if err != nil {
		return validate.Result{}, err
	}

	if !result.Valid {
		e.mu.Lock()
		e.retainLocked(doc, result)
		e.mu.Unlock()

		return result, nil
	}

	return result, e.write(ctx, doc)
}

// retainLocked keeps the data of a rejected document in the working copy
// for correction. Sections with errors become errored, other changed
// sections dirty.
func (e *engine) retainLocked(doc document.Document, result validate.Result) {
	for section, data := range doc {
		current, ok := e.working[section]
		if ok && current.Equal(data) {
			continue
		}

		e.working[section] = data.Clone()
		e.states[section] = StateDirty
		delete(e.errors, section)
	}

	e.recordErrorsLocked(result)
}

// recordErrorsLocked splits the errors of a document validation by section.
func (e *engine) recordErrorsLocked(result validate.Result) {
	errors := map[document.Section]map[string]string{}

	for path, msg := range result.Errors {
		name, field, found := strings.Cut(path, ".")
		if !found {
			field = name
		}

		section := document.Section(name)

		if errors[section] == nil {
			errors[section] = map[string]string{}
		}

		errors[section][field] = msg
	}

	for section, errs := range errors {
		e.errors[section] = errs
		e.states[section] = StateErrored
	}
}

// write stores doc as the whole document. It becomes the working copy.
func (e *engine) write(ctx context.Context, doc document.Document) error {
	e.mu.Lock()
	for section := range e.working {
		if _, ok := doc[section]; !ok {
			delete(e.states, section)
			delete(e.errors, section)
		}
	}

	e.working = doc.Clone()

	for section := range doc {
		e.states[section] = StateSaving
	}
	e.mu.Unlock()

	e.saveMu.Lock()
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		return e.store.Save(ctx, doc)
	})
	e.saveMu.Unlock()

	if err != nil {
		e.saveFailures.Add(1)

		e.mu.Lock()
		for section := range doc {
			e.states[section] = StateErrored
		}
		e.mu.Unlock()

		return err
	}

	e.saved(doc, doc)

	return nil
}

// merge writes the edited sections into the stored document and removes
// the sections in removed. All other stored sections are kept.
func (e *engine) merge(ctx context.Context, edits document.Document, removed []document.Section) error {
	e.mu.Lock()
	for section := range edits {
		e.states[section] = StateSaving
	}
	e.mu.Unlock()

	var stored document.Document

	e.saveMu.Lock()
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		doc, err := e.store.Load(ctx)
		if err != nil {
			return err
		}

		for section, data := range edits {
			doc[section] = data
		}

		for _, section := range removed {
			delete(doc, section)
		}

		if err := e.store.Save(ctx, doc); err != nil {
			return err
		}

		stored = doc

		return nil
	})
	e.saveMu.Unlock()

	if err != nil {
		e.saveFailures.Add(1)

		e.mu.Lock()
		for section := range edits {
			e.states[section] = StateErrored
		}
		e.mu.Unlock()

		return err
	}

	written := document.Document{}
	for section, data := range edits {
		written[section] = data
	}

	// Removed sections are missing from the working copy and become clean
	for _, section := range removed {
		written[section] = nil
	}

	e.saved(written, stored)

	return nil
}

// saved marks the written sections as stored and publishes the stored document.
func (e *engine) saved(written, stored document.Document) {
	e.saves.Add(1)

	e.mu.Lock()
	e.markSavedLocked(written)
	e.mu.Unlock()

	e.cache.Invalidate("")
	e.cache.Put(cache.DocumentKey, stored)

	e.logger.Info().WithFields(log.Fields{
		"sections": len(written),
	}).Log("Saved settings")

	e.bus.Publish(event.SettingsSaved, stored.Clone())
	e.bus.Publish(event.SettingsChanged, stored.Clone())
}

func (e *engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	e.cancelLocked()
	e.mu.Unlock()

	e.saveMu.Lock()
	err := e.retry.Do(ctx, e.store.Clear)
	e.saveMu.Unlock()

	if err != nil {
		return err
	}

	e.mu.Lock()
	e.working = document.New()
	e.states = map[document.Section]SectionState{}
	e.errors = map[document.Section]map[string]string{}
	e.lastSaved = time.Time{}
	e.mu.Unlock()

	e.history.Clear()
	e.cache.Invalidate("")

	e.logger.Info().Log("Reset settings")

	e.bus.Publish(event.SettingsReset, nil)

	return nil
}
