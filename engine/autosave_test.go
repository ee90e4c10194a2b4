package engine

import (
	"context"
	"testing"
	"time"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/event"
	"github.com/datarhei/settings/store"

	"github.com/stretchr/testify/require"
)

func TestAutoSaveDebounce(t *testing.T) {
	e, fs, r := newEngine(t, Config{AutoSave: true, AutoSaveDelay: 150 * time.Millisecond})

	_, err := e.UpdateSection(document.General, general("A"))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = e.UpdateSection(document.General, general("AB"))
	require.NoError(t, err)

	second := time.Now()

	// The first timer would have fired by now
	time.Sleep(120 * time.Millisecond)
	require.Equal(t, 0, fs.Writes(store.DocumentKey))

	require.Eventually(t, func() bool {
		return fs.Writes(store.DocumentKey) == 1
	}, time.Second, 5*time.Millisecond)

	require.GreaterOrEqual(t, time.Since(second), 150*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	require.Equal(t, 1, fs.Writes(store.DocumentKey))

	require.Equal(t, "AB", stored(t, e)[document.General]["hotelName"])
	require.Equal(t, StateClean, e.State(document.General))
	require.False(t, e.HasUnsavedChanges())
	require.Equal(t, []string{event.SettingsSaved, event.SettingsChanged}, r.Names())
}

func TestAutoSaveDisabled(t *testing.T) {
	e, fs, _ := newEngine(t, Config{AutoSave: false, AutoSaveDelay: 10 * time.Millisecond})

	_, err := e.UpdateSection(document.General, general("A"))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, fs.Writes(store.DocumentKey))
	require.True(t, e.HasUnsavedChanges())
}

func TestSetAutoSaveCancels(t *testing.T) {
	e, fs, _ := newEngine(t, Config{AutoSave: true, AutoSaveDelay: 30 * time.Millisecond})

	_, err := e.UpdateSection(document.General, general("A"))
	require.NoError(t, err)

	e.SetAutoSave(false)
	require.False(t, e.AutoSave())

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, 0, fs.Writes(store.DocumentKey))

	e.SetAutoSave(true)

	_, err = e.UpdateSection(document.General, general("AB"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return fs.Writes(store.DocumentKey) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAutoSaveAfterUndo(t *testing.T) {
	e, fs, _ := newEngine(t, Config{AutoSave: true, AutoSaveDelay: 20 * time.Millisecond})

	_, err := e.UpdateSection(document.General, general("A"))
	require.NoError(t, err)
	_, err = e.UpdateSection(document.General, general("AB"))
	require.NoError(t, err)

	_, ok := e.Undo()
	require.True(t, ok)

	require.Eventually(t, func() bool {
		return fs.Writes(store.DocumentKey) == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, "A", stored(t, e)[document.General]["hotelName"])
}

func TestFlush(t *testing.T) {
	ctx := context.Background()
	e, fs, _ := newEngine(t, Config{AutoSave: true, AutoSaveDelay: time.Hour})

	require.NoError(t, e.Flush(ctx))
	require.Equal(t, 0, fs.Writes(store.DocumentKey))

	_, err := e.UpdateSection(document.General, general("A"))
	require.NoError(t, err)
	_, err = e.UpdateSection(document.Language, document.Data{"defaultLanguage": "en", "currency": "CAD"})
	require.NoError(t, err)

	require.NoError(t, e.Flush(ctx))
	require.Equal(t, 1, fs.Writes(store.DocumentKey))
	require.True(t, e.Document().Equal(stored(t, e)))
	require.False(t, e.HasUnsavedChanges())
	require.False(t, e.LastSaved().IsZero())

	e.mu.Lock()
	require.Nil(t, e.timer)
	e.mu.Unlock()

	require.NoError(t, e.Flush(ctx))
	require.Equal(t, 1, fs.Writes(store.DocumentKey))
}

func TestCloseStopsAutoSave(t *testing.T) {
	e, fs, _ := newEngine(t, Config{AutoSave: true, AutoSaveDelay: 20 * time.Millisecond})

	_, err := e.UpdateSection(document.General, general("A"))
	require.NoError(t, err)

	e.Close()

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 0, fs.Writes(store.DocumentKey))
}

func TestFlushKeepsStoredSections(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t, Config{AutoSave: true, AutoSaveDelay: time.Hour})

	language := document.Data{"defaultLanguage": "fr", "currency": "EUR"}
	require.NoError(t, e.store.Save(ctx, document.Document{document.Language: language}))

	// The engine never loaded the stored settings
	_, err := e.UpdateSection(document.General, general("A"))
	require.NoError(t, err)

	require.NoError(t, e.Flush(ctx))

	doc := stored(t, e)
	require.Equal(t, language, doc[document.Language])
	require.Equal(t, "A", doc[document.General]["hotelName"])
	require.False(t, e.HasUnsavedChanges())

	// Undoing the edit removes the section again, the other sections stay
	_, ok := e.Undo()
	require.True(t, ok)
	require.Equal(t, StateDirty, e.State(document.General))

	require.NoError(t, e.Flush(ctx))

	doc = stored(t, e)
	require.Equal(t, []document.Section{document.Language}, doc.Sections())
	require.Equal(t, StateClean, e.State(document.General))
	require.False(t, e.HasUnsavedChanges())
}

func TestAutoSaveKeepsStoredSections(t *testing.T) {
	ctx := context.Background()
	e, fs, _ := newEngine(t, Config{AutoSave: true, AutoSaveDelay: 20 * time.Millisecond})

	language := document.Data{"defaultLanguage": "fr", "currency": "EUR"}
	require.NoError(t, e.store.Save(ctx, document.Document{document.Language: language}))

	writes := fs.Writes(store.DocumentKey)

	_, err := e.SaveSection(ctx, document.Security, document.Data{"twoFactorAuth": true, "sessionTimeout": float64(30), "loginAttempts": float64(5)})
	require.NoError(t, err)

	_, err = e.UpdateSection(document.General, general("A"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return fs.Writes(store.DocumentKey) == writes+2
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return !e.HasUnsavedChanges()
	}, time.Second, 5*time.Millisecond)

	doc := stored(t, e)
	require.Equal(t, []document.Section{document.General, document.Security, document.Language}, doc.Sections())
	require.Equal(t, language, doc[document.Language])
}
