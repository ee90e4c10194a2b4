package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/datarhei/settings/backup"
	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/event"
	"github.com/datarhei/settings/store"

	"github.com/stretchr/testify/require"
)

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	e, _, r := newEngine(t, Config{})

	_, err := e.SaveAll(ctx, validDocument())
	require.NoError(t, err)

	snapshot, err := e.CreateBackup(ctx, "before-season")
	require.NoError(t, err)
	require.Equal(t, "before-season", snapshot.Name)
	require.Equal(t, DefaultVersion, snapshot.Version)
	require.True(t, validDocument().Equal(snapshot.Settings))

	_, err = e.SaveAll(ctx, document.Document{document.General: general("Other")})
	require.NoError(t, err)

	r.Reset()

	result, err := e.RestoreBackup(ctx, "before-season")
	require.NoError(t, err)
	require.True(t, result.Valid)

	require.True(t, validDocument().Equal(stored(t, e)))
	require.True(t, validDocument().Equal(e.Document()))
	require.Equal(t, []string{event.SettingsSaved, event.SettingsChanged, event.BackupRestored}, r.Names())
	require.Equal(t, "before-season", r.Events()[2].Payload.(backup.Snapshot).Name)
}

func TestBackupCreatedEvent(t *testing.T) {
	ctx := context.Background()
	e, _, r := newEngine(t, Config{})

	snapshot, err := e.CreateBackup(ctx, "")
	require.NoError(t, err)
	require.Contains(t, snapshot.Name, "backup-")

	require.Equal(t, []string{event.SettingsLoaded, event.BackupCreated}, r.Names())
	require.Equal(t, snapshot.Name, r.Events()[1].Payload.(backup.Snapshot).Name)
	require.Equal(t, uint64(1), e.Stats().BackupsCreated)
}

func TestRestoreMissingBackup(t *testing.T) {
	ctx := context.Background()
	e, fs, r := newEngine(t, Config{RetryAttempts: 3})

	_, err := e.RestoreBackup(ctx, "missing")

	var notfound *backup.NotFoundError
	require.ErrorAs(t, err, &notfound)
	require.Equal(t, "missing", notfound.Name)

	require.Equal(t, 1, fs.Reads(store.BackupsKey))
	require.Equal(t, 0, fs.Writes(store.DocumentKey))
	require.Empty(t, r.Names())
	require.Equal(t, uint64(0), e.Stats().SaveFailures)
}

func TestBackupRetries(t *testing.T) {
	ctx := context.Background()
	e, fs, _ := newEngine(t, Config{RetryAttempts: 3})

	_, err := e.LoadAll(ctx)
	require.NoError(t, err)

	fs.Fail(0, 2)

	_, err = e.CreateBackup(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 3, fs.Writes(store.BackupsKey))

	list, err := e.ListBackups(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, len(list))
}

func TestBackupLimit(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t, Config{BackupLimit: 10})

	for i := 0; i < 11; i++ {
		_, err := e.CreateBackup(ctx, fmt.Sprintf("backup-%d", i))
		require.NoError(t, err)
	}

	list, err := e.ListBackups(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, len(list))
	require.Equal(t, "backup-10", list[0].Name)
	require.Equal(t, "backup-1", list[9].Name)

	_, err = e.RestoreBackup(ctx, "backup-0")
	var notfound *backup.NotFoundError
	require.ErrorAs(t, err, &notfound)
}

func TestRestoreInvalidBackup(t *testing.T) {
	ctx := context.Background()
	e, fs, r := newEngine(t, Config{})

	_, err := e.backups.Create(ctx, "broken", document.Document{
		document.Appearance: document.Data{"primaryColor": "red", "theme": "dark"},
	})
	require.NoError(t, err)

	result, err := e.RestoreBackup(ctx, "broken")
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "appearance.primaryColor")

	require.Equal(t, 0, fs.Writes(store.DocumentKey))
	require.Empty(t, r.Names())
}
