package engine

import (
	"context"
	"errors"

	"github.com/datarhei/settings/backup"
	"github.com/datarhei/settings/event"
	"github.com/datarhei/settings/retry"
	"github.com/datarhei/settings/validate"
)

// CreateBackup stores a snapshot of the stored settings. Without a name,
// a name is generated from the current time.
func (e *engine) CreateBackup(ctx context.Context, name string) (backup.Snapshot, error) {
	doc, err := e.LoadAll(ctx)
	if err != nil {
		return backup.Snapshot{}, err
	}

	snapshot, err := retry.Value(ctx, e.retry, func(ctx context.Context) (backup.Snapshot, error) {
		return e.backups.Create(ctx, name, doc)
	})
	if err != nil {
		return backup.Snapshot{}, err
	}

	e.backupsCreated.Add(1)

	e.bus.Publish(event.BackupCreated, snapshot.Clone())

	return snapshot, nil
}

// ListBackups returns all snapshots, most recent first.
func (e *engine) ListBackups(ctx context.Context) ([]backup.Snapshot, error) {
	return retry.Value(ctx, e.retry, e.backups.List)
}

// RestoreBackup saves the settings of a snapshot like SaveAll. A missing
// snapshot results in a *backup.NotFoundError.
func (e *engine) RestoreBackup(ctx context.Context, name string) (validate.Result, error) {
	snapshot, err := retry.Value(ctx, e.retry, func(ctx context.Context) (backup.Snapshot, error) {
		s, err := e.backups.Get(ctx, name)
		if err != nil {
			var notfound *backup.NotFoundError
			if errors.As(err, &notfound) {
				return s, retry.Permanent(err)
			}
		}

		return s, err
	})
	if err != nil {
		return validate.Result{}, err
	}

	result, err := e.SaveAll(ctx, snapshot.Settings)
	if err != nil || !result.Valid {
		return result, err
	}

	e.logger.Info().WithField("name", name).Log("Restored backup")

	e.bus.Publish(event.BackupRestored, snapshot)

	return result, nil
}
