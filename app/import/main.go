// Command import writes the settings of an export file into the configured
// storage. A backup of the current settings is created first.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/datarhei/settings/app"
	"github.com/datarhei/settings/app/api"
	"github.com/datarhei/settings/config"
	"github.com/datarhei/settings/engine"
	"github.com/datarhei/settings/io/storage"
	"github.com/datarhei/settings/log"
	"github.com/datarhei/settings/store"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	logger := log.New("Import").WithOutput(log.NewConsoleWriter(os.Stderr, log.Linfo, true))

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <export file>\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error().WithError(err).Log("Loading configuration failed")
		os.Exit(1)
	}

	adapter, err := api.NewStorage(cfg, logger.WithComponent("Storage"))
	if err != nil {
		logger.Error().WithError(err).Log("Initializing storage failed")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error().WithError(err).Log("Reading export file failed")
		os.Exit(1)
	}

	err = doImport(context.Background(), logger, adapter, data)

	if closer, ok := adapter.(io.Closer); ok {
		closer.Close()
	}

	if err != nil {
		os.Exit(1)
	}
}

func doImport(ctx context.Context, logger log.Logger, adapter storage.Adapter, data []byte) error {
	if logger == nil {
		logger = log.New("")
	}

	logger = logger.WithField("storage", adapter.Type())

	payload, err := engine.ParseImport(data)
	if err != nil {
		logger.Error().WithError(err).Log("Invalid export file")
		return err
	}

	s, err := store.NewJSON(store.Config{
		Storage: adapter,
		Logger:  logger.WithComponent("Store"),
	})
	if err != nil {
		return err
	}

	e, err := engine.New(engine.Config{
		Store:   s,
		Logger:  logger.WithComponent("Engine"),
		Version: app.Version.String(),
	})
	if err != nil {
		return err
	}

	defer e.Close()

	current, err := e.LoadAll(ctx)
	if err != nil {
		logger.Error().WithError(err).Log("Loading the current settings failed")
		return err
	}

	if len(current) != 0 {
		snapshot, err := e.CreateBackup(ctx, "before-import")
		if err != nil {
			logger.Error().WithError(err).Log("Creating a backup of the current settings failed")
			return err
		}

		logger.Info().WithField("backup", snapshot.Name).Log("Created backup of the current settings")
	}

	result, err := e.ImportAll(ctx, payload)
	if err != nil {
		logger.Error().WithError(err).Log("Importing settings failed")
		return err
	}

	if !result.Valid {
		for _, path := range result.Paths() {
			logger.Error().WithField("field", path).Log("%s", result.Errors[path])
		}

		return result.Err()
	}

	logger.Info().WithFields(log.Fields{
		"hotel":    payload.Metadata.HotelName,
		"exported": payload.Metadata.ExportDate,
		"sections": len(payload.Settings),
	}).Log("Successfully imported settings")

	return nil
}
