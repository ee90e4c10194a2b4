// Package api wires the settings engine, its storage and the HTTP server
// together according to the configuration.
package api

import (
	"context"
	"fmt"
	"io"
	golog "log"
	gohttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/datarhei/settings/app"
	"github.com/datarhei/settings/backup"
	"github.com/datarhei/settings/config"
	"github.com/datarhei/settings/engine"
	"github.com/datarhei/settings/http"
	"github.com/datarhei/settings/io/storage"
	"github.com/datarhei/settings/log"
	"github.com/datarhei/settings/prometheus"
	"github.com/datarhei/settings/store"

	"github.com/lestrrat-go/strftime"
	"go.uber.org/automaxprocs/maxprocs"
)

// The API interface is the implementation for the settings service.
type API interface {
	// Start starts the API. This is blocking until the app has
	// been ended with Stop() or Destroy() or a server failed.
	Start(ctx context.Context) error

	// Stop stores pending edits and stops the API.
	Stop()

	// Destroy is the same as Stop()
	Destroy()

	// Engine returns the settings engine. It is nil if the API is not running.
	Engine() engine.Engine
}

type api struct {
	config *config.Config

	storage    storage.Adapter
	engine     engine.Engine
	prom       prometheus.Metrics
	mainserver *gohttp.Server

	errorChan chan error

	schedulerStop context.CancelFunc

	log struct {
		writer io.Writer
		logger struct {
			core log.Logger
			main log.Logger
		}
	}

	lock   sync.Mutex
	wgStop sync.WaitGroup
	state  string

	undoMaxprocs func()
}

// New returns a new instance of the API interface with the configuration
// from the environment.
func New(logwriter io.Writer) (API, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	return NewWithConfig(cfg, logwriter)
}

// NewWithConfig returns a new instance of the API interface with the given
// configuration.
func NewWithConfig(cfg *config.Config, logwriter io.Writer) (API, error) {
	a := &api{
		state:  "idle",
		config: cfg,
	}

	a.log.writer = logwriter

	if a.log.writer == nil {
		a.log.writer = io.Discard
	}

	logger, err := newLogger(cfg, a.log.writer)
	if err != nil {
		return nil, err
	}

	logfields := log.Fields{
		"application": app.Name,
		"version":     app.Version.String(),
		"arch":        app.Arch,
		"compiler":    app.Compiler,
	}

	if len(app.Commit) != 0 {
		logfields["commit"] = app.Commit
	}

	if len(app.Build) != 0 {
		logfields["build"] = app.Build
	}

	logger.Info().WithFields(logfields).Log("")
	logger.Debug().WithField("config", cfg.Redacted()).Log("Read configuration")

	a.log.logger.core = logger
	a.log.logger.main = logger.WithComponent("HTTP").WithField("address", cfg.API.Address)

	return a, nil
}

func newLogger(cfg *config.Config, w io.Writer) (log.Logger, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	var writer log.Writer

	if cfg.Log.Format == "json" {
		writer = log.NewJSONWriter(w, level)
	} else {
		writer = log.NewConsoleWriter(w, level, true)
	}

	return log.New("Settings").WithOutput(writer), nil
}

func (a *api) start(ctx context.Context) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.errorChan == nil {
		a.errorChan = make(chan error, 1)
	}

	if a.state == "running" {
		return fmt.Errorf("already running")
	}

	a.state = "starting"

	cfg := a.config

	undoMaxprocs, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		format = strings.TrimPrefix(format, "maxprocs: ")
		a.log.logger.core.Debug().Log(format, args...)
	}))
	if err != nil {
		a.log.logger.core.Warn().Log("%s", err.Error())
	}

	a.undoMaxprocs = undoMaxprocs

	adapter, err := NewStorage(cfg, a.log.logger.core.WithComponent("Storage"))
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	a.storage = adapter

	a.log.logger.core.Info().WithField("type", adapter.Type()).Log("Storage initialized")

	s, err := store.NewJSON(store.Config{
		Storage: adapter,
		Logger:  a.log.logger.core.WithComponent("Store"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	e, err := engine.New(engine.Config{
		Store:          s,
		Logger:         a.log.logger.core.WithComponent("Engine"),
		CacheTTL:       cfg.Cache.TTL,
		RetryAttempts:  cfg.Retry.Attempts,
		RetryBaseDelay: cfg.Retry.BaseDelay,
		AutoSave:       cfg.AutoSave.Enable,
		AutoSaveDelay:  cfg.AutoSave.Delay,
		HistoryLimit:   cfg.History.Limit,
		BackupLimit:    cfg.Backup.Limit,
		Version:        app.Version.String(),
		Label:          cfg.Label,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	a.engine = e

	if _, err := e.LoadAll(ctx); err != nil {
		a.log.logger.core.Warn().WithError(err).Log("Initial loading of the settings failed")
	}

	if cfg.Metrics.Enable {
		a.prom = prometheus.New()

		a.prom.Register(prometheus.NewUptimeCollector(cfg.Name, time.Now()))
		a.prom.Register(prometheus.NewSettingsCollector(cfg.Name, e))
	}

	if len(cfg.Backup.Schedule) != 0 {
		scheduler, err := backup.NewScheduler(cfg.Backup.Schedule)
		if err != nil {
			return fmt.Errorf("invalid backup schedule: %w", err)
		}

		name, err := strftime.New("scheduled-%Y%m%d-%H%M%S")
		if err != nil {
			return err
		}

		schedulerctx, cancel := context.WithCancel(context.Background())
		a.schedulerStop = cancel

		logger := a.log.logger.core.WithComponent("Backup").WithField("schedule", cfg.Backup.Schedule)

		a.wgStop.Add(1)
		go func() {
			defer a.wgStop.Done()

			backup.Run(schedulerctx, scheduler, logger, func(ctx context.Context) error {
				_, err := e.CreateBackup(ctx, name.FormatString(time.Now().UTC()))
				return err
			})
		}()
	}

	serverConfig := http.Config{
		Logger:      a.log.logger.main,
		Engine:      e,
		CorsOrigins: cfg.API.CORS.Origins,
		ReadOnly:    cfg.API.ReadOnly,
		Events:      cfg.API.Events,
	}

	if a.prom != nil {
		serverConfig.Prometheus = a.prom
	}

	mainserverhandler, err := http.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("unable to create server: %w", err)
	}

	sendError := func(err error) {
		select {
		case a.errorChan <- err:
		default:
		}
	}

	a.mainserver = &gohttp.Server{
		Addr:              cfg.API.Address,
		Handler:           mainserverhandler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ErrorLog:          golog.New(a.log.logger.main.Debug(), "", 0),
	}

	wgStart := sync.WaitGroup{}

	wgStart.Add(1)
	a.wgStop.Add(1)

	go func() {
		logger := a.log.logger.main

		defer func() {
			logger.Info().Log("Server exited")
			a.wgStop.Done()
		}()

		wgStart.Done()

		logger.Info().Log("Server started")

		err := a.mainserver.ListenAndServe()
		if err != nil && err != gohttp.ErrServerClosed {
			err = fmt.Errorf("HTTP server: %w", err)
		} else {
			err = nil
		}

		sendError(err)
	}()

	wgStart.Wait()

	a.state = "running"

	return nil
}

// NewStorage returns the adapter for the configured storage type.
func NewStorage(cfg *config.Config, logger log.Logger) (storage.Adapter, error) {
	switch cfg.Storage.Type {
	case "mem":
		return storage.NewMemory(), nil
	case "disk":
		return storage.NewDisk(storage.DiskConfig{
			Dir:    cfg.Storage.Disk.Dir,
			Logger: logger,
		})
	case "bolt":
		return storage.NewBolt(storage.BoltConfig{
			Path:    cfg.Storage.Bolt.Path,
			Bucket:  cfg.Storage.Bolt.Bucket,
			Timeout: cfg.Storage.Bolt.Timeout,
			Logger:  logger,
		})
	case "s3":
		return storage.NewS3(storage.S3Config{
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			Region:          cfg.Storage.S3.Region,
			Bucket:          cfg.Storage.S3.Bucket,
			UseSSL:          cfg.Storage.S3.UseSSL,
			Prefix:          cfg.Storage.S3.Prefix,
			Logger:          logger,
		})
	}

	return nil, fmt.Errorf("unknown storage type '%s'", cfg.Storage.Type)
}

func (a *api) Start(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		a.stop()
		return err
	}

	// Block until there's an error from the server or the context is done
	select {
	case err := <-a.errorChan:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (a *api) Engine() engine.Engine {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.engine
}

func (a *api) stop() {
	a.lock.Lock()
	defer a.lock.Unlock()

	logger := a.log.logger.core.WithField("action", "shutdown")

	if a.state == "idle" {
		logger.Info().Log("Complete")
		return
	}

	// Stop the backup scheduler
	if a.schedulerStop != nil {
		a.schedulerStop()
		a.schedulerStop = nil
	}

	// Shutdown the HTTP server
	if a.mainserver != nil {
		logger := a.log.logger.main
		logger.Info().Log("Stopping ...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mainserver.Shutdown(ctx); err != nil {
			logger.Error().WithError(err).Log("")
		}

		a.mainserver = nil
	}

	// Store pending edits
	if a.engine != nil {
		logger.Info().Log("Storing pending changes ...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.engine.Flush(ctx); err != nil {
			logger.Error().WithError(err).Log("Storing pending changes failed")
		}

		a.engine.Close()
		a.engine = nil
	}

	if a.prom != nil {
		a.prom.UnregisterAll()
		a.prom = nil
	}

	// Release the storage
	if closer, ok := a.storage.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error().WithError(err).Log("Closing storage failed")
		}
	}
	a.storage = nil

	// Wait for all goroutines to exit
	logger.Info().Log("Waiting for all servers to stop ...")
	a.wgStop.Wait()

	// Drain error channel
	if a.errorChan != nil {
		close(a.errorChan)
		a.errorChan = nil
	}

	a.state = "idle"

	if a.undoMaxprocs != nil {
		a.undoMaxprocs()
	}

	logger.Info().Log("Complete")
}

func (a *api) Stop() {
	a.log.logger.core.Info().Log("Shutdown requested ...")
	a.stop()
}

func (a *api) Destroy() {
	a.Stop()
}
