// Package http exposes the settings engine over a REST API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/datarhei/settings/engine"
	"github.com/datarhei/settings/http/errorhandler"
	"github.com/datarhei/settings/http/handler"
	api "github.com/datarhei/settings/http/handler/api"
	httplog "github.com/datarhei/settings/http/log"
	"github.com/datarhei/settings/http/validator"
	"github.com/datarhei/settings/log"
	"github.com/datarhei/settings/prometheus"

	mwcors "github.com/datarhei/settings/http/middleware/cors"
	mwlog "github.com/datarhei/settings/http/middleware/log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Config struct {
	Logger      log.Logger
	Engine      engine.Engine
	Prometheus  prometheus.Reader
	CorsOrigins []string
	ReadOnly    bool
	Events      bool
}

type Server interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

type server struct {
	logger log.Logger

	handler struct {
		prometheus *handler.PrometheusHandler
		ping       *handler.PingHandler
	}

	v1handler struct {
		settings *api.SettingsHandler
		backups  *api.BackupsHandler
		schema   *api.SchemaHandler
		events   *api.EventsHandler
	}

	middleware struct {
		log  echo.MiddlewareFunc
		cors echo.MiddlewareFunc
	}

	router *echo.Echo

	readOnly bool
}

func NewServer(config Config) (Server, error) {
	s := &server{
		logger:   config.Logger,
		readOnly: config.ReadOnly,
	}

	if s.logger == nil {
		s.logger = log.New("HTTP")
	}

	if config.Engine == nil {
		return nil, fmt.Errorf("no engine provided")
	}

	s.v1handler.settings = api.NewSettings(config.Engine)
	s.v1handler.backups = api.NewBackups(config.Engine)

	schema, err := api.NewSchema(config.Engine)
	if err != nil {
		return nil, err
	}
	s.v1handler.schema = schema

	if config.Events {
		s.v1handler.events = api.NewEvents(config.Engine)
	}

	if config.Prometheus != nil {
		s.handler.prometheus = handler.NewPrometheus(config.Prometheus)
	}

	s.handler.ping = handler.NewPing(func(ctx context.Context) error {
		_, err := config.Engine.LoadAll(ctx)
		return err
	})

	s.middleware.log = mwlog.NewWithConfig(mwlog.Config{
		Logger: s.logger,
	})

	if middleware, err := mwcors.NewWithConfig(mwcors.Config{
		Origins: config.CorsOrigins,
	}); err != nil {
		return nil, err
	} else {
		s.middleware.cors = middleware
	}

	s.router = echo.New()
	s.router.HTTPErrorHandler = errorhandler.New(s.logger)
	s.router.Validator = validator.New()
	s.router.Use(s.middleware.log)
	s.router.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			rows := strings.Split(string(stack), "\n")
			s.logger.Error().WithField("stack", rows).Log("recovered from a panic")
			return nil
		},
	}))

	s.router.HideBanner = true
	s.router.HidePort = true

	s.router.Logger.SetOutput(httplog.NewWrapper(s.logger))

	s.router.Use(s.middleware.cors)

	s.setRoutes()

	return s, nil
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *server) setRoutes() {
	gzipMiddleware := middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     1,
		MinLength: 1000,
		Skipper: func(c echo.Context) bool {
			// Event streams are written incrementally
			return strings.HasSuffix(c.Path(), "/events")
		},
	})

	// Prometheus metrics
	if s.handler.prometheus != nil {
		s.router.GET("/metrics", s.handler.prometheus.Metrics)
	}

	// Health checks
	s.router.GET("/ping", s.handler.ping.Ping)
	s.router.GET("/ready", s.handler.ping.Ready)

	// APIv1 router group
	v1 := s.router.Group("/api/v1")
	v1.Use(gzipMiddleware)

	s.setRoutesV1(v1)
}

func (s *server) setRoutesV1(v1 *echo.Group) {
	// v1 Settings
	v1.GET("/settings", s.v1handler.settings.GetAll)
	v1.GET("/settings/status", s.v1handler.settings.Status)
	v1.GET("/settings/working", s.v1handler.settings.Working)
	v1.GET("/settings/export", s.v1handler.settings.Export)
	v1.GET("/settings/:section", s.v1handler.settings.GetSection)
	v1.POST("/settings/:section/validate", s.v1handler.settings.ValidateField)

	if !s.readOnly {
		v1.PUT("/settings", s.v1handler.settings.SetAll)
		v1.DELETE("/settings", s.v1handler.settings.Reset)
		v1.PUT("/settings/autosave", s.v1handler.settings.SetAutoSave)
		v1.POST("/settings/undo", s.v1handler.settings.Undo)
		v1.POST("/settings/redo", s.v1handler.settings.Redo)
		v1.POST("/settings/flush", s.v1handler.settings.Flush)
		v1.POST("/settings/import", s.v1handler.settings.Import)
		v1.PUT("/settings/:section", s.v1handler.settings.SetSection)
		v1.PATCH("/settings/:section", s.v1handler.settings.EditSection)
	}

	// v1 Backups
	v1.GET("/backups", s.v1handler.backups.List)

	if !s.readOnly {
		v1.POST("/backups", s.v1handler.backups.Create)
		v1.POST("/backups/:name/restore", s.v1handler.backups.Restore)
	}

	// v1 Schemas
	v1.GET("/schema/export", s.v1handler.schema.Export)
	v1.GET("/schema/:section", s.v1handler.schema.Section)

	// v1 Events
	if s.v1handler.events != nil {
		v1.GET("/events", s.v1handler.events.Events)
	}
}
