package handler

import (
	"context"
	"net/http"

	"github.com/datarhei/settings/http/api"

	"github.com/labstack/echo/v4"
)

// The PingHandler type provides handlers for liveness and readiness checks
type PingHandler struct {
	ready func(ctx context.Context) error
}

// NewPing returns a new Ping type. The ready function is called for readiness
// checks, e.g. for reading from the store. It may be nil.
func NewPing(ready func(ctx context.Context) error) *PingHandler {
	return &PingHandler{
		ready: ready,
	}
}

// Ping returns pong
// @Summary Liveliness check
// @Description Liveliness check
// @ID ping
// @Produce text/plain
// @Success 200 {string} string "pong"
// @Router /ping [get]
func (p *PingHandler) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "pong")
}

// Ready returns ready if the store can be read
// @Summary Readiness check
// @ID ready
// @Produce text/plain
// @Success 200 {string} string "ready"
// @Failure 503 {object} api.Error
// @Router /ready [get]
func (p *PingHandler) Ready(c echo.Context) error {
	if p.ready != nil {
		if err := p.ready(c.Request().Context()); err != nil {
			return api.Err(http.StatusServiceUnavailable, "", "%s", err)
		}
	}

	return c.String(http.StatusOK, "ready")
}
