package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/datarhei/settings/http/mock"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func getDummyPingRouter(ready func(ctx context.Context) error) *echo.Echo {
	router := mock.DummyEcho()

	handler := NewPing(ready)

	router.Add("GET", "/", handler.Ping)
	router.Add("GET", "/ready", handler.Ready)

	return router
}

func TestPing(t *testing.T) {
	router := getDummyPingRouter(nil)

	response := mock.Request(t, http.StatusOK, router, "GET", "/", nil)
	require.Equal(t, "pong", string(response.Data.([]byte)))

	response = mock.Request(t, http.StatusOK, router, "GET", "/ready", nil)
	require.Equal(t, "ready", string(response.Data.([]byte)))
}

func TestNotReady(t *testing.T) {
	router := getDummyPingRouter(func(ctx context.Context) error {
		return errors.New("storage unavailable")
	})

	response := mock.Request(t, http.StatusServiceUnavailable, router, "GET", "/ready", nil)
	require.Equal(t, "Service Unavailable", response.Message)
}
