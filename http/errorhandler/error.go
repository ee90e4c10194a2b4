// Package errorhandler converts errors returned by handlers into API
// error responses.
package errorhandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/datarhei/settings/backup"
	"github.com/datarhei/settings/engine"
	"github.com/datarhei/settings/http/api"
	"github.com/datarhei/settings/log"
	"github.com/datarhei/settings/store"
	"github.com/datarhei/settings/validate"

	"github.com/labstack/echo/v4"
)

// New returns a general handler for echo handler errors. Server errors
// are logged.
func New(logger log.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = log.New("")
	}

	return func(err error, c echo.Context) {
		e := Convert(err)

		if e.Code >= http.StatusInternalServerError {
			logger.Error().WithError(err).WithFields(log.Fields{
				"method": c.Request().Method,
				"path":   c.Request().URL.Path,
			}).Log("Request failed")
		}

		send(c, e)
	}
}

// HTTPErrorHandler handles errors without logging
func HTTPErrorHandler(err error, c echo.Context) {
	send(c, Convert(err))
}

func send(c echo.Context, e api.Error) {
	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(e.Code)
		return
	}

	c.JSON(e.Code, e)
}

// Convert maps an error to an API error with a matching status code.
func Convert(err error) api.Error {
	var apierr api.Error
	if errors.As(err, &apierr) {
		return apierr
	}

	if he, ok := err.(*echo.HTTPError); ok {
		if he.Internal != nil {
			if herr, ok := he.Internal.(*echo.HTTPError); ok {
				he = herr
			}
		}

		return api.Error{
			Code:    he.Code,
			Message: http.StatusText(he.Code),
			Details: strings.Split(fmt.Sprintf("%v", he.Message), "\n"),
		}
	}

	var notfound *backup.NotFoundError
	var importerr *engine.ImportFormatError
	var persistence *store.PersistenceError
	var validation *validate.Error

	switch {
	case errors.As(err, &notfound):
		return api.Err(http.StatusNotFound, "", "%s", err)
	case errors.Is(err, validate.ErrUnknownSection):
		return api.Err(http.StatusNotFound, "Unknown section", "%s", err)
	case errors.As(err, &importerr):
		return api.Err(http.StatusBadRequest, "Invalid import", "%s", err)
	case errors.As(err, &validation):
		return api.ErrInvalid(http.StatusConflict, "Invalid settings", validation.Result)
	case errors.As(err, &persistence):
		return api.Err(http.StatusServiceUnavailable, "Storage failed", "%s", err)
	case errors.Is(err, context.DeadlineExceeded):
		return api.Err(http.StatusGatewayTimeout, "", "%s", err)
	}

	return api.Err(http.StatusInternalServerError, "", "%s", err)
}
