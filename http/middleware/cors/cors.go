// Package cors implements a CORS middleware for the API
package cors

import (
	"fmt"
	"time"

	"github.com/datarhei/settings/http/cors"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Config struct {
	// Skipper defines a function to skip middleware.
	Skipper middleware.Skipper
	Origins []string
}

var DefaultConfig = Config{
	Skipper: middleware.DefaultSkipper,
	Origins: []string{"*"},
}

func New() echo.MiddlewareFunc {
	mw, _ := NewWithConfig(DefaultConfig)

	return mw
}

// NewWithConfig returns a CORS middleware for the given origins. An error is
// returned if an origin is not valid.
func NewWithConfig(config Config) (echo.MiddlewareFunc, error) {
	if config.Skipper == nil {
		config.Skipper = DefaultConfig.Skipper
	}

	if len(config.Origins) == 0 {
		config.Origins = DefaultConfig.Origins
	}

	if err := cors.Validate(config.Origins); err != nil {
		return nil, fmt.Errorf("invalid CORS config: %w", err)
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:          config.Skipper,
		AllowOrigins:     config.Origins,
		AllowMethods:     []string{"GET", "HEAD", "PUT", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           int((24 * time.Hour).Seconds()),
	}), nil
}
