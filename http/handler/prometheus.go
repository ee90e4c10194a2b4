package handler

import (
	"github.com/datarhei/settings/prometheus"

	"github.com/labstack/echo/v4"
)

// The PrometheusHandler type provides a handler function for reading the prometheus metrics
type PrometheusHandler struct {
	metrics prometheus.Reader
}

// NewPrometheus returns a new Prometheus type. You have to provide a metrics reader.
func NewPrometheus(metrics prometheus.Reader) *PrometheusHandler {
	return &PrometheusHandler{
		metrics: metrics,
	}
}

// Metrics godoc
// @Summary Prometheus metrics
// @Description Prometheus metrics
// @ID metrics
// @Produce text/plain
// @Success 200 {string} string
// @Router /metrics [get]
func (m *PrometheusHandler) Metrics(c echo.Context) error {
	m.metrics.HTTPHandler().ServeHTTP(c.Response(), c.Request())

	return nil
}
