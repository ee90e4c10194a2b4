// Package prometheus exposes the metrics of the settings service in the
// prometheus format.
package prometheus

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics interface {
	Register(cs prometheus.Collector) error
	UnregisterAll()
	Reader
}

type Reader interface {
	HTTPHandler() http.Handler
}

type metrics struct {
	registry   *prometheus.Registry
	collectors []prometheus.Collector
	lock       sync.Mutex
}

// New returns a registry with the collectors for the Go runtime and the
// process already registered.
func New() Metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *metrics) Register(cs prometheus.Collector) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.registry.Register(cs); err != nil {
		return fmt.Errorf("register collector: %w", err)
	}

	m.collectors = append(m.collectors, cs)

	return nil
}

// UnregisterAll removes all collectors that have been added with Register.
func (m *metrics) UnregisterAll() {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, cs := range m.collectors {
		m.registry.Unregister(cs)
	}

	m.collectors = nil
}

func (m *metrics) HTTPHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(m.registry, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
