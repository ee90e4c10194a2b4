package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/datarhei/settings/http/mock"
	"github.com/datarhei/settings/prometheus"

	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	e, _ := mock.DummyEngine(t)
	t.Cleanup(e.Close)

	metrics := prometheus.New()
	require.NoError(t, metrics.Register(prometheus.NewSettingsCollector("hotel", e)))
	require.NoError(t, metrics.Register(prometheus.NewUptimeCollector("hotel", time.Now())))

	router := mock.DummyEcho()
	router.Add("GET", "/metrics", NewPrometheus(metrics).Metrics)

	response := mock.Request(t, http.StatusOK, router, "GET", "/metrics", nil)

	body := string(response.Raw)
	require.Contains(t, body, `settings_saves_total{name="hotel"} 0`)
	require.Contains(t, body, `settings_section_state{name="hotel",section="general",state="clean"} 1`)
	require.Contains(t, body, `uptime_seconds{name="hotel"}`)
}
