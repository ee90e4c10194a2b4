package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/datarhei/settings/encoding/json"
	"github.com/datarhei/settings/http/mock"
	"github.com/datarhei/settings/prometheus"

	"github.com/stretchr/testify/require"
)

func TestNoEngine(t *testing.T) {
	_, err := NewServer(Config{})
	require.Error(t, err)
}

func TestInvalidCors(t *testing.T) {
	e, _ := mock.DummyEngine(t)
	t.Cleanup(e.Close)

	_, err := NewServer(Config{
		Engine:      e,
		CorsOrigins: []string{"ftp://example.com"},
	})
	require.Error(t, err)
}

func TestRoutes(t *testing.T) {
	e, _ := mock.DummyEngine(t)
	t.Cleanup(e.Close)

	metrics := prometheus.New()
	require.NoError(t, metrics.Register(prometheus.NewSettingsCollector("hotel", e)))

	s, err := NewServer(Config{
		Engine:     e,
		Prometheus: metrics,
		Events:     true,
	})
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		body   interface{}
		code   int
	}{
		{"GET", "/ping", nil, http.StatusOK},
		{"GET", "/ready", nil, http.StatusOK},
		{"GET", "/metrics", nil, http.StatusOK},
		{"GET", "/api/v1/settings", nil, http.StatusOK},
		{"PUT", "/api/v1/settings/general", map[string]interface{}{
			"hotelName": "Hotel Sahara",
			"email":     "front@sahara.example",
			"phone":     "+213 555 123 456",
		}, http.StatusOK},
		{"PUT", "/api/v1/settings/security", map[string]interface{}{
			"twoFactorAuth":  true,
			"sessionTimeout": 2,
			"loginAttempts":  5,
		}, http.StatusConflict},
		{"GET", "/api/v1/settings/status", nil, http.StatusOK},
		{"GET", "/api/v1/settings/export", nil, http.StatusOK},
		{"POST", "/api/v1/backups", nil, http.StatusCreated},
		{"GET", "/api/v1/backups", nil, http.StatusOK},
		{"GET", "/api/v1/schema/export", nil, http.StatusOK},
		{"GET", "/api/v1/schema/general", nil, http.StatusOK},
		{"GET", "/api/v1/schema/billing", nil, http.StatusNotFound},
		{"POST", "/api/v1/settings/undo", nil, http.StatusConflict},
	}

	for _, test := range tests {
		var body *bytes.Reader
		if test.body != nil {
			data, err := json.Marshal(test.body)
			require.NoError(t, err)
			body = bytes.NewReader(data)
		}

		var req *http.Request
		if body == nil {
			req = httptest.NewRequest(test.method, test.path, nil)
		} else {
			req = httptest.NewRequest(test.method, test.path, body)
			req.Header.Set("Content-Type", "application/json")
		}

		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)

		require.Equal(t, test.code, w.Code, "%s %s: %s", test.method, test.path, w.Body.String())
		require.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}
}

func TestReadOnly(t *testing.T) {
	e, _ := mock.DummyEngine(t)
	t.Cleanup(e.Close)

	s, err := NewServer(Config{
		Engine:   e,
		ReadOnly: true,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/settings", nil))
	require.NotEqual(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
