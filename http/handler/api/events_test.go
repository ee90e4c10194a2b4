package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/http/mock"

	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	router := mock.DummyEcho()

	e, _ := mock.DummyEngine(t)
	t.Cleanup(e.Close)

	handler := NewEvents(e)

	router.Add("GET", "/events", handler.Events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events?event=section:*", nil).WithContext(ctx)

	done := make(chan struct{})

	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return e.Stats().Subscribers == 1
	}, time.Second, 10*time.Millisecond)

	_, err := e.SaveSection(context.Background(), document.General, document.Data{
		"hotelName": "Hotel Sahara",
		"email":     "front@sahara.example",
		"phone":     "+213 555 123 456",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.Stats().Saves == 1
	}, time.Second, 10*time.Millisecond)

	// Give the handler the chance to write the queued events
	time.Sleep(100 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()

	require.Equal(t, "text/event-stream; charset=UTF-8", w.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(body, ":keepalive\n\n"))
	require.Contains(t, body, "event: section:updated\ndata: {")
	require.Contains(t, body, "\"section\":\"general\"")
	require.NotContains(t, body, "settings:changed")
	require.Equal(t, 0, e.Stats().Subscribers)
}
