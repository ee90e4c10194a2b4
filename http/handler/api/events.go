package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/datarhei/settings/encoding/json"
	"github.com/datarhei/settings/engine"
	"github.com/datarhei/settings/http/api"
	"github.com/datarhei/settings/http/handler/util"

	"github.com/labstack/echo/v4"
)

// The EventsHandler type provides a stream of the engine events.
type EventsHandler struct {
	engine    engine.Engine
	keepalive time.Duration
}

// NewEvents returns a new EventsHandler type
func NewEvents(e engine.Engine) *EventsHandler {
	return &EventsHandler{
		engine:    e,
		keepalive: 5 * time.Second,
	}
}

// Events returns a stream of events
// @Summary Stream of settings events
// @Description Stream of the lifecycle events of the settings engine
// @ID events
// @Produce text/event-stream
// @Produce json-stream
// @Param event query string false "glob pattern for event names"
// @Success 200 {object} api.Event
// @Router /api/v1/events [get]
func (h *EventsHandler) Events(c echo.Context) error {
	filter := api.EventFilter{
		Name: util.DefaultQuery(c, "event", ""),
	}

	if err := filter.Compile(); err != nil {
		return api.Err(http.StatusBadRequest, "", "invalid filter: %s", err.Error())
	}

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	req := c.Request()
	reqctx := req.Context()

	contentType := "text/event-stream"
	accept := req.Header.Get(echo.HeaderAccept)
	if strings.Contains(accept, "application/x-json-stream") {
		contentType = "application/x-json-stream"
	}

	evts, cancel := h.engine.Events(64)
	defer cancel()

	res := c.Response()

	res.Header().Set(echo.HeaderContentType, contentType+"; charset=UTF-8")
	res.Header().Set(echo.HeaderCacheControl, "no-store")
	res.Header().Set(echo.HeaderConnection, "close")
	res.WriteHeader(http.StatusOK)

	sse := contentType == "text/event-stream"

	keepalive := func() {
		if sse {
			res.Write([]byte(":keepalive\n\n"))
		} else {
			res.Write([]byte("{\"event\": \"keepalive\"}\n"))
		}
		res.Flush()
	}

	keepalive()

	for {
		select {
		case <-reqctx.Done():
			return nil
		case <-ticker.C:
			keepalive()
		case e, ok := <-evts:
			if !ok {
				return nil
			}

			event := api.Event{}
			event.Unmarshal(e)

			if !event.Filter(&filter) {
				continue
			}

			data, err := json.Marshal(event)
			if err != nil {
				return err
			}

			if sse {
				res.Write([]byte("event: " + event.Name + "\ndata: "))
				res.Write(data)
				res.Write([]byte("\n\n"))
			} else {
				res.Write(data)
				res.Write([]byte("\n"))
			}
			res.Flush()
		}
	}
}
