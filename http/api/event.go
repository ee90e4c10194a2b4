package api

import (
	"fmt"

	"github.com/datarhei/settings/event"
	"github.com/datarhei/settings/glob"
)

// Event is a lifecycle event of the settings engine
type Event struct {
	Timestamp int64       `json:"ts" format:"int64"`
	Name      string      `json:"event"`
	Payload   interface{} `json:"payload,omitempty"`
}

func (e *Event) Unmarshal(evt event.Event) {
	e.Timestamp = evt.Time.UnixMilli()
	e.Name = evt.Name
	e.Payload = evt.Payload
}

// EventFilter selects events by their name. The name may be a glob
// pattern, e.g. "section:*".
type EventFilter struct {
	Name string `json:"event"`

	pattern glob.Glob
}

func (f *EventFilter) Compile() error {
	if len(f.Name) == 0 {
		return nil
	}

	g, err := glob.Compile(f.Name)
	if err != nil {
		return fmt.Errorf("invalid pattern '%s': %w", f.Name, err)
	}

	f.pattern = g

	return nil
}

// Filter returns whether the event matches the filter. An empty filter
// matches all events.
func (e *Event) Filter(f *EventFilter) bool {
	if f.pattern == nil {
		return len(f.Name) == 0 || f.Name == e.Name
	}

	return f.pattern.Match(e.Name)
}
