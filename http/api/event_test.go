package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventFilter(t *testing.T) {
	event := Event{
		Timestamp: 1234,
		Name:      "section:updated",
	}

	filter := EventFilter{}
	require.NoError(t, filter.Compile())
	require.True(t, event.Filter(&filter))

	filter = EventFilter{Name: "section:*"}
	require.NoError(t, filter.Compile())
	require.True(t, event.Filter(&filter))

	filter = EventFilter{Name: "settings:*"}
	require.NoError(t, filter.Compile())
	require.False(t, event.Filter(&filter))

	filter = EventFilter{Name: "section:updated"}
	require.NoError(t, filter.Compile())
	require.True(t, event.Filter(&filter))
}
