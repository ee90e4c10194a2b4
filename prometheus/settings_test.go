package prometheus

import (
	"strings"
	"testing"
	"time"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/engine"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type dummySource struct {
	stats engine.Stats
}

func (d *dummySource) Stats() engine.Stats {
	return d.stats
}

func (d *dummySource) State(section document.Section) engine.SectionState {
	if section == document.General {
		return engine.StateDirty
	}

	return engine.StateClean
}

func (d *dummySource) LastSaved() time.Time {
	return time.Unix(1710498600, 0)
}

func TestSettingsCollector(t *testing.T) {
	source := &dummySource{
		stats: engine.Stats{
			Saves:       3,
			CacheHits:   7,
			CacheMisses: 2,
			Unsaved:     true,
		},
	}

	c := NewSettingsCollector("hotel", source)

	// 11 single metrics and 4 states for each of the 6 sections
	require.Equal(t, 11+4*6, testutil.CollectAndCount(c))

	expected := `
# HELP settings_cache_requests_total Number of cache lookups
# TYPE settings_cache_requests_total counter
settings_cache_requests_total{name="hotel",result="hit"} 7
settings_cache_requests_total{name="hotel",result="miss"} 2
# HELP settings_saves_total Number of successful writes to the store
# TYPE settings_saves_total counter
settings_saves_total{name="hotel"} 3
# HELP settings_unsaved Whether the working copy has changes that are not stored
# TYPE settings_unsaved gauge
settings_unsaved{name="hotel"} 1
# HELP settings_last_saved_timestamp_seconds Time of the last successful write
# TYPE settings_last_saved_timestamp_seconds gauge
settings_last_saved_timestamp_seconds{name="hotel"} 1.7104986e+09
`

	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"settings_cache_requests_total",
		"settings_saves_total",
		"settings_unsaved",
		"settings_last_saved_timestamp_seconds",
	)
	require.NoError(t, err)

	expected = `
# HELP settings_section_state Current state per section
# TYPE settings_section_state gauge
`
	for _, section := range document.Sections() {
		for _, state := range []string{"clean", "dirty", "errored", "saving"} {
			value := "0"
			if (section == document.General && state == "dirty") || (section != document.General && state == "clean") {
				value = "1"
			}

			expected += `settings_section_state{name="hotel",section="` + section.String() + `",state="` + state + `"} ` + value + "\n"
		}
	}

	err = testutil.CollectAndCompare(c, strings.NewReader(expected), "settings_section_state")
	require.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	m := New()

	c := NewUptimeCollector("hotel", time.Now())

	require.NoError(t, m.Register(c))
	require.Error(t, m.Register(c))

	m.UnregisterAll()

	require.NoError(t, m.Register(c))
	require.NotNil(t, m.HTTPHandler())
}
