package prometheus

import (
	"time"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/engine"

	"github.com/prometheus/client_golang/prometheus"
)

// Source is what the settings collector reads from, usually an engine.Engine
type Source interface {
	Stats() engine.Stats
	State(section document.Section) engine.SectionState
	LastSaved() time.Time
}

type settingsCollector struct {
	name   string
	source Source

	savesDesc        *prometheus.Desc
	saveFailuresDesc *prometheus.Desc
	retriesDesc      *prometheus.Desc
	cacheDesc        *prometheus.Desc
	cacheEntriesDesc *prometheus.Desc
	backupsDesc      *prometheus.Desc
	historyDesc      *prometheus.Desc
	subscribersDesc  *prometheus.Desc
	unsavedDesc      *prometheus.Desc
	lastSavedDesc    *prometheus.Desc
	sectionDesc      *prometheus.Desc
}

var states = []engine.SectionState{
	engine.StateClean,
	engine.StateDirty,
	engine.StateSaving,
	engine.StateErrored,
}

func NewSettingsCollector(name string, source Source) prometheus.Collector {
	return &settingsCollector{
		name:   name,
		source: source,
		savesDesc: prometheus.NewDesc(
			"settings_saves_total",
			"Number of successful writes to the store",
			[]string{"name"}, nil),
		saveFailuresDesc: prometheus.NewDesc(
			"settings_save_failures_total",
			"Number of writes that failed after all retries",
			[]string{"name"}, nil),
		retriesDesc: prometheus.NewDesc(
			"settings_retries_total",
			"Number of retried store operations",
			[]string{"name"}, nil),
		cacheDesc: prometheus.NewDesc(
			"settings_cache_requests_total",
			"Number of cache lookups",
			[]string{"name", "result"}, nil),
		cacheEntriesDesc: prometheus.NewDesc(
			"settings_cache_entries",
			"Number of entries in the cache",
			[]string{"name"}, nil),
		backupsDesc: prometheus.NewDesc(
			"settings_backups_created_total",
			"Number of created backups",
			[]string{"name"}, nil),
		historyDesc: prometheus.NewDesc(
			"settings_history_depth",
			"Number of entries in the undo history",
			[]string{"name"}, nil),
		subscribersDesc: prometheus.NewDesc(
			"settings_event_subscribers",
			"Number of event subscribers",
			[]string{"name"}, nil),
		unsavedDesc: prometheus.NewDesc(
			"settings_unsaved",
			"Whether the working copy has changes that are not stored",
			[]string{"name"}, nil),
		lastSavedDesc: prometheus.NewDesc(
			"settings_last_saved_timestamp_seconds",
			"Time of the last successful write",
			[]string{"name"}, nil),
		sectionDesc: prometheus.NewDesc(
			"settings_section_state",
			"Current state per section",
			[]string{"name", "section", "state"}, nil),
	}
}

func (c *settingsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.savesDesc
	ch <- c.saveFailuresDesc
	ch <- c.retriesDesc
	ch <- c.cacheDesc
	ch <- c.cacheEntriesDesc
	ch <- c.backupsDesc
	ch <- c.historyDesc
	ch <- c.subscribersDesc
	ch <- c.unsavedDesc
	ch <- c.lastSavedDesc
	ch <- c.sectionDesc
}

func (c *settingsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.savesDesc, prometheus.CounterValue, float64(stats.Saves), c.name)
	ch <- prometheus.MustNewConstMetric(c.saveFailuresDesc, prometheus.CounterValue, float64(stats.SaveFailures), c.name)
	ch <- prometheus.MustNewConstMetric(c.retriesDesc, prometheus.CounterValue, float64(stats.Retries), c.name)
	ch <- prometheus.MustNewConstMetric(c.cacheDesc, prometheus.CounterValue, float64(stats.CacheHits), c.name, "hit")
	ch <- prometheus.MustNewConstMetric(c.cacheDesc, prometheus.CounterValue, float64(stats.CacheMisses), c.name, "miss")
	ch <- prometheus.MustNewConstMetric(c.cacheEntriesDesc, prometheus.GaugeValue, float64(stats.CacheEntries), c.name)
	ch <- prometheus.MustNewConstMetric(c.backupsDesc, prometheus.CounterValue, float64(stats.BackupsCreated), c.name)
	ch <- prometheus.MustNewConstMetric(c.historyDesc, prometheus.GaugeValue, float64(stats.HistoryDepth), c.name)
	ch <- prometheus.MustNewConstMetric(c.subscribersDesc, prometheus.GaugeValue, float64(stats.Subscribers), c.name)

	unsaved := 0.0
	if stats.Unsaved {
		unsaved = 1
	}

	ch <- prometheus.MustNewConstMetric(c.unsavedDesc, prometheus.GaugeValue, unsaved, c.name)

	lastSaved := 0.0
	if t := c.source.LastSaved(); !t.IsZero() {
		lastSaved = float64(t.Unix())
	}

	ch <- prometheus.MustNewConstMetric(c.lastSavedDesc, prometheus.GaugeValue, lastSaved, c.name)

	for _, section := range document.Sections() {
		current := c.source.State(section)

		for _, state := range states {
			value := 0.0
			if state == current {
				value = 1
			}

			ch <- prometheus.MustNewConstMetric(c.sectionDesc, prometheus.GaugeValue, value, c.name, section.String(), state.String())
		}
	}
}
