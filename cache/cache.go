// Package cache is an in-memory cache for settings with a time-to-live for
// every entry.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/glob"
	"github.com/datarhei/settings/log"
)

const (
	// DefaultTTL is used if no TTL is given in the config.
	DefaultTTL = 5 * time.Minute

	// DocumentKey is the key for the whole settings document.
	DocumentKey = "all-settings"
)

// Config is the configuration for a new cache
type Config struct {
	TTL        time.Duration // For how long an entry stays in the cache
	MaxEntries int           // Max. number of entries, 0 for unlimited
	Logger     log.Logger
}

// Cacher is a cache for settings. Stored values of type document.Data and
// document.Document are copied on Put and on Get.
type Cacher interface {
	// Get returns the value of the key. An expired entry is removed and
	// reported as a miss.
	Get(key string) (interface{}, bool)

	// Put stores a value with the default TTL.
	Put(key string, value interface{})

	// PutTTL stores a value with the given TTL.
	PutTTL(key string, value interface{}, ttl time.Duration)

	// Invalidate removes entries. An empty pattern removes everything. A
	// pattern with glob meta characters removes all matching keys, any other
	// pattern removes all keys that contain it.
	Invalidate(pattern string)

	// TTL returns the default TTL.
	TTL() time.Duration

	Stats() Stats
}

// Stats are the counters of a cache.
type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type lrucache struct {
	ttl        time.Duration
	maxEntries int
	objects    map[string]*list.Element
	list       *list.List
	lock       sync.Mutex
	logger     log.Logger

	hits      uint64
	misses    uint64
	evictions uint64
}

type entry struct {
	key      string
	obj      interface{}
	storedAt time.Time
	ttl      time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) >= e.ttl
}

// New returns an implementation of the Cacher interface. If MaxEntries is
// set, the least recently used entries are evicted.
func New(config Config) Cacher {
	c := &lrucache{
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
		list:       list.New(),
		objects:    make(map[string]*list.Element),
		logger:     config.Logger,
	}

	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}

	if c.logger == nil {
		c.logger = log.New("")
	}

	return c
}

func (c *lrucache) Get(key string) (interface{}, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	elm, ok := c.objects[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := elm.Value.(*entry)

	if e.expired(time.Now()) {
		c.list.Remove(elm)
		delete(c.objects, key)

		c.logger.WithField("key", key).Debug().Log("Expired key")

		c.misses++
		return nil, false
	}

	c.list.MoveToFront(elm)
	c.hits++

	return clone(e.obj), true
}

func (c *lrucache) Put(key string, value interface{}) {
	c.PutTTL(key, value, c.ttl)
}

func (c *lrucache) PutTTL(key string, value interface{}, ttl time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	e := &entry{
		key:      key,
		obj:      clone(value),
		storedAt: time.Now(),
		ttl:      ttl,
	}

	// Replace an existing entry with the same key
	if elm, ok := c.objects[key]; ok {
		c.list.MoveToFront(elm)
		elm.Value = e
	} else {
		c.objects[key] = c.list.PushFront(e)
	}

	c.logger.WithFields(log.Fields{
		"key": key,
		"ttl": ttl.String(),
	}).Debug().Log("Added key")

	if c.maxEntries > 0 {
		for c.list.Len() > c.maxEntries {
			elm := c.list.Back()
			if elm == nil {
				break
			}

			key := elm.Value.(*entry).key

			c.logger.WithField("key", key).Debug().Log("Evicting key")

			c.list.Remove(elm)
			delete(c.objects, key)
			c.evictions++
		}
	}
}

func (c *lrucache) Invalidate(pattern string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if len(pattern) == 0 {
		c.list.Init()
		c.objects = make(map[string]*list.Element)

		c.logger.Debug().Log("Purged all keys")

		return
	}

	match := func(key string) bool {
		return strings.Contains(key, pattern)
	}

	if glob.IsPattern(pattern) {
		if g, err := glob.Compile(pattern); err == nil {
			match = g.Match
		}
	}

	for key, elm := range c.objects {
		if !match(key) {
			continue
		}

		c.logger.WithField("key", key).Debug().Log("Purging key")

		c.list.Remove(elm)
		delete(c.objects, key)
	}
}

func (c *lrucache) TTL() time.Duration {
	return c.ttl
}

func (c *lrucache) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()

	return Stats{
		Entries:   len(c.objects),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func clone(v interface{}) interface{} {
	switch x := v.(type) {
	case document.Data:
		return x.Clone()
	case document.Document:
		return x.Clone()
	default:
		return v
	}
}
