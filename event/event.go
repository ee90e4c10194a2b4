// Package event delivers lifecycle notifications of the settings engine
// to subscribers.
package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/log"

	"github.com/lithammer/shortuuid/v4"
)

// Names of the events published by the settings engine.
const (
	SettingsLoaded  = "settings:loaded"
	SettingsSaved   = "settings:saved"
	SectionLoaded   = "section:loaded"
	SectionUpdated  = "section:updated"
	SettingsChanged = "settings:changed"
	SettingsReset   = "settings:reset"
	BackupCreated   = "backup:created"
	BackupRestored  = "backup:restored"
)

// Event is a single notification. Payloads are shared between all
// subscribers and must not be modified.
type Event struct {
	Name    string
	Payload interface{}
	Time    time.Time
}

// SectionPayload is the payload of events about a single section.
type SectionPayload struct {
	Section document.Section `json:"section"`
	Data    document.Data    `json:"data"`
}

type CancelFunc func()

type subscriber struct {
	id string
	fn func(Event)
}

// Bus delivers events synchronously to all subscribers in the order they
// subscribed. A panicking subscriber doesn't stop the delivery to the
// following subscribers.
type Bus struct {
	subscriber []subscriber
	lock       sync.RWMutex

	logger log.Logger
}

func NewBus(logger log.Logger) *Bus {
	b := &Bus{
		logger: logger,
	}

	if b.logger == nil {
		b.logger = log.New("")
	}

	return b
}

// Subscribe registers fn for all events. The returned function removes the
// subscription. It is safe to call it more than once.
func (b *Bus) Subscribe(fn func(Event)) CancelFunc {
	var id string = ""

	b.lock.Lock()
	for {
		id = shortuuid.New()
		if !b.has(id) {
			b.subscriber = append(b.subscriber, subscriber{id: id, fn: fn})
			break
		}
	}
	b.lock.Unlock()

	b.logger.Debug().WithField("id", id).Log("Added subscriber")

	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()

		for i, s := range b.subscriber {
			if s.id != id {
				continue
			}

			b.subscriber = append(b.subscriber[:i:i], b.subscriber[i+1:]...)
			b.logger.Debug().WithField("id", id).Log("Removed subscriber")

			break
		}
	}
}

func (b *Bus) has(id string) bool {
	for _, s := range b.subscriber {
		if s.id == id {
			return true
		}
	}

	return false
}

// Events returns a channel that receives all events. Events are dropped
// if the channel is full. The channel is closed when the subscription is
// canceled.
func (b *Bus) Events(size int) (<-chan Event, CancelFunc) {
	ch := make(chan Event, size)

	var once sync.Once
	var lock sync.Mutex
	closed := false

	cancel := b.Subscribe(func(e Event) {
		lock.Lock()
		defer lock.Unlock()

		if closed {
			return
		}

		select {
		case ch <- e:
		default:
			b.logger.Warn().WithField("event", e.Name).Log("Subscriber queue full, dropping event")
		}
	})

	return ch, func() {
		once.Do(func() {
			cancel()

			lock.Lock()
			closed = true
			close(ch)
			lock.Unlock()
		})
	}
}

// Publish delivers the event to all current subscribers and returns after
// every subscriber has been called.
func (b *Bus) Publish(name string, payload interface{}) {
	e := Event{
		Name:    name,
		Payload: payload,
		Time:    time.Now(),
	}

	b.lock.RLock()
	subscriber := make([]subscriber, len(b.subscriber))
	copy(subscriber, b.subscriber)
	b.lock.RUnlock()

	for _, s := range subscriber {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().WithFields(log.Fields{
				"id":    s.id,
				"event": e.Name,
			}).WithError(fmt.Errorf("%v", r)).Log("Subscriber panicked")
		}
	}()

	s.fn(e)
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return len(b.subscriber)
}
