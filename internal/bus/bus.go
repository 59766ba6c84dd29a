// Package bus is the in-process broker connecting the page observers to
// the components that react to them. Events are a closed set of typed
// payloads; a subscriber that panics is logged and never prevents the
// remaining subscribers from receiving the same event.
package bus

import (
	"log/slog"
	"sync"

	"github.com/topacademybot/internal/config"
)

// Event is one of the payload types below.
type Event interface {
	isEvent()
}

// PageChanged is raised once per actual URL change of the driven page.
type PageChanged struct {
	URL string
}

// ConfigUpdated is raised after the settings dialog saves a new
// configuration snapshot.
type ConfigUpdated struct {
	Config config.Config
}

func (PageChanged) isEvent()   {}
func (ConfigUpdated) isEvent() {}

type subscriber struct {
	id int
	fn func(Event)
}

type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID int
	subs   []subscriber
}

func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers fn for all events and returns its unsubscribe
// function.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to every subscriber in subscription order.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.dispatch(sub, event)
	}
}

func (b *Bus) dispatch(sub subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus: subscriber panicked", "event", eventName(event), "panic", r)
		}
	}()
	sub.fn(event)
}

func eventName(event Event) string {
	switch event.(type) {
	case PageChanged:
		return "page_changed"
	case ConfigUpdated:
		return "config_updated"
	default:
		return "unknown"
	}
}
