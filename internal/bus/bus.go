// Package bus is the in-process publish/subscribe channel the cache layer
// announces its activity on. Subscribers pick a kind-prefix namespace
// (e.g. "cache.") and receive matching events on a buffered channel.
package bus

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Bus fans events out to namespace-filtered subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	namespace string
	ch        chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish delivers the event to every subscriber whose namespace is a
// prefix of the event kind. Delivery is non-blocking: a subscriber that
// cannot keep up loses events rather than stalling the publisher — the bus
// carries advisory notifications, not state.
func (b *Bus) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if strings.HasPrefix(evt.Kind, sub.namespace) {
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}
}

// Subscribe registers a namespace-prefix subscription with the given
// channel buffer, returning the receive channel and an unsubscribe
// function.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{namespace: namespace, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
