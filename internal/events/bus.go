// Package events carries what happens in Math Farm (preference changes,
// boundary failures, practice results) from producers to the WebSocket hub,
// the event log and the recent-events API.
package events

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event.
type EventType string

const (
	// Preferences
	EventPrefsUpdated EventType = "prefs.updated"

	// Error boundaries
	EventBoundaryFailed    EventType = "boundary.failed"
	EventBoundaryExhausted EventType = "boundary.exhausted"

	// Practice & progress
	EventPracticeChecked EventType = "practice.checked"
	EventBadgeAwarded    EventType = "progress.badge"

	// Configuration
	EventConfigReloaded EventType = "config.reloaded"
)

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceGateway  EventSource = "gateway"
	SourcePrefs    EventSource = "prefs"
	SourceBoundary EventSource = "boundary"
	SourcePractice EventSource = "practice"
	SourceConfig   EventSource = "config"
)

// Event represents an event in the system.
type Event struct {
	ID        string         `json:"id"`
	ClientID  string         `json:"client_id,omitempty"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    EventSource    `json:"source"`
	Payload   map[string]any `json:"payload"`
}

func generateEventID() string {
	return "evt_" + uuid.NewString()
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	ClientID string
	Types    []EventType
}

// Match reports whether e passes the filter. Unscoped events match any client.
func (f Filter) Match(e Event) bool {
	if f.ClientID != "" && e.ClientID != "" && e.ClientID != f.ClientID {
		return false
	}
	return len(f.Types) == 0 || slices.Contains(f.Types, e.Type)
}

// Subscriber receives events on its own goroutine.
type Subscriber func(Event)

type subscription struct {
	filter  Filter
	handler Subscriber
}

// Bus fans published events out to subscribers and keeps the most recent
// ones in memory. Publishing never blocks: events are dropped when the
// dispatch queue is full.
type Bus struct {
	queue chan Event
	done  chan struct{}

	mu     sync.RWMutex
	subs   map[int]subscription
	nextID int
	closed bool

	recent *history
}

// NewBus creates a bus whose queue and history both hold size events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 256
	}
	b := &Bus{
		queue:  make(chan Event, size),
		done:   make(chan struct{}),
		subs:   make(map[int]subscription),
		recent: newHistory(size),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	for {
		select {
		case e := <-b.queue:
			b.recent.add(e)
			b.mu.RLock()
			for _, sub := range b.subs {
				if sub.filter.Match(e) {
					go sub.handler(e)
				}
			}
			b.mu.RUnlock()
		case <-b.done:
			return
		}
	}
}

// Publish queues e for dispatch. It is a no-op once the bus is closed.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- e:
	default:
	}
}

// Subscribe calls handler for events of the given types, or all events when
// none are given. The returned func unsubscribes.
func (b *Bus) Subscribe(handler Subscriber, types ...EventType) func() {
	return b.SubscribeFilter(handler, Filter{Types: types})
}

// SubscribeFilter calls handler for events matching f.
func (b *Bus) SubscribeFilter(handler Subscriber, f Filter) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{filter: f, handler: handler}
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// SubscribeChan delivers matching events on a buffered channel, dropping
// them when it is full.
func (b *Bus) SubscribeChan(size int, types ...EventType) (<-chan Event, func()) {
	ch := make(chan Event, size)
	unsub := b.Subscribe(func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}, types...)
	return ch, unsub
}

// History returns up to limit recent events matching f, oldest first.
func (b *Bus) History(limit int, f Filter) []Event {
	return b.recent.last(limit, f)
}

// Close stops dispatching. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}

// history keeps the last cap events.
type history struct {
	mu     sync.RWMutex
	events []Event
	cap    int
}

func newHistory(capacity int) *history {
	return &history{events: make([]Event, 0, capacity), cap: capacity}
}

func (h *history) add(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == h.cap {
		copy(h.events, h.events[1:])
		h.events = h.events[:h.cap-1]
	}
	h.events = append(h.events, e)
}

func (h *history) last(limit int, f Filter) []Event {
	if limit <= 0 {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Event
	for i := len(h.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.Match(h.events[i]) {
			out = append(out, h.events[i])
		}
	}
	slices.Reverse(out)
	return out
}
