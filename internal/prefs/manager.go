package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Subscriber receives preferences after they were saved.
type Subscriber func(clientID string, p Preferences)

// Manager reads and updates preferences and notifies subscribers.
type Manager struct {
	store Store

	mu          sync.Mutex
	subscribers map[int]Subscriber
	nextID      int
}

// NewManager creates a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:       store,
		subscribers: make(map[int]Subscriber),
	}
}

// Get returns the stored preferences, or the defaults when none exist.
func (m *Manager) Get(ctx context.Context, clientID string) (Preferences, error) {
	p, err := m.store.Load(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("load preferences %q: %w", clientID, err)
	}
	return p, nil
}

// Update applies fn to the current preferences, validates and saves the
// result, then notifies subscribers.
func (m *Manager) Update(ctx context.Context, clientID string, fn func(*Preferences)) (Preferences, error) {
	m.mu.Lock()
	p, err := m.Get(ctx, clientID)
	if err != nil {
		m.mu.Unlock()
		return Preferences{}, err
	}
	fn(&p)
	if err := p.Validate(); err != nil {
		m.mu.Unlock()
		return Preferences{}, err
	}
	if err := m.store.Save(ctx, clientID, p); err != nil {
		m.mu.Unlock()
		return Preferences{}, fmt.Errorf("save preferences %q: %w", clientID, err)
	}
	subs := make([]Subscriber, 0, len(m.subscribers))
	for _, s := range m.subscribers {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	slog.Debug("preferences updated", "client_id", clientID, "theme", p.Theme)
	for _, s := range subs {
		s(clientID, p)
	}
	return p, nil
}

// Subscribe registers fn for future updates. Returns an unsubscribe function.
func (m *Manager) Subscribe(fn Subscriber) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}
