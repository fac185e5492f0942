// Package prefs holds per-client display preferences.
//
// Preferences are owned by a Manager that is created once and passed to the
// components that need it. Changes are pushed to subscribers after they are
// persisted.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

var (
	ErrNotFound     = errors.New("preferences not found")
	ErrInvalidTheme = errors.New("invalid theme")
)

// Theme is the requested color scheme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Preferences are the stored choices of one client.
type Preferences struct {
	Theme         Theme `json:"theme"`
	HighContrast  bool  `json:"high_contrast"`
	ReducedMotion bool  `json:"reduced_motion"`
	LargeText     bool  `json:"large_text"`
	DyslexiaFont  bool  `json:"dyslexia_font"`
}

// Defaults returns the preferences of a client with nothing stored.
func Defaults() Preferences {
	return Preferences{Theme: ThemeSystem}
}

// Validate checks the theme value.
func (p Preferences) Validate() error {
	switch p.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTheme, p.Theme)
	}
}

// SystemHints are the platform settings reported by the client.
type SystemHints struct {
	PrefersDark          bool `json:"prefers_dark"`
	PrefersReducedMotion bool `json:"prefers_reduced_motion"`
	PrefersContrast      bool `json:"prefers_contrast"`
}

// HintsFromHeader reads the Sec-CH-Prefers-* client hint headers.
func HintsFromHeader(h http.Header) SystemHints {
	return SystemHints{
		PrefersDark:          hintValue(h, "Sec-CH-Prefers-Color-Scheme") == "dark",
		PrefersReducedMotion: hintValue(h, "Sec-CH-Prefers-Reduced-Motion") == "reduce",
		PrefersContrast:      hintValue(h, "Sec-CH-Prefers-Contrast") == "more",
	}
}

func hintValue(h http.Header, key string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(h.Get(key)), `"`))
}

// Resolved is what the client should actually render.
type Resolved struct {
	Theme         Theme `json:"theme"`
	HighContrast  bool  `json:"high_contrast"`
	ReducedMotion bool  `json:"reduced_motion"`
	LargeText     bool  `json:"large_text"`
	DyslexiaFont  bool  `json:"dyslexia_font"`
}

// Resolve applies system hints to the stored preferences.
// The resolved theme is never ThemeSystem.
func Resolve(p Preferences, hints SystemHints) Resolved {
	r := Resolved{
		Theme:         p.Theme,
		HighContrast:  p.HighContrast || hints.PrefersContrast,
		ReducedMotion: p.ReducedMotion || hints.PrefersReducedMotion,
		LargeText:     p.LargeText,
		DyslexiaFont:  p.DyslexiaFont,
	}
	if r.Theme != ThemeLight && r.Theme != ThemeDark {
		r.Theme = ThemeLight
		if hints.PrefersDark {
			r.Theme = ThemeDark
		}
	}
	return r
}

// Store persists preferences by client ID.
type Store interface {
	// Load returns ErrNotFound when the client has nothing stored.
	Load(ctx context.Context, clientID string) (Preferences, error)
	Save(ctx context.Context, clientID string, p Preferences) error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Preferences
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Preferences)}
}

func (s *MemoryStore) Load(_ context.Context, clientID string) (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[clientID]
	if !ok {
		return Preferences{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Save(_ context.Context, clientID string, p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[clientID] = p
	return nil
}
