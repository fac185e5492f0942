// Package boundary isolates failures of one feature behind a fallback with a
// bounded number of in-place retries.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
)

var ErrRetriesExhausted = errors.New("retries exhausted")

// RenderError wraps a panic recovered inside a boundary.
type RenderError struct {
	Boundary string
	Value    any
	Stack    []byte
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: panic: %v", e.Boundary, e.Value)
}

// State is a snapshot of a boundary.
type State struct {
	Name          string `json:"name"`
	Failed        bool   `json:"failed"`
	Attempts      int    `json:"attempts"`
	MaxRetries    int    `json:"max_retries"`
	CanRetry      bool   `json:"can_retry"`
	SuggestReload bool   `json:"suggest_reload"`
	Message       string `json:"message,omitempty"`
}

// FallbackFunc renders what the user sees while a boundary is failed.
type FallbackFunc func(State) any

// Fallback is the default fallback payload.
type Fallback struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action"` // "retry" or "reload"
	State   State  `json:"state"`
}

// DefaultFallback offers a retry while attempts remain, then a full reload.
func DefaultFallback(s State) any {
	fb := Fallback{
		Title:   "Something went wrong",
		Message: s.Message,
		Action:  "retry",
		State:   s,
	}
	if s.SuggestReload {
		fb.Message = "This part of the page keeps failing. Please reload the page."
		fb.Action = "reload"
	}
	return fb
}

// Hook observes failures; used to publish them on the event bus.
type Hook func(s State, err error)

// Boundary tracks failures of one feature.
type Boundary struct {
	name       string
	maxRetries int
	fallback   FallbackFunc

	mu       sync.Mutex
	failed   bool
	attempts int
	lastErr  error
	hooks    []Hook
}

// New creates a boundary. maxRetries caps the retries after the first failure.
func New(name string, maxRetries int, fallback FallbackFunc) *Boundary {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if fallback == nil {
		fallback = DefaultFallback
	}
	return &Boundary{name: name, maxRetries: maxRetries, fallback: fallback}
}

// Name returns the boundary name.
func (b *Boundary) Name() string { return b.name }

// OnFailure registers a hook called after every caught failure.
func (b *Boundary) OnFailure(h Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, h)
}

// Do runs fn inside the boundary. A panic is recovered into a *RenderError.
// A success clears the failure state.
func (b *Boundary) Do(ctx context.Context, fn func(context.Context) error) error {
	err := b.run(ctx, fn)
	b.record(err, false)
	return err
}

// Retry re-runs fn after a failure, counting the attempt against the cap.
// Once the cap is reached it returns ErrRetriesExhausted without running fn.
func (b *Boundary) Retry(ctx context.Context, fn func(context.Context) error) error {
	b.mu.Lock()
	if b.failed && b.attempts >= b.maxRetries {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w (%d/%d)", b.name, ErrRetriesExhausted, b.attempts, b.maxRetries)
	}
	if b.failed {
		b.attempts++
	}
	b.mu.Unlock()

	err := b.run(ctx, fn)
	b.record(err, true)
	return err
}

func (b *Boundary) run(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{Boundary: b.name, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

func (b *Boundary) record(err error, retry bool) {
	b.mu.Lock()
	if err == nil {
		b.failed = false
		b.attempts = 0
		b.lastErr = nil
		b.mu.Unlock()
		return
	}
	b.failed = true
	b.lastErr = err
	hooks := append([]Hook(nil), b.hooks...)
	s := b.stateLocked()
	b.mu.Unlock()

	attrs := []any{"boundary", b.name, "attempt", s.Attempts, "max_retries", s.MaxRetries, "retry", retry, "error", err}
	var re *RenderError
	if errors.As(err, &re) {
		attrs = append(attrs, "stack", string(re.Stack))
	}
	if s.SuggestReload {
		slog.Error("boundary exhausted", attrs...)
	} else {
		slog.Warn("boundary caught failure", attrs...)
	}
	for _, h := range hooks {
		h(s, err)
	}
}

// State returns a snapshot of the boundary.
func (b *Boundary) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Boundary) stateLocked() State {
	s := State{
		Name:       b.name,
		Failed:     b.failed,
		Attempts:   b.attempts,
		MaxRetries: b.maxRetries,
	}
	if b.failed {
		s.CanRetry = b.attempts < b.maxRetries
		s.SuggestReload = !s.CanRetry
		if b.lastErr != nil {
			s.Message = b.lastErr.Error()
		}
	}
	return s
}

// Fallback renders the fallback for the current state.
func (b *Boundary) Fallback() any {
	return b.fallback(b.State())
}

// Reset clears the failure state and the attempt counter.
func (b *Boundary) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = false
	b.attempts = 0
	b.lastErr = nil
}

// Registry holds independent named boundaries. Boundaries share no retry budget.
type Registry struct {
	mu         sync.RWMutex
	boundaries map[string]*Boundary
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{boundaries: make(map[string]*Boundary)}
}

// Register creates and stores a boundary, replacing any with the same name.
func (r *Registry) Register(name string, maxRetries int, fallback FallbackFunc) *Boundary {
	b := New(name, maxRetries, fallback)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boundaries[name] = b
	return b
}

// Get returns the named boundary.
func (r *Registry) Get(name string) (*Boundary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.boundaries[name]
	return b, ok
}

// States returns the state of every boundary, sorted by name.
func (r *Registry) States() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]State, 0, len(r.boundaries))
	for _, b := range r.boundaries {
		out = append(out, b.State())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Failing returns the names of failed boundaries, sorted.
func (r *Registry) Failing() []string {
	var names []string
	for _, s := range r.States() {
		if s.Failed {
			names = append(names, s.Name)
		}
	}
	return names
}
