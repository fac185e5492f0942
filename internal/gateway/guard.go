package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/golang/groupcache/lru"

	"github.com/dohr-michael/mathfarm/internal/boundary"
	"github.com/dohr-michael/mathfarm/internal/events"
)

const anonymousClient = "anonymous"

// apiError is a failure caused by the request. It never trips a boundary
// when its status is below 500.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func errorf(status int, format string, args ...any) error {
	return &apiError{status: status, msg: fmt.Sprintf(format, args...)}
}

type errorBody struct {
	Error    string `json:"error"`
	Fallback any    `json:"fallback,omitempty"`
}

// apiHandler returns the JSON body of a successful response.
type apiHandler func(w http.ResponseWriter, r *http.Request) (any, error)

// boundaryNames lists the boundaries every client gets.
var boundaryNames = []string{BoundaryApp, BoundaryCalculator, BoundaryGraph, BoundaryPractice}

// clientBoundaries keeps one boundary registry per client so that retries of
// one client never consume another's budget. At most max registries are
// kept; the least recently used client is forgotten first.
type clientBoundaries struct {
	bus    *events.Bus
	limits map[string]int

	mu      sync.Mutex
	recent  *lru.Cache
	clients map[string]*boundary.Registry
}

func newClientBoundaries(bus *events.Bus, limits map[string]int, maxClients int) *clientBoundaries {
	cb := &clientBoundaries{
		bus:     bus,
		limits:  limits,
		recent:  lru.New(maxClients),
		clients: make(map[string]*boundary.Registry),
	}
	cb.recent.OnEvicted = func(key lru.Key, _ any) {
		delete(cb.clients, key.(string))
	}
	return cb
}

func (cb *clientBoundaries) limit(name string) int {
	if limit, ok := cb.limits[name]; ok {
		return limit
	}
	return 2
}

// registry returns the registry of clientID, creating it on first use.
func (cb *clientBoundaries) registry(clientID string) *boundary.Registry {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if v, ok := cb.recent.Get(clientID); ok {
		return v.(*boundary.Registry)
	}
	reg := boundary.NewRegistry()
	for _, name := range boundaryNames {
		b := reg.Register(name, cb.limit(name), nil)
		b.OnFailure(cb.publish(clientID))
	}
	cb.clients[clientID] = reg
	cb.recent.Add(clientID, reg)
	return reg
}

// lookup returns the registry of clientID without creating one.
func (cb *clientBoundaries) lookup(clientID string) (*boundary.Registry, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	reg, ok := cb.clients[clientID]
	return reg, ok
}

// idle returns the states of a client that has no registry yet.
func (cb *clientBoundaries) idle() []boundary.State {
	out := make([]boundary.State, 0, len(boundaryNames))
	for _, name := range boundaryNames {
		out = append(out, boundary.State{Name: name, MaxRetries: cb.limit(name)})
	}
	return out
}

func (cb *clientBoundaries) len() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return len(cb.clients)
}

func (cb *clientBoundaries) publish(clientID string) boundary.Hook {
	return func(s boundary.State, err error) {
		if cb.bus == nil {
			return
		}
		if s.SuggestReload {
			cb.bus.Publish(events.NewTypedEventForClient(events.SourceBoundary, events.BoundaryExhaustedPayload{
				Boundary:   s.Name,
				MaxRetries: s.MaxRetries,
				Error:      err.Error(),
			}, clientID))
			return
		}
		cb.bus.Publish(events.NewTypedEventForClient(events.SourceBoundary, events.BoundaryFailedPayload{
			Boundary:   s.Name,
			Attempts:   s.Attempts,
			MaxRetries: s.MaxRetries,
			Error:      err.Error(),
		}, clientID))
	}
}

func (cb *clientBoundaries) failing() []string {
	cb.mu.Lock()
	regs := make(map[string]*boundary.Registry, len(cb.clients))
	for id, reg := range cb.clients {
		regs[id] = reg
	}
	cb.mu.Unlock()

	var out []string
	for id, reg := range regs {
		for _, name := range reg.Failing() {
			out = append(out, id+"/"+name)
		}
	}
	sort.Strings(out)
	return out
}

// clientID reads the client from the {clientID} route parameter, the
// X-Client-ID header or the client_id query parameter.
func clientID(r *http.Request) string {
	if id := chi.URLParam(r, "clientID"); id != "" {
		return id
	}
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return id
	}
	if id := r.URL.Query().Get("client_id"); id != "" {
		return id
	}
	return anonymousClient
}

// runGuarded runs call inside the named boundary of clientID. A call on a
// failed boundary counts as a retry. Request errors below 500 are returned as
// reqErr and never trip the boundary.
func (s *Server) runGuarded(ctx context.Context, clientID, name string, call func() (any, error)) (result any, reqErr *apiError, err error) {
	b, _ := s.boundaries.registry(clientID).Get(name)

	run := func(context.Context) error {
		res, err := call()
		var ae *apiError
		if errors.As(err, &ae) && ae.status < http.StatusInternalServerError {
			reqErr = ae
			return nil
		}
		result = res
		return err
	}

	if b.State().Failed {
		err = b.Retry(ctx, run)
	} else {
		err = b.Do(ctx, run)
	}
	return result, reqErr, err
}

// guard runs h inside the named boundary of the requesting client. Once
// retries are exhausted the handler is not run and the reload fallback is
// returned.
func (s *Server) guard(name string, h apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := clientID(r)
		result, reqErr, err := s.runGuarded(r.Context(), client, name, func() (any, error) {
			return h(w, r)
		})

		switch {
		case errors.Is(err, boundary.ErrRetriesExhausted):
			b, _ := s.boundaries.registry(client).Get(name)
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error(), Fallback: b.Fallback()})
		case err != nil:
			b, _ := s.boundaries.registry(client).Get(name)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Fallback: b.Fallback()})
		case reqErr != nil:
			writeJSON(w, reqErr.status, errorBody{Error: reqErr.msg})
		default:
			writeJSON(w, http.StatusOK, result)
		}
	}
}

func (s *Server) handleBoundaries(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.boundaries.lookup(clientID(r))
	if !ok {
		writeJSON(w, http.StatusOK, s.boundaries.idle())
		return
	}
	writeJSON(w, http.StatusOK, reg.States())
}

func (s *Server) handleResetBoundary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	reg, ok := s.boundaries.lookup(clientID(r))
	if !ok {
		for _, st := range s.boundaries.idle() {
			if st.Name == name {
				writeJSON(w, http.StatusOK, st)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown boundary %q", name)})
		return
	}
	b, ok := reg.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown boundary %q", name)})
		return
	}
	b.Reset()
	writeJSON(w, http.StatusOK, b.State())
}
