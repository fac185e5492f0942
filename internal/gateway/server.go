// Package gateway serves the Math Farm HTTP API, the event stream and the
// static front-end.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang/groupcache/lru"

	"github.com/dohr-michael/mathfarm/internal/calculator"
	"github.com/dohr-michael/mathfarm/internal/content"
	"github.com/dohr-michael/mathfarm/internal/events"
	"github.com/dohr-michael/mathfarm/internal/gateway/ws"
	"github.com/dohr-michael/mathfarm/internal/hours"
	"github.com/dohr-michael/mathfarm/internal/plot"
	"github.com/dohr-michael/mathfarm/internal/prefs"
	"github.com/dohr-michael/mathfarm/internal/progress"
)

// Boundary names.
const (
	BoundaryGraph      = "graph"
	BoundaryCalculator = "calculator"
	BoundaryPractice   = "practice"
	BoundaryApp        = "app"
)

// Options configures a Server.
type Options struct {
	Host      string
	Port      int
	StaticDir string

	Viewport   plot.Viewport
	Samples    int
	Resolution int

	AngleUnit   calculator.AngleUnit
	HistorySize int

	// MaxRetries caps each boundary by name. Missing names get 2.
	MaxRetries map[string]int

	// MaxClients caps the per-client boundary registries and calculators
	// kept in memory. Zero means 1024.
	MaxClients int
}

// Deps are the services the server exposes. Hours may be nil.
type Deps struct {
	Bus     *events.Bus
	Prefs   *prefs.Manager
	Catalog *content.Catalog
	Tracker *progress.Tracker
	Hours   *hours.Schedule
}

// Server is the Math Farm HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	deps       Deps
	opts       Options
	boundaries *clientBoundaries
	hours      atomic.Pointer[hours.Schedule]

	calcMu      sync.Mutex
	calculators *lru.Cache

	unsubscribe func()
}

// NewServer creates a new server.
func NewServer(deps Deps, opts Options) *Server {
	if opts.Viewport == (plot.Viewport{}) {
		opts.Viewport = plot.DefaultViewport
	}
	if opts.HistorySize == 0 {
		opts.HistorySize = 10
	}
	if opts.MaxClients <= 0 {
		opts.MaxClients = 1024
	}

	s := &Server{
		deps:        deps,
		opts:        opts,
		calculators: lru.New(opts.MaxClients),
	}
	s.hours.Store(deps.Hours)
	s.boundaries = newClientBoundaries(deps.Bus, opts.MaxRetries, opts.MaxClients)
	s.hub = ws.NewHub(deps.Bus, s)

	// Preference changes reach every open tab of the client.
	s.unsubscribe = deps.Prefs.Subscribe(func(clientID string, p prefs.Preferences) {
		deps.Bus.Publish(events.NewTypedEventForClient(events.SourcePrefs, events.PrefsUpdatedPayload{
			Theme:         string(p.Theme),
			HighContrast:  p.HighContrast,
			ReducedMotion: p.ReducedMotion,
			LargeText:     p.LargeText,
			DyslexiaFont:  p.DyslexiaFont,
		}, clientID))
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ws", s.hub.ServeWS)
		r.Get("/events", s.handleEvents)

		r.Post("/graph/plot", s.guard(BoundaryGraph, s.handlePlot))
		r.Post("/graph/classify", s.guard(BoundaryGraph, s.handleClassify))
		r.Post("/graph/trace", s.guard(BoundaryGraph, s.handleTrace))

		r.Post("/calculator", s.guard(BoundaryCalculator, s.handleCalculate))

		r.Get("/topics", s.guard(BoundaryPractice, s.handleTopics))
		r.Get("/topics/{id}", s.guard(BoundaryPractice, s.handleTopic))
		r.Get("/topics/{id}/problems", s.guard(BoundaryPractice, s.handleProblems))
		r.Post("/practice/{id}/check", s.guard(BoundaryPractice, s.handleCheck))
		r.Get("/progress/{clientID}", s.guard(BoundaryPractice, s.handleProgress))

		r.Get("/prefs/{clientID}", s.guard(BoundaryApp, s.handleGetPrefs))
		r.Put("/prefs/{clientID}", s.guard(BoundaryApp, s.handlePutPrefs))

		r.Get("/hours", s.guard(BoundaryApp, s.handleHours))

		r.Get("/boundaries", s.handleBoundaries)
		r.Post("/boundaries/{name}/reset", s.handleResetBoundary)
	})

	if opts.StaticDir != "" {
		r.Get("/*", staticHandler(opts.StaticDir))
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler: r,
	}

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// SetHours replaces the opening-hours schedule. nil disables /api/hours.
func (s *Server) SetHours(h *hours.Schedule) {
	s.hours.Store(h)
}

// Clients returns the number of open websocket connections.
func (s *Server) Clients() int {
	return s.hub.Count()
}

// FailingBoundaries lists "client/boundary" pairs currently failed.
func (s *Server) FailingBoundaries() []string {
	return s.boundaries.failing()
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("Math Farm listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid limit"})
			return
		}
		limit = n
	}

	q := r.URL.Query()
	filter := events.Filter{ClientID: q.Get("client_id")}
	for _, t := range q["type"] {
		filter.Types = append(filter.Types, events.EventType(t))
	}

	history := s.deps.Bus.History(limit, filter)
	if history == nil {
		history = []events.Event{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) calculatorFor(clientID string, unit calculator.AngleUnit) *calculator.Calculator {
	s.calcMu.Lock()
	defer s.calcMu.Unlock()

	if v, ok := s.calculators.Get(clientID); ok {
		return v.(*calculator.Calculator).WithUnit(unit)
	}
	c := calculator.New(s.opts.AngleUnit, s.opts.HistorySize)
	s.calculators.Add(clientID, c)
	return c.WithUnit(unit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}
