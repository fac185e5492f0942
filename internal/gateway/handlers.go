package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dohr-michael/mathfarm/internal/calculator"
	"github.com/dohr-michael/mathfarm/internal/content"
	"github.com/dohr-michael/mathfarm/internal/events"
	"github.com/dohr-michael/mathfarm/internal/expr"
	"github.com/dohr-michael/mathfarm/internal/graph"
	"github.com/dohr-michael/mathfarm/internal/plot"
	"github.com/dohr-michael/mathfarm/internal/prefs"
	"github.com/dohr-michael/mathfarm/internal/progress"
	"github.com/dohr-michael/mathfarm/internal/rewrite"
)

const maxBodySize = 1 << 20

func decode(r *http.Request, v any) error {
	return decodeJSON(io.LimitReader(r.Body, maxBodySize), v)
}

func decodeJSON(rd io.Reader, v any) error {
	if err := json.NewDecoder(rd).Decode(v); err != nil {
		return errorf(http.StatusBadRequest, "invalid request body: %v", err)
	}
	return nil
}

// expressionError maps a parse or classification error to a 422.
func expressionError(err error) error {
	if errors.Is(err, expr.ErrParse) || errors.Is(err, graph.ErrUnsupportedVariable) {
		return errorf(http.StatusUnprocessableEntity, "%v", err)
	}
	return err
}

// --- graph ---

type plotRequest struct {
	Expression string         `json:"expression"`
	Viewport   *plot.Viewport `json:"viewport,omitempty"`
	Samples    int            `json:"samples,omitempty"`
}

func (s *Server) plot(req plotRequest) (*plot.Result, error) {
	vp := s.opts.Viewport
	if req.Viewport != nil {
		vp = *req.Viewport
	}
	samples := req.Samples
	if samples == 0 {
		samples = s.opts.Samples
	}

	res, err := plot.Plot(req.Expression, vp, plot.Options{Samples: samples, Resolution: s.opts.Resolution})
	if errors.Is(err, plot.ErrViewport) {
		return nil, errorf(http.StatusBadRequest, "%v", err)
	}
	if err != nil {
		return nil, expressionError(err)
	}
	return res, nil
}

func (s *Server) handlePlot(_ http.ResponseWriter, r *http.Request) (any, error) {
	var req plotRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return s.plot(req)
}

type expressionRequest struct {
	Expression string `json:"expression"`
}

func (s *Server) classify(req expressionRequest) (graph.Equation, error) {
	eq, err := graph.Classify(req.Expression)
	if err != nil {
		return eq, expressionError(err)
	}
	return eq, nil
}

func (s *Server) handleClassify(_ http.ResponseWriter, r *http.Request) (any, error) {
	var req expressionRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return s.classify(req)
}

type traceRequest struct {
	Expression string  `json:"expression"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

type traceResponse struct {
	Kind     graph.Kind `json:"kind"`
	Expanded string     `json:"expanded"`
	Value    *float64   `json:"value"` // null when undefined
}

func (s *Server) handleTrace(_ http.ResponseWriter, r *http.Request) (any, error) {
	var req traceRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	eq, err := graph.Classify(req.Expression)
	if err != nil {
		return nil, expressionError(err)
	}

	resp := traceResponse{
		Kind:     eq.Kind,
		Expanded: rewrite.Expand(req.Expression, map[string]float64{"x": req.X, "y": req.Y}),
	}
	var v float64
	if eq.Kind == graph.KindExplicit {
		v = eq.Func()(req.X)
	} else {
		v = eq.Difference()(req.X, req.Y)
	}
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		resp.Value = &v
	}
	return resp, nil
}

// --- calculator ---

type calculateRequest struct {
	Expression string `json:"expression"`
	AngleUnit  string `json:"angle_unit,omitempty"`
}

type calculateResponse struct {
	Display string              `json:"display"`
	Value   *float64            `json:"value,omitempty"`
	Error   string              `json:"error,omitempty"`
	History []calculator.Result `json:"history"`
}

// calculate never fails on a bad expression: the error is shown inline.
func (s *Server) calculate(client string, req calculateRequest) (calculateResponse, error) {
	var unit calculator.AngleUnit
	if req.AngleUnit != "" {
		u, err := calculator.ParseAngleUnit(req.AngleUnit)
		if err != nil {
			return calculateResponse{}, errorf(http.StatusBadRequest, "%v", err)
		}
		unit = u
	}

	calc := s.calculatorFor(client, unit)
	var resp calculateResponse
	res, err := calc.Evaluate(req.Expression)
	if err != nil {
		resp.Display = calculator.ErrorText(err)
		resp.Error = err.Error()
	} else {
		resp.Display = calculator.FormatValue(res.Value)
		resp.Value = &res.Value
	}
	resp.History = calc.History().Items()
	return resp, nil
}

func (s *Server) handleCalculate(_ http.ResponseWriter, r *http.Request) (any, error) {
	var req calculateRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return s.calculate(clientID(r), req)
}

// --- practice ---

func notFound(err error) error {
	if errors.Is(err, content.ErrNotFound) {
		return errorf(http.StatusNotFound, "%v", err)
	}
	return err
}

func (s *Server) handleTopics(_ http.ResponseWriter, _ *http.Request) (any, error) {
	return s.deps.Catalog.Topics(), nil
}

type topicResponse struct {
	content.Topic
	ProblemCount int `json:"problem_count"`
}

func (s *Server) handleTopic(_ http.ResponseWriter, r *http.Request) (any, error) {
	t, err := s.deps.Catalog.Topic(chi.URLParam(r, "id"))
	if err != nil {
		return nil, notFound(err)
	}
	return topicResponse{Topic: t, ProblemCount: len(t.Problems)}, nil
}

func (s *Server) handleProblems(_ http.ResponseWriter, r *http.Request) (any, error) {
	problems, err := s.deps.Catalog.Problems(chi.URLParam(r, "id"))
	if err != nil {
		return nil, notFound(err)
	}
	return problems, nil
}

type checkRequest struct {
	Answer   string `json:"answer"`
	ClientID string `json:"client_id,omitempty"`
}

type checkResponse struct {
	Verdict content.Verdict  `json:"verdict"`
	Badges  []progress.Badge `json:"badges"`
}

func (s *Server) handleCheck(_ http.ResponseWriter, r *http.Request) (any, error) {
	var req checkRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	p, err := s.deps.Catalog.Problem(chi.URLParam(r, "id"))
	if err != nil {
		return nil, notFound(err)
	}
	verdict, err := content.Check(p, req.Answer)
	if err != nil {
		return nil, err
	}

	client := req.ClientID
	if client == "" {
		client = clientID(r)
	}
	s.deps.Bus.Publish(events.NewTypedEventForClient(events.SourcePractice, events.PracticeCheckedPayload{
		ProblemID: p.ID,
		TopicID:   p.TopicID,
		Correct:   verdict.Correct,
	}, client))

	badges, err := s.deps.Tracker.Record(r.Context(), progress.Attempt{
		ClientID:  client,
		ProblemID: p.ID,
		TopicID:   p.TopicID,
		Correct:   verdict.Correct,
	})
	if err != nil {
		return nil, err
	}
	if badges == nil {
		badges = []progress.Badge{}
	}
	return checkResponse{Verdict: verdict, Badges: badges}, nil
}

func (s *Server) handleProgress(_ http.ResponseWriter, r *http.Request) (any, error) {
	return s.deps.Tracker.Summary(r.Context(), chi.URLParam(r, "clientID"))
}

// --- preferences ---

const acceptCH = "Sec-CH-Prefers-Color-Scheme, Sec-CH-Prefers-Reduced-Motion, Sec-CH-Prefers-Contrast"

type prefsResponse struct {
	Preferences prefs.Preferences `json:"preferences"`
	Resolved    prefs.Resolved    `json:"resolved"`
}

// prefsPatch updates only the fields present in the request.
type prefsPatch struct {
	Theme         *prefs.Theme `json:"theme"`
	HighContrast  *bool        `json:"high_contrast"`
	ReducedMotion *bool        `json:"reduced_motion"`
	LargeText     *bool        `json:"large_text"`
	DyslexiaFont  *bool        `json:"dyslexia_font"`
}

func (pp prefsPatch) apply(p *prefs.Preferences) {
	if pp.Theme != nil {
		p.Theme = *pp.Theme
	}
	if pp.HighContrast != nil {
		p.HighContrast = *pp.HighContrast
	}
	if pp.ReducedMotion != nil {
		p.ReducedMotion = *pp.ReducedMotion
	}
	if pp.LargeText != nil {
		p.LargeText = *pp.LargeText
	}
	if pp.DyslexiaFont != nil {
		p.DyslexiaFont = *pp.DyslexiaFont
	}
}

func (s *Server) getPrefs(ctx context.Context, client string, hints prefs.SystemHints) (prefsResponse, error) {
	p, err := s.deps.Prefs.Get(ctx, client)
	if err != nil {
		return prefsResponse{}, err
	}
	return prefsResponse{Preferences: p, Resolved: prefs.Resolve(p, hints)}, nil
}

func (s *Server) setPrefs(ctx context.Context, client string, patch prefsPatch, hints prefs.SystemHints) (prefsResponse, error) {
	p, err := s.deps.Prefs.Update(ctx, client, patch.apply)
	if errors.Is(err, prefs.ErrInvalidTheme) {
		return prefsResponse{}, errorf(http.StatusBadRequest, "%v", err)
	}
	if err != nil {
		return prefsResponse{}, err
	}
	return prefsResponse{Preferences: p, Resolved: prefs.Resolve(p, hints)}, nil
}

func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) (any, error) {
	w.Header().Set("Accept-CH", acceptCH)
	return s.getPrefs(r.Context(), chi.URLParam(r, "clientID"), prefs.HintsFromHeader(r.Header))
}

func (s *Server) handlePutPrefs(w http.ResponseWriter, r *http.Request) (any, error) {
	var patch prefsPatch
	if err := decode(r, &patch); err != nil {
		return nil, err
	}
	w.Header().Set("Accept-CH", acceptCH)
	return s.setPrefs(r.Context(), chi.URLParam(r, "clientID"), patch, prefs.HintsFromHeader(r.Header))
}

// --- hours ---

func (s *Server) handleHours(_ http.ResponseWriter, _ *http.Request) (any, error) {
	h := s.hours.Load()
	if h == nil {
		return nil, errorf(http.StatusNotFound, "opening hours are not configured")
	}
	return h.Status(time.Now()), nil
}
