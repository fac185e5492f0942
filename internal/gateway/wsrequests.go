package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dohr-michael/mathfarm/internal/gateway/ws"
	"github.com/dohr-michael/mathfarm/internal/prefs"
)

var errUnknownMethod = errors.New("unknown method")

// HandleRequest answers WebSocket request frames. Requests run inside the
// same boundaries as their HTTP counterparts.
func (s *Server) HandleRequest(ctx context.Context, clientID string, method ws.Method, params json.RawMessage) (any, error) {
	var name string
	var call func() (any, error)

	switch method {
	case ws.MethodPlot:
		var req plotRequest
		if err := decodeJSON(bytes.NewReader(params), &req); err != nil {
			return nil, err
		}
		name, call = BoundaryGraph, func() (any, error) { return s.plot(req) }
	case ws.MethodClassify:
		var req expressionRequest
		if err := decodeJSON(bytes.NewReader(params), &req); err != nil {
			return nil, err
		}
		name, call = BoundaryGraph, func() (any, error) { return s.classify(req) }
	case ws.MethodCalculate:
		var req calculateRequest
		if err := decodeJSON(bytes.NewReader(params), &req); err != nil {
			return nil, err
		}
		name, call = BoundaryCalculator, func() (any, error) { return s.calculate(clientID, req) }
	case ws.MethodGetPrefs:
		var hints prefs.SystemHints
		if len(params) > 0 {
			if err := decodeJSON(bytes.NewReader(params), &hints); err != nil {
				return nil, err
			}
		}
		name, call = BoundaryApp, func() (any, error) { return s.getPrefs(ctx, clientID, hints) }
	case ws.MethodSetPrefs:
		var req struct {
			prefsPatch
			Hints prefs.SystemHints `json:"hints"`
		}
		if err := decodeJSON(bytes.NewReader(params), &req); err != nil {
			return nil, err
		}
		name, call = BoundaryApp, func() (any, error) { return s.setPrefs(ctx, clientID, req.prefsPatch, req.Hints) }
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownMethod, method)
	}

	result, reqErr, err := s.runGuarded(ctx, clientID, name, call)
	if err != nil {
		return nil, err
	}
	if reqErr != nil {
		return nil, reqErr
	}
	return result, nil
}
