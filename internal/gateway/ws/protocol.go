// Package ws carries JSON frames between the server and browser or CLI
// clients over a WebSocket connection.
package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidFrame = errors.New("invalid frame")

// FrameType tells requests, responses and pushed events apart.
type FrameType string

const (
	FrameTypeRequest  FrameType = "req"
	FrameTypeResponse FrameType = "res"
	FrameTypeEvent    FrameType = "event"
)

// EventHello is pushed once per connection and carries the client ID.
const EventHello = "hello"

// Method names an operation a client may request.
type Method string

const (
	MethodPlot      Method = "plot"
	MethodClassify  Method = "classify"
	MethodCalculate Method = "calculate"
	MethodGetPrefs  Method = "get_prefs"
	MethodSetPrefs  Method = "set_prefs"
)

// Methods lists every method the server answers.
var Methods = []Method{MethodPlot, MethodClassify, MethodCalculate, MethodGetPrefs, MethodSetPrefs}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return slices.Contains(Methods, m)
}

// Frame is the envelope of every message. Requests set ID, Method and Params;
// responses echo the ID with OK and Payload or Error; events set Event.
type Frame struct {
	Type     FrameType       `json:"type"`
	ID       string          `json:"id,omitempty"`
	Method   string          `json:"method,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
	OK       *bool           `json:"ok,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Error    string          `json:"error,omitempty"`
	Event    string          `json:"event,omitempty"`
	ClientID string          `json:"client_id,omitempty"`
}

// Encode serializes the frame.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// DecodeFrame parses and validates a frame. A request without an ID or a
// method is rejected with ErrInvalidFrame; the partially decoded frame is
// still returned so the caller can answer its ID.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	switch f.Type {
	case FrameTypeRequest:
		if f.ID == "" || f.Method == "" {
			return f, fmt.Errorf("%w: request needs id and method", ErrInvalidFrame)
		}
	case FrameTypeResponse, FrameTypeEvent:
	default:
		return f, fmt.Errorf("%w: unknown type %q", ErrInvalidFrame, f.Type)
	}
	return f, nil
}

func rawJSON(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// NewRequestFrame builds a request frame.
func NewRequestFrame(id string, method Method, params any) (Frame, error) {
	raw, err := rawJSON(params)
	if err != nil {
		return Frame{}, fmt.Errorf("params: %w", err)
	}
	return Frame{Type: FrameTypeRequest, ID: id, Method: string(method), Params: raw}, nil
}

// NewEventFrame builds a pushed event frame.
func NewEventFrame(event, clientID string, payload any) (Frame, error) {
	raw, err := rawJSON(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("payload: %w", err)
	}
	return Frame{Type: FrameTypeEvent, Event: event, ClientID: clientID, Payload: raw}, nil
}

// NewResponseFrame answers request id. A non-empty errMsg marks it failed.
func NewResponseFrame(id string, payload any, errMsg string) (Frame, error) {
	ok := errMsg == ""
	f := Frame{Type: FrameTypeResponse, ID: id, OK: &ok, Error: errMsg}
	if !ok {
		return f, nil
	}
	raw, err := rawJSON(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("payload: %w", err)
	}
	f.Payload = raw
	return f, nil
}
