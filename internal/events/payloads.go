package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

type PrefsUpdatedPayload struct {
	Theme         string `json:"theme"`
	HighContrast  bool   `json:"high_contrast"`
	ReducedMotion bool   `json:"reduced_motion"`
	LargeText     bool   `json:"large_text"`
	DyslexiaFont  bool   `json:"dyslexia_font"`
}

func (PrefsUpdatedPayload) EventType() EventType { return EventPrefsUpdated }

type BoundaryFailedPayload struct {
	Boundary   string `json:"boundary"`
	Attempts   int    `json:"attempts"`
	MaxRetries int    `json:"max_retries"`
	Error      string `json:"error"`
}

func (BoundaryFailedPayload) EventType() EventType { return EventBoundaryFailed }

type BoundaryExhaustedPayload struct {
	Boundary   string `json:"boundary"`
	MaxRetries int    `json:"max_retries"`
	Error      string `json:"error"`
}

func (BoundaryExhaustedPayload) EventType() EventType { return EventBoundaryExhausted }

type PracticeCheckedPayload struct {
	ProblemID string `json:"problem_id"`
	TopicID   string `json:"topic_id"`
	Correct   bool   `json:"correct"`
}

func (PracticeCheckedPayload) EventType() EventType { return EventPracticeChecked }

type BadgeAwardedPayload struct {
	Badge string `json:"badge"`
	Title string `json:"title"`
}

func (BadgeAwardedPayload) EventType() EventType { return EventBadgeAwarded }

type ConfigReloadedPayload struct {
	Path    string   `json:"path"`
	Changed []string `json:"changed,omitempty"`
}

func (ConfigReloadedPayload) EventType() EventType { return EventConfigReloaded }

// NewTypedEvent builds an event from a typed payload.
func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

// NewTypedEventForClient builds an event scoped to one client.
func NewTypedEventForClient(source EventSource, payload EventPayload, clientID string) Event {
	e := NewTypedEvent(source, payload)
	e.ClientID = clientID
	return e
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// ExtractPayload decodes the payload of e into T.
func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	if e.Type != result.EventType() {
		return result, false
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}
