package ws

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    FrameType
		wantErr bool
	}{
		{"request", `{"type":"req","id":"1","method":"plot","params":{"expression":"y=x"}}`, FrameTypeRequest, false},
		{"response", `{"type":"res","id":"1","ok":true,"payload":{"display":"4"}}`, FrameTypeResponse, false},
		{"event", `{"type":"event","event":"prefs.updated","client_id":"c1"}`, FrameTypeEvent, false},
		{"request without id", `{"type":"req","method":"plot"}`, FrameTypeRequest, true},
		{"request without method", `{"type":"req","id":"2"}`, FrameTypeRequest, true},
		{"unknown type", `{"type":"ping"}`, "ping", true},
		{"not json", `{"type":`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFrame([]byte(tt.in))
			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFrame) {
				t.Fatalf("expected ErrInvalidFrame, got %v", err)
			}
			if f.Type != tt.want {
				t.Fatalf("type = %q, want %q", f.Type, tt.want)
			}
		})
	}
}

func TestRequestFrameEncodes(t *testing.T) {
	f, err := NewRequestFrame("req-1", MethodCalculate, map[string]string{"expression": "2+2"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := f.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "req-1" || Method(got.Method) != MethodCalculate {
		t.Fatalf("unexpected frame %+v", got)
	}
	var p map[string]string
	if err := json.Unmarshal(got.Params, &p); err != nil || p["expression"] != "2+2" {
		t.Fatalf("params = %s (%v)", got.Params, err)
	}
}

func TestEventFrame(t *testing.T) {
	f, err := NewEventFrame("progress.badge", "client_42", map[string]string{"badge": "sprout"})
	if err != nil {
		t.Fatal(err)
	}
	if f.Type != FrameTypeEvent || f.Event != "progress.badge" || f.ClientID != "client_42" {
		t.Fatalf("unexpected frame %+v", f)
	}
	if string(f.Payload) != `{"badge":"sprout"}` {
		t.Fatalf("payload = %s", f.Payload)
	}
}

func TestResponseFrame(t *testing.T) {
	ok, err := NewResponseFrame("req-5", map[string]string{"status": "done"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if ok.OK == nil || !*ok.OK || ok.Error != "" || string(ok.Payload) != `{"status":"done"}` {
		t.Fatalf("unexpected ok frame %+v", ok)
	}

	failed, err := NewResponseFrame("req-6", map[string]string{"ignored": "yes"}, "something went wrong")
	if err != nil {
		t.Fatal(err)
	}
	if failed.OK == nil || *failed.OK || failed.Error != "something went wrong" || failed.Payload != nil {
		t.Fatalf("unexpected error frame %+v", failed)
	}
}

func TestMethodValid(t *testing.T) {
	for _, m := range Methods {
		if !m.Valid() {
			t.Errorf("%s should be valid", m)
		}
	}
	if Method("dance").Valid() {
		t.Error("dance should not be valid")
	}
}
