package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/dohr-michael/mathfarm/internal/events"
)

type echoHandler struct{}

func (echoHandler) HandleRequest(_ context.Context, clientID string, method Method, params json.RawMessage) (any, error) {
	if method != MethodClassify {
		return nil, errors.New("unknown method: " + string(method))
	}
	return map[string]string{"client_id": clientID, "params": string(params)}, nil
}

func dial(t *testing.T, h *Hub, clientID string) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?client_id=" + clientID
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) Frame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	f, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return f
}

func TestHubHelloAndEvents(t *testing.T) {
	bus := events.NewBus(64)
	defer bus.Close()
	h := NewHub(bus, nil)
	defer h.Close()

	conn, ctx := dial(t, h, "c1")

	hello := readFrame(t, ctx, conn)
	if hello.Event != EventHello || hello.ClientID != "c1" {
		t.Fatalf("unexpected hello frame %+v", hello)
	}

	bus.Publish(events.NewTypedEventForClient(events.SourcePrefs, events.PrefsUpdatedPayload{Theme: "dark"}, "other"))
	bus.Publish(events.NewTypedEventForClient(events.SourcePrefs, events.PrefsUpdatedPayload{Theme: "light"}, "c1"))

	f := readFrame(t, ctx, conn)
	if f.Event != string(events.EventPrefsUpdated) || f.ClientID != "c1" {
		t.Fatalf("expected own prefs.updated, got %+v", f)
	}
	var e events.Event
	if err := json.Unmarshal(f.Payload, &e); err != nil {
		t.Fatal(err)
	}
	if e.Payload["theme"] != "light" {
		t.Fatalf("received another client's event: %+v", e)
	}
}

func TestHubRequests(t *testing.T) {
	bus := events.NewBus(64)
	defer bus.Close()
	h := NewHub(bus, echoHandler{})
	defer h.Close()

	conn, ctx := dial(t, h, "c2")
	readFrame(t, ctx, conn) // hello

	send := func(method string) Frame {
		f, _ := NewRequestFrame("r-"+method, Method(method), map[string]string{"expression": "y=x"})
		data, _ := f.Encode()
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			t.Fatal(err)
		}
		return readFrame(t, ctx, conn)
	}

	res := send(string(MethodClassify))
	if res.ID != "r-classify" || res.OK == nil || !*res.OK {
		t.Fatalf("unexpected response %+v", res)
	}
	var p map[string]string
	json.Unmarshal(res.Payload, &p)
	if p["client_id"] != "c2" {
		t.Fatalf("handler saw client %q", p["client_id"])
	}

	res = send("dance")
	if res.ID != "r-dance" || res.OK == nil || *res.OK || !strings.Contains(res.Error, "unknown method") {
		t.Fatalf("expected error response, got %+v", res)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"req","id":"r-bad"}`)); err != nil {
		t.Fatal(err)
	}
	res = readFrame(t, ctx, conn)
	if res.ID != "r-bad" || res.OK == nil || *res.OK || !strings.Contains(res.Error, "invalid frame") {
		t.Fatalf("expected invalid frame response, got %+v", res)
	}
}
