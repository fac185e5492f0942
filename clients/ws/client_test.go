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

	"github.com/dohr-michael/mathfarm/internal/events"
	wsprotocol "github.com/dohr-michael/mathfarm/internal/gateway/ws"
)

type squareHandler struct{}

func (squareHandler) HandleRequest(_ context.Context, _ string, method wsprotocol.Method, params json.RawMessage) (any, error) {
	if method != wsprotocol.MethodCalculate {
		return nil, errors.New("unsupported")
	}
	var req struct {
		N float64 `json:"n"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}
	return map[string]float64{"value": req.N * req.N}, nil
}

func TestClientRequestAndEvents(t *testing.T) {
	bus := events.NewBus(64)
	defer bus.Close()
	hub := wsprotocol.NewHub(bus, squareHandler{})
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), "kid")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	hello, err := c.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if hello.Event != wsprotocol.EventHello || hello.ClientID != "kid" {
		t.Fatalf("unexpected hello %+v", hello)
	}

	if _, err := c.Request("dance", nil); err == nil {
		t.Fatal("expected unknown method to be refused before sending")
	}

	id, err := c.Request(wsprotocol.MethodCalculate, map[string]float64{"n": 7})
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != id || res.OK == nil || !*res.OK || !strings.Contains(string(res.Payload), "49") {
		t.Fatalf("unexpected response %+v", res)
	}

	bus.Publish(events.NewTypedEventForClient(events.SourcePractice, events.BadgeAwardedPayload{Badge: "sprout", Title: "Sprout"}, "kid"))
	ev, err := c.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if ev.Event != string(events.EventBadgeAwarded) {
		t.Fatalf("unexpected event frame %+v", ev)
	}
}
