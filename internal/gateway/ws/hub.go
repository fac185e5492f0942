package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/dohr-michael/mathfarm/internal/events"
)

const sendBuffer = 256

var errRequestsUnsupported = errors.New("requests not supported")

// RequestHandler answers request frames on behalf of a client.
type RequestHandler interface {
	HandleRequest(ctx context.Context, clientID string, method Method, params json.RawMessage) (any, error)
}

// peer is one open connection. Several peers may share a client ID, e.g. two
// tabs of the same browser.
type peer struct {
	clientID string
	conn     *websocket.Conn
	out      chan []byte
}

// push queues data for the peer and drops it when the peer is too slow.
func (p *peer) push(data []byte) {
	select {
	case p.out <- data:
	default:
		slog.Debug("ws peer too slow, frame dropped", "client_id", p.clientID)
	}
}

func (p *peer) pushFrame(f Frame) {
	data, err := f.Encode()
	if err != nil {
		slog.Error("ws encode frame", "type", f.Type, "error", err)
		return
	}
	p.push(data)
}

// Hub forwards bus events to the peers they concern and hands request
// frames to a RequestHandler.
type Hub struct {
	handler RequestHandler

	mu    sync.RWMutex
	peers map[*peer]struct{}

	unsubscribe func()
}

// NewHub subscribes to every event on bus. Events scoped to a client reach
// only that client's peers; unscoped events reach everybody.
func NewHub(bus *events.Bus, handler RequestHandler) *Hub {
	h := &Hub{handler: handler, peers: make(map[*peer]struct{})}
	h.unsubscribe = bus.Subscribe(h.forward)
	return h
}

func (h *Hub) forward(e events.Event) {
	f, err := NewEventFrame(string(e.Type), e.ClientID, e)
	if err != nil {
		slog.Error("ws event frame", "event", e.Type, "error", err)
		return
	}
	data, err := f.Encode()
	if err != nil {
		slog.Error("ws encode frame", "event", e.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.peers {
		if e.ClientID == "" || p.clientID == e.ClientID {
			p.push(data)
		}
	}
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *Hub) join(p *peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	n := len(h.peers)
	h.mu.Unlock()
	slog.Info("ws client connected", "client_id", p.clientID, "clients", n)
}

func (h *Hub) leave(p *peer) {
	h.mu.Lock()
	_, ok := h.peers[p]
	if ok {
		delete(h.peers, p)
		close(p.out)
	}
	n := len(h.peers)
	h.mu.Unlock()
	if ok {
		slog.Info("ws client disconnected", "client_id", p.clientID, "clients", n)
	}
}

// ServeWS upgrades the request and serves the connection until it closes.
// The client names itself with ?client_id=, otherwise it gets a fresh ID;
// either way the ID is sent back in a hello event.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // local server, any origin
	})
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}

	id := r.URL.Query().Get("client_id")
	if id == "" {
		id = uuid.NewString()
	}
	p := &peer{clientID: id, conn: conn, out: make(chan []byte, sendBuffer)}
	h.join(p)

	if hello, err := NewEventFrame(EventHello, id, map[string]string{"client_id": id}); err == nil {
		p.pushFrame(hello)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.write(ctx, p)
	h.read(ctx, p)
}

func (h *Hub) read(ctx context.Context, p *peer) {
	defer func() {
		h.leave(p)
		p.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := p.conn.Read(ctx)
		if err != nil {
			slog.Debug("ws read ended", "client_id", p.clientID, "status", websocket.CloseStatus(err), "error", err)
			return
		}

		f, err := DecodeFrame(data)
		if err != nil {
			slog.Warn("ws bad frame", "client_id", p.clientID, "error", err)
			if f.Type == FrameTypeRequest {
				h.reply(p, f.ID, nil, err)
			}
			continue
		}
		if f.Type != FrameTypeRequest {
			slog.Debug("ws ignoring frame", "type", f.Type)
			continue
		}
		result, err := h.dispatch(ctx, p.clientID, f)
		h.reply(p, f.ID, result, err)
	}
}

func (h *Hub) dispatch(ctx context.Context, clientID string, f Frame) (any, error) {
	method := Method(f.Method)
	switch {
	case h.handler == nil:
		return nil, errRequestsUnsupported
	case !method.Valid():
		return nil, fmt.Errorf("unknown method: %s", f.Method)
	}
	return h.handler.HandleRequest(ctx, clientID, method, f.Params)
}

func (h *Hub) reply(p *peer, id string, result any, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	f, ferr := NewResponseFrame(id, result, msg)
	if ferr != nil {
		f, _ = NewResponseFrame(id, nil, ferr.Error())
	}
	p.pushFrame(f)
}

func (h *Hub) write(ctx context.Context, p *peer) {
	for {
		select {
		case data, ok := <-p.out:
			if !ok {
				return
			}
			if err := p.conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close stops forwarding events and closes every connection.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		p.conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.peers, p)
	}
}
