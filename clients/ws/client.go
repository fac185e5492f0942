// Package ws provides a WebSocket client for the Math Farm server.
package ws

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/coder/websocket"

	wsprotocol "github.com/dohr-michael/mathfarm/internal/gateway/ws"
)

// Client is a WebSocket client for the Math Farm server.
type Client struct {
	conn   *websocket.Conn
	reqSeq atomic.Uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Dial connects to the server WebSocket endpoint, e.g. ws://127.0.0.1:18430/api/ws.
// A non-empty clientID joins that client's event stream.
func Dial(ctx context.Context, endpoint, clientID string) (*Client, error) {
	if clientID != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("ws url: %w", err)
		}
		q := u.Query()
		q.Set("client_id", clientID)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		conn:   conn,
		ctx:    clientCtx,
		cancel: cancel,
	}, nil
}

// Request sends a request frame and returns its ID. The response arrives as
// a "res" frame with the same ID.
func (c *Client) Request(method wsprotocol.Method, params any) (string, error) {
	if !method.Valid() {
		return "", fmt.Errorf("unknown method %q", method)
	}
	frame, err := wsprotocol.NewRequestFrame(fmt.Sprintf("req-%d", c.reqSeq.Add(1)), method, params)
	if err != nil {
		return "", err
	}
	data, err := frame.Encode()
	if err != nil {
		return "", err
	}
	if err := c.conn.Write(c.ctx, websocket.MessageText, data); err != nil {
		return "", err
	}
	return frame.ID, nil
}

// ReadFrame reads the next frame from the connection.
func (c *Client) ReadFrame() (wsprotocol.Frame, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return wsprotocol.Frame{}, err
	}
	return wsprotocol.DecodeFrame(data)
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
