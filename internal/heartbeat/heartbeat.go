// Package heartbeat publishes the liveness of a running Math Farm server in a
// small JSON file that other processes (mathfarm status) can read.
package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DefaultInterval is how often a running server refreshes its heartbeat.
const DefaultInterval = 30 * time.Second

// Status is the liveness of the server as seen by a reader.
type Status string

const (
	StatusAlive Status = "alive"
	StatusStale Status = "stale"
	StatusDead  Status = "dead"
)

// Heartbeat is the content of the heartbeat file.
type Heartbeat struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
	Clients   int       `json:"clients"`           // open websocket connections
	Failing   []string  `json:"failing,omitempty"` // "client/boundary" pairs currently failed
}

// Uptime is the time between start and the last refresh.
func (hb *Heartbeat) Uptime() time.Duration {
	return hb.Timestamp.Sub(hb.StartedAt).Truncate(time.Second)
}

// Status classifies the heartbeat at now: stale once older than maxAge.
func (hb *Heartbeat) Status(now time.Time, maxAge time.Duration) Status {
	if hb == nil {
		return StatusDead
	}
	if now.Sub(hb.Timestamp) > maxAge {
		return StatusStale
	}
	return StatusAlive
}

// Filler fills the server fields of a heartbeat before it is written.
type Filler func(hb *Heartbeat)

// Writer refreshes a heartbeat file while the server runs.
type Writer struct {
	path     string
	addr     string
	interval time.Duration
	fill     Filler
}

// NewWriter creates a writer for path. fill may be nil.
func NewWriter(path, addr string, interval time.Duration, fill Filler) *Writer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Writer{path: path, addr: addr, interval: interval, fill: fill}
}

// Run writes a heartbeat immediately and then every interval until ctx is
// done. The file is removed on return.
func (w *Writer) Run(ctx context.Context) {
	started := time.Now()
	w.beat(started)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer os.Remove(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.beat(started)
		}
	}
}

func (w *Writer) beat(started time.Time) {
	hb := Heartbeat{
		PID:       os.Getpid(),
		Addr:      w.addr,
		StartedAt: started,
		Timestamp: time.Now(),
	}
	if w.fill != nil {
		w.fill(&hb)
	}
	if err := write(w.path, hb); err != nil {
		slog.Warn("heartbeat write failed", "path", w.path, "error", err)
	}
}

// write replaces the file atomically (tmp + rename).
func write(path string, hb Heartbeat) error {
	data, err := json.MarshalIndent(hb, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Read returns the heartbeat in path, or nil when no server wrote one.
func Read(path string) (*Heartbeat, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read heartbeat: %w", err)
	}

	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return nil, fmt.Errorf("decode heartbeat: %w", err)
	}
	return &hb, nil
}
