package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dohr-michael/mathfarm/internal/events"
)

// globalLog holds events that are not scoped to a client.
const globalLog = "_global"

// LogPath returns the JSONL file holding clientID's events under dir.
func LogPath(dir, clientID string) string {
	name := globalLog
	if clientID != "" {
		name = strings.Map(func(r rune) rune {
			if r == '/' || r == '\\' || r == os.PathSeparator {
				return '_'
			}
			return r
		}, clientID)
		name = strings.TrimLeft(name, ".")
	}
	return filepath.Join(dir, name+".jsonl")
}

// EventLogger appends every bus event to its client's JSONL log. Files stay
// open until Close.
type EventLogger struct {
	dir         string
	unsubscribe func()

	mu    sync.Mutex
	files map[string]*os.File
}

// NewEventLogger subscribes to bus and logs under dir, created on first write.
func NewEventLogger(dir string, bus *events.Bus) *EventLogger {
	el := &EventLogger{dir: dir, files: make(map[string]*os.File)}
	if bus != nil {
		el.unsubscribe = bus.Subscribe(func(e events.Event) {
			if err := el.Append(e); err != nil {
				slog.Warn("event log write failed", "event_id", e.ID, "client_id", e.ClientID, "error", err)
			}
		})
	}
	return el
}

// Append writes e as one line of its client's log.
func (el *EventLogger) Append(e events.Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	line = append(line, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()

	f, err := el.open(LogPath(el.dir, e.ClientID))
	if err != nil {
		return err
	}
	_, err = f.Write(line)
	return err
}

func (el *EventLogger) open(path string) (*os.File, error) {
	if f, ok := el.files[path]; ok {
		return f, nil
	}
	if err := os.MkdirAll(el.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	el.files[path] = f
	return f, nil
}

// Close stops logging and closes the open logs.
func (el *EventLogger) Close() error {
	if el.unsubscribe != nil {
		el.unsubscribe()
	}
	el.mu.Lock()
	defer el.mu.Unlock()

	var errs []error
	for path, f := range el.files {
		errs = append(errs, f.Close())
		delete(el.files, path)
	}
	return errors.Join(errs...)
}

// ReadEvents returns the last limit events logged for clientID (the global
// log when empty), oldest first, keeping only the given types when any.
// Unreadable lines are skipped, a missing log yields nothing and limit <= 0
// returns everything.
func ReadEvents(dir, clientID string, limit int, types ...events.EventType) ([]events.Event, error) {
	f, err := os.Open(LogPath(dir, clientID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	defer f.Close()

	var out []events.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e events.Event
		if json.Unmarshal(scanner.Bytes(), &e) != nil {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, e.Type) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) > limit {
			out = out[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("scan event log: %w", err)
	}
	return out, nil
}
