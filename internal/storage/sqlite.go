// Package storage persists preferences, practice attempts and bus events.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dohr-michael/mathfarm/internal/prefs"
	"github.com/dohr-michael/mathfarm/internal/progress"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS preferences (
		client_id      TEXT PRIMARY KEY,
		theme          TEXT NOT NULL,
		high_contrast  INTEGER NOT NULL DEFAULT 0,
		reduced_motion INTEGER NOT NULL DEFAULT 0,
		large_text     INTEGER NOT NULL DEFAULT 0,
		dyslexia_font  INTEGER NOT NULL DEFAULT 0,
		updated_at     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id  TEXT NOT NULL,
		problem_id TEXT NOT NULL,
		topic_id   TEXT NOT NULL,
		correct    INTEGER NOT NULL,
		at         INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS attempts_client ON attempts (client_id, id)`,
}

// DB is a SQLite database holding preferences and attempts.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	slog.Debug("storage opened", "path", path)
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Prefs returns the preferences store.
func (d *DB) Prefs() *PrefsStore { return &PrefsStore{db: d.db} }

// Attempts returns the attempt store.
func (d *DB) Attempts() *AttemptStore { return &AttemptStore{db: d.db} }

// PrefsStore implements prefs.Store.
type PrefsStore struct {
	db *sql.DB
}

var _ prefs.Store = (*PrefsStore)(nil)

func (s *PrefsStore) Load(ctx context.Context, clientID string) (prefs.Preferences, error) {
	var p prefs.Preferences
	var theme string
	err := s.db.QueryRowContext(ctx,
		`SELECT theme, high_contrast, reduced_motion, large_text, dyslexia_font
		 FROM preferences WHERE client_id = ?`, clientID,
	).Scan(&theme, &p.HighContrast, &p.ReducedMotion, &p.LargeText, &p.DyslexiaFont)
	if errors.Is(err, sql.ErrNoRows) {
		return p, prefs.ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("query preferences: %w", err)
	}
	p.Theme = prefs.Theme(theme)
	return p, nil
}

func (s *PrefsStore) Save(ctx context.Context, clientID string, p prefs.Preferences) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (client_id, theme, high_contrast, reduced_motion, large_text, dyslexia_font, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (client_id) DO UPDATE SET
		   theme = excluded.theme,
		   high_contrast = excluded.high_contrast,
		   reduced_motion = excluded.reduced_motion,
		   large_text = excluded.large_text,
		   dyslexia_font = excluded.dyslexia_font,
		   updated_at = excluded.updated_at`,
		clientID, string(p.Theme), p.HighContrast, p.ReducedMotion, p.LargeText, p.DyslexiaFont, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

// AttemptStore implements progress.Store.
type AttemptStore struct {
	db *sql.DB
}

var _ progress.Store = (*AttemptStore)(nil)

func (s *AttemptStore) AddAttempt(ctx context.Context, a progress.Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (client_id, problem_id, topic_id, correct, at) VALUES (?, ?, ?, ?, ?)`,
		a.ClientID, a.ProblemID, a.TopicID, a.Correct, a.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Attempts(ctx context.Context, clientID string) ([]progress.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT problem_id, topic_id, correct, at FROM attempts WHERE client_id = ? ORDER BY id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var result []progress.Attempt
	for rows.Next() {
		a := progress.Attempt{ClientID: clientID}
		var at int64
		if err := rows.Scan(&a.ProblemID, &a.TopicID, &a.Correct, &at); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.At = time.Unix(0, at).UTC()
		result = append(result, a)
	}
	return result, rows.Err()
}
