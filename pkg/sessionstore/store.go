// Package sessionstore indexes finished recording sessions in SQLite so they
// can be listed without walking the sessions directory.
package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// Entry is one indexed session.
type Entry struct {
	SessionID    string
	RunID        string
	Dir          string
	ManifestPath string
	State        string
	StartedAt    time.Time
	EndedAt      time.Time
	DurationMs   float64
	Channels     int
	Files        int
	Error        string
}

// Store is a SQLite backed session index.
type Store struct {
	db *sql.DB
}

// Open creates or opens the index at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("index path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  session_id TEXT PRIMARY KEY,
  run_id TEXT NOT NULL,
  dir TEXT NOT NULL,
  manifest_path TEXT NOT NULL,
  state TEXT NOT NULL,
  started_at TEXT NOT NULL,
  ended_at TEXT,
  duration_ms REAL NOT NULL,
  channels INTEGER NOT NULL,
  files INTEGER NOT NULL,
  error TEXT
);
CREATE INDEX IF NOT EXISTS sessions_started_at ON sessions (started_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

// Record inserts or replaces the entry keyed by SessionID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.SessionID == "" {
		return errors.New("session id must not be empty")
	}
	const stmt = `
INSERT INTO sessions (session_id, run_id, dir, manifest_path, state, started_at, ended_at, duration_ms, channels, files, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
  run_id=excluded.run_id,
  dir=excluded.dir,
  manifest_path=excluded.manifest_path,
  state=excluded.state,
  started_at=excluded.started_at,
  ended_at=excluded.ended_at,
  duration_ms=excluded.duration_ms,
  channels=excluded.channels,
  files=excluded.files,
  error=excluded.error;
`
	var ended sql.NullString
	if !e.EndedAt.IsZero() {
		ended = sql.NullString{String: e.EndedAt.UTC().Format(timeLayout), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, stmt,
		e.SessionID,
		e.RunID,
		e.Dir,
		e.ManifestPath,
		e.State,
		e.StartedAt.UTC().Format(timeLayout),
		ended,
		e.DurationMs,
		e.Channels,
		e.Files,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// List returns every entry, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, run_id, dir, manifest_path, state, started_at, ended_at, duration_ms, channels, files, error
FROM sessions
ORDER BY started_at DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			started string
			ended   sql.NullString
			errText sql.NullString
		)
		if err := rows.Scan(&e.SessionID, &e.RunID, &e.Dir, &e.ManifestPath, &e.State, &started, &ended, &e.DurationMs, &e.Channels, &e.Files, &errText); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if e.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at for %s: %w", e.SessionID, err)
		}
		if ended.Valid {
			if e.EndedAt, err = time.Parse(timeLayout, ended.String); err != nil {
				return nil, fmt.Errorf("parse ended_at for %s: %w", e.SessionID, err)
			}
		}
		e.Error = errText.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
