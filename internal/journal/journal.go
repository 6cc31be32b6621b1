// Package journal persists watch sessions and delivered events to SQLite
// so external status readers can inspect watcher activity without talking
// to the running process. WAL mode keeps readers from blocking the writer.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	verrors "github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/watcher"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	root         TEXT NOT NULL,
	started_at   TIMESTAMP NOT NULL,
	stopped_at   TIMESTAMP,
	stop_reason  TEXT
);

CREATE TABLE IF NOT EXISTS events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL REFERENCES sessions(id),
	path         TEXT NOT NULL,
	kind         TEXT NOT NULL,
	file_type    TEXT NOT NULL,
	first_seen   TIMESTAMP NOT NULL,
	delivered_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
`

// Journal records watch sessions and their delivered events.
type Journal struct {
	db        *sql.DB
	sessionID string
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeJournal, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeJournal, err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, verrors.Newf(verrors.ErrCodeJournal, err, "set pragma")
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, verrors.Newf(verrors.ErrCodeJournal, err, "initialize schema")
	}

	return &Journal{db: db}, nil
}

// OpenReadOnly opens an existing journal for status queries.
func OpenReadOnly(path string) (*Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, verrors.Newf(verrors.ErrCodeJournal, err,
			"no journal at %s", path).
			WithSuggestion("run 'vigil watch' first")
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeJournal, err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// BeginSession records the start of a watch over root and returns the
// session id.
func (j *Journal) BeginSession(root string) (string, error) {
	id := uuid.NewString()
	_, err := j.db.Exec(
		`INSERT INTO sessions (id, root, started_at) VALUES (?, ?, ?)`,
		id, root, time.Now().UTC(),
	)
	if err != nil {
		return "", verrors.Wrap(verrors.ErrCodeJournal, err)
	}
	j.sessionID = id
	return id, nil
}

// EndSession marks the current session stopped with the given reason.
func (j *Journal) EndSession(reason string) error {
	if j.sessionID == "" {
		return nil
	}
	_, err := j.db.Exec(
		`UPDATE sessions SET stopped_at = ?, stop_reason = ? WHERE id = ?`,
		time.Now().UTC(), reason, j.sessionID,
	)
	if err != nil {
		return verrors.Wrap(verrors.ErrCodeJournal, err)
	}
	return nil
}

// RecordEvent appends a delivered event to the current session.
func (j *Journal) RecordEvent(ev watcher.Event) error {
	if j.sessionID == "" {
		return verrors.New(verrors.ErrCodeJournal, "no active session", nil)
	}
	_, err := j.db.Exec(
		`INSERT INTO events (session_id, path, kind, file_type, first_seen, delivered_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		j.sessionID, ev.Path, ev.Kind.String(), string(ev.FileType),
		ev.FirstSeen.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return verrors.Wrap(verrors.ErrCodeJournal, err)
	}
	return nil
}

// SessionStatus is a status reader's view of one watch session.
type SessionStatus struct {
	ID         string     `json:"id"`
	Root       string     `json:"root"`
	StartedAt  time.Time  `json:"started_at"`
	StoppedAt  *time.Time `json:"stopped_at,omitempty"`
	StopReason string     `json:"stop_reason,omitempty"`
	EventCount int        `json:"event_count"`
}

// LatestSession returns the most recently started session, or nil if the
// journal is empty.
func (j *Journal) LatestSession() (*SessionStatus, error) {
	row := j.db.QueryRow(`
		SELECT s.id, s.root, s.started_at, s.stopped_at, COALESCE(s.stop_reason, ''),
		       (SELECT COUNT(*) FROM events e WHERE e.session_id = s.id)
		FROM sessions s
		ORDER BY s.started_at DESC
		LIMIT 1`)

	var st SessionStatus
	var stoppedAt sql.NullTime
	err := row.Scan(&st.ID, &st.Root, &st.StartedAt, &stoppedAt, &st.StopReason, &st.EventCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeJournal, err)
	}
	if stoppedAt.Valid {
		st.StoppedAt = &stoppedAt.Time
	}
	return &st, nil
}

// KindCounts returns per-kind delivered event counts for a session.
func (j *Journal) KindCounts(sessionID string) (map[string]int, error) {
	rows, err := j.db.Query(
		`SELECT kind, COUNT(*) FROM events WHERE session_id = ? GROUP BY kind`,
		sessionID,
	)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeJournal, err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, verrors.Wrap(verrors.ErrCodeJournal, err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeJournal, err)
	}
	return counts, nil
}

// RecentEvents returns the newest events for a session, most recent first.
func (j *Journal) RecentEvents(sessionID string, limit int) ([]EventRecord, error) {
	rows, err := j.db.Query(
		`SELECT path, kind, file_type, first_seen, delivered_at
		 FROM events WHERE session_id = ?
		 ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeJournal, err)
	}
	defer func() { _ = rows.Close() }()

	var out []EventRecord
	for rows.Next() {
		var r EventRecord
		if err := rows.Scan(&r.Path, &r.Kind, &r.FileType, &r.FirstSeen, &r.DeliveredAt); err != nil {
			return nil, verrors.Wrap(verrors.ErrCodeJournal, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeJournal, err)
	}
	return out, nil
}

// EventRecord is a journaled delivery.
type EventRecord struct {
	Path        string    `json:"path"`
	Kind        string    `json:"kind"`
	FileType    string    `json:"file_type"`
	FirstSeen   time.Time `json:"first_seen"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Describe returns a short human summary of a session for CLI output.
func (s *SessionStatus) Describe() string {
	state := "running"
	if s.StoppedAt != nil {
		state = fmt.Sprintf("stopped (%s)", s.StopReason)
	}
	return fmt.Sprintf("session %s  root=%s  state=%s  events=%d",
		s.ID[:8], s.Root, state, s.EventCount)
}
