// Package tracking keeps an optional journal of playback activity in SQLite
// for offline inspection. The playback manager works without it.
package tracking

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event kinds recorded in the journal.
const (
	KindPlayStarted       = "play_started"
	KindPlayDropped       = "play_dropped"
	KindOverlapSuppressed = "overlap_suppressed"
	KindSoundLoaded       = "sound_loaded"
	KindError             = "error"
)

// Event is one journal row.
type Event struct {
	ID        string
	Timestamp time.Time
	Kind      string
	Sound     string
	Detail    string
}

// Recorder writes playback events to the journal database.
type Recorder struct {
	db *sql.DB
}

// NewRecorder opens the journal at dbPath.
func NewRecorder(dbPath string) (*Recorder, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracking database: %w", err)
	}
	slog.Debug("playback journal opened", "path", dbPath)
	return &Recorder{db: db}, nil
}

// NewRecorderWithDB wraps an existing database handle (used by tests).
func NewRecorderWithDB(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Record writes one event. Journal failures are reported but never propagate;
// playback must not depend on the journal being writable.
func (r *Recorder) Record(kind, sound, detail string) {
	if r == nil || r.db == nil {
		return
	}

	_, err := r.db.Exec(
		"INSERT INTO playback_events (id, timestamp, kind, sound, detail) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), time.Now().Unix(), kind, sound, detail)
	if err != nil {
		slog.Warn("failed to record playback event",
			"kind", kind, "sound", sound, "error", err)
		return
	}

	slog.Debug("playback event recorded", "kind", kind, "sound", sound)
}

// Recent returns the newest events, most recent first.
func (r *Recorder) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(
		"SELECT id, timestamp, kind, sound, COALESCE(detail, '') FROM playback_events ORDER BY timestamp DESC, id LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query playback events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.Kind, &e.Sound, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan playback event: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByKind returns the number of events of each kind.
func (r *Recorder) CountByKind() (map[string]int, error) {
	rows, err := r.db.Query("SELECT kind, COUNT(*) FROM playback_events GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("failed to count playback events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// Close releases the underlying database handle.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
