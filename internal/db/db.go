// Package db is the sqlite journal of raw gate lines. Every non-empty line
// the session receives is stored with its session ID, receive time and parsed
// kind so that runs can be inspected and replayed later.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the journal at path and applies any pending
// migrations. Use ":memory:" for a throwaway journal.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer; one connection also keeps a :memory:
	// database alive across queries.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB}
	if err := db.applyPragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) applyPragmas() error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}

// GateLine is one journaled device line.
type GateLine struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	ReceivedAt time.Time `json:"received_at"`
	Kind       string    `json:"kind"`
	Line       string    `json:"line"`
}

func (l *GateLine) String() string {
	return fmt.Sprintf("%s %s %-12s %s", l.ReceivedAt.Format(time.RFC3339Nano), l.SessionID, l.Kind, l.Line)
}

// RecordLine appends a device line to the journal.
func (db *DB) RecordLine(sessionID string, receivedAt time.Time, line, kind string) error {
	_, err := db.Exec(
		`INSERT INTO gate_lines (session_id, received_unix_nanos, kind, line) VALUES (?, ?, ?, ?)`,
		sessionID, receivedAt.UnixNano(), kind, line,
	)
	if err != nil {
		return fmt.Errorf("failed to record gate line: %w", err)
	}
	return nil
}

// Lines returns up to limit of the most recent journaled lines, oldest first.
// An empty sessionID returns lines from every session.
func (db *DB) Lines(sessionID string, limit int) ([]GateLine, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.Query(`
		SELECT line_id, session_id, received_unix_nanos, kind, line FROM (
			SELECT * FROM gate_lines
			WHERE ? = '' OR session_id = ?
			ORDER BY line_id DESC
			LIMIT ?
		) ORDER BY line_id ASC`,
		sessionID, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []GateLine
	for rows.Next() {
		var l GateLine
		var nanos int64
		if err := rows.Scan(&l.ID, &l.SessionID, &nanos, &l.Kind, &l.Line); err != nil {
			return nil, err
		}
		l.ReceivedAt = time.Unix(0, nanos).UTC()
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// SessionSummary describes one journaled session.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Lines     int       `json:"lines"`
	Goals     int       `json:"goals"`
}

// Sessions lists journaled sessions, most recent first.
func (db *DB) Sessions() ([]SessionSummary, error) {
	rows, err := db.Query(`
		SELECT session_id,
			MIN(received_unix_nanos),
			MAX(received_unix_nanos),
			COUNT(*),
			SUM(CASE WHEN kind = 'goal' THEN 1 ELSE 0 END)
		FROM gate_lines
		GROUP BY session_id
		ORDER BY MAX(line_id) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var first, last int64
		if err := rows.Scan(&s.SessionID, &first, &last, &s.Lines, &s.Goals); err != nil {
			return nil, err
		}
		s.FirstSeen = time.Unix(0, first).UTC()
		s.LastSeen = time.Unix(0, last).UTC()
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
