package auditlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"rfid-door-lock/internal/types"
)

// Log is the local scan audit log. It records every scan and its outcome for
// diagnostics; the access decision logic never reads it back. Entries stay on
// the device.
type Log struct {
	conn *sql.DB
}

// Counters summarizes the audit log for the status API.
type Counters struct {
	Total   int64 `json:"total"`
	Granted int64 `json:"granted"`
	Denied  int64 `json:"denied"`
}

// Open opens (or creates) the audit log database at the given path.
func Open(databasePath string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(databasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on", databasePath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	l := &Log{conn: conn}
	if err := l.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return l, nil
}

// migrate creates the required schema.
func (l *Log) migrate() error {
	migrations := []string{
		createScanEventsTable,
		createScanEventsIndexes,
	}

	for i, migration := range migrations {
		if _, err := l.conn.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}

	return nil
}

const createScanEventsTable = `
CREATE TABLE IF NOT EXISTS scan_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    identifier TEXT NOT NULL, -- hex rendering of the scanned UID
    outcome TEXT NOT NULL CHECK (outcome IN ('enrolled', 'granted', 'denied')),
    timestamp DATETIME NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const createScanEventsIndexes = `
CREATE INDEX IF NOT EXISTS idx_scan_events_timestamp ON scan_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_scan_events_outcome ON scan_events(outcome);
`

// Append records a scan event.
func (l *Log) Append(event types.ScanEvent) error {
	query := `
		INSERT INTO scan_events (identifier, outcome, timestamp)
		VALUES (?, ?, ?)
	`

	if _, err := l.conn.Exec(query, event.Identifier, string(event.Outcome), event.Timestamp.UTC()); err != nil {
		return fmt.Errorf("failed to append scan event: %w", err)
	}
	return nil
}

// Recent returns the most recent scan events, newest first.
func (l *Log) Recent(limit int) ([]types.ScanEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT identifier, outcome, timestamp
		FROM scan_events
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := l.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan events: %w", err)
	}
	defer rows.Close()

	var events []types.ScanEvent
	for rows.Next() {
		var event types.ScanEvent
		var outcome string
		var ts time.Time
		if err := rows.Scan(&event.Identifier, &outcome, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		event.Outcome = types.Outcome(outcome)
		event.Timestamp = ts
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

// Count returns grant/deny counters across the whole log.
func (l *Log) Count() (Counters, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'granted' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'denied' THEN 1 ELSE 0 END), 0)
		FROM scan_events
	`

	var c Counters
	if err := l.conn.QueryRow(query).Scan(&c.Total, &c.Granted, &c.Denied); err != nil {
		return Counters{}, fmt.Errorf("failed to count scan events: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.conn.Close()
}
