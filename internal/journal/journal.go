// Package journal persists reap and build events to a local SQLite
// database. The journal is strictly observational: every write is
// best-effort and callers never let a journal failure affect control flow.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Journal wraps the SQLite connection and provides event logging methods.
type Journal struct {
	conn *sql.DB
	path string
}

// Open opens or creates the journal database at the specified path.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// WAL mode so the watch and run processes can journal concurrently
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	j := &Journal{conn: conn, path: path}
	if err := j.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return j, nil
}

// Close checkpoints the WAL and closes the connection.
func (j *Journal) Close() error {
	if j.conn != nil {
		j.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return j.conn.Close()
	}
	return nil
}

func (j *Journal) initSchema() error {
	schema := `
	-- Port reap events from the watch process
	CREATE TABLE IF NOT EXISTS reap_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		port INTEGER NOT NULL,
		pid INTEGER NOT NULL,
		details TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Build outcomes from the run loop
	CREATE TABLE IF NOT EXISTS build_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		outcome TEXT NOT NULL,
		error_count INTEGER NOT NULL,
		details TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reap_events_timestamp ON reap_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_build_events_timestamp ON build_events(timestamp);
	`

	_, err := j.conn.Exec(schema)
	return err
}

// ReapEvent is a recorded port reap.
type ReapEvent struct {
	ID        int64
	Port      int
	Pid       int
	Details   string
	Timestamp time.Time
}

// BuildEvent is a recorded build outcome.
type BuildEvent struct {
	ID         int64
	Outcome    string
	ErrorCount int
	Details    string
	Timestamp  time.Time
}

// LogReap records a port reap event.
func (j *Journal) LogReap(port, pid int, details string) error {
	return j.execRetry(
		`INSERT INTO reap_events (port, pid, details, timestamp) VALUES (?, ?, ?, ?)`,
		port, pid, details, time.Now(),
	)
}

// LogBuild records a build outcome.
func (j *Journal) LogBuild(outcome string, errorCount int, details string) error {
	return j.execRetry(
		`INSERT INTO build_events (outcome, error_count, details, timestamp) VALUES (?, ?, ?, ?)`,
		outcome, errorCount, details, time.Now(),
	)
}

// execRetry retries briefly when the database is locked by the sibling
// process. Best-effort; we never want to stall the supervisory loops.
func (j *Journal) execRetry(query string, args ...any) error {
	const maxRetries = 3
	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = j.conn.Exec(query, args...)
		if err == nil {
			return nil
		}
		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "SQLITE_BUSY") {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		return err
	}
	return fmt.Errorf("journal write failed after %d retries: %w", maxRetries, err)
}

// RecentReaps retrieves the most recent reap events, newest first.
func (j *Journal) RecentReaps(limit int) ([]ReapEvent, error) {
	rows, err := j.conn.Query(
		`SELECT id, port, pid, details, timestamp
		 FROM reap_events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ReapEvent
	for rows.Next() {
		var e ReapEvent
		if err := rows.Scan(&e.ID, &e.Port, &e.Pid, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecentBuilds retrieves the most recent build events, newest first.
func (j *Journal) RecentBuilds(limit int) ([]BuildEvent, error) {
	rows, err := j.conn.Query(
		`SELECT id, outcome, error_count, details, timestamp
		 FROM build_events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []BuildEvent
	for rows.Next() {
		var e BuildEvent
		if err := rows.Scan(&e.ID, &e.Outcome, &e.ErrorCount, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
