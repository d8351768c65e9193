package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Pragmas to improve reliability
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set PRAGMA journal_mode=WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set PRAGMA foreign_keys=ON: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set PRAGMA busy_timeout=5000: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Fail fast if the DB cannot be reached
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

// The schedule model is one JSON document; the engine only ever loads and
// saves it whole.
const schemaScheduleStore = `
CREATE TABLE IF NOT EXISTS schedule_store (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    document TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaAdvanceHistory = `
CREATE TABLE IF NOT EXISTS advance_history (
    id TEXT PRIMARY KEY,
    group_name TEXT NOT NULL,
    activated_at TIMESTAMP NOT NULL,
    target_time TEXT NOT NULL,
    target_node TEXT NOT NULL,
    cancelled_at TIMESTAMP
);
`

const schemaScheduleEvents = `
CREATE TABLE IF NOT EXISTS schedule_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    group_name TEXT NOT NULL,
    entity_id TEXT,
    day_key TEXT NOT NULL,
    trigger_type TEXT NOT NULL,
    node TEXT NOT NULL,
    previous_node TEXT
);
`

const schemaPerformanceSessions = `
CREATE TABLE IF NOT EXISTS performance_sessions (
    id TEXT PRIMARY KEY,
    entity_id TEXT NOT NULL,
    group_name TEXT NOT NULL,
    profile TEXT NOT NULL,
    session_type TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP NOT NULL,
    start_temp REAL NOT NULL,
    end_temp REAL NOT NULL,
    target_temp REAL NOT NULL,
    rate_per_hour REAL NOT NULL,
    completed BOOLEAN NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// In case of panic, rollback to avoid leaving an open transaction
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaScheduleStore,
		schemaAdvanceHistory,
		schemaScheduleEvents,
		schemaPerformanceSessions,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
