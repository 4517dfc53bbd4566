package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrSummaryNotFound is returned when an activity summary doesn't exist
var ErrSummaryNotFound = errors.New("summary not found")

// ErrCorrectionNotFound is returned when a correction doesn't exist
var ErrCorrectionNotFound = errors.New("correction not found")

// ErrRaceNotFound is returned when a race result doesn't exist
var ErrRaceNotFound = errors.New("race result not found")

// ErrMeasurementNotFound is returned when a scale measurement doesn't exist
var ErrMeasurementNotFound = errors.New("scale measurement not found")

// ErrNoToken is returned when no provider token is stored
var ErrNoToken = errors.New("no token stored")

// DB wraps the SQLite connection and provides the data access layer.
type DB struct {
	*sql.DB
}

// Open opens the SQLite database at path, creating it and its parent
// directory if necessary, and runs migrations.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &DB{db}, nil
}

// isBusy reports whether err is a transient SQLite lock failure worth one
// retry. The driver doesn't expose typed errors for these.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// execRetry runs a write statement and retries it exactly once if the first
// attempt hit a transient lock.
func (db *DB) execRetry(query string, args ...any) (sql.Result, error) {
	res, err := db.Exec(query, args...)
	if isBusy(err) {
		res, err = db.Exec(query, args...)
	}
	return res, err
}
