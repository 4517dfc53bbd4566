package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSyncState retrieves a sync state value by key. Returns empty string if
// the key doesn't exist.
func (db *DB) GetSyncState(key string) (string, error) {
	var value string
	err := db.QueryRow(`
		SELECT value FROM sync_state WHERE key = ?
	`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSyncState sets a sync state value.
func (db *DB) SetSyncState(key, value string) error {
	_, err := db.execRetry(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// LastSync returns the recorded watermark for a provider, or the zero time
// when the provider has never synced.
func (db *DB) LastSync(provider string) (time.Time, error) {
	value, err := db.GetSyncState("last_sync_" + provider)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing last sync for %s: %w", provider, err)
	}
	return t, nil
}

// SetLastSync records the sync watermark for a provider.
func (db *DB) SetLastSync(provider string, t time.Time) error {
	return db.SetSyncState("last_sync_"+provider, t.UTC().Format(time.RFC3339))
}
