package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertCorrection inserts or updates a correction keyed by start time and
// lap number.
func (db *DB) UpsertCorrection(c *Correction) error {
	_, err := db.execRetry(`
		INSERT INTO garmin_corrections_laps (
			start_time, lap_number, sport, distance, duration, updated_at
		) VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(start_time, lap_number) DO UPDATE SET
			sport = excluded.sport,
			distance = excluded.distance,
			duration = excluded.duration,
			updated_at = CURRENT_TIMESTAMP
	`, c.StartTime.UTC().Format(time.RFC3339), c.LapNumber, c.Sport, c.Distance, c.Duration)
	return err
}

// UpsertCorrections stores a batch of corrections in one transaction.
func (db *DB) UpsertCorrections(corrs []Correction) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO garmin_corrections_laps (
			start_time, lap_number, sport, distance, duration, updated_at
		) VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(start_time, lap_number) DO UPDATE SET
			sport = excluded.sport,
			distance = excluded.distance,
			duration = excluded.duration,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range corrs {
		if _, err := stmt.Exec(c.StartTime.UTC().Format(time.RFC3339), c.LapNumber, c.Sport, c.Distance, c.Duration); err != nil {
			return fmt.Errorf("upserting correction %s lap %d: %w", c.StartTime.Format(time.RFC3339), c.LapNumber, err)
		}
	}

	return tx.Commit()
}

// GetCorrection retrieves a correction by its key.
func (db *DB) GetCorrection(startTime time.Time, lapNumber int) (*Correction, error) {
	row := db.QueryRow(`
		SELECT start_time, lap_number, sport, distance, duration
		FROM garmin_corrections_laps
		WHERE start_time = ? AND lap_number = ?
	`, startTime.UTC().Format(time.RFC3339), lapNumber)

	var c Correction
	var ts string
	err := row.Scan(&ts, &c.LapNumber, &c.Sport, &c.Distance, &c.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCorrectionNotFound
	}
	if err != nil {
		return nil, err
	}
	c.StartTime, err = time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil, fmt.Errorf("parsing start_time %q: %w", ts, err)
	}
	return &c, nil
}

// ListCorrections returns all corrections ordered by start time and lap.
func (db *DB) ListCorrections() ([]Correction, error) {
	rows, err := db.Query(`
		SELECT start_time, lap_number, sport, distance, duration
		FROM garmin_corrections_laps
		ORDER BY start_time, lap_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var corrs []Correction
	for rows.Next() {
		var c Correction
		var ts string
		if err := rows.Scan(&ts, &c.LapNumber, &c.Sport, &c.Distance, &c.Duration); err != nil {
			return nil, err
		}
		c.StartTime, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing start_time %q: %w", ts, err)
		}
		corrs = append(corrs, c)
	}

	return corrs, rows.Err()
}

// DeleteCorrection removes a correction by its key.
func (db *DB) DeleteCorrection(startTime time.Time, lapNumber int) error {
	result, err := db.execRetry(`
		DELETE FROM garmin_corrections_laps
		WHERE start_time = ? AND lap_number = ?
	`, startTime.UTC().Format(time.RFC3339), lapNumber)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCorrectionNotFound
	}
	return nil
}
