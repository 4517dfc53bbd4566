package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveTrack saves the GPS track for a summary, replacing any existing
// points for that summary.
func (db *DB) SaveTrack(summaryID string, points []GPSPoint) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM gps_points WHERE summary_id = ?", summaryID); err != nil {
		return fmt.Errorf("deleting existing track: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO gps_points (
			summary_id, point_index, time, latitude, longitude, altitude,
			distance, heart_rate, duration_from_last, duration_from_begin, speed_mps
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		_, err := stmt.Exec(
			summaryID, i, p.Time.UTC().Format(time.RFC3339),
			p.Latitude, p.Longitude, p.Altitude, p.Distance, p.HeartRate,
			p.DurationFromLast, p.DurationFromBegin, p.SpeedMPS,
		)
		if err != nil {
			return fmt.Errorf("inserting point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// GetTrack retrieves all trackpoints for a summary ordered by index.
func (db *DB) GetTrack(summaryID string) ([]GPSPoint, error) {
	rows, err := db.Query(`
		SELECT summary_id, point_index, time, latitude, longitude, altitude,
			distance, heart_rate, duration_from_last, duration_from_begin, speed_mps
		FROM gps_points
		WHERE summary_id = ?
		ORDER BY point_index
	`, summaryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []GPSPoint
	for rows.Next() {
		var p GPSPoint
		var ts string
		err := rows.Scan(
			&p.SummaryID, &p.PointIndex, &ts, &p.Latitude, &p.Longitude,
			&p.Altitude, &p.Distance, &p.HeartRate,
			&p.DurationFromLast, &p.DurationFromBegin, &p.SpeedMPS,
		)
		if err != nil {
			return nil, err
		}
		p.Time, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing point time %q: %w", ts, err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

// GetTrackCount returns the number of trackpoints stored for a summary.
func (db *DB) GetTrackCount(summaryID string) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM gps_points WHERE summary_id = ?", summaryID).Scan(&count)
	return count, err
}

// HasTrack checks if a summary has any trackpoints stored.
func (db *DB) HasTrack(summaryID string) (bool, error) {
	var exists int
	err := db.QueryRow(`
		SELECT 1 FROM gps_points WHERE summary_id = ? LIMIT 1
	`, summaryID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteTrack removes all trackpoints for a summary.
func (db *DB) DeleteTrack(summaryID string) error {
	_, err := db.execRetry("DELETE FROM gps_points WHERE summary_id = ?", summaryID)
	return err
}
