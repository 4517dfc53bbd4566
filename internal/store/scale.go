package store

import (
	"fmt"
	"time"
)

// UpsertScaleMeasurement inserts or updates a measurement. The datetime is
// the natural key; re-importing the same reading keeps the original id.
func (db *DB) UpsertScaleMeasurement(m *ScaleMeasurement) error {
	_, err := db.execRetry(`
		INSERT INTO scale_measurements (
			id, datetime, mass, fat_pct, water_pct, muscle_pct, bone_pct
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(datetime) DO UPDATE SET
			mass = excluded.mass,
			fat_pct = excluded.fat_pct,
			water_pct = excluded.water_pct,
			muscle_pct = excluded.muscle_pct,
			bone_pct = excluded.bone_pct
	`,
		m.ID, m.Datetime.UTC().Format(time.RFC3339), m.Mass, m.FatPct,
		m.WaterPct, m.MusclePct, m.BonePct,
	)
	if err != nil {
		return fmt.Errorf("upserting scale measurement at %s: %w",
			m.Datetime.Format(time.RFC3339), err)
	}
	return nil
}

// ListScaleMeasurements returns all measurements ordered by time.
func (db *DB) ListScaleMeasurements() ([]ScaleMeasurement, error) {
	rows, err := db.Query(`
		SELECT id, datetime, mass, fat_pct, water_pct, muscle_pct, bone_pct
		FROM scale_measurements
		ORDER BY datetime ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ms []ScaleMeasurement
	for rows.Next() {
		var m ScaleMeasurement
		var ts string
		err := rows.Scan(&m.ID, &ts, &m.Mass, &m.FatPct, &m.WaterPct,
			&m.MusclePct, &m.BonePct)
		if err != nil {
			return nil, err
		}
		m.Datetime, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing datetime %q: %w", ts, err)
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}
