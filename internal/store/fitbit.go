package store

import (
	"fmt"
	"time"
)

const fitbitColumns = `log_id, log_type, start_time, tcx_link, activity_type_id,
	activity_name, duration, distance, distance_unit, steps, summary_id`

// UpsertFitbitActivity inserts or updates a Fitbit log entry by its log id.
// An already-established summary link survives the update.
func (db *DB) UpsertFitbitActivity(a *FitbitActivity) error {
	_, err := db.execRetry(`
		INSERT INTO fitbit_activities (
			log_id, log_type, start_time, tcx_link, activity_type_id,
			activity_name, duration, distance, distance_unit, steps,
			summary_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(log_id) DO UPDATE SET
			log_type = excluded.log_type,
			start_time = excluded.start_time,
			tcx_link = excluded.tcx_link,
			activity_type_id = excluded.activity_type_id,
			activity_name = excluded.activity_name,
			duration = excluded.duration,
			distance = excluded.distance,
			distance_unit = excluded.distance_unit,
			steps = excluded.steps,
			summary_id = COALESCE(fitbit_activities.summary_id, excluded.summary_id),
			updated_at = CURRENT_TIMESTAMP
	`,
		a.LogID, a.LogType, a.StartTime.UTC().Format(time.RFC3339), a.TcxLink,
		a.ActivityTypeID, a.ActivityName, a.Duration, a.Distance,
		a.DistanceUnit, a.Steps, a.SummaryID,
	)
	if err != nil {
		return fmt.Errorf("upserting fitbit activity %d: %w", a.LogID, err)
	}
	return nil
}

// ListUnlinkedFitbitActivities returns entries with no summary link, oldest
// first.
func (db *DB) ListUnlinkedFitbitActivities() ([]FitbitActivity, error) {
	return db.queryFitbit(`
		SELECT ` + fitbitColumns + `
		FROM fitbit_activities
		WHERE summary_id IS NULL
		ORDER BY start_time ASC
	`)
}

// ListFitbitActivities returns all Fitbit entries ordered by start time.
func (db *DB) ListFitbitActivities() ([]FitbitActivity, error) {
	return db.queryFitbit(`
		SELECT ` + fitbitColumns + `
		FROM fitbit_activities
		ORDER BY start_time ASC
	`)
}

// GetFitbitActivityForSummary returns the Fitbit entry linked to a summary,
// or nil when none is linked.
func (db *DB) GetFitbitActivityForSummary(summaryID string) (*FitbitActivity, error) {
	acts, err := db.queryFitbit(`
		SELECT `+fitbitColumns+`
		FROM fitbit_activities
		WHERE summary_id = ?
		LIMIT 1
	`, summaryID)
	if err != nil || len(acts) == 0 {
		return nil, err
	}
	return &acts[0], nil
}

// LinkFitbitActivity sets the summary link on a Fitbit entry only when none
// is present. Reports whether the link was established.
func (db *DB) LinkFitbitActivity(logID int64, summaryID string) (bool, error) {
	res, err := db.execRetry(`
		UPDATE fitbit_activities
		SET summary_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE log_id = ? AND summary_id IS NULL
	`, summaryID, logID)
	if err != nil {
		return false, fmt.Errorf("linking fitbit activity %d: %w", logID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (db *DB) queryFitbit(query string, args ...any) ([]FitbitActivity, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var acts []FitbitActivity
	for rows.Next() {
		var a FitbitActivity
		var start string
		err := rows.Scan(
			&a.LogID, &a.LogType, &start, &a.TcxLink, &a.ActivityTypeID,
			&a.ActivityName, &a.Duration, &a.Distance, &a.DistanceUnit,
			&a.Steps, &a.SummaryID,
		)
		if err != nil {
			return nil, err
		}
		a.StartTime, err = time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, fmt.Errorf("parsing start_time %q: %w", start, err)
		}
		acts = append(acts, a)
	}
	return acts, rows.Err()
}
