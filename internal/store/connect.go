package store

import (
	"fmt"
	"time"
)

const connectColumns = `activity_id, activity_name, description, start_time_gmt,
	distance, duration, elapsed_duration, moving_duration, steps, calories,
	average_hr, max_hr, summary_id`

// UpsertConnectActivity inserts or updates a Garmin Connect row by its
// activity id. An already-established summary link survives the update.
func (db *DB) UpsertConnectActivity(a *ConnectActivity) error {
	_, err := db.execRetry(`
		INSERT INTO garmin_connect_activities (
			activity_id, activity_name, description, start_time_gmt,
			distance, duration, elapsed_duration, moving_duration, steps,
			calories, average_hr, max_hr, summary_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			activity_name = excluded.activity_name,
			description = excluded.description,
			start_time_gmt = excluded.start_time_gmt,
			distance = excluded.distance,
			duration = excluded.duration,
			elapsed_duration = excluded.elapsed_duration,
			moving_duration = excluded.moving_duration,
			steps = excluded.steps,
			calories = excluded.calories,
			average_hr = excluded.average_hr,
			max_hr = excluded.max_hr,
			summary_id = COALESCE(garmin_connect_activities.summary_id, excluded.summary_id),
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ActivityID, a.ActivityName, a.Description,
		a.StartTimeGMT.UTC().Format(time.RFC3339), a.Distance, a.Duration,
		a.ElapsedDuration, a.MovingDuration, a.Steps, a.Calories,
		a.AverageHR, a.MaxHR, a.SummaryID,
	)
	if err != nil {
		return fmt.Errorf("upserting connect activity %d: %w", a.ActivityID, err)
	}
	return nil
}

// ListUnlinkedConnectActivities returns rows with no summary link, oldest
// first.
func (db *DB) ListUnlinkedConnectActivities() ([]ConnectActivity, error) {
	return db.queryConnect(`
		SELECT ` + connectColumns + `
		FROM garmin_connect_activities
		WHERE summary_id IS NULL
		ORDER BY start_time_gmt ASC
	`)
}

// ListConnectActivities returns all Garmin Connect rows ordered by start
// time.
func (db *DB) ListConnectActivities() ([]ConnectActivity, error) {
	return db.queryConnect(`
		SELECT ` + connectColumns + `
		FROM garmin_connect_activities
		ORDER BY start_time_gmt ASC
	`)
}

// GetConnectActivityForSummary returns the Connect row linked to a summary,
// or nil when none is linked.
func (db *DB) GetConnectActivityForSummary(summaryID string) (*ConnectActivity, error) {
	acts, err := db.queryConnect(`
		SELECT `+connectColumns+`
		FROM garmin_connect_activities
		WHERE summary_id = ?
		LIMIT 1
	`, summaryID)
	if err != nil || len(acts) == 0 {
		return nil, err
	}
	return &acts[0], nil
}

// LinkConnectActivity sets the summary link on a Connect row only when none
// is present. Reports whether the link was established.
func (db *DB) LinkConnectActivity(activityID int64, summaryID string) (bool, error) {
	res, err := db.execRetry(`
		UPDATE garmin_connect_activities
		SET summary_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE activity_id = ? AND summary_id IS NULL
	`, summaryID, activityID)
	if err != nil {
		return false, fmt.Errorf("linking connect activity %d: %w", activityID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (db *DB) queryConnect(query string, args ...any) ([]ConnectActivity, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var acts []ConnectActivity
	for rows.Next() {
		var a ConnectActivity
		var start string
		err := rows.Scan(
			&a.ActivityID, &a.ActivityName, &a.Description, &start,
			&a.Distance, &a.Duration, &a.ElapsedDuration, &a.MovingDuration,
			&a.Steps, &a.Calories, &a.AverageHR, &a.MaxHR, &a.SummaryID,
		)
		if err != nil {
			return nil, err
		}
		a.StartTimeGMT, err = time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, fmt.Errorf("parsing start_time_gmt %q: %w", start, err)
		}
		acts = append(acts, a)
	}
	return acts, rows.Err()
}
