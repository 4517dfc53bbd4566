package store

import (
	"fmt"
	"time"

	"tracklog/internal/sport"
)

const stravaColumns = `id, name, start_date, distance, moving_time, elapsed_time,
	total_elevation_gain, elev_high, elev_low, sport, timezone, summary_id`

// UpsertStravaActivity inserts or updates a Strava row by its provider id.
// An already-established summary link survives the update.
func (db *DB) UpsertStravaActivity(a *StravaActivity) error {
	_, err := db.execRetry(`
		INSERT INTO strava_activities (
			id, name, start_date, distance, moving_time, elapsed_time,
			total_elevation_gain, elev_high, elev_low, sport, timezone,
			summary_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			distance = excluded.distance,
			moving_time = excluded.moving_time,
			elapsed_time = excluded.elapsed_time,
			total_elevation_gain = excluded.total_elevation_gain,
			elev_high = excluded.elev_high,
			elev_low = excluded.elev_low,
			sport = excluded.sport,
			timezone = excluded.timezone,
			summary_id = COALESCE(strava_activities.summary_id, excluded.summary_id),
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, a.Name, a.StartDate.UTC().Format(time.RFC3339), a.Distance,
		a.MovingTime, a.ElapsedTime, a.TotalElevationGain, a.ElevHigh,
		a.ElevLow, string(a.Sport), a.Timezone, a.SummaryID,
	)
	if err != nil {
		return fmt.Errorf("upserting strava activity %d: %w", a.ID, err)
	}
	return nil
}

// ListUnlinkedStravaActivities returns rows with no summary link, oldest
// first so reconciliation runs in a stable order.
func (db *DB) ListUnlinkedStravaActivities() ([]StravaActivity, error) {
	rows, err := db.Query(`
		SELECT ` + stravaColumns + `
		FROM strava_activities
		WHERE summary_id IS NULL
		ORDER BY start_date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var acts []StravaActivity
	for rows.Next() {
		a, err := scanStravaActivity(rows)
		if err != nil {
			return nil, err
		}
		acts = append(acts, *a)
	}
	return acts, rows.Err()
}

// ListStravaActivities returns all Strava rows ordered by start date.
func (db *DB) ListStravaActivities() ([]StravaActivity, error) {
	rows, err := db.Query(`
		SELECT ` + stravaColumns + `
		FROM strava_activities
		ORDER BY start_date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var acts []StravaActivity
	for rows.Next() {
		a, err := scanStravaActivity(rows)
		if err != nil {
			return nil, err
		}
		acts = append(acts, *a)
	}
	return acts, rows.Err()
}

// GetStravaActivityForSummary returns the Strava row linked to a summary, or
// nil when none is linked.
func (db *DB) GetStravaActivityForSummary(summaryID string) (*StravaActivity, error) {
	rows, err := db.Query(`
		SELECT `+stravaColumns+`
		FROM strava_activities
		WHERE summary_id = ?
		LIMIT 1
	`, summaryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanStravaActivity(rows)
}

// LinkStravaActivity sets the summary link on a Strava row only when none is
// present. Reports whether the link was established, so concurrent passes
// cannot overwrite each other.
func (db *DB) LinkStravaActivity(id int64, summaryID string) (bool, error) {
	res, err := db.execRetry(`
		UPDATE strava_activities
		SET summary_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND summary_id IS NULL
	`, summaryID, id)
	if err != nil {
		return false, fmt.Errorf("linking strava activity %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStravaActivity(row rowScanner) (*StravaActivity, error) {
	var a StravaActivity
	var start, sportName string
	err := row.Scan(
		&a.ID, &a.Name, &start, &a.Distance, &a.MovingTime, &a.ElapsedTime,
		&a.TotalElevationGain, &a.ElevHigh, &a.ElevLow, &sportName,
		&a.Timezone, &a.SummaryID,
	)
	if err != nil {
		return nil, err
	}
	a.StartDate, err = time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, fmt.Errorf("parsing start_date %q: %w", start, err)
	}
	a.Sport = sport.Sport(sportName)
	return &a, nil
}
