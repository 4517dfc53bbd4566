package store

import (
	"fmt"
	"time"
)

// raceDateLayout is the date-only form race dates are stored in.
const raceDateLayout = "2006-01-02"

const raceColumns = `id, race_type, race_date, race_name, race_distance,
	race_time, race_flag, race_filename, summary_id`

// UpsertRaceResult inserts or updates a race result by id. An existing
// summary link survives the update.
func (db *DB) UpsertRaceResult(r *RaceResult) error {
	var date *string
	if r.RaceDate != nil {
		d := r.RaceDate.Format(raceDateLayout)
		date = &d
	}
	_, err := db.execRetry(`
		INSERT INTO race_results (
			id, race_type, race_date, race_name, race_distance, race_time,
			race_flag, race_filename, summary_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			race_type = excluded.race_type,
			race_date = excluded.race_date,
			race_name = excluded.race_name,
			race_distance = excluded.race_distance,
			race_time = excluded.race_time,
			race_flag = excluded.race_flag,
			race_filename = excluded.race_filename,
			summary_id = COALESCE(race_results.summary_id, excluded.summary_id),
			updated_at = CURRENT_TIMESTAMP
	`,
		r.ID, r.RaceType, date, r.RaceName, r.RaceDistance, r.RaceTime,
		r.RaceFlag, r.RaceFilename, r.SummaryID,
	)
	if err != nil {
		return fmt.Errorf("upserting race result %s: %w", r.ID, err)
	}
	return nil
}

// ListRaceResults returns race results of the given type (all types when
// empty), ordered by distance then date.
func (db *DB) ListRaceResults(raceType string) ([]RaceResult, error) {
	query := `SELECT ` + raceColumns + ` FROM race_results`
	var args []any
	if raceType != "" {
		query += ` WHERE race_type = ?`
		args = append(args, raceType)
	}
	query += ` ORDER BY race_distance, race_date`
	return db.queryRaces(query, args...)
}

// ListUnlinkedRaceResults returns personal races carrying a filename but no
// summary link, in filename order.
func (db *DB) ListUnlinkedRaceResults() ([]RaceResult, error) {
	return db.queryRaces(`
		SELECT ` + raceColumns + `
		FROM race_results
		WHERE summary_id IS NULL AND race_filename IS NOT NULL
		ORDER BY race_filename ASC
	`)
}

// LinkRaceResult sets the summary link on a race result only when none is
// present. Reports whether the link was established.
func (db *DB) LinkRaceResult(id, summaryID string) (bool, error) {
	res, err := db.execRetry(`
		UPDATE race_results
		SET summary_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND summary_id IS NULL
	`, summaryID, id)
	if err != nil {
		return false, fmt.Errorf("linking race result %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteRaceResult removes a race result by id.
func (db *DB) DeleteRaceResult(id string) error {
	res, err := db.execRetry(`DELETE FROM race_results WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRaceNotFound
	}
	return nil
}

func (db *DB) queryRaces(query string, args ...any) ([]RaceResult, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var races []RaceResult
	for rows.Next() {
		var r RaceResult
		var date *string
		err := rows.Scan(
			&r.ID, &r.RaceType, &date, &r.RaceName, &r.RaceDistance,
			&r.RaceTime, &r.RaceFlag, &r.RaceFilename, &r.SummaryID,
		)
		if err != nil {
			return nil, err
		}
		if date != nil {
			d, err := time.Parse(raceDateLayout, *date)
			if err != nil {
				return nil, fmt.Errorf("parsing race_date %q: %w", *date, err)
			}
			r.RaceDate = &d
		}
		races = append(races, r)
	}
	return races, rows.Err()
}
