package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tracklog/internal/sport"
)

const summaryColumns = `id, filename, begin_datetime, sport, total_calories,
	total_distance, total_duration, total_hr_dur, total_hr_dis, md5sum`

// UpsertSummary inserts or updates a summary keyed by filename. When the
// filename is already known the stored row keeps its original id so provider
// links stay valid, and the caller's Summary is updated to carry that id.
func (db *DB) UpsertSummary(s *Summary) error {
	_, err := db.execRetry(`
		INSERT INTO garmin_summary (
			id, filename, begin_datetime, sport, total_calories,
			total_distance, total_duration, total_hr_dur, total_hr_dis,
			md5sum, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(filename) DO UPDATE SET
			begin_datetime = excluded.begin_datetime,
			sport = excluded.sport,
			total_calories = excluded.total_calories,
			total_distance = excluded.total_distance,
			total_duration = excluded.total_duration,
			total_hr_dur = excluded.total_hr_dur,
			total_hr_dis = excluded.total_hr_dis,
			md5sum = excluded.md5sum,
			updated_at = CURRENT_TIMESTAMP
	`,
		s.ID, s.Filename, s.Begin.UTC().Format(time.RFC3339), string(s.Sport),
		s.TotalCalories, s.TotalDistance, s.TotalDuration, s.TotalHRDur,
		s.TotalHRDis, s.MD5Sum,
	)
	if err != nil {
		return err
	}

	// Read the id back: on conflict the existing one wins.
	var id string
	if err := db.QueryRow(`SELECT id FROM garmin_summary WHERE filename = ?`, s.Filename).Scan(&id); err != nil {
		return fmt.Errorf("reading back summary id: %w", err)
	}
	s.ID = id
	return nil
}

// GetSummary retrieves a summary by id
func (db *DB) GetSummary(id string) (*Summary, error) {
	row := db.QueryRow(`
		SELECT `+summaryColumns+`
		FROM garmin_summary
		WHERE id = ?
	`, id)
	return scanSummary(row)
}

// GetSummaryByFilename retrieves a summary by filename
func (db *DB) GetSummaryByFilename(filename string) (*Summary, error) {
	row := db.QueryRow(`
		SELECT `+summaryColumns+`
		FROM garmin_summary
		WHERE filename = ?
	`, filename)
	return scanSummary(row)
}

// SummaryFilter narrows ListSummaries. Zero values mean no constraint.
type SummaryFilter struct {
	Sport  sport.Sport
	After  time.Time
	Before time.Time
	Limit  int
	Offset int
}

// ListSummaries returns summaries ordered by begin time descending.
func (db *DB) ListSummaries(f SummaryFilter) ([]Summary, error) {
	query := `SELECT ` + summaryColumns + ` FROM garmin_summary`
	var conds []string
	var args []any
	if f.Sport != "" {
		conds = append(conds, "sport = ?")
		args = append(args, string(f.Sport))
	}
	if !f.After.IsZero() {
		conds = append(conds, "begin_datetime >= ?")
		args = append(args, f.After.UTC().Format(time.RFC3339))
	}
	if !f.Before.IsZero() {
		conds = append(conds, "begin_datetime < ?")
		args = append(args, f.Before.UTC().Format(time.RFC3339))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY begin_datetime DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// GetSummaryMD5 returns the stored content hash for a filename, or "" when
// the file has never been imported.
func (db *DB) GetSummaryMD5(filename string) (string, error) {
	var md5sum string
	err := db.QueryRow(`SELECT md5sum FROM garmin_summary WHERE filename = ?`, filename).Scan(&md5sum)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return md5sum, err
}

// CountSummaries returns the total number of summaries
func (db *DB) CountSummaries() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM garmin_summary").Scan(&count)
	return count, err
}

// DeleteSummary removes a summary and, through cascades, its track.
func (db *DB) DeleteSummary(id string) error {
	result, err := db.execRetry("DELETE FROM garmin_summary WHERE id = ?", id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSummaryNotFound
	}
	return nil
}

// scanSummary scans a single summary from a row
func scanSummary(row *sql.Row) (*Summary, error) {
	var s Summary
	var begin, sportName string

	err := row.Scan(
		&s.ID, &s.Filename, &begin, &sportName, &s.TotalCalories,
		&s.TotalDistance, &s.TotalDuration, &s.TotalHRDur, &s.TotalHRDis,
		&s.MD5Sum,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSummaryNotFound
	}
	if err != nil {
		return nil, err
	}

	s.Begin, err = time.Parse(time.RFC3339, begin)
	if err != nil {
		return nil, fmt.Errorf("parsing begin_datetime %q: %w", begin, err)
	}
	s.Sport = sport.Sport(sportName)
	return &s, nil
}

// scanSummaries scans multiple summaries from rows
func scanSummaries(rows *sql.Rows) ([]Summary, error) {
	var summaries []Summary

	for rows.Next() {
		var s Summary
		var begin, sportName string

		err := rows.Scan(
			&s.ID, &s.Filename, &begin, &sportName, &s.TotalCalories,
			&s.TotalDistance, &s.TotalDuration, &s.TotalHRDur, &s.TotalHRDis,
			&s.MD5Sum,
		)
		if err != nil {
			return nil, err
		}

		s.Begin, err = time.Parse(time.RFC3339, begin)
		if err != nil {
			return nil, fmt.Errorf("parsing begin_datetime %q: %w", begin, err)
		}
		s.Sport = sport.Sport(sportName)
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}
