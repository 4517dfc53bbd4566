package store

import "time"

// Candidate lookups used by reconciliation. Each returns every summary id
// matching the normalized key, ordered by id so ambiguity reports are
// stable.

// FindSummaryIDsByBegin returns summaries whose begin time equals t exactly
// (second precision, UTC).
func (db *DB) FindSummaryIDsByBegin(t time.Time) ([]string, error) {
	return db.queryIDs(`
		SELECT id FROM garmin_summary
		WHERE begin_datetime = ?
		ORDER BY id
	`, t.UTC().Format(time.RFC3339))
}

// FindSummaryIDsByBeginMinute returns summaries whose begin time equals t at
// minute granularity. Fitbit truncates timestamps to the minute, so seconds
// are discarded on both sides of the comparison.
func (db *DB) FindSummaryIDsByBeginMinute(t time.Time) ([]string, error) {
	return db.queryIDs(`
		SELECT id FROM garmin_summary
		WHERE strftime('%Y-%m-%d %H:%M', begin_datetime) = ?
		ORDER BY id
	`, t.UTC().Format("2006-01-02 15:04"))
}

// FindSummaryIDsByFilename returns summaries for an exact filename. The
// filename column is unique so at most one id comes back.
func (db *DB) FindSummaryIDsByFilename(filename string) ([]string, error) {
	return db.queryIDs(`
		SELECT id FROM garmin_summary
		WHERE filename = ?
	`, filename)
}

func (db *DB) queryIDs(query string, args ...any) ([]string, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
