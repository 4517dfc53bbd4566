package store

import (
	"fmt"
	"time"
)

// TotalsRow is one aggregate row of a grouped report.
type TotalsRow struct {
	Group         string  `json:"group"` // day, month, year, or sport value
	Count         int     `json:"count"`
	TotalDistance float64 `json:"total_distance"` // meters
	TotalDuration float64 `json:"total_duration"` // seconds
	TotalCalories int     `json:"total_calories"`
	TotalHRDur    float64 `json:"total_hr_dur"`
	TotalHRDis    float64 `json:"total_hr_dis"`
}

// AvgHR returns the group's duration-weighted average heart rate.
func (r *TotalsRow) AvgHR() float64 {
	if r.TotalHRDur <= 0 || r.TotalHRDis <= 0 {
		return 0
	}
	return r.TotalHRDur / r.TotalHRDis
}

// Grouping keys accepted by GroupedTotals.
const (
	GroupByDay   = "day"
	GroupByMonth = "month"
	GroupByYear  = "year"
	GroupBySport = "sport"
)

var groupExprs = map[string]string{
	GroupByDay:   `strftime('%Y-%m-%d', begin_datetime)`,
	GroupByMonth: `strftime('%Y-%m', begin_datetime)`,
	GroupByYear:  `strftime('%Y', begin_datetime)`,
	GroupBySport: `sport`,
}

// GroupedTotals aggregates summaries by day, month, year, or sport.
func (db *DB) GroupedTotals(groupBy string, f SummaryFilter) ([]TotalsRow, error) {
	expr, ok := groupExprs[groupBy]
	if !ok {
		return nil, fmt.Errorf("unknown grouping %q", groupBy)
	}

	query := `
		SELECT ` + expr + ` AS grp,
			COUNT(*),
			SUM(total_distance),
			SUM(total_duration),
			SUM(total_calories),
			SUM(total_hr_dur),
			SUM(total_hr_dis)
		FROM garmin_summary`
	var args []any
	var conds []string
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
	query += " GROUP BY grp ORDER BY grp"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []TotalsRow
	for rows.Next() {
		var r TotalsRow
		err := rows.Scan(&r.Group, &r.Count, &r.TotalDistance,
			&r.TotalDuration, &r.TotalCalories, &r.TotalHRDur, &r.TotalHRDis)
		if err != nil {
			return nil, err
		}
		totals = append(totals, r)
	}
	return totals, rows.Err()
}
