package service

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tracklog/internal/fitbit"
	"tracklog/internal/store"
)

// Table names accepted by Import and Export.
const (
	TableStrava  = "strava"
	TableFitbit  = "fitbit"
	TableConnect = "connect"
	TableRaces   = "races"
	TableScale   = "scale"
)

// Tables lists the importable/exportable table names.
func Tables() []string {
	return []string{TableStrava, TableFitbit, TableConnect, TableRaces, TableScale}
}

// Export renders a table's rows as indented JSON.
func (s *ProcessService) Export(table string) ([]byte, error) {
	var rows any
	var err error
	switch table {
	case TableStrava:
		rows, err = s.db.ListStravaActivities()
	case TableFitbit:
		rows, err = s.db.ListFitbitActivities()
	case TableConnect:
		rows, err = s.db.ListConnectActivities()
	case TableRaces:
		rows, err = s.db.ListRaceResults("")
	case TableScale:
		rows, err = s.db.ListScaleMeasurements()
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", table, err)
	}
	return json.MarshalIndent(rows, "", "  ")
}

// Import upserts rows from a JSON document (an array of the table's row
// shape). Scale data additionally accepts the compact text form, one
// measurement per line. Row ids missing from race and scale input are
// assigned fresh.
func (s *ProcessService) Import(table string, data []byte) (int, error) {
	switch table {
	case TableStrava:
		var rows []store.StravaActivity
		if err := json.Unmarshal(data, &rows); err != nil {
			return 0, fmt.Errorf("decoding strava rows: %w", err)
		}
		for i := range rows {
			if err := s.db.UpsertStravaActivity(&rows[i]); err != nil {
				return i, err
			}
		}
		return len(rows), nil

	case TableFitbit:
		var rows []store.FitbitActivity
		if err := json.Unmarshal(data, &rows); err != nil {
			return 0, fmt.Errorf("decoding fitbit rows: %w", err)
		}
		for i := range rows {
			if err := s.db.UpsertFitbitActivity(&rows[i]); err != nil {
				return i, err
			}
		}
		return len(rows), nil

	case TableConnect:
		var rows []store.ConnectActivity
		if err := json.Unmarshal(data, &rows); err != nil {
			return 0, fmt.Errorf("decoding connect rows: %w", err)
		}
		for i := range rows {
			if err := s.db.UpsertConnectActivity(&rows[i]); err != nil {
				return i, err
			}
		}
		return len(rows), nil

	case TableRaces:
		var rows []store.RaceResult
		if err := json.Unmarshal(data, &rows); err != nil {
			return 0, fmt.Errorf("decoding race rows: %w", err)
		}
		for i := range rows {
			if rows[i].ID == "" {
				rows[i].ID = uuid.NewString()
			}
			if rows[i].RaceType == "" {
				rows[i].RaceType = store.RaceTypePersonal
			}
			if err := s.db.UpsertRaceResult(&rows[i]); err != nil {
				return i, err
			}
		}
		return len(rows), nil

	case TableScale:
		if looksLikeScaleText(data) {
			return s.importScaleText(data)
		}
		var rows []store.ScaleMeasurement
		if err := json.Unmarshal(data, &rows); err != nil {
			return 0, fmt.Errorf("decoding scale rows: %w", err)
		}
		for i := range rows {
			if rows[i].ID == "" {
				rows[i].ID = uuid.NewString()
			}
			if err := s.db.UpsertScaleMeasurement(&rows[i]); err != nil {
				return i, err
			}
		}
		return len(rows), nil

	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
}

// looksLikeScaleText distinguishes the compact text form from JSON.
func looksLikeScaleText(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] != '[' && trimmed[0] != '{'
}

// importScaleText parses one measurement per line. Lines carry no timestamp
// of their own, so successive lines are stamped one second apart to keep the
// datetime key unique.
func (s *ProcessService) importScaleText(data []byte) (int, error) {
	now := time.Now().UTC()
	count := 0

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m, err := fitbit.ParseScaleLine(line, now.Add(time.Duration(count)*time.Second))
		if err != nil {
			return count, fmt.Errorf("line %q: %w", line, err)
		}
		if err := s.db.UpsertScaleMeasurement(m); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, err
	}
	return count, nil
}
