package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Activity summaries, one row per imported file
		`CREATE TABLE IF NOT EXISTS garmin_summary (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL UNIQUE,
			begin_datetime TEXT NOT NULL,
			sport TEXT NOT NULL,
			total_calories INTEGER NOT NULL DEFAULT 0,
			total_distance REAL NOT NULL DEFAULT 0,
			total_duration REAL NOT NULL DEFAULT 0,
			total_hr_dur REAL NOT NULL DEFAULT 0,
			total_hr_dis REAL NOT NULL DEFAULT 0,
			md5sum TEXT NOT NULL DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_garmin_summary_begin ON garmin_summary(begin_datetime)`,
		`CREATE INDEX IF NOT EXISTS idx_garmin_summary_sport ON garmin_summary(sport)`,

		// GPS trackpoints, one row per point
		`CREATE TABLE IF NOT EXISTS gps_points (
			summary_id TEXT NOT NULL,
			point_index INTEGER NOT NULL,
			time TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			altitude REAL,
			distance REAL,
			heart_rate REAL,
			duration_from_last REAL NOT NULL DEFAULT 0,
			duration_from_begin REAL NOT NULL DEFAULT 0,
			speed_mps REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (summary_id, point_index),
			FOREIGN KEY (summary_id) REFERENCES garmin_summary(id) ON DELETE CASCADE
		)`,

		// Manual lap corrections keyed by activity start time and lap number
		`CREATE TABLE IF NOT EXISTS garmin_corrections_laps (
			start_time TEXT NOT NULL,
			lap_number INTEGER NOT NULL,
			sport TEXT,
			distance REAL,
			duration REAL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (start_time, lap_number)
		)`,

		// Strava activities (summary data from /athlete/activities)
		`CREATE TABLE IF NOT EXISTS strava_activities (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			start_date TEXT NOT NULL,
			distance REAL,
			moving_time INTEGER,
			elapsed_time INTEGER NOT NULL,
			total_elevation_gain REAL,
			elev_high REAL,
			elev_low REAL,
			sport TEXT NOT NULL,
			timezone TEXT,
			summary_id TEXT REFERENCES garmin_summary(id) ON DELETE SET NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_strava_start_date ON strava_activities(start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_strava_summary ON strava_activities(summary_id)`,

		// Fitbit activity log entries
		`CREATE TABLE IF NOT EXISTS fitbit_activities (
			log_id INTEGER PRIMARY KEY,
			log_type TEXT NOT NULL,
			start_time TEXT NOT NULL,
			tcx_link TEXT,
			activity_type_id INTEGER,
			activity_name TEXT,
			duration INTEGER NOT NULL,
			distance REAL,
			distance_unit TEXT,
			steps INTEGER,
			summary_id TEXT REFERENCES garmin_summary(id) ON DELETE SET NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_fitbit_start_time ON fitbit_activities(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_fitbit_summary ON fitbit_activities(summary_id)`,

		// Garmin Connect activities
		`CREATE TABLE IF NOT EXISTS garmin_connect_activities (
			activity_id INTEGER PRIMARY KEY,
			activity_name TEXT,
			description TEXT,
			start_time_gmt TEXT NOT NULL,
			distance REAL,
			duration REAL NOT NULL,
			elapsed_duration REAL,
			moving_duration REAL,
			steps INTEGER,
			calories REAL,
			average_hr REAL,
			max_hr REAL,
			summary_id TEXT REFERENCES garmin_summary(id) ON DELETE SET NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_connect_start_time ON garmin_connect_activities(start_time_gmt)`,
		`CREATE INDEX IF NOT EXISTS idx_connect_summary ON garmin_connect_activities(summary_id)`,

		// Race results, both personal and world record reference rows
		`CREATE TABLE IF NOT EXISTS race_results (
			id TEXT PRIMARY KEY,
			race_type TEXT NOT NULL DEFAULT 'personal',
			race_date TEXT,
			race_name TEXT,
			race_distance INTEGER NOT NULL,
			race_time REAL NOT NULL,
			race_flag INTEGER NOT NULL DEFAULT 0,
			race_filename TEXT,
			summary_id TEXT REFERENCES garmin_summary(id) ON DELETE SET NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_race_results_type ON race_results(race_type)`,
		`CREATE INDEX IF NOT EXISTS idx_race_results_filename ON race_results(race_filename)`,

		// Scale measurements
		`CREATE TABLE IF NOT EXISTS scale_measurements (
			id TEXT PRIMARY KEY,
			datetime TEXT NOT NULL UNIQUE,
			mass REAL NOT NULL,
			fat_pct REAL NOT NULL,
			water_pct REAL NOT NULL,
			muscle_pct REAL NOT NULL,
			bone_pct REAL NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Provider OAuth tokens, one row per provider
		`CREATE TABLE IF NOT EXISTS provider_tokens (
			provider TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Sync state (key-value store for sync tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
