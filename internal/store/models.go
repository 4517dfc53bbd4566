package store

import (
	"time"

	"tracklog/internal/sport"
)

// Summary is the per-file activity summary. Distances are meters, durations
// seconds. TotalHRDur and TotalHRDis hold duration-weighted heart rate and
// the matching duration mass; their ratio recovers the average heart rate.
type Summary struct {
	ID            string      `db:"id" json:"id"` // uuid
	Filename      string      `db:"filename" json:"filename"`
	Begin         time.Time   `db:"begin_datetime" json:"begin_datetime"`
	Sport         sport.Sport `db:"sport" json:"sport"`
	TotalCalories int         `db:"total_calories" json:"total_calories"`
	TotalDistance float64     `db:"total_distance" json:"total_distance"` // meters
	TotalDuration float64     `db:"total_duration" json:"total_duration"` // seconds
	TotalHRDur    float64     `db:"total_hr_dur" json:"total_hr_dur"`
	TotalHRDis    float64     `db:"total_hr_dis" json:"total_hr_dis"`
	MD5Sum        string      `db:"md5sum"`
}

// AvgHR returns the duration-weighted average heart rate, or 0 when no lap
// carried heart rate data.
func (s *Summary) AvgHR() float64 {
	if s.TotalHRDur <= 0 || s.TotalHRDis <= 0 {
		return 0
	}
	return s.TotalHRDur / s.TotalHRDis
}

// GPSPoint is a single trackpoint of a stored activity track.
type GPSPoint struct {
	SummaryID         string    `db:"summary_id" json:"summary_id"`
	PointIndex        int       `db:"point_index" json:"point_index"`
	Time              time.Time `db:"time" json:"time"`
	Latitude          *float64  `db:"latitude" json:"latitude"`
	Longitude         *float64  `db:"longitude" json:"longitude"`
	Altitude          *float64  `db:"altitude" json:"altitude"`                       // meters
	Distance          *float64  `db:"distance" json:"distance"`                       // cumulative meters
	HeartRate         *float64  `db:"heart_rate" json:"heart_rate"`                   // bpm
	DurationFromLast  float64   `db:"duration_from_last" json:"duration_from_last"`   // seconds
	DurationFromBegin float64   `db:"duration_from_begin" json:"duration_from_begin"` // seconds
	SpeedMPS          float64   `db:"speed_mps" json:"speed_mps"`
}

// Correction is a manual per-lap override keyed by the activity's first-lap
// start time and the lap number. Distance is in miles, duration in seconds.
type Correction struct {
	StartTime time.Time `db:"start_time" json:"start_time"`
	LapNumber int       `db:"lap_number" json:"lap_number"`
	Sport     *string   `db:"sport" json:"sport"`
	Distance  *float64  `db:"distance" json:"distance"` // miles
	Duration  *float64  `db:"duration" json:"duration"` // seconds
}

// StravaActivity is an activity record pulled from the Strava API.
type StravaActivity struct {
	ID                 int64       `db:"id" json:"id"`
	Name               string      `db:"name" json:"name"`
	StartDate          time.Time   `db:"start_date" json:"start_date"`
	Distance           *float64    `db:"distance" json:"distance"`       // meters
	MovingTime         *int64      `db:"moving_time" json:"moving_time"` // seconds
	ElapsedTime        int64       `db:"elapsed_time" json:"elapsed_time"`
	TotalElevationGain *float64    `db:"total_elevation_gain" json:"total_elevation_gain"`
	ElevHigh           *float64    `db:"elev_high" json:"elev_high"`
	ElevLow            *float64    `db:"elev_low" json:"elev_low"`
	Sport              sport.Sport `db:"sport" json:"sport"`
	Timezone           *string     `db:"timezone" json:"timezone"`
	SummaryID          *string     `db:"summary_id" json:"summary_id"`
}

// FitbitActivity is an activity log entry pulled from the Fitbit API.
// Duration is milliseconds as Fitbit reports it.
type FitbitActivity struct {
	LogID          int64     `db:"log_id" json:"log_id"`
	LogType        string    `db:"log_type" json:"log_type"`
	StartTime      time.Time `db:"start_time" json:"start_time"`
	TcxLink        *string   `db:"tcx_link" json:"tcx_link"`
	ActivityTypeID *int64    `db:"activity_type_id" json:"activity_type_id"`
	ActivityName   *string   `db:"activity_name" json:"activity_name"`
	Duration       int64     `db:"duration" json:"duration"` // milliseconds
	Distance       *float64  `db:"distance" json:"distance"`
	DistanceUnit   *string   `db:"distance_unit" json:"distance_unit"`
	Steps          *int64    `db:"steps" json:"steps"`
	SummaryID      *string   `db:"summary_id" json:"summary_id"`
}

// ConnectActivity is an activity record pulled from Garmin Connect.
// Durations are seconds.
type ConnectActivity struct {
	ActivityID      int64     `db:"activity_id" json:"activity_id"`
	ActivityName    *string   `db:"activity_name" json:"activity_name"`
	Description     *string   `db:"description" json:"description"`
	StartTimeGMT    time.Time `db:"start_time_gmt" json:"start_time_gmt"`
	Distance        *float64  `db:"distance" json:"distance"` // meters
	Duration        float64   `db:"duration" json:"duration"`
	ElapsedDuration *float64  `db:"elapsed_duration" json:"elapsed_duration"`
	MovingDuration  *float64  `db:"moving_duration" json:"moving_duration"`
	Steps           *int64    `db:"steps" json:"steps"`
	Calories        *float64  `db:"calories" json:"calories"`
	AverageHR       *float64  `db:"average_hr" json:"average_hr"`
	MaxHR           *float64  `db:"max_hr" json:"max_hr"`
	SummaryID       *string   `db:"summary_id" json:"summary_id"`
}

// Race type values for RaceResult.RaceType.
const (
	RaceTypePersonal       = "personal"
	RaceTypeWorldRecordMen = "world_record_men"
	RaceTypeWorldRecordWom = "world_record_women"
)

// RaceResult is one race entry, either a personal result or a world record
// reference row used for comparison plots.
type RaceResult struct {
	ID           string     `db:"id" json:"id"` // uuid
	RaceType     string     `db:"race_type" json:"race_type"`
	RaceDate     *time.Time `db:"race_date" json:"race_date"` // date portion only
	RaceName     *string    `db:"race_name" json:"race_name"`
	RaceDistance int        `db:"race_distance" json:"race_distance"` // meters
	RaceTime     float64    `db:"race_time" json:"race_time"`         // seconds
	RaceFlag     bool       `db:"race_flag" json:"race_flag"`
	RaceFilename *string    `db:"race_filename" json:"race_filename"`
	SummaryID    *string    `db:"summary_id" json:"summary_id"`
}

// ScaleMeasurement is one body-composition reading. Mass is pounds, the
// rest are percentages.
type ScaleMeasurement struct {
	ID        string    `db:"id" json:"id"` // uuid
	Datetime  time.Time `db:"datetime" json:"datetime"`
	Mass      float64   `db:"mass" json:"mass"`
	FatPct    float64   `db:"fat_pct" json:"fat_pct"`
	WaterPct  float64   `db:"water_pct" json:"water_pct"`
	MusclePct float64   `db:"muscle_pct" json:"muscle_pct"`
	BonePct   float64   `db:"bone_pct" json:"bone_pct"`
}
