package strava

import (
	"time"

	"tracklog/internal/sport"
	"tracklog/internal/store"
)

// Activity is one entry of the /athlete/activities response.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Timezone           string    `json:"timezone"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int64     `json:"moving_time"`          // seconds
	ElapsedTime        int64     `json:"elapsed_time"`         // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	ElevHigh           float64   `json:"elev_high"`
	ElevLow            float64   `json:"elev_low"`
}

// ToRow converts an API activity into the stored row shape. The sport_type
// field supersedes type in the API; either maps through the provider sport
// table.
func (a *Activity) ToRow() *store.StravaActivity {
	name := a.SportType
	if name == "" {
		name = a.Type
	}
	row := &store.StravaActivity{
		ID:          a.ID,
		Name:        a.Name,
		StartDate:   a.StartDate.UTC(),
		ElapsedTime: a.ElapsedTime,
		Sport:       sport.FromStrava(name),
	}
	if a.Distance > 0 {
		d := a.Distance
		row.Distance = &d
	}
	if a.MovingTime > 0 {
		mt := a.MovingTime
		row.MovingTime = &mt
	}
	if a.TotalElevationGain > 0 {
		g := a.TotalElevationGain
		row.TotalElevationGain = &g
	}
	if a.ElevHigh != 0 {
		h := a.ElevHigh
		row.ElevHigh = &h
	}
	if a.ElevLow != 0 {
		l := a.ElevLow
		row.ElevLow = &l
	}
	if a.Timezone != "" {
		tz := a.Timezone
		row.Timezone = &tz
	}
	return row
}
