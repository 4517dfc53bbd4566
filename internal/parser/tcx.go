package parser

import (
	"encoding/xml"
	"fmt"
	"time"

	"tracklog/internal/sport"
)

type tcxDatabase struct {
	Activities []tcxActivity `xml:"Activities>Activity"`
}

type tcxActivity struct {
	Sport string   `xml:"Sport,attr"`
	Laps  []tcxLap `xml:"Lap"`
}

type tcxLap struct {
	StartTime        string      `xml:"StartTime,attr"`
	TotalTimeSeconds float64     `xml:"TotalTimeSeconds"`
	DistanceMeters   float64     `xml:"DistanceMeters"`
	MaximumSpeed     *float64    `xml:"MaximumSpeed"`
	Calories         int         `xml:"Calories"`
	Intensity        *string     `xml:"Intensity"`
	TriggerMethod    *string     `xml:"TriggerMethod"`
	AvgHR            *tcxHRValue `xml:"AverageHeartRateBpm"`
	MaxHR            *tcxHRValue `xml:"MaximumHeartRateBpm"`
	Tracks           []tcxTrack  `xml:"Track"`
}

type tcxTrack struct {
	Points []tcxTrackpoint `xml:"Trackpoint"`
}

type tcxHRValue struct {
	Value float64 `xml:"Value"`
}

type tcxTrackpoint struct {
	Time           string       `xml:"Time"`
	Position       *tcxPosition `xml:"Position"`
	AltitudeMeters *float64     `xml:"AltitudeMeters"`
	DistanceMeters *float64     `xml:"DistanceMeters"`
	HeartRateBpm   *tcxHRValue  `xml:"HeartRateBpm"`
	Speed          *float64     `xml:"Extensions>TPX>Speed"`
}

type tcxPosition struct {
	LatitudeDegrees  float64 `xml:"LatitudeDegrees"`
	LongitudeDegrees float64 `xml:"LongitudeDegrees"`
}

func parseTCX(filename string, data []byte) (*Activity, error) {
	var db tcxDatabase
	if err := xml.Unmarshal(data, &db); err != nil {
		return nil, parseErr(filename, FormatTCX, fmt.Errorf("decoding xml: %w", err))
	}
	if len(db.Activities) == 0 {
		return nil, parseErr(filename, FormatTCX, fmt.Errorf("no activities in file"))
	}

	act := &Activity{Filename: filename, Format: FormatTCX, Sport: sport.None}
	for _, a := range db.Activities {
		if sp, ok := sport.Parse(a.Sport); ok {
			act.Sport = sp
		}
		for _, l := range a.Laps {
			start, err := parseXMLTime(l.StartTime)
			if err != nil {
				return nil, parseErr(filename, FormatTCX, fmt.Errorf("lap start time: %w", err))
			}
			lap := Lap{
				Number:    -1,
				Start:     start,
				Duration:  l.TotalTimeSeconds,
				Distance:  l.DistanceMeters,
				Calories:  l.Calories,
				MaxSpeed:  l.MaximumSpeed,
				Trigger:   l.TriggerMethod,
				Intensity: l.Intensity,
			}
			if l.AvgHR != nil {
				lap.AvgHR = float64ptr(l.AvgHR.Value)
			}
			if l.MaxHR != nil {
				lap.MaxHR = intptr(int(l.MaxHR.Value))
			}
			act.Laps = append(act.Laps, lap)

			for _, trk := range l.Tracks {
				for _, tp := range trk.Points {
					p, err := tcxPoint(tp)
					if err != nil {
						return nil, parseErr(filename, FormatTCX, err)
					}
					if keepPoint(p) {
						act.Points = append(act.Points, p)
					}
				}
			}
		}
	}

	fixLapNumbers(act.Laps)
	computeDurations(act.Points)
	return act, nil
}

func tcxPoint(tp tcxTrackpoint) (Point, error) {
	t, err := parseXMLTime(tp.Time)
	if err != nil {
		return Point{}, fmt.Errorf("trackpoint time: %w", err)
	}
	p := Point{
		Time:     t,
		Altitude: tp.AltitudeMeters,
		Distance: tp.DistanceMeters,
	}
	if tp.Position != nil {
		p.Latitude = float64ptr(tp.Position.LatitudeDegrees)
		p.Longitude = float64ptr(tp.Position.LongitudeDegrees)
	}
	if tp.HeartRateBpm != nil {
		p.HeartRate = float64ptr(tp.HeartRateBpm.Value)
	}
	if tp.Speed != nil {
		p.SpeedMPS = *tp.Speed
	}
	return p, nil
}

// parseXMLTime accepts RFC3339 timestamps with or without fractional seconds,
// plus the zone-less local form some devices write, which is taken as UTC.
func parseXMLTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
