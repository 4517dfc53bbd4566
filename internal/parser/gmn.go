package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"tracklog/internal/sport"
	"tracklog/internal/units"
)

type gmnLap struct {
	Type      *string  `xml:"type,attr"`
	Start     *string  `xml:"start,attr"`
	Duration  *string  `xml:"duration,attr"`
	Distance  *float64 `xml:"distance,attr"`
	Trigger   *string  `xml:"trigger,attr"`
	AvgHR     *float64 `xml:"avg_hr,attr"`
	MaxSpeed  *float64 `xml:"max_speed"`
	Calories  *int     `xml:"calories"`
	Intensity *string  `xml:"intensity"`
}

type gmnPoint struct {
	Time     *string  `xml:"time,attr"`
	Lat      *float64 `xml:"lat,attr"`
	Lon      *float64 `xml:"lon,attr"`
	Alt      *float64 `xml:"alt,attr"`
	Distance *float64 `xml:"distance,attr"`
	HR       *float64 `xml:"hr,attr"`
}

// parseGMN reads the device dump XML: <run sport=...> holding <lap> and
// <point> elements. Elements are matched by name wherever they appear so a
// wrapping <root> element (as the dump tool emits) is fine.
func parseGMN(filename string, data []byte) (*Activity, error) {
	act := &Activity{Filename: filename, Format: FormatGMN, Sport: sport.None}

	dec := xml.NewDecoder(bytes.NewReader(data))
	sawElement := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseErr(filename, FormatGMN, fmt.Errorf("decoding xml: %w", err))
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawElement = true

		switch se.Name.Local {
		case "run":
			for _, attr := range se.Attr {
				if attr.Name.Local == "sport" {
					if sp, ok := sport.Parse(attr.Value); ok {
						act.Sport = sp
					}
				}
			}
		case "lap":
			var gl gmnLap
			if err := dec.DecodeElement(&gl, &se); err != nil {
				return nil, parseErr(filename, FormatGMN, fmt.Errorf("decoding lap: %w", err))
			}
			lap, err := gmnToLap(gl)
			if err != nil {
				return nil, parseErr(filename, FormatGMN, err)
			}
			act.Laps = append(act.Laps, lap)
		case "point":
			var gp gmnPoint
			if err := dec.DecodeElement(&gp, &se); err != nil {
				return nil, parseErr(filename, FormatGMN, fmt.Errorf("decoding point: %w", err))
			}
			p, ok, err := gmnToPoint(gp)
			if err != nil {
				return nil, parseErr(filename, FormatGMN, err)
			}
			if ok && keepPoint(p) {
				act.Points = append(act.Points, p)
			}
		}
	}
	if !sawElement {
		return nil, parseErr(filename, FormatGMN, fmt.Errorf("no xml content"))
	}

	fixLapNumbers(act.Laps)
	computeDurations(act.Points)
	return act, nil
}

func gmnToLap(gl gmnLap) (Lap, error) {
	lap := Lap{
		Number:    -1,
		Trigger:   gl.Trigger,
		MaxSpeed:  gl.MaxSpeed,
		AvgHR:     gl.AvgHR,
		Intensity: gl.Intensity,
	}
	if gl.Type != nil {
		lap.Sport = gl.Type
	}
	if gl.Start != nil {
		start, err := parseXMLTime(*gl.Start)
		if err != nil {
			return Lap{}, fmt.Errorf("lap start: %w", err)
		}
		lap.Start = start
	}
	if gl.Duration != nil {
		d, err := units.ParseHMS(*gl.Duration)
		if err != nil {
			return Lap{}, fmt.Errorf("lap duration: %w", err)
		}
		lap.Duration = d
	}
	if gl.Distance != nil {
		lap.Distance = *gl.Distance
	}
	if gl.Calories != nil {
		lap.Calories = *gl.Calories
	}
	return lap, nil
}

func gmnToPoint(gp gmnPoint) (Point, bool, error) {
	if gp.Time == nil {
		return Point{}, false, nil
	}
	t, err := parseXMLTime(*gp.Time)
	if err != nil {
		return Point{}, false, fmt.Errorf("point time: %w", err)
	}
	return Point{
		Time:      t,
		Latitude:  gp.Lat,
		Longitude: gp.Lon,
		Altitude:  gp.Alt,
		Distance:  gp.Distance,
		HeartRate: gp.HR,
	}, true, nil
}
