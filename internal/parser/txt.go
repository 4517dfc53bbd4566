package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tracklog/internal/sport"
	"tracklog/internal/units"
)

// parseTXT reads the manual-entry lap format: one lap per line of key=value
// tokens (date, time, type, lap, dur, dis, cal, avghr). GPS-less workouts
// (lifting, elliptical) are recorded this way.
func parseTXT(filename string, data []byte) (*Activity, error) {
	act := &Activity{Filename: filename, Format: FormatTXT, Sport: sport.None}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lap, err := parseTXTLine(line)
		if err != nil {
			return nil, parseErr(filename, FormatTXT, fmt.Errorf("line %d: %w", lineNo, err))
		}
		act.Laps = append(act.Laps, lap)
	}
	if err := scanner.Err(); err != nil {
		return nil, parseErr(filename, FormatTXT, err)
	}
	if len(act.Laps) == 0 {
		return nil, parseErr(filename, FormatTXT, fmt.Errorf("no laps in file"))
	}

	if first := act.Laps[0].Sport; first != nil {
		act.Sport = sport.ParseOr(*first, sport.None)
	}

	fixLapNumbers(act.Laps)
	act.Points = synthesizeTXTPoints(act.Laps)
	return act, nil
}

func parseTXTLine(line string) (Lap, error) {
	fields := map[string]string{}
	for _, tok := range strings.Fields(line) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		fields[k] = v
	}

	dateStr, ok := fields["date"]
	if !ok {
		return Lap{}, fmt.Errorf("no date value")
	}
	date, err := time.Parse("20060102", dateStr)
	if err != nil {
		return Lap{}, fmt.Errorf("invalid date %q: %w", dateStr, err)
	}
	clock := "12:00:00"
	if v, ok := fields["time"]; ok {
		clock = v
	}
	tod, err := time.Parse("15:04:05", clock)
	if err != nil {
		return Lap{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	start := time.Date(date.Year(), date.Month(), date.Day(),
		tod.Hour(), tod.Minute(), tod.Second(), 0, time.UTC)

	lap := Lap{Number: -1, Start: start}

	if v, ok := fields["type"]; ok {
		if _, valid := sport.Parse(v); valid {
			lap.Sport = strptr(v)
		}
	}
	if v, ok := fields["lap"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Lap{}, fmt.Errorf("invalid lap %q: %w", v, err)
		}
		lap.Number = n
	}
	if v, ok := fields["dur"]; ok {
		d, err := units.ParseHMS(v)
		if err != nil {
			return Lap{}, fmt.Errorf("invalid dur: %w", err)
		}
		lap.Duration = d
	}
	if v, ok := fields["dis"]; ok {
		d, err := parseTXTDistance(v)
		if err != nil {
			return Lap{}, fmt.Errorf("invalid dis %q: %w", v, err)
		}
		lap.Distance = d
	}
	if v, ok := fields["cal"]; ok {
		c, err := strconv.Atoi(v)
		if err != nil {
			return Lap{}, fmt.Errorf("invalid cal %q: %w", v, err)
		}
		lap.Calories = c
	}
	if v, ok := fields["avghr"]; ok {
		hr, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Lap{}, fmt.Errorf("invalid avghr %q: %w", v, err)
		}
		lap.AvgHR = float64ptr(hr)
	}
	return lap, nil
}

// parseTXTDistance accepts "4.0mi" (miles), "4000m" (meters), or a bare
// number of meters.
func parseTXTDistance(v string) (float64, error) {
	if n, rest, found := strings.Cut(v, "mi"); found && rest == "" {
		d, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, err
		}
		return units.MilesToMeters(d), nil
	}
	if n, rest, found := strings.Cut(v, "m"); found && rest == "" {
		return strconv.ParseFloat(n, 64)
	}
	return strconv.ParseFloat(v, 64)
}

// synthesizeTXTPoints builds one point per lap so a manual-entry file still
// produces a track: the point carries the lap's distance and the running
// elapsed time.
func synthesizeTXTPoints(laps []Lap) []Point {
	points := make([]Point, 0, len(laps))
	var elapsed float64
	for _, lap := range laps {
		elapsed += lap.Duration
		p := Point{
			Time:              lap.Start,
			Distance:          float64ptr(lap.Distance),
			DurationFromLast:  lap.Duration,
			DurationFromBegin: elapsed,
		}
		if lap.Duration > 0 {
			p.SpeedMPS = lap.Distance / lap.Duration
		}
		points = append(points, p)
	}
	return points
}
