// Package report computes the text reports: per-file mile splits and
// heart-rate zones from a stored GPS track, and grouped aggregates over the
// summary table.
package report

import (
	"tracklog/internal/store"
	"tracklog/internal/units"
)

// Split is one mile segment of an activity.
type Split struct {
	Index    int     // 1-based mile number
	Duration float64 // seconds spent in this mile
	Pace     float64 // minutes per mile
	AvgHR    float64 // 0 when the track has no heart rate
}

// Zone is time spent in one heart-rate band.
type Zone struct {
	Index   int     // 1-based, 1 is easiest
	LowBPM  float64 // inclusive lower bound
	HighBPM float64 // exclusive upper bound, 0 on the top zone
	Seconds float64
	Pct     float64 // share of time with heart rate data
}

// FileReport is the full per-activity report.
type FileReport struct {
	Summary *store.Summary
	Splits  []Split
	Zones   []Zone
}

// zoneBounds are the classic five-zone fractions of max heart rate.
var zoneBounds = [5]float64{0, 0.6, 0.7, 0.8, 0.9}

// ForFile builds the report for one summary from its stored track. maxHR
// comes from configuration; a track without heart rate yields empty zones.
func ForFile(s *store.Summary, points []store.GPSPoint, maxHR float64) *FileReport {
	return &FileReport{
		Summary: s,
		Splits:  ComputeSplits(points),
		Zones:   ComputeZones(points, maxHR),
	}
}

// ComputeSplits cuts the track into mile segments. The final partial mile is
// reported with the pace of what was covered.
func ComputeSplits(points []store.GPSPoint) []Split {
	var splits []Split
	splitStartTime := 0.0
	nextBoundary := units.MetersPerMile
	var hrSum, hrTime float64

	endSplit := func(at, distanceCovered float64) {
		dur := at - splitStartTime
		if dur <= 0 {
			return
		}
		sp := Split{
			Index:    len(splits) + 1,
			Duration: dur,
			Pace:     dur / 60 / (distanceCovered / units.MetersPerMile),
		}
		if hrTime > 0 {
			sp.AvgHR = hrSum / hrTime
		}
		splits = append(splits, sp)
		splitStartTime = at
		hrSum, hrTime = 0, 0
	}

	var lastDist, lastTime float64
	for _, p := range points {
		if p.Distance == nil {
			continue
		}
		d := *p.Distance
		t := p.DurationFromBegin
		if p.HeartRate != nil && *p.HeartRate > 0 {
			hrSum += *p.HeartRate * p.DurationFromLast
			hrTime += p.DurationFromLast
		}

		for d >= nextBoundary {
			// Interpolate the boundary crossing between samples.
			at := t
			if d > lastDist {
				frac := (nextBoundary - lastDist) / (d - lastDist)
				at = lastTime + frac*(t-lastTime)
			}
			endSplit(at, units.MetersPerMile)
			nextBoundary += units.MetersPerMile
		}
		lastDist, lastTime = d, t
	}

	// Partial last mile.
	covered := lastDist - (nextBoundary - units.MetersPerMile)
	if covered > 1 { // ignore sub-meter remainders
		endSplit(lastTime, covered)
	}
	return splits
}

// ComputeZones accumulates time in five heart-rate bands scaled off maxHR.
// Only samples carrying heart rate count; Pct is relative to that time, not
// to the whole activity.
func ComputeZones(points []store.GPSPoint, maxHR float64) []Zone {
	if maxHR <= 0 {
		return nil
	}

	zones := make([]Zone, 5)
	for i := range zones {
		zones[i].Index = i + 1
		zones[i].LowBPM = zoneBounds[i] * maxHR
		if i < 4 {
			zones[i].HighBPM = zoneBounds[i+1] * maxHR
		}
	}

	var total float64
	for _, p := range points {
		if p.HeartRate == nil || *p.HeartRate <= 0 || p.DurationFromLast <= 0 {
			continue
		}
		hr := *p.HeartRate
		zi := 0
		for i := 4; i > 0; i-- {
			if hr >= zones[i].LowBPM {
				zi = i
				break
			}
		}
		zones[zi].Seconds += p.DurationFromLast
		total += p.DurationFromLast
	}

	if total == 0 {
		return nil
	}
	for i := range zones {
		zones[i].Pct = zones[i].Seconds / total * 100
	}
	return zones
}
