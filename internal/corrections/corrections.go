// Package corrections holds operator-supplied overrides for device data:
// corrected distance, duration, or sport for a specific activity lap. Lookups
// are exact-match on (start time, lap number); there is no tolerance, so a
// correction whose timestamp drifts from the parsed file silently misses.
package corrections

import (
	"time"

	"tracklog/internal/parser"
	"tracklog/internal/sport"
	"tracklog/internal/units"
)

// Correction is one override row. Distance is recorded in miles, the unit the
// operator thinks in; Apply converts to meters.
type Correction struct {
	StartTime time.Time
	LapNumber int
	Sport     *string
	Distance  *float64 // miles
	Duration  *float64 // seconds
}

// Key identifies a correction. Start times compare at second precision in
// UTC.
type Key struct {
	StartTime string // RFC3339, UTC
	LapNumber int
}

// KeyFor builds the lookup key for a lap of the file starting at start.
func KeyFor(start time.Time, lapNumber int) Key {
	return Key{StartTime: start.UTC().Format(time.RFC3339), LapNumber: lapNumber}
}

// Table is an immutable snapshot of the correction store, built once per
// import run and passed into the summary builder. It is safe for concurrent
// readers.
type Table struct {
	byKey map[Key]Correction
}

func NewTable(corrs []Correction) *Table {
	t := &Table{byKey: make(map[Key]Correction, len(corrs))}
	for _, c := range corrs {
		t.byKey[KeyFor(c.StartTime, c.LapNumber)] = c
	}
	return t
}

// Lookup returns the correction for (start, lapNumber). Absence is expected
// and not an error.
func (t *Table) Lookup(start time.Time, lapNumber int) (Correction, bool) {
	if t == nil {
		return Correction{}, false
	}
	c, ok := t.byKey[KeyFor(start, lapNumber)]
	return c, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byKey)
}

// Apply rewrites laps with any matching corrections and resolves the
// activity's sport. Every lap is keyed by the file's first lap start time,
// so one activity's corrections address its laps by number alone. Corrected
// distances are miles and convert to meters here. A matching correction that
// carries a sport overrides the parsed sport file-wide.
func (t *Table) Apply(laps []parser.Lap, parsed sport.Sport) ([]parser.Lap, sport.Sport) {
	if len(laps) == 0 {
		return nil, parsed
	}
	fileStart := laps[0].Start
	resolved := parsed

	out := make([]parser.Lap, len(laps))
	for i, lap := range laps {
		corr, ok := t.Lookup(fileStart, lap.Number)
		if !ok {
			out[i] = lap
			continue
		}
		// A sport override applies file-wide and sticks: later corrections
		// without a sport (or with "none") leave it in place.
		if corr.Sport != nil {
			if sp, ok := sport.Parse(*corr.Sport); ok && sp != sport.None {
				resolved = sp
			}
		}
		if corr.Duration != nil {
			lap.Duration = *corr.Duration
		}
		if corr.Distance != nil {
			lap.Distance = units.MilesToMeters(*corr.Distance)
		}
		out[i] = lap
	}
	return out, resolved
}
