// Package parser decodes raw activity files (FIT, TCX, GMN dump XML, plain
// text laps) into a normalized Activity of laps and trackpoints.
package parser

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"tracklog/internal/sport"
)

// Format identifies the on-disk encoding of an activity file.
type Format string

const (
	FormatFIT Format = "fit"
	FormatTCX Format = "tcx"
	FormatTXT Format = "txt"
	FormatGMN Format = "gmn"
)

// Point is one timestamped trackpoint. Distance is the device's cumulative
// odometer in meters. Optional fields are nil when the device did not report
// them.
type Point struct {
	Time      time.Time
	Latitude  *float64
	Longitude *float64
	Altitude  *float64
	Distance  *float64
	HeartRate *float64

	// Derived during normalization.
	DurationFromLast  float64
	DurationFromBegin float64
	SpeedMPS          float64
}

// Lap is one device-reported lap. Index is the lap's position in the file;
// Number is the device-reported lap number, backfilled from Index when the
// device omits it.
type Lap struct {
	Index     int
	Number    int
	Start     time.Time
	Duration  float64 // seconds
	Distance  float64 // meters
	Calories  int
	AvgHR     *float64
	MaxHR     *int
	MaxSpeed  *float64
	Trigger   *string
	Intensity *string
	Sport     *string // per-lap sport string where the format carries one
}

// Activity is the parsed form of one file, before corrections and
// summarization.
type Activity struct {
	Filename string
	Format   Format
	Sport    sport.Sport
	Laps     []Lap
	Points   []Point
}

// ParseError reports a malformed or undecodable activity file. It is fatal
// for that file only; batch callers skip the file and continue.
type ParseError struct {
	File   string
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s (%s): %v", e.File, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(file string, format Format, err error) error {
	return &ParseError{File: file, Format: format, Err: err}
}

// Parse decodes data according to the filename's extension. A trailing .gz is
// decompressed first (device exports ship gzipped TCX). Parsing is a pure
// function of the bytes, so a file can be reprocessed at any time.
func Parse(filename string, data []byte) (*Activity, error) {
	base := filepath.Base(filename)
	name := strings.ToLower(base)

	if strings.HasSuffix(name, ".gz") {
		name = strings.TrimSuffix(name, ".gz")
		inner := Format(strings.TrimPrefix(filepath.Ext(name), "."))
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, parseErr(base, inner, fmt.Errorf("opening gzip: %w", err))
		}
		plain, err := io.ReadAll(gz)
		if err != nil {
			return nil, parseErr(base, inner, fmt.Errorf("decompressing: %w", err))
		}
		data = plain
	}

	switch ext := filepath.Ext(name); ext {
	case ".fit":
		return parseFIT(base, data)
	case ".tcx":
		return parseTCX(base, data)
	case ".txt":
		return parseTXT(base, data)
	case ".gmn", ".xml":
		return parseGMN(base, data)
	default:
		return nil, parseErr(base, Format(strings.TrimPrefix(ext, ".")), fmt.Errorf("unsupported file format %q", ext))
	}
}

// fixLapNumbers assigns positional indexes and backfills missing
// device-reported lap numbers so corrections can key on them.
func fixLapNumbers(laps []Lap) {
	for i := range laps {
		laps[i].Index = i
		if laps[i].Number < 0 {
			laps[i].Number = i
		}
	}
}

// computeDurations fills the per-point elapsed fields from consecutive
// timestamps.
func computeDurations(points []Point) {
	var begin time.Time
	var last time.Time
	for i := range points {
		if i == 0 {
			begin = points[i].Time
			last = points[i].Time
		}
		points[i].DurationFromLast = points[i].Time.Sub(last).Seconds()
		points[i].DurationFromBegin = points[i].Time.Sub(begin).Seconds()
		last = points[i].Time
	}
}

// keepPoint is the shared filter for GPS formats: a point is useful only once
// the device has a position fix and a nonzero odometer.
func keepPoint(p Point) bool {
	return p.Latitude != nil && p.Longitude != nil && p.Distance != nil && *p.Distance > 0
}

func float64ptr(v float64) *float64 { return &v }

func intptr(v int) *int { return &v }

func strptr(v string) *string { return &v }
