// Package summary condenses a parsed activity file into the per-file totals
// row that everything downstream keys on.
package summary

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tracklog/internal/corrections"
	"tracklog/internal/parser"
	"tracklog/internal/sport"
)

// ErrNoStartTime means the file had laps but the first one carried no usable
// timestamp, so no begin time can be derived and nothing is persisted.
var ErrNoStartTime = errors.New("no start time")

// Summary is one activity file reduced to its totals. Distances are meters,
// durations seconds. TotalHRDur and TotalHRDis accumulate heart rate weighted
// by lap duration and the matching duration mass, so TotalHRDur/TotalHRDis
// recovers the duration-weighted average heart rate.
type Summary struct {
	ID            string
	Filename      string
	Begin         time.Time
	Sport         sport.Sport
	TotalCalories int
	TotalDistance float64
	TotalDuration float64
	TotalHRDur    float64
	TotalHRDis    float64
	MD5Sum        string
}

// AvgHR returns the duration-weighted average heart rate, or 0 when no lap
// carried heart rate data.
func (s *Summary) AvgHR() float64 {
	if s.TotalHRDur <= 0 || s.TotalHRDis <= 0 {
		return 0
	}
	return s.TotalHRDur / s.TotalHRDis
}

// DistanceMiles returns the total distance in miles.
func (s *Summary) DistanceMiles() float64 {
	return s.TotalDistance / 1609.344
}

// Build applies any matching corrections to the activity's laps, then folds
// the corrected laps into a Summary. data is the raw file content and is
// hashed so re-imports of an unchanged file can be recognized. A fresh ID is
// assigned; persistence keeps the existing ID when the filename is already
// known.
//
// An empty file (no laps, no points) is not an error: it yields a summary
// with zero totals.
func Build(act *parser.Activity, data []byte, table *corrections.Table) (*Summary, error) {
	if len(act.Laps) == 0 {
		begin := time.Time{}
		if len(act.Points) > 0 {
			begin = act.Points[0].Time
		}
		return &Summary{
			ID:       uuid.NewString(),
			Filename: act.Filename,
			Begin:    begin.UTC(),
			Sport:    act.Sport,
			MD5Sum:   ContentHash(data),
		}, nil
	}

	laps, sp := table.Apply(act.Laps, act.Sport)

	begin := laps[0].Start
	if begin.IsZero() {
		return nil, fmt.Errorf("%s: %w", act.Filename, ErrNoStartTime)
	}

	s := &Summary{
		ID:       uuid.NewString(),
		Filename: act.Filename,
		Begin:    begin.UTC(),
		Sport:    sp,
		MD5Sum:   ContentHash(data),
	}
	for _, lap := range laps {
		s.TotalCalories += lap.Calories
		s.TotalDistance += lap.Distance
		s.TotalDuration += lap.Duration
		if lap.AvgHR != nil {
			s.TotalHRDur += *lap.AvgHR * lap.Duration
		}
		s.TotalHRDis += lap.Duration
	}
	return s, nil
}

// ContentHash returns the hex md5 digest of the raw file bytes.
func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
