package parser

import (
	"errors"
	"testing"
	"time"

	"tracklog/internal/sport"
)

const gmnFixture = `<root>
<run sport="biking">
  <lap type="manual" index="0" start="2011-05-07T15:43:08Z" duration="20:13" distance="10282.9" trigger="manual" avg_hr="142">
    <max_speed>11.1</max_speed>
    <calories>285</calories>
    <intensity>active</intensity>
  </lap>
  <lap index="1" start="2011-05-07T16:03:21Z" duration="9:59" distance="5130.0"/>
  <point time="2011-05-07T15:43:08Z" lat="41.7" lon="-88.2" alt="210.1" distance="5.2" hr="95"/>
  <point time="2011-05-07T15:43:18Z" lat="41.701" lon="-88.201" alt="210.4" distance="62.0" hr="104"/>
  <point time="2011-05-07T15:43:28Z" distance="120.0" hr="110"/>
  <point time="2011-05-07T15:43:38Z" lat="41.702" lon="-88.203" alt="211.0" distance="0" hr="112"/>
</run>
</root>`

func TestParseGMN(t *testing.T) {
	act, err := Parse("2011-05-07_15-43-08.gmn", []byte(gmnFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if act.Sport != sport.Biking {
		t.Errorf("sport = %q, want biking", act.Sport)
	}
	if len(act.Laps) != 2 {
		t.Fatalf("laps = %d, want 2", len(act.Laps))
	}

	lap := act.Laps[0]
	wantStart := time.Date(2011, 5, 7, 15, 43, 8, 0, time.UTC)
	if !lap.Start.Equal(wantStart) {
		t.Errorf("lap start = %v, want %v", lap.Start, wantStart)
	}
	if lap.Duration != 20*60+13 {
		t.Errorf("lap duration = %v, want 1213", lap.Duration)
	}
	if lap.Distance != 10282.9 {
		t.Errorf("lap distance = %v, want 10282.9", lap.Distance)
	}
	if lap.Calories != 285 {
		t.Errorf("lap calories = %d, want 285", lap.Calories)
	}
	if lap.AvgHR == nil || *lap.AvgHR != 142 {
		t.Errorf("lap avg hr = %v, want 142", lap.AvgHR)
	}
	if lap.MaxSpeed == nil || *lap.MaxSpeed != 11.1 {
		t.Errorf("lap max speed = %v, want 11.1", lap.MaxSpeed)
	}
	if act.Laps[1].Number != 1 {
		t.Errorf("second lap number = %d, want 1", act.Laps[1].Number)
	}

	// Point 3 lacks a position, point 4 has zero distance; both dropped.
	if len(act.Points) != 2 {
		t.Fatalf("points = %d, want 2", len(act.Points))
	}
	p := act.Points[1]
	if p.Latitude == nil || *p.Latitude != 41.701 {
		t.Errorf("point lat = %v, want 41.701", p.Latitude)
	}
	if p.HeartRate == nil || *p.HeartRate != 104 {
		t.Errorf("point hr = %v, want 104", p.HeartRate)
	}
	if p.DurationFromLast != 10 || p.DurationFromBegin != 10 {
		t.Errorf("point durations = %v/%v, want 10/10", p.DurationFromLast, p.DurationFromBegin)
	}
}

func TestParseGMNMalformed(t *testing.T) {
	_, err := Parse("bad.gmn", []byte(`<run><lap start="notatime"/></run>`))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if _, err := Parse("empty.gmn", []byte("   ")); err == nil {
		t.Error("expected error for empty gmn input")
	}
}
