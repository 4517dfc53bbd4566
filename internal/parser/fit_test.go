package parser

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"tracklog/internal/sport"
)

const testDegreesToSemicircles = 2147483648.0 / 180.0

// semicircles converts degrees at runtime; a constant expression here would
// not compile because the product has a fractional part.
func semicircles(deg float64) int32 {
	return int32(deg * testDegreesToSemicircles)
}

func buildFITFile(t *testing.T) []byte {
	t.Helper()
	start := time.Date(2023, 6, 10, 14, 0, 0, 0, time.UTC)

	fileID := mesgdef.NewFileId(nil)
	fileID.Type = typedef.FileActivity
	fileID.Manufacturer = typedef.ManufacturerDevelopment
	fileID.Product = 1
	fileID.TimeCreated = start

	mesgs := []proto.Message{fileID.ToMesg(nil)}

	dists := []uint32{0, 3500, 7000} // cm; first record is pre-GPS-lock
	for i, d := range dists {
		rec := mesgdef.NewRecord(nil)
		rec.Timestamp = start.Add(time.Duration(i*10) * time.Second)
		rec.PositionLat = semicircles(40.0 + float64(i)*0.001)
		rec.PositionLong = semicircles(-105.0)
		rec.Distance = d
		rec.EnhancedAltitude = uint32((200.0 + 500.0) * 5.0)
		rec.HeartRate = uint8(140 + i)
		rec.EnhancedSpeed = 3000 // mm/s
		mesgs = append(mesgs, rec.ToMesg(nil))
	}

	lap := mesgdef.NewLap(nil)
	lap.StartTime = start
	lap.Timestamp = start.Add(600 * time.Second)
	lap.TotalTimerTime = 600000 // ms
	lap.TotalDistance = 160934  // cm
	lap.TotalCalories = 96
	lap.AvgHeartRate = 145
	lap.MaxHeartRate = 165
	lap.Sport = typedef.SportRunning
	mesgs = append(mesgs, lap.ToMesg(nil))

	sess := mesgdef.NewSession(nil)
	sess.StartTime = start
	sess.Timestamp = start.Add(600 * time.Second)
	sess.Sport = typedef.SportRunning
	mesgs = append(mesgs, sess.ToMesg(nil))

	var buf bytes.Buffer
	enc := encoder.New(&buf)
	if err := enc.Encode(&proto.FIT{Messages: mesgs}); err != nil {
		t.Fatalf("encoding fit fixture: %v", err)
	}
	return buf.Bytes()
}

func TestParseFIT(t *testing.T) {
	data := buildFITFile(t)

	act, err := Parse("2023-06-10_14-00-00.fit", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if act.Sport != sport.Running {
		t.Errorf("sport = %q, want running", act.Sport)
	}
	if len(act.Laps) != 1 {
		t.Fatalf("laps = %d, want 1", len(act.Laps))
	}
	lap := act.Laps[0]
	if lap.Duration != 600 {
		t.Errorf("lap duration = %v, want 600", lap.Duration)
	}
	if math.Abs(lap.Distance-1609.34) > 1e-9 {
		t.Errorf("lap distance = %v, want 1609.34", lap.Distance)
	}
	if lap.Calories != 96 {
		t.Errorf("lap calories = %d, want 96", lap.Calories)
	}
	if lap.AvgHR == nil || *lap.AvgHR != 145 {
		t.Errorf("lap avg hr = %v, want 145", lap.AvgHR)
	}
	if lap.MaxHR == nil || *lap.MaxHR != 165 {
		t.Errorf("lap max hr = %v, want 165", lap.MaxHR)
	}
	wantStart := time.Date(2023, 6, 10, 14, 0, 0, 0, time.UTC)
	if !lap.Start.Equal(wantStart) {
		t.Errorf("lap start = %v, want %v", lap.Start, wantStart)
	}

	// First record carries a zero odometer and is dropped.
	if len(act.Points) != 2 {
		t.Fatalf("points = %d, want 2", len(act.Points))
	}
	p := act.Points[0]
	if p.Latitude == nil || math.Abs(*p.Latitude-40.001) > 1e-6 {
		t.Errorf("point lat = %v, want ~40.001", p.Latitude)
	}
	if p.Longitude == nil || math.Abs(*p.Longitude+105.0) > 1e-6 {
		t.Errorf("point lon = %v, want ~-105", p.Longitude)
	}
	if p.Distance == nil || *p.Distance != 35.0 {
		t.Errorf("point distance = %v, want 35", p.Distance)
	}
	if p.Altitude == nil || *p.Altitude != 200.0 {
		t.Errorf("point altitude = %v, want 200", p.Altitude)
	}
	if p.HeartRate == nil || *p.HeartRate != 141 {
		t.Errorf("point hr = %v, want 141", p.HeartRate)
	}
	if p.SpeedMPS != 3.0 {
		t.Errorf("point speed = %v, want 3.0", p.SpeedMPS)
	}
	p2 := act.Points[1]
	if p2.DurationFromLast != 10 || p2.DurationFromBegin != 10 {
		t.Errorf("second point durations = %v/%v, want 10/10", p2.DurationFromLast, p2.DurationFromBegin)
	}
}

func TestParseFITZeroedCRC(t *testing.T) {
	data := buildFITFile(t)

	// Known firmware bug: file CRC written as zero. The trailing two bytes of
	// a FIT file are the file CRC.
	corrupted := append([]byte(nil), data...)
	corrupted[len(corrupted)-2] = 0
	corrupted[len(corrupted)-1] = 0

	act, err := Parse("faulty.fit", corrupted)
	if err != nil {
		t.Fatalf("Parse with zeroed crc: %v", err)
	}
	want, err := Parse("ok.fit", data)
	if err != nil {
		t.Fatalf("Parse pristine: %v", err)
	}
	if len(act.Laps) != len(want.Laps) || len(act.Points) != len(want.Points) {
		t.Errorf("zeroed-crc parse differs: %d laps/%d points vs %d/%d",
			len(act.Laps), len(act.Points), len(want.Laps), len(want.Points))
	}
}

func TestParseFITGarbage(t *testing.T) {
	_, err := Parse("junk.fit", []byte("definitely not a fit file"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Format != FormatFIT {
		t.Errorf("format = %q, want fit", perr.Format)
	}
}
