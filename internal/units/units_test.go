package units

import (
	"math"
	"testing"
)

func TestMilesMetersRoundTrip(t *testing.T) {
	if got := MilesToMeters(11.0); math.Abs(got-17702.784) > 1e-9 {
		t.Errorf("MilesToMeters(11) = %v, want 17702.784", got)
	}
	if got := MetersToMiles(MetersPerMile); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("MetersToMiles(1 mile) = %v, want 1", got)
	}
}

func TestPaceMinPerMile(t *testing.T) {
	// 8:00/mi pace is one mile per 480 seconds.
	mps := MetersPerMile / 480.0
	if got := PaceMinPerMile(mps); math.Abs(got-8.0) > 1e-9 {
		t.Errorf("PaceMinPerMile = %v, want 8.0", got)
	}
	if got := PaceMinPerMile(0); got != 0 {
		t.Errorf("PaceMinPerMile(0) = %v, want 0", got)
	}
}

func TestFormatHMS(t *testing.T) {
	tests := []struct {
		sec  float64
		want string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{65, "01:05"},
		{3600, "1:00:00"},
		{3723, "1:02:03"},
		{6600, "1:50:00"},
	}
	for _, tt := range tests {
		if got := FormatHMS(tt.sec); got != tt.want {
			t.Errorf("FormatHMS(%v) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}

func TestParseHMS(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1:02:03", 3723},
		{"10:00", 600},
		{"00:40", 40},
		{"1:50:00", 6600},
	}
	for _, tt := range tests {
		got, err := ParseHMS(tt.in)
		if err != nil {
			t.Fatalf("ParseHMS(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseHMS(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseHMS("junk"); err == nil {
		t.Error("ParseHMS(junk) expected error")
	}
}
