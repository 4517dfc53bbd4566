// Package units holds distance and pace conversions shared by the parser,
// correction, and report layers.
package units

import (
	"fmt"
	"time"
)

const (
	MetersPerMile = 1609.344
	MetersPerKm   = 1000.0
)

func MilesToMeters(mi float64) float64 { return mi * MetersPerMile }

func MetersToMiles(m float64) float64 { return m / MetersPerMile }

// PaceMinPerMile converts a speed in meters/second to minutes per mile.
// Zero speed yields zero pace.
func PaceMinPerMile(mps float64) float64 {
	if mps <= 0 {
		return 0
	}
	return MetersPerMile / mps / 60.0
}

// SpeedMPH converts meters/second to miles/hour.
func SpeedMPH(mps float64) float64 {
	return mps * 3600.0 / MetersPerMile
}

// FormatHMS renders a duration in seconds as H:MM:SS, or MM:SS under an hour.
func FormatHMS(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// ParseHMS parses H:M:S or M:S into seconds.
func ParseHMS(s string) (float64, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err == nil {
		return float64(h*3600 + m*60 + sec), nil
	}
	if _, err := fmt.Sscanf(s, "%d:%d", &m, &sec); err == nil {
		return float64(m*60 + sec), nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}
