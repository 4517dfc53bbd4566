package fitbit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tracklog/internal/store"
)

// ErrBadMeasurement is returned for scale input that doesn't parse.
var ErrBadMeasurement = errors.New("bad scale measurement")

// ParseScaleLine parses the compact scale entry format: five non-negative
// integers with the trailing digit as tenths, separated by ',', ':' or '=',
// in the order mass, fat%, water%, muscle%, bone%. "1880=206=596=404=42" is
// 188.0 lbs, 20.6% fat, 59.6% water, 40.4% muscle, 4.2% bone. The reading
// is stamped with the given time.
func ParseScaleLine(line string, at time.Time) (*store.ScaleMeasurement, error) {
	line = strings.TrimSpace(line)

	var sep string
	switch {
	case strings.Contains(line, ","):
		sep = ","
	case strings.Contains(line, ":"):
		sep = ":"
	case strings.Contains(line, "="):
		sep = "="
	default:
		return nil, fmt.Errorf("%w: no separator in %q", ErrBadMeasurement, line)
	}

	parts := strings.Split(line, sep)
	if len(parts) < 5 {
		return nil, fmt.Errorf("%w: want 5 values, got %d", ErrBadMeasurement, len(parts))
	}

	values := make([]float64, 5)
	for i, p := range parts[:5] {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: value %q", ErrBadMeasurement, p)
		}
		values[i] = float64(n) / 10
	}

	return &store.ScaleMeasurement{
		ID:        uuid.NewString(),
		Datetime:  at.UTC(),
		Mass:      values[0],
		FatPct:    values[1],
		WaterPct:  values[2],
		MusclePct: values[3],
		BonePct:   values[4],
	}, nil
}
