package corrections

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// The operator document maps an activity's first-lap start time to per-lap
// overrides:
//
//	{
//	  "2014-01-12T16:00:05Z": {
//	    "0": 4.0,          distance, miles
//	    "1": [4.0, 1200],  [distance miles, duration seconds]
//	    "sport": "biking"  applies to every lap of the activity
//	  }
//	}

// ParseJSON decodes the operator correction document into rows.
func ParseJSON(data []byte) ([]Correction, error) {
	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding corrections document: %w", err)
	}

	var out []Correction
	for startStr, lapEntries := range doc {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, fmt.Errorf("invalid start time %q: %w", startStr, err)
		}
		start = start.UTC()

		var sportName *string
		var rows []Correction
		for lapKey, raw := range lapEntries {
			if lapKey == "sport" {
				var s string
				if err := json.Unmarshal(raw, &s); err != nil {
					return nil, fmt.Errorf("invalid sport for %s: %w", startStr, err)
				}
				sportName = &s
				continue
			}
			lapNumber, err := strconv.Atoi(lapKey)
			if err != nil {
				return nil, fmt.Errorf("invalid lap number %q for %s", lapKey, startStr)
			}
			corr := Correction{StartTime: start, LapNumber: lapNumber}
			if err := unmarshalOverride(raw, &corr); err != nil {
				return nil, fmt.Errorf("invalid override for %s lap %d: %w", startStr, lapNumber, err)
			}
			rows = append(rows, corr)
		}

		// A sport key covers every lap of the activity; with no lap entries it
		// still needs a carrier row, which addresses lap 0.
		if sportName != nil {
			if len(rows) == 0 {
				rows = append(rows, Correction{StartTime: start, LapNumber: 0})
			}
			for i := range rows {
				rows[i].Sport = sportName
			}
		}
		out = append(out, rows...)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].LapNumber < out[j].LapNumber
	})
	return out, nil
}

// unmarshalOverride accepts either a bare number (distance in miles) or a
// [distance, duration] pair where either element may be null.
func unmarshalOverride(raw json.RawMessage, corr *Correction) error {
	var dist float64
	if err := json.Unmarshal(raw, &dist); err == nil {
		corr.Distance = &dist
		return nil
	}
	var pair []*float64
	if err := json.Unmarshal(raw, &pair); err != nil {
		return fmt.Errorf("expected number or [distance, duration]")
	}
	if len(pair) > 0 && pair[0] != nil {
		corr.Distance = pair[0]
	}
	if len(pair) > 1 && pair[1] != nil {
		corr.Duration = pair[1]
	}
	return nil
}

// MarshalJSON renders rows back into the operator document shape. Rows are
// grouped by start time; a row carrying only a sport contributes just the
// activity-level "sport" key.
func MarshalJSON(corrs []Correction) ([]byte, error) {
	doc := map[string]map[string]any{}
	for _, c := range corrs {
		key := c.StartTime.UTC().Format(time.RFC3339)
		entry, ok := doc[key]
		if !ok {
			entry = map[string]any{}
			doc[key] = entry
		}
		if c.Sport != nil {
			entry["sport"] = *c.Sport
		}
		lapKey := strconv.Itoa(c.LapNumber)
		switch {
		case c.Distance != nil && c.Duration != nil:
			entry[lapKey] = []any{*c.Distance, *c.Duration}
		case c.Distance != nil:
			entry[lapKey] = *c.Distance
		case c.Duration != nil:
			entry[lapKey] = []any{nil, *c.Duration}
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}
