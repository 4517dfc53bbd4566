package sport

import "strings"

// Sport is the normalized activity classification stored on summaries and
// provider records. The zero value is None.
type Sport string

const (
	Running     Sport = "running"
	Biking      Sport = "biking"
	Walking     Sport = "walking"
	Hiking      Sport = "hiking"
	Ultimate    Sport = "ultimate"
	Elliptical  Sport = "elliptical"
	Stairs      Sport = "stairs"
	Lifting     Sport = "lifting"
	Swimming    Sport = "swimming"
	Other       Sport = "other"
	Snowshoeing Sport = "snowshoeing"
	Skiing      Sport = "skiing"
	None        Sport = "none"
)

var aliases = map[string]Sport{
	"running":     Running,
	"run":         Running,
	"bicycle":     Biking,
	"bicycling":   Biking,
	"biking":      Biking,
	"bike":        Biking,
	"cycling":     Biking,
	"ride":        Biking,
	"walking":     Walking,
	"walk":        Walking,
	"hiking":      Hiking,
	"hike":        Hiking,
	"ultimate":    Ultimate,
	"frisbee":     Ultimate,
	"elliptical":  Elliptical,
	"stairs":      Stairs,
	"lifting":     Lifting,
	"lift":        Lifting,
	"swimming":    Swimming,
	"swim":        Swimming,
	"other":       Other,
	"snowshoeing": Snowshoeing,
	"skiing":      Skiing,
	"none":        None,
}

// Parse maps a free-form sport string (device or operator supplied) onto a
// Sport. Matching is case-insensitive and accepts common aliases ("bike",
// "run", "frisbee"). The second return is false when the string is unknown.
func Parse(s string) (Sport, bool) {
	sp, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	return sp, ok
}

// ParseOr is Parse with a fallback for unknown strings.
func ParseOr(s string, fallback Sport) Sport {
	if sp, ok := Parse(s); ok {
		return sp
	}
	return fallback
}

func (s Sport) String() string { return string(s) }

// Valid reports whether s is one of the closed set of sports.
func (s Sport) Valid() bool {
	_, ok := aliases[string(s)]
	return ok
}

var fromStrava = map[string]Sport{
	"Run":            Running,
	"Ride":           Biking,
	"Walk":           Walking,
	"Hike":           Hiking,
	"Elliptical":     Elliptical,
	"StairStepper":   Stairs,
	"WeightTraining": Lifting,
	"Swim":           Swimming,
	"Snowshoe":       Snowshoeing,
	"NordicSki":      Skiing,
}

// FromStrava maps a Strava activity type onto a Sport, defaulting to Other
// for types without a local equivalent.
func FromStrava(activityType string) Sport {
	if sp, ok := fromStrava[activityType]; ok {
		return sp
	}
	return Other
}

// ToStrava maps a Sport back onto the Strava activity type name.
func (s Sport) ToStrava() string {
	switch s {
	case Running:
		return "Run"
	case Biking:
		return "Ride"
	case Walking:
		return "Walk"
	case Hiking:
		return "Hike"
	case Elliptical:
		return "Elliptical"
	case Stairs:
		return "StairStepper"
	case Lifting:
		return "WeightTraining"
	case Swimming:
		return "Swim"
	case Snowshoeing:
		return "Snowshoe"
	case Skiing:
		return "NordicSki"
	case None:
		return "None"
	default:
		return "Other"
	}
}

var fromFitbitID = map[int64]Sport{
	90009: Running,
	90013: Walking,
	15000: Walking,
	90001: Biking,
	1071:  Biking,
	90012: Hiking,
	15250: Ultimate,
	90017: Elliptical,
	12170: Stairs,
	2050:  Lifting,
	18300: Swimming,
	19190: Snowshoeing,
	90015: Skiing,
}

// FromFitbitID maps a Fitbit activity type id onto a Sport, defaulting to None.
func FromFitbitID(id int64) Sport {
	if sp, ok := fromFitbitID[id]; ok {
		return sp
	}
	return None
}
