// Package zone maps a normalized head pose to the interaction mode it selects.
package zone

import "math"

// Zone is a mutually exclusive interaction region of head-pose space.
type Zone int

const (
	Neutral Zone = iota
	Cursor
	Scroll
	Navigation
)

// String returns the zone name.
func (z Zone) String() string {
	switch z {
	case Neutral:
		return "neutral"
	case Cursor:
		return "cursor"
	case Scroll:
		return "scroll"
	case Navigation:
		return "navigation"
	default:
		return "unknown"
	}
}

// MarshalText encodes the zone by name.
func (z Zone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// AxisThresholds bounds the cursor and scroll bands on one axis, in degrees.
type AxisThresholds struct {
	// CursorMax is the edge of the cursor dead-band.
	CursorMax float64 `yaml:"cursor_max" json:"cursor_max"`

	// ScrollMin is where scrolling starts.
	ScrollMin float64 `yaml:"scroll_min" json:"scroll_min"`

	// ScrollMax is where scroll intensity saturates.
	ScrollMax float64 `yaml:"scroll_max" json:"scroll_max"`
}

// Thresholds configures the classifier.
type Thresholds struct {
	Pitch AxisThresholds `yaml:"pitch" json:"pitch"`
	Yaw   AxisThresholds `yaml:"yaw" json:"yaw"`

	// NavigationMin is the yaw beyond which the head is considered turned away.
	NavigationMin float64 `yaml:"navigation_min" json:"navigation_min"`
}

// DefaultThresholds returns the stock zone layout.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pitch: AxisThresholds{
			CursorMax: 12,
			ScrollMin: 15,
			ScrollMax: 60,
		},
		Yaw: AxisThresholds{
			CursorMax: 15,
			ScrollMin: 25,
			ScrollMax: 60,
		},
		NavigationMin: 40,
	}
}

// Classify returns the zone for a pose. Every pose maps to exactly one zone;
// navigation wins over scroll, scroll over cursor.
func (t Thresholds) Classify(pitch, yaw float64) Zone {
	ap, ay := math.Abs(pitch), math.Abs(yaw)

	switch {
	case ay > t.NavigationMin:
		return Navigation
	case ap > t.Pitch.ScrollMin || (ay > t.Yaw.ScrollMin && ay < t.NavigationMin):
		return Scroll
	case ap < t.Pitch.CursorMax && ay < t.Yaw.CursorMax:
		return Cursor
	default:
		return Neutral
	}
}

// Intensity is the signed scroll strength on each axis in [-1,1]. It ramps
// linearly from 0 at ScrollMin to 1 at ScrollMax.
type Intensity struct {
	Vertical   float64 `json:"vertical"`
	Horizontal float64 `json:"horizontal"`
}

// Intensity computes scroll intensity for a pose.
func (t Thresholds) Intensity(pitch, yaw float64) Intensity {
	return Intensity{
		Vertical:   ramp(pitch, t.Pitch),
		Horizontal: ramp(yaw, t.Yaw),
	}
}

func ramp(v float64, a AxisThresholds) float64 {
	span := a.ScrollMax - a.ScrollMin
	if span <= 0 {
		return 0
	}
	mag := (math.Abs(v) - a.ScrollMin) / span
	mag = math.Max(0, math.Min(1, mag))
	return math.Copysign(mag, v)
}
