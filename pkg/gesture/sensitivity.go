package gesture

// Sensitivity scales detector thresholds and output speeds. 1.0 is the
// stock behaviour; higher values make a control easier to trigger or faster.
type Sensitivity struct {
	Scroll      float64 `json:"scroll"`
	Click       float64 `json:"click"`
	Gesture     float64 `json:"gesture"`
	CursorSpeed float64 `json:"cursor_speed"`
}

// DefaultSensitivity returns unit multipliers.
func DefaultSensitivity() Sensitivity {
	return Sensitivity{Scroll: 1, Click: 1, Gesture: 1, CursorSpeed: 1}
}

// Percent is the user-facing form of Sensitivity, 100 meaning 1.0.
type Percent struct {
	Scroll      int `json:"scroll" yaml:"scroll"`
	Click       int `json:"click" yaml:"click"`
	Gesture     int `json:"gesture" yaml:"gesture"`
	CursorSpeed int `json:"cursor_speed" yaml:"cursor_speed"`
}

// Allowed percent ranges per setting.
var (
	ScrollRange      = [2]int{10, 200}
	ClickRange       = [2]int{50, 200}
	GestureRange     = [2]int{50, 200}
	CursorSpeedRange = [2]int{25, 200}
)

// Sensitivity converts percentages to multipliers, clamping each into its
// range. A zero field is unset and reads as 100.
func (p Percent) Sensitivity() Sensitivity {
	return Sensitivity{
		Scroll:      float64(clampInt(p.Scroll, ScrollRange)) / 100,
		Click:       float64(clampInt(p.Click, ClickRange)) / 100,
		Gesture:     float64(clampInt(p.Gesture, GestureRange)) / 100,
		CursorSpeed: float64(clampInt(p.CursorSpeed, CursorSpeedRange)) / 100,
	}
}

// Percent converts multipliers to rounded percentages.
func (s Sensitivity) Percent() Percent {
	return Percent{
		Scroll:      int(s.Scroll*100 + 0.5),
		Click:       int(s.Click*100 + 0.5),
		Gesture:     int(s.Gesture*100 + 0.5),
		CursorSpeed: int(s.CursorSpeed*100 + 0.5),
	}
}

// Normalized replaces non-positive multipliers with 1.
func (s Sensitivity) Normalized() Sensitivity {
	fix := func(v float64) float64 {
		if v <= 0 {
			return 1
		}
		return v
	}
	return Sensitivity{
		Scroll:      fix(s.Scroll),
		Click:       fix(s.Click),
		Gesture:     fix(s.Gesture),
		CursorSpeed: fix(s.CursorSpeed),
	}
}

func clampInt(v int, r [2]int) int {
	if v == 0 {
		return 100
	}
	return min(max(v, r[0]), r[1])
}
