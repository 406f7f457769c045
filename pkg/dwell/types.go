package dwell

import "time"

// Gesture names a family of gestures that share a dwell time.
type Gesture string

const (
	Click      Gesture = "click"
	Smile      Gesture = "smile"
	Wink       Gesture = "wink"
	Navigation Gesture = "navigation"
	TabSwitch  Gesture = "tabSwitch"
	Confirm    Gesture = "confirm"
)

// Risk classifies how costly an accidental trigger is.
type Risk int

const (
	RiskNormal Risk = iota
	RiskLow
	RiskHigh
)

// Context selects the multiplier applied to a dwell time.
type Context string

const (
	ContextNormal    Context = "normal"
	ContextHighRisk  Context = "highRisk"
	ContextLowRisk   Context = "lowRisk"
	ContextFatigued  Context = "fatigued"
	ContextConfident Context = "confident"
)

// Fatigue is the user's inferred state from recent accuracy and pace.
type Fatigue string

const (
	FatigueNormal    Fatigue = "normal"
	FatigueFatigued  Fatigue = "fatigued"
	FatigueConfident Fatigue = "confident"
)

// Outcome is one resolved gesture attempt.
type Outcome struct {
	Timestamp  time.Time     `json:"timestamp"`
	Duration   time.Duration `json:"duration"`
	Successful bool          `json:"successful"`
}

// History is a gesture's bounded record of recent attempts.
type History struct {
	Successes   []Outcome     `json:"successes"`
	Failures    []Outcome     `json:"failures"`
	AverageTime time.Duration `json:"average_time"`
}

// Stats summarizes one gesture for display.
type Stats struct {
	Gesture          Gesture       `json:"gesture"`
	SuccessRate      float64       `json:"success_rate"`
	TotalAttempts    int           `json:"total_attempts"`
	Successes        int           `json:"successes"`
	Failures         int           `json:"failures"`
	AverageTime      time.Duration `json:"average_time"`
	CurrentDwellTime time.Duration `json:"current_dwell_time"`
}
