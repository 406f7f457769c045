package dwell

import (
	"fmt"
	"time"
)

// Multipliers scale a dwell time for the situation it is requested in.
type Multipliers struct {
	// HighRisk lengthens holds for destructive actions (close tab, navigate).
	HighRisk float64 `yaml:"high_risk" json:"high_risk"`

	// LowRisk shortens holds for easily undone actions.
	LowRisk float64 `yaml:"low_risk" json:"low_risk"`

	// Fatigued lengthens holds while the user is making many errors.
	Fatigued float64 `yaml:"fatigued" json:"fatigued"`

	// Confident shortens holds while the user is accurate.
	Confident float64 `yaml:"confident" json:"confident"`
}

// FatigueConfig controls the fatigue classifier.
type FatigueConfig struct {
	// Window is the trailing period of attempts considered.
	Window time.Duration `yaml:"window" json:"window"`

	// CheckInterval is the minimum time between reclassifications.
	CheckInterval time.Duration `yaml:"check_interval" json:"check_interval"`

	// MinAttempts below which the state is always normal.
	MinAttempts int `yaml:"min_attempts" json:"min_attempts"`

	// MaxErrorRate above which the user is fatigued.
	MaxErrorRate float64 `yaml:"max_error_rate" json:"max_error_rate"`

	// MaxPerMinute attempt rate above which the user is fatigued.
	MaxPerMinute float64 `yaml:"max_per_minute" json:"max_per_minute"`

	// ConfidentErrorRate below which, with enough successes, the user is confident.
	ConfidentErrorRate float64 `yaml:"confident_error_rate" json:"confident_error_rate"`

	// ConfidentSuccesses is the success count needed for confident.
	ConfidentSuccesses int `yaml:"confident_successes" json:"confident_successes"`
}

// Config holds the adaptive dwell parameters.
type Config struct {
	// BaseDwellTimes seeds each gesture's dwell time.
	BaseDwellTimes map[Gesture]time.Duration `yaml:"base_dwell_times" json:"base_dwell_times"`

	// MinDwellTime and MaxDwellTime bound every dwell time returned.
	MinDwellTime time.Duration `yaml:"min_dwell_time" json:"min_dwell_time"`
	MaxDwellTime time.Duration `yaml:"max_dwell_time" json:"max_dwell_time"`

	// AdaptationRate is the step size and smoothing factor of each update (0-1).
	AdaptationRate float64 `yaml:"adaptation_rate" json:"adaptation_rate"`

	// MinAttempts before a gesture's dwell time starts adapting.
	MinAttempts int `yaml:"min_attempts" json:"min_attempts"`

	// HistorySuccesses and HistoryFailures cap the per-gesture ring buffers.
	HistorySuccesses int `yaml:"history_successes" json:"history_successes"`
	HistoryFailures  int `yaml:"history_failures" json:"history_failures"`

	// StaleAfter discards a stored profile older than this.
	StaleAfter time.Duration `yaml:"stale_after" json:"stale_after"`

	Multipliers Multipliers   `yaml:"multipliers" json:"multipliers"`
	Fatigue     FatigueConfig `yaml:"fatigue" json:"fatigue"`
}

// DefaultConfig returns the stock dwell parameters.
func DefaultConfig() Config {
	return Config{
		BaseDwellTimes: map[Gesture]time.Duration{
			Click:      800 * time.Millisecond,
			Smile:      1500 * time.Millisecond,
			Wink:       1000 * time.Millisecond,
			Navigation: 500 * time.Millisecond,
			TabSwitch:  0,
			Confirm:    1000 * time.Millisecond,
		},
		MinDwellTime:     300 * time.Millisecond,
		MaxDwellTime:     2500 * time.Millisecond,
		AdaptationRate:   0.1,
		MinAttempts:      3,
		HistorySuccesses: 20,
		HistoryFailures:  10,
		StaleAfter:       7 * 24 * time.Hour,
		Multipliers: Multipliers{
			HighRisk:  1.3,
			LowRisk:   0.8,
			Fatigued:  1.5,
			Confident: 0.9,
		},
		Fatigue: FatigueConfig{
			Window:             5 * time.Minute,
			CheckInterval:      30 * time.Second,
			MinAttempts:        10,
			MaxErrorRate:       0.4,
			MaxPerMinute:       30,
			ConfidentErrorRate: 0.15,
			ConfidentSuccesses: 15,
		},
	}
}

// Validate checks the config for values the manager cannot work with.
func (c Config) Validate() error {
	if c.MinDwellTime < 0 || c.MaxDwellTime < c.MinDwellTime {
		return fmt.Errorf("dwell: min %v / max %v out of order", c.MinDwellTime, c.MaxDwellTime)
	}
	if c.AdaptationRate < 0 || c.AdaptationRate > 1 {
		return fmt.Errorf("dwell: adaptation rate %v outside [0,1]", c.AdaptationRate)
	}
	if c.HistorySuccesses <= 0 || c.HistoryFailures <= 0 {
		return fmt.Errorf("dwell: history sizes must be positive")
	}
	if c.Fatigue.Window <= 0 {
		return fmt.Errorf("dwell: fatigue window must be positive")
	}
	return nil
}
