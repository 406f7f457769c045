package gesture

import (
	"fmt"
	"time"
)

// Thresholds are the expression and pose limits the detectors compare
// against, before sensitivity scaling.
type Thresholds struct {
	Smile        float64 `yaml:"smile" json:"smile"`
	WinkLeft     float64 `yaml:"wink_left" json:"wink_left"`
	WinkRight    float64 `yaml:"wink_right" json:"wink_right"`
	WinkOtherMax float64 `yaml:"wink_other_max" json:"wink_other_max"`
	JawOpen      float64 `yaml:"jaw_open" json:"jaw_open"`

	// RollLeft is negative, RollRight positive, in degrees.
	RollLeft  float64 `yaml:"roll_left" json:"roll_left"`
	RollRight float64 `yaml:"roll_right" json:"roll_right"`

	// TiltMaxYaw suppresses tilts while the head is turned further than this.
	TiltMaxYaw float64 `yaml:"tilt_max_yaw" json:"tilt_max_yaw"`

	// YawBack is negative, YawForward positive, in degrees.
	YawBack    float64 `yaml:"yaw_back" json:"yaw_back"`
	YawForward float64 `yaml:"yaw_forward" json:"yaw_forward"`

	// MinYawChange is the frame-to-frame yaw step a snap turn needs.
	MinYawChange float64 `yaml:"min_yaw_change" json:"min_yaw_change"`
}

// CooldownConfig is the minimum spacing between repeats of each action.
type CooldownConfig struct {
	Click           time.Duration `yaml:"click" json:"click"`
	Navigation      time.Duration `yaml:"navigation" json:"navigation"`
	NewTab          time.Duration `yaml:"new_tab" json:"new_tab"`
	CloseTab        time.Duration `yaml:"close_tab" json:"close_tab"`
	Refresh         time.Duration `yaml:"refresh" json:"refresh"`
	TabSwitch       time.Duration `yaml:"tab_switch" json:"tab_switch"`
	TextFieldSwitch time.Duration `yaml:"text_field_switch" json:"text_field_switch"`
	Confirm         time.Duration `yaml:"confirm" json:"confirm"`
}

// Config holds the detector configuration.
type Config struct {
	Thresholds Thresholds     `yaml:"thresholds" json:"thresholds"`
	Cooldowns  CooldownConfig `yaml:"cooldowns" json:"cooldowns"`

	// ClickHold is how long the mouth must stay open to arm a click.
	ClickHold time.Duration `yaml:"click_hold" json:"click_hold"`

	// ClickMaxOpen is the window after arming in which closing the mouth
	// still counts as a click.
	ClickMaxOpen time.Duration `yaml:"click_max_open" json:"click_max_open"`
}

// DefaultConfig returns the stock detector configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{
			Smile:        0.5,
			WinkLeft:     0.6,
			WinkRight:    0.6,
			WinkOtherMax: 0.4,
			JawOpen:      0.4,
			RollLeft:     -25,
			RollRight:    25,
			TiltMaxYaw:   40,
			YawBack:      -50,
			YawForward:   50,
			MinYawChange: 15,
		},
		Cooldowns: CooldownConfig{
			Click:           time.Second,
			Navigation:      2 * time.Second,
			NewTab:          2 * time.Second,
			CloseTab:        2 * time.Second,
			Refresh:         2 * time.Second,
			TabSwitch:       time.Second,
			TextFieldSwitch: 500 * time.Millisecond,
			Confirm:         2 * time.Second,
		},
		ClickHold:    800 * time.Millisecond,
		ClickMaxOpen: 1500 * time.Millisecond,
	}
}

// Validate checks for values the detectors cannot work with.
func (c Config) Validate() error {
	th := c.Thresholds
	if th.RollLeft >= 0 || th.RollRight <= 0 {
		return fmt.Errorf("gesture: roll thresholds must straddle zero (got %v, %v)", th.RollLeft, th.RollRight)
	}
	if th.YawBack >= 0 || th.YawForward <= 0 {
		return fmt.Errorf("gesture: yaw thresholds must straddle zero (got %v, %v)", th.YawBack, th.YawForward)
	}
	if c.ClickHold <= 0 || c.ClickMaxOpen <= 0 {
		return fmt.Errorf("gesture: click hold %v and max open %v must be positive", c.ClickHold, c.ClickMaxOpen)
	}
	return nil
}
