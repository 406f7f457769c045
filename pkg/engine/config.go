package engine

import (
	"fmt"
	"maps"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-headpilot/pkg/calibration"
	"github.com/teslashibe/go-headpilot/pkg/dwell"
	"github.com/teslashibe/go-headpilot/pkg/gesture"
	"github.com/teslashibe/go-headpilot/pkg/mode"
	"github.com/teslashibe/go-headpilot/pkg/textfield"
	"github.com/teslashibe/go-headpilot/pkg/zone"
)

// CursorConfig controls head-driven cursor movement.
type CursorConfig struct {
	// GainX and GainY map 90 degrees of yaw/pitch to a fraction of the screen.
	GainX float64 `yaml:"gain_x" json:"gain_x"`
	GainY float64 `yaml:"gain_y" json:"gain_y"`

	// Smoothing is the EMA factor applied to cursor positions (0-1).
	// Lower is smoother.
	Smoothing float64 `yaml:"smoothing" json:"smoothing"`
}

// ScrollConfig controls head-driven scrolling.
type ScrollConfig struct {
	// MaxSpeed is the scroll delta in pixels per frame at full intensity.
	MaxSpeed float64 `yaml:"max_speed" json:"max_speed"`

	// MinDelta suppresses scroll intents smaller than this on both axes.
	MinDelta float64 `yaml:"min_delta" json:"min_delta"`
}

// Config holds every engine parameter.
type Config struct {
	Calibration calibration.Config `yaml:"calibration" json:"calibration"`
	Zones       zone.Thresholds    `yaml:"zones" json:"zones"`
	Mode        mode.Config        `yaml:"mode" json:"mode"`
	Gesture     gesture.Config     `yaml:"gesture" json:"gesture"`
	Dwell       dwell.Config       `yaml:"dwell" json:"dwell"`
	TextField   textfield.Config   `yaml:"text_field" json:"text_field"`
	Cursor      CursorConfig       `yaml:"cursor" json:"cursor"`
	Scroll      ScrollConfig       `yaml:"scroll" json:"scroll"`

	// Sensitivity is the initial user sensitivity, overridden by saved settings.
	Sensitivity gesture.Percent `yaml:"sensitivity" json:"sensitivity"`

	// StartEnabled turns control on as soon as calibration completes.
	StartEnabled bool `yaml:"start_enabled" json:"start_enabled"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Calibration: calibration.DefaultConfig(),
		Zones:       zone.DefaultThresholds(),
		Mode:        mode.DefaultConfig(),
		Gesture:     gesture.DefaultConfig(),
		Dwell:       dwell.DefaultConfig(),
		TextField:   textfield.DefaultConfig(),
		Cursor: CursorConfig{
			GainX:     0.15,
			GainY:     0.10,
			Smoothing: 0.3,
		},
		Scroll: ScrollConfig{
			MaxSpeed: 20,
			MinDelta: 1,
		},
		Sensitivity:  gesture.Percent{Scroll: 100, Click: 100, Gesture: 100, CursorSpeed: 100},
		StartEnabled: true,
	}
}

// RelaxedConfig returns settings for users who tire easily or have limited
// range of motion: longer windows, longer holds, wider dead-bands.
func RelaxedConfig() Config {
	c := DefaultConfig()
	c.Mode.Window = 25 * time.Second
	c.Mode.DoubleBlinkMaxGap = time.Second
	c.Zones.Pitch.CursorMax = 15
	c.Zones.Yaw.CursorMax = 18
	c.Dwell.MaxDwellTime = 3500 * time.Millisecond
	c.Dwell.Multipliers.Fatigued = 1.8
	c.Gesture.ClickMaxOpen = 2 * time.Second
	c.TextField.HoverDuration = 3 * time.Second
	c.Cursor.Smoothing = 0.2
	c.Scroll.MaxSpeed = 12
	return c
}

// ResponsiveConfig returns settings for experienced users: shorter holds,
// faster scrolling and cursor.
func ResponsiveConfig() Config {
	c := DefaultConfig()
	c.Mode.Window = 10 * time.Second
	c.Dwell.MinDwellTime = 200 * time.Millisecond
	c.Dwell.AdaptationRate = 0.15
	c.Gesture.Cooldowns.TabSwitch = 600 * time.Millisecond
	c.TextField.HoverDuration = 1500 * time.Millisecond
	c.Cursor.Smoothing = 0.5
	c.Scroll.MaxSpeed = 30
	return c
}

// Preset returns a named configuration.
func Preset(name string) (Config, error) {
	switch name {
	case "", "default":
		return DefaultConfig(), nil
	case "relaxed":
		return RelaxedConfig(), nil
	case "responsive":
		return ResponsiveConfig(), nil
	default:
		return Config{}, &ConfigError{Field: "preset", Message: fmt.Sprintf("unknown preset %q", name)}
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Calibration.Duration < 0 {
		return &ConfigError{Field: "calibration.duration", Message: "must not be negative"}
	}
	if c.Calibration.MinSamples < 1 {
		return &ConfigError{Field: "calibration.min_samples", Message: "must be at least 1"}
	}
	if c.Zones.NavigationMin <= c.Zones.Yaw.CursorMax {
		return &ConfigError{Field: "zones.navigation_min", Message: "must exceed the yaw cursor band"}
	}
	if c.Mode.Window <= 0 {
		return &ConfigError{Field: "mode.window", Message: "must be positive"}
	}
	if c.Mode.DoubleBlinkMaxGap <= c.Mode.DoubleBlinkMinGap {
		return &ConfigError{Field: "mode.double_blink_max_gap", Message: "must exceed the minimum gap"}
	}
	if c.Cursor.Smoothing <= 0 || c.Cursor.Smoothing > 1 {
		return &ConfigError{Field: "cursor.smoothing", Message: "must be in (0,1]"}
	}
	if err := c.Gesture.Validate(); err != nil {
		return &ConfigError{Field: "gesture", Message: err.Error()}
	}
	if err := c.Dwell.Validate(); err != nil {
		return &ConfigError{Field: "dwell", Message: err.Error()}
	}
	return nil
}

// LoadConfigFile decodes a YAML file over base. Fields absent from the file
// keep their base values.
func LoadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	cfg := base
	cfg.Dwell.BaseDwellTimes = maps.Clone(base.Dwell.BaseDwellTimes)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
