// Package mode implements the top-level control state machine.
//
// Neutral allows only the always-on controls. A double blink arms
// GestureActive for a fixed window that every successful gesture renews. A
// brow raise toggles between GestureActive and TextField.
package mode

import (
	"time"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/expression"
)

// Mode is the controller state.
type Mode int

const (
	Neutral Mode = iota
	GestureActive
	TextField
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Neutral:
		return "neutral"
	case GestureActive:
		return "gesture_active"
	case TextField:
		return "text_field"
	default:
		return "unknown"
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Reason explains a transition.
type Reason string

const (
	ReasonWake     Reason = "double_blink"
	ReasonTimeout  Reason = "timeout"
	ReasonBrow     Reason = "brow_raise"
	ReasonDisabled Reason = "disabled"
)

// Transition is one mode change.
type Transition struct {
	From   Mode
	To     Mode
	Reason Reason
	At     time.Time
}

// Config holds the mode controller thresholds.
type Config struct {
	// Window is how long GestureActive lasts without a successful gesture.
	Window time.Duration `yaml:"window" json:"window"`

	// BlinkHigh is the lid score both eyes must exceed to count as closed.
	BlinkHigh float64 `yaml:"blink_high" json:"blink_high"`

	// BlinkLow is the score both eyes must drop below before the next blink.
	BlinkLow float64 `yaml:"blink_low" json:"blink_low"`

	// DoubleBlinkMinGap and DoubleBlinkMaxGap bound the time between blinks.
	DoubleBlinkMinGap time.Duration `yaml:"double_blink_min_gap" json:"double_blink_min_gap"`
	DoubleBlinkMaxGap time.Duration `yaml:"double_blink_max_gap" json:"double_blink_max_gap"`

	// BrowHigh is the mean brow score that counts as a raise.
	BrowHigh float64 `yaml:"brow_high" json:"brow_high"`

	// BrowLow re-arms the brow trigger.
	BrowLow float64 `yaml:"brow_low" json:"brow_low"`

	// BrowCooldown is the minimum time between brow toggles.
	BrowCooldown time.Duration `yaml:"brow_cooldown" json:"brow_cooldown"`
}

// DefaultConfig returns the stock mode thresholds.
func DefaultConfig() Config {
	return Config{
		Window:            15 * time.Second,
		BlinkHigh:         0.7,
		BlinkLow:          0.3,
		DoubleBlinkMinGap: 100 * time.Millisecond,
		DoubleBlinkMaxGap: 800 * time.Millisecond,
		BrowHigh:          0.4,
		BrowLow:           0.3,
		BrowCooldown:      time.Second,
	}
}

// Controller holds the single current mode. Not safe for concurrent use.
type Controller struct {
	cfg Config

	mode      Mode
	changedAt time.Time
	deadline  time.Time

	// double blink
	eyesClosed bool
	lastBlink  time.Time

	// brow raise
	browArmed     bool
	browNotBefore time.Time
}

// NewController starts in Neutral.
func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg, browArmed: true}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// ChangedAt returns when the current mode was entered.
func (c *Controller) ChangedAt() time.Time {
	return c.changedAt
}

// Remaining returns the time left in the GestureActive window.
func (c *Controller) Remaining(at time.Time) time.Duration {
	if c.mode != GestureActive {
		return 0
	}
	return max(c.deadline.Sub(at), 0)
}

// Update evaluates timer expiry, the wake gesture and the brow toggle, in
// that order, and returns the transitions taken.
func (c *Controller) Update(scores expression.Scores, at time.Time) []Transition {
	var out []Transition

	if c.mode == GestureActive && !at.Before(c.deadline) {
		out = append(out, c.set(Neutral, ReasonTimeout, at))
	}

	if c.doubleBlink(scores, at) {
		switch c.mode {
		case Neutral:
			out = append(out, c.set(GestureActive, ReasonWake, at))
		case GestureActive:
			c.Extend(at)
		}
	}

	if c.browRaise(scores, at) {
		switch c.mode {
		case GestureActive:
			out = append(out, c.set(TextField, ReasonBrow, at))
		case TextField:
			out = append(out, c.set(GestureActive, ReasonBrow, at))
		}
	}

	return out
}

// Extend renews the GestureActive window after a successful gesture.
func (c *Controller) Extend(at time.Time) {
	if c.mode != GestureActive {
		return
	}
	c.deadline = at.Add(c.cfg.Window)
}

// Reset forces Neutral, returning the transition if the mode changed.
func (c *Controller) Reset(at time.Time) (Transition, bool) {
	c.lastBlink = time.Time{}
	if c.mode == Neutral {
		return Transition{}, false
	}
	return c.set(Neutral, ReasonDisabled, at), true
}

func (c *Controller) set(to Mode, reason Reason, at time.Time) Transition {
	tr := Transition{From: c.mode, To: to, Reason: reason, At: at}
	c.mode = to
	c.changedAt = at
	if to == GestureActive {
		c.deadline = at.Add(c.cfg.Window)
	}
	log.Info("mode changed", "from", tr.From, "to", tr.To, "reason", reason)
	return tr
}

// doubleBlink reports a second blink landing inside the gap window.
// A blink is the moment both lids cross BlinkHigh; the next one is only
// counted after both have opened below BlinkLow.
func (c *Controller) doubleBlink(s expression.Scores, at time.Time) bool {
	l, r := s.Get(expression.EyeBlinkLeft), s.Get(expression.EyeBlinkRight)

	fired := false
	if l > c.cfg.BlinkHigh && r > c.cfg.BlinkHigh && !c.eyesClosed {
		c.eyesClosed = true
		gap := at.Sub(c.lastBlink)
		if !c.lastBlink.IsZero() && gap > c.cfg.DoubleBlinkMinGap && gap < c.cfg.DoubleBlinkMaxGap {
			fired = true
			c.lastBlink = time.Time{}
		} else {
			c.lastBlink = at
		}
	}
	if l < c.cfg.BlinkLow && r < c.cfg.BlinkLow {
		c.eyesClosed = false
	}
	return fired
}

// browRaise is edge-triggered: it fires once per raise, and not again until
// the brows drop below BrowLow and the cooldown has passed. A raise outside
// the gesture modes consumes the edge.
func (c *Controller) browRaise(s expression.Scores, at time.Time) bool {
	v := s.BrowRaise()

	fired := false
	if v > c.cfg.BrowHigh && c.browArmed && !at.Before(c.browNotBefore) {
		c.browArmed = false
		if c.mode != Neutral {
			fired = true
			c.browNotBefore = at.Add(c.cfg.BrowCooldown)
		}
	}
	if v < c.cfg.BrowLow {
		c.browArmed = true
	}
	return fired
}
