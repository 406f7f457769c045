package gesture

import (
	"time"

	"github.com/teslashibe/go-headpilot/pkg/dwell"
)

// Click is the two-stage mouth-open click. Opening the mouth starts stage
// one; holding it for the hold time arms stage two; closing within maxOpen
// of arming fires. Any other close fails the attempt.
type Click struct {
	hold    time.Duration
	maxOpen time.Duration

	attempt *Attempt
	armedAt time.Time
	latched bool
}

// NewClick creates a click detector.
func NewClick(hold, maxOpen time.Duration) *Click {
	return &Click{hold: hold, maxOpen: maxOpen}
}

// Update advances the detector with the current mouth state.
func (c *Click) Update(open bool, at time.Time) Resolution {
	if !open {
		c.latched = false
		if c.attempt == nil {
			return Resolution{}
		}
		d := at.Sub(c.attempt.Start)
		armed := c.attempt.Stage == 2
		c.attempt = nil
		if armed && at.Sub(c.armedAt) < c.maxOpen {
			return Resolution{Event: EventFired, Duration: d}
		}
		return Resolution{Event: EventFailed, Duration: d}
	}

	if c.latched {
		return Resolution{}
	}
	if c.attempt == nil {
		c.attempt = &Attempt{Gesture: dwell.Click, Start: at, Stage: 1}
		return Resolution{Event: EventStarted}
	}

	switch {
	case c.attempt.Stage == 2 && at.Sub(c.armedAt) >= c.maxOpen:
		// Held too long to be a click; wait for the mouth to close.
		return c.Cancel(at)
	case c.attempt.Stage == 1 && at.Sub(c.attempt.Start) >= c.hold:
		c.attempt.Stage = 2
		c.armedAt = at
		return Resolution{Event: EventArmed}
	}
	return Resolution{}
}

// Cancel abandons an open attempt as a failure.
func (c *Click) Cancel(at time.Time) Resolution {
	if c.attempt == nil {
		return Resolution{}
	}
	d := at.Sub(c.attempt.Start)
	c.attempt = nil
	c.latched = true
	return Resolution{Event: EventFailed, Duration: d}
}

// Attempt returns the open attempt, if any.
func (c *Click) Attempt() (Attempt, bool) {
	if c.attempt == nil {
		return Attempt{}, false
	}
	return *c.attempt, true
}

// Progress is the fraction of the arming hold completed, in [0,1].
func (c *Click) Progress(at time.Time) float64 {
	if c.attempt == nil {
		return 0
	}
	if c.attempt.Stage == 2 || c.hold <= 0 {
		return 1
	}
	return min(float64(at.Sub(c.attempt.Start))/float64(c.hold), 1)
}
