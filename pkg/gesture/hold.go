package gesture

import (
	"time"

	"github.com/teslashibe/go-headpilot/pkg/dwell"
)

// Event is what a detector reports for one tick.
type Event int

const (
	EventNone Event = iota
	EventStarted
	EventArmed
	EventFired
	EventFailed
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventArmed:
		return "armed"
	case EventFired:
		return "fired"
	case EventFailed:
		return "failed"
	default:
		return "none"
	}
}

// Resolution is a detector's verdict for one tick. Duration is set for
// EventFired and EventFailed and measures the whole attempt.
type Resolution struct {
	Event    Event
	Duration time.Duration
}

// Attempt is an in-progress gesture.
type Attempt struct {
	Gesture dwell.Gesture `json:"gesture"`
	Start   time.Time     `json:"start"`
	Stage   int           `json:"stage"`
}

// Hold detects a condition held for a dwell time. After resolving, the
// condition must be released before a new attempt can start.
type Hold struct {
	gesture dwell.Gesture
	attempt *Attempt
	dwell   time.Duration
	latched bool
}

// NewHold creates a hold detector for g.
func NewHold(g dwell.Gesture) *Hold {
	return &Hold{gesture: g}
}

// Gesture returns the dwell family this detector belongs to.
func (h *Hold) Gesture() dwell.Gesture {
	return h.gesture
}

// Update advances the detector. dwell is the hold time currently required.
func (h *Hold) Update(active bool, dwell time.Duration, at time.Time) Resolution {
	if !active {
		h.latched = false
		return h.release(at)
	}
	if h.latched {
		return Resolution{}
	}

	ev := EventNone
	if h.attempt == nil {
		h.attempt = &Attempt{Gesture: h.gesture, Start: at, Stage: 1}
		ev = EventStarted
	}
	h.dwell = dwell

	if elapsed := at.Sub(h.attempt.Start); elapsed >= dwell {
		h.attempt = nil
		h.latched = true
		return Resolution{Event: EventFired, Duration: elapsed}
	}
	return Resolution{Event: ev}
}

// Cancel abandons any open attempt as a failure. The condition must be
// released before the next attempt.
func (h *Hold) Cancel(at time.Time) Resolution {
	if h.attempt == nil {
		return Resolution{}
	}
	h.latched = true
	return h.release(at)
}

func (h *Hold) release(at time.Time) Resolution {
	if h.attempt == nil {
		return Resolution{}
	}
	d := at.Sub(h.attempt.Start)
	h.attempt = nil
	return Resolution{Event: EventFailed, Duration: d}
}

// Attempt returns the open attempt, if any.
func (h *Hold) Attempt() (Attempt, bool) {
	if h.attempt == nil {
		return Attempt{}, false
	}
	return *h.attempt, true
}

// Progress is the fraction of the dwell time held so far, in [0,1].
func (h *Hold) Progress(at time.Time) float64 {
	if h.attempt == nil {
		return 0
	}
	if h.dwell <= 0 {
		return 1
	}
	return min(float64(at.Sub(h.attempt.Start))/float64(h.dwell), 1)
}
