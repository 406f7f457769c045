package engine

import (
	"time"

	"github.com/teslashibe/go-headpilot/pkg/dwell"
	"github.com/teslashibe/go-headpilot/pkg/gesture"
	"github.com/teslashibe/go-headpilot/pkg/mode"
	"github.com/teslashibe/go-headpilot/pkg/pose"
	"github.com/teslashibe/go-headpilot/pkg/textfield"
	"github.com/teslashibe/go-headpilot/pkg/zone"
)

// Counters are cumulative frame and intent counts.
type Counters struct {
	Frames  uint64 `json:"frames"`
	Skipped uint64 `json:"skipped"`
	Dropped uint64 `json:"dropped"`
	Intents uint64 `json:"intents"`
}

// Status is a point-in-time view of the engine for dashboards.
type Status struct {
	Enabled             bool               `json:"enabled"`
	Calibrating         bool               `json:"calibrating"`
	CalibrationProgress float64            `json:"calibration_progress"`
	Baseline            pose.Baseline      `json:"baseline"`
	Pose                pose.Angles        `json:"pose"`
	Zone                zone.Zone          `json:"zone"`
	Mode                mode.Mode          `json:"mode"`
	ModeRemaining       time.Duration      `json:"mode_remaining"`
	Fatigue             dwell.Fatigue      `json:"fatigue"`
	Attempts            []gesture.Progress `json:"attempts,omitempty"`
	TextField           *textfield.State   `json:"text_field,omitempty"`
	Sensitivity         gesture.Percent    `json:"sensitivity"`
	LastFrame           time.Time          `json:"last_frame"`
	Counters            Counters           `json:"counters"`
}

// Status returns the current engine state. Timings are evaluated at the
// last frame's instant.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	at := e.lastFrame
	if at.IsZero() {
		at = e.clock.Now()
	}

	st := Status{
		Enabled:             e.enabled,
		Calibrating:         e.calib.Pending(),
		CalibrationProgress: e.calib.Progress(at),
		Baseline:            e.calib.Baseline(),
		Pose:                e.lastPose.Angles,
		Zone:                e.lastZone,
		Mode:                e.mode.Mode(),
		ModeRemaining:       e.mode.Remaining(at),
		Fatigue:             e.dwell.FatigueState(at),
		Attempts:            e.gestures.Progress(at),
		Sensitivity:         e.sens.Percent(),
		LastFrame:           e.lastFrame,
		Counters:            e.Counters(),
	}
	if e.session != nil {
		ts := e.session.State(at)
		st.TextField = &ts
	}
	return st
}

// Counters returns cumulative counts. Safe to call at any time.
func (e *Engine) Counters() Counters {
	return Counters{
		Frames:  e.frames.Load(),
		Skipped: e.skipped.Load(),
		Dropped: e.dropped.Load(),
		Intents: e.emitted.Load(),
	}
}
