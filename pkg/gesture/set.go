// Package gesture detects discrete facial and head gestures and turns them
// into action intents.
//
// Detectors are polled once per frame. Hold gestures open an attempt when
// their condition starts, fire once it has been held for the adaptive dwell
// time, and report the outcome to the dwell manager either way. Immediate
// gestures (snap turns, tilts) fire on the frame they are detected. Every
// action is rate limited by its own cooldown.
package gesture

import (
	"math"
	"time"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/action"
	"github.com/teslashibe/go-headpilot/pkg/dwell"
	"github.com/teslashibe/go-headpilot/pkg/expression"
	"github.com/teslashibe/go-headpilot/pkg/mode"
	"github.com/teslashibe/go-headpilot/pkg/pose"
	"github.com/teslashibe/go-headpilot/pkg/zone"
)

// Adapter supplies dwell times and receives attempt outcomes.
// *dwell.Manager satisfies it.
type Adapter interface {
	DwellFor(g dwell.Gesture, risk dwell.Risk, at time.Time) time.Duration
	RecordOutcome(g dwell.Gesture, success bool, duration time.Duration, at time.Time)
}

// Input is everything the detectors look at for one frame.
type Input struct {
	Pose   pose.Sample
	Scores expression.Scores
	Mode   mode.Mode
	Zone   zone.Zone
}

// Result is the detectors' output for one frame.
type Result struct {
	Intents []action.Intent

	// Succeeded is set when any discrete gesture resolved successfully,
	// including one whose action was held back by its cooldown.
	Succeeded bool
}

// Progress describes an open attempt for user feedback.
type Progress struct {
	Gesture dwell.Gesture `json:"gesture"`
	Action  action.Kind   `json:"action"`
	Stage   int           `json:"stage"`
	Ratio   float64       `json:"ratio"`
}

// holdBinding binds a hold detector to the action it fires.
type holdBinding struct {
	hold   *Hold
	action action.Kind
	key    Key
	risk   dwell.Risk
}

// Set runs the click detector in Neutral mode and the hold, snap and tilt
// detectors in GestureActive mode. Not safe for concurrent use.
type Set struct {
	cfg     Config
	sens    Sensitivity
	adapter Adapter

	cooldowns *Cooldowns
	click     *Click
	snap      SnapTurn
	holds     []holdBinding
}

// NewSet creates the detector set.
func NewSet(cfg Config, adapter Adapter) *Set {
	return &Set{
		cfg:       cfg,
		sens:      DefaultSensitivity(),
		adapter:   adapter,
		cooldowns: NewCooldowns(cfg.Cooldowns),
		click:     NewClick(cfg.ClickHold, cfg.ClickMaxOpen),
		holds: []holdBinding{
			{hold: NewHold(dwell.Wink), action: action.Refresh, key: KeyRefresh, risk: dwell.RiskHigh},
			{hold: NewHold(dwell.Wink), action: action.CloseTab, key: KeyCloseTab, risk: dwell.RiskHigh},
			{hold: NewHold(dwell.Smile), action: action.NewTab, key: KeyNewTab, risk: dwell.RiskNormal},
		},
	}
}

// SetSensitivity replaces the sensitivity multipliers.
func (s *Set) SetSensitivity(sens Sensitivity) {
	s.sens = sens.Normalized()
}

// Update runs every detector for one frame.
func (s *Set) Update(in Input) Result {
	at := in.Pose.Time
	var res Result

	s.updateClick(in, at, &res)

	// Velocity tracking runs every frame so the first gesture-mode frame
	// is compared with its real predecessor.
	snap := s.snap.Observe(in.Pose.Yaw, s.cfg.Thresholds)

	if in.Mode != mode.GestureActive {
		s.cancelHolds(at)
		return res
	}

	switch snap {
	case DirectionBack:
		s.immediate(action.GoBack, KeyBack, dwell.Navigation, at, &res)
	case DirectionForward:
		s.immediate(action.GoForward, KeyForward, dwell.Navigation, at, &res)
	}

	switch Tilt(in.Pose.Roll, in.Pose.Yaw, s.cfg.Thresholds, s.sens) {
	case DirectionForward:
		s.immediate(action.NextTab, KeyTabSwitch, dwell.TabSwitch, at, &res)
	case DirectionBack:
		s.immediate(action.PreviousTab, KeyTabSwitch, dwell.TabSwitch, at, &res)
	}

	if in.Zone == zone.Navigation {
		s.cancelHolds(at)
		return res
	}

	active := s.holdConditions(in.Scores)
	for i, h := range s.holds {
		dt := s.adapter.DwellFor(h.hold.Gesture(), h.risk, at)
		r := h.hold.Update(active[i], dt, at)
		s.resolveHold(h, r, at, &res)
	}
	return res
}

// holdConditions evaluates left wink, right wink and smile, in holds order.
// A wink only counts while the other eye stays below its own wink threshold,
// so a blink or squint triggers neither at any sensitivity.
func (s *Set) holdConditions(sc expression.Scores) []bool {
	th := s.cfg.Thresholds
	g := s.sens.Gesture
	l, r := sc.Get(expression.EyeBlinkLeft), sc.Get(expression.EyeBlinkRight)
	wl, wr := th.WinkLeft/g, th.WinkRight/g

	return []bool{
		l > wl && r < min(th.WinkOtherMax, wr),
		r > wr && l < min(th.WinkOtherMax, wl),
		sc.Smile() > th.Smile/g,
	}
}

func (s *Set) updateClick(in Input, at time.Time, res *Result) {
	allowed := in.Mode == mode.Neutral && (in.Zone == zone.Cursor || in.Zone == zone.Neutral)
	if !allowed {
		s.record(dwell.Click, s.click.Cancel(at), at)
		return
	}

	open := in.Scores.Get(expression.JawOpen) > s.cfg.Thresholds.JawOpen/s.sens.Click
	r := s.click.Update(open, at)
	if r.Event == EventFired {
		res.Succeeded = true
		if s.cooldowns.TryTrigger(KeyClick, at) {
			res.Intents = append(res.Intents, action.New(action.Click, at))
			log.Info("gesture fired", "action", action.Click, "held", r.Duration)
		}
	}
	s.record(dwell.Click, r, at)
}

func (s *Set) immediate(kind action.Kind, key Key, g dwell.Gesture, at time.Time, res *Result) {
	if !s.cooldowns.TryTrigger(key, at) {
		return
	}
	res.Intents = append(res.Intents, action.New(kind, at))
	res.Succeeded = true
	s.adapter.RecordOutcome(g, true, 0, at)
	log.Info("gesture fired", "action", kind)
}

func (s *Set) resolveHold(h holdBinding, r Resolution, at time.Time, res *Result) {
	if r.Event == EventFired {
		res.Succeeded = true
		if s.cooldowns.TryTrigger(h.key, at) {
			res.Intents = append(res.Intents, action.New(h.action, at))
			log.Info("gesture fired", "action", h.action, "held", r.Duration)
		} else {
			log.Debug("gesture suppressed by cooldown", "action", h.action)
		}
	}
	s.record(h.hold.Gesture(), r, at)
}

// record reports resolved attempts. Zero-length failures are noise.
func (s *Set) record(g dwell.Gesture, r Resolution, at time.Time) {
	switch r.Event {
	case EventFired:
		s.adapter.RecordOutcome(g, true, r.Duration, at)
	case EventFailed:
		if r.Duration > 0 {
			s.adapter.RecordOutcome(g, false, r.Duration, at)
		}
	}
}

func (s *Set) cancelHolds(at time.Time) {
	for _, h := range s.holds {
		s.record(h.hold.Gesture(), h.hold.Cancel(at), at)
	}
}

// CancelAll abandons every open attempt as a failure and forgets the
// previous frame.
func (s *Set) CancelAll(at time.Time) {
	s.record(dwell.Click, s.click.Cancel(at), at)
	s.cancelHolds(at)
	s.snap.Reset()
}

// Progress lists open attempts.
func (s *Set) Progress(at time.Time) []Progress {
	var out []Progress
	if a, ok := s.click.Attempt(); ok {
		out = append(out, Progress{Gesture: dwell.Click, Action: action.Click, Stage: a.Stage, Ratio: round2(s.click.Progress(at))})
	}
	for _, h := range s.holds {
		if a, ok := h.hold.Attempt(); ok {
			out = append(out, Progress{Gesture: a.Gesture, Action: h.action, Stage: a.Stage, Ratio: round2(h.hold.Progress(at))})
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
