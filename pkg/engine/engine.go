// Package engine turns a stream of face landmark frames into browser
// control intents.
//
// Each Tick runs the pipeline in a fixed order: pose normalization,
// calibration, mode evaluation, zone classification, continuous controls
// (cursor, scroll), then the gesture detectors and the text-field
// sub-controller. Only one tick may run at a time; everything is polled
// against the frame's timestamp so behaviour is deterministic under test.
package engine

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/action"
	"github.com/teslashibe/go-headpilot/pkg/calibration"
	"github.com/teslashibe/go-headpilot/pkg/dwell"
	"github.com/teslashibe/go-headpilot/pkg/gesture"
	"github.com/teslashibe/go-headpilot/pkg/mode"
	"github.com/teslashibe/go-headpilot/pkg/pose"
	"github.com/teslashibe/go-headpilot/pkg/store"
	"github.com/teslashibe/go-headpilot/pkg/textfield"
	"github.com/teslashibe/go-headpilot/pkg/zone"
)

// Stores are the persistence backends. Any may be nil.
type Stores struct {
	Baseline store.Store
	Profile  store.Store
	Settings store.Store
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for untimestamped frames and control calls.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithStores enables persistence of the baseline, dwell profile and settings.
func WithStores(s Stores) Option {
	return func(e *Engine) { e.stores = s }
}

// Engine is the gesture control engine.
type Engine struct {
	cfg    Config
	clock  Clock
	stores Stores

	ticking atomic.Bool

	// mu guards everything below. Tick holds it for the whole tick.
	mu       sync.Mutex
	enabled  bool
	sens     gesture.Sensitivity
	calib    *calibration.Manager
	dwell    *dwell.Manager
	mode     *mode.Controller
	gestures *gesture.Set
	session  *textfield.Session
	cursor   cursorFilter
	zones    zone.Thresholds

	lastPose   pose.Sample
	lastZone   zone.Zone
	lastFrame  time.Time
	writers    []*store.AsyncWriter
	settingsWr *store.AsyncWriter

	frames  atomic.Uint64
	skipped atomic.Uint64
	dropped atomic.Uint64
	emitted atomic.Uint64

	skipLog *log.Throttle
}

// New creates an engine. Persisted state is restored from the configured
// stores; restore failures are logged and the defaults kept.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		clock:   SystemClock{},
		enabled: cfg.StartEnabled,
		sens:    cfg.Sensitivity.Sensitivity(),
		mode:    mode.NewController(cfg.Mode),
		cursor:  cursorFilter{cfg: cfg.Cursor},
		skipLog: log.NewThrottle(5 * time.Second),
	}
	for _, opt := range opts {
		opt(e)
	}

	now := e.clock.Now()

	var baselineW, profileW calibration.Persister
	if s := e.stores.Baseline; s != nil {
		w := store.NewAsyncWriter("baseline", s)
		e.writers = append(e.writers, w)
		baselineW = w
	}
	if s := e.stores.Profile; s != nil {
		w := store.NewAsyncWriter("profile", s)
		e.writers = append(e.writers, w)
		profileW = w
	}
	if s := e.stores.Settings; s != nil {
		e.settingsWr = store.NewAsyncWriter("settings", s)
		e.writers = append(e.writers, e.settingsWr)
	}

	e.calib = calibration.NewManager(cfg.Calibration, baselineW)
	e.dwell = dwell.NewManager(cfg.Dwell, cfg.Zones, profileW)

	if s := e.stores.Baseline; s != nil {
		if _, err := e.calib.Restore(s); err != nil {
			log.Warn("baseline restore failed", "error", err)
		}
	}
	if s := e.stores.Profile; s != nil {
		if _, err := e.dwell.Restore(s, now); err != nil {
			log.Warn("dwell profile restore failed", "error", err)
		}
	}
	if s := e.stores.Settings; s != nil {
		var p gesture.Percent
		found, err := store.LoadJSON(s, &p)
		switch {
		case err != nil:
			log.Warn("settings restore failed", "error", err)
		case found:
			e.sens = p.Sensitivity()
		}
	}

	e.zones = e.dwell.Zones()
	e.gestures = gesture.NewSet(cfg.Gesture, e.dwell)
	e.gestures.SetSensitivity(e.sens)
	return e, nil
}

// Tick processes one frame and returns the intents it produced, in order.
// A frame with missing landmarks is skipped and yields nothing.
func (e *Engine) Tick(f Frame) ([]action.Intent, error) {
	if !e.ticking.CompareAndSwap(false, true) {
		e.dropped.Add(1)
		return nil, ErrTickInProgress
	}
	defer e.ticking.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.frames.Add(1)
	at := f.Time
	if at.IsZero() {
		at = e.clock.Now()
	}

	lm, raw, err := rawPose(f)
	if err != nil {
		e.skipped.Add(1)
		e.skipLog.Do(func() { log.Debug("frame skipped", "error", err, "skipped", e.skipped.Load()) })
		return nil, nil
	}
	e.lastFrame = at

	if e.calib.Pending() {
		e.calib.Observe(raw, at)
		return nil, nil
	}

	sample := pose.Sample{Angles: raw.Sub(e.calib.Baseline()), Time: at}
	e.lastPose = sample
	if !e.enabled {
		return nil, nil
	}

	var out []action.Intent
	out = append(out, e.applyTransitions(e.mode.Update(f.Scores, at), at)...)

	z := e.zones.Classify(sample.Pitch, sample.Yaw)
	e.lastZone = z
	out = append(out, e.continuous(z, lm, sample)...)

	res := e.gestures.Update(gesture.Input{
		Pose:   sample,
		Scores: f.Scores,
		Mode:   e.mode.Mode(),
		Zone:   z,
	})
	out = append(out, res.Intents...)
	if res.Succeeded {
		e.mode.Extend(at)
	}

	if e.session != nil {
		out = append(out, e.session.Update(sample, f.Scores, e.sens)...)
	}

	// Refresh the fatigue classification on its own interval.
	e.dwell.FatigueState(at)

	e.emitted.Add(uint64(len(out)))
	return out, nil
}

func rawPose(f Frame) (pose.Landmarks, pose.Angles, error) {
	lm, err := f.landmarks()
	if err != nil {
		return lm, pose.Angles{}, err
	}
	raw, err := pose.Raw(lm)
	return lm, raw, err
}

func (e *Engine) applyTransitions(trs []mode.Transition, at time.Time) []action.Intent {
	var out []action.Intent
	for _, tr := range trs {
		if tr.From == mode.TextField {
			out = append(out, e.closeSession(at)...)
		}
		if tr.To == mode.TextField {
			e.session = textfield.NewSession(e.cfg.TextField, e.cfg.Gesture, e.dwell)
			out = append(out, action.New(action.EnableTextFieldMode, at))
		}
	}
	return out
}

func (e *Engine) closeSession(at time.Time) []action.Intent {
	if e.session == nil {
		return nil
	}
	e.session.Close(at)
	e.session = nil
	return []action.Intent{action.New(action.DisableTextFieldMode, at)}
}

// continuous produces the cursor and scroll streams for the current zone.
func (e *Engine) continuous(z zone.Zone, lm pose.Landmarks, s pose.Sample) []action.Intent {
	switch z {
	case zone.Cursor:
		x, y := e.cursor.Update(lm.EyeCenter(), s.Angles, e.sens.CursorSpeed)
		return []action.Intent{action.NewMoveCursor(x, y, s.Time)}

	case zone.Scroll:
		if e.mode.Mode() != mode.Neutral {
			return nil
		}
		in := e.zones.Intensity(s.Pitch, s.Yaw)
		speed := e.cfg.Scroll.MaxSpeed * e.sens.Scroll
		dx, dy := in.Horizontal*speed, in.Vertical*speed
		if math.Abs(dx) <= e.cfg.Scroll.MinDelta && math.Abs(dy) <= e.cfg.Scroll.MinDelta {
			return nil
		}
		return []action.Intent{action.NewScroll(dx, dy, s.Time)}
	}
	return nil
}

// Enable turns gesture control on.
func (e *Engine) Enable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		e.enabled = true
		log.Info("control enabled")
	}
}

// Disable turns gesture control off. Open attempts are recorded as
// failures, any text-field session is closed and the mode returns to
// Neutral before Disable returns. The returned intents tell the executor
// to leave text-field mode if it was active.
func (e *Engine) Disable() []action.Intent {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.teardown(e.controlTime())
	if e.enabled {
		e.enabled = false
		log.Info("control disabled")
	}
	return out
}

// controlTime stamps calls made outside a tick. Ticks run on frame capture
// time, so the last frame's time is used when there is one.
func (e *Engine) controlTime() time.Time {
	if !e.lastFrame.IsZero() {
		return e.lastFrame
	}
	return e.clock.Now()
}

func (e *Engine) teardown(at time.Time) []action.Intent {
	e.gestures.CancelAll(at)
	out := e.closeSession(at)
	e.mode.Reset(at)
	e.cursor.Reset()
	return out
}

// Enabled reports whether gesture control is on.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Recalibrate discards the baseline and starts a new calibration window.
func (e *Engine) Recalibrate() []action.Intent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.teardown(e.controlTime())
	e.calib.Reset()
	return out
}

// SkipCalibration completes calibration with a zero baseline.
func (e *Engine) SkipCalibration() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calib.Skip()
}

// SetSensitivity applies and persists new sensitivity settings.
func (e *Engine) SetSensitivity(p gesture.Percent) gesture.Percent {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sens = p.Sensitivity()
	e.gestures.SetSensitivity(e.sens)
	applied := e.sens.Percent()
	if e.settingsWr != nil {
		if err := e.settingsWr.WriteJSON(applied); err != nil {
			log.Warn("settings persist failed", "error", err)
		}
	}
	log.Info("sensitivity updated", "scroll", applied.Scroll, "click", applied.Click,
		"gesture", applied.Gesture, "cursor_speed", applied.CursorSpeed)
	return applied
}

// Sensitivity returns the current sensitivity settings.
func (e *Engine) Sensitivity() gesture.Percent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sens.Percent()
}

// ReportFieldCount passes the executor's field count to the text-field session.
func (e *Engine) ReportFieldCount(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.SetFieldCount(n)
	}
}

// ReportFieldIndex passes the executor's focused field to the text-field session.
func (e *Engine) ReportFieldIndex(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.SyncIndex(i, e.controlTime())
	}
}

// ReportEditOptions tells the text-field session whether edit options are shown.
func (e *Engine) ReportEditOptions(shown bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.ShowEditOptions(shown)
	}
}

// Statistics returns per-gesture adaptation statistics.
func (e *Engine) Statistics() []dwell.Stats {
	return e.dwell.Statistics()
}

// ResetProfile discards all dwell adaptation.
func (e *Engine) ResetProfile() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dwell.ResetToDefaults(e.clock.Now())
	e.zones = e.dwell.Zones()
}

// Close flushes pending persistence.
func (e *Engine) Close() error {
	var first error
	for _, w := range e.writers {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
