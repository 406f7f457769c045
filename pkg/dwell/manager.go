// Package dwell adapts how long each gesture must be held before it fires.
//
// Every resolved attempt is recorded. A gesture the user completes reliably
// gets a shorter hold, one they keep abandoning gets a longer one, and the
// result is smoothed so a single attempt never moves it far. A fatigue
// classifier over the recent attempts of all gestures scales holds further.
package dwell

import (
	"sort"
	"sync"
	"time"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/store"
	"github.com/teslashibe/go-headpilot/pkg/zone"
)

// Success-rate bands that pick the adaptation direction.
const (
	highSuccessRate = 0.85
	lowSuccessRate  = 0.6

	// A gesture whose successes average below fastRatio of its dwell time is
	// pulled toward fastTarget times that average.
	fastRatio  = 0.7
	fastTarget = 1.2
)

// Persister receives profile snapshots. *store.AsyncWriter satisfies it.
type Persister interface {
	WriteJSON(v any) error
}

// Profile is the persisted adaptive state. ZoneThresholds is only present
// when zones were set through SetZones; otherwise configured zones apply.
type Profile struct {
	DwellTimes     map[Gesture]time.Duration `json:"dwell_times"`
	GestureHistory map[Gesture]*History      `json:"gesture_history"`
	ZoneThresholds *zone.Thresholds          `json:"zone_thresholds,omitempty"`
	LastUpdated    time.Time                 `json:"last_updated"`
}

// Manager tracks per-gesture history and dwell times. It is safe for
// concurrent use so statistics can be read while the engine ticks.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	persist Persister

	dwell   map[Gesture]time.Duration
	history map[Gesture]*History
	zones   zone.Thresholds
	defZone zone.Thresholds
	zoneSet bool

	fatigue      Fatigue
	fatigueAt    time.Time
	fatigueValid bool
}

// NewManager creates a manager seeded from cfg. zones is stored alongside the
// dwell profile. persist may be nil.
func NewManager(cfg Config, zones zone.Thresholds, persist Persister) *Manager {
	m := &Manager{
		cfg:     cfg,
		persist: persist,
		zones:   zones,
		defZone: zones,
		fatigue: FatigueNormal,
	}
	m.seed()
	return m
}

func (m *Manager) seed() {
	m.dwell = make(map[Gesture]time.Duration, len(m.cfg.BaseDwellTimes))
	m.history = make(map[Gesture]*History, len(m.cfg.BaseDwellTimes))
	for g, d := range m.cfg.BaseDwellTimes {
		m.dwell[g] = m.clamp(d)
		m.history[g] = &History{}
	}
}

// Restore loads a stored profile. Profiles older than StaleAfter are ignored.
func (m *Manager) Restore(s store.Store, now time.Time) (bool, error) {
	var p Profile
	found, err := store.LoadJSON(s, &p)
	if err != nil || !found {
		return false, err
	}
	if now.Sub(p.LastUpdated) > m.cfg.StaleAfter {
		log.Info("dwell profile stale, using defaults", "last_updated", p.LastUpdated)
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for g, d := range p.DwellTimes {
		m.dwell[g] = m.clamp(d)
	}
	for g, h := range p.GestureHistory {
		if h == nil {
			continue
		}
		h.Successes = tail(h.Successes, m.cfg.HistorySuccesses)
		h.Failures = tail(h.Failures, m.cfg.HistoryFailures)
		h.AverageTime = averageDuration(h.Successes)
		m.history[g] = h
	}
	if p.ZoneThresholds != nil {
		m.zones = *p.ZoneThresholds
		m.zoneSet = true
	}
	m.fatigueValid = false
	log.Info("dwell profile restored", "gestures", len(p.DwellTimes), "last_updated", p.LastUpdated)
	return true, nil
}

// RecordOutcome appends an attempt to the gesture's history and re-adapts
// its dwell time.
func (m *Manager) RecordOutcome(g Gesture, success bool, duration time.Duration, at time.Time) {
	m.mu.Lock()
	h := m.historyFor(g)
	o := Outcome{Timestamp: at, Duration: duration, Successful: success}
	if success {
		h.Successes = tail(append(h.Successes, o), m.cfg.HistorySuccesses)
		h.AverageTime = averageDuration(h.Successes)
	} else {
		h.Failures = tail(append(h.Failures, o), m.cfg.HistoryFailures)
	}
	m.adapt(g, h)
	snap := m.snapshot(at)
	m.mu.Unlock()

	m.save(snap)
}

func (m *Manager) historyFor(g Gesture) *History {
	h, ok := m.history[g]
	if !ok {
		h = &History{}
		m.history[g] = h
	}
	return h
}

// adapt recomputes one gesture's dwell time from its history. Caller holds mu.
func (m *Manager) adapt(g Gesture, h *History) {
	total := len(h.Successes) + len(h.Failures)
	if total < m.cfg.MinAttempts {
		return
	}

	cur := m.current(g)
	rate := m.cfg.AdaptationRate
	successRate := float64(len(h.Successes)) / float64(total)

	target := cur
	switch {
	case successRate > highSuccessRate:
		target = scale(cur, 1-rate/2)
	case successRate < lowSuccessRate:
		target = scale(cur, 1+rate)
	case len(h.Successes) > 0 && float64(h.AverageTime) < fastRatio*float64(cur):
		target = scale(h.AverageTime, fastTarget)
	}

	next := m.clamp(scale(cur, 1-rate) + scale(target, rate))
	if next != cur {
		log.Debug("dwell adapted", "gesture", g, "from", cur, "to", next, "success_rate", successRate)
	}
	m.dwell[g] = next
}

func (m *Manager) current(g Gesture) time.Duration {
	if d, ok := m.dwell[g]; ok {
		return d
	}
	return m.clamp(m.cfg.BaseDwellTimes[g])
}

// DwellTime returns the gesture's hold time under ctx, clamped to the
// configured bounds.
func (m *Manager) DwellTime(g Gesture, ctx Context) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clamp(scale(m.current(g), m.multiplier(ctx)))
}

// DwellFor resolves the context from risk and the current fatigue state,
// then returns the gesture's hold time.
func (m *Manager) DwellFor(g Gesture, risk Risk, at time.Time) time.Duration {
	return m.DwellTime(g, m.ContextFor(risk, at))
}

// ContextFor picks the context for a gesture of the given risk. Risk takes
// precedence over fatigue.
func (m *Manager) ContextFor(risk Risk, at time.Time) Context {
	switch risk {
	case RiskHigh:
		return ContextHighRisk
	case RiskLow:
		return ContextLowRisk
	}
	switch m.FatigueState(at) {
	case FatigueFatigued:
		return ContextFatigued
	case FatigueConfident:
		return ContextConfident
	default:
		return ContextNormal
	}
}

func (m *Manager) multiplier(ctx Context) float64 {
	var f float64
	switch ctx {
	case ContextHighRisk:
		f = m.cfg.Multipliers.HighRisk
	case ContextLowRisk:
		f = m.cfg.Multipliers.LowRisk
	case ContextFatigued:
		f = m.cfg.Multipliers.Fatigued
	case ContextConfident:
		f = m.cfg.Multipliers.Confident
	}
	if f <= 0 {
		return 1
	}
	return f
}

// FatigueState classifies recent attempts across all gestures. The result is
// cached for the configured check interval.
func (m *Manager) FatigueState(at time.Time) Fatigue {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fatigueValid && at.Sub(m.fatigueAt) < m.cfg.Fatigue.CheckInterval {
		return m.fatigue
	}

	next := m.classify(at)
	if next != m.fatigue {
		log.Info("fatigue state changed", "from", m.fatigue, "to", next)
	}
	m.fatigue = next
	m.fatigueAt = at
	m.fatigueValid = true
	return next
}

func (m *Manager) classify(at time.Time) Fatigue {
	fc := m.cfg.Fatigue
	since := at.Add(-fc.Window)

	var successes, failures int
	for _, h := range m.history {
		successes += countSince(h.Successes, since)
		failures += countSince(h.Failures, since)
	}
	total := successes + failures
	if total < fc.MinAttempts {
		return FatigueNormal
	}

	errorRate := float64(failures) / float64(total)
	perMinute := float64(total) / fc.Window.Minutes()

	switch {
	case errorRate > fc.MaxErrorRate || perMinute > fc.MaxPerMinute:
		return FatigueFatigued
	case errorRate < fc.ConfidentErrorRate && successes >= fc.ConfidentSuccesses:
		return FatigueConfident
	default:
		return FatigueNormal
	}
}

// Statistics summarizes every tracked gesture, sorted by name.
func (m *Manager) Statistics() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Stats, 0, len(m.history))
	for g, h := range m.history {
		s, f := len(h.Successes), len(h.Failures)
		st := Stats{
			Gesture:          g,
			TotalAttempts:    s + f,
			Successes:        s,
			Failures:         f,
			AverageTime:      h.AverageTime,
			CurrentDwellTime: m.current(g),
		}
		if s+f > 0 {
			st.SuccessRate = float64(s) / float64(s+f)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gesture < out[j].Gesture })
	return out
}

// Zones returns the configured zone thresholds, or the ones set through
// SetZones when the profile carries them.
func (m *Manager) Zones() zone.Thresholds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zones
}

// SetZones replaces the stored zone thresholds.
func (m *Manager) SetZones(z zone.Thresholds, at time.Time) {
	m.mu.Lock()
	m.zones = z
	m.zoneSet = true
	snap := m.snapshot(at)
	m.mu.Unlock()
	m.save(snap)
}

// ResetToDefaults discards all adaptation and history.
func (m *Manager) ResetToDefaults(at time.Time) {
	m.mu.Lock()
	m.seed()
	m.zones = m.defZone
	m.zoneSet = false
	m.fatigue = FatigueNormal
	m.fatigueValid = false
	snap := m.snapshot(at)
	m.mu.Unlock()

	log.Info("dwell profile reset to defaults")
	m.save(snap)
}

// Snapshot returns a deep copy of the current profile.
func (m *Manager) Snapshot(at time.Time) Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(at)
}

func (m *Manager) snapshot(at time.Time) Profile {
	p := Profile{
		DwellTimes:     make(map[Gesture]time.Duration, len(m.dwell)),
		GestureHistory: make(map[Gesture]*History, len(m.history)),
		LastUpdated:    at,
	}
	if m.zoneSet {
		z := m.zones
		p.ZoneThresholds = &z
	}
	for g, d := range m.dwell {
		p.DwellTimes[g] = d
	}
	for g, h := range m.history {
		p.GestureHistory[g] = &History{
			Successes:   append([]Outcome(nil), h.Successes...),
			Failures:    append([]Outcome(nil), h.Failures...),
			AverageTime: h.AverageTime,
		}
	}
	return p
}

func (m *Manager) save(p Profile) {
	if m.persist == nil {
		return
	}
	if err := m.persist.WriteJSON(p); err != nil {
		log.Warn("dwell profile persist failed", "error", err)
	}
}

func (m *Manager) clamp(d time.Duration) time.Duration {
	return min(max(d, m.cfg.MinDwellTime), m.cfg.MaxDwellTime)
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}

func tail(s []Outcome, n int) []Outcome {
	if len(s) <= n {
		return s
	}
	return append([]Outcome(nil), s[len(s)-n:]...)
}

func averageDuration(s []Outcome) time.Duration {
	if len(s) == 0 {
		return 0
	}
	var sum time.Duration
	for _, o := range s {
		sum += o.Duration
	}
	return sum / time.Duration(len(s))
}

func countSince(s []Outcome, since time.Time) int {
	n := 0
	for _, o := range s {
		if o.Timestamp.After(since) {
			n++
		}
	}
	return n
}
