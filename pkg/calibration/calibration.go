// Package calibration captures the user's neutral head pose.
//
// While pending, every raw pose is buffered. Once the window has run past the
// configured duration and holds enough samples, the per-axis mean becomes the
// baseline that later poses are measured against.
package calibration

import (
	"time"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/pose"
	"github.com/teslashibe/go-headpilot/pkg/store"
)

// Config controls the calibration window.
type Config struct {
	Duration   time.Duration `yaml:"duration" json:"duration"`
	MinSamples int           `yaml:"min_samples" json:"min_samples"`
}

// DefaultConfig returns a three second window of at least 60 samples.
func DefaultConfig() Config {
	return Config{
		Duration:   3 * time.Second,
		MinSamples: 60,
	}
}

// Persister receives baseline snapshots. *store.AsyncWriter satisfies it.
type Persister interface {
	WriteJSON(v any) error
}

// Record is the persisted form of a baseline. A cleared record marks a
// baseline discarded by Reset and restores as not found.
type Record struct {
	Baseline     pose.Baseline `json:"baseline"`
	Samples      int           `json:"samples"`
	CalibratedAt time.Time     `json:"calibrated_at"`
	Cleared      bool          `json:"cleared,omitempty"`
}

// Manager owns the neutral baseline. It is not safe for concurrent use; the
// engine drives it from a single tick at a time.
type Manager struct {
	cfg     Config
	persist Persister

	pending  bool
	baseline pose.Baseline
	samples  []pose.Angles
	start    time.Time
}

// NewManager creates a manager that starts pending.
// persist may be nil.
func NewManager(cfg Config, persist Persister) *Manager {
	return &Manager{
		cfg:     cfg,
		persist: persist,
		pending: true,
	}
}

// Restore completes calibration from a stored record, if one exists.
func (m *Manager) Restore(s store.Store) (bool, error) {
	var rec Record
	found, err := store.LoadJSON(s, &rec)
	if err != nil || !found || rec.Cleared {
		return false, err
	}
	m.complete(rec.Baseline)
	log.Info("calibration restored",
		"pitch", rec.Baseline.Pitch, "yaw", rec.Baseline.Yaw, "roll", rec.Baseline.Roll,
		"calibrated_at", rec.CalibratedAt)
	return true, nil
}

// Pending reports whether calibration is still collecting samples.
func (m *Manager) Pending() bool {
	return m.pending
}

// Baseline returns the current neutral pose. It is the zero pose while pending.
func (m *Manager) Baseline() pose.Baseline {
	return m.baseline
}

// SampleCount returns the number of samples buffered so far.
func (m *Manager) SampleCount() int {
	return len(m.samples)
}

// Observe buffers a raw pose and reports whether this call completed
// calibration. It is a no-op once calibration is complete.
func (m *Manager) Observe(raw pose.Angles, at time.Time) bool {
	if !m.pending {
		return false
	}
	if len(m.samples) == 0 {
		m.start = at
	}
	m.samples = append(m.samples, raw)

	if (m.cfg.Duration > 0 && at.Sub(m.start) <= m.cfg.Duration) || len(m.samples) < m.cfg.MinSamples {
		return false
	}

	b := Mean(m.samples)
	n := len(m.samples)
	m.complete(b)
	log.Info("calibration complete", "samples", n, "pitch", b.Pitch, "yaw", b.Yaw, "roll", b.Roll)

	if m.persist != nil {
		if err := m.persist.WriteJSON(Record{Baseline: b, Samples: n, CalibratedAt: at}); err != nil {
			log.Warn("calibration persist failed", "error", err)
		}
	}
	return true
}

// Progress returns how far through the window calibration is, in [0,1].
func (m *Manager) Progress(at time.Time) float64 {
	if !m.pending {
		return 1
	}
	if len(m.samples) == 0 || m.cfg.Duration <= 0 {
		return 0
	}
	p := float64(at.Sub(m.start)) / float64(m.cfg.Duration)
	if m.cfg.MinSamples > 0 {
		p = min(p, float64(len(m.samples))/float64(m.cfg.MinSamples))
	}
	return min(max(p, 0), 1)
}

// Reset discards the baseline, in memory and in the store, and restarts
// calibration.
func (m *Manager) Reset() {
	m.pending = true
	m.baseline = pose.Baseline{}
	m.samples = nil
	m.start = time.Time{}
	if m.persist != nil {
		if err := m.persist.WriteJSON(Record{Cleared: true}); err != nil {
			log.Warn("calibration clear failed", "error", err)
		}
	}
	log.Info("calibration reset")
}

// Skip completes calibration with zero offsets.
func (m *Manager) Skip() {
	m.complete(pose.Baseline{})
	log.Info("calibration skipped")
}

func (m *Manager) complete(b pose.Baseline) {
	m.baseline = b
	m.pending = false
	m.samples = nil
}

// Mean returns the per-axis arithmetic mean of samples.
func Mean(samples []pose.Angles) pose.Baseline {
	if len(samples) == 0 {
		return pose.Baseline{}
	}
	var sum pose.Angles
	for _, s := range samples {
		sum.Pitch += s.Pitch
		sum.Yaw += s.Yaw
		sum.Roll += s.Roll
	}
	n := float64(len(samples))
	return pose.Baseline{Pitch: sum.Pitch / n, Yaw: sum.Yaw / n, Roll: sum.Roll / n}
}
