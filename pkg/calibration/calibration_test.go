package calibration

import (
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-headpilot/pkg/pose"
	"github.com/teslashibe/go-headpilot/pkg/store"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

type recordingPersister struct {
	records []Record
}

func (r *recordingPersister) WriteJSON(v any) error {
	r.records = append(r.records, v.(Record))
	return nil
}

var t0 = time.Unix(1_700_000_000, 0)

// feed sends n samples spaced 50ms apart and returns the index at which
// calibration completed, or -1.
func feed(m *Manager, samples []pose.Angles) int {
	for i, s := range samples {
		if m.Observe(s, t0.Add(time.Duration(i)*50*time.Millisecond)) {
			return i
		}
	}
	return -1
}

func TestBaselineIsMean(t *testing.T) {
	p := &recordingPersister{}
	m := NewManager(Config{Duration: time.Second, MinSamples: 10}, p)

	var samples []pose.Angles
	for i := 0; i < 23; i++ {
		samples = append(samples, pose.Angles{Pitch: float64(i), Yaw: -2 * float64(i), Roll: 1})
	}
	done := feed(m, samples)

	// The window must run past 1s, so at 50ms spacing the 22nd sample completes it.
	if done != 21 {
		t.Fatalf("completed at sample %d, want 21", done)
	}
	if m.Pending() {
		t.Fatal("should not be pending after completion")
	}

	b := m.Baseline()
	if !floatEquals(b.Pitch, 10.5) || !floatEquals(b.Yaw, -21) || !floatEquals(b.Roll, 1) {
		t.Errorf("baseline = %+v, want {10.5 -21 1}", b)
	}
	if len(p.records) != 1 {
		t.Fatalf("persisted %d records, want 1", len(p.records))
	}
	if p.records[0].Samples != 22 {
		t.Errorf("persisted samples = %d, want 22", p.records[0].Samples)
	}

	raw := pose.Angles{Pitch: 15, Yaw: -5, Roll: 4}
	got := raw.Sub(b)
	if !floatEquals(got.Pitch, 4.5) || !floatEquals(got.Yaw, 16) || !floatEquals(got.Roll, 3) {
		t.Errorf("normalized = %+v, want {4.5 16 3}", got)
	}
}

func TestStaysPendingWithoutEnoughSamples(t *testing.T) {
	m := NewManager(Config{Duration: time.Second, MinSamples: 100}, nil)

	// Plenty of time passes but too few samples arrive.
	for i := 0; i < 10; i++ {
		if m.Observe(pose.Angles{}, t0.Add(time.Duration(i)*time.Second)) {
			t.Fatal("calibration completed with too few samples")
		}
	}
	if !m.Pending() {
		t.Error("should still be pending")
	}
}

func TestStaysPendingBeforeDuration(t *testing.T) {
	m := NewManager(Config{Duration: 3 * time.Second, MinSamples: 5}, nil)

	for i := 0; i < 100; i++ {
		m.Observe(pose.Angles{}, t0.Add(time.Duration(i)*time.Millisecond))
	}
	if !m.Pending() {
		t.Error("should still be pending before the window elapses")
	}
}

func TestWindowMustBeExceeded(t *testing.T) {
	m := NewManager(Config{Duration: 100 * time.Millisecond, MinSamples: 1}, nil)

	m.Observe(pose.Angles{}, t0)
	if m.Observe(pose.Angles{}, t0.Add(100*time.Millisecond)) {
		t.Fatal("completed at exactly the window duration")
	}
	if !m.Observe(pose.Angles{}, t0.Add(101*time.Millisecond)) {
		t.Error("should complete once the window is exceeded")
	}
}

func TestResetClearsStoredBaseline(t *testing.T) {
	mem := store.NewMemoryStore()
	p := &recordingPersister{}
	m := NewManager(Config{Duration: 0, MinSamples: 1}, p)
	m.Observe(pose.Angles{Pitch: 7}, t0)

	m.Reset()
	if len(p.records) != 2 || !p.records[1].Cleared {
		t.Fatalf("records = %+v, want a cleared record after Reset", p.records)
	}

	if err := store.SaveJSON(mem, p.records[1]); err != nil {
		t.Fatal(err)
	}
	restored := NewManager(DefaultConfig(), nil)
	ok, err := restored.Restore(mem)
	if err != nil || ok {
		t.Errorf("Restore of cleared record = %v, %v; want false, nil", ok, err)
	}
	if !restored.Pending() {
		t.Error("should stay pending after restoring a cleared record")
	}
}

func TestResetAndSkip(t *testing.T) {
	m := NewManager(Config{Duration: 0, MinSamples: 1}, nil)
	if !m.Observe(pose.Angles{Pitch: 7}, t0) {
		t.Fatal("single-sample calibration should complete immediately")
	}

	m.Reset()
	if !m.Pending() {
		t.Error("Reset should re-enter pending")
	}
	if m.Baseline() != (pose.Baseline{}) {
		t.Errorf("Reset baseline = %+v, want zero", m.Baseline())
	}

	m.Skip()
	if m.Pending() {
		t.Error("Skip should complete calibration")
	}
	if m.Baseline() != (pose.Baseline{}) {
		t.Errorf("Skip baseline = %+v, want zero", m.Baseline())
	}
}

func TestRestore(t *testing.T) {
	mem := store.NewMemoryStore()
	if err := store.SaveJSON(mem, Record{Baseline: pose.Baseline{Pitch: 4, Yaw: 1}, Samples: 90, CalibratedAt: t0}); err != nil {
		t.Fatal(err)
	}

	m := NewManager(DefaultConfig(), nil)
	ok, err := m.Restore(mem)
	if err != nil || !ok {
		t.Fatalf("Restore = %v, %v; want true, nil", ok, err)
	}
	if m.Pending() || m.Baseline().Pitch != 4 {
		t.Errorf("restored baseline = %+v, pending = %v", m.Baseline(), m.Pending())
	}

	empty := NewManager(DefaultConfig(), nil)
	ok, err = empty.Restore(store.NewMemoryStore())
	if err != nil || ok {
		t.Errorf("Restore from empty store = %v, %v; want false, nil", ok, err)
	}
}

func TestProgress(t *testing.T) {
	m := NewManager(Config{Duration: time.Second, MinSamples: 2}, nil)
	if got := m.Progress(t0); got != 0 {
		t.Errorf("progress before samples = %v, want 0", got)
	}
	m.Observe(pose.Angles{}, t0)
	m.Observe(pose.Angles{}, t0.Add(100*time.Millisecond))
	if got := m.Progress(t0.Add(500 * time.Millisecond)); !floatEquals(got, 0.5) {
		t.Errorf("progress = %v, want 0.5", got)
	}
}
