package textfield

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/teslashibe/go-headpilot/pkg/action"
	"github.com/teslashibe/go-headpilot/pkg/dwell"
	"github.com/teslashibe/go-headpilot/pkg/expression"
	"github.com/teslashibe/go-headpilot/pkg/gesture"
	"github.com/teslashibe/go-headpilot/pkg/pose"
)

var t0 = time.Unix(1_700_000_000, 0)

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

type fixedAdapter struct {
	successes, failures int
}

func (f *fixedAdapter) DwellFor(dwell.Gesture, dwell.Risk, time.Time) time.Duration {
	return time.Second
}

func (f *fixedAdapter) RecordOutcome(_ dwell.Gesture, success bool, _ time.Duration, _ time.Time) {
	if success {
		f.successes++
	} else {
		f.failures++
	}
}

var ignoreMeta = cmpopts.IgnoreFields(action.Intent{}, "ID", "At")

func sample(at int, roll float64) pose.Sample {
	return pose.Sample{Angles: pose.Angles{Roll: roll}, Time: ms(at)}
}

func newSession(fields int) (*Session, *fixedAdapter) {
	a := &fixedAdapter{}
	s := NewSession(DefaultConfig(), gesture.DefaultConfig(), a)
	s.SetFieldCount(fields)
	return s, a
}

func intent(kind action.Kind, index int) action.Intent {
	return action.Intent{Kind: kind, Index: index}
}

func TestFieldNavigationWraps(t *testing.T) {
	s, _ := newSession(3)
	sens := gesture.DefaultSensitivity()

	var got []action.Intent
	// Four left tilts 600ms apart walk 0, 1, 2 and wrap to 0.
	for i := 0; i < 4; i++ {
		got = append(got, s.Update(sample(i*600, -30), nil, sens)...)
		got = append(got, s.Update(sample(i*600+100, 0), nil, sens)...)
	}
	// One right tilt wraps back to 2.
	got = append(got, s.Update(sample(2400, 30), nil, sens)...)

	want := []action.Intent{
		intent(action.NextTextField, 0),
		intent(action.NextTextField, 1),
		intent(action.NextTextField, 2),
		intent(action.NextTextField, 0),
		intent(action.PreviousTextField, 2),
	}
	if diff := cmp.Diff(want, got, ignoreMeta); diff != "" {
		t.Errorf("navigation mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstPreviousSelectsLastField(t *testing.T) {
	s, _ := newSession(4)
	got := s.Update(sample(0, 30), nil, gesture.DefaultSensitivity())
	if diff := cmp.Diff([]action.Intent{intent(action.PreviousTextField, 3)}, got, ignoreMeta); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTiltCooldown(t *testing.T) {
	s, _ := newSession(5)
	sens := gesture.DefaultSensitivity()

	n := 0
	for at := 0; at < 500; at += 50 {
		n += len(s.Update(sample(at, -30), nil, sens))
	}
	if n != 1 {
		t.Errorf("held tilt produced %d intents in 500ms, want 1", n)
	}
}

func TestNoFieldsNoNavigation(t *testing.T) {
	s, _ := newSession(0)
	if got := s.Update(sample(0, -30), nil, gesture.DefaultSensitivity()); len(got) != 0 {
		t.Errorf("got %v, want nothing without fields", action.Kinds(got))
	}
}

func TestHoverSelectsOnce(t *testing.T) {
	s, _ := newSession(2)
	sens := gesture.DefaultSensitivity()

	s.Update(sample(0, -30), nil, sens)

	var got []action.Intent
	for at := 100; at <= 5000; at += 100 {
		got = append(got, s.Update(sample(at, 0), nil, sens)...)
	}
	if diff := cmp.Diff([]action.Intent{intent(action.SelectTextField, 0)}, got, ignoreMeta); diff != "" {
		t.Errorf("hover mismatch (-want +got):\n%s", diff)
	}
	if len(got) == 1 && !got[0].At.Equal(ms(2000)) {
		t.Errorf("selected at %v, want after 2s hover", got[0].At.Sub(t0))
	}
}

func TestMovingResetsHover(t *testing.T) {
	s, _ := newSession(3)
	sens := gesture.DefaultSensitivity()

	s.Update(sample(0, -30), nil, sens)
	s.Update(sample(1500, 0), nil, sens)
	s.Update(sample(1600, -30), nil, sens)

	if got := s.Update(sample(3000, 0), nil, sens); len(got) != 0 {
		t.Errorf("selected %v before the new field's hover elapsed", got)
	}
	got := s.Update(sample(3600, 0), nil, sens)
	if diff := cmp.Diff([]action.Intent{intent(action.SelectTextField, 1)}, got, ignoreMeta); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEditOptions(t *testing.T) {
	s, a := newSession(1)
	sens := gesture.DefaultSensitivity()
	smile := expression.Scores{expression.MouthSmileLeft: 0.9}

	s.ShowEditOptions(true)

	var got []action.Intent
	got = append(got, s.Update(sample(0, -30), nil, sens)...)
	got = append(got, s.Update(sample(600, -30), nil, sens)...)
	got = append(got, s.Update(sample(1200, 30), nil, sens)...)
	for at := 1300; at <= 2400; at += 100 {
		got = append(got, s.Update(sample(at, 0), smile, sens)...)
	}

	want := []action.Intent{
		{Kind: action.HighlightEditOption, Option: action.Fix},
		{Kind: action.HighlightEditOption, Option: action.Rewrite},
		{Kind: action.HighlightEditOption, Option: action.Fix},
		{Kind: action.ConfirmEditOption, Option: action.Fix},
	}
	if diff := cmp.Diff(want, got, ignoreMeta); diff != "" {
		t.Errorf("edit options mismatch (-want +got):\n%s", diff)
	}
	if a.successes != 1 {
		t.Errorf("recorded %d confirm successes, want 1", a.successes)
	}
	if s.State(ms(2400)).EditOptions {
		t.Error("confirming should close the edit options")
	}
}

func TestCloseFailsOpenConfirm(t *testing.T) {
	s, a := newSession(1)
	s.ShowEditOptions(true)
	smile := expression.Scores{expression.MouthSmileLeft: 0.9}

	s.Update(sample(0, 0), smile, gesture.DefaultSensitivity())
	s.Update(sample(300, 0), smile, gesture.DefaultSensitivity())
	s.Close(ms(400))

	if a.failures != 1 {
		t.Errorf("recorded %d failures, want 1", a.failures)
	}
}
