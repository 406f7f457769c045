package mode

import (
	"testing"
	"time"

	"github.com/teslashibe/go-headpilot/pkg/expression"
)

var t0 = time.Unix(1_700_000_000, 0)

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

var (
	eyesShut = expression.Scores{expression.EyeBlinkLeft: 0.9, expression.EyeBlinkRight: 0.9}
	eyesOpen = expression.Scores{expression.EyeBlinkLeft: 0.05, expression.EyeBlinkRight: 0.05}
	browsUp  = expression.Scores{expression.BrowInnerUp: 0.6, expression.BrowOuterUpLeft: 0.5, expression.BrowOuterUpRight: 0.5}
	none     = expression.Scores{}
)

// wake double-blinks so the controller enters GestureActive at ms(at).
func wake(t *testing.T, c *Controller, at int) {
	t.Helper()
	c.Update(eyesShut, ms(at-500))
	c.Update(eyesOpen, ms(at-400))
	trs := c.Update(eyesShut, ms(at))
	c.Update(eyesOpen, ms(at+1))
	if len(trs) != 1 || trs[0].To != GestureActive {
		t.Fatalf("wake at %dms: got transitions %+v", at, trs)
	}
}

func TestDoubleBlinkWakes(t *testing.T) {
	c := NewController(DefaultConfig())

	if trs := c.Update(eyesShut, ms(0)); len(trs) != 0 {
		t.Fatalf("first blink transitioned: %+v", trs)
	}
	c.Update(eyesOpen, ms(150))
	trs := c.Update(eyesShut, ms(500))

	if len(trs) != 1 {
		t.Fatalf("got %d transitions, want 1", len(trs))
	}
	if trs[0].From != Neutral || trs[0].To != GestureActive || trs[0].Reason != ReasonWake {
		t.Errorf("got %+v, want neutral -> gesture_active by double blink", trs[0])
	}
	if !trs[0].At.Equal(ms(500)) {
		t.Errorf("transition at %v, want the second blink", trs[0].At)
	}
}

type frame struct {
	at     int
	scores expression.Scores
}

func TestBlinksThatDoNotWake(t *testing.T) {
	tests := []struct {
		name   string
		frames []frame
	}{
		{"single blink", []frame{{0, eyesShut}, {200, eyesOpen}, {2000, eyesOpen}}},
		{"blinks too far apart", []frame{{0, eyesShut}, {200, eyesOpen}, {1000, eyesShut}}},
		{"blinks too close together", []frame{{0, eyesShut}, {30, eyesOpen}, {60, eyesShut}}},
		{"eyes never reopen", []frame{{0, eyesShut}, {200, eyesShut}, {500, eyesShut}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(DefaultConfig())
			for _, f := range tt.frames {
				if trs := c.Update(f.scores, ms(f.at)); len(trs) != 0 {
					t.Fatalf("unexpected transition at %dms: %+v", f.at, trs)
				}
			}
			if c.Mode() != Neutral {
				t.Errorf("mode = %v, want neutral", c.Mode())
			}
		})
	}
}

func TestWindowExpires(t *testing.T) {
	c := NewController(DefaultConfig())
	wake(t, c, 0)

	if trs := c.Update(none, ms(14_999)); len(trs) != 0 {
		t.Fatalf("expired early: %+v", trs)
	}
	trs := c.Update(none, ms(15_000))
	if len(trs) != 1 || trs[0].To != Neutral || trs[0].Reason != ReasonTimeout {
		t.Fatalf("at 15000ms got %+v, want timeout to neutral", trs)
	}
}

func TestExtendRenewsWindow(t *testing.T) {
	c := NewController(DefaultConfig())
	wake(t, c, 0)

	c.Extend(ms(10_000))

	if trs := c.Update(none, ms(15_000)); len(trs) != 0 {
		t.Fatalf("expired at 15000ms despite extension: %+v", trs)
	}
	if got := c.Remaining(ms(15_000)); got != 10*time.Second {
		t.Errorf("remaining = %v, want 10s", got)
	}
	if trs := c.Update(none, ms(24_999)); len(trs) != 0 {
		t.Fatalf("expired early: %+v", trs)
	}
	if trs := c.Update(none, ms(25_000)); len(trs) != 1 || trs[0].To != Neutral {
		t.Fatalf("at 25000ms got %+v, want timeout", trs)
	}
}

func TestExtendIgnoredOutsideGestureMode(t *testing.T) {
	c := NewController(DefaultConfig())
	c.Extend(ms(0))
	if c.Mode() != Neutral || c.Remaining(ms(0)) != 0 {
		t.Errorf("Extend should not affect neutral mode")
	}
}

func TestBrowTogglesTextField(t *testing.T) {
	c := NewController(DefaultConfig())
	wake(t, c, 0)

	trs := c.Update(browsUp, ms(1000))
	if len(trs) != 1 || trs[0].To != TextField {
		t.Fatalf("brow raise got %+v, want text_field", trs)
	}

	// Held brows do not toggle again.
	if trs := c.Update(browsUp, ms(1100)); len(trs) != 0 {
		t.Fatalf("held brow toggled: %+v", trs)
	}

	// TextField has no timeout.
	c.Update(none, ms(60_000))
	if c.Mode() != TextField {
		t.Fatalf("mode = %v, want text_field to persist", c.Mode())
	}

	trs = c.Update(browsUp, ms(61_000))
	if len(trs) != 1 || trs[0].To != GestureActive {
		t.Fatalf("second raise got %+v, want gesture_active", trs)
	}
	if got := c.Remaining(ms(61_000)); got != 15*time.Second {
		t.Errorf("remaining = %v, want a fresh 15s window", got)
	}
}

func TestBrowCooldown(t *testing.T) {
	c := NewController(DefaultConfig())
	wake(t, c, 0)

	c.Update(browsUp, ms(1000))
	c.Update(none, ms(1200))
	if trs := c.Update(browsUp, ms(1500)); len(trs) != 0 {
		t.Fatalf("toggled inside cooldown: %+v", trs)
	}
	if c.Mode() != TextField {
		t.Errorf("mode = %v, want text_field", c.Mode())
	}
}

func TestBrowIgnoredInNeutral(t *testing.T) {
	c := NewController(DefaultConfig())
	if trs := c.Update(browsUp, ms(0)); len(trs) != 0 {
		t.Fatalf("brow raise in neutral transitioned: %+v", trs)
	}
}

func TestReset(t *testing.T) {
	c := NewController(DefaultConfig())
	if _, changed := c.Reset(ms(0)); changed {
		t.Error("reset from neutral should not report a change")
	}

	wake(t, c, 0)
	c.Update(browsUp, ms(1000))

	tr, changed := c.Reset(ms(2000))
	if !changed || tr.From != TextField || tr.To != Neutral {
		t.Errorf("Reset = %+v, %v; want text_field -> neutral", tr, changed)
	}
}
