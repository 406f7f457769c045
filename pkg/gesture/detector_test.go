package gesture

import (
	"testing"
	"time"

	"github.com/teslashibe/go-headpilot/pkg/dwell"
)

var t0 = time.Unix(1_700_000_000, 0)

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

// runClick opens the mouth at 0, keeps it open until closeAt, polling every
// 50ms, and returns every non-empty event.
func runClick(c *Click, closeAt int) []Resolution {
	var out []Resolution
	for t := 0; t < closeAt; t += 50 {
		if r := c.Update(true, ms(t)); r.Event != EventNone {
			out = append(out, r)
		}
	}
	if r := c.Update(false, ms(closeAt)); r.Event != EventNone {
		out = append(out, r)
	}
	return out
}

func lastEvent(rs []Resolution) Event {
	if len(rs) == 0 {
		return EventNone
	}
	return rs[len(rs)-1].Event
}

func countEvent(rs []Resolution, e Event) int {
	n := 0
	for _, r := range rs {
		if r.Event == e {
			n++
		}
	}
	return n
}

func TestClickTwoStage(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		closeAt int
		want    Event
	}{
		{"held one second then closed", 1000, EventFired},
		{"closed right after arming", 850, EventFired},
		{"closed before arming", 500, EventFailed},
		{"closed one second after arming", 1800, EventFired},
		{"closed two seconds after arming", 2800, EventFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClick(cfg.ClickHold, cfg.ClickMaxOpen)
			rs := runClick(c, tt.closeAt)

			if countEvent(rs, EventFired) > 1 {
				t.Fatalf("fired more than once: %+v", rs)
			}
			if tt.want == EventFired && lastEvent(rs) != EventFired {
				t.Errorf("events %+v, want a click", rs)
			}
			if tt.want == EventFailed {
				if countEvent(rs, EventFired) != 0 {
					t.Errorf("events %+v, want no click", rs)
				}
				if countEvent(rs, EventFailed) != 1 {
					t.Errorf("events %+v, want exactly one failure", rs)
				}
			}
		})
	}
}

func TestClickLatchedUntilClosed(t *testing.T) {
	c := NewClick(800*time.Millisecond, 1500*time.Millisecond)
	c.Update(true, ms(0))
	if r := c.Cancel(ms(100)); r.Event != EventFailed || r.Duration != 100*time.Millisecond {
		t.Fatalf("Cancel = %+v, want failure after 100ms", r)
	}

	// Still open: no new attempt until the mouth closes.
	if r := c.Update(true, ms(200)); r.Event != EventNone {
		t.Errorf("reopened while latched: %+v", r)
	}
	c.Update(false, ms(300))
	if r := c.Update(true, ms(400)); r.Event != EventStarted {
		t.Errorf("after close got %+v, want a new attempt", r)
	}
}

func TestHoldFiresAtDwell(t *testing.T) {
	h := NewHold(dwell.Smile)
	d := time.Second

	if r := h.Update(true, d, ms(0)); r.Event != EventStarted {
		t.Fatalf("got %v, want started", r.Event)
	}
	if r := h.Update(true, d, ms(999)); r.Event != EventNone {
		t.Fatalf("got %v before dwell, want none", r.Event)
	}
	if p := h.Progress(ms(500)); p != 0.5 {
		t.Errorf("progress = %v, want 0.5", p)
	}

	r := h.Update(true, d, ms(1000))
	if r.Event != EventFired || r.Duration != time.Second {
		t.Fatalf("got %+v, want fired after 1s", r)
	}

	// Still held: latched, nothing more until release.
	if r := h.Update(true, d, ms(3000)); r.Event != EventNone {
		t.Errorf("held past resolution got %v, want none", r.Event)
	}
	h.Update(false, d, ms(3100))
	if r := h.Update(true, d, ms(3200)); r.Event != EventStarted {
		t.Errorf("after release got %v, want started", r.Event)
	}
}

func TestHoldReleasedEarlyFails(t *testing.T) {
	h := NewHold(dwell.Wink)
	h.Update(true, time.Second, ms(0))

	r := h.Update(false, time.Second, ms(400))
	if r.Event != EventFailed || r.Duration != 400*time.Millisecond {
		t.Errorf("got %+v, want failure after 400ms", r)
	}
	if _, ok := h.Attempt(); ok {
		t.Error("attempt should be closed")
	}
}

func TestSnapTurn(t *testing.T) {
	th := DefaultConfig().Thresholds

	tests := []struct {
		name string
		yaws []float64
		want []Direction
	}{
		{
			name: "slow drift past threshold",
			yaws: []float64{0, 0, 5, 48, 49, 51},
			want: nil,
		},
		{
			name: "fast turn right",
			yaws: []float64{0, 0, 30, 51},
			want: []Direction{DirectionForward},
		},
		{
			name: "fast turn left",
			yaws: []float64{0, -20, -60, -62},
			want: []Direction{DirectionBack},
		},
		{
			name: "first frame has no velocity",
			yaws: []float64{70},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s SnapTurn
			var got []Direction
			for _, y := range tt.yaws {
				if d := s.Observe(y, th); d != DirectionNone {
					got = append(got, d)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestTilt(t *testing.T) {
	th := DefaultConfig().Thresholds
	sens := DefaultSensitivity()

	tests := []struct {
		roll, yaw float64
		sens      float64
		want      Direction
	}{
		{0, 0, 1, DirectionNone},
		{-30, 0, 1, DirectionForward},
		{30, 0, 1, DirectionBack},
		{-30, 45, 1, DirectionNone},
		{-20, 0, 1, DirectionNone},
		{-20, 0, 2, DirectionForward},
		{-30, 0, 0.5, DirectionNone},
	}
	for _, tt := range tests {
		s := sens
		s.Gesture = tt.sens
		if got := Tilt(tt.roll, tt.yaw, th, s); got != tt.want {
			t.Errorf("Tilt(roll %v, yaw %v, sens %v) = %v, want %v", tt.roll, tt.yaw, tt.sens, got, tt.want)
		}
	}
}

func TestCooldowns(t *testing.T) {
	c := NewCooldowns(DefaultConfig().Cooldowns)

	if !c.TryTrigger(KeyCloseTab, ms(0)) {
		t.Fatal("first trigger should succeed")
	}
	if c.TryTrigger(KeyCloseTab, ms(1999)) {
		t.Error("trigger inside cooldown should fail")
	}
	if !c.Ready(KeyRefresh, ms(1)) {
		t.Error("cooldowns should be independent")
	}
	if !c.TryTrigger(KeyCloseTab, ms(2000)) {
		t.Error("trigger after cooldown should succeed")
	}

	c.Reset()
	if !c.Ready(KeyCloseTab, ms(2001)) {
		t.Error("Reset should clear cooldowns")
	}
}

func TestSensitivityPercent(t *testing.T) {
	p := Percent{Scroll: 5, Click: 150, Gesture: 0, CursorSpeed: 500}
	s := p.Sensitivity()

	if s.Scroll != 0.1 {
		t.Errorf("scroll = %v, want clamped to 0.1", s.Scroll)
	}
	if s.Click != 1.5 {
		t.Errorf("click = %v, want 1.5", s.Click)
	}
	if s.Gesture != 1 {
		t.Errorf("gesture = %v, want unset to read as 1", s.Gesture)
	}
	if s.CursorSpeed != 2 {
		t.Errorf("cursor speed = %v, want clamped to 2", s.CursorSpeed)
	}
	if back := s.Percent(); back != (Percent{Scroll: 10, Click: 150, Gesture: 100, CursorSpeed: 200}) {
		t.Errorf("Percent() = %+v", back)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.ClickMaxOpen = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero click max open")
	}
}
