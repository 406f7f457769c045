package engine

import (
	"github.com/teslashibe/go-headpilot/pkg/pose"
)

// cursorFilter maps head pose to a smoothed normalized screen position.
type cursorFilter struct {
	cfg    CursorConfig
	x, y   float64
	primed bool
}

// Update returns the next cursor position for a pose. speed scales the gain.
func (c *cursorFilter) Update(eyes pose.Point, a pose.Angles, speed float64) (float64, float64) {
	tx := clamp01(eyes.X + a.Yaw/90*c.cfg.GainX*speed)
	ty := clamp01(eyes.Y + a.Pitch/90*c.cfg.GainY*speed)

	if !c.primed {
		c.x, c.y, c.primed = tx, ty, true
		return c.x, c.y
	}
	alpha := c.cfg.Smoothing
	c.x += alpha * (tx - c.x)
	c.y += alpha * (ty - c.y)
	return c.x, c.y
}

// Reset drops the smoothing history.
func (c *cursorFilter) Reset() {
	c.primed = false
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
