package gesture

import "math"

// Direction is the outcome of a snap turn or tilt.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionBack
	DirectionForward
)

// SnapTurn detects a quick head turn past the navigation yaw. Both the
// position and the frame-to-frame speed must qualify, so slowly drifting
// past the threshold does nothing.
type SnapTurn struct {
	prevYaw float64
	hasPrev bool
}

// Observe feeds one frame's yaw and reports a snap in either direction.
func (s *SnapTurn) Observe(yaw float64, th Thresholds) Direction {
	prev, ok := s.prevYaw, s.hasPrev
	s.prevYaw, s.hasPrev = yaw, true

	if !ok || math.Abs(yaw-prev) <= th.MinYawChange {
		return DirectionNone
	}
	switch {
	case yaw < th.YawBack:
		return DirectionBack
	case yaw > th.YawForward:
		return DirectionForward
	}
	return DirectionNone
}

// Reset forgets the previous frame.
func (s *SnapTurn) Reset() {
	s.hasPrev = false
}

// Tilt classifies head roll. A left tilt (negative roll) is DirectionForward,
// moving to the next tab or field; a right tilt is DirectionBack.
// Tilts are ignored while the head is turned past TiltMaxYaw.
func Tilt(roll, yaw float64, th Thresholds, sens Sensitivity) Direction {
	if math.Abs(yaw) > th.TiltMaxYaw {
		return DirectionNone
	}
	g := sens.Normalized().Gesture
	switch {
	case roll < th.RollLeft/g:
		return DirectionForward
	case roll > th.RollRight/g:
		return DirectionBack
	}
	return DirectionNone
}
