// Package pose turns face-mesh landmarks into a head pose relative to a
// calibrated neutral baseline.
package pose

import (
	"errors"
	"math"
	"time"
)

// ErrMissingLandmarks is returned when a frame lacks a landmark the pose needs.
var ErrMissingLandmarks = errors.New("pose: missing landmarks")

// Face-mesh indices of the landmarks the pose is computed from.
const (
	IndexForehead      = 10
	IndexNoseTip       = 4
	IndexLeftEyeOuter  = 33
	IndexMouthLeft     = 61
	IndexChin          = 152
	IndexRightEyeOuter = 263
	IndexMouthRight    = 291

	// MeshSize is the minimum mesh length that covers every index above.
	MeshSize = IndexMouthRight + 1
)

// Point is a normalized image-space landmark (x, y in [0,1], z relative depth).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

func (p Point) valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Landmarks is the subset of the face mesh used for pose estimation.
type Landmarks struct {
	LeftEye    Point
	RightEye   Point
	NoseTip    Point
	Chin       Point
	Forehead   Point
	MouthLeft  Point
	MouthRight Point
}

// FromMesh picks the pose landmarks out of a full face mesh.
func FromMesh(mesh []Point) (Landmarks, error) {
	if len(mesh) < MeshSize {
		return Landmarks{}, ErrMissingLandmarks
	}
	l := Landmarks{
		LeftEye:    mesh[IndexLeftEyeOuter],
		RightEye:   mesh[IndexRightEyeOuter],
		NoseTip:    mesh[IndexNoseTip],
		Chin:       mesh[IndexChin],
		Forehead:   mesh[IndexForehead],
		MouthLeft:  mesh[IndexMouthLeft],
		MouthRight: mesh[IndexMouthRight],
	}
	return l, l.validate()
}

func (l Landmarks) validate() error {
	for _, p := range []Point{l.LeftEye, l.RightEye, l.NoseTip, l.Chin, l.Forehead, l.MouthLeft, l.MouthRight} {
		if !p.valid() {
			return ErrMissingLandmarks
		}
	}
	if l.MouthRight.X == l.MouthLeft.X || l.Chin.Y == l.Forehead.Y {
		return ErrMissingLandmarks
	}
	return nil
}

// EyeCenter is the midpoint between the outer eye corners.
func (l Landmarks) EyeCenter() Point {
	return Point{
		X: (l.LeftEye.X + l.RightEye.X) / 2,
		Y: (l.LeftEye.Y + l.RightEye.Y) / 2,
	}
}

// Angles is a head orientation in degrees.
type Angles struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Baseline is the neutral head orientation captured during calibration.
type Baseline = Angles

// Sample is one normalized pose reading. Positive pitch is head down,
// positive yaw is head turned right, positive roll tilts the right eye down.
type Sample struct {
	Angles
	Time time.Time `json:"-"`
}

// Raw computes uncorrected angles from landmarks.
//
// Pitch compares the nose's vertical offset from the eyes to the face height
// and is doubled to widen its usable range. Yaw is the nose's horizontal offset
// from the mouth center as a fraction of mouth width, scaled to 90 degrees.
func Raw(l Landmarks) (Angles, error) {
	if err := l.validate(); err != nil {
		return Angles{}, err
	}

	eyes := l.EyeCenter()
	mouthCenterX := (l.MouthLeft.X + l.MouthRight.X) / 2
	mouthWidth := math.Abs(l.MouthRight.X - l.MouthLeft.X)

	return Angles{
		Roll:  Degrees(math.Atan2(l.RightEye.Y-l.LeftEye.Y, l.RightEye.X-l.LeftEye.X)),
		Pitch: Degrees(math.Atan2(l.NoseTip.Y-eyes.Y, l.Chin.Y-l.Forehead.Y)) * 2,
		Yaw:   (l.NoseTip.X - mouthCenterX) / mouthWidth * 90,
	}, nil
}

// Sub returns a relative to the baseline.
func (a Angles) Sub(b Baseline) Angles {
	return Angles{
		Pitch: a.Pitch - b.Pitch,
		Yaw:   a.Yaw - b.Yaw,
		Roll:  a.Roll - b.Roll,
	}
}

// Normalize computes the pose for landmarks relative to the baseline.
func Normalize(l Landmarks, b Baseline, at time.Time) (Sample, error) {
	raw, err := Raw(l)
	if err != nil {
		return Sample{}, err
	}
	return Sample{Angles: raw.Sub(b), Time: at}, nil
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
