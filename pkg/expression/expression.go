// Package expression holds the per-frame facial expression scores reported by
// the landmark estimator.
package expression

import "math"

// Name identifies one expression score. The set is fixed; names follow the
// estimator's blendshape naming.
type Name string

const (
	EyeBlinkLeft     Name = "eyeBlinkLeft"
	EyeBlinkRight    Name = "eyeBlinkRight"
	MouthSmileLeft   Name = "mouthSmileLeft"
	MouthSmileRight  Name = "mouthSmileRight"
	JawOpen          Name = "jawOpen"
	BrowInnerUp      Name = "browInnerUp"
	BrowOuterUpLeft  Name = "browOuterUpLeft"
	BrowOuterUpRight Name = "browOuterUpRight"
)

// Names lists every recognized expression.
var Names = []Name{
	EyeBlinkLeft, EyeBlinkRight,
	MouthSmileLeft, MouthSmileRight,
	JawOpen,
	BrowInnerUp, BrowOuterUpLeft, BrowOuterUpRight,
}

// Known reports whether n is a recognized expression name.
func Known(n Name) bool {
	for _, k := range Names {
		if k == n {
			return true
		}
	}
	return false
}

// Scores maps expression names to values in [0,1].
// Lookups are total: an absent score reads as 0.
type Scores map[Name]float64

// FromMap builds Scores from estimator output, dropping unknown names and
// clamping values into [0,1].
func FromMap(m map[string]float64) Scores {
	s := make(Scores, len(Names))
	for k, v := range m {
		n := Name(k)
		if !Known(n) {
			continue
		}
		s[n] = clamp01(v)
	}
	return s
}

// Get returns the score for n, or 0 when absent.
func (s Scores) Get(n Name) float64 {
	return s[n]
}

// Smile is the stronger of the two mouth-corner smile scores.
func (s Scores) Smile() float64 {
	return max(s.Get(MouthSmileLeft), s.Get(MouthSmileRight))
}

// BrowRaise is the mean of the inner and both outer brow scores.
func (s Scores) BrowRaise() float64 {
	return (s.Get(BrowInnerUp) + s.Get(BrowOuterUpLeft) + s.Get(BrowOuterUpRight)) / 3
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
