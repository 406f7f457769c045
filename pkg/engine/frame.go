package engine

import (
	"time"

	"github.com/teslashibe/go-headpilot/pkg/expression"
	"github.com/teslashibe/go-headpilot/pkg/pose"
)

// Frame is one estimator sample. Either Landmarks or a full Mesh must be set.
type Frame struct {
	Landmarks *pose.Landmarks
	Mesh      []pose.Point
	Scores    expression.Scores

	// Time is the capture instant. Zero means "now" on the engine clock.
	Time time.Time
}

func (f Frame) landmarks() (pose.Landmarks, error) {
	if f.Landmarks != nil {
		return *f.Landmarks, nil
	}
	return pose.FromMesh(f.Mesh)
}
