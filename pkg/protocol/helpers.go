package protocol

import (
	"time"

	"github.com/teslashibe/go-headpilot/pkg/action"
	"github.com/teslashibe/go-headpilot/pkg/engine"
	"github.com/teslashibe/go-headpilot/pkg/expression"
	"github.com/teslashibe/go-headpilot/pkg/pose"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewFrameMessage creates a frame message
func NewFrameMessage(frame FrameData) (*Message, error) {
	return NewMessage(TypeFrame, frame)
}

// NewIntentMessage creates an intent message
func NewIntentMessage(in action.Intent) (*Message, error) {
	return NewMessage(TypeIntent, in)
}

// NewFeedbackMessage creates an executor feedback message
func NewFeedbackMessage(fb FeedbackData) (*Message, error) {
	return NewMessage(TypeFeedback, fb)
}

// NewControlMessage creates a control message
func NewControlMessage(cmd Command) (*Message, error) {
	return NewMessage(TypeControl, ControlData{Command: cmd})
}

// NewStateMessage creates a state message from an engine status
func NewStateMessage(st engine.Status) (*Message, error) {
	return NewMessage(TypeState, st)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// NewErrorMessage creates an error message
func NewErrorMessage(text string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: text})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetIntentData extracts an intent from a message
func (m *Message) GetIntentData() (*IntentData, error) {
	var data IntentData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFeedbackData extracts executor feedback from a message
func (m *Message) GetFeedbackData() (*FeedbackData, error) {
	var data FeedbackData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetControlData extracts a control command from a message
func (m *Message) GetControlData() (*ControlData, error) {
	var data ControlData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// =============================================================================
// Conversions
// =============================================================================

func (p Point) pose() pose.Point {
	return pose.Point{X: p.X, Y: p.Y, Z: p.Z}
}

// Frame converts the sample to an engine frame. receivedAt is used when
// the estimator sent no capture time.
func (f *FrameData) Frame(receivedAt time.Time) (engine.Frame, error) {
	fr := engine.Frame{
		Scores: expression.FromMap(f.Blendshapes),
		Time:   receivedAt,
	}
	if f.CapturedAt > 0 {
		fr.Time = time.UnixMilli(f.CapturedAt)
	}

	switch {
	case f.Landmarks != nil:
		l := f.Landmarks
		fr.Landmarks = &pose.Landmarks{
			LeftEye:    l.LeftEye.pose(),
			RightEye:   l.RightEye.pose(),
			NoseTip:    l.NoseTip.pose(),
			Chin:       l.Chin.pose(),
			Forehead:   l.Forehead.pose(),
			MouthLeft:  l.MouthLeft.pose(),
			MouthRight: l.MouthRight.pose(),
		}
	case len(f.Mesh) > 0:
		fr.Mesh = make([]pose.Point, len(f.Mesh))
		for i, p := range f.Mesh {
			fr.Mesh[i] = p.pose()
		}
	default:
		return engine.Frame{}, ErrNoLandmarks
	}
	return fr, nil
}

// LandmarksFrom converts engine landmarks to their wire form.
func LandmarksFrom(l pose.Landmarks) *LandmarkSet {
	pt := func(p pose.Point) Point { return Point{X: p.X, Y: p.Y, Z: p.Z} }
	return &LandmarkSet{
		LeftEye:    pt(l.LeftEye),
		RightEye:   pt(l.RightEye),
		NoseTip:    pt(l.NoseTip),
		Chin:       pt(l.Chin),
		Forehead:   pt(l.Forehead),
		MouthLeft:  pt(l.MouthLeft),
		MouthRight: pt(l.MouthRight),
	}
}
