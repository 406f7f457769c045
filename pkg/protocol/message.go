// Package protocol defines the WebSocket and MQTT message types exchanged
// between the landmark estimator, headpilot and the browser executor.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-headpilot/pkg/action"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Estimator → headpilot
	TypeFrame MessageType = "frame" // Landmarks and expression scores

	// Headpilot → executor
	TypeIntent MessageType = "intent" // Action intent

	// Executor → headpilot
	TypeFeedback MessageType = "feedback" // Text-field and edit-option state

	// Dashboard → headpilot
	TypeControl MessageType = "control" // Enable, disable, recalibrate

	// Headpilot → dashboard
	TypeState MessageType = "state" // Engine status snapshot

	// Bidirectional
	TypePing  MessageType = "ping"  // Health check
	TypePong  MessageType = "pong"  // Health check response
	TypeError MessageType = "error" // Rejected request
)

// Message is the envelope for all messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, ErrMissingType
	}
	return &msg, nil
}

// =============================================================================
// Estimator → headpilot
// =============================================================================

// Point is a normalized landmark position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// LandmarkSet carries just the seven landmarks the pose estimate needs.
type LandmarkSet struct {
	LeftEye    Point `json:"left_eye"`
	RightEye   Point `json:"right_eye"`
	NoseTip    Point `json:"nose_tip"`
	Chin       Point `json:"chin"`
	Forehead   Point `json:"forehead"`
	MouthLeft  Point `json:"mouth_left"`
	MouthRight Point `json:"mouth_right"`
}

// FrameData is one estimator sample. Either Landmarks or Mesh must be set;
// Mesh is the full face mesh in the estimator's index order.
type FrameData struct {
	FrameID     uint64             `json:"frame_id,omitempty"`
	CapturedAt  int64              `json:"captured_at,omitempty"` // Unix milliseconds
	Landmarks   *LandmarkSet       `json:"landmarks,omitempty"`
	Mesh        []Point            `json:"mesh,omitempty"`
	Blendshapes map[string]float64 `json:"blendshapes,omitempty"`
}

// =============================================================================
// Headpilot → executor
// =============================================================================

// IntentData is an action intent for the executor.
type IntentData = action.Intent

// =============================================================================
// Executor → headpilot
// =============================================================================

// FeedbackData reports executor-side state. Only the fields that changed
// need to be set.
type FeedbackData struct {
	FieldCount  *int  `json:"field_count,omitempty"`
	FieldIndex  *int  `json:"field_index,omitempty"`
	EditOptions *bool `json:"edit_options,omitempty"`
}

// =============================================================================
// Dashboard → headpilot
// =============================================================================

// Command is a control request.
type Command string

const (
	CommandEnable          Command = "enable"
	CommandDisable         Command = "disable"
	CommandRecalibrate     Command = "recalibrate"
	CommandSkipCalibration Command = "skip_calibration"
	CommandResetProfile    Command = "reset_profile"
)

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	switch c {
	case CommandEnable, CommandDisable, CommandRecalibrate, CommandSkipCalibration, CommandResetProfile:
		return true
	}
	return false
}

// ControlData carries a control command.
type ControlData struct {
	Command Command `json:"command"`
}

// =============================================================================
// Bidirectional
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}

// ErrorData explains a rejected message.
type ErrorData struct {
	Message string `json:"message"`
}
