package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-headpilot/pkg/action"
	"github.com/teslashibe/go-headpilot/pkg/expression"
	"github.com/teslashibe/go-headpilot/pkg/pose"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
		wantErr bool
	}{
		{
			name:    "frame message",
			msgType: TypeFrame,
			data:    FrameData{FrameID: 7, Blendshapes: map[string]float64{"jawOpen": 0.2}},
		},
		{
			name:    "control message",
			msgType: TypeControl,
			data:    ControlData{Command: CommandDisable},
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeState,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestParseMessageErrors(t *testing.T) {
	if _, err := ParseMessage([]byte("{not json")); err == nil {
		t.Error("ParseMessage() should reject invalid JSON")
	}
	if _, err := ParseMessage([]byte(`{"data":{}}`)); !errors.Is(err, ErrMissingType) {
		t.Errorf("ParseMessage() error = %v, want ErrMissingType", err)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	original := FrameData{
		FrameID:    42,
		CapturedAt: 1_700_000_000_123,
		Landmarks: &LandmarkSet{
			LeftEye:    Point{X: 0.4, Y: 0.4},
			RightEye:   Point{X: 0.6, Y: 0.4},
			NoseTip:    Point{X: 0.5, Y: 0.5},
			Chin:       Point{X: 0.5, Y: 0.8},
			Forehead:   Point{X: 0.5, Y: 0.2},
			MouthLeft:  Point{X: 0.45, Y: 0.65},
			MouthRight: Point{X: 0.55, Y: 0.65},
		},
		Blendshapes: map[string]float64{"eyeBlinkLeft": 0.9, "cheekPuff": 0.5, "jawOpen": 1.4},
	}

	msg, err := NewFrameMessage(original)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}
	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeFrame {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeFrame)
	}

	fd, err := parsed.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}
	if fd.FrameID != 42 {
		t.Errorf("FrameID = %v, want 42", fd.FrameID)
	}

	frame, err := fd.Frame(time.Now())
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if !frame.Time.Equal(time.UnixMilli(original.CapturedAt)) {
		t.Errorf("Time = %v, want capture time", frame.Time)
	}
	if frame.Landmarks == nil || frame.Landmarks.RightEye.X != 0.6 {
		t.Fatalf("Landmarks = %+v, want converted set", frame.Landmarks)
	}
	if got := frame.Scores.Get(expression.EyeBlinkLeft); got != 0.9 {
		t.Errorf("eyeBlinkLeft = %v, want 0.9", got)
	}
	if got := frame.Scores.Get(expression.JawOpen); got != 1 {
		t.Errorf("jawOpen = %v, want clamped to 1", got)
	}
	if _, ok := frame.Scores["cheekPuff"]; ok {
		t.Error("unknown blendshape should be dropped")
	}
}

func TestFrameFromMesh(t *testing.T) {
	fd := FrameData{Mesh: make([]Point, pose.MeshSize)}
	fd.Mesh[pose.IndexNoseTip] = Point{X: 0.5, Y: 0.5, Z: -0.1}

	received := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	frame, err := fd.Frame(received)
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if !frame.Time.Equal(received) {
		t.Errorf("Time = %v, want receive time %v", frame.Time, received)
	}
	if len(frame.Mesh) != pose.MeshSize {
		t.Fatalf("Mesh length = %d, want %d", len(frame.Mesh), pose.MeshSize)
	}
	if frame.Mesh[pose.IndexNoseTip].Z != -0.1 {
		t.Errorf("NoseTip.Z = %v, want -0.1", frame.Mesh[pose.IndexNoseTip].Z)
	}
}

func TestFrameWithoutLandmarks(t *testing.T) {
	fd := FrameData{Blendshapes: map[string]float64{"jawOpen": 0.5}}
	if _, err := fd.Frame(time.Now()); !errors.Is(err, ErrNoLandmarks) {
		t.Errorf("Frame() error = %v, want ErrNoLandmarks", err)
	}
}

func TestIntentMessage(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := action.NewSelectTextField(2, at)

	msg, err := NewIntentMessage(in)
	if err != nil {
		t.Fatalf("NewIntentMessage() error = %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(msg.Data, &wire); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if wire["kind"] != "selectTextField" {
		t.Errorf("kind = %v, want selectTextField", wire["kind"])
	}

	got, err := msg.GetIntentData()
	if err != nil {
		t.Fatalf("GetIntentData() error = %v", err)
	}
	if got.ID != in.ID || got.Index != 2 || !got.At.Equal(at) {
		t.Errorf("GetIntentData() = %+v, want %+v", got, in)
	}
}

func TestFeedbackMessage(t *testing.T) {
	count := 3
	msg, err := NewFeedbackMessage(FeedbackData{FieldCount: &count})
	if err != nil {
		t.Fatalf("NewFeedbackMessage() error = %v", err)
	}

	fb, err := msg.GetFeedbackData()
	if err != nil {
		t.Fatalf("GetFeedbackData() error = %v", err)
	}
	if fb.FieldCount == nil || *fb.FieldCount != 3 {
		t.Errorf("FieldCount = %v, want 3", fb.FieldCount)
	}
	if fb.FieldIndex != nil || fb.EditOptions != nil {
		t.Error("unset feedback fields should stay nil")
	}
}

func TestControlMessage(t *testing.T) {
	msg, err := NewControlMessage(CommandRecalibrate)
	if err != nil {
		t.Fatalf("NewControlMessage() error = %v", err)
	}
	ctl, err := msg.GetControlData()
	if err != nil {
		t.Fatalf("GetControlData() error = %v", err)
	}
	if ctl.Command != CommandRecalibrate {
		t.Errorf("Command = %v, want recalibrate", ctl.Command)
	}

	for _, c := range []Command{CommandEnable, CommandDisable, CommandRecalibrate, CommandSkipCalibration, CommandResetProfile} {
		if !c.Valid() {
			t.Errorf("%q should be valid", c)
		}
	}
	if Command("explode").Valid() {
		t.Error("unknown command should be invalid")
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	now := time.Now().UnixMilli()
	pongMsg, err := NewPongMessage("test-123", pingData.Timestamp, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	if pongMsg.Type != TypePong {
		t.Errorf("Type = %v, want %v", pongMsg.Type, TypePong)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}

func TestLandmarksFrom(t *testing.T) {
	l := pose.Landmarks{NoseTip: pose.Point{X: 0.3, Y: 0.2, Z: 0.1}}
	set := LandmarksFrom(l)
	if set.NoseTip != (Point{X: 0.3, Y: 0.2, Z: 0.1}) {
		t.Errorf("NoseTip = %+v", set.NoseTip)
	}
}
