package estimator

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/teslashibe/go-headpilot/pkg/protocol"
)

// Record is one line of a JSONL recording: a frame and its offset from the
// start of the recording.
type Record struct {
	OffsetMS int64              `json:"t"`
	Frame    protocol.FrameData `json:"frame"`
}

// ReadRecording parses a JSONL recording. Blank lines are skipped.
func ReadRecording(r io.Reader) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("recording line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return out, nil
}

// WriteRecording writes records as JSONL.
func WriteRecording(w io.Writer, recs []Record) error {
	enc := json.NewEncoder(w)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// FrameSender sends one frame. *Client satisfies it.
type FrameSender interface {
	SendFrame(f protocol.FrameData) error
}

// Replay sends records with their original spacing divided by speed.
// Capture times are rewritten to the replay clock so the engine sees live
// timestamps. It returns the number of frames sent.
func Replay(ctx context.Context, s FrameSender, recs []Record, speed float64) (int, error) {
	if speed <= 0 {
		speed = 1
	}
	start := time.Now()
	for i, rec := range recs {
		due := start.Add(time.Duration(float64(rec.OffsetMS)/speed) * time.Millisecond)
		if wait := time.Until(due); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return i, ctx.Err()
			case <-t.C:
			}
		}

		f := rec.Frame
		f.CapturedAt = time.Now().UnixMilli()
		if err := s.SendFrame(f); err != nil {
			return i, fmt.Errorf("send frame %d: %w", i, err)
		}
	}
	return len(recs), nil
}
