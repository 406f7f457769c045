// Package textfield drives form filling while the engine is in text-field
// mode: tilting moves between the page's fields, resting on one selects it,
// and a held smile confirms the highlighted edit option.
package textfield

import (
	"time"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/action"
	"github.com/teslashibe/go-headpilot/pkg/dwell"
	"github.com/teslashibe/go-headpilot/pkg/expression"
	"github.com/teslashibe/go-headpilot/pkg/gesture"
	"github.com/teslashibe/go-headpilot/pkg/pose"
)

// Config holds text-field timings.
type Config struct {
	// HoverDuration is how long a field must stay highlighted to be selected.
	HoverDuration time.Duration `yaml:"hover_duration" json:"hover_duration"`
}

// DefaultConfig returns the stock text-field timings.
func DefaultConfig() Config {
	return Config{HoverDuration: 2 * time.Second}
}

// Session is the state of one text-field mode visit. It is created on entry
// and discarded on exit. Not safe for concurrent use.
type Session struct {
	cfg        Config
	thresholds gesture.Thresholds
	adapter    gesture.Adapter
	cooldowns  *gesture.Cooldowns
	confirm    *gesture.Hold

	fieldCount int
	index      int
	hoverStart time.Time
	selected   bool

	editOptions bool
	option      action.EditOption
}

// NewSession starts a session with no field highlighted.
func NewSession(cfg Config, gcfg gesture.Config, adapter gesture.Adapter) *Session {
	return &Session{
		cfg:        cfg,
		thresholds: gcfg.Thresholds,
		adapter:    adapter,
		cooldowns:  gesture.NewCooldowns(gcfg.Cooldowns),
		confirm:    gesture.NewHold(dwell.Confirm),
		index:      -1,
	}
}

// State is a snapshot of the session for display.
type State struct {
	FieldCount  int               `json:"field_count"`
	Index       int               `json:"index"`
	Selected    bool              `json:"selected"`
	EditOptions bool              `json:"edit_options"`
	Option      action.EditOption `json:"option"`
	Hover       float64           `json:"hover"`
	Confirm     float64           `json:"confirm"`
}

// State returns the current session state.
func (s *Session) State(at time.Time) State {
	st := State{
		FieldCount:  s.fieldCount,
		Index:       s.index,
		Selected:    s.selected,
		EditOptions: s.editOptions,
		Option:      s.option,
		Confirm:     s.confirm.Progress(at),
	}
	if s.index >= 0 && !s.selected && s.cfg.HoverDuration > 0 {
		st.Hover = min(float64(at.Sub(s.hoverStart))/float64(s.cfg.HoverDuration), 1)
	}
	return st
}

// SetFieldCount records how many fields the executor found on the page.
func (s *Session) SetFieldCount(n int) {
	s.fieldCount = max(n, 0)
	if s.index >= s.fieldCount {
		s.index = -1
		s.selected = false
	}
	log.Debug("text fields reported", "count", s.fieldCount)
}

// SyncIndex adopts the executor's notion of the focused field.
func (s *Session) SyncIndex(i int, at time.Time) {
	if i < 0 || i >= s.fieldCount {
		return
	}
	s.index = i
	s.hoverStart = at
	s.selected = false
}

// ShowEditOptions records whether the executor is showing edit options.
// Showing them resets the highlighted option to the first.
func (s *Session) ShowEditOptions(shown bool) {
	if shown && !s.editOptions {
		s.option = action.Keep
	}
	s.editOptions = shown
}

// Update processes one frame and returns the intents it produced.
func (s *Session) Update(p pose.Sample, sc expression.Scores, sens gesture.Sensitivity) []action.Intent {
	at := p.Time
	sens = sens.Normalized()
	dir := gesture.Tilt(p.Roll, p.Yaw, s.thresholds, sens)

	if s.editOptions {
		return s.updateEditOptions(dir, sc, sens, at)
	}
	s.cancelConfirm(at)

	var out []action.Intent
	if dir != gesture.DirectionNone && s.fieldCount > 0 && s.cooldowns.TryTrigger(gesture.KeyTextFieldSwitch, at) {
		out = append(out, s.move(dir, at))
	}

	if s.index >= 0 && !s.selected && at.Sub(s.hoverStart) >= s.cfg.HoverDuration {
		s.selected = true
		out = append(out, action.NewSelectTextField(s.index, at))
		log.Info("text field selected", "index", s.index)
	}
	return out
}

func (s *Session) move(dir gesture.Direction, at time.Time) action.Intent {
	kind := action.NextTextField
	step := 1
	if dir == gesture.DirectionBack {
		kind = action.PreviousTextField
		step = -1
	}

	switch {
	case s.index < 0 && step > 0:
		s.index = 0
	case s.index < 0:
		s.index = s.fieldCount - 1
	default:
		s.index = (s.index + step + s.fieldCount) % s.fieldCount
	}
	s.hoverStart = at
	s.selected = false

	in := action.New(kind, at)
	in.Index = s.index
	return in
}

func (s *Session) updateEditOptions(dir gesture.Direction, sc expression.Scores, sens gesture.Sensitivity, at time.Time) []action.Intent {
	var out []action.Intent

	if dir != gesture.DirectionNone && s.cooldowns.TryTrigger(gesture.KeyTextFieldSwitch, at) {
		step := 1
		if dir == gesture.DirectionBack {
			step = -1
		}
		s.option = s.option.Step(step)
		out = append(out, action.NewEditOption(action.HighlightEditOption, s.option, at))
	}

	smiling := sc.Smile() > s.thresholds.Smile/sens.Gesture
	dt := s.adapter.DwellFor(dwell.Confirm, dwell.RiskLow, at)
	r := s.confirm.Update(smiling, dt, at)

	switch r.Event {
	case gesture.EventFired:
		s.adapter.RecordOutcome(dwell.Confirm, true, r.Duration, at)
		if s.cooldowns.TryTrigger(gesture.KeyConfirm, at) {
			out = append(out, action.NewEditOption(action.ConfirmEditOption, s.option, at))
			s.editOptions = false
			log.Info("edit option confirmed", "option", s.option)
		}
	case gesture.EventFailed:
		if r.Duration > 0 {
			s.adapter.RecordOutcome(dwell.Confirm, false, r.Duration, at)
		}
	}
	return out
}

func (s *Session) cancelConfirm(at time.Time) {
	if r := s.confirm.Cancel(at); r.Event == gesture.EventFailed && r.Duration > 0 {
		s.adapter.RecordOutcome(dwell.Confirm, false, r.Duration, at)
	}
}

// Close abandons any open attempt. Call it when leaving text-field mode.
func (s *Session) Close(at time.Time) {
	s.cancelConfirm(at)
}
