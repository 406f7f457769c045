// Package pilot runs the engine against live frame sources and fans its
// output out to executors and dashboards.
package pilot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/action"
	"github.com/teslashibe/go-headpilot/pkg/dwell"
	"github.com/teslashibe/go-headpilot/pkg/engine"
	"github.com/teslashibe/go-headpilot/pkg/gesture"
	"github.com/teslashibe/go-headpilot/pkg/protocol"
)

// ErrUnknownCommand is returned by Control for commands it does not handle.
var ErrUnknownCommand = errors.New("pilot: unknown command")

// IntentSink receives intents in emission order.
type IntentSink interface {
	PublishIntents(intents []action.Intent)
}

// StatusSink receives periodic engine status.
type StatusSink interface {
	PublishStatus(st engine.Status)
}

// Config holds runner settings.
type Config struct {
	// QueueSize is the number of frames buffered ahead of the engine.
	// Frames arriving when it is full are dropped.
	QueueSize int
	// StatusInterval is how often status is pushed to status sinks.
	StatusInterval time.Duration
}

// DefaultConfig returns runner defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:      4,
		StatusInterval: 200 * time.Millisecond,
	}
}

// Runner owns the tick loop. Frames are submitted from any goroutine and
// processed one at a time.
type Runner struct {
	eng    *engine.Engine
	config Config
	frames chan engine.Frame

	mu          sync.RWMutex
	sinks       []IntentSink
	statusSinks []StatusSink

	submitted atomic.Uint64
	dropped   atomic.Uint64
	errors    atomic.Uint64
	dropLog   *log.Throttle
}

// New creates a runner for eng.
func New(eng *engine.Engine, cfg Config) *Runner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultConfig().StatusInterval
	}
	return &Runner{
		eng:     eng,
		config:  cfg,
		frames:  make(chan engine.Frame, cfg.QueueSize),
		dropLog: log.NewThrottle(5 * time.Second),
	}
}

// AddSink registers an intent sink.
func (r *Runner) AddSink(s IntentSink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	r.mu.Unlock()
}

// AddStatusSink registers a status sink.
func (r *Runner) AddStatusSink(s StatusSink) {
	r.mu.Lock()
	r.statusSinks = append(r.statusSinks, s)
	r.mu.Unlock()
}

// Submit queues a frame. It never blocks; false means the queue was full
// and the frame was dropped.
func (r *Runner) Submit(f engine.Frame) bool {
	select {
	case r.frames <- f:
		r.submitted.Add(1)
		return true
	default:
		n := r.dropped.Add(1)
		r.dropLog.Do(func() { log.Warn("frame queue full, dropping", "dropped", n) })
		return false
	}
}

// Run processes frames until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	statusTicker := time.NewTicker(r.config.StatusInterval)
	defer statusTicker.Stop()

	log.Info("pilot started", "queue", r.config.QueueSize, "status_interval", r.config.StatusInterval)

	for {
		select {
		case <-ctx.Done():
			log.Info("pilot stopped", "submitted", r.submitted.Load(), "dropped", r.dropped.Load())
			return

		case f := <-r.frames:
			intents, err := r.eng.Tick(f)
			if err != nil {
				r.errors.Add(1)
				log.Debug("tick failed", "error", err)
				continue
			}
			r.dispatch(intents)

		case <-statusTicker.C:
			r.publishStatus()
		}
	}
}

func (r *Runner) dispatch(intents []action.Intent) {
	if len(intents) == 0 {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sinks {
		s.PublishIntents(intents)
	}
}

func (r *Runner) publishStatus() {
	r.mu.RLock()
	sinks := r.statusSinks
	r.mu.RUnlock()
	if len(sinks) == 0 {
		return
	}
	st := r.eng.Status()
	for _, s := range sinks {
		s.PublishStatus(st)
	}
}

// Control runs a control command. Intents produced by teardown are
// dispatched before Control returns.
func (r *Runner) Control(cmd protocol.Command) error {
	switch cmd {
	case protocol.CommandEnable:
		r.eng.Enable()
	case protocol.CommandDisable:
		r.dispatch(r.eng.Disable())
	case protocol.CommandRecalibrate:
		r.dispatch(r.eng.Recalibrate())
	case protocol.CommandSkipCalibration:
		r.eng.SkipCalibration()
	case protocol.CommandResetProfile:
		r.eng.ResetProfile()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	log.Info("control command", "command", cmd)
	r.publishStatus()
	return nil
}

// Feedback forwards executor reports to the engine.
func (r *Runner) Feedback(fb protocol.FeedbackData) {
	if fb.FieldCount != nil {
		r.eng.ReportFieldCount(*fb.FieldCount)
	}
	if fb.FieldIndex != nil {
		r.eng.ReportFieldIndex(*fb.FieldIndex)
	}
	if fb.EditOptions != nil {
		r.eng.ReportEditOptions(*fb.EditOptions)
	}
}

// Status returns the engine status.
func (r *Runner) Status() engine.Status {
	return r.eng.Status()
}

// Statistics returns per-gesture adaptation statistics.
func (r *Runner) Statistics() []dwell.Stats {
	return r.eng.Statistics()
}

// Sensitivity returns the current sensitivity settings.
func (r *Runner) Sensitivity() gesture.Percent {
	return r.eng.Sensitivity()
}

// SetSensitivity applies new sensitivity settings and returns what was applied.
func (r *Runner) SetSensitivity(p gesture.Percent) gesture.Percent {
	return r.eng.SetSensitivity(p)
}

// Stats holds runner counters.
type Stats struct {
	Submitted uint64 `json:"submitted"`
	Dropped   uint64 `json:"dropped"`
	Errors    uint64 `json:"errors"`
	Queued    int    `json:"queued"`
}

// Stats returns runner counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Submitted: r.submitted.Load(),
		Dropped:   r.dropped.Load(),
		Errors:    r.errors.Load(),
		Queued:    len(r.frames),
	}
}
