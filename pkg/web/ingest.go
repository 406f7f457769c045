package web

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/engine"
	"github.com/teslashibe/go-headpilot/pkg/protocol"
)

// FrameSink accepts frames from estimators.
type FrameSink interface {
	Submit(f engine.Frame) bool
}

// EstimatorConnection represents a connected landmark estimator
type EstimatorConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time

	mu       sync.Mutex
	lastSeen time.Time
	frames   uint64
}

// Send sends a message to the estimator
func (e *EstimatorConnection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Conn.WriteMessage(websocket.TextMessage, data)
}

func (e *EstimatorConnection) touch(frame bool) {
	e.mu.Lock()
	e.lastSeen = time.Now()
	if frame {
		e.frames++
	}
	e.mu.Unlock()
}

// Ingest accepts landmark streams from estimators over websocket
type Ingest struct {
	sink FrameSink

	mu          sync.RWMutex
	estimators  map[string]*EstimatorConnection
	skipLog     *log.Throttle
	rejectedLog *log.Throttle

	// Stats
	messagesReceived atomic.Uint64
	framesAccepted   atomic.Uint64
	framesRejected   atomic.Uint64
	framesInvalid    atomic.Uint64
}

// NewIngest creates an ingest endpoint feeding sink
func NewIngest(sink FrameSink) *Ingest {
	return &Ingest{
		sink:        sink,
		estimators:  make(map[string]*EstimatorConnection),
		skipLog:     log.NewThrottle(5 * time.Second),
		rejectedLog: log.NewThrottle(5 * time.Second),
	}
}

// RegisterRoutes registers the estimator endpoints. The /ws upgrade guard
// must already be installed.
func (in *Ingest) RegisterRoutes(app *fiber.App) {
	app.Get("/ws/estimator", websocket.New(in.handleEstimator))
	app.Get("/ws/estimator/:id", websocket.New(in.handleEstimator))
}

// handleEstimator handles an estimator WebSocket connection
func (in *Ingest) handleEstimator(c *websocket.Conn) {
	// Get estimator ID from path or generate one
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	est := &EstimatorConnection{
		ID:        id,
		Conn:      c,
		Connected: time.Now(),
		lastSeen:  time.Now(),
	}

	in.mu.Lock()
	in.estimators[id] = est
	count := len(in.estimators)
	in.mu.Unlock()
	log.Info("estimator connected", "id", id, "total", count)

	defer func() {
		in.mu.Lock()
		if in.estimators[id] == est {
			delete(in.estimators, id)
		}
		count := len(in.estimators)
		in.mu.Unlock()
		log.Info("estimator disconnected", "id", id, "total", count)
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("estimator read ended", "id", id, "error", err)
			return
		}
		in.messagesReceived.Add(1)
		in.handleMessage(est, data)
	}
}

// handleMessage processes an incoming message from an estimator
func (in *Ingest) handleMessage(est *EstimatorConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		in.framesInvalid.Add(1)
		in.sendError(est, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeFrame:
		est.touch(true)
		in.handleFrame(est, msg)

	case protocol.TypePing:
		est.touch(false)
		pong, err := protocol.NewPongMessage("", msg.Timestamp, nowMillis())
		if err == nil {
			err = est.Send(pong)
		}
		if err != nil {
			log.Debug("pong failed", "id", est.ID, "error", err)
		}

	default:
		in.sendError(est, "unexpected message type "+string(msg.Type))
	}
}

func (in *Ingest) handleFrame(est *EstimatorConnection, msg *protocol.Message) {
	fd, err := msg.GetFrameData()
	if err != nil {
		in.framesInvalid.Add(1)
		in.sendError(est, err.Error())
		return
	}
	frame, err := fd.Frame(time.Now())
	if err != nil {
		in.framesInvalid.Add(1)
		in.skipLog.Do(func() { log.Debug("frame without landmarks", "id", est.ID, "frame_id", fd.FrameID) })
		return
	}

	if !in.sink.Submit(frame) {
		in.framesRejected.Add(1)
		in.rejectedLog.Do(func() { log.Warn("frame rejected, engine busy", "id", est.ID, "rejected", in.framesRejected.Load()) })
		return
	}
	in.framesAccepted.Add(1)
}

func (in *Ingest) sendError(est *EstimatorConnection, text string) {
	msg, err := protocol.NewErrorMessage(text)
	if err == nil {
		err = est.Send(msg)
	}
	if err != nil {
		log.Debug("error reply failed", "id", est.ID, "error", err)
	}
}

// ConnectionCount returns the number of connected estimators
func (in *Ingest) ConnectionCount() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.estimators)
}

// IngestStats contains ingest statistics
type IngestStats struct {
	Estimators       []EstimatorInfo `json:"estimators"`
	MessagesReceived uint64          `json:"messages_received"`
	FramesAccepted   uint64          `json:"frames_accepted"`
	FramesRejected   uint64          `json:"frames_rejected"`
	FramesInvalid    uint64          `json:"frames_invalid"`
}

// EstimatorInfo contains info about a connected estimator
type EstimatorInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	Frames    uint64    `json:"frames"`
}

// Stats returns ingest statistics
func (in *Ingest) Stats() IngestStats {
	in.mu.RLock()
	infos := make([]EstimatorInfo, 0, len(in.estimators))
	for _, e := range in.estimators {
		e.mu.Lock()
		infos = append(infos, EstimatorInfo{
			ID:        e.ID,
			Connected: e.Connected,
			LastSeen:  e.lastSeen,
			Frames:    e.frames,
		})
		e.mu.Unlock()
	}
	in.mu.RUnlock()

	return IngestStats{
		Estimators:       infos,
		MessagesReceived: in.messagesReceived.Load(),
		FramesAccepted:   in.framesAccepted.Load(),
		FramesRejected:   in.framesRejected.Load(),
		FramesInvalid:    in.framesInvalid.Load(),
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
