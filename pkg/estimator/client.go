// Package estimator streams landmark frames to a headpilot ingest endpoint.
// It is the client side of /ws/estimator, used by the replay tool and by
// estimators written in Go.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/protocol"
)

// ErrNotConnected is returned when sending on a client that is not connected.
var ErrNotConnected = errors.New("estimator: not connected")

// Client is a websocket connection to a headpilot ingest endpoint.
type Client struct {
	url string

	ws      *websocket.Conn
	wsMutex sync.Mutex
	done    chan struct{}

	frameID atomic.Uint64
	sent    atomic.Uint64
	errors  atomic.Uint64
	latency atomic.Int64 // last ping round trip, ms
}

// NewClient creates a client for url, e.g. ws://localhost:8090/ws/estimator.
func NewClient(url string) *Client {
	return &Client{url: url}
}

// Connect dials the endpoint and starts reading replies.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("estimator connect %s: %w", c.url, err)
	}

	c.wsMutex.Lock()
	c.ws = ws
	c.done = make(chan struct{})
	c.wsMutex.Unlock()

	go c.readLoop(ws, c.done)
	log.Info("estimator connected", "url", c.url)
	return nil
}

// readLoop consumes server replies: pongs update the latency, errors are counted.
func (c *Client) readLoop(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		switch msg.Type {
		case protocol.TypePong:
			if pong, err := msg.GetPongData(); err == nil {
				c.latency.Store(time.Now().UnixMilli() - pong.PingTS)
			}
		case protocol.TypeError:
			c.errors.Add(1)
			var e protocol.ErrorData
			if msg.ParseData(&e) == nil {
				log.Warn("ingest rejected message", "error", e.Message)
			}
		}
	}
}

func (c *Client) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.wsMutex.Lock()
	defer c.wsMutex.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// SendFrame sends one frame. A zero FrameID is filled from a counter.
func (c *Client) SendFrame(f protocol.FrameData) error {
	if f.FrameID == 0 {
		f.FrameID = c.frameID.Add(1)
	}
	msg, err := protocol.NewFrameMessage(f)
	if err != nil {
		return err
	}
	if err := c.send(msg); err != nil {
		return err
	}
	c.sent.Add(1)
	return nil
}

// Ping sends a ping; the round trip is reported by Latency once the pong arrives.
func (c *Client) Ping() error {
	msg, err := protocol.NewPingMessage("")
	if err != nil {
		return err
	}
	return c.send(msg)
}

// Latency returns the last measured ping round trip.
func (c *Client) Latency() time.Duration {
	return time.Duration(c.latency.Load()) * time.Millisecond
}

// Sent returns the number of frames sent.
func (c *Client) Sent() uint64 {
	return c.sent.Load()
}

// Rejected returns the number of error replies received.
func (c *Client) Rejected() uint64 {
	return c.errors.Load()
}

// Close sends a close frame and waits briefly for the server to hang up.
func (c *Client) Close() error {
	c.wsMutex.Lock()
	ws, done := c.ws, c.done
	c.ws = nil
	if ws != nil {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	c.wsMutex.Unlock()

	if ws == nil {
		return nil
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	return ws.Close()
}
