// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-headpilot/internal/log"
)

// Handler receives a message read from a client.
type Handler func(c *Client, data []byte)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Name for logging
	name string

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Messages addressed to a single client
	direct chan directMessage

	// Closed when Run returns
	done chan struct{}

	// Mutex for client count (read-only access from outside)
	mu sync.RWMutex

	// Handler for client messages, set before Run
	onMessage Handler

	running atomic.Bool
	dropped atomic.Uint64
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage, 64),
		done:       make(chan struct{}),
	}
}

// OnMessage sets the handler for messages sent by clients.
// Without one, client messages are discarded.
func (h *Hub) OnMessage(fn Handler) {
	h.mu.Lock()
	h.onMessage = fn
	h.mu.Unlock()
}

func (h *Hub) handler() Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onMessage
}

// Run starts the hub's main loop and blocks until ctx is cancelled.
// This should be called in a goroutine
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("client connected", "hub", h.name, "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("client disconnected", "hub", h.name, "clients", count)

		case d := <-h.direct:
			h.mu.Lock()
			if h.clients[d.client] {
				select {
				case d.client.send <- d.msg:
				default:
					log.Warn("client buffer full, dropping reply", "hub", h.name)
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's buffer is full, they're too slow
					close(client.send)
					delete(h.clients, client)
					log.Warn("dropped slow client", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		// Broadcast channel full, drop message
		if h.dropped.Add(1)%100 == 1 {
			log.Warn("broadcast channel full, dropping message", "hub", h.name, "dropped", h.dropped.Load())
		}
	}
}

// SendTo queues a message for one client. Messages for clients that have
// left are discarded.
func (h *Hub) SendTo(c *Client, msg Message) {
	select {
	case h.direct <- directMessage{client: c, msg: msg}:
	default:
		h.dropped.Add(1)
	}
}

// SendJSONTo encodes and sends a JSON message to one client.
func (h *Hub) SendJSONTo(c *Client, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.SendTo(c, NewJSONMessage(data))
	return nil
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of broadcasts dropped because the hub was backed up.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
