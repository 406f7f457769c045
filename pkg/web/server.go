// Package web serves the headpilot dashboard API and the websocket
// endpoints for the estimator, the browser executor and status viewers.
package web

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/action"
	"github.com/teslashibe/go-headpilot/pkg/dwell"
	"github.com/teslashibe/go-headpilot/pkg/engine"
	"github.com/teslashibe/go-headpilot/pkg/gesture"
	"github.com/teslashibe/go-headpilot/pkg/hub"
	"github.com/teslashibe/go-headpilot/pkg/protocol"
)

// Pilot is the runtime the server fronts.
type Pilot interface {
	// Submit queues a frame for the engine and reports whether it was accepted.
	Submit(f engine.Frame) bool
	Status() engine.Status
	Statistics() []dwell.Stats
	Control(cmd protocol.Command) error
	Feedback(fb protocol.FeedbackData)
	Sensitivity() gesture.Percent
	SetSensitivity(p gesture.Percent) gesture.Percent
}

// Config holds server settings.
type Config struct {
	Addr      string
	StaticDir string // dashboard assets; empty disables static serving
}

// Server is the web server
type Server struct {
	cfg   Config
	app   *fiber.App
	pilot Pilot

	ingest    *Ingest
	actionHub *hub.Hub
	statusHub *hub.Hub
}

// NewServer creates a new server for p
func NewServer(cfg Config, p Pilot) *Server {
	s := &Server{
		cfg:       cfg,
		pilot:     p,
		ingest:    NewIngest(p),
		actionHub: hub.New("actions"),
		statusHub: hub.New("status"),
	}
	s.actionHub.OnMessage(s.handleExecutorMessage)

	app := fiber.New(fiber.Config{
		AppName:               "Headpilot",
		DisableStartupMessage: true,
	})

	// CORS for extension and local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/stats", s.handleStats)
	api.Post("/control/:command", s.handleControl)
	api.Get("/sensitivity", s.handleGetSensitivity)
	api.Put("/sensitivity", s.handleSetSensitivity)
	api.Post("/feedback", s.handleFeedback)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	s.ingest.RegisterRoutes(app)
	app.Get("/ws/actions", websocket.New(s.handleActionsWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve runs the hubs and serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.actionHub.Run(ctx)
	go s.statusHub.Run(ctx)

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()
	log.Info("web server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// PublishIntents sends intents to every connected executor.
func (s *Server) PublishIntents(intents []action.Intent) {
	for _, in := range intents {
		msg, err := protocol.NewIntentMessage(in)
		if err != nil {
			log.Warn("encode intent failed", "kind", in.Kind, "error", err)
			continue
		}
		if err := s.actionHub.BroadcastJSON(msg); err != nil {
			log.Warn("broadcast intent failed", "kind", in.Kind, "error", err)
		}
	}
}

// PublishStatus sends a status snapshot to every status viewer.
func (s *Server) PublishStatus(st engine.Status) {
	msg, err := protocol.NewStateMessage(st)
	if err != nil {
		log.Warn("encode status failed", "error", err)
		return
	}
	if err := s.statusHub.BroadcastJSON(msg); err != nil {
		log.Warn("broadcast status failed", "error", err)
	}
}

// Clients returns the number of connected clients per endpoint.
func (s *Server) Clients() ClientCounts {
	return ClientCounts{
		Estimators: s.ingest.ConnectionCount(),
		Executors:  s.actionHub.ClientCount(),
		Viewers:    s.statusHub.ClientCount(),
	}
}

// ClientCounts is the number of connected clients per endpoint.
type ClientCounts struct {
	Estimators int `json:"estimators"`
	Executors  int `json:"executors"`
	Viewers    int `json:"viewers"`
}
