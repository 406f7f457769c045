package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/gesture"
	"github.com/teslashibe/go-headpilot/pkg/hub"
	"github.com/teslashibe/go-headpilot/pkg/protocol"
)

// handleStatus returns the engine status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.pilot.Status())
}

// handleStats returns gesture statistics and connection stats
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"gestures": s.pilot.Statistics(),
		"ingest":   s.ingest.Stats(),
		"clients":  s.Clients(),
		"counters": s.pilot.Status().Counters,
	})
}

// handleControl runs a control command
func (s *Server) handleControl(c *fiber.Ctx) error {
	cmd := protocol.Command(c.Params("command"))
	if !cmd.Valid() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown command " + string(cmd)})
	}
	if err := s.pilot.Control(cmd); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok", "command": cmd})
}

// handleGetSensitivity returns the sensitivity settings
func (s *Server) handleGetSensitivity(c *fiber.Ctx) error {
	return c.JSON(s.pilot.Sensitivity())
}

// handleSetSensitivity replaces the sensitivity settings. Out-of-range
// values are clamped; the applied settings are returned.
func (s *Server) handleSetSensitivity(c *fiber.Ctx) error {
	var p gesture.Percent
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.pilot.SetSensitivity(p))
}

// handleFeedback accepts executor feedback over HTTP
func (s *Server) handleFeedback(c *fiber.Ctx) error {
	var fb protocol.FeedbackData
	if err := c.BodyParser(&fb); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.pilot.Feedback(fb)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleActionsWS serves an executor connection
func (s *Server) handleActionsWS(c *websocket.Conn) {
	client := hub.NewClient(s.actionHub, c)
	if client == nil {
		return
	}
	client.Run()
}

// handleStatusWS serves a status viewer connection
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	if client == nil {
		return
	}
	// Send current status
	if msg, err := protocol.NewStateMessage(s.pilot.Status()); err == nil {
		s.statusHub.SendJSONTo(client, msg)
	}
	client.Run()
}

// handleExecutorMessage processes a message from an executor
func (s *Server) handleExecutorMessage(c *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		log.Debug("executor parse error", "error", err)
		s.replyError(c, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeFeedback:
		fb, err := msg.GetFeedbackData()
		if err != nil {
			s.replyError(c, err.Error())
			return
		}
		s.pilot.Feedback(*fb)

	case protocol.TypeControl:
		ctl, err := msg.GetControlData()
		if err != nil || !ctl.Command.Valid() {
			s.replyError(c, "invalid control command")
			return
		}
		if err := s.pilot.Control(ctl.Command); err != nil {
			s.replyError(c, err.Error())
		}

	case protocol.TypePing:
		s.replyPong(c, msg.Timestamp)

	default:
		s.replyError(c, "unexpected message type "+string(msg.Type))
	}
}

func (s *Server) replyError(c *hub.Client, text string) {
	msg, err := protocol.NewErrorMessage(text)
	if err == nil {
		err = s.actionHub.SendJSONTo(c, msg)
	}
	if err != nil {
		log.Warn("send reply failed", "error", err)
	}
}

func (s *Server) replyPong(c *hub.Client, pingTS int64) {
	msg, err := protocol.NewPongMessage("", pingTS, nowMillis())
	if err == nil {
		err = s.actionHub.SendJSONTo(c, msg)
	}
	if err != nil {
		log.Warn("send reply failed", "error", err)
	}
}
