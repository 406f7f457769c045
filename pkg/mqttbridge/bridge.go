// Package mqttbridge connects headpilot to an MQTT broker: frames and
// control messages come in, intents and status snapshots go out.
//
// Topics, under a configurable prefix:
//
//	<prefix>/frame     estimator frames (in)
//	<prefix>/control   control commands (in)
//	<prefix>/feedback  executor feedback (in)
//	<prefix>/intent    action intents (out)
//	<prefix>/state     status snapshots (out, retained)
package mqttbridge

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/action"
	"github.com/teslashibe/go-headpilot/pkg/engine"
	"github.com/teslashibe/go-headpilot/pkg/protocol"
)

// ErrConnectTimeout is returned when the broker does not answer in time.
var ErrConnectTimeout = errors.New("mqttbridge: connect timed out")

// Client is the subset of mqtt.Client the bridge uses.
type Client interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Pilot receives what arrives over MQTT.
type Pilot interface {
	Submit(f engine.Frame) bool
	Control(cmd protocol.Command) error
	Feedback(fb protocol.FeedbackData)
}

// Config holds broker settings.
type Config struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Prefix         string        `yaml:"prefix"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DefaultConfig returns settings for a local broker.
func DefaultConfig() Config {
	return Config{
		Broker:         "tcp://localhost:1883",
		ClientID:       "headpilot",
		Prefix:         "headpilot",
		ConnectTimeout: 10 * time.Second,
	}
}

// Topic returns the full topic name for a suffix.
func (c Config) Topic(suffix string) string {
	return c.Prefix + "/" + suffix
}

// Bridge relays between the broker and the pilot.
type Bridge struct {
	cfg    Config
	client Client
	pilot  Pilot

	connectedOnce atomic.Bool

	framesIn    atomic.Uint64
	intentsOut  atomic.Uint64
	publishErrs atomic.Uint64
	throttle    *log.Throttle
}

// New creates a bridge with a paho client. It reconnects automatically and
// resubscribes after every reconnect.
func New(cfg Config) *Bridge {
	b := &Bridge{cfg: cfg, throttle: log.NewThrottle(10 * time.Second)}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetOnConnectHandler(func(mqtt.Client) { b.onConnect() }).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("mqtt connection lost", "broker", cfg.Broker, "error", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	b.client = mqtt.NewClient(opts)
	return b
}

// NewWithClient creates a bridge over an existing client.
func NewWithClient(cfg Config, c Client) *Bridge {
	return &Bridge{cfg: cfg, client: c, throttle: log.NewThrottle(10 * time.Second)}
}

// Start connects and subscribes the inbound topics, delivering to p.
func (b *Bridge) Start(p Pilot) error {
	b.pilot = p

	token := b.client.Connect()
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		return ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", b.cfg.Broker, err)
	}
	b.connectedOnce.Store(true)
	log.Info("mqtt connected", "broker", b.cfg.Broker)

	return b.subscribe()
}

func (b *Bridge) onConnect() {
	// The first connect is handled by Start.
	if !b.connectedOnce.Load() {
		return
	}
	log.Info("mqtt reconnected", "broker", b.cfg.Broker)
	if err := b.subscribe(); err != nil {
		log.Error("mqtt resubscribe failed", "error", err)
	}
}

func (b *Bridge) subscribe() error {
	subs := []struct {
		suffix  string
		qos     byte
		handler mqtt.MessageHandler
	}{
		{"frame", 0, b.handleFrame},
		{"control", 1, b.handleControl},
		{"feedback", 1, b.handleFeedback},
	}
	for _, s := range subs {
		topic := b.cfg.Topic(s.suffix)
		token := b.client.Subscribe(topic, s.qos, s.handler)
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt subscribe %s: %w", topic, err)
		}
		log.Debug("mqtt subscribed", "topic", topic)
	}
	return nil
}

func (b *Bridge) parse(msg mqtt.Message, want protocol.MessageType) (*protocol.Message, bool) {
	m, err := protocol.ParseMessage(msg.Payload())
	if err != nil {
		log.Debug("mqtt parse error", "topic", msg.Topic(), "error", err)
		return nil, false
	}
	if m.Type != want {
		log.Debug("mqtt unexpected message type", "topic", msg.Topic(), "type", m.Type)
		return nil, false
	}
	return m, true
}

func (b *Bridge) handleFrame(_ mqtt.Client, msg mqtt.Message) {
	m, ok := b.parse(msg, protocol.TypeFrame)
	if !ok {
		return
	}
	fd, err := m.GetFrameData()
	if err != nil {
		return
	}
	frame, err := fd.Frame(time.Now())
	if err != nil {
		return
	}
	b.framesIn.Add(1)
	b.pilot.Submit(frame)
}

func (b *Bridge) handleControl(_ mqtt.Client, msg mqtt.Message) {
	m, ok := b.parse(msg, protocol.TypeControl)
	if !ok {
		return
	}
	ctl, err := m.GetControlData()
	if err != nil || !ctl.Command.Valid() {
		log.Warn("mqtt invalid control command", "topic", msg.Topic())
		return
	}
	if err := b.pilot.Control(ctl.Command); err != nil {
		log.Warn("mqtt control failed", "command", ctl.Command, "error", err)
	}
}

func (b *Bridge) handleFeedback(_ mqtt.Client, msg mqtt.Message) {
	m, ok := b.parse(msg, protocol.TypeFeedback)
	if !ok {
		return
	}
	fb, err := m.GetFeedbackData()
	if err != nil {
		return
	}
	b.pilot.Feedback(*fb)
}

// PublishIntents publishes intents. Discrete intents use QoS 1; the
// continuous cursor and scroll streams use QoS 0. It does not wait for
// delivery.
func (b *Bridge) PublishIntents(intents []action.Intent) {
	for _, in := range intents {
		msg, err := protocol.NewIntentMessage(in)
		if err != nil {
			continue
		}
		var qos byte
		if in.Kind.Discrete() {
			qos = 1
		}
		b.publish(b.cfg.Topic("intent"), qos, false, msg)
		b.intentsOut.Add(1)
	}
}

// PublishStatus publishes a retained status snapshot.
func (b *Bridge) PublishStatus(st engine.Status) {
	msg, err := protocol.NewStateMessage(st)
	if err != nil {
		return
	}
	b.publish(b.cfg.Topic("state"), 0, true, msg)
}

func (b *Bridge) publish(topic string, qos byte, retained bool, msg *protocol.Message) {
	payload, err := msg.Bytes()
	if err != nil {
		return
	}
	token := b.client.Publish(topic, qos, retained, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			b.publishErrs.Add(1)
			b.throttle.Do(func() { log.Warn("mqtt publish failed", "topic", topic, "error", err) })
		}
	}()
}

// Stats counts bridge traffic.
type Stats struct {
	FramesIn      uint64 `json:"frames_in"`
	IntentsOut    uint64 `json:"intents_out"`
	PublishErrors uint64 `json:"publish_errors"`
}

// Stats returns traffic counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		FramesIn:      b.framesIn.Load(),
		IntentsOut:    b.intentsOut.Load(),
		PublishErrors: b.publishErrs.Load(),
	}
}

// Close disconnects, allowing in-flight messages 250ms to complete.
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}
