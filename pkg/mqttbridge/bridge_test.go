package mqttbridge

import (
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-headpilot/pkg/action"
	"github.com/teslashibe/go-headpilot/pkg/engine"
	"github.com/teslashibe/go-headpilot/pkg/protocol"
)

type token struct {
	err     error
	timeout bool
}

func (t *token) Wait() bool { return true }
func (t *token) WaitTimeout(time.Duration) bool {
	return !t.timeout
}
func (t *token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *token) Error() error { return t.err }

type message struct {
	topic   string
	payload []byte
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 0 }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 0 }
func (m message) Payload() []byte   { return m.payload }
func (m message) Ack()              {}

type published struct {
	topic    string
	qos      byte
	retained bool
	msg      *protocol.Message
}

type fakeClient struct {
	mu           sync.Mutex
	connectErr   error
	timeout      bool
	handlers     map[string]mqtt.MessageHandler
	published    []published
	disconnected bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]mqtt.MessageHandler)}
}

func (c *fakeClient) Connect() mqtt.Token {
	return &token{err: c.connectErr, timeout: c.timeout}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	msg, err := protocol.ParseMessage(payload.([]byte))
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.published = append(c.published, published{topic, qos, retained, msg})
	c.mu.Unlock()
	return &token{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.handlers[topic] = cb
	c.mu.Unlock()
	return &token{}
}

func (c *fakeClient) deliver(t *testing.T, topic string, msg *protocol.Message, err error) {
	t.Helper()
	require.NoError(t, err)
	data, err := msg.Bytes()
	require.NoError(t, err)
	c.deliverRaw(t, topic, data)
}

func (c *fakeClient) deliverRaw(t *testing.T, topic string, data []byte) {
	t.Helper()
	c.mu.Lock()
	h, ok := c.handlers[topic]
	c.mu.Unlock()
	require.True(t, ok, "no subscription for %s", topic)
	h(nil, message{topic: topic, payload: data})
}

type fakePilot struct {
	frames   []engine.Frame
	commands []protocol.Command
	feedback []protocol.FeedbackData
}

func (p *fakePilot) Submit(f engine.Frame) bool {
	p.frames = append(p.frames, f)
	return true
}

func (p *fakePilot) Control(cmd protocol.Command) error {
	p.commands = append(p.commands, cmd)
	return nil
}

func (p *fakePilot) Feedback(fb protocol.FeedbackData) {
	p.feedback = append(p.feedback, fb)
}

func started(t *testing.T) (*Bridge, *fakeClient, *fakePilot) {
	t.Helper()
	c := newFakeClient()
	p := &fakePilot{}
	b := NewWithClient(DefaultConfig(), c)
	require.NoError(t, b.Start(p))
	return b, c, p
}

func TestStartSubscribes(t *testing.T) {
	_, c, _ := started(t)

	for _, topic := range []string{"headpilot/frame", "headpilot/control", "headpilot/feedback"} {
		assert.Contains(t, c.handlers, topic)
	}
}

func TestStartErrors(t *testing.T) {
	c := newFakeClient()
	c.connectErr = errors.New("refused")
	err := NewWithClient(DefaultConfig(), c).Start(&fakePilot{})
	assert.ErrorContains(t, err, "refused")

	c = newFakeClient()
	c.timeout = true
	err = NewWithClient(DefaultConfig(), c).Start(&fakePilot{})
	assert.ErrorIs(t, err, ErrConnectTimeout)
}

func frameMessage() (*protocol.Message, error) {
	return protocol.NewFrameMessage(protocol.FrameData{
		Landmarks:   &protocol.LandmarkSet{NoseTip: protocol.Point{X: 0.5, Y: 0.5}},
		Blendshapes: map[string]float64{"jawOpen": 0.6},
	})
}

func TestInboundFrame(t *testing.T) {
	b, c, p := started(t)

	msg, err := frameMessage()
	c.deliver(t, "headpilot/frame", msg, err)

	require.Len(t, p.frames, 1)
	assert.NotNil(t, p.frames[0].Landmarks)
	assert.Equal(t, uint64(1), b.Stats().FramesIn)

	// Wrong type and garbage are ignored.
	msg, err = protocol.NewControlMessage(protocol.CommandEnable)
	c.deliver(t, "headpilot/frame", msg, err)
	c.deliverRaw(t, "headpilot/frame", []byte("nope"))
	assert.Len(t, p.frames, 1)
}

func TestInboundControlAndFeedback(t *testing.T) {
	_, c, p := started(t)

	msg, err := protocol.NewControlMessage(protocol.CommandDisable)
	c.deliver(t, "headpilot/control", msg, err)
	msg, err = protocol.NewControlMessage("selfdestruct")
	c.deliver(t, "headpilot/control", msg, err)
	assert.Equal(t, []protocol.Command{protocol.CommandDisable}, p.commands)

	shown := true
	msg, err = protocol.NewFeedbackMessage(protocol.FeedbackData{EditOptions: &shown})
	c.deliver(t, "headpilot/feedback", msg, err)
	require.Len(t, p.feedback, 1)
	assert.True(t, *p.feedback[0].EditOptions)
}

func TestPublishIntents(t *testing.T) {
	b, c, _ := started(t)
	now := time.Now()

	b.PublishIntents([]action.Intent{
		action.NewMoveCursor(0.5, 0.5, now),
		action.New(action.GoBack, now),
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.published, 2)
	assert.Equal(t, "headpilot/intent", c.published[0].topic)
	assert.Equal(t, byte(0), c.published[0].qos, "continuous intents are fire-and-forget")
	assert.Equal(t, byte(1), c.published[1].qos)
	assert.Equal(t, protocol.TypeIntent, c.published[1].msg.Type)
	assert.Equal(t, uint64(2), b.Stats().IntentsOut)
}

func TestPublishStatusRetained(t *testing.T) {
	b, c, _ := started(t)

	b.PublishStatus(engine.Status{Enabled: true})

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.published, 1)
	assert.Equal(t, "headpilot/state", c.published[0].topic)
	assert.True(t, c.published[0].retained)
}

func TestClose(t *testing.T) {
	b, c, _ := started(t)
	b.Close()
	assert.True(t, c.disconnected)
}

func TestTopicPrefix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Prefix = "lab/desk1"
	assert.Equal(t, "lab/desk1/intent", cfg.Topic("intent"))
}
