package hub

// Message represents a message to be broadcast to clients
type Message struct {
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}

type directMessage struct {
	client *Client
	msg    Message
}
