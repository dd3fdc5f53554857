// Package hub fans websocket messages out to many clients through a single
// goroutine that owns the client set.
package hub

import "github.com/gofiber/websocket/v2"

// controlQueueSize bounds the reliable messages waiting for one client.
const controlQueueSize = 16

// Message is one websocket write.
type Message struct {
	Data   []byte
	Binary bool

	// Reliable messages bypass coalescing. They wait in a separate queue
	// that is drained before the stream queue, so a greeting or a track
	// change is never replaced by the next frame.
	Reliable bool
}

// NewJSONMessage wraps pre-encoded JSON as a stream message.
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}

// NewBinaryMessage wraps binary data such as a JPEG preview.
func NewBinaryMessage(data []byte) Message {
	return Message{Data: data, Binary: true}
}

// NewControlMessage wraps pre-encoded JSON as a reliable message.
func NewControlMessage(data []byte) Message {
	return Message{Data: data, Reliable: true}
}

func (m Message) wsType() int {
	if m.Binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
