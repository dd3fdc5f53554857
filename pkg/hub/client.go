package hub

import (
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum inbound message size
	maxMessageSize = 512 * 1024
)

// ErrHubStopped is returned when registering with a hub that has shut down.
var ErrHubStopped = errors.New("hub stopped")

// Conn is the part of a websocket connection the hub uses. Both the fiber
// and gorilla connections satisfy it.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single websocket connection
type Client struct {
	hub     *Hub
	conn    Conn
	send    chan Message // stream, coalesced when the hub is
	control chan Message // reliable, written first
}

func newClient(hub *Hub, conn Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, hub.opts.QueueSize),
		control: make(chan Message, controlQueueSize),
	}
}

// NewClient creates a new client and registers it with the hub
func NewClient(hub *Hub, conn Conn) (*Client, error) {
	client := newClient(hub, conn)
	select {
	case hub.register <- client:
		return client, nil
	case <-hub.done:
		return nil, ErrHubStopped
	}
}

// Run starts the client's read and write pumps
// This should be called in the websocket handler
func (c *Client) Run() {
	go c.writePump()
	c.readPump() // Blocks until connection closes
}

// readPump reads messages from the websocket connection, handing text
// messages to the hub's OnMessage. It also detects disconnection.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if mt == websocket.TextMessage && c.hub.opts.OnMessage != nil {
			c.hub.opts.OnMessage(c, data)
		}
	}
}

// writePump writes messages to the websocket connection
// Only this goroutine writes to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		// drain reliable messages before the stream
		select {
		case message, ok := <-c.control:
			if !c.write(message, ok) {
				return
			}
			continue
		default:
		}

		select {
		case message, ok := <-c.control:
			if !c.write(message, ok) {
				return
			}

		case message, ok := <-c.send:
			if !c.write(message, ok) {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write sends one message, or a close frame when the hub closed the queue.
// It reports whether the pump should keep going.
func (c *Client) write(m Message, ok bool) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if !ok {
		c.conn.WriteMessage(websocket.CloseMessage, []byte{})
		return false
	}
	if err := c.conn.WriteMessage(m.wsType(), m.Data); err != nil {
		c.hub.logger.Debug("write failed", "error", err)
		return false
	}
	return true
}
