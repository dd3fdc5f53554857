package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-treeform/internal/log"
)

// Options configures a Hub.
type Options struct {
	// Coalesce keeps only the newest message queued for a slow client
	// instead of dropping the client. Use it for streams where each message
	// supersedes the last, like scene frames.
	Coalesce bool

	// QueueSize is the per-client send buffer. Defaults to 256, or 1 when
	// coalescing.
	QueueSize int

	// OnMessage receives every text message read from a client.
	OnMessage func(c *Client, data []byte)

	// OnConnect runs when a client is registered, before any broadcast
	// reaches it. Use SendTo to greet it.
	OnConnect func(c *Client)
}

type direct struct {
	client *Client
	msg    Message
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	name   string
	opts   Options
	logger *slog.Logger

	// Registered clients, owned by Run
	clients map[*Client]bool

	broadcast  chan Message
	direct     chan direct
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Mutex for client count (read-only access from outside)
	mu    sync.RWMutex
	count int
}

// New creates a new Hub
func New(name string, opts Options) *Hub {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
		if opts.Coalesce {
			opts.QueueSize = 1
		}
	}
	return &Hub{
		name:       name,
		opts:       opts,
		logger:     log.Component("hub").With("hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		direct:     make(chan direct, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, after
// closing every client's queue.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.remove(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setCount()
			h.logger.Info("client connected", "clients", len(h.clients))
			if h.opts.OnConnect != nil {
				h.opts.OnConnect(client)
			}

		case client := <-h.unregister:
			if h.clients[client] {
				h.remove(client)
				h.logger.Info("client disconnected", "clients", len(h.clients))
			}

		case d := <-h.direct:
			if h.clients[d.client] && !h.offer(d.client, d.msg) {
				h.remove(d.client)
				h.logger.Warn("dropped slow client")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				if !h.offer(client, message) {
					h.remove(client)
					h.logger.Warn("dropped slow client")
				}
			}
		}
	}
}

// offer queues a message for a client without blocking. When coalescing, a
// full stream queue loses its oldest message instead. Reliable messages are
// never coalesced; a full control queue means the client is stuck.
func (h *Hub) offer(c *Client, m Message) bool {
	if m.Reliable {
		select {
		case c.control <- m:
			return true
		default:
			return false
		}
	}
	select {
	case c.send <- m:
		return true
	default:
	}
	if !h.opts.Coalesce {
		return false
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- m:
		return true
	default:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	close(c.send)
	close(c.control)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a reliable JSON message. Stream
// messages such as frames go through Broadcast.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewControlMessage(data))
	return nil
}

// BroadcastBinary broadcasts binary data (e.g., camera previews)
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// SendTo queues a message for one client.
func (h *Hub) SendTo(c *Client, msg Message) {
	select {
	case h.direct <- direct{client: c, msg: msg}:
	default:
		h.logger.Warn("direct channel full, dropping message")
	}
}

// SendJSONTo encodes and queues a reliable JSON message for one client.
func (h *Hub) SendJSONTo(c *Client, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.SendTo(c, NewControlMessage(data))
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Done is closed when Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
