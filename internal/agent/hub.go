package agent

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/perfdash/perfdash/internal/metrics"
)

// clientBuffer is how many frames may queue for one client before it is
// considered too slow and frames start dropping.
const clientBuffer = 16

// client is one feed connection. Frames reach the socket only through send,
// which the write pump drains.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, clientBuffer)}
}

// enqueue queues data without blocking. It reports false if the client is
// closed or its buffer is full.
func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks feed clients and fans frames out to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends frame to every client and returns how many accepted it.
func (h *Hub) Broadcast(frame metrics.Frame) (int, error) {
	data, err := jsonFrame(frame)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(data) {
			delivered++
		}
	}
	return delivered, nil
}

func jsonFrame(frame metrics.Frame) ([]byte, error) {
	return json.Marshal(frame)
}

// CloseAll drops every client connection. Used on shutdown, since
// http.Server.Shutdown does not touch hijacked connections.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range targets {
		c.close()
		c.conn.Close()
	}
}
