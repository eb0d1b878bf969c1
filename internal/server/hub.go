package server

import (
	"errors"
	"sync"
	"time"

	"github.com/caffeineduck/webbridge/host"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrBackpressure is returned when a client's send buffer is full.
var ErrBackpressure = errors.New("backpressure")

const writeWait = 10 * time.Second

// Frame is what browsers receive over the websocket.
type Frame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Data   string          `json:"data,omitempty"`
	Name   string          `json:"name,omitempty"`
	Detail map[string]bool `json:"detail,omitempty"`
}

// Frame types.
const (
	FrameMessage = "message"
	FrameEvent   = "event"
	FrameReload  = "reload"
)

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsClient) TrySend(f Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Hub fans page traffic out to every connected browser.
type Hub struct {
	buffer int
	log    zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewHub returns a Hub giving each client a send buffer of the given size.
func NewHub(buffer int, log zerolog.Logger) *Hub {
	return &Hub{
		buffer:  buffer,
		log:     log.With().Str("module", "hub").Logger(),
		clients: make(map[string]*wsClient),
	}
}

// Attach subscribes the hub to page messages and notifications. Order on
// the wire matches order on the page. The returned func unsubscribes.
func (h *Hub) Attach(page *host.Page) (detach func()) {
	removers := []func(){
		page.OnMessage(func(m host.Message) {
			h.Broadcast(Frame{Type: FrameMessage, ID: uuid.NewString(), Data: m.Data})
		}),
		page.AddEventListener(host.EventExit, h.broadcastEvent),
		page.AddEventListener(host.EventReplay, h.broadcastEvent),
		host.ReloadOnExit(page, func() {
			h.Broadcast(Frame{Type: FrameReload})
		}),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func (h *Hub) broadcastEvent(ev host.Event) {
	h.Broadcast(Frame{Type: FrameEvent, Name: ev.Name, Detail: ev.Detail})
}

// Broadcast queues f for every client. A client whose buffer is full is
// dropped instead of stalling the bridge.
func (h *Hub) Broadcast(f Frame) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.TrySend(f); err != nil {
			h.log.Warn().Err(err).Str("client", c.id).Msg("dropping client")
			h.remove(c)
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Frame, h.buffer),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.log.Info().Str("client", c.id).Msg("client connected")
	return c
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.Close()
	if ok {
		h.log.Info().Str("client", c.id).Msg("client disconnected")
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*wsClient)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

func (h *Hub) writePump(c *wsClient) {
	defer h.remove(c)
	for f := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(f); err != nil {
			h.log.Debug().Err(err).Str("client", c.id).Msg("write failed")
			return
		}
	}
}

// readPump drains the connection until it closes. The page has no inbound
// path into the runtime, so frames from the browser are ignored.
func (h *Hub) readPump(c *wsClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		h.log.Debug().Str("client", c.id).Msg("ignoring inbound frame")
	}
}
