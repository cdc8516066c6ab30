package wshub

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"triviaroom/internal/events"
	"triviaroom/internal/gateway"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 5 * time.Second

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ID   string
	Conn *websocket.Conn
	// Send carries both broadcasts and acknowledgements, in order.
	Send chan events.Event
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.Send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.Conn, ev)
			cancel()
			if err != nil {
				log.Warn().Str("conn", c.ID).Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

type Options struct {
	OriginPatterns []string
	// ReadLimit caps inbound frame size in bytes.
	ReadLimit int64
	// SendBuffer is the per-connection outbound queue length. Broadcasts to a
	// full queue are dropped.
	SendBuffer int
}

// Hub accepts WebSocket connections and feeds their frames to the gateway.
type Hub struct {
	gw   *gateway.Gateway
	opts Options

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(gw *gateway.Gateway, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 4096
	}
	return &Hub{
		gw:      gw,
		opts:    opts,
		clients: make(map[string]*Client),
	}
}

// Register adds a client to the hub and the gateway.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.gw.Connect(c.ID, c.Send)
}

// Unregister removes the client from its room, then closes its Send channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if ok {
		h.gw.Disconnect(id)
		close(c.Send)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll tells every connected client the server is going away. Close
// waits for the handshake, so it runs outside the lock.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for _, c := range h.clients {
		if c.Conn != nil {
			conns = append(conns, c.Conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.opts.ReadLimit)

	c := &Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan events.Event, h.opts.SendBuffer),
	}
	h.Register(c)
	defer h.Unregister(c.ID)
	log.Debug().Str("conn", c.ID).Str("remote", r.RemoteAddr).Msg("client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		c.WritePump(ctx)
		// Stop reading once the writer is gone.
		cancel()
	}()

	h.readLoop(ctx, c)
	log.Debug().Str("conn", c.ID).Msg("client disconnected")
}

func (h *Hub) readLoop(ctx context.Context, c *Client) {
	for {
		typ, data, err := c.Conn.Read(ctx)
		if err != nil {
			switch {
			case errors.Is(err, context.Canceled):
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway:
			default:
				log.Warn().Str("conn", c.ID).Err(err).Msg("websocket read failed")
			}
			return
		}
		ack := gateway.BadFrame()
		if typ == websocket.MessageText {
			ack = h.gw.HandleFrame(c.ID, data)
		}
		select {
		case c.Send <- ack:
		case <-ctx.Done():
			return
		}
	}
}
