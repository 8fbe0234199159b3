package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shelfwatch/shelfwatch/internal/checker"
	"github.com/shelfwatch/shelfwatch/internal/notify"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead. pingPeriod must stay below it.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The page and the socket share an origin; anything fancier belongs in
	// a reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Collector produces status snapshots. *checker.Checker satisfies it.
type Collector interface {
	Collect(ctx context.Context) (*checker.Snapshot, error)
}

// wsMessage is the JSON envelope pushed to clients.
type wsMessage struct {
	Event string            `json:"event"`
	Data  *checker.Snapshot `json:"data,omitempty"`
	Error string            `json:"error,omitempty"`
}

// Hub manages WebSocket clients and pushes a freshly collected snapshot to
// all of them on a fixed interval. When nobody is listening and no notifier
// is configured, the ticker skips the upstream round trip entirely.
type Hub struct {
	collector Collector
	notifier  *notify.Notifier
	interval  time.Duration

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub collecting through c every interval. notifier may be
// nil.
func NewHub(c Collector, notifier *notify.Notifier, interval time.Duration) *Hub {
	return &Hub{
		collector: c,
		notifier:  notifier,
		interval:  interval,
		clients:   make(map[*wsClient]struct{}),
	}
}

// Run drives the collection ticker. Blocks until ctx is cancelled, then
// closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.tick(ctx)
		}
	}
}

func (h *Hub) tick(ctx context.Context) {
	if h.Count() == 0 && h.notifier == nil {
		return
	}

	snap, err := h.collector.Collect(ctx)
	if err != nil {
		h.broadcast(wsMessage{Event: "error", Error: err.Error()})
		return
	}
	h.notifier.Observe(snap)
	h.broadcast(wsMessage{Event: "snapshot", Data: snap})
}

// ServeHTTP upgrades the connection and serves the client until it drops.
// A fresh snapshot is pushed as soon as the first collection completes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	// Greet the new client with current data instead of making it wait a
	// full tick. Runs detached — collection can take seconds.
	go h.greet(c)

	go c.writePump()
	c.readPump() // blocks until the connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) greet(c *wsClient) {
	snap, err := h.collector.Collect(context.Background())
	msg := wsMessage{Event: "snapshot", Data: snap}
	if err != nil {
		msg = wsMessage{Event: "error", Error: err.Error()}
	}
	if data, err := json.Marshal(msg); err == nil {
		h.trySend(c, data)
	}
}

// trySend delivers data to c unless it has already unregistered. Holding the
// read lock keeps unregister from closing the channel mid-send.
func (h *Hub) trySend(c *wsClient, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("ws: marshal broadcast", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client; it will catch up on the next tick or time out.
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *wsClient) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the stream is one-way. It exists to
// process pongs and notice the close.
func (c *wsClient) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
