package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/cache"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/logger"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/metrics"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/query"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// DefaultStreamInterval is how often snapshots are pushed.
	DefaultStreamInterval = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware decides which origins reach this handler.
		return true
	},
}

// StreamMessage is the envelope sent to dashboard clients.
type StreamMessage struct {
	Type    string      `json:"type"` // "snapshot"
	Payload interface{} `json:"payload"`
}

// Snapshot is the periodic view of recorder and cache state.
type Snapshot struct {
	Timestamp  time.Time             `json:"timestamp"`
	Operations map[string]perf.Stats `json:"operations"`
	Cache      cache.Stats           `json:"cache"`
}

// Client is one connected dashboard.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected dashboards and pushes snapshots to them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	recorder *perf.Recorder
	opt      *query.Optimizer
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
}

// NewHub creates a hub. interval <= 0 selects DefaultStreamInterval.
func NewHub(rec *perf.Recorder, opt *query.Optimizer, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		recorder:   rec,
		opt:        opt,
		interval:   interval,
		stop:       make(chan struct{}),
	}
}

// Snapshot captures the current recorder and cache state.
func (h *Hub) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:  time.Now().UTC(),
		Operations: h.recorder.Snapshot(),
		Cache:      h.opt.CacheStats(),
	}
}

func (h *Hub) encodeSnapshot() ([]byte, error) {
	return json.Marshal(StreamMessage{Type: "snapshot", Payload: h.Snapshot()})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run serves registrations and pushes a snapshot every interval until ctx is
// done or Stop is called.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Stop()
			h.closeAll()
			return

		case <-h.stop:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			logger.Info("Dashboard stream client connected", "total_clients", n)

		case client := <-h.unregister:
			h.remove(client)

		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			data, err := h.encodeSnapshot()
			if err != nil {
				logger.Error("Failed to encode performance snapshot", "error", err)
				continue
			}
			h.send(data)

		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

// Publish queues a fresh snapshot for every client outside the regular
// interval. It never blocks; when the queue is full the snapshot is dropped.
func (h *Hub) Publish() bool {
	data, err := h.encodeSnapshot()
	if err != nil {
		logger.Error("Failed to encode performance snapshot", "error", err)
		return false
	}
	select {
	case h.broadcast <- data:
		return true
	default:
		return false
	}
}

// Stop ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) send(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
			metrics.WebSocketMessagesSent.Inc()
		default:
			// Slow client: drop it rather than stall the others.
			close(client.send)
			delete(h.clients, client)
			metrics.WebSocketConnections.Dec()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		metrics.WebSocketConnections.Dec()
		logger.Info("Dashboard stream client disconnected", "total_clients", len(h.clients))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
		metrics.WebSocketConnections.Dec()
	}
}

// readPump drains client frames so pongs and close frames are processed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
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
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket unexpected close", "error", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// HandleStream upgrades the connection and sends an initial snapshot before
// periodic updates.
// GET /api/perf/stream
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		logger.WarnContext(r.Context(), "Failed to upgrade to WebSocket", "error", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 16)}

	if data, err := h.encodeSnapshot(); err == nil {
		client.send <- data
	}

	select {
	case h.register <- client:
	case <-h.stop:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
