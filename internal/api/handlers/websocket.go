package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/metrics"
	"github.com/onnwee/redpull/internal/session"
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

	sendBuffer      = 256
	broadcastBuffer = 1024
)

// WebSocketMessage is one frame sent to a session's clients.
type WebSocketMessage struct {
	Type       string `json:"type"` // "hello", "tile", "reset", "error", "viewer"
	Generation uint64 `json:"generation"`
	Payload    any    `json:"payload,omitempty"`
}

type outbound struct {
	sessionID string
	data      []byte
}

// Client is one websocket connection following a session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub fans session events out to the websocket clients of that session. It
// implements session.Sink.
type Hub struct {
	sessions map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu sync.RWMutex
}

// NewHub creates a hub. Run must be called before clients connect.
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, broadcastBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled or Stop is
// called, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return

		case <-h.stop:
			return

		case client := <-h.register:
			h.mu.Lock()
			clients := h.sessions[client.sessionID]
			if clients == nil {
				clients = make(map[*Client]struct{})
				h.sessions[client.sessionID] = clients
			}
			clients[client] = struct{}{}
			n := len(clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			logger.Debug("WebSocket client connected", "session_id", client.sessionID, "session_clients", n)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			sent := 0
			for client := range h.sessions[msg.sessionID] {
				select {
				case client.send <- msg.data:
					sent++
				default:
					// Client's send buffer is full, close the connection
					logger.Warn("WebSocket client too slow, disconnecting", "session_id", msg.sessionID)
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
			metrics.WebSocketMessagesSent.Add(float64(sent))
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	metrics.WebSocketConnections.Dec()
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}
	logger.Debug("WebSocket client disconnected", "session_id", client.sessionID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.sessions {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Clients returns how many connections follow a session.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Emit queues ev for the clients of ev.SessionID. Events are dropped when
// nobody is listening or the hub is backed up.
func (h *Hub) Emit(ctx context.Context, ev session.Event) {
	if h.Clients(ev.SessionID) == 0 {
		return
	}
	data, err := json.Marshal(WebSocketMessage{Type: string(ev.Type), Generation: ev.Generation, Payload: ev.Payload})
	if err != nil {
		logger.FromContext(ctx).Error("Failed to marshal WebSocket message", "type", ev.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- outbound{sessionID: ev.SessionID, data: data}:
	case <-h.done:
	default:
		logger.FromContext(ctx).Warn("WebSocket broadcast queue full, dropping event", "type", ev.Type)
	}
}

// readPump reads client frames until the connection fails. Any frame counts
// as session activity.
func (c *Client) readPump(store SessionStore) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket unexpected close", "error", err)
			}
			return
		}
		if _, err := store.Get(c.sessionID); err != nil {
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketHandler upgrades connections onto a session's event stream.
type WebSocketHandler struct {
	hub      *Hub
	store    SessionStore
	upgrader websocket.Upgrader
}

// NewWebSocketHandler builds a handler. Same-host origins are always
// accepted; others must appear in allowedOrigins ("*" accepts all).
func NewWebSocketHandler(hub *Hub, store SessionStore, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:   hub,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket streams tile, reset, error and viewer events for a session.
// The first frame is a "hello" carrying the session state.
// GET /api/sessions/{id}/ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(h.store, w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		logger.WarnContext(r.Context(), "Failed to upgrade to WebSocket", "error", err)
		return
	}

	client := &Client{
		hub:       h.hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: s.ID(),
	}

	st := s.State()
	if data, err := json.Marshal(WebSocketMessage{Type: "hello", Generation: st.Generation, Payload: st}); err == nil {
		client.send <- data
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h.store)
}
