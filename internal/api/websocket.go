package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/internal/chat"
	"github.com/qurani-maai/quranchat/internal/logging"
	"github.com/qurani-maai/quranchat/internal/server"
)

// Event types sent to websocket clients.
const (
	EventResult   = "result"
	EventProgress = "progress"
	EventError    = "error"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Event is one message sent to a websocket client. Results go only to the
// client that sent the utterance; progress events go to every client.
type Event struct {
	Type      string         `json:"type"`
	Result    *chat.Result   `json:"result,omitempty"`
	Progress  *chat.Progress `json:"progress,omitempty"`
	Error     *APIError      `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// ClientMessage is an utterance received from a websocket client. An empty
// SessionID continues the current session.
type ClientMessage struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// Client represents a WebSocket client connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *tokenBucket
}

type directMessage struct {
	client *Client
	data   []byte
}

// Hub maintains active WebSocket connections and routes messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		direct:     make(chan directMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run handles registration and delivery until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_connected", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_disconnected", n)

		case msg := <-h.direct:
			h.mu.Lock()
			if h.clients[msg.client] {
				h.deliverLocked(msg.client, msg.data)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				h.deliverLocked(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliverLocked queues data for client, disconnecting it when its buffer
// is full. h.mu must be held.
func (h *Hub) deliverLocked(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every connected client.
func (h *Hub) Broadcast(ev Event) {
	data, ok := encodeEvent(ev)
	if !ok {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logging.Warn("broadcast channel full, dropping message", "type", ev.Type)
	}
}

// sendTo queues ev for one client.
func (h *Hub) sendTo(c *Client, ev Event) {
	data, ok := encodeEvent(ev)
	if !ok {
		return
	}
	select {
	case h.direct <- directMessage{client: c, data: data}:
	case <-h.done:
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func encodeEvent(ev Event) ([]byte, bool) {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("failed to marshal websocket event", "type", ev.Type, "error", err)
		return nil, false
	}
	return data, true
}

// isOriginAllowed checks origin against the allowed list. An empty list
// allows every origin; entries may be exact origins, "*", or "*.domain".
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if len(allowedOrigins) == 0 {
		return true
	}
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		switch {
		case allowed == "*", origin == allowed:
			return true
		case strings.HasPrefix(allowed, "*."):
			if strings.HasSuffix(origin, allowed[1:]) {
				return true
			}
		}
	}
	return false
}

// handleWebSocket upgrades the connection and serves chat messages on it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.WarnContext(r.Context(), "websocket upgrade failed", "origin", r.Header.Get("Origin"), "error", err)
		return
	}
	conn.SetReadLimit(s.cfg.MaxMessageSize)

	rate := float64(s.cfg.MaxMessageRate)
	client := &Client{
		hub:     s.hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: newTokenBucket(rate*2, rate, time.Now()),
	}
	if !s.hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go s.readPump(s.connContext(r), client)
}

// connContext returns the context for a connection's turns. The request
// context ends when the upgrade handler returns, so it derives from the
// server's run context and carries only the request ID over.
func (s *Server) connContext(r *http.Request) context.Context {
	return logging.WithRequestID(s.base, logging.GetRequestID(r.Context()))
}

// readPump reads utterances from the connection and answers each one.
func (s *Server) readPump(ctx context.Context, c *Client) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.WarnContext(ctx, "websocket unexpected close", "error", err)
			}
			return
		}

		if ok, _, _ := c.limiter.take(time.Now()); !ok {
			logging.WarnContext(ctx, "websocket message rate exceeded, closing connection")
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit exceeded"),
				time.Now().Add(writeWait))
			return
		}

		s.hub.sendTo(c, s.answer(ctx, data))
	}
}

// answer runs one client message through the engine.
func (s *Server) answer(ctx context.Context, data []byte) Event {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{Type: EventError, Error: &APIError{Code: "INVALID_JSON", Message: "Invalid message: " + err.Error()}}
	}
	text := server.LimitRunes(server.SanitizeUserInput(msg.Text), maxUtteranceRunes)
	if text == "" {
		return Event{Type: EventError, Error: &APIError{Code: "INVALID_INPUT", Message: "text is required"}}
	}

	id := msg.SessionID
	if id == "" {
		sess, err := s.engine.Resume()
		if err != nil {
			return errorEvent(err)
		}
		id = sess.ID
	}

	res, err := s.engine.Handle(ctx, id, text)
	if err != nil {
		return errorEvent(err)
	}
	s.afterResult(res)
	return Event{Type: EventResult, Result: &res}
}

func errorEvent(err error) Event {
	code, message := "INTERNAL_ERROR", chat.UnexpectedErrorNotice
	if errors.Is(err, errors.ErrNotFound) {
		code, message = "NOT_FOUND", err.Error()
	} else {
		logging.Error("websocket message failed", "error", err)
	}
	return Event{Type: EventError, Error: &APIError{Code: code, Message: message}}
}

// writePump writes queued messages and keeps the connection alive with pings.
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
