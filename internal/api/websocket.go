package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wellsgz/mcpulse/internal/collector"
	"github.com/wellsgz/mcpulse/internal/logging"
	"github.com/wellsgz/mcpulse/internal/notify"
	"github.com/wellsgz/mcpulse/internal/probe"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10 // must be shorter than pongWait
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard may be served from any origin
	CheckOrigin: func(*http.Request) bool { return true },
}

// ClientMessage is sent by browsers to pick the servers they follow.
// Targets may contain "all".
type ClientMessage struct {
	Type    string   `json:"type"` // subscribe | unsubscribe
	Targets []string `json:"targets"`
}

// ServerMessage is pushed to browsers
type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Server message types
const (
	MessageStatusResult = "status_result"
	MessageStatusChange = "status_change"
	MessageError        = "error"
)

// target returns the server a message is about, if any
func (m ServerMessage) target() (string, bool) {
	switch data := m.Data.(type) {
	case probe.Result:
		return data.Target, true
	case notify.Event:
		return data.Target, true
	}
	return "", false
}

// subscription is the set of servers a client follows
type subscription struct {
	all   bool
	names map[string]struct{}
}

func (s *subscription) add(targets []string) {
	for _, t := range targets {
		if t == "all" {
			s.all = true
			continue
		}
		if s.names == nil {
			s.names = make(map[string]struct{})
		}
		s.names[t] = struct{}{}
	}
}

func (s *subscription) remove(targets []string) {
	for _, t := range targets {
		if t == "all" {
			s.all = false
			s.names = nil
			return
		}
		delete(s.names, t)
	}
}

func (s *subscription) covers(target string) bool {
	if s.all {
		return true
	}
	_, ok := s.names[target]
	return ok
}

// Hub fans status results and changes out to websocket clients
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	stopped bool

	broadcast chan ServerMessage
	results   <-chan probe.Result

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan ServerMessage, 256),
		done:      make(chan struct{}),
	}
}

// SetCollector subscribes the hub to the collector's results
func (h *Hub) SetCollector(c *collector.Collector) {
	h.results = c.Subscribe()
}

// Run delivers queued messages until Stop is called
func (h *Hub) Run() {
	if h.results != nil {
		go h.forwardResults()
	}

	for {
		select {
		case <-h.done:
			h.closeAll()
			logging.Info("WebSocket", "Hub stopped", nil)
			return
		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Stop shuts the hub down and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Notify queues a status change for subscribed clients
func (h *Hub) Notify(ev notify.Event) {
	h.publish(ServerMessage{Type: MessageStatusChange, Data: ev})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) publish(message ServerMessage) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

func (h *Hub) forwardResults() {
	for result := range h.results {
		h.publish(ServerMessage{Type: MessageStatusResult, Data: result})
	}
}

// add registers a client; it reports false once the hub has stopped
func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return false
	}
	h.clients[c] = struct{}{}
	logging.Info("WebSocket", "Client connected", map[string]int{"clients": len(h.clients)})
	return true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	logging.Info("WebSocket", "Client disconnected", map[string]int{"clients": len(h.clients)})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopped = true
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

// deliver hands a message to every interested client. Clients that cannot
// keep up are dropped.
func (h *Hub) deliver(message ServerMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	target, scoped := message.target()
	for c := range h.clients {
		if scoped && !c.follows(target) {
			continue
		}
		if !c.trySend(message) {
			c.close()
			delete(h.clients, c)
		}
	}
}

// Client is one websocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan ServerMessage

	mu     sync.Mutex
	sub    subscription
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan ServerMessage, sendBuffer),
	}
}

func (c *Client) follows(target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub.covers(target)
}

// handle applies one message received from the browser
func (c *Client) handle(msg ClientMessage) {
	c.mu.Lock()
	switch msg.Type {
	case "subscribe":
		c.sub.add(msg.Targets)
	case "unsubscribe":
		c.sub.remove(msg.Targets)
	default:
		c.mu.Unlock()
		c.trySend(ServerMessage{Type: MessageError, Data: "unknown message type: " + msg.Type})
		return
	}
	c.mu.Unlock()
	logging.Info("WebSocket", "Client "+msg.Type+"d", map[string][]string{"targets": msg.Targets})
}

// trySend queues a message unless the client is closed or its buffer is full
func (c *Client) trySend(message ServerMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readLoop reads subscription changes until the connection fails
func (c *Client) readLoop() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if isDecodeError(err) {
				c.trySend(ServerMessage{Type: MessageError, Data: "invalid message format"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("WebSocket", "Read error", err)
			}
			return
		}
		c.handle(msg)
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// writeLoop writes queued messages and keeps the connection alive with pings
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
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
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error("WebSocket", "Write error", err)
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWebSocket upgrades the request and attaches the connection to hub
func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			logging.Error("WebSocket", "Upgrade error", err)
			return
		}

		c := newClient(hub, conn)
		if !hub.add(c) {
			conn.Close()
			return
		}

		go c.writeLoop()
		go c.readLoop()
	}
}
