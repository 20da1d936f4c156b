package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"campuswatch/core"
	"campuswatch/realtime"
	"campuswatch/service"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket configuration constants
const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum message size allowed from peer.
	maxMessageSize = 4096

	// Channel buffer sizes for non-blocking sends
	sendChannelSize = 256
)

// wsInbound is a frame received from a connected client.
type wsInbound struct {
	Type   string `json:"type"` // "join-room", "leave-room", "send-message"
	RoomID string `json:"roomId,omitempty"`
	Body   string `json:"body,omitempty"`
}

// wsOutbound is a frame sent to a connected client.
type wsOutbound struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// client represents a single WebSocket client connection. The identity is
// a snapshot taken at upgrade time: a role change never reaches a live
// connection, only its next one.
type client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity core.Identity

	// mu guards closed. The pumps keep queueing frames after the hub has
	// dropped the client; closed makes those sends no-ops instead of sends
	// on a closed channel.
	mu     sync.Mutex
	closed bool
}

// closeSend closes the send channel exactly once. Only the hub loop calls
// this; trySend checks closed under the same lock.
func (c *client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// subscription is a join/leave request routed through the hub loop.
type subscription struct {
	client *client
	roomID string
}

// Hub maintains the set of active WebSocket clients and routes events to
// the connections that should see them: room subscribers for messages,
// the recipient's connections for notifications, privileged connections
// for new reports. All index mutation happens on the hub goroutine.
type Hub struct {
	// Registered clients
	clients map[*client]bool

	// Room subscriptions, keyed by room id
	rooms map[string]map[*client]bool

	// Connections per user id, for notification delivery
	users map[string]map[*client]bool

	// Register requests from clients
	register chan *client

	// Unregister requests from clients
	unregister chan *client

	// Join and leave requests
	subscribe   chan subscription
	unsubscribe chan subscription

	// Events arriving from the realtime bus
	events chan realtime.Event

	// Chat service backing join-room and send-message
	chat *service.ChatService

	mu sync.RWMutex

	logger *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// upgrader configures WebSocket connection upgrades.
// SECURITY: CORS check is disabled here because corsMiddleware already handles it.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a new WebSocket hub. Must be started with Start() and fed
// events via HandleEvent, typically wired as the realtime bus handler.
func NewHub(chat *service.ChatService, logger *zap.SugaredLogger, ctx context.Context) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		clients:     make(map[*client]bool),
		rooms:       make(map[string]map[*client]bool),
		users:       make(map[string]map[*client]bool),
		register:    make(chan *client),
		unregister:  make(chan *client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		events:      make(chan realtime.Event, 256),
		chat:        chat,
		logger:      logger,
		ctx:         hubCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start runs the hub's main event loop. Must be called exactly once.
func (h *Hub) Start() {
	defer close(h.done)

	h.logger.Info("WebSocket hub started")

	for {
		select {
		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.closeSend()
				c.conn.Close()
			}
			h.clients = make(map[*client]bool)
			h.rooms = make(map[string]map[*client]bool)
			h.users = make(map[string]map[*client]bool)
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			if h.users[c.identity.UserID] == nil {
				h.users[c.identity.UserID] = make(map[*client]bool)
			}
			h.users[c.identity.UserID][c] = true
			h.mu.Unlock()
			h.logger.Debugw("WebSocket client registered",
				"user_id", c.identity.UserID, "total_clients", h.ClientCount())

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				h.dropClientLocked(c)
				c.closeSend()
			}
			h.mu.Unlock()

		case sub := <-h.subscribe:
			h.mu.Lock()
			if h.rooms[sub.roomID] == nil {
				h.rooms[sub.roomID] = make(map[*client]bool)
			}
			h.rooms[sub.roomID][sub.client] = true
			h.mu.Unlock()

		case sub := <-h.unsubscribe:
			h.mu.Lock()
			if members, ok := h.rooms[sub.roomID]; ok {
				delete(members, sub.client)
				if len(members) == 0 {
					delete(h.rooms, sub.roomID)
				}
			}
			h.mu.Unlock()

		case event := <-h.events:
			h.route(event)
		}
	}
}

// dropClientLocked removes a client from every index. Caller holds mu.
func (h *Hub) dropClientLocked(c *client) {
	for roomID, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if conns, ok := h.users[c.identity.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, c.identity.UserID)
		}
	}
}

// HandleEvent enqueues a bus event for routing. Non-blocking: if the hub
// is saturated the event is dropped, because clients can always recover
// state from the durable read endpoints.
func (h *Hub) HandleEvent(event realtime.Event) {
	select {
	case h.events <- event:
	default:
		h.logger.Warnw("WebSocket hub saturated, dropping event", "type", event.Type)
	}
}

// route fans one bus event out to the connections that should see it.
func (h *Hub) route(event realtime.Event) {
	switch event.Type {
	case realtime.EventMessage:
		if event.Message == nil {
			return
		}
		h.sendToRoom(event.Message.RoomID, wsOutbound{
			Type: "message", Data: event.Message, Timestamp: time.Now().UTC(),
		})
	case realtime.EventNotification:
		if event.Notification == nil {
			return
		}
		h.sendToUser(event.Notification.Recipient, wsOutbound{
			Type: "notification", Data: event.Notification, Timestamp: time.Now().UTC(),
		})
	case realtime.EventReport:
		if event.Report == nil {
			return
		}
		h.sendToPrivileged(wsOutbound{
			Type: "report", Data: event.Report, Timestamp: time.Now().UTC(),
		})
	}
}

func (h *Hub) sendToRoom(roomID string, frame wsOutbound) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Errorw("Failed to marshal WebSocket frame", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.trySend(payload)
	}
}

func (h *Hub) sendToUser(userID string, frame wsOutbound) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Errorw("Failed to marshal WebSocket frame", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		c.trySend(payload)
	}
}

func (h *Hub) sendToPrivileged(frame wsOutbound) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Errorw("Failed to marshal WebSocket frame", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.identity.Role.IsPrivileged() {
			c.trySend(payload)
		}
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully shuts down the hub.
func (h *Hub) Stop() {
	h.cancel()
	<-h.done
}

// trySend queues a frame without blocking. A client whose buffer is full
// is disconnected rather than allowed to stall everyone else; a client the
// hub already dropped silently discards the frame.
func (c *client) trySend(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		go func() {
			c.hub.unregister <- c
			c.conn.Close()
		}()
	}
}

// sendFrame marshals and queues an outbound frame to this client only.
func (c *client) sendFrame(frame wsOutbound) {
	frame.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(frame)
	if err != nil {
		c.hub.logger.Errorw("Failed to marshal WebSocket frame", "error", err)
		return
	}
	c.trySend(payload)
}

func (c *client) sendError(message string) {
	c.sendFrame(wsOutbound{Type: "error", Error: message})
}

// readPump pumps frames from the WebSocket connection into the chat
// service and the hub's subscription indexes.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debugw("WebSocket unexpected close", "error", err)
			}
			break
		}

		var frame wsInbound
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError("malformed frame")
			continue
		}
		c.handleFrame(frame)
	}
}

// handleFrame dispatches one inbound frame. Every mutation goes through
// the same service paths as the HTTP handlers; a frame the durable write
// rejects is answered with an error and nothing is broadcast.
func (c *client) handleFrame(frame wsInbound) {
	ctx := c.hub.ctx

	switch frame.Type {
	case "join-room":
		room, err := c.hub.chat.JoinRoom(ctx, c.identity, frame.RoomID)
		if err != nil {
			c.sendError("cannot join room: " + err.Error())
			return
		}
		select {
		case c.hub.subscribe <- subscription{client: c, roomID: room.ID}:
		case <-c.hub.ctx.Done():
			return
		}
		c.sendFrame(wsOutbound{Type: "joined", Data: room})

	case "leave-room":
		select {
		case c.hub.unsubscribe <- subscription{client: c, roomID: frame.RoomID}:
		case <-c.hub.ctx.Done():
			return
		}
		c.sendFrame(wsOutbound{Type: "left", Data: frame.RoomID})

	case "send-message":
		// Write first; the broadcast comes back through the bus only after
		// the message is durably stored.
		msg, err := c.hub.chat.PostMessage(ctx, c.identity, frame.RoomID, frame.Body)
		if err != nil {
			c.sendError("cannot send message: " + err.Error())
			return
		}
		c.sendFrame(wsOutbound{Type: "sent", Data: msg})

	default:
		c.sendError("unknown frame type")
	}
}

// writePump pumps queued frames to the WebSocket connection with a
// ping/pong heartbeat.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// serveWs authenticates and upgrades a websocket connection. The token
// travels in the query string because browsers cannot set headers on
// websocket upgrades.
func (a *API) serveWs(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		a.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing token"})
		return
	}
	claims, err := validateJWT(token, a.config)
	if err != nil {
		a.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
		return
	}

	// Same account check as the HTTP middleware; the resulting identity is
	// then snapshotted for the life of the connection.
	user, err := a.auth.GetUser(r.Context(), claims.UserID)
	if err != nil || !user.Active {
		a.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Errorw("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:  a.hub,
		conn: conn,
		send: make(chan []byte, sendChannelSize),
		identity: core.Identity{
			UserID:      user.ID,
			AnonymousID: user.AnonymousID,
			Role:        user.Role,
			IsAnonymous: user.IsAnonymous,
		},
	}
	c.hub.register <- c

	go c.writePump()
	go c.readPump()
}
