package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randalmurphal/tasksync/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Time allowed for a command to reach the repository.
	commandTimeout = 30 * time.Second
)

// WSMessage represents a WebSocket message from a client.
type WSMessage struct {
	Type   string `json:"type"` // subscribe, unsubscribe, command, ping
	TaskID string `json:"task_id,omitempty"`
	Action string `json:"action,omitempty"` // complete, activate, delete, refresh
}

// WSHandler streams repository events to WebSocket clients and accepts
// task commands.
type WSHandler struct {
	upgrader    websocket.Upgrader
	publisher   events.Publisher
	repo        Repository
	connections map[*websocket.Conn]*wsConnection
	mu          sync.RWMutex
	logger      *slog.Logger
}

// wsConnection tracks a single WebSocket connection.
type wsConnection struct {
	conn         *websocket.Conn
	mu           sync.Mutex // protects taskID, eventChan, unsubscribed
	taskID       string
	eventChan    <-chan events.Event
	send         chan []byte
	done         chan struct{}
	unsubscribed bool
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(pub events.Publisher, repo Repository, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		publisher:   pub,
		repo:        repo,
		connections: make(map[*websocket.Conn]*wsConnection),
		logger:      logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	wsConn := &wsConnection{
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.connections[conn] = wsConn
	h.mu.Unlock()

	go h.readPump(wsConn)
	go h.writePump(wsConn)
}

// readPump reads messages from the WebSocket connection.
func (h *WSHandler) readPump(c *wsConnection) {
	defer h.closeConnection(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		h.handleMessage(c, message)
	}
}

// writePump writes queued messages and keepalive pings.
func (h *WSHandler) writePump(c *wsConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
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

// handleMessage processes incoming WebSocket messages.
func (h *WSHandler) handleMessage(c *wsConnection, data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(c, "invalid message format")
		return
	}

	switch msg.Type {
	case "subscribe":
		h.handleSubscribe(c, msg.TaskID)
	case "unsubscribe":
		h.handleUnsubscribe(c)
		h.sendJSON(c, map[string]any{"type": "unsubscribed"})
	case "command":
		h.handleCommand(c, msg)
	case "ping":
		h.sendJSON(c, map[string]any{"type": "pong"})
	default:
		h.sendError(c, "unknown message type: "+msg.Type)
	}
}

// handleSubscribe subscribes the connection to a task's events.
// Use taskID "*" to receive every event.
func (h *WSHandler) handleSubscribe(c *wsConnection, taskID string) {
	if taskID == "" {
		h.sendError(c, "task_id required for subscribe (use \"*\" for all tasks)")
		return
	}

	h.handleUnsubscribe(c)

	c.mu.Lock()
	c.taskID = taskID
	c.eventChan = h.publisher.Subscribe(taskID)
	c.unsubscribed = false
	c.mu.Unlock()

	go h.forwardEvents(c)

	ack := map[string]any{
		"type":    "subscribed",
		"task_id": taskID,
	}
	if taskID == events.GlobalTaskID && h.repo != nil {
		ack["cache"] = h.repo.Stats()
	}
	h.sendJSON(c, ack)
	h.logger.Debug("websocket subscribed", "task_id", taskID)
}

// handleUnsubscribe unsubscribes the connection from its current task.
func (h *WSHandler) handleUnsubscribe(c *wsConnection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.taskID != "" && c.eventChan != nil && !c.unsubscribed {
		h.publisher.Unsubscribe(c.taskID, c.eventChan)
		c.unsubscribed = true
		c.taskID = ""
		c.eventChan = nil
	}
}

// handleCommand applies a task command through the repository.
func (h *WSHandler) handleCommand(c *wsConnection, msg WSMessage) {
	if h.repo == nil {
		h.sendError(c, "commands not supported")
		return
	}
	if msg.TaskID == "" && msg.Action != "refresh" {
		h.sendError(c, "task_id required for command")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch msg.Action {
	case "complete":
		err = h.repo.CompleteTaskByID(ctx, msg.TaskID)
	case "activate":
		err = h.repo.ActivateTaskByID(ctx, msg.TaskID)
	case "delete":
		err = h.repo.DeleteTask(ctx, msg.TaskID)
	case "refresh":
		err = h.repo.RefreshTasks(ctx)
	default:
		h.sendError(c, "unknown action: "+msg.Action)
		return
	}
	if err != nil {
		h.sendError(c, err.Error())
		return
	}

	h.sendJSON(c, map[string]any{
		"type":    "command_result",
		"action":  msg.Action,
		"task_id": msg.TaskID,
	})
}

// forwardEvents forwards events from the publisher to the WebSocket.
func (h *WSHandler) forwardEvents(c *wsConnection) {
	c.mu.Lock()
	eventChan := c.eventChan
	c.mu.Unlock()

	if eventChan == nil {
		return
	}

	for {
		select {
		case <-c.done:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			h.sendJSON(c, map[string]any{
				"type":    "event",
				"event":   string(event.Type),
				"task_id": event.TaskID,
				"data":    event.Data,
				"time":    event.Time,
			})
		}
	}
}

// closeConnection cleans up a WebSocket connection.
func (h *WSHandler) closeConnection(c *wsConnection) {
	h.mu.Lock()
	if _, exists := h.connections[c.conn]; !exists {
		h.mu.Unlock()
		return
	}
	delete(h.connections, c.conn)
	h.mu.Unlock()

	h.handleUnsubscribe(c)
	close(c.done)
	_ = c.conn.Close()
}

// sendJSON queues a JSON message for a connection.
func (h *WSHandler) sendJSON(c *wsConnection, data any) {
	msg, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal JSON", "error", err)
		return
	}

	select {
	case c.send <- msg:
	default:
		h.logger.Warn("websocket send buffer full, dropping message")
	}
}

// sendError sends an error message to a connection.
func (h *WSHandler) sendError(c *wsConnection, message string) {
	h.sendJSON(c, map[string]any{
		"type":  "error",
		"error": message,
	})
}

// ConnectionCount returns the number of active connections.
func (h *WSHandler) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close closes all connections.
func (h *WSHandler) Close() {
	h.mu.RLock()
	conns := make([]*wsConnection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.closeConnection(c)
	}
}
