package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"rfid-door-lock/internal/types"
)

// WebSocketMessage wraps a scan event for the stream.
type WebSocketMessage struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      types.ScanEvent `json:"data"`
}

// wsConnection is a single connected stream client.
type wsConnection struct {
	id   string
	conn *websocket.Conn
	send chan WebSocketMessage
}

// WebSocketManager fans scan events out to connected stream clients.
type WebSocketManager struct {
	mu          sync.RWMutex
	connections map[string]*wsConnection
	upgrader    websocket.Upgrader
	logger      *logrus.Entry

	broadcast  chan WebSocketMessage
	register   chan *wsConnection
	unregister chan *wsConnection
	done       chan struct{}

	nextID         int
	writeTimeout   time.Duration
	maxConnections int
}

// NewWebSocketManager creates a WebSocket manager.
func NewWebSocketManager(logger *logrus.Entry) *WebSocketManager {
	return &WebSocketManager{
		connections: make(map[string]*wsConnection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local maintenance surface; all origins accepted.
				return true
			},
		},
		logger:         logger,
		broadcast:      make(chan WebSocketMessage, 64),
		register:       make(chan *wsConnection),
		unregister:     make(chan *wsConnection),
		done:           make(chan struct{}),
		writeTimeout:   10 * time.Second,
		maxConnections: 16,
	}
}

// Start runs the manager loop.
func (wsm *WebSocketManager) Start(ctx context.Context) {
	go wsm.run(ctx)
}

// Stop stops the manager and closes all connections.
func (wsm *WebSocketManager) Stop() {
	close(wsm.done)
}

// Broadcast queues a scan event for delivery to every connected client.
// Events are dropped when the queue is full; the stream is diagnostic only.
func (wsm *WebSocketManager) Broadcast(event types.ScanEvent) {
	msg := WebSocketMessage{
		Type:      "scan",
		Timestamp: time.Now(),
		Data:      event,
	}

	select {
	case wsm.broadcast <- msg:
	default:
		wsm.logger.Warn("WebSocket broadcast queue full, dropping scan event")
	}
}

// HandleUpgrade upgrades an HTTP request to a stream connection.
func (wsm *WebSocketManager) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := wsm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsm.logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	wsm.mu.Lock()
	wsm.nextID++
	c := &wsConnection{
		id:   fmt.Sprintf("ws-%d", wsm.nextID),
		conn: conn,
		send: make(chan WebSocketMessage, 16),
	}
	wsm.mu.Unlock()

	wsm.register <- c

	go wsm.writePump(c)
	go wsm.readPump(c)
}

// run is the manager's main loop.
func (wsm *WebSocketManager) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			wsm.closeAll()
			return
		case <-wsm.done:
			wsm.closeAll()
			return
		case c := <-wsm.register:
			wsm.addConnection(c)
		case c := <-wsm.unregister:
			wsm.removeConnection(c)
		case msg := <-wsm.broadcast:
			wsm.deliver(msg)
		}
	}
}

func (wsm *WebSocketManager) addConnection(c *wsConnection) {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()

	if len(wsm.connections) >= wsm.maxConnections {
		wsm.logger.WithField("connection", c.id).Warn("Connection limit reached, rejecting stream client")
		c.conn.Close()
		return
	}

	wsm.connections[c.id] = c
	wsm.logger.WithField("connection", c.id).Info("Stream client connected")
}

func (wsm *WebSocketManager) removeConnection(c *wsConnection) {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()

	if _, exists := wsm.connections[c.id]; exists {
		delete(wsm.connections, c.id)
		close(c.send)
		c.conn.Close()
		wsm.logger.WithField("connection", c.id).Info("Stream client disconnected")
	}
}

func (wsm *WebSocketManager) deliver(msg WebSocketMessage) {
	wsm.mu.RLock()
	defer wsm.mu.RUnlock()

	for _, c := range wsm.connections {
		select {
		case c.send <- msg:
		default:
			wsm.logger.WithField("connection", c.id).Warn("Stream client send queue full, dropping event")
		}
	}
}

func (wsm *WebSocketManager) closeAll() {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()

	for id, c := range wsm.connections {
		close(c.send)
		c.conn.Close()
		delete(wsm.connections, id)
	}
}

// writePump forwards queued messages to one client.
func (wsm *WebSocketManager) writePump(c *wsConnection) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsm.writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			wsm.logger.WithError(err).WithField("connection", c.id).Debug("Stream write failed")
			return
		}
	}
}

// readPump drains client messages; the stream is one-way, so the only thing
// read here is the close handshake.
func (wsm *WebSocketManager) readPump(c *wsConnection) {
	defer func() {
		select {
		case wsm.unregister <- c:
		case <-wsm.done:
		}
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
