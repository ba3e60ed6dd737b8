package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kanbanpizza/server/internal/events"
)

// ConnectionManager manages WebSocket connections and their room
// memberships, and fans room events out to every member.
type ConnectionManager struct {
	roomConnections map[string]map[*Connection]bool
	connsByID       map[string]*Connection
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  Handler

	broadcastCh chan broadcastMessage
}

// Connection represents one WebSocket client.
type Connection struct {
	ID      string
	Room    string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	Room   string
	ConnID string // if set, only deliver to this connection
	Event  *events.Event
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a manager. The action handler is attached
// with SetHandler once the engine exists; the two reference each other.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		connsByID:       make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// SetHandler attaches the inbound action handler. Must be called before the
// manager accepts connections.
func (cm *ConnectionManager) SetHandler(h Handler) {
	cm.handler = h
}

// Start processes broadcast messages until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection.
func (cm *ConnectionManager) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.mu.Lock()
	cm.connsByID[connection.ID] = connection
	cm.mu.Unlock()

	go connection.writePump()
	go connection.readPump()

	log.Info().Str("connection_id", connection.ID).Msg("WebSocket connection established")
	return nil
}

// joinRoom registers a connection in a room pool. A connection is in at most
// one room; joining again moves it.
func (cm *ConnectionManager) joinRoom(conn *Connection, room string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if conn.Room != "" {
		if pool, ok := cm.roomConnections[conn.Room]; ok {
			delete(pool, conn)
			if len(pool) == 0 {
				delete(cm.roomConnections, conn.Room)
			}
		}
	}
	conn.Room = room
	if cm.roomConnections[room] == nil {
		cm.roomConnections[room] = make(map[*Connection]bool)
	}
	cm.roomConnections[room][conn] = true
	log.Debug().
		Str("connection_id", conn.ID).
		Str("room", room).
		Int("room_connections", len(cm.roomConnections[room])).
		Msg("connection joined room")
}

// unregisterConnection removes a connection from the manager entirely.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	_, known := cm.connsByID[conn.ID]
	if known {
		delete(cm.connsByID, conn.ID)
		if pool, ok := cm.roomConnections[conn.Room]; ok {
			delete(pool, conn)
			if len(pool) == 0 {
				delete(cm.roomConnections, conn.Room)
			}
		}
		close(conn.Send)
	}
	cm.mu.Unlock()

	if known {
		cm.handler.Disconnect(conn.ID)
		log.Info().Str("connection_id", conn.ID).Str("room", conn.Room).Msg("connection unregistered")
	}
}

// BroadcastToRoom queues an event for every member of a room.
func (cm *ConnectionManager) BroadcastToRoom(room string, event *events.Event) {
	select {
	case cm.broadcastCh <- broadcastMessage{Room: room, Event: event}:
	default:
		log.Warn().Str("room", room).Msg("broadcast channel full, dropping message")
	}
}

// SendToConn queues an event for a single connection.
func (cm *ConnectionManager) SendToConn(connID string, event *events.Event) {
	select {
	case cm.broadcastCh <- broadcastMessage{ConnID: connID, Event: event}:
	default:
		log.Warn().Str("connection_id", connID).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	var targets []*Connection
	if message.ConnID != "" {
		if conn, ok := cm.connsByID[message.ConnID]; ok {
			targets = append(targets, conn)
		}
	} else {
		for conn := range cm.roomConnections[message.Room] {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- eventData:
		default:
			log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
}

// Stats returns connection counts for observability.
func (cm *ConnectionManager) Stats() map[string]any {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	roomCounts := make(map[string]int, len(cm.roomConnections))
	for room, pool := range cm.roomConnections {
		roomCounts[room] = len(pool)
	}
	return map[string]any{
		"total_connections": len(cm.connsByID),
		"active_rooms":      len(cm.roomConnections),
		"room_connections":  roomCounts,
	}
}

// writePump sends queued messages and pings to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump reads client actions and dispatches them to the handler.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			break
		}
		c.Manager.dispatch(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
