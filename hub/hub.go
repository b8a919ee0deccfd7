// Package hub provides the session registry and connection router: it
// holds all live sessions, their orchestrators, and their transport
// connections behind one concurrency-safe interface.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxhire/interviewd/domain"
	"github.com/voxhire/interviewd/engine"
	"github.com/voxhire/interviewd/protocol"
)

// Connection wraps a WebSocket connection with write locking. gorilla
// connections allow only one concurrent writer.
type Connection struct {
	SessionID string
	ws        *websocket.Conn
	mu        sync.Mutex
}

// WriteMessage writes a message with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.ws.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

// ReadMessage reads the next message from the connection.
func (c *Connection) ReadMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

// SetPongHandler installs the pong handler.
func (c *Connection) SetPongHandler(h func(string) error) {
	c.ws.SetPongHandler(h)
}

// SetReadLimit caps inbound message size.
func (c *Connection) SetReadLimit(limit int64) {
	c.ws.SetReadLimit(limit)
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	return c.ws.Close()
}

// InboundHandler processes one routed inbound message for a session.
type InboundHandler func(orch *engine.Orchestrator, msg protocol.Inbound)

// Hub multiplexes many concurrent sessions over independent transport
// connections. Three parallel maps (sessions, orchestrators,
// connections) are guarded by a single lock; session internals are never
// touched under it.
type Hub struct {
	mu            sync.RWMutex
	sessions      map[string]*domain.Session
	orchestrators map[string]*engine.Orchestrator
	connections   map[string]*Connection
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions:      make(map[string]*domain.Session),
		orchestrators: make(map[string]*engine.Orchestrator),
		connections:   make(map[string]*Connection),
	}
}

// Connect registers a transport handle for the session and returns the
// wrapped connection. A previous handle for the same session is
// replaced.
func (h *Hub) Connect(ws *websocket.Conn, sessionID string) *Connection {
	conn := &Connection{SessionID: sessionID, ws: ws}
	h.mu.Lock()
	h.connections[sessionID] = conn
	h.mu.Unlock()
	log.Printf("Connection registered for session %s", sessionID)
	return conn
}

// Disconnect removes the transport handle only; session data is kept so
// reports stay retrievable. Idempotent.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.Lock()
	_, existed := h.connections[sessionID]
	delete(h.connections, sessionID)
	h.mu.Unlock()
	if existed {
		log.Printf("Connection unregistered for session %s", sessionID)
	}
}

// CreateSession inserts or replaces the session record and its
// orchestrator. Last write wins.
func (h *Hub) CreateSession(session *domain.Session, orch *engine.Orchestrator) {
	h.mu.Lock()
	h.sessions[session.SessionID] = session
	h.orchestrators[session.SessionID] = orch
	h.mu.Unlock()
	log.Printf("Session created: %s", session.SessionID)
}

// GetSession retrieves a session record.
func (h *Hub) GetSession(sessionID string) (*domain.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[sessionID]
	return s, ok
}

// Orchestrator retrieves the orchestrator for a session.
func (h *Hub) Orchestrator(sessionID string) (*engine.Orchestrator, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	o, ok := h.orchestrators[sessionID]
	return o, ok
}

// Dispatch routes an inbound message to the orchestrator registered for
// the session. With no orchestrator the message is dropped with a
// warning, never an error that tears down the connection.
func (h *Hub) Dispatch(sessionID string, msg protocol.Inbound, handle InboundHandler) {
	orch, ok := h.Orchestrator(sessionID)
	if !ok {
		log.Printf("WARN: dropping message for unknown session %s", sessionID)
		return
	}
	handle(orch, msg)
}

// Send delivers one outbound message to the session's connection. A
// missing connection or failed write disconnects the transport handle
// but retains the session record.
func (h *Hub) Send(sessionID string, v interface{}) error {
	h.mu.RLock()
	conn, ok := h.connections[sessionID]
	h.mu.RUnlock()
	if !ok {
		return &domain.SessionNotFoundError{SessionID: sessionID}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("Failed to send to session %s: %v", sessionID, err)
		h.Disconnect(sessionID)
		return err
	}
	return nil
}

// IsConnected reports whether the session has a live transport handle.
func (h *Hub) IsConnected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[sessionID]
	return ok
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SessionCount returns the number of known sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
