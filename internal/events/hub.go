// Package events delivers engine events to connected clients over WebSocket.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Event kinds pushed to clients.
const (
	KindTextWithFunction = "text_response_with_function"
	KindFunctionResult   = "function_result"
	KindTextNoFunction   = "text_response_no_function"
	KindError            = "error"
)

// envelope is the wire format for one event.
type envelope struct {
	Event     string `json:"event"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// Hub tracks the active WebSocket connection per session.
type Hub struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
	now    func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		active: make(map[string]*websocket.Conn),
		now:    time.Now,
	}
}

// Register stores the connection for a session, replacing and closing any
// previous one.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.active[sessionID]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	h.active[sessionID] = conn
	slog.Info("Event connection registered", "session_id", sessionID)
}

// Unregister removes the connection for a session if it is still the current
// one.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.active[sessionID]; ok && current == conn {
		delete(h.active, sessionID)
		slog.Info("Event connection unregistered", "session_id", sessionID)
	}
}

// CloseSession terminates the session's connection, if any.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.active[sessionID]; ok {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
		delete(h.active, sessionID)
		slog.Info("Event connection closed", "session_id", sessionID)
	}
}

// Send delivers one event to the session's connection. A session without a
// connection drops the event silently; a failed write evicts the connection.
func (h *Hub) Send(ctx context.Context, sessionID, kind string, data any) error {
	h.mu.RLock()
	conn, ok := h.active[sessionID]
	h.mu.RUnlock()
	if !ok {
		slog.Debug("No event connection for session, dropping event", "session_id", sessionID, "event", kind)
		return nil
	}

	payload, err := json.Marshal(envelope{
		Event:     kind,
		Data:      data,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", kind, err)
	}

	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		slog.Warn("Event write failed, evicting connection", "session_id", sessionID, "error", err)
		h.Unregister(sessionID, conn)
		return fmt.Errorf("failed to send %s event: %w", kind, err)
	}
	return nil
}
