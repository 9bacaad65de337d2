package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/aranea-sec/aranea/internal/identity"
)

// HandleEvents upgrades the request to a WebSocket and registers it as the
// session's event channel. The handler blocks until the client disconnects;
// all writes happen through the hub.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	key := sessionKey(r)
	slog.Info("Event socket connection request", "user_id", userID, "session", key, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.hub.Register(key, ws)
	defer h.hub.Unregister(key, ws)

	// Clients never send data on this socket; reading drains control frames
	// and returns when the peer goes away.
	for {
		if _, _, err := ws.Read(r.Context()); err != nil {
			break
		}
	}
	slog.Info("Event socket closed", "user_id", userID, "session", key)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.frontendURL == "*" {
		return true
	}
	if origin == h.frontendURL {
		return true
	}
	return strings.HasPrefix(origin, strings.TrimSuffix(h.frontendURL, "/"))
}
