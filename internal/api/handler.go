// Package api provides HTTP handlers for the Aranea API.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aranea-sec/aranea/internal/dispatch"
	"github.com/aranea-sec/aranea/internal/events"
	"github.com/aranea-sec/aranea/internal/identity"
	"github.com/aranea-sec/aranea/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo        store.Repository
	router      *dispatch.Router
	hub         *events.Hub
	frontendURL string
	isDev       bool
	now         func() time.Time
}

// NewHandler creates a new Handler with common dependencies. isDev comes
// from the loaded configuration.
func NewHandler(repo store.Repository, router *dispatch.Router, hub *events.Hub, frontendURL string, isDev bool) *Handler {
	return &Handler{
		repo:        repo,
		router:      router,
		hub:         hub,
		frontendURL: frontendURL,
		isDev:       isDev,
		now:         time.Now,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// sessionKey derives the dispatch/event key for the request's session. The
// anonymous user ID is part of the key so two devices sharing the default
// session name never interleave turns.
func sessionKey(r *http.Request) string {
	return identity.UserIDFromContext(r.Context()) + ":" + identity.SessionIDFromContext(r.Context())
}
