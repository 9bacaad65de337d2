package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aranea-sec/aranea/internal/dispatch"
)

type generateRequest struct {
	Query string `json:"query"`
}

// HandleGenerate enqueues one conversational turn for the request's session.
// The reply arrives over the session's event socket, not this response.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		Error(w, http.StatusBadRequest, "query is required")
		return
	}

	key := sessionKey(r)
	if err := h.router.Submit(key, query); err != nil {
		switch {
		case errors.Is(err, dispatch.ErrQueueFull):
			Error(w, http.StatusTooManyRequests, "session has too many pending turns")
		case errors.Is(err, dispatch.ErrClosed):
			Error(w, http.StatusServiceUnavailable, "server is shutting down")
		default:
			slog.Error("Failed to enqueue turn", "session", key, "error", err)
			Error(w, http.StatusInternalServerError, "failed to enqueue turn")
		}
		return
	}

	JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
