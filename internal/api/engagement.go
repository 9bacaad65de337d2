package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/aranea-sec/aranea/internal/domain"
	"github.com/aranea-sec/aranea/internal/history"
)

// HandleSummary returns the engagement summary for the request's session.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	entries := h.router.Ledger(sessionKey(r)).All()
	JSON(w, http.StatusOK, history.Summarize(entries))
}

type reportRequest struct {
	EngagementInfo domain.EngagementInfo `json:"engagement_info"`
}

type reportResponse struct {
	Report string `json:"report"`
}

// HandleReport renders the full markdown report for the request's session.
// The body is optional; absent metadata fields fall back to defaults.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entries := h.router.Ledger(sessionKey(r)).All()
	JSON(w, http.StatusOK, reportResponse{
		Report: history.Report(entries, req.EngagementInfo, h.now()),
	})
}

// HandleHistory returns the durable turn log for the request's session. It
// reads the store rather than the live ledger, so it also covers turns from
// before the last restart.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := h.repo.TurnsForSession(r.Context(), sessionKey(r))
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if turns == nil {
		turns = []domain.HistoryEntry{}
	}
	JSON(w, http.StatusOK, turns)
}

// HandleReset clears the session's history and starts a fresh engagement.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	cleared := h.router.ResetSession(sessionKey(r))
	JSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}
