package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/live"
)

// SessionHandler exposes live form sessions over plain HTTP.
type SessionHandler struct {
	sessions *live.Manager
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions *live.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// GetSession handles GET /v1/live/sessions/{id}. Only the session's own actor
// may read it; anyone else gets the same 404 as for an unknown id.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	audit, ok := parseAuditContext(w, r)
	if !ok {
		return
	}
	sess := h.sessions.Get(chi.URLParam(r, "id"))
	if sess == nil || sess.Actor != audit.Actor {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}
