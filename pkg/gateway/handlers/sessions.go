package handlers

import (
	"net/http"
	"time"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/live/sessions"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/mw"
)

// SessionsHandler lists the live transcription sessions currently open
// on this gateway.
type SessionsHandler struct {
	Registry *sessions.Registry
	Now      func() time.Time
}

func (h SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed", reqID)
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	list := h.Registry.List(now())
	if list == nil {
		list = []sessions.Status{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active_sessions": len(list),
		"sessions":        list,
	})
}
