package handlers

import (
	"net/http"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/mw"
)

// NotFoundHandler answers unmatched routes with the JSON error envelope.
type NotFoundHandler struct{}

func (NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	writeJSONError(w, http.StatusNotFound, "not_found", "unknown route", reqID)
}
