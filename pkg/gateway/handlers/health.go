package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/mw"
)

// Pinger reports reachability of a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness probes.
type HealthHandler struct{}

func (HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadyHandler answers readiness probes by pinging the backing services.
type ReadyHandler struct {
	DB    Pinger
	Queue Pinger
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	issues := make([]string, 0, 2)
	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			issues = append(issues, "database unreachable: "+err.Error())
		}
	}
	if h.Queue != nil {
		if err := h.Queue.Ping(ctx); err != nil {
			issues = append(issues, "queue unreachable: "+err.Error())
		}
	}
	if len(issues) > 0 {
		reqID, _ := mw.RequestIDFrom(r.Context())
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ready":      false,
			"issues":     issues,
			"request_id": reqID,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
