package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/stt"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/config"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/live/session"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/live/sessions"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/metrics"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/mw"
)

// LiveHandler upgrades /api/v1/ws/meeting to a websocket and runs one
// live transcription session per connection.
type LiveHandler struct {
	Config   config.Config
	Logger   *slog.Logger
	Engine   stt.Engine
	Store    session.MeetingStore
	Registry *sessions.Registry
	Metrics  *metrics.Metrics
}

func (h LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed", reqID)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sessionID := uuid.NewString()
	start := time.Now()
	h.Metrics.RecordLiveSessionStart()
	defer func() {
		h.Metrics.RecordLiveSessionEnd("closed", time.Since(start))
	}()

	sess, err := session.New(session.Dependencies{
		Conn:      conn,
		Logger:    h.Logger,
		Engine:    h.Engine,
		Store:     h.Store,
		Registry:  h.Registry,
		Metrics:   h.Metrics,
		SessionID: sessionID,
		RequestID: reqID,
		Config: session.Config{
			MaxJSONMessageBytes: h.Config.LiveMaxJSONMessageBytes,
			PingInterval:        h.Config.LiveWSPingInterval,
			WriteTimeout:        h.Config.LiveWSWriteTimeout,
			ReadTimeout:         h.Config.LiveWSReadTimeout,
			MaxSessionDuration:  h.Config.LiveMaxSessionDuration,
			OutboundQueueSize:   h.Config.LiveOutboundQueueSize,
			Controller: session.ControllerConfig{
				SampleRate:        h.Config.LiveSampleRate,
				FlushThreshold:    h.Config.LiveFlushThreshold,
				MaxBufferedChunks: h.Config.LiveMaxBufferedChunks,
			},
		},
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("live session setup failed", "request_id", reqID, "error", err)
		}
		_ = conn.Close()
		return
	}
	if err := sess.Run(); err != nil && h.Logger != nil {
		h.Logger.Error("live session ended with error", "request_id", reqID, "session_id", sessionID, "error", err)
	}
}
