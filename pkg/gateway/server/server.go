// Package server wires the gateway's HTTP surface together.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/stt"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/config"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/handlers"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/live/session"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/live/sessions"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/metrics"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/mw"
)

// Store is the full persistence surface the gateway needs.
type Store interface {
	handlers.MeetingStore
	handlers.UploadStore
	session.MeetingStore
	Ping(ctx context.Context) error
}

// Queue is the job-queue surface the gateway needs.
type Queue interface {
	handlers.JobEnqueuer
	Ping(ctx context.Context) error
}

// Deps carries the backing services the server routes requests to.
type Deps struct {
	Store    Store
	Objects  handlers.ObjectUploader
	Queue    Queue
	Engine   stt.Engine
	Registry *sessions.Registry
	Metrics  *metrics.Metrics
}

// Server is the meeting gateway HTTP server.
type Server struct {
	cfg    config.Config
	logger *slog.Logger
	deps   Deps
	mux    *http.ServeMux
}

func New(cfg config.Config, logger *slog.Logger, deps Deps) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		deps:   deps,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/", handlers.NotFoundHandler{})
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{
		DB:    s.deps.Store,
		Queue: s.deps.Queue,
	})
	s.mux.Handle("/metrics", s.deps.Metrics.Handler())

	s.mux.Handle("/api/v1/upload", handlers.UploadHandler{
		Store:    s.deps.Store,
		Objects:  s.deps.Objects,
		Queue:    s.deps.Queue,
		Logger:   s.logger,
		Metrics:  s.deps.Metrics,
		MaxBytes: s.cfg.MaxUploadBytes,
	})
	s.mux.Handle("/api/v1/meetings", handlers.MeetingsHandler{Store: s.deps.Store})
	s.mux.Handle("/api/v1/meetings/", handlers.MeetingHandler{Store: s.deps.Store})
	s.mux.Handle("/api/v1/ws/meeting", handlers.LiveHandler{
		Config:   s.cfg,
		Logger:   s.logger,
		Engine:   s.deps.Engine,
		Store:    s.deps.Store,
		Registry: s.deps.Registry,
		Metrics:  s.deps.Metrics,
	})
	s.mux.Handle("/api/v1/ws/sessions", handlers.SessionsHandler{Registry: s.deps.Registry})
}

// Handler returns the mux wrapped in the shared middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, s.deps.Metrics, h)
	h = mw.RequestID(h)
	return h
}

// HTTPServer builds the net/http server with the configured timeouts.
// Write timeout stays unset so long-lived websocket sessions survive.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}
