package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/audio"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/stt"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/live/protocol"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/live/sessions"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/metrics"
)

// Config tunes the websocket transport around one live session.
type Config struct {
	MaxJSONMessageBytes int64
	PingInterval        time.Duration
	WriteTimeout        time.Duration
	ReadTimeout         time.Duration
	MaxSessionDuration  time.Duration
	OutboundQueueSize   int

	Controller ControllerConfig
}

// Dependencies wires one accepted websocket connection to the session
// machinery. Conn and Engine are required.
type Dependencies struct {
	Conn      *websocket.Conn
	Logger    *slog.Logger
	Engine    stt.Engine
	Store     MeetingStore
	Registry  *sessions.Registry
	Metrics   *metrics.Metrics
	SessionID string
	RequestID string
	Config    Config
	Now       func() time.Time
}

// LiveSession runs the websocket side of one live transcription session.
// All inbound events are handled on the Run goroutine, one at a time;
// only recognition runs concurrently, and its completions are folded
// back into the same loop.
type LiveSession struct {
	conn      *websocket.Conn
	logger    *slog.Logger
	registry  *sessions.Registry
	sessionID string
	requestID string
	cfg       Config
	now       func() time.Time

	ctrl *Controller

	ctx    context.Context
	cancel context.CancelFunc

	outbound chan outboundFrame

	// emitted counts fragments already sent to the client so the final
	// drain does not resend them.
	emitted int
}

type inboundFrame struct {
	data []byte
	err  error
}

func New(deps Dependencies) (*LiveSession, error) {
	if deps.Conn == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("recognition engine is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Config.OutboundQueueSize <= 0 {
		deps.Config.OutboundQueueSize = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &LiveSession{
		conn:      deps.Conn,
		logger:    deps.Logger.With("session_id", deps.SessionID),
		registry:  deps.Registry,
		sessionID: deps.SessionID,
		requestID: deps.RequestID,
		cfg:       deps.Config,
		now:       deps.Now,
		ctrl:      NewController(deps.SessionID, deps.Engine, deps.Store, deps.Config.Controller, deps.Logger, deps.Now),
		ctx:       ctx,
		cancel:    cancel,
		outbound:  make(chan outboundFrame, deps.Config.OutboundQueueSize),
	}
	s.ctrl.Metrics = deps.Metrics
	return s, nil
}

// Run drives the session until the client stops it, disconnects, or the
// session deadline passes. It always leaves the controller in its
// terminal state and the registry entry removed.
func (s *LiveSession) Run() error {
	defer s.cancel()

	if s.cfg.MaxJSONMessageBytes > 0 {
		s.conn.SetReadLimit(s.cfg.MaxJSONMessageBytes)
	}
	if s.cfg.ReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		})
	}

	writer := &outboundWriter{ws: s.conn, ctx: s.ctx, cfg: s.cfg, frames: s.outbound}
	writerDone := make(chan error, 1)
	go func() {
		writerDone <- writer.Run()
		// A dead writer ends the session; otherwise a blocked send
		// could hang the control loop with nothing draining the queue.
		s.cancel()
	}()

	readCh := make(chan inboundFrame, 1)
	go s.readLoop(readCh)

	var deadline <-chan time.Time
	if s.cfg.MaxSessionDuration > 0 {
		timer := time.NewTimer(s.cfg.MaxSessionDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	unregister := func() {}
	defer func() {
		s.finalizeOnExit()
		unregister()
		s.cancel()
		<-writerDone
	}()

	s.sendJSON(protocol.ServerConnected{Type: protocol.TypeConnected, SessionID: s.sessionID})

	for {
		select {
		case <-s.ctx.Done():
			return nil

		case <-deadline:
			s.logger.Info("session deadline reached, finalizing")
			if s.ctrl.State() == StateRecording {
				s.stopAndAcknowledge()
			}
			return nil

		case r := <-s.ctrl.PendingHead():
			if frag := s.ctrl.CollectHead(r); frag != nil {
				s.sendTranscript(*frag)
			}

		case frame := <-readCh:
			if frame.err != nil {
				if websocket.IsUnexpectedCloseError(frame.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Info("client disconnected", "error", frame.err)
				}
				return nil
			}
			done, reg := s.handleMessage(frame.data)
			if reg != nil {
				unregister = reg
			}
			if done {
				return nil
			}
		}
	}
}

// handleMessage dispatches one inbound text frame. It reports whether
// the session is finished and, after a successful start, the registry
// unregister func.
func (s *LiveSession) handleMessage(data []byte) (done bool, unregister func()) {
	msg, err := protocol.DecodeClientMessage(data)
	if err != nil {
		s.sendError(err)
		return false, nil
	}

	switch m := msg.(type) {
	case protocol.ClientStart:
		info, err := s.ctrl.Start(s.ctx, m.MeetingTitle, m.Language, m.Participants)
		if err != nil {
			s.sendError(err)
			return false, nil
		}
		unregister = s.registry.Register(sessions.Handle{
			Snapshot: sessions.Snapshot{
				SessionID: s.sessionID,
				MeetingID: info.MeetingID,
				Language:  s.ctrl.Language(),
				StartedAt: s.ctrl.StartedAt(),
			},
			Cancel: s.cancel,
		})
		s.logger.Info("session started", "meeting_id", info.MeetingID, "language", s.ctrl.Language())
		s.sendJSON(protocol.ServerSessionStarted{
			Type:      protocol.TypeSessionStarted,
			SessionID: info.SessionID,
			MeetingID: info.MeetingID,
		})
		return false, unregister

	case protocol.ClientAudio:
		if err := s.ctrl.Audio(s.ctx, m.Data); err != nil {
			s.sendError(err)
		}
		return false, nil

	case protocol.ClientStop:
		s.stopAndAcknowledge()
		return true, nil

	case protocol.ClientPing:
		s.sendJSON(protocol.ServerPong{Type: protocol.TypePong})
		return false, nil

	default:
		s.sendError(fmt.Errorf("unsupported message"))
		return false, nil
	}
}

func (s *LiveSession) stopAndAcknowledge() {
	res, err := s.ctrl.Stop(s.ctx)
	if err != nil {
		s.sendError(err)
		return
	}
	for _, frag := range res.Fragments[min(s.emitted, len(res.Fragments)):] {
		s.sendTranscript(frag)
	}
	s.sendJSON(protocol.ServerSessionEnded{
		Type:            protocol.TypeSessionEnded,
		SessionID:       res.SessionID,
		MeetingID:       res.MeetingID,
		FinalTranscript: res.FinalTranscript,
		Duration:        res.Duration,
		WordCount:       res.WordCount,
	})
}

// finalizeOnExit covers abnormal exits: a disconnect mid-recording
// behaves like an explicit stop so buffered speech is recognized and
// persisted.
func (s *LiveSession) finalizeOnExit() {
	if s.ctrl.State() == StateEnded {
		return
	}
	// The connection may already be gone; use a fresh context so the
	// final recognition and persistence still run.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.ctrl.Abort(ctx)
}

func (s *LiveSession) readLoop(out chan<- inboundFrame) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case out <- inboundFrame{err: err}:
			case <-s.ctx.Done():
			}
			return
		}
		select {
		case out <- inboundFrame{data: data}:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LiveSession) sendTranscript(frag Fragment) {
	s.emitted++
	s.sendJSON(protocol.ServerTranscript{
		Type:       protocol.TypeTranscript,
		Text:       frag.Text,
		IsFinal:    true,
		Timestamp:  frag.ProducedAt.UTC().Format(time.RFC3339),
		Confidence: frag.Confidence,
	})
}

func (s *LiveSession) sendError(err error) {
	var decodeErr *protocol.DecodeError
	var audioErr *audio.DecodeError

	msg := "internal error"
	switch {
	case errors.As(err, &decodeErr):
		msg = decodeErr.Message
	case errors.As(err, &audioErr):
		msg = "invalid audio payload: " + audioErr.Reason
	case errors.Is(err, ErrOutOfOrderEvent):
		msg = err.Error()
	default:
		s.logger.Error("session error", "error", err)
	}
	s.sendJSON(protocol.ServerError{Type: protocol.TypeError, Message: msg})
}

func (s *LiveSession) sendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("marshal outbound frame failed", "error", err)
		return
	}
	// Block when the queue is full so a slow client applies backpressure
	// to the control loop instead of losing transcript frames.
	select {
	case s.outbound <- outboundFrame{payload: payload}:
	case <-s.ctx.Done():
	}
}
