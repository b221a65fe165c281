// Package session implements the live transcription session: a state
// machine that turns inbound audio frames into time-bounded recognition
// requests and an ordered incremental transcript.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/audio"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/stt"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/metrics"
)

// State is the lifecycle phase of a live session. There are no
// transitions out of StateEnded.
type State string

const (
	StateAwaitingStart State = "awaiting_start"
	StateRecording     State = "recording"
	StateFinalizing    State = "finalizing"
	StateEnded         State = "ended"
)

// ErrOutOfOrderEvent reports a protocol event that is not valid in the
// session's current state. The session state is unchanged; the caller
// replies with an error and keeps the connection open.
var ErrOutOfOrderEvent = errors.New("event not valid in current session state")

// MeetingStore is the slice of persistence the live path touches: once at
// start and once at finalize. Both calls are best-effort; a store failure
// never loses the in-memory transcript.
type MeetingStore interface {
	CreateLiveMeeting(ctx context.Context, title string, participants []string) (int64, error)
	FinalizeLiveMeeting(ctx context.Context, meetingID int64, transcript string, durationSeconds float64) error
}

// Fragment is one unit of recognized speech for one flushed buffer.
// Fragments are immutable and strictly ordered by OffsetSeconds.
type Fragment struct {
	Text          string
	ProducedAt    time.Time
	OffsetSeconds float64
	Confidence    float64
}

// StartInfo is the acknowledgment payload for a successful start.
type StartInfo struct {
	SessionID string
	MeetingID int64
}

// FinalResult is the finalized transcript, computed once and cached so a
// repeated stop returns the identical result without re-running
// recognition.
type FinalResult struct {
	SessionID       string
	MeetingID       int64
	FinalTranscript string
	Duration        float64
	WordCount       int
	Fragments       []Fragment
}

// FlushResult carries one recognition outcome back to the control loop.
type FlushResult struct {
	Res stt.Result
	Err error
}

// ControllerConfig tunes buffering. Zero values fall back to the audio
// package defaults.
type ControllerConfig struct {
	SampleRate        int
	FlushThreshold    float64
	MaxBufferedChunks int
}

// Controller owns one live session: its buffer, fragment list, and state
// transitions. It is not safe for concurrent use; the transport
// processes inbound events for a session strictly one at a time, which is
// what keeps the buffer lock-free.
//
// Incremental recognition is dispatched onto its own goroutine so the
// next audio frame is never blocked behind a running recognition, but
// completions are consumed strictly in flush issue order (a FIFO of
// result channels, received head-first), which keeps fragment offsets
// monotonic even when a later flush finishes first.
type Controller struct {
	id      string
	cfg     ControllerConfig
	logger  *slog.Logger
	engine  stt.Engine
	store   MeetingStore
	now     func() time.Time
	decoder audio.FrameDecoder

	// Metrics is optional; a nil value records nothing.
	Metrics *metrics.Metrics

	state     State
	language  string
	meetingID int64
	buffer    *audio.SessionBuffer
	fragments []Fragment
	startedAt time.Time
	pending   []chan FlushResult
	final     *FinalResult
}

// NewController creates a controller in StateAwaitingStart.
func NewController(id string, engine stt.Engine, store MeetingStore, cfg ControllerConfig, logger *slog.Logger, now func() time.Time) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	return &Controller{
		id:      id,
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		store:   store,
		now:     now,
		decoder: audio.NewFrameDecoder(cfg.SampleRate),
		state:   StateAwaitingStart,
	}
}

func (c *Controller) ID() string           { return c.id }
func (c *Controller) State() State         { return c.state }
func (c *Controller) MeetingID() int64     { return c.meetingID }
func (c *Controller) Language() string     { return c.language }
func (c *Controller) StartedAt() time.Time { return c.startedAt }

// Start validates the session is unstarted, creates the associated
// meeting record (best-effort), and transitions to StateRecording.
func (c *Controller) Start(ctx context.Context, title, language string, participants []string) (StartInfo, error) {
	if c.state != StateAwaitingStart {
		return StartInfo{}, ErrOutOfOrderEvent
	}

	if strings.TrimSpace(language) == "" {
		language = "en"
	}
	if strings.TrimSpace(title) == "" {
		title = "Live Meeting " + c.now().Format("2006-01-02 15:04")
	}

	if c.store != nil {
		var id int64
		err := c.withStoreRetry(ctx, func(ctx context.Context) error {
			var err error
			id, err = c.store.CreateLiveMeeting(ctx, title, participants)
			return err
		})
		if err != nil {
			// The session still runs; the transcript is returned over
			// the transport even when it cannot be persisted.
			c.logger.Warn("create meeting failed", "session_id", c.id, "error", err)
		} else {
			c.meetingID = id
		}
	}

	c.language = language
	c.buffer = audio.NewSessionBuffer(c.cfg.FlushThreshold, c.cfg.MaxBufferedChunks)
	c.fragments = nil
	c.startedAt = c.now()
	c.state = StateRecording

	return StartInfo{SessionID: c.id, MeetingID: c.meetingID}, nil
}

// Audio decodes one inbound frame and appends it to the buffer; when the
// buffered duration reaches the flush threshold the block is handed to
// the recognition engine off the control path.
//
// A *audio.DecodeError drops the frame and leaves the session recording.
// ErrOutOfOrderEvent is returned for audio before start or after stop.
func (c *Controller) Audio(ctx context.Context, payload string) error {
	if c.state != StateRecording {
		return ErrOutOfOrderEvent
	}

	chunk, err := c.decoder.Decode(payload)
	if err != nil {
		c.logger.Warn("dropping undecodable audio frame", "session_id", c.id, "error", err)
		return err
	}

	c.buffer.Append(chunk)
	c.Metrics.RecordLiveAudio(chunk.Duration)
	if c.buffer.ShouldFlush() {
		c.dispatch(ctx, c.buffer.Flush())
	}
	return nil
}

// dispatch issues recognition for one flushed block without blocking the
// control loop. The result channel is queued so completions are consumed
// in issue order.
func (c *Controller) dispatch(ctx context.Context, block []float32) {
	if len(block) == 0 {
		return
	}
	ch := make(chan FlushResult, 1)
	c.pending = append(c.pending, ch)

	go func() {
		ch <- c.recognize(ctx, block)
	}()
}

// recognize runs one engine call and records its outcome.
func (c *Controller) recognize(ctx context.Context, block []float32) FlushResult {
	started := time.Now()
	res, err := c.engine.Transcribe(ctx, block, c.cfg.SampleRate, c.language)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.Metrics.RecordRecognition(status, time.Since(started))
	return FlushResult{Res: res, Err: err}
}

// PendingHead returns the channel for the oldest outstanding recognition,
// or nil when none is outstanding. Selecting only on the head is what
// serializes completions by issue order.
func (c *Controller) PendingHead() <-chan FlushResult {
	if len(c.pending) == 0 {
		return nil
	}
	return c.pending[0]
}

// CollectHead consumes the oldest outstanding recognition result. It
// returns the fragment to emit, or nil for silence or a failed
// recognition (the block is dropped and the session keeps running).
func (c *Controller) CollectHead(r FlushResult) *Fragment {
	if len(c.pending) == 0 {
		return nil
	}
	c.pending = c.pending[1:]

	if r.Err != nil {
		c.logger.Warn("recognition failed, dropping block", "session_id", c.id, "error", r.Err)
		return nil
	}
	text := strings.TrimSpace(r.Res.Text)
	if text == "" {
		return nil
	}

	now := c.now()
	frag := Fragment{
		Text:          text,
		ProducedAt:    now,
		OffsetSeconds: now.Sub(c.startedAt).Seconds(),
		Confidence:    r.Res.Confidence,
	}
	c.fragments = append(c.fragments, frag)
	return &frag
}

// Stop finalizes the session: outstanding recognitions are drained in
// issue order, the trailing partial block is recognized synchronously so
// no speech is lost, and the joined transcript is persisted best-effort.
// A second stop on an ended session returns the cached result without
// re-invoking recognition.
func (c *Controller) Stop(ctx context.Context) (FinalResult, error) {
	if c.state == StateEnded {
		if c.final != nil {
			return *c.final, nil
		}
		return FinalResult{}, ErrOutOfOrderEvent
	}
	if c.state != StateRecording {
		return FinalResult{}, ErrOutOfOrderEvent
	}

	c.state = StateFinalizing

	for len(c.pending) > 0 {
		c.CollectHead(<-c.pending[0])
	}

	if block := c.buffer.Flush(); len(block) > 0 {
		ch := make(chan FlushResult, 1)
		ch <- c.recognize(ctx, block)
		c.pending = append(c.pending, ch)
		c.CollectHead(<-ch)
	}

	texts := make([]string, 0, len(c.fragments))
	for _, f := range c.fragments {
		texts = append(texts, f.Text)
	}
	transcript := strings.Join(texts, " ")
	duration := c.now().Sub(c.startedAt).Seconds()

	if c.store != nil && c.meetingID != 0 {
		err := c.withStoreRetry(ctx, func(ctx context.Context) error {
			return c.store.FinalizeLiveMeeting(ctx, c.meetingID, transcript, duration)
		})
		if err != nil {
			c.logger.Warn("persist final transcript failed", "session_id", c.id, "meeting_id", c.meetingID, "error", err)
		}
	}

	c.final = &FinalResult{
		SessionID:       c.id,
		MeetingID:       c.meetingID,
		FinalTranscript: transcript,
		Duration:        duration,
		WordCount:       countWords(transcript),
		Fragments:       c.fragments,
	}
	c.state = StateEnded
	return *c.final, nil
}

// Abort runs the stop path on abnormal disconnect so buffered audio is
// flushed and any partial transcript persisted rather than silently
// dropped. Aborting an unstarted or already-ended session only marks it
// ended.
func (c *Controller) Abort(ctx context.Context) {
	if c.state == StateRecording {
		if _, err := c.Stop(ctx); err != nil {
			c.logger.Warn("finalize on disconnect failed", "session_id", c.id, "error", err)
		}
		return
	}
	c.state = StateEnded
}

// withStoreRetry retries a meeting-store write a few times with short
// exponential backoff. The writes stay best-effort; callers only log the
// final failure.
func (c *Controller) withStoreRetry(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
