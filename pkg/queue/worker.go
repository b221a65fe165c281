package queue

import (
	"context"
	"log/slog"
	"time"
)

// Handler processes one dequeued job. Returning an error triggers a
// bounded retry with backoff.
type Handler func(ctx context.Context, job Job) error

// Worker drains the queue until its context is canceled.
type Worker struct {
	Queue       *Queue
	Handler     Handler
	Logger      *slog.Logger
	PollTimeout time.Duration
	MaxAttempts int
}

// Run blocks until ctx is canceled. Jobs that keep failing after
// MaxAttempts are dropped with an error log; the meeting row carries the
// failure state for the API to report.
func (w *Worker) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollTimeout := w.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	logger.Info("worker started", "queue", w.Queue.key)
	for {
		if ctx.Err() != nil {
			logger.Info("worker stopped")
			return nil
		}

		job, err := w.Queue.Dequeue(ctx, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("worker stopped")
				return nil
			}
			logger.Error("dequeue failed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			continue
		}
		if job == nil {
			continue
		}

		start := time.Now()
		if err := w.Handler(ctx, *job); err != nil {
			job.Attempts++
			if job.Attempts >= maxAttempts {
				logger.Error("job failed permanently",
					"type", job.Type, "meeting_id", job.MeetingID,
					"attempts", job.Attempts, "error", err)
				continue
			}
			logger.Warn("job failed, requeueing",
				"type", job.Type, "meeting_id", job.MeetingID,
				"attempt", job.Attempts, "error", err)
			if reqErr := w.Queue.Enqueue(ctx, *job); reqErr != nil {
				logger.Error("requeue failed", "meeting_id", job.MeetingID, "error", reqErr)
			}
			continue
		}
		logger.Info("job done",
			"type", job.Type, "meeting_id", job.MeetingID,
			"elapsed", time.Since(start).Round(time.Millisecond))
	}
}
