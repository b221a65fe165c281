// Package queue moves batch processing jobs from the gateway to the
// worker over a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis list the worker consumes.
const DefaultKey = "meetingmind:jobs"

// JobProcessMeeting runs the full batch pipeline on an uploaded
// recording.
const JobProcessMeeting = "process_meeting"

// Job is one unit of background work.
type Job struct {
	Type       string    `json:"type"`
	MeetingID  int64     `json:"meeting_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempts   int       `json:"attempts"`
}

// commands is the slice of the Redis API the queue touches.
type commands interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Queue is a Redis-backed FIFO job queue.
type Queue struct {
	rdb    commands
	key    string
	logger *slog.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL, key string, logger *slog.Logger) (*Queue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultKey
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Queue{rdb: rdb, key: key, logger: logger}, nil
}

// Enqueue pushes one job.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	q.logger.Info("job enqueued", "type", job.Type, "meeting_id", job.MeetingID)
	return nil
}

// Dequeue blocks up to timeout for the next job. It returns nil with no
// error when the wait times out.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	vals, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("unexpected brpop reply of %d values", len(vals))
	}
	var job Job
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// Ping reports whether Redis is reachable.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Close releases the underlying client when the queue owns one.
func (q *Queue) Close() error {
	if c, ok := q.rdb.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
