// Package sessions tracks active live transcription sessions so the
// gateway can enumerate them over HTTP and drain them on shutdown.
package sessions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Snapshot is the immutable identity of a session captured at register
// time.
type Snapshot struct {
	SessionID string
	MeetingID int64
	Language  string
	StartedAt time.Time
}

// Handle is what the registry can do to a live session from outside its
// goroutine.
type Handle struct {
	Snapshot Snapshot
	Cancel   func()
}

// Status is one row of the active-session listing.
type Status struct {
	SessionID      string    `json:"session_id"`
	MeetingID      int64     `json:"meeting_id,omitempty"`
	Language       string    `json:"language"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// Registry is a concurrency-safe set of active sessions. A session is
// registered when its start event succeeds and unregistered when it
// reaches its terminal state. A nil *Registry is a no-op.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	wg       sync.WaitGroup
}

type entry struct {
	handle Handle
	once   sync.Once
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
	}
}

// Register adds a session and returns its unregister func. Unregistering
// is idempotent. Re-registering an ID displaces the old entry.
func (r *Registry) Register(h Handle) (unregister func()) {
	if r == nil {
		return func() {}
	}

	e := &entry{handle: h}

	r.mu.Lock()
	if r.sessions == nil {
		r.sessions = make(map[string]*entry)
	}
	old := r.sessions[h.Snapshot.SessionID]
	r.sessions[h.Snapshot.SessionID] = e
	r.wg.Add(1)
	r.mu.Unlock()

	if old != nil {
		r.unregister(h.Snapshot.SessionID, old)
	}

	return func() { r.unregister(h.Snapshot.SessionID, e) }
}

func (r *Registry) unregister(sessionID string, e *entry) {
	if r == nil || e == nil {
		return
	}
	e.once.Do(func() {
		r.mu.Lock()
		if r.sessions != nil && r.sessions[sessionID] == e {
			delete(r.sessions, sessionID)
		}
		r.mu.Unlock()
		r.wg.Done()
	})
}

func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// List returns a point-in-time view of active sessions ordered by start
// time, oldest first.
func (r *Registry) List(now time.Time) []Status {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	out := make([]Status, 0, len(r.sessions))
	for _, e := range r.sessions {
		snap := e.handle.Snapshot
		out = append(out, Status{
			SessionID:      snap.SessionID,
			MeetingID:      snap.MeetingID,
			Language:       snap.Language,
			StartedAt:      snap.StartedAt,
			ElapsedSeconds: now.Sub(snap.StartedAt).Seconds(),
		})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// CancelAll signals every active session to finalize and disconnect.
func (r *Registry) CancelAll() (canceled int) {
	if r == nil {
		return 0
	}

	var cancels []func()
	r.mu.Lock()
	for _, e := range r.sessions {
		if e == nil || e.handle.Cancel == nil {
			continue
		}
		cancels = append(cancels, e.handle.Cancel)
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every registered session has unregistered, or the
// context expires. It reports whether the drain completed.
func (r *Registry) Wait(ctx context.Context) bool {
	if r == nil {
		return true
	}
	if ctx == nil {
		r.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
