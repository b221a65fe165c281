package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordedWrite struct {
	messageType int
	data        string
}

type fakeWSWriter struct {
	mu     sync.Mutex
	writes []recordedWrite
	closed bool
}

func (f *fakeWSWriter) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeWSWriter) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, recordedWrite{messageType: messageType, data: string(data)})
	return nil
}

func (f *fakeWSWriter) WriteControl(messageType int, data []byte, deadline time.Time) error {
	_ = deadline
	return f.WriteMessage(messageType, data)
}

func (f *fakeWSWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWSWriter) snapshot() []recordedWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedWrite, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeWSWriter) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestOutboundWriter_WritesFramesInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan outboundFrame, 2)
	frames <- outboundFrame{payload: []byte(`{"type":"connected","session_id":"s1"}`)}
	frames <- outboundFrame{payload: []byte(`{"type":"transcript","text":"hello"}`)}
	close(frames)

	ws := &fakeWSWriter{}
	w := outboundWriter{
		ws:     ws,
		ctx:    ctx,
		cfg:    Config{PingInterval: time.Hour, WriteTimeout: time.Second},
		frames: frames,
	}

	if err := w.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	writes := ws.snapshot()
	if len(writes) != 2 {
		t.Fatalf("writes=%d, want 2", len(writes))
	}
	if writes[0].messageType != websocket.TextMessage || writes[0].data != `{"type":"connected","session_id":"s1"}` {
		t.Fatalf("first write=%+v", writes[0])
	}
	if writes[1].data != `{"type":"transcript","text":"hello"}` {
		t.Fatalf("second write=%+v", writes[1])
	}
}

func TestOutboundWriter_FlushesQueuedFramesOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	frames := make(chan outboundFrame, 2)
	frames <- outboundFrame{payload: []byte(`{"type":"session_ended","session_id":"s1"}`)}
	cancel()

	ws := &fakeWSWriter{}
	w := outboundWriter{
		ws:     ws,
		ctx:    ctx,
		cfg:    Config{PingInterval: time.Hour, WriteTimeout: time.Second},
		frames: frames,
	}

	if err := w.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	writes := ws.snapshot()
	if len(writes) < 2 {
		t.Fatalf("writes=%d, want queued frame plus close frame", len(writes))
	}
	if writes[0].data != `{"type":"session_ended","session_id":"s1"}` {
		t.Fatalf("first write=%+v, want flushed session_ended", writes[0])
	}
	if writes[len(writes)-1].messageType != websocket.CloseMessage {
		t.Fatalf("last write type=%d, want close frame", writes[len(writes)-1].messageType)
	}
	if !ws.isClosed() {
		t.Fatalf("expected underlying connection closed")
	}
}

func TestOutboundWriter_FlushesDeepQueueOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// A stop that drains many buffered fragments enqueues the
	// session_ended acknowledgment behind all of them; every frame must
	// still beat the close frame out.
	frames := make(chan outboundFrame, 16)
	for i := 0; i < 15; i++ {
		frames <- outboundFrame{payload: []byte(fmt.Sprintf(`{"type":"transcript","text":"part %d"}`, i))}
	}
	frames <- outboundFrame{payload: []byte(`{"type":"session_ended","session_id":"s1"}`)}
	cancel()

	ws := &fakeWSWriter{}
	w := outboundWriter{
		ws:     ws,
		ctx:    ctx,
		cfg:    Config{PingInterval: time.Hour, WriteTimeout: time.Second},
		frames: frames,
	}

	if err := w.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	writes := ws.snapshot()
	if len(writes) != 17 {
		t.Fatalf("writes=%d, want 16 queued frames plus close frame", len(writes))
	}
	if writes[15].data != `{"type":"session_ended","session_id":"s1"}` {
		t.Fatalf("last data frame=%+v, want session_ended", writes[15])
	}
	if writes[16].messageType != websocket.CloseMessage {
		t.Fatalf("final write type=%d, want close frame", writes[16].messageType)
	}
}

func TestOutboundWriter_SendsPings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan outboundFrame)

	ws := &fakeWSWriter{}
	w := outboundWriter{
		ws:     ws,
		ctx:    ctx,
		cfg:    Config{PingInterval: 10 * time.Millisecond, WriteTimeout: time.Second},
		frames: frames,
	}

	done := make(chan error, 1)
	go func() { done <- w.Run() }()

	deadline := time.After(2 * time.Second)
	for {
		pings := 0
		for _, wr := range ws.snapshot() {
			if wr.messageType == websocket.PingMessage {
				pings++
			}
		}
		if pings >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 pings, got %d", pings)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}
