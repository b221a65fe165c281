package audio

import (
	"math"
	"testing"
)

func chunkOf(n int, rate int) Chunk {
	return Chunk{Samples: make([]float32, n), Duration: float64(n) / float64(rate)}
}

func TestSessionBuffer_FlushThreshold(t *testing.T) {
	b := NewSessionBuffer(3.0, 100)

	// 1.2s chunks: after the 2nd the buffer holds 2.4s, after the 3rd 3.6s.
	c := chunkOf(19200, 16000)

	b.Append(c)
	if b.ShouldFlush() {
		t.Fatalf("should not flush at %.1fs", b.Duration())
	}
	b.Append(c)
	if b.ShouldFlush() {
		t.Fatalf("should not flush at %.1fs", b.Duration())
	}
	b.Append(c)
	if !b.ShouldFlush() {
		t.Fatalf("should flush at %.1fs", b.Duration())
	}

	block := b.Flush()
	if len(block) != 3*19200 {
		t.Fatalf("block samples=%d, want %d", len(block), 3*19200)
	}
	if b.Duration() != 0 || b.Len() != 0 {
		t.Fatalf("buffer not reset: duration=%v len=%d", b.Duration(), b.Len())
	}
}

func TestSessionBuffer_NoUnboundedAccumulation(t *testing.T) {
	// Flushing whenever ShouldFlush reports true must keep the running
	// duration under twice the threshold for any chunk sizing.
	for _, chunkDur := range []float64{0.1, 0.7, 1.2, 2.9} {
		b := NewSessionBuffer(3.0, 100)
		n := int(chunkDur * 16000)
		for i := 0; i < 50; i++ {
			b.Append(chunkOf(n, 16000))
			if b.Duration() >= 2*3.0 {
				t.Fatalf("chunkDur=%v: duration %v reached 2x threshold", chunkDur, b.Duration())
			}
			if b.ShouldFlush() {
				b.Flush()
			}
		}
	}
}

func TestSessionBuffer_EmptyFlushIsNoOp(t *testing.T) {
	b := NewSessionBuffer(3.0, 100)
	if got := b.Flush(); got != nil {
		t.Fatalf("Flush on empty buffer=%v, want nil", got)
	}
	if b.Duration() != 0 {
		t.Fatalf("duration=%v, want 0", b.Duration())
	}
	// Repeat flushes stay no-ops.
	if got := b.Flush(); got != nil {
		t.Fatalf("second Flush=%v, want nil", got)
	}
}

func TestSessionBuffer_ConcatenationOrder(t *testing.T) {
	b := NewSessionBuffer(3.0, 100)
	b.Append(Chunk{Samples: []float32{1, 2}, Duration: 2.0 / 16000})
	b.Append(Chunk{Samples: []float32{3}, Duration: 1.0 / 16000})
	b.Append(Chunk{Samples: []float32{4, 5}, Duration: 2.0 / 16000})

	block := b.Flush()
	want := []float32{1, 2, 3, 4, 5}
	if len(block) != len(want) {
		t.Fatalf("block=%v, want %v", block, want)
	}
	for i := range want {
		if block[i] != want[i] {
			t.Fatalf("block[%d]=%v, want %v", i, block[i], want[i])
		}
	}
}

func TestSessionBuffer_ChunkCap(t *testing.T) {
	b := NewSessionBuffer(1e9, 3) // threshold high enough to never flush

	for i := 0; i < 10; i++ {
		b.Append(chunkOf(160, 16000))
	}
	if b.Len() != 3 {
		t.Fatalf("len=%d, want cap 3", b.Len())
	}
	wantDur := 3 * 160.0 / 16000.0
	if math.Abs(b.Duration()-wantDur) > 1e-9 {
		t.Fatalf("duration=%v, want %v", b.Duration(), wantDur)
	}
}

func TestSessionBuffer_DurationTracksChunks(t *testing.T) {
	b := NewSessionBuffer(3.0, 100)
	var sum float64
	for i := 1; i <= 5; i++ {
		c := chunkOf(i*100, 16000)
		b.Append(c)
		sum += c.Duration
		if math.Abs(b.Duration()-sum) > 1e-9 {
			t.Fatalf("duration=%v, want %v", b.Duration(), sum)
		}
	}
}
