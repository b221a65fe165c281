package audio

const (
	// DefaultFlushThreshold is the buffered duration, in seconds, that
	// triggers a flush. Batching at ~3s bounds recognition latency while
	// giving the speech model enough context for a meaningful utterance.
	DefaultFlushThreshold = 3.0

	// DefaultMaxChunks caps how many chunks the buffer retains. With
	// correct flush logic the cap is never reached; it exists to bound
	// memory if a caller stops flushing.
	DefaultMaxChunks = 100
)

// SessionBuffer accumulates decoded chunks for one live session until the
// running duration reaches the flush threshold. It is not safe for
// concurrent use; the owning session serializes all access.
type SessionBuffer struct {
	chunks    []Chunk
	duration  float64
	threshold float64
	maxChunks int
}

// NewSessionBuffer creates a buffer with the given flush threshold in
// seconds and chunk cap. Non-positive arguments fall back to defaults.
func NewSessionBuffer(threshold float64, maxChunks int) *SessionBuffer {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	return &SessionBuffer{threshold: threshold, maxChunks: maxChunks}
}

// Append adds a chunk to the tail and extends the running duration.
// If the chunk cap is exceeded the oldest chunks are discarded.
func (b *SessionBuffer) Append(c Chunk) {
	b.chunks = append(b.chunks, c)
	b.duration += c.Duration

	for len(b.chunks) > b.maxChunks {
		b.duration -= b.chunks[0].Duration
		b.chunks = b.chunks[1:]
	}
	if len(b.chunks) == 0 {
		b.duration = 0
	}
}

// ShouldFlush reports whether the buffered duration has reached the
// flush threshold.
func (b *SessionBuffer) ShouldFlush() bool {
	return b.duration >= b.threshold
}

// Flush concatenates all held samples in arrival order, clears the buffer,
// and returns the combined block. Flushing an empty buffer returns nil.
func (b *SessionBuffer) Flush() []float32 {
	if len(b.chunks) == 0 {
		return nil
	}

	total := 0
	for _, c := range b.chunks {
		total += len(c.Samples)
	}
	block := make([]float32, 0, total)
	for _, c := range b.chunks {
		block = append(block, c.Samples...)
	}

	b.chunks = nil
	b.duration = 0
	return block
}

// Duration returns the running duration in seconds of chunks not yet flushed.
func (b *SessionBuffer) Duration() float64 {
	return b.duration
}

// Len returns the number of buffered chunks.
func (b *SessionBuffer) Len() int {
	return len(b.chunks)
}
