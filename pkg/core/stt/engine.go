// Package stt wraps speech-to-text backends behind a synchronous
// transcribe call.
package stt

import "context"

// Result is one recognition outcome for a block of audio. Text is empty
// for silence or non-speech input.
type Result struct {
	Text       string
	Confidence float64
}

// Engine converts a block of normalized PCM samples into text. Calls are
// blocking and may take on the order of the audio duration; callers that
// cannot stall must dispatch off their control path.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) (Result, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, samples []float32, sampleRate int, language string) (Result, error)

func (f EngineFunc) Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) (Result, error) {
	return f(ctx, samples, sampleRate, language)
}
