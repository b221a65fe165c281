// Package audio provides PCM frame decoding and buffering for live
// transcription sessions.
package audio

import (
	"encoding/base64"
	"fmt"
)

const (
	// DefaultSampleRate is the expected input rate for live audio frames.
	DefaultSampleRate = 16000
)

// DecodeError reports a malformed inbound audio payload. It is a
// per-message failure: the frame is dropped and the session keeps running.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	return "decode audio frame: " + e.Reason
}

// Chunk is an immutable block of mono PCM samples normalized to [-1, 1],
// plus its duration in seconds.
type Chunk struct {
	Samples  []float32
	Duration float64
}

// FrameDecoder converts transport-encoded audio fragments into Chunks.
// Payloads are base64-encoded little-endian signed 16-bit PCM.
type FrameDecoder struct {
	SampleRate int
}

// NewFrameDecoder returns a decoder for the given sample rate.
// A rate <= 0 falls back to DefaultSampleRate.
func NewFrameDecoder(sampleRate int) FrameDecoder {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return FrameDecoder{SampleRate: sampleRate}
}

// Decode converts a base64 payload into a Chunk.
// It fails with *DecodeError when the payload is not valid base64 or its
// decoded length is not a multiple of 2 bytes.
func (d FrameDecoder) Decode(payload string) (Chunk, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Chunk{}, &DecodeError{Reason: fmt.Sprintf("invalid base64: %v", err)}
	}
	return d.DecodeBytes(raw)
}

// DecodeBytes converts raw little-endian 16-bit PCM into a Chunk.
func (d FrameDecoder) DecodeBytes(raw []byte) (Chunk, error) {
	if len(raw)%2 != 0 {
		return Chunk{}, &DecodeError{Reason: fmt.Sprintf("payload length %d is not a multiple of 2", len(raw))}
	}

	rate := d.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		s := int16(raw[2*i]) | int16(raw[2*i+1])<<8
		samples[i] = float32(s) / 32768.0
	}

	return Chunk{
		Samples:  samples,
		Duration: float64(len(samples)) / float64(rate),
	}, nil
}
