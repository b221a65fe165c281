package audio

import (
	"encoding/base64"
	"errors"
	"math"
	"testing"
)

func pcmPayload(samples []int16) string {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		raw[2*i] = byte(s)
		raw[2*i+1] = byte(s >> 8)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestFrameDecoder_Decode(t *testing.T) {
	d := NewFrameDecoder(16000)

	chunk, err := d.Decode(pcmPayload([]int16{0, 16384, -16384, 32767, -32768}))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(chunk.Samples) != 5 {
		t.Fatalf("samples=%d, want 5", len(chunk.Samples))
	}

	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1}
	for i, w := range want {
		if math.Abs(float64(chunk.Samples[i]-w)) > 1e-6 {
			t.Fatalf("sample[%d]=%v, want %v", i, chunk.Samples[i], w)
		}
	}

	wantDur := 5.0 / 16000.0
	if math.Abs(chunk.Duration-wantDur) > 1e-9 {
		t.Fatalf("duration=%v, want %v", chunk.Duration, wantDur)
	}
}

func TestFrameDecoder_Decode_OddLength(t *testing.T) {
	d := NewFrameDecoder(16000)

	// 7 raw bytes is not a whole number of 16-bit samples.
	payload := base64.StdEncoding.EncodeToString(make([]byte, 7))
	_, err := d.Decode(payload)
	if err == nil {
		t.Fatalf("expected error for odd payload length")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error type=%T, want *DecodeError", err)
	}
}

func TestFrameDecoder_Decode_BadBase64(t *testing.T) {
	d := NewFrameDecoder(16000)

	_, err := d.Decode("not*base64!")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error=%v (%T), want *DecodeError", err, err)
	}
}

func TestFrameDecoder_DefaultRate(t *testing.T) {
	d := NewFrameDecoder(0)
	chunk, err := d.Decode(pcmPayload(make([]int16, 16000)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if math.Abs(chunk.Duration-1.0) > 1e-9 {
		t.Fatalf("duration=%v, want 1.0", chunk.Duration)
	}
}

func TestWAV_RoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.99, -0.99}
	wav := EncodeWAV(in, 16000)

	out, rate, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Fatalf("rate=%d, want 16000", rate)
	}
	if len(out) != len(in) {
		t.Fatalf("samples=%d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1e-3 {
			t.Fatalf("sample[%d]=%v, want ~%v", i, out[i], in[i])
		}
	}
}

func TestDecodeWAV_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("RIFF")},
		{"not wav", make([]byte, 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
