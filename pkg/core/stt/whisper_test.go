package stt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/audio"
)

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotLanguage string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLanguage = r.URL.Query().Get("language")
		gotContentType = r.Header.Get("Content-Type")

		body, _ := io.ReadAll(r.Body)
		if _, _, err := audio.DecodeWAV(body); err != nil {
			t.Errorf("request body is not valid wav: %v", err)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"text": "  hello world "})
	}))
	defer srv.Close()

	c := NewWhisperClient(srv.URL, srv.Client())
	res, err := c.Transcribe(context.Background(), make([]float32, 1600), 16000, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" {
		t.Fatalf("text=%q, want %q", res.Text, "hello world")
	}
	if res.Confidence != 1.0 {
		t.Fatalf("confidence=%v, want 1.0", res.Confidence)
	}
	if gotLanguage != "en" {
		t.Fatalf("language=%q, want en", gotLanguage)
	}
	if gotContentType != "audio/wav" {
		t.Fatalf("content-type=%q, want audio/wav", gotContentType)
	}
}

func TestWhisperClient_EmptyInput(t *testing.T) {
	c := NewWhisperClient("http://unused.invalid", nil)
	res, err := c.Transcribe(context.Background(), nil, 16000, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" {
		t.Fatalf("text=%q, want empty", res.Text)
	}
}

func TestWhisperClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"text": "recovered", "confidence": 0.8})
	}))
	defer srv.Close()

	c := NewWhisperClient(srv.URL, srv.Client())
	res, err := c.Transcribe(context.Background(), make([]float32, 160), 16000, "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "recovered" {
		t.Fatalf("text=%q, want recovered", res.Text)
	}
	if res.Confidence != 0.8 {
		t.Fatalf("confidence=%v, want 0.8", res.Confidence)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls=%d, want 3", calls.Load())
	}
}

func TestWhisperClient_ClientErrorIsFatal(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewWhisperClient(srv.URL, srv.Client())
	if _, err := c.Transcribe(context.Background(), make([]float32, 160), 16000, ""); err == nil {
		t.Fatalf("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls=%d, want 1 (no retry on 4xx)", calls.Load())
	}
}
