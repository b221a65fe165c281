package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/audio"
)

// WhisperClient talks to a Whisper-compatible HTTP transcription server.
// Audio is wrapped in a WAV container and POSTed; the server replies with
// a JSON body carrying at least a "text" field.
type WhisperClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// MaxAttempts bounds retries for transient failures (network errors
	// and 5xx responses). Zero means a single attempt.
	MaxAttempts int
}

// NewWhisperClient returns a client for the given transcription server URL.
func NewWhisperClient(baseURL string, httpClient *http.Client) *WhisperClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &WhisperClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTPClient:  httpClient,
		MaxAttempts: 3,
	}
}

type whisperResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcribe implements Engine.
func (c *WhisperClient) Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) (Result, error) {
	if len(samples) == 0 {
		return Result{}, nil
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return Result{}, fmt.Errorf("whisper: base url is not configured")
	}

	endpoint, err := c.endpointFor(language)
	if err != nil {
		return Result{}, err
	}
	wav := audio.EncodeWAV(samples, sampleRate)

	attempts := uint64(c.MaxAttempts)
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(500*time.Millisecond))

	var out whisperResponse
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(wav))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "audio/wav")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return retry.RetryableError(fmt.Errorf("whisper: server status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("whisper: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("whisper transcription failed", "error", err, "samples", len(samples))
		}
		return Result{}, err
	}

	conf := out.Confidence
	if conf == 0 {
		conf = 1.0
	}
	return Result{Text: strings.TrimSpace(out.Text), Confidence: conf}, nil
}

func (c *WhisperClient) endpointFor(language string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("whisper: parse base url: %w", err)
	}
	if language = strings.TrimSpace(language); language != "" {
		q := u.Query()
		q.Set("language", language)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
