// Package tts provides the speech-synthesis collaborator that turns
// question prompts into playable audio.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAudioFormat is the MIME type of synthesized audio.
const DefaultAudioFormat = "audio/mp3"

// Synthesizer converts text into base64-encoded audio. Implementations
// fail explicitly; callers treat a failure as a degraded turn, not a
// fatal error.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audioBase64 string, audioFormat string, err error)
}

// Client is an HTTP client for a speech-synthesis service.
type Client struct {
	baseURL    string
	apiKey     string
	voice      string
	httpClient *http.Client
}

var _ Synthesizer = (*Client)(nil)

// NewClient creates a new synthesis client.
func NewClient(baseURL, apiKey, voice string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		voice:   voice,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type synthesizeResponse struct {
	AudioBase64 string `json:"audio_base64"`
	AudioFormat string `json:"audio_format,omitempty"`
}

// Synthesize posts the text and returns base64 audio.
func (c *Client) Synthesize(ctx context.Context, text string) (string, string, error) {
	body, err := json.Marshal(&synthesizeRequest{Text: text, Voice: c.voice})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("synthesis failed (status %d)", resp.StatusCode)
	}

	var synth synthesizeResponse
	if err := json.Unmarshal(respBody, &synth); err != nil {
		return "", "", fmt.Errorf("failed to decode response: %w", err)
	}
	if synth.AudioBase64 == "" {
		return "", "", fmt.Errorf("empty audio in response")
	}

	format := synth.AudioFormat
	if format == "" {
		format = DefaultAudioFormat
	}
	return synth.AudioBase64, format, nil
}

// MockSynthesizer returns a fixed payload for tests.
type MockSynthesizer struct{}

var _ Synthesizer = (*MockSynthesizer)(nil)

// Synthesize returns a stub base64 payload.
func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) (string, string, error) {
	return "bW9jay1hdWRpbw==", DefaultAudioFormat, nil
}
