package voiceclone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/msrishav-28/Living-Heirloom/internal/reliability"
)

const (
	maxResponseBytes = 16 << 20

	cloneBackoffBase = 500 * time.Millisecond
	cloneBackoffCap  = 4 * time.Second
)

type ElevenLabsConfig struct {
	APIKey     string
	BaseURL    string
	TTSModelID string
}

// ElevenLabsClient talks to the ElevenLabs REST API for instant voice
// cloning and text to speech.
type ElevenLabsClient struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

func NewElevenLabsClient(cfg ElevenLabsConfig) *ElevenLabsClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.TTSModelID) == "" {
		cfg.TTSModelID = "eleven_multilingual_v2"
	}
	return &ElevenLabsClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *ElevenLabsClient) Clone(ctx context.Context, name string, samples []VoiceSample) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("name", name); err != nil {
		return "", fmt.Errorf("build clone request: %w", err)
	}
	for i, sample := range samples {
		filename := sample.Filename
		if filename == "" {
			filename = fmt.Sprintf("sample_%d.wav", i+1)
		}
		part, err := writer.CreateFormFile("files[]", filename)
		if err != nil {
			return "", fmt.Errorf("build clone request: %w", err)
		}
		if _, err := part.Write(sample.Data); err != nil {
			return "", fmt.Errorf("build clone request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build clone request: %w", err)
	}

	body, err := c.post(ctx, "/v1/voices/add", writer.FormDataContentType(), buf.Bytes())
	if err != nil {
		return "", err
	}

	var parsed struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode clone response: %w", err)
	}
	if parsed.VoiceID == "" {
		return "", fmt.Errorf("clone response missing voice_id")
	}
	return parsed.VoiceID, nil
}

func (c *ElevenLabsClient) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": c.cfg.TTSModelID,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	return c.post(ctx, "/v1/text-to-speech/"+url.PathEscape(voiceID), "application/json", payload)
}

// post sends the request, retrying once on a retryable status.
func (c *ElevenLabsClient) post(ctx context.Context, path, contentType string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt, cloneBackoffBase, cloneBackoffCap)):
			}
		}
		body, retryable, err := c.postOnce(ctx, path, contentType, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (c *ElevenLabsClient) postOnce(ctx context.Context, path, contentType string, payload []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, reliability.IsRetryableHTTPStatus(resp.StatusCode),
			fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, truncate(string(body), 200))
	}
	return body, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
