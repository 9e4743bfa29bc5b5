package model

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/msrishav-28/Living-Heirloom/internal/reliability"
)

const (
	ollamaHealthTimeout   = 3 * time.Second
	ollamaCompleteTimeout = 60 * time.Second
	ollamaRetryBase       = 250 * time.Millisecond
	ollamaRetryCap        = 2 * time.Second
)

// OllamaRuntime drives a local Ollama server: progressive model pull
// with fractional progress, then chat completions.
type OllamaRuntime struct {
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	model string
}

func NewOllamaRuntime(baseURL string) *OllamaRuntime {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	return &OllamaRuntime{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Healthy reports whether the server answers at all; used by bootstrap
// provider auto-selection.
func (r *OllamaRuntime) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ollamaHealthTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/version", nil)
	if err != nil {
		return false
	}
	res, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
	return res.StatusCode >= 200 && res.StatusCode < 300
}

type ollamaPullLine struct {
	Status    string `json:"status"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
	Error     string `json:"error"`
}

// Load pulls the model, streaming NDJSON progress lines and mapping the
// completed/total byte counts to a 0..1 fraction.
func (r *OllamaRuntime) Load(ctx context.Context, modelID string, onProgress func(fraction float64, message string)) error {
	body, err := json.Marshal(map[string]any{"model": modelID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("pull model: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("pull model: status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var parsed ollamaPullLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			continue
		}
		if parsed.Error != "" {
			return fmt.Errorf("pull model: %s", parsed.Error)
		}
		if onProgress != nil {
			if parsed.Total > 0 {
				onProgress(float64(parsed.Completed)/float64(parsed.Total), "")
			} else if strings.EqualFold(parsed.Status, "success") {
				onProgress(1, "")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("pull model stream: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mu.Lock()
	r.model = modelID
	r.mu.Unlock()
	return nil
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`
}

// Complete issues one non-streaming chat call, retrying once on a
// retryable status.
func (r *OllamaRuntime) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ollamaCompleteTimeout)
	defer cancel()

	r.mu.Lock()
	modelID := r.model
	r.mu.Unlock()

	payload := ollamaChatRequest{
		Model:    modelID,
		Messages: req.Messages,
		Stream:   false,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt, ollamaRetryBase, ollamaRetryCap)):
			}
		}
		text, retryable, err := r.completeOnce(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", lastErr
}

func (r *OllamaRuntime) completeOnce(ctx context.Context, payload ollamaChatRequest) (string, bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("chat request: %w", err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 2<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", reliability.IsRetryableHTTPStatus(res.StatusCode),
			fmt.Errorf("chat request: status %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("chat response: %w", err)
	}
	if parsed.Error != "" {
		return "", false, fmt.Errorf("chat response: %s", parsed.Error)
	}
	return parsed.Message.Content, false, nil
}

func (r *OllamaRuntime) Close() error { return nil }
