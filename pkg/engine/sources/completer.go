package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/DrSkyle/assetpulse/pkg/telemetry"
)

// ErrNoCompleter is returned when a completion is requested without a
// configured backend.
var ErrNoCompleter = errors.New("sources: no completer configured")

// APIKeyEnv names the environment variable holding the completion API key.
const APIKeyEnv = "ASSETPULSE_LLM_API_KEY"

// Completion is one prompt exchange.
type Completion struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, c Completion) (string, error)
}

// HTTPCompleter talks to an OpenAI-compatible chat completions endpoint.
type HTTPCompleter struct {
	Endpoint string
	Model    string
	APIKey   string
	Client   *http.Client
}

// NewHTTPCompleter reads the API key from APIKeyEnv.
func NewHTTPCompleter(endpoint, model string) *HTTPCompleter {
	return &HTTPCompleter{
		Endpoint: endpoint,
		Model:    model,
		APIKey:   os.Getenv(APIKeyEnv),
		Client:   telemetry.HTTPClient(120 * time.Second),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete posts the prompt and returns the first choice's content.
func (h *HTTPCompleter) Complete(ctx context.Context, c Completion) (string, error) {
	if h == nil || h.Endpoint == "" {
		return "", ErrNoCompleter
	}

	body, err := json.Marshal(chatRequest{
		Model: h.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.System},
			{Role: "user", Content: c.Prompt},
		},
		Temperature: 0.2,
		MaxTokens:   c.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("completion error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
