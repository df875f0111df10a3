// Package ai provides the HTTP client for the optional AI collaborator
// used by semantic retrieval. It targets Ollama-compatible completion
// endpoints (/api/generate).
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	kberrors "github.com/kbassist/kbsearch/internal/errors"
)

// Defaults for the completion client.
const (
	DefaultHost    = "http://localhost:11434"
	DefaultModel   = "qwen3:0.6b"
	DefaultTimeout = 5 * time.Second
)

// Config configures the completion client.
type Config struct {
	// Host is the completion API endpoint.
	Host string
	// Model is the completion model name.
	Model string
	// APIKeyEnv names the environment variable holding the API key.
	// Empty means no authentication.
	APIKeyEnv string
	// Timeout bounds a single completion request.
	Timeout time.Duration
	// Temperature controls sampling randomness.
	Temperature float64
	// MaxTokens caps the completion length. Zero means model default.
	MaxTokens int
	// Retry controls transport-level retries.
	Retry kberrors.RetryConfig
}

// Client talks to an Ollama-compatible completion endpoint.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

// generateRequest is the /api/generate request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// generateResponse is the /api/generate response body.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewClient creates a completion client with defaults applied.
func NewClient(config Config, logger *slog.Logger) *Client {
	if config.Host == "" {
		config.Host = DefaultHost
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Retry.MaxRetries == 0 && config.Retry.InitialDelay == 0 {
		config.Retry = kberrors.DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		logger:     logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// Complete sends a prompt and returns the completion text.
// Transport failures are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", kberrors.New(kberrors.ErrCodeInvalidInput, "prompt must not be empty", nil)
	}

	start := time.Now()
	text, err := kberrors.RetryWithResult(ctx, c.config.Retry, func() (string, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}

	c.logger.Debug("completion finished",
		"model", c.config.Model,
		"prompt_len", len(prompt),
		"response_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.config.Temperature,
			NumPredict:  c.config.MaxTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", kberrors.New(kberrors.ErrCodeInternal, "marshal completion request", err)
	}

	url := c.config.Host + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", kberrors.New(kberrors.ErrCodeInternal, "create completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.config.APIKeyEnv != "" {
		if key := os.Getenv(c.config.APIKeyEnv); key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", kberrors.NetworkError("completion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 500 {
			return "", kberrors.New(kberrors.ErrCodeNetworkUnavailable,
				fmt.Sprintf("completion endpoint returned %d", resp.StatusCode), nil).
				WithDetail("body", string(data))
		}
		return "", kberrors.New(kberrors.ErrCodeAIResponseInvalid,
			fmt.Sprintf("completion endpoint returned %d", resp.StatusCode), nil).
			WithDetail("body", string(data))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", kberrors.New(kberrors.ErrCodeAIResponseInvalid, "decode completion response", err)
	}

	return genResp.Response, nil
}
