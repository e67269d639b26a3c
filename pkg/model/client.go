// Package model talks to the LLM provider over an OpenRouter-compatible
// chat completions API. The client rate-limits itself and retries transient
// failures with exponential backoff.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/strombasis/mako-assistant/pkg/logging"
	"github.com/strombasis/mako-assistant/pkg/toolscript"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "anthropic/claude-3.5-sonnet"
	defaultTimeout = 2 * time.Minute
	maxRetries     = 3
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 15 * time.Second

	// Conservative self-imposed limit, well under typical provider tiers.
	defaultRateLimit = rate.Limit(1)
	defaultBurstSize = 5
)

// DefaultTransport returns an http.Transport with tuned connection pooling.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// Client calls the chat completions endpoint. It implements
// toolscript.LLMClient.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	log         *logging.Logger
}

// Options tunes client construction. Zero values fall back to defaults.
type Options struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a provider client.
func NewClient(apiKey string, opts Options, logger *logging.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: opts.BaseURL,
		model:   opts.Model,
		httpClient: &http.Client{
			Transport: DefaultTransport(),
			Timeout:   opts.Timeout,
		},
		rateLimiter: rate.NewLimiter(defaultRateLimit, defaultBurstSize),
		log:         logger,
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateStructuredOutput sends the prompt and returns the raw response
// content. Temperature is pinned to zero so identical prompts produce stable
// candidates.
func (c *Client) GenerateStructuredOutput(ctx context.Context, prompt string, hints toolscript.MetadataHints) (any, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Metadata: map[string]any{
			"session_id": hints.SessionID,
			"user_id":    hints.UserID,
			"purpose":    hints.Purpose,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	content, err := c.postWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (c *Client) postWithRetry(ctx context.Context, body []byte) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt)
			c.log.Warn(logging.CategoryLLM, "provider_retry", "retrying provider request",
				map[string]any{"attempt": attempt, "delay_ms": delay.Milliseconds()})
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		content, retryable, err := c.post(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}

	return "", fmt.Errorf("provider request failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncateBody(payload))
	}

	var decoded chatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", false, fmt.Errorf("provider error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", false, fmt.Errorf("provider returned no choices")
	}

	return decoded.Choices[0].Message.Content, false, nil
}

func retryDelay(attempt int) time.Duration {
	delay := baseRetryDelay << (attempt - 1)
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func truncateBody(payload []byte) string {
	const limit = 512
	if len(payload) > limit {
		payload = payload[:limit]
	}
	return string(payload)
}
