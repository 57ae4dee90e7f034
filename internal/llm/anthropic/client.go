// Package anthropic completes prompts against the Anthropic messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ghda/fieldreports/internal/llm"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// Config for the Anthropic client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string // e.g. "claude-3-5-haiku-latest"
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ llm.Completer = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = llm.DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	model := c.cfg.Model
	if opts.Model != "" {
		model = opts.Model
	}
	temperature := c.cfg.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := c.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	timeout := c.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()

	c.logger.Info("llm.complete.start",
		"backend", "anthropic",
		"model", model,
		"temp", temperature,
		"prompt_len", len(prompt),
	)

	body := messagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      llm.SystemPrompt(),
		Messages:    []message{{Role: "user", Content: prompt}},
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		elapsed := time.Since(start)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Error("llm.complete.timeout", "backend", "anthropic", "model", model, "elapsed_ms", elapsed.Milliseconds())
			return "", &llm.TimeoutError{Backend: "anthropic", Model: model, Elapsed: elapsed}
		}
		c.logger.Error("llm.complete.transport_error", "backend", "anthropic", "model", model, "error", err, "elapsed_ms", elapsed.Milliseconds())
		return "", &llm.TransportError{Backend: "anthropic", Cause: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("llm.complete.body_close_error", "backend", "anthropic", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.TransportError{Backend: "anthropic", Cause: err}
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Error("llm.complete.decode_error", "backend", "anthropic", "model", model, "status", resp.StatusCode, "error", err)
		return "", &llm.TransportError{Backend: "anthropic", Cause: fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)}
	}
	if resp.StatusCode/100 != 2 {
		msg := "unknown error"
		if out.Error != nil {
			msg = out.Error.Message
		}
		c.logger.Error("llm.complete.api_error", "backend", "anthropic", "model", model, "status", resp.StatusCode, "error", msg)
		return "", &llm.TransportError{Backend: "anthropic", Cause: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}

	var b strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		c.logger.Error("llm.complete.empty_content", "backend", "anthropic", "model", model)
		return "", &llm.EmptyResponseError{Backend: "anthropic", Model: model}
	}

	c.logger.Info("llm.complete.ok",
		"backend", "anthropic",
		"model", model,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
