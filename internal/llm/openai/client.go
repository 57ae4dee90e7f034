// Package openai completes prompts against the OpenAI chat completions API,
// or any OpenAI-compatible server (Ollama, llama.cpp, vLLM) via BaseURL.
package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/ghda/fieldreports/internal/llm"
)

// Config for the OpenAI-compatible client.
type Config struct {
	APIKey      string        // optional for local servers
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g. "gpt-4o-mini" or a local model tag
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration // per-request deadline
}

type Client struct {
	cfg    Config
	api    *goopenai.Client
	logger *slog.Logger
}

var _ llm.Completer = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
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
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		api:    goopenai.NewClientWithConfig(apiCfg),
		logger: logger,
	}
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
		"backend", "openai",
		"model", model,
		"temp", temperature,
		"prompt_len", len(prompt),
	)

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: llm.SystemPrompt()},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		elapsed := time.Since(start)
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Error("llm.complete.timeout", "backend", "openai", "model", model, "elapsed_ms", elapsed.Milliseconds())
			return "", &llm.TimeoutError{Backend: "openai", Model: model, Elapsed: elapsed}
		}
		c.logger.Error("llm.complete.transport_error", "backend", "openai", "model", model, "error", err, "elapsed_ms", elapsed.Milliseconds())
		return "", &llm.TransportError{Backend: "openai", Cause: err}
	}

	if len(resp.Choices) == 0 {
		c.logger.Error("llm.complete.no_choices", "backend", "openai", "model", model)
		return "", &llm.EmptyResponseError{Backend: "openai", Model: model}
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		c.logger.Error("llm.complete.empty_content", "backend", "openai", "model", model)
		return "", &llm.EmptyResponseError{Backend: "openai", Model: model}
	}

	c.logger.Info("llm.complete.ok",
		"backend", "openai",
		"model", model,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
