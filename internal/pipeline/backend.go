package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ghda/fieldreports/internal/common"
	"github.com/ghda/fieldreports/internal/llm"
	"github.com/ghda/fieldreports/internal/llm/anthropic"
	"github.com/ghda/fieldreports/internal/llm/openai"
)

// NewCompleter builds the model backend named by cfg.Backend. The "openai"
// backend also covers local OpenAI-compatible servers via BaseURL.
func NewCompleter(cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}, logger), nil
	}
	return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
}
