// Package llm provides the language-model text service used for query
// generation and contact parsing.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// Generator produces text from a single prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

// GenerateText implements Generator.
func (f GeneratorFunc) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Config selects and configures a backend.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
}

// New builds the Generator for cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.Errorf("llm: api key required for provider %q", cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic, "":
		return NewAnthropic(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
