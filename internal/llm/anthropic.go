package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

// AnthropicGenerator generates text with the Anthropic Messages API.
type AnthropicGenerator struct {
	client      anthropic.Client
	model       string
	temperature *float64
}

// NewAnthropic creates an AnthropicGenerator from cfg.
func NewAnthropic(cfg Config) *AnthropicGenerator {
	var opts []anthropic.Option
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return NewAnthropicWithClient(anthropic.NewClient(cfg.APIKey, opts...), cfg.Model, cfg.Temperature)
}

// NewAnthropicWithClient wraps an existing client.
func NewAnthropicWithClient(client anthropic.Client, model string, temperature float64) *AnthropicGenerator {
	if model == "" {
		model = DefaultAnthropicModel
	}
	g := &AnthropicGenerator{client: client, model: model}
	if temperature > 0 {
		g.temperature = &temperature
	}
	return g
}

// GenerateText implements Generator.
func (g *AnthropicGenerator) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: g.temperature,
	})
	if err != nil {
		if code := anthropic.StatusCode(err); code != 0 {
			return "", eris.Wrap(resilience.NewStatusError("anthropic", code, err.Error()), "llm: generate")
		}
		return "", eris.Wrap(err, "llm: generate")
	}
	resp.Usage.LogCost(g.model, "generate_text")
	return resp.Text(), nil
}
