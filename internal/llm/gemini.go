package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiGenerator generates text with the Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature *float32
}

// NewGemini creates a GeminiGenerator from cfg.
func NewGemini(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create gemini client")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}
	g := &GeminiGenerator{client: client, model: model}
	if cfg.Temperature > 0 {
		t := float32(cfg.Temperature)
		g.temperature = &t
	}
	return g, nil
}

// GenerateText implements Generator.
func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		CandidateCount:  1,
		MaxOutputTokens: int32(maxTokens),
		Temperature:     g.temperature,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code != 0 {
			return "", eris.Wrap(resilience.NewStatusError("gemini", apiErr.Code, apiErr.Message), "llm: generate")
		}
		return "", eris.Wrap(err, "llm: generate")
	}
	return resp.Text(), nil
}
