package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/jina"
)

// minJinaContent is the shortest Jina body accepted as real page content.
const minJinaContent = 50

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
}

// JinaAdapter wraps a Jina Reader client as a Scraper with a circuit breaker.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaAdapter creates a JinaAdapter from a Jina client. Three failures
// within 30s open the circuit for 60s so the chain skips Jina entirely.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{
		client:  client,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("jina")),
	}
}

// Name implements Scraper.
func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return !j.breaker.Open()
}

// Scrape fetches a URL via Jina Reader and validates the response.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*model.Page, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*model.Page, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, eris.Wrap(err, "jina: read")
		}
		if needsFallback(resp) {
			return nil, eris.New("jina: response needs fallback")
		}

		pageURL := resp.Data.URL
		if pageURL == "" {
			pageURL = targetURL
		}
		return &model.Page{
			URL:        pageURL,
			Title:      resp.Data.Title,
			Text:       strings.TrimSpace(resp.Data.Content),
			StatusCode: resp.Code,
			Source:     j.Name(),
		}, nil
	})
}

// needsFallback reports whether a Jina response is empty, non-200 or a
// bot-challenge page rather than real content.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < minJinaContent {
		return true
	}

	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return true
		}
	}
	return false
}
