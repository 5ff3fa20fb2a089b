package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as the last-resort Scraper for
// pages that need a rendered browser.
type FirecrawlAdapter struct {
	client    firecrawl.Client
	timeoutMS int
	breaker   *resilience.CircuitBreaker
}

// NewFirecrawlAdapter creates a FirecrawlAdapter. timeoutMS bounds the remote
// render; 0 leaves the Firecrawl default.
func NewFirecrawlAdapter(client firecrawl.Client, timeoutMS int) *FirecrawlAdapter {
	return &FirecrawlAdapter{
		client:    client,
		timeoutMS: timeoutMS,
		breaker:   resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("firecrawl")),
	}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true unless the circuit breaker is open.
func (f *FirecrawlAdapter) Supports(_ string) bool {
	return !f.breaker.Open()
}

// Scrape fetches a single URL as markdown via the Firecrawl scrape API.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*model.Page, error) {
	return resilience.ExecuteVal(ctx, f.breaker, func(ctx context.Context) (*model.Page, error) {
		resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:             targetURL,
			Formats:         []string{"markdown"},
			OnlyMainContent: false,
			TimeoutMS:       f.timeoutMS,
		})
		if err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, eris.Errorf("firecrawl: scrape not successful: %s", resp.Error)
		}

		meta := resp.Data.Metadata
		pageURL := meta.SourceURL
		if pageURL == "" {
			pageURL = targetURL
		}
		return &model.Page{
			URL:        pageURL,
			Title:      meta.Title,
			Text:       strings.TrimSpace(resp.Data.Markdown),
			StatusCode: meta.StatusCode,
			Source:     f.Name(),
		}, nil
	})
}
