package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/jina"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
)

// Provider is an external web search service.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]model.SearchResultItem, error)
	Name() string
}

// Supported providers.
const (
	ProviderSerpAPI    = "serpapi"
	ProviderJina       = "jina"
	ProviderPerplexity = "perplexity"
)

const perplexityPrompt = "Find public web pages (team, about, staff, directory or speaker pages) that name people matching the query. Cite every page you use."

// SerpAPIProvider searches Google through SerpApi.
type SerpAPIProvider struct {
	client serpapi.Client
}

// NewSerpAPIProvider wraps a SerpApi client.
func NewSerpAPIProvider(client serpapi.Client) *SerpAPIProvider {
	return &SerpAPIProvider{client: client}
}

// Name implements Provider.
func (p *SerpAPIProvider) Name() string { return ProviderSerpAPI }

// Search implements Provider.
func (p *SerpAPIProvider) Search(ctx context.Context, query string, limit int) ([]model.SearchResultItem, error) {
	results, err := p.client.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	items := make([]model.SearchResultItem, 0, len(results))
	for _, r := range results {
		items = append(items, model.SearchResultItem{
			Link:          r.Link,
			Title:         r.Title,
			Snippet:       r.Snippet,
			DisplayedLink: r.DisplayedLink,
			Extensions:    r.Extensions,
		})
	}
	return items, nil
}

// JinaProvider searches through Jina AI Search.
type JinaProvider struct {
	client jina.Client
}

// NewJinaProvider wraps a Jina client.
func NewJinaProvider(client jina.Client) *JinaProvider {
	return &JinaProvider{client: client}
}

// Name implements Provider.
func (p *JinaProvider) Name() string { return ProviderJina }

// Search implements Provider. Jina has no displayed link, so the URL host
// stands in for it; the description is preferred over page content as the
// snippet.
func (p *JinaProvider) Search(ctx context.Context, query string, limit int) ([]model.SearchResultItem, error) {
	resp, err := p.client.Search(ctx, query, jina.WithCount(limit))
	if err != nil {
		return nil, err
	}
	items := make([]model.SearchResultItem, 0, len(resp.Data))
	for _, r := range resp.Data {
		snippet := strings.TrimSpace(r.Description)
		if snippet == "" {
			snippet = truncateRunes(strings.TrimSpace(r.Content), 300)
		}
		items = append(items, model.SearchResultItem{
			Link:          r.URL,
			Title:         r.Title,
			Snippet:       snippet,
			DisplayedLink: hostOf(r.URL),
		})
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

// PerplexityProvider searches through the web pages a Perplexity Sonar
// answer cites.
type PerplexityProvider struct {
	client perplexity.Client
}

// NewPerplexityProvider wraps a Perplexity client.
func NewPerplexityProvider(client perplexity.Client) *PerplexityProvider {
	return &PerplexityProvider{client: client}
}

// Name implements Provider.
func (p *PerplexityProvider) Name() string { return ProviderPerplexity }

// Search implements Provider. Structured search results are preferred; bare
// citation URLs are used when the response carries none.
func (p *PerplexityProvider) Search(ctx context.Context, query string, limit int) ([]model.SearchResultItem, error) {
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: perplexityPrompt},
			{Role: "user", Content: query},
		},
		WebSearchOptions: &perplexity.WebSearchOptions{SearchContextSize: "low"},
	})
	if err != nil {
		return nil, err
	}

	items := make([]model.SearchResultItem, 0, len(resp.SearchResults))
	for _, r := range resp.SearchResults {
		var ext []string
		if r.Date != "" {
			ext = []string{r.Date}
		}
		items = append(items, model.SearchResultItem{
			Link:          r.URL,
			Title:         r.Title,
			Snippet:       strings.TrimSpace(r.Snippet),
			DisplayedLink: hostOf(r.URL),
			Extensions:    ext,
		})
	}
	if len(items) == 0 {
		for _, link := range resp.Citations {
			items = append(items, model.SearchResultItem{Link: link, DisplayedLink: hostOf(link)})
		}
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Clients holds the configured search backends. Unconfigured ones are nil.
type Clients struct {
	SerpAPI    serpapi.Client
	Jina       jina.Client
	Perplexity perplexity.Client
}

// NewProvider builds the named provider from clients.
func NewProvider(name string, clients Clients) (Provider, error) {
	switch strings.ToLower(name) {
	case ProviderSerpAPI, "":
		if clients.SerpAPI == nil {
			return nil, eris.New("search: serpapi provider selected but not configured")
		}
		return NewSerpAPIProvider(clients.SerpAPI), nil
	case ProviderJina:
		if clients.Jina == nil {
			return nil, eris.New("search: jina provider selected but not configured")
		}
		return NewJinaProvider(clients.Jina), nil
	case ProviderPerplexity:
		if clients.Perplexity == nil {
			return nil, eris.New("search: perplexity provider selected but not configured")
		}
		return NewPerplexityProvider(clients.Perplexity), nil
	default:
		return nil, eris.Errorf("search: unknown provider %q", name)
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
