package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/contact"
	"github.com/sells-group/prospect-cli/internal/fetcher"
	"github.com/sells-group/prospect-cli/internal/llm"
	"github.com/sells-group/prospect-cli/internal/pipeline"
	"github.com/sells-group/prospect-cli/internal/query"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/scrape"
	"github.com/sells-group/prospect-cli/internal/search"
	"github.com/sells-group/prospect-cli/internal/session"
	"github.com/sells-group/prospect-cli/internal/urlfilter"
	"github.com/sells-group/prospect-cli/pkg/firecrawl"
	"github.com/sells-group/prospect-cli/pkg/jina"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
)

// pipelineEnv holds the pipeline and the session manager the find and
// serve commands run it through.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Sessions *session.Manager
}

// initPipeline validates the config for mode and builds every collaborator.
func initPipeline(ctx context.Context, c *config.Config, mode string) (*pipelineEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	p, err := buildPipeline(ctx, c)
	if err != nil {
		return nil, err
	}

	return &pipelineEnv{
		Pipeline: p,
		Sessions: session.NewManager(p, c.Pipeline.HistorySize),
	}, nil
}

func buildPipeline(ctx context.Context, c *config.Config) (*pipeline.Pipeline, error) {
	callTimeout := seconds(c.Pipeline.CallTimeoutSecs, 45*time.Second)

	gen, err := buildGenerator(ctx, c)
	if err != nil {
		return nil, err
	}

	filter, err := buildFilter(c.Filter)
	if err != nil {
		return nil, err
	}

	provider, err := buildSearchProvider(c)
	if err != nil {
		return nil, err
	}

	chain := buildScrapeChain(c)
	zap.L().Info("pipeline: initialized",
		zap.String("llm", c.LLM.Provider),
		zap.String("search", provider.Name()),
		zap.Strings("scrapers", chain.Names()),
	)

	return pipeline.New(
		query.NewGenerator(gen,
			query.WithMaxTokens(c.LLM.QueryMaxTokens),
			query.WithTimeout(callTimeout),
		),
		search.NewExecutor(provider, filter,
			search.WithLimit(c.Search.Limit),
			search.WithTimeout(seconds(c.Search.TimeoutSecs, callTimeout)),
		),
		fetcher.New(filter, chain,
			fetcher.WithTimeout(callTimeout),
			fetcher.WithMaxRetries(c.Scrape.MaxRetries),
			fetcher.WithRetryOptions(resilience.WithOnRetry(resilience.RetryLogger("scrape", "fetch_page"))),
		),
		contact.NewParser(gen,
			contact.WithMaxTokens(c.LLM.ParseMaxTokens),
			contact.WithTimeout(callTimeout),
		),
		pipeline.Config{
			MaxQueries:   c.Pipeline.MaxQueries,
			URLsPerQuery: c.Pipeline.URLsPerQuery,
			Interval:     time.Duration(c.Pipeline.IntervalMS) * time.Millisecond,
			MaxResults:   c.Pipeline.MaxResults,
		},
	), nil
}

// buildGenerator creates the configured LLM backend, instrumented and
// rate limited.
func buildGenerator(ctx context.Context, c *config.Config) (llm.Generator, error) {
	lc := llm.Config{
		Provider:    strings.ToLower(c.LLM.Provider),
		Temperature: c.LLM.Temperature,
	}
	switch lc.Provider {
	case llm.ProviderAnthropic, "":
		lc.Provider = llm.ProviderAnthropic
		lc.APIKey, lc.Model, lc.BaseURL = c.Anthropic.Key, c.Anthropic.Model, c.Anthropic.BaseURL
	case llm.ProviderOpenAI:
		lc.APIKey, lc.Model, lc.BaseURL = c.OpenAI.Key, c.OpenAI.Model, c.OpenAI.BaseURL
	case llm.ProviderGemini:
		lc.APIKey, lc.Model = c.Gemini.Key, c.Gemini.Model
	}

	gen, err := llm.New(ctx, lc)
	if err != nil {
		return nil, eris.Wrap(err, "init llm")
	}
	return llm.NewRateLimited(llm.NewObserved(gen, "llm_"+lc.Provider), c.LLM.RequestsPerSecond, c.LLM.Burst), nil
}

func buildFilter(fc config.FilterConfig) (*urlfilter.Filter, error) {
	if fc.File == "" {
		return urlfilter.NewDefault(), nil
	}
	lists, err := urlfilter.LoadConfig(fc.File)
	if err != nil {
		return nil, err
	}
	return urlfilter.New(lists), nil
}

func buildSearchProvider(c *config.Config) (search.Provider, error) {
	var clients search.Clients
	if c.SerpAPI.Key != "" {
		clients.SerpAPI = serpapi.NewClient(c.SerpAPI.Key, serpapi.WithParams(map[string]string{
			"google_domain": c.SerpAPI.GoogleDomain,
			"gl":            c.SerpAPI.Country,
			"hl":            c.SerpAPI.Language,
		}))
	}
	if c.Jina.Key != "" {
		clients.Jina = jina.NewClient(c.Jina.Key,
			jina.WithBaseURL(c.Jina.BaseURL),
			jina.WithSearchBaseURL(c.Jina.SearchBaseURL),
		)
	}
	if c.Perplexity.Key != "" {
		clients.Perplexity = perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
		)
	}
	return search.NewProvider(strings.ToLower(c.Search.Provider), clients)
}

// buildScrapeChain orders the local scraper before Jina Reader and Firecrawl.
// The Jina client makes a single attempt so that page fetches stay fail-fast.
func buildScrapeChain(c *config.Config) *scrape.Chain {
	var scrapers []scrape.Scraper
	if c.Scrape.LocalEnabled {
		scrapers = append(scrapers, scrape.NewLocalScraper(seconds(c.Scrape.TimeoutSecs, 15*time.Second)))
	}
	if c.Scrape.JinaEnabled {
		scrapers = append(scrapers, scrape.NewJinaAdapter(jina.NewClient(c.Jina.Key,
			jina.WithBaseURL(c.Jina.BaseURL),
			jina.WithMaxAttempts(1),
		)))
	}
	if c.Scrape.FirecrawlEnabled {
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(
			firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL)),
			c.Firecrawl.TimeoutMS,
		))
	}
	return scrape.NewChain(scrapers...)
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
