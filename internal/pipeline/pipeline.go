// Package pipeline runs the persona-to-contacts enrichment flow: query
// generation, search, snippet parsing, page extraction with fallback, and
// aggregation.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/prospect-cli/internal/aggregate"
	"github.com/sells-group/prospect-cli/internal/contact"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/search"
)

// QueryGenerator produces search queries for a persona.
type QueryGenerator interface {
	Generate(ctx context.Context, persona string) ([]string, error)
}

// Searcher runs a query and selects the URLs worth extracting.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Results, error)
	CandidateURLs(r *search.Results, n int) []model.SearchResultItem
}

// PageFetcher extracts the text of a page. ok is false on any failure.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (text string, ok bool)
}

// ContactParser extracts contact candidates from text.
type ContactParser interface {
	Parse(ctx context.Context, in contact.Input) ([]model.ContactCandidate, error)
}

// Config tunes a run.
type Config struct {
	MaxQueries       int
	URLsPerQuery     int
	Interval         time.Duration
	MinSnippetChars  int
	MinFallbackChars int
	MaxResults       int
}

// DefaultConfig returns the standard run limits.
func DefaultConfig() Config {
	return Config{
		MaxQueries:       3,
		URLsPerQuery:     1,
		Interval:         DefaultInterval,
		MinSnippetChars:  50,
		MinFallbackChars: 10,
		MaxResults:       model.MaxResults,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxQueries <= 0 {
		c.MaxQueries = d.MaxQueries
	}
	if c.URLsPerQuery <= 0 {
		c.URLsPerQuery = d.URLsPerQuery
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.MinSnippetChars <= 0 {
		c.MinSnippetChars = d.MinSnippetChars
	}
	if c.MinFallbackChars <= 0 {
		c.MinFallbackChars = d.MinFallbackChars
	}
	if c.MaxResults <= 0 {
		c.MaxResults = d.MaxResults
	}
	return c
}

// Pipeline orchestrates one run at a time per call to Run. A Pipeline holds
// no per-run state and may serve concurrent runs.
type Pipeline struct {
	queries  QueryGenerator
	searcher Searcher
	fetcher  PageFetcher
	parser   ContactParser
	cfg      Config
	sleep    resilience.SleepFunc
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSleep replaces the pacing sleep, mainly for tests.
func WithSleep(fn resilience.SleepFunc) Option {
	return func(p *Pipeline) {
		p.sleep = fn
	}
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a Pipeline with all collaborators.
func New(queries QueryGenerator, searcher Searcher, fetcher PageFetcher, parser ContactParser, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		queries:  queries,
		searcher: searcher,
		fetcher:  fetcher,
		parser:   parser,
		cfg:      cfg.withDefaults(),
		sleep:    resilience.Sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NormalizePersona trims and NFC-normalizes a persona description.
func NormalizePersona(persona string) string {
	return norm.NFC.String(strings.TrimSpace(persona))
}

// Run executes one pipeline run. The returned state is never nil. Run
// returns an error only for invalid input or when the run failed without
// producing any contact; a run interrupted after collecting contacts is
// reported as partial success with a nil error.
func (p *Pipeline) Run(ctx context.Context, persona string) (*model.RunState, error) {
	state := &model.RunState{
		ID:        uuid.NewString(),
		Persona:   NormalizePersona(persona),
		Status:    model.RunStatusIdle,
		StartedAt: p.now(),
	}

	if state.Persona == "" {
		err := eris.Wrap(resilience.ErrInput, "pipeline: persona is empty")
		p.finish(state, err)
		return state, err
	}

	log := zap.L().With(zap.String("run_id", state.ID), zap.String("persona", state.Persona))
	log.Info("pipeline: starting run")

	topErr := p.collect(ctx, state, log)
	if err := p.finish(state, topErr); err != nil {
		log.Error("pipeline: run failed",
			zap.String("category", string(resilience.Classify(err))),
			zap.Error(err),
		)
		return state, err
	}

	log.Info("pipeline: run complete",
		zap.String("status", string(state.Status)),
		zap.Int("results", len(state.Results)),
		zap.Duration("duration", state.Duration()),
	)
	return state, nil
}

// collect runs query generation and the per-query loop, accumulating
// candidates on state. The returned error is the top-level failure, if any.
func (p *Pipeline) collect(ctx context.Context, state *model.RunState, log *zap.Logger) error {
	setStatus(state, model.RunStatusGeneratingQueries, log)
	queries, err := p.queries.Generate(ctx, state.Persona)
	if err != nil {
		metrics.StageFailed("query_generation")
		return eris.Wrap(err, "pipeline: generate queries")
	}
	if len(queries) > p.cfg.MaxQueries {
		queries = queries[:p.cfg.MaxQueries]
	}
	state.Queries = queries

	pacer := NewPacer(p.cfg.Interval, p.sleep)
	for _, q := range queries {
		if err := pacer.Wait(ctx); err != nil {
			return eris.Wrap(err, "pipeline: run interrupted")
		}
		report := p.runQuery(ctx, state, q, log.With(zap.String("query", q)))
		state.Reports = append(state.Reports, report)
	}

	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "pipeline: run interrupted")
	}
	return nil
}

// runQuery handles one query. Failures are logged and recorded on the
// report; none abort the run.
func (p *Pipeline) runQuery(ctx context.Context, state *model.RunState, query string, log *zap.Logger) model.QueryReport {
	report := model.QueryReport{Query: query}
	before := len(state.Candidates)
	defer func() { report.Candidates = len(state.Candidates) - before }()

	setStatus(state, model.RunStatusSearching, log)
	res, err := p.searcher.Search(ctx, query)
	if err != nil {
		p.stageFailed(&report, "search", err, log)
		return report
	}
	report.SearchResults = len(res.Items)

	if text := res.FlattenedText(); utf8.RuneCountInString(text) > p.cfg.MinSnippetChars {
		setStatus(state, model.RunStatusDirectParsing, log)
		cands, err := p.parser.Parse(ctx, contact.Input{
			Text:        text,
			Persona:     state.Persona,
			Origin:      contact.OriginSnippet,
			Accumulated: len(state.Candidates),
		})
		if err != nil {
			p.stageFailed(&report, "snippet_parse", err, log)
		} else {
			report.SnippetParsed = true
			state.Candidates = append(state.Candidates, cands...)
		}
	}

	pacer := NewPacer(p.cfg.Interval, p.sleep)
	for _, item := range p.searcher.CandidateURLs(res, p.cfg.URLsPerQuery) {
		if err := pacer.Wait(ctx); err != nil {
			p.stageFailed(&report, "fetch", err, log)
			break
		}
		p.runURL(ctx, state, &report, item, log.With(zap.String("url", item.Link)))
	}
	return report
}

func (p *Pipeline) runURL(ctx context.Context, state *model.RunState, report *model.QueryReport, item model.SearchResultItem, log *zap.Logger) {
	setStatus(state, model.RunStatusFetchingURL, log)
	report.URLs = append(report.URLs, item.Link)

	text, ok := p.fetcher.FetchPage(ctx, item.Link)
	if !ok {
		fallback := strings.Join(item.Parts(), " ")
		if utf8.RuneCountInString(fallback) < p.cfg.MinFallbackChars {
			log.Debug("pipeline: no page text and fallback too short")
			return
		}
		log.Debug("pipeline: using search result text as fallback")
		report.Fallbacks++
		text = fallback
	}

	setStatus(state, model.RunStatusPageParsing, log)
	cands, err := p.parser.Parse(ctx, contact.Input{
		Text:        text,
		Persona:     state.Persona,
		Origin:      contact.OriginPage,
		URL:         item.Link,
		Accumulated: len(state.Candidates),
	})
	if err != nil {
		p.stageFailed(report, "page_parse", err, log)
		return
	}
	state.Candidates = append(state.Candidates, cands...)
}

func (p *Pipeline) stageFailed(report *model.QueryReport, stage string, err error, log *zap.Logger) {
	metrics.StageFailed(stage)
	report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", stage, err))
	log.Warn("pipeline: stage failed", zap.String("stage", stage), zap.Error(err))
}

// finish aggregates the candidates and settles the outcome. It returns the
// error Run should surface, which is nil unless the run failed outright.
func (p *Pipeline) finish(state *model.RunState, topErr error) error {
	state.Status = model.RunStatusAggregating
	state.Results = aggregate.Aggregate(state.Candidates, p.cfg.MaxResults)
	state.CompletedAt = p.now()

	n := len(state.Results)
	var runErr error
	switch {
	case topErr == nil && n > 0:
		state.Status = model.RunStatusSucceeded
		state.Message = fmt.Sprintf("Found %d %s.", n, plural(n))
	case topErr == nil:
		state.Status = model.RunStatusNoResults
		state.Message = "No contacts found. Try a broader persona description."
	case n > 0:
		state.Status = model.RunStatusPartialSuccess
		state.Error = topErr.Error()
		state.Message = fmt.Sprintf("The search stopped early. Showing %d %s found so far.", n, plural(n))
	default:
		state.Status = model.RunStatusFailed
		state.Error = topErr.Error()
		state.Message = resilience.Classify(topErr).Message()
		runErr = topErr
	}

	metrics.ObserveRun(string(state.Status), n, state.Duration())
	return runErr
}

func setStatus(state *model.RunState, status model.RunStatus, log *zap.Logger) {
	state.Status = status
	log.Debug("pipeline: status", zap.String("status", string(status)))
}

func plural(n int) string {
	if n == 1 {
		return "contact"
	}
	return "contacts"
}
