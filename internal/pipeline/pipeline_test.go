package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/contact"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/search"
)

const persona = "Marketing managers at SaaS companies"

func longSnippet(email string) *search.Results {
	return &search.Results{Items: []model.SearchResultItem{{
		Link:    "https://acmesaas.com/blog/launch",
		Title:   "Acme SaaS launch",
		Snippet: "Jane Doe, Marketing Manager at Acme SaaS: " + email,
	}}}
}

func cand(email string) model.ContactCandidate {
	return model.ContactCandidate{Email: email, Name: "N", Company: "C", Title: "T", Confidence: 70, Source: model.SourceSearchResults}
}

func TestRun_EmptyPersona(t *testing.T) {
	f := newFixture()

	state, err := f.pipeline().Run(context.Background(), " \t\n ")

	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrInput))
	require.NotNil(t, state)
	assert.Equal(t, model.RunStatusFailed, state.Status)
	assert.Equal(t, resilience.CategoryInput.Message(), state.Message)
	f.assertExpectations(t)
}

func TestRun_NormalizesPersona(t *testing.T) {
	f := newFixture()
	f.queries.On("Generate", mock.Anything, "Caf\u00e9 owners").Return([]string{}, nil)

	state, err := f.pipeline().Run(context.Background(), "  Cafe\u0301 owners ")

	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9 owners", state.Persona)
	f.assertExpectations(t)
}

func TestRun_NoQueriesIsNoResults(t *testing.T) {
	f := newFixture()
	f.queries.On("Generate", mock.Anything, persona).Return([]string{}, nil)

	state, err := f.pipeline().Run(context.Background(), persona)

	require.NoError(t, err)
	assert.Equal(t, model.RunStatusNoResults, state.Status)
	assert.Empty(t, state.Results)
	assert.False(t, state.CompletedAt.IsZero())
	f.assertExpectations(t)
}

func TestRun_QueryGenerationFailure(t *testing.T) {
	f := newFixture()
	f.queries.On("Generate", mock.Anything, persona).Return(nil, errors.New("429 Too Many Requests"))

	state, err := f.pipeline().Run(context.Background(), persona)

	require.Error(t, err)
	assert.Equal(t, model.RunStatusFailed, state.Status)
	assert.Equal(t, resilience.CategoryRateLimit.Message(), state.Message)
	assert.Contains(t, state.Error, "429")
	f.assertExpectations(t)
}

func TestRun_SnippetParsingAndPacing(t *testing.T) {
	f := newFixture()
	f.queries.On("Generate", mock.Anything, persona).Return([]string{"q1", "q2", "q3", "q4"}, nil)
	for _, q := range []string{"q1", "q2", "q3"} {
		email := q + "@acmesaas.com"
		res := longSnippet(email)
		f.searcher.On("Search", mock.Anything, q).Return(res, nil).Once()
		f.searcher.On("CandidateURLs", res, 1).Return(nil).Once()
		f.parser.On("Parse", mock.Anything, mock.MatchedBy(func(in contact.Input) bool {
			return in.Origin == contact.OriginSnippet && strings.HasSuffix(in.Text, email)
		})).Return([]model.ContactCandidate{cand(email)}, nil).Once()
	}

	state, err := f.pipeline().Run(context.Background(), persona)

	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, state.Status)
	assert.Equal(t, []string{"q1", "q2", "q3"}, state.Queries)
	assert.Equal(t, []string{"q1@acmesaas.com", "q2@acmesaas.com", "q3@acmesaas.com"}, state.Results.Emails())
	assert.Equal(t, []time.Duration{DefaultInterval, DefaultInterval}, f.sleeps.calls)
	require.Len(t, state.Reports, 3)
	assert.True(t, state.Reports[0].SnippetParsed)
	assert.Equal(t, 1, state.Reports[0].Candidates)
	f.searcher.AssertNotCalled(t, "Search", mock.Anything, "q4")
}

func TestRun_ShortSnippetSkipsParsing(t *testing.T) {
	f := newFixture()
	res := &search.Results{Items: []model.SearchResultItem{{Link: "https://x.com", Title: "Short"}}}
	f.queries.On("Generate", mock.Anything, persona).Return([]string{"q1"}, nil)
	f.searcher.On("Search", mock.Anything, "q1").Return(res, nil)
	f.searcher.On("CandidateURLs", res, 1).Return(nil)

	state, err := f.pipeline().Run(context.Background(), persona)

	require.NoError(t, err)
	assert.Equal(t, model.RunStatusNoResults, state.Status)
	assert.False(t, state.Reports[0].SnippetParsed)
	f.parser.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything)
}

func TestRun_PerQueryFailuresAreIsolated(t *testing.T) {
	f := newFixture()
	res := longSnippet("jane.doe@acmesaas.com")
	f.queries.On("Generate", mock.Anything, persona).Return([]string{"q1", "q2"}, nil)
	f.searcher.On("Search", mock.Anything, "q1").Return(nil, errors.New("search: serpapi query failed: 500"))
	f.searcher.On("Search", mock.Anything, "q2").Return(res, nil)
	f.searcher.On("CandidateURLs", res, 1).Return(nil)
	f.parser.On("Parse", mock.Anything, originIs(contact.OriginSnippet)).
		Return([]model.ContactCandidate{cand("jane.doe@acmesaas.com")}, nil)

	state, err := f.pipeline().Run(context.Background(), persona)

	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, state.Status)
	require.Len(t, state.Reports, 2)
	require.Len(t, state.Reports[0].Errors, 1)
	assert.Contains(t, state.Reports[0].Errors[0], "search")
	assert.Empty(t, state.Reports[1].Errors)
	f.assertExpectations(t)
}

func TestRun_SnippetParseErrorDoesNotStopURL(t *testing.T) {
	f := newFixture()
	res := longSnippet("x@acmesaas.com")
	item := model.SearchResultItem{Link: "https://acme.com/team", Title: "Our team"}
	f.queries.On("Generate", mock.Anything, persona).Return([]string{"q1"}, nil)
	f.searcher.On("Search", mock.Anything, "q1").Return(res, nil)
	f.searcher.On("CandidateURLs", res, 1).Return([]model.SearchResultItem{item})
	f.fetcher.On("FetchPage", mock.Anything, item.Link).Return("Jane Doe - VP Marketing - jane@acme.com", true)
	f.parser.On("Parse", mock.Anything, originIs(contact.OriginSnippet)).Return(nil, errors.New("llm down"))
	f.parser.On("Parse", mock.Anything, mock.MatchedBy(func(in contact.Input) bool {
		return in.Origin == contact.OriginPage && in.URL == item.Link && strings.Contains(in.Text, "VP Marketing")
	})).Return([]model.ContactCandidate{cand("jane@acme.com")}, nil)

	state, err := f.pipeline().Run(context.Background(), persona)

	require.NoError(t, err)
	assert.Equal(t, []string{"jane@acme.com"}, state.Results.Emails())
	assert.Equal(t, []string{item.Link}, state.Reports[0].URLs)
	assert.False(t, state.Reports[0].SnippetParsed)
	assert.Equal(t, 0, state.Reports[0].Fallbacks)
	assert.Empty(t, f.sleeps.calls)
	f.assertExpectations(t)
}

func TestRun_FallbackToResultText(t *testing.T) {
	f := newFixture()
	item := model.SearchResultItem{
		Link:          "https://acme.com/team",
		Title:         "Team",
		Snippet:       "Meet our leaders",
		DisplayedLink: "acme.com",
	}
	res := &search.Results{Items: []model.SearchResultItem{item}}
	f.queries.On("Generate", mock.Anything, persona).Return([]string{"q1"}, nil)
	f.searcher.On("Search", mock.Anything, "q1").Return(res, nil)
	f.searcher.On("CandidateURLs", res, 1).Return([]model.SearchResultItem{item})
	f.fetcher.On("FetchPage", mock.Anything, item.Link).Return("", false)
	f.parser.On("Parse", mock.Anything, contact.Input{
		Text:    "Team Meet our leaders acme.com",
		Persona: persona,
		Origin:  contact.OriginPage,
		URL:     item.Link,
	}).Return([]model.ContactCandidate{}, nil)

	state, err := f.pipeline().Run(context.Background(), persona)

	require.NoError(t, err)
	assert.Equal(t, model.RunStatusNoResults, state.Status)
	assert.Equal(t, 1, state.Reports[0].Fallbacks)
	f.assertExpectations(t)
}

func TestRun_FallbackTooShortIsSkipped(t *testing.T) {
	f := newFixture()
	item := model.SearchResultItem{Link: "https://acme.com/team", Title: "Team"}
	res := &search.Results{Items: []model.SearchResultItem{item}}
	f.queries.On("Generate", mock.Anything, persona).Return([]string{"q1"}, nil)
	f.searcher.On("Search", mock.Anything, "q1").Return(res, nil)
	f.searcher.On("CandidateURLs", res, 1).Return([]model.SearchResultItem{item})
	f.fetcher.On("FetchPage", mock.Anything, item.Link).Return("", false)

	state, err := f.pipeline().Run(context.Background(), persona)

	require.NoError(t, err)
	assert.Equal(t, model.RunStatusNoResults, state.Status)
	f.parser.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything)
}

func TestRun_AccumulatedCountFeedsIDs(t *testing.T) {
	f := newFixture()
	res := longSnippet("a@acmesaas.com")
	item := model.SearchResultItem{Link: "https://acme.com/about", Title: "About"}
	f.queries.On("Generate", mock.Anything, persona).Return([]string{"q1"}, nil)
	f.searcher.On("Search", mock.Anything, "q1").Return(res, nil)
	f.searcher.On("CandidateURLs", res, 1).Return([]model.SearchResultItem{item})
	f.fetcher.On("FetchPage", mock.Anything, item.Link).Return("About page with b@acme.com listed", true)
	f.parser.On("Parse", mock.Anything, mock.MatchedBy(func(in contact.Input) bool {
		return in.Origin == contact.OriginSnippet && in.Accumulated == 0
	})).Return([]model.ContactCandidate{cand("a@acmesaas.com"), cand("dup@acme.com")}, nil)
	f.parser.On("Parse", mock.Anything, mock.MatchedBy(func(in contact.Input) bool {
		return in.Origin == contact.OriginPage && in.Accumulated == 2
	})).Return([]model.ContactCandidate{cand("dup@acme.com"), cand("b@acme.com")}, nil)

	state, err := f.pipeline().Run(context.Background(), persona)

	require.NoError(t, err)
	assert.Len(t, state.Candidates, 4)
	assert.Equal(t, []string{"a@acmesaas.com", "dup@acme.com", "b@acme.com"}, state.Results.Emails())
	assert.Equal(t, 4, state.Reports[0].Candidates)
	f.assertExpectations(t)
}

func TestRun_PartialSuccessOnCancel(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res := longSnippet("jane.doe@acmesaas.com")
	f.queries.On("Generate", mock.Anything, persona).Return([]string{"q1", "q2"}, nil)
	f.searcher.On("Search", mock.Anything, "q1").Return(res, nil)
	f.searcher.On("CandidateURLs", res, 1).Return(nil)
	f.parser.On("Parse", mock.Anything, mock.Anything).Return([]model.ContactCandidate{cand("jane.doe@acmesaas.com")}, nil)

	p := f.pipeline(WithSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))
	state, err := p.Run(ctx, persona)

	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPartialSuccess, state.Status)
	assert.Equal(t, []string{"jane.doe@acmesaas.com"}, state.Results.Emails())
	assert.Contains(t, state.Error, "context canceled")
	f.searcher.AssertNotCalled(t, "Search", mock.Anything, "q2")
}

func TestRun_CanceledWithoutResultsFails(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.queries.On("Generate", mock.Anything, persona).Return([]string{"q1"}, nil)

	state, err := f.pipeline().Run(ctx, persona)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, model.RunStatusFailed, state.Status)
	assert.Equal(t, resilience.CategoryCanceled.Message(), state.Message)
	f.searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestRun_Timestamps(t *testing.T) {
	f := newFixture()
	f.queries.On("Generate", mock.Anything, persona).Return([]string{}, nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{start, start.Add(3 * time.Second)}

	state, err := f.pipeline(WithClock(func() time.Time {
		now := ticks[0]
		ticks = ticks[1:]
		return now
	})).Run(context.Background(), persona)

	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, state.Duration())
	assert.NotEmpty(t, state.ID)
}

func TestConfig_WithDefaults(t *testing.T) {
	got := Config{MaxQueries: 5, Interval: -time.Second}.withDefaults()

	assert.Equal(t, 5, got.MaxQueries)
	assert.Equal(t, 1, got.URLsPerQuery)
	assert.Equal(t, time.Duration(0), got.Interval)
	assert.Equal(t, 50, got.MinSnippetChars)
	assert.Equal(t, 10, got.MinFallbackChars)
	assert.Equal(t, model.MaxResults, got.MaxResults)
}

func TestRun_PacesURLsWithinQuery(t *testing.T) {
	f := newFixture()
	first := model.SearchResultItem{Link: "https://acme.com/team", Title: "Team"}
	second := model.SearchResultItem{Link: "https://acme.com/about", Title: "About"}
	res := &search.Results{Items: []model.SearchResultItem{first, second}}
	f.queries.On("Generate", mock.Anything, persona).Return([]string{"q1"}, nil)
	f.searcher.On("Search", mock.Anything, "q1").Return(res, nil)
	f.searcher.On("CandidateURLs", res, 2).Return([]model.SearchResultItem{first, second})
	f.fetcher.On("FetchPage", mock.Anything, first.Link).Return("", false).Once()
	f.fetcher.On("FetchPage", mock.Anything, second.Link).Return("", false).Once()

	cfg := DefaultConfig()
	cfg.URLsPerQuery = 2
	p := New(f.queries, f.searcher, f.fetcher, f.parser, cfg, WithSleep(f.sleeps.sleep))

	state, err := p.Run(context.Background(), persona)

	require.NoError(t, err)
	assert.Equal(t, model.RunStatusNoResults, state.Status)
	assert.Equal(t, []time.Duration{DefaultInterval}, f.sleeps.calls)
	assert.Equal(t, []string{first.Link, second.Link}, state.Reports[0].URLs)

	var fetched []string
	for _, c := range f.fetcher.Calls {
		fetched = append(fetched, c.Arguments.String(1))
	}
	assert.Equal(t, []string{first.Link, second.Link}, fetched)
	f.parser.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}
