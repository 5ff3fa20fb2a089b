package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/prospect-cli/internal/contact"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/search"
)

// --- QueryGenerator Mock ---

type mockQueries struct {
	mock.Mock
}

func (m *mockQueries) Generate(ctx context.Context, persona string) ([]string, error) {
	args := m.Called(ctx, persona)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- Searcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string) (*search.Results, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Results), args.Error(1)
}

func (m *mockSearcher) CandidateURLs(r *search.Results, n int) []model.SearchResultItem {
	args := m.Called(r, n)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.SearchResultItem)
}

// --- PageFetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchPage(ctx context.Context, url string) (string, bool) {
	args := m.Called(ctx, url)
	return args.String(0), args.Bool(1)
}

// --- ContactParser Mock ---

type mockParser struct {
	mock.Mock
}

func (m *mockParser) Parse(ctx context.Context, in contact.Input) ([]model.ContactCandidate, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ContactCandidate), args.Error(1)
}

// --- helpers ---

type recordedSleep struct {
	calls []time.Duration
}

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return ctx.Err()
}

func originIs(o contact.Origin) interface{} {
	return mock.MatchedBy(func(in contact.Input) bool { return in.Origin == o })
}

type fixture struct {
	queries  *mockQueries
	searcher *mockSearcher
	fetcher  *mockFetcher
	parser   *mockParser
	sleeps   *recordedSleep
}

func newFixture() *fixture {
	return &fixture{
		queries:  &mockQueries{},
		searcher: &mockSearcher{},
		fetcher:  &mockFetcher{},
		parser:   &mockParser{},
		sleeps:   &recordedSleep{},
	}
}

func (f *fixture) pipeline(opts ...Option) *Pipeline {
	opts = append([]Option{WithSleep(f.sleeps.sleep)}, opts...)
	return New(f.queries, f.searcher, f.fetcher, f.parser, DefaultConfig(), opts...)
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.queries.AssertExpectations(t)
	f.searcher.AssertExpectations(t)
	f.fetcher.AssertExpectations(t)
	f.parser.AssertExpectations(t)
}
