// Package search runs persona queries against a web search provider and
// derives the snippet text and candidate URLs the pipeline works from.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/urlfilter"
)

// DefaultLimit is how many results are requested per query.
const DefaultLimit = 6

// Results holds the items returned for one query.
type Results struct {
	Query string
	Items []model.SearchResultItem
}

// FlattenedText joins the title, snippet, displayed link and extensions of
// every item with single spaces, skipping empty parts.
func (r *Results) FlattenedText() string {
	var parts []string
	for _, item := range r.Items {
		parts = append(parts, item.Parts()...)
	}
	return strings.Join(parts, " ")
}

// Executor runs queries through a Provider.
type Executor struct {
	provider Provider
	filter   *urlfilter.Filter
	limit    int
	timeout  time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithLimit overrides DefaultLimit.
func WithLimit(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// NewExecutor creates an Executor. A nil filter uses the default lists.
func NewExecutor(provider Provider, filter *urlfilter.Filter, opts ...Option) *Executor {
	if filter == nil {
		filter = urlfilter.NewDefault()
	}
	e := &Executor{provider: provider, filter: filter, limit: DefaultLimit}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs query and returns at most the configured number of items.
func (e *Executor) Search(ctx context.Context, query string) (*Results, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	items, err := e.provider.Search(ctx, query, e.limit)
	metrics.ObserveCall("search_"+e.provider.Name(), start, err)
	if err != nil {
		return nil, eris.Wrapf(err, "search: %s query failed", e.provider.Name())
	}
	if len(items) > e.limit {
		items = items[:e.limit]
	}

	zap.L().Debug("search: results",
		zap.String("provider", e.provider.Name()),
		zap.String("query", query),
		zap.Int("items", len(items)),
	)
	return &Results{Query: query, Items: items}, nil
}

// CandidateURLs returns, in result order, up to n items whose link is both
// promising and extractable. A non-positive n means 1.
func (e *Executor) CandidateURLs(r *Results, n int) []model.SearchResultItem {
	if n <= 0 {
		n = 1
	}
	var out []model.SearchResultItem
	for _, item := range r.Items {
		if item.Link == "" {
			continue
		}
		if !e.filter.IsPromising(item.Link) || !e.filter.IsExtractable(item.Link) {
			continue
		}
		out = append(out, item)
		if len(out) == n {
			break
		}
	}
	return out
}
