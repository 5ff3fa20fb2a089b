// Package fetcher extracts page text for candidate URLs, failing fast and
// never returning an error to the caller.
package fetcher

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/urlfilter"
)

// MinTextChars is the shortest trimmed page text treated as a success.
const MinTextChars = 20

// Extractor pulls text content from a URL. scrape.Chain implements it.
type Extractor interface {
	Scrape(ctx context.Context, url string) (*model.Page, error)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds each extraction call.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxRetries sets the retry count for extraction calls. The default is
// zero: one attempt only.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRetries = n
		}
	}
}

// WithRetryOptions passes options through to resilience.FetchWithRetry.
func WithRetryOptions(opts ...resilience.RetryOption) Option {
	return func(f *Fetcher) {
		f.retryOpts = append(f.retryOpts, opts...)
	}
}

// Fetcher checks URL eligibility and extracts page text.
type Fetcher struct {
	filter     *urlfilter.Filter
	extractor  Extractor
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	retryOpts  []resilience.RetryOption
}

// New creates a Fetcher. A nil filter uses the default pattern lists.
func New(filter *urlfilter.Filter, extractor Extractor, opts ...Option) *Fetcher {
	if filter == nil {
		filter = urlfilter.NewDefault()
	}
	f := &Fetcher{
		filter:    filter,
		extractor: extractor,
		baseDelay: time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPage returns the extracted text of rawURL, or "", false when the URL
// is ineligible, extraction fails, or the text is too short.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (string, bool) {
	page, ok := f.Fetch(ctx, rawURL)
	if !ok {
		return "", false
	}
	return page.Text, true
}

// Fetch is FetchPage returning the whole page, including which scraper
// produced it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.Page, bool) {
	log := zap.L().With(zap.String("url", rawURL))

	if !f.filter.IsExtractable(rawURL) {
		log.Debug("fetcher: url not extractable, skipping")
		return nil, false
	}

	start := time.Now()
	page, err := resilience.FetchWithRetry(ctx, func(ctx context.Context) (*model.Page, error) {
		if f.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, f.timeout)
			defer cancel()
		}
		p, err := f.extractor.Scrape(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, eris.New("fetcher: extractor returned no page")
		}
		p.Text = strings.TrimSpace(p.Text)
		if n := utf8.RuneCountInString(p.Text); n < MinTextChars {
			return nil, eris.Errorf("fetcher: extracted text too short (%d chars)", n)
		}
		return p, nil
	}, f.maxRetries, f.baseDelay, f.retryOpts...)
	metrics.ObserveCall("extract", start, err)

	if err != nil {
		log.Warn("fetcher: extraction failed", zap.Error(err))
		return nil, false
	}

	log.Debug("fetcher: extracted page",
		zap.String("source", page.Source),
		zap.Int("chars", utf8.RuneCountInString(page.Text)),
	)
	return page, true
}
