package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

// mockScraper implements Scraper for testing.
type mockScraper struct {
	name     string
	supports bool
	page     *model.Page
	err      error
	calls    int
}

func (m *mockScraper) Name() string           { return m.name }
func (m *mockScraper) Supports(_ string) bool { return m.supports }
func (m *mockScraper) Scrape(_ context.Context, _ string) (*model.Page, error) {
	m.calls++
	return m.page, m.err
}

func TestChain_Scrape_FirstSuccess(t *testing.T) {
	s1 := &mockScraper{
		name: "primary", supports: true,
		page: &model.Page{URL: "https://acme.com/team", Text: "Jane Doe, VP Marketing", Source: "primary"},
	}
	s2 := &mockScraper{name: "fallback", supports: true}

	page, err := NewChain(s1, s2).Scrape(context.Background(), "https://acme.com/team")

	require.NoError(t, err)
	assert.Equal(t, "primary", page.Source)
	assert.Equal(t, 0, s2.calls)
}

func TestChain_Scrape_FallbackOnError(t *testing.T) {
	s1 := &mockScraper{name: "primary", supports: true, err: errors.New("failed")}
	s2 := &mockScraper{
		name: "fallback", supports: true,
		page: &model.Page{URL: "https://acme.com/team", Text: "team page", Source: "fallback"},
	}

	page, err := NewChain(s1, s2).Scrape(context.Background(), "https://acme.com/team")

	require.NoError(t, err)
	assert.Equal(t, "fallback", page.Source)
}

func TestChain_Scrape_EmptyTextFallsThrough(t *testing.T) {
	s1 := &mockScraper{name: "primary", supports: true, page: &model.Page{Text: "   "}}
	s2 := &mockScraper{name: "fallback", supports: true, page: &model.Page{Text: "real content", Source: "fallback"}}

	page, err := NewChain(s1, s2).Scrape(context.Background(), "https://acme.com")

	require.NoError(t, err)
	assert.Equal(t, "fallback", page.Source)
}

func TestChain_Scrape_AllFail(t *testing.T) {
	s1 := &mockScraper{name: "s1", supports: true, err: errors.New("s1 error")}
	s2 := &mockScraper{name: "s2", supports: true, err: errors.New("s2 error")}

	page, err := NewChain(s1, s2).Scrape(context.Background(), "https://acme.com")

	require.Error(t, err)
	assert.Nil(t, page)
	assert.Contains(t, err.Error(), "all scrapers failed")
	assert.Contains(t, err.Error(), "s2 error")
}

func TestChain_Scrape_SkipsUnsupported(t *testing.T) {
	s1 := &mockScraper{name: "s1", supports: false}
	s2 := &mockScraper{name: "s2", supports: true, page: &model.Page{Text: "ok", Source: "s2"}}

	page, err := NewChain(s1, s2).Scrape(context.Background(), "https://acme.com")

	require.NoError(t, err)
	assert.Equal(t, "s2", page.Source)
	assert.Equal(t, 0, s1.calls)
}

func TestChain_Scrape_NoSuitableScraper(t *testing.T) {
	s1 := &mockScraper{name: "s1", supports: false}

	_, err := NewChain(s1).Scrape(context.Background(), "https://acme.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable scraper")
}

func TestChain_Scrape_CanceledContext(t *testing.T) {
	s1 := &mockScraper{name: "s1", supports: true, page: &model.Page{Text: "ok"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChain(s1).Scrape(ctx, "https://acme.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s1.calls)
}

func TestChain_Names(t *testing.T) {
	chain := NewChain(&mockScraper{name: "local_http"}, &mockScraper{name: "jina"})
	assert.Equal(t, []string{"local_http", "jina"}, chain.Names())
}
