// Package serpapi wraps the SerpApi Google search client and shapes its
// organic results.
package serpapi

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	g "github.com/serpapi/google-search-results-golang"
)

// Client runs Google searches through SerpApi.
type Client interface {
	Search(ctx context.Context, query string, num int) ([]OrganicResult, error)
}

// OrganicResult is one organic Google hit.
type OrganicResult struct {
	Position      int
	Title         string
	Link          string
	Snippet       string
	DisplayedLink string
	Extensions    []string
}

// searchFunc executes a search and returns the decoded JSON response.
type searchFunc func(params map[string]string, apiKey string) (map[string]interface{}, error)

func googleSearch(params map[string]string, apiKey string) (map[string]interface{}, error) {
	search := g.NewGoogleSearch(params, apiKey)
	return search.GetJSON()
}

// Option configures the client.
type Option func(*client)

// WithParams adds fixed request parameters such as gl, hl or location.
func WithParams(params map[string]string) Option {
	return func(c *client) {
		for k, v := range params {
			c.params[k] = v
		}
	}
}

type client struct {
	apiKey string
	params map[string]string
	search searchFunc
}

// NewClient creates a SerpApi client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		apiKey: apiKey,
		params: map[string]string{
			"engine":        "google",
			"google_domain": "google.com",
			"gl":            "us",
			"hl":            "en",
		},
		search: googleSearch,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResult struct {
	raw map[string]interface{}
	err error
}

// Search runs query and returns at most num organic results. The SerpApi
// library has no context support, so cancellation abandons the request
// rather than aborting it.
func (c *client) Search(ctx context.Context, query string, num int) ([]OrganicResult, error) {
	if c.apiKey == "" {
		return nil, eris.New("serpapi: api key is not set")
	}

	params := make(map[string]string, len(c.params)+2)
	for k, v := range c.params {
		params[k] = v
	}
	params["q"] = query
	if num > 0 {
		params["num"] = strconv.Itoa(num)
	}

	done := make(chan searchResult, 1)
	go func() {
		raw, err := c.search(params, c.apiKey)
		done <- searchResult{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "serpapi: search")
	case res := <-done:
		if res.err != nil {
			return nil, eris.Wrap(res.err, "serpapi: search failed")
		}
		return ParseOrganicResults(res.raw, num), nil
	}
}

// ParseOrganicResults maps the organic_results node of a SerpApi response.
// Items without a link are kept; callers decide what is fetchable.
func ParseOrganicResults(raw map[string]interface{}, limit int) []OrganicResult {
	items, ok := raw["organic_results"].([]interface{})
	if !ok {
		return nil
	}

	out := make([]OrganicResult, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		r := OrganicResult{
			Position:      i + 1,
			Title:         str(m["title"]),
			Link:          str(m["link"]),
			Snippet:       str(m["snippet"]),
			DisplayedLink: str(m["displayed_link"]),
			Extensions:    extensions(m["rich_snippet"]),
		}
		if p, ok := m["position"].(float64); ok {
			r.Position = int(p)
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// extensions collects rich snippet extension strings. SerpApi nests them
// under "top" and "bottom"; a flat "extensions" list is also accepted.
func extensions(v interface{}) []string {
	rs, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	var out []string
	out = append(out, strList(rs["extensions"])...)
	for _, key := range []string{"top", "bottom"} {
		if part, ok := rs[key].(map[string]interface{}); ok {
			out = append(out, strList(part["extensions"])...)
		}
	}
	return out
}

func strList(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s := strings.TrimSpace(str(e)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
