// Package urlfilter decides which search result URLs are worth fetching.
//
// Matching is plain case-insensitive substring matching. It is coarse on
// purpose: false positives and negatives are expected.
package urlfilter

import (
	"net/url"
	"strings"
)

// Filter classifies URLs. It holds no mutable state and is safe for
// concurrent use.
type Filter struct {
	skip      []string
	allow     []string
	allowPath []string
	promising []string
}

// New creates a Filter from cfg. Empty lists fall back to the defaults.
func New(cfg Config) *Filter {
	cfg = cfg.Merge(DefaultConfig())
	return &Filter{
		skip:      lowerAll(cfg.SkipPatterns),
		allow:     lowerAll(cfg.AllowKeywords),
		allowPath: lowerAll(cfg.AllowPaths),
		promising: lowerAll(cfg.PromisingKeywords),
	}
}

// NewDefault creates a Filter with the built-in lists.
func NewDefault() *Filter {
	return New(DefaultConfig())
}

// IsExtractable reports whether rawURL is a valid http(s) URL that is not on
// the skip list and looks like an organization, directory or profile page.
func (f *Filter) IsExtractable(rawURL string) bool {
	u, ok := parseHTTP(rawURL)
	if !ok {
		return false
	}

	lower := strings.ToLower(rawURL)
	if containsAny(lower, f.skip) {
		return false
	}

	if containsAny(lower, f.allow) {
		return true
	}
	return containsAny(strings.ToLower(u.Path), f.allowPath)
}

// IsPromising reports whether the link text suggests a people or
// organization page (about, team, staff, bio, ...).
func (f *Filter) IsPromising(rawURL string) bool {
	return containsAny(strings.ToLower(rawURL), f.promising)
}

func parseHTTP(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, true
	default:
		return nil, false
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
