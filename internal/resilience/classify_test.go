package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"input", eris.Wrap(ErrInput, "persona is empty"), CategoryInput},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), CategoryCanceled},
		{"rate limit status", NewStatusError("serpapi", 429, ""), CategoryRateLimit},
		{"rate limit message", errors.New("Rate limit exceeded for model"), CategoryRateLimit},
		{"quota", errors.New("monthly search quota used up"), CategoryRateLimit},
		{"deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), CategoryNetwork},
		{"network message", errors.New("network unreachable"), CategoryNetwork},
		{"no such host", errors.New("dial tcp: lookup api.example: no such host"), CategoryNetwork},
		{"bad request status", &StatusError{Service: "anthropic", StatusCode: 400}, CategoryBadRequest},
		{"bad request message", errors.New("400 Bad Request"), CategoryBadRequest},
		{"content processing", errors.New("content processing error"), CategoryBadRequest},
		{"extraction", errors.New("extract: page unavailable"), CategoryExtraction},
		{"unknown", errors.New("something odd"), CategoryUnknown},
		{"nil", nil, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestCategory_Message(t *testing.T) {
	seen := make(map[string]Category)
	for _, c := range []Category{CategoryRateLimit, CategoryNetwork, CategoryBadRequest, CategoryExtraction, CategoryUnknown} {
		msg := c.Message()
		if msg == "" {
			t.Errorf("category %s has no message", c)
		}
		if prev, dup := seen[msg]; dup {
			t.Errorf("categories %s and %s share a message", prev, c)
		}
		seen[msg] = c
	}

	if Category("bogus").Message() != CategoryUnknown.Message() {
		t.Error("unknown categories should fall back to the generic message")
	}
}
