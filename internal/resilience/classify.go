package resilience

import (
	"context"
	"errors"
	"strings"
)

// Category is the user-facing class of a top-level pipeline failure.
type Category string

const (
	CategoryInput      Category = "input"
	CategoryRateLimit  Category = "rate_limit"
	CategoryNetwork    Category = "network"
	CategoryBadRequest Category = "bad_request"
	CategoryExtraction Category = "extraction"
	CategoryCanceled   Category = "canceled"
	CategoryUnknown    Category = "unknown"
)

var categoryMessages = map[Category]string{
	CategoryInput:      "Please describe the persona you are looking for.",
	CategoryRateLimit:  "Search rate limit reached. Please wait a minute and try again.",
	CategoryNetwork:    "Network problem while contacting search services. Check your connection and try again.",
	CategoryBadRequest: "The search service could not process this request. Try rephrasing the persona.",
	CategoryExtraction: "Could not extract content from the discovered pages. Try a more specific persona.",
	CategoryCanceled:   "The search was canceled before it finished.",
	CategoryUnknown:    "Search returned limited results. Try refining the persona description.",
}

// Message returns the human-readable text for the category.
func (c Category) Message() string {
	if m, ok := categoryMessages[c]; ok {
		return m
	}
	return categoryMessages[CategoryUnknown]
}

// Classify maps a top-level error to a Category. Typed errors are checked
// first, then the message is inspected for well-known substrings.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	switch {
	case errors.Is(err, ErrInput):
		return CategoryInput
	case errors.Is(err, context.Canceled):
		return CategoryCanceled
	case IsRateLimited(err), containsAny(err, "quota"):
		return CategoryRateLimit
	case errors.Is(err, context.DeadlineExceeded), IsTransient(err),
		containsAny(err, "network", "timeout", "connection", "deadline exceeded", "failed to fetch"):
		return CategoryNetwork
	case IsNonRetryable(err), containsAny(err, "invalid", "content processing"):
		return CategoryBadRequest
	case containsAny(err, "extract", "scrape", "jina"):
		return CategoryExtraction
	default:
		return CategoryUnknown
	}
}

func containsAny(err error, subs ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range subs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
