// Package scrape extracts readable text from web pages through an ordered
// chain of scrapers.
package scrape

import (
	"context"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Scraper fetches a single URL and returns its text content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*model.Page, error)
	Name() string
	Supports(url string) bool
}
