package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	maxLocalBody   = 1 << 20
	minLocalBody   = 100
	localUserAgent = "Mozilla/5.0 (compatible; ProspectBot/1.0)"
)

// removedSelectors are stripped before text extraction. Headers and footers
// stay because contact details often live there.
const removedSelectors = "script, style, noscript, svg, iframe, template, nav"

// LocalScraper fetches HTML directly, detects blocks, and flattens the DOM
// to plain text with goquery. Free, no API calls.
type LocalScraper struct {
	client *http.Client
}

// NewLocalScraper creates a LocalScraper with the given request timeout.
func NewLocalScraper(timeout time.Duration) *LocalScraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Name implements Scraper.
func (l *LocalScraper) Name() string { return "local_http" }

// Supports implements Scraper.
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, rejects blocked or error pages, and extracts text.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", localUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLocalBody))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", blockType)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}
	if len(body) < minLocalBody {
		return nil, eris.New("local_http: empty page")
	}

	title, text, err := extractText(body)
	if err != nil {
		return nil, err
	}

	return &model.Page{
		URL:        targetURL,
		Title:      title,
		Text:       text,
		StatusCode: resp.StatusCode,
		Source:     l.Name(),
	}, nil
}

// extractText parses HTML and returns the page title and its visible text
// with whitespace collapsed. Addresses found only in mailto links are
// appended so they survive flattening.
func extractText(body []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", eris.Wrap(err, "local_http: parse html")
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(removedSelectors).Remove()

	var sb strings.Builder
	collectText(doc.Find("body"), &sb)
	text := strings.Join(strings.Fields(sb.String()), " ")

	var mailtos []string
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if addr != "" && !strings.Contains(text, addr) {
			mailtos = append(mailtos, addr)
		}
	})
	if len(mailtos) > 0 {
		text += " " + strings.Join(mailtos, " ")
	}

	return title, strings.TrimSpace(text), nil
}

// collectText walks the selection depth-first, separating text nodes with
// spaces so adjacent cells and list items do not run together.
func collectText(s *goquery.Selection, sb *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			sb.WriteString(c.Text())
			sb.WriteByte(' ')
			return
		}
		collectText(c, sb)
	})
}
