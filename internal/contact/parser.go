// Package contact turns unstructured text into contact candidates using a
// language model and strict validation of its JSON reply.
package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/llm"
	"github.com/sells-group/prospect-cli/internal/model"
)

// Default truncation limits, in runes.
const (
	SnippetMaxChars = 2000
	PageMaxChars    = 3000
)

const (
	defaultMaxTokens = 1000
	excludedDomain   = "example.com"
)

// Input is one block of text to parse.
type Input struct {
	Text        string
	Persona     string
	Origin      Origin
	URL         string // page or result URL the text came from, if any
	MaxChars    int    // 0 uses the origin default
	Accumulated int    // candidates already collected in the run, used in IDs
}

// Parser extracts contacts with an LLM.
type Parser struct {
	gen       llm.Generator
	scorer    Scorer
	now       func() time.Time
	maxTokens int
	timeout   time.Duration
}

// Option configures a Parser.
type Option func(*Parser)

// WithScorer replaces the default RandomScorer.
func WithScorer(s Scorer) Option {
	return func(p *Parser) {
		p.scorer = s
	}
}

// WithClock replaces time.Now for candidate IDs.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// WithMaxTokens sets the completion budget for each parse call.
func WithMaxTokens(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithTimeout bounds each LLM call.
func WithTimeout(d time.Duration) Option {
	return func(p *Parser) {
		p.timeout = d
	}
}

// NewParser creates a Parser backed by gen.
func NewParser(gen llm.Generator, opts ...Option) *Parser {
	p := &Parser{
		gen:       gen,
		scorer:    NewRandomScorer(nil),
		now:       time.Now,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse asks the model for contacts in in.Text. An LLM error is returned; an
// unparseable reply is logged and yields no candidates.
func (p *Parser) Parse(ctx context.Context, in Input) ([]model.ContactCandidate, error) {
	if in.Origin == "" {
		in.Origin = OriginSnippet
	}
	maxChars := in.MaxChars
	if maxChars <= 0 {
		maxChars = SnippetMaxChars
		if in.Origin == OriginPage {
			maxChars = PageMaxChars
		}
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prompt := buildPrompt(in.Persona, in.Origin, truncateRunes(in.Text, maxChars))
	reply, err := p.gen.GenerateText(callCtx, prompt, p.maxTokens)
	if err != nil {
		return nil, eris.Wrap(err, "contact: parse")
	}

	entries, err := decodeEntries(reply)
	if err != nil {
		zap.L().Warn("contact: unparseable model reply",
			zap.String("origin", string(in.Origin)),
			zap.String("url", in.URL),
			zap.Error(err),
		)
		return nil, nil
	}

	ts := p.now().UnixMilli()
	var out []model.ContactCandidate
	for _, e := range entries {
		email := strings.TrimSpace(e["email"])
		if !validEmail(email) {
			continue
		}
		out = append(out, model.ContactCandidate{
			ID:         fmt.Sprintf("%d-%d-%d", ts, in.Accumulated, len(out)),
			Email:      email,
			Name:       orUnknown(e["name"]),
			Company:    orUnknown(e["company"]),
			Title:      orUnknown(e["title"]),
			Confidence: p.scorer.Score(in.Origin),
			Source:     sourceFor(e["source"], in),
		})
	}
	return out, nil
}

// decodeEntries pulls the "emails" list out of a model reply. Entries that
// are not objects are skipped; non-string field values read as empty.
func decodeEntries(reply string) ([]map[string]string, error) {
	raw := cleanJSON(reply)
	if !strings.HasPrefix(raw, "{") {
		return nil, eris.New("contact: no json object in reply")
	}

	var envelope struct {
		Emails []json.RawMessage `json:"emails"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, eris.Wrap(err, "contact: decode reply")
	}

	out := make([]map[string]string, 0, len(envelope.Emails))
	for _, msg := range envelope.Emails {
		var fields map[string]interface{}
		if err := json.Unmarshal(msg, &fields); err != nil {
			continue
		}
		entry := make(map[string]string, len(fields))
		for k, v := range fields {
			if s, ok := v.(string); ok {
				entry[k] = s
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// cleanJSON strips Markdown fences and returns the span from the first "{"
// to the last "}".
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func validEmail(email string) bool {
	return email != "" &&
		strings.Contains(email, "@") &&
		!strings.Contains(strings.ToLower(email), excludedDomain)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return model.Unknown
	}
	return s
}

func sourceFor(own string, in Input) string {
	if own = strings.TrimSpace(own); own != "" {
		return own
	}
	if strings.Contains(strings.ToLower(in.URL), "linkedin.com") {
		return model.SourceLinkedIn
	}
	if in.Origin == OriginPage {
		return model.SourceWebSearch
	}
	return model.SourceSearchResults
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
