// Package query turns a persona description into web search queries.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/llm"
)

// MaxQueries is how many generated queries a run uses.
const MaxQueries = 3

const defaultMaxTokens = 300

const queryPrompt = `You write web search queries for finding professional contact information.

Target persona: %s

Write 3 to 5 search queries that would surface public pages listing people who match this persona, such as professional profiles, company team and leadership pages, staff directories, speaker bios, association member lists and conference speaker lists.

Put each query on its own line. Output only the queries, with no numbering, quotes or commentary.`

// Generator asks an LLM for search queries.
type Generator struct {
	gen       llm.Generator
	maxTokens int
	timeout   time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxTokens sets the completion budget.
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithTimeout bounds the LLM call.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		g.timeout = d
	}
}

// NewGenerator creates a Generator backed by gen.
func NewGenerator(gen llm.Generator, opts ...Option) *Generator {
	g := &Generator{gen: gen, maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns at most MaxQueries queries for persona, in the order the
// model produced them. An empty reply yields an empty slice.
func (g *Generator) Generate(ctx context.Context, persona string) ([]string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	reply, err := g.gen.GenerateText(ctx, fmt.Sprintf(queryPrompt, persona), g.maxTokens)
	if err != nil {
		return nil, eris.Wrap(err, "query: generate")
	}

	queries := SplitLines(reply, MaxQueries)
	zap.L().Debug("query: generated",
		zap.String("persona", persona),
		zap.Strings("queries", queries),
	)
	return queries, nil
}

// SplitLines splits text on line breaks, trims each line, drops blanks and
// keeps at most limit lines. A non-positive limit keeps all of them.
func SplitLines(text string, limit int) []string {
	out := []string{}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
